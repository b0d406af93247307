package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PhoneList handles notification phone arrays stored as JSON text.
type PhoneList []string

// Value implements the driver.Valuer interface
func (p PhoneList) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (p *PhoneList) Scan(value interface{}) error {
	if value == nil {
		*p = PhoneList{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into PhoneList", value)
	}

	var arr []string
	if err := json.Unmarshal(bytes, &arr); err != nil {
		return err
	}
	*p = PhoneList(arr)
	return nil
}
