package intake

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Submission field names shared by the JSON and form shapes.
const (
	FieldName               = "name"
	FieldPhone              = "phone"
	FieldEmail              = "email"
	FieldAddress            = "address"
	FieldNotificationPhones = "notificationPhones"
	FieldPeriodicInspection = "periodicInspection"
	FieldFilterReplacement  = "filterReplacement"
	FieldVOCTreatment       = "vocTreatment"
	FieldFilters            = "filters"
	FieldVOCFilterType      = "vocFilterType"
	FieldVOCQuantity        = "vocQuantity"
)

// fields abstracts lookups over the two wire shapes.
type fields interface {
	scalar(key string) string
	list(key string) ([]any, error)
}

type jsonFields map[string]any

func (f jsonFields) scalar(key string) string { return text(f[key]) }

func (f jsonFields) list(key string) ([]any, error) {
	switch v := f[key].(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case string:
		return decodeList(v)
	default:
		return nil, invalid(key, "expected an array")
	}
}

type formFields map[string][]string

func (f formFields) scalar(key string) string {
	if vs := f[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func (f formFields) list(key string) ([]any, error) {
	vs := f[key]
	if len(vs) == 0 {
		return nil, nil
	}
	items, err := decodeList(vs[0])
	if err != nil {
		return nil, invalid(key, "expected a JSON-encoded array")
	}
	return items, nil
}

func decodeList(raw string) ([]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, invalid("", "expected a JSON-encoded array")
	}
	return items, nil
}

// Normalize maps either wire shape onto a validated Request.
func Normalize(body Body) (*Request, error) {
	var (
		src  fields
		file *Attachment
	)
	switch b := body.(type) {
	case JSONBody:
		src = jsonFields(b.Fields)
	case FormBody:
		src = formFields(b.Values)
		file = b.File
	default:
		return nil, invalid("body", "empty submission")
	}

	req := &Request{
		Name:    strings.TrimSpace(src.scalar(FieldName)),
		Phone:   strings.TrimSpace(src.scalar(FieldPhone)),
		Email:   strings.TrimSpace(src.scalar(FieldEmail)),
		Address: strings.TrimSpace(src.scalar(FieldAddress)),
		Services: Services{
			PeriodicInspection: ParseBool(src.scalar(FieldPeriodicInspection)),
			FilterReplacement:  ParseBool(src.scalar(FieldFilterReplacement)),
			VOCTreatment:       ParseBool(src.scalar(FieldVOCTreatment)),
		},
	}
	if req.Name == "" {
		return nil, invalid(FieldName, "required")
	}
	if !validEmail(req.Email) {
		return nil, invalid(FieldEmail, "a valid address is required")
	}

	phones, err := phoneList(src)
	if err != nil {
		return nil, err
	}
	req.NotificationPhones = phones

	if req.Services.FilterReplacement {
		filters, err := filterList(src)
		if err != nil {
			return nil, err
		}
		req.Filters = filters
	}

	if req.Services.VOCTreatment {
		req.VOC = &VOCSpec{
			FilterType: FilterType(src.scalar(FieldVOCFilterType)),
			Quantity:   DefaultQuantity(ParseCount(src.scalar(FieldVOCQuantity))),
		}
	}

	if file != nil && len(file.Data) > 0 {
		req.FloorPlan = file
	}
	return req, nil
}

// DefaultQuantity returns q, or 1 when q is not positive.
func DefaultQuantity(q int) int {
	if q <= 0 {
		return 1
	}
	return q
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

func phoneList(src fields) ([]string, error) {
	items, err := src.list(FieldNotificationPhones)
	if err != nil {
		return nil, relabel(err, FieldNotificationPhones)
	}
	phones := make([]string, 0, len(items))
	for _, item := range items {
		switch item.(type) {
		case string, json.Number:
			phones = append(phones, text(item))
		default:
			return nil, invalid(FieldNotificationPhones, "entries must be strings")
		}
	}
	return SanitizePhones(phones), nil
}

func filterList(src fields) ([]FilterSpec, error) {
	items, err := src.list(FieldFilters)
	if err != nil {
		return nil, relabel(err, FieldFilters)
	}
	specs := make([]FilterSpec, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, invalid(FieldFilters, "entries must be objects")
		}
		specs = append(specs, FilterSpec{
			Type:     FilterType(text(obj["type"])),
			Width:    ParseNumber(text(obj["width"])),
			Height:   ParseNumber(text(obj["height"])),
			Depth:    ParseNumber(text(obj["depth"])),
			Quantity: ParseCount(text(obj["quantity"])),
		})
	}
	return specs, nil
}

func relabel(err error, field string) error {
	if ve, ok := err.(*ValidationError); ok && ve.Field == "" {
		return invalid(field, ve.Reason)
	}
	return err
}
