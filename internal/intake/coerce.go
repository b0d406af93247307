package intake

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseBool reports whether v is one of "true", "1", "on" or "yes",
// ignoring case and surrounding space. Anything else is false.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

// ParseNumber returns nil for empty, unparseable or non-finite input.
func ParseNumber(v string) *float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// ParseCount is ParseNumber truncated to an int, with 0 standing in for nil.
func ParseCount(v string) int {
	f := ParseNumber(v)
	if f == nil {
		return 0
	}
	if *f > math.MaxInt32 || *f < math.MinInt32 {
		return 0
	}
	return int(*f)
}

// SanitizePhones trims every entry and drops blanks and repeats, keeping the
// first occurrence order. It is idempotent and shared by every flow that
// stores notification phones.
func SanitizePhones(phones []string) []string {
	out := make([]string, 0, len(phones))
	seen := make(map[string]struct{}, len(phones))
	for _, p := range phones {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// text renders a loosely typed JSON scalar the way a form field would carry it.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

// FilterType trims t and folds an accessory-frame type ("<base>_frame" or
// "<base>-frame", any case) onto its base type.
func FilterType(t string) string {
	t = strings.TrimSpace(t)
	lower := strings.ToLower(t)
	for _, suffix := range []string{"_frame", "-frame"} {
		if strings.HasSuffix(lower, suffix) && len(t) > len(suffix) {
			return t[:len(t)-len(suffix)]
		}
	}
	return t
}
