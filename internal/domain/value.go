package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Placeholder values are stored as plain text whatever the declared ValueType.
// TypedValue is the parsed view used at the edges. Manual edits are stored in
// the canonical form of Format; extracted values are kept as given so permissive
// legacy values survive round trips.

// dateLayouts are tried in order when parsing a date value
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2-1-2006",
	"02.01.2006",
}

// TypedValue is a placeholder value interpreted according to its ValueType
type TypedValue struct {
	Type   ValueType
	Raw    string
	Number *float64
	Date   *time.Time
}

// IsEmpty reports whether the raw text carries no value
func (v TypedValue) IsEmpty() bool {
	return strings.TrimSpace(v.Raw) == ""
}

// ParseValue interprets raw according to valueType. Empty input is always valid.
// Unknown value types are treated as text.
func ParseValue(valueType ValueType, raw string) (TypedValue, error) {
	tv := TypedValue{Type: valueType, Raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return tv, nil
	}

	switch valueType {
	case ValueTypeNumber:
		n, err := parseNumber(trimmed)
		if err != nil {
			return tv, fmt.Errorf("invalid number %q: %w", raw, err)
		}
		tv.Number = &n
	case ValueTypeDate:
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, trimmed); err == nil {
				tv.Date = &d
				return tv, nil
			}
		}
		return tv, fmt.Errorf("invalid date %q", raw)
	case ValueTypeText, ValueTypeAddress:
	default:
		tv.Type = ValueTypeText
	}

	return tv, nil
}

// Format renders the value canonically: numbers without trailing zeros, dates as
// DD-MM-YYYY, text and addresses trimmed.
func (v TypedValue) Format() string {
	switch {
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	case v.Date != nil:
		return v.Date.Format("02-01-2006")
	default:
		return strings.TrimSpace(v.Raw)
	}
}

// parseNumber accepts both "1234.5" and the European "1.234,50" notation, with
// an optional currency sign.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "€"))
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return n, nil
}
