package feature

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldError is a human readable problem with one form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Message
}

// Validate checks one raw form value against the default catalog.
func Validate(name, raw string) string {
	return Default().Validate(name, raw)
}

// Validate returns "" when raw is an acceptable value for the named field and
// otherwise a message naming the field and its valid range.
func (c *Catalog) Validate(name, raw string) string {
	d, ok := c.Lookup(name)
	if !ok {
		return fmt.Sprintf("unknown field %s", name)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Sprintf("%s is required", d.Label)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Sprintf("%s must be a number", d.Label)
	}
	if !d.Accepts(v) {
		return fmt.Sprintf("%s must be %s", d.Label, d.RangeText())
	}
	return ""
}

// ValidateForm validates every catalog field in values and returns at most
// one error per field, in catalog order. A missing key counts as empty.
func (c *Catalog) ValidateForm(values map[string]string) []FieldError {
	var errs []FieldError
	for _, d := range c.descriptors {
		if msg := c.Validate(d.Name, values[d.Name]); msg != "" {
			errs = append(errs, FieldError{Field: d.Name, Message: msg})
		}
	}
	return errs
}

// RangeText renders the valid domain, e.g. "between 0 and 120 years".
func (d Descriptor) RangeText() string {
	if d.IsCategorical() {
		parts := make([]string, len(d.Levels))
		for i, l := range d.Levels {
			parts[i] = fmt.Sprintf("%s (%s)", formatNumber(l.Code), l.Label)
		}
		return "one of " + strings.Join(parts, ", ")
	}
	text := fmt.Sprintf("between %s and %s", formatNumber(d.Min), formatNumber(d.Max))
	if d.Unit != "" {
		text += " " + d.Unit
	}
	return text
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
