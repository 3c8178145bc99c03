package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// FieldValue is one raw form value: either text or a number.
type FieldValue struct {
	text    string
	number  float64
	numeric bool
}

// StringValue wraps a text value.
func StringValue(s string) FieldValue {
	return FieldValue{text: s}
}

// NumberValue wraps a numeric value.
func NumberValue(f float64) FieldValue {
	return FieldValue{number: f, numeric: true}
}

// IsNumber reports whether the value is numeric.
func (v FieldValue) IsNumber() bool {
	return v.numeric
}

// String renders the value for diagnostics.
func (v FieldValue) String() string {
	if v.numeric {
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
	return v.text
}

// trimmedLength returns the rune length of the text after trimming.
func (v FieldValue) trimmedLength() int {
	return utf8.RuneCountInString(strings.TrimSpace(v.text))
}

// Rule is one named constraint. Rules that do not apply to a value's kind pass.
type Rule struct {
	name  string
	check func(FieldValue) bool
}

// Name returns the rule label used in diagnostics.
func (r Rule) Name() string {
	return r.name
}

// Required demands non-blank text; numbers always count as present.
func Required() Rule {
	return Rule{name: "required", check: func(v FieldValue) bool {
		if v.numeric {
			return true
		}
		return v.trimmedLength() > 0
	}}
}

// MinLength bounds trimmed text length from below.
func MinLength(n int) Rule {
	return Rule{name: fmt.Sprintf("min_length(%d)", n), check: func(v FieldValue) bool {
		return v.numeric || v.trimmedLength() >= n
	}}
}

// MaxLength bounds trimmed text length from above.
func MaxLength(n int) Rule {
	return Rule{name: fmt.Sprintf("max_length(%d)", n), check: func(v FieldValue) bool {
		return v.numeric || v.trimmedLength() <= n
	}}
}

// Min is an inclusive lower bound for numbers.
func Min(x float64) Rule {
	return Rule{name: "min(" + strconv.FormatFloat(x, 'f', -1, 64) + ")", check: func(v FieldValue) bool {
		return !v.numeric || v.number >= x
	}}
}

// Max is an inclusive upper bound for numbers.
func Max(x float64) Rule {
	return Rule{name: "max(" + strconv.FormatFloat(x, 'f', -1, 64) + ")", check: func(v FieldValue) bool {
		return !v.numeric || v.number <= x
	}}
}

// Integer demands a whole number.
func Integer() Rule {
	return Rule{name: "integer", check: func(v FieldValue) bool {
		return !v.numeric || (!math.IsNaN(v.number) && !math.IsInf(v.number, 0) && v.number == math.Trunc(v.number))
	}}
}

// Validate reports whether value satisfies every rule.
func Validate(value FieldValue, rules ...Rule) bool {
	return len(failedRules(value, rules)) == 0
}

// ValidateField validates one named field and describes the failure.
func ValidateField(field string, value FieldValue, rules ...Rule) error {
	failed := failedRules(value, rules)
	if len(failed) == 0 {
		return nil
	}
	return &FieldError{Field: field, Value: value.String(), Rules: failed}
}

// failedRules returns the names of every rule the value breaks.
func failedRules(value FieldValue, rules []Rule) []string {
	var failed []string
	for _, rule := range rules {
		if rule.check == nil {
			continue
		}
		if !rule.check(value) {
			failed = append(failed, rule.name)
		}
	}
	return failed
}

// FieldError describes one field that failed validation.
type FieldError struct {
	Field string
	Value string
	Rules []string
}

// Error implements error.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: invalid value %q (%s)", e.Field, e.Value, strings.Join(e.Rules, ", "))
}

// Unwrap lets errors.Is match ErrValidation.
func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// FieldErrors collects every *FieldError in err, including joined errors.
func FieldErrors(err error) []*FieldError {
	if err == nil {
		return nil
	}
	var out []*FieldError
	var walk func(error)
	walk = func(e error) {
		if fe, ok := e.(*FieldError); ok {
			out = append(out, fe)
			return
		}
		switch wrapped := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range wrapped.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			if inner := wrapped.Unwrap(); inner != nil {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}

// FailedFields lists the field names carried by err.
func FailedFields(err error) []string {
	fields := FieldErrors(err)
	out := make([]string, 0, len(fields))
	for _, fe := range fields {
		out = append(out, fe.Field)
	}
	return out
}
