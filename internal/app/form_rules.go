package app

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Project form field names.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPeople      = "people"
)

// RawProjectInput carries the unparsed values typed into the project form.
type RawProjectInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	People      string `json:"people"`
}

// FormRules bounds the project form fields.
type FormRules struct {
	TitleMinLength       int
	DescriptionMinLength int
	DescriptionMaxLength int
	PeopleMin            int
	PeopleMax            int
}

// DefaultFormRules returns the stock form bounds.
func DefaultFormRules() FormRules {
	return FormRules{
		TitleMinLength:       2,
		DescriptionMinLength: 2,
		DescriptionMaxLength: 240,
		PeopleMin:            1,
		PeopleMax:            10,
	}
}

// Validate checks that the bounds are coherent.
func (r FormRules) Validate() error {
	switch {
	case r.TitleMinLength < 1:
		return errors.New("title_min_length must be >= 1")
	case r.DescriptionMinLength < 1:
		return errors.New("description_min_length must be >= 1")
	case r.DescriptionMaxLength < r.DescriptionMinLength:
		return errors.New("description_max_length must be >= description_min_length")
	case r.PeopleMin < 0:
		return errors.New("people_min must be >= 0")
	case r.PeopleMax < r.PeopleMin:
		return errors.New("people_max must be >= people_min")
	}
	return nil
}

// ParsePeople converts the raw people field to a number. Blank input is zero and
// anything unparsable is NaN, so range rules reject it.
func ParsePeople(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

// Check validates every field and returns the input ready for the store. All failing
// fields are reported together.
func (r FormRules) Check(in RawProjectInput) (AddProjectInput, error) {
	people := ParsePeople(in.People)
	errs := []error{
		ValidateField(FieldTitle, StringValue(in.Title),
			Required(), MinLength(r.TitleMinLength)),
		ValidateField(FieldDescription, StringValue(in.Description),
			Required(), MinLength(r.DescriptionMinLength), MaxLength(r.DescriptionMaxLength)),
		ValidateField(FieldPeople, NumberValue(people),
			Required(), Integer(), Min(float64(r.PeopleMin)), Max(float64(r.PeopleMax))),
	}
	if err := errors.Join(errs...); err != nil {
		return AddProjectInput{}, fmt.Errorf("check project form: %w", err)
	}
	return AddProjectInput{
		Title:       in.Title,
		Description: in.Description,
		People:      int(people),
	}, nil
}
