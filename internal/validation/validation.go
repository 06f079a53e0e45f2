// Package validation wraps go-playground/validator with the rules shared by
// every entry point that creates or edits fridge data.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		// numeric tags (gte, lte, ...) compare decimals as floats
		validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
			if d, ok := v.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})
	})
	return validate
}

// Error lists the fields that failed validation.
type Error struct {
	Fields []FieldError
}

// FieldError is a single failed rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Param != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", f.Field, f.Rule, f.Param))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", f.Field, f.Rule))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

// Newf builds a validation error for a single field outside struct tags.
func Newf(field, rule string) error {
	return &Error{Fields: []FieldError{{Field: field, Rule: rule}}}
}

// maxMoney bounds every amount of money: prices and expenses are stored as
// NUMERIC(12,2).
var maxMoney = decimal.New(1, 10)

// Money checks that d is a non-negative amount below 1e10 with at most two
// decimal places.
func Money(field string, d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return &Error{Fields: []FieldError{{Field: field, Rule: "gte", Param: "0"}}}
	case d.GreaterThanOrEqual(maxMoney):
		return &Error{Fields: []FieldError{{Field: field, Rule: "lt", Param: maxMoney.String()}}}
	case !d.Equal(d.Round(2)):
		return &Error{Fields: []FieldError{{Field: field, Rule: "decimals", Param: "2"}}}
	}
	return nil
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
