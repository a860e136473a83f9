// Package validation checks request structs with go-playground/validator and
// reports failures as domain validation errors keyed by JSON field name.
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,32}$`)

// Messages for tags that take no parameter.
var fixedMessages = map[string]string{
	"required": "is required",
	"notblank": "must not be blank",
	"username": "must be 3-32 letters, digits, dots or underscores",
	"email":    "must be a valid email address",
	"url":      "must be a valid URL",
	"iso4217":  "must be an ISO 4217 currency code",
	"dive":     "contains an invalid item",
}

// Prefixes for tags whose parameter is appended to the message.
var paramMessages = map[string]string{
	"oneof": "must be one of: ",
	"gte":   "must be at least ",
	"lte":   "must be at most ",
	"gt":    "must be greater than ",
	"lt":    "must be less than ",
	"ne":    "must not be ",
}

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	custom := map[string]validator.Func{
		"notblank": func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		},
		"username": func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err) // only an empty tag name fails
		}
	}

	return &Validator{v: v}
}

// Validate returns nil or a CodeValidation error whose Details map each
// offending JSON field to a readable message.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	details := make(map[string]string, len(fieldErrs))
	names := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = describe(fe)
		names = append(names, fe.Field())
	}
	return domainerrors.ValidationWithDetails("validation failed: "+strings.Join(names, ", "), details)
}

func describe(fe validator.FieldError) string {
	tag := fe.Tag()
	if msg, ok := fixedMessages[tag]; ok {
		return msg
	}
	if prefix, ok := paramMessages[tag]; ok {
		return prefix + fe.Param()
	}

	// min and max bound length for strings and slices, value for numbers.
	var unit string
	switch fe.Kind() {
	case reflect.String:
		unit = " characters"
	case reflect.Slice, reflect.Map:
		unit = " items"
	}
	switch tag {
	case "min":
		return "must be at least " + fe.Param() + unit
	case "max":
		return "must not exceed " + fe.Param() + unit
	}
	return "is invalid"
}
