package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vitwit/nftsaga/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// "network" accepts any network name the clients can reach.
	if err := v.RegisterValidation("network", func(fl validator.FieldLevel) bool {
		return types.Network(fl.Field().String()).Valid()
	}); err != nil {
		panic(fmt.Sprintf("utils: register network validation: %v", err))
	}
	return v
}

// ValidateStruct checks v against its validate tags and reports every
// failing field in a single ValidationError.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return types.NewValidationError(err, "invalid %T", v)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return types.NewValidationError(nil, "invalid %s: %s", typeName(v), strings.Join(msgs, "; "))
}

// ValidateVar checks a single value against a tag.
func ValidateVar(field string, value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return types.NewValidationError(nil, "%s fails %q", field, tag)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fmt.Sprintf("%s fails %s", fe.Namespace(), fe.Tag())
	}
	return fmt.Sprintf("%s fails %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
}

func typeName(v any) string {
	name := fmt.Sprintf("%T", v)
	return strings.TrimPrefix(name, "*")
}
