package entity

import (
	"errors"

	v "github.com/go-ozzo/ozzo-validation/v4"
	gerr "github.com/wedsync/guestlist/internal/errors"
)

// validateStruct runs the rules one field at a time and reports the first
// failure as a ValidationError, so row-level reports stay deterministic.
func validateStruct(structPtr any, rules ...*v.FieldRules) error {
	for _, rule := range rules {
		err := v.ValidateStruct(structPtr, rule)
		if err == nil {
			continue
		}
		var ve v.Errors
		if errors.As(err, &ve) {
			for field, fe := range ve {
				return &gerr.ValidationError{Field: field, Message: fe.Error()}
			}
		}
		return &gerr.ValidationError{Message: err.Error()}
	}
	return nil
}

func validationErr(field, msg string) error {
	return &gerr.ValidationError{Field: field, Message: msg}
}
