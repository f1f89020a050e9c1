package transferdelivery

import (
	"github.com/go-playground/validator/v10"

	"github.com/go-petr/sca-bank/internal/domain"
)

// ValidTANType validates whether the TAN type is supported.
var ValidTANType validator.Func = func(fl validator.FieldLevel) bool {
	if t, ok := fl.Field().Interface().(string); ok {
		return domain.TANType(t).Valid()
	}

	return false
}

// ValidRecipientType validates whether the recipient type is supported.
var ValidRecipientType validator.Func = func(fl validator.FieldLevel) bool {
	if t, ok := fl.Field().Interface().(string); ok {
		return t == string(domain.RecipientTypeInternal) || t == string(domain.RecipientTypeExternal)
	}

	return false
}

// RegisterValidators registers the custom binding tags used by transfer requests.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("tantype", ValidTANType); err != nil {
		return err
	}

	return v.RegisterValidation("recipienttype", ValidRecipientType)
}
