package accountdelivery

import (
	"github.com/go-playground/validator/v10"

	"github.com/go-petr/sca-bank/internal/domain"
)

// ValidAccountType validates whether the account type is supported.
var ValidAccountType validator.Func = func(fl validator.FieldLevel) bool {
	if t, ok := fl.Field().Interface().(string); ok {
		return domain.AccountType(t).Valid()
	}

	return false
}

// RegisterValidators registers the custom binding tags used by account requests.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("accounttype", ValidAccountType)
}
