package standingorderdelivery

import (
	"github.com/go-playground/validator/v10"

	"github.com/go-petr/sca-bank/internal/domain"
)

// ValidFrequency validates whether the frequency is supported.
var ValidFrequency validator.Func = func(fl validator.FieldLevel) bool {
	if f, ok := fl.Field().Interface().(string); ok {
		return domain.Frequency(f).Valid()
	}

	return false
}

// RegisterValidators registers the custom binding tags used by standing order requests.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("frequency", ValidFrequency)
}
