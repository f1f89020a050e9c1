// Package web defines common components for a web application.
package web

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Response holds the common response type for all APIs.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Error wraps a given err into the response envelope.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// GetErrorMsg returns the human readable suffix for a failed validation tag.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " field is required"
	case "min":
		return fmt.Sprintf(" must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf(" must be at most %s characters long", fe.Param())
	case "oneof":
		return fmt.Sprintf(" must be one of [%s]", fe.Param())
	case "uuid":
		return " must be a valid UUID"
	case "numeric":
		return " must be numeric"
	case "len":
		return fmt.Sprintf(" must be exactly %s characters long", fe.Param())
	case "frequency", "tantype", "recipienttype", "accounttype":
		return " is not supported"
	case "datetime":
		return fmt.Sprintf(" must match layout %s", fe.Param())
	}

	return " is invalid"
}
