// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var identifierPattern = regexp.MustCompile("^[a-zA-Z0-9_=+/-]+$")

func init() {
	validate = validator.New()
	validate.RegisterValidation("wallet_address", validateIdentifier)
	validate.RegisterValidation("asset_id", validateIdentifier)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// validateIdentifier covers wallet addresses and asset identifiers: opaque
// printable identifiers, 8-64 characters.
func validateIdentifier(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) < 8 || len(value) > 64 {
		return false
	}
	return identifierPattern.MatchString(value)
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "wallet_address":
		return "Wallet address must be an 8-64 character identifier"
	case "asset_id":
		return "Asset id must be an 8-64 character identifier"
	default:
		return e.Field() + " is invalid"
	}
}
