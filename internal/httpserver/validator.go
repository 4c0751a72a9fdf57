package httpserver

import (
	"errors"
	"strings"
	"unicode"

	"github.com/Skotchmaster/todo_backend/internal/hash"
	"github.com/go-playground/validator/v10"
)

const minPasswordLength = 8

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("password", validPassword)
	_ = v.RegisterValidation("notblank", notBlank)
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// validPassword requires eight characters to 72 bytes, with letters and
// digits.
func validPassword(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len([]rune(s)) < minPasswordLength || len(s) > hash.MaxPasswordBytes {
		return false
	}
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// fieldErrors renders validator failures as one entry per field.
func fieldErrors(err error) []fieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{Field: jsonName(fe.Field()), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "password":
		return "must be 8 to 72 bytes long and contain letters and numbers"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "is invalid"
}

// jsonName turns CurrentPassword into current_password.
func jsonName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
