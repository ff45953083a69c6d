package http

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

var (
	reAccount = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]{0,62}[a-z0-9])?$`)
	reSymbol  = regexp.MustCompile(`^[A-Z0-9]{1,16}$`)
)

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	// ledger-style account id: lowercase alnum with . _ - separators
	_ = v.RegisterValidation("account", func(fl validator.FieldLevel) bool {
		return reAccount.MatchString(fl.Field().String())
	})
	// token symbol: uppercase alnum
	_ = v.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return reSymbol.MatchString(fl.Field().String())
	})
	// amount: positive integer decimal string
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsInteger() && d.IsPositive()
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// Map validator.ValidationErrors → []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "account":
			out = append(out, FieldError{Field: field, Message: "must be a valid account id"})
		case "symbol":
			out = append(out, FieldError{Field: field, Message: "must be an uppercase token symbol"})
		case "amount":
			out = append(out, FieldError{Field: field, Message: "must be a positive integer amount"})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
