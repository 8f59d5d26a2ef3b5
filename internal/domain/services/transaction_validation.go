package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"upiguard/internal/domain/models"
)

// UPIPattern is the accepted shape of a virtual payment address
var UPIPattern = regexp.MustCompile(`^[\w.\-]{2,256}@[A-Za-z]{2,64}$`)

// NewValidator returns a validator with the "upi" rule registered
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("upi", func(fl validator.FieldLevel) bool {
		return UPIPattern.MatchString(fl.Field().String())
	})
	return v
}

// TransactionValidationError names the first input field that was rejected
type TransactionValidationError struct {
	Field  string
	Reason string
}

func (e *TransactionValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *TransactionValidationError) Unwrap() error { return ErrInvalidTransaction }

func validateStruct(v *validator.Validate, input any) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}

	fe := fieldErrs[0]
	return &TransactionValidationError{
		Field:  jsonFieldName(fe.StructField()),
		Reason: describeTag(fe),
	}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "upi":
		return "is not a valid UPI ID"
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

var jsonNames = map[string]string{
	"Amount":      "amount",
	"ReceiverUPI": "receiver_upi",
	"Hour":        "hour",
	"DeviceID":    "device_id",
	"UPIID":       "upi_id",
	"ContactName": "contact_name",
	"Status":      "status",
	"RiskScore":   "risk_score",
	"RiskLevel":   "risk_level",
}

func jsonFieldName(field string) string {
	if name, ok := jsonNames[field]; ok {
		return name
	}
	return strings.ToLower(field)
}

// ValidateTransactionInput checks amount, receiver and hour bounds
func ValidateTransactionInput(v *validator.Validate, input models.TransactionInput) error {
	if v == nil {
		v = NewValidator()
	}
	return validateStruct(v, input)
}
