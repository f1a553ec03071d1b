package middleware

import (
	"reflect"
	"strings"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator configures gin's binding validator with JSON field names
// and the domain enum tags used by request DTOs
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	_ = v.RegisterValidation("voucherkind", func(fl validator.FieldLevel) bool {
		return settlement.VoucherKind(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("counterpartyrole", func(fl validator.FieldLevel) bool {
		return settlement.CounterpartyRole(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("paymentmethod", func(fl validator.FieldLevel) bool {
		return settlement.PaymentMethod(fl.Field().String()).IsValid()
	})
}

// FormatBindingErrors turns gin binding validation failures into the
// field-keyed detail map used by error responses
func FormatBindingErrors(err error, requestID string) dto.Response {
	details := map[string]string{}

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			details[e.Field()] = bindingMessage(e)
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// bindingMessage returns a human-readable message for a binding failure
func bindingMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Must be a valid UUID"
	case "voucherkind":
		return "Must be PAYMENT or RECEIPT"
	case "counterpartyrole":
		return "Must be VENDOR or CUSTOMER"
	case "paymentmethod":
		return "Must be a supported payment method"
	case "min":
		return "Must be at least " + e.Param()
	case "max":
		return "Must be at most " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	default:
		return "Invalid value"
	}
}
