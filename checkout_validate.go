package sepay

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	invoiceNumberPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	validate             = newValidator()
)

// Validate checks the request against the hosted checkout rules.
func (r CheckoutRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return normalizeValidationError(err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.Split(field.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	if err := v.RegisterValidation("invoice_number", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return invoiceNumberPattern.MatchString(value)
	}); err != nil {
		panic(err)
	}

	v.RegisterStructValidation(checkoutOperationRules, CheckoutRequest{})

	return v
}

// checkoutOperationRules ties the amount and invoice number to the operation.
func checkoutOperationRules(sl validator.StructLevel) {
	r, ok := sl.Current().Interface().(CheckoutRequest)
	if !ok {
		return
	}
	switch r.Operation {
	case OperationPurchase:
		if r.OrderInvoiceNumber == "" {
			sl.ReportError(r.OrderInvoiceNumber, FieldOrderInvoiceNumber, "OrderInvoiceNumber", "required_for_purchase", "")
		}
		if r.OrderAmount <= 0 {
			sl.ReportError(r.OrderAmount, FieldOrderAmount, "OrderAmount", "positive_for_purchase", "")
		}
	case OperationVerify:
		if r.OrderAmount != 0 {
			sl.ReportError(r.OrderAmount, FieldOrderAmount, "OrderAmount", "zero_for_verify", "")
		}
	}
}

func normalizeValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return newValidationError(err.Error(), withCause(err))
	}
	first := validationErrs[0]
	fieldPath := jsonPath(first)
	message := validationMessage(first)
	fieldErrors := make(map[string]any, len(validationErrs))
	for _, fe := range validationErrs {
		path := jsonPath(fe)
		if _, ok := fieldErrors[path]; !ok {
			fieldErrors[path] = validationMessage(fe)
		}
	}
	return newValidationError(fmt.Sprintf("%s %s", fieldPath, message),
		withCause(err),
		withDetails(map[string]any{
			"field":  fieldPath,
			"rule":   first.Tag(),
			"errors": fieldErrors,
		}),
	)
}

func jsonPath(fe validator.FieldError) string {
	path := fe.Namespace()
	if idx := strings.Index(path, "."); idx >= 0 {
		path = path[idx+1:]
	}
	if path == "" {
		return fe.Field()
	}
	return path
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("cannot exceed %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "eq":
		return fmt.Sprintf("must equal %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return "must be a valid URL"
	case "invoice_number":
		return "can only contain letters, numbers, underscores, and hyphens"
	case "required_for_purchase":
		return "is required for PURCHASE operation"
	case "positive_for_purchase":
		return "must be greater than 0 for PURCHASE operation"
	case "zero_for_verify":
		return "must be 0 for VERIFY operation"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
