package sepay

import (
	"net/url"
	"slices"
	"sort"
	"strconv"
)

// Operation defines model for CheckoutRequest.Operation.
type Operation string

// Defines values for Operation.
const (
	OperationPurchase Operation = "PURCHASE"
	OperationVerify   Operation = "VERIFY"
)

// PaymentMethod defines model for CheckoutRequest.PaymentMethod.
type PaymentMethod string

// Defines values for PaymentMethod.
const (
	PaymentMethodCard              PaymentMethod = "CARD"
	PaymentMethodBankTransfer      PaymentMethod = "BANK_TRANSFER"
	PaymentMethodNapasBankTransfer PaymentMethod = "NAPAS_BANK_TRANSFER"
)

// Currency defines model for CheckoutRequest.Currency.
type Currency string

// CurrencyVND is the only currency hosted checkout accepts.
const CurrencyVND Currency = "VND"

// CheckoutRequest describes one hosted checkout. Amounts are in whole VND.
type CheckoutRequest struct {
	// Merchant identifier. Defaults to the client's merchant when empty.
	Merchant string `json:"merchant" validate:"required"`
	// Always VND.
	Currency Currency `json:"currency" validate:"required,eq=VND"`
	// Amount to charge. Must be positive for PURCHASE and zero for VERIFY.
	OrderAmount int64 `json:"order_amount" validate:"gte=0"`
	// PURCHASE charges the buyer, VERIFY only checks the payment method.
	Operation Operation `json:"operation" validate:"required,oneof=PURCHASE VERIFY"`
	// Free text shown to the buyer.
	OrderDescription string `json:"order_description" validate:"required"`
	// Restricts the payment page to one method.
	PaymentMethod PaymentMethod `json:"payment_method,omitempty" validate:"omitempty,oneof=CARD BANK_TRANSFER NAPAS_BANK_TRANSFER"`
	// Merchant side order reference. Required for PURCHASE.
	//
	// Example: INV-1001
	OrderInvoiceNumber string `json:"order_invoice_number,omitempty" validate:"omitempty,max=100,invoice_number"`
	CustomerID         string `json:"customer_id,omitempty"`
	SuccessURL         string `json:"success_url,omitempty" validate:"omitempty,url"`
	ErrorURL           string `json:"error_url,omitempty" validate:"omitempty,url"`
	CancelURL          string `json:"cancel_url,omitempty" validate:"omitempty,url"`
	BranchCode         string `json:"branch_code,omitempty"`

	// Recurring agreement fields.
	AgreementID               string `json:"agreement_id,omitempty"`
	AgreementName             string `json:"agreement_name,omitempty"`
	AgreementType             string `json:"agreement_type,omitempty"`
	AgreementPaymentFrequency string `json:"agreement_payment_frequency,omitempty"`
	AgreementAmountPerPayment *int64 `json:"agreement_amount_per_payment,omitempty" validate:"omitempty,gte=0"`
}

// Field names of the checkout form.
const (
	FieldMerchant                  = "merchant"
	FieldCurrency                  = "currency"
	FieldOrderAmount               = "order_amount"
	FieldOperation                 = "operation"
	FieldOrderDescription          = "order_description"
	FieldPaymentMethod             = "payment_method"
	FieldOrderInvoiceNumber        = "order_invoice_number"
	FieldCustomerID                = "customer_id"
	FieldSuccessURL                = "success_url"
	FieldErrorURL                  = "error_url"
	FieldCancelURL                 = "cancel_url"
	FieldBranchCode                = "branch_code"
	FieldAgreementID               = "agreement_id"
	FieldAgreementName             = "agreement_name"
	FieldAgreementType             = "agreement_type"
	FieldAgreementPaymentFrequency = "agreement_payment_frequency"
	FieldAgreementAmountPerPayment = "agreement_amount_per_payment"
	FieldSignature                 = "signature"
)

var (
	requiredCheckoutFields = []string{
		FieldMerchant,
		FieldCurrency,
		FieldOrderAmount,
		FieldOperation,
		FieldOrderDescription,
	}
	optionalCheckoutFields = []string{
		FieldPaymentMethod,
		FieldOrderInvoiceNumber,
		FieldCustomerID,
		FieldSuccessURL,
		FieldErrorURL,
		FieldCancelURL,
		FieldBranchCode,
		FieldAgreementID,
		FieldAgreementName,
		FieldAgreementType,
		FieldAgreementPaymentFrequency,
		FieldAgreementAmountPerPayment,
	}
)

// Fields projects the request onto the transmissible form fields. Required
// fields are always present; optional ones only when set.
func (r CheckoutRequest) Fields() CheckoutFields {
	fields := CheckoutFields{
		FieldMerchant:         r.Merchant,
		FieldCurrency:         string(r.Currency),
		FieldOrderAmount:      strconv.FormatInt(r.OrderAmount, 10),
		FieldOperation:        string(r.Operation),
		FieldOrderDescription: r.OrderDescription,
	}
	optional := map[string]string{
		FieldPaymentMethod:             string(r.PaymentMethod),
		FieldOrderInvoiceNumber:        r.OrderInvoiceNumber,
		FieldCustomerID:                r.CustomerID,
		FieldSuccessURL:                r.SuccessURL,
		FieldErrorURL:                  r.ErrorURL,
		FieldCancelURL:                 r.CancelURL,
		FieldBranchCode:                r.BranchCode,
		FieldAgreementID:               r.AgreementID,
		FieldAgreementName:             r.AgreementName,
		FieldAgreementType:             r.AgreementType,
		FieldAgreementPaymentFrequency: r.AgreementPaymentFrequency,
	}
	if r.AgreementAmountPerPayment != nil {
		optional[FieldAgreementAmountPerPayment] = strconv.FormatInt(*r.AgreementAmountPerPayment, 10)
	}
	for name, value := range optional {
		if value != "" {
			fields[name] = value
		}
	}
	return fields
}

// CheckoutFields is the flat field set posted to hosted checkout.
type CheckoutFields map[string]string

// Signature returns the signature field, if any.
func (f CheckoutFields) Signature() string {
	return f[FieldSignature]
}

// Unsigned returns a copy without the signature field.
func (f CheckoutFields) Unsigned() map[string]string {
	out := make(map[string]string, len(f))
	for k, v := range f {
		if k == FieldSignature {
			continue
		}
		out[k] = v
	}
	return out
}

// Names lists the field names in form order: required fields, optional
// fields, anything else alphabetically, and the signature last.
func (f CheckoutFields) Names() []string {
	names := make([]string, 0, len(f))
	seen := make(map[string]bool, len(f))
	for _, name := range slices.Concat(requiredCheckoutFields, optionalCheckoutFields) {
		if _, ok := f[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range f {
		if !seen[name] && name != FieldSignature {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)
	if _, ok := f[FieldSignature]; ok {
		names = append(names, FieldSignature)
	}
	return names
}

// Values converts the fields for form posting.
func (f CheckoutFields) Values() url.Values {
	values := make(url.Values, len(f))
	for k, v := range f {
		values.Set(k, v)
	}
	return values
}
