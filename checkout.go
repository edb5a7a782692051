package sepay

import (
	"log/slog"

	"github.com/sepay/sepay-go/signature"
)

// CheckoutService prepares signed hosted checkout forms. It holds only
// immutable configuration and is safe for concurrent use.
type CheckoutService struct {
	merchantID      string
	signer          signature.HMACSigner
	verifier        signature.Verifier
	checkoutBaseURL string
	logger          *slog.Logger
}

// BuildSignedFields fills in the client's merchant when the request has none,
// validates the request, projects it onto the transmissible fields and
// appends their signature. Validation failures are [KindValidation] errors.
func (s *CheckoutService) BuildSignedFields(req CheckoutRequest) (CheckoutFields, error) {
	if req.Merchant == "" {
		req.Merchant = s.merchantID
	}
	s.logger.Info("sepay checkout: generate form fields",
		slog.String("operation", string(req.Operation)),
		slog.String("order_invoice_number", req.OrderInvoiceNumber),
		slog.Int64("order_amount", req.OrderAmount),
	)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	fields := req.Fields()
	fields[FieldSignature] = s.signer.Sign(fields)
	return fields, nil
}

// Sign returns the signature of an arbitrary field set.
func (s *CheckoutService) Sign(fields map[string]string) string {
	return s.signer.Sign(fields)
}

// VerifySignature reports whether sig matches fields. A mismatch is not an
// error; deciding what to do with it is up to the caller.
func (s *CheckoutService) VerifySignature(fields map[string]string, sig string) bool {
	if s.verifier != nil {
		return s.verifier.Verify(fields, sig)
	}
	return s.signer.Verify(fields, sig)
}

// CheckoutURL is the form action for the configured environment.
func (s *CheckoutService) CheckoutURL() string {
	return checkoutInitURL(s.checkoutBaseURL)
}
