package sepay

import (
	"log/slog"
	"net/http"
	"strings"
)

// VerifyRequest checks the signature of form or query encoded fields the
// gateway sends back to the merchant, for example on the success_url
// redirect. A missing or wrong signature yields false with a nil error; an
// unreadable request yields a [KindValidation] error.
func (s *CheckoutService) VerifyRequest(r *http.Request) (bool, error) {
	if err := r.ParseForm(); err != nil {
		return false, newValidationError("unable to parse signed fields: "+err.Error(), withCause(err))
	}
	sig := strings.TrimSpace(r.Form.Get(FieldSignature))
	if sig == "" {
		return false, nil
	}
	fields := make(map[string]string, len(r.Form))
	for name, values := range r.Form {
		if name == FieldSignature || len(values) == 0 {
			continue
		}
		fields[name] = values[0]
	}
	ok := s.VerifySignature(fields, sig)
	if !ok {
		s.logger.Warn("sepay checkout: signature mismatch",
			slog.String("path", r.URL.Path),
			slog.String("order_invoice_number", fields[FieldOrderInvoiceNumber]),
		)
	}
	return ok, nil
}

// RequireSignedFields wraps next so that only requests carrying a valid
// signature reach it. Others get 401, or 400 when the body is unreadable.
func (s *CheckoutService) RequireSignedFields(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := s.VerifyRequest(r)
		if err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if !ok {
			http.Error(w, "signature verification failed", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
