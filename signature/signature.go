// Package signature computes and checks the HMAC-SHA256 signature SePay
// expects on checkout field sets.
//
// Only the fields listed in [SignedFields] participate, always in that order,
// so the signature does not depend on map iteration order or on any extra
// fields that travel with the form.
package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	canonicaljson "github.com/gibson042/canonicaljson-go"
)

// SignedFields is the canonical signing order.
var SignedFields = [...]string{
	"merchant",
	"env",
	"operation",
	"payment_method",
	"order_amount",
	"currency",
	"order_invoice_number",
	"order_description",
	"customer_id",
	"agreement_id",
	"agreement_name",
	"agreement_type",
	"agreement_payment_frequency",
	"agreement_amount_per_payment",
	"success_url",
	"error_url",
	"cancel_url",
}

// IsSigned reports whether name takes part in the signature.
func IsSigned(name string) bool {
	for _, field := range SignedFields {
		if field == name {
			return true
		}
	}
	return false
}

// SigningString builds the comma separated "name=value" list that is MACed.
// Keys absent from fields are skipped; keys present with an empty value are
// kept as "name=".
func SigningString(fields map[string]string) string {
	var b strings.Builder
	for _, name := range SignedFields {
		value, ok := fields[name]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(value)
	}
	return b.String()
}

// Sign returns the base64 encoded HMAC-SHA256 of [SigningString] keyed by
// secretKey.
func Sign(secretKey string, fields map[string]string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	_, _ = mac.Write([]byte(SigningString(fields)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature of fields and compares it with sig in
// constant time. A signature field inside fields is ignored.
func Verify(secretKey string, fields map[string]string, sig string) bool {
	expected := Sign(secretKey, fields)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// Verifier validates signed field sets received from the gateway.
type Verifier interface {
	Verify(fields map[string]string, sig string) bool
}

// VerifierFunc lifts bare functions into [Verifier].
type VerifierFunc func(fields map[string]string, sig string) bool

// Verify delegates to the wrapped function.
func (f VerifierFunc) Verify(fields map[string]string, sig string) bool {
	return f(fields, sig)
}

// HMACSigner signs and verifies field sets with a fixed merchant secret.
type HMACSigner struct {
	Key string
}

// Sign implements the signing half of the checkout contract.
func (s HMACSigner) Sign(fields map[string]string) string {
	return Sign(s.Key, fields)
}

// Verify implements [Verifier].
func (s HMACSigner) Verify(fields map[string]string, sig string) bool {
	if s.Key == "" {
		return false
	}
	return Verify(s.Key, fields, sig)
}

// CanonicalizeJSON renders v as canonical JSON so that equal payloads produce
// byte-identical request bodies.
func CanonicalizeJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return CanonicalizeJSONBody(raw)
}

// CanonicalizeJSONBody normalizes arbitrary JSON into canonical form.
func CanonicalizeJSONBody(raw []byte) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte("null"), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("signature: multiple JSON documents in body")
	}
	return canonicaljson.Marshal(payload)
}
