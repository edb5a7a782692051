package sepay

import (
	"encoding/base64"
	"log/slog"
)

// Credential identifies a merchant towards the gateway. The secret key signs
// checkout forms and doubles as the Basic-Auth password for API calls.
type Credential struct {
	MerchantID string
	SecretKey  string
}

// BasicAuthorization builds the Authorization header value for API calls.
func BasicAuthorization(merchantID, secretKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(merchantID+":"+secretKey))
}

// AuthorizationHeader returns the Basic-Auth header value for c.
func (c Credential) AuthorizationHeader() string {
	return BasicAuthorization(c.MerchantID, c.SecretKey)
}

// String never includes the secret key.
func (c Credential) String() string {
	return "merchant=" + c.MerchantID + " secret=" + redact(c.SecretKey)
}

// LogValue keeps the secret out of structured logs.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("merchant_id", c.MerchantID),
		slog.String("secret_key", redact(c.SecretKey)),
	)
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[REDACTED]"
}
