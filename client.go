package sepay

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-softwarelab/common/pkg/slogx"

	"github.com/sepay/sepay-go/signature"
)

// Client is the entry point of the SDK. It is immutable: use [Client.With] to
// derive a client with different options.
type Client struct {
	// Checkout signs hosted checkout forms.
	Checkout *CheckoutService
	// Orders wraps the order management API.
	Orders *OrderService

	credential Credential
	cfg        config
	transport  *Transport
}

// NewClient builds a client for the given merchant credentials.
func NewClient(merchantID, secretKey string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return newClient(Credential{MerchantID: merchantID, SecretKey: secretKey}, cfg)
}

func newClient(credential Credential, cfg config) (*Client, error) {
	credential.MerchantID = strings.TrimSpace(credential.MerchantID)
	if credential.MerchantID == "" {
		return nil, errors.New("sepay: merchant id is required")
	}
	if credential.SecretKey == "" {
		return nil, errors.New("sepay: secret key is required")
	}
	if _, err := ParseEnvironment(string(cfg.environment)); err != nil {
		return nil, err
	}
	logger := slogx.Child(cfg.logger, "sepay")
	transport := newTransport(cfg, credential)
	c := &Client{
		credential: credential,
		cfg:        cfg,
		transport:  transport,
	}
	c.Checkout = &CheckoutService{
		merchantID:      credential.MerchantID,
		signer:          signature.HMACSigner{Key: credential.SecretKey},
		verifier:        cfg.verifier,
		checkoutBaseURL: cfg.resolvedCheckoutBaseURL(),
		logger:          logger,
	}
	c.Orders = &OrderService{transport: transport, logger: logger}
	logger.Debug("sepay client ready",
		slog.Any("credential", credential),
		slog.String("environment", string(cfg.environment)),
		slog.String("api_base_url", transport.baseURL),
	)
	return c, nil
}

// With returns a new client that applies opts on top of the current
// configuration. The receiver is left untouched.
func (c *Client) With(opts ...Option) (*Client, error) {
	cfg := c.cfg
	cfg.requestHooks = slices.Clone(c.cfg.requestHooks)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return newClient(c.credential, cfg)
}

// MerchantID returns the merchant the client acts for.
func (c *Client) MerchantID() string {
	return c.credential.MerchantID
}

// Environment returns the configured environment.
func (c *Client) Environment() Environment {
	return c.cfg.environment
}

// APIBaseURL returns the effective API base URL.
func (c *Client) APIBaseURL() string {
	return c.transport.baseURL
}

// CheckoutBaseURL returns the effective hosted checkout base URL.
func (c *Client) CheckoutBaseURL() string {
	return c.Checkout.checkoutBaseURL
}

// Transport exposes the underlying transport for endpoints the SDK does not
// wrap yet.
func (c *Client) Transport() *Transport {
	return c.transport
}
