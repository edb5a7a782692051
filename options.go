package sepay

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/go-softwarelab/common/pkg/slogx"

	"github.com/sepay/sepay-go/signature"
)

// Version of the SDK, reported in the default User-Agent.
const Version = "1.0.0"

const (
	DefaultTimeout       = 30 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 1000 * time.Millisecond
	DefaultUserAgent     = "SePay-Go-SDK/" + Version
)

type config struct {
	environment     Environment
	apiBaseURL      string
	checkoutBaseURL string
	timeout         time.Duration
	retryAttempts   int
	retryDelay      time.Duration
	userAgent       string
	logger          *slog.Logger
	httpClient      *http.Client
	requestHooks    []resty.RequestMiddleware
	verifier        signature.Verifier
	sleep           func(ctx context.Context, d time.Duration) error
}

func defaultConfig() config {
	return config{
		environment:   Sandbox,
		timeout:       DefaultTimeout,
		retryAttempts: DefaultRetryAttempts,
		retryDelay:    DefaultRetryDelay,
		userAgent:     DefaultUserAgent,
		logger:        slogx.SilentLogger(),
		sleep:         sleepContext,
	}
}

func (c config) resolvedAPIBaseURL() string {
	if c.apiBaseURL != "" {
		return c.apiBaseURL
	}
	return c.environment.APIBaseURL()
}

func (c config) resolvedCheckoutBaseURL() string {
	if c.checkoutBaseURL != "" {
		return c.checkoutBaseURL
	}
	return c.environment.CheckoutBaseURL()
}

// Option customizes a [Client].
type Option func(*config)

// WithEnvironment selects sandbox or production base URLs.
func WithEnvironment(env Environment) Option {
	return func(cfg *config) {
		cfg.environment = env
	}
}

// WithAPIBaseURL overrides the API base URL of the selected environment.
func WithAPIBaseURL(u string) Option {
	return func(cfg *config) {
		cfg.apiBaseURL = strings.TrimRight(u, "/")
	}
}

// WithCheckoutBaseURL overrides the hosted checkout base URL of the selected
// environment.
func WithCheckoutBaseURL(u string) Option {
	return func(cfg *config) {
		cfg.checkoutBaseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout bounds every single HTTP attempt.
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("sepay: timeout must be positive")
	}
	return func(cfg *config) {
		cfg.timeout = d
	}
}

// WithRetryAttempts sets the total number of attempts per call, the first
// one included.
func WithRetryAttempts(n int) Option {
	if n < 1 {
		panic("sepay: retry attempts must be at least 1")
	}
	return func(cfg *config) {
		cfg.retryAttempts = n
	}
}

// WithRetryDelay sets the fixed pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	if d < 0 {
		panic("sepay: retry delay must not be negative")
	}
	return func(cfg *config) {
		cfg.retryDelay = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cfg *config) {
		if ua != "" {
			cfg.userAgent = ua
		}
	}
}

// WithLogger routes SDK logs to logger. Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithHTTPClient supplies the underlying HTTP client. Its Timeout is replaced
// by the configured per-attempt timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *config) {
		cfg.httpClient = hc
	}
}

// WithRequestHook appends resty request middleware that runs before every
// attempt, in the order provided.
func WithRequestHook(hooks ...resty.RequestMiddleware) Option {
	return func(cfg *config) {
		for _, h := range hooks {
			if h == nil {
				continue
			}
			cfg.requestHooks = append(cfg.requestHooks, h)
		}
	}
}

// WithVerifier replaces the check behind [CheckoutService.VerifySignature]
// and [CheckoutService.VerifyRequest], for example to accept a previous
// secret key while rotating. Signing always uses the client's secret key.
func WithVerifier(v signature.Verifier) Option {
	return func(cfg *config) {
		cfg.verifier = v
	}
}

// withSleep replaces the inter-attempt pause in tests.
func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(cfg *config) {
		cfg.sleep = fn
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
