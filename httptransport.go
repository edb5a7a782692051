package sepay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/go-softwarelab/common/pkg/slogx"

	"github.com/sepay/sepay-go/signature"
)

// RequestOptions carries the optional parts of a gateway call.
type RequestOptions struct {
	Query url.Values
	// Body is encoded as canonical JSON: object keys sorted, no insignificant
	// whitespace, integers as plain digits and non-integral numbers in
	// exponent form (1.5 is sent as 1.5E0). Pass amounts as integers or
	// strings.
	Body any
}

// Response is a successful gateway reply whose body is valid JSON.
type Response struct {
	StatusCode int
	Header     http.Header
	RequestID  string
	Attempts   int
	Data       json.RawMessage
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if r == nil {
		return errors.New("sepay: nil response")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return newGenericError("decode response: "+err.Error(), withCause(err), withStatusCode(r.StatusCode))
	}
	return nil
}

// Map decodes a JSON object body.
func (r *Response) Map() (map[string]any, error) {
	var out map[string]any
	if err := r.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transport executes authenticated calls against the gateway API and retries
// transient failures. It holds no per-call state and is safe for concurrent
// use.
type Transport struct {
	client     *resty.Client
	baseURL    string
	credential Credential
	userAgent  string
	attempts   int
	delay      time.Duration
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func newTransport(cfg config, credential Credential) *Transport {
	var client *resty.Client
	if cfg.httpClient != nil {
		hc := *cfg.httpClient
		client = resty.NewWithClient(&hc)
	} else {
		client = resty.New()
	}
	logger := slogx.Child(cfg.logger, "sepay.transport")
	client.
		SetTimeout(cfg.timeout).
		SetRetryCount(0).
		SetLogger(restyLogger{logger: logger})
	for _, hook := range cfg.requestHooks {
		client.OnBeforeRequest(markHookErrors(hook))
	}
	return &Transport{
		client:     client,
		baseURL:    strings.TrimRight(cfg.resolvedAPIBaseURL(), "/"),
		credential: credential,
		userAgent:  cfg.userAgent,
		attempts:   cfg.retryAttempts,
		delay:      cfg.retryDelay,
		logger:     logger,
		sleep:      cfg.sleep,
	}
}

// hookError is a refusal by a request hook. Nothing was sent.
type hookError struct {
	err error
}

func (e *hookError) Error() string {
	return "request hook: " + e.err.Error()
}

func (e *hookError) Unwrap() error {
	return e.err
}

func markHookErrors(hook resty.RequestMiddleware) resty.RequestMiddleware {
	return func(c *resty.Client, r *resty.Request) error {
		if err := hook(c, r); err != nil {
			return &hookError{err: err}
		}
		return nil
	}
}

// Get issues a GET with optional query parameters.
func (t *Transport) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return t.Do(ctx, http.MethodGet, path, RequestOptions{Query: query})
}

// Post issues a POST with a canonical JSON body, see [RequestOptions.Body].
func (t *Transport) Post(ctx context.Context, path string, body any) (*Response, error) {
	return t.Do(ctx, http.MethodPost, path, RequestOptions{Body: body})
}

// Do executes method against {baseURL}/v1/{path}. Connection failures, 5xx
// and 429 responses are retried with a fixed delay until the attempt budget
// is spent; every other failure returns immediately. Failures are reported
// as [*Error].
func (t *Transport) Do(ctx context.Context, method, path string, opts RequestOptions) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	target := t.endpoint(path)
	var body []byte
	if opts.Body != nil {
		encoded, err := signature.CanonicalizeJSON(opts.Body)
		if err != nil {
			return nil, newGenericError("encode request body: "+err.Error(), withCause(err))
		}
		body = encoded
	}
	requestCtx := resolveRequestContext(ctx)
	logger := t.logger.With(
		slog.String("method", method),
		slog.String("url", target),
		slog.String("request_id", requestCtx.RequestID),
	)

	attempts := max(t.attempts, 1)
	for attempt := 1; ; attempt++ {
		resp, failure := t.attempt(ctx, method, target, opts.Query, body, requestCtx, attempt, logger)
		if failure == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, newGenericError("request aborted: "+ctxErr.Error(), withCause(ctxErr))
		}
		if attempt >= attempts || !failure.retryable() {
			return nil, failure.classify()
		}
		if err := t.sleep(ctx, t.delay); err != nil {
			return nil, newGenericError("request aborted: "+err.Error(), withCause(err))
		}
	}
}

func (t *Transport) endpoint(path string) string {
	return t.baseURL + "/v1/" + strings.TrimLeft(path, "/")
}

func (t *Transport) headers(requestCtx RequestContext) map[string]string {
	h := map[string]string{
		"Authorization": t.credential.AuthorizationHeader(),
		"Accept":        "application/json",
		"Content-Type":  "application/json",
		"User-Agent":    t.userAgent,
		RequestIDHeader: requestCtx.RequestID,
	}
	if requestCtx.IdempotencyKey != "" {
		h["Idempotency-Key"] = requestCtx.IdempotencyKey
	}
	return h
}

func (t *Transport) attempt(ctx context.Context, method, target string, query url.Values, body []byte, requestCtx RequestContext, attempt int, logger *slog.Logger) (*Response, *attemptFailure) {
	headers := t.headers(requestCtx)
	logger.DebugContext(ctx, "sepay api request",
		slog.Int("attempt", attempt),
		slog.Any("headers", sanitizeHeaders(headers)),
		slog.String("query", query.Encode()),
	)

	req := t.client.R().
		SetContext(ctx).
		SetHeaders(headers)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, target)
	if err != nil {
		logger.ErrorContext(ctx, "sepay api request failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		var refused *hookError
		return nil, &attemptFailure{cause: err, local: errors.As(err, &refused)}
	}

	status := resp.StatusCode()
	raw := resp.Body()
	logger.DebugContext(ctx, "sepay api response",
		slog.Int("attempt", attempt),
		slog.Int("status_code", status),
		slog.Duration("elapsed", resp.Time()),
	)

	if status >= http.StatusBadRequest {
		logger.ErrorContext(ctx, "sepay api request failed",
			slog.Int("attempt", attempt),
			slog.Int("status_code", status),
			slog.String("response", truncate(string(raw), 1024)),
		)
		return nil, &attemptFailure{status: status, header: resp.Header(), body: raw}
	}

	if !json.Valid(raw) {
		return nil, &attemptFailure{
			status: status,
			decode: true,
			body:   raw,
			cause:  fmt.Errorf("invalid JSON response body (%d bytes)", len(raw)),
			header: resp.Header(),
		}
	}

	return &Response{
		StatusCode: status,
		Header:     resp.Header(),
		RequestID:  requestCtx.RequestID,
		Attempts:   attempt,
		Data:       json.RawMessage(raw),
	}, nil
}

// attemptFailure describes one failed attempt before classification.
type attemptFailure struct {
	status int
	header http.Header
	body   []byte
	cause  error
	decode bool
	// local failures happened before anything was sent.
	local bool
}

func (f *attemptFailure) retryable() bool {
	if f.decode || f.local {
		return false
	}
	if f.status == 0 {
		return true
	}
	return f.status >= http.StatusInternalServerError || f.status == http.StatusTooManyRequests
}

func (f *attemptFailure) classify() *Error {
	switch {
	case f.decode:
		return newGenericError("invalid JSON response: "+f.cause.Error(), withCause(f.cause), withStatusCode(f.status))
	case f.local:
		return newGenericError("request not sent: "+f.cause.Error(), withCause(f.cause))
	case f.status == 0:
		return newGenericError("HTTP request failed: "+f.cause.Error(), withCause(f.cause))
	}
	message, code, details := parseErrorBody(f.body)
	if message == "" {
		message = http.StatusText(f.status)
	}
	opts := []errorOption{withCode(code), withDetails(details)}
	if f.status == http.StatusTooManyRequests {
		opts = append(opts, withRetryAfter(parseRetryAfter(f.header.Get("Retry-After"), time.Now())))
	}
	return newStatusError(f.status, message, opts...)
}

// parseErrorBody extracts a friendly message from a JSON error body and falls
// back to the raw text.
func parseErrorBody(body []byte) (message, code string, details map[string]any) {
	text := strings.TrimSpace(string(body))
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return text, "", nil
	}
	if m, ok := payload["message"].(string); ok && m != "" {
		message = m
	} else {
		message = text
	}
	for _, key := range []string{"code", "error_code"} {
		if c, ok := payload[key].(string); ok && c != "" {
			code = c
			break
		}
	}
	return message, code, payload
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func sanitizeHeaders(headers map[string]string) map[string]string {
	sanitized := make(map[string]string, len(headers))
	for k, v := range headers {
		if strings.EqualFold(k, "Authorization") {
			continue
		}
		sanitized[k] = v
	}
	return sanitized
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// restyLogger forwards resty diagnostics to slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
