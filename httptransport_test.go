package sepay

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/sepay/sepay-go/sepaytest"
)

const ordersPath = "/v1/order"

func newGatewayClient(t *testing.T, opts ...Option) (*Client, *sepaytest.Server) {
	t.Helper()

	srv := sepaytest.NewServer(t, "M1", "k")
	opts = append([]Option{WithAPIBaseURL(srv.URL), withSleep(noSleep)}, opts...)
	return newTestClient(t, "M1", "k", opts...), srv
}

func TestTransportRetryClassification(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		replies      []sepaytest.Reply
		wantKind     Kind
		wantStatus   int
		wantMessage  string
		wantRequests int
	}{
		"server error is retried until attempts run out": {
			replies: []sepaytest.Reply{
				{Status: http.StatusInternalServerError, Body: map[string]any{"message": "boom"}},
				{Status: http.StatusBadGateway, Body: map[string]any{"message": "boom"}},
				{Status: http.StatusServiceUnavailable, Body: map[string]any{"message": "still down"}},
			},
			wantKind:     KindServer,
			wantStatus:   http.StatusServiceUnavailable,
			wantMessage:  "still down",
			wantRequests: 3,
		},
		"rate limit is retried until attempts run out": {
			replies: []sepaytest.Reply{
				{Status: http.StatusTooManyRequests},
				{Status: http.StatusTooManyRequests},
				{Status: http.StatusTooManyRequests, Body: map[string]any{"message": "slow down"}},
			},
			wantKind:     KindRateLimit,
			wantStatus:   http.StatusTooManyRequests,
			wantMessage:  "slow down",
			wantRequests: 3,
		},
		"bad request fails on first attempt": {
			replies: []sepaytest.Reply{
				{Status: http.StatusBadRequest, Body: map[string]any{"message": "per_page is invalid"}},
			},
			wantKind:     KindValidation,
			wantStatus:   http.StatusBadRequest,
			wantMessage:  "per_page is invalid",
			wantRequests: 1,
		},
		"unauthorized fails on first attempt": {
			replies: []sepaytest.Reply{
				{Status: http.StatusUnauthorized, Body: map[string]any{"message": "nope"}},
			},
			wantKind:     KindAuthentication,
			wantStatus:   http.StatusUnauthorized,
			wantMessage:  "nope",
			wantRequests: 1,
		},
		"other client errors are generic": {
			replies: []sepaytest.Reply{
				{Status: http.StatusForbidden, Body: "forbidden here"},
			},
			wantKind:     KindGeneric,
			wantStatus:   http.StatusForbidden,
			wantMessage:  "forbidden here",
			wantRequests: 1,
		},
		"empty error body falls back to status text": {
			replies: []sepaytest.Reply{
				{Status: http.StatusInternalServerError},
				{Status: http.StatusInternalServerError},
				{Status: http.StatusInternalServerError},
			},
			wantKind:     KindServer,
			wantStatus:   http.StatusInternalServerError,
			wantMessage:  "Internal Server Error",
			wantRequests: 3,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			client, srv := newGatewayClient(t)
			srv.Enqueue(http.MethodGet, ordersPath, tc.replies...)

			resp, err := client.Orders.List(context.Background(), OrderListParams{})
			if err == nil {
				t.Fatalf("expected error, got response %s", resp.Data)
			}
			apiErr := requireKind(t, err, tc.wantKind)
			if apiErr.StatusCode() != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, apiErr.StatusCode())
			}
			if apiErr.Message != tc.wantMessage {
				t.Fatalf("expected message %q got %q", tc.wantMessage, apiErr.Message)
			}
			if got := srv.RequestCount(http.MethodGet, ordersPath); got != tc.wantRequests {
				t.Fatalf("expected %d requests, got %d", tc.wantRequests, got)
			}
		})
	}
}

func TestTransportRecoversAfterTransientFailures(t *testing.T) {
	t.Parallel()

	client, srv := newGatewayClient(t)
	srv.Enqueue(http.MethodGet, ordersPath,
		sepaytest.Reply{Status: http.StatusInternalServerError},
		sepaytest.Reply{Status: http.StatusTooManyRequests},
	)

	resp, err := client.Orders.List(context.Background(), OrderListParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Attempts != 3 {
		t.Fatalf("expected success on third attempt, got %d", resp.Attempts)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func TestTransportSleepsFixedDelayBetweenAttempts(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		delays []time.Duration
	)
	record := func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		delays = append(delays, d)
		return nil
	}
	client, srv := newGatewayClient(t, WithRetryAttempts(4), WithRetryDelay(250*time.Millisecond), withSleep(record))
	for range 4 {
		srv.Enqueue(http.MethodGet, ordersPath, sepaytest.Reply{Status: http.StatusBadGateway})
	}

	_, err := client.Orders.List(context.Background(), OrderListParams{})
	requireKind(t, err, KindServer)

	mu.Lock()
	defer mu.Unlock()
	if len(delays) != 3 {
		t.Fatalf("expected 3 pauses for 4 attempts, got %d", len(delays))
	}
	for _, d := range delays {
		if d != 250*time.Millisecond {
			t.Fatalf("expected fixed delay, got %s", d)
		}
	}
}

func TestTransportSingleAttemptNeverSleeps(t *testing.T) {
	t.Parallel()

	slept := false
	client, srv := newGatewayClient(t, WithRetryAttempts(1), withSleep(func(context.Context, time.Duration) error {
		slept = true
		return nil
	}))
	srv.Enqueue(http.MethodGet, ordersPath, sepaytest.Reply{Status: http.StatusInternalServerError})

	_, err := client.Orders.List(context.Background(), OrderListParams{})
	requireKind(t, err, KindServer)
	if slept {
		t.Fatalf("did not expect a pause")
	}
	if got := srv.RequestCount(http.MethodGet, ordersPath); got != 1 {
		t.Fatalf("expected 1 request, got %d", got)
	}
}

func TestTransportRateLimitCarriesRetryAfterAndCode(t *testing.T) {
	t.Parallel()

	client, srv := newGatewayClient(t, WithRetryAttempts(1))
	srv.Enqueue(http.MethodGet, ordersPath, sepaytest.Reply{
		Status: http.StatusTooManyRequests,
		Body:   map[string]any{"message": "slow down", "code": "RATE_LIMITED"},
		Header: http.Header{"Retry-After": []string{"7"}},
	})

	_, err := client.Orders.List(context.Background(), OrderListParams{})
	apiErr := requireKind(t, err, KindRateLimit)
	if apiErr.RetryAfter() != 7*time.Second {
		t.Fatalf("unexpected retry after %s", apiErr.RetryAfter())
	}
	if apiErr.Code != "RATE_LIMITED" {
		t.Fatalf("unexpected code %q", apiErr.Code)
	}
	if apiErr.Details["message"] != "slow down" {
		t.Fatalf("expected payload in details, got %v", apiErr.Details)
	}
	if !apiErr.Temporary() {
		t.Fatalf("rate limit should be temporary")
	}
}

func TestTransportConnectionFailureIsRetried(t *testing.T) {
	t.Parallel()

	srv := sepaytest.NewServer(t, "M1", "k")
	target := srv.URL
	srv.Close()

	var (
		mu     sync.Mutex
		pauses int
	)
	client := newTestClient(t, "M1", "k", WithAPIBaseURL(target), withSleep(func(context.Context, time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		pauses++
		return nil
	}))

	_, err := client.Orders.List(context.Background(), OrderListParams{})
	apiErr := requireKind(t, err, KindGeneric)
	if apiErr.StatusCode() != 0 {
		t.Fatalf("expected no status, got %d", apiErr.StatusCode())
	}
	if apiErr.Unwrap() == nil {
		t.Fatalf("expected transport cause")
	}
	mu.Lock()
	defer mu.Unlock()
	if pauses != DefaultRetryAttempts-1 {
		t.Fatalf("expected %d pauses, got %d", DefaultRetryAttempts-1, pauses)
	}
}

func TestTransportInvalidJSONIsNotRetried(t *testing.T) {
	t.Parallel()

	client, srv := newGatewayClient(t)
	srv.Enqueue(http.MethodGet, ordersPath, sepaytest.Reply{Status: http.StatusOK, Body: "<html>oops</html>"})

	_, err := client.Orders.List(context.Background(), OrderListParams{})
	apiErr := requireKind(t, err, KindGeneric)
	if apiErr.StatusCode() != http.StatusOK {
		t.Fatalf("expected status 200 on decode error, got %d", apiErr.StatusCode())
	}
	if !strings.Contains(apiErr.Message, "invalid JSON") {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
	if got := srv.RequestCount(http.MethodGet, ordersPath); got != 1 {
		t.Fatalf("expected a single request, got %d", got)
	}
}

func TestTransportSendsHeaders(t *testing.T) {
	t.Parallel()

	client, srv := newGatewayClient(t,
		WithUserAgent("shop/2.0"),
		WithRequestHook(func(_ *resty.Client, r *resty.Request) error {
			r.SetHeader("X-Shop", "tea")
			return nil
		}),
	)
	ctx := WithRequestContext(context.Background(), &RequestContext{RequestID: "req-42", IdempotencyKey: "idem-1"})

	if _, err := client.Orders.List(ctx, OrderListParams{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	requests := srv.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	h := requests[0].Header
	want := map[string]string{
		"Authorization":   "Basic TTE6aw==",
		"Accept":          "application/json",
		"User-Agent":      "shop/2.0",
		RequestIDHeader:   "req-42",
		"Idempotency-Key": "idem-1",
		"X-Shop":          "tea",
	}
	for name, value := range want {
		if got := h.Get(name); got != value {
			t.Fatalf("header %s: expected %q got %q", name, value, got)
		}
	}
}

func TestTransportReusesRequestIDAcrossAttempts(t *testing.T) {
	t.Parallel()

	client, srv := newGatewayClient(t)
	srv.Enqueue(http.MethodGet, ordersPath, sepaytest.Reply{Status: http.StatusServiceUnavailable})

	resp, err := client.Orders.List(context.Background(), OrderListParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requests := srv.Requests()
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}
	first := requests[0].Header.Get(RequestIDHeader)
	if first == "" || first != requests[1].Header.Get(RequestIDHeader) || first != resp.RequestID {
		t.Fatalf("request id not stable: %q %q %q", first, requests[1].Header.Get(RequestIDHeader), resp.RequestID)
	}
}

func TestTransportEndpoint(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "M1", "k", WithAPIBaseURL("https://gateway.example/"))
	tests := map[string]string{
		"order":          "https://gateway.example/v1/order",
		"/order/cancel":  "https://gateway.example/v1/order/cancel",
		"order/detail/1": "https://gateway.example/v1/order/detail/1",
	}
	for path, want := range tests {
		if got := client.Transport().endpoint(path); got != want {
			t.Fatalf("%s: expected %s got %s", path, want, got)
		}
	}
}

func TestTransportPostsCanonicalJSON(t *testing.T) {
	t.Parallel()

	client, srv := newGatewayClient(t)
	srv.Enqueue(http.MethodPost, "/v1/custom", sepaytest.Reply{Status: http.StatusOK, Body: map[string]any{"ok": true}})

	resp, err := client.Transport().Post(context.Background(), "custom", map[string]string{"zeta": "z", "alpha": "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	requests := srv.Requests()
	if got := string(requests[0].Body); got != `{"alpha":"a","zeta":"z"}` {
		t.Fatalf("unexpected body %s", got)
	}
	if ct := requests[0].Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("unexpected content type %q", ct)
	}
	out, err := resp.Map()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["ok"] != true {
		t.Fatalf("unexpected response %v", out)
	}
}

func TestTransportHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	client, srv := newGatewayClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Orders.List(ctx, OrderListParams{})
	requireKind(t, err, KindGeneric)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if got := srv.RequestCount(http.MethodGet, ordersPath); got != 0 {
		t.Fatalf("expected no requests, got %d", got)
	}
}

func TestTransportCancelDuringPause(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client, srv := newGatewayClient(t, withSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return sleepContext(ctx, time.Hour)
	}))
	srv.Enqueue(http.MethodGet, ordersPath, sepaytest.Reply{Status: http.StatusInternalServerError})

	_, err := client.Orders.List(ctx, OrderListParams{})
	requireKind(t, err, KindGeneric)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
	if got := srv.RequestCount(http.MethodGet, ordersPath); got != 1 {
		t.Fatalf("expected 1 request, got %d", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := map[string]struct {
		value string
		want  time.Duration
	}{
		"empty":       {value: "", want: 0},
		"seconds":     {value: "12", want: 12 * time.Second},
		"negative":    {value: "-1", want: 0},
		"http date":   {value: now.Add(30 * time.Second).Format(http.TimeFormat), want: 30 * time.Second},
		"past date":   {value: now.Add(-time.Minute).Format(http.TimeFormat), want: 0},
		"unparseable": {value: "soon", want: 0},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := parseRetryAfter(tc.value, now); got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}

func TestParseErrorBody(t *testing.T) {
	t.Parallel()

	message, code, details := parseErrorBody([]byte(`{"message":"bad","error_code":"E1","errors":{"a":"b"}}`))
	if message != "bad" || code != "E1" || details["errors"] == nil {
		t.Fatalf("unexpected parse %q %q %v", message, code, details)
	}

	message, code, details = parseErrorBody([]byte("  plain failure \n"))
	if message != "plain failure" || code != "" || details != nil {
		t.Fatalf("unexpected parse %q %q %v", message, code, details)
	}

	message, _, _ = parseErrorBody([]byte(`{"error":"x"}`))
	if message != `{"error":"x"}` {
		t.Fatalf("expected raw fallback, got %q", message)
	}
}

func TestResponseDecodeError(t *testing.T) {
	t.Parallel()

	resp := &Response{StatusCode: http.StatusOK, Data: []byte(`[1,2]`)}
	if _, err := resp.Map(); !IsKind(err, KindGeneric) {
		t.Fatalf("expected generic decode error, got %v", err)
	}
	var nilResp *Response
	if err := nilResp.Decode(&struct{}{}); err == nil {
		t.Fatalf("expected error for nil response")
	}
}

func TestTransportHookRefusalIsNotRetried(t *testing.T) {
	t.Parallel()

	refusal := errors.New("hook refused")
	var (
		mu     sync.Mutex
		calls  int
		pauses int
	)
	client, srv := newGatewayClient(t,
		WithRequestHook(func(*resty.Client, *resty.Request) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return refusal
		}),
		withSleep(func(context.Context, time.Duration) error {
			mu.Lock()
			defer mu.Unlock()
			pauses++
			return nil
		}),
	)

	_, err := client.Orders.List(context.Background(), OrderListParams{})
	apiErr := requireKind(t, err, KindGeneric)
	if !errors.Is(err, refusal) {
		t.Fatalf("expected hook error in chain, got %v", err)
	}
	if !strings.Contains(apiErr.Message, "request not sent") {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 || pauses != 0 {
		t.Fatalf("expected a single attempt without pauses, got %d calls and %d pauses", calls, pauses)
	}
	if got := len(srv.Requests()); got != 0 {
		t.Fatalf("expected nothing sent, got %d requests", got)
	}
}

func TestTransportLogsOmitAuthorization(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client, srv := newGatewayClient(t, WithLogger(logger))
	srv.Enqueue(http.MethodGet, ordersPath, sepaytest.Reply{Status: http.StatusInternalServerError, Body: map[string]any{"message": "boom"}})

	if _, err := client.Orders.List(context.Background(), OrderListParams{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logs := buf.String()
	for _, want := range []string{"sepay api request", "sepay api response", "sepay api request failed", "User-Agent"} {
		if !strings.Contains(logs, want) {
			t.Fatalf("expected logs to contain %q:\n%s", want, logs)
		}
	}
	// base64("M1:k")
	for _, leaked := range []string{"TTE6aw==", "Authorization", "Basic "} {
		if strings.Contains(logs, leaked) {
			t.Fatalf("logs leak %q:\n%s", leaked, logs)
		}
	}
}

func TestSanitizeHeaders(t *testing.T) {
	t.Parallel()

	got := sanitizeHeaders(map[string]string{
		"Authorization": "Basic TTE6aw==",
		"authorization": "Basic TTE6aw==",
		"User-Agent":    "shop/2.0",
	})
	if len(got) != 1 || got["User-Agent"] != "shop/2.0" {
		t.Fatalf("unexpected sanitized headers %v", got)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		n    int
		want string
	}{
		"short":            {in: "abc", n: 5, want: "abc"},
		"ascii":            {in: "abcdef", n: 3, want: "abc..."},
		"inside a rune":    {in: "ab\u00e9cd", n: 3, want: "ab..."},
		"on rune boundary": {in: "ab\u00e9cd", n: 4, want: "ab\u00e9..."},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := truncate(tc.in, tc.n)
			if got != tc.want {
				t.Fatalf("expected %q got %q", tc.want, got)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("invalid UTF-8 in %q", got)
			}
		})
	}
}

func TestTransportPostEncodesNumbersCanonically(t *testing.T) {
	t.Parallel()

	client, srv := newGatewayClient(t)
	srv.Enqueue(http.MethodPost, "/v1/custom", sepaytest.Reply{Status: http.StatusOK, Body: map[string]any{"ok": true}})

	body := map[string]any{"order_amount": 100000, "rate": 1.5}
	if _, err := client.Transport().Post(context.Background(), "custom", body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(srv.Requests()[0].Body); got != `{"order_amount":100000,"rate":1.5E0}` {
		t.Fatalf("unexpected body %s", got)
	}
}
