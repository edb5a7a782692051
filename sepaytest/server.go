// Package sepaytest provides an in-memory stand-in for the SePay gateway for
// use in tests. It serves the order API under /v1/order and the hosted
// checkout endpoint under /v1/checkout/init, checks Basic-Auth credentials and
// checkout signatures, records every request, and can be scripted to reply
// with failures.
package sepaytest

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sepay/sepay-go/signature"
)

// Order is the fake gateway's view of an order.
type Order struct {
	ID                 string `json:"id"`
	OrderInvoiceNumber string `json:"order_invoice_number"`
	OrderAmount        int64  `json:"order_amount"`
	OrderStatus        string `json:"order_status"`
	OrderDescription   string `json:"order_description,omitempty"`
	CustomerID         string `json:"customer_id,omitempty"`
	CreatedAt          string `json:"created_at"`
}

// Order statuses the fake gateway moves orders through.
const (
	StatusCaptured  = "CAPTURED"
	StatusVoided    = "VOIDED"
	StatusCancelled = "CANCELLED"
)

// Reply is a scripted response.
type Reply struct {
	Status int
	// Body is JSON encoded unless it is a string, which is written verbatim.
	Body   any
	Header http.Header
}

// RecordedRequest captures what the gateway received.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Server is a fake gateway. The zero value is not usable; call [NewServer].
type Server struct {
	*httptest.Server

	merchantID string
	secretKey  string

	mu       sync.Mutex
	scripts  map[string][]Reply
	requests []RecordedRequest
	orders   map[string]*Order
}

// NewServer starts a fake gateway that accepts merchantID and secretKey. It
// is closed when the test finishes.
func NewServer(t testing.TB, merchantID, secretKey string) *Server {
	t.Helper()

	s := &Server{
		merchantID: merchantID,
		secretKey:  secretKey,
		scripts:    make(map[string][]Reply),
		orders:     make(map[string]*Order),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.scripted)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/checkout/init", s.checkoutInit)
		r.Group(func(r chi.Router) {
			r.Use(s.basicAuth)
			r.Route("/order", func(r chi.Router) {
				r.Get("/", s.listOrders)
				r.Get("/detail/{orderID}", s.getOrder)
				r.Post("/voidTransaction", s.transition(StatusVoided))
				r.Post("/cancel", s.transition(StatusCancelled))
			})
		})
	})
	return r
}

// Enqueue scripts replies for method and path (for example "GET",
// "/v1/order"). Each matching request consumes one reply; once they are used
// up the regular handlers answer again.
func (s *Server) Enqueue(method, path string, replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.scripts[key] = append(s.scripts[key], replies...)
}

// AddOrder seeds an order.
func (s *Server) AddOrder(order Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.OrderStatus == "" {
		order.OrderStatus = StatusCaptured
	}
	o := order
	s.orders[order.ID] = &o
}

// Order returns a copy of the stored order.
func (s *Server) Order(id string) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Requests returns every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount counts received requests for method and path.
func (s *Server) RequestCount(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) scripted(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		queue := s.scripts[key]
		var reply *Reply
		if len(queue) > 0 {
			reply = &queue[0]
			s.scripts[key] = queue[1:]
		}
		s.mu.Unlock()
		if reply == nil {
			next.ServeHTTP(w, r)
			return
		}
		writeReply(w, *reply)
	})
}

func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.merchantID)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(s.secretKey)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid merchant credentials"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	perPage := 20
	if raw := q.Get("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "per_page must be a positive integer"})
			return
		}
		perPage = n
	}

	s.mu.Lock()
	matched := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		if status := q.Get("order_status"); status != "" && o.OrderStatus != status {
			continue
		}
		if customer := q.Get("customer_id"); customer != "" && o.CustomerID != customer {
			continue
		}
		if term := q.Get("q"); term != "" && !strings.Contains(o.OrderInvoiceNumber, term) && !strings.Contains(o.OrderDescription, term) {
			continue
		}
		if from := q.Get("from_created_at"); from != "" && o.CreatedAt < from {
			continue
		}
		if to := q.Get("to_created_at"); to != "" && o.CreatedAt > to {
			continue
		}
		matched = append(matched, *o)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)
	if len(matched) > perPage {
		matched = matched[:perPage]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": matched,
		"meta": map[string]any{"per_page": perPage, "total": total},
	})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	order, ok := s.Order(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Order not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": order})
}

func (s *Server) transition(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrderInvoiceNumber string `json:"order_invoice_number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OrderInvoiceNumber == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"message": "order_invoice_number is required",
				"errors":  map[string]any{"order_invoice_number": []string{"required"}},
			})
			return
		}
		s.mu.Lock()
		var found *Order
		for _, o := range s.orders {
			if o.OrderInvoiceNumber == body.OrderInvoiceNumber {
				found = o
				break
			}
		}
		if found != nil {
			found.OrderStatus = status
		}
		s.mu.Unlock()
		if found == nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Order not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "success", "data": found})
	}
}

func (s *Server) checkoutInit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	fields := make(map[string]string, len(r.PostForm))
	for name := range r.PostForm {
		if name == "signature" {
			continue
		}
		fields[name] = r.PostForm.Get(name)
	}
	if fields["merchant"] != s.merchantID || !signature.Verify(s.secretKey, fields, r.PostForm.Get("signature")) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid signature"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "checkout accepted", "order_invoice_number": fields["order_invoice_number"]})
}

func writeReply(w http.ResponseWriter, reply Reply) {
	for k, values := range reply.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	if raw, ok := reply.Body.(string); ok {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, raw)
		return
	}
	writeJSON(w, status, reply.Body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
