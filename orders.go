package sepay

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

const ordersEndpoint = "order"

// OrderListParams defines parameters for OrderService.List.
type OrderListParams struct {
	// Page size.
	PerPage *int `json:"per_page,omitempty"`
	// Free text search over invoice numbers and descriptions.
	Q          *string `json:"q,omitempty"`
	CustomerID *string `json:"customer_id,omitempty"`
	// Example: CAPTURED
	OrderStatus   *string             `json:"order_status,omitempty"`
	CreatedAt     *openapi_types.Date `json:"created_at,omitempty"`
	FromCreatedAt *openapi_types.Date `json:"from_created_at,omitempty"`
	ToCreatedAt   *openapi_types.Date `json:"to_created_at,omitempty"`
	// Example: created_at:desc
	Sort *string `json:"sort,omitempty"`
}

// Query encodes the set filters as form-style query parameters.
func (p OrderListParams) Query() (url.Values, error) {
	queryValues := url.Values{}
	params := []struct {
		name  string
		set   bool
		value func() any
	}{
		{"per_page", p.PerPage != nil, func() any { return *p.PerPage }},
		{"q", p.Q != nil, func() any { return *p.Q }},
		{"customer_id", p.CustomerID != nil, func() any { return *p.CustomerID }},
		{"order_status", p.OrderStatus != nil, func() any { return *p.OrderStatus }},
		{"created_at", p.CreatedAt != nil, func() any { return *p.CreatedAt }},
		{"from_created_at", p.FromCreatedAt != nil, func() any { return *p.FromCreatedAt }},
		{"to_created_at", p.ToCreatedAt != nil, func() any { return *p.ToCreatedAt }},
		{"sort", p.Sort != nil, func() any { return *p.Sort }},
	}
	for _, param := range params {
		if !param.set {
			continue
		}
		queryFrag, err := runtime.StyleParamWithLocation("form", true, param.name, runtime.ParamLocationQuery, param.value())
		if err != nil {
			return nil, err
		}
		parsed, err := url.ParseQuery(queryFrag)
		if err != nil {
			return nil, err
		}
		for k, v := range parsed {
			for _, v2 := range v {
				if v2 == "" {
					continue
				}
				queryValues.Add(k, v2)
			}
		}
	}
	return queryValues, nil
}

// OrderService wraps the order endpoints of the gateway API.
type OrderService struct {
	transport *Transport
	logger    *slog.Logger
}

// List returns orders matching params.
func (s *OrderService) List(ctx context.Context, params OrderListParams) (*Response, error) {
	query, err := params.Query()
	if err != nil {
		return nil, newValidationError("invalid order filters: "+err.Error(), withCause(err))
	}
	s.logger.InfoContext(ctx, "sepay api: list orders", slog.String("filters", query.Encode()))
	return s.transport.Get(ctx, ordersEndpoint, query)
}

// Retrieve fetches a single order by its gateway ID.
func (s *OrderService) Retrieve(ctx context.Context, orderID string) (*Response, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, newValidationError("order id is required", withDetails(map[string]any{"field": "order_id"}))
	}
	s.logger.InfoContext(ctx, "sepay api: retrieve order", slog.String("order_id", orderID))
	return s.transport.Get(ctx, ordersEndpoint+"/detail/"+url.PathEscape(orderID), nil)
}

// VoidTransaction voids the payment of the order with the given invoice
// number.
func (s *OrderService) VoidTransaction(ctx context.Context, orderInvoiceNumber string) (*Response, error) {
	return s.postInvoice(ctx, "void transaction", "voidTransaction", orderInvoiceNumber)
}

// Cancel cancels the order with the given invoice number.
func (s *OrderService) Cancel(ctx context.Context, orderInvoiceNumber string) (*Response, error) {
	return s.postInvoice(ctx, "cancel order", "cancel", orderInvoiceNumber)
}

type invoiceRequest struct {
	OrderInvoiceNumber string `json:"order_invoice_number"`
}

func (s *OrderService) postInvoice(ctx context.Context, operation, action, orderInvoiceNumber string) (*Response, error) {
	orderInvoiceNumber = strings.TrimSpace(orderInvoiceNumber)
	if orderInvoiceNumber == "" {
		return nil, newValidationError("order invoice number is required", withDetails(map[string]any{"field": FieldOrderInvoiceNumber}))
	}
	s.logger.InfoContext(ctx, "sepay api: "+operation, slog.String(FieldOrderInvoiceNumber, orderInvoiceNumber))
	return s.transport.Post(ctx, ordersEndpoint+"/"+action, invoiceRequest{OrderInvoiceNumber: orderInvoiceNumber})
}
