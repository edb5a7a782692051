// Package sepay is a Go client for the SePay payment gateway.
//
// A [Client] holds the merchant [Credential] and an immutable configuration.
// It exposes two resource handles that are built eagerly and are safe for
// concurrent use:
//
// # Checkout
//
// [CheckoutService] turns a [CheckoutRequest] into the signed field set the
// hosted checkout page expects. The signature is an HMAC-SHA256 over a fixed,
// canonical subset of fields (see package [github.com/sepay/sepay-go/signature]),
// so the same request always produces the same signature regardless of the
// order fields were set in. Use [CheckoutService.FormHTML] to render an
// auto-postable form and [CheckoutService.VerifyRequest] to check signed
// fields that come back to your site.
//
// # Orders
//
// [OrderService] lists, retrieves, voids and cancels orders through the
// gateway API. Calls go through [Transport], which authenticates with HTTP
// Basic credentials, retries connection failures, 5xx and 429 responses with a
// fixed delay, and classifies terminal failures into an [Error] with a [Kind].
//
//	client, err := sepay.NewClient("MERCHANT_ID", "SECRET_KEY",
//		sepay.WithEnvironment(sepay.Production),
//		sepay.WithRetryAttempts(5),
//	)
//	if err != nil {
//		return err
//	}
//	fields, err := client.Checkout.BuildSignedFields(sepay.CheckoutRequest{
//		Operation:          sepay.OperationPurchase,
//		Currency:           sepay.CurrencyVND,
//		OrderAmount:        100000,
//		OrderInvoiceNumber: "INV-1001",
//		OrderDescription:   "Order #1001",
//	})
package sepay
