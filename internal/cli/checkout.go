package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sepay/sepay-go"
)

type checkoutFlags struct {
	operation     string
	amount        int64
	description   string
	invoice       string
	paymentMethod string
	customerID    string
	successURL    string
	errorURL      string
	cancelURL     string
	merchant      string
}

func (f *checkoutFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.operation, "operation", string(sepay.OperationPurchase), "PURCHASE or VERIFY")
	cmd.Flags().Int64Var(&f.amount, "amount", 0, "Order amount in VND")
	cmd.Flags().StringVar(&f.description, "description", "", "Order description")
	cmd.Flags().StringVar(&f.invoice, "invoice", "", "Order invoice number")
	cmd.Flags().StringVar(&f.paymentMethod, "payment-method", "", "CARD, BANK_TRANSFER or NAPAS_BANK_TRANSFER")
	cmd.Flags().StringVar(&f.customerID, "customer-id", "", "Customer identifier")
	cmd.Flags().StringVar(&f.successURL, "success-url", "", "Redirect after a successful payment")
	cmd.Flags().StringVar(&f.errorURL, "error-url", "", "Redirect after a failed payment")
	cmd.Flags().StringVar(&f.cancelURL, "cancel-url", "", "Redirect after the buyer cancels")
	cmd.Flags().StringVar(&f.merchant, "merchant", "", "Merchant override, defaults to the configured one")
}

func (f *checkoutFlags) request() sepay.CheckoutRequest {
	return sepay.CheckoutRequest{
		Merchant:           f.merchant,
		Currency:           sepay.CurrencyVND,
		OrderAmount:        f.amount,
		Operation:          sepay.Operation(f.operation),
		OrderDescription:   f.description,
		PaymentMethod:      sepay.PaymentMethod(f.paymentMethod),
		OrderInvoiceNumber: f.invoice,
		CustomerID:         f.customerID,
		SuccessURL:         f.successURL,
		ErrorURL:           f.errorURL,
		CancelURL:          f.cancelURL,
	}
}

func newCheckoutCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Build signed hosted checkout forms",
	}
	cmd.AddCommand(newCheckoutFieldsCommand(opts), newCheckoutFormCommand(opts))
	return cmd
}

func newCheckoutFieldsCommand(opts *globalOptions) *cobra.Command {
	flags := &checkoutFlags{}
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Print the signed form fields, one name=value per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			fields, err := client.Checkout.BuildSignedFields(flags.request())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "action=%s\n", client.Checkout.CheckoutURL())
			for _, name := range fields.Names() {
				fmt.Fprintf(out, "%s=%s\n", name, fields[name])
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newCheckoutFormCommand(opts *globalOptions) *cobra.Command {
	var (
		flags      = &checkoutFlags{}
		formID     string
		autoSubmit bool
	)
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Print the signed checkout form as HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			html, err := client.Checkout.FormHTML(flags.request(), sepay.FormOptions{ID: formID, NoSubmitButton: autoSubmit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, html)
			if autoSubmit {
				fmt.Fprintln(out, sepay.AutoSubmitScript(formID))
			}
			return nil
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&formID, "id", sepay.DefaultFormID, "Form element id")
	cmd.Flags().BoolVar(&autoSubmit, "auto-submit", false, "Drop the button and append a submit script")
	return cmd
}
