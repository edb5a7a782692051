package cli

import (
	"context"
	"fmt"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/spf13/cobra"

	"github.com/sepay/sepay-go"
)

func newOrdersCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Query and manage gateway orders",
	}
	cmd.AddCommand(
		newOrdersListCommand(opts),
		newOrdersGetCommand(opts),
		newOrderInvoiceCommand(opts, "void", "Void the payment of an order", (*sepay.OrderService).VoidTransaction),
		newOrderInvoiceCommand(opts, "cancel", "Cancel an order", (*sepay.OrderService).Cancel),
	)
	return cmd
}

func newOrdersListCommand(opts *globalOptions) *cobra.Command {
	var (
		perPage                        int
		query, customer, status, sort  string
		createdAt, fromDate, untilDate string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := sepay.OrderListParams{}
			flags := cmd.Flags()
			if flags.Changed("per-page") {
				params.PerPage = &perPage
			}
			for flag, target := range map[string]**string{
				"q":        &params.Q,
				"customer": &params.CustomerID,
				"status":   &params.OrderStatus,
				"sort":     &params.Sort,
			} {
				if !flags.Changed(flag) {
					continue
				}
				value, _ := flags.GetString(flag)
				*target = &value
			}
			for flag, target := range map[string]**openapi_types.Date{
				"created-at": &params.CreatedAt,
				"from":       &params.FromCreatedAt,
				"to":         &params.ToCreatedAt,
			} {
				if !flags.Changed(flag) {
					continue
				}
				raw, _ := flags.GetString(flag)
				day, err := time.Parse(time.DateOnly, raw)
				if err != nil {
					return fmt.Errorf("--%s: expected YYYY-MM-DD: %w", flag, err)
				}
				*target = &openapi_types.Date{Time: day}
			}

			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			resp, err := client.Orders.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Data)
		},
	}
	cmd.Flags().IntVar(&perPage, "per-page", 20, "Page size")
	cmd.Flags().StringVar(&query, "q", "", "Free text search")
	cmd.Flags().StringVar(&customer, "customer", "", "Customer identifier")
	cmd.Flags().StringVar(&status, "status", "", "Order status, e.g. CAPTURED")
	cmd.Flags().StringVar(&sort, "sort", "", "Sort expression, e.g. created_at:desc")
	cmd.Flags().StringVar(&createdAt, "created-at", "", "Exact creation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&fromDate, "from", "", "Created on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&untilDate, "to", "", "Created on or before (YYYY-MM-DD)")
	return cmd
}

func newOrdersGetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ORDER_ID",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			resp, err := client.Orders.Retrieve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Data)
		},
	}
}

type invoiceCall func(*sepay.OrderService, context.Context, string) (*sepay.Response, error)

func newOrderInvoiceCommand(opts *globalOptions, use, short string, call invoiceCall) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ORDER_INVOICE_NUMBER",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			resp, err := call(client.Orders, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp.Data)
		},
	}
}
