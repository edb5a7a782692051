package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sepay/sepay-go/signature"
)

// errSignatureMismatch is returned by verify so the process exits non-zero.
var errSignatureMismatch = errors.New("signature mismatch")

func newSignCommand(opts *globalOptions) *cobra.Command {
	var (
		pairs     []string
		showInput bool
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a set of checkout fields",
		Example: `  sepay sign -f merchant=M1 -f operation=PURCHASE -f order_amount=100000 \
    -f currency=VND -f order_invoice_number=INV1 -f order_description=Tea`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := parseFields(pairs)
			if err != nil {
				return err
			}
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			for name := range fields {
				if !signature.IsSigned(name) {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: field %q is not covered by the signature\n", name)
				}
			}
			if showInput {
				fmt.Fprintln(cmd.OutOrStdout(), signature.SigningString(fields))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), client.Checkout.Sign(fields))
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&pairs, "field", "f", nil, "Field as name=value, repeatable")
	cmd.Flags().BoolVar(&showInput, "show-input", false, "Print the signed string before the signature")
	return cmd
}

func newVerifyCommand(opts *globalOptions) *cobra.Command {
	var (
		pairs []string
		sig   string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a signature against a set of fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := parseFields(pairs)
			if err != nil {
				return err
			}
			client, err := opts.client(cmd)
			if err != nil {
				return err
			}
			if !client.Checkout.VerifySignature(fields, sig) {
				fmt.Fprintln(cmd.OutOrStdout(), "invalid")
				return errSignatureMismatch
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&pairs, "field", "f", nil, "Field as name=value, repeatable")
	cmd.Flags().StringVarP(&sig, "signature", "s", "", "Signature to check")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}
