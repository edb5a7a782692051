// Package cli implements the sepay command line tool.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sepay/sepay-go"
	"github.com/sepay/sepay-go/config"
)

type globalOptions struct {
	configPath  string
	environment string
	apiBaseURL  string
	merchantID  string
	secretKey   string
	verbose     bool
}

// NewRootCommand builds the command tree writing results to out and logs to
// errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "sepay",
		Short: "SePay payment gateway tool",
		Long: `sepay signs hosted checkout forms and manages orders on the SePay payment gateway.

Credentials come from --config, or SEPAY_MERCHANT_ID and SEPAY_SECRET_KEY.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.environment, "environment", "", "Override the environment (sandbox or production)")
	root.PersistentFlags().StringVar(&opts.apiBaseURL, "api-base-url", "", "Override the API base URL")
	root.PersistentFlags().StringVar(&opts.merchantID, "merchant-id", "", "Override the merchant id")
	root.PersistentFlags().StringVar(&opts.secretKey, "secret-key", "", "Override the secret key")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logs")

	root.AddCommand(
		newSignCommand(opts),
		newVerifyCommand(opts),
		newCheckoutCommand(opts),
		newOrdersCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// Execute runs the tool against the process streams.
func Execute(version string) error {
	root := NewRootCommand(os.Stdout, os.Stderr)
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.environment != "" {
		cfg.Environment = o.environment
	}
	if o.apiBaseURL != "" {
		cfg.APIBaseURL = o.apiBaseURL
	}
	if o.merchantID != "" {
		cfg.MerchantID = o.merchantID
	}
	if o.secretKey != "" {
		cfg.SecretKey = o.secretKey
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func (o *globalOptions) client(cmd *cobra.Command) (*sepay.Client, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return cfg.NewClient(logger)
}

// parseFields turns repeated name=value flags into a field set.
func parseFields(pairs []string) (map[string]string, error) {
	fields := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q, expected name=value", pair)
		}
		fields[name] = value
	}
	return fields, nil
}

func printJSON(w io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
