// Package config loads SePay client settings from a YAML file and SEPAY_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sepay/sepay-go"
)

// EnvPrefix prefixes every environment variable, e.g. SEPAY_SECRET_KEY.
const EnvPrefix = "SEPAY"

// Config mirrors the client configuration surface.
type Config struct {
	MerchantID      string `mapstructure:"merchant_id" yaml:"merchant_id"`
	SecretKey       string `mapstructure:"secret_key" yaml:"secret_key"`
	Environment     string `mapstructure:"environment" yaml:"environment"`
	APIBaseURL      string `mapstructure:"api_base_url" yaml:"api_base_url,omitempty"`
	CheckoutBaseURL string `mapstructure:"checkout_base_url" yaml:"checkout_base_url,omitempty"`
	// Per-attempt timeout in seconds.
	Timeout       int `mapstructure:"timeout" yaml:"timeout"`
	RetryAttempts int `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	// Pause between attempts in milliseconds.
	RetryDelay int    `mapstructure:"retry_delay" yaml:"retry_delay"`
	UserAgent  string `mapstructure:"user_agent" yaml:"user_agent"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns the SDK defaults.
func Default() *Config {
	return &Config{
		Environment:   string(sepay.Sandbox),
		Timeout:       int(sepay.DefaultTimeout / time.Second),
		RetryAttempts: sepay.DefaultRetryAttempts,
		RetryDelay:    int(sepay.DefaultRetryDelay / time.Millisecond),
		UserAgent:     sepay.DefaultUserAgent,
		LogLevel:      "info",
	}
}

// Load reads path (optional) and SEPAY_* variables on top of the defaults.
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	defaults := Default()
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("merchant_id", "")
	v.SetDefault("secret_key", "")
	v.SetDefault("environment", defaults.Environment)
	v.SetDefault("api_base_url", "")
	v.SetDefault("checkout_base_url", "")
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("retry_attempts", defaults.RetryAttempts)
	v.SetDefault("retry_delay", defaults.RetryDelay)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("log_level", defaults.LogLevel)

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		v.SetConfigFile(path)
		if !strings.Contains(path, ".") {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// Validate checks that the settings can build a client.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.MerchantID) == "" {
		errs = append(errs, errors.New("merchant_id is required"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret_key is required"))
	}
	if _, err := sepay.ParseEnvironment(c.Environment); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, errors.New("retry_attempts must be at least 1"))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, errors.New("retry_delay must not be negative"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Options translates the settings into client options.
func (c *Config) Options(logger *slog.Logger) ([]sepay.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	env, _ := sepay.ParseEnvironment(c.Environment)
	opts := []sepay.Option{
		sepay.WithEnvironment(env),
		sepay.WithTimeout(time.Duration(c.Timeout) * time.Second),
		sepay.WithRetryAttempts(c.RetryAttempts),
		sepay.WithRetryDelay(time.Duration(c.RetryDelay) * time.Millisecond),
		sepay.WithUserAgent(c.UserAgent),
		sepay.WithLogger(logger),
	}
	if c.APIBaseURL != "" {
		opts = append(opts, sepay.WithAPIBaseURL(c.APIBaseURL))
	}
	if c.CheckoutBaseURL != "" {
		opts = append(opts, sepay.WithCheckoutBaseURL(c.CheckoutBaseURL))
	}
	return opts, nil
}

// NewClient builds a client from the settings.
func (c *Config) NewClient(logger *slog.Logger) (*sepay.Client, error) {
	opts, err := c.Options(logger)
	if err != nil {
		return nil, err
	}
	return sepay.NewClient(c.MerchantID, c.SecretKey, opts...)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.SecretKey != "" {
		c.SecretKey = "[REDACTED]"
	}
	return c
}

// WriteYAML encodes cfg as YAML.
func WriteYAML(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: encode yaml: %w", err)
	}
	return enc.Close()
}
