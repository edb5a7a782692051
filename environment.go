package sepay

import (
	"fmt"
	"strings"
)

// Environment selects the gateway deployment a [Client] talks to.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

var (
	apiBaseURLs = map[Environment]string{
		Sandbox:    "https://pgapi-sandbox.sepay.vn",
		Production: "https://pgapi.sepay.vn",
	}
	checkoutBaseURLs = map[Environment]string{
		Sandbox:    "https://pay-sandbox.sepay.vn",
		Production: "https://pay.sepay.vn",
	}
)

// Environments lists the supported environments.
func Environments() []Environment {
	return []Environment{Sandbox, Production}
}

// ParseEnvironment converts a configuration value into an [Environment].
func ParseEnvironment(value string) (Environment, error) {
	env := Environment(strings.ToLower(strings.TrimSpace(value)))
	if !env.Valid() {
		return "", fmt.Errorf("sepay: invalid environment %q, must be one of: %s, %s", value, Sandbox, Production)
	}
	return env, nil
}

// Valid reports whether e is a supported environment.
func (e Environment) Valid() bool {
	_, ok := apiBaseURLs[e]
	return ok
}

// APIBaseURL returns the gateway API root, falling back to sandbox.
func (e Environment) APIBaseURL() string {
	if u, ok := apiBaseURLs[e]; ok {
		return u
	}
	return apiBaseURLs[Sandbox]
}

// CheckoutBaseURL returns the hosted checkout root, falling back to sandbox.
func (e Environment) CheckoutBaseURL() string {
	if u, ok := checkoutBaseURLs[e]; ok {
		return u
	}
	return checkoutBaseURLs[Sandbox]
}

// CheckoutURL returns the form action for hosted checkout.
func (e Environment) CheckoutURL() string {
	return checkoutInitURL(e.CheckoutBaseURL())
}

func checkoutInitURL(base string) string {
	return strings.TrimRight(base, "/") + "/v1/checkout/init"
}
