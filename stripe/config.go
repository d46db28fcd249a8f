package stripe

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultCurrency is used when neither the request nor the configuration
	// provide a currency.
	DefaultCurrency = "jpy"
	// DefaultFrontendURL is the base URL of the frontend that hosts the
	// checkout success and cancel pages.
	DefaultFrontendURL = "http://localhost:3000"
)

// Config holds the Stripe configuration. It is built once at startup and
// shared read-only by every request.
type Config struct {
	SecretKey      string `json:"-"`
	PublishableKey string `json:"publishable_key"`
	Currency       string `json:"currency"`
	FrontendURL    string `json:"frontend_url"`
	// APIURL overrides the Stripe API base URL, e.g. to reach stripe-mock.
	APIURL string `json:"api_url,omitempty"`
}

// Validate checks the configuration and fills the defaults in place. It must
// be called before the configuration is shared.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe secret key is required")
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	c.Currency = strings.ToLower(c.Currency)
	if !isCurrencyCode(c.Currency) {
		return fmt.Errorf("invalid currency code %q", c.Currency)
	}
	if c.FrontendURL == "" {
		c.FrontendURL = DefaultFrontendURL
	}
	if _, err := url.ParseRequestURI(c.FrontendURL); err != nil {
		return fmt.Errorf("invalid frontend URL %q: %w", c.FrontendURL, err)
	}
	c.FrontendURL = strings.TrimRight(c.FrontendURL, "/")
	if c.APIURL != "" {
		if _, err := url.ParseRequestURI(c.APIURL); err != nil {
			return fmt.Errorf("invalid stripe API URL %q: %w", c.APIURL, err)
		}
	}
	return nil
}

// SuccessURL returns the checkout success redirect. Stripe replaces the
// {CHECKOUT_SESSION_ID} template with the session id.
func (c *Config) SuccessURL() string {
	return c.FrontendURL + "/success?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL returns the checkout cancel redirect.
func (c *Config) CancelURL() string {
	return c.FrontendURL + "/"
}

// String implements fmt.Stringer without leaking the keys.
func (c Config) String() string {
	return fmt.Sprintf("stripe.Config{SecretKey:%s PublishableKey:%s Currency:%s FrontendURL:%s APIURL:%s}",
		redact(c.SecretKey), redact(c.PublishableKey), c.Currency, c.FrontendURL, c.APIURL)
}

// redact keeps the key prefix (sk_test_, pk_live_...) so the mode is still
// visible in logs.
func redact(key string) string {
	if key == "" {
		return ""
	}
	if i := strings.LastIndex(key, "_"); i > 0 && i < len(key)-1 {
		return key[:i+1] + "***"
	}
	return "***"
}

// isCurrencyCode reports whether s is a three letter ISO 4217 style code.
func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
