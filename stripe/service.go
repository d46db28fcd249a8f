// Package stripe provides the integration with the Stripe payment service:
// invoice issuance, checkout session creation and retrieval.
package stripe

import (
	"context"
	"fmt"

	"github.com/paydemo/backend/metrics"
)

// Operation names, used for metrics and logs.
const (
	opListCustomers   = "list_customers"
	opCreateCustomer  = "create_customer"
	opCreateInvoice   = "create_invoice"
	opCreateItem      = "create_invoice_item"
	opFinalizeInvoice = "finalize_invoice"
	opSendInvoice     = "send_invoice"
	opCreateSession   = "create_checkout_session"
	opGetSession      = "get_checkout_session"
)

// Service provides the business logic for the Stripe operations. It holds no
// mutable state, so a single instance serves all requests concurrently.
type Service struct {
	backend Backend
	config  *Config
	metrics *metrics.Metrics
}

// NewService creates a new Stripe service. The configuration must already be
// validated. A nil metrics is allowed.
func NewService(config *Config, backend Backend, m *metrics.Metrics) (*Service, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	return &Service{
		backend: backend,
		config:  config,
		metrics: m,
	}, nil
}

// PublishableKey returns the key the frontend uses to initialize Stripe.js.
func (s *Service) PublishableKey() string {
	return s.config.PublishableKey
}

// Currency returns the default currency.
func (s *Service) Currency() string {
	return s.config.Currency
}

// observe records the outcome of a Stripe call and passes err through.
func (s *Service) observe(operation string, err error) error {
	s.metrics.StripeCall(operation, err)
	return err
}

// contextOrBackground avoids handing a nil context to stripe-go.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
