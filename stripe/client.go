package stripe

import (
	"net/http"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"
	"go.vocdoni.io/dvote/log"
)

// Backend is the subset of the Stripe API used by the Service. The request
// context travels inside the params (Params.Context / ListParams.Context).
type Backend interface {
	ListCustomers(params *stripeapi.CustomerListParams) ([]*stripeapi.Customer, error)
	NewCustomer(params *stripeapi.CustomerParams) (*stripeapi.Customer, error)
	NewInvoice(params *stripeapi.InvoiceParams) (*stripeapi.Invoice, error)
	NewInvoiceItem(params *stripeapi.InvoiceItemParams) (*stripeapi.InvoiceItem, error)
	FinalizeInvoice(id string, params *stripeapi.InvoiceFinalizeInvoiceParams) (*stripeapi.Invoice, error)
	SendInvoice(id string, params *stripeapi.InvoiceSendInvoiceParams) (*stripeapi.Invoice, error)
	NewCheckoutSession(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
	GetCheckoutSession(id string, params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
}

// Client wraps a Stripe API client bound to a single secret key. It does not
// touch the package level stripe.Key.
type Client struct {
	api *stripeclient.API
}

// NewClient creates a new Stripe client with the given configuration.
// Automatic network retries are disabled, a failed call is reported as is.
func NewClient(config *Config) *Client {
	backendConfig := &stripeapi.BackendConfig{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		LeveledLogger:     leveledLogger{},
		MaxNetworkRetries: stripeapi.Int64(0),
	}
	if config.APIURL != "" {
		backendConfig.URL = stripeapi.String(config.APIURL)
	}

	api := &stripeclient.API{}
	api.Init(config.SecretKey, stripeapi.NewBackendsWithConfig(backendConfig))
	return &Client{api: api}
}

// ListCustomers returns the first page of customers matching params. When
// params.Limit is set no more than that many customers are returned.
func (c *Client) ListCustomers(params *stripeapi.CustomerListParams) ([]*stripeapi.Customer, error) {
	var customers []*stripeapi.Customer
	it := c.api.Customers.List(params)
	for it.Next() {
		customers = append(customers, it.Customer())
		if params.Limit != nil && int64(len(customers)) >= *params.Limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// NewCustomer creates a customer.
func (c *Client) NewCustomer(params *stripeapi.CustomerParams) (*stripeapi.Customer, error) {
	return c.api.Customers.New(params)
}

// NewInvoice creates a draft invoice.
func (c *Client) NewInvoice(params *stripeapi.InvoiceParams) (*stripeapi.Invoice, error) {
	return c.api.Invoices.New(params)
}

// NewInvoiceItem creates an invoice item.
func (c *Client) NewInvoiceItem(params *stripeapi.InvoiceItemParams) (*stripeapi.InvoiceItem, error) {
	return c.api.InvoiceItems.New(params)
}

// FinalizeInvoice finalizes a draft invoice without emailing it.
func (c *Client) FinalizeInvoice(id string, params *stripeapi.InvoiceFinalizeInvoiceParams) (*stripeapi.Invoice, error) {
	return c.api.Invoices.FinalizeInvoice(id, params)
}

// SendInvoice finalizes the invoice if needed and emails it to the customer.
func (c *Client) SendInvoice(id string, params *stripeapi.InvoiceSendInvoiceParams) (*stripeapi.Invoice, error) {
	return c.api.Invoices.SendInvoice(id, params)
}

// NewCheckoutSession creates a hosted checkout session.
// API description https://docs.stripe.com/api/checkout/sessions
func (c *Client) NewCheckoutSession(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	return c.api.CheckoutSessions.New(params)
}

// GetCheckoutSession retrieves a checkout session by ID.
func (c *Client) GetCheckoutSession(id string, params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	return c.api.CheckoutSessions.Get(id, params)
}

// leveledLogger routes the stripe-go client logs to the service logger.
// Request errors are logged by the workflow with more context, so the
// client's own error lines are demoted to debug.
type leveledLogger struct{}

func (leveledLogger) Debugf(format string, v ...any) { log.Debugf("stripe: "+format, v...) }
func (leveledLogger) Infof(format string, v ...any)  { log.Debugf("stripe: "+format, v...) }
func (leveledLogger) Warnf(format string, v ...any)  { log.Warnf("stripe: "+format, v...) }
func (leveledLogger) Errorf(format string, v ...any) { log.Debugf("stripe: "+format, v...) }
