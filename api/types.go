package api

import "github.com/paydemo/backend/stripe"

// ConfigResponse is the public Stripe configuration used by the frontend.
type ConfigResponse struct {
	PublishableKey string `json:"publishable_key"`
	Currency       string `json:"currency"`
}

// CheckoutSessionRequest is the request body of a checkout session creation.
// Amount is in the minor unit of the currency.
type CheckoutSessionRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Currency    string `json:"currency,omitempty" validate:"omitempty,currency"`
	ProductName string `json:"product_name,omitempty" validate:"omitempty,max=250"`
}

// CheckoutSessionResponse identifies the created checkout session.
type CheckoutSessionResponse struct {
	Success     bool   `json:"success"`
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// CheckoutSessionInfoResponse wraps a retrieved checkout session.
type CheckoutSessionInfoResponse struct {
	Success bool                          `json:"success"`
	Session *stripe.CheckoutSessionStatus `json:"session"`
}

// InvoiceRequest is the request body of an invoice issuance.
type InvoiceRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Email       string `json:"email" validate:"required,email"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
	Currency    string `json:"currency,omitempty" validate:"omitempty,currency"`
	SendEmail   bool   `json:"send_email,omitempty"`
}

// InvoiceResponse is the issued invoice.
type InvoiceResponse struct {
	Success    bool   `json:"success"`
	InvoiceID  string `json:"invoice_id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
	InvoiceURL string `json:"invoice_url"`
	InvoicePDF string `json:"invoice_pdf,omitempty"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// InfoResponse describes the service and its endpoints.
type InfoResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}
