package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/paydemo/backend/errors"
	"github.com/paydemo/backend/stripe"
	"github.com/paydemo/backend/validator"
	"go.vocdoni.io/dvote/log"
)

// configHandler godoc
//
//	@Summary		Get the Stripe configuration
//	@Description	Get the publishable key and the default currency used by the frontend
//	@Tags			checkout
//	@Produce		json
//	@Success		200	{object}	ConfigResponse
//	@Failure		503	{object}	errors.Error	"Payment provider not configured"
//	@Router			/config [get]
func (a *API) configHandler(w http.ResponseWriter, _ *http.Request) {
	if a.stripe == nil {
		errors.ErrPaymentProviderUnavailable.Write(w)
		return
	}
	httpWriteJSON(w, &ConfigResponse{
		PublishableKey: a.stripe.PublishableKey(),
		Currency:       a.stripe.Currency(),
	})
}

// createCheckoutSessionHandler godoc
//
//	@Summary		Create a checkout session
//	@Description	Create a Stripe hosted checkout session with a single line item of quantity one
//	@Tags			checkout
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CheckoutSessionRequest	true	"Amount, currency and product name"
//	@Success		200		{object}	CheckoutSessionResponse
//	@Failure		400		{object}	errors.Error	"Invalid input data or payment provider error"
//	@Failure		503		{object}	errors.Error	"Payment provider not configured"
//	@Router			/checkout-sessions [post]
func (a *API) createCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	if a.stripe == nil {
		errors.ErrPaymentProviderUnavailable.Write(w)
		return
	}
	model, ok := validator.GetValidatedModel(r.Context())
	if !ok {
		errors.ErrMalformedBody.Write(w)
		return
	}
	req := model.(*CheckoutSessionRequest)

	result, err := a.stripe.CreateCheckoutSession(r.Context(), &stripe.CheckoutRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		ProductName: req.ProductName,
	})
	if err != nil {
		stripeAPIError(err).Write(w)
		return
	}
	httpWriteJSON(w, &CheckoutSessionResponse{
		Success:     true,
		SessionID:   result.SessionID,
		CheckoutURL: result.CheckoutURL,
	})
}

// checkoutSessionHandler godoc
//
//	@Summary		Get a checkout session
//	@Description	Get the payment status, amount and customer email of a checkout session
//	@Tags			checkout
//	@Produce		json
//	@Param			sessionID	path		string	true	"Checkout session ID"
//	@Success		200			{object}	CheckoutSessionInfoResponse
//	@Failure		404			{object}	errors.Error	"Checkout session not found"
//	@Failure		503			{object}	errors.Error	"Payment provider not configured"
//	@Router			/checkout-sessions/{sessionID} [get]
func (a *API) checkoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	if a.stripe == nil {
		errors.ErrPaymentProviderUnavailable.Write(w)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		errors.ErrMalformedURLParam.With("sessionID is required").Write(w)
		return
	}
	session, err := a.stripe.CheckoutSession(r.Context(), sessionID)
	if err != nil {
		stripeAPIError(err).Write(w)
		return
	}
	httpWriteJSON(w, &CheckoutSessionInfoResponse{
		Success: true,
		Session: session,
	})
}

// createInvoiceHandler godoc
//
//	@Summary		Issue an invoice
//	@Description	Resolve the customer by email, create the invoice with a single item and finalize it,
//	@Description	or send it by email when send_email is true. The optional Idempotency-Key header makes
//	@Description	a retried request reuse the Stripe objects created by the first attempt.
//	@Tags			invoices
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string			false	"Caller supplied idempotency key"
//	@Param			request			body		InvoiceRequest	true	"Invoice information"
//	@Success		200				{object}	InvoiceResponse
//	@Failure		400				{object}	errors.Error	"Invalid input data or payment provider error"
//	@Failure		503				{object}	errors.Error	"Payment provider not configured"
//	@Router			/invoices [post]
func (a *API) createInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	if a.stripe == nil {
		errors.ErrPaymentProviderUnavailable.Write(w)
		return
	}
	model, ok := validator.GetValidatedModel(r.Context())
	if !ok {
		errors.ErrMalformedBody.Write(w)
		return
	}
	req := model.(*InvoiceRequest)

	idempotencyKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(idempotencyKey) > maxIdempotencyKeyLength {
		errors.ErrInvalidData.Withf("%s header must be at most %d characters",
			IdempotencyKeyHeader, maxIdempotencyKeyLength).Write(w)
		return
	}

	invoice, err := a.stripe.IssueInvoice(r.Context(), &stripe.InvoiceRequest{
		Amount:         req.Amount,
		Email:          req.Email,
		Description:    req.Description,
		Currency:       req.Currency,
		SendEmail:      req.SendEmail,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		stripeAPIError(err).Write(w)
		return
	}
	log.Debugw("invoice issued", "invoice", invoice.ID, "stage", invoice.Stage)
	httpWriteJSON(w, &InvoiceResponse{
		Success:    true,
		InvoiceID:  invoice.ID,
		CustomerID: invoice.CustomerID,
		Status:     invoice.Status,
		InvoiceURL: invoice.HostedURL,
		InvoicePDF: invoice.PDFURL,
		AmountDue:  invoice.AmountDue,
		Currency:   invoice.Currency,
	})
}
