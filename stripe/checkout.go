package stripe

import (
	"context"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v82"
	"go.vocdoni.io/dvote/log"
)

// DefaultProductName labels the checkout line item when the caller does not
// provide a product name.
const DefaultProductName = "One-time purchase"

// CheckoutRequest holds the parameters for creating a one-off checkout session.
type CheckoutRequest struct {
	Amount      int64
	Currency    string
	ProductName string
}

// CheckoutResult identifies a created checkout session.
type CheckoutResult struct {
	SessionID   string
	CheckoutURL string
}

// CheckoutSessionStatus is the normalized view of a checkout session.
type CheckoutSessionStatus struct {
	ID            string  `json:"id"`
	PaymentStatus string  `json:"payment_status"`
	AmountTotal   int64   `json:"amount_total"`
	Currency      string  `json:"currency"`
	CustomerEmail *string `json:"customer_email"`
}

// CheckoutSessionParams builds the Stripe parameters of a payment mode
// session with a single inline-priced line item of quantity one.
func (s *Service) CheckoutSessionParams(req *CheckoutRequest) (*stripeapi.CheckoutSessionParams, error) {
	if req == nil || req.Amount <= 0 {
		return nil, NewStripeError(CodeInvalidRequest, "amount must be a positive integer", nil)
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.config.Currency
	}
	if !isCurrencyCode(currency) {
		return nil, NewStripeError(CodeInvalidRequest, "currency must be a three letter code", nil)
	}
	productName := req.ProductName
	if productName == "" {
		productName = DefaultProductName
	}

	return &stripeapi.CheckoutSessionParams{
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
					Currency: stripeapi.String(currency),
					ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripeapi.String(productName),
					},
					UnitAmount: stripeapi.Int64(req.Amount),
				},
				Quantity: stripeapi.Int64(1),
			},
		},
		SuccessURL: stripeapi.String(s.config.SuccessURL()),
		CancelURL:  stripeapi.String(s.config.CancelURL()),
	}, nil
}

// CreateCheckoutSession creates a new hosted checkout session and returns its
// id and URL.
func (s *Service) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	params, err := s.CheckoutSessionParams(req)
	if err != nil {
		return nil, err
	}
	params.Context = contextOrBackground(ctx)

	session, err := s.backend.NewCheckoutSession(params)
	if err := s.observe(opCreateSession, err); err != nil {
		log.Warnw("checkout: failed to create session", "amount", req.Amount, "error", RemoteMessage(err))
		return nil, NewStripeError(CodeAPICallFailed, "failed to create checkout session", err)
	}
	log.Infow("checkout: session created", "session", session.ID, "amount", req.Amount)
	return &CheckoutResult{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

// CheckoutSession retrieves a checkout session. Any failure of the remote
// lookup is reported as a not found error.
func (s *Service) CheckoutSession(ctx context.Context, sessionID string) (*CheckoutSessionStatus, error) {
	if sessionID == "" {
		return nil, NewStripeError(CodeInvalidRequest, "session id is required", nil)
	}
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = contextOrBackground(ctx)

	session, err := s.backend.GetCheckoutSession(sessionID, params)
	if err := s.observe(opGetSession, err); err != nil {
		log.Debugw("checkout: session lookup failed", "session", sessionID, "error", RemoteMessage(err))
		return nil, NewStripeError(CodeSessionNotFound, "failed to get checkout session", err)
	}
	if session == nil {
		return nil, NewStripeError(CodeSessionNotFound, "checkout session "+sessionID+" not found", nil)
	}

	status := &CheckoutSessionStatus{
		ID:            session.ID,
		PaymentStatus: string(session.PaymentStatus),
		AmountTotal:   session.AmountTotal,
		Currency:      string(session.Currency),
	}
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		email := session.CustomerDetails.Email
		status.CustomerEmail = &email
	}
	return status, nil
}
