package stripe

import (
	"context"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v82"
	"go.vocdoni.io/dvote/log"
)

const (
	// DefaultInvoiceDescription labels the invoice item when the caller does
	// not provide a description.
	DefaultInvoiceDescription = "One-time purchase"
	// CustomerDescription labels the customers created by the workflow.
	CustomerDescription = "One-time purchase customer"
	// InvoiceDaysUntilDue is the net payment term of every invoice.
	InvoiceDaysUntilDue = 30
)

// Stage is the last state reached by an invoice issuance.
//
//	pending -> resolved -> shell_created -> item_attached -> finalized | sent
type Stage string

const (
	StagePending      Stage = "pending"
	StageResolved     Stage = "resolved"
	StageShellCreated Stage = "shell_created"
	StageItemAttached Stage = "item_attached"
	StageFinalized    Stage = "finalized"
	StageSent         Stage = "sent"
)

// InvoiceRequest holds the input of the invoice issuance workflow.
type InvoiceRequest struct {
	// Amount in the minor unit of the currency (e.g. whole yen).
	Amount      int64
	Email       string
	Description string
	Currency    string
	// SendEmail sends the invoice to the customer instead of only
	// finalizing it.
	SendEmail bool
	// IdempotencyKey is optional. When set, every remote write uses a key
	// derived from it, so a retried request does not duplicate resources.
	IdempotencyKey string
}

// InvoiceResult is the invoice as returned by Stripe after the last stage.
type InvoiceResult struct {
	ID         string
	CustomerID string
	Status     string
	HostedURL  string
	PDFURL     string
	AmountDue  int64
	Currency   string
	Stage      Stage
}

// Issuance drives a single invoice through the workflow stages. Every step
// checks that the previous one completed, and the first failure leaves the
// issuance in the stage it had reached. Nothing is rolled back.
type Issuance struct {
	ctx     context.Context
	service *Service
	req     InvoiceRequest
	stage   Stage

	customer        *stripeapi.Customer
	customerCreated bool
	invoice         *stripeapi.Invoice
	item            *stripeapi.InvoiceItem
}

// NewIssuance validates req, applies the defaults and returns an issuance in
// the pending stage. No remote call is made.
func (s *Service) NewIssuance(ctx context.Context, req *InvoiceRequest) (*Issuance, error) {
	if req == nil {
		return nil, NewStripeError(CodeInvalidRequest, "invoice request is required", nil)
	}
	r := *req
	r.Email = strings.TrimSpace(r.Email)
	if r.Amount <= 0 {
		return nil, NewStripeError(CodeInvalidRequest, "amount must be a positive integer", nil)
	}
	if r.Email == "" {
		return nil, NewStripeError(CodeInvalidRequest, "email is required", nil)
	}
	if r.Description == "" {
		r.Description = DefaultInvoiceDescription
	}
	if r.Currency == "" {
		r.Currency = s.config.Currency
	}
	r.Currency = strings.ToLower(r.Currency)
	if !isCurrencyCode(r.Currency) {
		return nil, NewStripeError(CodeInvalidRequest, "currency must be a three letter code", nil)
	}
	return &Issuance{
		ctx:     contextOrBackground(ctx),
		service: s,
		req:     r,
		stage:   StagePending,
	}, nil
}

// IssueInvoice runs the whole workflow: resolve the customer, create the
// invoice shell, attach the item and then send or finalize the invoice.
func (s *Service) IssueInvoice(ctx context.Context, req *InvoiceRequest) (*InvoiceResult, error) {
	is, err := s.NewIssuance(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, step := range []func() error{
		is.ResolveCustomer,
		is.CreateShell,
		is.AttachItem,
		is.Deliver,
	} {
		if err := step(); err != nil {
			s.metrics.InvoiceFailed(string(is.stage))
			return nil, err
		}
	}
	if is.req.SendEmail {
		s.metrics.InvoiceIssued("sent")
	} else {
		s.metrics.InvoiceIssued("finalized")
	}
	return is.Result(), nil
}

// Stage returns the last stage reached.
func (is *Issuance) Stage() Stage {
	return is.stage
}

// Customer returns the resolved customer, nil before the resolved stage.
func (is *Issuance) Customer() *stripeapi.Customer {
	return is.customer
}

// CustomerCreated reports whether the customer was created by this issuance.
func (is *Issuance) CustomerCreated() bool {
	return is.customerCreated
}

// Invoice returns the latest invoice representation.
func (is *Issuance) Invoice() *stripeapi.Invoice {
	return is.invoice
}

// Item returns the attached invoice item.
func (is *Issuance) Item() *stripeapi.InvoiceItem {
	return is.item
}

// ResolveCustomer reuses the first customer Stripe returns for the email, or
// creates one when there is none.
func (is *Issuance) ResolveCustomer() error {
	if err := is.require(StagePending); err != nil {
		return err
	}
	listParams := &stripeapi.CustomerListParams{
		Email: stripeapi.String(is.req.Email),
	}
	listParams.Context = is.ctx
	listParams.Limit = stripeapi.Int64(1)
	customers, err := is.service.backend.ListCustomers(listParams)
	if err := is.service.observe(opListCustomers, err); err != nil {
		return is.fail(opListCustomers, "failed to look up customer", err)
	}
	if len(customers) > 0 && customers[0] != nil {
		is.customer = customers[0]
		log.Debugw("invoice: reusing customer", "customer", is.customer.ID)
	} else {
		params := &stripeapi.CustomerParams{
			Email:       stripeapi.String(is.req.Email),
			Description: stripeapi.String(CustomerDescription),
		}
		params.Context = is.ctx
		is.setIdempotencyKey(&params.Params, "customer")
		customer, err := is.service.backend.NewCustomer(params)
		if err := is.service.observe(opCreateCustomer, err); err != nil {
			return is.fail(opCreateCustomer, "failed to create customer", err)
		}
		is.customer = customer
		is.customerCreated = true
		log.Infow("invoice: customer created", "customer", customer.ID)
	}
	is.stage = StageResolved
	return nil
}

// CreateShell creates the draft invoice. It is collected by sending, never
// charged automatically, and does not pull pending items of the customer.
func (is *Issuance) CreateShell() error {
	if err := is.require(StageResolved); err != nil {
		return err
	}
	params := &stripeapi.InvoiceParams{
		Customer:                    stripeapi.String(is.customer.ID),
		CollectionMethod:            stripeapi.String(string(stripeapi.InvoiceCollectionMethodSendInvoice)),
		DaysUntilDue:                stripeapi.Int64(InvoiceDaysUntilDue),
		Currency:                    stripeapi.String(is.req.Currency),
		AutoAdvance:                 stripeapi.Bool(false),
		PendingInvoiceItemsBehavior: stripeapi.String("exclude"),
	}
	params.Context = is.ctx
	is.setIdempotencyKey(&params.Params, "invoice")
	invoice, err := is.service.backend.NewInvoice(params)
	if err := is.service.observe(opCreateInvoice, err); err != nil {
		return is.fail(opCreateInvoice, "failed to create invoice", err)
	}
	is.invoice = invoice
	is.stage = StageShellCreated
	log.Infow("invoice: shell created", "invoice", invoice.ID, "customer", is.customer.ID)
	return nil
}

// AttachItem creates the invoice item directly on the shell invoice, so the
// item is never left pending on the customer.
func (is *Issuance) AttachItem() error {
	if err := is.require(StageShellCreated); err != nil {
		return err
	}
	params := &stripeapi.InvoiceItemParams{
		Customer:    stripeapi.String(is.customer.ID),
		Invoice:     stripeapi.String(is.invoice.ID),
		Amount:      stripeapi.Int64(is.req.Amount),
		Currency:    stripeapi.String(is.req.Currency),
		Description: stripeapi.String(is.req.Description),
	}
	params.Context = is.ctx
	is.setIdempotencyKey(&params.Params, "item")
	item, err := is.service.backend.NewInvoiceItem(params)
	if err := is.service.observe(opCreateItem, err); err != nil {
		return is.fail(opCreateItem, "failed to create invoice item", err)
	}
	if item.Invoice != nil && item.Invoice.ID != "" && item.Invoice.ID != is.invoice.ID {
		return is.fail(opCreateItem, "invoice item attached to "+item.Invoice.ID, nil)
	}
	is.item = item
	is.stage = StageItemAttached
	log.Infow("invoice: item attached", "item", item.ID, "invoice", is.invoice.ID, "amount", is.req.Amount,
		"currency", is.req.Currency)
	return nil
}

// Deliver sends the invoice to the customer, which also finalizes it, or only
// finalizes it when no email was requested.
func (is *Issuance) Deliver() error {
	if err := is.require(StageItemAttached); err != nil {
		return err
	}
	if is.req.SendEmail {
		params := &stripeapi.InvoiceSendInvoiceParams{}
		params.Context = is.ctx
		is.setIdempotencyKey(&params.Params, "send")
		invoice, err := is.service.backend.SendInvoice(is.invoice.ID, params)
		if err := is.service.observe(opSendInvoice, err); err != nil {
			return is.fail(opSendInvoice, "failed to send invoice", err)
		}
		is.invoice = invoice
		is.stage = StageSent
	} else {
		params := &stripeapi.InvoiceFinalizeInvoiceParams{
			AutoAdvance: stripeapi.Bool(false),
		}
		params.Context = is.ctx
		is.setIdempotencyKey(&params.Params, "finalize")
		invoice, err := is.service.backend.FinalizeInvoice(is.invoice.ID, params)
		if err := is.service.observe(opFinalizeInvoice, err); err != nil {
			return is.fail(opFinalizeInvoice, "failed to finalize invoice", err)
		}
		is.invoice = invoice
		is.stage = StageFinalized
	}
	log.Infow("invoice: issued", "invoice", is.invoice.ID, "customer", is.customer.ID,
		"status", is.invoice.Status, "stage", is.stage)
	return nil
}

// Result returns the invoice representation, nil before the shell exists.
func (is *Issuance) Result() *InvoiceResult {
	if is.invoice == nil {
		return nil
	}
	res := &InvoiceResult{
		ID:         is.invoice.ID,
		Status:     string(is.invoice.Status),
		HostedURL:  is.invoice.HostedInvoiceURL,
		PDFURL:     is.invoice.InvoicePDF,
		AmountDue:  is.invoice.AmountDue,
		Currency:   string(is.invoice.Currency),
		CustomerID: is.customer.ID,
		Stage:      is.stage,
	}
	if res.Currency == "" {
		res.Currency = is.req.Currency
	}
	return res
}

// require returns an error unless the issuance is exactly in stage want.
func (is *Issuance) require(want Stage) error {
	if is.stage != want {
		return &StripeError{
			Code:    CodeInvalidTransition,
			Message: "invoice issuance is in stage " + string(is.stage) + ", expected " + string(want),
			Stage:   is.stage,
		}
	}
	return nil
}

// fail logs the failure with every id created so far and wraps err.
func (is *Issuance) fail(operation, message string, err error) error {
	var customerID, invoiceID string
	if is.customer != nil {
		customerID = is.customer.ID
	}
	if is.invoice != nil {
		invoiceID = is.invoice.ID
	}
	log.Warnw("invoice: issuance aborted",
		"operation", operation,
		"stage", is.stage,
		"customer", customerID,
		"customerCreated", is.customerCreated,
		"invoice", invoiceID,
		"idempotent", is.req.IdempotencyKey != "",
		"error", RemoteMessage(err))
	return &StripeError{
		Code:    CodeAPICallFailed,
		Message: message,
		Stage:   is.stage,
		Err:     err,
	}
}

// setIdempotencyKey derives the key of one remote write from the request key.
func (is *Issuance) setIdempotencyKey(params *stripeapi.Params, suffix string) {
	if is.req.IdempotencyKey == "" {
		return
	}
	params.SetIdempotencyKey(is.req.IdempotencyKey + "-" + suffix)
}
