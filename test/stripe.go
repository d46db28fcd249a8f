// Package test provides testing utilities for the payments backend: an
// in-memory Stripe backend and a stripe-mock test container.
package test

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	stripeapi "github.com/stripe/stripe-go/v82"
)

// Operations recorded by FakeStripe.
const (
	OpListCustomers      = "ListCustomers"
	OpNewCustomer        = "NewCustomer"
	OpNewInvoice         = "NewInvoice"
	OpNewInvoiceItem     = "NewInvoiceItem"
	OpFinalizeInvoice    = "FinalizeInvoice"
	OpSendInvoice        = "SendInvoice"
	OpNewCheckoutSession = "NewCheckoutSession"
	OpGetCheckoutSession = "GetCheckoutSession"
)

// StripeCall is a single call received by FakeStripe.
type StripeCall struct {
	Op     string
	ID     string // path id for finalize, send and get
	Params any
}

// FakeStripe is an in-memory implementation of the Stripe backend used by
// the service. It records every call in order and returns canned objects.
// It is safe for concurrent use.
type FakeStripe struct {
	mu       sync.Mutex
	seq      int
	calls    []StripeCall
	fail     map[string]error
	custs    []*stripeapi.Customer
	invoices map[string]*stripeapi.Invoice
	sessions map[string]*stripeapi.CheckoutSession
}

// NewFakeStripe returns an empty FakeStripe.
func NewFakeStripe() *FakeStripe {
	return &FakeStripe{
		fail:     map[string]error{},
		invoices: map[string]*stripeapi.Invoice{},
		sessions: map[string]*stripeapi.CheckoutSession{},
	}
}

// AddCustomer stores an existing customer and returns it.
func (f *FakeStripe) AddCustomer(email string) *stripeapi.Customer {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &stripeapi.Customer{ID: f.nextID("cus"), Email: email}
	f.custs = append(f.custs, c)
	return c
}

// AddCheckoutSession stores a checkout session so it can be retrieved.
func (f *FakeStripe) AddCheckoutSession(session *stripeapi.CheckoutSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.ID] = session
}

// Fail makes every following call of op return err.
func (f *FakeStripe) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

// Calls returns a copy of the recorded calls.
func (f *FakeStripe) Calls() []StripeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StripeCall(nil), f.calls...)
}

// Ops returns the recorded operation names in call order.
func (f *FakeStripe) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		ops = append(ops, c.Op)
	}
	return ops
}

// CallCount returns how many times op was called.
func (f *FakeStripe) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// LastParams returns the params of the last call of op, nil if none.
func (f *FakeStripe) LastParams(op string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Op == op {
			return f.calls[i].Params
		}
	}
	return nil
}

// APIError builds an error shaped like the ones returned by the Stripe API.
func APIError(status int, code stripeapi.ErrorCode, msg string) *stripeapi.Error {
	return &stripeapi.Error{
		Code:           code,
		HTTPStatusCode: status,
		Msg:            msg,
		Type:           stripeapi.ErrorTypeInvalidRequest,
	}
}

func (f *FakeStripe) ListCustomers(params *stripeapi.CustomerListParams) ([]*stripeapi.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpListCustomers, "", params); err != nil {
		return nil, err
	}
	var out []*stripeapi.Customer
	for _, c := range f.custs {
		if params.Email == nil || strings.EqualFold(c.Email, *params.Email) {
			out = append(out, c)
		}
	}
	if params.Limit != nil && int64(len(out)) > *params.Limit {
		out = out[:*params.Limit]
	}
	return out, nil
}

func (f *FakeStripe) NewCustomer(params *stripeapi.CustomerParams) (*stripeapi.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpNewCustomer, "", params); err != nil {
		return nil, err
	}
	c := &stripeapi.Customer{ID: f.nextID("cus"), Email: deref(params.Email), Description: deref(params.Description)}
	f.custs = append(f.custs, c)
	return c, nil
}

func (f *FakeStripe) NewInvoice(params *stripeapi.InvoiceParams) (*stripeapi.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpNewInvoice, "", params); err != nil {
		return nil, err
	}
	inv := &stripeapi.Invoice{
		ID:               f.nextID("in"),
		Customer:         &stripeapi.Customer{ID: deref(params.Customer)},
		CollectionMethod: stripeapi.InvoiceCollectionMethod(deref(params.CollectionMethod)),
		Currency:         stripeapi.Currency(deref(params.Currency)),
		Status:           stripeapi.InvoiceStatusDraft,
	}
	f.invoices[inv.ID] = inv
	return copyInvoice(inv), nil
}

func (f *FakeStripe) NewInvoiceItem(params *stripeapi.InvoiceItemParams) (*stripeapi.InvoiceItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpNewInvoiceItem, "", params); err != nil {
		return nil, err
	}
	item := &stripeapi.InvoiceItem{
		ID:          f.nextID("ii"),
		Customer:    &stripeapi.Customer{ID: deref(params.Customer)},
		Amount:      derefInt(params.Amount),
		Currency:    stripeapi.Currency(deref(params.Currency)),
		Description: deref(params.Description),
	}
	if params.Invoice != nil {
		inv, ok := f.invoices[*params.Invoice]
		if !ok {
			return nil, APIError(http.StatusNotFound, stripeapi.ErrorCodeResourceMissing,
				fmt.Sprintf("No such invoice: '%s'", *params.Invoice))
		}
		inv.AmountDue += item.Amount
		item.Invoice = &stripeapi.Invoice{ID: inv.ID}
	}
	return item, nil
}

func (f *FakeStripe) FinalizeInvoice(id string, params *stripeapi.InvoiceFinalizeInvoiceParams) (*stripeapi.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpFinalizeInvoice, id, params); err != nil {
		return nil, err
	}
	return f.open(id)
}

func (f *FakeStripe) SendInvoice(id string, params *stripeapi.InvoiceSendInvoiceParams) (*stripeapi.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpSendInvoice, id, params); err != nil {
		return nil, err
	}
	return f.open(id)
}

func (f *FakeStripe) NewCheckoutSession(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpNewCheckoutSession, "", params); err != nil {
		return nil, err
	}
	session := &stripeapi.CheckoutSession{
		ID:            f.nextID("cs_test"),
		PaymentStatus: stripeapi.CheckoutSessionPaymentStatusUnpaid,
	}
	session.URL = "https://checkout.stripe.test/c/pay/" + session.ID
	for _, li := range params.LineItems {
		if li.PriceData != nil {
			session.AmountTotal += derefInt(li.PriceData.UnitAmount) * derefInt(li.Quantity)
			session.Currency = stripeapi.Currency(deref(li.PriceData.Currency))
		}
	}
	f.sessions[session.ID] = session
	return session, nil
}

func (f *FakeStripe) GetCheckoutSession(id string, params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpGetCheckoutSession, id, params); err != nil {
		return nil, err
	}
	session, ok := f.sessions[id]
	if !ok {
		return nil, APIError(http.StatusNotFound, stripeapi.ErrorCodeResourceMissing,
			fmt.Sprintf("No such checkout.session: '%s'", id))
	}
	return session, nil
}

// open finalizes the stored invoice. Callers hold the lock.
func (f *FakeStripe) open(id string) (*stripeapi.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, APIError(http.StatusNotFound, stripeapi.ErrorCodeResourceMissing,
			fmt.Sprintf("No such invoice: '%s'", id))
	}
	if inv.Status != stripeapi.InvoiceStatusDraft && inv.Status != stripeapi.InvoiceStatusOpen {
		return nil, APIError(http.StatusBadRequest, stripeapi.ErrorCode("invoice_not_editable"),
			fmt.Sprintf("Invoice %s is %s", id, inv.Status))
	}
	inv.Status = stripeapi.InvoiceStatusOpen
	inv.HostedInvoiceURL = "https://invoice.stripe.test/i/" + id
	inv.InvoicePDF = "https://pay.stripe.test/invoice/" + id + "/pdf"
	return copyInvoice(inv), nil
}

// record stores the call and returns the configured failure, if any.
// Callers hold the lock.
func (f *FakeStripe) record(op, id string, params any) error {
	f.calls = append(f.calls, StripeCall{Op: op, ID: id, Params: params})
	return f.fail[op]
}

func (f *FakeStripe) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_fake%04d", prefix, f.seq)
}

func copyInvoice(inv *stripeapi.Invoice) *stripeapi.Invoice {
	c := *inv
	return &c
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int64) int64 {
	if i == nil {
		return 0
	}
	return *i
}
