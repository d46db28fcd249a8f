package stripe

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/paydemo/backend/metrics"
	"github.com/paydemo/backend/test"
	stripeapi "github.com/stripe/stripe-go/v82"
	"go.vocdoni.io/dvote/log"
)

const testEmail = "buyer@example.com"

func TestMain(m *testing.M) {
	log.Init("error", "stdout", nil)
	os.Exit(m.Run())
}

func newTestService(c *qt.C) (*Service, *test.FakeStripe) {
	conf := &Config{SecretKey: "sk_test_123", PublishableKey: "pk_test_123"}
	c.Assert(conf.Validate(), qt.IsNil)
	fake := test.NewFakeStripe()
	service, err := NewService(conf, fake, metrics.New(nil))
	c.Assert(err, qt.IsNil)
	return service, fake
}

func TestIssueInvoiceStepOrder(t *testing.T) {
	c := qt.New(t)
	service, fake := newTestService(c)

	res, err := service.IssueInvoice(context.Background(), &InvoiceRequest{Amount: 1200, Email: testEmail})
	c.Assert(err, qt.IsNil)
	c.Assert(fake.Ops(), qt.DeepEquals, []string{
		test.OpListCustomers,
		test.OpNewCustomer,
		test.OpNewInvoice,
		test.OpNewInvoiceItem,
		test.OpFinalizeInvoice,
	})
	c.Assert(res.Stage, qt.Equals, StageFinalized)
	c.Assert(res.AmountDue, qt.Equals, int64(1200))
	c.Assert(res.Currency, qt.Equals, "jpy")
	c.Assert(res.HostedURL, qt.Not(qt.Equals), "")
	c.Assert(res.PDFURL, qt.Not(qt.Equals), "")
}

func TestIssueInvoiceReusesExistingCustomer(t *testing.T) {
	c := qt.New(t)
	service, fake := newTestService(c)
	first := fake.AddCustomer(testEmail)
	fake.AddCustomer(testEmail)

	res, err := service.IssueInvoice(context.Background(), &InvoiceRequest{Amount: 500, Email: testEmail})
	c.Assert(err, qt.IsNil)
	c.Assert(fake.CallCount(test.OpNewCustomer), qt.Equals, 0)
	c.Assert(res.CustomerID, qt.Equals, first.ID)

	shell := fake.LastParams(test.OpNewInvoice).(*stripeapi.InvoiceParams)
	c.Assert(*shell.Customer, qt.Equals, first.ID)
	item := fake.LastParams(test.OpNewInvoiceItem).(*stripeapi.InvoiceItemParams)
	c.Assert(*item.Customer, qt.Equals, first.ID)
}

func TestIssueInvoiceCreatesMissingCustomer(t *testing.T) {
	c := qt.New(t)
	service, fake := newTestService(c)
	fake.AddCustomer("someone-else@example.com")

	is, err := service.NewIssuance(context.Background(), &InvoiceRequest{Amount: 500, Email: testEmail})
	c.Assert(err, qt.IsNil)
	c.Assert(is.ResolveCustomer(), qt.IsNil)
	c.Assert(is.Stage(), qt.Equals, StageResolved)
	c.Assert(is.CustomerCreated(), qt.IsTrue)
	c.Assert(is.Customer().Email, qt.Equals, testEmail)

	params := fake.LastParams(test.OpNewCustomer).(*stripeapi.CustomerParams)
	c.Assert(*params.Email, qt.Equals, testEmail)
	c.Assert(*params.Description, qt.Equals, CustomerDescription)
	c.Assert(fake.CallCount(test.OpNewCustomer), qt.Equals, 1)
}

func TestIssueInvoiceShellParams(t *testing.T) {
	c := qt.New(t)
	service, fake := newTestService(c)

	_, err := service.IssueInvoice(context.Background(), &InvoiceRequest{Amount: 500, Email: testEmail, Currency: "USD"})
	c.Assert(err, qt.IsNil)

	shell := fake.LastParams(test.OpNewInvoice).(*stripeapi.InvoiceParams)
	c.Assert(*shell.CollectionMethod, qt.Equals, string(stripeapi.InvoiceCollectionMethodSendInvoice))
	c.Assert(*shell.DaysUntilDue, qt.Equals, int64(InvoiceDaysUntilDue))
	c.Assert(*shell.AutoAdvance, qt.IsFalse)
	c.Assert(*shell.Currency, qt.Equals, "usd")
}

func TestIssueInvoiceItemAttachedToShell(t *testing.T) {
	c := qt.New(t)
	service, fake := newTestService(c)

	is, err := service.NewIssuance(context.Background(), &InvoiceRequest{
		Amount:      3000,
		Email:       testEmail,
		Description: "Consulting",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(is.ResolveCustomer(), qt.IsNil)
	c.Assert(is.CreateShell(), qt.IsNil)
	c.Assert(is.Stage(), qt.Equals, StageShellCreated)
	shellID := is.Invoice().ID

	c.Assert(is.AttachItem(), qt.IsNil)
	c.Assert(is.Stage(), qt.Equals, StageItemAttached)
	c.Assert(is.Item().Invoice, qt.Not(qt.IsNil))
	c.Assert(is.Item().Invoice.ID, qt.Equals, shellID)

	params := fake.LastParams(test.OpNewInvoiceItem).(*stripeapi.InvoiceItemParams)
	c.Assert(*params.Invoice, qt.Equals, shellID)
	c.Assert(*params.Amount, qt.Equals, int64(3000))
	c.Assert(*params.Currency, qt.Equals, "jpy")
	c.Assert(*params.Description, qt.Equals, "Consulting")
}

func TestIssueInvoiceDelivery(t *testing.T) {
	c := qt.New(t)

	c.Run("SendEmail", func(c *qt.C) {
		service, fake := newTestService(c)
		res, err := service.IssueInvoice(context.Background(), &InvoiceRequest{
			Amount:    800,
			Email:     testEmail,
			SendEmail: true,
		})
		c.Assert(err, qt.IsNil)
		c.Assert(fake.CallCount(test.OpSendInvoice), qt.Equals, 1)
		c.Assert(fake.CallCount(test.OpFinalizeInvoice), qt.Equals, 0)
		c.Assert(res.Stage, qt.Equals, StageSent)
		c.Assert(res.Status, qt.Equals, string(stripeapi.InvoiceStatusOpen))
	})

	c.Run("FinalizeOnly", func(c *qt.C) {
		service, fake := newTestService(c)
		res, err := service.IssueInvoice(context.Background(), &InvoiceRequest{
			Amount: 800,
			Email:  testEmail,
		})
		c.Assert(err, qt.IsNil)
		c.Assert(fake.CallCount(test.OpFinalizeInvoice), qt.Equals, 1)
		c.Assert(fake.CallCount(test.OpSendInvoice), qt.Equals, 0)
		c.Assert(res.Stage, qt.Equals, StageFinalized)

		params := fake.LastParams(test.OpFinalizeInvoice).(*stripeapi.InvoiceFinalizeInvoiceParams)
		c.Assert(*params.AutoAdvance, qt.IsFalse)
	})
}

func TestIssueInvoiceStopsAtFirstFailure(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name      string
		failOp    string
		wantOps   []string
		wantStage Stage
	}{
		{
			name:      "CustomerLookup",
			failOp:    test.OpListCustomers,
			wantOps:   []string{test.OpListCustomers},
			wantStage: StagePending,
		},
		{
			name:      "CustomerCreation",
			failOp:    test.OpNewCustomer,
			wantOps:   []string{test.OpListCustomers, test.OpNewCustomer},
			wantStage: StagePending,
		},
		{
			name:      "ShellCreation",
			failOp:    test.OpNewInvoice,
			wantOps:   []string{test.OpListCustomers, test.OpNewCustomer, test.OpNewInvoice},
			wantStage: StageResolved,
		},
		{
			name:   "ItemCreation",
			failOp: test.OpNewInvoiceItem,
			wantOps: []string{
				test.OpListCustomers, test.OpNewCustomer, test.OpNewInvoice, test.OpNewInvoiceItem,
			},
			wantStage: StageShellCreated,
		},
		{
			name:   "Finalize",
			failOp: test.OpFinalizeInvoice,
			wantOps: []string{
				test.OpListCustomers, test.OpNewCustomer, test.OpNewInvoice, test.OpNewInvoiceItem,
				test.OpFinalizeInvoice,
			},
			wantStage: StageItemAttached,
		},
	}

	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			service, fake := newTestService(c)
			remote := test.APIError(http.StatusBadRequest, stripeapi.ErrorCode("email_invalid"),
				"Invalid email address: not-an-email")
			fake.Fail(tc.failOp, remote)

			res, err := service.IssueInvoice(context.Background(), &InvoiceRequest{Amount: 500, Email: testEmail})
			c.Assert(res, qt.IsNil)
			c.Assert(err, qt.Not(qt.IsNil))
			c.Assert(fake.Ops(), qt.DeepEquals, tc.wantOps)

			var stripeErr *StripeError
			c.Assert(errors.As(err, &stripeErr), qt.IsTrue)
			c.Assert(stripeErr.Code, qt.Equals, CodeAPICallFailed)
			c.Assert(stripeErr.Stage, qt.Equals, tc.wantStage)
			c.Assert(RemoteMessage(err), qt.Equals, "Invalid email address: not-an-email")
			c.Assert(errors.Is(err, remote), qt.IsTrue)
		})
	}
}

func TestIssuanceRejectsOutOfOrderSteps(t *testing.T) {
	c := qt.New(t)
	service, fake := newTestService(c)

	is, err := service.NewIssuance(context.Background(), &InvoiceRequest{Amount: 500, Email: testEmail})
	c.Assert(err, qt.IsNil)

	for _, step := range []func() error{is.CreateShell, is.AttachItem, is.Deliver} {
		err := step()
		var stripeErr *StripeError
		c.Assert(errors.As(err, &stripeErr), qt.IsTrue)
		c.Assert(stripeErr.Code, qt.Equals, CodeInvalidTransition)
	}
	c.Assert(fake.Ops(), qt.HasLen, 0)
	c.Assert(is.Result(), qt.IsNil)

	c.Assert(is.ResolveCustomer(), qt.IsNil)
	err = is.ResolveCustomer()
	c.Assert(err, qt.ErrorMatches, `.*invoice issuance is in stage resolved, expected pending`)
	c.Assert(fake.CallCount(test.OpListCustomers), qt.Equals, 1)
}

func TestNewIssuanceValidation(t *testing.T) {
	c := qt.New(t)
	service, fake := newTestService(c)

	for _, req := range []*InvoiceRequest{
		nil,
		{Amount: 0, Email: testEmail},
		{Amount: -10, Email: testEmail},
		{Amount: 100, Email: "   "},
		{Amount: 100, Email: testEmail, Currency: "yen!"},
	} {
		_, err := service.IssueInvoice(context.Background(), req)
		var stripeErr *StripeError
		c.Assert(errors.As(err, &stripeErr), qt.IsTrue)
		c.Assert(stripeErr.Code, qt.Equals, CodeInvalidRequest)
	}
	c.Assert(fake.Ops(), qt.HasLen, 0)
}

func TestIssueInvoiceDefaults(t *testing.T) {
	c := qt.New(t)
	service, fake := newTestService(c)

	_, err := service.IssueInvoice(context.Background(), &InvoiceRequest{Amount: 100, Email: " " + testEmail + " "})
	c.Assert(err, qt.IsNil)

	list := fake.LastParams(test.OpListCustomers).(*stripeapi.CustomerListParams)
	c.Assert(*list.Email, qt.Equals, testEmail)
	item := fake.LastParams(test.OpNewInvoiceItem).(*stripeapi.InvoiceItemParams)
	c.Assert(*item.Description, qt.Equals, DefaultInvoiceDescription)
	c.Assert(*item.Currency, qt.Equals, DefaultCurrency)
}

func TestIssueInvoiceIdempotencyKeys(t *testing.T) {
	c := qt.New(t)

	c.Run("WithKey", func(c *qt.C) {
		service, fake := newTestService(c)
		_, err := service.IssueInvoice(context.Background(), &InvoiceRequest{
			Amount:         100,
			Email:          testEmail,
			SendEmail:      true,
			IdempotencyKey: "order-42",
		})
		c.Assert(err, qt.IsNil)

		customer := fake.LastParams(test.OpNewCustomer).(*stripeapi.CustomerParams)
		c.Assert(*customer.IdempotencyKey, qt.Equals, "order-42-customer")
		shell := fake.LastParams(test.OpNewInvoice).(*stripeapi.InvoiceParams)
		c.Assert(*shell.IdempotencyKey, qt.Equals, "order-42-invoice")
		item := fake.LastParams(test.OpNewInvoiceItem).(*stripeapi.InvoiceItemParams)
		c.Assert(*item.IdempotencyKey, qt.Equals, "order-42-item")
		send := fake.LastParams(test.OpSendInvoice).(*stripeapi.InvoiceSendInvoiceParams)
		c.Assert(*send.IdempotencyKey, qt.Equals, "order-42-send")
	})

	c.Run("WithoutKey", func(c *qt.C) {
		service, fake := newTestService(c)
		_, err := service.IssueInvoice(context.Background(), &InvoiceRequest{Amount: 100, Email: testEmail})
		c.Assert(err, qt.IsNil)

		shell := fake.LastParams(test.OpNewInvoice).(*stripeapi.InvoiceParams)
		c.Assert(shell.IdempotencyKey, qt.IsNil)
	})
}

func TestIssueInvoicePassesContext(t *testing.T) {
	c := qt.New(t)
	service, fake := newTestService(c)

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "request-1")
	_, err := service.IssueInvoice(ctx, &InvoiceRequest{Amount: 100, Email: testEmail})
	c.Assert(err, qt.IsNil)

	shell := fake.LastParams(test.OpNewInvoice).(*stripeapi.InvoiceParams)
	c.Assert(shell.Context.Value(ctxKey{}), qt.Equals, "request-1")
}
