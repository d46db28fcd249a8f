package api

const (
	// status routes

	// GET / to get the service info and the endpoint map
	rootEndpoint = "/"
	// GET /ping liveness probe
	pingEndpoint = "/ping"
	// GET /health to check the service health
	healthEndpoint = "/health"
	// GET /metrics to scrape the prometheus metrics
	metricsEndpoint = "/metrics"

	// payment routes

	// GET /config to get the publishable key and the default currency
	configEndpoint = "/config"
	// POST /checkout-sessions to create a checkout session
	checkoutSessionsEndpoint = "/checkout-sessions"
	// GET /checkout-sessions/{sessionID} to get a checkout session
	checkoutSessionEndpoint = "/checkout-sessions/{sessionID}"
	// POST /invoices to issue an invoice
	invoicesEndpoint = "/invoices"
)

// IdempotencyKeyHeader is the optional request header whose value makes the
// invoice issuance safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength leaves room for the per step suffix within the 255
// characters accepted by Stripe.
const maxIdempotencyKeyLength = 200
