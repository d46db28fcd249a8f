// Package api provides the HTTP API of the payments backend
//
//	@title			Payment API
//	@version		1.0
//	@description	Checkout sessions and one-off invoices backed by Stripe
//
//	@host			localhost:8000
//	@BasePath		/
//	@schemes		http https
//
//	@tag.name		checkout
//	@tag.description	Checkout session operations
//
//	@tag.name		invoices
//	@tag.description	Invoice issuance operations
//
//	@tag.name		status
//	@tag.description	Service status operations
package api

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/paydemo/backend/errors"
	"github.com/paydemo/backend/metrics"
	"github.com/paydemo/backend/stripe"
	"github.com/paydemo/backend/validator"
	"go.vocdoni.io/dvote/log"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// requestTimeout bounds every request, including the whole invoice workflow.
const requestTimeout = 45 * time.Second

// DefaultCORSOrigins are the local frontend origins allowed when no list is
// configured.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:8080",
	"http://localhost:5000",
	"http://127.0.0.1:5000",
}

type Config struct {
	Host string
	Port int
	// Stripe is the payment service. When nil the payment endpoints answer
	// with a service unavailable error.
	Stripe  *stripe.Service
	Metrics *metrics.Metrics
	// CORSOrigins is the list of allowed browser origins.
	CORSOrigins []string
}

// API type represents the API HTTP server.
type API struct {
	host        string
	port        int
	router      *chi.Mux
	server      *http.Server
	stripe      *stripe.Service
	metrics     *metrics.Metrics
	validator   *validator.Validator
	corsOrigins []string
}

// New creates a new API HTTP server. It does not start the server. Use Start() for that.
func New(conf *Config) *API {
	if conf == nil {
		return nil
	}
	origins := conf.CORSOrigins
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}
	a := &API{
		host:        conf.Host,
		port:        conf.Port,
		stripe:      conf.Stripe,
		metrics:     conf.Metrics,
		validator:   validator.New(),
		corsOrigins: origins,
	}
	a.router = a.initRouter()
	return a
}

// Router returns the HTTP handler with every route and middleware.
func (a *API) Router() http.Handler {
	return a.router
}

// Start starts the API HTTP server (non blocking).
func (a *API) Start() {
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.host, a.port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "host", a.host, "port", a.port)
		if err := a.server.ListenAndServe(); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// Shutdown stops accepting connections and waits for the in-flight requests
// until ctx is done.
func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// router creates the router with all the routes and middleware.
func (a *API) initRouter() *chi.Mux {
	// Create the router with a basic middleware stack
	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   a.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Throttle(100))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(a.metrics.Middleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errors.ErrRouteNotFound.Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errors.ErrMethodNotAllowed.Write(w)
	})

	r.Get(pingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte(".")); err != nil {
			log.Warnw("failed to write ping response", "error", err)
		}
	})
	// service info
	log.Infow("new route", "method", "GET", "path", rootEndpoint)
	r.Get(rootEndpoint, a.infoHandler)
	// health check
	log.Infow("new route", "method", "GET", "path", healthEndpoint)
	r.Get(healthEndpoint, a.healthHandler)
	// prometheus metrics
	log.Infow("new route", "method", "GET", "path", metricsEndpoint)
	r.Method(http.MethodGet, metricsEndpoint, a.metrics.Handler())
	// publishable stripe configuration
	log.Infow("new route", "method", "GET", "path", configEndpoint)
	r.Get(configEndpoint, a.configHandler)
	// create a checkout session
	log.Infow("new route", "method", "POST", "path", checkoutSessionsEndpoint)
	r.With(a.validator.AddModelMiddleware(CheckoutSessionRequest{}), a.validator.InputValidator).
		Post(checkoutSessionsEndpoint, a.createCheckoutSessionHandler)
	// get checkout session info
	log.Infow("new route", "method", "GET", "path", checkoutSessionEndpoint)
	r.Get(checkoutSessionEndpoint, a.checkoutSessionHandler)
	// issue an invoice
	log.Infow("new route", "method", "POST", "path", invoicesEndpoint)
	r.With(a.validator.AddModelMiddleware(InvoiceRequest{}), a.validator.InputValidator).
		Post(invoicesEndpoint, a.createInvoiceHandler)
	return r
}
