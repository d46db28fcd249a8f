package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/paydemo/backend/api"
	"github.com/paydemo/backend/metrics"
	"github.com/paydemo/backend/stripe"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.vocdoni.io/dvote/log"
)

// shutdownTimeout bounds the wait for in-flight requests on exit.
const shutdownTimeout = 30 * time.Second

func main() {
	// define flags
	flag.StringP("host", "h", "0.0.0.0", "listen address")
	flag.IntP("port", "p", 8000, "listen port")
	flag.String("stripe-secret-key", "", "Stripe API secret key")
	flag.String("stripe-publishable-key", "", "Stripe publishable key returned to the frontend")
	flag.String("currency", stripe.DefaultCurrency, "default three letter currency code")
	flag.String("frontend-url", stripe.DefaultFrontendURL, "frontend base URL used for the checkout redirects")
	flag.StringSlice("cors-origins", api.DefaultCORSOrigins, "allowed CORS origins")
	flag.String("stripe-api-url", "", "override the Stripe API URL (e.g. a stripe-mock instance)")
	flag.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	flag.StringP("config", "c", "", "optional configuration file (yaml, toml, json or env), keyed by flag name")
	// parse flags
	flag.Parse()
	// initialize Viper
	viper.SetEnvPrefix("PAYDEMO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		panic(err)
	}
	// the Stripe keys are also read from the conventional unprefixed variables
	if err := viper.BindEnv("stripe-secret-key", "PAYDEMO_STRIPE_SECRET_KEY", "STRIPE_SECRET_KEY"); err != nil {
		panic(err)
	}
	if err := viper.BindEnv("stripe-publishable-key", "PAYDEMO_STRIPE_PUBLISHABLE_KEY", "STRIPE_PUBLISHABLE_KEY"); err != nil {
		panic(err)
	}
	viper.AutomaticEnv()
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			panic(err)
		}
	}
	log.Init(viper.GetString("log-level"), "stdout", nil)

	// read the configuration
	host := viper.GetString("host")
	port := viper.GetInt("port")
	stripeConf := &stripe.Config{
		SecretKey:      viper.GetString("stripe-secret-key"),
		PublishableKey: viper.GetString("stripe-publishable-key"),
		Currency:       viper.GetString("currency"),
		FrontendURL:    viper.GetString("frontend-url"),
		APIURL:         viper.GetString("stripe-api-url"),
	}
	if err := stripeConf.Validate(); err != nil {
		log.Fatalf("invalid stripe configuration: %v", err)
	}
	if stripeConf.PublishableKey == "" {
		log.Warnw("stripe publishable key not set, the frontend will not be able to load Stripe.js")
	}
	log.Infow("stripe configuration loaded", "config", stripeConf.String())

	// create the stripe service
	m := metrics.New(nil)
	stripeService, err := stripe.NewService(stripeConf, stripe.NewClient(stripeConf), m)
	if err != nil {
		log.Fatalf("could not create the stripe service: %v", err)
	}

	// create the local API server
	server := api.New(&api.Config{
		Host:        host,
		Port:        port,
		Stripe:      stripeService,
		Metrics:     m,
		CORSOrigins: viper.GetStringSlice("cors-origins"),
	})
	server.Start()
	log.Infow("server started", "host", host, "port", port)

	// wait until the process is asked to stop
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Infow("shutting down the server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warnw("server shutdown failed", "error", err)
	}
}
