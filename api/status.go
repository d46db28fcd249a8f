package api

import "net/http"

// healthHandler godoc
//
//	@Summary	Health check
//	@Tags		status
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (*API) healthHandler(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, &HealthResponse{
		Status:  "healthy",
		Message: "Payment API is running",
	})
}

// infoHandler godoc
//
//	@Summary	Service information
//	@Tags		status
//	@Produce	json
//	@Success	200	{object}	InfoResponse
//	@Router		/ [get]
func (*API) infoHandler(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, &InfoResponse{
		Message: "Payment API",
		Version: Version,
		Endpoints: map[string]string{
			"config":          configEndpoint,
			"create_checkout": checkoutSessionsEndpoint,
			"get_session":     checkoutSessionEndpoint,
			"create_invoice":  invoicesEndpoint,
			"health":          healthEndpoint,
			"metrics":         metricsEndpoint,
		},
	})
}
