package httpserver

import (
	"net/http"

	"go.uber.org/zap"

	"takeatoll/backend/services/tolls-service/internal/http/middleware"
)

// Routes aggregates handlers for HTTP server.
type Routes struct {
	Passthroughs http.HandlerFunc
	Billing      http.HandlerFunc
	Feed         http.HandlerFunc
	Health       http.HandlerFunc
	Metrics      http.Handler
}

// NewRouter wires all HTTP routes.
func NewRouter(routes Routes, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	if routes.Passthroughs != nil {
		mux.Handle("/api/stations/{stationId}/passthroughs", method(http.MethodPost, routes.Passthroughs))
	}
	if routes.Billing != nil {
		mux.Handle("/api/billing", method(http.MethodGet, routes.Billing))
	}
	if routes.Feed != nil {
		mux.Handle("/ws/passthroughs", method(http.MethodGet, routes.Feed))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", routes.Metrics)
	}
	return middleware.Chain(mux, middleware.Recover(logger), middleware.RequestLogger(logger))
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
