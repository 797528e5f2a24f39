package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"go-chi-accumulator/internal/calculator"
	"go-chi-accumulator/internal/handlers"
	"go-chi-accumulator/internal/observability"
	"go-chi-accumulator/internal/session"
)

// NewRouter builds the HTTP API around the given session store.
func NewRouter(sessions *session.Store) http.Handler {

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)

	r.Get("/health", handlers.Health)

	r.Handle("/metrics", observability.PrometheusHandler())

	calculator.RegisterRoutes(r, calculator.NewSessionHandler(sessions))

	return r
}
