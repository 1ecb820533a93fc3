package api

import (
	"net/http"

	mw "github.com/customsubash/image-labelling-pipeline/internal/api/middleware"
	"github.com/customsubash/image-labelling-pipeline/internal/api/response"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Logger    *zap.Logger
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler
	SubmitHandler  http.HandlerFunc
	StatusHandler  http.HandlerFunc
	ListHandler    http.HandlerFunc
	PredictHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))

	r.Get("/healthcheck", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// Job and prediction routes
	r.Group(func(r chi.Router) {
		if deps.Auth.Enabled() {
			r.Use(deps.Auth.Authenticate)
		}
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/batch_predict", orNotImplemented(deps.SubmitHandler))
		r.Get("/batch_status/{jobID}", orNotImplemented(deps.StatusHandler))
		r.Get("/batch_jobs", orNotImplemented(deps.ListHandler))
		r.Post("/predict", orNotImplemented(deps.PredictHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
