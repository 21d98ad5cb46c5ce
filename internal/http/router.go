package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/movie-service/internal/observability"
)

// RouterConfig holds the middleware settings applied to the movie routes.
type RouterConfig struct {
	Logger         *zap.Logger
	RequestTimeout time.Duration
	// RateLimiter is nil when rate limiting is disabled.
	RateLimiter *ClientRateLimiter
}

// NewRouter registers the health, metrics and movie routes on a new router and
// binds h to it so handlers can resolve named routes.
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	// mux skips router middleware when nothing matches, so the fallback
	// handlers carry the same chain explicitly.
	withChain := func(h http.HandlerFunc) http.Handler {
		return CorrelationIDMiddleware(logger)(MetricsMiddleware(h))
	}
	router.NotFoundHandler = withChain(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "the requested resource could not be found")
	})
	router.MethodNotAllowedHandler = withChain(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "the "+r.Method+" method is not supported for this resource")
	})

	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.Use(RecoverMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet).Name("Health")
	router.Handle("/metrics", observability.MetricsHandler()).Name("Metrics")

	movies := router.NewRoute().Subrouter()
	movies.Use(RateLimitMiddleware(cfg.RateLimiter))
	if cfg.RequestTimeout > 0 {
		movies.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	movies.HandleFunc("/movies", h.GetAll).Methods(http.MethodGet).Name("GetAll")
	movies.HandleFunc("/movies", h.Create).Methods(http.MethodPost).Name("Create")
	movies.HandleFunc("/movies", h.Update).Methods(http.MethodPut).Name("Update")
	movies.HandleFunc("/movies/{id}", h.GetMovie).Methods(http.MethodGet).Name("GetMovie")
	movies.HandleFunc("/movies/{id}", h.Delete).Methods(http.MethodDelete).Name("Delete")

	h.router = router
	return router
}
