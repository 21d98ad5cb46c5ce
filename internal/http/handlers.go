package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/movie-service/internal/lifecycle"
	"github.com/kjstillabower/movie-service/internal/models"
	"github.com/kjstillabower/movie-service/internal/observability"
	"github.com/kjstillabower/movie-service/internal/repository"
	"github.com/kjstillabower/movie-service/internal/traffic"
	"github.com/kjstillabower/movie-service/internal/validation"
)

// maxBodyBytes caps request bodies on create and update.
const maxBodyBytes = 1 << 20

// MovieService is the business layer the handlers depend on.
type MovieService interface {
	GetAll(ctx context.Context) ([]models.Movie, error)
	GetByID(ctx context.Context, id int64) (models.Movie, error)
	Create(ctx context.Context, movie models.Movie) (models.Movie, error)
	Update(ctx context.Context, movie models.Movie) (models.Movie, error)
	Delete(ctx context.Context, movie models.Movie) error
}

// HealthConfig holds the dependency probes used by the health handler.
type HealthConfig struct {
	// RepositoryPing, when set, checks the backing store.
	RepositoryPing func(ctx context.Context) error
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
	// DegradedWindow and DegradedErrorPct mark the service degraded when the share of
	// 5xx responses within the window reaches the percentage. Zero disables the check.
	DegradedWindow   time.Duration
	DegradedErrorPct int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	movies         MovieService
	healthConfig   *HealthConfig
	logger         *zap.Logger
	titleMaxLength int

	// router resolves named routes for Location headers; set by NewRouter.
	router *mux.Router

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. titleMaxLength <= 0 uses validation.DefaultTitleMaxLength.
func NewHandler(movies MovieService, healthConfig *HealthConfig, logger *zap.Logger, titleMaxLength int) *Handler {
	return &Handler{
		movies:         movies,
		healthConfig:   healthConfig,
		logger:         logger,
		titleMaxLength: titleMaxLength,
	}
}

// GetAll handles GET /movies.
func (h *Handler) GetAll(w http.ResponseWriter, r *http.Request) {
	movies, err := h.movies.GetAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if movies == nil {
		movies = []models.Movie{}
	}
	writeJSON(w, http.StatusOK, movies)
}

// GetMovie handles GET /movies/{id}.
func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	movie, err := h.movies.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

// Create handles POST /movies. Responds 201 with a Location pointing at GetMovie.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	movie, ok := h.readMovie(w, r)
	if !ok {
		return
	}
	created, err := h.movies.Create(r.Context(), movie)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if loc, err := h.location("GetMovie", created.ID); err == nil {
		w.Header().Set("Location", loc)
	}
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /movies. The target must exist; responds 202 with a
// Location pointing back at the Update route for the id.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	movie, ok := h.readMovie(w, r)
	if !ok {
		return
	}
	if _, err := h.movies.GetByID(r.Context(), movie.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	updated, err := h.movies.Update(r.Context(), movie)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if loc, err := h.location("Update", updated.ID); err == nil {
		w.Header().Set("Location", loc)
	}
	writeJSON(w, http.StatusAccepted, updated)
}

// Delete handles DELETE /movies/{id}. Looks the record up and removes it.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	movie, err := h.movies.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.movies.Delete(r.Context(), movie); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// location builds the URL for a named route. The GetMovie route takes the id
// as a path variable; any other route carries it as the id query parameter.
func (h *Handler) location(routeName string, id int64) (string, error) {
	if h.router == nil {
		return "", errors.New("router not set")
	}
	route := h.router.Get(routeName)
	if route == nil {
		return "", fmt.Errorf("route %q not registered", routeName)
	}
	idStr := strconv.FormatInt(id, 10)
	if routeName == "GetMovie" {
		u, err := route.URL("id", idStr)
		if err != nil {
			return "", err
		}
		return u.String(), nil
	}
	u, err := route.URLPath()
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("id", idStr)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// pathID parses the {id} route variable. Writes 400 INVALID_ID and returns false
// when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(mux.Vars(r)["id"])
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "INVALID_ID", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// readMovie decodes and validates a movie body. On failure it writes the 400
// response and returns false.
func (h *Handler) readMovie(w http.ResponseWriter, r *http.Request) (models.Movie, bool) {
	var input struct {
		ID          int64         `json:"id"`
		Title       string        `json:"title"`
		Genre       *models.Genre `json:"genre"`
		ReleaseDate time.Time     `json:"releaseDate"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return models.Movie{}, false
	}
	// Genre's zero value is a real genre, so absence is only visible here.
	if input.Genre == nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_MOVIE", validation.ErrGenreRequired.Error())
		return models.Movie{}, false
	}
	movie := models.Movie{
		ID:          input.ID,
		Title:       input.Title,
		Genre:       *input.Genre,
		ReleaseDate: input.ReleaseDate,
	}
	if err := validation.ValidateMovie(movie, h.titleMaxLength); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_MOVIE", err.Error())
		return models.Movie{}, false
	}
	return movie, true
}

// readJSON decodes exactly one JSON object from the request body into dst.
// Unknown fields and trailing data are rejected.
func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxErr.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &typeErr):
			if typeErr.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", typeErr.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", typeErr.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("body contains unknown key %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		case errors.As(err, &maxBytesErr):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesErr.Limit)
		default:
			return err
		}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
	checks     map[string]string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status && h.logger != nil {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"version":   "dev",
		"checks":    result.checks,
		"uptime":    lifecycle.Uptime().Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates shutdown first, then each configured probe, then
// the recent server error rate. Any failure makes the service degraded. Recent
// rate-limit denials show up as checks["rateLimit"] without changing the status.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	checks := make(map[string]string)
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal", checks}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, "", checks}
	}

	result := healthResult{"healthy", http.StatusOK, "", checks}
	if h.healthConfig.RepositoryPing != nil {
		if err := h.healthConfig.RepositoryPing(ctx); err != nil {
			checks["repository"] = "unhealthy"
			result = healthResult{"degraded", http.StatusServiceUnavailable, "repository_unreachable", checks}
		} else {
			checks["repository"] = "healthy"
		}
	}
	if h.healthConfig.CachePing != nil {
		if err := h.healthConfig.CachePing(); err != nil {
			checks["cache"] = "unhealthy"
			if result.reason == "" {
				result = healthResult{"degraded", http.StatusServiceUnavailable, "cache_unreachable", checks}
			}
		} else {
			checks["cache"] = "healthy"
		}
	}
	if h.healthConfig.DegradedWindow > 0 {
		// Denials mean the limiter is doing its job; reported, not degrading.
		checks["rateLimit"] = "healthy"
		if traffic.DenialCount(h.healthConfig.DegradedWindow) > 0 {
			checks["rateLimit"] = "throttling"
		}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		checks["errorRate"] = "healthy"
		if total > 0 && errs*100 >= h.healthConfig.DegradedErrorPct*total {
			checks["errorRate"] = "unhealthy"
			if result.reason == "" {
				result = healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach", checks}
			}
		}
	}
	return result
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError maps a service error to its HTTP response. Unexpected
// failures are logged at ERROR; expected outcomes at DEBUG.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "movie not found")
	case errors.Is(err, repository.ErrDuplicateID):
		writeError(w, r, http.StatusConflict, "DUPLICATE_ID", "a movie with this id already exists")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "request timed out")
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "the server encountered a problem and could not process your request")
		if logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
		return
	}
	if logger != nil {
		logger.Debug("request rejected", zap.Error(err))
	}
}
