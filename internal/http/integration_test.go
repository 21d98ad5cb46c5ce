//go:build integration
// +build integration

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/movie-service/internal/models"
	"github.com/kjstillabower/movie-service/internal/observability"
	"github.com/kjstillabower/movie-service/internal/repository"
	"github.com/kjstillabower/movie-service/internal/service"
	testhelpers "github.com/kjstillabower/movie-service/internal/testhelpers"
)

var testLogger *zap.Logger

func init() {
	var err error
	testLogger, err = observability.NewLogger()
	if err != nil {
		panic(err)
	}
}

// setupIntegrationRouter builds the full stack over Postgres.
// Returns the router and a cleanup function.
func setupIntegrationRouter(t *testing.T) (*mux.Router, func()) {
	cfg := testhelpers.GetIntegrationConfig(t)
	repo, cleanup := testhelpers.SetupIntegrationRepository(t, cfg)

	var ping func(ctx context.Context) error
	if p, ok := repo.(repository.Pinger); ok {
		ping = p.Ping
	}
	handler := NewHandler(service.NewMovieService(repo), &HealthConfig{RepositoryPing: ping}, testLogger, 0)
	router := NewRouter(handler, RouterConfig{Logger: testLogger, RequestTimeout: 5 * time.Second})
	return router, cleanup
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestIntegration_MovieLifecycle verifies create, read, update, list and delete
// end to end against a real database.
func TestIntegration_MovieLifecycle(t *testing.T) {
	router, cleanup := setupIntegrationRouter(t)
	defer cleanup()

	w := doRequest(router, "POST", "/movies", `{"id":10,"title":"Pelicula 10","genre":"Terror","releaseDate":"2019-10-31T00:00:00Z"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d. Body: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/movies/10" {
		t.Errorf("create Location = %q, want /movies/10", loc)
	}

	w = doRequest(router, "POST", "/movies", `{"id":10,"title":"Again","genre":"Drama"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want %d", w.Code, http.StatusConflict)
	}

	w = doRequest(router, "PUT", "/movies", `{"id":10,"title":"Pelicula 10b","genre":"Comedia","releaseDate":"2019-10-31T00:00:00Z"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("update status = %d, want %d. Body: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	w = doRequest(router, "GET", "/movies/10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", w.Code, http.StatusOK)
	}
	var got models.Movie
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Title != "Pelicula 10b" || got.Genre != models.GenreComedia {
		t.Errorf("get after update = %+v, want updated record", got)
	}

	w = doRequest(router, "GET", "/movies", "")
	var all []models.Movie
	if err := json.NewDecoder(w.Body).Decode(&all); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("list len = %d, want 1", len(all))
	}

	w = doRequest(router, "DELETE", "/movies/10", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", w.Code, http.StatusNoContent)
	}
	w = doRequest(router, "GET", "/movies/10", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestIntegration_Health(t *testing.T) {
	router, cleanup := setupIntegrationRouter(t)
	defer cleanup()

	w := doRequest(router, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d. Body: %s", w.Code, http.StatusOK, w.Body.String())
	}
}
