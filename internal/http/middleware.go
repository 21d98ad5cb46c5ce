package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/tomasen/realip"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/movie-service/internal/observability"
	"github.com/kjstillabower/movie-service/internal/traffic"
)

// CorrelationIDMiddleware reuses X-Correlation-ID or generates one, echoes it on
// the response, and puts a request-scoped logger carrying it into the context.
func CorrelationIDMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			corrID := r.Header.Get("X-Correlation-ID")
			if corrID == "" {
				corrID = uuid.New().String()
			}
			w.Header().Set("X-Correlation-ID", corrID)

			reqLogger := logger.With(
				zap.String("correlation_id", corrID),
				zap.String("client_ip", realip.FromRequest(r)),
			)
			ctx := observability.WithCorrelationID(r.Context(), corrID)
			ctx = observability.WithLogger(ctx, reqLogger)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RecoverMiddleware turns a handler panic into a 500 INTERNAL_ERROR response.
// http.ErrAbortHandler is re-raised so the server aborts the connection as usual.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			observability.PanicsRecoveredTotal.Inc()
			if logger := observability.LoggerFromContext(r.Context()); logger != nil {
				logger.Error("panic recovered", zap.Any("panic", rec), zap.Stack("stack"))
			}
			w.Header().Set("Connection", "close")
			writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "the server encountered a problem and could not process your request")
		}()
		next.ServeHTTP(w, r)
	})
}

// MetricsMiddleware records request count and latency per route template, feeds
// the outcome to the traffic tracker, and tracks the request as in flight for
// graceful shutdown. Health and metrics responses stay out of the traffic
// tracker so a 503 from /health cannot keep the error rate up.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		globalInFlightTracker.Increment()
		observability.HTTPRequestsInFlight.Inc()
		defer func() {
			observability.HTTPRequestsInFlight.Dec()
			globalInFlightTracker.Decrement()
		}()

		m := httpsnoop.CaptureMetrics(next, w, r)

		if tracksOutcome(r) {
			traffic.Record(m.Code)
		}
		route := getRoute(r)
		observability.HTTPRequestsTotal.WithLabelValues(r.Method, route, statusCodeString(m.Code)).Inc()
		observability.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(m.Duration.Seconds())
	})
}

// getRoute returns the matched route template so ids do not explode label cardinality.
func getRoute(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// untrackedRoutes names the routes whose responses are not movie traffic.
var untrackedRoutes = map[string]bool{
	"Health":  true,
	"Metrics": true,
}

func tracksOutcome(r *http.Request) bool {
	if route := mux.CurrentRoute(r); route != nil {
		return !untrackedRoutes[route.GetName()]
	}
	return true
}

func statusCodeString(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// TimeoutMiddleware sets a deadline on the request context. When exceeded, downstream calls
// receive context.DeadlineExceeded and the handler answers 504.
func TimeoutMiddleware(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

const (
	clientSweepInterval = time.Minute
	clientIdleTTL       = 3 * time.Minute
)

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter keeps one token bucket per client IP. Clients idle for
// longer than clientIdleTTL are swept lazily on later calls.
type ClientRateLimiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*rateClient
	lastSweep time.Time
}

// NewClientRateLimiter returns a limiter allowing rps requests per second with
// the given burst per client. Returns nil (disabled) when rps <= 0.
func NewClientRateLimiter(rps, burst int) *ClientRateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = rps
	}
	return &ClientRateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		clients: make(map[string]*rateClient),
	}
}

// Allow reports whether the client identified by ip may proceed.
func (l *ClientRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= clientSweepInterval {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > clientIdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &rateClient{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Clients returns the number of tracked clients.
func (l *ClientRateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimitMiddleware returns 429 when the caller's token bucket is exhausted. Disabled when limiter is nil.
func RateLimitMiddleware(limiter *ClientRateLimiter) mux.MiddlewareFunc {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(realip.FromRequest(r)) {
				if logger := observability.LoggerFromContext(r.Context()); logger != nil {
					logger.Debug("rate limit denied")
				}
				observability.RateLimitDeniedTotal.Inc()
				writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
