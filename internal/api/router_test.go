package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/apportionment/internal/apportion"
	"github.com/eugenenazirov/apportionment/internal/storage"
)

type observedRequest struct {
	route  string
	method string
	status int
}

type requestLog struct {
	requests []observedRequest
}

func (l *requestLog) ObserveRequest(route, method string, status int, _ time.Duration) {
	l.requests = append(l.requests, observedRequest{route: route, method: method, status: status})
}

func TestAccessMiddleware(t *testing.T) {
	logger := zaptest.NewLogger(t)
	var called bool
	handler := accessMiddleware(logger, nil, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to be called")
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", rec.Code)
	}
}

func TestRequestObserverSeesRoutePatterns(t *testing.T) {
	log := &requestLog{}
	router := newTestRouter(t, WithLogging(false), WithRateLimit(0, 0), WithRequestObserver(log))

	for _, target := range []string{"/api/health", "/missing"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	}

	want := []observedRequest{
		{route: "GET /api/health", method: http.MethodGet, status: http.StatusOK},
		{route: unmatchedRoute, method: http.MethodGet, status: http.StatusNotFound},
	}
	if len(log.requests) != len(want) {
		t.Fatalf("expected %d observations, got %v", len(want), log.requests)
	}
	for i := range want {
		if log.requests[i] != want[i] {
			t.Fatalf("observation %d: expected %+v, got %+v", i, want[i], log.requests[i])
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(t, WithLogging(false), WithRateLimit(0, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected caller request id to be echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", maxRequestIDLength+1))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); len(got) != 32 {
		t.Fatalf("expected oversized id to be replaced by a generated one, got %q", got)
	}
}

func TestSanitizeRequestID(t *testing.T) {
	cases := map[string]string{
		"  trace-1 ": "trace-1",
		"has space":  "",
		"tab\there":  "",
		"":           "",
	}
	for in, want := range cases {
		if got := sanitizeRequestID(in); got != want {
			t.Fatalf("sanitizeRequestID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := zaptest.NewLogger(t)
	handler := recoveryMiddleware(logger, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestResponseRecorderWriteHeader(t *testing.T) {
	underlying := httptest.NewRecorder()
	rec := &responseRecorder{ResponseWriter: underlying}
	rec.WriteHeader(http.StatusTeapot)

	if _, err := rec.Write([]byte("short and stout")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if rec.status != http.StatusTeapot {
		t.Fatalf("expected status to be recorded")
	}
	if underlying.Code != http.StatusTeapot {
		t.Fatalf("expected status to propagate to ResponseWriter")
	}
	if rec.bytes != len("short and stout") {
		t.Fatalf("expected byte count to be tracked, got %d", rec.bytes)
	}
}

func TestWithRateLimiterOptionAppliesLimiter(t *testing.T) {
	router := newTestRouter(t, WithLogging(false), WithRateLimiter(&staticLimiter{allow: false}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected rate limiter to block request, got %d", rec.Code)
	}
}

func TestWithRateLimitDisablesLimiterWhenZero(t *testing.T) {
	router := newTestRouter(t, WithLogging(false), WithRateLimiter(&staticLimiter{allow: false}), WithRateLimit(0, 0))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected limiter to be disabled, got %d", rec.Code)
	}
}

func TestWithRateLimitEnforcesLimit(t *testing.T) {
	router := newTestRouter(t, WithLogging(false), WithRateLimit(1, 1))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec.Code)
	}

	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req.Clone(req.Context()))
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected rate limiter to block second request, got %d", rec2.Code)
	}
}

func TestMetricsRouteAbsentByDefault(t *testing.T) {
	router := newTestRouter(t, WithLogging(false))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics handler, got %d", rec.Code)
	}
}

func TestMetricsRouteBypassesRateLimit(t *testing.T) {
	log := &requestLog{}
	scrape := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	router := newTestRouter(t,
		WithLogging(false),
		WithRateLimiter(&staticLimiter{allow: false}),
		WithMetricsHandler(scrape),
		WithRequestObserver(log),
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected scrape to bypass the limiter, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected scrape to carry a request id")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected API traffic to stay limited, got %d", rec.Code)
	}

	if len(log.requests) != 1 || log.requests[0].route != "GET /metrics" {
		t.Fatalf("expected only the scrape to be observed, got %v", log.requests)
	}
}

func TestRouteLabelsWithMetricsMounted(t *testing.T) {
	log := &requestLog{}
	router := newTestRouter(t,
		WithLogging(false),
		WithRateLimit(0, 0),
		WithMetricsHandler(http.NotFoundHandler()),
		WithRequestObserver(log),
	)

	for _, target := range []string{"/api/health", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	if len(log.requests) != 2 {
		t.Fatalf("expected 2 observations, got %v", log.requests)
	}
	if log.requests[0].route != "GET /api/health" || log.requests[1].route != unmatchedRoute {
		t.Fatalf("unexpected route labels %v", log.requests)
	}
}

func newTestRouter(t *testing.T, opts ...RouterOption) http.Handler {
	t.Helper()

	store := storage.NewMemoryStorage()
	handler := NewHandler(apportion.New(), store)
	logger := zaptest.NewLogger(t)
	return NewRouter(handler, logger, opts...)
}
