package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	dto "github.com/prometheus/client_model/go"
)

// testRouter mirrors the service's static route table
func testRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(HTTPMiddleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/webhook/sms", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	return r
}

func requestCount(t *testing.T, m *Metrics, method, path, status string) float64 {
	t.Helper()

	counter, err := m.APIRequestsTotal.GetMetricWithLabelValues(method, path, status)
	if err != nil {
		t.Fatalf("failed to get counter: %v", err)
	}
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func errorCount(t *testing.T, m *Metrics, errorType string) float64 {
	t.Helper()

	counter, err := m.APIErrorsTotal.GetMetricWithLabelValues(errorType)
	if err != nil {
		t.Fatalf("failed to get counter: %v", err)
	}
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func TestHTTPMiddlewareRecordsRoutePattern(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	router := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/webhook/sms", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if got := requestCount(t, m, "POST", "/webhook/sms", "200"); got != 1 {
		t.Errorf("expected 1 request recorded for /webhook/sms, got %f", got)
	}
}

func TestHTTPMiddlewareRecordsErrorType(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	router := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/trigger", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	if got := requestCount(t, m, "POST", "/trigger", "401"); got != 1 {
		t.Errorf("expected 1 request recorded for /trigger, got %f", got)
	}
	if got := errorCount(t, m, "auth_error"); got != 1 {
		t.Errorf("expected 1 auth error, got %f", got)
	}
}

func TestHTTPMiddlewareCollapsesUnmatchedPaths(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	router := testRouter()

	// Scanner probes must not blow up the path label cardinality
	for _, path := range []string{"/wp-login.php", "/admin", "/.env"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", path, rec.Code)
		}
	}

	if got := requestCount(t, m, "GET", "unmatched", "404"); got != 3 {
		t.Errorf("expected 3 unmatched requests in one bucket, got %f", got)
	}
	if got := errorCount(t, m, "not_found"); got != 3 {
		t.Errorf("expected 3 not_found errors, got %f", got)
	}
}

func TestHTTPMiddlewareNilGlobal(t *testing.T) {
	SetGlobal(nil)

	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Must pass requests through without panicking
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestResponseWriterStatusCapture(t *testing.T) {
	rw := wrapResponseWriter(httptest.NewRecorder())

	// Implicit Write defaults to 200
	if _, err := rw.Write([]byte("ok")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if rw.status != http.StatusOK {
		t.Errorf("expected default status 200, got %d", rw.status)
	}

	rw = wrapResponseWriter(httptest.NewRecorder())
	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.status != http.StatusTeapot {
		t.Errorf("expected first WriteHeader to win, got %d", rw.status)
	}
}

func TestCategorizeStatus(t *testing.T) {
	cases := map[int]string{
		400: "bad_request",
		401: "auth_error",
		403: "auth_error",
		404: "not_found",
		409: "client_error",
		429: "rate_limited",
		500: "server_error",
		502: "server_error",
	}

	for status, want := range cases {
		if got := categorizeStatus(status); got != want {
			t.Errorf("categorizeStatus(%d) = %q, want %q", status, got, want)
		}
	}
}
