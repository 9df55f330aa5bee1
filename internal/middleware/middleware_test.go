package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"cliphub/internal/metrics"

	"github.com/gorilla/mux"
	dto "github.com/prometheus/client_model/go"
)

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newStatusRecorder(rec)

	if rw.statusCode != http.StatusOK {
		t.Errorf("default status = %d, want 200", rw.statusCode)
	}

	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusAccepted || rec.Code != http.StatusAccepted {
		t.Errorf("status = %d/%d, want first WriteHeader to win", rw.statusCode, rec.Code)
	}

	n, err := rw.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	_, _ = rw.Write([]byte(" world"))
	if rw.bytesWritten != 11 {
		t.Errorf("bytesWritten = %d, want 11", rw.bytesWritten)
	}
	if rw.Unwrap() != rec {
		t.Error("Unwrap() should return the wrapped writer")
	}
}

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		config LoggingConfig
		want   bool
	}{
		{"api logged", "/api/clips/1", DefaultLoggingConfig(), false},
		{"thumbnail skipped by default", "/uploads/thumbnails/1_thumb_md.jpg", DefaultLoggingConfig(), true},
		{"thumbnail logged when enabled", "/uploads/thumbnails/1_thumb_md.jpg",
			LoggingConfig{StaticPrefix: "/uploads/thumbnails/", LogStaticFiles: true, LogHealthChecks: true}, false},
		{"health logged by default", "/healthz", DefaultLoggingConfig(), false},
		{"health skipped when disabled", "/healthz",
			LoggingConfig{StaticPrefix: "/uploads/thumbnails/", LogHealthChecks: false}, true},
		{"explicit skip path", "/metrics",
			LoggingConfig{SkipPaths: []string{"/metrics"}, LogHealthChecks: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldSkip(tt.path, tt.config); got != tt.want {
				t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"line\nbreak", "line break"},
		{"cr\r\nlf", "cr  lf"},
		{"nul\x00byte", "nulbyte"},
		{"\x1b[31mred", "[31mred"},
		{"tab\there", "tab\there"},
		{"del\x7f", "del"},
	}

	for _, tt := range tests {
		if got := sanitizeLogField(tt.in); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.1.1.1:80", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.1.1.1:80", "10.0.0.9"},
		{"remote addr", nil, "192.168.1.5:51234", "192.168.1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := getClientIP(r); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatW3C(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/clips/upload?x=1", nil)
	r.RemoteAddr = "10.1.2.3:4444"
	r.Header.Set("X-User-ID", "7")
	r.Header.Set("User-Agent", `curl "test"`)

	rw := newStatusRecorder(httptest.NewRecorder())
	rw.WriteHeader(http.StatusCreated)
	_, _ = rw.Write([]byte("{}"))

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	got := formatW3C(now, r, rw, 1500*time.Millisecond)
	want := `2026-03-04 05:06:07 10.1.2.3 7 POST /api/clips/upload x=1 201 2 1500 "curl ""test""" -`

	if got != want {
		t.Errorf("formatW3C() =\n  %s\nwant\n  %s", got, want)
	}
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/clips/3", nil))
	if !strings.Contains(buf.String(), "GET /api/clips/3 - 418") {
		t.Errorf("log line missing request: %q", buf.String())
	}

	buf.Reset()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/uploads/thumbnails/3_thumb_sm.jpg", nil))
	if buf.Len() != 0 {
		t.Errorf("thumbnail request should not be logged: %q", buf.String())
	}
}

func counterValue(t *testing.T, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.HTTPRequestsTotal.WithLabelValues(labels...).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Metrics(DefaultMetricsConfig()))
	r.HandleFunc("/api/clips/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodGet)
	r.PathPrefix("/uploads/thumbnails/").Handler(http.NotFoundHandler())

	before := counterValue(t, "GET", "/api/clips/{id}", "404")
	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/clips/"+id, nil))
	}
	if got := counterValue(t, "GET", "/api/clips/{id}", "404") - before; got != 3 {
		t.Errorf("requests recorded under route template = %v, want 3", got)
	}

	before = counterValue(t, "GET", "/uploads/thumbnails/{file}", "404")
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/uploads/thumbnails/9_thumb_lg.jpg", nil))
	if got := counterValue(t, "GET", "/uploads/thumbnails/{file}", "404") - before; got != 1 {
		t.Errorf("thumbnail requests recorded = %v, want 1", got)
	}

	before = counterValue(t, "GET", "/healthz", "200")
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := counterValue(t, "GET", "/healthz", "200") - before; got != 0 {
		t.Errorf("health check recorded %v times, want 0", got)
	}
}

func TestRouteLabelUnmatched(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/nope", nil)
	if got := routeLabel(r, "/uploads/thumbnails/"); got != "unmatched" {
		t.Errorf("routeLabel() = %q, want unmatched", got)
	}
}
