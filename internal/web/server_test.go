package web

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/facelens/internal/config"
	"github.com/kozaktomas/facelens/internal/controller"
	"github.com/kozaktomas/facelens/internal/detector/mock"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Load()
	cfg.Web.AllowedOrigins = []string{"https://faces.example.com"}
	ctrl := controller.New(context.Background(), controller.Options{Detector: mock.New()})
	t.Cleanup(func() { ctrl.Close() })
	return NewServer(cfg, ctrl)
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/config", http.StatusOK},
		{http.MethodGet, "/api/v1/analysis", http.StatusOK},
		{http.MethodGet, "/api/v1/analysis/last", http.StatusNotFound},
		{http.MethodGet, "/api/v1/analysis/fixed", http.StatusOK},
		{http.MethodPost, "/api/v1/analysis/stop", http.StatusOK},
		{http.MethodGet, "/api/v1/comparisons", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/config", http.StatusMethodNotAllowed},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			s.Router().ServeHTTP(recorder, httptest.NewRequest(tc.method, tc.path, nil))
			if recorder.Code != tc.status {
				t.Errorf("expected %d, got %d: %s", tc.status, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestServeUI(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/", "/compare"} {
		recorder := httptest.NewRecorder()
		s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
		if recorder.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, recorder.Code)
		}
		if !strings.HasPrefix(recorder.Header().Get("Content-Type"), "text/html") {
			t.Errorf("%s: expected HTML, got %q", path, recorder.Header().Get("Content-Type"))
		}
		if recorder.Header().Get("X-Frame-Options") != "DENY" {
			t.Errorf("%s: expected security headers", path)
		}
	}

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	if ct := recorder.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/javascript") {
		t.Errorf("expected JavaScript, got %q", ct)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://faces.example.com", true},
		{"http://localhost:5173", true},
		{"https://evil.example.com", false},
	}

	for _, tc := range tests {
		t.Run(tc.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/config", nil)
			req.Header.Set("Origin", tc.origin)
			recorder := httptest.NewRecorder()
			s.Router().ServeHTTP(recorder, req)

			if recorder.Code != http.StatusOK {
				t.Errorf("expected preflight 200, got %d", recorder.Code)
			}
			got := recorder.Header().Get("Access-Control-Allow-Origin") == tc.origin
			if got != tc.allowed {
				t.Errorf("expected allowed=%v, got %v", tc.allowed, got)
			}
		})
	}
}

func TestShutdownEndsEventStreams(t *testing.T) {
	s := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	served := make(chan error, 1)
	go func() { served <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/v1/analysis/events")
	if err != nil {
		t.Fatalf("opening event stream: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil || line != "event: status\n" {
		t.Fatalf("expected initial status event, got %q (%v)", line, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("expected graceful shutdown, got %v", err)
	}

	if _, err := io.ReadAll(reader); err != nil {
		t.Errorf("expected the stream to end cleanly, got %v", err)
	}
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("expected Serve to return nil after shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
}
