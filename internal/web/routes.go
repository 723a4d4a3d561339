package web

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/facelens/internal/web/handlers"
	"github.com/kozaktomas/facelens/internal/web/middleware"
	"github.com/kozaktomas/facelens/internal/web/static"
)

func (s *Server) setupRoutes() {
	// Create handlers
	analysisHandler := handlers.NewAnalysisHandler(s.controller)
	configHandler := handlers.NewConfigHandler(s.controller, s.validate)
	photosHandler := handlers.NewPhotosHandler(s.controller)
	compareHandler := handlers.NewCompareHandler(s.controller, s.validate)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Event streams are long-lived and skip the request timeout
		r.Get("/analysis/events", analysisHandler.Events)
		r.Get("/analysis/ws", analysisHandler.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(5 * time.Minute))

			// Models and configuration
			r.Get("/models", configHandler.Models)
			r.Get("/config", configHandler.Get)
			r.Put("/config", configHandler.Update)

			// Live analysis
			r.Get("/analysis", analysisHandler.Status)
			r.Post("/analysis/start", analysisHandler.Start)
			r.Post("/analysis/stop", analysisHandler.Stop)
			r.Get("/analysis/last", analysisHandler.Last)
			r.Get("/analysis/last/image", analysisHandler.LastImage)
			r.Get("/analysis/fixed", analysisHandler.Fixed)

			// Uploaded photos
			r.Post("/photos/analyze", photosHandler.Analyze)
			r.Post("/photos/annotate", photosHandler.Annotate)

			// Comparisons
			r.Post("/compare/live", compareHandler.Live)
			r.Post("/compare/photos", compareHandler.Photos)
			r.Get("/comparisons", compareHandler.History)
		})
	})

	// Serve the embedded UI
	s.router.With(middleware.SecurityHeaders()).Get("/*", s.serveUI)
}

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".ico":  "image/x-icon",
}

// serveUI serves the embedded single-page UI, falling back to index.html
func (s *Server) serveUI(w http.ResponseWriter, r *http.Request) {
	fs := static.GetFileSystem()
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	f, err := fs.Open(path)
	if err != nil {
		path = "/index.html"
		f, err = fs.Open(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		http.NotFound(w, r)
		return
	}

	contentType := "application/octet-stream"
	if i := strings.LastIndex(path, "."); i >= 0 {
		if ct, ok := contentTypes[path[i:]]; ok {
			contentType = ct
		}
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}
