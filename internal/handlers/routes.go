package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// RouterConfig controls routes that depend on deployment settings.
type RouterConfig struct {
	// ThumbnailDir is served read-only under "/" + ThumbnailURLPrefix + "/".
	ThumbnailDir       string
	ThumbnailURLPrefix string
	Middleware         []mux.MiddlewareFunc
}

// NewRouter registers every API route on a new router.
func NewRouter(h *Handlers, config RouterConfig) *mux.Router {
	r := mux.NewRouter()
	r.Use(config.Middleware...)

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api/clips").Subrouter()
	api.HandleFunc("/upload", h.UploadClip).Methods("POST")
	api.HandleFunc("/{id:[0-9]+}", h.GetClip).Methods("GET")
	api.HandleFunc("/{id:[0-9]+}", h.DeleteClip).Methods("DELETE")
	api.HandleFunc("/{id:[0-9]+}/thumbnail", h.ReprocessThumbnail).Methods("POST")

	if config.ThumbnailDir != "" {
		prefix := "/" + strings.Trim(config.ThumbnailURLPrefix, "/") + "/"
		r.PathPrefix(prefix).Methods("GET", "HEAD").Handler(
			http.StripPrefix(prefix, noDirListing(http.FileServer(http.Dir(config.ThumbnailDir)))),
		)
	}

	return r
}

// noDirListing hides directory indexes of the thumbnail directory.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
