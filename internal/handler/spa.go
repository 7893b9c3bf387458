// Package handler contains the HTTP request handlers.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming HTTP request (URL params, query, body)
//  2. Call the service layer with the caller's identity
//  3. Write the HTTP response (status code, headers, JSON body)
//
// Handlers hold no business rules. Ownership checks, validation and
// derived fields all live in the service package.
package handler

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SPAHandler serves the built frontend. Any path that is not a file in the
// build directory gets index.html, so client-side routes like /blog/42
// survive a page reload.
type SPAHandler struct {
	root   fs.FS
	files  http.Handler
	logger *slog.Logger
}

// NewSPAHandler serves dir. It fails fast if dir has no index.html.
func NewSPAHandler(dir string, logger *slog.Logger) (*SPAHandler, error) {
	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		return nil, fmt.Errorf("static dir %q: %w", dir, err)
	}
	root := os.DirFS(dir)
	return &SPAHandler{
		root:   root,
		files:  http.FileServerFS(root),
		logger: logger,
	}, nil
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}

	if info, err := fs.Stat(h.root, name); err == nil && !info.IsDir() {
		h.files.ServeHTTP(w, r)
		return
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		h.logger.Warn("static file lookup failed", slog.String("path", name), slog.String("error", err.Error()))
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFileFS(w, r, h.root, "index.html")
}

// HandleHealth reports that the process is up.
//
// HTTP: GET /health
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleAPINotFound answers unknown /api paths with JSON instead of the
// frontend's index.html.
func HandleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "No route for " + r.Method + " " + r.URL.Path,
	})
}
