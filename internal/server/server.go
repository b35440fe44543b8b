// Package server exposes the written camera files over HTTP for map
// front-ends under development.
package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/osm-cameras/internal/output"
	"github.com/sells-group/osm-cameras/internal/region"
)

// CountryInfo describes one table entry and the state of its file.
type CountryInfo struct {
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Boxes     int        `json:"boxes"`
	File      string     `json:"file"`
	Available bool       `json:"available"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Server serves the region table and country files.
type Server struct {
	table   *region.Table
	layout  output.Layout
	origins []string
}

// New creates a Server. An empty origins list allows any origin.
func New(table *region.Table, layout output.Layout, origins []string) *Server {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{table: table, layout: layout, origins: origins}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-Modified-Since"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/countries", s.handleCountries)
		r.Get("/cameras/{cc}", s.handleCameras)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCountries(w http.ResponseWriter, _ *http.Request) {
	out := make([]CountryInfo, 0, s.table.Len())
	for _, c := range s.table.All() {
		info := CountryInfo{Code: c.Code, Name: c.Name(), Boxes: len(c.Boxes)}
		if p, err := s.layout.Path(c.Code); err == nil {
			info.File = p
			if st, err := os.Stat(p); err == nil && st.Mode().IsRegular() {
				mod := st.ModTime().UTC()
				info.Available = true
				info.UpdatedAt = &mod
			}
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCameras(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "cc")
	c, ok := s.table.Get(code)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown country")
		return
	}
	p, err := s.layout.Path(c.Code)
	if err != nil {
		zap.L().Error("server: resolve path", zap.String("country", c.Code), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "no file for country")
		return
	}

	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "file not written yet")
		return
	}
	if err != nil {
		zap.L().Error("server: open file", zap.String("path", p), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cannot read file")
		return
	}
	defer f.Close() //nolint:errcheck

	st, err := f.Stat()
	if err != nil || !st.Mode().IsRegular() {
		writeError(w, http.StatusInternalServerError, "cannot read file")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
