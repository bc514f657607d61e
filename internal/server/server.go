// Package server is the HTTP face of the catalog: a JSON API for a browser
// page plus streaming of the uploaded media.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/sirupsen/logrus"

	"github.com/treefix50/reelshelf/internal/catalog"
	"github.com/treefix50/reelshelf/internal/controller"
	"github.com/treefix50/reelshelf/internal/metrics"
)

const (
	errInternal = "internal error"

	defaultMaxUploadBytes = 8 << 30
)

// Catalog is what the API needs from the controller.
type Catalog interface {
	Home(query string) []catalog.Entry
	Library(query string) []catalog.Entry
	Get(id string) (catalog.Entry, error)
	CreateFromUpload(ctx context.Context, u controller.Upload) (catalog.Entry, error)
	DeleteEntry(ctx context.Context, id string)
	OpenSession(id string) (controller.Session, error)
	RecordTick(token string, seq uint64, seconds float64) error
	CloseSession(ctx context.Context, token string)
	Relink(ctx context.Context, id, path string) (catalog.Entry, error)
}

// MediaResolver maps a media reference to the file behind it.
type MediaResolver interface {
	Resolve(ref string) (string, bool)
}

type Options struct {
	Addr           string
	UploadDir      string
	CORS           bool
	UploadRate     float64
	UploadBurst    int
	MaxUploadBytes int64
	Logger         *logrus.Logger
	Metrics        *metrics.Metrics
}

type Server struct {
	addr      string
	catalog   Catalog
	media     MediaResolver
	uploadDir string
	maxUpload int64
	cors      bool
	limiter   *RateLimiter
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	handler   http.Handler
	http      *http.Server
}

func New(cat Catalog, media MediaResolver, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.UploadDir == "" {
		return nil, errors.New("server: upload dir is required")
	}
	if err := os.MkdirAll(opts.UploadDir, 0o755); err != nil {
		return nil, err
	}

	s := &Server{
		addr:      opts.Addr,
		catalog:   cat,
		media:     media,
		uploadDir: opts.UploadDir,
		maxUpload: opts.MaxUploadBytes,
		cors:      opts.CORS,
		limiter:   NewRateLimiter(opts.UploadRate, opts.UploadBurst),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}

	api := http.NewServeMux()
	api.HandleFunc("/health", s.handleHealth)
	api.HandleFunc("/genres", s.handleGenres)
	api.HandleFunc("/entries", s.handleEntries)
	api.HandleFunc("/entries/", s.handleEntry)

	mux := http.NewServeMux()
	mux.Handle("/", gzhttp.GzipHandler(api))
	// media is already compressed and served with ranges
	mux.HandleFunc("/media/", s.handleMedia)
	mux.Handle("/metrics", opts.Metrics.Handler())

	s.handler = logMiddleware(mux, opts.Logger, opts.CORS)
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler is the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Start() error { return s.http.ListenAndServe() }

func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", textContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	if s.handleOptions(w, r, "GET, OPTIONS") {
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	writeJSON(w, r, catalog.Genres)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter) {
	s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}

// writeCatalogError maps controller errors onto status codes.
func (s *Server) writeCatalogError(w http.ResponseWriter, err error) {
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		w.Header().Set("Content-Type", jsonContentType)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(errorBody{Error: verr.Error(), Field: verr.Field})
	case catalog.IsProbe(err):
		s.writeError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, catalog.ErrNotFound):
		s.writeError(w, "entry not found", http.StatusNotFound)
	case errors.Is(err, catalog.ErrStaleTick):
		s.writeError(w, "stale progress tick", http.StatusConflict)
	default:
		s.logger.WithError(err).Error("Request failed")
		s.writeError(w, errInternal, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	writeJSONStatus(w, r, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// splitPath cuts /prefix/a/b into [a b].
func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
