// Package server is the development content server. It serves view
// templates and feed documents from a content tree and pages feeds for
// clients running with feeds.mode=remote:
//
//	GET /views/{view}.txt
//	GET /data/{feed}.json
//	GET /api/feeds
//	GET /api/feeds/{name}?cursor=&limit=
//	GET /healthz
//	GET /metrics
package server

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/feedview/internal/content"
	"github.com/Iron-Ham/feedview/internal/errors"
	"github.com/Iron-Ham/feedview/internal/logging"
	"github.com/Iron-Ham/feedview/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Addr string
	// Dir is the content directory on disk. Empty serves the embedded content.
	Dir string
	// RateLimit is requests per second per client (0 = unlimited).
	RateLimit float64
	Burst     int
	// Watch drops cached feed documents when they change under Dir.
	Watch bool
	// PageSize is used when a page request has no limit.
	PageSize int
}

// Server serves a content tree over HTTP.
type Server struct {
	opts    Options
	fs      afero.Fs
	logger  *logging.Logger
	index   *Index
	limiter *RateLimiter
	router  *mux.Router
}

// New creates a server over opts.Dir, or the embedded content.
func New(opts Options, logger *logging.Logger) *Server {
	return NewWithFs(content.Dir(opts.Dir), opts, logger)
}

// NewWithFs creates a server over fsys, laid out like the embedded content.
func NewWithFs(fsys afero.Fs, opts Options, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	s := &Server{
		opts:   opts,
		fs:     fsys,
		logger: logger,
		index:  NewIndex(fsys, "/data"),
	}
	if opts.RateLimit > 0 {
		s.limiter = NewRateLimiter(opts.RateLimit, opts.Burst, logger)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(metrics.InstrumentHandler)
	if s.limiter != nil {
		r.Use(s.limiter.Handler)
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/views/{view:[A-Za-z0-9_-]+}.txt", s.handleView).Methods(http.MethodGet)
	r.HandleFunc("/data/{feed:[A-Za-z0-9_-]+}.json", s.handleData).Methods(http.MethodGet)
	r.HandleFunc("/api/feeds", s.handleListFeeds).Methods(http.MethodGet)
	r.HandleFunc("/api/feeds/{name:[A-Za-z0-9_-]+}", s.handleFeedPage).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Index returns the feed document index.
func (s *Server) Index() *Index {
	return s.index
}

// Run serves on opts.Addr until ctx is done. With Watch set and a content
// directory configured, feed documents are reloaded when they change.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg conc.WaitGroup
	if s.opts.Watch && s.opts.Dir != "" {
		w, err := NewWatcher(filepath.Join(s.opts.Dir, "data"), s.index, s.logger)
		if err != nil {
			s.logger.Warn("content watch disabled", "error", err)
		} else {
			wg.Go(func() { w.Run(ctx) })
		}
	}
	wg.Go(func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("content server shutdown", "error", err)
		}
	})

	s.logger.Info("content server listening", "addr", s.opts.Addr, "dir", s.opts.Dir)
	err := srv.ListenAndServe()
	cancel()
	wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["view"]
	data, err := afero.ReadFile(s.fs, "/views/"+id+".txt")
	if err != nil {
		s.writeReadError(w, "view", id, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["feed"]
	data, err := afero.ReadFile(s.fs, "/data/"+name+".json")
	if err != nil {
		s.writeReadError(w, "feed", name, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleListFeeds(w http.ResponseWriter, _ *http.Request) {
	names, err := s.index.Names()
	if err != nil {
		s.logger.Error("list feeds failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list feeds")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"feeds": names})
}

func (s *Server) handleFeedPage(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	q := r.URL.Query()

	limit := s.opts.PageSize
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}

	page, err := s.index.Page(name, q.Get("cursor"), limit)
	if err != nil {
		var nf *errors.NotFoundError
		var ve *errors.ValidationError
		switch {
		case errors.As(err, &nf):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &ve):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("feed page failed", "feed", name, "error", err)
			writeError(w, http.StatusInternalServerError, "could not load feed")
		}
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) writeReadError(w http.ResponseWriter, kind, id string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, errors.NewNotFoundError(kind, id).Error())
		return
	}
	s.logger.Error("content read failed", "kind", kind, "id", id, "error", err)
	writeError(w, http.StatusInternalServerError, "could not read "+kind)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
