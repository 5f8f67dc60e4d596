// Package preview serves a generated site locally while the watcher keeps it
// up to date.
package preview

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/formulary/internal/foundation/errors"
	"git.home.luguber.info/inful/formulary/internal/logfields"
	"git.home.luguber.info/inful/formulary/internal/watch"
)

const (
	// StatusPath reports watcher state as JSON.
	StatusPath = "/_status"
	// ShutdownTimeout bounds how long in-flight requests may run after shutdown starts.
	ShutdownTimeout = 5 * time.Second
)

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".svg":  "image/svg+xml",
}

// StatusSource supplies the watcher snapshot reported on the status endpoint.
type StatusSource interface {
	Snapshot() watch.Snapshot
}

// Options configures a Server.
type Options struct {
	Root        string
	Host        string
	Port        int
	Status      StatusSource
	Metrics     http.Handler
	MetricsPath string
	Logger      *slog.Logger
}

// Server is the local preview HTTP server.
type Server struct {
	opts    Options
	logger  *slog.Logger
	adapter *errors.HTTPErrorAdapter
	handler http.Handler
}

// New builds a preview server and its handler tree.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		opts:    opts,
		logger:  logger,
		adapter: errors.NewHTTPErrorAdapter(logger),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(chain(logger, s.adapter))

	router.Get(StatusPath, s.handleStatus)
	if opts.Metrics != nil && opts.MetricsPath != "" {
		router.Handle(opts.MetricsPath, opts.Metrics)
	}
	router.Handle("/*", s.siteHandler())
	s.handler = router
	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// Listen binds the configured address.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.Addr())
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryServer, "bind preview server").
			WithContext("addr", s.Addr()).
			Fatal().
			Build()
	}
	return ln, nil
}

// Serve handles requests on ln until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("Preview server listening", logfields.Addr(ln.Addr().String()))

	select {
	case err := <-errCh:
		if err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			return errors.WrapError(err, errors.CategoryServer, "preview server failed").Build()
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down preview server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", logfields.Error(err))
		return errors.WrapError(err, errors.CategoryServer, "preview server shutdown").Warning().Build()
	}
	return nil
}

// Run binds and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen(ctx)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Run serves the site and runs the watcher side by side. Either failing
// cancels the other. A nil watcher serves the site as it is.
func Run(ctx context.Context, srv *Server, w *watch.Watcher) error {
	if w == nil {
		return srv.Run(ctx)
	}
	ln, err := srv.Listen(ctx)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx, ln) })
	g.Go(func() error { return w.Run(gctx) })
	return g.Wait()
}

type statusResponse struct {
	Status string          `json:"status"`
	Root   string          `json:"root"`
	Watch  *watch.Snapshot `json:"watch,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Status: "ok", Root: s.opts.Root}
	if s.opts.Status != nil {
		snap := s.opts.Status.Snapshot()
		resp.Watch = &snap
		if snap.LastError != "" {
			resp.Status = "error"
		}
	}
	w.Header().Set("Content-Type", contentTypes[".json"])
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(resp)
}

// siteHandler serves the output directory with explicit content types.
// Nothing is cached so rebuilt pages show up on reload.
func (s *Server) siteHandler() http.Handler {
	files := http.FileServer(http.Dir(s.opts.Root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(s.opts.Root); err != nil {
			s.adapter.WriteErrorResponse(w, r, errors.ServerError("site has not been built yet").
				WithContext("root", s.opts.Root).
				Build())
			return
		}
		if ct := contentTypeFor(r.URL.Path); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		files.ServeHTTP(w, r)
	})
}

func contentTypeFor(urlPath string) string {
	if urlPath == "" || strings.HasSuffix(urlPath, "/") {
		return contentTypes[".html"]
	}
	return contentTypes[strings.ToLower(filepath.Ext(urlPath))]
}
