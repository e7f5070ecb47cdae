// Package devserver serves the build output during development and tells
// connected browsers to reload after each rebuild.
package devserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	httpmiddleware "github.com/wolfeidau/bundlr/internal/http"
)

type Config struct {
	Listen string
	// Directory served as static files.
	Directory string
	// PublicPath is the URL prefix the directory is served under; empty means "/".
	PublicPath  string
	CORSOrigins []string
	LiveReload  bool
}

type Server struct {
	cfg     Config
	logger  zerolog.Logger
	hub     *hub
	handler http.Handler
}

func New(cfg Config, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		hub:    newHub(cfg.CORSOrigins, logger),
	}
	s.handler = s.routes()

	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	prefix := StaticPrefix(s.cfg.PublicPath)
	var static http.Handler = http.FileServer(http.Dir(s.cfg.Directory))
	if prefix != "/" {
		static = http.StripPrefix(strings.TrimSuffix(prefix, "/"), static)
	}
	mux.Handle(prefix, gzhttp.GzipHandler(static))

	if s.cfg.LiveReload {
		mux.Handle(ReloadPath, s.hub)
	}

	var handler http.Handler = mux
	if len(s.cfg.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead},
		}).Handler(handler)
	}

	handler = httpmiddleware.NoCache()(handler)
	handler = httpmiddleware.RequestLogger(s.logger)(handler)

	return httpmiddleware.ClientIPMiddleware()(handler)
}

// StaticPrefix turns a public path such as "", "/" or "static" into a mux pattern.
func StaticPrefix(publicPath string) string {
	trimmed := strings.Trim(publicPath, "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + trimmed + "/"
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Reload tells every connected browser to reload and returns how many were notified.
func (s *Server) Reload() int {
	if !s.cfg.LiveReload {
		return 0
	}

	n := s.hub.broadcast()
	s.logger.Debug().Int("clients", n).Msg("Sent live reload")
	return n
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}

	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := configureHTTPServer(ln.Addr().String(), s.handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info().
		Str("addr", "http://"+ln.Addr().String()+StaticPrefix(s.cfg.PublicPath)).
		Str("dir", s.cfg.Directory).
		Bool("live_reload", s.cfg.LiveReload).
		Msg("Dev server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
