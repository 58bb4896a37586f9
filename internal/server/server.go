// Package server exposes the catalog over HTTP: the OData service
// document, the EDMX metadata document and one Atom feed per collection,
// plus liveness and Prometheus endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zodata/odata-serve/internal/catalog"
	"github.com/zodata/odata-serve/internal/constants"
	"github.com/zodata/odata-serve/internal/metrics"
)

type Options struct {
	// Addr is the listen address, host optional.
	Addr string
	// BasePath mounts the OData routes under a path prefix.
	BasePath string
	// BaseURL fixes the public base URL advertised in documents. Empty
	// means derive it from each request's Host header.
	BaseURL string
}

type Server struct {
	svc      *catalog.Service
	baseURL  string
	basePath string
	engine   *gin.Engine
	http     *http.Server
}

func New(svc *catalog.Service, opts Options) *Server {
	addr := opts.Addr
	if addr == "" {
		addr = constants.DefaultAddr
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), metrics.Middleware())

	s := &Server{
		svc:      svc,
		baseURL:  opts.BaseURL,
		basePath: normalizeBasePath(opts.BasePath),
		engine:   engine,
	}
	s.routes()

	s.http = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	group := s.engine.Group(s.basePath)
	group.GET("", s.handleService)
	if s.basePath != "/" {
		group.GET("/", s.handleService)
	}
	// $metadata dispatches inside the collection handler: it occupies
	// the same path segment as collection addresses.
	group.GET("/:collection", s.handleCollection)
}

// Handler exposes the routed engine, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until the context is canceled, then drains with a timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("OData server listening", "addr", s.http.Addr, "base_path", s.basePath)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// serviceFor resolves the catalog view for one request. With a fixed
// base URL the registered service is shared; otherwise the URL comes
// from the request's scheme and host.
func (s *Server) serviceFor(r *http.Request) *catalog.Service {
	if s.baseURL != "" {
		return s.svc.WithBaseURL(s.baseURL)
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	base := scheme + "://" + r.Host + s.basePath
	return s.svc.WithBaseURL(strings.TrimSuffix(base, "/"))
}

func normalizeBasePath(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
