// Package server provides the HTTP boundary of the resolver service. Status
// code mapping from taxonomy errors happens here and nowhere else.
package server

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"igresolver/pkg/config"
	"igresolver/pkg/logger"
	"igresolver/pkg/materialize"
	"igresolver/pkg/resolver"
	"igresolver/pkg/session"
)

// PostResolver runs the resolution pipeline for one URL.
type PostResolver interface {
	PostInfo(ctx context.Context, rawURL string) (*resolver.PostInfo, error)
	DownloadPost(ctx context.Context, rawURL string) (*materialize.Asset, error)
}

// SessionReporter exposes the session state for the health endpoint.
type SessionReporter interface {
	State() session.State
	CurrentIdentity(ctx context.Context) (string, error)
}

// Server is the HTTP server wrapping Echo.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger logger.Logger
}

// New builds the Echo server with recovery, request logging and the
// resolver routes.
func New(cfg *config.ServerConfig, res PostResolver, sess SessionReporter, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.InfoWithFields("request", map[string]interface{}{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency,
			})
			return nil
		},
	}))

	if cfg.ReadTimeout > 0 {
		e.Server.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		e.Server.WriteTimeout = cfg.WriteTimeout
	}

	h := &handler{
		resolver: res,
		session:  sess,
		logger:   log.WithField("component", "http"),
	}
	h.register(e)

	return &Server{
		echo:   e,
		addr:   cfg.Addr,
		logger: log,
	}
}

// Start runs the HTTP server; it blocks until shutdown.
func (s *Server) Start() error {
	s.logger.InfoWithFields("http server listening", map[string]interface{}{
		"addr": s.addr,
	})
	return s.echo.Start(s.addr)
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
