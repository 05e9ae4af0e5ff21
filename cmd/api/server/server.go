package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"traced-user-service/cmd/api/di"
	"traced-user-service/internal/adapter/gin/router"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server owns the HTTP listener.
type Server struct {
	Logger *zap.Logger
	HTTP   *http.Server
}

// New builds the HTTP server from the container's components.
func New(c *di.Container, l *zap.Logger) *Server {
	if c.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	opts := router.Options{
		TracerProvider: c.TracerProvider,
		Swagger:        c.Config.App.SwaggerEnabled,
	}
	if c.Metrics != nil {
		opts.Metrics = c.Metrics
		opts.Gatherer = c.Registry
	}

	return &Server{
		Logger: l,
		HTTP:   SetupGinServer(c.GinHandler, opts, ":"+c.Config.App.HTTPPort, l),
	}
}

// Start listens on the configured address and serves until Shutdown.
// A clean shutdown returns nil.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.HTTP.Addr, err)
	}
	return s.Serve(lis)
}

// Serve serves on an existing listener.
func (s *Server) Serve(lis net.Listener) error {
	s.Logger.Info("HTTP server running", zap.String("address", lis.Addr().String()))
	if err := s.HTTP.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.HTTP.Shutdown(ctx)
}
