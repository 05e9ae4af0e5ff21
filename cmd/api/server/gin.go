package server

import (
	"net/http"
	"time"

	ginhandler "traced-user-service/internal/adapter/gin/handler"
	ginrouter "traced-user-service/internal/adapter/gin/router"

	"go.uber.org/zap"
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(handler *ginhandler.UserHandler, opts ginrouter.Options, addr string, l *zap.Logger) *http.Server {
	router := ginrouter.SetupRouter(handler, opts, l)

	l.Info("Gin REST API configured",
		zap.String("address", addr),
		zap.Bool("metrics", opts.Metrics != nil),
		zap.Bool("swagger", opts.Swagger),
	)

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
