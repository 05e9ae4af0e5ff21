package router

import (
	"traced-user-service/api/swagger"
	"traced-user-service/internal/adapter/gin/handler"
	"traced-user-service/internal/adapter/gin/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Options selects the optional parts of the router.
type Options struct {
	TracerProvider trace.TracerProvider
	// Metrics and Gatherer enable request metrics and GET /metrics when both are set.
	Metrics  *middleware.Metrics
	Gatherer prometheus.Gatherer
	Swagger  bool
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(userHandler *handler.UserHandler, opts Options, log *zap.Logger) *gin.Engine {
	router := gin.New()

	// Global middleware. Recovery sits inside tracing, metrics and logging so
	// a recovered panic is still observed as a 500.
	router.Use(middleware.RequestID())
	router.Use(middleware.Tracing(middleware.TracingConfig{
		TracerProvider: opts.TracerProvider,
		SkipPaths:      []string{"/metrics"},
	}))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Handler())
	}
	router.Use(middleware.Logger(log, "/health", "/metrics"))
	router.Use(middleware.Recovery(log))

	router.GET("/health", handler.Health)

	users := router.Group("/users")
	{
		users.GET("", userHandler.ListUsers)
		users.POST("", userHandler.CreateUser)
		users.GET("/:id", userHandler.GetUser)
	}

	if opts.Metrics != nil && opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if opts.Swagger {
		swagger.Register(router, "/swagger")
	}

	return router
}
