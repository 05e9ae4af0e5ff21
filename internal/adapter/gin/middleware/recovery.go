package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"traced-user-service/pkg/logger"
)

// Recovery turns a panic in any later handler into a 500 response and logs
// the stack. The panic is also recorded on the active span.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// a client that went away cannot be answered
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			ctx := c.Request.Context()
			logger.WithContext(ctx, log).Error("panic recovered",
				zap.Any("panic", rec),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.ByteString("stack", debug.Stack()),
			)

			span := trace.SpanFromContext(ctx)
			span.AddEvent("panic", trace.WithAttributes(attribute.String("panic.value", fmt.Sprint(rec))))
			span.SetStatus(codes.Error, "panic recovered")

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":  "internal_error",
				"detail": "internal server error",
			})
		}()

		c.Next()
	}
}
