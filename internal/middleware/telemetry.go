package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware wraps otelgin and tags the server span with the caller
// and the paging parameters
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	base := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if userID := util.OptionalUserID(c); userID != "" {
			span.SetAttributes(attribute.String("user.id", userID))
		}
		if requestID := RequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
		for _, param := range []string{"limit", "offset", "skip"} {
			if v := c.Query(param); v != "" {
				span.SetAttributes(attribute.String("query."+param, v))
			}
		}
		for _, ginErr := range c.Errors {
			if ginErr.Err != nil {
				span.RecordError(ginErr.Err)
				span.SetStatus(codes.Error, ginErr.Error())
			}
		}
	}
}
