package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderUserID carries the caller's directory id, set by the authenticating proxy.
	HeaderUserID = "X-User-ID"
	// HeaderCorrelationID is echoed back and stamped on emitted events.
	HeaderCorrelationID = "X-Correlation-ID"

	callerKey = "roomkeeper.caller"
)

// requestContext attaches request and correlation ids to the request context.
// A correlation id that is not a UUID is replaced.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderCorrelationID)
		if _, err := uuid.Parse(correlationID); err != nil {
			correlationID = ""
		}
		ctx := observability.NewRequestContext(c.Request.Context(), correlationID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderCorrelationID, observability.CorrelationIDFromContext(ctx))
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			observability.DurationKey, time.Since(start).Milliseconds(),
		)
	}
}

// requireCaller rejects requests without a numeric X-User-ID.
func requireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(strings.TrimSpace(c.GetHeader(HeaderUserID)), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: ErrorBody{
				Code:    "unauthenticated",
				Message: "missing or invalid " + HeaderUserID + " header",
			}})
			return
		}
		c.Set(callerKey, id)
		ctx := observability.WithUserID(c.Request.Context(), strconv.FormatInt(id, 10))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func callerID(c *gin.Context) int64 {
	return c.GetInt64(callerKey)
}

// requireCronSecret guards trigger routes with a shared bearer token.
// An empty secret disables the check.
func requireCronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: ErrorBody{
				Code:    "unauthenticated",
				Message: "invalid cron secret",
			}})
			return
		}
		c.Next()
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
