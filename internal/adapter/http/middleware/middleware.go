package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
	"ledger-wallet/pkg/apperror"
	"ledger-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxRequestID = response.RequestIDKey
	CtxClient    = "client"
)

// NodeAuth accepts either a bearer JWT issued by tokenSvc or basic
// credentials matching basic. With neither configured every request passes.
func NodeAuth(tokenSvc ports.TokenService, basic *domain.NodeAuth, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenSvc == nil && basic == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		switch {
		case tokenSvc != nil && strings.HasPrefix(authHeader, "Bearer "):
			claims, err := tokenSvc.Validate(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("rejected bearer token")
				break
			}
			c.Set(CtxClient, claims.Subject)
			c.Next()
			return
		case basic != nil:
			user, pass, ok := c.Request.BasicAuth()
			if ok && secureEqual(user, basic.Username) && secureEqual(pass, basic.Password) {
				c.Set(CtxClient, user)
				c.Next()
				return
			}
		}

		response.Error(c, apperror.ErrUnauthorized())
		c.Abort()
	}
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Error(c, apperror.InternalError(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// MaxBodySize limits the request body. Reads past the limit fail and the
// handler's bind error rejects the request.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
