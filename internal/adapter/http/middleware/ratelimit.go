package middleware

import (
	"fmt"
	"strconv"
	"time"

	"ledger-wallet/internal/core/ports"
	"ledger-wallet/pkg/apperror"
	"ledger-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule caps requests per window for one endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the node API limits per endpoint group.
// Wallet sync is read heavy, so reads get the widest budget.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"read":   {Limit: 1200, Window: time.Minute},
		"submit": {Limit: 60, Window: time.Minute},
		"dev":    {Limit: 30, Window: time.Minute},
	}
}

// RateLimit counts each request against limiter under the caller's identity
// and group. Limiter failures let the request through.
func RateLimit(limiter ports.RateLimiter, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", callerIdentity(c), group)

		decision, err := limiter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limiter unavailable, request allowed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt, 10))
		if decision.Allowed {
			c.Next()
			return
		}

		wait := decision.ResetAt - time.Now().Unix()
		if wait < 1 {
			wait = 1
		}
		c.Header("Retry-After", strconv.FormatInt(wait, 10))
		response.Error(c, apperror.ErrRateLimitExceeded())
		c.Abort()
	}
}

// callerIdentity is the authenticated client, or the remote IP for
// anonymous nodes.
func callerIdentity(c *gin.Context) string {
	if client := c.GetString(CtxClient); client != "" {
		return client
	}
	return c.ClientIP()
}
