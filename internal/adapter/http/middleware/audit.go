package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuditLog records every successful ledger write on the audit logger.
func AuditLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		action := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		log.Info().
			Str("action", action).
			Str("resource", c.Param("id")).
			Str("client", c.GetString(CtxClient)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Int("status", c.Writer.Status()).
			Msg("ledger write")
	}
}

func mapRouteToAction(route, method string) string {
	if method != "POST" {
		return ""
	}
	switch route {
	case "/api/v1/messages":
		return "submit_message"
	case "/api/v1/messages/:id/promote":
		return "promote_message"
	case "/api/v1/dev/faucet":
		return "faucet"
	case "/api/v1/dev/messages/:id/state":
		return "set_state"
	}
	return ""
}
