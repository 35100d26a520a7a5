package handler

import (
	"ledger-wallet/internal/adapter/http/middleware"
	"ledger-wallet/internal/adapter/nodesim"
	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Ledger         *nodesim.Ledger
	TokenSvc       ports.TokenService // nil = bearer auth disabled
	BasicAuth      *domain.NodeAuth   // nil = basic auth disabled
	DevRoutes      bool               // faucet and state overrides
	RateLimiter    ports.RateLimiter  // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit
	r.Use(middleware.AuditLog(deps.Logger.With().Str("component", "audit").Logger()))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	registerDocs(r, "/swagger", nodeAPISpec)

	rules := middleware.DefaultRateLimitRules()

	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimiter == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(deps.RateLimiter, group, rule, deps.Logger)
	}

	nodeHandler := NewNodeHandler(deps.Ledger)
	v1 := r.Group("/api/v1", middleware.NodeAuth(deps.TokenSvc, deps.BasicAuth, deps.Logger))
	{
		v1.GET("/addresses/:address/outputs", rl("read"), nodeHandler.AddressOutputs)
		v1.GET("/outputs/:id", rl("read"), nodeHandler.Output)
		v1.GET("/messages/:id", rl("read"), nodeHandler.Message)
		v1.GET("/messages/:id/metadata", rl("read"), nodeHandler.MessageMetadata)
		v1.POST("/messages", rl("submit"), nodeHandler.SubmitMessage)
		v1.POST("/messages/:id/promote", rl("submit"), nodeHandler.PromoteMessage)
	}

	if deps.DevRoutes {
		dev := v1.Group("/dev")
		{
			dev.POST("/faucet", rl("dev"), nodeHandler.Faucet)
			dev.POST("/messages/:id/state", rl("dev"), nodeHandler.SetState)
		}
	}

	return r
}
