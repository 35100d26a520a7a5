package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const probeTimeout = 2 * time.Second

type probeResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthCheck handles GET /health. Dependencies are probed concurrently and
// any failure turns the node "degraded" with a 503.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()

		var mu sync.Mutex
		results := make(map[string]probeResult, len(checkers))
		var g errgroup.Group
		for _, checker := range checkers {
			checker := checker
			g.Go(func() error {
				res := probeResult{Status: "healthy"}
				if err := checker.Ping(ctx); err != nil {
					res = probeResult{Status: "unhealthy", Error: err.Error()}
				}
				mu.Lock()
				results[checker.Name()] = res
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		status, code := "healthy", http.StatusOK
		for _, res := range results {
			if res.Status != "healthy" {
				status, code = "degraded", http.StatusServiceUnavailable
				break
			}
		}
		c.JSON(code, gin.H{"status": status, "dependencies": results})
	}
}
