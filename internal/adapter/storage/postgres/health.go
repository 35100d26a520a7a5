package postgres

import (
	"context"
	"fmt"
)

// HealthCheck probes the wallet database through the kv_store table, which
// also catches a pool pointed at an unmigrated database.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	var populated bool
	if err := h.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM kv_store)").Scan(&populated); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgres"
}
