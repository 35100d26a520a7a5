package ports

//go:generate mockgen -source=health.go -destination=mocks/mock_health.go -package=mocks

import "context"

// HealthChecker probes one backing service of the wallet or node simulator.
type HealthChecker interface {
	Ping(ctx context.Context) error
	// Name labels the probe in health reports, e.g. "bolt" or "redis".
	Name() string
}
