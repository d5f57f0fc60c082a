package ports

//go:generate mockgen -source=health.go -destination=mocks/health.go -package=mocks

import "context"

// HealthChecker is one backing store reported by GET /health.
type HealthChecker interface {
	// Ping returns nil when the store can serve purchases.
	Ping(ctx context.Context) error
	Name() string
}
