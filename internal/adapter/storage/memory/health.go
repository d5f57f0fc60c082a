package memory

import "context"

// HealthCheck implements ports.HealthChecker for the memory store.
type HealthCheck struct{}

// NewHealthCheck creates a memory store health checker.
func NewHealthCheck() *HealthCheck {
	return &HealthCheck{}
}

// Ping always succeeds while the process is alive.
func (h *HealthCheck) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "memory"
}
