package telemetry

import (
	"context"
	"time"
)

// NoopProvider is the default provider when no agent is configured.
type NoopProvider struct{}

// NewNoopProvider creates a new NoopProvider
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// Initialize does nothing
func (np *NoopProvider) Initialize(_ context.Context) error { return nil }

// Shutdown does nothing
func (np *NoopProvider) Shutdown() {}

// StartSpan returns a no-op span
func (np *NoopProvider) StartSpan(ctx context.Context, _ string) (Span, context.Context) {
	return &noopSpan{}, ctx
}

// IncrementCounter does nothing
func (np *NoopProvider) IncrementCounter(_ string, _ int64, _ ...string) {}

// Gauge does nothing
func (np *NoopProvider) Gauge(_ string, _ float64, _ ...string) {}

// Timing does nothing
func (np *NoopProvider) Timing(_ string, _ time.Duration, _ ...string) {}
