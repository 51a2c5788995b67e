// Package exchanges defines the contract feed clients implement.
package exchanges

import (
	"context"

	"github.com/liqwatch/liqhub/internal/domain"
)

// Exchange is a venue that can stream normalized liquidation events.
type Exchange interface {
	// GetName returns the name of the client instance, for logging and
	// telemetry tags.
	GetName() string

	// SubscribeLiquidations maintains a long-lived subscription to the
	// venue's forced-liquidation feed. Both channels are closed when the
	// context is canceled. Events on the data channel are normalized but
	// not yet threshold-filtered.
	SubscribeLiquidations(ctx context.Context) (<-chan domain.Event, <-chan error)
}
