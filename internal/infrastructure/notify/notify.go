// Package notify publishes appended events to external sinks. Delivery is
// best-effort and at-most-once, matching the fanout broker's contract.
package notify

import (
	"context"

	"github.com/liqwatch/liqhub/internal/domain"
)

// Publisher pushes one event to an external sink.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
