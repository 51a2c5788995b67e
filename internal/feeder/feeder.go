// Package feeder runs the exchange-stream → threshold → journal pipeline.
// One feeder process serves one exchange; the hub never talks to it
// directly, they share only the journal file.
package feeder

import (
	"context"

	"go.uber.org/zap"

	"github.com/liqwatch/liqhub/internal/domain"
	"github.com/liqwatch/liqhub/internal/infrastructure/exchanges"
	"github.com/liqwatch/liqhub/internal/infrastructure/telemetry"
	"github.com/liqwatch/liqhub/internal/journal"
)

// Feeder subscribes to one exchange feed and journals every event at or
// above the notional threshold.
type Feeder struct {
	exchange  exchanges.Exchange
	journal   *journal.Journal
	threshold float64
	telemetry telemetry.Provider
	logger    *zap.Logger
}

// New creates a feeder. A threshold of zero falls back to the default.
func New(exchange exchanges.Exchange, j *journal.Journal, threshold float64, tele telemetry.Provider, logger *zap.Logger) *Feeder {
	if threshold <= 0 {
		threshold = domain.DefaultThreshold
	}
	if tele == nil {
		tele = telemetry.NewNoopProvider()
	}
	return &Feeder{
		exchange:  exchange,
		journal:   j,
		threshold: threshold,
		telemetry: tele,
		logger:    logger.With(zap.String("feed", exchange.GetName())),
	}
}

// Run consumes the stream until the context is canceled. Per-event failures
// are logged and counted, never fatal.
func (f *Feeder) Run(ctx context.Context) error {
	f.logger.Info("starting feed",
		zap.Float64("threshold", f.threshold),
		zap.String("journal", f.journal.Path()))

	events, errs := f.exchange.SubscribeLiquidations(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			f.telemetry.IncrementCounter(telemetryFeedErrors, 1)
			f.logger.Warn("feed error", zap.Error(err))

		case e, ok := <-events:
			if !ok {
				f.logger.Info("feed closed")
				return nil
			}
			f.handle(e)
		}
	}
}

func (f *Feeder) handle(e domain.Event) {
	f.telemetry.IncrementCounter(telemetryEventsReceived, 1)

	if e.Amount < f.threshold {
		f.telemetry.IncrementCounter(telemetryEventsFiltered, 1)
		return
	}

	if err := f.journal.Append(e); err != nil {
		// The event is lost; the feed keeps running.
		f.telemetry.IncrementCounter(telemetryJournalErrors, 1)
		f.logger.Error("journal append failed", zap.Error(err))
		return
	}

	f.telemetry.IncrementCounter(telemetryEventsJournaled, 1)
	f.logger.Debug("journaled",
		zap.String("symbol", e.Symbol),
		zap.String("direction", string(e.Direction)),
		zap.Float64("amount", e.Amount))
}
