// Package bootstrap assembles the hub from its parts and owns its lifecycle.
package bootstrap

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/liqwatch/liqhub/internal/api"
	"github.com/liqwatch/liqhub/internal/broker"
	"github.com/liqwatch/liqhub/internal/domain"
	"github.com/liqwatch/liqhub/internal/infrastructure/notify"
	"github.com/liqwatch/liqhub/internal/infrastructure/telemetry"
	"github.com/liqwatch/liqhub/internal/journal"
	"github.com/liqwatch/liqhub/internal/store"
)

// pruneInterval is the periodic eviction cadence.
const pruneInterval = 30 * time.Second

// publishTimeout bounds one external publish.
const publishTimeout = 5 * time.Second

// App represents the bootstrapped hub
type App struct {
	logger    *zap.Logger
	store     *store.EventStore
	broker    *broker.FanoutBroker
	tailers   []*journal.Tailer
	httpSrv   *api.Server
	wsSrv     *api.WSServer
	publisher notify.Publisher
	telemetry telemetry.Provider
	options   *Options
}

// Store exposes the event store, for tests.
func (a *App) Store() *store.EventStore { return a.store }

// Ingest is the single write path into the hub: append to the store, fan
// out, and publish. The journal tailers are its only callers.
func (a *App) Ingest(e domain.Event) {
	stored := a.store.Append(e)
	a.broker.Notify(stored)
	a.telemetry.IncrementCounter("hub.events.ingested", 1)

	if a.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := a.publisher.Publish(ctx, stored); err != nil {
			a.telemetry.IncrementCounter("hub.publish.errors", 1)
			a.logger.Warn("publishing event", zap.Error(err))
		}
	}
}

// Run starts the tailers, the pruner and both servers, and blocks until the
// context is canceled or a server fails. A bind failure propagates out so
// the process can exit nonzero.
func (a *App) Run(ctx context.Context) error {
	if err := a.telemetry.Initialize(ctx); err != nil {
		a.logger.Warn("initializing telemetry", zap.Error(err))
	}
	defer a.telemetry.Shutdown()

	g, ctx := errgroup.WithContext(ctx)

	for _, t := range a.tailers {
		t := t
		g.Go(func() error {
			t.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		a.runPruner(ctx)
		return nil
	})

	g.Go(a.httpSrv.ListenAndServe)
	g.Go(a.wsSrv.ListenAndServe)

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.httpSrv.Shutdown(shutdownCtx)
		a.wsSrv.Shutdown(shutdownCtx)
		return nil
	})

	return g.Wait()
}

func (a *App) runPruner(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.store.Prune(time.Now().In(domain.EventTZ))
			a.telemetry.Gauge("hub.store.size", float64(a.store.Len()))
		}
	}
}
