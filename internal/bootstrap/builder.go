package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/liqwatch/liqhub/internal/api"
	"github.com/liqwatch/liqhub/internal/broker"
	"github.com/liqwatch/liqhub/internal/infrastructure"
	"github.com/liqwatch/liqhub/internal/infrastructure/notify"
	"github.com/liqwatch/liqhub/internal/infrastructure/telemetry"
	"github.com/liqwatch/liqhub/internal/journal"
	"github.com/liqwatch/liqhub/internal/store"
)

// Builder builds the App instance
type Builder struct {
	app *App
	err error
}

// NewBuilder creates a new Builder instance
func NewBuilder() *Builder {
	return &Builder{
		app: &App{},
	}
}

// WithOptionsFetch adds parsed options to the App
func (b *Builder) WithOptionsFetch() *Builder {
	if b.err != nil {
		return b
	}

	opts, err := ParseOptions()
	if err != nil {
		b.err = fmt.Errorf("parsing options: %w", err)
		return b
	}

	b.app.options = opts
	return b
}

// WithOptions injects pre-built options; tests use it.
func (b *Builder) WithOptions(opts *Options) *Builder {
	if b.err != nil {
		return b
	}
	b.app.options = opts
	return b
}

// WithLogger initializes the logger
func (b *Builder) WithLogger() *Builder {
	if b.err != nil {
		return b
	}

	if b.app.options == nil {
		b.err = fmt.Errorf("options must be initialized before logger")
		return b
	}

	logger, err := infrastructure.NewLogger(b.app.options.Env, b.app.options.ServiceName)
	if err != nil {
		b.err = fmt.Errorf("creating logger: %w", err)
		return b
	}

	b.app.logger = logger
	return b
}

// WithTelemetry initializes the telemetry provider; DataDog when an agent
// host is configured, noop otherwise.
func (b *Builder) WithTelemetry() *Builder {
	if b.err != nil {
		return b
	}

	if b.app.options == nil {
		b.err = fmt.Errorf("options must be initialized before telemetry")
		return b
	}

	b.app.telemetry = NewTelemetryProvider(b.app.options.Telemetry, b.app.options.Env, b.app.options.ServiceName)
	return b
}

// WithStore initializes the event store and the fanout broker.
func (b *Builder) WithStore() *Builder {
	if b.err != nil {
		return b
	}

	if b.app.options == nil || b.app.logger == nil {
		b.err = fmt.Errorf("options and logger must be initialized before store")
		return b
	}

	retention := time.Duration(b.app.options.Store.RetentionHours) * time.Hour
	b.app.store = store.New(retention)
	b.app.broker = broker.New(b.app.logger)
	return b
}

// WithTailers initializes one journal tailer per exchange, feeding the
// app's ingest path.
func (b *Builder) WithTailers() *Builder {
	if b.err != nil {
		return b
	}

	if b.app.store == nil {
		b.err = fmt.Errorf("store must be initialized before tailers")
		return b
	}

	b.app.tailers = []*journal.Tailer{
		journal.NewTailer(b.app.options.Journal.BinancePath, b.app, b.app.logger),
		journal.NewTailer(b.app.options.Journal.OKXPath, b.app, b.app.logger),
	}
	return b
}

// WithPublisher initializes the optional Redis publisher.
func (b *Builder) WithPublisher(ctx context.Context) *Builder {
	if b.err != nil {
		return b
	}

	if b.app.options == nil || b.app.logger == nil {
		b.err = fmt.Errorf("options and logger must be initialized before publisher")
		return b
	}

	if b.app.options.Notify.Redis.URL == "" {
		return b
	}

	redisClient, err := infrastructure.NewRedisClient(ctx, b.app.options.Notify.Redis.URL, 1)
	if err != nil {
		b.app.logger.Warn("Failed to initialize Redis publisher", zap.Error(err))
		return b
	}

	channel := fmt.Sprintf("%s:%s", b.app.options.ServiceName, b.app.options.Notify.Redis.Channel)
	b.app.publisher = notify.NewRedisPublisher(redisClient, channel)
	return b
}

// WithServers initializes the HTTP and WebSocket servers.
func (b *Builder) WithServers() *Builder {
	if b.err != nil {
		return b
	}

	if b.app.store == nil || b.app.broker == nil {
		b.err = fmt.Errorf("store and broker must be initialized before servers")
		return b
	}

	b.app.httpSrv = api.NewServer(api.Config{
		Host: b.app.options.HTTP.Host,
		Port: b.app.options.HTTP.Port,
	}, b.app.store, b.app.broker, b.app.logger)
	b.app.wsSrv = api.NewWSServer(b.app.options.WS.Host, b.app.options.WS.Port, b.app.broker, b.app.logger)
	return b
}

// Build returns the built App instance
func (b *Builder) Build() (*App, error) {
	if b.err != nil {
		return nil, b.err
	}

	if b.app.logger == nil ||
		b.app.store == nil ||
		b.app.broker == nil ||
		b.app.httpSrv == nil ||
		b.app.wsSrv == nil ||
		b.app.telemetry == nil ||
		len(b.app.tailers) == 0 {
		return nil, fmt.Errorf("missing required dependencies")
	}

	return b.app, nil
}

// NewTelemetryProvider builds a provider from shared options. The feeder
// binary reuses it.
func NewTelemetryProvider(opts TelemetryOptions, env, service string) telemetry.Provider {
	if opts.AgentHost == "" {
		return telemetry.NewNoopProvider()
	}
	return telemetry.NewDatadogProvider(&telemetry.DatadogConfig{
		AgentHost:     opts.AgentHost,
		AgentPort:     opts.AgentPort,
		ServiceName:   service,
		ServiceEnv:    env,
		EnableTracing: opts.EnableTracing,
		EnableMetrics: opts.EnableMetrics,
	})
}
