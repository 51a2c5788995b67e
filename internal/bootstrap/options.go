package bootstrap

import "github.com/jessevdk/go-flags"

// Options holds all hub configuration options
type Options struct {
	Env         string `long:"env" env:"ENV" description:"Environment"`
	ServiceName string `long:"service-name" env:"SERVICE_NAME" default:"liqhub" description:"Service name"`

	Journal struct {
		BinancePath string `long:"binance-path" env:"BINANCE_PATH" default:"liquidation_ba.csv" description:"Binance journal file"`
		OKXPath     string `long:"okx-path" env:"OKX_PATH" default:"liquidation_okx.csv" description:"OKX journal file"`
	} `group:"journal" namespace:"journal" env-namespace:"JOURNAL"`

	Store struct {
		RetentionHours int `long:"retention-hours" env:"RETENTION_HOURS" default:"48" description:"Rolling window horizon in hours"`
	} `group:"store" namespace:"store" env-namespace:"STORE"`

	HTTP struct {
		Host string `long:"host" env:"HOST" description:"HTTP bind host"`
		Port int    `long:"port" env:"PORT" default:"6680" description:"HTTP port"`
	} `group:"http" namespace:"http" env-namespace:"HTTP"`

	WS struct {
		Host string `long:"host" env:"HOST" description:"WebSocket bind host"`
		Port int    `long:"port" env:"PORT" default:"6681" description:"WebSocket push port"`
	} `group:"ws" namespace:"ws" env-namespace:"WS"`

	Notify struct {
		Redis struct {
			URL     string `long:"url" env:"URL" description:"Redis URL"`
			Channel string `long:"channel" env:"CHANNEL" default:"liquidations" description:"Redis publish channel"`
		} `group:"redis" namespace:"redis" env-namespace:"REDIS"`
	} `group:"notify" namespace:"notify" env-namespace:"NOTIFY"`

	Telemetry TelemetryOptions `group:"telemetry" namespace:"telemetry" env-namespace:"TELEMETRY"`
}

// TelemetryOptions configures the optional DataDog provider. Both hub and
// feeder share the shape.
type TelemetryOptions struct {
	AgentHost     string `long:"agent-host" env:"AGENT_HOST" description:"DataDog agent host"`
	AgentPort     string `long:"agent-port" env:"AGENT_PORT" default:"8126" description:"DataDog trace agent port"`
	EnableTracing bool   `long:"enable-tracing" env:"ENABLE_TRACING" description:"Enable DataDog tracing"`
	EnableMetrics bool   `long:"enable-metrics" env:"ENABLE_METRICS" description:"Enable DataDog metrics"`
}

// ParseOptions parses command line arguments and environment variables
func ParseOptions() (*Options, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}
	return &opts, nil
}
