package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/liqwatch/liqhub/internal/bootstrap"
	"github.com/liqwatch/liqhub/internal/feeder"
	"github.com/liqwatch/liqhub/internal/infrastructure"
	"github.com/liqwatch/liqhub/internal/infrastructure/exchanges"
	binanceExchange "github.com/liqwatch/liqhub/internal/infrastructure/exchanges/binance"
	okxExchange "github.com/liqwatch/liqhub/internal/infrastructure/exchanges/okx"
	"github.com/liqwatch/liqhub/internal/journal"
)

// options holds the feeder configuration. One feeder process serves one
// exchange, selected by which name is set.
type options struct {
	Env         string `long:"env" env:"ENV" description:"Environment"`
	ServiceName string `long:"service-name" env:"SERVICE_NAME" default:"liqfeeder" description:"Service name"`

	JournalPath string  `long:"journal-path" env:"JOURNAL_PATH" description:"Journal file (defaults per exchange)"`
	Threshold   float64 `long:"threshold" env:"THRESHOLD" default:"10" description:"Minimum USDT notional to journal"`

	Exchange struct {
		Binance struct {
			WSUrl string `long:"ws-url" env:"WS_URL" description:"(optional) Binance WebSocket URL"`
			Name  string `long:"name" env:"NAME" description:"Binance name"`
		} `group:"binance" namespace:"binance" env-namespace:"BINANCE"`

		OKX struct {
			APIUrl    string `long:"api-url" env:"API_URL" description:"(optional) OKX API URL"`
			WSUrl     string `long:"ws-url" env:"WS_URL" description:"(optional) OKX WebSocket URL"`
			CachePath string `long:"cache-path" env:"CACHE_PATH" default:"okx_contract_ratios.json" description:"Conversion cache file"`
			Name      string `long:"name" env:"NAME" description:"OKX name"`
		} `group:"okx" namespace:"okx" env-namespace:"OKX"`
	} `group:"exchange" namespace:"exchange" env-namespace:"EXCHANGE"`

	Telemetry bootstrap.TelemetryOptions `group:"telemetry" namespace:"telemetry" env-namespace:"TELEMETRY"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	logger, _ := infrastructure.NewLogger(opts.Env, opts.ServiceName)
	defer logger.Sync()

	exchange, journalPath, err := getExchange(opts, logger)
	if err != nil {
		logger.Error("Error creating exchange", zap.Error(err))
		os.Exit(1)
	}
	if opts.JournalPath != "" {
		journalPath = opts.JournalPath
	}

	j, err := journal.Open(journalPath)
	if err != nil {
		logger.Error("Error opening journal", zap.Error(err))
		os.Exit(1)
	}
	defer j.Close()

	tele := bootstrap.NewTelemetryProvider(opts.Telemetry, opts.Env, opts.ServiceName)
	if err := tele.Initialize(ctx); err != nil {
		logger.Warn("Error initializing telemetry", zap.Error(err))
	}
	defer tele.Shutdown()

	f := feeder.New(exchange, j, opts.Threshold, tele, logger)
	if err := f.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Feeder stopped", zap.Error(err))
		os.Exit(1)
	}
}

func getExchange(opts options, logger *zap.Logger) (exchanges.Exchange, string, error) {
	if opts.Exchange.Binance.Name != "" {
		return binanceExchange.NewBinance(binanceExchange.Config{
			Name:   opts.Exchange.Binance.Name,
			WSUrl:  opts.Exchange.Binance.WSUrl,
			Logger: logger,
		}), "liquidation_ba.csv", nil
	}

	if opts.Exchange.OKX.Name != "" {
		client, err := okxExchange.NewOKX(okxExchange.Config{
			Name:      opts.Exchange.OKX.Name,
			APIUrl:    opts.Exchange.OKX.APIUrl,
			WSUrl:     opts.Exchange.OKX.WSUrl,
			CachePath: opts.Exchange.OKX.CachePath,
			Logger:    logger,
		})
		if err != nil {
			return nil, "", err
		}
		return client, "liquidation_okx.csv", nil
	}

	return nil, "", fmt.Errorf("no exchange configured")
}
