// Package binance provides a client for the Binance futures force-order feed.
package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/liqwatch/liqhub/internal/domain"
)

const (
	// DefaultReconnectDelay is the time to wait before attempting to reconnect to websocket
	DefaultReconnectDelay = 5 * time.Second

	// DefaultReadTimeout forces a reconnect after this long without a message
	DefaultReadTimeout = 180 * time.Second

	// DefaultPingInterval is the transport-level keepalive cadence
	DefaultPingInterval = 30 * time.Second

	// DefaultPingTimeout is the write deadline for a keepalive ping
	DefaultPingTimeout = 15 * time.Second

	// DefaultChannelBuffer is the default size for channels
	DefaultChannelBuffer = 100
)

// Config holds the configuration for the Binance client
type Config struct {
	Name   string
	WSUrl  string
	Logger *zap.Logger
}

// Client implements a Binance force-order feed client
type Client struct {
	name   string
	wsURL  string
	logger *zap.Logger
}

// NewBinance creates a new Binance client with the provided configuration
func NewBinance(cfg Config) *Client {
	if cfg.WSUrl == "" {
		cfg.WSUrl = FuturesWSUrl
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		name:   cfg.Name,
		wsURL:  cfg.WSUrl,
		logger: cfg.Logger.With(zap.String("exchange", "binance")),
	}
}

// GetName returns the name of the client instance
func (bc *Client) GetName() string {
	return bc.name
}

// SubscribeLiquidations initiates a websocket connection to receive
// force-order events. It reconnects indefinitely with a fixed backoff until
// the context is canceled.
func (bc *Client) SubscribeLiquidations(ctx context.Context) (<-chan domain.Event, <-chan error) {
	out := make(chan domain.Event, DefaultChannelBuffer)
	errCh := make(chan error, DefaultChannelBuffer)

	go bc.handleLiquidationSubscription(ctx, out, errCh)

	return out, errCh
}

// handleLiquidationSubscription manages the websocket connection lifecycle
func (bc *Client) handleLiquidationSubscription(ctx context.Context, out chan<- domain.Event, errCh chan<- error) {
	defer close(out)
	defer close(errCh)

	reconnects := 0
	for {
		if err := bc.connectAndHandle(ctx, out, errCh); err != nil {
			reconnects++
			select {
			case errCh <- fmt.Errorf("websocket error: %w", err):
			default:
				bc.logger.Error("websocket error", zap.Error(err))
			}
		} else {
			reconnects = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(DefaultReconnectDelay):
			bc.logger.Info("reconnecting", zap.Int("attempt", reconnects))
		}
	}
}

// connectAndHandle establishes and manages a single websocket connection
func (bc *Client) connectAndHandle(ctx context.Context, out chan<- domain.Event, errCh chan<- error) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, bc.wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	bc.logger.Info("connected", zap.String("url", bc.wsURL))

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go bc.keepalive(pingCtx, conn)

	return bc.readMessages(ctx, conn, out, errCh)
}

// keepalive sends transport-level pings on a fixed cadence. The server
// answers with pong frames which gorilla consumes internally.
func (bc *Client) keepalive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(DefaultPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(DefaultPingTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				bc.logger.Warn("keepalive ping failed", zap.Error(err))
				return
			}
		}
	}
}

// readMessages reads and processes messages from the websocket connection
func (bc *Client) readMessages(ctx context.Context, conn *websocket.Conn, out chan<- domain.Event, errCh chan<- error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := conn.SetReadDeadline(time.Now().Add(DefaultReadTimeout)); err != nil {
				return fmt.Errorf("setting read deadline: %w", err)
			}

			_, msg, err := conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("reading message: %w", err)
			}

			if err := bc.processMessage(ctx, msg, out, errCh); err != nil {
				bc.logger.Warn("message processing error", zap.Error(err))
			}
		}
	}
}

// processMessage handles both payload shapes the stream produces: a single
// force-order object or an array of them. Both dispatch per-event through
// the same normalization path.
func (bc *Client) processMessage(ctx context.Context, msg []byte, out chan<- domain.Event, errCh chan<- error) error {
	var dtos []LiquidationDTO

	trimmed := bytes.TrimLeft(msg, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &dtos); err != nil {
			return fmt.Errorf("unmarshaling array payload: %w", err)
		}
	} else {
		var single LiquidationDTO
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return fmt.Errorf("unmarshaling payload: %w", err)
		}
		dtos = append(dtos, single)
	}

	for _, dto := range dtos {
		if dto.EventType != forceOrderEvent {
			continue
		}
		event, err := dto.toEvent()
		if err != nil {
			select {
			case errCh <- err:
			default:
				bc.logger.Warn("dropping malformed event", zap.Error(err))
			}
			continue
		}

		select {
		case out <- event:
		case <-ctx.Done():
			return fmt.Errorf("context canceled")
		}
	}

	return nil
}
