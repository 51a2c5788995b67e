// Package okx provides a client for the OKX liquidation-orders feed,
// including the contract-to-coin size conversion.
package okx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/liqwatch/liqhub/internal/domain"
	"github.com/liqwatch/liqhub/pkg/utils/mathutils"
)

const (
	// DefaultReconnectDelay is the time to wait before attempting to reconnect to websocket
	DefaultReconnectDelay = 5 * time.Second

	// DefaultReadTimeout forces a reconnect after this long without a message.
	// OKX goes quiet between liquidations but answers application pings.
	DefaultReadTimeout = 60 * time.Second

	// DefaultHeartbeatInterval is the application-layer "ping" cadence.
	// OKX requires one at most every 30s; transport pings are not used.
	DefaultHeartbeatInterval = 25 * time.Second

	// DefaultChannelBuffer is the default size for channels
	DefaultChannelBuffer = 100
)

// Config holds the configuration for the OKX client
type Config struct {
	Name       string
	APIUrl     string
	WSUrl      string
	CachePath  string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client implements an OKX liquidation feed client
type Client struct {
	name      string
	wsURL     string
	converter *Converter
	logger    *zap.Logger
}

// NewOKX creates a new OKX client with the provided configuration. It loads
// the conversion cache once, at startup.
func NewOKX(cfg Config) (*Client, error) {
	if cfg.WSUrl == "" {
		cfg.WSUrl = FuturesWSUrl
	}
	if cfg.APIUrl == "" {
		cfg.APIUrl = FuturesAPIURL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	logger := cfg.Logger.With(zap.String("exchange", "okx"))

	cache, err := LoadConversionCache(cfg.CachePath)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded conversion cache", zap.Int("contracts", cache.Len()))

	return &Client{
		name:      cfg.Name,
		wsURL:     cfg.WSUrl,
		converter: NewConverter(cfg.APIUrl, cfg.HTTPClient, cache, logger),
		logger:    logger,
	}, nil
}

// GetName returns the name of the client instance
func (oc *Client) GetName() string {
	return oc.name
}

// SubscribeLiquidations initiates a websocket connection to receive
// liquidation events for all perpetual swaps.
func (oc *Client) SubscribeLiquidations(ctx context.Context) (<-chan domain.Event, <-chan error) {
	out := make(chan domain.Event, DefaultChannelBuffer)
	errCh := make(chan error, DefaultChannelBuffer)

	go oc.handleLiquidationSubscription(ctx, out, errCh)

	return out, errCh
}

// handleLiquidationSubscription manages the websocket connection lifecycle
func (oc *Client) handleLiquidationSubscription(ctx context.Context, out chan<- domain.Event, errCh chan<- error) {
	defer close(out)
	defer close(errCh)

	reconnects := 0
	for {
		if err := oc.connectAndHandle(ctx, out, errCh); err != nil {
			reconnects++
			select {
			case errCh <- fmt.Errorf("websocket error: %w", err):
			default:
				oc.logger.Error("websocket error", zap.Error(err))
			}
		} else {
			reconnects = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(DefaultReconnectDelay):
			oc.logger.Info("reconnecting", zap.Int("attempt", reconnects))
		}
	}
}

// connectAndHandle establishes one connection, subscribes, and runs the
// heartbeat alongside the read loop.
func (oc *Client) connectAndHandle(ctx context.Context, out chan<- domain.Event, errCh chan<- error) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, oc.wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	subscribeMsg := map[string]any{
		"op": "subscribe",
		"args": []any{
			map[string]any{
				"channel":  liquidationChannel,
				"instType": instTypeSwap,
			},
		},
	}
	if err := conn.WriteJSON(subscribeMsg); err != nil {
		return fmt.Errorf("subscribing to liquidation channel: %w", err)
	}
	oc.logger.Info("connected and subscribed", zap.String("url", oc.wsURL))

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go oc.heartbeat(hbCtx, conn)

	return oc.readMessages(ctx, conn, out, errCh)
}

// heartbeat sends the textual "ping" OKX requires. The server answers with
// a textual "pong" which the read loop consumes.
func (oc *Client) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(DefaultHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
				oc.logger.Warn("heartbeat failed", zap.Error(err))
				return
			}
		}
	}
}

// readMessages reads and processes messages from the websocket connection
func (oc *Client) readMessages(ctx context.Context, conn *websocket.Conn, out chan<- domain.Event, errCh chan<- error) error {
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

			if bytes.Equal(msg, []byte("pong")) {
				continue
			}

			if err := oc.processMessage(ctx, msg, out, errCh); err != nil {
				oc.logger.Warn("message processing error", zap.Error(err))
			}
		}
	}
}

// processMessage handles one push. Details are processed sequentially so
// cache writes for the same contract cannot race with themselves.
func (oc *Client) processMessage(ctx context.Context, msg []byte, out chan<- domain.Event, errCh chan<- error) error {
	var push PushEvent
	if err := json.Unmarshal(msg, &push); err != nil {
		return fmt.Errorf("unmarshaling message: %w", err)
	}

	// Subscription acks and channel errors carry an event field.
	if push.Event != "" {
		if push.Event == "subscribe" {
			oc.logger.Info("subscription confirmed", zap.String("channel", push.Arg.Channel))
		} else {
			oc.logger.Warn("channel event", zap.String("event", push.Event))
		}
		return nil
	}
	if push.Arg.Channel != liquidationChannel || len(push.Data) == 0 {
		return nil
	}

	for _, data := range push.Data {
		for _, detail := range data.Details {
			event, err := oc.toEvent(ctx, data.InstID, detail)
			if err != nil {
				select {
				case errCh <- err:
				default:
					oc.logger.Warn("dropping detail", zap.String("instId", data.InstID), zap.Error(err))
				}
				continue
			}

			select {
			case out <- event:
			case <-ctx.Done():
				return fmt.Errorf("context canceled")
			}
		}
	}

	return nil
}

// toEvent normalizes one liquidation detail, resolving the contract size to
// a coin quantity through the converter.
func (oc *Client) toEvent(ctx context.Context, instID string, detail DetailDTO) (domain.Event, error) {
	symbol, err := baseSymbol(instID)
	if err != nil {
		return domain.Event{}, err
	}

	if detail.BkPx == "" {
		return domain.Event{}, fmt.Errorf("missing bankruptcy price for %s", instID)
	}
	price, err := strconv.ParseFloat(detail.BkPx, 64)
	if err != nil {
		return domain.Event{}, fmt.Errorf("invalid bkPx %q: %w", detail.BkPx, err)
	}
	sz, err := strconv.ParseFloat(detail.Sz, 64)
	if err != nil {
		return domain.Event{}, fmt.Errorf("invalid sz %q: %w", detail.Sz, err)
	}
	ms, err := strconv.ParseInt(detail.Timestamp, 10, 64)
	if err != nil {
		return domain.Event{}, fmt.Errorf("invalid ts %q: %w", detail.Timestamp, err)
	}

	// Strict mapping: only the two consistent side/posSide pairs are events.
	var direction domain.Direction
	switch {
	case detail.Side == "sell" && detail.PosSide == "long":
		direction = domain.LongLiquidated
	case detail.Side == "buy" && detail.PosSide == "short":
		direction = domain.ShortLiquidated
	default:
		return domain.Event{}, fmt.Errorf("unexpected side/posSide combination %s/%s", detail.Side, detail.PosSide)
	}

	coins, err := oc.converter.CoinQuantity(ctx, instID, sz, price)
	if err != nil {
		if errors.Is(err, ErrConversionFailed) {
			return domain.Event{}, err
		}
		return domain.Event{}, fmt.Errorf("converting %s: %w", instID, err)
	}

	e := domain.Event{
		Time:      time.UnixMilli(ms).In(domain.EventTZ).Truncate(time.Second),
		Symbol:    symbol,
		Exchange:  domain.ExchangeOKX,
		Price:     price,
		Direction: direction,
		Amount:    mathutils.Round(coins*price, 0),
	}
	if err := e.Validate(); err != nil {
		return domain.Event{}, err
	}
	return e, nil
}
