package binance

import (
	"fmt"
	"strconv"
	"time"

	"github.com/liqwatch/liqhub/internal/domain"
)

const (
	// FuturesWSUrl is the Binance futures force-order stream.
	FuturesWSUrl = "wss://fstream.binance.com/ws/!forceOrder@arr"

	// forceOrderEvent is the event type carried by liquidation pushes.
	forceOrderEvent = "forceOrder"
)

// LiquidationDTO represents a force-order event from the Binance WebSocket API.
type LiquidationDTO struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	OrderData struct {
		Symbol       string `json:"s"`
		Side         string `json:"S"`
		OrderType    string `json:"o"`
		OrigQuantity string `json:"q"`
		Price        string `json:"p"`
		AveragePrice string `json:"ap"`
		LastQuantity string `json:"l"`
	} `json:"o"`
}

// toEvent normalizes a force-order DTO. Quantity falls back q -> l and price
// ap -> p, matching what the stream actually delivers for partial fills.
func (bl LiquidationDTO) toEvent() (domain.Event, error) {
	qtyRaw := bl.OrderData.OrigQuantity
	if qtyRaw == "" {
		qtyRaw = bl.OrderData.LastQuantity
	}
	priceRaw := bl.OrderData.AveragePrice
	if priceRaw == "" {
		priceRaw = bl.OrderData.Price
	}

	quantity, err := strconv.ParseFloat(qtyRaw, 64)
	if err != nil {
		return domain.Event{}, fmt.Errorf("invalid quantity %q: %w", qtyRaw, err)
	}
	price, err := strconv.ParseFloat(priceRaw, 64)
	if err != nil {
		return domain.Event{}, fmt.Errorf("invalid price %q: %w", priceRaw, err)
	}

	// A BUY force order closes a short position; SELL closes a long.
	direction := domain.LongLiquidated
	if bl.OrderData.Side == "BUY" {
		direction = domain.ShortLiquidated
	}

	e := domain.Event{
		Time:      time.UnixMilli(bl.EventTime).In(domain.EventTZ).Truncate(time.Second),
		Symbol:    domain.NormalizeSymbol(bl.OrderData.Symbol),
		Exchange:  domain.ExchangeBinance,
		Price:     price,
		Direction: direction,
		Amount:    quantity * price,
	}
	if err := e.Validate(); err != nil {
		return domain.Event{}, err
	}
	return e, nil
}
