// Package domain holds the normalized liquidation event model shared by the
// feeders, the journal and the hub.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// EventTZ is the fixed offset zone all event timestamps are expressed in.
// Exchange epoch timestamps are shifted once, at the adapter.
var EventTZ = time.FixedZone("UTC+8", 8*60*60)

// TimeLayout is the second-resolution layout used on the wire and in journals.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultThreshold is the minimum USDT notional an event must reach to be
// journaled.
const DefaultThreshold = 10.0

// Exchange identifies the venue an event originated from.
type Exchange string

// Supported exchanges.
const (
	ExchangeBinance Exchange = "Binance"
	ExchangeOKX     Exchange = "OKX"
)

// Direction tells which side of a position was forcibly closed.
type Direction string

// LongLiquidated means a long position was force-closed (market sold);
// ShortLiquidated is the dual.
const (
	LongLiquidated  Direction = "LONG_LIQUIDATED"
	ShortLiquidated Direction = "SHORT_LIQUIDATED"
)

// Event is a normalized forced-liquidation record.
type Event struct {
	// Seq is a store-assigned monotonic insertion index. Zero until the
	// event has been appended to an EventStore.
	Seq       uint64    `json:"seq"`
	Time      time.Time `json:"-"`
	Symbol    string    `json:"symbol"`
	Exchange  Exchange  `json:"exchange"`
	Price     float64   `json:"price"`
	Direction Direction `json:"direction"`
	Amount    float64   `json:"amount"`
}

// publicEvent is the JSON shape served by the HTTP and push endpoints.
type publicEvent struct {
	Seq       uint64    `json:"seq"`
	Datetime  string    `json:"datetime"`
	Symbol    string    `json:"symbol"`
	Exchange  Exchange  `json:"exchange"`
	Price     float64   `json:"price"`
	Direction Direction `json:"direction"`
	Amount    float64   `json:"amount"`
}

// MarshalJSON renders the timestamp in the fixed-zone second-resolution form
// consumers expect.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(publicEvent{
		Seq:       e.Seq,
		Datetime:  e.Time.In(EventTZ).Format(TimeLayout),
		Symbol:    e.Symbol,
		Exchange:  e.Exchange,
		Price:     e.Price,
		Direction: e.Direction,
		Amount:    e.Amount,
	})
}

// Validate reports whether the event satisfies the store invariants.
func (e Event) Validate() error {
	if e.Time.IsZero() {
		return ValidationError{Field: "time", Err: fmt.Errorf("zero timestamp")}
	}
	if e.Symbol == "" {
		return ValidationError{Field: "symbol", Err: fmt.Errorf("empty")}
	}
	if e.Exchange != ExchangeBinance && e.Exchange != ExchangeOKX {
		return ValidationError{Field: "exchange", Err: fmt.Errorf("unknown exchange %q", e.Exchange)}
	}
	if e.Direction != LongLiquidated && e.Direction != ShortLiquidated {
		return ValidationError{Field: "direction", Err: fmt.Errorf("unknown direction %q", e.Direction)}
	}
	if !(e.Price > 0) || math.IsInf(e.Price, 0) || math.IsNaN(e.Price) {
		return ValidationError{Field: "price", Err: fmt.Errorf("price %v is not positive and finite", e.Price)}
	}
	if e.Amount < 0 || math.IsInf(e.Amount, 0) || math.IsNaN(e.Amount) {
		return ValidationError{Field: "amount", Err: fmt.Errorf("amount %v is not a non-negative real", e.Amount)}
	}
	return nil
}

var quoteSuffix = regexp.MustCompile(`(?i)(USDT|USDC)$`)

// NormalizeSymbol uppercases a raw exchange pair and strips the USDT/USDC
// quote suffix: "btcusdt" -> "BTC", "ETH-USDT-SWAP" -> base is resolved by
// the OKX adapter before calling this.
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(quoteSuffix.ReplaceAllString(strings.TrimSpace(raw), ""))
}

// ParseDirection accepts the enum tokens and the legacy journal tokens.
func ParseDirection(s string) (Direction, error) {
	switch strings.TrimSpace(s) {
	case string(LongLiquidated), "多头爆仓":
		return LongLiquidated, nil
	case string(ShortLiquidated), "空头爆仓":
		return ShortLiquidated, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// ParseExchange accepts the enum names in any case and the legacy journal
// tags.
func ParseExchange(s string) (Exchange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binance", "ba", "币安":
		return ExchangeBinance, nil
	case "okx":
		return ExchangeOKX, nil
	}
	return "", fmt.Errorf("unknown exchange %q", s)
}
