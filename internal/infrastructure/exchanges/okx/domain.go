package okx

import (
	"fmt"
	"strings"
)

const (
	// FuturesAPIURL is the base URL for the OKX v5 REST API
	FuturesAPIURL = "https://www.okx.com/api/v5"

	// FuturesWSUrl is the OKX public websocket endpoint
	FuturesWSUrl = "wss://ws.okx.com:8443/ws/v5/public"

	// liquidationChannel is the subscribed push channel
	liquidationChannel = "liquidation-orders"

	// instTypeSwap limits the subscription to perpetual swaps
	instTypeSwap = "SWAP"
)

// PushEvent represents a liquidation websocket push. Messages carrying an
// Event field are channel-management acks, not data.
type PushEvent struct {
	Event string `json:"event"`
	Arg   struct {
		Channel  string `json:"channel"`
		InstType string `json:"instType"`
	} `json:"arg"`
	Data []LiquidationDTO `json:"data"`
}

// LiquidationDTO represents one instrument's liquidation details.
type LiquidationDTO struct {
	InstID  string      `json:"instId"`
	Details []DetailDTO `json:"details"`
}

// DetailDTO is a single liquidation fill. Sz is denominated in contracts.
type DetailDTO struct {
	Side      string `json:"side"`    // "buy" or "sell"
	PosSide   string `json:"posSide"` // "long" or "short"
	BkPx      string `json:"bkPx"`    // bankruptcy price
	Sz        string `json:"sz"`      // size in contracts
	Timestamp string `json:"ts"`      // epoch milliseconds
}

// baseSymbol extracts the base coin from an instrument id:
// BTC-USDT-SWAP -> BTC.
func baseSymbol(instID string) (string, error) {
	base, _, found := strings.Cut(instID, "-")
	if !found || base == "" {
		return "", fmt.Errorf("unexpected instId %q", instID)
	}
	return strings.ToUpper(base), nil
}
