package journal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/liqwatch/liqhub/internal/domain"
)

// Header is the legacy CSV header. Readers tolerate its absence.
var Header = []string{"时间", "币对", "交易所", "价格", "方向", "金额"}

// FieldCount is the expected row width.
const FieldCount = 6

// Legacy on-disk tokens. They are lexical only; the in-memory model uses the
// domain enums.
const (
	tagBinance = "BA"
	tagOKX     = "OKX"

	tokenLong  = "多头爆仓"
	tokenShort = "空头爆仓"
)

// EncodeRow renders an event as a journal row. Binance rows keep the
// historical 8-decimal price / 2-decimal amount formatting; OKX rows carry
// the bankruptcy price as-is and an integer amount.
func EncodeRow(e domain.Event) []string {
	var tag, price, amount string
	switch e.Exchange {
	case domain.ExchangeBinance:
		tag = tagBinance
		price = strconv.FormatFloat(e.Price, 'f', 8, 64)
		amount = strconv.FormatFloat(e.Amount, 'f', 2, 64)
	default:
		tag = tagOKX
		price = strconv.FormatFloat(e.Price, 'f', -1, 64)
		amount = strconv.FormatFloat(e.Amount, 'f', -1, 64)
	}

	direction := tokenLong
	if e.Direction == domain.ShortLiquidated {
		direction = tokenShort
	}

	return []string{
		e.Time.In(domain.EventTZ).Format(domain.TimeLayout),
		e.Symbol,
		tag,
		price,
		direction,
		amount,
	}
}

// DecodeRow parses a journal row back into an event. The exchange tag is
// read tolerantly: "BA" and the legacy "币安" mean Binance, anything else
// OKX. The symbol is re-normalized so journals written before suffix
// stripping still aggregate per base coin.
func DecodeRow(row []string) (domain.Event, error) {
	if len(row) != FieldCount {
		return domain.Event{}, fmt.Errorf("expected %d fields, got %d", FieldCount, len(row))
	}

	ts, err := time.ParseInLocation(domain.TimeLayout, strings.TrimSpace(row[0]), domain.EventTZ)
	if err != nil {
		return domain.Event{}, fmt.Errorf("parsing timestamp %q: %w", row[0], err)
	}

	exchange := domain.ExchangeOKX
	switch strings.TrimSpace(row[2]) {
	case tagBinance, "币安":
		exchange = domain.ExchangeBinance
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return domain.Event{}, fmt.Errorf("parsing price %q: %w", row[3], err)
	}

	direction, err := domain.ParseDirection(row[4])
	if err != nil {
		return domain.Event{}, err
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
	if err != nil {
		return domain.Event{}, fmt.Errorf("parsing amount %q: %w", row[5], err)
	}

	e := domain.Event{
		Time:      ts,
		Symbol:    domain.NormalizeSymbol(row[1]),
		Exchange:  exchange,
		Price:     price,
		Direction: direction,
		Amount:    amount,
	}
	if err := e.Validate(); err != nil {
		return domain.Event{}, err
	}
	return e, nil
}

// isHeader reports whether the row is the legacy header line.
func isHeader(row []string) bool {
	if len(row) != len(Header) {
		return false
	}
	for i := range row {
		if row[i] != Header[i] {
			return false
		}
	}
	return true
}
