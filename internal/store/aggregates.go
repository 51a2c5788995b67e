package store

import (
	"sort"
	"strings"
	"time"

	"github.com/liqwatch/liqhub/internal/domain"
)

// AggWindows are the aggregation windows, in minutes.
var AggWindows = []int{3, 15, 60, 240, 1440}

// TopN is how many symbols the per-window leaderboards keep.
const TopN = 10

// WindowAggregate sums liquidation notionals over one window.
type WindowAggregate struct {
	TopLong      map[string]float64 `json:"top_long"`
	TopShort     map[string]float64 `json:"top_short"`
	BinanceLong  float64            `json:"binance_long"`
	BinanceShort float64            `json:"binance_short"`
	OkxLong      float64            `json:"okx_long"`
	OkxShort     float64            `json:"okx_short"`
}

// SymbolWindowStats carries the per-symbol per-window totals and VWAPs.
// VWAP pointers are nil when the corresponding total is zero.
type SymbolWindowStats struct {
	LongTotal  float64  `json:"long_total"`
	ShortTotal float64  `json:"short_total"`
	LongVWAP   *float64 `json:"long_vwap"`
	ShortVWAP  *float64 `json:"short_vwap"`
}

// Aggregates computes every window from a single snapshot, so the windows
// are consistent with each other.
func (s *EventStore) Aggregates(now time.Time) map[int]WindowAggregate {
	events := s.snapshot()

	results := make(map[int]WindowAggregate, len(AggWindows))
	for _, minutes := range AggWindows {
		windowStart := now.Add(-time.Duration(minutes) * time.Minute)

		longs := make(map[string]float64)
		shorts := make(map[string]float64)
		agg := WindowAggregate{}

		for _, e := range events {
			if e.Time.Before(windowStart) {
				continue
			}
			if e.Direction == domain.LongLiquidated {
				longs[e.Symbol] += e.Amount
				if e.Exchange == domain.ExchangeBinance {
					agg.BinanceLong += e.Amount
				} else {
					agg.OkxLong += e.Amount
				}
			} else {
				shorts[e.Symbol] += e.Amount
				if e.Exchange == domain.ExchangeBinance {
					agg.BinanceShort += e.Amount
				} else {
					agg.OkxShort += e.Amount
				}
			}
		}

		agg.TopLong = topSymbols(longs, TopN)
		agg.TopShort = topSymbols(shorts, TopN)
		results[minutes] = agg
	}
	return results
}

// topSymbols keeps the n largest totals, ties broken by symbol ascending.
func topSymbols(totals map[string]float64, n int) map[string]float64 {
	symbols := make([]string, 0, len(totals))
	for s := range totals {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool {
		if totals[symbols[i]] != totals[symbols[j]] {
			return totals[symbols[i]] > totals[symbols[j]]
		}
		return symbols[i] < symbols[j]
	})
	if len(symbols) > n {
		symbols = symbols[:n]
	}

	top := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		top[s] = totals[s]
	}
	return top
}

// SymbolStats computes per-symbol totals and VWAPs for every window from one
// snapshot. The optional filter is an uppercase symbol set; nil means all.
func (s *EventStore) SymbolStats(now time.Time, symbols map[string]struct{}) map[string]map[int]SymbolWindowStats {
	events := s.snapshot()

	type acc struct {
		longTotal, shortTotal     float64
		longVwapNum, shortVwapNum float64
	}

	results := make(map[string]map[int]SymbolWindowStats)
	for _, minutes := range AggWindows {
		windowStart := now.Add(-time.Duration(minutes) * time.Minute)
		perSymbol := make(map[string]*acc)

		for _, e := range events {
			if e.Time.Before(windowStart) {
				continue
			}
			sym := strings.ToUpper(e.Symbol)
			if symbols != nil {
				if _, ok := symbols[sym]; !ok {
					continue
				}
			}
			rec := perSymbol[sym]
			if rec == nil {
				rec = &acc{}
				perSymbol[sym] = rec
			}
			if e.Direction == domain.LongLiquidated {
				rec.longTotal += e.Amount
				rec.longVwapNum += e.Price * e.Amount
			} else {
				rec.shortTotal += e.Amount
				rec.shortVwapNum += e.Price * e.Amount
			}
		}

		for sym, rec := range perSymbol {
			stats := SymbolWindowStats{
				LongTotal:  rec.longTotal,
				ShortTotal: rec.shortTotal,
			}
			if rec.longTotal > 0 {
				v := rec.longVwapNum / rec.longTotal
				stats.LongVWAP = &v
			}
			if rec.shortTotal > 0 {
				v := rec.shortVwapNum / rec.shortTotal
				stats.ShortVWAP = &v
			}
			if results[sym] == nil {
				results[sym] = make(map[int]SymbolWindowStats, len(AggWindows))
			}
			results[sym][minutes] = stats
		}
	}
	return results
}
