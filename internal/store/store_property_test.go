package store

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/liqwatch/liqhub/internal/domain"
)

func TestEventStore_Aggregates_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 80
	properties := gopter.NewProperties(parameters)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, domain.EventTZ)

	properties.Property("window totals match a manual sum", prop.ForAll(
		func(offsets []int, amounts []float64, longs []bool) bool {
			n := len(offsets)
			if len(amounts) < n {
				n = len(amounts)
			}
			if len(longs) < n {
				n = len(longs)
			}
			if n == 0 {
				return true
			}

			s := New(DefaultRetention)
			for i := 0; i < n; i++ {
				s.Append(domain.Event{
					Time:      now.Add(-time.Duration(offsets[i]) * time.Second),
					Symbol:    "BTC",
					Exchange:  domain.ExchangeBinance,
					Price:     100,
					Direction: direction(longs[i]),
					Amount:    amounts[i],
				})
			}

			aggs := s.Aggregates(now)
			for _, minutes := range AggWindows {
				windowStart := now.Add(-time.Duration(minutes) * time.Minute)

				var wantLong, wantShort float64
				for i := 0; i < n; i++ {
					ts := now.Add(-time.Duration(offsets[i]) * time.Second)
					if ts.Before(windowStart) {
						continue
					}
					if longs[i] {
						wantLong += amounts[i]
					} else {
						wantShort += amounts[i]
					}
				}

				agg := aggs[minutes]
				if !approxEq(agg.BinanceLong, wantLong) || !approxEq(agg.BinanceShort, wantShort) {
					return false
				}
				if !approxEq(agg.TopLong["BTC"]+agg.TopShort["BTC"], wantLong+wantShort) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(30, gen.IntRange(0, 7200)),
		gen.SliceOfN(30, gen.Float64Range(10, 100000)),
		gen.SliceOfN(30, gen.Bool()),
	))

	properties.TestingRun(t)
}

func TestEventStore_SymbolStats_VWAPBounds_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 80
	properties := gopter.NewProperties(parameters)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, domain.EventTZ)

	properties.Property("VWAP stays within the window's price range", prop.ForAll(
		func(prices []float64, amounts []float64) bool {
			n := len(prices)
			if len(amounts) < n {
				n = len(amounts)
			}
			if n == 0 {
				return true
			}

			s := New(DefaultRetention)
			minPrice, maxPrice := math.Inf(1), math.Inf(-1)
			for i := 0; i < n; i++ {
				s.Append(domain.Event{
					Time:      now.Add(-time.Minute),
					Symbol:    "BTC",
					Exchange:  domain.ExchangeOKX,
					Price:     prices[i],
					Direction: domain.LongLiquidated,
					Amount:    amounts[i],
				})
				minPrice = math.Min(minPrice, prices[i])
				maxPrice = math.Max(maxPrice, prices[i])
			}

			stats := s.SymbolStats(now, nil)["BTC"]
			for _, minutes := range AggWindows {
				w := stats[minutes]
				if w.LongVWAP == nil {
					return false
				}
				if *w.LongVWAP < minPrice-1e-6 || *w.LongVWAP > maxPrice+1e-6 {
					return false
				}
				if w.ShortVWAP != nil {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(20, gen.Float64Range(0.0001, 100000)),
		gen.SliceOfN(20, gen.Float64Range(10, 100000)),
	))

	properties.TestingRun(t)
}

func TestEventStore_Retention_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 80
	properties := gopter.NewProperties(parameters)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, domain.EventTZ)

	properties.Property("no resident event is older than newest minus retention", prop.ForAll(
		func(offsets []int) bool {
			if len(offsets) == 0 {
				return true
			}
			// Eviction assumes time-ordered appends, like the journals deliver.
			sort.Ints(offsets)

			retention := time.Hour
			s := New(retention)
			for _, off := range offsets {
				s.Append(domain.Event{
					Time:      base.Add(time.Duration(off) * time.Second),
					Symbol:    "BTC",
					Exchange:  domain.ExchangeBinance,
					Price:     100,
					Direction: domain.LongLiquidated,
					Amount:    50,
				})
			}

			newest := base.Add(time.Duration(offsets[len(offsets)-1]) * time.Second)
			threshold := newest.Add(-retention)
			for _, e := range s.ListLatest(0) {
				if e.Time.Before(threshold) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(40, gen.IntRange(0, 10000)),
	))

	properties.TestingRun(t)
}

func TestEventStore_EventsSince_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 80
	properties := gopter.NewProperties(parameters)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, domain.EventTZ)

	properties.Property("sequence cursor is gapless and strictly increasing", prop.ForAll(
		func(count int, cursor int) bool {
			s := New(DefaultRetention)
			for i := 0; i < count; i++ {
				s.Append(domain.Event{
					Time:      now,
					Symbol:    "BTC",
					Exchange:  domain.ExchangeBinance,
					Price:     100,
					Direction: domain.LongLiquidated,
					Amount:    50,
				})
			}

			got := s.EventsSince(uint64(cursor))
			want := count - cursor
			if want < 0 {
				want = 0
			}
			if len(got) != want {
				return false
			}
			prev := uint64(cursor)
			for _, e := range got {
				if e.Seq != prev+1 {
					return false
				}
				prev = e.Seq
			}
			return true
		},
		gen.IntRange(0, 50),
		gen.IntRange(0, 60),
	))

	properties.TestingRun(t)
}

func direction(long bool) domain.Direction {
	if long {
		return domain.LongLiquidated
	}
	return domain.ShortLiquidated
}

func approxEq(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
