package api

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liqwatch/liqhub/internal/domain"
)

func TestParseTimeParam(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{"empty is zero", "", time.Time{}, false},
		{
			"layout in event zone",
			"2024-03-01 12:00:00",
			time.Date(2024, 3, 1, 12, 0, 0, 0, domain.EventTZ),
			false,
		},
		{
			"epoch seconds",
			"1700000000",
			time.Date(2023, 11, 15, 6, 13, 20, 0, domain.EventTZ),
			false,
		},
		{
			"epoch milliseconds",
			"1700000000789",
			time.Date(2023, 11, 15, 6, 13, 20, 0, domain.EventTZ),
			false,
		},
		{"garbage", "next tuesday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimeParam(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestParseFilter(t *testing.T) {
	t.Run("full query", func(t *testing.T) {
		q := url.Values{}
		q.Set("since", "2024-03-01 00:00:00")
		q.Set("until", "2024-03-02 00:00:00")
		q.Set("symbols", "btc, eth")
		q.Set("exchanges", "BA,okx")
		q.Set("directions", "LONG_LIQUIDATED")
		q.Set("limit", "25")

		f, err := parseFilter(q)
		require.NoError(t, err)

		assert.True(t, f.Since.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, domain.EventTZ)))
		assert.True(t, f.Until.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, domain.EventTZ)))
		assert.Equal(t, map[string]struct{}{"BTC": {}, "ETH": {}}, f.Symbols)
		assert.Contains(t, f.Exchanges, domain.ExchangeBinance)
		assert.Contains(t, f.Exchanges, domain.ExchangeOKX)
		assert.Contains(t, f.Directions, domain.LongLiquidated)
		assert.Equal(t, 25, f.Limit)
	})

	t.Run("empty query", func(t *testing.T) {
		f, err := parseFilter(url.Values{})
		require.NoError(t, err)
		assert.True(t, f.Since.IsZero())
		assert.Nil(t, f.Symbols)
		assert.Nil(t, f.Exchanges)
		assert.Nil(t, f.Directions)
		assert.Zero(t, f.Limit)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		q := url.Values{}
		q.Set("limit", "99999999")
		f, err := parseFilter(q)
		require.NoError(t, err)
		assert.Equal(t, maxHistoryLimit, f.Limit)

		q.Set("limit", "-5")
		f, err = parseFilter(q)
		require.NoError(t, err)
		assert.Zero(t, f.Limit)
	})

	t.Run("bad values", func(t *testing.T) {
		for name, q := range map[string]url.Values{
			"bad since":     {"since": {"not a time"}},
			"bad until":     {"until": {"not a time"}},
			"bad exchange":  {"exchanges": {"Bitmex"}},
			"bad direction": {"directions": {"SIDEWAYS"}},
			"bad limit":     {"limit": {"ten"}},
		} {
			_, err := parseFilter(q)
			assert.Error(t, err, name)
		}
	})
}
