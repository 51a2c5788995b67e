package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/liqwatch/liqhub/internal/domain"
	"github.com/liqwatch/liqhub/pkg/utils/mathutils"
)

// maxHistoryLimit caps /history result truncation.
const maxHistoryLimit = 100000

// parseTimeParam accepts "YYYY-MM-DD HH:MM:SS" (in the event zone) or epoch
// seconds/milliseconds (values above 1e12 are treated as ms).
func parseTimeParam(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}

	if iv, err := strconv.ParseInt(value, 10, 64); err == nil {
		if iv > 1_000_000_000_000 {
			iv /= 1000
		}
		return time.Unix(iv, 0).In(domain.EventTZ), nil
	}

	ts, err := time.ParseInLocation(domain.TimeLayout, value, domain.EventTZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", value, err)
	}
	return ts, nil
}

// parseFilter builds a typed QueryFilter from the request's query string.
func parseFilter(q url.Values) (domain.QueryFilter, error) {
	var f domain.QueryFilter
	var err error

	if f.Since, err = parseTimeParam(q.Get("since")); err != nil {
		return f, err
	}
	if f.Until, err = parseTimeParam(q.Get("until")); err != nil {
		return f, err
	}

	f.Symbols = domain.SymbolSet(q.Get("symbols"))

	if raw := q.Get("exchanges"); raw != "" {
		f.Exchanges = make(map[domain.Exchange]struct{})
		for _, s := range strings.Split(raw, ",") {
			if strings.TrimSpace(s) == "" {
				continue
			}
			ex, err := domain.ParseExchange(s)
			if err != nil {
				return f, err
			}
			f.Exchanges[ex] = struct{}{}
		}
	}

	if raw := q.Get("directions"); raw != "" {
		f.Directions = make(map[domain.Direction]struct{})
		for _, s := range strings.Split(raw, ",") {
			if strings.TrimSpace(s) == "" {
				continue
			}
			d, err := domain.ParseDirection(s)
			if err != nil {
				return f, err
			}
			f.Directions[d] = struct{}{}
		}
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return f, fmt.Errorf("invalid limit %q: %w", raw, err)
		}
		f.Limit = mathutils.Clamp(limit, 0, maxHistoryLimit)
	}

	return f, nil
}
