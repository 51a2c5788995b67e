package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	// ConvertEndpoint resolves contract sizes to coin quantities.
	ConvertEndpoint = "/public/convert-contract-coin"

	// convertTypeContractToCoin is the endpoint's type for 张 -> 币.
	convertTypeContractToCoin = "2"

	// maxConcurrentConverts bounds in-flight REST calls during bootstrap,
	// when many unknown contracts can be seen at once.
	maxConcurrentConverts = 2

	// convertAttempts is how many times one resolution is tried.
	convertAttempts = 3

	// convertTimeout is the per-attempt request timeout.
	convertTimeout = 5 * time.Second

	// rateLimitBackoff is the wait after an HTTP 429.
	rateLimitBackoff = 2 * time.Second

	// retryBackoffStep grows linearly per failed attempt.
	retryBackoffStep = 500 * time.Millisecond
)

// ErrConversionFailed is returned when all attempts for a contract fail.
var ErrConversionFailed = fmt.Errorf("contract-coin conversion failed")

// Converter turns OKX contract sizes into coin quantities using the cached
// per-contract ratio, resolving unknown contracts through the REST endpoint.
type Converter struct {
	apiURL     string
	httpClient *http.Client
	cache      *ConversionCache
	sem        *semaphore.Weighted
	logger     *zap.Logger
}

// NewConverter creates a converter backed by the given cache.
func NewConverter(apiURL string, httpClient *http.Client, cache *ConversionCache, logger *zap.Logger) *Converter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Converter{
		apiURL:     apiURL,
		httpClient: httpClient,
		cache:      cache,
		sem:        semaphore.NewWeighted(maxConcurrentConverts),
		logger:     logger,
	}
}

// convertResponse is the REST endpoint's payload.
type convertResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		InstID string `json:"instId"`
		Px     string `json:"px"`
		Sz     string `json:"sz"`
		Unit   string `json:"unit"`
	} `json:"data"`
}

// CoinQuantity returns sz (contracts) expressed in the underlying coin.
// A cache hit answers locally; a miss takes the semaphore and resolves the
// ratio via REST with retry/backoff, then persists it permanently.
func (cv *Converter) CoinQuantity(ctx context.Context, instID string, sz, px float64) (float64, error) {
	if ratio, ok := cv.cache.Lookup(instID); ok {
		return sz * ratio, nil
	}

	if err := cv.sem.Acquire(ctx, 1); err != nil {
		return 0, fmt.Errorf("acquiring convert slot: %w", err)
	}
	defer cv.sem.Release(1)

	// Another detail may have resolved the same contract while we waited.
	if ratio, ok := cv.cache.Lookup(instID); ok {
		return sz * ratio, nil
	}

	for attempt := 1; attempt <= convertAttempts; attempt++ {
		ratio, retryAfter, err := cv.resolveOnce(ctx, instID, sz, px)
		if err == nil {
			if err := cv.cache.Put(instID, ratio); err != nil {
				cv.logger.Error("persisting conversion ratio", zap.Error(err))
			}
			cv.logger.Info("resolved contract ratio",
				zap.String("instId", instID),
				zap.Float64("coinPerContract", ratio))
			return sz * ratio, nil
		}

		cv.logger.Warn("contract conversion attempt failed",
			zap.String("instId", instID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == convertAttempts {
			break
		}
		wait := retryAfter
		if wait <= 0 {
			wait = time.Duration(attempt) * retryBackoffStep
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(wait):
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrConversionFailed, instID)
}

// resolveOnce performs a single REST call and derives ratio = response.sz/sz.
// retryAfter is non-zero when the server asked us to slow down.
func (cv *Converter) resolveOnce(ctx context.Context, instID string, sz, px float64) (ratio float64, retryAfter time.Duration, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, convertTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("type", convertTypeContractToCoin)
	params.Set("instId", instID)
	params.Set("sz", strconv.FormatFloat(sz, 'f', -1, 64))
	params.Set("px", strconv.FormatFloat(px, 'f', -1, 64))
	reqURL := cv.apiURL + ConvertEndpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return 0, 0, fmt.Errorf("creating request for %s: %w", reqURL, err)
	}

	resp, err := cv.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("executing request for %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, rateLimitBackoff, fmt.Errorf("rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, resp.Status)
	}

	var payload convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, fmt.Errorf("decoding convert response: %w", err)
	}
	if payload.Code != "0" || len(payload.Data) == 0 {
		return 0, 0, fmt.Errorf("convert API error: code=%s msg=%s", payload.Code, payload.Msg)
	}

	coins, err := strconv.ParseFloat(payload.Data[0].Sz, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid converted size %q: %w", payload.Data[0].Sz, err)
	}
	if sz == 0 || coins <= 0 {
		return 0, 0, fmt.Errorf("degenerate conversion: sz=%v coins=%v", sz, coins)
	}

	return coins / sz, 0, nil
}
