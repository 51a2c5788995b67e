package okx

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// ConversionCache is a persistent map from contract id (e.g. BTC-USDT-SWAP)
// to its coin-per-contract ratio. Contract face values never change, so
// entries are learned once and kept for the life of the file.
type ConversionCache struct {
	path string

	mu     sync.Mutex
	ratios map[string]float64
}

// LoadConversionCache reads the cache file at path. A missing file yields an
// empty cache.
func LoadConversionCache(path string) (*ConversionCache, error) {
	c := &ConversionCache{
		path:   path,
		ratios: make(map[string]float64),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading conversion cache %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &c.ratios); err != nil {
		return nil, fmt.Errorf("parsing conversion cache %s: %w", path, err)
	}
	return c, nil
}

// Lookup returns the cached ratio for a contract, if known.
func (c *ConversionCache) Lookup(instID string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ratio, ok := c.ratios[instID]
	return ratio, ok
}

// Put stores the ratio and rewrites the whole file. The map grows
// monotonically and stays small, so a full rewrite per new contract is fine.
func (c *ConversionCache) Put(instID string, ratio float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ratios[instID] = ratio

	data, err := json.MarshalIndent(c.ratios, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding conversion cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("writing conversion cache %s: %w", c.path, err)
	}
	return nil
}

// Len returns the number of known contracts.
func (c *ConversionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ratios)
}
