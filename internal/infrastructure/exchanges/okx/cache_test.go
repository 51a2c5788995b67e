package okx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConversionCache(t *testing.T) {
	t.Run("missing file yields empty cache", func(t *testing.T) {
		cache, err := LoadConversionCache(filepath.Join(t.TempDir(), "ratios.json"))
		require.NoError(t, err)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("existing file is loaded", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ratios.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"BTC-USDT-SWAP": 0.01, "ETH-USDT-SWAP": 0.1}`), 0o644))

		cache, err := LoadConversionCache(path)
		require.NoError(t, err)
		assert.Equal(t, 2, cache.Len())

		ratio, ok := cache.Lookup("BTC-USDT-SWAP")
		require.True(t, ok)
		assert.Equal(t, 0.01, ratio)

		_, ok = cache.Lookup("SOL-USDT-SWAP")
		assert.False(t, ok)
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ratios.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		_, err := LoadConversionCache(path)
		assert.Error(t, err)
	})
}

func TestConversionCache_PutPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratios.json")

	cache, err := LoadConversionCache(path)
	require.NoError(t, err)

	require.NoError(t, cache.Put("BTC-USDT-SWAP", 0.01))
	require.NoError(t, cache.Put("ETH-USDT-SWAP", 0.1))

	// A fresh load sees both entries.
	reloaded, err := LoadConversionCache(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())

	ratio, ok := reloaded.Lookup("ETH-USDT-SWAP")
	require.True(t, ok)
	assert.Equal(t, 0.1, ratio)
}
