package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sjsage522/pricetracker/pkg/errors"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, "data", config.OutputDir)
	assert.Equal(t, "https://www.pricecharting.com", config.BaseURL)
	assert.Equal(t, "https://www.pricecharting.com/login", config.LoginURL)
	assert.Equal(t, 60*time.Second, config.FetchTimeout)
	assert.Equal(t, 20, config.BucketWidth)
	assert.Equal(t, 10, config.RecentSalesCount)
	assert.Equal(t, "", config.RedisAddr)
	assert.Equal(t, "pricetracker:summaries", config.RedisStream)
	assert.False(t, config.UseChrome)
	assert.NoError(t, config.Validate())

	// Test with environment variables
	t.Setenv("OUTPUT_DIR", "/tmp/out")
	t.Setenv("BASE_URL", "https://prices.example.com/")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "30")
	t.Setenv("BUCKET_WIDTH", "50")
	t.Setenv("USE_CHROME", "true")
	t.Setenv("MEMCACHE_ADDR", "memcache.example.com:11211")

	config = LoadConfig()
	assert.Equal(t, "/tmp/out", config.OutputDir)
	assert.Equal(t, "https://prices.example.com", config.BaseURL)
	assert.Equal(t, "https://prices.example.com/login", config.LoginURL)
	assert.Equal(t, 30*time.Second, config.FetchTimeout)
	assert.Equal(t, 50, config.BucketWidth)
	assert.True(t, config.UseChrome)
	assert.Equal(t, "memcache.example.com:11211", config.MemcacheAddr)
}

func TestValidate(t *testing.T) {
	config := LoadConfig()
	config.BucketWidth = 0
	err := config.Validate()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))

	config = LoadConfig()
	config.RecentSalesCount = -1
	assert.Error(t, config.Validate())

	config = LoadConfig()
	config.FetchTimeout = 0
	assert.Error(t, config.Validate())
}

func TestDefaultRegistry(t *testing.T) {
	registry, err := DefaultRegistry()
	require.NoError(t, err)

	names := registry.Names()
	assert.Contains(t, names, "silver-tempest-booster-box")
	assert.Contains(t, names, "silver-tempest-history")
	assert.IsIncreasing(t, names)

	c, err := registry.Lookup("silver-tempest-booster-box")
	require.NoError(t, err)
	assert.Equal(t, ModeListing, c.Mode)
	assert.Equal(t, "ebay-", c.IDPrefix)
	assert.Equal(t, "pokemon-silver-tempest", c.Collection)

	_, err = registry.Lookup("does-not-exist")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}

func TestRegistriesAreIndependent(t *testing.T) {
	first, err := DefaultRegistry()
	require.NoError(t, err)
	second, err := DefaultRegistry()
	require.NoError(t, err)

	delete(first, "silver-tempest-booster-box")

	_, err = second.Lookup("silver-tempest-booster-box")
	assert.NoError(t, err)
}

func TestParseRegistryValidation(t *testing.T) {
	_, err := ParseRegistry([]byte(`
broken:
  collection: a
  productType: b
  mode: listing
  selectors:
    row: tr
`))
	assert.Error(t, err)

	_, err = ParseRegistry([]byte(`
weird:
  url: https://example.com/x
  mode: auction
`))
	assert.Error(t, err)

	registry, err := ParseRegistry([]byte(`
history-only:
  url: https://example.com/game/a/b
  mode: history
`))
	require.NoError(t, err)
	assert.Equal(t, ModeHistory, registry["history-only"].Mode)
}

func TestLoadRegistryMergesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collectibles.yaml")
	err := os.WriteFile(path, []byte(`
silver-tempest-booster-box:
  title: Silver Tempest (sealed)
crown-zenith-etb:
  title: Crown Zenith Elite Trainer Box
  collection: pokemon-crown-zenith
  productType: elite-trainer-box
  mode: history
`), 0644)
	require.NoError(t, err)

	registry, err := LoadRegistry(path)
	require.NoError(t, err)

	merged := registry["silver-tempest-booster-box"]
	assert.Equal(t, "Silver Tempest (sealed)", merged.Title)
	assert.Equal(t, "td.date", merged.Selectors.Date)
	assert.Equal(t, ModeListing, merged.Mode)

	added := registry["crown-zenith-etb"]
	assert.Equal(t, ModeHistory, added.Mode)
}

func TestDescribeListsEveryCollectible(t *testing.T) {
	registry, err := DefaultRegistry()
	require.NoError(t, err)

	out := registry.Describe()
	for _, name := range registry.Names() {
		assert.Contains(t, out, name)
	}
}
