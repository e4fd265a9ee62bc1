package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricetracker/config"
	apperrors "sjsage522/pricetracker/pkg/errors"
)

func testConfig() *config.Config {
	return &config.Config{OutputDir: "data", BaseURL: "https://www.pricecharting.com"}
}

func testRegistry(t *testing.T) config.Registry {
	t.Helper()
	registry, err := config.DefaultRegistry()
	require.NoError(t, err)
	return registry
}

func TestResolveTarget_Registry(t *testing.T) {
	target, err := ResolveTarget(testConfig(), testRegistry(t), TargetOptions{Collectible: "evolving-skies-booster-box"})
	require.NoError(t, err)

	assert.Equal(t, "evolving-skies-booster-box", target.Name)
	assert.Equal(t, "Pokemon Evolving Skies Booster Box", target.Title)
	assert.Equal(t, config.ModeListing, target.Mode)
	assert.Equal(t, "https://www.pricecharting.com/game/pokemon-evolving-skies/booster-box", target.URL)
	assert.Equal(t, filepath.Join("data", "pokemon-evolving-skies", "booster-box"), target.Dir)
	assert.Equal(t, "pokemon-evolving-skies/booster-box", target.Key())
}

func TestResolveTarget_Default(t *testing.T) {
	target, err := ResolveTarget(testConfig(), testRegistry(t), TargetOptions{})
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCollectible, target.Name)
	assert.Equal(t, "pokemon-silver-tempest", target.Collection)
}

func TestResolveTarget_CollectionOverride(t *testing.T) {
	target, err := ResolveTarget(testConfig(), testRegistry(t), TargetOptions{
		Collection:  "pokemon-lost-origin",
		ProductType: "elite-trainer-box",
		OutputDir:   "out",
	})
	require.NoError(t, err)

	assert.Equal(t, "pokemon-lost-origin/elite-trainer-box", target.Name)
	assert.Equal(t, "pokemon-lost-origin elite-trainer-box", target.Title)
	assert.Equal(t, "https://www.pricecharting.com/game/pokemon-lost-origin/elite-trainer-box", target.URL)
	assert.Equal(t, filepath.Join("out", "pokemon-lost-origin", "elite-trainer-box"), target.Dir)
	assert.NotEmpty(t, target.Collectible.Selectors.Row)
}

func TestResolveTarget_URLOverride(t *testing.T) {
	target, err := ResolveTarget(testConfig(), testRegistry(t), TargetOptions{
		URL:  "https://www.pricecharting.com/game/pokemon-crown-zenith/booster-bundle?q=1",
		Mode: config.ModeHistory,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://www.pricecharting.com/game/pokemon-crown-zenith/booster-bundle?q=1", target.URL)
	assert.Equal(t, "pokemon-crown-zenith", target.Collection)
	assert.Equal(t, "booster-bundle", target.ProductType)
	assert.Equal(t, config.ModeHistory, target.Mode)
}

func TestResolveTarget_Errors(t *testing.T) {
	registry := testRegistry(t)

	testCases := []struct {
		name string
		opts TargetOptions
	}{
		{name: "unknown collectible", opts: TargetOptions{Collectible: "nope"}},
		{name: "unknown mode", opts: TargetOptions{Mode: "auction"}},
		{name: "url without product path", opts: TargetOptions{URL: "https://www.pricecharting.com/"}},
		{name: "history entry forced to listing", opts: TargetOptions{Collectible: "silver-tempest-history", Mode: config.ModeListing}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolveTarget(testConfig(), registry, tc.opts)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
		})
	}
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "https://example.com/game/a/b", BuildURL("https://example.com/", "a", "b"))
}
