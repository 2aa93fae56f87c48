package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptySurveyConfig_Defaults(t *testing.T) {
	cfg := EmptySurveyConfig()

	assert.Equal(t, 5.0, cfg.GetMinDepthM())
	assert.Equal(t, 95.0, cfg.GetMinConfidencePct())
	assert.Equal(t, 2.5, cfg.GetMaxDistanceKm())
	assert.Equal(t, "idw", cfg.GetStrategy())
	assert.Equal(t, 256, cfg.GetGridSize())
	assert.Equal(t, 16, cfg.GetKNeighbors())
	assert.Equal(t, 10.0, cfg.GetRadiusFactor())
	assert.Equal(t, 1.5, cfg.GetFarMaskFactor())
	assert.Equal(t, 10.0, cfg.GetTINEdgeFactor())
	assert.True(t, cfg.GetTINRefine())
	assert.Equal(t, 5.0, cfg.GetPrimaryInterval())
	assert.Equal(t, 1.0, cfg.GetSecondaryInterval())
	assert.Equal(t, int64(5*1024*1024*1024), cfg.GetTileCacheMaxBytes())
	assert.Equal(t, 17, cfg.GetTileCacheMinZoom())
	assert.Equal(t, 10*time.Second, cfg.GetTileFetchTimeout())
	assert.Equal(t, 100, cfg.GetTileJournalMaxEntries())
	assert.False(t, cfg.GetTileKeyIncludesSource())
	assert.Equal(t, "http://localhost:6040", cfg.GetMAVLinkURL())
	assert.Equal(t, 2.0, cfg.GetLogRateHz())
}

func TestLoadSurveyConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "survey.json")

	testJSON := `{
  "min_depth_m": 2.0,
  "strategy": "tin",
  "primary_interval": 10,
  "tile_fetch_timeout": "3s"
}`
	require.NoError(t, os.WriteFile(configPath, []byte(testJSON), 0644))

	cfg, err := LoadSurveyConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 2.0, cfg.GetMinDepthM())
	assert.Equal(t, "tin", cfg.GetStrategy())
	assert.Equal(t, 10.0, cfg.GetPrimaryInterval())
	assert.Equal(t, 3*time.Second, cfg.GetTileFetchTimeout())

	// Omitted fields keep their defaults.
	assert.Equal(t, 95.0, cfg.GetMinConfidencePct())
	assert.Equal(t, 1.0, cfg.GetSecondaryInterval())
}

func TestLoadSurveyConfig_DefaultsFile(t *testing.T) {
	cfg, err := LoadSurveyConfig(filepath.Join("..", "..", DefaultConfigPath))
	require.NoError(t, err)

	empty := EmptySurveyConfig()
	assert.Equal(t, empty.GetMinDepthM(), cfg.GetMinDepthM())
	assert.Equal(t, empty.GetMaxDistanceKm(), cfg.GetMaxDistanceKm())
	assert.Equal(t, empty.GetTileCacheMaxBytes(), cfg.GetTileCacheMaxBytes())
	assert.Equal(t, empty.GetRadiusFactor(), cfg.GetRadiusFactor())
}

func TestLoadSurveyConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{"wrong extension", "survey.yaml", `{}`},
		{"invalid json", "bad.json", `{not json`},
		{"bad strategy", "strategy.json", `{"strategy": "kriging"}`},
		{"negative depth", "depth.json", `{"min_depth_m": -1}`},
		{"confidence out of range", "conf.json", `{"min_confidence_pct": 120}`},
		{"bad timeout", "timeout.json", `{"tile_fetch_timeout": "soon"}`},
		{"zero interval", "interval.json", `{"secondary_interval": 0}`},
		{"zero idw power", "power.json", `{"idw_power": 0}`},
		{"negative radius factor", "radius.json", `{"radius_factor": -2}`},
		{"zero far mask factor", "farmask.json", `{"far_mask_factor": 0}`},
		{"zero tin edge factor", "edge.json", `{"tin_edge_factor": 0}`},
		{"negative padding", "padneg.json", `{"grid_padding": -0.1}`},
		{"padding over one", "padbig.json", `{"grid_padding": 1.5}`},
		{"min zoom too deep", "zoomdeep.json", `{"tile_cache_min_zoom": 23}`},
		{"negative min zoom", "zoomneg.json", `{"tile_cache_min_zoom": -1}`},
		{"empty journal", "journal.json", `{"tile_journal_max_entries": 0}`},
		{"center zoom too deep", "center.json", `{"default_center_zoom": 30}`},
		{"zero rows per file", "rows.json", `{"max_rows_per_file": 0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.filename)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadSurveyConfig(path)
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSurveyConfig(filepath.Join(tmpDir, "missing.json"))
		assert.Error(t, err)
	})
}

func TestGetTileFetchTimeout_InvalidFallsBack(t *testing.T) {
	bad := "not-a-duration"
	cfg := &SurveyConfig{TileFetchTimeout: &bad}
	assert.Equal(t, 10*time.Second, cfg.GetTileFetchTimeout())
}

func TestValidate_Boundaries(t *testing.T) {
	zero, one := 0.0, 1.0
	minZoom, maxZoom := 0, 22
	rows := 1
	cfg := &SurveyConfig{
		GridPadding:      &zero,
		IDWPower:         &one,
		TileCacheMinZoom: &minZoom,
		MaxRowsPerFile:   &rows,
	}
	require.NoError(t, cfg.Validate())

	cfg.GridPadding = &one
	cfg.TileCacheMinZoom = &maxZoom
	require.NoError(t, cfg.Validate())
}
