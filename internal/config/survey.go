package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical survey defaults file.
const DefaultConfigPath = "config/survey.defaults.json"

// SurveyConfig holds the tunable constants for sounding filtering,
// interpolation, contouring, the tile cache and the telemetry logger.
// Every field is optional; the Get* accessors supply the field-proven
// defaults for anything omitted from the JSON file.
type SurveyConfig struct {
	// Sounding filter
	MinDepthM        *float64 `json:"min_depth_m,omitempty"`
	MinConfidencePct *float64 `json:"min_confidence_pct,omitempty"`
	MaxDistanceKm    *float64 `json:"max_distance_km,omitempty"`

	// Interpolation
	Strategy          *string  `json:"strategy,omitempty"` // "idw" or "tin"
	GridSize          *int     `json:"grid_size,omitempty"`
	GridPadding       *float64 `json:"grid_padding,omitempty"`
	KNeighbors        *int     `json:"k_neighbors,omitempty"`
	IDWPower          *float64 `json:"idw_power,omitempty"`
	RadiusFactor      *float64 `json:"radius_factor,omitempty"`
	FarMaskFactor     *float64 `json:"far_mask_factor,omitempty"`
	TINEdgeFactor     *float64 `json:"tin_edge_factor,omitempty"`
	TINRefine         *bool    `json:"tin_refine,omitempty"`
	PrimaryInterval   *float64 `json:"primary_interval,omitempty"`
	SecondaryInterval *float64 `json:"secondary_interval,omitempty"`

	// Tile cache
	TileCacheMaxBytes     *int64   `json:"tile_cache_max_bytes,omitempty"`
	TileCacheMinZoom      *int     `json:"tile_cache_min_zoom,omitempty"`
	TileFetchTimeout      *string  `json:"tile_fetch_timeout,omitempty"` // duration string like "10s"
	TileJournalMaxEntries *int     `json:"tile_journal_max_entries,omitempty"`
	TileKeyIncludesSource *bool    `json:"tile_key_includes_source,omitempty"`
	DefaultCenterLat      *float64 `json:"default_center_lat,omitempty"`
	DefaultCenterLon      *float64 `json:"default_center_lon,omitempty"`
	DefaultCenterZoom     *int     `json:"default_center_zoom,omitempty"`

	// Telemetry logger
	MAVLinkURL     *string  `json:"mavlink_url,omitempty"`
	LogRateHz      *float64 `json:"log_rate_hz,omitempty"`
	MaxRowsPerFile *int     `json:"max_rows_per_file,omitempty"`
}

// maxTileZoom is the deepest slippy-map zoom level the tile proxy serves.
const maxTileZoom = 22

// EmptySurveyConfig returns a SurveyConfig with all fields unset, so every
// accessor yields its default.
func EmptySurveyConfig() *SurveyConfig {
	return &SurveyConfig{}
}

// LoadSurveyConfig loads a SurveyConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func LoadSurveyConfig(path string) (*SurveyConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySurveyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *SurveyConfig) Validate() error {
	if c.MinDepthM != nil && *c.MinDepthM < 0 {
		return fmt.Errorf("min_depth_m must be non-negative, got %f", *c.MinDepthM)
	}
	if c.MinConfidencePct != nil && (*c.MinConfidencePct < 0 || *c.MinConfidencePct > 100) {
		return fmt.Errorf("min_confidence_pct must be between 0 and 100, got %f", *c.MinConfidencePct)
	}
	if c.MaxDistanceKm != nil && *c.MaxDistanceKm <= 0 {
		return fmt.Errorf("max_distance_km must be positive, got %f", *c.MaxDistanceKm)
	}
	if c.Strategy != nil && *c.Strategy != "idw" && *c.Strategy != "tin" {
		return fmt.Errorf("strategy must be \"idw\" or \"tin\", got %q", *c.Strategy)
	}
	if c.GridSize != nil && *c.GridSize < 2 {
		return fmt.Errorf("grid_size must be at least 2, got %d", *c.GridSize)
	}
	if c.GridPadding != nil && (*c.GridPadding < 0 || *c.GridPadding > 1) {
		return fmt.Errorf("grid_padding must be between 0 and 1, got %f", *c.GridPadding)
	}
	if c.KNeighbors != nil && *c.KNeighbors < 1 {
		return fmt.Errorf("k_neighbors must be at least 1, got %d", *c.KNeighbors)
	}
	if c.IDWPower != nil && *c.IDWPower <= 0 {
		return fmt.Errorf("idw_power must be positive, got %f", *c.IDWPower)
	}
	if c.RadiusFactor != nil && *c.RadiusFactor <= 0 {
		return fmt.Errorf("radius_factor must be positive, got %f", *c.RadiusFactor)
	}
	if c.FarMaskFactor != nil && *c.FarMaskFactor <= 0 {
		return fmt.Errorf("far_mask_factor must be positive, got %f", *c.FarMaskFactor)
	}
	if c.TINEdgeFactor != nil && *c.TINEdgeFactor <= 0 {
		return fmt.Errorf("tin_edge_factor must be positive, got %f", *c.TINEdgeFactor)
	}
	if c.PrimaryInterval != nil && *c.PrimaryInterval <= 0 {
		return fmt.Errorf("primary_interval must be positive, got %f", *c.PrimaryInterval)
	}
	if c.SecondaryInterval != nil && *c.SecondaryInterval <= 0 {
		return fmt.Errorf("secondary_interval must be positive, got %f", *c.SecondaryInterval)
	}
	if c.TileCacheMaxBytes != nil && *c.TileCacheMaxBytes <= 0 {
		return fmt.Errorf("tile_cache_max_bytes must be positive, got %d", *c.TileCacheMaxBytes)
	}
	if c.TileCacheMinZoom != nil && (*c.TileCacheMinZoom < 0 || *c.TileCacheMinZoom > maxTileZoom) {
		return fmt.Errorf("tile_cache_min_zoom must be between 0 and %d, got %d", maxTileZoom, *c.TileCacheMinZoom)
	}
	if c.TileJournalMaxEntries != nil && *c.TileJournalMaxEntries < 1 {
		return fmt.Errorf("tile_journal_max_entries must be at least 1, got %d", *c.TileJournalMaxEntries)
	}
	if c.DefaultCenterZoom != nil && (*c.DefaultCenterZoom < 0 || *c.DefaultCenterZoom > maxTileZoom) {
		return fmt.Errorf("default_center_zoom must be between 0 and %d, got %d", maxTileZoom, *c.DefaultCenterZoom)
	}
	if c.TileFetchTimeout != nil && *c.TileFetchTimeout != "" {
		if _, err := time.ParseDuration(*c.TileFetchTimeout); err != nil {
			return fmt.Errorf("invalid tile_fetch_timeout '%s': %w", *c.TileFetchTimeout, err)
		}
	}
	if c.LogRateHz != nil && *c.LogRateHz <= 0 {
		return fmt.Errorf("log_rate_hz must be positive, got %f", *c.LogRateHz)
	}
	if c.MaxRowsPerFile != nil && *c.MaxRowsPerFile < 1 {
		return fmt.Errorf("max_rows_per_file must be at least 1, got %d", *c.MaxRowsPerFile)
	}
	return nil
}

// GetMinDepthM returns the shallow-water rejection floor in metres.
func (c *SurveyConfig) GetMinDepthM() float64 {
	if c.MinDepthM == nil {
		return 5.0
	}
	return *c.MinDepthM
}

// GetMinConfidencePct returns the minimum accepted sonar confidence.
func (c *SurveyConfig) GetMinConfidencePct() float64 {
	if c.MinConfidencePct == nil {
		return 95.0
	}
	return *c.MinConfidencePct
}

// GetMaxDistanceKm returns the area-of-interest radius around the mean location.
func (c *SurveyConfig) GetMaxDistanceKm() float64 {
	if c.MaxDistanceKm == nil {
		return 2.5
	}
	return *c.MaxDistanceKm
}

// GetStrategy returns the preferred surface strategy.
func (c *SurveyConfig) GetStrategy() string {
	if c.Strategy == nil || *c.Strategy == "" {
		return "idw"
	}
	return *c.Strategy
}

func (c *SurveyConfig) GetGridSize() int {
	if c.GridSize == nil {
		return 256
	}
	return *c.GridSize
}

func (c *SurveyConfig) GetGridPadding() float64 {
	if c.GridPadding == nil {
		return 0.05
	}
	return *c.GridPadding
}

func (c *SurveyConfig) GetKNeighbors() int {
	if c.KNeighbors == nil {
		return 16
	}
	return *c.KNeighbors
}

func (c *SurveyConfig) GetIDWPower() float64 {
	if c.IDWPower == nil {
		return 2.0
	}
	return *c.IDWPower
}

// GetRadiusFactor returns the IDW search radius as a multiple of the
// average nearest-neighbour spacing.
func (c *SurveyConfig) GetRadiusFactor() float64 {
	if c.RadiusFactor == nil {
		return 10.0
	}
	return *c.RadiusFactor
}

func (c *SurveyConfig) GetFarMaskFactor() float64 {
	if c.FarMaskFactor == nil {
		return 1.5
	}
	return *c.FarMaskFactor
}

// GetTINEdgeFactor returns the longest-edge threshold for masking triangles,
// as a multiple of the average nearest-neighbour spacing.
func (c *SurveyConfig) GetTINEdgeFactor() float64 {
	if c.TINEdgeFactor == nil {
		return 10.0
	}
	return *c.TINEdgeFactor
}

func (c *SurveyConfig) GetTINRefine() bool {
	if c.TINRefine == nil {
		return true
	}
	return *c.TINRefine
}

func (c *SurveyConfig) GetPrimaryInterval() float64 {
	if c.PrimaryInterval == nil {
		return 5.0
	}
	return *c.PrimaryInterval
}

func (c *SurveyConfig) GetSecondaryInterval() float64 {
	if c.SecondaryInterval == nil {
		return 1.0
	}
	return *c.SecondaryInterval
}

// GetTileCacheMaxBytes returns the tile cache capacity (5 GiB default).
func (c *SurveyConfig) GetTileCacheMaxBytes() int64 {
	if c.TileCacheMaxBytes == nil {
		return 5 * 1024 * 1024 * 1024
	}
	return *c.TileCacheMaxBytes
}

func (c *SurveyConfig) GetTileCacheMinZoom() int {
	if c.TileCacheMinZoom == nil {
		return 17
	}
	return *c.TileCacheMinZoom
}

// GetTileFetchTimeout parses and returns the TileFetchTimeout as a time.Duration.
func (c *SurveyConfig) GetTileFetchTimeout() time.Duration {
	if c.TileFetchTimeout == nil || *c.TileFetchTimeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(*c.TileFetchTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

func (c *SurveyConfig) GetTileJournalMaxEntries() int {
	if c.TileJournalMaxEntries == nil {
		return 100
	}
	return *c.TileJournalMaxEntries
}

// GetTileKeyIncludesSource reports whether the tile source label is mixed
// into the cache key. Off by default: tiles are keyed by (z, x, y) only.
func (c *SurveyConfig) GetTileKeyIncludesSource() bool {
	if c.TileKeyIncludesSource == nil {
		return false
	}
	return *c.TileKeyIncludesSource
}

func (c *SurveyConfig) GetDefaultCenterLat() float64 {
	if c.DefaultCenterLat == nil {
		return 0
	}
	return *c.DefaultCenterLat
}

func (c *SurveyConfig) GetDefaultCenterLon() float64 {
	if c.DefaultCenterLon == nil {
		return 0
	}
	return *c.DefaultCenterLon
}

func (c *SurveyConfig) GetDefaultCenterZoom() int {
	if c.DefaultCenterZoom == nil {
		return 3
	}
	return *c.DefaultCenterZoom
}

// GetMAVLinkURL returns the base URL of the vehicle's MAVLink REST bridge.
func (c *SurveyConfig) GetMAVLinkURL() string {
	if c.MAVLinkURL == nil || *c.MAVLinkURL == "" {
		return "http://localhost:6040"
	}
	return *c.MAVLinkURL
}

func (c *SurveyConfig) GetLogRateHz() float64 {
	if c.LogRateHz == nil {
		return 2.0
	}
	return *c.LogRateHz
}

func (c *SurveyConfig) GetMaxRowsPerFile() int {
	if c.MaxRowsPerFile == nil {
		return 50000
	}
	return *c.MaxRowsPerFile
}
