package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// TuningConfig represents the root configuration for tracking and
// occupancy parameters. Every field is optional; the Get* methods supply
// defaults for anything omitted.
type TuningConfig struct {
	// Tracker params
	IoUMin        *float64 `json:"iou_min,omitempty"`
	MaxAge        *int     `json:"max_age,omitempty"`
	MinHits       *int     `json:"min_hits,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`

	// Occupancy params
	ProximityThresholdPx   *float64 `json:"proximity_threshold_px,omitempty"`
	OccupancyTimeThreshold *string  `json:"occupancy_time_threshold,omitempty"` // duration string like "10s"
	SeatExpiry             *string  `json:"seat_expiry,omitempty"`              // "0s" disables expiry
	MaxEpisodes            *int     `json:"max_episodes,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// with its default value.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		IoUMin:                 ptrFloat64(0.2),
		MaxAge:                 ptrInt(5),
		MinHits:                ptrInt(2),
		MinConfidence:          ptrFloat64(0),
		ProximityThresholdPx:   ptrFloat64(100),
		OccupancyTimeThreshold: ptrString("10s"),
		SeatExpiry:             ptrString("0s"),
		MaxEpisodes:            ptrInt(256),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
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

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/x
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Invalid
// values are rejected rather than clamped.
func (c *TuningConfig) Validate() error {
	if c.IoUMin != nil && (*c.IoUMin < 0 || *c.IoUMin > 1) {
		return fmt.Errorf("%w: iou_min must be between 0 and 1, got %f", ErrInvalidConfig, *c.IoUMin)
	}
	if c.MaxAge != nil && *c.MaxAge <= 0 {
		return fmt.Errorf("%w: max_age must be positive, got %d", ErrInvalidConfig, *c.MaxAge)
	}
	if c.MinHits != nil && *c.MinHits <= 0 {
		return fmt.Errorf("%w: min_hits must be positive, got %d", ErrInvalidConfig, *c.MinHits)
	}
	if c.MinConfidence != nil && (*c.MinConfidence < 0 || *c.MinConfidence > 1) {
		return fmt.Errorf("%w: min_confidence must be between 0 and 1, got %f", ErrInvalidConfig, *c.MinConfidence)
	}
	if c.ProximityThresholdPx != nil && *c.ProximityThresholdPx <= 0 {
		return fmt.Errorf("%w: proximity_threshold_px must be positive, got %f", ErrInvalidConfig, *c.ProximityThresholdPx)
	}
	if c.MaxEpisodes != nil && *c.MaxEpisodes < 0 {
		return fmt.Errorf("%w: max_episodes must be non-negative, got %d", ErrInvalidConfig, *c.MaxEpisodes)
	}
	if err := validateDuration("occupancy_time_threshold", c.OccupancyTimeThreshold); err != nil {
		return err
	}
	return validateDuration("seat_expiry", c.SeatExpiry)
}

func validateDuration(name string, s *string) error {
	if s == nil || *s == "" {
		return nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fmt.Errorf("%w: invalid %s '%s': %v", ErrInvalidConfig, name, *s, err)
	}
	if d < 0 {
		return fmt.Errorf("%w: %s must be non-negative, got %s", ErrInvalidConfig, name, d)
	}
	return nil
}

// GetIoUMin returns the iou_min value or the default.
func (c *TuningConfig) GetIoUMin() float64 {
	if c.IoUMin == nil {
		return 0.2
	}
	return *c.IoUMin
}

// GetMaxAge returns the max_age value or the default.
func (c *TuningConfig) GetMaxAge() int {
	if c.MaxAge == nil {
		return 5
	}
	return *c.MaxAge
}

// GetMinHits returns the min_hits value or the default.
func (c *TuningConfig) GetMinHits() int {
	if c.MinHits == nil {
		return 2
	}
	return *c.MinHits
}

// GetMinConfidence returns the min_confidence value or the default.
func (c *TuningConfig) GetMinConfidence() float64 {
	if c.MinConfidence == nil {
		return 0
	}
	return *c.MinConfidence
}

// GetProximityThresholdPx returns the proximity_threshold_px value or the default.
func (c *TuningConfig) GetProximityThresholdPx() float64 {
	if c.ProximityThresholdPx == nil {
		return 100
	}
	return *c.ProximityThresholdPx
}

// GetOccupancyTimeThreshold parses and returns the occupancy threshold.
func (c *TuningConfig) GetOccupancyTimeThreshold() time.Duration {
	if c.OccupancyTimeThreshold == nil || *c.OccupancyTimeThreshold == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(*c.OccupancyTimeThreshold)
	if err != nil {
		return 10 * time.Second // default on parse error
	}
	return d
}

// GetSeatExpiry parses and returns the seat expiry. Zero disables expiry.
func (c *TuningConfig) GetSeatExpiry() time.Duration {
	if c.SeatExpiry == nil || *c.SeatExpiry == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.SeatExpiry)
	if err != nil {
		return 0
	}
	return d
}

// GetMaxEpisodes returns the max_episodes value or the default.
func (c *TuningConfig) GetMaxEpisodes() int {
	if c.MaxEpisodes == nil {
		return 256
	}
	return *c.MaxEpisodes
}
