package occupancy

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/occupancy.report/internal/config"
)

// Config holds configuration parameters for the occupancy engine.
type Config struct {
	ProximityPx   float64       // Maximum centre distance for a track to claim a seat
	TimeThreshold time.Duration // Occupancy at or beyond this is flagged as exceeded
	SeatExpiry    time.Duration // Available seats unseen this long are removed; 0 disables
	MaxEpisodes   int           // Completed episodes retained; 0 keeps none
}

// DefaultConfig returns the production-default occupancy parameters.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		ProximityPx:   cfg.GetProximityThresholdPx(),
		TimeThreshold: cfg.GetOccupancyTimeThreshold(),
		SeatExpiry:    cfg.GetSeatExpiry(),
		MaxEpisodes:   cfg.GetMaxEpisodes(),
	}
}

// Validate rejects out-of-range values rather than clamping them.
func (c Config) Validate() error {
	if math.IsNaN(c.ProximityPx) || c.ProximityPx <= 0 {
		return fmt.Errorf("%w: proximity threshold must be positive, got %f", config.ErrInvalidConfig, c.ProximityPx)
	}
	if c.TimeThreshold < 0 {
		return fmt.Errorf("%w: occupancy time threshold must be non-negative, got %s", config.ErrInvalidConfig, c.TimeThreshold)
	}
	if c.SeatExpiry < 0 {
		return fmt.Errorf("%w: seat expiry must be non-negative, got %s", config.ErrInvalidConfig, c.SeatExpiry)
	}
	if c.MaxEpisodes < 0 {
		return fmt.Errorf("%w: max episodes must be non-negative, got %d", config.ErrInvalidConfig, c.MaxEpisodes)
	}
	return nil
}
