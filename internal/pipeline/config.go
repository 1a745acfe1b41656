// Package pipeline composes the tracker and the occupancy engine into a
// single frame processor.
//
// One Processor owns one Tracker and one Engine. Every exported method
// takes the processor lock, so frames never interleave with each other or
// with Reset.
package pipeline

import (
	"fmt"
	"math"

	"github.com/banshee-data/occupancy.report/internal/config"
	"github.com/banshee-data/occupancy.report/internal/occupancy"
	"github.com/banshee-data/occupancy.report/internal/tracking"
)

// Config aggregates the per-stage configuration of a Processor.
type Config struct {
	MinConfidence float64 // detections below this are rejected before tracking
	Tracking      tracking.Config
	Occupancy     occupancy.Config
}

// DefaultConfig returns the production-default processor parameters.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		MinConfidence: cfg.GetMinConfidence(),
		Tracking:      tracking.ConfigFromTuning(cfg),
		Occupancy:     occupancy.ConfigFromTuning(cfg),
	}
}

// Validate checks every stage's configuration.
func (c Config) Validate() error {
	if math.IsNaN(c.MinConfidence) || c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min confidence must be between 0 and 1, got %f", config.ErrInvalidConfig, c.MinConfidence)
	}
	if err := c.Tracking.Validate(); err != nil {
		return fmt.Errorf("tracking: %w", err)
	}
	if err := c.Occupancy.Validate(); err != nil {
		return fmt.Errorf("occupancy: %w", err)
	}
	return nil
}
