// Package debug provides instrumentation for the seat tracker.
// The DebugCollector captures algorithm internals (predicted boxes,
// association decisions, Kalman residuals) for replay inspection and tuning.
package debug

import "github.com/banshee-data/occupancy.report/internal/geom"

// Pre-allocation capacities for debug frame slices.
// A reading room rarely holds more than a few dozen people and chairs.
const (
	defaultAssociationCapacity = 64
	defaultInnovationCapacity  = 32
	defaultPredictionCapacity  = 32
)

// DebugCollector accumulates debug artifacts during a single frame's processing.
//
// The collector is stateful: call Record*() methods during processing, then
// Emit() at frame completion to extract the artifacts. Reset() before the next frame.
type DebugCollector struct {
	enabled bool
	current *DebugFrame
}

// DebugFrame contains all debug artifacts for a single frame.
type DebugFrame struct {
	FrameID uint64 `json:"frame_id"`

	// Association stage: which detection-track pairs were evaluated
	AssociationCandidates []AssociationRecord `json:"associations"`

	// Kalman update: measured box against the prediction it corrected
	Innovations []KalmanInnovation `json:"innovations"`

	// Kalman predict: boxes predicted before any detection was seen
	StatePredictions []StatePrediction `json:"predictions"`
}

// AssociationRecord captures a single detection-track pairing considered during association.
type AssociationRecord struct {
	DetectionIndex int     `json:"detection"`
	TrackID        int     `json:"track_id"`
	IoU            float64 `json:"iou"`
	Accepted       bool    `json:"accepted"`
}

// KalmanInnovation represents a measurement residual in the Kalman update step.
type KalmanInnovation struct {
	TrackID     int       `json:"track_id"`
	Predicted   geom.BBox `json:"predicted"`
	Measured    geom.BBox `json:"measured"`
	ResidualMag float64   `json:"residual"` // centre distance in pixels
}

// StatePrediction represents a track's predicted box after the predict step
// but before the update step.
type StatePrediction struct {
	TrackID int       `json:"track_id"`
	Box     geom.BBox `json:"box"`
	VX      float64   `json:"vx"`
	VY      float64   `json:"vy"`
}

// NewDebugCollector creates a collector that's initially disabled.
// Call SetEnabled(true) to begin collecting artifacts.
func NewDebugCollector() *DebugCollector {
	return &DebugCollector{}
}

// SetEnabled controls whether the collector records artifacts.
// When disabled, all Record*() calls are no-ops.
func (c *DebugCollector) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// IsEnabled returns true if the collector is actively recording.
func (c *DebugCollector) IsEnabled() bool {
	return c.enabled
}

// BeginFrame initialises collection for a new frame.
// Must be called before any Record*() calls.
func (c *DebugCollector) BeginFrame(frameID uint64) {
	if !c.enabled {
		return
	}
	c.current = &DebugFrame{
		FrameID:               frameID,
		AssociationCandidates: make([]AssociationRecord, 0, defaultAssociationCapacity),
		Innovations:           make([]KalmanInnovation, 0, defaultInnovationCapacity),
		StatePredictions:      make([]StatePrediction, 0, defaultPredictionCapacity),
	}
}

// RecordAssociation captures a detection-track pairing evaluation.
func (c *DebugCollector) RecordAssociation(detIndex, trackID int, iou float64, accepted bool) {
	if !c.enabled || c.current == nil {
		return
	}
	c.current.AssociationCandidates = append(c.current.AssociationCandidates, AssociationRecord{
		DetectionIndex: detIndex,
		TrackID:        trackID,
		IoU:            iou,
		Accepted:       accepted,
	})
}

// RecordInnovation captures a Kalman filter innovation.
func (c *DebugCollector) RecordInnovation(trackID int, predicted, measured geom.BBox) {
	if !c.enabled || c.current == nil {
		return
	}
	c.current.Innovations = append(c.current.Innovations, KalmanInnovation{
		TrackID:     trackID,
		Predicted:   predicted,
		Measured:    measured,
		ResidualMag: geom.CenterDistance(predicted, measured),
	})
}

// RecordPrediction captures a track's predicted box before measurement update.
func (c *DebugCollector) RecordPrediction(trackID int, box geom.BBox, vx, vy float64) {
	if !c.enabled || c.current == nil {
		return
	}
	c.current.StatePredictions = append(c.current.StatePredictions, StatePrediction{
		TrackID: trackID,
		Box:     box,
		VX:      vx,
		VY:      vy,
	})
}

// Emit returns the accumulated debug frame and prepares for the next frame.
// Returns nil if collection is disabled or no frame was begun.
func (c *DebugCollector) Emit() *DebugFrame {
	if !c.enabled || c.current == nil {
		return nil
	}
	frame := c.current
	c.current = nil // caller must BeginFrame again
	return frame
}

// Reset clears any pending artifacts without emitting them.
func (c *DebugCollector) Reset() {
	c.current = nil
}
