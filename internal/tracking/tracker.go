package tracking

import (
	"fmt"
	"slices"
	"sync"

	"github.com/banshee-data/occupancy.report/internal/config"
	"github.com/banshee-data/occupancy.report/internal/detect"
	"github.com/banshee-data/occupancy.report/internal/geom"
	"github.com/banshee-data/occupancy.report/internal/monitoring"
)

// Config holds configuration parameters for the tracker.
type Config struct {
	IoUMin  float64 // Minimum IoU for a detection-track pair to be matched
	MaxAge  int     // Frames a track may go unmatched before deletion
	MinHits int     // Hit streak required before a track is published
}

// DefaultConfig returns the production-default tracker parameters.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		IoUMin:  cfg.GetIoUMin(),
		MaxAge:  cfg.GetMaxAge(),
		MinHits: cfg.GetMinHits(),
	}
}

// Validate rejects out-of-range values rather than clamping them.
func (c Config) Validate() error {
	if c.IoUMin < 0 || c.IoUMin > 1 {
		return fmt.Errorf("%w: iou minimum must be between 0 and 1, got %f", config.ErrInvalidConfig, c.IoUMin)
	}
	if c.MaxAge <= 0 {
		return fmt.Errorf("%w: max age must be positive, got %d", config.ErrInvalidConfig, c.MaxAge)
	}
	if c.MinHits <= 0 {
		return fmt.Errorf("%w: min hits must be positive, got %d", config.ErrInvalidConfig, c.MinHits)
	}
	return nil
}

// Track is the published view of a tracked object.
type Track struct {
	ID              int          `json:"id"`
	Class           detect.Class `json:"class"`
	Confidence      float64      `json:"confidence"`
	Box             geom.BBox    `json:"bbox"`
	VelocityX       float64      `json:"vx"` // pixels per frame
	VelocityY       float64      `json:"vy"`
	HitStreak       int          `json:"hit_streak"`
	TimeSinceUpdate int          `json:"time_since_update"`
	Age             int          `json:"age"`  // frames since creation
	Hits            int          `json:"hits"` // total matched frames
}

// trackedObject is a live track together with its filter.
type trackedObject struct {
	Track
	filter    *boxFilter
	published bool
}

func (o *trackedObject) view() Track {
	t := o.Track
	t.Box = o.filter.box()
	t.VelocityX, t.VelocityY = o.filter.velocity()
	return t
}

// Stats counts tracker lifecycle events since the last Reset.
type Stats struct {
	Frames          int `json:"frames"`
	TracksCreated   int `json:"tracks_created"`
	TracksPublished int `json:"tracks_published"`
	TracksPruned    int `json:"tracks_pruned"`
}

// DebugCollector interface for tracking algorithm instrumentation.
// Allows decoupling from the debug package to avoid circular dependencies.
type DebugCollector interface {
	IsEnabled() bool
	RecordAssociation(detIndex, trackID int, iou float64, accepted bool)
	RecordInnovation(trackID int, predicted, measured geom.BBox)
	RecordPrediction(trackID int, box geom.BBox, vx, vy float64)
}

// Tracker assigns persistent identities to per-frame detections using a
// Kalman filter per track and Hungarian IoU association.
type Tracker struct {
	cfg    Config
	tracks map[int]*trackedObject
	nextID int
	stats  Stats

	// lastAssociations is indexed by detection; each element is the id of
	// the track the detection was matched to or spawned.
	lastAssociations []int

	// DebugCollector captures algorithm internals (optional)
	DebugCollector DebugCollector

	mu sync.RWMutex
}

// NewTracker creates a tracker after validating its configuration.
func NewTracker(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{
		cfg:    cfg,
		tracks: make(map[int]*trackedObject),
		nextID: 1,
	}, nil
}

// Config returns the tracker's configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Reset clears all tracks and restarts identities at 1.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = make(map[int]*trackedObject)
	t.nextID = 1
	t.stats = Stats{}
	t.lastAssociations = nil
}

// Update processes one frame of detections and returns the tracks
// published for that frame, ordered by id. Detections are expected to be
// valid; see detect.Filter.
func (t *Tracker) Update(dets []detect.Detection) []Track {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Frames++

	// Step 1: Predict every live track to the current frame.
	ids := t.sortedIDs()
	live := ids[:0]
	for _, id := range ids {
		obj := t.tracks[id]
		t.predict(obj)
		if !obj.filter.finite() {
			monitoring.Debugf("track %d dropped: non-finite state after predict", id)
			delete(t.tracks, id)
			t.stats.TracksPruned++
			continue
		}
		live = append(live, id)
	}

	// Step 2: Associate detections with predicted boxes.
	assign := t.associate(dets, live)

	// Steps 3 and 4: Correct matched tracks; spawn tracks for the rest.
	t.lastAssociations = make([]int, len(dets))
	for di, det := range dets {
		if ti := assign[di]; ti >= 0 {
			obj := t.tracks[live[ti]]
			t.correct(obj, det)
			t.lastAssociations[di] = obj.ID
			continue
		}
		obj := t.spawn(det)
		t.lastAssociations[di] = obj.ID
	}

	// Step 5: Prune tracks that have coasted too long.
	for _, id := range live {
		if obj := t.tracks[id]; obj.TimeSinceUpdate > t.cfg.MaxAge {
			delete(t.tracks, id)
			t.stats.TracksPruned++
		}
	}

	// Step 6: Publish tracks matched this frame that are established.
	// During the first MinHits frames every matched track is published so
	// that a fresh tracker reports occupants immediately.
	warmup := t.stats.Frames <= t.cfg.MinHits
	var out []Track
	for _, id := range t.sortedIDs() {
		obj := t.tracks[id]
		if obj.TimeSinceUpdate != 0 {
			continue
		}
		if obj.HitStreak >= t.cfg.MinHits || obj.published || warmup {
			if !obj.published {
				obj.published = true
				t.stats.TracksPublished++
			}
			out = append(out, obj.view())
		}
	}
	return out
}

// predict advances a track one frame and ages it.
func (t *Tracker) predict(obj *trackedObject) {
	obj.filter.predict()
	obj.Age++
	if obj.TimeSinceUpdate > 0 {
		obj.HitStreak = 0
	}
	obj.TimeSinceUpdate++

	if t.DebugCollector != nil && t.DebugCollector.IsEnabled() {
		vx, vy := obj.filter.velocity()
		t.DebugCollector.RecordPrediction(obj.ID, obj.filter.box(), vx, vy)
	}
}

// associate solves detection-to-track assignment on 1 − IoU. Pairs of
// different classes, or with IoU below the configured minimum, are
// forbidden. Returns, per detection, an index into ids or -1.
func (t *Tracker) associate(dets []detect.Detection, ids []int) []int {
	assign := make([]int, len(dets))
	for i := range assign {
		assign[i] = -1
	}
	if len(dets) == 0 || len(ids) == 0 {
		return assign
	}

	predicted := make([]geom.BBox, len(ids))
	for j, id := range ids {
		predicted[j] = t.tracks[id].filter.box()
	}

	iou := make([][]float64, len(dets))
	cost := make([][]float64, len(dets))
	for i, det := range dets {
		iou[i] = make([]float64, len(ids))
		cost[i] = make([]float64, len(ids))
		for j, id := range ids {
			v := geom.IoU(det.Box, predicted[j])
			iou[i][j] = v
			if det.Class != t.tracks[id].Class || v <= 0 || v < t.cfg.IoUMin {
				cost[i][j] = ForbiddenCost
			} else {
				cost[i][j] = 1 - v
			}
		}
	}

	result := HungarianAssign(cost)
	copy(assign, result)

	if t.DebugCollector != nil && t.DebugCollector.IsEnabled() {
		for i := range dets {
			for j, id := range ids {
				t.DebugCollector.RecordAssociation(i, id, iou[i][j], assign[i] == j)
			}
		}
	}
	return assign
}

// correct applies a matched detection to its track.
func (t *Tracker) correct(obj *trackedObject, det detect.Detection) {
	predicted := obj.filter.box()
	if err := obj.filter.update(det.Box); err != nil {
		// Keep the prediction; the match still counts as a hit.
		monitoring.Debugf("track %d: skipped correction: %v", obj.ID, err)
	}
	if t.DebugCollector != nil && t.DebugCollector.IsEnabled() {
		t.DebugCollector.RecordInnovation(obj.ID, predicted, det.Box)
	}
	obj.TimeSinceUpdate = 0
	obj.HitStreak++
	obj.Hits++
	obj.Class = det.Class
	obj.Confidence = det.Confidence
}

// spawn starts a new track from an unmatched detection.
func (t *Tracker) spawn(det detect.Detection) *trackedObject {
	obj := &trackedObject{
		Track: Track{
			ID:         t.nextID,
			Class:      det.Class,
			Confidence: det.Confidence,
			HitStreak:  1,
			Hits:       1,
		},
		filter: newBoxFilter(det.Box),
	}
	t.nextID++
	t.tracks[obj.ID] = obj
	t.stats.TracksCreated++
	return obj
}

func (t *Tracker) sortedIDs() []int {
	ids := make([]int, 0, len(t.tracks))
	for id := range t.tracks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Tracks returns every live track, published or not, ordered by id.
func (t *Tracker) Tracks() []Track {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Track, 0, len(t.tracks))
	for _, id := range t.sortedIDs() {
		out = append(out, t.tracks[id].view())
	}
	return out
}

// Track returns a live track by id.
func (t *Tracker) Track(id int) (Track, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	obj, ok := t.tracks[id]
	if !ok {
		return Track{}, false
	}
	return obj.view(), true
}

// Stats returns lifecycle counters since the last Reset.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// LastAssociations returns the detection-to-track mapping from the most
// recent Update. Each element is the id of the track the detection was
// matched to or spawned.
func (t *Tracker) LastAssociations() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.lastAssociations)
}
