package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/occupancy.report/internal/debug"
	"github.com/banshee-data/occupancy.report/internal/detect"
	"github.com/banshee-data/occupancy.report/internal/monitoring"
	"github.com/banshee-data/occupancy.report/internal/occupancy"
	"github.com/banshee-data/occupancy.report/internal/timeutil"
	"github.com/banshee-data/occupancy.report/internal/tracking"
)

// Stats summarises a run, from its start or the last Reset.
type Stats struct {
	RunID                string `json:"run_id"`
	Frames               uint64 `json:"total_frames"`
	TotalDetections      int    `json:"total_detections"`
	PersonDetections     int    `json:"person_detections"`
	ChairDetections      int    `json:"chair_detections"`
	RejectedDetections   int    `json:"rejected_detections"`
	UniqueTrackedObjects int    `json:"unique_tracked_objects"`
	UniqueSeats          int    `json:"unique_seats"`
	Releases             int    `json:"releases"`
	ExceededAlerts       int    `json:"exceeded_alerts"`
}

// Option customises a Processor at construction.
type Option func(*Processor)

// WithClock sets the clock that stamps ProcessFrameNow.
func WithClock(clock timeutil.Clock) Option {
	return func(p *Processor) {
		p.clock = clock
	}
}

// WithDebug enables capture of tracker internals, retrievable after each
// frame through LastDebugFrame.
func WithDebug(enabled bool) Option {
	return func(p *Processor) {
		if enabled {
			p.debug = debug.NewDebugCollector()
			p.debug.SetEnabled(true)
		} else {
			p.debug = nil
		}
	}
}

// Processor runs detections through the tracker and the occupancy engine
// and keeps the resulting snapshot.
type Processor struct {
	cfg     Config
	tracker *tracking.Tracker
	engine  *occupancy.Engine
	clock   timeutil.Clock

	debug     *debug.DebugCollector
	lastDebug *debug.DebugFrame

	runID string
	frame uint64
	stats Stats
	last  Snapshot

	mu sync.RWMutex
}

// New creates a processor after validating its configuration.
func New(cfg Config, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tracker, err := tracking.NewTracker(cfg.Tracking)
	if err != nil {
		return nil, err
	}
	engine, err := occupancy.NewEngine(cfg.Occupancy)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:     cfg,
		tracker: tracker,
		engine:  engine,
		clock:   timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.debug != nil {
		p.tracker.DebugCollector = p.debug
	}
	p.startRun()
	return p, nil
}

// Config returns the processor's configuration.
func (p *Processor) Config() Config {
	return p.cfg
}

// ProcessFrame runs one frame of detections observed at ts and returns the
// resulting snapshot. Malformed detections are dropped and counted.
func (p *Processor) ProcessFrame(dets []detect.Detection, ts time.Time) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frame++
	if p.debug != nil {
		p.debug.BeginFrame(p.frame)
	}

	kept, counts := detect.Filter(dets, p.cfg.MinConfidence)
	published := p.tracker.Update(kept)
	events := p.engine.Update(published, ts)

	p.stats.Frames = p.frame
	p.stats.TotalDetections += counts.Total
	p.stats.PersonDetections += counts.Persons
	p.stats.ChairDetections += counts.Chairs
	p.stats.RejectedDetections += counts.Rejected
	for _, ev := range events {
		switch ev.Kind {
		case occupancy.EventReleased:
			p.stats.Releases++
		case occupancy.EventExceeded:
			p.stats.ExceededAlerts++
		}
	}

	p.last = buildSnapshot(p.runID, p.frame, ts, counts, p.engine.Seats(), published, events)
	if p.debug != nil {
		p.lastDebug = p.debug.Emit()
	}

	monitoring.Debugf("frame %d: %d detections (%d rejected), %d tracks, %d/%d seats occupied",
		p.frame, counts.Total, counts.Rejected, len(published), p.last.OccupiedSeats, p.last.TotalSeats)
	return p.last.Clone()
}

// ProcessFrameNow is ProcessFrame stamped with the processor's clock.
func (p *Processor) ProcessFrameNow(dets []detect.Detection) Snapshot {
	return p.ProcessFrame(dets, p.clock.Now())
}

// Snapshot returns a copy of the most recent snapshot without processing.
func (p *Processor) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last.Clone()
}

// Reset clears every track and seat and starts a new run.
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	previous := p.runID
	p.startRun()
	monitoring.Logf("run %s reset after %d frames; new run %s", previous, p.stats.Frames, p.runID)
	p.stats = Stats{RunID: p.runID}
}

// startRun must be called with the lock held or before p is shared.
func (p *Processor) startRun() {
	p.tracker.Reset()
	p.engine.Reset()
	if p.debug != nil {
		p.debug.Reset()
	}
	p.lastDebug = nil
	p.runID = uuid.New().String()
	p.frame = 0
	p.stats = Stats{RunID: p.runID}
	p.last = emptySnapshot(p.runID)
}

// RunID identifies the current run.
func (p *Processor) RunID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.runID
}

// Stats returns run statistics.
func (p *Processor) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.stats
	s.UniqueTrackedObjects = p.tracker.Stats().TracksCreated
	s.UniqueSeats = p.engine.Stats().SeatsCreated
	return s
}

// Episodes returns completed occupation episodes of the current run.
func (p *Processor) Episodes() []occupancy.Episode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.engine.Episodes()
}

// LastDebugFrame returns tracker internals captured during the most recent
// frame, or nil when debugging is disabled.
func (p *Processor) LastDebugFrame() *debug.DebugFrame {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastDebug
}
