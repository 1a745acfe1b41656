package occupancy

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/banshee-data/occupancy.report/internal/detect"
	"github.com/banshee-data/occupancy.report/internal/geom"
	"github.com/banshee-data/occupancy.report/internal/monitoring"
	"github.com/banshee-data/occupancy.report/internal/tracking"
)

// seatState is a registered seat plus bookkeeping that is not published.
type seatState struct {
	Seat
	// released is set on the cycle a seat becomes available; the next
	// unmatched cycle clears the frozen duration.
	released bool
}

// Stats counts seat lifecycle events since the last Reset.
type Stats struct {
	Updates      int `json:"updates"`
	SeatsCreated int `json:"seats_created"`
	SeatsExpired int `json:"seats_expired"`
	Releases     int `json:"releases"`
}

// Engine turns published person tracks into seat occupancy.
type Engine struct {
	cfg      Config
	seats    map[int]*seatState
	nextID   int
	episodes []Episode
	stats    Stats

	mu sync.RWMutex
}

// NewEngine creates an engine after validating its configuration.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		seats:  make(map[int]*seatState),
		nextID: 1,
	}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Reset removes every seat and episode and restarts seat ids at 1.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seats = make(map[int]*seatState)
	e.nextID = 1
	e.episodes = nil
	e.stats = Stats{}
}

// candidate is a track within proximity of a seat.
type candidate struct {
	track int // index into the person tracks, i.e. publish order
	seat  int
	dist  float64
}

// Update applies one frame of published tracks at time now and returns the
// seat transitions it caused. Tracks are expected in publish order, as
// returned by tracking.Tracker.Update; non-person tracks are ignored.
func (e *Engine) Update(tracks []tracking.Track, now time.Time) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.Updates++

	persons := make([]tracking.Track, 0, len(tracks))
	for _, tr := range tracks {
		if tr.Class == detect.ClassPerson {
			persons = append(persons, tr)
		}
	}

	// Step 1: Nearest-first greedy matching. Ties fall to the lower seat
	// id, then to the track published first.
	existing := e.sortedIDs()
	var cands []candidate
	for ti, tr := range persons {
		for _, sid := range existing {
			if d := geom.CenterDistance(tr.Box, e.seats[sid].Box); d < e.cfg.ProximityPx {
				cands = append(cands, candidate{track: ti, seat: sid, dist: d})
			}
		}
	}
	slices.SortFunc(cands, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(a.dist, b.dist),
			cmp.Compare(a.seat, b.seat),
			cmp.Compare(a.track, b.track),
		)
	})

	seatOf := make(map[int]int, len(persons))
	claimed := make(map[int]bool, len(existing))
	for _, c := range cands {
		if _, done := seatOf[c.track]; done || claimed[c.seat] {
			continue
		}
		seatOf[c.track] = c.seat
		claimed[c.seat] = true
	}

	var events []Event

	// Steps 2 and 3: Occupy matched seats; unmatched tracks reveal new ones.
	for ti, tr := range persons {
		sid, ok := seatOf[ti]
		if !ok {
			s := e.spawn(tr, now)
			events = append(events, Event{Kind: EventOccupied, SeatID: s.ID, TrackID: tr.ID, Time: now})
			continue
		}
		s := e.seats[sid]
		if !s.Occupied() {
			s.Status = StatusOccupied
			s.OccupiedSince = now
			s.Duration = 0
			s.Exceeded = false
			s.released = false
			events = append(events, Event{Kind: EventOccupied, SeatID: s.ID, TrackID: tr.ID, Time: now})
		} else if s.TrackID != tr.ID {
			monitoring.Debugf("seat %d handed from track %d to track %d", s.ID, s.TrackID, tr.ID)
		}
		s.TrackID = tr.ID
		s.Box = tr.Box
		s.LastSeen = now
	}

	// Step 4: Release seats nobody claimed, or clear a duration frozen on
	// the previous cycle.
	for _, sid := range existing {
		if claimed[sid] {
			continue
		}
		s := e.seats[sid]
		switch {
		case s.Occupied():
			events = append(events, e.release(s, now))
		case s.released:
			s.Duration = 0
			s.released = false
		}
	}

	// Step 5: Expire long-unseen available seats when enabled.
	if e.cfg.SeatExpiry > 0 {
		for _, sid := range existing {
			s := e.seats[sid]
			if s.Occupied() || now.Sub(s.LastSeen) <= e.cfg.SeatExpiry {
				continue
			}
			delete(e.seats, sid)
			e.stats.SeatsExpired++
			monitoring.Debugf("seat %d expired, last seen %s", sid, s.LastSeen.Format(time.RFC3339))
			events = append(events, Event{Kind: EventExpired, SeatID: sid, Time: now})
		}
	}

	// Step 6: Refresh duration and the exceeded flag of occupied seats.
	for _, sid := range e.sortedIDs() {
		s := e.seats[sid]
		if !s.Occupied() {
			continue
		}
		d := now.Sub(s.OccupiedSince)
		if d < 0 {
			monitoring.Debugf("seat %d: timestamp %s precedes occupation start", sid, now.Format(time.RFC3339Nano))
			d = 0
		}
		s.Duration = d
		exceeded := d >= e.cfg.TimeThreshold
		if exceeded && !s.Exceeded {
			monitoring.Logf("seat %d occupied by track %d for %s, threshold %s", sid, s.TrackID, d, e.cfg.TimeThreshold)
			events = append(events, Event{Kind: EventExceeded, SeatID: sid, TrackID: s.TrackID, Time: now, DurationSeconds: d.Seconds()})
		}
		s.Exceeded = exceeded
	}

	return events
}

// spawn registers a new occupied seat at the track's box.
func (e *Engine) spawn(tr tracking.Track, now time.Time) *seatState {
	s := &seatState{Seat: Seat{
		ID:            e.nextID,
		Status:        StatusOccupied,
		Box:           tr.Box,
		TrackID:       tr.ID,
		OccupiedSince: now,
		FirstSeen:     now,
		LastSeen:      now,
	}}
	e.nextID++
	e.seats[s.ID] = s
	e.stats.SeatsCreated++
	monitoring.Debugf("seat %d created for track %d at %s", s.ID, tr.ID, tr.Box)
	return s
}

// release makes an occupied seat available, freezing its duration, and
// records the completed episode.
func (e *Engine) release(s *seatState, now time.Time) Event {
	ev := Event{
		Kind:            EventReleased,
		SeatID:          s.ID,
		TrackID:         s.TrackID,
		Time:            now,
		DurationSeconds: s.Duration.Seconds(),
	}
	e.recordEpisode(Episode{
		SeatID:   s.ID,
		TrackID:  s.TrackID,
		Start:    s.OccupiedSince,
		End:      s.LastSeen,
		Duration: s.Duration,
		Exceeded: s.Exceeded,
	})

	s.Status = StatusAvailable
	s.TrackID = 0
	s.OccupiedSince = time.Time{}
	s.Exceeded = false
	s.released = true
	e.stats.Releases++
	return ev
}

func (e *Engine) recordEpisode(ep Episode) {
	if e.cfg.MaxEpisodes == 0 {
		return
	}
	e.episodes = append(e.episodes, ep)
	if over := len(e.episodes) - e.cfg.MaxEpisodes; over > 0 {
		e.episodes = slices.Delete(e.episodes, 0, over)
	}
}

func (e *Engine) sortedIDs() []int {
	ids := make([]int, 0, len(e.seats))
	for id := range e.seats {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Seats returns every registered seat ordered by id.
func (e *Engine) Seats() []Seat {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Seat, 0, len(e.seats))
	for _, id := range e.sortedIDs() {
		out = append(out, e.seats[id].Seat)
	}
	return out
}

// Seat returns a registered seat by id.
func (e *Engine) Seat(id int) (Seat, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.seats[id]
	if !ok {
		return Seat{}, false
	}
	return s.Seat, true
}

// Episodes returns completed occupation episodes, oldest first.
func (e *Engine) Episodes() []Episode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.episodes)
}

// Stats returns lifecycle counters since the last Reset.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}
