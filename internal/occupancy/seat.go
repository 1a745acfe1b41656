package occupancy

import (
	"time"

	"github.com/banshee-data/occupancy.report/internal/geom"
)

// Status is the occupancy state of a seat.
type Status string

const (
	StatusAvailable Status = "available"
	StatusOccupied  Status = "occupied"
)

// Seat is a registered physical location and its occupancy state.
//
// TrackID is 0 and OccupiedSince is the zero time while the seat is
// available. Duration holds the live occupancy while occupied; after a
// release it keeps the frozen value for one more cycle, then reads 0.
type Seat struct {
	ID            int
	Status        Status
	Box           geom.BBox // box of the last matched track
	TrackID       int
	OccupiedSince time.Time
	Duration      time.Duration
	Exceeded      bool
	FirstSeen     time.Time
	LastSeen      time.Time
}

// Occupied reports whether a track currently holds the seat.
func (s Seat) Occupied() bool {
	return s.Status == StatusOccupied
}

// EventKind identifies a seat lifecycle transition.
type EventKind string

const (
	EventOccupied EventKind = "occupied"
	EventReleased EventKind = "released"
	EventExceeded EventKind = "exceeded"
	EventExpired  EventKind = "expired"
)

// Event records a seat transition observed during one Update.
type Event struct {
	Kind            EventKind `json:"kind"`
	SeatID          int       `json:"seat_id"`
	TrackID         int       `json:"track_id,omitempty"`
	Time            time.Time `json:"time"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Episode is one completed span of continuous occupation of a seat.
type Episode struct {
	SeatID   int
	TrackID  int // track holding the seat when it was released
	Start    time.Time
	End      time.Time
	Duration time.Duration
	Exceeded bool
}
