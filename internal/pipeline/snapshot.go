package pipeline

import (
	"slices"
	"time"

	"github.com/banshee-data/occupancy.report/internal/detect"
	"github.com/banshee-data/occupancy.report/internal/geom"
	"github.com/banshee-data/occupancy.report/internal/occupancy"
	"github.com/banshee-data/occupancy.report/internal/tracking"
)

// SeatSnapshot is the published view of one seat.
type SeatSnapshot struct {
	ID               int              `json:"id"`
	Status           occupancy.Status `json:"status"`
	DurationSeconds  float64          `json:"duration_seconds"`
	Exceeded         bool             `json:"exceeded"`
	BBox             geom.BBox        `json:"bbox"`
	OccupyingTrackID *int             `json:"occupying_track_id"` // null while available
}

// Snapshot is the state of the room after one processed frame.
type Snapshot struct {
	RunID          string            `json:"run_id"`
	Frame          uint64            `json:"frame"`
	Timestamp      time.Time         `json:"timestamp"`
	TotalSeats     int               `json:"total_seats"`
	OccupiedSeats  int               `json:"occupied_seats"`
	AvailableSeats int               `json:"available_seats"`
	PersonCount    int               `json:"person_count"`
	ChairCount     int               `json:"chair_count"`
	Seats          []SeatSnapshot    `json:"seats"`
	Tracks         []tracking.Track  `json:"tracks"`
	Events         []occupancy.Event `json:"events"`
}

// emptySnapshot is the state before the first frame of a run.
func emptySnapshot(runID string) Snapshot {
	return Snapshot{
		RunID:  runID,
		Seats:  []SeatSnapshot{},
		Tracks: []tracking.Track{},
		Events: []occupancy.Event{},
	}
}

func buildSnapshot(runID string, frame uint64, ts time.Time, counts detect.Counts,
	seats []occupancy.Seat, tracks []tracking.Track, events []occupancy.Event) Snapshot {
	snap := emptySnapshot(runID)
	snap.Frame = frame
	snap.Timestamp = ts
	snap.PersonCount = counts.Persons
	snap.ChairCount = counts.Chairs
	snap.TotalSeats = len(seats)

	for _, s := range seats {
		view := SeatSnapshot{
			ID:              s.ID,
			Status:          s.Status,
			DurationSeconds: s.Duration.Seconds(),
			Exceeded:        s.Exceeded,
			BBox:            s.Box,
		}
		if s.Occupied() {
			id := s.TrackID
			view.OccupyingTrackID = &id
			snap.OccupiedSeats++
		} else {
			snap.AvailableSeats++
		}
		snap.Seats = append(snap.Seats, view)
	}
	snap.Tracks = append(snap.Tracks, tracks...)
	snap.Events = append(snap.Events, events...)
	return snap
}

// Clone returns a deep copy that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Seats = make([]SeatSnapshot, len(s.Seats))
	for i, seat := range s.Seats {
		if seat.OccupyingTrackID != nil {
			id := *seat.OccupyingTrackID
			seat.OccupyingTrackID = &id
		}
		out.Seats[i] = seat
	}
	out.Tracks = append([]tracking.Track{}, s.Tracks...)
	out.Events = append([]occupancy.Event{}, s.Events...)
	return out
}

// Seat returns the seat with the given id.
func (s Snapshot) Seat(id int) (SeatSnapshot, bool) {
	i := slices.IndexFunc(s.Seats, func(seat SeatSnapshot) bool { return seat.ID == id })
	if i < 0 {
		return SeatSnapshot{}, false
	}
	return s.Seats[i], true
}
