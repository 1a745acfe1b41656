package tracking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/occupancy.report/internal/config"
	"github.com/banshee-data/occupancy.report/internal/debug"
	"github.com/banshee-data/occupancy.report/internal/detect"
	"github.com/banshee-data/occupancy.report/internal/geom"
	"github.com/banshee-data/occupancy.report/internal/testutil"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker, err := NewTracker(DefaultConfig())
	require.NoError(t, err)
	return tracker
}

func ids(tracks []Track) []int {
	out := make([]int, len(tracks))
	for i, tr := range tracks {
		out[i] = tr.ID
	}
	return out
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewTrackerValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative iou", Config{IoUMin: -0.1, MaxAge: 5, MinHits: 2}},
		{"iou above one", Config{IoUMin: 1.1, MaxAge: 5, MinHits: 2}},
		{"zero max age", Config{IoUMin: 0.2, MaxAge: 0, MinHits: 2}},
		{"negative max age", Config{IoUMin: 0.2, MaxAge: -1, MinHits: 2}},
		{"zero min hits", Config{IoUMin: 0.2, MaxAge: 5, MinHits: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tracker, err := NewTracker(tt.cfg)
			assert.Nil(t, tracker)
			assert.True(t, errors.Is(err, config.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, Config{IoUMin: 0.2, MaxAge: 5, MinHits: 2}, cfg)
	assert.NoError(t, cfg.Validate())
}

// ---------------------------------------------------------------------------
// Empty frames
// ---------------------------------------------------------------------------

func TestEmptyFramesAgeAndPrune(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t)

	out := tracker.Update(nil)
	assert.Empty(t, out)
	assert.Empty(t, tracker.Tracks(), "empty frame must not create tracks")

	tracker.Update([]detect.Detection{testutil.Person(100, 100, 150, 250)})
	require.Len(t, tracker.Tracks(), 1)

	for i := 1; i <= 5; i++ {
		out := tracker.Update(nil)
		assert.Empty(t, out, "coasting tracks are not published")
		live := tracker.Tracks()
		require.Len(t, live, 1, "frame %d", i)
		assert.Equal(t, i, live[0].TimeSinceUpdate)
		if i > 1 {
			assert.Equal(t, 0, live[0].HitStreak, "streak breaks once a frame is missed")
		}
	}

	tracker.Update(nil)
	assert.Empty(t, tracker.Tracks(), "track exceeding max age must be removed")
	assert.Equal(t, 1, tracker.Stats().TracksPruned)
	assert.Equal(t, 1, tracker.Stats().TracksCreated)
}

// ---------------------------------------------------------------------------
// Identity stability
// ---------------------------------------------------------------------------

func TestIdentityStableUnderJitter(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t)

	base := geom.NewBBox(100, 100, 150, 250)
	for frame := 0; frame < 30; frame++ {
		det := detect.Detection{Class: detect.ClassPerson, Confidence: 0.8, Box: testutil.Jitter(base, frame, 3)}
		out := tracker.Update([]detect.Detection{det})
		require.Len(t, out, 1, "frame %d", frame)
		assert.Equal(t, 1, out[0].ID, "frame %d", frame)
		assert.Greater(t, geom.IoU(out[0].Box, base), 0.7)
	}
	assert.Equal(t, 1, tracker.Stats().TracksCreated)
}

func TestIdentityFollowsMovingObject(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t)

	var last Track
	for frame := 0; frame < 20; frame++ {
		x := 100 + 5*float64(frame)
		out := tracker.Update([]detect.Detection{testutil.Person(x, 100, x+50, 250)})
		require.Len(t, out, 1, "frame %d", frame)
		assert.Equal(t, 1, out[0].ID)
		last = out[0]
	}
	assert.Greater(t, last.VelocityX, 3.0)
	assert.Less(t, last.VelocityX, 7.0)
	assert.InDelta(t, 0, last.VelocityY, 1.0)
}

func TestDetectionOrderDoesNotChangeIdentity(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t)

	a := testutil.Person(100, 100, 150, 250)
	b := testutil.Person(400, 100, 450, 250)

	out := tracker.Update([]detect.Detection{a, b})
	assert.Equal(t, []int{1, 2}, ids(out))
	assert.Equal(t, []int{1, 2}, tracker.LastAssociations())

	b2 := testutil.Person(402, 101, 452, 251)
	a2 := testutil.Person(101, 99, 151, 249)
	out = tracker.Update([]detect.Detection{b2, a2})
	assert.Equal(t, []int{1, 2}, ids(out))
	assert.Equal(t, []int{2, 1}, tracker.LastAssociations())
}

func TestOcclusionKeepsIdentity(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t)
	person := testutil.Person(100, 100, 150, 250)

	for i := 0; i < 3; i++ {
		tracker.Update([]detect.Detection{person})
	}
	tracker.Update(nil)
	tracker.Update(nil)

	out := tracker.Update([]detect.Detection{person})
	require.Len(t, out, 1, "previously published track is reported on its first hit back")
	assert.Equal(t, 1, out[0].ID)
	assert.Equal(t, 1, out[0].HitStreak)
}

func TestExpiredTrackGetsNewIdentity(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t)
	person := testutil.Person(100, 100, 150, 250)

	for i := 0; i < 3; i++ {
		tracker.Update([]detect.Detection{person})
	}
	for i := 0; i < 6; i++ {
		tracker.Update(nil)
	}
	require.Empty(t, tracker.Tracks())

	tracker.Update([]detect.Detection{person})
	live := tracker.Tracks()
	require.Len(t, live, 1)
	assert.Equal(t, 2, live[0].ID, "identities are never reused")

	_, ok := tracker.Track(1)
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// Publication
// ---------------------------------------------------------------------------

func TestPublicationRequiresHitStreakAfterWarmup(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t) // MinHits = 2
	a := testutil.Person(100, 100, 150, 250)
	b := testutil.Person(400, 100, 450, 250)

	assert.Equal(t, []int{1}, ids(tracker.Update([]detect.Detection{a})), "warm-up frame publishes")
	assert.Equal(t, []int{1}, ids(tracker.Update([]detect.Detection{a})))

	out := tracker.Update([]detect.Detection{a, b})
	assert.Equal(t, []int{1}, ids(out), "new track is held back until it has a streak")

	out = tracker.Update([]detect.Detection{a, b})
	assert.Equal(t, []int{1, 2}, ids(out))
	assert.Equal(t, 2, tracker.Stats().TracksPublished)
}

func TestIsolatedDetectionSpawnsButNeverPublishes(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t)
	a := testutil.Person(100, 100, 150, 250)

	tracker.Update([]detect.Detection{a})
	tracker.Update([]detect.Detection{a})

	out := tracker.Update([]detect.Detection{a, testutil.Person(600, 50, 640, 150)})
	assert.Equal(t, []int{1}, ids(out))
	assert.Len(t, tracker.Tracks(), 2)

	for i := 0; i < 6; i++ {
		out = tracker.Update([]detect.Detection{a})
		assert.Equal(t, []int{1}, ids(out))
	}
	assert.Len(t, tracker.Tracks(), 1, "isolated track ages out")
	assert.Equal(t, 1, tracker.Stats().TracksPublished)
}

// ---------------------------------------------------------------------------
// Association gating
// ---------------------------------------------------------------------------

func TestAssociationRespectsClass(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t)

	tracker.Update([]detect.Detection{testutil.Person(100, 100, 150, 250)})
	tracker.Update([]detect.Detection{detect.Chair(100, 100, 150, 250, 0.9)})

	assert.Equal(t, []int{2}, tracker.LastAssociations())
	chair, ok := tracker.Track(2)
	require.True(t, ok)
	assert.Equal(t, detect.ClassChair, chair.Class)
}

func TestAssociationRespectsIoUMinimum(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.IoUMin = 0.5
	tracker, err := NewTracker(cfg)
	require.NoError(t, err)

	tracker.Update([]detect.Detection{testutil.Person(0, 0, 100, 100)})
	// IoU with the original box is 50·100 / 150·100 = 1/3 < 0.5.
	tracker.Update([]detect.Detection{testutil.Person(50, 0, 150, 100)})

	assert.Equal(t, []int{2}, tracker.LastAssociations())
	assert.Len(t, tracker.Tracks(), 2)
}

func TestAssociationIsGloballyOptimal(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t)

	left := testutil.Person(100, 100, 200, 300)
	right := testutil.Person(180, 100, 280, 300)
	tracker.Update([]detect.Detection{left, right})
	tracker.Update([]detect.Detection{left, right})

	// Listing the right-hand detection first must not let it steal the
	// left-hand track.
	tracker.Update([]detect.Detection{right, left})
	assert.Equal(t, []int{2, 1}, tracker.LastAssociations())
}

// ---------------------------------------------------------------------------
// Debug instrumentation and reset
// ---------------------------------------------------------------------------

func TestDebugCollectorRecordsInternals(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t)
	collector := debug.NewDebugCollector()
	collector.SetEnabled(true)
	tracker.DebugCollector = collector

	person := testutil.Person(100, 100, 150, 250)
	collector.BeginFrame(1)
	tracker.Update([]detect.Detection{person})
	frame := collector.Emit()
	require.NotNil(t, frame)
	assert.Empty(t, frame.StatePredictions)
	assert.Empty(t, frame.AssociationCandidates)

	collector.BeginFrame(2)
	tracker.Update([]detect.Detection{person})
	frame = collector.Emit()
	require.NotNil(t, frame)
	require.Len(t, frame.StatePredictions, 1)
	require.Len(t, frame.AssociationCandidates, 1)
	assert.True(t, frame.AssociationCandidates[0].Accepted)
	assert.InDelta(t, 1.0, frame.AssociationCandidates[0].IoU, 1e-6)
	require.Len(t, frame.Innovations, 1)
	assert.InDelta(t, 0, frame.Innovations[0].ResidualMag, 1e-6)
}

func TestReset(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t)

	tracker.Update([]detect.Detection{testutil.Person(100, 100, 150, 250)})
	tracker.Update([]detect.Detection{testutil.Person(400, 100, 450, 250)})
	require.Len(t, tracker.Tracks(), 2)

	tracker.Reset()
	assert.Empty(t, tracker.Tracks())
	assert.Equal(t, Stats{}, tracker.Stats())
	assert.Empty(t, tracker.LastAssociations())

	out := tracker.Update([]detect.Detection{testutil.Person(400, 100, 450, 250)})
	assert.Equal(t, []int{1}, ids(out), "identities restart and warm-up applies again")
}
