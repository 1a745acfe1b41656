// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the detection fixtures used by the tracking,
// occupancy and pipeline tests.
package testutil

import (
	"math"
	"testing"
	"time"

	"github.com/banshee-data/occupancy.report/internal/detect"
	"github.com/banshee-data/occupancy.report/internal/geom"
)

// Epoch is the fixed wall-clock start of every test scenario.
var Epoch = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// At returns Epoch plus the given number of seconds.
func At(seconds float64) time.Time {
	return Epoch.Add(time.Duration(seconds * float64(time.Second)))
}

// Person returns a confident person detection.
func Person(x1, y1, x2, y2 float64) detect.Detection {
	return detect.Person(x1, y1, x2, y2, 0.9)
}

// Jitter shifts box by a deterministic sub-amplitude offset that varies
// with frame, imitating detector noise on a stationary object.
func Jitter(box geom.BBox, frame int, amplitude float64) geom.BBox {
	dx := amplitude * math.Sin(float64(frame)*1.7)
	dy := amplitude * math.Cos(float64(frame)*2.3)
	dw := amplitude * 0.5 * math.Sin(float64(frame)*0.9)
	return geom.NewBBox(box.X1+dx, box.Y1+dy, box.X2+dx+dw, box.Y2+dy)
}

// Frames repeats dets n times.
func Frames(n int, dets ...detect.Detection) [][]detect.Detection {
	out := make([][]detect.Detection, n)
	for i := range out {
		out[i] = dets
	}
	return out
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
