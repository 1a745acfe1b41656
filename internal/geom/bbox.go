package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// BBox is an axis-aligned bounding box (x1,y1) top-left, (x2,y2) bottom-right.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewBBox builds a box from corner coordinates.
func NewBBox(x1, y1, x2, y2 float64) BBox {
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns x2 - x1 (negative for inverted boxes).
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height returns y2 - y1 (negative for inverted boxes).
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Area returns the box area, or 0 when the box is not Valid.
func (b BBox) Area() float64 {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// Center returns the box centre.
func (b BBox) Center() r2.Vec {
	return r2.Vec{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Valid reports whether every coordinate is finite and the box has a
// strictly positive width and height.
func (b BBox) Valid() bool {
	for _, v := range [4]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X2 > b.X1 && b.Y2 > b.Y1
}

func (b BBox) String() string {
	return fmt.Sprintf("(%.1f,%.1f,%.1f,%.1f)", b.X1, b.Y1, b.X2, b.Y2)
}

// IoU returns the intersection-over-union of a and b in [0, 1].
// Invalid boxes never overlap anything.
func IoU(a, b BBox) float64 {
	if !a.Valid() || !b.Valid() {
		return 0
	}
	iw := math.Min(a.X2, b.X2) - math.Max(a.X1, b.X1)
	ih := math.Min(a.Y2, b.Y2) - math.Max(a.Y1, b.Y1)
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// CenterDistance is the Euclidean distance between the centres of a and b.
func CenterDistance(a, b BBox) float64 {
	return r2.Norm(r2.Sub(a.Center(), b.Center()))
}
