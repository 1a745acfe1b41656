package geom

import "math"

// Measurement is the box parameterisation used by the tracker's Kalman
// filter: centre x, centre y, area (scale) and aspect ratio (w/h).
type Measurement [4]float64

// ToMeasurement converts a box to [cx, cy, s, r].
func ToMeasurement(b BBox) Measurement {
	w := b.Width()
	h := b.Height()
	c := b.Center()
	return Measurement{c.X, c.Y, w * h, w / h}
}

// FromMeasurement converts [cx, cy, s, r] back to corner form.
// A non-positive scale or ratio yields an invalid (zero) box.
func FromMeasurement(z Measurement) BBox {
	cx, cy, s, r := z[0], z[1], z[2], z[3]
	if s <= 0 || r <= 0 {
		return BBox{X1: cx, Y1: cy, X2: cx, Y2: cy}
	}
	w := math.Sqrt(s * r)
	h := s / w
	return BBox{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}
