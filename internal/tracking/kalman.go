package tracking

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/occupancy.report/internal/geom"
)

// Kalman model for a bounding box in image space.
//
// State x = [cx, cy, s, r, vcx, vcy, vs]: centre, area (scale), aspect
// ratio, and the per-frame velocities of centre and area. The aspect ratio
// is modelled as constant. Measurement z = [cx, cy, s, r].
const (
	stateDim       = 7
	measurementDim = 4
)

var (
	// F: constant velocity, dt = one frame.
	transition = mat.NewDense(stateDim, stateDim, []float64{
		1, 0, 0, 0, 1, 0, 0,
		0, 1, 0, 0, 0, 1, 0,
		0, 0, 1, 0, 0, 0, 1,
		0, 0, 0, 1, 0, 0, 0,
		0, 0, 0, 0, 1, 0, 0,
		0, 0, 0, 0, 0, 1, 0,
		0, 0, 0, 0, 0, 0, 1,
	})

	// H: the measurement extracts the first four state components.
	observation = mat.NewDense(measurementDim, stateDim, []float64{
		1, 0, 0, 0, 0, 0, 0,
		0, 1, 0, 0, 0, 0, 0,
		0, 0, 1, 0, 0, 0, 0,
		0, 0, 0, 1, 0, 0, 0,
	})

	// R: area and aspect measurements are noisier than the centre.
	measurementNoise = mat.NewDiagDense(measurementDim, []float64{1, 1, 10, 10})

	// Q: velocities change slowly; area velocity slowest of all.
	processNoise = mat.NewDiagDense(stateDim, []float64{1, 1, 1, 1, 0.01, 0.01, 0.0001})

	// P0: high uncertainty on the unobserved velocities.
	initialCovariance = []float64{10, 10, 10, 10, 1e4, 1e4, 1e4}

	identity = mat.NewDiagDense(stateDim, []float64{1, 1, 1, 1, 1, 1, 1})
)

// boxFilter is a linear Kalman filter over a single track's box.
type boxFilter struct {
	x *mat.VecDense
	p *mat.Dense
}

func newBoxFilter(b geom.BBox) *boxFilter {
	z := geom.ToMeasurement(b)
	x := mat.NewVecDense(stateDim, []float64{z[0], z[1], z[2], z[3], 0, 0, 0})
	p := mat.NewDense(stateDim, stateDim, nil)
	for i, v := range initialCovariance {
		p.Set(i, i, v)
	}
	return &boxFilter{x: x, p: p}
}

// predict advances the state one frame: x = F·x, P = F·P·Fᵀ + Q.
func (f *boxFilter) predict() {
	// Never let the area go negative.
	if f.x.AtVec(6)+f.x.AtVec(2) <= 0 {
		f.x.SetVec(6, 0)
	}

	var x mat.VecDense
	x.MulVec(transition, f.x)

	var fp, fpft, p mat.Dense
	fp.Mul(transition, f.p)
	fpft.Mul(&fp, transition.T())
	p.Add(&fpft, processNoise)

	f.x = &x
	f.p = &p
}

// update corrects the state with an observed box.
func (f *boxFilter) update(b geom.BBox) error {
	z := geom.ToMeasurement(b)
	zv := mat.NewVecDense(measurementDim, z[:])

	// Innovation y = z − H·x
	var hx, y mat.VecDense
	hx.MulVec(observation, f.x)
	y.SubVec(zv, &hx)

	// S = H·P·Hᵀ + R
	var pht, hpht, s mat.Dense
	pht.Mul(f.p, observation.T())
	hpht.Mul(observation, &pht)
	s.Add(&hpht, measurementNoise)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return fmt.Errorf("innovation covariance not invertible: %w", err)
	}

	// K = P·Hᵀ·S⁻¹
	var k mat.Dense
	k.Mul(&pht, &sInv)

	// x = x + K·y
	var ky, x mat.VecDense
	ky.MulVec(&k, &y)
	x.AddVec(f.x, &ky)

	// P = (I − K·H)·P
	var kh, ikh, p mat.Dense
	kh.Mul(&k, observation)
	ikh.Sub(identity, &kh)
	p.Mul(&ikh, f.p)

	f.x = &x
	f.p = &p
	return nil
}

// box returns the current state as a corner-form bounding box.
func (f *boxFilter) box() geom.BBox {
	return geom.FromMeasurement(geom.Measurement{f.x.AtVec(0), f.x.AtVec(1), f.x.AtVec(2), f.x.AtVec(3)})
}

// velocity returns the centre velocity in pixels per frame.
func (f *boxFilter) velocity() (vx, vy float64) {
	return f.x.AtVec(4), f.x.AtVec(5)
}

// finite reports whether the state and the covariance diagonal are free of
// NaN and ±Inf.
func (f *boxFilter) finite() bool {
	for i := 0; i < stateDim; i++ {
		if v := f.x.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		if v := f.p.At(i, i); math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
