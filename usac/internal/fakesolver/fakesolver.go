// Package fakesolver provides minimal Solver/Error implementations used
// only by tests: a DLT homography solver and a reprojection-error metric,
// plus an 8-point linear fundamental matrix solver and Sampson error. None
// of these are tuned for real imagery; they exist to drive the controller
// loop end to end against synthetic correspondences.
package fakesolver

import (
	"gonum.org/v1/gonum/mat"

	"go.viam.com/usac/geom"
	usac "go.viam.com/usac/usac"
)

// HomographyDLTSolver estimates a planar homography from 4 or more point
// correspondences via the direct linear transform. Coordinates enter the
// design matrix as given; no Hartley & Zisserman normalization is applied.
type HomographyDLTSolver struct{}

// MinimalSampleSize is 4 correspondences.
func (HomographyDLTSolver) MinimalSampleSize() int { return 4 }

// MaxNumSolutions is 1: the DLT is a single linear solve.
func (HomographyDLTSolver) MaxNumSolutions() int { return 1 }

// Estimate fits a homography from the sampled correspondences and writes it
// into out[0], returning 1 on success or 0 if the sample is singular.
func (s HomographyDLTSolver) Estimate(points *usac.PointSet, sample usac.Sample, out []*usac.CandidateModel) int {
	n := len(sample)
	if n < 4 {
		return 0
	}
	pts1 := make([]r2Point, n)
	pts2 := make([]r2Point, n)
	for i, idx := range sample {
		p1, p2 := points.Point1(idx), points.Point2(idx)
		pts1[i] = r2Point{p1.X, p1.Y}
		pts2[i] = r2Point{p2.X, p2.Y}
	}

	a := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		x, y := pts1[i].x, pts1[i].y
		xp, yp := pts2[i].x, pts2[i].y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, x * xp, y * xp, xp})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, x * yp, y * yp, yp})
	}

	svd, ok := factorizeTall(a)
	if !ok {
		return 0
	}
	h := mat.NewDense(3, 3, svd)
	out[0] = &usac.CandidateModel{Mat: h}
	return 1
}

// factorizeTall returns the right singular vector of the smallest singular
// value of a 2n x 9 matrix, i.e. the null-space solution to Ah=0.
func factorizeTall(a *mat.Dense) ([]float64, bool) {
	var svd mat.SVD
	ok := svd.Factorize(a, mat.SVDFull)
	if !ok {
		return nil, false
	}
	var v mat.Dense
	svd.VTo(&v)
	// A full SVD gives a 9x9 V whose columns follow the singular values in
	// descending order, so the last column spans the null space even when A
	// has fewer than 9 rows (a minimal 4-point or 8-point sample).
	col := make([]float64, 9)
	for i := 0; i < 9; i++ {
		col[i] = v.At(i, 8)
	}
	return col, true
}

type r2Point struct{ x, y float64 }

// ReprojectionError computes the symmetric transfer error of a homography
// model over a PointSet: squared distance of H*x1 from x2 plus the squared
// distance of H^-1*x2 from x1.
type ReprojectionError struct {
	points *usac.PointSet
	h      *mat.Dense
	hInv   *mat.Dense
}

// NewReprojectionError constructs the error metric over a fixed point set.
func NewReprojectionError(points *usac.PointSet) *ReprojectionError {
	return &ReprojectionError{points: points}
}

// SetModel installs the current candidate, inverting it once per model.
func (e *ReprojectionError) SetModel(model *usac.CandidateModel) {
	e.h = model.Mat
	var inv mat.Dense
	if err := inv.Inverse(e.h); err == nil {
		e.hInv = &inv
	} else {
		e.hInv = nil
	}
}

// Residual returns the symmetric transfer error for correspondence i.
func (e *ReprojectionError) Residual(i int) float64 {
	p1, p2 := e.points.Point1(i), e.points.Point2(i)
	fwd := applyHomography(e.h, p1.X, p1.Y)
	dx, dy := fwd[0]-p2.X, fwd[1]-p2.Y
	forward := dx*dx + dy*dy
	if e.hInv == nil {
		return forward
	}
	back := applyHomography(e.hInv, p2.X, p2.Y)
	bx, by := back[0]-p1.X, back[1]-p1.Y
	return forward + bx*bx + by*by
}

// Clone returns an independent copy sharing the immutable point set.
func (e *ReprojectionError) Clone() usac.Error {
	return &ReprojectionError{points: e.points}
}

func applyHomography(h *mat.Dense, x, y float64) [2]float64 {
	w := h.At(2, 0)*x + h.At(2, 1)*y + h.At(2, 2)
	if w == 0 {
		return [2]float64{0, 0}
	}
	u := (h.At(0, 0)*x + h.At(0, 1)*y + h.At(0, 2)) / w
	v := (h.At(1, 0)*x + h.At(1, 1)*y + h.At(1, 2)) / w
	return [2]float64{u, v}
}

// FundamentalLinearSolver estimates a fundamental matrix from 8 point
// correspondences by the linear 8-point algorithm with rank-2 enforcement.
// Coordinates enter the design matrix as given; they are not normalized.
type FundamentalLinearSolver struct{}

// MinimalSampleSize is 8 correspondences.
func (FundamentalLinearSolver) MinimalSampleSize() int { return 8 }

// MaxNumSolutions is 1.
func (FundamentalLinearSolver) MaxNumSolutions() int { return 1 }

// Estimate fits F from the sampled correspondences and enforces rank 2 on
// the result.
func (s FundamentalLinearSolver) Estimate(points *usac.PointSet, sample usac.Sample, out []*usac.CandidateModel) int {
	n := len(sample)
	if n < 8 {
		return 0
	}
	a := mat.NewDense(n, 9, nil)
	for i, idx := range sample {
		p1, p2 := points.Point1(idx), points.Point2(idx)
		x, y := p1.X, p1.Y
		xp, yp := p2.X, p2.Y
		a.SetRow(i, []float64{xp * x, xp * y, xp, yp * x, yp * y, yp, x, y, 1})
	}
	col, ok := factorizeTall(a)
	if !ok {
		return 0
	}
	f := mat.NewDense(3, 3, col)
	out[0] = &usac.CandidateModel{Mat: geom.EnforceRank2(f)}
	return 1
}

// SampsonError computes the first-order Sampson distance of a fundamental
// matrix model.
type SampsonError struct {
	points *usac.PointSet
	f      *mat.Dense
}

// NewSampsonError constructs the error metric over a fixed point set.
func NewSampsonError(points *usac.PointSet) *SampsonError {
	return &SampsonError{points: points}
}

// SetModel installs the current candidate fundamental matrix.
func (e *SampsonError) SetModel(model *usac.CandidateModel) { e.f = model.Mat }

// Residual returns the squared Sampson distance for correspondence i.
func (e *SampsonError) Residual(i int) float64 {
	p1, p2 := e.points.Point1(i), e.points.Point2(i)
	x1 := []float64{p1.X, p1.Y, 1}
	x2 := []float64{p2.X, p2.Y, 1}

	fx1 := mulVec(e.f, x1)
	ftx2 := mulVecT(e.f, x2)

	num := dot(x2, fx1)
	num *= num

	denom := fx1[0]*fx1[0] + fx1[1]*fx1[1] + ftx2[0]*ftx2[0] + ftx2[1]*ftx2[1]
	if denom == 0 {
		return 0
	}
	return num / denom
}

// Clone returns an independent copy sharing the immutable point set.
func (e *SampsonError) Clone() usac.Error {
	return &SampsonError{points: e.points}
}

func mulVec(m *mat.Dense, v []float64) []float64 {
	out := make([]float64, 3)
	for i := 0; i < 3; i++ {
		s := 0.0
		for j := 0; j < 3; j++ {
			s += m.At(i, j) * v[j]
		}
		out[i] = s
	}
	return out
}

func mulVecT(m *mat.Dense, v []float64) []float64 {
	out := make([]float64, 3)
	for j := 0; j < 3; j++ {
		s := 0.0
		for i := 0; i < 3; i++ {
			s += m.At(i, j) * v[i]
		}
		out[j] = s
	}
	return out
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
