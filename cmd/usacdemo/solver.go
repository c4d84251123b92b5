package main

import (
	"gonum.org/v1/gonum/mat"

	usac "go.viam.com/usac/usac"
)

// homographyDLTSolver estimates a planar homography from 4 or more point
// correspondences via the direct linear transform. It is a standalone copy
// of the engine's minimal-solver shape for demo purposes; production
// callers bring their own calibrated solver rather than reuse this one.
type homographyDLTSolver struct{}

// MinimalSampleSize is 4 correspondences.
func (homographyDLTSolver) MinimalSampleSize() int { return 4 }

// MaxNumSolutions is 1: the DLT is a single linear solve.
func (homographyDLTSolver) MaxNumSolutions() int { return 1 }

// Estimate fits a homography from the sampled correspondences and writes it
// into out[0], returning 1 on success or 0 if the sample is singular.
func (s homographyDLTSolver) Estimate(points *usac.PointSet, sample usac.Sample, out []*usac.CandidateModel) int {
	n := len(sample)
	if n < 4 {
		return 0
	}
	a := mat.NewDense(2*n, 9, nil)
	for i, idx := range sample {
		p1, p2 := points.Point1(idx), points.Point2(idx)
		x, y := p1.X, p1.Y
		xp, yp := p2.X, p2.Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, x * xp, y * xp, xp})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, x * yp, y * yp, yp})
	}

	col, ok := nullSpaceColumn(a)
	if !ok {
		return 0
	}
	out[0] = &usac.CandidateModel{Mat: mat.NewDense(3, 3, col)}
	return 1
}

// nullSpaceColumn returns the right singular vector of the smallest
// singular value of a, i.e. the null-space solution to Ah=0.
func nullSpaceColumn(a *mat.Dense) ([]float64, bool) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, false
	}
	var v mat.Dense
	svd.VTo(&v)
	// A full SVD gives a square V whose columns follow the singular values in
	// descending order, so the last column spans the null space even when a
	// has fewer rows than columns (a minimal 4-point sample).
	_, cols := v.Dims()
	col := make([]float64, cols)
	for i := 0; i < cols; i++ {
		col[i] = v.At(i, cols-1)
	}
	return col, true
}

// reprojectionError computes the symmetric transfer error of a homography
// model over a PointSet.
type reprojectionError struct {
	points *usac.PointSet
	h      *mat.Dense
	hInv   *mat.Dense
}

// newReprojectionError constructs the error metric over a fixed point set.
func newReprojectionError(points *usac.PointSet) *reprojectionError {
	return &reprojectionError{points: points}
}

// SetModel installs the current candidate, inverting it once per model.
func (e *reprojectionError) SetModel(model *usac.CandidateModel) {
	e.h = model.Mat
	var inv mat.Dense
	if err := inv.Inverse(e.h); err == nil {
		e.hInv = &inv
	} else {
		e.hInv = nil
	}
}

// Residual returns the symmetric transfer error for correspondence i.
func (e *reprojectionError) Residual(i int) float64 {
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
func (e *reprojectionError) Clone() usac.Error {
	return &reprojectionError{points: e.points}
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
