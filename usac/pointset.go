package usac

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PointSet is an immutable row-major buffer of correspondences: 4 floats
// per row [x, y, x', y'] for image-image geometry, or 5 floats
// [x, y, X, Y, Z] for PnP. It is read-only for the lifetime of a run and
// safe to share across parallel workers.
type PointSet struct {
	data []float64
	cols int
	n    int
}

// NewPointSet2D builds a PointSet for image-image correspondences.
func NewPointSet2D(pts1, pts2 []r2.Point) (*PointSet, error) {
	if len(pts1) != len(pts2) {
		return nil, errors.Wrap(ErrInvalidInput, "pts1 and pts2 must have equal length")
	}
	n := len(pts1)
	data := make([]float64, n*4)
	for i := 0; i < n; i++ {
		row := data[i*4 : i*4+4]
		row[0], row[1] = pts1[i].X, pts1[i].Y
		row[2], row[3] = pts2[i].X, pts2[i].Y
	}
	return &PointSet{data: data, cols: 4, n: n}, nil
}

// NewPointSetPnP builds a PointSet for 2D-3D correspondences.
func NewPointSetPnP(pts2D []r2.Point, pts3D []r3.Vector) (*PointSet, error) {
	if len(pts2D) != len(pts3D) {
		return nil, errors.Wrap(ErrInvalidInput, "pts2D and pts3D must have equal length")
	}
	n := len(pts2D)
	data := make([]float64, n*5)
	for i := 0; i < n; i++ {
		row := data[i*5 : i*5+5]
		row[0], row[1] = pts2D[i].X, pts2D[i].Y
		row[2], row[3], row[4] = pts3D[i].X, pts3D[i].Y, pts3D[i].Z
	}
	return &PointSet{data: data, cols: 5, n: n}, nil
}

// Len returns N, the number of correspondences.
func (ps *PointSet) Len() int { return ps.n }

// IsPnP reports whether this set carries 3D correspondences.
func (ps *PointSet) IsPnP() bool { return ps.cols == 5 }

// Point1 returns the first-image point of correspondence i.
func (ps *PointSet) Point1(i int) r2.Point {
	row := ps.row(i)
	return r2.Point{X: row[0], Y: row[1]}
}

// Point2 returns the second-image point of correspondence i (image-image sets only).
func (ps *PointSet) Point2(i int) r2.Point {
	row := ps.row(i)
	return r2.Point{X: row[2], Y: row[3]}
}

// Point3D returns the world point of correspondence i (PnP sets only).
func (ps *PointSet) Point3D(i int) r3.Vector {
	row := ps.row(i)
	return r3.Vector{X: row[2], Y: row[3], Z: row[4]}
}

func (ps *PointSet) row(i int) []float64 {
	return ps.data[i*ps.cols : i*ps.cols+ps.cols]
}

// Sample is an ordered list of distinct indices into a PointSet.
type Sample []int

// Valid checks the invariant that every entry lies in [0, n) and no entry
// repeats. Intended for tests and assertions, not the hot path.
func (s Sample) Valid(n int) bool {
	seen := make(map[int]struct{}, len(s))
	for _, idx := range s {
		if idx < 0 || idx >= n {
			return false
		}
		if _, dup := seen[idx]; dup {
			return false
		}
		seen[idx] = struct{}{}
	}
	return true
}
