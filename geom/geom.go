// Package geom provides the small set of matrix and vector primitives used
// by the degeneracy handler and the fundamental-matrix test solver (rank-2
// SVD enforcement, epipole recovery, skew-symmetric cross-product matrices),
// plus Hartley & Zisserman point normalization.
package geom

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// epipoleZeroTolerance is the magnitude below which all three components of
// a candidate epipole are treated as degenerate, forcing the fallback cross
// product of the other two rows of F.
const epipoleZeroTolerance = 1.9984e-15

// SVD holds the factors of a full singular value decomposition, named to
// match their role in the formulas that consume them (U*Sigma*V^T).
type SVD struct {
	U     *mat.Dense
	V     *mat.Dense
	VT    *mat.Dense
	Sigma *mat.Dense
}

// Factorize runs a full SVD on m and packages the factors for reuse.
func Factorize(m *mat.Dense) (*SVD, bool) {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return nil, false
	}
	u, v, vt := &mat.Dense{}, &mat.Dense{}, &mat.Dense{}
	svd.UTo(u)
	svd.VTo(v)
	vt.CloneFrom(v.T())
	values := svd.Values(nil)
	sigma := &mat.Dense{}
	sigma.CloneFrom(mat.NewDiagDense(len(values), values))
	return &SVD{U: u, V: v, VT: vt, Sigma: sigma}, true
}

// EnforceRank2 zeroes the smallest singular value of a 3x3 matrix and
// recomposes it, the standard repair for an over-determined fundamental or
// essential matrix estimate.
func EnforceRank2(m *mat.Dense) *mat.Dense {
	svd, ok := Factorize(m)
	if !ok {
		return m
	}
	svd.Sigma.Set(2, 2, 0)
	var repaired mat.Dense
	repaired.Mul(svd.U, svd.Sigma)
	repaired.Mul(&repaired, svd.VT)
	return &repaired
}

// SkewSymmetric returns the 3x3 matrix [v]_x such that [v]_x * w == v.Cross(w).
func SkewSymmetric(v r3.Vector) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

// Row extracts row i of a matrix as a homogeneous 3-vector.
func Row(m *mat.Dense, i int) r3.Vector {
	return r3.Vector{X: m.At(i, 0), Y: m.At(i, 1), Z: m.At(i, 2)}
}

// Col extracts column j of a matrix as a homogeneous 3-vector.
func Col(m *mat.Dense, j int) r3.Vector {
	return r3.Vector{X: m.At(0, j), Y: m.At(1, j), Z: m.At(2, j)}
}

// Epipole computes the right epipole of a fundamental matrix as row0 x row2,
// falling back to row1 x row2 when the first cross product is numerically
// zero in all three components.
func Epipole(f *mat.Dense) r3.Vector {
	e := Row(f, 0).Cross(Row(f, 2))
	if math.Abs(e.X) < epipoleZeroTolerance && math.Abs(e.Y) < epipoleZeroTolerance && math.Abs(e.Z) < epipoleZeroTolerance {
		e = Row(f, 1).Cross(Row(f, 2))
	}
	return e
}

// Homogeneous lifts a 2D point to a 3-vector with Z=1.
func Homogeneous(p r2.Point) r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: 1}
}

// Normalize applies the isotropic scaling of Hartley & Zisserman Algorithm
// 11.1: translate the centroid to the origin and scale so the mean point
// distance from the origin is sqrt(2). Returns the transformed points and
// the 3x3 transform that produced them.
func Normalize(pts []r2.Point) ([]r2.Point, *mat.Dense) {
	n := len(pts)
	var mu r2.Point
	for _, p := range pts {
		mu.X += p.X
		mu.Y += p.Y
	}
	mu = mu.Mul(1 / float64(n))

	meanDist := 0.0
	for _, p := range pts {
		meanDist += math.Hypot(p.X-mu.X, p.Y-mu.Y) / float64(n)
	}
	scale := math.Sqrt2 / meanDist

	out := make([]r2.Point, n)
	for i, p := range pts {
		out[i] = r2.Point{X: scale * (p.X - mu.X), Y: scale * (p.Y - mu.Y)}
	}
	t := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	})
	return out, t
}

// Transpose returns a freshly allocated transpose of m.
func Transpose(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(c, r, nil)
	out.Copy(m.T())
	return out
}

// Identity returns the n x n identity matrix.
func Identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
