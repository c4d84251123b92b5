package geom

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestEnforceRank2ZeroesSmallestSingularValue(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 10,
	})
	repaired := EnforceRank2(m)

	svd, ok := Factorize(repaired)
	test.That(t, ok, test.ShouldBeTrue)
	values := svd.Sigma
	test.That(t, values.At(2, 2), test.ShouldAlmostEqual, 0, 1e-9)
}

func TestEpipoleFallsBackWhenFirstCrossIsZero(t *testing.T) {
	// row0 and row2 are parallel, so their cross product is the zero vector
	// and Epipole must fall back to row1 x row2.
	f := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		2, 0, 0,
	})
	e := Epipole(f)
	test.That(t, e, test.ShouldNotResemble, r3.Vector{})
}

func TestNormalizeCentersAndScales(t *testing.T) {
	pts := []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	out, transform := Normalize(pts)
	test.That(t, transform, test.ShouldNotBeNil)

	var mean r2.Point
	for _, p := range out {
		mean.X += p.X
		mean.Y += p.Y
	}
	mean = mean.Mul(1.0 / float64(len(out)))
	test.That(t, mean.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, mean.Y, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestSkewSymmetricMatchesCross(t *testing.T) {
	v := r3.Vector{X: 1, Y: 2, Z: 3}
	w := r3.Vector{X: 4, Y: -1, Z: 2}
	skew := SkewSymmetric(v)

	var wv mat.VecDense
	wv.MulVec(skew, mat.NewVecDense(3, []float64{w.X, w.Y, w.Z}))
	cross := v.Cross(w)

	test.That(t, wv.AtVec(0), test.ShouldAlmostEqual, cross.X, 1e-9)
	test.That(t, wv.AtVec(1), test.ShouldAlmostEqual, cross.Y, 1e-9)
	test.That(t, wv.AtVec(2), test.ShouldAlmostEqual, cross.Z, 1e-9)
}
