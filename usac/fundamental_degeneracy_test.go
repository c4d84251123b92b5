package usac_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/usac/usac/internal/fakesolver"
	"go.viam.com/usac/logging"
	usac "go.viam.com/usac/usac"
)

// syntheticPlanarDominantFundamental builds nPlanar + nOffPlane
// correspondences consistent with a single fixed fundamental matrix F =
// [e']_x H: the first nPlanar rows are related by the homography H (and so
// lie exactly on a common world plane, the classical fundamental-matrix
// degeneracy), the remaining nOffPlane rows are picked on F's epipolar
// line for a random first-image point but off the plane. Both groups
// satisfy p2^T F p1 = 0 exactly.
func syntheticPlanarDominantFundamental(t *testing.T, nPlanar, nOffPlane int) (*usac.PointSet, *mat.Dense) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))

	h := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0.001, 0.0006, 1})
	epipole := []float64{50, -30, 1}

	var f mat.Dense
	f.Mul(skew(epipole), h)

	pts1 := make([]r2.Point, 0, nPlanar+nOffPlane)
	pts2 := make([]r2.Point, 0, nPlanar+nOffPlane)

	for i := 0; i < nPlanar; i++ {
		x, y := rng.Float64()*100, rng.Float64()*100
		p1 := mat.NewVecDense(3, []float64{x, y, 1})
		var hp1 mat.VecDense
		hp1.MulVec(h, p1)
		w := hp1.AtVec(2)
		pts1 = append(pts1, r2.Point{X: x, Y: y})
		pts2 = append(pts2, r2.Point{X: hp1.AtVec(0) / w, Y: hp1.AtVec(1) / w})
	}

	for i := 0; i < nOffPlane; i++ {
		x, y := rng.Float64()*100, rng.Float64()*100
		p1 := mat.NewVecDense(3, []float64{x, y, 1})
		var line mat.VecDense
		line.MulVec(&f, p1)
		a, b, c := line.AtVec(0), line.AtVec(1), line.AtVec(2)
		for math.Abs(b) < 1e-6 {
			x, y = rng.Float64()*100, rng.Float64()*100
			p1 = mat.NewVecDense(3, []float64{x, y, 1})
			line.MulVec(&f, p1)
			a, b, c = line.AtVec(0), line.AtVec(1), line.AtVec(2)
		}
		x2 := rng.Float64() * 100
		y2 := -(a*x2 + c) / b
		pts1 = append(pts1, r2.Point{X: x, Y: y})
		pts2 = append(pts2, r2.Point{X: x2, Y: y2})
	}

	points, err := usac.NewPointSet2D(pts1, pts2)
	test.That(t, err, test.ShouldBeNil)
	return points, &f
}

func skew(v []float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v[2], v[1],
		v[2], 0, -v[0],
		-v[1], v[0], 0,
	})
}

// TestFundamentalDegeneracyRecoversFromPlanarSample exercises spec scenario
// 3 directly against the degeneracy handler: an 8-point sample drawn
// entirely from the dominant-plane subset fits a fundamental matrix that is
// degenerate (consistent with the whole plane-induced family, not just the
// true F), and RecoverIfDegenerate must detect it and repair it via
// plane-and-parallax into a model whose score over the full point set
// beats the uncorrected sample fit.
func TestFundamentalDegeneracyRecoversFromPlanarSample(t *testing.T) {
	points, _ := syntheticPlanarDominantFundamental(t, 60, 20)
	errFn := fakesolver.NewSampsonError(points)
	quality := usac.NewMsacQuality(points, errFn, 1.0)

	sample := usac.Sample{0, 1, 2, 3, 4, 5, 6, 7} // entirely within the planar block
	models := make([]*usac.CandidateModel, fakesolver.FundamentalLinearSolver{}.MaxNumSolutions())
	n := fakesolver.FundamentalLinearSolver{}.Estimate(points, sample, models)
	test.That(t, n, test.ShouldEqual, 1)
	sampleFit := models[0]

	sampleFitScore := quality.GetScore(sampleFit)

	degeneracy := usac.NewFundamentalDegeneracy(11, quality.Clone(), points, 8, 2.0)
	degenerate, repaired, repairedScore := degeneracy.RecoverIfDegenerate(sample, sampleFit)

	test.That(t, degenerate, test.ShouldBeTrue)
	test.That(t, repaired, test.ShouldNotBeNil)
	test.That(t, repairedScore.IsBetter(sampleFitScore), test.ShouldBeTrue)
	test.That(t, repairedScore.InlierCount, test.ShouldBeGreaterThanOrEqualTo, 70)
}

// TestRunRecoversFundamentalWithPlanarDominantSample drives the full
// controller loop (real UniformSampler, real FundamentalDegeneracy,
// fakesolver's 8-point linear solver and Sampson error) over the spec
// scenario 3 point set: 80 correspondences, 60 of them on a common plane.
// Plain 8-point RANSAC without degeneracy handling risks anchoring on a
// plausible-looking but wrong plane-induced F; this asserts the controller
// still converges to a model consistent with (almost) the whole set.
func TestRunRecoversFundamentalWithPlanarDominantSample(t *testing.T) {
	points, _ := syntheticPlanarDominantFundamental(t, 60, 20)
	logger, _ := logging.NewTest(t)

	params := usac.NewParams(usac.Fundamental8, usac.UniformSampling, usac.MsacScore, 1.0, 0.99, 8000)
	errFn := fakesolver.NewSampsonError(points)
	quality := usac.NewMsacQuality(points, errFn, params.Threshold())
	sampler := usac.NewUniformSampler(11, params.SampleSize(), points.Len())
	termination := usac.NewStandardTermination(0.99, params.SampleSize(), params.MaxIterations())
	verifier := usac.NewNullVerifier()
	degeneracy := usac.NewFundamentalDegeneracy(11, quality.Clone(), points, params.SampleSize(), 2.0)

	r := usac.NewRansac(points, params, fakesolver.FundamentalLinearSolver{}, quality, sampler, termination, verifier, degeneracy, nil, nil, logger)
	out, err := r.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Score.InlierCount, test.ShouldBeGreaterThanOrEqualTo, 70)
}
