package usac_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/usac/usac/internal/fakesolver"
	"go.viam.com/usac/logging"
	usac "go.viam.com/usac/usac"
)

// syntheticHomography builds a PointSet of n correspondences related by a
// fixed planar homography, with a fraction of points replaced by random
// outliers, for driving the controller loop end to end.
func syntheticHomography(t *testing.T, n int, outlierFraction float64) *usac.PointSet {
	t.Helper()
	rng := rand.New(rand.NewSource(1))

	// A mild projective homography: scale, shear and a small perspective term.
	h := [9]float64{
		1.2, 0.1, 5,
		-0.05, 0.9, -3,
		0.0005, 0.0002, 1,
	}
	apply := func(x, y float64) (float64, float64) {
		w := h[6]*x + h[7]*y + h[8]
		return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w
	}

	pts1 := make([]r2.Point, n)
	pts2 := make([]r2.Point, n)
	for i := 0; i < n; i++ {
		x, y := rng.Float64()*100, rng.Float64()*100
		pts1[i] = r2.Point{X: x, Y: y}
		if rng.Float64() < outlierFraction {
			pts2[i] = r2.Point{X: rng.Float64() * 100, Y: rng.Float64() * 100}
			continue
		}
		xp, yp := apply(x, y)
		pts2[i] = r2.Point{X: xp, Y: yp}
	}

	points, err := usac.NewPointSet2D(pts1, pts2)
	test.That(t, err, test.ShouldBeNil)
	return points
}

func TestRunRecoversHomographyFromCleanData(t *testing.T) {
	points := syntheticHomography(t, 200, 0.0)
	logger, _ := logging.NewTest(t)

	params := usac.NewParams(usac.Homography, usac.UniformSampling, usac.RansacScore, 1.0, 0.99, 5000)
	errFn := fakesolver.NewReprojectionError(points)
	quality := usac.NewRansacQuality(points, errFn, params.Threshold())
	sampler := usac.NewUniformSampler(1, params.SampleSize(), points.Len())
	termination := usac.NewStandardTermination(0.99, params.SampleSize(), params.MaxIterations())
	verifier := usac.NewNullVerifier()
	degeneracy := usac.NewHomographyDegeneracy(points)

	r := usac.NewRansac(points, params, fakesolver.HomographyDLTSolver{}, quality, sampler, termination, verifier, degeneracy, nil, nil, logger)
	out, err := r.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Score.InlierCount, test.ShouldBeGreaterThanOrEqualTo, 190)
}

func TestRunWithOutliersStillRecoversMajorityInliers(t *testing.T) {
	points := syntheticHomography(t, 300, 0.35)
	logger, _ := logging.NewTest(t)

	params := usac.NewParams(usac.Homography, usac.UniformSampling, usac.RansacScore, 2.0, 0.99, 20000)
	errFn := fakesolver.NewReprojectionError(points)
	quality := usac.NewRansacQuality(points, errFn, params.Threshold())
	sampler := usac.NewUniformSampler(2, params.SampleSize(), points.Len())
	termination := usac.NewStandardTermination(0.99, params.SampleSize(), params.MaxIterations())
	verifier := usac.NewNullVerifier()
	degeneracy := usac.NewHomographyDegeneracy(points)

	r := usac.NewRansac(points, params, fakesolver.HomographyDLTSolver{}, quality, sampler, termination, verifier, degeneracy, nil, nil, logger)
	out, err := r.Run(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Score.InlierCount, test.ShouldBeGreaterThanOrEqualTo, 150)
}

func TestRunReturnsInsufficientDataError(t *testing.T) {
	points := syntheticHomography(t, 2, 0.0)
	logger, _ := logging.NewTest(t)

	params := usac.NewParams(usac.Homography, usac.UniformSampling, usac.RansacScore, 1.0, 0.99, 100)
	errFn := fakesolver.NewReprojectionError(points)
	quality := usac.NewRansacQuality(points, errFn, params.Threshold())
	sampler := usac.NewUniformSampler(1, params.SampleSize(), points.Len())
	termination := usac.NewStandardTermination(0.99, params.SampleSize(), params.MaxIterations())
	verifier := usac.NewNullVerifier()
	degeneracy := usac.NewHomographyDegeneracy(points)

	r := usac.NewRansac(points, params, fakesolver.HomographyDLTSolver{}, quality, sampler, termination, verifier, degeneracy, nil, nil, logger)
	_, err := r.Run(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRunRespectsContextCancellation(t *testing.T) {
	points := syntheticHomography(t, 200, 0.0)
	logger, _ := logging.NewTest(t)

	params := usac.NewParams(usac.Homography, usac.UniformSampling, usac.RansacScore, 1.0, 0.99, 5000)
	errFn := fakesolver.NewReprojectionError(points)
	quality := usac.NewRansacQuality(points, errFn, params.Threshold())
	sampler := usac.NewUniformSampler(1, params.SampleSize(), points.Len())
	termination := usac.NewStandardTermination(0.99, params.SampleSize(), params.MaxIterations())
	verifier := usac.NewNullVerifier()
	degeneracy := usac.NewHomographyDegeneracy(points)

	r := usac.NewRansac(points, params, fakesolver.HomographyDLTSolver{}, quality, sampler, termination, verifier, degeneracy, nil, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx)
	// A cancelled context stops the loop before any sample is drawn, so
	// nothing is ever adopted and the run reports zero inliers.
	test.That(t, err, test.ShouldEqual, usac.ErrZeroInliers)
}
