package usac

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/usac/geom"
)

// NullDegeneracy never flags a sample or model as degenerate, for geometry
// families (similarity, affine, PnP) with no known dominant-plane failure
// mode.
type NullDegeneracy struct{}

// NewNullDegeneracy constructs a degeneracy handler that always passes.
func NewNullDegeneracy() *NullDegeneracy { return &NullDegeneracy{} }

// IsSampleGood always returns true.
func (*NullDegeneracy) IsSampleGood(Sample) bool { return true }

// IsModelValid always returns true.
func (*NullDegeneracy) IsModelValid(*CandidateModel, Sample) bool { return true }

// RecoverIfDegenerate never finds a degeneracy to repair.
func (*NullDegeneracy) RecoverIfDegenerate(Sample, *CandidateModel) (bool, *CandidateModel, Score) {
	return false, nil, WorstScore()
}

// Clone returns a new NullDegeneracy (stateless, so any instance suffices).
func (*NullDegeneracy) Clone() Degeneracy { return &NullDegeneracy{} }

// CloneSeeded returns a new NullDegeneracy; seed is ignored since
// NullDegeneracy has no random state.
func (*NullDegeneracy) CloneSeeded(int) Degeneracy { return &NullDegeneracy{} }

// HomographyDegeneracy rejects 4-point samples whose two image
// quadrilaterals are not consistently oriented: for each of the four
// triangulating lines, the signed distance from the remaining two points
// must agree in sign across both images. A sample failing this cannot
// yield a valid planar homeomorphism.
type HomographyDegeneracy struct {
	points *PointSet
}

// NewHomographyDegeneracy constructs the homography sample-goodness check.
func NewHomographyDegeneracy(points *PointSet) *HomographyDegeneracy {
	return &HomographyDegeneracy{points: points}
}

// IsSampleGood checks the 4-point orientation-consistency constraint.
func (d *HomographyDegeneracy) IsSampleGood(sample Sample) bool {
	p1, p2, p3, p4 := d.points.Point1(sample[0]), d.points.Point1(sample[1]), d.points.Point1(sample[2]), d.points.Point1(sample[3])
	q1, q2, q3, q4 := d.points.Point2(sample[0]), d.points.Point2(sample[1]), d.points.Point2(sample[2]), d.points.Point2(sample[3])

	abX, abY, abZ := p1.Y-p2.Y, p2.X-p1.X, p1.X*p2.Y-p1.Y*p2.X
	ABX, ABY, ABZ := q1.Y-q2.Y, q2.X-q1.X, q1.X*q2.Y-q1.Y*q2.X

	if (abX*p3.X+abY*p3.Y+abZ)*(ABX*q3.X+ABY*q3.Y+ABZ) < 0 {
		return false
	}
	if (abX*p4.X+abY*p4.Y+abZ)*(ABX*q4.X+ABY*q4.Y+ABZ) < 0 {
		return false
	}

	cdX, cdY, cdZ := p3.Y-p4.Y, p4.X-p3.X, p3.X*p4.Y-p3.Y*p4.X
	CDX, CDY, CDZ := q3.Y-q4.Y, q4.X-q3.X, q3.X*q4.Y-q3.Y*q4.X

	if (cdX*p1.X+cdY*p1.Y+cdZ)*(CDX*q1.X+CDY*q1.Y+CDZ) < 0 {
		return false
	}
	if (cdX*p2.X+cdY*p2.Y+cdZ)*(CDX*q2.X+CDY*q2.Y+CDZ) < 0 {
		return false
	}
	return true
}

// IsModelValid always returns true: homography degeneracy is caught at
// sample-draw time, there is no separate model-level check.
func (*HomographyDegeneracy) IsModelValid(*CandidateModel, Sample) bool { return true }

// RecoverIfDegenerate is a no-op: homography degeneracy is rejected at
// sample-draw time via IsSampleGood, not repaired after estimation.
func (*HomographyDegeneracy) RecoverIfDegenerate(Sample, *CandidateModel) (bool, *CandidateModel, Score) {
	return false, nil, WorstScore()
}

// Clone returns an independent copy; HomographyDegeneracy has no mutable
// per-call state so the clone shares the (read-only) point set.
func (d *HomographyDegeneracy) Clone() Degeneracy { return &HomographyDegeneracy{points: d.points} }

// CloneSeeded returns an independent copy; seed is ignored since
// HomographyDegeneracy has no random state.
func (d *HomographyDegeneracy) CloneSeeded(int) Degeneracy {
	return &HomographyDegeneracy{points: d.points}
}

const epipolarOrientationZeroTolerance = 1.9984e-15

// EpipolarGeometryDegeneracy implements the oriented epipolar constraint:
// a fundamental matrix sample is invalid if it places correspondences on
// opposite sides of the camera, detected by a sign mismatch in the
// oriented epipolar quantity.
type EpipolarGeometryDegeneracy struct {
	points *PointSet
}

// NewEpipolarGeometryDegeneracy constructs the oriented-epipolar validity check.
func NewEpipolarGeometryDegeneracy(points *PointSet) *EpipolarGeometryDegeneracy {
	return &EpipolarGeometryDegeneracy{points: points}
}

// IsModelValid checks that every sample point shares the orientation sign of the first.
func (d *EpipolarGeometryDegeneracy) IsModelValid(model *CandidateModel, sample Sample) bool {
	f := model.Mat
	ec := geom.Epipole(f)
	sig1 := d.orientationSignal(f, ec, sample[0])
	for i := 1; i < len(sample); i++ {
		if sig1*d.orientationSignal(f, ec, sample[i]) < 0 {
			return false
		}
	}
	return true
}

func (d *EpipolarGeometryDegeneracy) orientationSignal(f *mat.Dense, ec r3.Vector, ptIdx int) float64 {
	p2 := d.points.Point2(ptIdx)
	p1 := d.points.Point1(ptIdx)
	s1 := f.At(0, 0)*p2.X + f.At(1, 0)*p2.Y + f.At(2, 0)
	s2 := ec.Y - ec.Z*p1.Y
	return s1 * s2
}

// IsSampleGood always returns true: the oriented constraint is a
// model-level check, evaluated by IsModelValid once F has been estimated.
func (*EpipolarGeometryDegeneracy) IsSampleGood(Sample) bool { return true }

// RecoverIfDegenerate never finds a degeneracy to repair: plane-and-
// parallax recovery is specific to FundamentalDegeneracy, which embeds
// this type for its oriented-epipolar check alone.
func (*EpipolarGeometryDegeneracy) RecoverIfDegenerate(Sample, *CandidateModel) (bool, *CandidateModel, Score) {
	return false, nil, WorstScore()
}

// Clone returns an independent copy; the oriented check has no mutable
// per-call state so the clone shares the (read-only) point set.
func (d *EpipolarGeometryDegeneracy) Clone() Degeneracy {
	return &EpipolarGeometryDegeneracy{points: d.points}
}

// CloneSeeded returns an independent copy; seed is ignored since
// EpipolarGeometryDegeneracy has no random state.
func (d *EpipolarGeometryDegeneracy) CloneSeeded(int) Degeneracy {
	return &EpipolarGeometryDegeneracy{points: d.points}
}

// RecoverRank zeroes the smallest singular value of a 3x3 model and
// recomposes it, the standard repair after a non-minimal (over-determined)
// fundamental or essential matrix estimate.
func RecoverRank(model *mat.Dense) *mat.Dense {
	return geom.EnforceRank2(model)
}

const (
	fundamentalEpipoleZeroTolerance   = 1e-10
	fundamentalPlaneParallaxLogConf   = -2.995732273553991 // log(0.05)
	fundamentalPlaneParallaxMaxIters  = 100
	fundamentalHomographyInlierNeeded = 5
)

// fundamentalHSamplesBase and fundamentalHSamplesExtra form the
// Chum-Matas-Werner triplet table: which three
// sample indices to use for each candidate plane homography, extended from
// 5 to 10 triplets when the sample is the 8-point (non-minimal) variant.
var fundamentalHSamplesBase = [][3]int{{0, 1, 2}, {3, 4, 5}, {0, 1, 6}, {3, 4, 6}, {2, 5, 6}}
var fundamentalHSamplesExtra = [][3]int{{0, 1, 7}, {0, 2, 7}, {3, 5, 7}, {3, 6, 7}, {2, 4, 7}}

// FundamentalDegeneracy detects a dominant-plane degeneracy in a
// fundamental-matrix sample and repairs it via plane-and-parallax
// (Chum-Matas-Werner, CVPR 2005): it fits a plane homography from sample
// triplets, and if enough of the sample lies on that plane, re-derives F
// from two points off the plane.
type FundamentalDegeneracy struct {
	rng                 *rand.Rand
	quality             Quality
	points              *PointSet
	epipolar            *EpipolarGeometryDegeneracy
	homographyThreshold float64
	hSamples            [][3]int
	seed                int
}

// NewFundamentalDegeneracy constructs the fundamental-matrix degeneracy handler.
func NewFundamentalDegeneracy(seed int, quality Quality, points *PointSet, sampleSize int, homographyThreshold float64) *FundamentalDegeneracy {
	hSamples := make([][3]int, len(fundamentalHSamplesBase))
	copy(hSamples, fundamentalHSamplesBase)
	if sampleSize == 8 {
		hSamples = append(hSamples, fundamentalHSamplesExtra...)
	}
	return &FundamentalDegeneracy{
		rng:                 rand.New(rand.NewSource(int64(seed))), //nolint:gosec
		quality:             quality,
		points:              points,
		epipolar:            NewEpipolarGeometryDegeneracy(points),
		homographyThreshold: homographyThreshold,
		hSamples:            hSamples,
		seed:                seed,
	}
}

// IsSampleGood always returns true: fundamental degeneracy is a model-level
// check, not a sample-level one.
func (d *FundamentalDegeneracy) IsSampleGood(sample Sample) bool { return true }

// IsModelValid delegates to the oriented-epipolar-constraint check.
func (d *FundamentalDegeneracy) IsModelValid(model *CandidateModel, sample Sample) bool {
	return d.epipolar.IsModelValid(model, sample)
}

// RecoverIfDegenerate fits a plane homography from each candidate sample
// triplet; if at least 5 sample points lie on that plane, it repairs F via
// plane-and-parallax RANSAC and keeps the best-scoring repair seen across
// all triplets.
func (d *FundamentalDegeneracy) RecoverIfDegenerate(sample Sample, fBest *CandidateModel) (bool, *CandidateModel, Score) {
	bestScore := WorstScore()
	var bestRepaired *CandidateModel
	degenerate := false

	ePrime := geom.Col(fBest.Mat, 0).Cross(geom.Col(fBest.Mat, 2))
	if math.Abs(ePrime.X) < fundamentalEpipoleZeroTolerance && math.Abs(ePrime.Y) < fundamentalEpipoleZeroTolerance && math.Abs(ePrime.Z) < fundamentalEpipoleZeroTolerance {
		ePrime = geom.Col(fBest.Mat, 1).Cross(geom.Col(fBest.Mat, 2))
	}

	var a mat.Dense
	a.Mul(geom.SkewSymmetric(ePrime), fBest.Mat)

	for _, h := range d.hSamples {
		m := mat.NewDense(3, 3, []float64{0, 0, 1, 0, 0, 1, 0, 0, 1})
		b := mat.NewVecDense(3, nil)

		for row, sIdx := range h {
			idx := sample[sIdx]
			xi := r3.Vector{X: d.points.Point1(idx).X, Y: d.points.Point1(idx).Y, Z: 1}
			xiPrime := r3.Vector{X: d.points.Point2(idx).X, Y: d.points.Point2(idx).Y, Z: 1}

			var axi mat.VecDense
			axi.MulVec(&a, vec3(xi))
			axPrime := xiPrime.Cross(vecToR3(&axi))
			xPrimeCrossE := xiPrime.Cross(ePrime)

			b.SetVec(row, axPrime.Dot(xPrimeCrossE)/math.Pow(xPrimeCrossE.Norm(), 2))
			m.Set(row, 0, xi.X)
			m.Set(row, 1, xi.Y)
		}

		var mInv mat.Dense
		if err := mInv.Inverse(m); err != nil {
			continue
		}
		var mInvB mat.VecDense
		mInvB.MulVec(&mInv, b)

		var eOuter mat.Dense
		eOuter.Outer(1, vec3(ePrime), &mInvB)
		var h33 mat.Dense
		h33.Sub(&a, &eOuter)

		inliersOnPlane := 0
		for _, sIdx := range sample {
			if homographyReprojectionError(&h33, d.points, sIdx) < d.homographyThreshold {
				inliersOnPlane++
			}
		}
		if inliersOnPlane < fundamentalHomographyInlierNeeded {
			continue
		}
		degenerate = true

		newF, newScore := d.planeAndParallaxRANSAC(&h33)
		if newScore.IsBetter(bestScore) {
			bestScore = newScore
			bestRepaired = newF
		}
	}
	return degenerate, bestRepaired, bestScore
}

// planeAndParallaxRANSAC repairs a degenerate fundamental matrix from its
// dominant-plane homography H by sampling pairs of H-outliers and
// re-deriving F via the parallax construction, scoring each candidate with
// the shared Quality instance and adaptively shrinking the iteration cap
// once a confident inlier ratio is seen.
func (d *FundamentalDegeneracy) planeAndParallaxRANSAC(h *mat.Dense) (*CandidateModel, Score) {
	maxIters := fundamentalPlaneParallaxMaxIters
	bestScore := WorstScore()
	var bestF *CandidateModel
	n := d.points.Len()

	for iters := 0; iters < maxIters; iters++ {
		o1 := d.rng.Intn(n)
		o2 := d.rng.Intn(n)
		for o2 == o1 {
			o2 = d.rng.Intn(n)
		}
		if homographyReprojectionError(h, d.points, o1) <= d.homographyThreshold ||
			homographyReprojectionError(h, d.points, o2) <= d.homographyThreshold {
			continue
		}

		pt1 := geom.Homogeneous(d.points.Point1(o1))
		pt2 := geom.Homogeneous(d.points.Point1(o2))
		pt1Prime := geom.Homogeneous(d.points.Point2(o1))
		pt2Prime := geom.Homogeneous(d.points.Point2(o2))

		var hpt1, hpt2 mat.VecDense
		hpt1.MulVec(h, vec3(pt1))
		hpt2.MulVec(h, vec3(pt2))

		cross1 := pt1Prime.Cross(vecToR3(&hpt1))
		cross2 := pt2Prime.Cross(vecToR3(&hpt2))
		skew := geom.SkewSymmetric(cross1.Cross(cross2))

		var f mat.Dense
		f.Mul(skew, h)

		score := d.quality.GetScore(&CandidateModel{Mat: &f})
		if score.IsBetter(bestScore) {
			bestScore = score
			var clone mat.Dense
			clone.CloneFrom(&f)
			bestF = &CandidateModel{Mat: &clone}

			r := float64(score.InlierCount) / float64(n)
			predictedIters := fundamentalPlaneParallaxLogConf / math.Log(1-r*r)
			if !math.IsInf(predictedIters, 0) && !math.IsNaN(predictedIters) && int(predictedIters) < maxIters {
				maxIters = int(predictedIters)
			}
		}
	}
	return bestF, bestScore
}

// Clone returns an independent degeneracy handler reseeded for a parallel
// worker. It must not be called concurrently on a shared instance since it
// derives its seed from the receiver's fixed seed field; callers that need
// that (the parallel controller) use CloneSeeded instead.
func (d *FundamentalDegeneracy) Clone() Degeneracy {
	derived := abs(d.seed)/10 + 10
	return d.CloneSeeded(derived)
}

// CloneSeeded returns an independent degeneracy handler seeded exactly
// with seed.
func (d *FundamentalDegeneracy) CloneSeeded(seed int) Degeneracy {
	sampleSize := 7
	if len(d.hSamples) > len(fundamentalHSamplesBase) {
		sampleSize = 8
	}
	return NewFundamentalDegeneracy(seed, d.quality.Clone(), d.points, sampleSize, d.homographyThreshold)
}

// homographyReprojectionError is the forward reprojection error x' ~ Hx
// used only by the degeneracy handler to test plane membership; it is
// intentionally not the injected Error implementation, since the plane
// homography H here is an internal construction, not a candidate model the
// controller ever sees.
func homographyReprojectionError(h *mat.Dense, points *PointSet, idx int) float64 {
	x := points.Point1(idx)
	var hx mat.VecDense
	hx.MulVec(h, vec3(geom.Homogeneous(x)))
	w := hx.AtVec(2)
	if w == 0 {
		return math.Inf(1)
	}
	px, py := hx.AtVec(0)/w, hx.AtVec(1)/w
	xPrime := points.Point2(idx)
	return math.Hypot(px-xPrime.X, py-xPrime.Y)
}

func vec3(v r3.Vector) *mat.VecDense {
	return mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
}

func vecToR3(v *mat.VecDense) r3.Vector {
	return r3.Vector{X: v.AtVec(0), Y: v.AtVec(1), Z: v.AtVec(2)}
}
