package usac

import (
	"math"
	"math/rand"

	"go.viam.com/usac/logging"
)

// sprtMachineEpsilon bounds the fixed-point iteration that computes the
// SPRT decision threshold A, mirroring the original's use of FLT_EPSILON
// rather than float64's epsilon: the iteration is inherently low-precision
// (it's a rough operating-characteristic bound, not a exact root find) and
// converges well before float64 epsilon would ever be reached.
const sprtMachineEpsilon = 1.19209290e-07

// reestimateDeltaTolerance is the relative drift in the estimated delta
// that triggers a test re-design on rejection.
const reestimateDeltaTolerance = 0.05

// sprtCore implements Wald's SPRT per Matas-Chum 2005 with the online
// parameter re-estimation described in the same paper: epsilon tightens
// whenever a new high-water-mark inlier count is accepted, delta retunes
// whenever an observed rejection disagrees with the current delta by more
// than 5%.
type sprtCore struct {
	points    *PointSet
	err       Error
	threshold float64

	rng  *rand.Rand
	pool []int

	tM, mS float64

	currentEpsilon, currentDelta, currentA float64
	r1, r0                                 float64 // delta/epsilon, (1-delta)/(1-epsilon)

	highestInlierNumber int
	history             *sprtHistoryLog

	lastAccepted bool
	lastScore    Score

	logger logging.Logger
}

func newSPRTCore(points *PointSet, err Error, threshold, epsilon0, delta0, tM, mS float64, seed int, logger logging.Logger) *sprtCore {
	n := points.Len()
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	rng := rand.New(rand.NewSource(int64(seed))) //nolint:gosec
	rng.Shuffle(n, func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	c := &sprtCore{
		points:    points,
		err:       err,
		threshold: threshold,
		rng:       rng,
		pool:      pool,
		tM:        tM,
		mS:        mS,
		logger:    logger,
	}
	c.createTest(epsilon0, delta0)
	return c
}

// createTest installs a new SPRT design, clamping epsilon/delta into their
// numerically safe ranges and recomputing A and the per-point likelihood
// ratios. Clamping is a NumericalClamp event: it never fails the run, it is
// only ever logged.
func (c *sprtCore) createTest(epsilon, delta float64) {
	if epsilon > 0.999999 {
		if c.logger != nil {
			c.logger.Debugw("sprt: clamped epsilon", "epsilon", epsilon)
		}
		epsilon = 0.99
	}
	if delta > 0.8 {
		if c.logger != nil {
			c.logger.Debugw("sprt: clamped delta", "delta", delta)
		}
		delta = 0.8
	}

	c.currentEpsilon = epsilon
	c.currentDelta = delta
	c.currentA = c.estimateThresholdA(epsilon, delta)
	c.r1 = delta / epsilon
	c.r0 = (1 - delta) / (1 - epsilon)

	if c.history == nil {
		c.history = newSprtHistoryLog(epsilon, delta, c.currentA)
	} else {
		c.history.push(SprtHistory{Epsilon: epsilon, Delta: delta, A: c.currentA})
	}
}

// estimateThresholdA computes the decision threshold A via the recursive
// formula A(n+1) = K + log(A(n)), iterating at most 10 times or until the
// sequence stops moving.
func (c *sprtCore) estimateThresholdA(epsilon, delta float64) float64 {
	cKL := (1-delta)*math.Log((1-delta)/(1-epsilon)) + delta*math.Log(delta/epsilon)
	k := c.tM*cKL/c.mS + 1
	a := k
	for i := 0; i < 10; i++ {
		next := k + math.Log(a)
		if math.Abs(next-a) < sprtMachineEpsilon {
			a = next
			break
		}
		a = next
	}
	return a
}

// isInlierFunc abstracts whether a universal verifier (delegating to
// Quality) or a score-capturing verifier (computing its own residual) is
// running the test loop below.
type isInlierFunc func(pointIdx int) bool

// runTest executes one SPRT pass over the pre-shuffled pool starting at a
// random offset, returning whether the model was accepted and how many of
// the tested points (up to the point of any rejection) were inliers.
func (c *sprtCore) runTest(isInlier isInlierFunc) (accepted bool, testedInliers, testedPoints int) {
	n := len(c.pool)
	offset := c.rng.Intn(n)
	lambda := 1.0
	for j := 0; j < n; j++ {
		idx := c.pool[(offset+j)%n]
		if isInlier(idx) {
			testedInliers++
			lambda *= c.r1
		} else {
			lambda *= c.r0
		}
		testedPoints = j + 1
		if lambda > c.currentA {
			return false, testedInliers, testedPoints
		}
	}
	return true, testedInliers, testedPoints
}

// afterTest runs the online re-estimation rules and bumps the current
// history's tested-sample counter, exactly once per call regardless of
// outcome.
func (c *sprtCore) afterTest(accepted bool, testedInliers, testedPoints int) {
	c.history.current().TestedSamples++

	if accepted {
		if testedInliers > c.highestInlierNumber {
			c.highestInlierNumber = testedInliers
			c.createTest(float64(testedInliers)/float64(len(c.pool)), c.currentDelta)
		}
		return
	}

	if testedPoints == 0 {
		return
	}
	deltaHat := float64(testedInliers) / float64(testedPoints)
	if deltaHat > 0 && math.Abs(c.currentDelta-deltaHat)/c.currentDelta > reestimateDeltaTolerance {
		c.createTest(c.currentEpsilon, deltaHat)
	}
}

// History returns a copy of the accumulated SPRT test-design ledger.
func (c *sprtCore) History() []SprtHistory { return c.history.Entries() }

// Update installs a tightened high-water-mark inlier count from the
// controller's running best, called by the controller after every adoption
// of a better score, including one found by local optimization.
func (c *sprtCore) Update(bestInlierCount int) {
	if bestInlierCount > c.highestInlierNumber {
		c.highestInlierNumber = bestInlierCount
	}
}

// SPRTUniversal delegates its per-point inlier test to a Quality instance
// and reports only accept/reject; it never captures a Score.
type SPRTUniversal struct {
	core    *sprtCore
	quality Quality
	seed    int
}

// NewSPRTUniversal constructs a universal SPRT verifier backed by quality.
func NewSPRTUniversal(points *PointSet, quality Quality, threshold, epsilon0, delta0, tM, mS float64, seed int, logger logging.Logger) *SPRTUniversal {
	return &SPRTUniversal{
		core:    newSPRTCore(points, nil, threshold, epsilon0, delta0, tM, mS, seed, logger),
		quality: quality,
		seed:    seed,
	}
}

// IsModelGood runs one SPRT pass, binding model to the underlying Quality first.
func (v *SPRTUniversal) IsModelGood(model *CandidateModel) bool {
	v.quality.SetModel(model)
	accepted, testedInliers, testedPoints := v.core.runTest(v.quality.IsInlier)
	v.core.afterTest(accepted, testedInliers, testedPoints)
	return accepted
}

// GetScore always reports false: the universal verifier never captures a score.
func (v *SPRTUniversal) GetScore() (Score, bool) { return Score{}, false }

// Update forwards the controller's tightened inlier bound to the core.
func (v *SPRTUniversal) Update(bestInlierCount int) { v.core.Update(bestInlierCount) }

// History returns a copy of the accumulated SPRT test-design ledger.
func (v *SPRTUniversal) History() []SprtHistory { return v.core.History() }

// Clone returns an independent verifier reseeded for a parallel worker. It
// must not be called concurrently on a shared instance since it derives
// its seed from the receiver's fixed seed field; callers that need that
// (the parallel controller) use CloneSeeded instead.
func (v *SPRTUniversal) Clone() Verifier {
	derived := abs(v.seed)/10 + 10
	return v.CloneSeeded(derived)
}

// CloneSeeded returns an independent verifier seeded exactly with seed.
func (v *SPRTUniversal) CloneSeeded(seed int) Verifier {
	return NewSPRTUniversal(v.core.points, v.quality.Clone(), v.core.threshold, v.core.currentEpsilon, v.core.currentDelta, v.core.tM, v.core.mS, seed, v.core.logger)
}

// scoreCapturingSPRT is the shared implementation behind SPRTScoreRansac
// and SPRTScoreMsac: it computes residuals itself (rather than delegating
// to Quality) so that on acceptance it can hand back a Score for free,
// without a second scoring pass over the data.
type scoreCapturingSPRT struct {
	core   *sprtCore
	binary bool
	seed   int
}

func newScoreCapturingSPRT(points *PointSet, err Error, threshold, epsilon0, delta0, tM, mS float64, seed int, logger logging.Logger, binary bool) *scoreCapturingSPRT {
	return &scoreCapturingSPRT{
		core:   newSPRTCore(points, err, threshold, epsilon0, delta0, tM, mS, seed, logger),
		binary: binary,
		seed:   seed,
	}
}

func (v *scoreCapturingSPRT) isModelGood(model *CandidateModel) bool {
	v.core.err.SetModel(model)
	sum := 0.0
	isInlier := func(idx int) bool {
		e := v.core.err.Residual(idx)
		inlier := e < v.core.threshold
		if inlier {
			sum += e
		} else {
			sum += v.core.threshold
		}
		return inlier
	}
	accepted, testedInliers, testedPoints := v.core.runTest(isInlier)
	v.core.afterTest(accepted, testedInliers, testedPoints)

	v.core.lastAccepted = accepted
	if accepted {
		if v.binary {
			v.core.lastScore = Score{InlierCount: testedInliers, Cost: -float64(testedInliers)}
		} else {
			v.core.lastScore = Score{InlierCount: testedInliers, Cost: sum}
		}
	}
	return accepted
}

func (v *scoreCapturingSPRT) getScore() (Score, bool) {
	if !v.core.lastAccepted {
		return Score{}, false
	}
	return v.core.lastScore, true
}

func (v *scoreCapturingSPRT) update(bestInlierCount int) { v.core.Update(bestInlierCount) }

// SPRTScoreRansac is the binary-cost (-inlier_count) score-capturing SPRT variant.
type SPRTScoreRansac struct{ inner *scoreCapturingSPRT }

// NewSPRTScoreRansac constructs a RANSAC-cost score-capturing SPRT verifier.
func NewSPRTScoreRansac(points *PointSet, err Error, threshold, epsilon0, delta0, tM, mS float64, seed int, logger logging.Logger) *SPRTScoreRansac {
	return &SPRTScoreRansac{inner: newScoreCapturingSPRT(points, err, threshold, epsilon0, delta0, tM, mS, seed, logger, true)}
}

// IsModelGood runs one SPRT pass and captures a binary-cost Score on accept.
func (v *SPRTScoreRansac) IsModelGood(model *CandidateModel) bool { return v.inner.isModelGood(model) }

// GetScore returns the score captured by the last accepted model, if any.
func (v *SPRTScoreRansac) GetScore() (Score, bool) { return v.inner.getScore() }

// History returns a copy of the accumulated SPRT test-design ledger.
func (v *SPRTScoreRansac) History() []SprtHistory { return v.inner.core.History() }

// Update forwards the controller's tightened inlier bound.
func (v *SPRTScoreRansac) Update(bestInlierCount int) { v.inner.update(bestInlierCount) }

// Clone returns an independent verifier reseeded for a parallel worker. It
// must not be called concurrently on a shared instance since it derives
// its seed from the receiver's fixed seed field; callers that need that
// (the parallel controller) use CloneSeeded instead.
func (v *SPRTScoreRansac) Clone() Verifier {
	derived := abs(v.inner.seed)/10 + 10
	return v.CloneSeeded(derived)
}

// CloneSeeded returns an independent verifier seeded exactly with seed.
func (v *SPRTScoreRansac) CloneSeeded(seed int) Verifier {
	c := v.inner.core
	return NewSPRTScoreRansac(c.points, c.err.Clone(), c.threshold, c.currentEpsilon, c.currentDelta, c.tM, c.mS, seed, c.logger)
}

// SPRTScoreMsac is the truncated-residual-sum score-capturing SPRT variant.
type SPRTScoreMsac struct{ inner *scoreCapturingSPRT }

// NewSPRTScoreMsac constructs an MSAC-cost score-capturing SPRT verifier.
func NewSPRTScoreMsac(points *PointSet, err Error, threshold, epsilon0, delta0, tM, mS float64, seed int, logger logging.Logger) *SPRTScoreMsac {
	return &SPRTScoreMsac{inner: newScoreCapturingSPRT(points, err, threshold, epsilon0, delta0, tM, mS, seed, logger, false)}
}

// IsModelGood runs one SPRT pass and captures a truncated-sum Score on accept.
func (v *SPRTScoreMsac) IsModelGood(model *CandidateModel) bool { return v.inner.isModelGood(model) }

// GetScore returns the score captured by the last accepted model, if any.
func (v *SPRTScoreMsac) GetScore() (Score, bool) { return v.inner.getScore() }

// History returns a copy of the accumulated SPRT test-design ledger.
func (v *SPRTScoreMsac) History() []SprtHistory { return v.inner.core.History() }

// Update forwards the controller's tightened inlier bound.
func (v *SPRTScoreMsac) Update(bestInlierCount int) { v.inner.update(bestInlierCount) }

// Clone returns an independent verifier reseeded for a parallel worker. It
// must not be called concurrently on a shared instance since it derives
// its seed from the receiver's fixed seed field; callers that need that
// (the parallel controller) use CloneSeeded instead.
func (v *SPRTScoreMsac) Clone() Verifier {
	derived := abs(v.inner.seed)/10 + 10
	return v.CloneSeeded(derived)
}

// CloneSeeded returns an independent verifier seeded exactly with seed.
func (v *SPRTScoreMsac) CloneSeeded(seed int) Verifier {
	c := v.inner.core
	return NewSPRTScoreMsac(c.points, c.err.Clone(), c.threshold, c.currentEpsilon, c.currentDelta, c.tM, c.mS, seed, c.logger)
}
