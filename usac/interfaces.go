package usac

// Error is the per-point residual contract the core delegates to. It is a
// pure function of the last model passed to SetModel and the immutable
// PointSet; implementations must be cloneable because Quality and Verifier
// hold one per parallel worker.
type Error interface {
	SetModel(model *CandidateModel)
	Residual(pointIdx int) float64
	Clone() Error
}

// Solver instantiates zero or more candidate models from a minimal sample.
// maxNumSolutions bounds the slice the controller should allocate once and
// reuse across iterations.
type Solver interface {
	Estimate(points *PointSet, sample Sample, out []*CandidateModel) int
	MinimalSampleSize() int
	MaxNumSolutions() int
}

// LocalOptimization refines a promising model given the running best.
// The MAGSAC/SIGMA variant additionally takes the just-verified candidate
// as a refinement seed rather than treating the call as a standalone
// inner RANSAC; Refine and RefineSeeded correspond to the two call shapes
// in the spec's controller loop.
type LocalOptimization interface {
	Refine(points *PointSet, bestModel *CandidateModel, bestScore Score) (loModel *CandidateModel, loScore Score, improved bool)
	RefineSeeded(points *PointSet, bestModel *CandidateModel, bestScore Score, candidate *CandidateModel) (loModel *CandidateModel, loScore Score, improved bool)
	Clone() LocalOptimization
}

// TerminationCriteria computes the adaptive iteration cap from the
// confidence bound and the current best inlier count. Successive calls
// with a non-decreasing inlier count must return a non-increasing cap.
type TerminationCriteria interface {
	Update(model *CandidateModel, inlierCount, pointsSize int) int
	Clone() TerminationCriteria
}

// FinalModelPolisher performs the optional final least-squares refinement
// over all inliers of the winning model. The controller keeps the
// polished model only if its score improves on the input.
type FinalModelPolisher interface {
	Polish(points *PointSet, model *CandidateModel, score Score, inlierMask []bool) (polished *CandidateModel, polishedScore Score, ok bool)
}

// Sampler draws minimal samples of distinct point indices.
type Sampler interface {
	GenerateSample(sample []int)
	GenerateSampleRejection(sample []int, pointsSize int)
	SampleSize() int
	SetPointsSize(n int)
	Clone() Sampler
	// CloneSeeded returns an independent copy seeded exactly with seed,
	// rather than one derived from this instance's current RNG state. It
	// reads only this instance's immutable configuration, never its RNG, so
	// it is safe to call concurrently from multiple goroutines on the same
	// shared instance -- unlike Clone, which mutates the receiver's RNG.
	CloneSeeded(seed int) Sampler
}

// Quality scores a candidate model against the full point set.
type Quality interface {
	SetBestScore(cost float64)
	GetScore(model *CandidateModel) Score
	GetScoreWithInliers(model *CandidateModel) (Score, []int)
	GetInliers(model *CandidateModel, mask []bool) int
	SetModel(model *CandidateModel)
	IsInlier(pointIdx int) bool
	Clone() Quality
}

// Verifier cheaply rejects bad models before full scoring. ScoreCapturing
// verifiers additionally compute a Score as a side effect of verification;
// GetScore reports it without a second pass over the data.
type Verifier interface {
	IsModelGood(model *CandidateModel) bool
	GetScore() (Score, bool)
	Update(bestInlierCount int)
	Clone() Verifier
	// CloneSeeded returns an independent copy seeded exactly with seed,
	// for callers (the parallel controller) that must not derive divergent
	// worker seeds from a root instance shared across goroutines.
	CloneSeeded(seed int) Verifier
}

// Degeneracy detects degenerate samples and models, and attempts to repair
// a degenerate fundamental matrix via plane-and-parallax.
type Degeneracy interface {
	IsSampleGood(sample Sample) bool
	IsModelValid(model *CandidateModel, sample Sample) bool
	RecoverIfDegenerate(sample Sample, model *CandidateModel) (degenerate bool, repaired *CandidateModel, repairedScore Score)
	Clone() Degeneracy
	// CloneSeeded returns an independent copy seeded exactly with seed,
	// for callers that must not derive divergent worker seeds from a root
	// instance shared across goroutines.
	CloneSeeded(seed int) Degeneracy
}
