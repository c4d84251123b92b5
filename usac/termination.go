package usac

import "math"

// StandardTermination implements the classic adaptive RANSAC iteration
// cap: given the current best inlier ratio, the number of iterations
// needed to draw an all-inlier sample with the configured confidence is
// log(1-confidence) / log(1-w^k), where w is the inlier ratio and k the
// minimal sample size. It never increases, since a tighter inlier ratio
// only ever shrinks the remaining budget.
type StandardTermination struct {
	confidence float64
	sampleSize int
	maxIters   int
}

// NewStandardTermination constructs the adaptive termination criterion.
func NewStandardTermination(confidence float64, sampleSize, maxIters int) *StandardTermination {
	return &StandardTermination{confidence: confidence, sampleSize: sampleSize, maxIters: maxIters}
}

// Update recomputes the iteration cap from the current best inlier count.
func (t *StandardTermination) Update(model *CandidateModel, inlierCount, pointsSize int) int {
	if inlierCount <= 0 || pointsSize <= 0 {
		return t.maxIters
	}
	w := float64(inlierCount) / float64(pointsSize)
	wPowK := math.Pow(w, float64(t.sampleSize))
	if wPowK >= 1 {
		return 1
	}
	predicted := math.Log(1-t.confidence) / math.Log(1-wPowK)
	if math.IsInf(predicted, 0) || math.IsNaN(predicted) {
		return t.maxIters
	}
	if int(predicted) < t.maxIters {
		t.maxIters = int(predicted)
	}
	return t.maxIters
}

// Clone returns an independent copy of the termination criterion.
func (t *StandardTermination) Clone() TerminationCriteria {
	return &StandardTermination{confidence: t.confidence, sampleSize: t.sampleSize, maxIters: t.maxIters}
}
