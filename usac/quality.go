package usac

import "math"

// baseQuality holds the state shared by the RANSAC and MSAC scorers: the
// injected Error delegate, the inlier threshold, the early-exit bound
// installed by the controller, and the last model bound via SetModel.
type baseQuality struct {
	err       Error
	threshold float64
	bestCost  float64
	points    *PointSet
	model     *CandidateModel
}

func newBaseQuality(points *PointSet, err Error, threshold float64) baseQuality {
	return baseQuality{err: err, threshold: threshold, bestCost: math.Inf(1), points: points}
}

// SetBestScore installs the early-exit bound used by both scorers.
func (q *baseQuality) SetBestScore(cost float64) { q.bestCost = cost }

// SetModel binds the model IsInlier queries are evaluated against.
func (q *baseQuality) SetModel(model *CandidateModel) {
	q.model = model
	q.err.SetModel(model)
}

// IsInlier reports whether pointIdx is within threshold of the last bound model.
func (q *baseQuality) IsInlier(pointIdx int) bool {
	return q.err.Residual(pointIdx) < q.threshold
}

// GetInliers writes the inlier mask for model and returns the count.
func (q *baseQuality) GetInliers(model *CandidateModel, mask []bool) int {
	q.SetModel(model)
	count := 0
	for i := 0; i < q.points.Len(); i++ {
		inlier := q.IsInlier(i)
		mask[i] = inlier
		if inlier {
			count++
		}
	}
	return count
}

// RansacQuality scores a model by inlier count: cost = -inlier_count. The
// early-exit bound follows the spec exactly: once even a run of perfect
// luck on the remaining points cannot beat the best known inlier count,
// scoring stops and returns the partial (still valid, non-improving) score.
type RansacQuality struct {
	baseQuality
}

// NewRansacQuality constructs a RANSAC-cost scorer.
func NewRansacQuality(points *PointSet, err Error, threshold float64) *RansacQuality {
	return &RansacQuality{baseQuality: newBaseQuality(points, err, threshold)}
}

// GetScore evaluates all N points (subject to early exit) and returns the Score.
func (q *RansacQuality) GetScore(model *CandidateModel) Score {
	score, _ := q.getScore(model, false)
	return score
}

// GetScoreWithInliers evaluates the model and also returns the inlier index list.
func (q *RansacQuality) GetScoreWithInliers(model *CandidateModel) (Score, []int) {
	return q.getScore(model, true)
}

func (q *RansacQuality) getScore(model *CandidateModel, collect bool) (Score, []int) {
	q.SetModel(model)
	n := q.points.Len()
	inlierCount := 0
	var inliers []int
	bestInlierBound := -q.bestCost // bestCost == -best inlier count
	for p := 0; p < n; p++ {
		if q.IsInlier(p) {
			inlierCount++
			if collect {
				inliers = append(inliers, p)
			}
		}
		if float64(inlierCount+(n-p-1)) < bestInlierBound {
			break
		}
	}
	return Score{InlierCount: inlierCount, Cost: -float64(inlierCount)}, inliers
}

// Clone returns an independent copy sharing no mutable state with q.
func (q *RansacQuality) Clone() Quality {
	return &RansacQuality{baseQuality: newBaseQuality(q.points, q.err.Clone(), q.threshold)}
}

// MsacQuality scores a model by the truncated residual sum, which degrades
// more gracefully than raw inlier count as the threshold varies.
type MsacQuality struct {
	baseQuality
}

// NewMsacQuality constructs an MSAC-cost scorer.
func NewMsacQuality(points *PointSet, err Error, threshold float64) *MsacQuality {
	return &MsacQuality{baseQuality: newBaseQuality(points, err, threshold)}
}

// GetScore evaluates all N points (subject to early exit) and returns the Score.
func (q *MsacQuality) GetScore(model *CandidateModel) Score {
	score, _ := q.getScore(model, false)
	return score
}

// GetScoreWithInliers evaluates the model and also returns the inlier index list.
func (q *MsacQuality) GetScoreWithInliers(model *CandidateModel) (Score, []int) {
	return q.getScore(model, true)
}

func (q *MsacQuality) getScore(model *CandidateModel, collect bool) (Score, []int) {
	q.SetModel(model)
	n := q.points.Len()
	sum := 0.0
	inlierCount := 0
	var inliers []int
	for p := 0; p < n; p++ {
		e := q.err.Residual(p)
		if e < q.threshold {
			inlierCount++
			if collect {
				inliers = append(inliers, p)
			}
			sum += e
		} else {
			sum += q.threshold
		}
		if sum > q.bestCost {
			break
		}
	}
	return Score{InlierCount: inlierCount, Cost: sum}, inliers
}

// Clone returns an independent copy sharing no mutable state with q.
func (q *MsacQuality) Clone() Quality {
	return &MsacQuality{baseQuality: newBaseQuality(q.points, q.err.Clone(), q.threshold)}
}
