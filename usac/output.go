package usac

import (
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
)

// RansacOutput is the result of a completed run: the best model, its
// inlier mask and score, how long the run took, and diagnostic counters
// that are cheap to maintain but useful when tuning a configuration.
type RansacOutput struct {
	RunID uuid.UUID

	Model       *CandidateModel
	InlierMask  []bool
	Score       Score
	Elapsed     time.Duration
	Iterations  int

	NumberOfEstimatedModels int
	NumberOfGoodModels      int

	sprtHistory []SprtHistory
}

// Seconds is the elapsed run time in whole and fractional seconds.
func (o *RansacOutput) Seconds() float64 { return o.Elapsed.Seconds() }

// Milliseconds is the elapsed run time in whole and fractional milliseconds.
func (o *RansacOutput) Milliseconds() float64 { return float64(o.Elapsed.Microseconds()) / 1000 }

// Microseconds is the elapsed run time in microseconds.
func (o *RansacOutput) Microseconds() int64 { return o.Elapsed.Microseconds() }

// Inliers returns the indices set in the inlier mask, built lazily since
// most callers only need the mask or the count.
func (o *RansacOutput) Inliers() []int {
	inliers := make([]int, 0, o.Score.InlierCount)
	for i, v := range o.InlierMask {
		if v {
			inliers = append(inliers, i)
		}
	}
	return inliers
}

// SprtHistorySummary reports the mean and variance of the accepted inlier
// fraction (epsilon) across every SPRT test design installed during the
// run, a quick diagnostic of whether SPRT converged or kept oscillating.
type SprtHistorySummary struct {
	MeanEpsilon     float64
	VarianceEpsilon float64
	NumTestDesigns  int
}

// SummarizeSprtHistory computes SprtHistorySummary from the run's captured history.
func (o *RansacOutput) SummarizeSprtHistory() (SprtHistorySummary, error) {
	if len(o.sprtHistory) == 0 {
		return SprtHistorySummary{}, nil
	}
	epsilons := make([]float64, len(o.sprtHistory))
	for i, h := range o.sprtHistory {
		epsilons[i] = h.Epsilon
	}
	mean, err := stats.Mean(epsilons)
	if err != nil {
		return SprtHistorySummary{}, err
	}
	variance, err := stats.Variance(epsilons)
	if err != nil {
		return SprtHistorySummary{}, err
	}
	return SprtHistorySummary{MeanEpsilon: mean, VarianceEpsilon: variance, NumTestDesigns: len(o.sprtHistory)}, nil
}
