package usac

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/usac/logging"
)

// Ransac orchestrates the sample -> estimate -> verify -> score ->
// degeneracy-check -> adopt -> refine -> terminate loop. It is generic
// over its injected Solver/Error-backed components; the geometry itself is
// entirely opaque to this type.
type Ransac struct {
	points *PointSet
	params *Params

	solver      Solver
	quality     Quality
	sampler     Sampler
	termination TerminationCriteria
	verifier    Verifier
	degeneracy  Degeneracy
	lo          LocalOptimization
	polisher    FinalModelPolisher

	logger logging.Logger
}

// NewRansac constructs a single run. lo and polisher may be nil, matching
// NullLO/NonePolisher configuration.
func NewRansac(points *PointSet, params *Params, solver Solver, quality Quality, sampler Sampler,
	termination TerminationCriteria, verifier Verifier, degeneracy Degeneracy, lo LocalOptimization,
	polisher FinalModelPolisher, logger logging.Logger,
) *Ransac {
	return &Ransac{
		points: points, params: params,
		solver: solver, quality: quality, sampler: sampler, termination: termination,
		verifier: verifier, degeneracy: degeneracy, lo: lo, polisher: polisher,
		logger: logger,
	}
}

// sprtHistoryCapable is implemented by verifiers that keep an SPRT
// test-design ledger; used only to attach diagnostics to RansacOutput.
type sprtHistoryCapable interface {
	History() []SprtHistory
}

// Run executes the single-threaded controller loop. ctx is checked once per
// outer iteration; a cancelled context stops the loop early and is
// reported as ErrZeroInliers if nothing had been adopted yet, matching the
// "the core never throws" propagation policy.
func (r *Ransac) Run(ctx context.Context) (*RansacOutput, error) {
	start := time.Now()

	sampleSize := r.params.SampleSize()
	if r.points.Len() < sampleSize {
		return nil, errors.Wrap(ErrInsufficientData, "point set smaller than minimal sample size")
	}

	isMagsac := r.params.loMethod == SigmaLO
	loEnabled := r.params.loMethod != NullLO

	maxIters := r.params.MaxIterations()
	bestScore := WorstScore()
	var bestModel *CandidateModel

	sampleBuf := make([]int, sampleSize)
	models := make([]*CandidateModel, r.solver.MaxNumSolutions())

	numEstimated, numGood := 0, 0

	iter := 0
loop:
	for ; iter < maxIters; iter++ {
		if ctx.Err() != nil {
			break
		}
		r.sampler.GenerateSample(sampleBuf)
		sample := Sample(sampleBuf)
		if !r.degeneracy.IsSampleGood(sample) {
			continue
		}

		n := r.solver.Estimate(r.points, sample, models)
		numEstimated += n

		for i := 0; i < n; i++ {
			candidate := models[i]
			if !r.degeneracy.IsModelValid(candidate, sample) {
				continue
			}
			if !r.verifier.IsModelGood(candidate) {
				continue
			}
			numGood++

			var currentScore Score
			if isMagsac {
				if bestModel == nil {
					bestModel = candidate.Clone()
					bestScore = r.quality.GetScore(bestModel)
				}
				refined, refinedScore, improved := r.lo.RefineSeeded(r.points, bestModel, bestScore, candidate)
				if !improved {
					continue
				}
				candidate, currentScore = refined, refinedScore
			} else if s, ok := r.verifier.GetScore(); ok {
				currentScore = s
			} else {
				currentScore = r.quality.GetScore(candidate)
			}

			if !currentScore.IsBetter(bestScore) {
				continue
			}

			degenerate, repaired, repairedScore := r.degeneracy.RecoverIfDegenerate(sample, candidate)
			if degenerate {
				if !repairedScore.IsBetter(bestScore) {
					continue
				}
				bestModel, bestScore = repaired, repairedScore
			} else {
				bestModel, bestScore = candidate, currentScore
			}

			r.quality.SetBestScore(bestScore.Cost)
			r.verifier.Update(bestScore.InlierCount)
			maxIters = r.termination.Update(bestModel, bestScore.InlierCount, r.points.Len())
			if iter > maxIters {
				break loop
			}

			if loEnabled && !isMagsac {
				loModel, loScore, improved := r.lo.Refine(r.points, bestModel, bestScore)
				if improved && loScore.IsBetter(bestScore) {
					bestModel, bestScore = loModel, loScore
					r.quality.SetBestScore(bestScore.Cost)
					r.verifier.Update(bestScore.InlierCount)
					maxIters = r.termination.Update(bestModel, bestScore.InlierCount, r.points.Len())
					if iter > maxIters {
						break loop
					}
				}
			}
		}
	}

	if bestScore.InlierCount == 0 {
		return nil, ErrZeroInliers
	}

	mask := make([]bool, r.points.Len())
	r.quality.GetInliers(bestModel, mask)

	if r.params.polishingMethod != NonePolisher && r.polisher != nil {
		if polished, polishedScore, ok := r.polisher.Polish(r.points, bestModel, bestScore, mask); ok && polishedScore.IsBetter(bestScore) {
			bestModel, bestScore = polished, polishedScore
			r.quality.GetInliers(bestModel, mask)
		}
	}

	var history []SprtHistory
	if hp, ok := r.verifier.(sprtHistoryCapable); ok {
		history = hp.History()
	}

	return &RansacOutput{
		RunID:                   uuid.New(),
		Model:                   bestModel,
		InlierMask:              mask,
		Score:                   bestScore,
		Elapsed:                 time.Since(start),
		Iterations:              iter,
		NumberOfEstimatedModels: numEstimated,
		NumberOfGoodModels:      numGood,
		sprtHistory:             history,
	}, nil
}
