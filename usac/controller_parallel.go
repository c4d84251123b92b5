package usac

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"golang.org/x/time/rate"
)

// threadSlot is one worker's published best: the controller's own copy of
// the shared best_score[T]/best_model[T] arrays from the spec. Any worker
// may read any slot; only the owning worker writes its own.
type threadSlot struct {
	mu    sync.Mutex
	score Score
	model *CandidateModel
}

func (s *threadSlot) read() (Score, *CandidateModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score, s.model
}

func (s *threadSlot) write(score Score, model *CandidateModel) {
	s.mu.Lock()
	s.score, s.model = score, model
	s.mu.Unlock()
}

// RunParallel launches NumThreads workers, each with cloned Sampler,
// Quality, Verifier, Degeneracy and LocalOptimization, reseeded from the
// configured seed (SetSeed) + 10*tid. Every 10th iteration each worker
// tightens its comparison baseline to the best score seen across all
// threads so far, without adopting the peer's model locally -- the final
// model returned is whichever thread's own slot held the globally best
// score when the region exited. Each worker is spawned with
// utils.PanicCapturingGo and recovers its own panic; recovered panics are
// combined with multierr into the returned error.
func (r *Ransac) RunParallel(ctx context.Context) (*RansacOutput, error) {
	start := time.Now()

	sampleSize := r.params.SampleSize()
	if r.points.Len() < sampleSize {
		return nil, ErrInsufficientData
	}

	numThreads := r.params.NumThreads()
	slots := make([]*threadSlot, numThreads)
	for i := range slots {
		slots[i] = &threadSlot{score: WorstScore()}
	}

	var success atomic.Bool
	var numHypothesisTested atomic.Int64

	isPROSAC := r.params.samplingMethod == ProsacSampling
	var prosacMutex sync.Mutex

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var combinedErr error
	storeErr := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		combinedErr = multierr.Combine(combinedErr, err)
	}

	numEstimated := make([]int, numThreads)
	numGood := make([]int, numThreads)

	// A single limiter shared across workers keeps hot-path "new best on
	// thread N" debug lines from flooding the log when many threads adopt
	// in quick succession.
	logLimiter := rate.NewLimiter(rate.Limit(20), 5)

	for tid := 0; tid < numThreads; tid++ {
		tid := tid
		wg.Add(1)
		utils.PanicCapturingGo(func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					storeErr(fmt.Errorf("usac: panic in parallel worker %d: %v", tid, p))
					success.Store(true)
				}
			}()
			est, good := r.runWorker(ctx, tid, numThreads, slots, &success, &numHypothesisTested, isPROSAC, &prosacMutex, logLimiter)
			numEstimated[tid] = est
			numGood[tid] = good
		})
	}
	wg.Wait()

	if combinedErr != nil {
		return nil, combinedErr
	}

	bestScore := WorstScore()
	var bestModel *CandidateModel
	for _, slot := range slots {
		score, model := slot.read()
		if score.IsBetter(bestScore) {
			bestScore, bestModel = score, model
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

	totalEstimated, totalGood := 0, 0
	for i := range numEstimated {
		totalEstimated += numEstimated[i]
		totalGood += numGood[i]
	}

	return &RansacOutput{
		RunID:                   uuid.New(),
		Model:                   bestModel,
		InlierMask:              mask,
		Score:                   bestScore,
		Elapsed:                 time.Since(start),
		Iterations:              int(numHypothesisTested.Load()),
		NumberOfEstimatedModels: totalEstimated,
		NumberOfGoodModels:      totalGood,
	}, nil
}

// runWorker runs one parallel worker's copy of the controller loop,
// comparing candidates against a comparison baseline that tightens every
// 10th iteration to the best score published by any thread. It returns
// the number of models estimated and accepted by this worker, for the
// caller's aggregate diagnostics.
func (r *Ransac) runWorker(ctx context.Context, tid, numThreads int, slots []*threadSlot, success *atomic.Bool, numHypothesisTested *atomic.Int64, isPROSAC bool, prosacMutex *sync.Mutex, logLimiter *rate.Limiter) (numEstimated, numGood int) {
	threadSeed := r.params.randomSeed + 10*tid

	var sampler Sampler
	if isPROSAC {
		sampler = r.sampler // shared, guarded by prosacMutex on every draw
	} else {
		// CloneSeeded reads only immutable configuration off r.sampler, never
		// its RNG, so numThreads goroutines may call it concurrently on the
		// same shared root sampler without racing.
		sampler = r.sampler.CloneSeeded(threadSeed)
	}
	quality := r.quality.Clone()
	verifier := r.verifier.CloneSeeded(threadSeed)
	degeneracy := r.degeneracy.CloneSeeded(threadSeed)
	termination := r.termination.Clone()
	var lo LocalOptimization
	if r.lo != nil {
		lo = r.lo.Clone()
	}

	sampleSize := r.params.SampleSize()
	sampleBuf := make([]int, sampleSize)
	models := make([]*CandidateModel, r.solver.MaxNumSolutions())

	isMagsac := r.params.loMethod == SigmaLO
	loEnabled := r.params.loMethod != NullLO

	localBestScore := WorstScore()
	var localBestModel *CandidateModel
	comparisonBaseline := WorstScore()
	maxIters := r.params.MaxIterations()

	for iters := 0; ; iters++ {
		if success.Load() || ctx.Err() != nil {
			return numEstimated, numGood
		}
		tested := numHypothesisTested.Add(1)
		if int(tested) > maxIters {
			success.Store(true)
			return numEstimated, numGood
		}

		// Sync with the other threads' published bests on every 10th iteration.
		if iters%10 == 0 {
			tightened := comparisonBaseline
			changed := false
			for t := 0; t < numThreads; t++ {
				score, _ := slots[t].read()
				if score.IsBetter(tightened) {
					tightened, changed = score, true
				}
			}
			if changed {
				comparisonBaseline = tightened
				quality.SetBestScore(comparisonBaseline.Cost)
				verifier.Update(comparisonBaseline.InlierCount)
			}
		}

		if isPROSAC {
			prosacMutex.Lock()
			sampler.GenerateSample(sampleBuf)
			prosacMutex.Unlock()
		} else {
			sampler.GenerateSample(sampleBuf)
		}
		sample := Sample(sampleBuf)
		if !degeneracy.IsSampleGood(sample) {
			continue
		}

		n := r.solver.Estimate(r.points, sample, models)
		numEstimated += n

		for i := 0; i < n; i++ {
			candidate := models[i]
			if !degeneracy.IsModelValid(candidate, sample) {
				continue
			}
			if !verifier.IsModelGood(candidate) {
				continue
			}
			numGood++

			var currentScore Score
			if isMagsac {
				if localBestModel == nil {
					localBestModel = candidate.Clone()
					localBestScore = quality.GetScore(localBestModel)
				}
				refined, refinedScore, improved := lo.RefineSeeded(r.points, localBestModel, comparisonBaseline, candidate)
				if !improved {
					continue
				}
				candidate, currentScore = refined, refinedScore
			} else if s, ok := verifier.GetScore(); ok {
				currentScore = s
			} else {
				currentScore = quality.GetScore(candidate)
			}

			if !currentScore.IsBetter(comparisonBaseline) {
				continue
			}

			if degenerate, repaired, repairedScore := degeneracy.RecoverIfDegenerate(sample, candidate); degenerate {
				if !repairedScore.IsBetter(comparisonBaseline) {
					continue
				}
				candidate, currentScore = repaired, repairedScore
			}

			if !currentScore.IsBetter(localBestScore) {
				continue
			}
			localBestModel, localBestScore = candidate, currentScore
			slots[tid].write(localBestScore, localBestModel)
			comparisonBaseline = localBestScore
			quality.SetBestScore(comparisonBaseline.Cost)
			verifier.Update(comparisonBaseline.InlierCount)
			maxIters = termination.Update(localBestModel, localBestScore.InlierCount, r.points.Len())
			if r.logger != nil && logLimiter.Allow() {
				r.logger.Debugw("parallel worker adopted new best", "thread", tid, "iters", iters, "inliers", localBestScore.InlierCount)
			}

			if loEnabled && !isMagsac {
				if loModel, loScore, improved := lo.Refine(r.points, localBestModel, localBestScore); improved && loScore.IsBetter(localBestScore) {
					localBestModel, localBestScore = loModel, loScore
					slots[tid].write(localBestScore, localBestModel)
					comparisonBaseline = localBestScore
					quality.SetBestScore(comparisonBaseline.Cost)
					verifier.Update(comparisonBaseline.InlierCount)
					maxIters = termination.Update(localBestModel, localBestScore.InlierCount, r.points.Len())
				}
			}
		}
	}
}
