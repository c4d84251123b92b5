package usac

import "math/rand"

// NullVerifier accepts every candidate model, used when preemptive
// verification is disabled (spec's NullVerifier configuration option).
type NullVerifier struct{}

// NewNullVerifier constructs a verifier that never rejects.
func NewNullVerifier() *NullVerifier { return &NullVerifier{} }

// IsModelGood always returns true.
func (*NullVerifier) IsModelGood(*CandidateModel) bool { return true }

// GetScore never captures a score.
func (*NullVerifier) GetScore() (Score, bool) { return Score{}, false }

// Update is a no-op: NullVerifier tracks no state.
func (*NullVerifier) Update(int) {}

// Clone returns a new NullVerifier (stateless, so any instance suffices).
func (*NullVerifier) Clone() Verifier { return &NullVerifier{} }

// CloneSeeded returns a new NullVerifier; seed is ignored since
// NullVerifier has no random state.
func (*NullVerifier) CloneSeeded(int) Verifier { return &NullVerifier{} }

// TddVerifier is the Chum-Matas 2002 Td,d prefilter: a trivial verifier
// that tests d points per model, drawn from a pool shuffled once at
// construction and then walked from a random offset -- mirroring the
// original's random_pool, which is built once via a shuffle and never
// re-walked in raw index order. It takes an explicit RNG rather than a
// global random source, since a verifier sharing process-global random
// state would make parallel runs non-reproducible even with an explicit
// seed per worker.
type TddVerifier struct {
	quality    Quality
	rng        *rand.Rand
	pool       []int
	d          int
	pointsSize int
	seed       int
}

// NewTddVerifier constructs a Td,d verifier testing d points per model,
// drawn from a pool shuffled once from seed.
func NewTddVerifier(quality Quality, d, pointsSize, seed int) *TddVerifier {
	pool := make([]int, pointsSize)
	for i := range pool {
		pool[i] = i
	}
	rng := rand.New(rand.NewSource(int64(seed))) //nolint:gosec
	rng.Shuffle(pointsSize, func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return &TddVerifier{
		quality:    quality,
		rng:        rng,
		pool:       pool,
		d:          d,
		pointsSize: pointsSize,
		seed:       seed,
	}
}

// IsModelGood tests d consecutive entries of the shuffled pool starting at
// a random offset, rejecting immediately on the first outlier.
func (v *TddVerifier) IsModelGood(model *CandidateModel) bool {
	v.quality.SetModel(model)
	n := len(v.pool)
	start := v.rng.Intn(n)
	for i := 0; i < v.d; i++ {
		idx := v.pool[(start+i)%n]
		if !v.quality.IsInlier(idx) {
			return false
		}
	}
	return true
}

// GetScore never captures a score: Td,d is a pure preemptive filter.
func (v *TddVerifier) GetScore() (Score, bool) { return Score{}, false }

// Update is a no-op: Td,d tracks no adaptive state.
func (v *TddVerifier) Update(int) {}

// Clone returns an independent verifier reseeded for a parallel worker. It
// must not be called concurrently on a shared instance since it derives
// its seed from the receiver's fixed seed field; callers that need that
// (the parallel controller) use CloneSeeded instead.
func (v *TddVerifier) Clone() Verifier {
	derived := abs(v.seed)/10 + 10
	return v.CloneSeeded(derived)
}

// CloneSeeded returns an independent verifier seeded exactly with seed,
// with its own freshly shuffled pool.
func (v *TddVerifier) CloneSeeded(seed int) Verifier {
	return NewTddVerifier(v.quality.Clone(), v.d, v.pointsSize, seed)
}
