package usac

import "math/rand"

// UniformSampler draws minimal samples uniformly at random. GenerateSample
// runs a partial Fisher-Yates shuffle over a reusable index pool so each
// call costs O(sampleSize) regardless of N; GenerateSampleRejection is a
// rejection-sampling alternative better suited to inner loops where the
// sample size is much smaller than the pool (k << N).
type UniformSampler struct {
	rng *rand.Rand

	pool       []int
	sampleSize int
	pointsSize int

	// seed is the value this sampler was constructed with; Clone derives
	// its child's seed from rng, not from this field.
	seed int
}

// NewUniformSampler constructs a sampler over N points drawing samples of
// the given size, seeded deterministically from seed.
func NewUniformSampler(seed, sampleSize, pointsSize int) *UniformSampler {
	s := &UniformSampler{
		rng:        rand.New(rand.NewSource(int64(seed))), //nolint:gosec
		sampleSize: sampleSize,
		seed:       seed,
	}
	s.SetPointsSize(pointsSize)
	return s
}

// SetPointsSize grows the index pool if N increased, and resets the
// identity permutation if N changed, matching the original lazy
// reallocation: the pool slice is only regrown on growth, never shrunk.
func (s *UniformSampler) SetPointsSize(n int) {
	if n > len(s.pool) {
		grown := make([]int, n)
		copy(grown, s.pool)
		s.pool = grown
	}
	if n != s.pointsSize {
		s.pointsSize = n
		for i := 0; i < n; i++ {
			s.pool[i] = i
		}
	}
}

// SampleSize returns the configured minimal sample size.
func (s *UniformSampler) SampleSize() int { return s.sampleSize }

// GenerateSample performs a partial Fisher-Yates shuffle: each call
// re-opens the full pool (remaining starts at pointsSize) and draws
// sampleSize distinct indices in expected O(sampleSize).
func (s *UniformSampler) GenerateSample(sample []int) {
	remaining := s.pointsSize
	for i := 0; i < s.sampleSize; i++ {
		j := s.rng.Intn(remaining)
		sample[i] = s.pool[j]
		remaining--
		s.pool[j], s.pool[remaining] = s.pool[remaining], s.pool[j]
	}
}

// GenerateSampleRejection draws sampleSize distinct indices in [0,
// pointsSize) by rejection: pick a candidate, linearly scan the partial
// sample for a duplicate, retry on collision. Optimal when sampleSize is
// much smaller than pointsSize, where Fisher-Yates pays for pool upkeep it
// doesn't need.
func (s *UniformSampler) GenerateSampleRejection(sample []int, pointsSize int) {
	sample[0] = s.rng.Intn(pointsSize)
	for i := 1; i < s.sampleSize; {
		candidate := s.rng.Intn(pointsSize)
		dup := false
		for j := i - 1; j >= 0; j-- {
			if sample[j] == candidate {
				dup = true
				break
			}
		}
		if !dup {
			sample[i] = candidate
			i++
		}
	}
}

// Clone returns a new sampler reseeded with a seed derived from this one's
// current RNG state, so parallel workers diverge rather than repeat each
// other's draws. It mutates the receiver's RNG and so must not be called
// concurrently on a shared instance; callers that need that (the parallel
// controller, cloning once per worker from one shared root sampler) use
// CloneSeeded instead.
func (s *UniformSampler) Clone() Sampler {
	derived := abs(int(s.rng.Int63()))/10 + 10
	return s.CloneSeeded(derived)
}

// CloneSeeded returns a new sampler seeded exactly with seed. It reads only
// the immutable sampleSize/pointsSize configuration and never touches
// s.rng, so it is safe to call concurrently from multiple goroutines on the
// same shared instance.
func (s *UniformSampler) CloneSeeded(seed int) Sampler {
	return NewUniformSampler(seed, s.sampleSize, s.pointsSize)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
