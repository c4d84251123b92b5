package usac

// sampleSizeForMethod is the minimal sample size per geometry, matching the
// defaults table used to seed a new Params.
var sampleSizeForMethod = map[EstimationMethod]int{
	Similarity:   2,
	Affine:       3,
	Homography:   4,
	Fundamental7: 7,
	Fundamental8: 8,
	Essential:    5,
	P3P:          3,
	P6P:          6,
}

// sprtDefaults bundles the per-estimator SPRT constants: average models
// produced per minimal sample and the estimated time (in arbitrary units,
// relative to one point residual evaluation) to instantiate one model.
type sprtDefaults struct {
	avgNumModels    float64
	timeForModelEst float64
}

var sprtDefaultsForMethod = map[EstimationMethod]sprtDefaults{
	Similarity:   {avgNumModels: 1, timeForModelEst: 100},
	Affine:       {avgNumModels: 1, timeForModelEst: 100},
	Homography:   {avgNumModels: 1, timeForModelEst: 100},
	Fundamental7: {avgNumModels: 2.38, timeForModelEst: 125},
	Fundamental8: {avgNumModels: 1, timeForModelEst: 100},
	Essential:    {avgNumModels: 4.5, timeForModelEst: 150},
	P3P:          {avgNumModels: 1.4, timeForModelEst: 150},
	P6P:          {avgNumModels: 1, timeForModelEst: 150},
}

const (
	defaultSprtEpsilon = 0.011
	defaultSprtDelta   = 0.01
	defaultLOSampleSize = 14
)

// Params is the fixed-at-construction configuration of a run: the
// estimator/sampler/score/LO/verifier/polisher method selection and every
// numeric default the estimator kind implies. It is deliberately a plain
// struct with setter methods rather than functional options, matching how
// this codebase configures other multi-knob components.
type Params struct {
	estimationMethod EstimationMethod
	samplingMethod   SamplingMethod
	scoreMethod      ScoreMethod
	loMethod         LocalOptimMethod
	verifierMethod   VerificationMethod
	polishingMethod  PolishingMethod
	neighborMethod   NeighborSearchMethod

	threshold     float64
	confidence    float64
	maxIterations int
	sampleSize    int
	loSampleSize  int

	sprtEpsilon     float64
	sprtDelta       float64
	avgNumModels    float64
	timeForModelEst float64

	numThreads int
	randomSeed int
}

// NewParams constructs the configuration for an estimator kind, pulling in
// its fixed sample size and SPRT defaults. threshold is the inlier
// residual cutoff in the Error implementation's native units.
func NewParams(estimationMethod EstimationMethod, samplingMethod SamplingMethod, scoreMethod ScoreMethod, threshold, confidence float64, maxIterations int) *Params {
	d := sprtDefaultsForMethod[estimationMethod]
	return &Params{
		estimationMethod: estimationMethod,
		samplingMethod:   samplingMethod,
		scoreMethod:      scoreMethod,
		loMethod:         NullLO,
		verifierMethod:   NullVerifierMethod,
		polishingMethod:  NonePolisher,
		neighborMethod:   GridNeighborSearch,
		threshold:        threshold,
		confidence:       confidence,
		maxIterations:    maxIterations,
		sampleSize:       sampleSizeForMethod[estimationMethod],
		loSampleSize:     defaultLOSampleSize,
		sprtEpsilon:      defaultSprtEpsilon,
		sprtDelta:        defaultSprtDelta,
		avgNumModels:     d.avgNumModels,
		timeForModelEst:  d.timeForModelEst,
		numThreads:       1,
		randomSeed:       0,
	}
}

// SetLocalOptimization sets the local-optimization strategy.
func (p *Params) SetLocalOptimization(m LocalOptimMethod) *Params { p.loMethod = m; return p }

// SetVerifier sets the preemptive verification strategy.
func (p *Params) SetVerifier(m VerificationMethod) *Params { p.verifierMethod = m; return p }

// SetPolisher sets the final polishing strategy.
func (p *Params) SetPolisher(m PolishingMethod) *Params { p.polishingMethod = m; return p }

// SetSPRT overrides the initial SPRT epsilon/delta.
func (p *Params) SetSPRT(epsilon, delta float64) *Params {
	p.sprtEpsilon, p.sprtDelta = epsilon, delta
	return p
}

// SetNumThreads sets the worker count for RunParallel; 1 degenerates to the
// single-threaded loop's iteration semantics (spec scenario 5).
func (p *Params) SetNumThreads(n int) *Params {
	if n < 1 {
		n = 1
	}
	p.numThreads = n
	return p
}

// SetSeed sets the root random seed from which RunParallel derives each
// worker's sampler, verifier and degeneracy seeds. Run does not read it; its
// injected components carry their own seeds.
func (p *Params) SetSeed(seed int) *Params { p.randomSeed = seed; return p }

// SampleSize returns the minimal sample size for the configured estimator.
func (p *Params) SampleSize() int { return p.sampleSize }

// Threshold returns the configured inlier residual threshold.
func (p *Params) Threshold() float64 { return p.threshold }

// MaxIterations returns the configured iteration cap.
func (p *Params) MaxIterations() int { return p.maxIterations }

// NumThreads returns the configured parallel worker count.
func (p *Params) NumThreads() int { return p.numThreads }
