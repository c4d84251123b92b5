package usac

import "gonum.org/v1/gonum/mat"

// CandidateModel is the opaque geometric model the core passes between
// Solver, Error, Quality, Verifier and Degeneracy: a 3x3 matrix for
// similarity/affine/homography/fundamental/essential geometry, or a 3x4
// matrix for a projection (P3P/P6P). The core never interprets its entries;
// only the injected Error and Solver implementations do.
type CandidateModel struct {
	Mat *mat.Dense
}

// Clone returns a deep copy, needed because models are mutated in place by
// some solvers (e.g. rank-2 enforcement) and the controller must be able to
// hold on to a prior candidate while a new one is computed.
func (m *CandidateModel) Clone() *CandidateModel {
	if m == nil || m.Mat == nil {
		return nil
	}
	var cloned mat.Dense
	cloned.CloneFrom(m.Mat)
	return &CandidateModel{Mat: &cloned}
}

// EstimationMethod selects the geometry family and fixes the minimal
// sample size and the SPRT/termination defaults drawn from it.
type EstimationMethod int

const (
	// Similarity estimates a 2D similarity transform (2-point minimal sample).
	Similarity EstimationMethod = iota
	// Affine estimates a 2D affine transform (3-point minimal sample).
	Affine
	// Homography estimates a planar homography (4-point minimal sample).
	Homography
	// Fundamental7 estimates a fundamental matrix from 7 points.
	Fundamental7
	// Fundamental8 estimates a fundamental matrix from 8 points (linear, single solution).
	Fundamental8
	// Essential estimates an essential matrix from 5 points.
	Essential
	// P3P estimates absolute pose from 3 2D-3D correspondences.
	P3P
	// P6P estimates absolute pose (DLT) from 6 2D-3D correspondences.
	P6P
)

// SamplingMethod selects how the controller draws minimal samples.
type SamplingMethod int

const (
	// UniformSampling draws samples uniformly at random (Fisher-Yates).
	UniformSampling SamplingMethod = iota
	// ProsacSampling draws progressively from a quality-ranked prefix of the point set.
	ProsacSampling
)

// ScoreMethod selects the scoring function.
type ScoreMethod int

const (
	// RansacScore counts inliers; cost is -inlier_count.
	RansacScore ScoreMethod = iota
	// MsacScore sums truncated residuals.
	MsacScore
)

// LocalOptimMethod selects the local-optimization strategy invoked on a new best model.
type LocalOptimMethod int

const (
	// NullLO performs no local optimization.
	NullLO LocalOptimMethod = iota
	// InnerLORansac reruns a small inner RANSAC seeded from the current best model's inliers.
	InnerLORansac
	// SigmaLO (MAGSAC) treats every verified candidate as a refinement seed.
	SigmaLO
)

// VerificationMethod selects the preemptive verifier.
type VerificationMethod int

const (
	// NullVerifierMethod accepts every candidate (no preemptive rejection).
	NullVerifierMethod VerificationMethod = iota
	// SprtVerification runs Wald's SPRT with online parameter re-estimation.
	SprtVerification
	// TddVerification runs the Chum-Matas Td,d prefilter.
	TddVerification
)

// PolishingMethod selects the optional final polisher.
type PolishingMethod int

const (
	// NonePolisher performs no final polishing.
	NonePolisher PolishingMethod = iota
	// LSQPolisher refines the final model with a least-squares solve over all inliers.
	LSQPolisher
)

// NeighborSearchMethod selects the PROSAC/spatial-coherence neighbor search strategy.
type NeighborSearchMethod int

// GridNeighborSearch is the default neighbor search method; others are
// reserved for PROSAC and graph-cut local optimization variants not
// implemented by this core.
const GridNeighborSearch NeighborSearchMethod = iota
