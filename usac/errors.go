package usac

import "errors"

// Sentinel error kinds the core can return. The core never panics on bad
// input data; every failure path returns one of these wrapped in the run's
// error return, per the engine's error-kind taxonomy.
var (
	// ErrInsufficientData is returned when the point set has fewer
	// correspondences than the estimator's minimal sample size.
	ErrInsufficientData = errors.New("usac: fewer points than the minimal sample size")

	// ErrZeroInliers is returned when a run completes without ever
	// adopting a model with at least one inlier.
	ErrZeroInliers = errors.New("usac: best model has zero inliers")

	// ErrInvalidInput is returned by the point-set constructors when the
	// supplied arrays have incompatible shapes.
	ErrInvalidInput = errors.New("usac: incompatible input shape")
)
