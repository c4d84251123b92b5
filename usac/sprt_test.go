package usac

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"

	"go.viam.com/usac/logging"
)

// constantError reports a fixed residual for every point below splitIdx and
// a large one above it, letting tests control the exact inlier fraction an
// SPRT pass will see.
type constantError struct {
	splitIdx int
	inlier   float64
	outlier  float64
}

func (e *constantError) SetModel(*CandidateModel) {}
func (e *constantError) Residual(idx int) float64 {
	if idx < e.splitIdx {
		return e.inlier
	}
	return e.outlier
}
func (e *constantError) Clone() Error { return &constantError{e.splitIdx, e.inlier, e.outlier} }

func testPointSet(t *testing.T, n int) *PointSet {
	t.Helper()
	data := make([]float64, n*4)
	return &PointSet{data: data, cols: 4, n: n}
}

func TestSPRTScoreRansacAcceptsHighInlierModel(t *testing.T) {
	points := testPointSet(t, 200)
	errFn := &constantError{splitIdx: 180, inlier: 0.1, outlier: 10}
	logger, _ := logging.NewTest(t)

	v := NewSPRTScoreRansac(points, errFn, 1.0, 0.1, 0.01, 100, 100, 1, logger)
	good := v.IsModelGood(&CandidateModel{})
	test.That(t, good, test.ShouldBeTrue)

	score, ok := v.GetScore()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, score.InlierCount, test.ShouldBeGreaterThan, 0)
}

func TestSPRTScoreRansacRejectsLowInlierModel(t *testing.T) {
	points := testPointSet(t, 200)
	errFn := &constantError{splitIdx: 5, inlier: 0.1, outlier: 10}
	logger, _ := logging.NewTest(t)

	v := NewSPRTScoreRansac(points, errFn, 1.0, 0.5, 0.01, 100, 100, 1, logger)
	good := v.IsModelGood(&CandidateModel{})
	test.That(t, good, test.ShouldBeFalse)

	_, ok := v.GetScore()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSPRTHistoryRecordsTestDesigns(t *testing.T) {
	points := testPointSet(t, 100)
	errFn := &constantError{splitIdx: 90, inlier: 0.1, outlier: 10}
	logger, _ := logging.NewTest(t)

	v := NewSPRTScoreMsac(points, errFn, 1.0, 0.1, 0.01, 100, 100, 1, logger)
	v.IsModelGood(&CandidateModel{})

	history := v.History()
	test.That(t, len(history), test.ShouldBeGreaterThanOrEqualTo, 1)
}

func TestSPRTHighestInlierPersistsAcrossCreateTest(t *testing.T) {
	points := testPointSet(t, 300)
	errFn := &constantError{splitIdx: 250, inlier: 0.1, outlier: 10}
	logger, _ := logging.NewTest(t)

	v := NewSPRTScoreRansac(points, errFn, 1.0, 0.05, 0.01, 100, 100, 1, logger)
	v.IsModelGood(&CandidateModel{})

	// The accepted pass saw all 250 inliers and triggered a createTest; the
	// high-water mark must have survived it.
	before := v.inner.core.highestInlierNumber
	test.That(t, before, test.ShouldEqual, 250)
	v.Update(before + 50)
	test.That(t, v.inner.core.highestInlierNumber, test.ShouldEqual, before+50)
}

func TestSPRTHistoryEntryMatchesInitialDesign(t *testing.T) {
	points := testPointSet(t, 50)
	errFn := &constantError{splitIdx: 40, inlier: 0.1, outlier: 10}
	logger, _ := logging.NewTest(t)

	v := NewSPRTScoreRansac(points, errFn, 1.0, 0.05, 0.02, 100, 100, 9, logger)
	history := v.History()

	want := SprtHistory{Epsilon: 0.05, Delta: 0.02, A: history[0].A}
	test.That(t, cmp.Equal(history[0], want), test.ShouldBeTrue)
}

func TestSPRTClonesAreIndependent(t *testing.T) {
	points := testPointSet(t, 100)
	errFn := &constantError{splitIdx: 50, inlier: 0.1, outlier: 10}
	logger, _ := logging.NewTest(t)

	v := NewSPRTScoreRansac(points, errFn, 1.0, 0.1, 0.01, 100, 100, 1, logger)
	clone := v.Clone()

	test.That(t, clone, test.ShouldNotBeNil)
	_, ok := clone.(*SPRTScoreRansac)
	test.That(t, ok, test.ShouldBeTrue)

	// Running the clone must leave the original's ledger untouched.
	clone.IsModelGood(&CandidateModel{})
	test.That(t, v.History()[0].TestedSamples, test.ShouldEqual, 0)
}
