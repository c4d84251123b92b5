package usac

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestHomographyDegeneracyRejectsCrossedQuadrilateral(t *testing.T) {
	pts1 := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	// Second image reorders the last two points, flipping orientation.
	pts2 := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}
	points, err := NewPointSet2D(pts1, pts2)
	test.That(t, err, test.ShouldBeNil)

	degeneracy := NewHomographyDegeneracy(points)
	good := degeneracy.IsSampleGood(Sample{0, 1, 2, 3})
	test.That(t, good, test.ShouldBeFalse)
}

func TestHomographyDegeneracyAcceptsConsistentQuadrilateral(t *testing.T) {
	pts1 := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	pts2 := []r2.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
	points, err := NewPointSet2D(pts1, pts2)
	test.That(t, err, test.ShouldBeNil)

	degeneracy := NewHomographyDegeneracy(points)
	good := degeneracy.IsSampleGood(Sample{0, 1, 2, 3})
	test.That(t, good, test.ShouldBeTrue)
}

func TestNullDegeneracyAlwaysPasses(t *testing.T) {
	d := NewNullDegeneracy()
	test.That(t, d.IsSampleGood(Sample{0, 1}), test.ShouldBeTrue)
	test.That(t, d.IsModelValid(&CandidateModel{}, Sample{0, 1}), test.ShouldBeTrue)
	degenerate, _, _ := d.RecoverIfDegenerate(Sample{0, 1}, &CandidateModel{})
	test.That(t, degenerate, test.ShouldBeFalse)
}
