package usac

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestScoreIsBetter(t *testing.T) {
	t.Run("lower cost wins", func(t *testing.T) {
		a := Score{InlierCount: 10, Cost: -10}
		b := Score{InlierCount: 5, Cost: -5}
		test.That(t, a.IsBetter(b), test.ShouldBeTrue)
		test.That(t, b.IsBetter(a), test.ShouldBeFalse)
	})

	t.Run("ties broken by higher inlier count", func(t *testing.T) {
		a := Score{InlierCount: 10, Cost: 1.5}
		b := Score{InlierCount: 8, Cost: 1.5}
		test.That(t, a.IsBetter(b), test.ShouldBeTrue)
		test.That(t, b.IsBetter(a), test.ShouldBeFalse)
	})

	t.Run("worst score loses to anything", func(t *testing.T) {
		worst := WorstScore()
		test.That(t, worst.Cost, test.ShouldEqual, math.Inf(1))
		any := Score{InlierCount: 1, Cost: -1}
		test.That(t, any.IsBetter(worst), test.ShouldBeTrue)
		test.That(t, worst.IsBetter(any), test.ShouldBeFalse)
	})
}
