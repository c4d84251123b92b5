package usac

import (
	"testing"

	"go.viam.com/test"
)

func TestStandardTerminationTightensMonotonically(t *testing.T) {
	term := NewStandardTermination(0.99, 4, 100000)

	cap1 := term.Update(nil, 50, 100)
	cap2 := term.Update(nil, 80, 100)
	cap3 := term.Update(nil, 95, 100)

	test.That(t, cap2, test.ShouldBeLessThanOrEqualTo, cap1)
	test.That(t, cap3, test.ShouldBeLessThanOrEqualTo, cap2)
}

func TestStandardTerminationAllInliersCapsAtOne(t *testing.T) {
	term := NewStandardTermination(0.99, 4, 100000)
	got := term.Update(nil, 100, 100)
	test.That(t, got, test.ShouldEqual, 1)
}

func TestStandardTerminationZeroInliersKeepsCap(t *testing.T) {
	term := NewStandardTermination(0.99, 4, 500)
	got := term.Update(nil, 0, 100)
	test.That(t, got, test.ShouldEqual, 500)
}

func TestStandardTerminationCloneIndependent(t *testing.T) {
	term := NewStandardTermination(0.99, 4, 100000)
	term.Update(nil, 90, 100)
	clone := term.Clone()

	beforeClone := clone.Update(nil, 90, 100)
	afterOriginal := term.Update(nil, 10, 100)

	test.That(t, beforeClone, test.ShouldBeLessThanOrEqualTo, 100000)
	test.That(t, afterOriginal, test.ShouldBeLessThanOrEqualTo, 100000)
}
