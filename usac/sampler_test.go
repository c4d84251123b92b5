package usac

import (
	"testing"

	"go.viam.com/test"
)

func TestUniformSamplerDistinctIndices(t *testing.T) {
	sampler := NewUniformSampler(42, 4, 100)
	buf := make([]int, 4)
	for i := 0; i < 50; i++ {
		sampler.GenerateSample(buf)
		sample := Sample(append([]int{}, buf...))
		test.That(t, sample.Valid(100), test.ShouldBeTrue)
	}
}

func TestUniformSamplerRejectionDistinctIndices(t *testing.T) {
	sampler := NewUniformSampler(7, 3, 200)
	buf := make([]int, 3)
	for i := 0; i < 50; i++ {
		sampler.GenerateSampleRejection(buf, 200)
		sample := Sample(append([]int{}, buf...))
		test.That(t, sample.Valid(200), test.ShouldBeTrue)
	}
}

func TestUniformSamplerCloneDiverges(t *testing.T) {
	root := NewUniformSampler(1, 4, 100)
	clone := root.Clone()

	rootBuf, cloneBuf := make([]int, 4), make([]int, 4)
	root.GenerateSample(rootBuf)
	clone.GenerateSample(cloneBuf)

	test.That(t, rootBuf, test.ShouldNotResemble, cloneBuf)
}

func TestUniformSamplerSetPointsSizeGrowsLazily(t *testing.T) {
	sampler := NewUniformSampler(1, 2, 10)
	buf := make([]int, 2)
	sampler.GenerateSample(buf)
	test.That(t, Sample(buf).Valid(10), test.ShouldBeTrue)

	sampler.SetPointsSize(20)
	sampler.GenerateSample(buf)
	test.That(t, Sample(buf).Valid(20), test.ShouldBeTrue)
}
