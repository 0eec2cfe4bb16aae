package prior

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoissonRatePrior_LogDensity(t *testing.T) {
	t.Parallel()

	p := NewPoissonRatePrior(2.0)

	assert.InDelta(t, 2.0, p.Rate(), 1e-12)
	assert.InDelta(t, 0.5, p.Mean(), 1e-12)

	// log f(x) = log(rate) - rate*x for the exponential density.
	assert.InDelta(t, math.Log(2.0), p.LogDensity(0), 1e-12)
	assert.InDelta(t, math.Log(2.0)-2.0*1.5, p.LogDensity(1.5), 1e-12)
	assert.True(t, math.IsInf(p.LogDensity(-0.1), -1))
}

func TestNewPoissonRatePrior_RejectsNonPositiveRate(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewPoissonRatePrior(0) })
	assert.Panics(t, func() { NewPoissonRatePrior(-1) })
}
