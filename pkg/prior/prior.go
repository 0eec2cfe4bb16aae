// Package prior provides the hyperprior densities consumed by the chain.
package prior

import "math"

// PoissonRatePrior is an exponential prior on the event-rate hyperparameter.
// Its parameter equals the expected number of events under the prior, so a
// chain initializes its event rate to 1/parameter.
type PoissonRatePrior struct {
	rate float64
}

// NewPoissonRatePrior creates the prior with the given rate parameter.
// The rate must be positive.
func NewPoissonRatePrior(rate float64) *PoissonRatePrior {
	if rate <= 0 {
		panic("poisson rate prior parameter must be positive")
	}

	return &PoissonRatePrior{rate: rate}
}

// Rate returns the prior's rate parameter.
func (p *PoissonRatePrior) Rate() float64 {
	return p.rate
}

// Mean returns the prior mean of the event rate.
func (p *PoissonRatePrior) Mean() float64 {
	return 1 / p.rate
}

// LogDensity returns the log density of the exponential prior at x.
// Negative x has zero density.
func (p *PoissonRatePrior) LogDensity(x float64) float64 {
	if x < 0 {
		return math.Inf(-1)
	}

	return math.Log(p.rate) - p.rate*x
}
