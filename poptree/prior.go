// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package poptree

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// A Prior is a gamma prior distribution
// for a population parameter,
// with an optional starting point
// for the parameter sampler.
type Prior struct {
	Param distuv.Gamma

	// Start is the initial value used when sampling
	// the parameter.
	// If zero,
	// the mean of the distribution is used.
	Start float64
}

// mean returns the starting point of the sampler.
func (p Prior) mean() float64 {
	if p.Start > 0 {
		return p.Start
	}
	if p.Param.Beta == 0 {
		return 0
	}
	return p.Param.Mean()
}

// SetThetaPrior sets the prior distribution
// of the effective size of a population.
func (t *Tree) SetThetaPrior(id int, p Prior) {
	if id < 0 || id >= len(t.pops) {
		return
	}
	t.pops[id].thetaPrior = p
}

// SetAgePrior sets the prior distribution
// of the age of an ancestral population.
func (t *Tree) SetAgePrior(id int, p Prior) {
	if id < 0 || id >= len(t.pops) {
		return
	}
	t.pops[id].agePrior = p
}

// SetRatePrior sets the prior distribution
// of the rate of a migration band.
func (t *Tree) SetRatePrior(id int, p Prior) {
	if id < 0 || id >= len(t.bands) {
		return
	}
	t.bands[id].ratePrior = p
}

// SamplePopParameters samples the effective size
// of every population
// and the age of every ancestral population
// around the mean of their priors.
// Population ages are kept consistent
// with the ages of their parents and sons.
// Migration rates are set to zero
// and band time spans are updated.
func (t *Tree) SamplePopParameters(rnd *rand.Rand) {
	if t.root < 0 {
		return
	}

	// traverse populations from the root down,
	// correcting ages greater than the parent age
	queue := []int{t.root}
	for len(queue) > 0 {
		p := t.pops[queue[0]]
		queue = queue[1:]

		p.theta = p.thetaPrior.mean() * (0.9 + 0.2*rnd.Float64())
		if p.isLeaf() {
			continue
		}

		p.age = p.agePrior.mean() * (0.9 + 0.2*rnd.Float64())
		if fa := t.fatherAge(p); fa < p.age {
			// drop the age to the maximum sample age of the sons
			// and move it close to the parent age
			a := math.Max(t.pops[p.sons[0]].sampleAge, t.pops[p.sons[1]].sampleAge)
			p.age = a + (fa-a)*(0.93+0.004*rnd.Float64())
		}
		queue = append(queue, p.sons[0], p.sons[1])
	}

	for _, b := range t.bands {
		b.rate = 0
	}
	t.RecomputeBandTimes()
}

// SampleMigRates samples the rate of every migration band
// around the mean of its prior.
func (t *Tree) SampleMigRates(rnd *rand.Rand) {
	for _, b := range t.bands {
		mean := b.ratePrior.mean()
		if mean == 0 {
			continue
		}
		b.rate = mean * (0.9 + 0.2*rnd.Float64())
	}
}
