// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package genealogy

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/js-arias/coalmig/poptree"
	"gonum.org/v1/gonum/floats/scalar"
)

// statsTol is the tolerance used when comparing
// stored statistics against a recomputation.
const statsTol = 1e-10

// Param is a collection of parameters
// for the initialization of a locus.
type Param struct {
	// PopTree is the population tree.
	// It is immutable during a step.
	PopTree *poptree.Tree

	// Branches is the gene tree of the locus.
	Branches BranchData

	// Migs is the migration event stream of the locus.
	// It can be nil for a locus without migrations.
	Migs MigStream

	// MaxMigs bounds the number of migration events
	// in the locus.
	// If zero,
	// three events per sample are assumed.
	MaxMigs int

	// Heredity is the heredity multiplier of the locus.
	// If zero,
	// it defaults to one.
	Heredity float64
}

// A Locus is a gene tree embedded
// in a population tree:
// the genealogy of the locus
// and the per-population interval chains,
// kept mutually consistent,
// with the sufficient statistics of the embedding.
type Locus struct {
	id int
	pt *poptree.Tree

	gen    Tree
	chains *Chains

	branches BranchData
	migs     MigStream
	maxMigs  int

	leafPop   []int
	popLeaves [][]int
}

// NewLocus creates a new locus
// with the indicated parameters.
// Call Build to construct the genealogy
// and the interval chains.
func NewLocus(id int, p Param) *Locus {
	ns := p.Branches.NumSamples()
	if p.MaxMigs == 0 {
		p.MaxMigs = 3 * ns
	}
	if p.Heredity == 0 {
		p.Heredity = 1
	}

	l := &Locus{
		id:       id,
		pt:       p.PopTree,
		branches: p.Branches,
		migs:     p.Migs,
		maxMigs:  p.MaxMigs,
	}
	l.gen.Reset(ns, p.MaxMigs)

	numIntervals := 2*ns + 2*p.MaxMigs + 3*p.PopTree.NumPops()
	l.chains = newChains(p.PopTree, &l.gen, numIntervals, p.Heredity)
	return l
}

// ID returns the locus identifier.
func (l *Locus) ID() int {
	return l.id
}

// PopTree returns the population tree of the locus.
func (l *Locus) PopTree() *poptree.Tree {
	return l.pt
}

// Genealogy returns the gene tree of the locus.
func (l *Locus) Genealogy() *Tree {
	return &l.gen
}

// Chains returns the interval chains of the locus.
func (l *Locus) Chains() *Chains {
	return l.chains
}

// Build constructs the genealogy and the interval chains
// from the locus inputs:
// branches of the gene tree are linked
// to their corresponding intervals,
// and migration nodes are spliced on the branches
// that carry migration events.
// Lineage counts and statistics are not set;
// use ComputeGenetreeStats after the build.
func (l *Locus) Build() error {
	ns := l.branches.NumSamples()
	l.gen.Reset(ns, l.maxMigs)
	if err := l.gen.ConstructBranches(l.branches); err != nil {
		return fmt.Errorf("locus %d: %v", l.id, err)
	}

	l.chains.reset()
	if err := l.chains.createStartEnd(); err != nil {
		return fmt.Errorf("locus %d: %v", l.id, err)
	}

	// samples of every current population
	// enter the genealogy at their sample age
	for pop := 0; pop < l.pt.NumPops(); pop++ {
		if !l.pt.IsLeaf(pop) {
			continue
		}
		if _, err := l.chains.CreateInterval(pop, l.pt.SampleAge(pop), SamplesStart); err != nil {
			return fmt.Errorf("locus %d: %v", l.id, err)
		}
	}

	// coalescence intervals,
	// linked to their gene tree nodes;
	// leaves point to the shared samples-start
	// of their population
	l.leafPop = make([]int, ns)
	l.popLeaves = make([][]int, l.pt.NumPops())
	for node := 0; node < 2*ns-1; node++ {
		pop := l.branches.NodePop(node)
		if l.gen.IsLeaf(node) {
			l.gen.nodes[node].interval = l.chains.SamplesStartOf(pop)
			l.leafPop[node] = pop
			l.popLeaves[pop] = append(l.popLeaves[pop], node)
			continue
		}
		i, err := l.chains.CreateInterval(pop, l.gen.Age(node), Coalescence)
		if err != nil {
			return fmt.Errorf("locus %d: node %d: %v", l.id, node, err)
		}
		l.chains.setNode(i, node)
		l.gen.nodes[node].interval = i
	}

	// migration events,
	// walked in increasing age order on every branch
	if l.migs == nil {
		return nil
	}
	for node := 0; node < 2*ns-1; node++ {
		cur := node
		for mig := l.migs.FirstMig(node, l.gen.Age(node)); mig >= 0; {
			ev := l.migs.Mig(mig)

			band, ok := l.pt.MigBandBetween(ev.Source, ev.Target)
			if !ok {
				return fmt.Errorf("locus %d: node %d: %w: no band %d -> %d", l.id, node, ErrInconsistentTree, ev.Source, ev.Target)
			}

			in, err := l.chains.CreateInterval(ev.Target, ev.Age, InMig)
			if err != nil {
				return fmt.Errorf("locus %d: node %d: %v", l.id, node, err)
			}
			out, err := l.chains.CreateInterval(ev.Source, ev.Age, OutMig)
			if err != nil {
				return fmt.Errorf("locus %d: node %d: %v", l.id, node, err)
			}

			m, err := l.gen.AddMigNode(cur, band.ID, ev.Age)
			if err != nil {
				return fmt.Errorf("locus %d: node %d: %v", l.id, node, err)
			}
			l.chains.setNode(in, m)
			l.chains.setNode(out, m)
			l.gen.nodes[m].inMig = in
			l.gen.nodes[m].outMig = out

			cur = m
			mig = l.migs.FirstMig(node, ev.Age)
		}
	}
	return nil
}

// ComputeGenetreeStats recomputes the statistics
// of the whole genealogy.
func (l *Locus) ComputeGenetreeStats() error {
	return l.chains.ComputeGenetreeStats()
}

// RecalcStats recomputes the statistics
// of a single population
// and returns the change in log likelihood
// contributed by the population.
func (l *Locus) RecalcStats(pop int) (float64, error) {
	return l.chains.RecalcStats(pop)
}

// Stats returns a copy of the locus statistics.
func (l *Locus) Stats() Stats {
	return l.chains.Stats()
}

// LogLikelihood returns the log likelihood of the locus.
// If other is not nil,
// it returns the difference between the two likelihoods.
func (l *Locus) LogLikelihood(other *Locus) float64 {
	var oc *Chains
	if other != nil {
		oc = other.chains
	}
	return l.chains.ComputeLogLikelihood(oc)
}

// LeafPop returns the population of a sampled lineage.
func (l *Locus) LeafPop(leaf int) int {
	if leaf < 0 || leaf >= len(l.leafPop) {
		return -1
	}
	return l.leafPop[leaf]
}

// PopLeaves returns the sampled lineages
// of a current population.
func (l *Locus) PopLeaves(pop int) []int {
	if pop < 0 || pop >= len(l.popLeaves) {
		return nil
	}
	return slices.Clone(l.popLeaves[pop])
}

// MoveCoalAge moves a coalescence node to a new age
// within its current population,
// relocating its interval in the chain,
// and returns the change in log likelihood
// contributed by the population.
func (l *Locus) MoveCoalAge(node int, age float64) (float64, error) {
	if node < 0 || node >= l.gen.NumNodes() || l.gen.Type(node) != Coal {
		return 0, fmt.Errorf("locus %d: %w: node %d is not a coalescence", l.id, ErrInconsistentTree, node)
	}
	n := &l.gen.nodes[node]
	for _, s := range []int{n.left, n.right} {
		if l.gen.nodes[s].age >= age {
			return 0, fmt.Errorf("locus %d: %w: age %.6f below son %d", l.id, ErrInvalidAge, age, s)
		}
	}
	if n.parent >= 0 && l.gen.nodes[n.parent].age <= age {
		return 0, fmt.Errorf("locus %d: %w: age %.6f above parent %d", l.id, ErrInvalidAge, age, n.parent)
	}

	pop := l.chains.Pop(n.interval)
	if age <= l.pt.Age(pop) || age >= l.pt.FatherAge(pop) {
		return 0, fmt.Errorf("locus %d: population %s: %w: age %.6f", l.id, l.pt.PopName(pop), ErrInvalidAge, age)
	}
	if err := l.chains.Detach(n.interval); err != nil {
		return 0, fmt.Errorf("locus %d: %v", l.id, err)
	}
	i, err := l.chains.CreateInterval(pop, age, Coalescence)
	if err != nil {
		return 0, fmt.Errorf("locus %d: %v", l.id, err)
	}
	l.chains.setNode(i, node)
	n.interval = i
	n.age = age

	d, err := l.chains.RecalcStats(pop)
	if err != nil {
		return 0, fmt.Errorf("locus %d: %v", l.id, err)
	}
	return d, nil
}

// CopyFrom copies the genealogy,
// the interval chains,
// and the statistics from another locus,
// that must share the same population tree.
// Cross references are indices into the copied arenas,
// so they remain valid in the copy.
func (l *Locus) CopyFrom(other *Locus) {
	l.pt = other.pt
	l.branches = other.branches
	l.migs = other.migs

	l.gen.numSamples = other.gen.numSamples
	l.gen.nodes = append(l.gen.nodes[:0], other.gen.nodes...)

	c := l.chains
	oc := other.chains
	c.pt = oc.pt
	c.iv = append(c.iv[:0], oc.iv...)
	c.pool = oc.pool
	c.start = append(c.start[:0], oc.start...)
	c.end = append(c.end[:0], oc.end...)
	c.samples = append(c.samples[:0], oc.samples...)
	c.heredity = oc.heredity
	c.stats = oc.stats.Clone()

	l.leafPop = append(l.leafPop[:0], other.leafPop...)
	l.popLeaves = l.popLeaves[:0]
	for _, ls := range other.popLeaves {
		l.popLeaves = append(l.popLeaves, slices.Clone(ls))
	}
}

// ValidateGenealogy checks that the gene tree
// and its links to the interval chains
// are mutually consistent.
func (l *Locus) ValidateGenealogy() error {
	for id := 0; id < l.gen.NumNodes(); id++ {
		n := &l.gen.nodes[id]
		if n.parent >= 0 && l.gen.nodes[n.parent].age <= n.age {
			return fmt.Errorf("locus %d: %w: node %d at %.6f not below parent %d", l.id, ErrInconsistentTree, id, n.age, n.parent)
		}
		switch n.typ {
		case Leaf:
			if n.interval < 0 || l.chains.Type(n.interval) != SamplesStart {
				return fmt.Errorf("locus %d: %w: leaf %d without a samples-start", l.id, ErrInconsistentTree, id)
			}
		case Coal:
			if n.interval < 0 || l.chains.Type(n.interval) != Coalescence {
				return fmt.Errorf("locus %d: %w: coalescence %d without an interval", l.id, ErrInconsistentTree, id)
			}
			if l.chains.TreeNode(n.interval) != id {
				return fmt.Errorf("locus %d: %w: coalescence %d interval points to node %d", l.id, ErrInconsistentTree, id, l.chains.TreeNode(n.interval))
			}
		case Mig:
			band, ok := l.pt.Band(n.bandID)
			if !ok {
				return fmt.Errorf("locus %d: %w: migration %d on unknown band %d", l.id, ErrInconsistentTree, id, n.bandID)
			}
			if n.age < band.Start || n.age > band.End {
				return fmt.Errorf("locus %d: %w: migration %d at %.6f outside band span [%.6f, %.6f]", l.id, ErrInconsistentTree, id, n.age, band.Start, band.End)
			}
			if n.inMig < 0 || l.chains.Type(n.inMig) != InMig || l.chains.TreeNode(n.inMig) != id {
				return fmt.Errorf("locus %d: %w: migration %d without an in-mig interval", l.id, ErrInconsistentTree, id)
			}
			if n.outMig < 0 || l.chains.Type(n.outMig) != OutMig || l.chains.TreeNode(n.outMig) != id {
				return fmt.Errorf("locus %d: %w: migration %d without an out-mig interval", l.id, ErrInconsistentTree, id)
			}
			if p := l.chains.Pop(n.inMig); p != band.Target {
				return fmt.Errorf("locus %d: %w: migration %d enters population %d, band target is %d", l.id, ErrInconsistentTree, id, p, band.Target)
			}
			if p := l.chains.Pop(n.outMig); p != band.Source {
				return fmt.Errorf("locus %d: %w: migration %d leaves population %d, band source is %d", l.id, ErrInconsistentTree, id, p, band.Source)
			}
		}
	}
	return nil
}

// ValidateIntervals checks the interval chains:
// age ordering within every population,
// back references into the gene tree,
// and the lineage count closure
// from pop-start to pop-end.
func (l *Locus) ValidateIntervals() error {
	numCoal := 0
	numMig := 0
	for pop := 0; pop < l.pt.NumPops(); pop++ {
		s := l.chains.PopStartOf(pop)
		n := l.chains.NumLineages(s)
		age := l.chains.Age(s)
		for i := l.chains.Next(s); i >= 0; i = l.chains.Next(i) {
			if l.chains.Pop(i) != pop {
				return fmt.Errorf("locus %d: population %s: %w: chain crosses into population %s", l.id, l.pt.PopName(pop), ErrInconsistentTree, l.pt.PopName(l.chains.Pop(i)))
			}
			if l.chains.Age(i) < age {
				return fmt.Errorf("locus %d: population %s: %w: interval at %.6f after %.6f", l.id, l.pt.PopName(pop), ErrOrderingViolation, l.chains.Age(i), age)
			}
			age = l.chains.Age(i)

			switch l.chains.Type(i) {
			case SamplesStart:
				n += l.pt.NumSamples(pop)
			case Coalescence:
				n--
				numCoal++
				if nd := l.chains.TreeNode(i); nd < 0 || l.gen.nodes[nd].interval != i {
					return fmt.Errorf("locus %d: population %s: %w: broken coalescence back reference", l.id, l.pt.PopName(pop), ErrInconsistentTree)
				}
			case InMig:
				n--
				numMig++
				if nd := l.chains.TreeNode(i); nd < 0 || l.gen.nodes[nd].inMig != i {
					return fmt.Errorf("locus %d: population %s: %w: broken in-mig back reference", l.id, l.pt.PopName(pop), ErrInconsistentTree)
				}
			case OutMig:
				n++
				if nd := l.chains.TreeNode(i); nd < 0 || l.gen.nodes[nd].outMig != i {
					return fmt.Errorf("locus %d: population %s: %w: broken out-mig back reference", l.id, l.pt.PopName(pop), ErrInconsistentTree)
				}
			}
			if l.chains.Type(i) == PopEnd {
				if n != l.chains.NumLineages(i) {
					return fmt.Errorf("locus %d: population %s: %w: %d lineages at pop-end, stored %d", l.id, l.pt.PopName(pop), ErrInconsistentTree, n, l.chains.NumLineages(i))
				}
				break
			}
		}
	}

	if want := l.gen.NumSamples() - 1; numCoal != want {
		return fmt.Errorf("locus %d: %w: %d coalescence intervals, want %d", l.id, ErrInconsistentTree, numCoal, want)
	}
	if want := l.gen.NumNodes() - (2*l.gen.NumSamples() - 1); numMig != want {
		return fmt.Errorf("locus %d: %w: %d migration intervals, want %d", l.id, ErrInconsistentTree, numMig, want)
	}
	return nil
}

// ValidateStats recomputes the statistics of the locus
// and checks them against the stored values
// within a tolerance of 1e-10.
// The recomputed statistics are kept.
func (l *Locus) ValidateStats() error {
	old := l.chains.Stats()
	if err := l.chains.ComputeGenetreeStats(); err != nil {
		return fmt.Errorf("locus %d: %v", l.id, err)
	}
	cur := l.chains.stats

	for pop, v := range cur.NumCoals {
		if old.NumCoals[pop] != v {
			return fmt.Errorf("locus %d: %w: population %s: %d coalescences, stored %d", l.id, ErrStatsMismatch, l.pt.PopName(pop), v, old.NumCoals[pop])
		}
		if !equalStat(old.CoalStats[pop], cur.CoalStats[pop]) {
			return fmt.Errorf("locus %d: %w: population %s: coalescence statistic %.12f, stored %.12f", l.id, ErrStatsMismatch, l.pt.PopName(pop), cur.CoalStats[pop], old.CoalStats[pop])
		}
	}
	for b, v := range cur.NumMigs {
		if old.NumMigs[b] != v {
			return fmt.Errorf("locus %d: %w: band %d: %d migrations, stored %d", l.id, ErrStatsMismatch, b, v, old.NumMigs[b])
		}
		if !equalStat(old.MigStats[b], cur.MigStats[b]) {
			return fmt.Errorf("locus %d: %w: band %d: migration statistic %.12f, stored %.12f", l.id, ErrStatsMismatch, b, cur.MigStats[b], old.MigStats[b])
		}
	}
	return nil
}

func equalStat(a, b float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return scalar.EqualWithinAbs(a, b, statsTol)
}

// Print writes a human-readable dump of the locus
// into w:
// the population tree,
// the gene tree,
// and the interval chains.
func (l *Locus) Print(w io.Writer) {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	l.pt.Print(bw)
	fmt.Fprintf(bw, "------------------------------------------------------\n")
	l.gen.Print(bw)
	fmt.Fprintf(bw, "------------------------------------------------------\n")
	l.chains.Print(bw)
}
