// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package genealogy

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/js-arias/coalmig/poptree"
)

// An IntervalType indicates the kind of event
// at the bottom of a population interval.
type IntervalType int8

// Types of population intervals.
const (
	// Free pool slot.
	freeSlot IntervalType = iota - 1

	// Start of a population
	// (at the age of the population).
	PopStart

	// The samples of a current population enter the genealogy.
	SamplesStart

	// A coalescence event.
	Coalescence

	// A lineage enters from the target side
	// of a migration band.
	InMig

	// A lineage leaves through the source side
	// of a migration band.
	OutMig

	// End of a population
	// (at the age of its parent population).
	PopEnd
)

func (t IntervalType) String() string {
	switch t {
	case PopStart:
		return "pop-start"
	case SamplesStart:
		return "samples-start"
	case Coalescence:
		return "coal"
	case InMig:
		return "in-mig"
	case OutMig:
		return "out-mig"
	case PopEnd:
		return "pop-end"
	}
	return "free"
}

// rank breaks ties between events at the same age:
// samples enter before coalescences,
// and coalescences before migrations.
func (t IntervalType) rank() int {
	switch t {
	case PopStart:
		return 0
	case SamplesStart:
		return 1
	case Coalescence:
		return 2
	case InMig, OutMig:
		return 3
	}
	return 4
}

// An interval is a single record
// in the chain of a population.
// The interval covers the time span
// from its own age
// to the age of the next interval in the chain.
type interval struct {
	pop int
	age float64
	typ IntervalType

	// number of lineages immediately above the interval age
	lineages int

	// gene tree node of the event,
	// or -1 for sentinels and samples
	node int

	prev, next int
}

// Chains holds the per-population interval chains of a locus.
// Intervals are drawn from a pre-allocated pool;
// the chain of each population runs
// from a pop-start to a pop-end sentinel,
// and the pop-end of a population is linked
// to the pop-start of its parent.
type Chains struct {
	pt  *poptree.Tree
	gen *Tree

	iv   []interval
	pool int

	start   []int
	end     []int
	samples []int

	heredity float64

	stats Stats
}

// newChains returns a chains structure
// with a pool of the indicated number of intervals.
func newChains(pt *poptree.Tree, gen *Tree, numIntervals int, heredity float64) *Chains {
	c := &Chains{
		pt:       pt,
		gen:      gen,
		iv:       make([]interval, numIntervals),
		start:    make([]int, pt.NumPops()),
		end:      make([]int, pt.NumPops()),
		samples:  make([]int, pt.NumPops()),
		heredity: heredity,
		stats:    NewStats(pt.NumPops(), pt.NumBands()),
	}
	c.reset()
	return c
}

// reset returns every interval to the pool.
func (c *Chains) reset() {
	for i := range c.iv {
		c.iv[i] = interval{
			pop:  -1,
			typ:  freeSlot,
			node: -1,
			prev: -1,
			next: i + 1,
		}
	}
	c.iv[len(c.iv)-1].next = -1
	c.pool = 0

	for p := range c.start {
		c.start[p] = -1
		c.end[p] = -1
		c.samples[p] = -1
	}
}

// alloc takes an interval from the pool.
func (c *Chains) alloc() (int, error) {
	if c.pool < 0 {
		return -1, ErrIntervalOverflow
	}
	i := c.pool
	c.pool = c.iv[i].next
	c.iv[i] = interval{
		pop:  -1,
		node: -1,
		prev: -1,
		next: -1,
	}
	return i, nil
}

// free returns an interval to the pool.
func (c *Chains) free(i int) {
	c.iv[i] = interval{
		pop:  -1,
		typ:  freeSlot,
		node: -1,
		prev: -1,
		next: c.pool,
	}
	c.pool = i
}

// createStartEnd allocates the pop-start and pop-end sentinels
// of every population,
// and links the pop-end of each population
// to the pop-start of its parent.
func (c *Chains) createStartEnd() error {
	for p := 0; p < c.pt.NumPops(); p++ {
		s, err := c.alloc()
		if err != nil {
			return fmt.Errorf("population %s: %w", c.pt.PopName(p), err)
		}
		e, err := c.alloc()
		if err != nil {
			return fmt.Errorf("population %s: %w", c.pt.PopName(p), err)
		}
		c.iv[s] = interval{
			pop:  p,
			age:  c.pt.Age(p),
			typ:  PopStart,
			node: -1,
			prev: -1,
			next: e,
		}
		c.iv[e] = interval{
			pop:  p,
			age:  c.pt.FatherAge(p),
			typ:  PopEnd,
			node: -1,
			prev: s,
			next: -1,
		}
		c.start[p] = s
		c.end[p] = e
	}

	// the pop-end of a population is the same time point
	// as the pop-start of its parent
	for p := 0; p < c.pt.NumPops(); p++ {
		f := c.pt.Father(p)
		if f < 0 {
			continue
		}
		c.iv[c.end[p]].next = c.start[f]
	}
	return nil
}

// CreateInterval creates an event interval
// in the chain of a population,
// at the position that keeps the chain ordered by age.
func (c *Chains) CreateInterval(pop int, age float64, typ IntervalType) (int, error) {
	min := c.pt.Age(pop)
	max := c.pt.FatherAge(pop)
	switch typ {
	case SamplesStart:
		if age < min || age >= max {
			return -1, fmt.Errorf("population %s: %w: age %.6f not in [%.6f, %.6f)", c.pt.PopName(pop), ErrInvalidAge, age, min, max)
		}
	default:
		if age <= min || age >= max {
			return -1, fmt.Errorf("population %s: %w: age %.6f not in (%.6f, %.6f)", c.pt.PopName(pop), ErrInvalidAge, age, min, max)
		}
	}

	// search the first interval
	// that must be kept after the new one
	anchor := -1
	for i := c.iv[c.start[pop]].next; i >= 0; i = c.iv[i].next {
		iv := &c.iv[i]
		if iv.typ == PopEnd {
			anchor = i
			break
		}
		if iv.age > age || (iv.age == age && iv.typ.rank() > typ.rank()) {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return -1, fmt.Errorf("population %s: %w: chain without a pop-end", c.pt.PopName(pop), ErrInconsistentTree)
	}
	return c.CreateIntervalBefore(anchor, pop, age, typ)
}

// CreateIntervalBefore creates an event interval
// immediately before the indicated anchor interval.
// It is used when several events share the same age
// and the exact slot is known.
func (c *Chains) CreateIntervalBefore(anchor, pop int, age float64, typ IntervalType) (int, error) {
	prev := c.iv[anchor].prev
	if prev < 0 {
		return -1, fmt.Errorf("population %s: %w: insertion before a pop-start", c.pt.PopName(pop), ErrOrderingViolation)
	}
	if c.iv[prev].age > age || c.iv[anchor].age < age {
		return -1, fmt.Errorf("population %s: %w: age %.6f between %.6f and %.6f", c.pt.PopName(pop), ErrOrderingViolation, age, c.iv[prev].age, c.iv[anchor].age)
	}

	i, err := c.alloc()
	if err != nil {
		return -1, fmt.Errorf("population %s: %w", c.pt.PopName(pop), err)
	}
	c.iv[i] = interval{
		pop:  pop,
		age:  age,
		typ:  typ,
		node: -1,
		prev: prev,
		next: anchor,
	}
	c.iv[prev].next = i
	c.iv[anchor].prev = i
	if typ == SamplesStart {
		c.samples[pop] = i
	}
	return i, nil
}

// Detach removes an event interval from its chain
// and returns it to the pool.
func (c *Chains) Detach(i int) error {
	iv := &c.iv[i]
	switch iv.typ {
	case PopStart, PopEnd, freeSlot:
		return fmt.Errorf("%w: detaching a %s interval", ErrOrderingViolation, iv.typ)
	}
	if iv.typ == SamplesStart {
		c.samples[iv.pop] = -1
	}
	c.iv[iv.prev].next = iv.next
	c.iv[iv.next].prev = iv.prev
	c.free(i)
	return nil
}

// PopStartOf returns the pop-start interval of a population.
func (c *Chains) PopStartOf(pop int) int {
	return c.start[pop]
}

// PopEndOf returns the pop-end interval of a population.
func (c *Chains) PopEndOf(pop int) int {
	return c.end[pop]
}

// SamplesStartOf returns the samples-start interval
// of a population,
// or -1 if the population has none.
func (c *Chains) SamplesStartOf(pop int) int {
	return c.samples[pop]
}

// FirstInterval returns the first event interval
// of a population.
func (c *Chains) FirstInterval(pop int) int {
	return c.iv[c.start[pop]].next
}

// Next returns the interval after the indicated interval.
func (c *Chains) Next(i int) int {
	return c.iv[i].next
}

// Prev returns the interval before the indicated interval.
func (c *Chains) Prev(i int) int {
	return c.iv[i].prev
}

// Age returns the age of an interval.
func (c *Chains) Age(i int) float64 {
	return c.iv[i].age
}

// Type returns the type of an interval.
func (c *Chains) Type(i int) IntervalType {
	return c.iv[i].typ
}

// Pop returns the population of an interval.
func (c *Chains) Pop(i int) int {
	return c.iv[i].pop
}

// NumLineages returns the number of lineages
// immediately above the age of an interval.
func (c *Chains) NumLineages(i int) int {
	return c.iv[i].lineages
}

// TreeNode returns the gene tree node of an event interval,
// or -1 for sentinels and samples.
func (c *Chains) TreeNode(i int) int {
	return c.iv[i].node
}

// setNode links an interval to a gene tree node.
func (c *Chains) setNode(i, node int) {
	c.iv[i].node = node
}

// Print writes a human-readable dump of the chains
// into w.
func (c *Chains) Print(w io.Writer) {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	for _, p := range c.pt.PostOrder() {
		fmt.Fprintf(bw, "pop %2d (%s):\n", p, c.pt.PopName(p))
		for i := c.start[p]; i >= 0; i = c.iv[i].next {
			iv := &c.iv[i]
			age := fmt.Sprintf("%.6f", iv.age)
			if math.IsInf(iv.age, 1) {
				age = "inf"
			}
			fmt.Fprintf(bw, "  %-13s age %-10s lineages %2d", iv.typ, age, iv.lineages)
			if iv.node >= 0 {
				fmt.Fprintf(bw, "  node %d", iv.node)
			}
			fmt.Fprintf(bw, "\n")
			if iv.typ == PopEnd {
				break
			}
		}
	}
}
