// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package genealogy

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/js-arias/coalmig/poptree"
	"github.com/js-arias/timetree"
)

var (
	// ErrNoSample is returned when a terminal of a gene tree
	// has no population assignment.
	ErrNoSample = errors.New("terminal without a population assignment")

	// ErrNotBinary is returned when a gene tree
	// has a node without exactly two children.
	ErrNotBinary = errors.New("gene tree is not binary")
)

// FromTimeTree returns the branch data of a locus
// from a time calibrated gene tree,
// assigning each terminal to a current population
// with the samples map
// (taxon name to population name).
// Node ages,
// in years,
// are divided by scale
// to get ages in mutation units.
//
// Terminals are numbered [0, n)
// in alphabetical order,
// and internal nodes [n, 2n-1)
// in post-order.
// The population of an internal node
// is the population that contains its age
// among the ancestors of the populations
// of its descendants.
func FromTimeTree(t *timetree.Tree, pt *poptree.Tree, samples map[string]string, scale float64) (BranchData, error) {
	if scale <= 0 {
		scale = 1
	}

	terms := t.Terms()
	n := len(terms)
	if n < 1 {
		return nil, fmt.Errorf("tree %s: %w", t.Name(), ErrNotBinary)
	}
	slices.Sort(terms)

	d := &treeData{
		numSamples: n,
		pop:        make([]int, 2*n-1),
		age:        make([]float64, 2*n-1),
		father:     make([]int, 2*n-1),
		sons:       make([][2]int, 2*n-1),
	}

	// terminals in alphabetical order
	ids := make(map[int]int, 2*n-1)
	for i, tax := range terms {
		tid, ok := t.TaxNode(tax)
		if !ok {
			return nil, fmt.Errorf("tree %s: unknown taxon %q", t.Name(), tax)
		}
		pn, ok := samples[canonTaxon(tax)]
		if !ok {
			return nil, fmt.Errorf("tree %s: %w: %s", t.Name(), ErrNoSample, tax)
		}
		pop, ok := pt.PopID(pn)
		if !ok {
			return nil, fmt.Errorf("tree %s: taxon %s: unknown population %q", t.Name(), tax, pn)
		}
		if !pt.IsLeaf(pop) {
			return nil, fmt.Errorf("tree %s: taxon %s: population %s is not a current population", t.Name(), tax, pn)
		}

		ids[tid] = i
		d.pop[i] = pop
		d.age[i] = float64(t.Age(tid)) / scale
		d.sons[i] = [2]int{-1, -1}
	}

	// internal nodes in post-order
	next := n
	var walk func(tid int) (int, error)
	walk = func(tid int) (int, error) {
		if t.IsTerm(tid) {
			return ids[tid], nil
		}
		children := t.Children(tid)
		if len(children) != 2 {
			return -1, fmt.Errorf("tree %s: %w: node %d with %d children", t.Name(), ErrNotBinary, tid, len(children))
		}
		left, err := walk(children[0])
		if err != nil {
			return -1, err
		}
		right, err := walk(children[1])
		if err != nil {
			return -1, err
		}

		id := next
		next++
		ids[tid] = id
		d.age[id] = float64(t.Age(tid)) / scale
		d.sons[id] = [2]int{left, right}
		d.father[left] = id
		d.father[right] = id
		d.pop[id] = embedPop(pt, join(pt, d.pop[left], d.pop[right]), d.age[id])
		return id, nil
	}
	root, err := walk(t.Root())
	if err != nil {
		return nil, err
	}
	d.father[root] = -1

	return d, nil
}

// join returns the most recent population
// that is an ancestor of
// (or equal to)
// two populations.
func join(pt *poptree.Tree, a, b int) int {
	for a != b && !pt.IsAncestral(a, b) {
		a = pt.Father(a)
	}
	return a
}

// embedPop climbs from a population
// to the ancestor whose time span
// contains the indicated age.
func embedPop(pt *poptree.Tree, pop int, age float64) int {
	for age >= pt.FatherAge(pop) {
		pop = pt.Father(pop)
	}
	return pop
}

// treeData is the branch data of a gene tree
// read from a timetree.
type treeData struct {
	numSamples int
	pop        []int
	age        []float64
	father     []int
	sons       [][2]int
}

func (d *treeData) NumSamples() int {
	return d.numSamples
}

func (d *treeData) NodePop(node int) int {
	return d.pop[node]
}

func (d *treeData) NodeAge(node int) float64 {
	return d.age[node]
}

func (d *treeData) NodeFather(node int) int {
	return d.father[node]
}

func (d *treeData) NodeSon(node, k int) int {
	return d.sons[node][k]
}

// canonTaxon returns a taxon name
// in its canonical form.
func canonTaxon(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	name = strings.ToLower(name)
	r, n := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[n:]
}
