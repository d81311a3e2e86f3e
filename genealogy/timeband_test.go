// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package genealogy_test

import (
	"math"
	"testing"

	"github.com/js-arias/coalmig/genealogy"
	"github.com/js-arias/coalmig/poptree"
)

// bandSpec defines a migration band
// by population names.
type bandSpec struct {
	source string
	target string
	rate   float64
}

// timeBandLocus returns the tree
// ((C,D)CD, (A,T)AT)Root,
// with CD at 0.5,
// AT at 1.0,
// the root at 2.0,
// and one sample per current population,
// coalescing inside the root population.
func timeBandLocus(t testing.TB, bands []bandSpec) (*poptree.Tree, *genealogy.Locus) {
	t.Helper()

	pt := poptree.New("timebands")
	c, _ := pt.AddLeaf("c", 1, 0)
	d, _ := pt.AddLeaf("d", 1, 0)
	a, _ := pt.AddLeaf("a", 1, 0)
	tp, _ := pt.AddLeaf("t", 1, 0)
	cd, err := pt.AddAncestor("cd", 0.5, c, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	at, err := pt.AddAncestor("at", 1.0, a, tp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root, err := pt.AddAncestor("root", 2.0, cd, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pt.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for p := 0; p < pt.NumPops(); p++ {
		pt.SetTheta(p, 0.01)
	}
	for _, b := range bands {
		src, _ := pt.PopID(b.source)
		tgt, _ := pt.PopID(b.target)
		if _, err := pt.AddMigBand(src, tgt, b.rate); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	pt.RecomputeBandTimes()

	l := genealogy.NewLocus(0, genealogy.Param{
		PopTree: pt,
		Branches: branches{
			pops:   []int{c, d, a, tp, root, root, root},
			ages:   []float64{0, 0, 0, 0, 2.2, 2.4, 3.0},
			father: []int{4, 4, 5, 5, 6, 6, -1},
			sons:   [][2]int{{-1, -1}, {-1, -1}, {-1, -1}, {-1, -1}, {0, 1}, {2, 3}, {4, 5}},
		},
	})
	if err := l.Build(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.ComputeGenetreeStats(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return pt, l
}

func TestTimeBandStats(t *testing.T) {
	pt, l := timeBandLocus(t, []bandSpec{
		{source: "a", target: "t", rate: 2.5},
		{source: "cd", target: "t", rate: 0.8},
	})
	validateLocus(t, l)

	// a single lineage lives in population t
	// over its whole [0, 1] span:
	// the a->t band is live throughout,
	// the cd->t band only over [0.5, 1]
	st := l.Stats()
	if g, w := st.MigStats[0], 1.0; math.Abs(g-w) > tol {
		t.Errorf("band a->t: got migration statistic %.12f, want %.12f", g, w)
	}
	if g, w := st.MigStats[1], 0.5; math.Abs(g-w) > tol {
		t.Errorf("band cd->t: got migration statistic %.12f, want %.12f", g, w)
	}

	cd, _ := pt.PopID("cd")
	at, _ := pt.PopID("at")
	root, _ := pt.PopID("root")
	if g, w := st.CoalStats[cd], 2*1*1.5; math.Abs(g-w) > tol {
		t.Errorf("population cd: got coalescence statistic %.12f, want %.12f", g, w)
	}
	if g, w := st.CoalStats[at], 2*1*1.0; math.Abs(g-w) > tol {
		t.Errorf("population at: got coalescence statistic %.12f, want %.12f", g, w)
	}
	want := 4*3*0.2 + 3*2*0.2 + 2*1*0.6
	if g := st.CoalStats[root]; math.Abs(g-want) > tol {
		t.Errorf("population root: got coalescence statistic %.12f, want %.12f", g, want)
	}
	if g := st.NumCoals[root]; g != 3 {
		t.Errorf("population root: got %d coalescences, want 3", g)
	}
}

// Adding a band that introduces a breakpoint
// inside the span of another band
// splits its integration by time bands,
// but must not change its statistic.
func TestTimeBandSplit(t *testing.T) {
	_, l := timeBandLocus(t, []bandSpec{
		{source: "a", target: "t", rate: 2.5},
	})
	before := l.Stats()
	if g, w := before.MigStats[0], 1.0; math.Abs(g-w) > tol {
		t.Fatalf("band a->t: got migration statistic %.12f, want %.12f", g, w)
	}

	_, split := timeBandLocus(t, []bandSpec{
		{source: "a", target: "t", rate: 2.5},
		{source: "cd", target: "t", rate: 0.8},
		{source: "d", target: "t", rate: 1.0},
	})
	validateLocus(t, split)

	after := split.Stats()
	if math.Abs(after.MigStats[0]-before.MigStats[0]) > tol {
		t.Errorf("band a->t: got migration statistic %.12f, want %.12f", after.MigStats[0], before.MigStats[0])
	}
	if g, w := after.MigStats[2], 0.5; math.Abs(g-w) > tol {
		t.Errorf("band d->t: got migration statistic %.12f, want %.12f", g, w)
	}
	for p := range before.CoalStats {
		if after.CoalStats[p] != before.CoalStats[p] {
			t.Errorf("population %d: coalescence statistic changed by the band split", p)
		}
	}
}

// A band between populations
// that never exist at the same time
// contributes nothing.
func TestDegenerateBand(t *testing.T) {
	_, l := timeBandLocus(t, []bandSpec{
		{source: "a", target: "t", rate: 2.5},
		{source: "cd", target: "t", rate: 0.8},
	})
	before := l.Stats()

	pt, dg := timeBandLocus(t, []bandSpec{
		{source: "a", target: "t", rate: 2.5},
		{source: "cd", target: "t", rate: 0.8},
		{source: "at", target: "c", rate: 1.0},
	})
	validateLocus(t, dg)

	b, _ := pt.PopID("at")
	c, _ := pt.PopID("c")
	band, _ := pt.MigBandBetween(b, c)
	if band.Start != band.End {
		t.Fatalf("band at->c: got span [%.6f, %.6f], want a single point", band.Start, band.End)
	}

	after := dg.Stats()
	for i := range before.MigStats {
		if math.Abs(after.MigStats[i]-before.MigStats[i]) > tol {
			t.Errorf("band %d: got migration statistic %.12f, want %.12f", i, after.MigStats[i], before.MigStats[i])
		}
	}
	if g := after.MigStats[band.ID]; g != 0 {
		t.Errorf("band at->c: got migration statistic %.12f, want 0", g)
	}
}
