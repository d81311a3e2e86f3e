// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package poptree_test

import (
	"bytes"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/js-arias/coalmig/poptree"
)

// newTree returns the tree
// ((C,D)CD, (A,T)AT)Root
// with CD at age 0.5,
// AT at age 1.0,
// and the root at age 2.0.
func newTree(t testing.TB) *poptree.Tree {
	t.Helper()

	pt := poptree.New("test")
	c, err := pt.AddLeaf("c", 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, err := pt.AddLeaf("d", 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, err := pt.AddLeaf("a", 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tp, err := pt.AddLeaf("t", 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cd, err := pt.AddAncestor("cd", 0.5, c, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	at, err := pt.AddAncestor("at", 1.0, a, tp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := pt.AddAncestor("root", 2.0, cd, at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pt.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return pt
}

func TestTree(t *testing.T) {
	pt := newTree(t)

	if g, w := pt.NumPops(), 7; g != w {
		t.Errorf("got %d populations, want %d", g, w)
	}
	if g, w := pt.NumCurPops(), 4; g != w {
		t.Errorf("got %d current populations, want %d", g, w)
	}

	root, _ := pt.PopID("root")
	if g := pt.Root(); g != root {
		t.Errorf("got root %d, want %d", g, root)
	}
	if g := pt.Father(root); g != -1 {
		t.Errorf("got father %d for root, want -1", g)
	}
	if g := pt.FatherAge(root); !math.IsInf(g, 1) {
		t.Errorf("got father age %.6f for root, want +Inf", g)
	}

	cd, _ := pt.PopID("cd")
	c, _ := pt.PopID("c")
	d, _ := pt.PopID("d")
	a, _ := pt.PopID("a")
	if !pt.IsAncestral(cd, c) || !pt.IsAncestral(cd, d) {
		t.Errorf("population cd should be ancestral to c and d")
	}
	if pt.IsAncestral(cd, a) {
		t.Errorf("population cd should not be ancestral to a")
	}
	if pt.IsAncestral(cd, cd) {
		t.Errorf("a population should not be its own ancestor")
	}
	if !pt.IsAncestral(root, c) {
		t.Errorf("the root should be ancestral to c")
	}

	post := pt.PostOrder()
	if g, w := len(post), 7; g != w {
		t.Fatalf("got %d populations in post-order, want %d", g, w)
	}
	pos := make(map[int]int, len(post))
	for i, p := range post {
		pos[p] = i
	}
	for _, p := range post {
		if pt.IsLeaf(p) {
			continue
		}
		l, r := pt.Sons(p)
		if pos[l] > pos[p] || pos[r] > pos[p] {
			t.Errorf("population %s before its sons in post-order", pt.PopName(p))
		}
	}
}

func TestTreeErrors(t *testing.T) {
	pt := poptree.New("errors")
	a, _ := pt.AddLeaf("a", 1, 0)
	b, _ := pt.AddLeaf("b", 1, 0)

	if _, err := pt.AddLeaf("a", 1, 0); !errors.Is(err, poptree.ErrAddRepeated) {
		t.Errorf("got error %v, want %v", err, poptree.ErrAddRepeated)
	}
	if _, err := pt.AddLeaf("", 1, 0); !errors.Is(err, poptree.ErrAddUnnamed) {
		t.Errorf("got error %v, want %v", err, poptree.ErrAddUnnamed)
	}
	if _, err := pt.AddAncestor("ab", 1, a, a); !errors.Is(err, poptree.ErrAddSameSon) {
		t.Errorf("got error %v, want %v", err, poptree.ErrAddSameSon)
	}
	if _, err := pt.AddAncestor("ab", 1, a, 10); !errors.Is(err, poptree.ErrAddNoSon) {
		t.Errorf("got error %v, want %v", err, poptree.ErrAddNoSon)
	}

	if err := pt.Validate(); !errors.Is(err, poptree.ErrValMultiRoot) {
		t.Errorf("got error %v, want %v", err, poptree.ErrValMultiRoot)
	}

	ab, _ := pt.AddAncestor("ab", 1, a, b)
	if _, err := pt.AddAncestor("bad", 0.5, ab, a); !errors.Is(err, poptree.ErrAddTaken) {
		t.Errorf("got error %v, want %v", err, poptree.ErrAddTaken)
	}
	if err := pt.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := pt.SetAge(a, 0.5); !errors.Is(err, poptree.ErrCurrentPop) {
		t.Errorf("got error %v, want %v", err, poptree.ErrCurrentPop)
	}
	if err := pt.SetAge(ab, -1); !errors.Is(err, poptree.ErrYoungerAge) {
		t.Errorf("got error %v, want %v", err, poptree.ErrYoungerAge)
	}
}

func TestMigBands(t *testing.T) {
	pt := newTree(t)
	a, _ := pt.PopID("a")
	tp, _ := pt.PopID("t")
	cd, _ := pt.PopID("cd")
	at, _ := pt.PopID("at")
	c, _ := pt.PopID("c")

	b1, err := pt.AddMigBand(a, tp, 2.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b2, err := pt.AddMigBand(cd, tp, 0.8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := pt.AddMigBand(a, tp, 1); !errors.Is(err, poptree.ErrBandRepeated) {
		t.Errorf("got error %v, want %v", err, poptree.ErrBandRepeated)
	}
	if _, err := pt.AddMigBand(a, a, 1); !errors.Is(err, poptree.ErrBandSamePop) {
		t.Errorf("got error %v, want %v", err, poptree.ErrBandSamePop)
	}
	if _, err := pt.AddMigBand(at, tp, 1); !errors.Is(err, poptree.ErrBandAncestor) {
		t.Errorf("got error %v, want %v", err, poptree.ErrBandAncestor)
	}

	if n := pt.RecomputeBandTimes(); n != 0 {
		t.Errorf("got %d collapsed bands, want 0", n)
	}

	band, ok := pt.Band(b1)
	if !ok {
		t.Fatalf("band %d not found", b1)
	}
	if band.Start != 0 || band.End != 1 {
		t.Errorf("band a->t: got span [%.6f, %.6f], want [0, 1]", band.Start, band.End)
	}
	band, _ = pt.Band(b2)
	if band.Start != 0.5 || band.End != 1 {
		t.Errorf("band cd->t: got span [%.6f, %.6f], want [0.5, 1]", band.Start, band.End)
	}

	if got, ok := pt.MigBandBetween(a, tp); !ok || got.ID != b1 {
		t.Errorf("got band %d between a and t, want %d", got.ID, b1)
	}
	if in := pt.InBands(tp); !slices.Equal(in, []int{b1, b2}) {
		t.Errorf("got incoming bands %v for t, want %v", in, []int{b1, b2})
	}
	if out := pt.OutBands(a); !slices.Equal(out, []int{b1}) {
		t.Errorf("got outgoing bands %v for a, want %v", out, []int{b1})
	}

	// a band between populations
	// that never exist at the same time
	// collapses to a single point
	b3, err := pt.AddMigBand(at, c, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := pt.RecomputeBandTimes(); n != 1 {
		t.Errorf("got %d collapsed bands, want 1", n)
	}
	band, _ = pt.Band(b3)
	if band.Start != band.End {
		t.Errorf("band at->c: got span [%.6f, %.6f], want a single point", band.Start, band.End)
	}
}

func TestTreeTSV(t *testing.T) {
	pt := newTree(t)
	a, _ := pt.PopID("a")
	tp, _ := pt.PopID("t")
	cd, _ := pt.PopID("cd")
	pt.SetTheta(a, 0.01)
	pt.SetTheta(tp, 0.02)
	if _, err := pt.AddMigBand(a, tp, 2.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := pt.AddMigBand(cd, tp, 0.8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pt.RecomputeBandTimes()

	var buf bytes.Buffer
	if err := pt.TSV(&buf); err != nil {
		t.Fatalf("error when writing data: %v", err)
	}
	var bBuf bytes.Buffer
	if err := pt.BandsTSV(&bBuf); err != nil {
		t.Fatalf("error when writing data: %v", err)
	}

	np, err := poptree.ReadTSV(&buf)
	if err != nil {
		t.Fatalf("error when reading data: %v", err)
	}
	if err := np.ReadBands(&bBuf); err != nil {
		t.Fatalf("error when reading data: %v", err)
	}

	if g, w := np.NumPops(), pt.NumPops(); g != w {
		t.Fatalf("got %d populations, want %d", g, w)
	}
	for p := 0; p < pt.NumPops(); p++ {
		if g, w := np.PopName(p), pt.PopName(p); g != w {
			t.Errorf("population %d: got name %q, want %q", p, g, w)
		}
		if g, w := np.Age(p), pt.Age(p); g != w {
			t.Errorf("population %d: got age %.6f, want %.6f", p, g, w)
		}
		if g, w := np.Theta(p), pt.Theta(p); g != w {
			t.Errorf("population %d: got theta %.6f, want %.6f", p, g, w)
		}
		if g, w := np.NumSamples(p), pt.NumSamples(p); g != w {
			t.Errorf("population %d: got %d samples, want %d", p, g, w)
		}
	}
	if g, w := np.NumBands(), pt.NumBands(); g != w {
		t.Fatalf("got %d bands, want %d", g, w)
	}
	for b := 0; b < pt.NumBands(); b++ {
		g, _ := np.Band(b)
		w, _ := pt.Band(b)
		if g != w {
			t.Errorf("band %d: got %v, want %v", b, g, w)
		}
	}
}
