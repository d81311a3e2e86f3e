// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package genealogy_test

import (
	"bytes"
	"testing"

	"github.com/js-arias/coalmig/genealogy"
	"github.com/js-arias/coalmig/poptree"
)

func migTree(t testing.TB) *poptree.Tree {
	t.Helper()

	pt := poptree.New("migs")
	a, _ := pt.AddLeaf("a", 1, 0)
	b, _ := pt.AddLeaf("b", 1, 0)
	if _, err := pt.AddAncestor("ab", 1.0, a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := pt.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := pt.AddMigBand(b, a, 1.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pt.RecomputeBandTimes()
	return pt
}

func TestMigs(t *testing.T) {
	pt := migTree(t)
	a, _ := pt.PopID("a")
	b, _ := pt.PopID("b")

	m := genealogy.NewMigs()

	// events on the same branch
	// are kept in age order
	m.Add(genealogy.MigEvent{Node: 0, Age: 0.7, Source: b, Target: a})
	m.Add(genealogy.MigEvent{Node: 0, Age: 0.2, Source: a, Target: b})
	m.Add(genealogy.MigEvent{Node: 1, Age: 0.4, Source: b, Target: a})

	first := m.FirstMig(0, 0)
	if g := m.Mig(first).Age; g != 0.2 {
		t.Errorf("got first event at %.6f, want 0.2", g)
	}
	next := m.FirstMig(0, m.Mig(first).Age)
	if g := m.Mig(next).Age; g != 0.7 {
		t.Errorf("got next event at %.6f, want 0.7", g)
	}
	if g := m.FirstMig(0, 0.7); g != -1 {
		t.Errorf("got event %d above the last event, want -1", g)
	}
	if g := m.FirstMig(2, 0); g != -1 {
		t.Errorf("got event %d on a branch without events, want -1", g)
	}
}

func TestMigsTSV(t *testing.T) {
	pt := migTree(t)
	a, _ := pt.PopID("a")
	b, _ := pt.PopID("b")

	m := genealogy.NewMigs()
	m.Add(genealogy.MigEvent{Node: 0, Age: 0.3, Source: b, Target: a})
	m.Add(genealogy.MigEvent{Node: 1, Age: 0.6, Source: b, Target: a})
	coll := map[string]*genealogy.Migs{"locus-1": m}

	var buf bytes.Buffer
	if err := genealogy.WriteMigs(&buf, pt, coll); err != nil {
		t.Fatalf("error when writing data: %v", err)
	}

	nc, err := genealogy.ReadMigs(&buf, pt)
	if err != nil {
		t.Fatalf("error when reading data: %v", err)
	}
	nm, ok := nc["locus-1"]
	if !ok {
		t.Fatalf("locus-1 not found in the read collection")
	}
	if g, w := nm.Len(), m.Len(); g != w {
		t.Fatalf("got %d events, want %d", g, w)
	}
	for i := 0; i < m.Len(); i++ {
		if g, w := nm.Mig(i), m.Mig(i); g != w {
			t.Errorf("event %d: got %v, want %v", i, g, w)
		}
	}
}
