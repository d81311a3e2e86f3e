// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package project

import (
	"fmt"
	"os"

	"github.com/js-arias/coalmig/genealogy"
	"github.com/js-arias/coalmig/poptree"
	"github.com/js-arias/timetree"
)

// PopTree returns the population tree
// from a project,
// with its migration bands
// if a band file is defined.
func (p *Project) PopTree() (*poptree.Tree, error) {
	name := p.Path(PopTree)
	if name == "" {
		return nil, fmt.Errorf("population tree not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := poptree.ReadTSV(f)
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}

	bn := p.Path(Bands)
	if bn == "" {
		t.RecomputeBandTimes()
		return t, nil
	}

	bf, err := os.Open(bn)
	if err != nil {
		return nil, err
	}
	defer bf.Close()

	if err := t.ReadBands(bf); err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", bn, err)
	}
	return t, nil
}

// Trees returns the gene tree collection
// from a project.
func (p *Project) Trees() (*timetree.Collection, error) {
	name := p.Path(Trees)
	if name == "" {
		return nil, fmt.Errorf("gene trees not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := timetree.ReadTSV(f)
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}
	return c, nil
}

// Migs returns the per-locus migration event tables
// from a project,
// keyed by gene tree name,
// or an empty collection
// if no migration file is defined.
func (p *Project) Migs(pt *poptree.Tree) (map[string]*genealogy.Migs, error) {
	name := p.Path(Migrations)
	if name == "" {
		return map[string]*genealogy.Migs{}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := genealogy.ReadMigs(f, pt)
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}
	return m, nil
}

// Samples returns the assignment of sampled taxa
// to current populations
// from a project.
func (p *Project) Samples() (map[string]string, error) {
	name := p.Path(Samples)
	if name == "" {
		return nil, fmt.Errorf("sample assignments not defined in project %q", p.name)
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := genealogy.ReadSamples(f)
	if err != nil {
		return nil, fmt.Errorf("while reading file %q: %v", name, err)
	}
	return s, nil
}

// A LocusData is an embedded locus
// assembled from the files of a project.
type LocusData struct {
	// Name of the gene tree of the locus.
	Name string

	// The embedded genealogy.
	Locus *genealogy.Locus
}

// Loci assembles the loci of a project:
// it reads the population tree,
// the sample assignments,
// the gene trees,
// and the migration events,
// embeds each gene tree in the population tree,
// and builds its interval chains.
// Gene tree ages,
// in years,
// are divided by scale
// to get ages in mutation units;
// heredity is the heredity multiplier of the loci.
// Statistics are not computed;
// loci are independent,
// so the caller is free to process them in parallel.
func (p *Project) Loci(scale, heredity float64) (*poptree.Tree, []LocusData, error) {
	pt, err := p.PopTree()
	if err != nil {
		return nil, nil, err
	}
	samples, err := p.Samples()
	if err != nil {
		return nil, nil, err
	}
	migs, err := p.Migs(pt)
	if err != nil {
		return nil, nil, err
	}
	tc, err := p.Trees()
	if err != nil {
		return nil, nil, err
	}

	var loci []LocusData
	for i, name := range tc.Names() {
		data, err := genealogy.FromTimeTree(tc.Tree(name), pt, samples, scale)
		if err != nil {
			return nil, nil, err
		}

		param := genealogy.Param{
			PopTree:  pt,
			Branches: data,
			Heredity: heredity,
		}
		if m, ok := migs[name]; ok {
			param.Migs = m
			param.MaxMigs = m.Len() + 1
		}

		l := genealogy.NewLocus(i, param)
		if err := l.Build(); err != nil {
			return nil, nil, err
		}
		loci = append(loci, LocusData{
			Name:  name,
			Locus: l,
		})
	}
	return pt, loci, nil
}
