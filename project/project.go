// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package project binds the data files
// of a coalescent-with-migration analysis:
// the population tree and its migration bands,
// the gene trees of the loci,
// their migration events,
// and the assignment of samples to populations.
//
// A project is stored as a tab-delimited file (TSV)
// with one row per dataset.
package project

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

var (
	// ErrUnknownDataset is returned when a project
	// names a dataset that is not part of an analysis.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrRepeatedDataset is returned when a project file
	// defines the same dataset twice.
	ErrRepeatedDataset = errors.New("repeated dataset")
)

// Dataset is a keyword to identify
// the type of a dataset file in a project.
type Dataset string

// Valid dataset types.
const (
	// File for the population tree.
	PopTree Dataset = "poptree"

	// File for the migration bands
	// of the population tree.
	Bands Dataset = "migbands"

	// File for the gene trees of the loci.
	Trees Dataset = "genetrees"

	// File for the migration events of the loci.
	Migrations Dataset = "migrations"

	// File for the assignment of sampled taxa
	// to current populations.
	Samples Dataset = "samples"
)

// datasetOrder is the canonical order of the datasets:
// the demographic model first,
// then the per-locus data.
// A project file is always written in this order.
var datasetOrder = []Dataset{
	PopTree,
	Bands,
	Trees,
	Migrations,
	Samples,
}

func (d Dataset) isValid() bool {
	switch d {
	case PopTree, Bands, Trees, Migrations, Samples:
		return true
	}
	return false
}

// A Project holds the file paths of the datasets
// of an analysis.
// The population tree,
// the gene trees,
// and the sample assignments are required
// to embed a locus;
// migration bands and migration events are optional.
type Project struct {
	name  string
	paths map[Dataset]string
}

// New creates a new empty project.
func New() *Project {
	return &Project{
		paths: make(map[Dataset]string),
	}
}

var header = []string{
	"dataset",
	"path",
}

// Read reads a project file from a TSV file.
// Unknown and repeated datasets are rejected.
//
// The TSV must contain the following fields:
//
//   - dataset, for the kind of file
//   - path, for the path of the file
//
// Here is an example file:
//
//	# coalmig project files
//	dataset	path
//	poptree	pop-tree.tab
//	migbands	mig-bands.tab
//	genetrees	gene-trees.tab
//	migrations	migrations.tab
//	samples	samples.tab
func Read(name string) (*Project, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tsv := csv.NewReader(f)
	tsv.Comma = '\t'
	tsv.Comment = '#'

	head, err := tsv.Read()
	if err != nil {
		return nil, fmt.Errorf("on file %q: header: %v", name, err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(h)
		fields[h] = i
	}
	for _, h := range header {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("on file %q: expecting field %q", name, h)
		}
	}

	p := New()
	p.name = name
	for {
		row, err := tsv.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tsv.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on file %q: on row %d: %v", name, ln, err)
		}

		f := "dataset"
		s := Dataset(strings.ToLower(strings.TrimSpace(row[fields[f]])))
		if !s.isValid() {
			return nil, fmt.Errorf("on file %q: on row %d: %w: %q", name, ln, ErrUnknownDataset, s)
		}
		if _, dup := p.paths[s]; dup {
			return nil, fmt.Errorf("on file %q: on row %d: %w: %q", name, ln, ErrRepeatedDataset, s)
		}

		f = "path"
		path := strings.TrimSpace(row[fields[f]])
		if path == "" {
			continue
		}
		p.paths[s] = path
	}

	return p, nil
}

// Add sets the file path of a dataset.
// An empty path removes the dataset
// from the project.
func (p *Project) Add(set Dataset, path string) error {
	if !set.isValid() {
		return fmt.Errorf("%w: %q", ErrUnknownDataset, set)
	}

	path = strings.TrimSpace(path)
	if path == "" {
		delete(p.paths, set)
		return nil
	}
	p.paths[set] = path
	return nil
}

// Name returns the file name of the project.
func (p *Project) Name() string {
	return p.name
}

// Path returns the path of the given dataset,
// or an empty string if the dataset is not defined.
func (p *Project) Path(set Dataset) string {
	return p.paths[set]
}

// Sets returns the datasets defined on a project,
// in canonical order.
func (p *Project) Sets() []Dataset {
	var sets []Dataset
	for _, s := range datasetOrder {
		if _, ok := p.paths[s]; ok {
			sets = append(sets, s)
		}
	}
	return sets
}

// SetName sets the project file name.
func (p *Project) SetName(name string) {
	p.name = name
}

// Write writes a project into a file,
// with the datasets in canonical order.
func (p *Project) Write() (err error) {
	f, err := os.Create(p.name)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "# coalmig project files\n")
	fmt.Fprintf(bw, "# data save on: %s\n", time.Now().Format(time.RFC3339))
	tsv := csv.NewWriter(bw)
	tsv.Comma = '\t'
	tsv.UseCRLF = true

	if err := tsv.Write(header); err != nil {
		return fmt.Errorf("on file %q: while writing header: %v", p.name, err)
	}

	for _, s := range p.Sets() {
		row := []string{
			string(s),
			p.paths[s],
		}
		if err := tsv.Write(row); err != nil {
			return fmt.Errorf("on file %q: %v", p.name, err)
		}
	}

	tsv.Flush()
	if err := tsv.Error(); err != nil {
		return fmt.Errorf("on file %q: while writing data: %v", p.name, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("on file %q: while writing data: %v", p.name, err)
	}
	return nil
}
