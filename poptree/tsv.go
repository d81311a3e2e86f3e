// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package poptree

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var headerFields = []string{
	"pop",
	"parent",
	"age",
	"theta",
	"samples",
	"sampleage",
	"name",
}

// ReadTSV reads a population tree
// from a TSV file.
//
// The TSV must contain the following fields:
//
//   - pop, the ID of the population
//   - parent, the ID of the parent population
//     (-1 is used for the root)
//   - age, the age of the population
//   - theta, the scaled effective size of the population
//   - samples, the number of samples of a current population
//   - sampleage, the age of the samples of a current population
//   - name, the name of the population
//
// Population IDs must start at 0 and be consecutive.
// Ages are in units of expected mutations per site.
//
// Here is an example file:
//
//	# population tree
//	pop	parent	age	theta	samples	sampleage	name
//	0	2	0	0.01	2	0	africa
//	1	2	0	0.01	1	0	eurasia
//	2	-1	0.5	0.02	0	0	ancestor
func ReadTSV(r io.Reader) (*Tree, error) {
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return nil, fmt.Errorf("while reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(h)
		fields[h] = i
	}
	for _, h := range headerFields {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	type popRow struct {
		parent    int
		age       float64
		theta     float64
		samples   int
		sampleAge float64
		name      string
	}
	rows := make(map[int]popRow)

	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		f := "pop"
		id, err := strconv.Atoi(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}
		if _, dup := rows[id]; dup {
			return nil, fmt.Errorf("on row %d: field %q: population ID %d already used", ln, f, id)
		}

		f = "parent"
		parent, err := strconv.Atoi(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		f = "age"
		age, err := strconv.ParseFloat(row[fields[f]], 64)
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		f = "theta"
		theta, err := strconv.ParseFloat(row[fields[f]], 64)
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		f = "samples"
		samples, err := strconv.Atoi(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		f = "sampleage"
		sampleAge, err := strconv.ParseFloat(row[fields[f]], 64)
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		f = "name"
		name := canon(row[fields[f]])
		if name == "" {
			return nil, fmt.Errorf("on row %d: field %q: %w", ln, f, ErrAddUnnamed)
		}

		rows[id] = popRow{
			parent:    parent,
			age:       age,
			theta:     theta,
			samples:   samples,
			sampleAge: sampleAge,
			name:      name,
		}
	}

	t := New("")
	for id := 0; id < len(rows); id++ {
		pr, ok := rows[id]
		if !ok {
			return nil, fmt.Errorf("population IDs must be consecutive: missing ID %d", id)
		}
		if _, dup := t.names[pr.name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrAddRepeated, pr.name)
		}
		p := &population{
			id:         id,
			name:       pr.name,
			age:        pr.age,
			sampleAge:  pr.sampleAge,
			numSamples: pr.samples,
			theta:      pr.theta,
			father:     pr.parent,
			sons:       [2]int{-1, -1},
		}
		t.pops = append(t.pops, p)
		t.names[p.name] = p
	}

	// set son populations
	for _, p := range t.pops {
		if p.father < 0 {
			continue
		}
		if p.father >= len(t.pops) {
			return nil, fmt.Errorf("population %s: parent ID %d not in tree", p.name, p.father)
		}
		f := t.pops[p.father]
		if f.age < p.age || f.age < p.sampleAge {
			return nil, fmt.Errorf("population %s: %w: age %.6f", p.name, ErrAddYoungAge, f.age)
		}
		if f.sons[0] < 0 {
			f.sons[0] = p.id
			continue
		}
		if f.sons[1] < 0 {
			f.sons[1] = p.id
			continue
		}
		return nil, fmt.Errorf("population %s: more than two sons", f.name)
	}
	for _, p := range t.pops {
		if p.sons[0] >= 0 && p.sons[1] < 0 {
			return nil, fmt.Errorf("population %s: a single son", p.name)
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// TSV encodes a population tree
// into a TSV file.
func (t *Tree) TSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# population tree\n")
	fmt.Fprintf(bw, "# data save on: %s\n", time.Now().Format(time.RFC3339))

	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = true
	if err := tab.Write(headerFields); err != nil {
		return fmt.Errorf("while writing header: %v", err)
	}

	for _, p := range t.pops {
		row := []string{
			strconv.Itoa(p.id),
			strconv.Itoa(p.father),
			strconv.FormatFloat(p.age, 'f', -1, 64),
			strconv.FormatFloat(p.theta, 'f', -1, 64),
			strconv.Itoa(p.numSamples),
			strconv.FormatFloat(p.sampleAge, 'f', -1, 64),
			p.name,
		}
		if err := tab.Write(row); err != nil {
			return fmt.Errorf("while writing data: %v", err)
		}
	}

	tab.Flush()
	if err := tab.Error(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	return nil
}

var bandFields = []string{
	"source",
	"target",
	"rate",
}

// ReadBands reads the migration bands of a population tree
// from a TSV file,
// adding them to the tree.
// Band time spans are recomputed after all bands are read.
//
// The TSV must contain the following fields:
//
//   - source, the name of the source population
//   - target, the name of the target population
//   - rate, the migration rate of the band
//
// Here is an example file:
//
//	# migration bands
//	source	target	rate
//	africa	eurasia	2.5
//	eurasia	africa	0.8
func (t *Tree) ReadBands(r io.Reader) error {
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return fmt.Errorf("while reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(h)
		fields[h] = i
	}
	for _, h := range bandFields {
		if _, ok := fields[h]; !ok {
			return fmt.Errorf("expecting field %q", h)
		}
	}

	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return fmt.Errorf("on row %d: %v", ln, err)
		}

		f := "source"
		source, ok := t.PopID(row[fields[f]])
		if !ok {
			return fmt.Errorf("on row %d: field %q: unknown population %q", ln, f, row[fields[f]])
		}

		f = "target"
		target, ok := t.PopID(row[fields[f]])
		if !ok {
			return fmt.Errorf("on row %d: field %q: unknown population %q", ln, f, row[fields[f]])
		}

		f = "rate"
		rate, err := strconv.ParseFloat(row[fields[f]], 64)
		if err != nil {
			return fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		if _, err := t.AddMigBand(source, target, rate); err != nil {
			return fmt.Errorf("on row %d: %v", ln, err)
		}
	}

	t.RecomputeBandTimes()
	return nil
}

// BandsTSV encodes the migration bands of a population tree
// into a TSV file.
func (t *Tree) BandsTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# migration bands\n")
	fmt.Fprintf(bw, "# data save on: %s\n", time.Now().Format(time.RFC3339))

	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = true
	if err := tab.Write(bandFields); err != nil {
		return fmt.Errorf("while writing header: %v", err)
	}

	for _, b := range t.bands {
		row := []string{
			t.pops[b.source].name,
			t.pops[b.target].name,
			strconv.FormatFloat(b.rate, 'f', -1, 64),
		}
		if err := tab.Write(row); err != nil {
			return fmt.Errorf("while writing data: %v", err)
		}
	}

	tab.Flush()
	if err := tab.Error(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while writing data: %v", err)
	}
	return nil
}

// Print writes a human-readable description of the tree
// into w.
func (t *Tree) Print(w io.Writer) {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	fmt.Fprintf(bw, "populations:\n")
	for _, p := range t.pops {
		fmt.Fprintf(bw, "  pop %2d (%s), age [%.6f], theta [%.6f], ", p.id, p.name, p.age, p.theta)
		if p.father < 0 {
			fmt.Fprintf(bw, "ROOT")
		} else {
			fmt.Fprintf(bw, "father (%2d)", p.father)
		}
		if !p.isLeaf() {
			fmt.Fprintf(bw, ", sons (%2d %2d)", p.sons[0], p.sons[1])
		} else {
			fmt.Fprintf(bw, ", samples [%d at %.6f]", p.numSamples, p.sampleAge)
		}
		if len(p.inBands) > 0 {
			fmt.Fprintf(bw, ", incoming bands %v", p.inBands)
		}
		if len(p.outBands) > 0 {
			fmt.Fprintf(bw, ", outgoing bands %v", p.outBands)
		}
		fmt.Fprintf(bw, "\n")
	}

	if len(t.bands) == 0 {
		return
	}
	fmt.Fprintf(bw, "migration bands:\n")
	for _, b := range t.bands {
		fmt.Fprintf(bw, "  band %2d, [%s -> %s], rate [%.6f], times [%.6f - %.6f]\n",
			b.id, t.pops[b.source].name, t.pops[b.target].name, b.rate, b.start, b.end)
	}
}
