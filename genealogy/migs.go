// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package genealogy

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/js-arias/coalmig/poptree"
)

// Migs is an in-memory table of migration events,
// kept per gene tree branch
// in increasing age order.
// It implements the MigStream interface.
type Migs struct {
	events []MigEvent
	byNode map[int][]int
}

// NewMigs returns an empty migration event table.
func NewMigs() *Migs {
	return &Migs{
		byNode: make(map[int][]int),
	}
}

// Add adds a migration event to the table.
// It returns the ID of the added event.
func (m *Migs) Add(ev MigEvent) int {
	id := len(m.events)
	m.events = append(m.events, ev)

	ls := m.byNode[ev.Node]
	pos, _ := slices.BinarySearchFunc(ls, ev.Age, func(id int, age float64) int {
		if m.events[id].Age < age {
			return -1
		}
		if m.events[id].Age > age {
			return 1
		}
		return 0
	})
	m.byNode[ev.Node] = slices.Insert(ls, pos, id)
	return id
}

// FirstMig returns the ID of the first migration event
// on the branch above the indicated node
// with an age greater than afterAge,
// or -1 if there is none.
func (m *Migs) FirstMig(node int, afterAge float64) int {
	for _, id := range m.byNode[node] {
		if m.events[id].Age > afterAge {
			return id
		}
	}
	return -1
}

// Mig returns the migration event with the indicated ID.
func (m *Migs) Mig(id int) MigEvent {
	return m.events[id]
}

// Len returns the number of events in the table.
func (m *Migs) Len() int {
	return len(m.events)
}

var migFields = []string{
	"tree",
	"node",
	"age",
	"source",
	"target",
}

// ReadMigs reads the migration event tables
// of one or more loci
// from a TSV file,
// resolving population names
// against the indicated population tree.
// It returns the tables
// keyed by gene tree name.
//
// The TSV must contain the following fields:
//
//   - tree, the name of the gene tree of the locus
//   - node, the gene tree node below the event
//   - age, the age of the event
//   - source, the name of the source population
//   - target, the name of the target population
//
// Here is an example file:
//
//	# migration events
//	tree	node	age	source	target
//	locus-1	0	0.3	eurasia	africa
func ReadMigs(r io.Reader, pt *poptree.Tree) (map[string]*Migs, error) {
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
	for _, h := range migFields {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	coll := make(map[string]*Migs)
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		f := "tree"
		name := strings.ToLower(strings.Join(strings.Fields(row[fields[f]]), " "))
		if name == "" {
			continue
		}
		m, ok := coll[name]
		if !ok {
			m = NewMigs()
			coll[name] = m
		}

		f = "node"
		node, err := strconv.Atoi(row[fields[f]])
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		f = "age"
		age, err := strconv.ParseFloat(row[fields[f]], 64)
		if err != nil {
			return nil, fmt.Errorf("on row %d: field %q: %v", ln, f, err)
		}

		f = "source"
		source, ok := pt.PopID(row[fields[f]])
		if !ok {
			return nil, fmt.Errorf("on row %d: field %q: unknown population %q", ln, f, row[fields[f]])
		}

		f = "target"
		target, ok := pt.PopID(row[fields[f]])
		if !ok {
			return nil, fmt.Errorf("on row %d: field %q: unknown population %q", ln, f, row[fields[f]])
		}

		m.Add(MigEvent{
			Node:   node,
			Age:    age,
			Source: source,
			Target: target,
		})
	}
	return coll, nil
}

// WriteMigs encodes the migration event tables
// of one or more loci
// into a TSV file.
func WriteMigs(w io.Writer, pt *poptree.Tree, coll map[string]*Migs) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# migration events\n")
	fmt.Fprintf(bw, "# data save on: %s\n", time.Now().Format(time.RFC3339))

	tab := csv.NewWriter(bw)
	tab.Comma = '\t'
	tab.UseCRLF = true
	if err := tab.Write(migFields); err != nil {
		return fmt.Errorf("while writing header: %v", err)
	}

	names := make([]string, 0, len(coll))
	for name := range coll {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		for _, ev := range coll[name].events {
			row := []string{
				name,
				strconv.Itoa(ev.Node),
				strconv.FormatFloat(ev.Age, 'f', -1, 64),
				pt.PopName(ev.Source),
				pt.PopName(ev.Target),
			}
			if err := tab.Write(row); err != nil {
				return fmt.Errorf("while writing data: %v", err)
			}
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
