// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package genealogy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var sampleFields = []string{
	"taxon",
	"population",
}

// ReadSamples reads the assignment of sampled taxa
// to current populations
// from a TSV file.
//
// The TSV must contain the following fields:
//
//   - taxon, the name of the sampled taxon
//   - population, the name of its population
//
// Here is an example file:
//
//	# sample assignments
//	taxon	population
//	homo sapiens africa 1	africa
//	homo sapiens europe 1	eurasia
func ReadSamples(r io.Reader) (map[string]string, error) {
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
	for _, h := range sampleFields {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	samples := make(map[string]string)
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		tax := canonTaxon(row[fields["taxon"]])
		if tax == "" {
			continue
		}
		pop := strings.TrimSpace(row[fields["population"]])
		if pop == "" {
			return nil, fmt.Errorf("on row %d: taxon %s: %w", ln, tax, ErrNoSample)
		}
		samples[tax] = pop
	}
	return samples, nil
}
