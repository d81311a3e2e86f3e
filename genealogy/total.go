// Copyright © 2026 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package genealogy

import "sync"

// A Total is the process-wide accumulator
// of the statistics of every locus.
// Loci are processed independently,
// so commits into the totals
// are the only operation
// that must be synchronized.
type Total struct {
	mu    sync.Mutex
	stats Stats
}

// NewTotal returns an empty accumulator
// for the indicated number of populations
// and migration bands.
func NewTotal(numPops, numBands int) *Total {
	return &Total{
		stats: NewStats(numPops, numBands),
	}
}

// Add commits a statistics delta into the totals.
func (t *Total) Add(d Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Add(d)
}

// Stats returns a copy of the accumulated totals.
func (t *Total) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats.Clone()
}
