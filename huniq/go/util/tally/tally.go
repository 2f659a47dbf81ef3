/*
 * Copyright 2019 The Huniq Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package tally implements an occurrence counter for byte records.
//
// Unlike the identity set in huniq.io/huniq/go/util/dedup, a Tally retains
// the full bytes of every distinct record: the records themselves must be
// reproduced on output, so a hash alone is insufficient.
package tally // import "huniq.io/huniq/go/util/tally"

import (
	"huniq.io/huniq/go/util/disksort"
	"huniq.io/huniq/go/util/sortutil"

	"github.com/pkg/errors"
)

// Direction selects the output order of a Tally's entries.
type Direction int

const (
	// Unsorted emits entries in the count table's native iteration order.
	Unsorted Direction = iota
	// Ascending emits entries ordered by increasing count.
	Ascending
	// Descending emits entries ordered by decreasing count.
	Descending
)

// An Entry is a distinct record and the number of times it was added.
type Entry struct {
	Record string
	Count  uint64
}

// Tally counts occurrences of distinct byte records.
type Tally struct {
	counts map[string]uint64
	total  uint64
}

// New returns a new, empty Tally.
func New() *Tally {
	return &Tally{counts: make(map[string]uint64)}
}

// Add records one occurrence of rec.  The bytes are copied; the caller may
// reuse rec afterwards.
func (t *Tally) Add(rec []byte) {
	t.counts[string(rec)]++
	t.total++
}

// Total returns the number of records added, counting duplicates.
func (t *Tally) Total() uint64 { return t.total }

// Distinct returns the number of distinct records added.
func (t *Tally) Distinct() int { return len(t.counts) }

// Entries materializes the distinct records with their counts.  For Ascending
// and Descending the result is ordered by count only; entries with equal
// counts keep the relative order produced by the count table's iteration,
// which is not guaranteed to be stable across runs.
func (t *Tally) Entries(dir Direction) []Entry {
	es := make([]any, 0, len(t.counts))
	for rec, n := range t.counts {
		es = append(es, Entry{Record: rec, Count: n})
	}
	if less := lesser(dir); less != nil {
		sortutil.Stable(less, es)
	}

	out := make([]Entry, len(es))
	for i, e := range es {
		out[i] = e.(Entry)
	}
	return out
}

// ReadSorted calls f on each distinct entry in the order given by dir, paging
// the sort out to temporary disk shards once maxInMemory entries accumulate.
// If f returns an error, it is returned immediately and f is no longer
// called.
func (t *Tally) ReadSorted(dir Direction, maxInMemory int, f func(Entry) error) error {
	if dir == Unsorted {
		for rec, n := range t.counts {
			if err := f(Entry{Record: rec, Count: n}); err != nil {
				return err
			}
		}
		return nil
	}

	sorter, err := disksort.NewMergeSorter(disksort.MergeOptions{
		Name:           "huniq.count.sort",
		Lesser:         lesser(dir),
		Marshaler:      entryMarshaler{},
		MaxInMemory:    maxInMemory,
		CompressShards: true,
	})
	if err != nil {
		return errors.Wrap(err, "creating external sorter")
	}
	for rec, n := range t.counts {
		if err := sorter.Add(Entry{Record: rec, Count: n}); err != nil {
			return errors.Wrap(err, "adding entry to external sorter")
		}
	}
	return sorter.Read(func(i any) error { return f(i.(Entry)) })
}

func lesser(dir Direction) sortutil.Lesser {
	switch dir {
	case Ascending:
		return sortutil.LesserFunc(func(a, b any) bool {
			return a.(Entry).Count < b.(Entry).Count
		})
	case Descending:
		return sortutil.LesserFunc(func(a, b any) bool {
			return a.(Entry).Count > b.(Entry).Count
		})
	default:
		return nil
	}
}
