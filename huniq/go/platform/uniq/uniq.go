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

// Package uniq implements the huniq engine: a single pass over a stream of
// delimiter-terminated records that either emits each distinct record once,
// in first-seen order (Dedup), or emits each distinct record with its
// occurrence count, optionally sorted by count (Count).
//
// Both entry points process the stream strictly sequentially: every record is
// fully looked up and emitted or accumulated before the next record is read.
package uniq // import "huniq.io/huniq/go/platform/uniq"

import (
	"io"

	"huniq.io/huniq/go/platform/delimited"
	"huniq.io/huniq/go/util/dedup"
	"huniq.io/huniq/go/util/tally"

	"github.com/pkg/errors"
)

// Options configures a single engine pass.
type Options struct {
	// Delimiter is the record-terminating byte.
	Delimiter byte

	// TrailingDelimiter controls whether a final record that reached the end
	// of the stream without a real delimiter has one appended on output.  It
	// only affects Dedup; Count always terminates every record.
	TrailingDelimiter bool

	// BufferSize is the tokenizer's initial buffer capacity in bytes.  If
	// non-positive, a default is chosen.
	BufferSize int

	// HashKey optionally fixes the dedup hash key (dedup.KeySize bytes).  If
	// nil, a random key is drawn per pass.  Fixing the key forfeits
	// hash-flooding resistance; it exists for deterministic tests.
	HashKey []byte
}

// CountOptions configures a counting pass.
type CountOptions struct {
	Options

	// Sort selects the output order of the counted records.
	Sort tally.Direction

	// ExternalSort pages the final sort out to temporary disk shards instead
	// of sorting the distinct records in memory.
	ExternalSort bool

	// MaxInMemory bounds the number of entries kept in memory by an external
	// sort.  If non-positive, a default is chosen.  It has no effect unless
	// ExternalSort is set.
	MaxInMemory int
}

// Stats reports what a pass consumed and decided.
type Stats struct {
	// Records is the total number of input records.
	Records uint64
	// Unique is the number of distinct records.
	Unique uint64
	// Duplicates is the number of suppressed (or merely re-counted)
	// occurrences.
	Duplicates uint64
}

// Dedup copies r to w, dropping every record whose identity has been seen
// earlier in the stream.  First occurrences are written immediately, so
// output order is first-seen order and no buffering beyond the write buffer
// is needed.
func Dedup(r io.Reader, w io.Writer, opts Options) (Stats, error) {
	var stats Stats

	d, err := newDeduper(opts)
	if err != nil {
		return stats, err
	}

	rd := delimited.NewReaderSize(r, opts.Delimiter, opts.BufferSize)
	wr := delimited.NewWriter(w, opts.Delimiter)
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return stats, errors.Wrap(err, "reading input")
		}
		stats.Records++

		// The identity covers the record without its delimiter.
		body := rec[:len(rec)-1]
		if !d.IsUnique(body) {
			continue
		}

		if rd.Padded() && !opts.TrailingDelimiter {
			err = wr.PutRaw(body)
		} else {
			err = wr.Put(body)
		}
		if err != nil {
			return stats, errors.Wrap(err, "writing record")
		}
	}
	if err := wr.Flush(); err != nil {
		return stats, errors.Wrap(err, "flushing output")
	}

	stats.Unique = d.Unique()
	stats.Duplicates = d.Duplicates()
	return stats, nil
}

// Count reads r to exhaustion, counting occurrences of each distinct record,
// then writes every distinct record to w prefixed by its decimal count.  The
// output order is the count table's native iteration order unless opts.Sort
// requests ordering by count.
func Count(r io.Reader, w io.Writer, opts CountOptions) (Stats, error) {
	var stats Stats

	t := tally.New()
	rd := delimited.NewReaderSize(r, opts.Delimiter, opts.BufferSize)
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return stats, errors.Wrap(err, "reading input")
		}
		t.Add(rec[:len(rec)-1])
	}

	stats.Records = t.Total()
	stats.Unique = uint64(t.Distinct())
	stats.Duplicates = stats.Records - stats.Unique

	wr := delimited.NewWriter(w, opts.Delimiter)
	emit := func(e tally.Entry) error {
		return wr.PutCount(e.Count, []byte(e.Record))
	}

	if opts.ExternalSort {
		if err := t.ReadSorted(opts.Sort, opts.MaxInMemory, emit); err != nil {
			return stats, errors.Wrap(err, "writing counts")
		}
	} else {
		for _, e := range t.Entries(opts.Sort) {
			if err := emit(e); err != nil {
				return stats, errors.Wrap(err, "writing counts")
			}
		}
	}
	if err := wr.Flush(); err != nil {
		return stats, errors.Wrap(err, "flushing output")
	}
	return stats, nil
}

func newDeduper(opts Options) (*dedup.Deduper, error) {
	if opts.HashKey != nil {
		return dedup.NewKeyed(opts.HashKey)
	}
	return dedup.New()
}
