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

package tally

import (
	"fmt"
	"testing"

	"bitbucket.org/creachadair/stringset"
	"github.com/google/go-cmp/cmp"
)

func addAll(t *Tally, recs ...string) {
	for _, r := range recs {
		t.Add([]byte(r))
	}
}

func TestCounts(t *testing.T) {
	ta := New()
	addAll(ta, "a", "b", "a", "c", "a", "b")

	if got, want := ta.Total(), uint64(6); got != want {
		t.Errorf("Total(): got %d, want %d", got, want)
	}
	if got, want := ta.Distinct(), 3; got != want {
		t.Errorf("Distinct(): got %d, want %d", got, want)
	}

	want := map[string]uint64{"a": 3, "b": 2, "c": 1}
	got := make(map[string]uint64)
	var sum uint64
	for _, e := range ta.Entries(Unsorted) {
		got[e.Record] = e.Count
		sum += e.Count
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
	if sum != ta.Total() {
		t.Errorf("sum of counts: got %d, want %d", sum, ta.Total())
	}
}

func TestSortedEntries(t *testing.T) {
	ta := New()
	addAll(ta, "a", "a", "a", "b", "b", "c")

	asc := ta.Entries(Ascending)
	wantAsc := []Entry{{"c", 1}, {"b", 2}, {"a", 3}}
	if diff := cmp.Diff(wantAsc, asc); diff != "" {
		t.Errorf("ascending entries (-want +got):\n%s", diff)
	}

	desc := ta.Entries(Descending)
	wantDesc := []Entry{{"a", 3}, {"b", 2}, {"c", 1}}
	if diff := cmp.Diff(wantDesc, desc); diff != "" {
		t.Errorf("descending entries (-want +got):\n%s", diff)
	}
}

func TestSortIsTotalByCount(t *testing.T) {
	ta := New()
	for i := 0; i < 100; i++ {
		// record-i occurs i%7+1 times, so many counts collide.
		for j := 0; j <= i%7; j++ {
			ta.Add([]byte(fmt.Sprintf("record-%d", i)))
		}
	}

	prev := uint64(0)
	for _, e := range ta.Entries(Ascending) {
		if e.Count < prev {
			t.Fatalf("ascending order violated: %d after %d", e.Count, prev)
		}
		prev = e.Count
	}

	prev = 1 << 63
	for _, e := range ta.Entries(Descending) {
		if e.Count > prev {
			t.Fatalf("descending order violated: %d after %d", e.Count, prev)
		}
		prev = e.Count
	}
}

func TestReadSorted(t *testing.T) {
	ta := New()
	addAll(ta, "a", "a", "a", "b", "b", "c")

	for _, maxInMemory := range []int{0, 1, 2, 100} {
		var got []Entry
		if err := ta.ReadSorted(Ascending, maxInMemory, func(e Entry) error {
			got = append(got, e)
			return nil
		}); err != nil {
			t.Fatalf("ReadSorted (maxInMemory=%d): %v", maxInMemory, err)
		}

		want := []Entry{{"c", 1}, {"b", 2}, {"a", 3}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ReadSorted (maxInMemory=%d) entries (-want +got):\n%s", maxInMemory, diff)
		}
	}
}

func TestReadSortedUnsorted(t *testing.T) {
	ta := New()
	addAll(ta, "a", "b", "a")

	want := stringset.New("a", "b")
	got := stringset.New()
	if err := ta.ReadSorted(Unsorted, 0, func(e Entry) error {
		got.Add(e.Record)
		return nil
	}); err != nil {
		t.Fatalf("ReadSorted: %v", err)
	}
	if !got.Equals(want) {
		t.Errorf("ReadSorted records: got %v, want %v", got, want)
	}
}

func TestEntryMarshaler(t *testing.T) {
	m := entryMarshaler{}
	for _, e := range []Entry{{"", 0}, {"a", 1}, {"line with spaces", 1 << 40}} {
		rec, err := m.Marshal(e)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", e, err)
		}
		back, err := m.Unmarshal(rec)
		if err != nil {
			t.Fatalf("Unmarshal(%v): %v", e, err)
		}
		if diff := cmp.Diff(e, back.(Entry)); diff != "" {
			t.Errorf("round trip (-want +got):\n%s", diff)
		}
	}
}
