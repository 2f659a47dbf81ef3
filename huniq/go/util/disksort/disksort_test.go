/*
 * Copyright 2020 The Huniq Authors. All rights reserved.
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

package disksort

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"huniq.io/huniq/go/util/sortutil"

	"github.com/google/go-cmp/cmp"
)

var numLesser = sortutil.LesserFunc(func(a, b any) bool { return a.(uint64) < b.(uint64) })

type numMarshaler struct{}

func (numMarshaler) Marshal(i any) ([]byte, error) {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, i.(uint64))
	return buf, nil
}

func (numMarshaler) Unmarshal(rec []byte) (any, error) {
	if len(rec) != 8 {
		return nil, fmt.Errorf("invalid record size: %d", len(rec))
	}
	return binary.BigEndian.Uint64(rec), nil
}

func TestMissingOptions(t *testing.T) {
	if _, err := NewMergeSorter(MergeOptions{Marshaler: numMarshaler{}}); err == nil {
		t.Error("Unexpected success of NewMergeSorter without Lesser")
	}
	if _, err := NewMergeSorter(MergeOptions{Lesser: numLesser}); err == nil {
		t.Error("Unexpected success of NewMergeSorter without Marshaler")
	}
}

func testSort(t *testing.T, maxInMemory int, compress bool, n int) {
	t.Helper()
	sorter, err := NewMergeSorter(MergeOptions{
		Lesser:         numLesser,
		Marshaler:      numMarshaler{},
		MaxInMemory:    maxInMemory,
		CompressShards: compress,
	})
	if err != nil {
		t.Fatalf("Error creating sorter: %v", err)
	}

	rnd := rand.New(rand.NewSource(79))
	var want []uint64
	for i := 0; i < n; i++ {
		want = append(want, rnd.Uint64())
		if err := sorter.Add(want[i]); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	var got []uint64
	if err := sorter.Read(func(i any) error {
		got = append(got, i.(uint64))
		return nil
	}); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sorted elements (-want +got):\n%s", diff)
	}

	if err := sorter.Add(uint64(0)); err != ErrAlreadyFinalized {
		t.Errorf("Add after Read: got %v, want %v", err, ErrAlreadyFinalized)
	}
}

func TestInMemorySort(t *testing.T) { testSort(t, 0, false, 1000) }

func TestShardedSort(t *testing.T) { testSort(t, 16, false, 1000) }

func TestCompressedShardedSort(t *testing.T) { testSort(t, 16, true, 1000) }

func TestSingleElement(t *testing.T) { testSort(t, 16, true, 1) }

func TestEmptySort(t *testing.T) { testSort(t, 16, true, 0) }
