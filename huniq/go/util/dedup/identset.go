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

package dedup

// identSet is an open-addressed, linear-probed set of 64-bit record
// identities.  The stored values are already uniformly distributed hashes, so
// slots are indexed directly with id&mask rather than hashing a second time.
//
// Zero marks an empty slot; the zero identity itself is tracked out of band.
type identSet struct {
	slots []uint64
	mask  uint64
	n     int  // occupied slots, excluding the zero identity
	zero  bool // whether the zero identity is present
}

const minTableSize = 1 << 10 // slots; must be a power of two

// insert adds id to the set, reporting whether it was not already present.
func (s *identSet) insert(id uint64) bool {
	if id == 0 {
		if s.zero {
			return false
		}
		s.zero = true
		return true
	}

	if s.slots == nil {
		s.slots = make([]uint64, minTableSize)
		s.mask = minTableSize - 1
	} else if s.n >= len(s.slots)-len(s.slots)/4 {
		// Keep the load factor at or below 3/4.
		s.grow()
	}

	for i := id & s.mask; ; i = (i + 1) & s.mask {
		switch s.slots[i] {
		case 0:
			s.slots[i] = id
			s.n++
			return true
		case id:
			return false
		}
	}
}

// contains reports whether id is present in the set.
func (s *identSet) contains(id uint64) bool {
	if id == 0 {
		return s.zero
	}
	if s.slots == nil {
		return false
	}
	for i := id & s.mask; ; i = (i + 1) & s.mask {
		switch s.slots[i] {
		case 0:
			return false
		case id:
			return true
		}
	}
}

// len returns the number of identities in the set.
func (s *identSet) len() int {
	if s.zero {
		return s.n + 1
	}
	return s.n
}

func (s *identSet) grow() {
	old := s.slots
	s.slots = make([]uint64, 2*len(old))
	s.mask = uint64(len(s.slots) - 1)
	for _, id := range old {
		if id == 0 {
			continue
		}
		for i := id & s.mask; ; i = (i + 1) & s.mask {
			if s.slots[i] == 0 {
				s.slots[i] = id
				break
			}
		}
	}
}
