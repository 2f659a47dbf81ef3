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
	"encoding/binary"
	"fmt"
)

// entryMarshaler encodes an Entry as its varint count followed by the raw
// record bytes, for paging through disk shards.
type entryMarshaler struct{}

// Marshal implements part of the disksort.Marshaler interface.
func (entryMarshaler) Marshal(i any) ([]byte, error) {
	e, ok := i.(Entry)
	if !ok {
		return nil, fmt.Errorf("unexpected element type: %T", i)
	}
	buf := make([]byte, binary.MaxVarintLen64+len(e.Record))
	n := binary.PutUvarint(buf, e.Count)
	n += copy(buf[n:], e.Record)
	return buf[:n], nil
}

// Unmarshal implements part of the disksort.Marshaler interface.
func (entryMarshaler) Unmarshal(rec []byte) (any, error) {
	count, n := binary.Uvarint(rec)
	if n <= 0 {
		return nil, fmt.Errorf("invalid entry encoding: bad count varint")
	}
	return Entry{Record: string(rec[n:]), Count: count}, nil
}
