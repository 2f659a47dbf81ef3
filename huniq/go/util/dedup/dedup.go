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

// Package dedup implements a utility to determine if a record has not been
// seen before (whether it's unique).
//
// Each record is reduced to a keyed 64-bit hash of its bytes.  The hash key is
// drawn from a cryptographically secure source once per Deduper so that
// adversarial input cannot be crafted offline to collide.  Only the 64-bit
// identity is retained per distinct record; two distinct records hashing to
// the same identity are indistinguishable, with probability on the order of
// n^2/2^65 for n distinct records.
package dedup // import "huniq.io/huniq/go/util/dedup"

import (
	"crypto/rand"
	"fmt"

	"github.com/minio/highwayhash"
)

// KeySize is the size in bytes of a Deduper's hash key.
const KeySize = 32

// Deduper determines if a data record has been seen before by checking its
// set of record identity hashes.
type Deduper struct {
	key  [KeySize]byte
	seen identSet

	duplicates, unique uint64
}

// New returns a new Deduper whose hash key is read from crypto/rand.
func New() (*Deduper, error) {
	var key [KeySize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("error generating hash key: %v", err)
	}
	return NewKeyed(key[:])
}

// NewKeyed returns a new Deduper using the given hash key.  The key must be
// exactly KeySize bytes.  Most callers should use New; NewKeyed exists for
// tests that need deterministic identities.
func NewKeyed(key []byte) (*Deduper, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid hash key size: %d (must be %d)", len(key), KeySize)
	}
	d := &Deduper{}
	copy(d.key[:], key)
	return d, nil
}

// Identity returns the keyed 64-bit hash of the given record.
func (d *Deduper) Identity(data []byte) uint64 {
	return highwayhash.Sum64(data, d.key[:])
}

// IsUnique determines if the given data record has not been seen before.
func (d *Deduper) IsUnique(data []byte) bool {
	if d == nil {
		return true
	}

	if d.seen.insert(d.Identity(data)) {
		d.unique++
		return true
	}
	d.duplicates++
	return false
}

// Unique returns the number of unique records seen so far.
func (d *Deduper) Unique() uint64 {
	if d == nil {
		return 0
	}
	return d.unique
}

// Duplicates returns the number of duplicate records seen so far.
func (d *Deduper) Duplicates() uint64 {
	if d == nil {
		return 0
	}
	return d.duplicates
}
