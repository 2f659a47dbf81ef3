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

// Package datasize implements a type representing data sizes in bytes.
package datasize // import "huniq.io/huniq/go/util/datasize"

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// Size represents the size of data in bytes.
type Size uint64

// Common data sizes
const (
	Byte Size = 1

	Kibibyte = 1024 * Byte
	Mebibyte = 1024 * Kibibyte
	Gibibyte = 1024 * Mebibyte

	Kilobyte = 1000 * Byte
	Megabyte = 1000 * Kilobyte
	Gigabyte = 1000 * Megabyte
)

// Parse parses a Size from a string.  A Size is an unsigned decimal number
// with an optional unit suffix.  Examples: "0", "4096", "32KiB", "1MB".
// Valid units are "B", "kB", "MB", "GB", "KiB", "MiB", and "GiB".
func Parse(s string) (Size, error) {
	if s == "" {
		return 0, errors.New("datasize: invalid Size: empty")
	}

	digits := len(s)
	for i, r := range s {
		if r < '0' || r > '9' {
			digits = i
			break
		}
	}
	if digits == 0 {
		return 0, fmt.Errorf("datasize: invalid Size format %q", s)
	}

	num, err := strconv.ParseUint(s[:digits], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("datasize: invalid Size format %q: %v", s, err)
	}
	unit, err := suffixSize(s[digits:])
	if err != nil {
		return 0, err
	}
	return Size(num) * unit, nil
}

func suffixSize(suffix string) (Size, error) {
	switch strings.ToLower(suffix) {
	case "", "b":
		return Byte, nil
	case "kb":
		return Kilobyte, nil
	case "mb":
		return Megabyte, nil
	case "gb":
		return Gigabyte, nil
	case "kib":
		return Kibibyte, nil
	case "mib":
		return Mebibyte, nil
	case "gib":
		return Gibibyte, nil
	default:
		return 0, fmt.Errorf("unknown datasize unit suffix: %q", suffix)
	}
}

// Bytes returns s as a number of bytes.
func (s Size) Bytes() uint64 { return uint64(s) }

// String implements the fmt.Stringer interface.
func (s Size) String() string {
	for _, unit := range []struct {
		size   Size
		suffix string
	}{{Gibibyte, "GiB"}, {Mebibyte, "MiB"}, {Kibibyte, "KiB"}} {
		if s >= unit.size && s%unit.size == 0 {
			return fmt.Sprintf("%d%s", uint64(s/unit.size), unit.suffix)
		}
	}
	return fmt.Sprintf("%dB", uint64(s))
}

type sizeFlag struct{ *Size }

// Flag defines a Size flag with specified name, default value, and usage
// string.
func Flag(name, value, description string) *Size {
	sz, err := Parse(value)
	if err != nil {
		panic(fmt.Sprintf("Invalid default Size value for flag --%q: %q", name, value))
	}
	return FlagVar(flag.CommandLine, &sz, name, sz, description)
}

// FlagVar defines a Size flag with specified name, default value, and usage
// string into the provided FlagSet.
func FlagVar(fs *flag.FlagSet, s *Size, name string, value Size, description string) *Size {
	*s = value
	f := &sizeFlag{s}
	fs.Var(f, name, description)
	return f.Size
}

// Get implements part of the flag.Getter interface.
func (f *sizeFlag) Get() any { return *f.Size }

// Set implements part of the flag.Value interface.
func (f *sizeFlag) Set(s string) error {
	sz, err := Parse(s)
	if err != nil {
		return err
	}
	*f.Size = sz
	return nil
}
