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

// Package codec wraps raw byte streams with the compression formats accepted
// by the huniq tool's --read_format and --write_format flags.
package codec // import "huniq.io/huniq/go/platform/codec"

import (
	"io"

	"bitbucket.org/creachadair/stringset"
	"github.com/DataDog/zstd"
	"github.com/golang/snappy"
	"github.com/google/brotli/go/cbrotli"
	"github.com/pkg/errors"
)

// Accepted stream format names.
const (
	Raw    = "raw"
	Snappy = "snappy"
	Zstd   = "zstd"
	Brotli = "brotli"
)

// Formats is the set of accepted stream format names.
var Formats = stringset.New(Raw, Snappy, Zstd, Brotli)

// NewReader returns a reader decoding the given format from r.  For Raw, r is
// passed through unchanged.
func NewReader(r io.Reader, format string) (io.ReadCloser, error) {
	switch format {
	case Raw:
		return io.NopCloser(r), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case Zstd:
		return zstd.NewReader(r), nil
	case Brotli:
		return cbrotli.NewReader(r), nil
	default:
		return nil, errors.Errorf("unsupported stream format: %q", format)
	}
}

// NewWriter returns a writer encoding the given format to w.  For Raw, w is
// passed through unchanged.  The returned writer must be closed to flush any
// partial block, though closing it does not close w.
func NewWriter(w io.Writer, format string) (io.WriteCloser, error) {
	switch format {
	case Raw:
		return nopWriteCloser{w}, nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case Zstd:
		return zstd.NewWriter(w), nil
	case Brotli:
		return cbrotli.NewWriter(w, cbrotli.WriterOptions{Quality: 5}), nil
	default:
		return nil, errors.Errorf("unsupported stream format: %q", format)
	}
}

type nopWriteCloser struct{ io.Writer }

// Close implements the io.Closer interface.  It is a no-op.
func (nopWriteCloser) Close() error { return nil }
