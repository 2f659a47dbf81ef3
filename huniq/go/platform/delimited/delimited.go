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

// Package delimited implements a reader and writer for streams of records
// terminated by a single delimiter byte, typically newline-delimited text.
//
// Unlike line-oriented buffered readers that copy every record into a fresh
// allocation, the Reader hands out slices of one reusable buffer.  The only
// bytes ever moved are the unterminated tail of the buffer, which is copied
// back to the buffer's start before each refill.
package delimited // import "huniq.io/huniq/go/platform/delimited"

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"syscall"
)

// initialBufferSize is the default Reader buffer capacity: a small multiple
// of the common 4KiB memory page, large enough to amortize read syscalls
// while keeping typical records inside a single buffer.
const initialBufferSize = 8 * 4096

// Reader consumes delimiter-terminated records from a byte source.
//
// Usage:
//
//	rd := delimited.NewReader(r, '\n')
//	for {
//	  rec, err := rd.Next()
//	  if err == io.EOF {
//	    break
//	  } else if err != nil {
//	    log.Fatal(err)
//	  }
//	  doStuffWith(rec)
//	}
//
// Each record includes its terminating delimiter byte.  If the stream ends
// without a final delimiter, one is synthesized so that the remaining bytes
// still form a complete record; Padded reports when this happened.
type Reader struct {
	src   io.Reader
	delim byte

	buf     []byte
	pos     int // start of the first unconsumed byte in buf
	used    int // end of valid data in buf
	scanned int // bytes past pos already scanned for a delimiter

	eof    bool
	padded bool
}

// NewReader constructs a new Reader for the records in r, terminated by the
// delimiter byte delim.
func NewReader(r io.Reader, delim byte) *Reader {
	return NewReaderSize(r, delim, initialBufferSize)
}

// NewReaderSize is like NewReader but uses an initial buffer capacity of size
// bytes.  Records longer than the buffer are still handled; the buffer grows
// as needed.
func NewReaderSize(r io.Reader, delim byte, size int) *Reader {
	if size < 1 {
		size = initialBufferSize
	}
	return &Reader{src: r, delim: delim, buf: make([]byte, size)}
}

// Next returns the next delimiter-terminated record from the input, or io.EOF
// if there are no more records available.  The record includes its trailing
// delimiter byte.
//
// The slice returned is valid only until a subsequent call to Next.
func (r *Reader) Next() ([]byte, error) {
	for {
		if i := bytes.IndexByte(r.buf[r.pos+r.scanned:r.used], r.delim); i >= 0 {
			end := r.pos + r.scanned + i + 1
			rec := r.buf[r.pos:end]
			r.pos = end
			r.scanned = 0
			return rec, nil
		}
		r.scanned = r.used - r.pos

		if r.eof {
			if r.pos == r.used {
				return nil, io.EOF
			}
			// The stream ended mid-record: synthesize the delimiter.
			if r.used == len(r.buf) {
				r.buf = append(r.buf, r.delim)
			} else {
				r.buf[r.used] = r.delim
			}
			r.used++
			r.padded = true
			continue
		}

		if err := r.fill(); err != nil {
			return nil, err
		}
	}
}

// Padded reports whether the most recently returned record's delimiter was
// synthesized because the stream ended without one.  Only the final record of
// a stream can be padded.
func (r *Reader) Padded() bool { return r.padded }

// fill compacts the unconsumed tail to the buffer's start and reads more data
// into the free space, growing the buffer if a single record has filled it.
func (r *Reader) fill() error {
	if r.pos > 0 {
		r.used = copy(r.buf, r.buf[r.pos:r.used])
		r.pos = 0
	}
	if r.used == len(r.buf) {
		grown := make([]byte, 2*len(r.buf))
		copy(grown, r.buf[:r.used])
		r.buf = grown
	}

	for {
		n, err := r.src.Read(r.buf[r.used:])
		r.used += n
		switch {
		case err == io.EOF:
			r.eof = true
			return nil
		case errors.Is(err, syscall.EINTR):
			// Interrupted reads are transient; retry.
			continue
		case err != nil:
			return err
		case n > 0:
			return nil
		}
	}
}

// A Writer outputs delimited records to an io.Writer through an internal
// buffer.  Flush must be called after the last record is written.
type Writer struct {
	w     *bufio.Writer
	delim byte
}

// NewWriter constructs a new Writer that writes records to w, each terminated
// by the delimiter byte delim.
func NewWriter(w io.Writer, delim byte) *Writer {
	return &Writer{w: bufio.NewWriter(w), delim: delim}
}

// Put writes the specified record to the writer, followed by the delimiter.
func (w *Writer) Put(record []byte) error {
	if _, err := w.w.Write(record); err != nil {
		return err
	}
	return w.w.WriteByte(w.delim)
}

// PutRaw writes the specified record to the writer with no delimiter.
func (w *Writer) PutRaw(record []byte) error {
	_, err := w.w.Write(record)
	return err
}

// PutCount writes the specified record prefixed by its decimal count and a
// single space, followed by the delimiter.
func (w *Writer) PutCount(count uint64, record []byte) error {
	var num [20]byte
	prefix := strconv.AppendUint(num[:0], count, 10)
	if _, err := w.w.Write(prefix); err != nil {
		return err
	}
	if err := w.w.WriteByte(' '); err != nil {
		return err
	}
	return w.Put(record)
}

// Flush writes any buffered records to the underlying io.Writer.
func (w *Writer) Flush() error { return w.w.Flush() }
