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

package delimited

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func readAll(t *testing.T, rd *Reader) []string {
	t.Helper()
	var recs []string
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			return recs
		} else if err != nil {
			t.Fatalf("Unexpected read error: %v", err)
		}
		recs = append(recs, string(rec))
	}
}

func TestReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		delim byte
		want  []string
	}{
		{"empty", "", '\n', nil},
		{"single", "a\n", '\n', []string{"a\n"}},
		{"multiple", "a\nb\nc\n", '\n', []string{"a\n", "b\n", "c\n"}},
		{"empty records", "\n\na\n", '\n', []string{"\n", "\n", "a\n"}},
		{"no trailing delimiter", "a\nb", '\n', []string{"a\n", "b\n"}},
		{"only unterminated", "abc", '\n', []string{"abc\n"}},
		{"nul delimiter", "a\x00b\x00", 0, []string{"a\x00", "b\x00"}},
		{"newlines inside nul records", "a\nb\x00c\x00", 0, []string{"a\nb\x00", "c\x00"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rd := NewReader(strings.NewReader(test.input), test.delim)
			if diff := cmp.Diff(test.want, readAll(t, rd)); diff != "" {
				t.Errorf("records (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReaderPadded(t *testing.T) {
	rd := NewReader(strings.NewReader("a\nb"), '\n')

	rec, err := rd.Next()
	if err != nil {
		t.Fatalf("Unexpected read error: %v", err)
	}
	if string(rec) != "a\n" || rd.Padded() {
		t.Errorf("Next record: got %q (padded=%v), want %q (padded=false)", rec, rd.Padded(), "a\n")
	}

	rec, err = rd.Next()
	if err != nil {
		t.Fatalf("Unexpected read error: %v", err)
	}
	if string(rec) != "b\n" || !rd.Padded() {
		t.Errorf("Next record: got %q (padded=%v), want %q (padded=true)", rec, rd.Padded(), "b\n")
	}

	if got, err := rd.Next(); err != io.EOF {
		t.Errorf("Next record: got %q [%v], want EOF", string(got), err)
	}
}

func TestReaderLongRecord(t *testing.T) {
	// A record much larger than the initial buffer forces compaction and
	// repeated growth.
	long := strings.Repeat("x", 1000)
	input := "short\n" + long + "\n" + "tail\n"

	rd := NewReaderSize(strings.NewReader(input), '\n', 4)
	want := []string{"short\n", long + "\n", "tail\n"}
	if diff := cmp.Diff(want, readAll(t, rd)); diff != "" {
		t.Errorf("records (-want +got):\n%s", diff)
	}
}

func TestReaderLongUnterminatedRecord(t *testing.T) {
	// The synthesized delimiter must fit even when the record exactly fills
	// the buffer.
	rd := NewReaderSize(strings.NewReader("abcd"), '\n', 4)
	want := []string{"abcd\n"}
	if diff := cmp.Diff(want, readAll(t, rd)); diff != "" {
		t.Errorf("records (-want +got):\n%s", diff)
	}
	if !rd.Padded() {
		t.Error("Padded: got false, want true")
	}
}

// chunkReader returns its data in fixed-size chunks, exercising partial
// reads.
type chunkReader struct {
	data []byte
	n    int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.n
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func TestReaderPartialReads(t *testing.T) {
	rd := NewReader(&chunkReader{data: []byte("aa\nbb\ncc\n"), n: 2}, '\n')
	want := []string{"aa\n", "bb\n", "cc\n"}
	if diff := cmp.Diff(want, readAll(t, rd)); diff != "" {
		t.Errorf("records (-want +got):\n%s", diff)
	}
}

// eintrReader fails with EINTR a fixed number of times before delegating to
// the underlying reader.
type eintrReader struct {
	r     io.Reader
	fails int
}

func (e *eintrReader) Read(p []byte) (int, error) {
	if e.fails > 0 {
		e.fails--
		return 0, syscall.EINTR
	}
	return e.r.Read(p)
}

func TestReaderRetriesEINTR(t *testing.T) {
	rd := NewReader(&eintrReader{r: strings.NewReader("a\nb\n"), fails: 3}, '\n')
	want := []string{"a\n", "b\n"}
	if diff := cmp.Diff(want, readAll(t, rd)); diff != "" {
		t.Errorf("records (-want +got):\n%s", diff)
	}
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func TestBadReader(t *testing.T) {
	bad := errors.New("FAIL")
	rd := NewReader(errReader{err: bad}, '\n')

	if got, err := rd.Next(); !errors.Is(err, bad) {
		t.Fatalf("Next record: got %q [%v], want error %v", string(got), err, bad)
	}
}

func TestGoodWriter(t *testing.T) {
	var buf bytes.Buffer
	wr := NewWriter(&buf, '\n')

	for _, record := range []string{"", "A", "BC", "DEF"} {
		if err := wr.Put([]byte(record)); err != nil {
			t.Errorf("Put %q: unexpected error: %v", record, err)
		}
	}
	if err := wr.PutRaw([]byte("tail")); err != nil {
		t.Errorf("PutRaw: unexpected error: %v", err)
	}
	if err := wr.Flush(); err != nil {
		t.Errorf("Flush: unexpected error: %v", err)
	}

	const want = "\nA\nBC\nDEF\ntail"
	if got := buf.String(); got != want {
		t.Errorf("Writer result: got %q, want %q", got, want)
	}
}

func TestPutCount(t *testing.T) {
	var buf bytes.Buffer
	wr := NewWriter(&buf, '\n')

	if err := wr.PutCount(2, []byte("a")); err != nil {
		t.Errorf("PutCount: unexpected error: %v", err)
	}
	if err := wr.PutCount(11, []byte("b c")); err != nil {
		t.Errorf("PutCount: unexpected error: %v", err)
	}
	if err := wr.Flush(); err != nil {
		t.Errorf("Flush: unexpected error: %v", err)
	}

	const want = "2 a\n11 b c\n"
	if got := buf.String(); got != want {
		t.Errorf("Writer result: got %q, want %q", got, want)
	}
}

type errWriter struct {
	nc  int
	err error
}

func (w *errWriter) Write(data []byte) (int, error) {
	if w.nc == 0 {
		return 0, w.err
	}
	w.nc--
	return len(data), nil
}

func TestBadWriter(t *testing.T) {
	bad := errors.New("FAIL")
	w := &errWriter{nc: 0, err: bad}
	wr := NewWriter(w, '\n')

	// The bufio layer only touches the underlying writer once its buffer
	// fills or is flushed.
	if err := wr.Put(bytes.Repeat([]byte("x"), 1<<20)); err == nil {
		if err := wr.Flush(); err == nil {
			t.Fatalf("Put+Flush: got error nil, want error %v", bad)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	const input = "Some of what a fool thinks often remains."
	words := strings.Fields(input)

	var buf bytes.Buffer
	wr := NewWriter(&buf, '\n')
	for _, word := range words {
		if err := wr.Put([]byte(word)); err != nil {
			t.Errorf("Put %q: unexpected error: %v", word, err)
		}
	}
	if err := wr.Flush(); err != nil {
		t.Errorf("Flush: unexpected error: %v", err)
	}

	var got []string
	rd := NewReader(&buf, '\n')
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Unexpected read error: %v", err)
		}
		got = append(got, strings.TrimSuffix(string(rec), "\n"))
	}
	if diff := cmp.Diff(words, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}
