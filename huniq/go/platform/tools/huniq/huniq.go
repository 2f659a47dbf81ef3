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

// Binary huniq removes duplicate records from stdin without requiring the
// input to be sorted, writing the surviving records to stdout.
//
// Examples:
//
//	$ ... | huniq                        # Remove duplicate lines, keeping first occurrences
//	$ ... | huniq --count                # Count occurrences of each distinct line
//	$ ... | huniq --count --sort         # Counts in ascending order
//	$ ... | huniq --count --rsort        # Counts in descending order
//	$ ... | huniq --null                 # NUL-delimited records
//	$ ... | huniq --read_format=zstd     # Dedup a zstd-compressed stream
package main

import (
	"flag"
	"os"
	"strings"

	"huniq.io/huniq/go/platform/codec"
	"huniq.io/huniq/go/platform/uniq"
	"huniq.io/huniq/go/util/datasize"
	"huniq.io/huniq/go/util/flagutil"
	"huniq.io/huniq/go/util/log"
	"huniq.io/huniq/go/util/profile"
	"huniq.io/huniq/go/util/tally"
)

var (
	countMode = flag.Bool("count", false, "Prefix each distinct record with the number of times it occurred (buffers the whole input)")
	sortAsc   = flag.Bool("sort", false, "With --count, order output by ascending count")
	sortDesc  = flag.Bool("rsort", false, "With --count, order output by descending count")

	delimiter = flag.String("delimiter", "\n", "Record delimiter (exactly one ASCII character)")
	nullDelim = flag.Bool("null", false, "Use the NUL character as the record delimiter (conflicts with --delimiter)")

	trailingDelimiter = flag.Bool("trailing_delimiter", true, "Append the delimiter to a final record that ended the input without one")

	readFormat  = flag.String("read_format", codec.Raw, "Compression format of the input stream (accepted formats: {raw,snappy,zstd,brotli})")
	writeFormat = flag.String("write_format", codec.Raw, "Compression format of the output stream (accepted formats: {raw,snappy,zstd,brotli})")

	externalSort = flag.Bool("external_sort", false, "With --count and a sort order, page sorting out to temporary disk shards")

	bufferSize = datasize.Flag("buffer_size", "32KiB", "Initial size of the record read buffer")
)

func init() {
	flag.Usage = flagutil.SimpleUsage("Remove duplicate records from a byte stream without sorting it",
		"[--count [--sort | --rsort]] [--delimiter=<char> | --null]")
}

func main() {
	flag.Parse()
	if len(flag.Args()) != 0 {
		flagutil.UsageErrorf("unknown arguments: %v", flag.Args())
	}

	if *sortAsc && *sortDesc {
		flagutil.UsageError("--sort and --rsort are mutually exclusive")
	}
	if (*sortAsc || *sortDesc) && !*countMode {
		flagutil.UsageError("--sort/--rsort are only meaningful with --count")
	}
	if *nullDelim && *delimiter != "\n" {
		flagutil.UsageError("--null conflicts with --delimiter")
	}
	if *externalSort && !*countMode {
		flagutil.UsageError("--external_sort is only meaningful with --count")
	}

	delim := byte('\n')
	if *nullDelim {
		delim = 0
	} else if len(*delimiter) != 1 || (*delimiter)[0] > 127 {
		flagutil.UsageErrorf(`only single ascii characters are supported as delimiters; got %q
Use sed to turn your delimiter into zero bytes?

    $ echo -n "1λ1λ2λ3" | sed 's@λ@\x00@g' | huniq --null | sed 's@\x00@λ@g'
    1λ2λ3λ`, *delimiter)
	} else {
		delim = (*delimiter)[0]
	}

	*readFormat = strings.ToLower(*readFormat)
	*writeFormat = strings.ToLower(*writeFormat)
	if !codec.Formats.Contains(*readFormat) {
		flagutil.UsageErrorf("unsupported --read_format: %q (accepted formats: %v)", *readFormat, codec.Formats)
	}
	if !codec.Formats.Contains(*writeFormat) {
		flagutil.UsageErrorf("unsupported --write_format: %q (accepted formats: %v)", *writeFormat, codec.Formats)
	}

	if err := profile.Start(); err != nil {
		log.Exitf("error starting profiling: %v", err)
	}
	defer profile.Stop()

	in, err := codec.NewReader(os.Stdin, *readFormat)
	if err != nil {
		log.Exitf("error opening input: %v", err)
	}
	out, err := codec.NewWriter(os.Stdout, *writeFormat)
	if err != nil {
		log.Exitf("error opening output: %v", err)
	}

	opts := uniq.Options{
		Delimiter:         delim,
		TrailingDelimiter: *trailingDelimiter,
		BufferSize:        int(bufferSize.Bytes()),
	}

	var stats uniq.Stats
	if *countMode {
		dir := tally.Unsorted
		if *sortAsc {
			dir = tally.Ascending
		} else if *sortDesc {
			dir = tally.Descending
		}
		stats, err = uniq.Count(in, out, uniq.CountOptions{
			Options:      opts,
			Sort:         dir,
			ExternalSort: *externalSort,
		})
	} else {
		stats, err = uniq.Dedup(in, out, opts)
	}
	if err != nil {
		log.Exitf("huniq: %v", err)
	}

	if err := out.Close(); err != nil {
		log.Exitf("error closing output: %v", err)
	}
	if err := in.Close(); err != nil {
		log.Exitf("error closing input: %v", err)
	}

	log.Infof("huniq: %d records read (%d unique, %d duplicate)", stats.Records, stats.Unique, stats.Duplicates)
}
