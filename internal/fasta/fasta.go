// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fasta summarizes FASTA text without rewriting it. Lines beginning
// with '>' start a record; the following lines up to the next header are
// its sequence.
package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
)

// readBufferSize is the read chunk. NCBI wraps sequences at 70 residues,
// but merged-record headers and unwrapped sequences can be far longer.
const readBufferSize = 64 * 1024

// Stats describes the records in a FASTA stream.
type Stats struct {
	Records   int   `json:"records" yaml:"records"`
	Residues  int64 `json:"residues" yaml:"residues"`
	MinLength int   `json:"min_length" yaml:"min_length"`
	MaxLength int   `json:"max_length" yaml:"max_length"`
}

// MeanLength returns the average record length, or 0 for an empty stream.
func (s Stats) MeanLength() float64 {
	if s.Records == 0 {
		return 0
	}
	return float64(s.Residues) / float64(s.Records)
}

// Add merges o into s.
func (s *Stats) Add(o Stats) {
	if o.Records == 0 {
		return
	}
	if s.Records == 0 || o.MinLength < s.MinLength {
		s.MinLength = o.MinLength
	}
	if o.MaxLength > s.MaxLength {
		s.MaxLength = o.MaxLength
	}
	s.Records += o.Records
	s.Residues += o.Residues
}

// Count reads r to the end and returns its record statistics. Sequence
// data before the first header is ignored. Lines of any length are
// accepted; long lines are consumed in buffer-sized fragments.
func Count(r io.Reader) (Stats, error) {
	br := bufio.NewReaderSize(r, readBufferSize)

	var st Stats
	inRecord := false
	length := 0
	finish := func() {
		if !inRecord {
			return
		}
		if st.Records == 0 || length < st.MinLength {
			st.MinLength = length
		}
		if length > st.MaxLength {
			st.MaxLength = length
		}
		st.Records++
		st.Residues += int64(length)
	}

	lineStart, inHeader := true, false
	for {
		frag, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Stats{}, fmt.Errorf("reading FASTA: %w", err)
		}

		switch {
		case lineStart && len(frag) > 0 && frag[0] == '>':
			finish()
			inRecord, inHeader = true, true
			length = 0
		case inRecord && !inHeader:
			length += len(bytes.TrimSpace(frag))
		}

		lineStart = !isPrefix
		if lineStart {
			inHeader = false
		}
	}
	finish()
	return st, nil
}

// CountBytes is Count over an in-memory payload. Count has no line
// length limit and a bytes.Reader only ever returns io.EOF, so there is
// no error to report.
func CountBytes(data []byte) Stats {
	st, _ := Count(bytes.NewReader(data))
	return st
}

// CountFile summarizes the FASTA file at path. Files ending in ".gz" are
// decompressed.
func CountFile(path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return Stats{}, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return Count(r)
}
