// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output owns the run's single output file.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/pgzip"
)

const (
	fastaExt = ".fasta"
	gzipExt  = ".gz"
)

// FileName returns the output file name for term: "<term>.fasta", or
// "<term>.fasta.gz" when compressed. Path separators in term are replaced
// so the file always lands in the output directory.
func FileName(term string, compress bool) string {
	name := strings.TrimSpace(term)
	name = strings.NewReplacer("/", "_", `\`, "_", string(os.PathSeparator), "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		name = "out"
	}
	name += fastaExt
	if compress {
		name += gzipExt
	}
	return name
}

// Path joins dir and FileName(term, compress).
func Path(dir, term string, compress bool) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, FileName(term, compress))
}

// Sink appends payloads to the output file, optionally through a parallel
// gzip writer. A Sink has exactly one writer.
type Sink struct {
	path string
	file *os.File
	gz   *pgzip.Writer
}

// Create opens path for writing, truncating any previous content, and
// creates its directory if needed.
func Create(path string, compress bool) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening output %s: %w", path, err)
	}
	s := &Sink{path: path, file: f}
	if compress {
		s.gz = pgzip.NewWriter(f)
	}
	return s, nil
}

// Path returns the file the sink writes.
func (s *Sink) Path() string { return s.path }

// Write appends p to the output.
func (s *Sink) Write(p []byte) (int, error) {
	if s.gz != nil {
		return s.gz.Write(p)
	}
	return s.file.Write(p)
}

// Flush pushes buffered data to the file and syncs it to disk, so a
// completed window survives a crash of the process.
func (s *Sink) Flush() error {
	if s.gz != nil {
		if err := s.gz.Flush(); err != nil {
			return fmt.Errorf("flushing gzip stream: %w", err)
		}
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", s.path, err)
	}
	return nil
}

// Close finishes the gzip stream, if any, and closes the file.
func (s *Sink) Close() error {
	var gzErr error
	if s.gz != nil {
		gzErr = s.gz.Close()
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", s.path, err)
	}
	if gzErr != nil {
		return fmt.Errorf("closing gzip stream: %w", gzErr)
	}
	return nil
}
