// Package join performs an inner hash join of one primary row sequence
// against any number of secondary row sequences on a shared set of key
// columns.
//
// Secondaries are read to the end when the Joiner is built; the primary is
// pulled lazily, one row per Next call.
package join

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"ditools/internal/delimited"
)

// Row is one input row addressed by column name.
type Row interface {
	Get(name string) (string, error)
	Names() []string
}

// Record is a joined (or caller-built) row: column name to field value.
// Names are expected in lower case, as produced by the delimited reader.
type Record map[string]string

// Get returns the value of column name. An exact match wins; otherwise the
// lower-cased name is tried.
func (r Record) Get(name string) (string, error) {
	if v, ok := r[name]; ok {
		return v, nil
	}
	if v, ok := r[strings.ToLower(name)]; ok {
		return v, nil
	}
	return "", fmt.Errorf("column %q: %w", name, delimited.ErrMissingColumn)
}

// Names returns the column names in sorted order.
func (r Record) Names() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Source is a forward-only sequence of rows. Row is only valid until the
// next call to Next.
type Source interface {
	Next() bool
	Row() Row
	Err() error
}

// FromReader adapts a delimited reader to Source. Closing the adapter closes
// the reader.
func FromReader(r *delimited.Reader) Source { return readerSource{r} }

type readerSource struct{ r *delimited.Reader }

func (s readerSource) Next() bool   { return s.r.Next() }
func (s readerSource) Err() error   { return s.r.Err() }
func (s readerSource) Close() error { return s.r.Close() }

func (s readerSource) Row() Row {
	if a := s.r.Row(); a != nil {
		return a
	}
	return nil
}

// Records returns a Source over an in-memory slice.
func Records(recs ...Record) Source { return &sliceSource{recs: recs, i: -1} }

type sliceSource struct {
	recs []Record
	i    int
}

func (s *sliceSource) Next() bool {
	if s.i+1 >= len(s.recs) {
		s.i = len(s.recs)
		return false
	}
	s.i++
	return true
}

func (s *sliceSource) Row() Row {
	if s.i < 0 || s.i >= len(s.recs) {
		return nil
	}
	return s.recs[s.i]
}

func (s *sliceSource) Err() error { return nil }

// recordOf copies row into a fresh Record.
func recordOf(row Row) (Record, error) {
	if m, ok := row.(interface{ Record() map[string]string }); ok {
		return Record(m.Record()), nil
	}
	if r, ok := row.(Record); ok {
		return r.Clone(), nil
	}
	names := row.Names()
	out := make(Record, len(names))
	for _, n := range names {
		v, err := row.Get(n)
		if err != nil {
			return nil, err
		}
		out[n] = v
	}
	return out, nil
}

func closeSource(s Source) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
