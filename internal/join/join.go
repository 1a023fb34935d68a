package join

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrNoKeyColumns is returned by New when keyColumns is empty.
var ErrNoKeyColumns = errors.New("join: no key columns")

// Joiner yields every primary row that has a match in all secondaries, with
// the matched non-key fields merged over it. A secondary field overwrites a
// primary field of the same name; later secondaries overwrite earlier ones.
type Joiner struct {
	primary Source
	keys    []string
	tables  []*table

	cur     Record
	emitted int
	dropped int
	done    bool
	err     error
}

// New reads every secondary to the end and indexes it by keyColumns. When a
// secondary repeats a key, the later row replaces the earlier one.
//
// Secondaries that implement io.Closer are closed before New returns. The
// primary is closed when the Joiner finishes or is closed.
func New(primary Source, secondaries []Source, keyColumns []string) (*Joiner, error) {
	if len(keyColumns) == 0 {
		for _, s := range secondaries {
			closeSource(s)
		}
		closeSource(primary)
		return nil, ErrNoKeyColumns
	}

	j := &Joiner{
		primary: primary,
		keys:    append([]string(nil), keyColumns...),
		tables:  make([]*table, 0, len(secondaries)),
	}
	for i, s := range secondaries {
		t, err := j.index(s)
		if cerr := closeSource(s); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			for _, rest := range secondaries[i+1:] {
				closeSource(rest)
			}
			closeSource(primary)
			return nil, fmt.Errorf("join: secondary %d: %w", i, err)
		}
		j.tables = append(j.tables, t)
	}
	return j, nil
}

func (j *Joiner) index(s Source) (*table, error) {
	t := newTable()
	for s.Next() {
		row := s.Row()
		k, err := keyOf(row, j.keys)
		if err != nil {
			return nil, err
		}
		values, err := recordOf(row)
		if err != nil {
			return nil, err
		}
		for name := range values {
			if j.isKey(name) {
				delete(values, name)
			}
		}
		t.put(k, values)
	}
	return t, s.Err()
}

func (j *Joiner) isKey(name string) bool {
	for _, k := range j.keys {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// Next advances to the next joined record. It returns false when the primary
// is exhausted or on error (see Err).
func (j *Joiner) Next() bool {
	if j.done {
		return false
	}
	for j.primary.Next() {
		row := j.primary.Row()
		k, err := keyOf(row, j.keys)
		if err != nil {
			j.fail(fmt.Errorf("join: primary row %d: %w", j.emitted+j.dropped+1, err))
			return false
		}
		var matches []Record
		for _, t := range j.tables {
			v, ok := t.get(k)
			if !ok {
				break
			}
			matches = append(matches, v)
		}
		if len(matches) != len(j.tables) {
			j.dropped++
			continue
		}

		rec, err := recordOf(row)
		if err != nil {
			j.fail(fmt.Errorf("join: primary row %d: %w", j.emitted+j.dropped+1, err))
			return false
		}
		for _, m := range matches {
			for name, v := range m {
				rec[name] = v
			}
		}
		j.cur = rec
		j.emitted++
		return true
	}
	if err := j.primary.Err(); err != nil {
		j.fail(fmt.Errorf("join: primary: %w", err))
		return false
	}
	j.Close()
	return false
}

// Record returns the current joined record. The Joiner does not reuse it.
func (j *Joiner) Record() Record { return j.cur }

// Err returns the first error met while reading the primary.
func (j *Joiner) Err() error { return j.err }

// All ranges over the remaining joined records. Check Err afterwards.
func (j *Joiner) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for j.Next() {
			if !yield(j.cur) {
				return
			}
		}
	}
}

// Emitted returns how many records Next has produced.
func (j *Joiner) Emitted() int { return j.emitted }

// Dropped returns how many primary rows had no match in some secondary.
func (j *Joiner) Dropped() int { return j.dropped }

// Sizes returns the number of distinct keys indexed per secondary.
func (j *Joiner) Sizes() []int {
	out := make([]int, len(j.tables))
	for i, t := range j.tables {
		out[i] = t.Len()
	}
	return out
}

// Close releases the primary source. It is safe to call more than once.
func (j *Joiner) Close() error {
	if j.done {
		return nil
	}
	j.done = true
	j.cur = nil
	return closeSource(j.primary)
}

func (j *Joiner) fail(err error) {
	j.err = err
	j.Close()
}
