// Package delimited reads tab-delimited exports through a column dictionary.
//
// A Reader pulls one line at a time from a LineSource, splits it on the
// delimiter and yields an Accessor when the field count matches the
// dictionary. Lines with a different field count are skipped (exports are
// ragged); an empty line or end of input ends the sequence.
//
//	r, err := delimited.Open(ctx, "people.dic", "people.txt", delimited.Options{})
//	if err != nil { ... }
//	defer r.Close()
//	for r.Next() {
//	    name, err := r.Row().Get("Name")
//	    ...
//	}
//	if err := r.Err(); err != nil { ... }
package delimited

import (
	"errors"
	"fmt"
	"strings"

	"ditools/internal/coldict"
)

var (
	// ErrMissingColumn is returned when a column name is not in the dictionary.
	ErrMissingColumn = errors.New("missing column")

	// ErrIndexOutOfRange is returned when a field position is beyond the row,
	// which happens when a dictionary and its data file have drifted apart.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Accessor is a read-only view of one row through a column dictionary.
//
// An Accessor returned by Reader.Row is only guaranteed until the next call
// to Next; use Record or Fields to keep values.
type Accessor struct {
	dict   *coldict.Dict
	fields []string
}

// NewAccessor pairs a dictionary with the fields of one row.
func NewAccessor(dict *coldict.Dict, fields []string) *Accessor {
	return &Accessor{dict: dict, fields: fields}
}

// Get returns the field for the named column, folding case.
func (a *Accessor) Get(name string) (string, error) {
	i, ok := a.dict.Index(name)
	if !ok {
		return "", fmt.Errorf("column %q: %w", name, ErrMissingColumn)
	}
	if i >= len(a.fields) {
		return "", fmt.Errorf("column %q at %d of %d fields: %w", name, i, len(a.fields), ErrIndexOutOfRange)
	}
	return a.fields[i], nil
}

// At returns the field at position i.
func (a *Accessor) At(i int) (string, error) {
	if i < 0 || i >= len(a.fields) {
		return "", fmt.Errorf("field %d of %d: %w", i, len(a.fields), ErrIndexOutOfRange)
	}
	return a.fields[i], nil
}

// Names returns the dictionary's column names in order.
func (a *Accessor) Names() []string { return a.dict.Names() }

// Dict returns the dictionary the row is read through.
func (a *Accessor) Dict() *coldict.Dict { return a.dict }

// Fields returns a copy of the raw fields.
func (a *Accessor) Fields() []string {
	out := make([]string, len(a.fields))
	copy(out, a.fields)
	return out
}

// Record copies the row into a name -> value map. Columns whose index lies
// beyond the row are left out.
func (a *Accessor) Record() map[string]string {
	names := a.dict.Names()
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v, err := a.Get(n); err == nil {
			out[n] = v
		}
	}
	return out
}

// String renders the row as {name: value, ...} in dictionary order.
func (a *Accessor) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range a.dict.Names() {
		if i > 0 {
			b.WriteString(", ")
		}
		v, err := a.Get(n)
		if err != nil {
			v = "<" + err.Error() + ">"
		}
		fmt.Fprintf(&b, "%s: %s", n, v)
	}
	b.WriteByte('}')
	return b.String()
}
