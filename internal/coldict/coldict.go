// Package coldict parses column dictionaries: schema files that map column
// names of a tab-delimited export to their zero-based field positions.
//
// Two machine-generated layouts are recognized, sniffed from the first line:
//
//	Type:variable(<TAB>)       legacy layout; one "name:..." line per column,
//	customer id:string         ending at the first empty line
//	...
//
//	Name="customer id"         attribute layout; every Name= line is a column,
//	Type=string                everything else is ignored
//	...
//
// Names are stored lower-cased; lookups fold case the same way.
package coldict

import (
	"fmt"
	"os"
	"strings"
)

// LegacyHeader is the first line of a legacy-layout dictionary.
const LegacyHeader = "Type:variable(\t)"

// Dict maps lower-cased column names to field indices. It is immutable once
// built and safe to share between readers and goroutines.
type Dict struct {
	names []string       // distinct names, first-seen order
	index map[string]int // name -> field index
}

// New builds a dictionary from names in field order.
func New(names ...string) *Dict {
	d := &Dict{index: make(map[string]int, len(names))}
	for i, n := range names {
		d.add(n, i)
	}
	return d
}

func (d *Dict) add(name string, i int) {
	name = strings.ToLower(name)
	if _, seen := d.index[name]; !seen {
		d.names = append(d.names, name)
	}
	// A repeated name points at its last position.
	d.index[name] = i
}

// Parse builds a dictionary from the full text of a schema file. It never
// fails: unrecognized text yields an empty dictionary.
func Parse(text string) *Dict {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	d := &Dict{index: make(map[string]int)}
	if lines[0] == LegacyHeader {
		parseLegacy(d, lines[1:])
	} else {
		parseAttributes(d, lines)
	}
	return d
}

func parseLegacy(d *Dict, lines []string) {
	for i, l := range lines {
		if l == "" {
			return
		}
		name, _, _ := strings.Cut(l, ":")
		d.add(name, i)
	}
}

// parseAttributes reads Name=<q>value<q> lines; the character after '=' and
// the last character are delimiters and are dropped. A value too short to
// hold both delimiters still takes a position, under the empty name.
func parseAttributes(d *Dict, lines []string) {
	i := 0
	for _, l := range lines {
		l = strings.TrimSpace(l)
		rest, ok := strings.CutPrefix(l, "Name=")
		if !ok {
			continue
		}
		name := ""
		if len(rest) >= 2 {
			name = rest[1 : len(rest)-1]
		}
		d.add(name, i)
		i++
	}
}

// FromHeader builds a dictionary from a header record: the line is trimmed
// and split on delim.
func FromHeader(line, delim string) *Dict {
	return New(strings.Split(strings.TrimSpace(line), delim)...)
}

// Load reads and parses the schema file at path.
func Load(path string) (*Dict, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("coldict: read %s: %w", path, err)
	}
	return Parse(string(b)), nil
}

// Len returns the number of distinct columns; a well-formed row has exactly
// this many fields.
func (d *Dict) Len() int { return len(d.index) }

// Index returns the field index of name, folding case.
func (d *Dict) Index(name string) (int, bool) {
	i, ok := d.index[strings.ToLower(name)]
	return i, ok
}

// Names returns the column names in dictionary order.
func (d *Dict) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// String renders the dictionary as name:index pairs.
func (d *Dict) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range d.names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s:%d", n, d.index[n])
	}
	b.WriteByte('}')
	return b.String()
}
