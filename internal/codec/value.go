// Package codec implements the tagged text encoding used to pass structured
// values between processes (and languages) as a single string.
//
// Wire grammar:
//
//	None            null
//	i<int>          integer, e.g. i42, i-7 (sign follows the tag)
//	d<float>        fixed-point float, e.g. d1.5, d-0.25
//	s'<text>'       string; ' and \ inside are written \' and \\
//	L(<items>)      list
//	T(<items>)      tuple
//	S(<items>)      set
//	D(<k><v>...)    map; keys and values are adjacent encodings
//
// Items are concatenated with no separator; every encoding is self-delimiting.
// Booleans are written as i0/i1 and therefore decode as Int.
//
// Escaping \ as well as ' goes beyond the legacy format, whose decoders only
// understand \'; a string ending in a backslash does not read back there.
package codec

import (
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindStr
	KindList
	KindTuple
	KindSet
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is an immutable codec value. The zero Value is Null.
//
// Every Value has a structural key (see Key), so any variant, including lists
// and maps, can be a set member or a map key.
type Value struct {
	kind Kind

	i int64
	f float64
	s string

	items   []Value // list, tuple, set
	entries []Entry // map

	// index maps member/key structural keys to positions (set, map).
	index map[string]int
}

// Entry is one key/value pair of a map Value.
type Entry struct {
	Key   Value
	Value Value
}

// ============================================================
// Constructors
// ============================================================

// Null returns the null value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(n int64) Value { return Value{kind: KindInt, i: n} }

// Bool returns Int(1) for true and Int(0) for false.
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// Float returns a float value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindStr, s: s} }

// List returns an ordered list value.
func List(items ...Value) Value {
	return Value{kind: KindList, items: items}
}

// Tuple returns a tuple value.
func Tuple(items ...Value) Value {
	return Value{kind: KindTuple, items: items}
}

// Set returns a set value. Duplicate members collapse onto the first one.
func Set(members ...Value) Value {
	v := Value{kind: KindSet, index: make(map[string]int, len(members))}
	v.items = make([]Value, 0, len(members))
	for _, m := range members {
		k := m.Key()
		if _, dup := v.index[k]; dup {
			continue
		}
		v.index[k] = len(v.items)
		v.items = append(v.items, m)
	}
	return v
}

// Map returns a map value. A repeated key keeps its first position and takes
// the last value.
func Map(entries ...Entry) Value {
	v := Value{kind: KindMap, index: make(map[string]int, len(entries))}
	v.entries = make([]Entry, 0, len(entries))
	for _, e := range entries {
		k := e.Key.Key()
		if at, dup := v.index[k]; dup {
			v.entries[at].Value = e.Value
			continue
		}
		v.index[k] = len(v.entries)
		v.entries = append(v.entries, e)
	}
	return v
}

// StrMap builds a map with string keys, ordered by key.
func StrMap(m map[string]Value) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: Str(k), Value: m[k]})
	}
	return Map(entries...)
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Int returns the integer and true if v is an Int.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns the float and true if v is a Float.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

// Str returns the string and true if v is a Str.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindStr }

// Items returns the elements of a list, tuple or set (nil otherwise).
// The returned slice must not be modified.
func (v Value) Items() []Value {
	switch v.kind {
	case KindList, KindTuple, KindSet:
		return v.items
	}
	return nil
}

// Entries returns the pairs of a map in insertion order (nil otherwise).
// The returned slice must not be modified.
func (v Value) Entries() []Entry {
	if v.kind != KindMap {
		return nil
	}
	return v.entries
}

// Len returns the number of elements or entries of a container, else 0.
func (v Value) Len() int {
	if v.kind == KindMap {
		return len(v.entries)
	}
	return len(v.Items())
}

// Lookup returns the value stored under key in a map.
func (v Value) Lookup(key Value) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	at, ok := v.index[key.Key()]
	if !ok {
		return Value{}, false
	}
	return v.entries[at].Value, true
}

// Contains reports whether a set holds m.
func (v Value) Contains(m Value) bool {
	if v.kind != KindSet {
		return false
	}
	_, ok := v.index[m.Key()]
	return ok
}

// ============================================================
// Structural identity
// ============================================================

// Key returns the structural key of v: two values are Equal exactly when
// their keys are equal. Sets and maps are keyed independently of order.
func (v Value) Key() string {
	var b strings.Builder
	writeKey(&b, v)
	return b.String()
}

func writeKey(b *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		b.WriteString("None")
	case KindInt:
		b.WriteByte('i')
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		f := v.f
		if f == 0 {
			// -0 == 0, so both share a key.
			f = 0
		}
		b.WriteByte('d')
		b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	case KindStr:
		b.WriteString("s'")
		writeEscaped(b, v.s)
		b.WriteByte('\'')
	case KindList, KindTuple:
		b.WriteByte(tagOf(v.kind))
		b.WriteByte('(')
		for _, it := range v.items {
			writeKey(b, it)
		}
		b.WriteByte(')')
	case KindSet:
		keys := make([]string, 0, len(v.items))
		for _, it := range v.items {
			keys = append(keys, it.Key())
		}
		sort.Strings(keys)
		b.WriteString("S(")
		for _, k := range keys {
			b.WriteString(k)
		}
		b.WriteByte(')')
	case KindMap:
		pairs := make([]string, 0, len(v.entries))
		for _, e := range v.entries {
			pairs = append(pairs, e.Key.Key()+e.Value.Key())
		}
		sort.Strings(pairs)
		b.WriteString("D(")
		for _, p := range pairs {
			b.WriteString(p)
		}
		b.WriteByte(')')
	}
}

// Equal reports whether v and o are structurally equal. Lists and tuples
// compare in order; sets and maps compare by membership.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindStr:
		return v.s == o.s
	case KindList, KindTuple:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindSet:
		if len(v.items) != len(o.items) {
			return false
		}
		for _, it := range v.items {
			if !o.Contains(it) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.entries) != len(o.entries) {
			return false
		}
		for _, e := range v.entries {
			ov, ok := o.Lookup(e.Key)
			if !ok || !e.Value.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// String returns a human-readable rendering, e.g. {'a': [1, 2]}. It is meant
// for logs and test failures, not for the wire.
func (v Value) String() string {
	var b strings.Builder
	writeDebug(&b, v)
	return b.String()
}

func writeDebug(b *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		b.WriteString("None")
	case KindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		b.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindStr:
		b.WriteString(strconv.Quote(v.s))
	case KindList, KindTuple, KindSet:
		open, closing := "[", "]"
		switch v.kind {
		case KindTuple:
			open, closing = "(", ")"
		case KindSet:
			open, closing = "{", "}"
		}
		b.WriteString(open)
		for i, it := range v.items {
			if i > 0 {
				b.WriteString(", ")
			}
			writeDebug(b, it)
		}
		if v.kind == KindTuple && len(v.items) == 1 {
			b.WriteByte(',')
		}
		b.WriteString(closing)
	case KindMap:
		b.WriteByte('{')
		for i, e := range v.entries {
			if i > 0 {
				b.WriteString(", ")
			}
			writeDebug(b, e.Key)
			b.WriteString(": ")
			writeDebug(b, e.Value)
		}
		b.WriteByte('}')
	}
}

func tagOf(k Kind) byte {
	switch k {
	case KindInt:
		return 'i'
	case KindFloat:
		return 'd'
	case KindStr:
		return 's'
	case KindList:
		return 'L'
	case KindTuple:
		return 'T'
	case KindSet:
		return 'S'
	case KindMap:
		return 'D'
	}
	return 0
}
