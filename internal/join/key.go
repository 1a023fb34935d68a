package join

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"

	"ditools/internal/codec"
)

// Key is the ordered tuple of key-column values of one row.
type Key []string

// Equal reports whether k and o hold the same values in the same order.
func (k Key) Equal(o Key) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if k[i] != o[i] {
			return false
		}
	}
	return true
}

// Hash returns a 64-bit hash of k. Every field is length-prefixed so
// ("ab","c") and ("a","bc") hash differently.
func (k Key) Hash() uint64 {
	h := xxh3.New()
	var n [binary.MaxVarintLen64]byte
	for _, f := range k {
		h.Write(n[:binary.PutUvarint(n[:], uint64(len(f)))])
		h.WriteString(f)
	}
	return h.Sum64()
}

// Value returns k as a codec tuple of strings.
func (k Key) Value() codec.Value {
	items := make([]codec.Value, len(k))
	for i, f := range k {
		items[i] = codec.Str(f)
	}
	return codec.Tuple(items...)
}

// String returns the codec encoding of k, e.g. T(s'1's'x').
func (k Key) String() string {
	s, _ := codec.Encode(k.Value())
	return s
}

func keyOf(row Row, cols []string) (Key, error) {
	k := make(Key, len(cols))
	for i, c := range cols {
		v, err := row.Get(c)
		if err != nil {
			return nil, err
		}
		k[i] = v
	}
	return k, nil
}

type entry struct {
	key    Key
	values Record
}

// table maps a Key to the non-key fields of the last row stored under it.
type table struct {
	buckets map[uint64][]entry
	n       int
}

func newTable() *table { return &table{buckets: make(map[uint64][]entry)} }

func (t *table) put(k Key, values Record) {
	h := k.Hash()
	b := t.buckets[h]
	for i := range b {
		if b[i].key.Equal(k) {
			b[i].values = values
			return
		}
	}
	t.buckets[h] = append(b, entry{key: k, values: values})
	t.n++
}

func (t *table) get(k Key) (Record, bool) {
	for _, e := range t.buckets[k.Hash()] {
		if e.key.Equal(k) {
			return e.values, true
		}
	}
	return nil, false
}

// Len returns the number of distinct keys.
func (t *table) Len() int { return t.n }
