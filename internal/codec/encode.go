package codec

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedType is returned when a value has no wire representation.
	ErrUnsupportedType = errors.New("codec: unsupported type")

	// ErrMalformed is returned (wrapped in *DecodeError) for input that does
	// not follow the wire grammar.
	ErrMalformed = errors.New("codec: malformed input")
)

// Encode returns the wire form of v. It fails with ErrUnsupportedType for
// NaN or infinite floats anywhere inside v.
func Encode(v Value) (string, error) {
	var b strings.Builder
	if err := encodeTo(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func encodeTo(b *strings.Builder, v Value) error {
	switch v.kind {
	case KindNull:
		b.WriteString("None")
	case KindInt:
		b.WriteByte('i')
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return fmt.Errorf("%w: float %v", ErrUnsupportedType, v.f)
		}
		b.WriteByte('d')
		b.WriteString(strconv.FormatFloat(v.f, 'f', -1, 64))
	case KindStr:
		b.WriteString("s'")
		writeEscaped(b, v.s)
		b.WriteByte('\'')
	case KindList, KindTuple, KindSet:
		b.WriteByte(tagOf(v.kind))
		b.WriteByte('(')
		for _, it := range v.items {
			if err := encodeTo(b, it); err != nil {
				return err
			}
		}
		b.WriteByte(')')
	case KindMap:
		b.WriteString("D(")
		for _, e := range v.entries {
			if err := encodeTo(b, e.Key); err != nil {
				return err
			}
			if err := encodeTo(b, e.Value); err != nil {
				return err
			}
		}
		b.WriteByte(')')
	default:
		return fmt.Errorf("%w: kind %d", ErrUnsupportedType, v.kind)
	}
	return nil
}

// writeEscaped writes s with quotes and backslashes prefixed by a backslash.
func writeEscaped(b *strings.Builder, s string) {
	if !strings.ContainsAny(s, `'\`) {
		b.WriteString(s)
		return
	}
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '\'' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
}

// ============================================================
// Marshal - Go values to Value
// ============================================================

// TupleOf marks a slice to be encoded as a tuple by Marshal.
type TupleOf []any

var (
	valueType = reflect.TypeOf(Value{})
	tupleType = reflect.TypeOf(TupleOf(nil))
	emptyType = reflect.TypeOf(struct{}{})
)

// Marshal converts a Go value into a Value:
//
//	nil, nil pointer            -> Null
//	bool                        -> Int 0/1
//	signed and unsigned ints    -> Int
//	float32, float64            -> Float
//	string, []byte              -> Str
//	TupleOf                     -> Tuple
//	other slices and arrays     -> List
//	map[K]struct{}              -> Set
//	other maps                  -> Map
//	Value                       -> itself
//
// Pointers are followed. Anything else (funcs, channels, structs, complex
// numbers, uint64 above MaxInt64, NaN/Inf) fails with ErrUnsupportedType.
// Go maps have no order; Marshal sorts their entries by structural key so the
// encoding is deterministic.
func Marshal(x any) (Value, error) {
	if x == nil {
		return Null(), nil
	}
	return marshalValue(reflect.ValueOf(x))
}

func marshalValue(rv reflect.Value) (Value, error) {
	if rv.Type() == valueType {
		return rv.Interface().(Value), nil
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return marshalValue(rv.Elem())
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: %s %d overflows int64", ErrUnsupportedType, rv.Type(), u)
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("%w: float %v", ErrUnsupportedType, f)
		}
		return Float(f), nil
	case reflect.String:
		return Str(rv.String()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return Str(string(rv.Bytes())), nil
		}
		items := make([]Value, rv.Len())
		for i := range items {
			it, err := marshalValue(rv.Index(i))
			if err != nil {
				return Value{}, err
			}
			items[i] = it
		}
		if rv.Type() == tupleType {
			return Tuple(items...), nil
		}
		return List(items...), nil
	case reflect.Map:
		return marshalMap(rv)
	}
	return Value{}, fmt.Errorf("%w: %s", ErrUnsupportedType, rv.Type())
}

func marshalMap(rv reflect.Value) (Value, error) {
	isSet := rv.Type().Elem() == emptyType
	entries := make([]Entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := marshalValue(iter.Key())
		if err != nil {
			return Value{}, err
		}
		e := Entry{Key: k}
		if !isSet {
			if e.Value, err = marshalValue(iter.Value()); err != nil {
				return Value{}, err
			}
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.Key() < entries[j].Key.Key()
	})
	if isSet {
		members := make([]Value, len(entries))
		for i, e := range entries {
			members[i] = e.Key
		}
		return Set(members...), nil
	}
	return Map(entries...), nil
}

// EncodeAny is Marshal followed by Encode.
func EncodeAny(x any) (string, error) {
	v, err := Marshal(x)
	if err != nil {
		return "", err
	}
	return Encode(v)
}
