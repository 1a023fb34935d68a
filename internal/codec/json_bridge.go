package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ============================================================
// JSON bridge
// ============================================================
//
// JSON has no tuples, sets or non-string keys, so the bridge is lossy in the
// Value -> JSON direction: tuples and sets become arrays, and a map with any
// non-string key becomes an array of [key, value] pairs.

// FromJSON converts one JSON document into a Value. Integral numbers become
// Int, other numbers Float, booleans Int 0/1, objects maps ordered by key.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return Value{}, fmt.Errorf("codec: json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("codec: json: trailing data after document")
	}
	return fromJSONValue(x)
}

func fromJSONValue(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("codec: json: number %s: %w", t, err)
		}
		return Float(f), nil
	case string:
		return Str(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, it := range t {
			v, err := fromJSONValue(it)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, it := range t {
			v, err := fromJSONValue(it)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return StrMap(m), nil
	}
	return Value{}, fmt.Errorf("%w: json %T", ErrUnsupportedType, x)
}

// ToJSON converts v into a value accepted by json.Marshal.
func ToJSON(v Value) any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindStr:
		return v.s
	case KindList, KindTuple, KindSet:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = ToJSON(it)
		}
		return out
	case KindMap:
		strKeys := true
		for _, e := range v.entries {
			if e.Key.kind != KindStr {
				strKeys = false
				break
			}
		}
		if strKeys {
			out := make(map[string]any, len(v.entries))
			for _, e := range v.entries {
				out[e.Key.s] = ToJSON(e.Value)
			}
			return out
		}
		out := make([]any, len(v.entries))
		for i, e := range v.entries {
			out[i] = []any{ToJSON(e.Key), ToJSON(e.Value)}
		}
		return out
	}
	return nil
}
