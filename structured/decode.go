package structured

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
)

// Decode converts a generic tree into a Value named name.
//
// Mapping children are named by their normalized key; sequence elements
// share the name of their container. When two keys normalize to the same
// name, the key that sorts last wins.
func Decode(v any, name string) Value {
	switch x := v.(type) {
	case nil:
		return Null(name)
	case Value:
		return rename(x, name)
	case bool:
		return Value{name: name, kind: KindBool, scalar: x}
	case string:
		return Value{name: name, kind: KindString, scalar: x}
	case json.Number:
		return Value{name: name, kind: KindNumber, scalar: x}
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Value{name: name, kind: KindNumber, scalar: x}
	case []any:
		return decodeSequence(len(x), func(i int) any { return x[i] }, name)
	case map[string]any:
		return decodeMapping(x, name)
	}
	return decodeReflect(v, name)
}

// DecodeJSON parses data and decodes it under name. Numbers keep their
// textual form so large integers survive.
func DecodeJSON(data []byte, name string) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("structured: decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("structured: decode json: trailing data after value")
	}
	return Decode(raw, name), nil
}

func decodeSequence(n int, at func(int) any, name string) Value {
	items := make([]Value, n)
	for i := 0; i < n; i++ {
		items[i] = Decode(at(i), name)
	}
	return Value{name: name, kind: KindSequence, items: items}
}

func decodeMapping(m map[string]any, name string) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make(map[string]Value, len(m))
	for _, k := range keys {
		nk := NormalizeKey(k)
		fields[nk] = Decode(m[k], nk)
	}
	return Value{name: name, kind: KindMapping, fields: fields}
}

// decodeReflect handles typed maps and slices, and round-trips anything else
// through encoding/json.
func decodeReflect(v any, name string) Value {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(name)
		}
		return Decode(rv.Elem().Interface(), name)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null(name)
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return Value{name: name, kind: KindString, scalar: string(b)}
		}
		return decodeSequence(rv.Len(), func(i int) any { return rv.Index(i).Interface() }, name)
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			if rv.IsNil() {
				return Null(name)
			}
			m := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return decodeMapping(m, name)
		}
	case reflect.String:
		return Value{name: name, kind: KindString, scalar: rv.String()}
	case reflect.Bool:
		return Value{name: name, kind: KindBool, scalar: rv.Bool()}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Value{name: name, kind: KindString, scalar: fmt.Sprint(v)}
	}
	out, err := DecodeJSON(data, name)
	if err != nil {
		return Value{name: name, kind: KindString, scalar: string(data)}
	}
	return out
}

// rename returns a copy of v with a new outward name; children keep theirs.
func rename(v Value, name string) Value {
	v.name = name
	return v
}
