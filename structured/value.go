package structured

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindNull is an absent or JSON null value.
	KindNull Kind = iota
	// KindBool is a boolean scalar.
	KindBool
	// KindNumber is a numeric scalar.
	KindNumber
	// KindString is a string scalar.
	KindString
	// KindSequence is an ordered list of values.
	KindSequence
	// KindMapping is a set of values keyed by normalized name.
	KindMapping
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is an immutable decoded tree node.
// The zero Value is null.
type Value struct {
	name   string
	kind   Kind
	scalar any
	items  []Value
	fields map[string]Value
}

// Null returns a null value carrying the given name.
func Null(name string) Value {
	return Value{name: name}
}

// Name returns the outward name attached at decode time. It is informational
// only and plays no part in Equal or lookups.
func (v Value) Name() string { return v.name }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Scalar returns the raw scalar held by v, or nil for sequences, mappings and null.
func (v Value) Scalar() any {
	switch v.kind {
	case KindBool, KindNumber, KindString:
		return v.scalar
	default:
		return nil
	}
}

// Text returns the string held by v.
func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	s, ok := v.scalar.(string)
	return s, ok
}

// Bool returns the boolean held by v.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	b, ok := v.scalar.(bool)
	return b, ok
}

// Int returns v as an int64. Non-integral numbers are rejected.
func (v Value) Int() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	switch n := v.scalar.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		if float32(int64(n)) == n {
			return int64(n), true
		}
	case float64:
		if float64(int64(n)) == n {
			return int64(n), true
		}
	}
	return 0, false
}

// Float returns v as a float64.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return toFloat(v.scalar)
}

// Len returns the number of items of a sequence or fields of a mapping.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.items)
	case KindMapping:
		return len(v.fields)
	default:
		return 0
	}
}

// Index returns the i-th item of a sequence, or null when out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindSequence || i < 0 || i >= len(v.items) {
		return Null(v.name)
	}
	return v.items[i]
}

// Items returns a copy of the sequence items.
func (v Value) Items() []Value {
	if v.kind != KindSequence {
		return nil
	}
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out
}

// Field looks up a mapping field. The key is normalized before lookup.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	f, ok := v.fields[NormalizeKey(key)]
	return f, ok
}

// Has reports whether a mapping carries the given key.
func (v Value) Has(key string) bool {
	_, ok := v.Field(key)
	return ok
}

// Path walks nested mapping fields and returns null when any step is missing.
func (v Value) Path(keys ...string) Value {
	cur := v
	for _, k := range keys {
		next, ok := cur.Field(k)
		if !ok {
			return Null(NormalizeKey(k))
		}
		cur = next
	}
	return cur
}

// Keys returns the normalized mapping keys in sorted order.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	keys := make([]string, 0, len(v.fields))
	for k := range v.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interface converts v back into plain Go values (map[string]any, []any, scalars).
func (v Value) Interface() any {
	switch v.kind {
	case KindSequence:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Interface()
		}
		return out
	case KindNull:
		return nil
	default:
		return v.scalar
	}
}

// Equal reports structural equality. Names are ignored.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber:
		return numbersEqual(v.scalar, other.scalar)
	case KindBool, KindString:
		return v.scalar == other.scalar
	case KindSequence:
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for k, f := range v.fields {
			o, ok := other.fields[k]
			if !ok || !f.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON encodes the value with its normalized keys.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// String renders a compact debug form prefixed with the value name.
func (v Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%s<%s>", v.name, v.kind)
	}
	if v.name == "" {
		return string(b)
	}
	return v.name + string(b)
}

// numbersEqual compares integers exactly and falls back to float64 only
// when either side has a fractional part or exponent.
func numbersEqual(a, b any) bool {
	x, xok := exactInt(a)
	y, yok := exactInt(b)
	if xok && yok {
		return x.Cmp(y) == 0
	}
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		return fa == fb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// exactInt returns n as a big.Int when it is an integer.
func exactInt(n any) (*big.Int, bool) {
	switch x := n.(type) {
	case json.Number:
		return new(big.Int).SetString(x.String(), 10)
	case int:
		return big.NewInt(int64(x)), true
	case int8:
		return big.NewInt(int64(x)), true
	case int16:
		return big.NewInt(int64(x)), true
	case int32:
		return big.NewInt(int64(x)), true
	case int64:
		return big.NewInt(x), true
	case uint:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint64:
		return new(big.Int).SetUint64(x), true
	case float32:
		return floatInt(float64(x))
	case float64:
		return floatInt(x)
	}
	return nil, false
}

func floatInt(f float64) (*big.Int, bool) {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return nil, false
	}
	i, _ := big.NewFloat(f).Int(nil)
	return i, true
}

func toFloat(n any) (float64, bool) {
	switch x := n.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	if i, ok := exactInt(n); ok {
		f, _ := new(big.Float).SetInt(i).Float64()
		return f, true
	}
	return 0, false
}

// NormalizeKey replaces hyphens with underscores and lower-cases the key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "-", "_"))
}
