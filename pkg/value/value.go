// Package value defines the closed value union used by RetroScript.
// A Value is one of: null, bool, number, string, array, or object.
// Conversions between kinds are explicit; scripts never observe a Go
// type directly.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which member of the union a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the kind name as scripts would report it.
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
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an immutable tagged union. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	arr  []Value
	obj  map[string]Value
}

// Null is the null value.
var Null = Value{}

// NewBool returns a bool value.
func NewBool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// NewNumber returns a number value.
func NewNumber(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// NewString returns a string value.
func NewString(s string) Value {
	return Value{kind: KindString, str: s}
}

// NewArray returns an array value holding the given elements.
func NewArray(elems []Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// NewObject returns an object value holding the given mapping.
func NewObject(fields map[string]Value) Value {
	return Value{kind: KindObject, obj: fields}
}

// Kind returns the kind tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the bool member. Valid only for KindBool.
func (v Value) Bool() bool { return v.b }

// Num returns the number member. Valid only for KindNumber.
func (v Value) Num() float64 { return v.num }

// Str returns the string member. Valid only for KindString.
func (v Value) Str() string { return v.str }

// Arr returns the array member. Valid only for KindArray.
func (v Value) Arr() []Value { return v.arr }

// Obj returns the object member. Valid only for KindObject.
func (v Value) Obj() map[string]Value { return v.obj }

// Clone returns a deep copy. Arrays and objects are copied recursively
// so that environment snapshots never alias live script data.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		elems := make([]Value, len(v.arr))
		for i, e := range v.arr {
			elems[i] = e.Clone()
		}
		return NewArray(elems)
	case KindObject:
		fields := make(map[string]Value, len(v.obj))
		for k, e := range v.obj {
			fields[k] = e.Clone()
		}
		return NewObject(fields)
	default:
		return v
	}
}

// Equal reports deep equality between two values. Values of different
// kinds are never equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, e := range v.obj {
			oe, ok := o.obj[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ToNumber coerces a value to a number. Non-numeric values coerce to 0,
// never an error.
func ToNumber(v Value) float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// ToString renders a value the way print shows it. Whole numbers render
// without a decimal point.
func ToString(v Value) string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindString:
		return v.str
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = ToString(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + ToString(v.obj[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

// Truthy reports the truth value used by conditions. Null and false are
// falsy, 0 is falsy, the empty string is falsy; arrays and objects are
// always truthy.
func Truthy(v Value) bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0
	case KindString:
		return v.str != ""
	default:
		return true
	}
}

// FromAny converts a Go value received at the dispatch boundary into a
// Value. Unrecognized types convert to their string form.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null
	case Value:
		return t
	case bool:
		return NewBool(t)
	case int:
		return NewNumber(float64(t))
	case int64:
		return NewNumber(float64(t))
	case float64:
		return NewNumber(t)
	case string:
		return NewString(t)
	case []Value:
		return NewArray(t)
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = FromAny(e)
		}
		return NewArray(elems)
	case map[string]Value:
		return NewObject(t)
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			fields[k] = FromAny(e)
		}
		return NewObject(fields)
	case float32:
		return NewNumber(float64(t))
	default:
		return NewString(fmt.Sprintf("%v", t))
	}
}

// ToAny converts a Value into the plain Go form used in dispatch
// payloads.
func ToAny(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindArray:
		elems := make([]any, len(v.arr))
		for i, e := range v.arr {
			elems[i] = ToAny(e)
		}
		return elems
	case KindObject:
		fields := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			fields[k] = ToAny(e)
		}
		return fields
	default:
		return nil
	}
}
