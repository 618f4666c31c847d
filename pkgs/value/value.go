// Package value implements the engine's dynamic Value type: a tagged sum of
// undefined, null, bool, integer, float, string, vector, map, and the
// Break/Continue control-flow sentinels (spec §3). Containers (Vector, Map)
// have reference semantics — copying a Value that holds a map shares the
// same underlying entries, matching "indexing returns a reference to a
// value" in spec §4.1.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the variant held by a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindVector
	KindMap
	KindBreak
	KindContinue
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	case KindMap:
		return "map"
	case KindBreak:
		return "break"
	case KindContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// Value is the engine's dynamic runtime value. Zero value is Undefined.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	vec  []Value
	m    *Map
}

func Undefined() Value      { return Value{kind: KindUndefined} }
func Null() Value           { return Value{kind: KindNull} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Int(i int64) Value     { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func BreakValue() Value     { return Value{kind: KindBreak} }
func ContinueValue() Value  { return Value{kind: KindContinue} }

func Vector(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindVector, vec: items}
}

func NewMap() Value {
	return Value{kind: KindMap, m: newMap()}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsBool() bool      { return v.kind == KindBool }
func (v Value) IsInt() bool       { return v.kind == KindInt }
func (v Value) IsFloat() bool     { return v.kind == KindFloat }
func (v Value) IsNumeric() bool   { return v.kind == KindInt || v.kind == KindFloat }
func (v Value) IsString() bool    { return v.kind == KindString }
func (v Value) IsVector() bool    { return v.kind == KindVector }
func (v Value) IsMap() bool       { return v.kind == KindMap }
func (v Value) IsBreak() bool     { return v.kind == KindBreak }
func (v Value) IsContinue() bool  { return v.kind == KindContinue }

// Raw accessors. Callers must have already checked Kind(); these do not
// panic but return the zero value for the wrong kind.
func (v Value) Bool() bool     { return v.b }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string    { return v.s }
func (v Value) Vec() []Value   { return v.vec }
func (v Value) MapRef() *Map   { return v.m }

// AsFloat promotes an Int or Float to float64; ok is false for any other kind.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Truthy implements the boolean-coercion rule in spec §3.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != ""
	case KindVector:
		return len(v.vec) != 0
	case KindMap:
		return v.m != nil && v.m.Len() != 0
	default:
		return true
	}
}

// TypeName returns the name used in error messages and the string() builtin.
func (v Value) TypeName() string { return v.kind.String() }

// String renders the value for placeholder interpolation and debugging.
// It is intentionally distinct from a canonical/round-trippable form.
func (v Value) String() string {
	switch v.kind {
	case KindUndefined:
		return ""
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindVector:
		parts := make([]string, len(v.vec))
		for i, e := range v.vec {
			parts[i] = e.Repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		return v.m.repr()
	case KindBreak:
		return "<break>"
	case KindContinue:
		return "<continue>"
	default:
		return ""
	}
}

// Repr is like String but quotes strings, used when a value appears nested
// inside a vector/map's own String().
func (v Value) Repr() string {
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	return v.String()
}

// Map is an insertion-ordered mapping from Value to Value. It has pointer
// identity so copies of a Value sharing the same *Map observe each other's
// mutations, matching the reference semantics containers need for in-place
// index assignment (spec §4.1).
type Map struct {
	order []Value
	index map[string]int
	vals  map[string]Value
}

func newMap() *Map {
	return &Map{index: make(map[string]int), vals: make(map[string]Value)}
}

// keyHash produces a canonical, collision-free string key for a Value used
// as a map key. Containers are rejected by callers before reaching here.
func keyHash(k Value) string {
	switch k.kind {
	case KindUndefined:
		return "u:"
	case KindNull:
		return "n:"
	case KindBool:
		if k.b {
			return "b:1"
		}
		return "b:0"
	case KindInt:
		return "i:" + strconv.FormatInt(k.i, 10)
	case KindFloat:
		return "f:" + strconv.FormatFloat(k.f, 'g', -1, 64)
	case KindString:
		return "s:" + k.s
	default:
		return fmt.Sprintf("?:%p", &k)
	}
}

func (m *Map) Get(k Value) (Value, bool) {
	h := keyHash(k)
	v, ok := m.vals[h]
	return v, ok
}

func (m *Map) Set(k, v Value) {
	h := keyHash(k)
	if _, exists := m.vals[h]; !exists {
		m.index[h] = len(m.order)
		m.order = append(m.order, k)
	}
	m.vals[h] = v
}

func (m *Map) Delete(k Value) {
	h := keyHash(k)
	idx, ok := m.index[h]
	if !ok {
		return
	}
	m.order = append(m.order[:idx], m.order[idx+1:]...)
	delete(m.vals, h)
	delete(m.index, h)
	for i := idx; i < len(m.order); i++ {
		m.index[keyHash(m.order[i])] = i
	}
}

func (m *Map) Len() int { return len(m.order) }

func (m *Map) Keys() []Value {
	out := make([]Value, len(m.order))
	copy(out, m.order)
	return out
}

func (m *Map) Values() []Value {
	out := make([]Value, len(m.order))
	for i, k := range m.order {
		out[i] = m.vals[keyHash(k)]
	}
	return out
}

func (m *Map) Items() [][2]Value {
	out := make([][2]Value, len(m.order))
	for i, k := range m.order {
		out[i] = [2]Value{k, m.vals[keyHash(k)]}
	}
	return out
}

func (m *Map) repr() string {
	parts := make([]string, 0, len(m.order))
	for _, k := range m.order {
		v := m.vals[keyHash(k)]
		parts = append(parts, k.Repr()+": "+v.Repr())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// SortKeys returns the map's keys sorted by their canonical hash, used by
// the sort builtin when applied to a map (sorts keys, not values).
func (m *Map) SortKeys() []Value {
	keys := m.Keys()
	sort.Slice(keys, func(i, j int) bool {
		return keyHash(keys[i]) < keyHash(keys[j])
	})
	return keys
}
