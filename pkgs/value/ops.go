package value

import (
	"fmt"
	"math"
)

// opError is a small local error used by the ops below; callers in
// pkgs/formula wrap it into a serr.EvalError with location information.
type opError struct {
	msg string
}

func (e *opError) Error() string { return e.msg }

func typeErr(op string, a, b Value) error {
	return &opError{fmt.Sprintf("unsupported operand types for %s: %s and %s", op, a.TypeName(), b.TypeName())}
}

func typeErr1(op string, a Value) error {
	return &opError{fmt.Sprintf("unsupported operand type for %s: %s", op, a.TypeName())}
}

// Add implements +: numeric addition with promotion, string/vector concatenation.
func (v Value) Add(o Value) (Value, error) {
	if v.kind == KindString && o.kind == KindString {
		return String(v.s + o.s), nil
	}
	if v.kind == KindVector && o.kind == KindVector {
		out := make([]Value, 0, len(v.vec)+len(o.vec))
		out = append(out, v.vec...)
		out = append(out, o.vec...)
		return Vector(out), nil
	}
	return numericBinOp("+", v, o,
		func(a, b int64) (Value, error) { return Int(a + b), nil },
		func(a, b float64) (Value, error) { return Float(a + b), nil })
}

func (v Value) Sub(o Value) (Value, error) {
	return numericBinOp("-", v, o,
		func(a, b int64) (Value, error) { return Int(a - b), nil },
		func(a, b float64) (Value, error) { return Float(a - b), nil })
}

// Mul implements *: numeric multiplication, and int*string / int*vector repetition.
func (v Value) Mul(o Value) (Value, error) {
	if v.kind == KindInt && o.kind == KindString {
		return String(repeatString(o.s, v.i)), nil
	}
	if v.kind == KindString && o.kind == KindInt {
		return String(repeatString(v.s, o.i)), nil
	}
	if v.kind == KindInt && o.kind == KindVector {
		return Vector(repeatVector(o.vec, v.i)), nil
	}
	if v.kind == KindVector && o.kind == KindInt {
		return Vector(repeatVector(v.vec, o.i)), nil
	}
	return numericBinOp("*", v, o,
		func(a, b int64) (Value, error) { return Int(a * b), nil },
		func(a, b float64) (Value, error) { return Float(a * b), nil })
}

func repeatString(s string, n int64) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s)*int(n))
	for i := int64(0); i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func repeatVector(v []Value, n int64) []Value {
	if n <= 0 {
		return []Value{}
	}
	out := make([]Value, 0, len(v)*int(n))
	for i := int64(0); i < n; i++ {
		out = append(out, v...)
	}
	return out
}

func (v Value) Div(o Value) (Value, error) {
	return numericBinOp("/", v, o,
		func(a, b int64) (Value, error) {
			if b == 0 {
				return Value{}, &opError{"integer division by zero"}
			}
			return Int(a / b), nil
		},
		func(a, b float64) (Value, error) { return Float(a / b), nil })
}

func (v Value) Mod(o Value) (Value, error) {
	return numericBinOp("%", v, o,
		func(a, b int64) (Value, error) {
			if b == 0 {
				return Value{}, &opError{"integer modulo by zero"}
			}
			return Int(a % b), nil
		},
		func(a, b float64) (Value, error) { return Float(math.Mod(a, b)), nil })
}

func (v Value) Pow(o Value) (Value, error) {
	if v.kind == KindInt && o.kind == KindInt && o.i >= 0 {
		var result int64 = 1
		base := v.i
		exp := o.i
		for exp > 0 {
			if exp&1 == 1 {
				result *= base
			}
			base *= base
			exp >>= 1
		}
		return Int(result), nil
	}
	af, ok1 := v.AsFloat()
	bf, ok2 := o.AsFloat()
	if !ok1 || !ok2 {
		return Value{}, typeErr("**", v, o)
	}
	return Float(math.Pow(af, bf)), nil
}

func numericBinOp(op string, v, o Value, intOp func(a, b int64) (Value, error), floatOp func(a, b float64) (Value, error)) (Value, error) {
	if v.kind == KindInt && o.kind == KindInt {
		return intOp(v.i, o.i)
	}
	af, ok1 := v.AsFloat()
	bf, ok2 := o.AsFloat()
	if !ok1 || !ok2 {
		return Value{}, typeErr(op, v, o)
	}
	return floatOp(af, bf)
}

// Bitwise operators: integer only.
func (v Value) BitAnd(o Value) (Value, error) { return intBinOp("&", v, o, func(a, b int64) int64 { return a & b }) }
func (v Value) BitOr(o Value) (Value, error)  { return intBinOp("|", v, o, func(a, b int64) int64 { return a | b }) }
func (v Value) BitXor(o Value) (Value, error) { return intBinOp("^", v, o, func(a, b int64) int64 { return a ^ b }) }
func (v Value) Shl(o Value) (Value, error)    { return intBinOp("<<", v, o, func(a, b int64) int64 { return a << uint(b) }) }
func (v Value) Shr(o Value) (Value, error)    { return intBinOp(">>", v, o, func(a, b int64) int64 { return a >> uint(b) }) }

func intBinOp(op string, v, o Value, fn func(a, b int64) int64) (Value, error) {
	if v.kind != KindInt || o.kind != KindInt {
		return Value{}, typeErr(op, v, o)
	}
	return Int(fn(v.i, o.i)), nil
}

func (v Value) BitNot() (Value, error) {
	if v.kind != KindInt {
		return Value{}, typeErr1("~", v)
	}
	return Int(^v.i), nil
}

func (v Value) Neg() (Value, error) {
	switch v.kind {
	case KindInt:
		return Int(-v.i), nil
	case KindFloat:
		return Float(-v.f), nil
	default:
		return Value{}, typeErr1("unary -", v)
	}
}

func (v Value) Pos() (Value, error) {
	switch v.kind {
	case KindInt, KindFloat:
		return v, nil
	default:
		return Value{}, typeErr1("unary +", v)
	}
}

// Not is the logical `!` operator: always succeeds, via Truthy.
func (v Value) Not() Value { return Bool(!v.Truthy()) }

// Compare returns -1, 0, 1 for numeric promotion, string, and vector
// (lexicographic) comparisons. Any other pairing is a TypeError.
func (v Value) Compare(o Value) (int, error) {
	if v.kind == KindString && o.kind == KindString {
		switch {
		case v.s < o.s:
			return -1, nil
		case v.s > o.s:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if v.kind == KindVector && o.kind == KindVector {
		for i := 0; i < len(v.vec) && i < len(o.vec); i++ {
			c, err := v.vec[i].Compare(o.vec[i])
			if err != nil {
				return 0, err
			}
			if c != 0 {
				return c, nil
			}
		}
		switch {
		case len(v.vec) < len(o.vec):
			return -1, nil
		case len(v.vec) > len(o.vec):
			return 1, nil
		default:
			return 0, nil
		}
	}
	af, ok1 := v.AsFloat()
	bf, ok2 := o.AsFloat()
	if !ok1 || !ok2 {
		return 0, typeErr("comparison", v, o)
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

// Eq implements == (and, negated, !=). Undefined/Null only equal their own
// kind; everything else that isn't numeric/string/vector-comparable is a
// structural comparison for bool, and recursive for map.
func (v Value) Eq(o Value) (bool, error) {
	if v.kind == KindUndefined || o.kind == KindUndefined {
		return v.kind == o.kind, nil
	}
	if v.kind == KindNull || o.kind == KindNull {
		return v.kind == o.kind, nil
	}
	if v.kind == KindBool || o.kind == KindBool {
		if v.kind != o.kind {
			return false, nil
		}
		return v.b == o.b, nil
	}
	if v.kind == KindMap || o.kind == KindMap {
		if v.kind != KindMap || o.kind != KindMap {
			return false, nil
		}
		return mapsEqual(v.m, o.m)
	}
	c, err := v.Compare(o)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

func mapsEqual(a, b *Map) (bool, error) {
	if a.Len() != b.Len() {
		return false, nil
	}
	for _, item := range a.Items() {
		bv, ok := b.Get(item[0])
		if !ok {
			return false, nil
		}
		eq, err := item[1].Eq(bv)
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

func (v Value) Ne(o Value) (bool, error) {
	eq, err := v.Eq(o)
	return !eq, err
}

func (v Value) Lt(o Value) (bool, error) { c, err := v.Compare(o); return c < 0, err }
func (v Value) Le(o Value) (bool, error) { c, err := v.Compare(o); return c <= 0, err }
func (v Value) Gt(o Value) (bool, error) { c, err := v.Compare(o); return c > 0, err }
func (v Value) Ge(o Value) (bool, error) { c, err := v.Compare(o); return c >= 0, err }

// Len implements the `len` capability over string/vector/map.
func (v Value) Len() (int, error) {
	switch v.kind {
	case KindString:
		return len(v.s), nil
	case KindVector:
		return len(v.vec), nil
	case KindMap:
		return v.m.Len(), nil
	default:
		return 0, typeErr1("len", v)
	}
}

// Get implements indexing read: v[k].
func (v Value) Get(k Value) (Value, error) {
	switch v.kind {
	case KindVector:
		if k.kind != KindInt {
			return Value{}, &opError{fmt.Sprintf("vector index must be integer, got %s", k.TypeName())}
		}
		idx := k.i
		if idx < 0 || idx >= int64(len(v.vec)) {
			return Value{}, &opError{fmt.Sprintf("index %d out of range (len %d)", idx, len(v.vec))}
		}
		return v.vec[idx], nil
	case KindMap:
		if val, ok := v.m.Get(k); ok {
			return val, nil
		}
		return Undefined(), nil
	case KindString:
		if k.kind != KindInt {
			return Value{}, &opError{fmt.Sprintf("string index must be integer, got %s", k.TypeName())}
		}
		idx := k.i
		if idx < 0 || idx >= int64(len(v.s)) {
			return Value{}, &opError{fmt.Sprintf("index %d out of range (len %d)", idx, len(v.s))}
		}
		return Int(int64(v.s[idx])), nil
	default:
		return Value{}, typeErr1("indexing", v)
	}
}

// Set implements indexed assignment: v[k] = val. It returns the (possibly
// reallocated) container; callers must write the result back to wherever v
// itself lives, since a vector growing past capacity allocates a new
// backing array.
func (v Value) Set(k, val Value) (Value, error) {
	switch v.kind {
	case KindVector:
		if k.kind != KindInt {
			return Value{}, &opError{fmt.Sprintf("vector index must be integer, got %s", k.TypeName())}
		}
		idx := k.i
		switch {
		case idx >= 0 && idx < int64(len(v.vec)):
			v.vec[idx] = val
			return v, nil
		case idx == int64(len(v.vec)):
			return Vector(append(v.vec, val)), nil
		default:
			return Value{}, &opError{fmt.Sprintf("index %d out of range (len %d)", idx, len(v.vec))}
		}
	case KindMap:
		v.m.Set(k, val)
		return v, nil
	default:
		return Value{}, typeErr1("index assignment", v)
	}
}

// Keys/Values/Items are available for both vectors (index-based) and maps.
func (v Value) Keys() (Value, error) {
	switch v.kind {
	case KindMap:
		return Vector(v.m.Keys()), nil
	case KindVector:
		out := make([]Value, len(v.vec))
		for i := range v.vec {
			out[i] = Int(int64(i))
		}
		return Vector(out), nil
	default:
		return Value{}, typeErr1("keys", v)
	}
}

func (v Value) Values() (Value, error) {
	switch v.kind {
	case KindMap:
		return Vector(v.m.Values()), nil
	case KindVector:
		out := make([]Value, len(v.vec))
		copy(out, v.vec)
		return Vector(out), nil
	default:
		return Value{}, typeErr1("values", v)
	}
}

func (v Value) Items() (Value, error) {
	switch v.kind {
	case KindMap:
		items := v.m.Items()
		out := make([]Value, len(items))
		for i, it := range items {
			out[i] = Vector([]Value{it[0], it[1]})
		}
		return Vector(out), nil
	case KindVector:
		out := make([]Value, len(v.vec))
		for i, e := range v.vec {
			out[i] = Vector([]Value{Int(int64(i)), e})
		}
		return Vector(out), nil
	default:
		return Value{}, typeErr1("items", v)
	}
}

// Contains implements `contains` over map (key) and vector (element);
// substring search over string.
func (v Value) Contains(x Value) (bool, error) {
	switch v.kind {
	case KindMap:
		_, ok := v.m.Get(x)
		return ok, nil
	case KindVector:
		for _, e := range v.vec {
			eq, err := e.Eq(x)
			if err != nil {
				return false, err
			}
			if eq {
				return true, nil
			}
		}
		return false, nil
	case KindString:
		if x.kind != KindString {
			return false, typeErr1("contains", x)
		}
		return stringContains(v.s, x.s), nil
	default:
		return false, typeErr1("contains", v)
	}
}

func stringContains(s, sub string) bool {
	if sub == "" {
		return true
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// PushBack mutates *v in place, appending x to a vector (append/push method).
func (v *Value) PushBack(x Value) error {
	if v.kind != KindVector {
		return typeErr1("push_back", *v)
	}
	v.vec = append(v.vec, x)
	return nil
}

// PopBack mutates *v in place, removing and returning the last element.
func (v *Value) PopBack() (Value, error) {
	if v.kind != KindVector {
		return Value{}, typeErr1("pop_back", *v)
	}
	if len(v.vec) == 0 {
		return Value{}, &opError{"pop_back on empty vector"}
	}
	last := v.vec[len(v.vec)-1]
	v.vec = v.vec[:len(v.vec)-1]
	return last, nil
}
