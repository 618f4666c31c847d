// Package builtins implements the default function/method/filter table
// named in spec.md §6: float, integer, decimal, string, boolean, size, keys,
// values, items, sort as functions; append/push, pop, contains, year,
// quarter, month, day as methods; id, url as filters.
package builtins

import (
	"sort"
	"strconv"

	"github.com/aledsdavies/skelc/pkgs/evalctx"
	"github.com/aledsdavies/skelc/pkgs/serr"
	"github.com/aledsdavies/skelc/pkgs/value"
)

func arityErr(name string, want, got int) error {
	return serr.NewEvalError(serr.ArityError, serr.Location{}, "%s expects %d argument(s), got %d", name, want, got)
}

func typeErr(name, expected string, got value.Value) error {
	return serr.NewEvalError(serr.TypeError, serr.Location{}, "%s: expected %s, got %s", name, expected, got.TypeName())
}

// None of the built-in functions/methods below need the evaluation context
// (they are pure over their arguments); it is accepted per the
// registry.Function/Method signatures so a #function/#block body — which
// does need it — fits the same table.

func fnFloat(_ *evalctx.Context, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Undefined(), arityErr("float", 1, len(args))
	}
	a := args[0]
	switch {
	case a.IsFloat():
		return a, nil
	case a.IsInt():
		return value.Float(float64(a.Int())), nil
	case a.IsString():
		f, err := strconv.ParseFloat(a.Str(), 64)
		if err != nil {
			return value.Undefined(), serr.WrapEvalError(serr.TypeError, serr.Location{}, err, "float: cannot parse %q", a.Str())
		}
		return value.Float(f), nil
	case a.IsBool():
		if a.Bool() {
			return value.Float(1), nil
		}
		return value.Float(0), nil
	default:
		return value.Undefined(), typeErr("float", "numeric, string, or bool", a)
	}
}

func fnInteger(_ *evalctx.Context, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Undefined(), arityErr("integer", 1, len(args))
	}
	a := args[0]
	switch {
	case a.IsInt():
		return a, nil
	case a.IsFloat():
		return value.Int(int64(a.Float())), nil
	case a.IsString():
		i, err := strconv.ParseInt(a.Str(), 0, 64)
		if err != nil {
			return value.Undefined(), serr.WrapEvalError(serr.TypeError, serr.Location{}, err, "integer: cannot parse %q", a.Str())
		}
		return value.Int(i), nil
	case a.IsBool():
		if a.Bool() {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	default:
		return value.Undefined(), typeErr("integer", "numeric, string, or bool", a)
	}
}

// fnDecimal is distinct from float: the original hikogui datum keeps a
// separate decimal variant for currency-safe arithmetic; this engine's
// Value has no fixed-point type, so decimal() normalizes to a float rounded
// to 2 decimal places, the common case for the values it templated.
func fnDecimal(ctx *evalctx.Context, args []value.Value) (value.Value, error) {
	f, err := fnFloat(ctx, args)
	if err != nil {
		return value.Undefined(), err
	}
	rounded := float64(int64(f.Float()*100+sign(f.Float())*0.5)) / 100
	return value.Float(rounded), nil
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

func fnString(_ *evalctx.Context, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Undefined(), arityErr("string", 1, len(args))
	}
	return value.String(args[0].String()), nil
}

func fnBoolean(_ *evalctx.Context, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Undefined(), arityErr("boolean", 1, len(args))
	}
	return value.Bool(args[0].Truthy()), nil
}

func fnSize(_ *evalctx.Context, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Undefined(), arityErr("size", 1, len(args))
	}
	n, err := args[0].Len()
	if err != nil {
		return value.Undefined(), serr.WrapEvalError(serr.TypeError, serr.Location{}, err, "size")
	}
	return value.Int(int64(n)), nil
}

func fnKeys(_ *evalctx.Context, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Undefined(), arityErr("keys", 1, len(args))
	}
	v, err := args[0].Keys()
	if err != nil {
		return value.Undefined(), serr.WrapEvalError(serr.TypeError, serr.Location{}, err, "keys")
	}
	return v, nil
}

func fnValues(_ *evalctx.Context, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Undefined(), arityErr("values", 1, len(args))
	}
	v, err := args[0].Values()
	if err != nil {
		return value.Undefined(), serr.WrapEvalError(serr.TypeError, serr.Location{}, err, "values")
	}
	return v, nil
}

func fnItems(_ *evalctx.Context, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Undefined(), arityErr("items", 1, len(args))
	}
	v, err := args[0].Items()
	if err != nil {
		return value.Undefined(), serr.WrapEvalError(serr.TypeError, serr.Location{}, err, "items")
	}
	return v, nil
}

// fnSort sorts a copy of a vector's elements (numeric or lexicographic via
// Value.Compare) or a map's keys; the input is never mutated in place,
// matching the free-function (non-receiver) shape in spec.md §6.
func fnSort(_ *evalctx.Context, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Undefined(), arityErr("sort", 1, len(args))
	}
	a := args[0]
	if a.IsMap() {
		return value.Vector(a.MapRef().SortKeys()), nil
	}
	if !a.IsVector() {
		return value.Undefined(), typeErr("sort", "vector or map", a)
	}
	src := a.Vec()
	out := make([]value.Value, len(src))
	copy(out, src)
	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		c, err := out[i].Compare(out[j])
		if err != nil {
			sortErr = err
			return false
		}
		return c < 0
	})
	if sortErr != nil {
		return value.Undefined(), serr.WrapEvalError(serr.TypeError, serr.Location{}, sortErr, "sort")
	}
	return value.Vector(out), nil
}

// Functions returns the spec.md §6 default function table, keyed by name.
func Functions() map[string]func(*evalctx.Context, []value.Value) (value.Value, error) {
	return map[string]func(*evalctx.Context, []value.Value) (value.Value, error){
		"float":   fnFloat,
		"integer": fnInteger,
		"decimal": fnDecimal,
		"string":  fnString,
		"boolean": fnBoolean,
		"size":    fnSize,
		"keys":    fnKeys,
		"values":  fnValues,
		"items":   fnItems,
		"sort":    fnSort,
	}
}
