package builtins

import (
	"time"

	"github.com/aledsdavies/skelc/pkgs/evalctx"
	"github.com/aledsdavies/skelc/pkgs/serr"
	"github.com/aledsdavies/skelc/pkgs/value"
)

// mAppend implements append/push (vector): mutates receiver in place and
// also returns it, so both `v.append(x)` as a statement and as an
// expression behave sensibly.
func mAppend(_ *evalctx.Context, receiver *value.Value, args []value.Value) (value.Value, error) {
	if !receiver.IsVector() {
		return value.Undefined(), typeErr("append", "vector", *receiver)
	}
	if len(args) != 1 {
		return value.Undefined(), arityErr("append", 1, len(args))
	}
	if err := receiver.PushBack(args[0]); err != nil {
		return value.Undefined(), serr.WrapEvalError(serr.TypeError, serr.Location{}, err, "append")
	}
	return *receiver, nil
}

func mPop(_ *evalctx.Context, receiver *value.Value, args []value.Value) (value.Value, error) {
	if !receiver.IsVector() {
		return value.Undefined(), typeErr("pop", "vector", *receiver)
	}
	if len(args) != 0 {
		return value.Undefined(), arityErr("pop", 0, len(args))
	}
	v, err := receiver.PopBack()
	if err != nil {
		return value.Undefined(), serr.WrapEvalError(serr.IndexError, serr.Location{}, err, "pop")
	}
	return v, nil
}

func mContains(_ *evalctx.Context, receiver *value.Value, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Undefined(), arityErr("contains", 1, len(args))
	}
	ok, err := receiver.Contains(args[0])
	if err != nil {
		return value.Undefined(), serr.WrapEvalError(serr.TypeError, serr.Location{}, err, "contains")
	}
	return value.Bool(ok), nil
}

// Date methods operate on a string receiver holding an RFC 3339 timestamp,
// the one concrete date representation this engine's Value carries; spec.md
// §6 makes these conditional on "if the host supplies them" since the
// original hikogui datum has a dedicated date variant this Value type does
// not.
func parseDateReceiver(name string, receiver *value.Value) (time.Time, error) {
	if !receiver.IsString() {
		return time.Time{}, typeErr(name, "RFC 3339 date string", *receiver)
	}
	t, err := time.Parse(time.RFC3339, receiver.Str())
	if err != nil {
		return time.Time{}, serr.WrapEvalError(serr.TypeError, serr.Location{}, err, "%s: not a valid date", name)
	}
	return t, nil
}

func mYear(_ *evalctx.Context, receiver *value.Value, args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return value.Undefined(), arityErr("year", 0, len(args))
	}
	t, err := parseDateReceiver("year", receiver)
	if err != nil {
		return value.Undefined(), err
	}
	return value.Int(int64(t.Year())), nil
}

func mQuarter(_ *evalctx.Context, receiver *value.Value, args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return value.Undefined(), arityErr("quarter", 0, len(args))
	}
	t, err := parseDateReceiver("quarter", receiver)
	if err != nil {
		return value.Undefined(), err
	}
	return value.Int(int64((int(t.Month())-1)/3 + 1)), nil
}

func mMonth(_ *evalctx.Context, receiver *value.Value, args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return value.Undefined(), arityErr("month", 0, len(args))
	}
	t, err := parseDateReceiver("month", receiver)
	if err != nil {
		return value.Undefined(), err
	}
	return value.Int(int64(t.Month())), nil
}

func mDay(_ *evalctx.Context, receiver *value.Value, args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return value.Undefined(), arityErr("day", 0, len(args))
	}
	t, err := parseDateReceiver("day", receiver)
	if err != nil {
		return value.Undefined(), err
	}
	return value.Int(int64(t.Day())), nil
}

// Methods returns the spec.md §6 default method table, keyed by name.
// "append" and "push" are aliases for the same implementation.
func Methods() map[string]func(*evalctx.Context, *value.Value, []value.Value) (value.Value, error) {
	return map[string]func(*evalctx.Context, *value.Value, []value.Value) (value.Value, error){
		"append":   mAppend,
		"push":     mAppend,
		"pop":      mPop,
		"contains": mContains,
		"year":     mYear,
		"quarter":  mQuarter,
		"month":    mMonth,
		"day":      mDay,
	}
}
