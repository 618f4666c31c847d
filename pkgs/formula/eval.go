package formula

import (
	"github.com/aledsdavies/skelc/pkgs/evalctx"
	"github.com/aledsdavies/skelc/pkgs/serr"
	"github.com/aledsdavies/skelc/pkgs/value"
)

// Evaluate walks a post-processed formula tree and returns its value, per
// spec.md §4.6.
func Evaluate(n *Node, ctx *evalctx.Context) (value.Value, error) {
	v, err := eval(n, ctx)
	if err != nil {
		return value.Undefined(), serr.WithLocation(err, n.Loc)
	}
	return v, nil
}

func eval(n *Node, ctx *evalctx.Context) (value.Value, error) {
	switch n.Kind {
	case KLiteral:
		return n.Lit, nil

	case KName:
		v, ok := ctx.GetVar(n.Name)
		if !ok {
			return value.Undefined(), serr.NewEvalError(serr.ReferenceError, n.Loc, "undefined name %q", n.Name)
		}
		return v, nil

	case KLoopVar:
		return evalLoopVar(n, ctx)

	case KUnary:
		return evalUnary(n, ctx)

	case KBinary:
		return evalBinary(n, ctx)

	case KAssign:
		return evalAssign(n, ctx)

	case KTernary:
		cond, err := eval(n.Cond, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		if cond.Truthy() {
			return eval(n.Then, ctx)
		}
		return eval(n.Else, ctx)

	case KIndex:
		recv, err := eval(n.Recv, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		key, err := eval(n.Key, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		v, err := recv.Get(key)
		if err != nil {
			return value.Undefined(), wrapOp(serr.IndexError, n.Loc, err)
		}
		return v, nil

	case KMember:
		// A member node only has evaluable semantics as a call's callee
		// (bound to a method at post-process time); encountered bare, it
		// has no field-access model in this value system.
		return value.Undefined(), serr.NewEvalError(serr.TypeError, n.Loc, "member access %q is not callable as a value", n.Name)

	case KScopeRes:
		// Open Question resolution (SPEC_FULL.md §5.3): no namespace/pointer
		// concept exists, so `::` has no value-level semantics.
		return value.Undefined(), serr.NewEvalError(serr.TypeError, n.Loc, "scope resolution has no value")

	case KCall:
		return evalCall(n, ctx)

	case KFilter:
		return evalFilter(n, ctx)

	case KVector:
		items := make([]value.Value, len(n.Args))
		for i, a := range n.Args {
			v, err := eval(a, ctx)
			if err != nil {
				return value.Undefined(), err
			}
			items[i] = v
		}
		return value.Vector(items), nil

	case KMap:
		m := value.NewMap()
		ref := m.MapRef()
		for i := range n.Args {
			k, err := eval(n.MapKeys[i], ctx)
			if err != nil {
				return value.Undefined(), err
			}
			v, err := eval(n.Args[i], ctx)
			if err != nil {
				return value.Undefined(), err
			}
			ref.Set(k, v)
		}
		return m, nil

	default:
		return value.Undefined(), serr.NewEvalError(serr.TypeError, n.Loc, "unhandled node kind %d", n.Kind)
	}
}

func wrapOp(kind serr.ErrorKind, loc serr.Location, err error) error {
	return serr.NewEvalError(kind, loc, "%s", err.Error())
}

func evalLoopVar(n *Node, ctx *evalctx.Context) (value.Value, error) {
	// LoopDepth counts the '$' signs ($i is 1); LoopFrameAt counts from 0.
	frame, ok := ctx.LoopFrameAt(n.LoopDepth - 1)
	if !ok {
		return value.Undefined(), serr.NewEvalError(serr.ReferenceError, n.Loc, "loop variable %q used outside a loop", n.Name)
	}
	switch n.Name {
	case "i", "count", "":
		return value.Int(int64(frame.Iteration)), nil
	case "first":
		return value.Bool(frame.First()), nil
	case "last":
		return value.Bool(frame.Last()), nil
	case "size", "length":
		if !frame.HasTotal {
			return value.Undefined(), nil
		}
		return value.Int(int64(frame.Total)), nil
	default:
		return value.Undefined(), serr.NewEvalError(serr.ReferenceError, n.Loc, "unknown loop variable suffix %q", n.Name)
	}
}

func evalUnary(n *Node, ctx *evalctx.Context) (value.Value, error) {
	switch n.Op {
	case TPlusPlus, TMinusMinus:
		old, err := eval(n.Rhs, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		delta := value.Int(1)
		if n.Op == TMinusMinus {
			delta = value.Int(-1)
		}
		next, err := old.Add(delta)
		if err != nil {
			return value.Undefined(), wrapOp(serr.TypeError, n.Loc, err)
		}
		if err := assignPlace(n.Rhs, next, ctx); err != nil {
			return value.Undefined(), err
		}
		return next, nil
	}

	rhs, err := eval(n.Rhs, ctx)
	if err != nil {
		return value.Undefined(), err
	}
	switch n.Op {
	case TPlus:
		v, err := rhs.Pos()
		return v, wrapOpOrNil(serr.TypeError, n.Loc, err)
	case TMinus:
		v, err := rhs.Neg()
		return v, wrapOpOrNil(serr.TypeError, n.Loc, err)
	case TBang:
		return rhs.Not(), nil
	case TTilde:
		v, err := rhs.BitNot()
		return v, wrapOpOrNil(serr.TypeError, n.Loc, err)
	default:
		return value.Undefined(), serr.NewEvalError(serr.TypeError, n.Loc, "unsupported unary operator %s", n.Op)
	}
}

func wrapOpOrNil(kind serr.ErrorKind, loc serr.Location, err error) error {
	if err == nil {
		return nil
	}
	return wrapOp(kind, loc, err)
}

func evalBinary(n *Node, ctx *evalctx.Context) (value.Value, error) {
	// Short-circuit operators (spec.md §4.6): the RHS's sub-expressions must
	// not execute at all when short-circuited.
	if n.Op == TAndAnd {
		lhs, err := eval(n.Lhs, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		if !lhs.Truthy() {
			return lhs, nil
		}
		return eval(n.Rhs, ctx)
	}
	if n.Op == TOrOr {
		lhs, err := eval(n.Lhs, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		if lhs.Truthy() {
			return lhs, nil
		}
		return eval(n.Rhs, ctx)
	}

	lhs, err := eval(n.Lhs, ctx)
	if err != nil {
		return value.Undefined(), err
	}
	rhs, err := eval(n.Rhs, ctx)
	if err != nil {
		return value.Undefined(), err
	}
	return applyBinary(n.Op, lhs, rhs, n.Loc)
}

func applyBinary(op TokenType, lhs, rhs value.Value, loc serr.Location) (value.Value, error) {
	var v value.Value
	var err error
	switch op {
	case TPlus:
		v, err = lhs.Add(rhs)
	case TMinus:
		v, err = lhs.Sub(rhs)
	case TStar:
		v, err = lhs.Mul(rhs)
	case TSlash:
		v, err = lhs.Div(rhs)
	case TPercent:
		v, err = lhs.Mod(rhs)
	case TStarStar:
		v, err = lhs.Pow(rhs)
	case TAmp:
		v, err = lhs.BitAnd(rhs)
	case TPipe:
		v, err = lhs.BitOr(rhs)
	case TCaret:
		v, err = lhs.BitXor(rhs)
	case TShl:
		v, err = lhs.Shl(rhs)
	case TShr:
		v, err = lhs.Shr(rhs)
	case TEq:
		b, e := lhs.Eq(rhs)
		return value.Bool(b), wrapOpOrNil(serr.TypeError, loc, e)
	case TNe:
		b, e := lhs.Ne(rhs)
		return value.Bool(b), wrapOpOrNil(serr.TypeError, loc, e)
	case TLt:
		b, e := lhs.Lt(rhs)
		return value.Bool(b), wrapOpOrNil(serr.TypeError, loc, e)
	case TLe:
		b, e := lhs.Le(rhs)
		return value.Bool(b), wrapOpOrNil(serr.TypeError, loc, e)
	case TGt:
		b, e := lhs.Gt(rhs)
		return value.Bool(b), wrapOpOrNil(serr.TypeError, loc, e)
	case TGe:
		b, e := lhs.Ge(rhs)
		return value.Bool(b), wrapOpOrNil(serr.TypeError, loc, e)
	case TSpaceship:
		c, e := lhs.Compare(rhs)
		return value.Int(int64(c)), wrapOpOrNil(serr.TypeError, loc, e)
	case TDotStar, TArrowStar:
		return value.Undefined(), serr.NewEvalError(serr.TypeError, loc, "%s has no value-level semantics", op)
	default:
		return value.Undefined(), serr.NewEvalError(serr.TypeError, loc, "unsupported binary operator %s", op)
	}
	return v, wrapOpOrNil(serr.TypeError, loc, err)
}

func evalAssign(n *Node, ctx *evalctx.Context) (value.Value, error) {
	var rhs value.Value
	var err error

	if n.Lhs.Kind == KVector {
		// Unpacking assign: [a, b, ...] = expr (spec.md §4.1, §8 property 5).
		rhs, err = eval(n.Rhs, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		if !rhs.IsVector() {
			return value.Undefined(), serr.NewEvalError(serr.UnpackError, n.Loc, "unpacking assignment requires a vector RHS, got %s", rhs.TypeName())
		}
		items := rhs.Vec()
		if len(items) != len(n.Lhs.Args) {
			return value.Undefined(), serr.NewEvalError(serr.UnpackError, n.Loc, "unpacking length mismatch: %d targets, %d values", len(n.Lhs.Args), len(items))
		}
		for i, target := range n.Lhs.Args {
			if err := assignPlace(target, items[i], ctx); err != nil {
				return value.Undefined(), err
			}
		}
		return rhs, nil
	}

	rhsVal, err := eval(n.Rhs, ctx)
	if err != nil {
		return value.Undefined(), err
	}

	final := rhsVal
	if n.Op != TAssign {
		cur, err := eval(n.Lhs, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		final, err = applyBinary(n.Op, cur, rhsVal, n.Loc)
		if err != nil {
			return value.Undefined(), err
		}
	}
	if err := assignPlace(n.Lhs, final, ctx); err != nil {
		return value.Undefined(), err
	}
	return final, nil
}

// assignPlace implements the source's evaluate_place translated into an
// explicit write-back (spec.md §9): it recurses down an lvalue expression,
// writing the new value into a name, a vector element, or a map entry.
// Because vector Set may reallocate past capacity, each level must write the
// (possibly new) container back into its own parent.
func assignPlace(target *Node, v value.Value, ctx *evalctx.Context) error {
	switch target.Kind {
	case KName:
		ctx.SetVar(target.Name, v)
		return nil

	case KIndex:
		recv, err := eval(target.Recv, ctx)
		if err != nil {
			return err
		}
		key, err := eval(target.Key, ctx)
		if err != nil {
			return err
		}
		updated, err := recv.Set(key, v)
		if err != nil {
			return wrapOp(serr.IndexError, target.Loc, err)
		}
		// updated may be a different Value header than recv (vector growth);
		// write it back into whatever holds recv.
		return assignPlace(target.Recv, updated, ctx)

	default:
		return serr.NewEvalError(serr.AssignError, target.Loc, "expression is not assignable")
	}
}

func evalCall(n *Node, ctx *evalctx.Context) (value.Value, error) {
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := eval(a, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		args[i] = v
	}

	if n.Callee.Kind == KMember {
		if n.BoundMethod == nil {
			return value.Undefined(), serr.NewEvalError(serr.ReferenceError, n.Loc, "method %q was not bound during post-process", n.Callee.Name)
		}
		recv, err := eval(n.Callee.Recv, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		result, err := n.BoundMethod(ctx, &recv, args)
		if err != nil {
			return value.Undefined(), wrapOp(serr.TypeError, n.Loc, err)
		}
		// The method may have mutated recv in place (e.g. append); write it
		// back to its storage location the same way an index assign would.
		if werr := assignPlace(n.Callee.Recv, recv, ctx); werr != nil {
			if ee, ok := werr.(*serr.EvalError); !ok || ee.Kind != serr.AssignError {
				return value.Undefined(), werr
			}
			// Receiver wasn't an lvalue (e.g. a literal or call result):
			// mutation is observable only through the returned result.
		}
		return result, nil
	}

	if n.BoundFunction == nil {
		return value.Undefined(), serr.NewEvalError(serr.ReferenceError, n.Loc, "function %q was not bound during post-process", n.Name)
	}
	result, err := n.BoundFunction(ctx, args)
	if err != nil {
		return value.Undefined(), wrapOp(serr.TypeError, n.Loc, err)
	}
	return result, nil
}

func evalFilter(n *Node, ctx *evalctx.Context) (value.Value, error) {
	recv, err := eval(n.Recv, ctx)
	if err != nil {
		return value.Undefined(), err
	}
	if !recv.IsString() {
		return value.Undefined(), serr.NewEvalError(serr.FilterError, n.Loc, "filter %q requires a string, got %s", n.Name, recv.TypeName())
	}
	if n.BoundFilter == nil {
		return value.Undefined(), serr.NewEvalError(serr.ReferenceError, n.Loc, "filter %q was not bound during post-process", n.Name)
	}
	out, err := n.BoundFilter(recv.Str())
	if err != nil {
		return value.Undefined(), serr.WrapEvalError(serr.FilterError, n.Loc, err, "filter %q failed", n.Name)
	}
	return value.String(out), nil
}
