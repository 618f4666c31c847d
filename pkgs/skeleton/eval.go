package skeleton

import (
	"log/slog"

	"github.com/aledsdavies/skelc/pkgs/evalctx"
	"github.com/aledsdavies/skelc/pkgs/formula"
	"github.com/aledsdavies/skelc/pkgs/registry"
	"github.com/aledsdavies/skelc/pkgs/serr"
	"github.com/aledsdavies/skelc/pkgs/value"
)

// Render walks tree against ctx, appending literal and placeholder output
// to ctx's buffer and returning the tree's completion value per spec.md
// §4.6: the value of the last top-level statement (Undefined for text,
// placeholders and expression statements). A #break, #continue or #return
// reaching the top level is a ControlFlowError. Any
// `#include`s in tree were already resolved and spliced in during parsing.
func Render(tree *Tree, ctx *evalctx.Context, reg *registry.Registry, logger *slog.Logger) (value.Value, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx.File = tree.File
	rt := &runtime{reg: reg, log: logger}
	v, exited, err := execBody(tree.Root.Body, ctx, rt)
	if err != nil {
		return value.Undefined(), err
	}
	if exited {
		if v.IsBreak() || v.IsContinue() {
			kind := "break"
			if v.IsContinue() {
				kind = "continue"
			}
			return value.Undefined(), serr.NewEvalError(serr.ControlFlowError, tree.Root.Loc, "#%s outside of a loop", kind)
		}
		return value.Undefined(), serr.NewEvalError(serr.ControlFlowError, tree.Root.Loc, "#return outside of a function")
	}
	return v, nil
}

// execBody executes a statement sequence. The returned bool reports whether
// execution stopped early because of a break/continue/return sentinel,
// which the caller (a loop, a function/block call, or Render) must
// interpret — this is the Go-side stand-in for the original's exception
// unwinding (spec.md §9: "Break/Continue/Return are represented as variants
// of the evaluator's return value rather than exceptions").
func execBody(stmts []*Stmt, ctx *evalctx.Context, rt *runtime) (value.Value, bool, error) {
	result := value.Undefined()
	for _, s := range stmts {
		v, exited, err := execStmt(s, ctx, rt)
		if err != nil {
			return value.Undefined(), false, err
		}
		if exited {
			return v, true, nil
		}
		result = v
	}
	return result, false, nil
}

func execStmt(s *Stmt, ctx *evalctx.Context, rt *runtime) (value.Value, bool, error) {
	switch s.Kind {
	case SKText:
		ctx.Write(s.Text)
		return value.Undefined(), false, nil

	case SKExpr:
		v, err := formula.Evaluate(s.Expr, ctx)
		if err != nil {
			return value.Undefined(), false, err
		}
		if v.IsBreak() || v.IsContinue() {
			return v, true, nil
		}
		return value.Undefined(), false, nil

	case SKPlaceholder:
		mark := ctx.Mark()
		v, err := formula.Evaluate(s.Expr, ctx)
		if err != nil {
			ctx.Rewind(mark)
			return value.Undefined(), false, err
		}
		ctx.Write(v.String())
		return value.Undefined(), false, nil

	case SKIf:
		return execIf(s, ctx, rt)

	case SKFor:
		return execFor(s, ctx, rt)

	case SKWhile:
		return execWhile(s, ctx, rt)

	case SKDoWhile:
		return execDoWhile(s, ctx, rt)

	case SKFunction:
		// Registration already happened during post-process; reaching the
		// declaration site while rendering produces nothing.
		return value.Undefined(), false, nil

	case SKBlock:
		return execBlock(s, ctx, rt)

	case SKBreak:
		return value.BreakValue(), true, nil

	case SKContinue:
		return value.ContinueValue(), true, nil

	case SKReturn:
		if s.Expr == nil {
			return value.Undefined(), true, nil
		}
		v, err := formula.Evaluate(s.Expr, ctx)
		if err != nil {
			return value.Undefined(), false, err
		}
		return v, true, nil

	default:
		return value.Undefined(), false, serr.NewEvalError(serr.TypeError, s.Loc, "unhandled statement kind %d", s.Kind)
	}
}

// execIf evaluates branches in order, running the first whose condition is
// truthy, falling back to ElseBody (spec.md §4.6).
func execIf(s *Stmt, ctx *evalctx.Context, rt *runtime) (value.Value, bool, error) {
	for _, b := range s.Branches {
		cond, err := formula.Evaluate(b.Cond, ctx)
		if err != nil {
			return value.Undefined(), false, err
		}
		if cond.Truthy() {
			return execBody(b.Body, ctx, rt)
		}
	}
	if s.ElseBody != nil {
		return execBody(s.ElseBody, ctx, rt)
	}
	return value.Undefined(), false, nil
}

// execFor implements spec.md §4.6's for-loop: a fresh scope and loop frame
// per element, output rolled back to the iteration's starting length when a
// return aborts it (a `break`/`continue` keeps the iteration's output), and
// the `else` body run instead for a zero-length sequence.
func execFor(s *Stmt, ctx *evalctx.Context, rt *runtime) (value.Value, bool, error) {
	seq, err := formula.Evaluate(s.Expr, ctx)
	if err != nil {
		return value.Undefined(), false, err
	}
	if !seq.IsVector() {
		return value.Undefined(), false, serr.NewEvalError(serr.TypeError, s.Loc, "#for sequence must be a vector, got %s", seq.TypeName())
	}
	items := seq.Vec()
	if len(items) == 0 {
		if s.ElseBody != nil {
			return execBody(s.ElseBody, ctx, rt)
		}
		return value.Undefined(), false, nil
	}

	ctx.PushLoop(len(items), true)
	defer ctx.PopLoop()

	for i, item := range items {
		mark := ctx.Mark()
		ctx.PushScope()
		ctx.SetVar(s.LoopVar, item)
		v, exited, err := execBody(s.Body, ctx, rt)
		ctx.PopScope()
		if err != nil {
			return value.Undefined(), false, err
		}
		if exited {
			if v.IsBreak() {
				return value.Undefined(), false, nil
			}
			if v.IsContinue() {
				ctx.AdvanceLoop()
				continue
			}
			// A non-undefined #return propagates out; this iteration's
			// partial output never happened as far as the caller sees.
			ctx.Rewind(mark)
			return v, true, nil
		}
		if i < len(items)-1 {
			ctx.AdvanceLoop()
		}
	}
	return value.Undefined(), false, nil
}

func execWhile(s *Stmt, ctx *evalctx.Context, rt *runtime) (value.Value, bool, error) {
	ctx.PushLoop(0, false)
	defer ctx.PopLoop()

	for {
		cond, err := formula.Evaluate(s.Expr, ctx)
		if err != nil {
			return value.Undefined(), false, err
		}
		if !cond.Truthy() {
			return value.Undefined(), false, nil
		}
		mark := ctx.Mark()
		ctx.PushScope()
		v, exited, err := execBody(s.Body, ctx, rt)
		ctx.PopScope()
		if err != nil {
			return value.Undefined(), false, err
		}
		if exited {
			if v.IsBreak() {
				return value.Undefined(), false, nil
			}
			if v.IsContinue() {
				ctx.AdvanceLoop()
				continue
			}
			ctx.Rewind(mark)
			return v, true, nil
		}
		ctx.AdvanceLoop()
	}
}

func execDoWhile(s *Stmt, ctx *evalctx.Context, rt *runtime) (value.Value, bool, error) {
	ctx.PushLoop(0, false)
	defer ctx.PopLoop()

	for {
		mark := ctx.Mark()
		ctx.PushScope()
		v, exited, err := execBody(s.Body, ctx, rt)
		ctx.PopScope()
		if err != nil {
			return value.Undefined(), false, err
		}
		if exited {
			if v.IsBreak() {
				return value.Undefined(), false, nil
			}
			if !v.IsContinue() {
				ctx.Rewind(mark)
				return v, true, nil
			}
			// Continue: fall through to the trailing condition check below,
			// same as a C-style `do { ... } while (cond);`.
		}
		ctx.AdvanceLoop()
		cond, err := formula.Evaluate(s.Expr, ctx)
		if err != nil {
			return value.Undefined(), false, err
		}
		if !cond.Truthy() {
			return value.Undefined(), false, nil
		}
	}
}

// execBlock implements the "directly encountering a block statement
// invokes the current binding" rule (spec.md §4.6): it dispatches through
// rt.reg, not s.SelfFn directly, so an #include'd redefinition that
// registered after this node was parsed still wins.
func execBlock(s *Stmt, ctx *evalctx.Context, rt *runtime) (value.Value, bool, error) {
	fn, ok := rt.reg.LookupFunction(s.Name)
	if !ok {
		return value.Undefined(), false, serr.NewEvalError(serr.ReferenceError, s.Loc, "block %q has no registered binding", s.Name)
	}
	v, err := fn(ctx, nil)
	if err != nil {
		return value.Undefined(), false, err
	}
	return v, false, nil
}
