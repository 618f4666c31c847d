package skeleton

import (
	"log/slog"

	"github.com/aledsdavies/skelc/pkgs/evalctx"
	"github.com/aledsdavies/skelc/pkgs/formula"
	"github.com/aledsdavies/skelc/pkgs/registry"
	"github.com/aledsdavies/skelc/pkgs/serr"
	"github.com/aledsdavies/skelc/pkgs/value"
)

// PostProcess performs the skeleton-level half of spec.md §4.5: every
// #function/#block registers a callable in reg under its name (binding the
// previously registered homonym as super_fn and pushing it onto reg's super
// stack while recursing into the body), and every embedded formula.Node is
// handed to formula.PostProcess for name/method/filter binding. Any
// `#include`d content is already part of tree by this point (spliced in
// during parsing), so it's walked like any other statement.
func PostProcess(tree *Tree, reg *registry.Registry, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &runtime{reg: reg, log: logger}
	return postProcessStmts(tree.Root.Body, rt)
}

func postProcessStmts(stmts []*Stmt, rt *runtime) error {
	for _, s := range stmts {
		if err := postProcessStmt(s, rt); err != nil {
			return err
		}
	}
	return nil
}

func postProcessStmt(s *Stmt, rt *runtime) error {
	switch s.Kind {
	case SKText, SKBreak, SKContinue:
		return nil
	case SKExpr, SKPlaceholder, SKReturn:
		return formula.PostProcess(s.Expr, rt.reg, rt.log)
	case SKIf:
		for _, b := range s.Branches {
			if err := formula.PostProcess(b.Cond, rt.reg, rt.log); err != nil {
				return err
			}
			if err := postProcessStmts(b.Body, rt); err != nil {
				return err
			}
		}
		return postProcessStmts(s.ElseBody, rt)
	case SKFor:
		if err := formula.PostProcess(s.Expr, rt.reg, rt.log); err != nil {
			return err
		}
		if err := postProcessStmts(s.Body, rt); err != nil {
			return err
		}
		return postProcessStmts(s.ElseBody, rt)
	case SKWhile, SKDoWhile:
		if err := formula.PostProcess(s.Expr, rt.reg, rt.log); err != nil {
			return err
		}
		return postProcessStmts(s.Body, rt)
	case SKFunction, SKBlock:
		return postProcessCallable(s, rt)
	default:
		return serr.NewParseError(s.Loc, "post-process: unhandled statement kind %d", s.Kind)
	}
}

// postProcessCallable binds a #function/#block name the way spec.md §4.5
// describes: the previously registered homonym becomes super_fn and is
// pushed onto the super stack for the duration of recursing into the body,
// so a `super()` call inside the body resolves to the prior definition
// rather than to the registration this call is about to make.
func postProcessCallable(s *Stmt, rt *runtime) error {
	prior, hasPrior := rt.reg.PriorFunction(s.Name)
	rt.reg.PushSuper(prior)
	err := postProcessStmts(s.Body, rt)
	rt.reg.PopSuper()
	if err != nil {
		return err
	}
	if hasPrior {
		s.SuperFn = prior
	}
	s.SelfFn = makeCallable(s, rt)
	rt.reg.RegisterFunction(s.Name, s.SelfFn)
	rt.log.Debug("registered skeleton callable", "kind", s.Kind, "name", s.Name, "loc", s.Loc.String())
	return nil
}

// makeCallable closes over s and rt so the registered name, when invoked
// through formula's KCall, runs this node's body against whatever ctx the
// call site is currently rendering with — the reason registry.Function
// takes ctx as a parameter instead of capturing one (spec.md §3). rt itself
// is long-lived and safely shared across every render that reuses this
// registration.
func makeCallable(s *Stmt, rt *runtime) registry.Function {
	return func(ctx *evalctx.Context, args []value.Value) (value.Value, error) {
		if s.Kind == SKFunction && len(args) != len(s.Params) {
			return value.Undefined(), serr.NewEvalError(serr.ArityError, s.Loc,
				"#function %s expects %d argument(s), got %d", s.Name, len(s.Params), len(args))
		}
		ctx.PushScope()
		defer ctx.PopScope()
		for i, p := range s.Params {
			ctx.SetVar(p, args[i])
		}
		if s.Kind == SKFunction {
			// A function produces a value, not text (spec.md §4.6): suspend
			// output for its whole body so any placeholder or nested block
			// it touches leaves the surrounding document unaffected.
			ctx.SuspendOutput()
			defer ctx.ResumeOutput()
		}
		result, _, err := execBody(s.Body, ctx, rt)
		if err != nil {
			return value.Undefined(), err
		}
		return result, nil
	}
}
