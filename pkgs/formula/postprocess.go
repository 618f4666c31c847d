package formula

import (
	"log/slog"

	"github.com/aledsdavies/skelc/pkgs/registry"
	"github.com/aledsdavies/skelc/pkgs/serr"
)

// PostProcess performs the depth-first name/member/filter binding pass
// described in spec.md §4.5: every call whose callee is a bare name is
// resolved against reg's function table (honoring `super`), every call whose
// callee is a member access is resolved against the method table, and every
// filter node is resolved against the filter table. Failure to resolve a
// required name is a ParseError at that node's location, with a "did you
// mean" suggestion when a registered name fuzzy-matches it or is within an
// edit distance of 2 (see registry.SuggestFunction).
func PostProcess(n *Node, reg *registry.Registry, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	return postProcess(n, reg, logger)
}

func postProcess(n *Node, reg *registry.Registry, logger *slog.Logger) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KCall:
		if err := postProcess(n.Callee, reg, logger); err != nil {
			return err
		}
		for _, a := range n.Args {
			if err := postProcess(a, reg, logger); err != nil {
				return err
			}
		}
		return bindCall(n, reg, logger)
	case KFilter:
		if err := postProcess(n.Recv, reg, logger); err != nil {
			return err
		}
		fn, ok := reg.LookupFilter(n.Name)
		if !ok {
			return unresolvedErr(n.Loc, "filter", n.Name, suggestFilter(reg, n.Name))
		}
		n.BoundFilter = fn
		return nil
	default:
		for _, child := range []*Node{n.Lhs, n.Rhs, n.Cond, n.Then, n.Else, n.Recv, n.Key, n.Callee} {
			if err := postProcess(child, reg, logger); err != nil {
				return err
			}
		}
		for _, a := range n.Args {
			if err := postProcess(a, reg, logger); err != nil {
				return err
			}
		}
		for _, k := range n.MapKeys {
			if err := postProcess(k, reg, logger); err != nil {
				return err
			}
		}
		return nil
	}
}

// bindCall resolves n.Callee as either a free function (bare-name callee,
// including `super`) or a method (member-access callee, dispatched on the
// receiver at call time).
func bindCall(n *Node, reg *registry.Registry, logger *slog.Logger) error {
	switch n.Callee.Kind {
	case KName:
		fn, ok := reg.LookupFunction(n.Callee.Name)
		if !ok {
			return unresolvedErr(n.Loc, "function", n.Callee.Name, suggestFunction(reg, n.Callee.Name))
		}
		n.BoundFunction = fn
		logger.Debug("bound function call", "name", n.Callee.Name, "loc", n.Loc.String())
		return nil
	case KMember:
		fn, ok := reg.LookupMethod(n.Callee.Name)
		if !ok {
			return unresolvedErr(n.Loc, "method", n.Callee.Name, suggestMethod(reg, n.Callee.Name))
		}
		n.BoundMethod = fn
		return nil
	default:
		// A computed callee (e.g. the result of an index or ternary) has no
		// statically resolvable name; the evaluator must fail there instead.
		return nil
	}
}

func unresolvedErr(loc serr.Location, kind, name string, suggestion string) error {
	msg := "unresolved " + kind + " %q"
	if suggestion != "" {
		msg += " (did you mean %q?)"
		return serr.NewParseError(loc, msg, name, suggestion)
	}
	return serr.NewParseError(loc, msg, name)
}

func suggestFunction(reg *registry.Registry, name string) string {
	s, ok := reg.SuggestFunction(name)
	if !ok {
		return ""
	}
	return s
}

func suggestMethod(reg *registry.Registry, name string) string {
	s, ok := reg.SuggestMethod(name)
	if !ok {
		return ""
	}
	return s
}

func suggestFilter(reg *registry.Registry, name string) string {
	s, ok := reg.SuggestFilter(name)
	if !ok {
		return ""
	}
	return s
}
