package formula

import (
	"github.com/aledsdavies/skelc/pkgs/registry"
	"github.com/aledsdavies/skelc/pkgs/serr"
	"github.com/aledsdavies/skelc/pkgs/value"
)

// NodeKind discriminates the tagged-sum Node variant, replacing the
// original source's ~40-class formula_node hierarchy with exhaustive
// pattern matching (spec.md §9).
type NodeKind int

const (
	KLiteral NodeKind = iota
	KName
	KLoopVar
	KUnary
	KBinary
	KAssign   // =, or compound (Op set to the implied binary op)
	KCall
	KIndex
	KMember  // a.b, a->b (treated identically per SPEC_FULL.md §5.3)
	KScopeRes // a::b, parses but evaluates as TypeError (SPEC_FULL.md §5.3)
	KTernary
	KFilter // e ! name
	KVector
	KMap
)

// Node is the tagged-union formula AST node. Fields are reused across
// variants per Kind; see the comment on each field for which kinds use it.
type Node struct {
	Kind NodeKind
	Loc  serr.Location

	Lit value.Value // KLiteral

	Name string // KName, KLoopVar (suffix text), KMember (member name), KCall (callee name when Callee is a KName), KFilter (filter name)

	LoopDepth int // KLoopVar

	Op TokenType // KUnary (incl. prefix ++/--), KBinary, KAssign (implied op, or TAssign for plain =), KMember (TDot or TArrow, printing only)

	// Generic children; meaning depends on Kind:
	//   KUnary:     Rhs (the operand; for ++/-- the operand must be an lvalue)
	//   KBinary:    Lhs, Rhs
	//   KAssign:    Lhs (target), Rhs (value)
	//   KCall:      Callee, Args
	//   KIndex:     Recv (collection), Key
	//   KMember:    Recv
	//   KScopeRes:  Lhs, Rhs
	//   KTernary:   Cond, Then, Else
	//   KFilter:    Recv (the expression being filtered)
	//   KVector:    Args (elements)
	//   KMap:       MapKeys, Args (parallel value list)
	Lhs    *Node
	Rhs    *Node
	Cond   *Node
	Then   *Node
	Else   *Node
	Recv   *Node
	Key    *Node
	Callee *Node
	Args   []*Node
	MapKeys []*Node

	// Bound during post-process (spec.md §4.5); nil until then.
	BoundFunction registry.Function
	BoundMethod   registry.Method
	BoundFilter   registry.Filter
}

func lit(loc serr.Location, v value.Value) *Node {
	return &Node{Kind: KLiteral, Loc: loc, Lit: v}
}
