// Package skeleton implements the document-level templating language built
// on top of pkgs/formula (spec.md §2 component 7–8): literal text, `#`
// directives, `${...}` placeholders, and `#include` composition.
package skeleton

import (
	"github.com/aledsdavies/skelc/pkgs/formula"
	"github.com/aledsdavies/skelc/pkgs/registry"
	"github.com/aledsdavies/skelc/pkgs/serr"
)

// StmtKind discriminates the tagged-sum skeleton statement, replacing the
// original source's skeleton_node hierarchy the same way formula.Node
// replaces formula_node (spec.md §9).
type StmtKind int

const (
	SKTop StmtKind = iota
	SKText
	SKExpr
	SKPlaceholder
	SKIf
	SKFor
	SKWhile
	SKDoWhile
	SKFunction
	SKBlock
	SKBreak
	SKContinue
	SKReturn
)

func (k StmtKind) String() string {
	switch k {
	case SKTop:
		return "Top"
	case SKText:
		return "Text"
	case SKExpr:
		return "Expr"
	case SKPlaceholder:
		return "Placeholder"
	case SKIf:
		return "If"
	case SKFor:
		return "For"
	case SKWhile:
		return "While"
	case SKDoWhile:
		return "DoWhile"
	case SKFunction:
		return "Function"
	case SKBlock:
		return "Block"
	case SKBreak:
		return "Break"
	case SKContinue:
		return "Continue"
	case SKReturn:
		return "Return"
	default:
		return "Unknown"
	}
}

// IfBranch is one `#if`/`#elif` condition-and-body pair.
type IfBranch struct {
	Cond *formula.Node
	Body []*Stmt
}

// Stmt is the tagged-union skeleton AST node. Fields are reused across
// variants per Kind, documented alongside each.
type Stmt struct {
	Kind StmtKind
	Loc  serr.Location

	Text string // SKText

	Expr *formula.Node // SKExpr, SKPlaceholder, SKReturn (may be nil), SKFor (sequence), SKWhile/SKDoWhile (condition)

	Branches []IfBranch // SKIf: the `if` branch followed by any `elif` branches
	ElseBody []*Stmt    // SKIf, SKFor: the `else` body, nil if absent

	LoopVar string  // SKFor: the bound name
	Body    []*Stmt // SKFor, SKWhile, SKDoWhile, SKFunction, SKBlock

	Name   string   // SKFunction, SKBlock
	Params []string // SKFunction

	// Bound during post-process (spec.md §4.5); nil until then.
	SelfFn  registry.Function
	SuperFn registry.Function
}

// Tree is a parsed, (optionally) post-processed skeleton document.
type Tree struct {
	Root *Stmt // SKTop, Body holds the top-level statement list
	File string
}
