package formula

import "strings"

// String renders the canonical, fully-parenthesised form required by
// spec.md §8 property 1: every binary/ternary/assignment operator's operands
// are wrapped in parentheses, so precedence is recoverable from the text
// alone without re-deriving the operator table.
func (n *Node) String() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KLiteral:
		return n.Lit.Repr()
	case KName:
		return n.Name
	case KLoopVar:
		return strings.Repeat("$", n.LoopDepth) + n.Name
	case KUnary:
		return "(" + n.Op.String() + n.Rhs.String() + ")"
	case KBinary:
		return "(" + n.Lhs.String() + " " + n.Op.String() + " " + n.Rhs.String() + ")"
	case KAssign:
		return "(" + n.Lhs.String() + " " + assignOpString(n.Op) + " " + n.Rhs.String() + ")"
	case KScopeRes:
		return "(" + n.Lhs.String() + "::" + n.Rhs.String() + ")"
	case KCall:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = a.String()
		}
		return n.Callee.String() + "(" + strings.Join(parts, ", ") + ")"
	case KIndex:
		return n.Recv.String() + "[" + n.Key.String() + "]"
	case KMember:
		return n.Recv.String() + n.Op.String() + n.Name
	case KTernary:
		return "(" + n.Cond.String() + " ? " + n.Then.String() + " : " + n.Else.String() + ")"
	case KFilter:
		return "(" + n.Recv.String() + " ! " + n.Name + ")"
	case KVector:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = a.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KMap:
		parts := make([]string, len(n.Args))
		for i := range n.Args {
			parts[i] = n.MapKeys[i].String() + ": " + n.Args[i].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<?>"
	}
}

// assignOpString prints the compound-assignment operator's surface spelling
// rather than the implied binary op stored in Node.Op.
func assignOpString(implied TokenType) string {
	switch implied {
	case TAssign:
		return "="
	case TPlus:
		return "+="
	case TMinus:
		return "-="
	case TStar:
		return "*="
	case TSlash:
		return "/="
	case TPercent:
		return "%="
	case TShl:
		return "<<="
	case TShr:
		return ">>="
	case TAmp:
		return "&="
	case TCaret:
		return "^="
	case TPipe:
		return "|="
	default:
		return "="
	}
}
