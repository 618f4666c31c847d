package formula

import (
	"log/slog"

	"github.com/aledsdavies/skelc/pkgs/serr"
	"github.com/aledsdavies/skelc/pkgs/value"
)

// Parser is a precedence-climbing parser over a formula token stream,
// grounded on spec.md §4.4. Unlike the teacher's recursive-descent,
// keyword-driven lexer.Lexer/parser.Parser pair (shell command grammar), this
// parser is a textbook Pratt parser because §4.4 specifies operator
// precedence as an explicit contract to implement, not a grammar to imitate
// structurally.
type Parser struct {
	lex    *Lexer
	cur    Token
	log    *slog.Logger
	file   string
}

// stopTokens are the set the entry point parses up to without consuming,
// per spec.md §4.4: "Entry point parses until one of EOF, ), ,, }, ], :".
func isStopToken(t TokenType) bool {
	switch t {
	case TEOF, TRParen, TComma, TRBrace, TRBracket, TColon:
		return true
	}
	return false
}

// NewParser tokenizes nothing up front; Parse drives the lexer incrementally.
func NewParser(source, file string, logger *slog.Logger) (*Parser, error) {
	return NewParserAt(source, file, 1, 1, logger)
}

// NewParserAt is like NewParser but starts location tracking at the given
// line/column (see NewLexerAt).
func NewParserAt(source, file string, line, col int, logger *slog.Logger) (*Parser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lex, err := NewLexerAt(source, file, line, col)
	if err != nil {
		return nil, err
	}
	p := &Parser{lex: lex, log: logger, file: file}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) expect(t TokenType) (Token, error) {
	if p.cur.Type != t {
		return Token{}, serr.NewParseError(p.cur.Loc, "expected %s, got %s", t, p.cur.Type)
	}
	tok := p.cur
	err := p.advance()
	return tok, err
}

// Parse parses a complete formula from source and returns its root node.
func Parse(source, file string, logger *slog.Logger) (*Node, error) {
	return ParseAt(source, file, 1, 1, logger)
}

// ParseAt is like Parse but starts location tracking at the given
// line/column (see NewLexerAt). Used by pkgs/skeleton for directive
// expressions and placeholders so errors point at the right place in the
// enclosing document.
func ParseAt(source, file string, line, col int, logger *slog.Logger) (*Node, error) {
	p, err := NewParserAt(source, file, line, col, logger)
	if err != nil {
		return nil, err
	}
	n, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TEOF {
		return nil, serr.NewParseError(p.cur.Loc, "unexpected trailing token %s after expression", p.cur.Type)
	}
	return n, nil
}

// ParseExpression parses one expression at the loosest precedence level
// (ternary/assignment), stopping at a terminator per spec.md §4.4.
func (p *Parser) ParseExpression() (*Node, error) {
	return p.parseExpr(PAssign)
}

// parseExpr implements precedence climbing. maxPrec is the loosest
// precedence an infix operator may have to be consumed at this level
// (lower Precedence values bind tighter, per precedence.go).
func (p *Parser) parseExpr(maxPrec Precedence) (*Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		if isStopToken(p.cur.Type) {
			return left, nil
		}
		prec, ok := infixPrecedence(p.cur.Type)
		if !ok || prec > maxPrec {
			return left, nil
		}

		op := p.cur
		switch {
		case op.Type == TLParen:
			left, err = p.parseCall(left)
		case op.Type == TLBracket:
			left, err = p.parseIndex(left)
		case op.Type == TDot || op.Type == TArrow:
			left, err = p.parseMember(left, op.Type)
		case op.Type == TBang:
			left, err = p.parseFilter(left)
		case op.Type == TQuestion:
			left, err = p.parseTernary(left)
		case isAssignOp(op.Type):
			left, err = p.parseAssign(left, op)
		case op.Type == TColonColon:
			left, err = p.parseScopeRes(left, op)
		default:
			left, err = p.parseBinary(left, op, prec)
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseBinary(left *Node, op Token, prec Precedence) (*Node, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	rhsMax := prec - 1
	if rightAssoc[op.Type] {
		rhsMax = prec
	}
	rhs, err := p.parseExpr(rhsMax)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KBinary, Loc: op.Loc, Op: op.Type, Lhs: left, Rhs: rhs}, nil
}

func (p *Parser) parseScopeRes(left *Node, op Token) (*Node, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr(PScopeRes - 1)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KScopeRes, Loc: op.Loc, Lhs: left, Rhs: rhs}, nil
}

func (p *Parser) parseAssign(left *Node, op Token) (*Node, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr(PAssign)
	if err != nil {
		return nil, err
	}
	impliedOp := TAssign
	if o, ok := compoundOp(op.Type); ok {
		impliedOp = o
	}
	return &Node{Kind: KAssign, Loc: op.Loc, Op: impliedOp, Lhs: left, Rhs: rhs}, nil
}

func (p *Parser) parseTernary(cond *Node) (*Node, error) {
	quest := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	then, err := p.parseExpr(PAssign)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TColon); err != nil {
		return nil, err
	}
	els, err := p.parseExpr(PAssign)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KTernary, Loc: quest.Loc, Cond: cond, Then: then, Else: els}, nil
}

func (p *Parser) parseFilter(recv *Node) (*Node, error) {
	bang := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.expect(TName)
	if err != nil {
		return nil, serr.NewParseError(bang.Loc, "expected filter name after '!'")
	}
	return &Node{Kind: KFilter, Loc: bang.Loc, Recv: recv, Name: name.Str}, nil
}

func (p *Parser) parseMember(recv *Node, opType TokenType) (*Node, error) {
	dot := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.expect(TName)
	if err != nil {
		return nil, serr.NewParseError(dot.Loc, "expected member name after '%s'", opType)
	}
	return &Node{Kind: KMember, Loc: dot.Loc, Op: opType, Recv: recv, Name: name.Str}, nil
}

func (p *Parser) parseIndex(recv *Node) (*Node, error) {
	lb := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	key, err := p.parseExpr(PAssign)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TRBracket); err != nil {
		return nil, err
	}
	return &Node{Kind: KIndex, Loc: lb.Loc, Recv: recv, Key: key}, nil
}

func (p *Parser) parseCall(callee *Node) (*Node, error) {
	lp := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	var args []*Node
	for p.cur.Type != TRParen {
		arg, err := p.parseExpr(PAssign)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Type == TComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(TRParen); err != nil {
		return nil, err
	}
	name := ""
	if callee.Kind == KName {
		name = callee.Name
	}
	return &Node{Kind: KCall, Loc: lp.Loc, Callee: callee, Args: args, Name: name}, nil
}

// parseUnary parses a primary expression, preceded by zero or more prefix
// unary operators (spec.md §4.3 level 3, right-associative: "!!x" parses as
// "!(!(x))"). An operator's operand includes any postfix operators, which
// bind tighter: "-a[0]" parses as "-(a[0])".
func (p *Parser) parseUnary() (*Node, error) {
	switch p.cur.Type {
	case TPlus, TMinus, TBang, TTilde, TPlusPlus, TMinusMinus:
		op := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpr(PPostfix)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KUnary, Loc: op.Loc, Op: op.Type, Rhs: rhs}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (*Node, error) {
	tok := p.cur
	switch tok.Type {
	case TInt:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return lit(tok.Loc, value.Int(tok.Int)), nil
	case TFloat:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return lit(tok.Loc, value.Float(tok.Float)), nil
	case TString:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return lit(tok.Loc, value.String(tok.Str)), nil
	case TLoopVar:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Node{Kind: KLoopVar, Loc: tok.Loc, Name: tok.Str, LoopDepth: tok.LoopDepth}, nil
	case TName:
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch tok.Str {
		case "true":
			return lit(tok.Loc, value.Bool(true)), nil
		case "false":
			return lit(tok.Loc, value.Bool(false)), nil
		case "null":
			return lit(tok.Loc, value.Null()), nil
		case "undefined":
			return lit(tok.Loc, value.Undefined()), nil
		default:
			return &Node{Kind: KName, Loc: tok.Loc, Name: tok.Str}, nil
		}
	case TLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr(PAssign)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case TLBracket:
		return p.parseVectorLiteral()
	case TLBrace:
		return p.parseMapLiteral()
	default:
		return nil, serr.NewParseError(tok.Loc, "unexpected token %s", tok.Type)
	}
}

func (p *Parser) parseVectorLiteral() (*Node, error) {
	lb := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	var elems []*Node
	for p.cur.Type != TRBracket {
		e, err := p.parseExpr(PAssign)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.cur.Type == TComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue // trailing comma allowed: loop condition re-checks TRBracket
		}
		break
	}
	if _, err := p.expect(TRBracket); err != nil {
		return nil, err
	}
	return &Node{Kind: KVector, Loc: lb.Loc, Args: elems}, nil
}

func (p *Parser) parseMapLiteral() (*Node, error) {
	lb := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	var keys, vals []*Node
	for p.cur.Type != TRBrace {
		k, err := p.parseExpr(PAssign)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TColon); err != nil {
			return nil, err
		}
		v, err := p.parseExpr(PAssign)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		vals = append(vals, v)
		if p.cur.Type == TComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(TRBrace); err != nil {
		return nil, err
	}
	return &Node{Kind: KMap, Loc: lb.Loc, MapKeys: keys, Args: vals}, nil
}
