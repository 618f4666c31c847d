package skeleton

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/aledsdavies/skelc/pkgs/evalctx"
	"github.com/aledsdavies/skelc/pkgs/formula"
	"github.com/aledsdavies/skelc/pkgs/registry"
	"github.com/aledsdavies/skelc/pkgs/serr"
)

var keywordSet = map[string]bool{
	"end": true, "if": true, "elif": true, "else": true,
	"for": true, "while": true, "do": true,
	"function": true, "block": true,
	"break": true, "continue": true, "return": true, "include": true,
}

// frame is the skeleton parser's open-block stack entry. Grounded on the
// original source's skeleton_parse_context "found_elif/found_else/
// found_while" dispatch-to-top-of-stack protocol (spec.md §4.6,
// SPEC_FULL.md §4): each handler returns an error instead of the original's
// boolean false.
type frame interface {
	target() *[]*Stmt
	onElif(cond *formula.Node, loc serr.Location) error
	onElse(loc serr.Location) error
	// onWhile reports whether this frame consumed the #while as its closer
	// (true, for a #do frame) or the #while should be treated as opening a
	// new loop instead (false).
	onWhile(cond *formula.Node, loc serr.Location) (bool, error)
	// finish is called by #end (or, for #do, by onWhile) to produce the
	// completed statement to attach to the parent frame.
	finish() *Stmt
	keyword() string
}

type simpleFrame struct {
	stmt *Stmt
	kw   string
}

func (f *simpleFrame) target() *[]*Stmt { return &f.stmt.Body }
func (f *simpleFrame) onElif(_ *formula.Node, loc serr.Location) error {
	return serr.NewParseError(loc, "#elif is not valid inside #%s", f.kw)
}
func (f *simpleFrame) onElse(loc serr.Location) error {
	return serr.NewParseError(loc, "#else is not valid inside #%s", f.kw)
}
func (f *simpleFrame) onWhile(_ *formula.Node, loc serr.Location) (bool, error) {
	return false, nil
}
func (f *simpleFrame) finish() *Stmt   { return f.stmt }
func (f *simpleFrame) keyword() string { return f.kw }

type ifFrame struct {
	stmt   *Stmt
	inElse bool
}

func (f *ifFrame) target() *[]*Stmt {
	if f.inElse {
		return &f.stmt.ElseBody
	}
	return &f.stmt.Branches[len(f.stmt.Branches)-1].Body
}
func (f *ifFrame) onElif(cond *formula.Node, loc serr.Location) error {
	if f.inElse {
		return serr.NewParseError(loc, "#elif after #else")
	}
	f.stmt.Branches = append(f.stmt.Branches, IfBranch{Cond: cond})
	return nil
}
func (f *ifFrame) onElse(loc serr.Location) error {
	if f.inElse {
		return serr.NewParseError(loc, "duplicate #else")
	}
	f.inElse = true
	f.stmt.ElseBody = []*Stmt{}
	return nil
}
func (f *ifFrame) onWhile(_ *formula.Node, loc serr.Location) (bool, error) {
	return false, nil
}
func (f *ifFrame) finish() *Stmt   { return f.stmt }
func (f *ifFrame) keyword() string { return "if" }

type forFrame struct {
	stmt   *Stmt
	inElse bool
}

func (f *forFrame) target() *[]*Stmt {
	if f.inElse {
		return &f.stmt.ElseBody
	}
	return &f.stmt.Body
}
func (f *forFrame) onElif(_ *formula.Node, loc serr.Location) error {
	return serr.NewParseError(loc, "#elif is not valid inside #for")
}
func (f *forFrame) onElse(loc serr.Location) error {
	if f.inElse {
		return serr.NewParseError(loc, "duplicate #else")
	}
	f.inElse = true
	f.stmt.ElseBody = []*Stmt{}
	return nil
}
func (f *forFrame) onWhile(_ *formula.Node, loc serr.Location) (bool, error) {
	return false, nil
}
func (f *forFrame) finish() *Stmt   { return f.stmt }
func (f *forFrame) keyword() string { return "for" }

// doFrame is closed by `#while EXPR`, not `#end`; any other closer,
// including a bare #end, is a parse error.
type doFrame struct {
	stmt *Stmt
}

func (f *doFrame) target() *[]*Stmt { return &f.stmt.Body }
func (f *doFrame) onElif(_ *formula.Node, loc serr.Location) error {
	return serr.NewParseError(loc, "#elif is not valid inside #do")
}
func (f *doFrame) onElse(loc serr.Location) error {
	return serr.NewParseError(loc, "#else is not valid inside #do")
}
func (f *doFrame) onWhile(cond *formula.Node, _ serr.Location) (bool, error) {
	f.stmt.Expr = cond
	return true, nil
}
func (f *doFrame) finish() *Stmt   { return f.stmt }
func (f *doFrame) keyword() string { return "do" }

// Parser scans a skeleton document into a Tree. Grounded on the teacher's
// lexer.StateMachine (_examples/opal-lang-opal/pkgs/lexer/lexer_state.go)
// for the push/pop open-block stack shape, generalized from Devcmd's
// command-block states to spec.md §4.6's text/directive/placeholder states.
type Parser struct {
	src  []rune
	pos  int
	line int
	col  int
	file string
	log  *slog.Logger

	stack     []frame
	root      *Stmt
	lineStart bool // true if only horizontal whitespace has been seen since the last newline

	loader *Loader // resolves #include targets during parsing; nil disables #include
}

func NewParser(source, file string, loader *Loader, logger *slog.Logger) (*Parser, error) {
	if !utf8.ValidString(source) {
		return nil, serr.NewParseError(serr.Location{File: file}, "source is not valid UTF-8")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		src:       []rune(source),
		pos:       0,
		line:      1,
		col:       1,
		file:      file,
		log:       logger,
		root:      &Stmt{Kind: SKTop},
		lineStart: true,
		loader:    loader,
	}, nil
}

func (p *Parser) loc() serr.Location {
	return serr.Location{File: p.file, Line: p.line, Column: p.col}
}

func (p *Parser) atEnd() bool { return p.pos >= len(p.src) }

func (p *Parser) peek() rune {
	if p.atEnd() {
		return 0
	}
	return p.src[p.pos]
}

func (p *Parser) peekAt(n int) rune {
	if p.pos+n >= len(p.src) {
		return 0
	}
	return p.src[p.pos+n]
}

func (p *Parser) advance() rune {
	r := p.src[p.pos]
	p.pos++
	switch {
	case r == '\n':
		p.line++
		p.col = 1
		p.lineStart = true
	case r == ' ' || r == '\t':
		p.col++
	default:
		p.col++
		p.lineStart = false
	}
	return r
}

func (p *Parser) curTarget() *[]*Stmt {
	if len(p.stack) == 0 {
		return &p.root.Body
	}
	return p.stack[len(p.stack)-1].target()
}

func (p *Parser) append(s *Stmt) {
	t := p.curTarget()
	*t = append(*t, s)
}

// Parse drives the text/directive/placeholder/escape state machine
// described in spec.md §4.6. loader, if non-nil, is used to resolve and
// splice #include targets as they're encountered; a document with no
// #include directives can pass nil.
func Parse(source, file string, loader *Loader, logger *slog.Logger) (*Tree, error) {
	p, err := NewParser(source, file, loader, logger)
	if err != nil {
		return nil, err
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return &Tree{Root: p.root, File: file}, nil
}

func (p *Parser) run() error {
	var text strings.Builder

	flush := func() {
		if text.Len() == 0 {
			return
		}
		p.append(&Stmt{Kind: SKText, Text: text.String()})
		text.Reset()
	}

	for !p.atEnd() {
		r := p.peek()

		if r == '#' && p.lineStart {
			trimTrailingHWS(&text)
			flush()
			if err := p.parseDirective(); err != nil {
				return err
			}
			continue
		}

		if r == '$' {
			if p.peekAt(1) == '{' {
				flush()
				if err := p.parsePlaceholder(); err != nil {
					return err
				}
				continue
			}
			p.advance()
			text.WriteRune('$')
			continue
		}

		if r == '\\' {
			p.advance()
			if p.atEnd() {
				text.WriteByte('\\')
				continue
			}
			esc := p.advance()
			if esc != '\n' {
				text.WriteRune(esc)
			}
			continue
		}

		text.WriteRune(p.advance())
	}
	flush()

	if len(p.stack) != 0 {
		top := p.stack[len(p.stack)-1]
		if _, ok := top.(*doFrame); ok {
			return serr.NewParseError(p.loc(), "unterminated #do (missing #while)")
		}
		return serr.NewParseError(p.loc(), "unterminated #%s (missing #end)", top.keyword())
	}
	return nil
}

// trimTrailingHWS implements the left-alignment rule (spec.md §4.6): strip
// the trailing run of spaces/tabs since the last newline from a text buffer
// about to precede a directive.
func trimTrailingHWS(b *strings.Builder) {
	s := b.String()
	idx := strings.LastIndexByte(s, '\n')
	tail := s[idx+1:]
	trimmed := strings.TrimRight(tail, " \t")
	if len(trimmed) == len(tail) {
		return
	}
	b.Reset()
	b.WriteString(s[:idx+1] + trimmed)
}

func (p *Parser) parsePlaceholder() error {
	start := p.loc()
	p.advance() // '$'
	p.advance() // '{'
	exprStart := p.loc()
	var buf strings.Builder
	depth := 1
	for {
		if p.atEnd() {
			return serr.NewParseError(start, "unterminated placeholder (missing '}')")
		}
		r := p.peek()
		if r == '{' {
			depth++
		}
		if r == '}' {
			depth--
			if depth == 0 {
				p.advance()
				break
			}
		}
		buf.WriteRune(p.advance())
	}
	node, err := formula.ParseAt(buf.String(), p.file, exprStart.Line, exprStart.Column, p.log)
	if err != nil {
		return err
	}
	p.append(&Stmt{Kind: SKPlaceholder, Loc: start, Expr: node})
	return nil
}

// restOfLine consumes and returns the characters from the cursor up to (but
// not including) the next newline or EOF, plus the location of its start.
func (p *Parser) restOfLine() (string, serr.Location) {
	start := p.loc()
	var b strings.Builder
	for !p.atEnd() && p.peek() != '\n' {
		b.WriteRune(p.advance())
	}
	return b.String(), start
}

// consumeEOL consumes the directive's own trailing newline, if present, so
// it contributes no output.
func (p *Parser) consumeEOL() {
	if !p.atEnd() && p.peek() == '\n' {
		p.advance()
	}
}

func (p *Parser) skipHSpace() {
	for !p.atEnd() && (p.peek() == ' ' || p.peek() == '\t') {
		p.advance()
	}
}

func isIdentStart(r rune) bool { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isIdentCont(r rune) bool  { return isIdentStart(r) || (r >= '0' && r <= '9') }

func (p *Parser) readIdent() string {
	var b strings.Builder
	for !p.atEnd() && isIdentCont(p.peek()) {
		b.WriteRune(p.advance())
	}
	return b.String()
}

func (p *Parser) parseFormulaRestOfLine() (*formula.Node, error) {
	text, loc := p.restOfLine()
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return formula.ParseAt(text, p.file, loc.Line, loc.Column, p.log)
}

// parseDirective handles the directive immediately at the cursor (which is
// positioned on '#'). On return, the directive's own line (including its
// trailing newline) has been fully consumed.
func (p *Parser) parseDirective() error {
	start := p.loc()
	p.advance() // '#'

	ident := p.peekIdent()
	if !keywordSet[ident] {
		// "#EXPR (any other expression statement)" — spec.md §6.
		node, err := p.parseFormulaRestOfLine()
		p.consumeEOL()
		if err != nil {
			return err
		}
		if node == nil {
			return serr.NewParseError(start, "empty expression statement")
		}
		p.append(&Stmt{Kind: SKExpr, Loc: start, Expr: node})
		return nil
	}
	p.advance3(len(ident))

	switch ident {
	case "if":
		return p.directiveIf(start)
	case "elif":
		return p.directiveElif(start)
	case "else":
		return p.directiveElse(start)
	case "for":
		return p.directiveFor(start)
	case "while":
		return p.directiveWhile(start)
	case "do":
		return p.directiveDo(start)
	case "function":
		return p.directiveFunction(start)
	case "block":
		return p.directiveBlock(start)
	case "break":
		p.consumeRestOfLine()
		p.append(&Stmt{Kind: SKBreak, Loc: start})
		return nil
	case "continue":
		p.consumeRestOfLine()
		p.append(&Stmt{Kind: SKContinue, Loc: start})
		return nil
	case "return":
		node, err := p.parseFormulaRestOfLine()
		p.consumeEOL()
		if err != nil {
			return err
		}
		p.append(&Stmt{Kind: SKReturn, Loc: start, Expr: node})
		return nil
	case "include":
		node, err := p.parseFormulaRestOfLine()
		p.consumeEOL()
		if err != nil {
			return err
		}
		if node == nil {
			return serr.NewParseError(start, "#include requires a path expression")
		}
		return p.spliceInclude(start, node)
	case "end":
		return p.directiveEnd(start)
	default:
		return serr.NewParseError(start, "unhandled directive %q", ident)
	}
}

// peekIdent/advance3 split identifier lookahead from consumption so the
// bare-expression fallback doesn't need to "un-consume" a failed keyword
// match.
func (p *Parser) peekIdent() string {
	var b strings.Builder
	for i := 0; ; i++ {
		r := p.peekAt(i)
		if !isIdentCont(r) {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (p *Parser) advance3(n int) {
	for i := 0; i < n; i++ {
		p.advance()
	}
}

func (p *Parser) consumeRestOfLine() {
	_, _ = p.restOfLine()
	p.consumeEOL()
}

func (p *Parser) directiveIf(start serr.Location) error {
	p.skipHSpace()
	cond, err := p.parseFormulaRestOfLine()
	p.consumeEOL()
	if err != nil {
		return err
	}
	if cond == nil {
		return serr.NewParseError(start, "#if requires a condition")
	}
	stmt := &Stmt{Kind: SKIf, Loc: start, Branches: []IfBranch{{Cond: cond}}}
	p.stack = append(p.stack, &ifFrame{stmt: stmt})
	return nil
}

func (p *Parser) directiveElif(start serr.Location) error {
	p.skipHSpace()
	cond, err := p.parseFormulaRestOfLine()
	p.consumeEOL()
	if err != nil {
		return err
	}
	if cond == nil {
		return serr.NewParseError(start, "#elif requires a condition")
	}
	if len(p.stack) == 0 {
		return serr.NewParseError(start, "#elif without #if")
	}
	return p.stack[len(p.stack)-1].onElif(cond, start)
}

func (p *Parser) directiveElse(start serr.Location) error {
	p.consumeRestOfLine()
	if len(p.stack) == 0 {
		return serr.NewParseError(start, "#else without #if or #for")
	}
	return p.stack[len(p.stack)-1].onElse(start)
}

func (p *Parser) directiveFor(start serr.Location) error {
	p.skipHSpace()
	name := p.readIdent()
	if name == "" {
		return serr.NewParseError(start, "#for requires a loop variable name")
	}
	p.skipHSpace()
	if p.atEnd() || p.peek() != ':' {
		return serr.NewParseError(p.loc(), "expected ':' after #for loop variable")
	}
	p.advance()
	p.skipHSpace()
	seq, err := p.parseFormulaRestOfLine()
	p.consumeEOL()
	if err != nil {
		return err
	}
	if seq == nil {
		return serr.NewParseError(start, "#for requires a sequence expression")
	}
	stmt := &Stmt{Kind: SKFor, Loc: start, LoopVar: name, Expr: seq}
	p.stack = append(p.stack, &forFrame{stmt: stmt})
	return nil
}

func (p *Parser) directiveWhile(start serr.Location) error {
	p.skipHSpace()
	cond, err := p.parseFormulaRestOfLine()
	p.consumeEOL()
	if err != nil {
		return err
	}
	if cond == nil {
		return serr.NewParseError(start, "#while requires a condition")
	}
	if len(p.stack) > 0 {
		if df, ok := p.stack[len(p.stack)-1].(*doFrame); ok {
			_, werr := df.onWhile(cond, start)
			if werr != nil {
				return werr
			}
			p.stack = p.stack[:len(p.stack)-1]
			p.append(df.finish())
			return nil
		}
	}
	stmt := &Stmt{Kind: SKWhile, Loc: start, Expr: cond}
	p.stack = append(p.stack, &simpleFrame{stmt: stmt, kw: "while"})
	return nil
}

func (p *Parser) directiveDo(start serr.Location) error {
	p.consumeRestOfLine()
	stmt := &Stmt{Kind: SKDoWhile, Loc: start}
	p.stack = append(p.stack, &doFrame{stmt: stmt})
	return nil
}

func (p *Parser) directiveFunction(start serr.Location) error {
	p.skipHSpace()
	name := p.readIdent()
	if name == "" {
		return serr.NewParseError(start, "#function requires a name")
	}
	p.skipHSpace()
	if p.atEnd() || p.peek() != '(' {
		return serr.NewParseError(p.loc(), "expected '(' after #function name")
	}
	p.advance()
	var params []string
	for {
		p.skipHSpace()
		if p.atEnd() {
			return serr.NewParseError(p.loc(), "unterminated #function parameter list")
		}
		if p.peek() == ')' {
			p.advance()
			break
		}
		pname := p.readIdent()
		if pname == "" {
			return serr.NewParseError(p.loc(), "expected parameter name")
		}
		params = append(params, pname)
		p.skipHSpace()
		if p.peek() == ',' {
			p.advance()
			continue
		}
	}
	p.consumeRestOfLine()
	stmt := &Stmt{Kind: SKFunction, Loc: start, Name: name, Params: params}
	p.stack = append(p.stack, &simpleFrame{stmt: stmt, kw: "function"})
	return nil
}

func (p *Parser) directiveBlock(start serr.Location) error {
	p.skipHSpace()
	name := p.readIdent()
	if name == "" {
		return serr.NewParseError(start, "#block requires a name")
	}
	p.consumeRestOfLine()
	stmt := &Stmt{Kind: SKBlock, Loc: start, Name: name}
	p.stack = append(p.stack, &simpleFrame{stmt: stmt, kw: "block"})
	return nil
}

// spliceInclude resolves a #include's path expression and splices the
// included document's top-level statements directly into the statement
// stack, permanently, during parsing. Grounded on the original source's
// skeleton_parse_context::include(), which evaluates the path against a
// brand-new, empty post-process/evaluation context (so the path can
// reference neither render-time bindings nor user-defined functions) and
// appends the parsed result to the currently open frame exactly once.
func (p *Parser) spliceInclude(start serr.Location, pathExpr *formula.Node) error {
	if err := formula.PostProcess(pathExpr, registry.New(), p.log); err != nil {
		return err
	}
	pathVal, err := formula.Evaluate(pathExpr, evalctx.New())
	if err != nil {
		return serr.NewParseError(start, "#include path evaluation failed: %v", err)
	}
	if !pathVal.IsString() {
		return serr.NewParseError(start, "#include path must be a string, got %s", pathVal.TypeName())
	}
	if p.loader == nil {
		return serr.NewParseError(start, "#include is not available: no loader configured")
	}
	included, err := p.loader.Load(p.file, pathVal.Str(), p.log)
	if err != nil {
		return serr.NewParseError(start, "#include %q failed: %v", pathVal.Str(), err)
	}
	for _, s := range included.Root.Body {
		p.append(s)
	}
	return nil
}

func (p *Parser) directiveEnd(start serr.Location) error {
	p.consumeRestOfLine()
	if len(p.stack) == 0 {
		return serr.NewParseError(start, "#end without a matching opening directive")
	}
	top := p.stack[len(p.stack)-1]
	if _, ok := top.(*doFrame); ok {
		return serr.NewParseError(start, "#do must be closed with #while, not #end")
	}
	p.stack = p.stack[:len(p.stack)-1]
	p.append(top.finish())
	return nil
}
