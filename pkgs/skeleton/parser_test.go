package skeleton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDoc(t *testing.T, src string) *Tree {
	t.Helper()
	tree, err := Parse(src, "test", nil, nil)
	require.NoError(t, err)
	return tree
}

func TestTextAndPlaceholder(t *testing.T) {
	tree := parseDoc(t, "hello ${1 + 1} world")
	require.Len(t, tree.Root.Body, 3)
	assert.Equal(t, SKText, tree.Root.Body[0].Kind)
	assert.Equal(t, "hello ", tree.Root.Body[0].Text)
	assert.Equal(t, SKPlaceholder, tree.Root.Body[1].Kind)
	assert.Equal(t, SKText, tree.Root.Body[2].Kind)
	assert.Equal(t, " world", tree.Root.Body[2].Text)
}

func TestDirectiveRequiresLineStart(t *testing.T) {
	// '#' is not preceded only by horizontal whitespace since the last
	// newline, so it is literal text, not a directive.
	tree := parseDoc(t, "x#foo bar\nbaz\n")
	require.Len(t, tree.Root.Body, 1)
	assert.Equal(t, SKText, tree.Root.Body[0].Kind)
	assert.Equal(t, "x#foo bar\nbaz\n", tree.Root.Body[0].Text)
}

func TestDirectiveAllowsLeadingHorizontalWhitespace(t *testing.T) {
	tree := parseDoc(t, "  #break\n")
	require.Len(t, tree.Root.Body, 1)
	assert.Equal(t, SKBreak, tree.Root.Body[0].Kind)
}

func TestEscapedDollarIsLiteral(t *testing.T) {
	tree := parseDoc(t, `\$x`)
	require.Len(t, tree.Root.Body, 1)
	assert.Equal(t, "$x", tree.Root.Body[0].Text)
}

func TestLineContinuationEscapeElidesNewline(t *testing.T) {
	tree := parseDoc(t, "a\\\nb")
	require.Len(t, tree.Root.Body, 1)
	assert.Equal(t, "ab", tree.Root.Body[0].Text)
}

func TestBareDollarWithoutBraceIsLiteral(t *testing.T) {
	tree := parseDoc(t, "$x")
	require.Len(t, tree.Root.Body, 1)
	assert.Equal(t, SKText, tree.Root.Body[0].Kind)
	assert.Equal(t, "$x", tree.Root.Body[0].Text)
}

func TestPlaceholderHandlesNestedBraces(t *testing.T) {
	tree := parseDoc(t, `${ {"a": 1} }`)
	require.Len(t, tree.Root.Body, 1)
	require.Equal(t, SKPlaceholder, tree.Root.Body[0].Kind)
	require.NotNil(t, tree.Root.Body[0].Expr)
}

func TestUnterminatedPlaceholderErrors(t *testing.T) {
	_, err := Parse("${1 + 1", "test", nil, nil)
	assert.Error(t, err)
}

func TestIfElifElse(t *testing.T) {
	src := "#if a\none\n#elif b\ntwo\n#else\nthree\n#end\n"
	tree := parseDoc(t, src)
	require.Len(t, tree.Root.Body, 1)
	s := tree.Root.Body[0]
	require.Equal(t, SKIf, s.Kind)
	require.Len(t, s.Branches, 2)
	require.NotNil(t, s.ElseBody)
}

func TestForWithElse(t *testing.T) {
	src := "#for x : []\nbody\n#else\nfallback\n#end\n"
	tree := parseDoc(t, src)
	s := tree.Root.Body[0]
	require.Equal(t, SKFor, s.Kind)
	assert.Equal(t, "x", s.LoopVar)
	require.NotNil(t, s.ElseBody)
}

func TestDoWhileClosedByWhile(t *testing.T) {
	src := "#do\nbody\n#while cond\n"
	tree := parseDoc(t, src)
	require.Len(t, tree.Root.Body, 1)
	s := tree.Root.Body[0]
	require.Equal(t, SKDoWhile, s.Kind)
	require.NotNil(t, s.Expr)
}

func TestDoClosedByEndIsError(t *testing.T) {
	_, err := Parse("#do\nbody\n#end\n", "test", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#do must be closed with #while")
}

func TestUnterminatedIfErrors(t *testing.T) {
	_, err := Parse("#if true\nbody\n", "test", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated #if")
}

func TestUnterminatedDoErrors(t *testing.T) {
	_, err := Parse("#do\nbody\n", "test", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated #do")
}

func TestFunctionParamsParse(t *testing.T) {
	tree := parseDoc(t, "#function add(a, b)\nbody\n#end\n")
	s := tree.Root.Body[0]
	require.Equal(t, SKFunction, s.Kind)
	assert.Equal(t, "add", s.Name)
	assert.Equal(t, []string{"a", "b"}, s.Params)
}

func TestBlockDirectiveParses(t *testing.T) {
	tree := parseDoc(t, "#block greeting\nhi\n#end\n")
	s := tree.Root.Body[0]
	require.Equal(t, SKBlock, s.Kind)
	assert.Equal(t, "greeting", s.Name)
}

func TestElifWithoutIfErrors(t *testing.T) {
	_, err := Parse("#elif true\n", "test", nil, nil)
	assert.Error(t, err)
}

func TestElseWithoutIfErrors(t *testing.T) {
	_, err := Parse("#else\n", "test", nil, nil)
	assert.Error(t, err)
}

func TestEndWithoutOpenErrors(t *testing.T) {
	_, err := Parse("#end\n", "test", nil, nil)
	assert.Error(t, err)
}

func TestBareExpressionStatement(t *testing.T) {
	tree := parseDoc(t, "#1 + 1\n")
	s := tree.Root.Body[0]
	require.Equal(t, SKExpr, s.Kind)
	require.NotNil(t, s.Expr)
}
