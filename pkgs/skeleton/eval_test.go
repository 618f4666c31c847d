package skeleton

import (
	"fmt"
	"testing"

	"github.com/aledsdavies/skelc/pkgs/evalctx"
	"github.com/aledsdavies/skelc/pkgs/host"
	"github.com/aledsdavies/skelc/pkgs/registry"
	"github.com/aledsdavies/skelc/pkgs/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves file contents from an in-memory map, standing in for
// host.OSFileReader in tests that exercise #include.
type fakeReader struct{ files map[string]string }

func newFakeReader(files map[string]string) *fakeReader { return &fakeReader{files: files} }

func (r *fakeReader) ReadFile(path string) (string, error) {
	src, ok := r.files[path]
	if !ok {
		return "", fmt.Errorf("fakeReader: no such file %q", path)
	}
	return src, nil
}

func newTestCache() *host.ParseCache { return host.NewParseCache() }

func renderDoc(t *testing.T, src string, setup func(ctx *evalctx.Context)) string {
	t.Helper()
	tree := parseDoc(t, src)
	reg := registry.New()
	require.NoError(t, PostProcess(tree, reg, nil))
	ctx := evalctx.New()
	if setup != nil {
		setup(ctx)
	}
	_, err := Render(tree, ctx, reg, nil)
	require.NoError(t, err)
	return ctx.Output()
}

// TestConditionalRenderScenario covers spec §8 scenario 3.
func TestConditionalRenderScenario(t *testing.T) {
	src := "#if x > 0\npos\n#else\nneg\n#end\n"

	out := renderDoc(t, src, func(ctx *evalctx.Context) { ctx.SetGlobal("x", value.Int(3)) })
	assert.Equal(t, "pos\n", out)

	out = renderDoc(t, src, func(ctx *evalctx.Context) { ctx.SetGlobal("x", value.Int(-1)) })
	assert.Equal(t, "neg\n", out)
}

// TestForLoopScenario covers spec §8 scenario 4.
func TestForLoopScenario(t *testing.T) {
	src := "#for n : [10, 20, 30]\n${$i}:${n}\n#end\n"
	out := renderDoc(t, src, nil)
	assert.Equal(t, "0:10\n1:20\n2:30\n", out)
}

// TestBlockOverrideSuperScenario covers spec §8 scenario 5.
func TestBlockOverrideSuperScenario(t *testing.T) {
	src := "#block title\ndefault\n#end\n#block title\noverridden: ${super()}\n#end\n${title()}\n"
	out := renderDoc(t, src, nil)
	assert.Contains(t, out, "overridden: default")
}

func TestForLoopElseOnEmptySequence(t *testing.T) {
	src := "#for x : []\nbody\n#else\nfallback\n#end\n"
	out := renderDoc(t, src, nil)
	assert.Equal(t, "fallback\n", out)
}

func TestForLoopBreak(t *testing.T) {
	src := "#for n : [1, 2, 3]\n#if n == 2\n#break\n#end\n${n}\n#end\n"
	out := renderDoc(t, src, nil)
	assert.Equal(t, "1\n", out)
}

func TestForLoopContinue(t *testing.T) {
	src := "#for n : [1, 2, 3]\n#if n == 2\n#continue\n#end\n${n}\n#end\n"
	out := renderDoc(t, src, nil)
	assert.Equal(t, "1\n3\n", out)
}

func TestWhileLoop(t *testing.T) {
	src := "#while n < 3\n${n}\n#n += 1\n#end\n"
	out := renderDoc(t, src, func(ctx *evalctx.Context) { ctx.SetGlobal("n", value.Int(0)) })
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestDoWhileRunsBodyAtLeastOnce(t *testing.T) {
	src := "#do\n${n}\n#n += 1\n#while n < 0\n"
	out := renderDoc(t, src, func(ctx *evalctx.Context) { ctx.SetGlobal("n", value.Int(5)) })
	assert.Equal(t, "5\n", out)
}

// TestBreakOutsideLoopIsError and TestContinueOutsideLoopIsError cover
// spec §8 property 3.
func TestBreakOutsideLoopIsError(t *testing.T) {
	tree := parseDoc(t, "#break\n")
	reg := registry.New()
	require.NoError(t, PostProcess(tree, reg, nil))
	_, err := Render(tree, evalctx.New(), reg, nil)
	assert.Error(t, err)
}

func TestContinueOutsideLoopIsError(t *testing.T) {
	tree := parseDoc(t, "#continue\n")
	reg := registry.New()
	require.NoError(t, PostProcess(tree, reg, nil))
	_, err := Render(tree, evalctx.New(), reg, nil)
	assert.Error(t, err)
}

func TestReturnOutsideFunctionIsError(t *testing.T) {
	tree := parseDoc(t, "#return 1\n")
	reg := registry.New()
	require.NoError(t, PostProcess(tree, reg, nil))
	_, err := Render(tree, evalctx.New(), reg, nil)
	assert.Error(t, err)
}

func TestFunctionReturnValueUsableInPlaceholder(t *testing.T) {
	src := "#function double(n)\n#return n * 2\n#end\n${double(21)}\n"
	out := renderDoc(t, src, nil)
	assert.Equal(t, "42\n", out)
}

func TestFunctionBodySuspendsOutput(t *testing.T) {
	src := "#function noisy()\nside effect text\n#return 1\n#end\nbefore ${noisy()} after\n"
	out := renderDoc(t, src, nil)
	assert.Equal(t, "before 1 after\n", out, "a #function's own body text must not leak into the surrounding document")
}

func TestFunctionArityMismatchIsError(t *testing.T) {
	src := "#function one(a)\n${a}\n#end\n${one()}\n"
	tree := parseDoc(t, src)
	reg := registry.New()
	require.NoError(t, PostProcess(tree, reg, nil))
	_, err := Render(tree, evalctx.New(), reg, nil)
	assert.Error(t, err)
}

func TestIncludeSplicesChildStatementsAtParseTime(t *testing.T) {
	reader := newFakeReader(map[string]string{
		"/child.skel": "child text\n",
	})
	loader := &Loader{Reader: reader, Cache: newTestCache()}

	tree, err := Parse("before\n"+`#include "/child.skel"`+"\nafter\n", "/main.skel", loader, nil)
	require.NoError(t, err)

	reg := registry.New()
	require.NoError(t, PostProcess(tree, reg, nil))
	ctx := evalctx.New()
	_, err = Render(tree, ctx, reg, nil)
	require.NoError(t, err)
	assert.Equal(t, "before\nchild text\nafter\n", ctx.Output())
}

func TestIncludedBreakAtTopLevelIsError(t *testing.T) {
	reader := newFakeReader(map[string]string{
		"/child.skel": "#break\n",
	})
	loader := &Loader{Reader: reader, Cache: newTestCache()}

	tree, err := Parse(`#include "/child.skel"`+"\n", "/main.skel", loader, nil)
	require.NoError(t, err)
	reg := registry.New()
	require.NoError(t, PostProcess(tree, reg, nil))
	_, err = Render(tree, evalctx.New(), reg, nil)
	assert.Error(t, err)
}

func TestIncludeWithoutLoaderIsParseError(t *testing.T) {
	_, err := Parse(`#include "/child.skel"`+"\n", "/main.skel", nil, nil)
	assert.Error(t, err)
}

// TestIncludePathCannotReferenceLoopVariable pins the fix for resolving
// #include at parse time: the path expression is evaluated once against a
// brand-new, empty context, before the #for loop it sits inside ever runs,
// so a loop variable in the path is simply undefined, not "whatever the
// current iteration bound it to".
func TestIncludePathCannotReferenceLoopVariable(t *testing.T) {
	reader := newFakeReader(map[string]string{
		"/a.skel": "A",
		"/b.skel": "B",
	})
	loader := &Loader{Reader: reader, Cache: newTestCache()}

	src := "#for n : [\"a\", \"b\"]\n#include n\n#end\n"
	_, err := Parse(src, "/main.skel", loader, nil)
	assert.Error(t, err)
}
