package formula

import (
	"testing"

	"github.com/aledsdavies/skelc/pkgs/evalctx"
	"github.com/aledsdavies/skelc/pkgs/registry"
	"github.com/aledsdavies/skelc/pkgs/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalStr(t *testing.T, src string, reg *registry.Registry, ctx *evalctx.Context) value.Value {
	t.Helper()
	n := parseStr(t, src)
	if reg != nil {
		require.NoError(t, PostProcess(n, reg, nil))
	}
	v, err := Evaluate(n, ctx)
	require.NoError(t, err)
	return v
}

func urlEncodeFilter(s string) (string, error) {
	var out []byte
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			out = append(out, '%', '2', '0')
			continue
		}
		out = append(out, s[i])
	}
	return string(out), nil
}

// TestFilterEvaluation covers spec §8's url filter scenario.
func TestFilterEvaluation(t *testing.T) {
	reg := registry.New()
	reg.RegisterFilter("url", urlEncodeFilter)

	v := evalStr(t, `"Hello World" ! url`, reg, evalctx.New())
	assert.Equal(t, "Hello%20World", v.Str())
}

func TestFilterOnNonStringReceiverErrors(t *testing.T) {
	reg := registry.New()
	reg.RegisterFilter("url", urlEncodeFilter)
	n := parseStr(t, "5 ! url")
	require.NoError(t, PostProcess(n, reg, nil))
	_, err := Evaluate(n, evalctx.New())
	assert.Error(t, err)
}

// TestShortCircuitAndAvoidsRhsSideEffects covers spec §8 property 7: the
// unevaluated branch of && / || must not execute at all.
func TestShortCircuitAndAvoidsRhsSideEffects(t *testing.T) {
	reg := registry.New()
	called := false
	reg.RegisterFunction("mark", func(_ *evalctx.Context, _ []value.Value) (value.Value, error) {
		called = true
		return value.Bool(true), nil
	})

	v := evalStr(t, "false && mark()", reg, evalctx.New())
	assert.False(t, v.Truthy())
	assert.False(t, called, "mark() must not run when && short-circuits")
}

func TestShortCircuitOrAvoidsRhsSideEffects(t *testing.T) {
	reg := registry.New()
	called := false
	reg.RegisterFunction("mark", func(_ *evalctx.Context, _ []value.Value) (value.Value, error) {
		called = true
		return value.Bool(true), nil
	})

	v := evalStr(t, "true || mark()", reg, evalctx.New())
	assert.True(t, v.Truthy())
	assert.False(t, called, "mark() must not run when || short-circuits")
}

func TestNameResolutionAgainstContext(t *testing.T) {
	ctx := evalctx.New()
	ctx.SetGlobal("x", value.Int(10))
	v := evalStr(t, "x + 1", nil, ctx)
	assert.Equal(t, int64(11), v.Int())
}

func TestUndefinedNameIsReferenceError(t *testing.T) {
	n := parseStr(t, "nope")
	_, err := Evaluate(n, evalctx.New())
	assert.Error(t, err)
}

// TestVectorUnpackAssignment covers spec §8 property 5: unpacking assignment
// succeeds iff the vector length matches the target count.
func TestVectorUnpackAssignment(t *testing.T) {
	ctx := evalctx.New()
	ctx.SetGlobal("v", value.Vector([]value.Value{value.Int(1), value.Int(2)}))
	n := parseStr(t, "[a, b] = v")
	_, err := Evaluate(n, ctx)
	require.NoError(t, err)

	av, ok := ctx.GetVar("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), av.Int())
	bv, ok := ctx.GetVar("b")
	require.True(t, ok)
	assert.Equal(t, int64(2), bv.Int())
}

func TestVectorUnpackArityMismatchErrors(t *testing.T) {
	ctx := evalctx.New()
	ctx.SetGlobal("v", value.Vector([]value.Value{value.Int(1)}))
	n := parseStr(t, "[a, b] = v")
	_, err := Evaluate(n, ctx)
	assert.Error(t, err)
}

func TestCompoundAssignmentAppliesOperatorThenWrites(t *testing.T) {
	ctx := evalctx.New()
	ctx.SetGlobal("x", value.Int(10))
	v := evalStr(t, "x -= 3", nil, ctx)
	assert.Equal(t, int64(7), v.Int())

	xv, _ := ctx.GetVar("x")
	assert.Equal(t, int64(7), xv.Int())
}

func TestIndexAssignmentWritesThroughContainer(t *testing.T) {
	ctx := evalctx.New()
	ctx.SetGlobal("v", value.Vector([]value.Value{value.Int(1), value.Int(2)}))
	_ = evalStr(t, "v[0] = 99", nil, ctx)

	vv, _ := ctx.GetVar("v")
	assert.Equal(t, int64(99), vv.Vec()[0].Int())
}

func TestTernaryEvaluatesOnlyChosenBranch(t *testing.T) {
	reg := registry.New()
	called := false
	reg.RegisterFunction("boom", func(_ *evalctx.Context, _ []value.Value) (value.Value, error) {
		called = true
		return value.Undefined(), nil
	})
	v := evalStr(t, "true ? 1 : boom()", reg, evalctx.New())
	assert.Equal(t, int64(1), v.Int())
	assert.False(t, called)
}

func TestLoopVarSuffixes(t *testing.T) {
	ctx := evalctx.New()
	ctx.PushLoop(3, true)
	defer ctx.PopLoop()

	v := evalStr(t, "$i", nil, ctx)
	assert.Equal(t, int64(0), v.Int())

	v = evalStr(t, "$first", nil, ctx)
	assert.True(t, v.Truthy())

	v = evalStr(t, "$last", nil, ctx)
	assert.False(t, v.Truthy())

	v = evalStr(t, "$size", nil, ctx)
	assert.Equal(t, int64(3), v.Int())
}

func TestLoopVarOutsideLoopIsReferenceError(t *testing.T) {
	n := parseStr(t, "$i")
	_, err := Evaluate(n, evalctx.New())
	assert.Error(t, err)
}

func TestPrefixIncrementMutatesAndReturnsNewValue(t *testing.T) {
	ctx := evalctx.New()
	ctx.SetGlobal("x", value.Int(5))
	v := evalStr(t, "++x", nil, ctx)
	assert.Equal(t, int64(6), v.Int())
	xv, _ := ctx.GetVar("x")
	assert.Equal(t, int64(6), xv.Int())
}
