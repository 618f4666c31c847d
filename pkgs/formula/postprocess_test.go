package formula

import (
	"testing"

	"github.com/aledsdavies/skelc/pkgs/evalctx"
	"github.com/aledsdavies/skelc/pkgs/registry"
	"github.com/aledsdavies/skelc/pkgs/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityFn(_ *evalctx.Context, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Undefined(), nil
	}
	return args[0], nil
}

func TestPostProcessBindsFreeFunctionCall(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunction("identity", identityFn)

	n := parseStr(t, "identity(42)")
	require.NoError(t, PostProcess(n, reg, nil))
	require.NotNil(t, n.BoundFunction)

	v, err := n.BoundFunction(nil, []value.Value{value.Int(42)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int())
}

func TestPostProcessUnresolvedFunctionSuggestsFuzzyMatch(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunction("length", identityFn)

	n := parseStr(t, "lenght()")
	err := PostProcess(n, reg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean")
	assert.Contains(t, err.Error(), "length")
}

func TestPostProcessBindsMethodOnMemberCallee(t *testing.T) {
	reg := registry.New()
	reg.RegisterMethod("push_back", func(_ *evalctx.Context, recv *value.Value, args []value.Value) (value.Value, error) {
		return *recv, nil
	})

	n := parseStr(t, "v.push_back(1)")
	require.NoError(t, PostProcess(n, reg, nil))
	require.NotNil(t, n.BoundMethod)
	assert.Nil(t, n.BoundFunction, "a member-callee call binds a method, not a function")
}

func TestPostProcessBindsFilter(t *testing.T) {
	reg := registry.New()
	reg.RegisterFilter("upper", func(s string) (string, error) { return s, nil })

	n := parseStr(t, `"x" ! upper`)
	require.NoError(t, PostProcess(n, reg, nil))
	require.NotNil(t, n.BoundFilter)
}

func TestPostProcessUnresolvedFilterErrors(t *testing.T) {
	reg := registry.New()
	n := parseStr(t, `"x" ! missing`)
	err := PostProcess(n, reg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestPostProcessRecursesIntoNestedExpressions(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunction("f", identityFn)
	reg.RegisterFilter("g", func(s string) (string, error) { return s, nil })

	n := parseStr(t, `true ? f(1) : ("y" ! g)`)
	require.NoError(t, PostProcess(n, reg, nil))
	require.NotNil(t, n.Then.BoundFunction)
	require.NotNil(t, n.Else.BoundFilter)
}

func TestSuperBindsAgainstPriorRegistration(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunction("title", func(_ *evalctx.Context, _ []value.Value) (value.Value, error) {
		return value.String("base"), nil
	})

	prior, ok := reg.PriorFunction("title")
	require.True(t, ok)
	reg.PushSuper(prior)
	defer reg.PopSuper()

	n := parseStr(t, "super()")
	require.NoError(t, PostProcess(n, reg, nil))
	v, err := n.BoundFunction(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "base", v.Str())
}
