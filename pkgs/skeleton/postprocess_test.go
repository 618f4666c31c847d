package skeleton

import (
	"testing"

	"github.com/aledsdavies/skelc/pkgs/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostProcessRegistersFunction(t *testing.T) {
	tree := parseDoc(t, "#function greet(name)\nhi ${name}\n#end\n")
	reg := registry.New()
	require.NoError(t, PostProcess(tree, reg, nil))

	_, ok := reg.LookupFunction("greet")
	assert.True(t, ok)
}

func TestPostProcessRegistersBlock(t *testing.T) {
	tree := parseDoc(t, "#block greeting\nhi\n#end\n")
	reg := registry.New()
	require.NoError(t, PostProcess(tree, reg, nil))

	_, ok := reg.LookupFunction("greeting")
	assert.True(t, ok)
}

func TestPostProcessSecondBlockCapturesSuper(t *testing.T) {
	tree := parseDoc(t, "#block title\ndefault\n#end\n#block title\noverridden: ${super()}\n#end\n")
	reg := registry.New()
	require.NoError(t, PostProcess(tree, reg, nil))

	first := tree.Root.Body[0]
	second := tree.Root.Body[1]
	assert.Nil(t, first.SuperFn, "the first registration has no prior binding")
	assert.NotNil(t, second.SuperFn, "the second registration captures the first as super")
}

func TestPostProcessPropagatesUnresolvedFunctionInsideIf(t *testing.T) {
	tree := parseDoc(t, "#if missing()\nx\n#end\n")
	reg := registry.New()
	err := PostProcess(tree, reg, nil)
	assert.Error(t, err)
}

func TestPostProcessPropagatesUnresolvedFunctionInsideFor(t *testing.T) {
	tree := parseDoc(t, "#for x : missing()\n${x}\n#end\n")
	reg := registry.New()
	err := PostProcess(tree, reg, nil)
	assert.Error(t, err)
}
