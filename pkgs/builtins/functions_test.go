package builtins

import (
	"testing"

	"github.com/aledsdavies/skelc/pkgs/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFnFloatCoercions(t *testing.T) {
	v, err := fnFloat(nil, []value.Value{value.Int(3)})
	require.NoError(t, err)
	assert.Equal(t, 3.0, v.Float())

	v, err = fnFloat(nil, []value.Value{value.String("2.5")})
	require.NoError(t, err)
	assert.Equal(t, 2.5, v.Float())

	v, err = fnFloat(nil, []value.Value{value.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Float())

	_, err = fnFloat(nil, []value.Value{value.String("not a number")})
	assert.Error(t, err)
}

func TestFnIntegerCoercions(t *testing.T) {
	v, err := fnInteger(nil, []value.Value{value.Float(3.9)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Int(), "integer() truncates, it does not round")

	v, err = fnInteger(nil, []value.Value{value.String("42")})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int())
}

func TestFnDecimalRoundsToTwoPlaces(t *testing.T) {
	v, err := fnDecimal(nil, []value.Value{value.Float(1.2345)})
	require.NoError(t, err)
	assert.InDelta(t, 1.23, v.Float(), 1e-9)

	v, err = fnDecimal(nil, []value.Value{value.Float(-1.2345)})
	require.NoError(t, err)
	assert.InDelta(t, -1.23, v.Float(), 1e-9)
}

func TestFnStringUsesValueString(t *testing.T) {
	v, err := fnString(nil, []value.Value{value.Int(7)})
	require.NoError(t, err)
	assert.Equal(t, "7", v.Str())
}

func TestFnBooleanUsesTruthy(t *testing.T) {
	v, err := fnBoolean(nil, []value.Value{value.String("")})
	require.NoError(t, err)
	assert.False(t, v.Bool())

	v, err = fnBoolean(nil, []value.Value{value.Int(1)})
	require.NoError(t, err)
	assert.True(t, v.Bool())
}

func TestFnSizeOverVectorStringMap(t *testing.T) {
	v, err := fnSize(nil, []value.Value{value.Vector([]value.Value{value.Int(1), value.Int(2)})})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Int())

	v, err = fnSize(nil, []value.Value{value.String("hello")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Int())
}

func TestFnKeysValuesItemsOverMap(t *testing.T) {
	m := value.NewMap()
	m.MapRef().Set(value.String("a"), value.Int(1))
	m.MapRef().Set(value.String("b"), value.Int(2))

	keys, err := fnKeys(nil, []value.Value{m})
	require.NoError(t, err)
	require.True(t, keys.IsVector())
	assert.Equal(t, []string{"a", "b"}, []string{keys.Vec()[0].Str(), keys.Vec()[1].Str()})

	values, err := fnValues(nil, []value.Value{m})
	require.NoError(t, err)
	assert.Equal(t, int64(1), values.Vec()[0].Int())
	assert.Equal(t, int64(2), values.Vec()[1].Int())

	items, err := fnItems(nil, []value.Value{m})
	require.NoError(t, err)
	require.True(t, items.IsVector())
	require.Len(t, items.Vec(), 2)
}

func TestFnSortVectorDoesNotMutateInput(t *testing.T) {
	original := value.Vector([]value.Value{value.Int(3), value.Int(1), value.Int(2)})
	sorted, err := fnSort(nil, []value.Value{original})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, []int64{sorted.Vec()[0].Int(), sorted.Vec()[1].Int(), sorted.Vec()[2].Int()})
	assert.Equal(t, int64(3), original.Vec()[0].Int(), "sort must not mutate its argument")
}

func TestFnSortMapSortsKeys(t *testing.T) {
	m := value.NewMap()
	m.MapRef().Set(value.String("b"), value.Int(2))
	m.MapRef().Set(value.String("a"), value.Int(1))

	sorted, err := fnSort(nil, []value.Value{m})
	require.NoError(t, err)
	assert.Equal(t, "a", sorted.Vec()[0].Str())
	assert.Equal(t, "b", sorted.Vec()[1].Str())
}

func TestBuiltinArityErrors(t *testing.T) {
	_, err := fnFloat(nil, nil)
	assert.Error(t, err)

	_, err = fnSize(nil, []value.Value{value.Int(1), value.Int(2)})
	assert.Error(t, err)
}
