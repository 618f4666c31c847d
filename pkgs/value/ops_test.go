package value_test

import (
	"testing"

	"github.com/aledsdavies/skelc/pkgs/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmeticPromotion(t *testing.T) {
	sum, err := value.Int(1).Add(value.Float(2.5))
	require.NoError(t, err)
	assert.True(t, sum.IsFloat())
	assert.Equal(t, 3.5, sum.Float())

	sum2, err := value.Int(1).Add(value.Int(2))
	require.NoError(t, err)
	assert.True(t, sum2.IsInt())
	assert.Equal(t, int64(3), sum2.Int())
}

func TestStringAndVectorConcatenation(t *testing.T) {
	s, err := value.String("foo").Add(value.String("bar"))
	require.NoError(t, err)
	assert.Equal(t, "foobar", s.Str())

	v, err := value.Vector([]value.Value{value.Int(1)}).Add(value.Vector([]value.Value{value.Int(2)}))
	require.NoError(t, err)
	require.Len(t, v.Vec(), 2)
	assert.Equal(t, int64(2), v.Vec()[1].Int())
}

func TestIntStringRepetition(t *testing.T) {
	rep, err := value.Int(3).Mul(value.String("ab"))
	require.NoError(t, err)
	assert.Equal(t, "ababab", rep.Str())

	rep2, err := value.String("x").Mul(value.Int(2))
	require.NoError(t, err)
	assert.Equal(t, "xx", rep2.Str())
}

func TestDivisionByZero(t *testing.T) {
	_, err := value.Int(1).Div(value.Int(0))
	require.Error(t, err)

	f, err := value.Float(1).Div(value.Float(0))
	require.NoError(t, err, "float division by zero produces +Inf, not an error")
	assert.True(t, f.Float() > 0)
}

func TestPowIntegerFastPath(t *testing.T) {
	p, err := value.Int(2).Pow(value.Int(10))
	require.NoError(t, err)
	assert.True(t, p.IsInt())
	assert.Equal(t, int64(1024), p.Int())
}

func TestBitwiseRequiresInt(t *testing.T) {
	_, err := value.Float(1).BitAnd(value.Int(1))
	assert.Error(t, err)

	r, err := value.Int(6).BitAnd(value.Int(3))
	require.NoError(t, err)
	assert.Equal(t, int64(2), r.Int())
}

func TestCompareAcrossNumericKinds(t *testing.T) {
	c, err := value.Int(2).Compare(value.Float(2.5))
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestEqUndefinedOnlyEqualsUndefined(t *testing.T) {
	eq, err := value.Undefined().Eq(value.Null())
	require.NoError(t, err)
	assert.False(t, eq)

	eq, err = value.Undefined().Eq(value.Undefined())
	require.NoError(t, err)
	assert.True(t, eq)
}

func TestEqMapIsRecursiveByContent(t *testing.T) {
	a := value.NewMap()
	a.MapRef().Set(value.String("k"), value.Int(1))
	b := value.NewMap()
	b.MapRef().Set(value.String("k"), value.Int(1))

	eq, err := a.Eq(b)
	require.NoError(t, err)
	assert.True(t, eq, "maps with equal content but distinct identity compare equal")
}

func TestGetSetIndexing(t *testing.T) {
	v := value.Vector([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	got, err := v.Get(value.Int(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Int())

	_, err = v.Get(value.Int(99))
	assert.Error(t, err, "out-of-range index is an error, not a zero value")

	grown, err := v.Set(value.Int(3), value.Int(4))
	require.NoError(t, err)
	assert.Equal(t, 4, len(grown.Vec()), "index == len appends")
}

func TestContainsSubstringAndElement(t *testing.T) {
	ok, err := value.String("hello world").Contains(value.String("wor"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = value.Vector([]value.Value{value.Int(1), value.Int(2)}).Contains(value.Int(2))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPushBackPopBack(t *testing.T) {
	v := value.Vector([]value.Value{value.Int(1)})
	require.NoError(t, v.PushBack(value.Int(2)))
	require.Len(t, v.Vec(), 2)

	last, err := v.PopBack()
	require.NoError(t, err)
	assert.Equal(t, int64(2), last.Int())
	require.Len(t, v.Vec(), 1)

	empty := value.Vector(nil)
	_, err = empty.PopBack()
	assert.Error(t, err)
}
