package builtins

import (
	"testing"

	"github.com/aledsdavies/skelc/pkgs/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMAppendMutatesReceiverAndReturnsIt(t *testing.T) {
	recv := value.Vector([]value.Value{value.Int(1)})
	v, err := mAppend(nil, &recv, []value.Value{value.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, []int64{recv.Vec()[0].Int(), recv.Vec()[1].Int()})
	assert.Equal(t, recv.Vec(), v.Vec())
}

func TestMAppendOnNonVectorErrors(t *testing.T) {
	recv := value.Int(1)
	_, err := mAppend(nil, &recv, []value.Value{value.Int(2)})
	assert.Error(t, err)
}

func TestMPopRemovesLastElement(t *testing.T) {
	recv := value.Vector([]value.Value{value.Int(1), value.Int(2)})
	v, err := mPop(nil, &recv, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Int())
	assert.Len(t, recv.Vec(), 1)
}

func TestMPopOnEmptyVectorErrors(t *testing.T) {
	recv := value.Vector(nil)
	_, err := mPop(nil, &recv, nil)
	assert.Error(t, err)
}

func TestMContainsOverVectorAndString(t *testing.T) {
	recv := value.Vector([]value.Value{value.Int(1), value.Int(2)})
	v, err := mContains(nil, &recv, []value.Value{value.Int(2)})
	require.NoError(t, err)
	assert.True(t, v.Bool())

	recv = value.String("hello world")
	v, err = mContains(nil, &recv, []value.Value{value.String("world")})
	require.NoError(t, err)
	assert.True(t, v.Bool())

	v, err = mContains(nil, &recv, []value.Value{value.String("nope")})
	require.NoError(t, err)
	assert.False(t, v.Bool())
}

func TestDateMethodsParseRFC3339Receiver(t *testing.T) {
	recv := value.String("2024-07-15T00:00:00Z")

	y, err := mYear(nil, &recv, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2024), y.Int())

	q, err := mQuarter(nil, &recv, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), q.Int())

	m, err := mMonth(nil, &recv, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), m.Int())

	d, err := mDay(nil, &recv, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(15), d.Int())
}

func TestDateMethodOnNonDateStringErrors(t *testing.T) {
	recv := value.String("not a date")
	_, err := mYear(nil, &recv, nil)
	assert.Error(t, err)
}

func TestMethodsTableAliasesAppendAndPush(t *testing.T) {
	table := Methods()
	_, ok := table["append"]
	assert.True(t, ok)
	_, ok = table["push"]
	assert.True(t, ok)
}
