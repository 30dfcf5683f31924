package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForeignKeyBindsNullOnZero(t *testing.T) {
	v, err := ForeignKey(0).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ForeignKey(42).Value()
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestNullableStringBindsNullOnEmpty(t *testing.T) {
	v, err := NullableString("").Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = NullableString("x").Value()
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestExpandTuple(t *testing.T) {
	got := ExpandTuple(1, []interface{}{2, []interface{}{3, 4}}, 5)
	assert.Equal(t, []interface{}{1, 2, 3, 4, 5}, got)
}

func TestPlaceholdersAndInClause(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?, ?, ?", Placeholders(3))

	clause, args := InClause("id_media", []int64{7, 8})
	assert.Equal(t, "id_media IN (?, ?)", clause)
	assert.Equal(t, []interface{}{int64(7), int64(8)}, args)
}
