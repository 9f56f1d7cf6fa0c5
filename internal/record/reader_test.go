package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderKeepsFirstError(t *testing.T) {
	r := NewReader(Row{"a": "x", "n": "bad", "y": "81"})

	assert.Equal(t, "x", r.Text("a"))
	assert.Equal(t, 1981, *r.Year("y"))
	assert.Nil(t, r.Integer("n"))
	assert.Nil(t, r.String("a"))

	var coercion *CoercionError
	require.ErrorAs(t, r.Err(), &coercion)
	assert.Equal(t, "n", coercion.Field)
}

func TestReaderAbsent(t *testing.T) {
	r := NewReader(Row{"a": nil, "d": "", "f": nil})

	assert.Equal(t, "", r.Text("a"))
	assert.Nil(t, r.Date("d"))
	assert.Nil(t, r.Double("f"))
	assert.NoError(t, r.Err())
}
