package common

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFixedKind(t *testing.T) {
	assert.True(t, IsFixedKind(reflect.Float64))
	assert.False(t, IsFixedKind(reflect.Slice))
}

func TestPadBytes(t *testing.T) {
	cases := []struct{ n, size, pad int }{
		{0, 4, 0},
		{1, 4, 3},
		{2, 4, 2},
		{4, 4, 0},
		{5, 8, 3},
		{7, 1, 0},
		{6, 2, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.pad, PadBytes(c.n, c.size), "n=%d size=%d", c.n, c.size)
		assert.Zero(t, (c.n+c.pad)%c.size)
	}
	assert.True(t, IsPowerOfTwo(8))
	assert.False(t, IsPowerOfTwo(6))
	assert.False(t, IsPowerOfTwo(0))
}
