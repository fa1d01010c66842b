package sio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJS(t *testing.T) {
	assert.Equal(t, "null", JS(nil))
	assert.Equal(t, `{"curve":"a","frame":1,"value":2}`, JS(Sample{"a", 1, 2}))
	assert.True(t, strings.HasPrefix(JS(make(chan int)), "(chan int)"))

	long := JShort(strings.Repeat("x", 100))
	assert.Len(t, long, 73)
	assert.True(t, strings.HasSuffix(long, "..."))
}
