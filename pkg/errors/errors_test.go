package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, e3 == e2)
}

func TestWrapKeepsSentinel(t *testing.T) {
	sentinel := New("sentinel")
	wrapped := sentinel.Wrap(New("first"))
	other := sentinel.WrapMessage("second %d", 2)

	assert.True(t, Is(wrapped, sentinel))
	assert.True(t, Is(other, sentinel))
	assert.Nil(t, sentinel.Unwrap(), "wrapping must not mutate the sentinel")
	assert.Equal(t, "sentinel", sentinel.Error())
	assert.Equal(t, "sentinel: first", wrapped.Error())
	assert.Equal(t, "sentinel: second 2", other.Error())
	assert.False(t, Is(wrapped, New("sentinel")))
}

func TestAsThroughFmt(t *testing.T) {
	sentinel := New("boom")
	err := fmt.Errorf("context: %w", sentinel.Wrap(fmt.Errorf("inner")))

	var target *Error
	assert.True(t, As(err, &target))
	assert.True(t, Is(err, sentinel))
	assert.Equal(t, "boom: inner", target.Error())
}
