package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := errors.New("connection refused")

	t.Run("matches outermost code", func(t *testing.T) {
		err := Wrap(base, CodeInternal, "load department")
		assert.True(t, HasCode(err, CodeInternal))
		assert.ErrorIs(t, err, base)
	})

	t.Run("matches nested code through fmt wrapping", func(t *testing.T) {
		inner := New(CodeNotFound, "department not found")
		err := fmt.Errorf("process roster: %w", Wrap(inner, CodeInternal, "assignment failed"))
		assert.True(t, HasCode(err, CodeNotFound))
		assert.True(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(base, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(base))
	})

	t.Run("wrap nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "noop"))
	})
}
