package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"auth", Auth("gate", "expired"), KindAuth},
		{"wrapped conflict", fmt.Errorf("create shop: %w", Conflict("insert", "name taken")), KindConflict},
		{"store", Store("get", errors.New("conn reset")), KindStore},
		{"plain", errors.New("x"), KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("delete", "shop not found"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
}

func TestStore_KeepsClassifiedErrors(t *testing.T) {
	inner := Validation("encode", "latitude out of range")
	assert.Same(t, inner, Store("insert", inner))
	assert.Nil(t, Store("insert", nil))

	cause := errors.New("deadlock detected")
	wrapped := Store("update", cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "update: store failure: deadlock detected", wrapped.Error())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "missing/invalid token", Message(Auth("authenticate", "missing/invalid token")))
	assert.Equal(t, "", Message(errors.New("raw")))
}
