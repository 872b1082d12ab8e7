package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	base := errors.New("no items")
	err := ParseError("menu build failed", base)

	assert.Equal(t, "[parse] menu build failed: no items", err.Error())
	assert.Equal(t, "[config] bad port", ConfigError("bad port", nil).Error())
	assert.ErrorIs(t, err, base)
}

func TestIsType(t *testing.T) {
	inner := CompletionError("upstream timeout", errors.New("deadline"))
	wrapped := fmt.Errorf("respond: %w", inner)
	nested := StorageError("save session", ValidationError("empty id", nil))

	tests := []struct {
		name string
		err  error
		typ  ErrorType
		want bool
	}{
		{"direct", inner, ErrorTypeCompletion, true},
		{"wrapped", wrapped, ErrorTypeCompletion, true},
		{"other type", wrapped, ErrorTypeParse, false},
		{"nested inner type", nested, ErrorTypeValidation, true},
		{"plain error", errors.New("x"), ErrorTypeParse, false},
		{"nil", nil, ErrorTypeParse, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsType(tt.err, tt.typ))
		})
	}
}
