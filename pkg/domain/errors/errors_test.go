package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  New(CodeMissingParameter, "tools", "job_id is required", nil),
			want: "[tools:MISSING_PARAMETER] job_id is required",
		},
		{
			name: "with cause",
			err:  New(CodeConfigurationInvalid, "config", "bad port", io.EOF),
			want: "[config:CONFIGURATION_INVALID] bad port: EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorMatchingByCode(t *testing.T) {
	err := fmt.Errorf("loading: %w", New(CodeConfigurationInvalid, "config", "missing url", nil))

	assert.True(t, HasCode(err, CodeConfigurationInvalid))
	assert.False(t, HasCode(err, CodeValidationFailed))
	assert.Equal(t, CodeConfigurationInvalid, CodeOf(err))
	assert.Equal(t, CodeUnknown, CodeOf(io.EOF))
}

func TestUnwrap(t *testing.T) {
	err := New(CodeInternalError, "bootstrap", "failed", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestValidation(t *testing.T) {
	err := Validation("tools", "hostname", "must be a non-empty string")
	assert.Equal(t, CodeValidationFailed, err.Code)
	assert.Equal(t, "hostname must be a non-empty string", err.Message)
}
