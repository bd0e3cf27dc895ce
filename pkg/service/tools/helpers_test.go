package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"

	derrors "github.com/oncp/resolution-mcp/pkg/domain/errors"
)

func TestGenerateCallID(t *testing.T) {
	id1 := GenerateCallID()
	id2 := GenerateCallID()

	assert.Len(t, id1, 36)
	assert.NotEqual(t, id1, id2)
}

func TestExtractStringParam(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		key      string
		want     string
		wantCode derrors.Code
	}{
		{
			name: "valid string param",
			args: map[string]interface{}{
				"job_id": "abc-123",
			},
			key:  "job_id",
			want: "abc-123",
		},
		{
			name: "surrounding whitespace trimmed",
			args: map[string]interface{}{
				"hostname": "  host1\t\n",
			},
			key:  "hostname",
			want: "host1",
		},
		{
			name: "missing param",
			args: map[string]interface{}{
				"other": "value",
			},
			key:      "job_id",
			wantCode: derrors.CodeMissingParameter,
		},
		{
			name: "non-string param",
			args: map[string]interface{}{
				"job_id": 123,
			},
			key:      "job_id",
			wantCode: derrors.CodeInvalidParameter,
		},
		{
			name: "null param",
			args: map[string]interface{}{
				"job_id": nil,
			},
			key:      "job_id",
			wantCode: derrors.CodeInvalidParameter,
		},
		{
			name: "empty string param",
			args: map[string]interface{}{
				"job_id": "",
			},
			key:      "job_id",
			wantCode: derrors.CodeValidationFailed,
		},
		{
			name: "whitespace only param",
			args: map[string]interface{}{
				"job_id": "   ",
			},
			key:      "job_id",
			wantCode: derrors.CodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractStringParam(tt.args, tt.key)
			if tt.wantCode != "" {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, derrors.CodeOf(err))
				assert.Contains(t, err.Error(), tt.key)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractStringParamsStopsAtFirstFailure(t *testing.T) {
	args := map[string]interface{}{
		"hostname":          "host1",
		"issue_description": "disk full",
	}

	got, err := ExtractStringParams(args, "hostname", "error_code", "issue_description")
	assert.Nil(t, got)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "error_code")
}

func TestMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
		want string
	}{
		{
			name: "error result",
			data: ToolResult{Success: false, Error: "boom"},
			want: `{"success":false,"error":"boom"}`,
		},
		{
			name: "nil data",
			data: nil,
			want: "null",
		},
		{
			name: "unsupported value",
			data: make(chan int),
			want: "{}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarshalJSON(tt.data))
		})
	}
}
