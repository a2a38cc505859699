package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func judgmentSchema() *Schema {
	return &Schema{
		Name:        "test-judgment",
		Description: "A test judgment",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"appropriate": map[string]any{"type": "boolean"},
				"guidance":    map[string]any{"type": "string"},
			},
			"required":             []string{"appropriate", "guidance"},
			"additionalProperties": false,
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"appropriate":true,"guidance":""}`, false},
		{"missing required", `{"appropriate":false}`, true},
		{"wrong type", `{"appropriate":"yes","guidance":""}`, true},
		{"extra property", `{"appropriate":true,"guidance":"","score":3}`, true},
		{"not json", `true, it is appropriate`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(judgmentSchema(), json.RawMessage(tt.raw))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			f, ok := FailureOf(err)
			assert.True(t, ok && f == FailureInvalidResponse, "expected invalid response, got %v", err)
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	assert.NoError(t, validateResponse(nil, json.RawMessage(`anything`)))
}

func TestDecodeStripsCodeFence(t *testing.T) {
	resp := &Response{Content: json.RawMessage("```json\n{\"appropriate\":false,\"guidance\":\"Say hello back.\"}\n```")}
	var out struct {
		Appropriate bool   `json:"appropriate"`
		Guidance    string `json:"guidance"`
	}
	require.NoError(t, Decode(judgmentSchema(), resp, &out))
	assert.False(t, out.Appropriate)
	assert.Equal(t, "Say hello back.", out.Guidance)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`  {"a":1} `))
}
