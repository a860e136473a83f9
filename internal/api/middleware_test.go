package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{name: "success response", status: "200", input: map[string]string{"key": "value"}},
		{name: "created response", status: "201", input: map[string]string{"id": "book-1"}},
		{name: "no content response", status: "204", input: nil},
		{name: "bad request error", status: "400", input: errors.New("invalid input")},
		{name: "not found error", status: "404", input: errors.New("book not found")},
		{
			name:   "state conflict with code",
			status: "409",
			input:  &APIError{Code: "STATE_CONFLICT", Message: "request is not pending"},
		},
		{name: "internal server error", status: "500", input: errors.New("internal error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			raw, err := json.Marshal(result)
			require.NoError(t, err)

			var envelope map[string]any
			require.NoError(t, json.Unmarshal(raw, &envelope))
			require.Contains(t, envelope, "v")
			assert.Equal(t, float64(EnvelopeVersion), envelope["v"])
		})
	}
}

func TestEnvelopeTransformer_SuccessResponse(t *testing.T) {
	data := map[string]string{"title": "Pather Panchali"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok)
	assert.True(t, envelope.Success)
	assert.Equal(t, data, envelope.Data)
	assert.Empty(t, envelope.Error)
}

func TestEnvelopeTransformer_PlainError(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "400", errors.New("validation failed"))
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok)
	assert.False(t, envelope.Success)
	assert.Nil(t, envelope.Data)
	assert.Equal(t, "validation failed", envelope.Error)
}

func TestEnvelopeTransformer_CodedError(t *testing.T) {
	apiErr := &APIError{
		Code:    "VALIDATION",
		Message: "validation failed",
		Details: []string{"body.title: expected required property title to be present"},
	}

	result, err := EnvelopeTransformer(nil, "400", apiErr)
	require.NoError(t, err)

	envelope, ok := result.(APIErrorEnvelope)
	require.True(t, ok)
	assert.False(t, envelope.Success)
	assert.Equal(t, "VALIDATION", envelope.Code)
	assert.Equal(t, "validation failed", envelope.Message)
	assert.Equal(t, "validation failed", envelope.Error)
	assert.Equal(t, apiErr.Details, envelope.Details)
}

func TestRequestID(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.NotEmpty(t, resp.Header().Get(requestIDHeader))

	resp = ts.api.Get("/health", requestIDHeader+": trace-42")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "trace-42", resp.Header().Get(requestIDHeader))
}
