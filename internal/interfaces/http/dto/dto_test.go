package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/garage/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeErrorCode_DomainCodes(t *testing.T) {
	tests := []struct {
		domain string
		code   string
		status int
	}{
		{shared.CodeValidation, ErrCodeValidation, http.StatusBadRequest},
		{shared.CodeNotFound, ErrCodeNotFound, http.StatusNotFound},
		{shared.CodeInvalidState, ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{shared.CodeConflict, ErrCodeConflict, http.StatusConflict},
		{shared.CodeUnavailable, ErrCodeUnavailable, http.StatusServiceUnavailable},
		{shared.CodeReplacementIncomplete, ErrCodeReplacementIncomplete, http.StatusServiceUnavailable},
		{shared.CodeUnauthorized, ErrCodeUnauthorized, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			code := NormalizeErrorCode(tt.domain)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, GetHTTPStatus(code))
		})
	}

	assert.Equal(t, "CUSTOM", NormalizeErrorCode("CUSTOM"))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("CUSTOM"))
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1}, 41, 2, 20)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	resp = NewSuccessResponseWithMeta(nil, 0, 1, 20)
	assert.Equal(t, 0, resp.Meta.TotalPages)
}

func TestNewErrorResponse_JSON(t *testing.T) {
	resp := NewErrorResponse(ErrCodeInvalidState, "Quote is not accepted", "req-1", map[string]any{"current_state": "sent"})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": {
			"code": "ERR_INVALID_STATE",
			"message": "Quote is not accepted",
			"request_id": "req-1",
			"details": {"current_state": "sent"}
		}
	}`, string(raw))
}
