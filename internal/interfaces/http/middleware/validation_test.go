package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/garage/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentBody struct {
	Amount string `json:"amount" binding:"required"`
	Method string `json:"method" binding:"required,oneof=cash card bank_transfer check"`
}

func TestHandleBindError_ValidationFields(t *testing.T) {
	SetupValidator()

	r := gin.New()
	r.Use(RequestID())
	r.POST("/payments", func(c *gin.Context) {
		var body paymentBody
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{"method":"bitcoin"}`)))

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

	byField := map[string]dto.ValidationDetail{}
	for _, f := range resp.Error.Fields {
		byField[f.Field] = f
	}
	require.Contains(t, byField, "amount")
	require.Contains(t, byField, "method")
	assert.Equal(t, dto.ErrCodeValidationRequired, byField["amount"].Code)
	assert.Equal(t, "This field is required", byField["amount"].Message)
	assert.Equal(t, dto.ErrCodeValidationFormat, byField["method"].Code)
	assert.Equal(t, "Must be one of: cash card bank_transfer check", byField["method"].Message)
}
