package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garage/backoffice/internal/infrastructure/auth"
	"github.com/garage/backoffice/internal/infrastructure/config"
	"github.com/garage/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const apiSecret = "integration-secret-with-enough-entropy-0123"

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
	token  string
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAPIClient(t *testing.T, stack *invoicingStack, tenantID uuid.UUID) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App: config.AppConfig{Name: "garage-backoffice", Env: "test"},
		JWT: config.JWTConfig{Secret: apiSecret, Issuer: "garage-backoffice"},
		HTTP: config.HTTPConfig{
			MaxBodySize: 1 << 20,
		},
	}
	jwtService := auth.NewJWTService(cfg.JWT)
	engine := router.NewEngine(router.Dependencies{
		Config:      cfg,
		Logger:      zap.NewNop(),
		Quotes:      stack.quotes,
		Invoicing:   stack.invoices,
		Verifier:    jwtService,
		Revocations: auth.NewInMemoryRevocationList(),
		Version:     "integration",
	})

	token, err := jwtService.GenerateAccessToken(auth.GenerateTokenInput{
		TenantID:  tenantID,
		UserID:    uuid.New(),
		Username:  "accueil",
		ExpiresIn: time.Hour,
	})
	require.NoError(t, err)
	return &apiClient{t: t, engine: engine, token: token}
}

func (c *apiClient) do(method, path string, body any) (int, envelope) {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(c.t, err)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestAPI_QuoteToPaidInvoice(t *testing.T) {
	stack := newInvoicingStack(t)
	tenantID := uuid.New()
	clientID := stack.db.CreateClient(tenantID, "Camille Durand")
	vehicleID := stack.db.CreateVehicle(tenantID, clientID)
	api := newAPIClient(t, stack, tenantID)

	code, env := api.do(http.MethodPost, "/quotes", map[string]any{
		"client_id":  clientID,
		"vehicle_id": vehicleID,
		"line_items": []map[string]any{
			{"description": "Oil change", "quantity": "1", "unit_price": "80"},
			{"description": "Air filter", "quantity": "1", "unit_price": "20"},
		},
		"labor_cost":    "50",
		"tax_rate":      "20",
		"discount_rate": "0",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	quote := decodeData[struct {
		ID                uuid.UUID `json:"id"`
		QuoteNumber       string    `json:"quote_number"`
		Status            string    `json:"status"`
		FinalPayableTotal string    `json:"final_payable_total"`
	}](t, env)
	assert.Equal(t, "DEV-000001", quote.QuoteNumber)
	assert.Equal(t, "draft", quote.Status)
	assert.Equal(t, "180", quote.FinalPayableTotal)

	quotePath := "/quotes/" + quote.ID.String()

	t.Run("a draft quote cannot be invoiced", func(t *testing.T) {
		code, env := api.do(http.MethodPost, quotePath+"/invoice", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ERR_INVALID_STATE", env.Error.Code)
	})

	code, env = api.do(http.MethodPost, quotePath+"/dispatch-acknowledgements", map[string]any{
		"reference": "MAIL-2041",
		"channel":   "email",
	})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = api.do(http.MethodPost, quotePath+"/status", map[string]any{"status": "accepted"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = api.do(http.MethodPost, quotePath+"/invoice", nil)
	require.Equal(t, http.StatusCreated, code, env.Error)
	ensured := decodeData[struct {
		Outcome string `json:"outcome"`
		Invoice struct {
			ID            uuid.UUID `json:"id"`
			InvoiceNumber string    `json:"invoice_number"`
			ClientName    string    `json:"client_name"`
		} `json:"invoice"`
	}](t, env)
	assert.Equal(t, "issued", ensured.Outcome)
	assert.Equal(t, "FAC-000001", ensured.Invoice.InvoiceNumber)
	assert.Equal(t, "Camille Durand", ensured.Invoice.ClientName)

	code, env = api.do(http.MethodPost, quotePath+"/invoice", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "existing", decodeData[struct {
		Outcome string `json:"outcome"`
	}](t, env).Outcome)

	invoicePath := "/invoices/" + ensured.Invoice.ID.String()

	code, env = api.do(http.MethodPost, invoicePath+"/payments", map[string]any{
		"amount": "180",
		"method": "card",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = api.do(http.MethodGet, invoicePath, nil)
	require.Equal(t, http.StatusOK, code)
	invoice := decodeData[struct {
		PaymentStatus     string `json:"payment_status"`
		OutstandingAmount string `json:"outstanding_amount"`
		Payments          []struct {
			Amount string `json:"amount"`
		} `json:"payments"`
	}](t, env)
	assert.Equal(t, "paid", invoice.PaymentStatus)
	assert.Equal(t, "0", invoice.OutstandingAmount)
	require.Len(t, invoice.Payments, 1)

	t.Run("a paid invoice cannot be cancelled", func(t *testing.T) {
		code, env := api.do(http.MethodPost, invoicePath+"/cancel", map[string]any{"reason": "duplicate"})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ERR_INVALID_STATE", env.Error.Code)
	})

	t.Run("statistics", func(t *testing.T) {
		code, env := api.do(http.MethodGet, "/invoices/statistics", nil)
		require.Equal(t, http.StatusOK, code)
		stats := decodeData[struct {
			TotalCount int64 `json:"total_count"`
			PaidCount  int64 `json:"paid_count"`
		}](t, env)
		assert.Equal(t, int64(1), stats.TotalCount)
		assert.Equal(t, int64(1), stats.PaidCount)
	})
}

func TestAPI_OtherTenantSeesNothing(t *testing.T) {
	stack := newInvoicingStack(t)
	owner := uuid.New()
	quote := stack.acceptedQuote(t, t.Context(), owner)

	intruder := newAPIClient(t, stack, uuid.New())
	code, env := intruder.do(http.MethodGet, "/quotes/"+quote.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ERR_NOT_FOUND", env.Error.Code)

	code, _ = intruder.do(http.MethodPost, "/quotes/"+quote.ID.String()+"/invoice", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
