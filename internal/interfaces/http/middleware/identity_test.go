package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garage/backoffice/internal/infrastructure/auth"
	"github.com/garage/backoffice/internal/infrastructure/config"
	"github.com/garage/backoffice/internal/infrastructure/logger"
	"github.com/garage/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "a-test-secret-that-is-long-enough-for-hs256"

type brokenRevocations struct{}

func (brokenRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (brokenRevocations) IsUserTokenInvalidated(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func newIdentityRouter(cfg IdentityConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Identity(cfg))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/whoami", func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		ctx := c.Request.Context()
		c.JSON(http.StatusOK, gin.H{
			"tenant_id":     identity.TenantID.String(),
			"user_id":       identity.UserID.String(),
			"ctx_tenant_id": logger.GetTenantID(ctx),
			"ctx_user_id":   logger.GetUserID(ctx),
		})
	})
	return r
}

func doGet(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdentity_BearerToken(t *testing.T) {
	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: testSecret, Issuer: "garage-identity"})
	tenantID, userID := uuid.New(), uuid.New()
	token, err := jwtSvc.GenerateAccessToken(auth.GenerateTokenInput{TenantID: tenantID, UserID: userID, Username: "mechanic"})
	require.NoError(t, err)

	r := newIdentityRouter(IdentityConfig{Verifier: jwtSvc, SkipPaths: []string{"/health"}})

	w := doGet(r, "/whoami", map[string]string{AuthHeaderKey: BearerPrefix + token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tenant_id":"`+tenantID.String()+`"`)
	assert.Contains(t, w.Body.String(), `"ctx_tenant_id":"`+tenantID.String()+`"`)
	assert.Contains(t, w.Body.String(), `"ctx_user_id":"`+userID.String()+`"`)

	t.Run("skip path needs no credentials", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, doGet(r, "/health", nil).Code)
	})

	t.Run("missing credentials", func(t *testing.T) {
		w := doGet(r, "/whoami", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, decodeEnvelope(t, w).Error.Code)
	})

	t.Run("dev headers ignored unless allowed", func(t *testing.T) {
		w := doGet(r, "/whoami", map[string]string{HeaderTenantID: tenantID.String()})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := doGet(r, "/whoami", map[string]string{AuthHeaderKey: "Basic abc"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenInvalid, decodeEnvelope(t, w).Error.Code)
	})

	t.Run("wrong signature", func(t *testing.T) {
		other := auth.NewJWTService(config.JWTConfig{Secret: "another-secret-that-is-long-enough-too", Issuer: "garage-identity"})
		forged, err := other.GenerateAccessToken(auth.GenerateTokenInput{TenantID: tenantID, UserID: userID})
		require.NoError(t, err)

		w := doGet(r, "/whoami", map[string]string{AuthHeaderKey: BearerPrefix + forged})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenInvalid, decodeEnvelope(t, w).Error.Code)
	})
}

func TestIdentity_Revocation(t *testing.T) {
	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: testSecret})
	tenantID, userID := uuid.New(), uuid.New()
	token, err := jwtSvc.GenerateAccessToken(auth.GenerateTokenInput{TenantID: tenantID, UserID: userID})
	require.NoError(t, err)
	_, claims, err := jwtSvc.ValidateAccessToken(token)
	require.NoError(t, err)

	t.Run("revoked token", func(t *testing.T) {
		revocations := auth.NewInMemoryRevocationList()
		revocations.Revoke(claims.ID)
		r := newIdentityRouter(IdentityConfig{Verifier: jwtSvc, Revocations: revocations})

		w := doGet(r, "/whoami", map[string]string{AuthHeaderKey: BearerPrefix + token})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenRevoked, decodeEnvelope(t, w).Error.Code)
	})

	t.Run("user tokens invalidated after issuance", func(t *testing.T) {
		revocations := auth.NewInMemoryRevocationList()
		revocations.InvalidateUser(userID.String(), time.Now().Add(time.Minute))
		r := newIdentityRouter(IdentityConfig{Verifier: jwtSvc, Revocations: revocations})

		w := doGet(r, "/whoami", map[string]string{AuthHeaderKey: BearerPrefix + token})
		assert.Equal(t, dto.ErrCodeTokenRevoked, decodeEnvelope(t, w).Error.Code)
	})

	t.Run("lookup failure lets the request through", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		r := newIdentityRouter(IdentityConfig{Verifier: jwtSvc, Revocations: brokenRevocations{}, Logger: zap.New(core)})

		w := doGet(r, "/whoami", map[string]string{AuthHeaderKey: BearerPrefix + token})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, logs.Len())
	})
}

func TestIdentity_DevHeaders(t *testing.T) {
	r := newIdentityRouter(IdentityConfig{AllowDevHeaders: true})
	tenantID, userID := uuid.New(), uuid.New()

	w := doGet(r, "/whoami", map[string]string{HeaderTenantID: tenantID.String(), HeaderUserID: userID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"`+userID.String()+`"`)

	t.Run("user is optional", func(t *testing.T) {
		w := doGet(r, "/whoami", map[string]string{HeaderTenantID: tenantID.String()})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ctx_user_id":""`)
	})

	t.Run("tenant must be a UUID", func(t *testing.T) {
		w := doGet(r, "/whoami", map[string]string{HeaderTenantID: "garage-1"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
