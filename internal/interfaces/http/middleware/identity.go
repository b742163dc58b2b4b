package middleware

import (
	"errors"
	"strings"

	"github.com/garage/backoffice/internal/infrastructure/auth"
	"github.com/garage/backoffice/internal/infrastructure/logger"
	"github.com/garage/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity keys and headers
const (
	IdentityKey    = "identity"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
)

// TokenVerifier validates bearer tokens
type TokenVerifier interface {
	ValidateAccessToken(token string) (*auth.Identity, *auth.Claims, error)
}

var _ TokenVerifier = (*auth.JWTService)(nil)

// IdentityConfig configures the identity middleware
type IdentityConfig struct {
	Verifier TokenVerifier
	// Revocations is optional; lookups that fail let the request through
	Revocations auth.RevocationList
	// AllowDevHeaders accepts X-Tenant-ID / X-User-ID when no bearer token is sent
	AllowDevHeaders bool
	SkipPaths       []string
	Logger          *zap.Logger
}

// Identity resolves the caller from a bearer token, or from development
// headers when allowed, and refuses the request when there is none.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		var (
			identity *auth.Identity
			err      error
		)
		header := c.GetHeader(AuthHeaderKey)
		switch {
		case header != "":
			identity, err = verifyBearer(c, cfg, header)
		case cfg.AllowDevHeaders:
			identity, err = devHeaderIdentity(c)
		default:
			err = errMissingCredentials
		}
		if err != nil {
			cfg.Logger.Warn("Authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", GetRequestID(c)),
			)
			code, message := authErrorResponse(err)
			abortWithError(c, code, message)
			return
		}

		c.Set(IdentityKey, identity)
		ctx := logger.WithIdentity(c.Request.Context(), identity.TenantID.String(), userIDString(identity))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

var (
	errMissingCredentials = errors.New("missing credentials")
	errMalformedHeader    = errors.New("malformed authorization header")
	errInvalidDevHeaders  = errors.New("invalid identity headers")
)

func verifyBearer(c *gin.Context, cfg IdentityConfig, header string) (*auth.Identity, error) {
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok || token == "" {
		return nil, errMalformedHeader
	}
	if cfg.Verifier == nil {
		return nil, auth.ErrInvalidToken
	}
	identity, claims, err := cfg.Verifier.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	if cfg.Revocations == nil {
		return identity, nil
	}

	ctx := c.Request.Context()
	if claims.ID != "" {
		revoked, err := cfg.Revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			cfg.Logger.Error("Failed to check token revocation", zap.String("jti", claims.ID), zap.Error(err))
		} else if revoked {
			return nil, auth.ErrTokenRevoked
		}
	}
	invalidated, err := cfg.Revocations.IsUserTokenInvalidated(ctx, claims.UserID, claims.IssuedAtTime())
	if err != nil {
		cfg.Logger.Error("Failed to check user token invalidation", zap.String("user_id", claims.UserID), zap.Error(err))
	} else if invalidated {
		return nil, auth.ErrTokenRevoked
	}
	return identity, nil
}

func devHeaderIdentity(c *gin.Context) (*auth.Identity, error) {
	tenantID, err := uuid.Parse(c.GetHeader(HeaderTenantID))
	if err != nil {
		return nil, errInvalidDevHeaders
	}
	identity := &auth.Identity{TenantID: tenantID}
	if raw := c.GetHeader(HeaderUserID); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return nil, errInvalidDevHeaders
		}
		identity.UserID = userID
	}
	return identity, nil
}

func authErrorResponse(err error) (string, string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return dto.ErrCodeTokenInvalid, "Token is not yet valid"
	case errors.Is(err, errMissingCredentials):
		return dto.ErrCodeUnauthorized, "Authentication required"
	case errors.Is(err, errInvalidDevHeaders):
		return dto.ErrCodeUnauthorized, "Invalid X-Tenant-ID or X-User-ID header"
	default:
		return dto.ErrCodeTokenInvalid, "Invalid token"
	}
}

func userIDString(identity *auth.Identity) string {
	if identity.UserID == uuid.Nil {
		return ""
	}
	return identity.UserID.String()
}

// GetIdentity returns the caller resolved by Identity
func GetIdentity(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	return identity, ok && identity != nil
}
