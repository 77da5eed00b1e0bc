package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/kizunalab/machiba/internal/api/shared/errors"
	"github.com/kizunalab/machiba/internal/auth"
	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/logger"
)

const (
	AUTH_TYPE_KEY    = "auth_type"
	AUTH_SUBJECT_KEY = "auth_subject"
	SESSION_KEY      = "session_claims"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Issuer  *auth.TokenIssuer
	APIKeys []string
}

// AuthResult holds the result of authentication
type AuthResult struct {
	Success     bool
	AuthType    string // "jwt" or "apikey"
	Claims      *auth.SessionClaims
	AuthSubject string
	Error       error
}

// Authenticate validates the Authorization header and returns the
// authentication result
func Authenticate(authHeader string, cfg AuthConfig) AuthResult {
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	result := AuthResult{
		Success: false,
	}

	if authHeader == "" {
		result.Error = errors.New("missing Authorization header")
		return result
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		result.Error = errors.New("invalid Authorization header format")
		return result
	}

	authType := strings.ToLower(parts[0])
	credentials := parts[1]

	switch authType {
	case "bearer":
		// Admin session token
		if cfg.Issuer == nil {
			result.Error = errors.New("session tokens not configured")
			return result
		}
		claims, err := cfg.Issuer.Verify(credentials)
		if err != nil {
			result.Error = err
			return result
		}
		result.Success = true
		result.AuthType = "jwt"
		result.Claims = claims
		if claims.Subject != "" {
			result.AuthSubject = claims.Subject
		}

	case "apikey":
		if len(apiKeyMap) == 0 {
			result.Error = errors.New("no API keys configured")
			return result
		}
		if !apiKeyMap[credentials] {
			result.Error = errors.New("invalid API key")
			return result
		}
		result.Success = true
		result.AuthType = "apikey"

	default:
		result.Error = fmt.Errorf("unsupported authorization type: %s", authType)
		return result
	}

	return result
}

// Auth returns a gin middleware for authentication.
// It supports both session tokens (Bearer) and API Key authentication.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		result := Authenticate(authHeader, cfg)

		if !result.Success {
			logger.Warn("Authentication failed",
				zap.Error(result.Error),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			apiErr := apierrors.NewUnauthorizedError("Authentication failed", result.Error.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiErr)
			return
		}

		c.Set(AUTH_TYPE_KEY, result.AuthType)
		if result.Claims != nil {
			c.Set(SESSION_KEY, result.Claims)
		}
		if result.AuthSubject != "" {
			c.Set(AUTH_SUBJECT_KEY, result.AuthSubject)
		}

		c.Next()
	}
}

// RequireRole returns a middleware that rejects session users below the
// given role. API key callers pass through, they are trusted service
// credentials.
func RequireRole(role domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(AUTH_TYPE_KEY) == "apikey" {
			c.Next()
			return
		}

		claims := SessionFromContext(c)
		if claims == nil || (role == domain.RoleAdmin && claims.Role != domain.RoleAdmin) {
			apiErr := apierrors.NewForbiddenError("Insufficient privileges")
			c.AbortWithStatusJSON(http.StatusForbidden, apiErr)
			return
		}

		c.Next()
	}
}

// SessionFromContext returns the session claims stored by Auth, or nil
func SessionFromContext(c *gin.Context) *auth.SessionClaims {
	v, ok := c.Get(SESSION_KEY)
	if !ok {
		return nil
	}
	claims, ok := v.(*auth.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

// ActorFromContext returns a human-readable identity for activity
// logging: the session username, or "api-key" for service callers
func ActorFromContext(c *gin.Context) string {
	if claims := SessionFromContext(c); claims != nil {
		return claims.Username
	}
	if c.GetString(AUTH_TYPE_KEY) == "apikey" {
		return "api-key"
	}
	return "anonymous"
}
