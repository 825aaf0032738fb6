package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/internal/errors"
)

// Context keys for caller information
const (
	IdentityKey      = "identity"
	AuthorizationKey = "authorization"
)

// IdentityResolver turns an Authorization header into a caller identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, authorization string) (model.Identity, error)
}

type AuthMiddleware struct {
	resolver IdentityResolver
}

func NewAuthMiddleware(resolver IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
	}
}

// Identify resolves the caller on every request. A missing credential
// continues as an anonymous caller; a rejected one stops with 401.
func (m *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		// Try to get credential from Authorization header first
		authorization := strings.TrimSpace(c.GetHeader("Authorization"))
		if authorization == "" {
			// browsers cannot set headers on websocket upgrades
			if token := c.Query("token"); token != "" {
				authorization = "Bearer " + token
			}
		}

		identity, err := m.resolver.Resolve(c.Request.Context(), authorization)
		if err != nil {
			if stderrors.Is(err, service.ErrInvalidCredential) {
				log.Warn("Credential rejected", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "Invalid or expired credential")
			} else {
				log.Error("Failed to resolve caller identity", err, map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				errors.ServiceUnavailable(c, errors.AuthProviderUnavailable, "Identity provider is unavailable, please try again later")
			}
			c.Abort()
			return
		}

		// Set caller information in context
		c.Set(IdentityKey, identity)
		c.Set(AuthorizationKey, authorization)

		if identity.Authenticated() {
			log.Debug("Caller identified", map[string]interface{}{
				"user_app_id": identity.UserAppID,
				"admin":       identity.Admin,
				"role":        identity.Role,
			})
		}
		c.Next()
	}
}

// RequireAuthenticated rejects anonymous callers.
func (m *AuthMiddleware) RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetIdentity(c).Authenticated() {
			GetLoggerFromContext(c).Warn("Anonymous caller on protected route", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.Unauthorized(c, "Login required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects everyone but system administrators.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := GetIdentity(c)
		if !identity.Admin {
			GetLoggerFromContext(c).Warn("Non-admin caller on admin route", map[string]interface{}{
				"user_app_id": identity.UserAppID,
				"path":        c.Request.URL.Path,
			})
			errors.Unauthorized(c, "Only system administrators may do this")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetIdentity returns the caller resolved by Identify, or the anonymous
// identity.
func GetIdentity(c *gin.Context) model.Identity {
	if v, exists := c.Get(IdentityKey); exists {
		if identity, ok := v.(model.Identity); ok {
			return identity
		}
	}
	return model.Identity{}
}

// GetAuthorization returns the credential the caller presented.
func GetAuthorization(c *gin.Context) string {
	return c.GetString(AuthorizationKey)
}
