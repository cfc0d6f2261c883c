package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_backoffice/internal/metrics"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

const (
	adminKey = "admin"
	tokenKey = "bearer_token"
)

// TokenAuthenticator resolves a bearer token to an active admin.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.AdminIdentity, error)
}

// AdminAuthMiddleware authenticates back office requests by bearer token.
// Every request is checked on its own; nothing is cached between requests.
type AdminAuthMiddleware struct {
	auth        TokenAuthenticator
	rateLimiter *InvalidAuthRateLimiter
}

// NewAdminAuthMiddleware constructs an AdminAuthMiddleware.
func NewAdminAuthMiddleware(auth TokenAuthenticator, rateLimiter *InvalidAuthRateLimiter) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{
		auth:        auth,
		rateLimiter: rateLimiter,
	}
}

// Required aborts with 401 unless the request carries a valid token.
func (m *AdminAuthMiddleware) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			metrics.AuthFailures.WithLabelValues("missing").Inc()
			m.handleAuthError(c, "UNAUTHENTICATED", "Access token required")
			return
		}

		admin, err := m.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, utils.ErrInvalidToken) || errors.Is(err, utils.ErrUnauthenticated) {
				metrics.AuthFailures.WithLabelValues("token").Inc()
				m.handleAuthError(c, "INVALID_TOKEN", "Invalid or expired token")
				return
			}
			log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Token lookup failed")
			utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			c.Abort()
			return
		}

		c.Set(adminKey, admin)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// Optional attaches the admin when a valid token is present and never aborts.
func (m *AdminAuthMiddleware) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := BearerToken(c); token != "" {
			if admin, err := m.auth.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(adminKey, admin)
				c.Set(tokenKey, token)
			}
		}
		c.Next()
	}
}

func (m *AdminAuthMiddleware) handleAuthError(c *gin.Context, code, message string) {
	if m.rateLimiter != nil && !m.rateLimiter.Allow(c.ClientIP()) {
		utils.Error(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many invalid authentication attempts")
		c.Abort()
		return
	}

	utils.Error(c, http.StatusUnauthorized, code, message)
	c.Abort()
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetAdmin returns the authenticated admin from context, or nil.
func GetAdmin(c *gin.Context) *models.AdminIdentity {
	v, ok := c.Get(adminKey)
	if !ok {
		return nil
	}
	admin, _ := v.(*models.AdminIdentity)
	return admin
}
