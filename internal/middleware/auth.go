package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clinicware/clinic-api/internal/handler"
	"github.com/clinicware/clinic-api/internal/model"
	"github.com/clinicware/clinic-api/internal/service/auth"
)

// SessionCookie is the cookie carrying the opaque session token. A Bearer
// header works too, for non-browser clients.
const SessionCookie = "session"

// Context keys set by RequireAuth.
const (
	ContextUser    = "currentUser"
	ContextSession = "currentSession"
)

// AuthMiddleware is the authorization gate. Every protected route passes
// through RequireAuth; admin routes additionally chain RequireAdmin. No
// handler resolves identity any other way.
type AuthMiddleware struct {
	authSvc *auth.Service
}

func NewAuthMiddleware(authSvc *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// RequireAuth resolves the session token and puts the authenticated user and
// session into the request context. Any invalid, unknown or expired token is
// a plain 401, never a 500.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, session, err := m.authSvc.ValidateSession(c.Request.Context(), tokenFromRequest(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to validate session"))
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
			return
		}

		c.Set(ContextUser, user)
		c.Set(ContextSession, session)
		c.Next()
	}
}

// RequireAdmin gates admin-only operations. Must be chained after
// RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("admin privileges required"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by RequireAuth, or nil.
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(ContextUser); ok {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}

// CurrentSession returns the session set by RequireAuth, or nil.
func CurrentSession(c *gin.Context) *model.Session {
	if v, ok := c.Get(ContextSession); ok {
		if session, ok := v.(*model.Session); ok {
			return session
		}
	}
	return nil
}
