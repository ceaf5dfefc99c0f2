package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"bookshelf-backend/internal/database"
	"bookshelf-backend/internal/models"
)

// Context keys for storing session data
const (
	ContextKeySession = "session"
)

// SessionCookieName carries the opaque session token
const SessionCookieName = "session_token"

// LoginPath is where unauthenticated requests are sent
const LoginPath = "/login"

// RequireAuth middleware checks for a valid session and redirects to the
// login page when there is none.
func RequireAuth(authSvc *Service, secureCookie bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := GetTokenFromRequest(c)
			if token == "" {
				return c.Redirect(http.StatusSeeOther, LoginPath)
			}

			ctx := c.Request().Context()
			session, err := authSvc.ValidateToken(ctx, token)
			if errors.Is(err, database.ErrSessionNotFound) || errors.Is(err, database.ErrSessionExpired) {
				ClearSessionCookie(c, secureCookie)
				return c.Redirect(http.StatusSeeOther, LoginPath)
			}
			if err != nil {
				c.Logger().Error("validate session error: ", err)
				return c.String(http.StatusInternalServerError, "Failed to check session.")
			}

			refreshed, err := authSvc.RefreshToken(ctx, token, session)
			if err != nil {
				c.Logger().Error("refresh session error: ", err)
			} else if refreshed {
				SetSessionCookie(c, token, session.ExpiresAt, secureCookie)
			}

			// Store session in context for handlers
			c.Set(ContextKeySession, session)

			return next(c)
		}
	}
}

// GetTokenFromRequest extracts the session token from the request
func GetTokenFromRequest(c echo.Context) string {
	// Try Authorization header first (Bearer token)
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Try cookie
	cookie, err := c.Cookie(SessionCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}

// GetSessionFromContext retrieves the current session from the context
func GetSessionFromContext(c echo.Context) *models.Session {
	session, ok := c.Get(ContextKeySession).(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// SetSessionCookie hands the token to the browser (HttpOnly)
func SetSessionCookie(c echo.Context, token string, expiresAt time.Time, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie from the browser
func ClearSessionCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
