package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"bookshelf-backend/internal/auth"
	"bookshelf-backend/internal/models"
	"bookshelf-backend/internal/templates"
)

// registerPage handles GET /register
func (h *handler) registerPage(c echo.Context) error {
	return c.Render(http.StatusOK, templates.PageRegister, templates.AuthPage{
		Requirements: auth.PasswordRequirements,
	})
}

// registerHandler handles POST /register
func (h *handler) registerHandler(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return h.renderRegister(c, http.StatusBadRequest, "Invalid request body.")
	}

	_, err := h.authService.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidUsername):
			return h.renderRegister(c, http.StatusBadRequest, "Username is required.")
		case errors.Is(err, auth.ErrInvalidPassword):
			return h.renderRegister(c, http.StatusBadRequest, "Password does not meet the strength requirements.")
		case errors.Is(err, auth.ErrUsernameTaken):
			return h.renderRegister(c, http.StatusConflict, "Username already exists. Please try to login.")
		default:
			c.Logger().Error("registration error: ", err)
			return h.renderRegister(c, http.StatusInternalServerError, "Registration failed.")
		}
	}

	return c.Redirect(http.StatusSeeOther, auth.LoginPath)
}

func (h *handler) renderRegister(c echo.Context, status int, message string) error {
	return c.Render(status, templates.PageRegister, templates.AuthPage{
		Error:        message,
		Requirements: auth.PasswordRequirements,
	})
}

// loginPage handles GET /login
func (h *handler) loginPage(c echo.Context) error {
	return c.Render(http.StatusOK, templates.PageLogin, templates.AuthPage{})
}

// loginHandler handles POST /login
func (h *handler) loginHandler(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return h.renderLogin(c, http.StatusBadRequest, "Invalid request body.")
	}

	if req.Username == "" || req.Password == "" {
		return h.renderLogin(c, http.StatusBadRequest, "Username and password are required.")
	}

	// Get client info
	ipAddress := c.RealIP()
	userAgent := c.Request().UserAgent()

	resp, err := h.authService.Login(c.Request().Context(), req, ipAddress, userAgent)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return h.renderLogin(c, http.StatusUnauthorized, "Incorrect username or password.")
		}
		c.Logger().Error("login error: ", err)
		return h.renderLogin(c, http.StatusInternalServerError, "Login failed.")
	}

	auth.SetSessionCookie(c, resp.Token, resp.ExpiresAt, h.secureCookie)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *handler) renderLogin(c echo.Context, status int, message string) error {
	return c.Render(status, templates.PageLogin, templates.AuthPage{Error: message})
}

// logoutHandler handles GET /logout
func (h *handler) logoutHandler(c echo.Context) error {
	if token := auth.GetTokenFromRequest(c); token != "" {
		if err := h.authService.Logout(c.Request().Context(), token); err != nil {
			c.Logger().Error("logout error: ", err)
		}
	}

	auth.ClearSessionCookie(c, h.secureCookie)
	return c.Redirect(http.StatusSeeOther, auth.LoginPath)
}
