package api

import (
	"github.com/labstack/echo/v4"

	"bookshelf-backend/internal/auth"
	"bookshelf-backend/internal/database"
	"bookshelf-backend/internal/library"
)

// Dependencies are the services the HTTP layer is built on
type Dependencies struct {
	DB           *database.DB
	Auth         *auth.Service
	Library      *library.Service
	SecureCookie bool
}

type handler struct {
	db           *database.DB
	authService  *auth.Service
	library      *library.Service
	secureCookie bool
}

// RegisterRoutes sets up all routes
func RegisterRoutes(e *echo.Echo, deps Dependencies) {
	h := &handler{
		db:           deps.DB,
		authService:  deps.Auth,
		library:      deps.Library,
		secureCookie: deps.SecureCookie,
	}

	// Health check (public)
	e.GET("/health", h.healthCheck)

	// Auth routes (public - no session required)
	e.GET("/register", h.registerPage)
	e.POST("/register", h.registerHandler)
	e.GET("/login", h.loginPage)
	e.POST("/login", h.loginHandler)
	e.GET("/logout", h.logoutHandler)

	// Everything else requires a session
	books := e.Group("", auth.RequireAuth(deps.Auth, deps.SecureCookie))
	books.GET("/", h.listBooksHandler)
	books.POST("/add", h.addBookHandler)
	books.GET("/edit/:id", h.editBookPage)
	books.POST("/edit/:id", h.updateBookHandler)
	books.POST("/delete/:id", h.deleteBookHandler)
	books.GET("/books/:id", h.bookDetailsPage)
}
