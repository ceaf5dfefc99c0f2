package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"bookshelf-backend/internal/auth"
	"bookshelf-backend/internal/database"
	"bookshelf-backend/internal/library"
	"bookshelf-backend/internal/models"
	"bookshelf-backend/internal/openlibrary"
	"bookshelf-backend/internal/templates"
)

const (
	msgEditNotFound = "Book not found or you don't have permission to edit it."
	msgViewNotFound = "Book not found or you don't have permission to view it."
)

// listBooksHandler handles GET /
func (h *handler) listBooksHandler(c echo.Context) error {
	session := auth.GetSessionFromContext(c)
	sort := models.ParseSortKey(c.QueryParam("sort"))

	ctx := c.Request().Context()
	books, err := h.library.ListBooks(ctx, session.UserID, sort)
	if err != nil {
		c.Logger().Error("list books error: ", err)
		return c.String(http.StatusInternalServerError, "Failed to load books.")
	}

	count, err := h.library.CountBooks(ctx, session.UserID)
	if err != nil {
		c.Logger().Error("count books error: ", err)
		return c.String(http.StatusInternalServerError, "Failed to load books.")
	}

	return c.Render(http.StatusOK, templates.PageIndex, templates.IndexPage{
		Layout: templates.Layout{Username: session.Username},
		Books:  books,
		Count:  count,
		Sort:   sort,
	})
}

// addBookHandler handles POST /add
func (h *handler) addBookHandler(c echo.Context) error {
	session := auth.GetSessionFromContext(c)

	var req models.AddBookRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request body.")
	}

	_, err := h.library.AddBook(c.Request().Context(), session.UserID, req.ISBN)
	if err != nil {
		switch {
		case errors.Is(err, library.ErrInvalidISBN):
			return c.String(http.StatusBadRequest, "ISBN must be 10 or 13 digits.")
		case errors.Is(err, openlibrary.ErrNotFound):
			return c.String(http.StatusNotFound, fmt.Sprintf("No book found for ISBN %s.", req.ISBN))
		case errors.Is(err, library.ErrMetadataLookupFailed):
			c.Logger().Error("metadata lookup error: ", err)
			return c.String(http.StatusBadGateway, "Could not fetch book details. Please try again.")
		default:
			c.Logger().Error("add book error: ", err)
			return c.String(http.StatusInternalServerError, "Failed to add book.")
		}
	}

	return c.Redirect(http.StatusSeeOther, "/")
}

// editBookPage handles GET /edit/:id
func (h *handler) editBookPage(c echo.Context) error {
	return h.renderBook(c, templates.PageEdit, msgEditNotFound)
}

// bookDetailsPage handles GET /books/:id
func (h *handler) bookDetailsPage(c echo.Context) error {
	return h.renderBook(c, templates.PageBook, msgViewNotFound)
}

func (h *handler) renderBook(c echo.Context, page, notFound string) error {
	session := auth.GetSessionFromContext(c)

	id, ok := parseID(c)
	if !ok {
		return c.String(http.StatusNotFound, notFound)
	}

	book, err := h.library.GetBook(c.Request().Context(), id, session.UserID)
	if err != nil {
		if errors.Is(err, database.ErrBookNotFound) {
			return c.String(http.StatusNotFound, notFound)
		}
		c.Logger().Error("get book error: ", err)
		return c.String(http.StatusInternalServerError, "Failed to load book.")
	}

	return c.Render(http.StatusOK, page, templates.BookPage{
		Layout: templates.Layout{Username: session.Username},
		Book:   book,
	})
}

// updateBookHandler handles POST /edit/:id
func (h *handler) updateBookHandler(c echo.Context) error {
	session := auth.GetSessionFromContext(c)

	id, ok := parseID(c)
	if !ok {
		return c.String(http.StatusNotFound, msgEditNotFound)
	}

	var req models.UpdateBookRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request body.")
	}

	_, err := h.library.UpdateBook(c.Request().Context(), id, session.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrBookNotFound):
			return c.String(http.StatusNotFound, msgEditNotFound)
		case errors.Is(err, library.ErrTitleRequired),
			errors.Is(err, library.ErrInvalidISBN),
			errors.Is(err, library.ErrInvalidRating),
			errors.Is(err, library.ErrInvalidReadDate):
			return c.String(http.StatusBadRequest, err.Error())
		default:
			c.Logger().Error("update book error: ", err)
			return c.String(http.StatusInternalServerError, "Failed to update book.")
		}
	}

	return c.Redirect(http.StatusSeeOther, "/")
}

// deleteBookHandler handles POST /delete/:id
func (h *handler) deleteBookHandler(c echo.Context) error {
	session := auth.GetSessionFromContext(c)

	id, ok := parseID(c)
	if !ok {
		return c.String(http.StatusNotFound, msgEditNotFound)
	}

	if err := h.library.DeleteBook(c.Request().Context(), id, session.UserID); err != nil {
		if errors.Is(err, database.ErrBookNotFound) {
			return c.String(http.StatusNotFound, msgEditNotFound)
		}
		c.Logger().Error("delete book error: ", err)
		return c.String(http.StatusInternalServerError, "Failed to delete book.")
	}

	return c.Redirect(http.StatusSeeOther, "/")
}

// parseID reads the :id path parameter as a positive integer
func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
