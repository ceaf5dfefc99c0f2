package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/labstack/echo/v4"

	"bookshelf-backend/internal/models"
)

//go:embed views/*.html
var viewsFS embed.FS

// Page names understood by the renderer
const (
	PageLogin    = "login"
	PageRegister = "register"
	PageIndex    = "index"
	PageEdit     = "edit"
	PageBook     = "book"
)

var pages = []string{PageLogin, PageRegister, PageIndex, PageEdit, PageBook}

// Layout carries what the shared header needs; Username is empty when
// nobody is logged in.
type Layout struct {
	Username string
}

// AuthPage is the data for the login and register forms
type AuthPage struct {
	Layout
	Error        string
	Requirements string
}

// IndexPage is the data for the book list
type IndexPage struct {
	Layout
	Books []*models.Book
	Count int
	Sort  models.SortKey
}

// BookPage is the data for the detail and edit views
type BookPage struct {
	Layout
	Book *models.Book
}

// Renderer renders the embedded HTML views for echo
type Renderer struct {
	views map[string]*template.Template
}

// NewRenderer parses every view; coversBaseURL points at the cover image service
func NewRenderer(coversBaseURL string) (*Renderer, error) {
	coversBaseURL = strings.TrimRight(coversBaseURL, "/")
	funcs := template.FuncMap{
		"coverURL": func(b *models.Book) string {
			switch {
			case b.CoverID != "":
				return fmt.Sprintf("%s/id/%s-M.jpg", coversBaseURL, b.CoverID)
			case b.ISBN != "":
				return fmt.Sprintf("%s/isbn/%s-M.jpg", coversBaseURL, b.ISBN)
			default:
				return ""
			}
		},
		"stars": func(b *models.Book) string {
			n := b.RatingValue()
			return strings.Repeat("★", n) + strings.Repeat("☆", models.MaxRating-n)
		},
	}

	r := &Renderer{views: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		t, err := template.New(page).Funcs(funcs).ParseFS(viewsFS, "views/layout.html", "views/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", page, err)
		}
		r.views[page] = t
	}
	return r, nil
}

// Render implements echo.Renderer
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.views[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
