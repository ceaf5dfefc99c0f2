package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bookshelf-backend/internal/auth"
	"bookshelf-backend/internal/database"
	"bookshelf-backend/internal/library"
	"bookshelf-backend/internal/openlibrary"
	"bookshelf-backend/internal/templates"
)

const testPassword = "Str0ng!Pw"

// openLibraryStub answers like the books API for a handful of ISBNs
func openLibraryStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("bibkeys") {
		case "ISBN:0451526538":
			fmt.Fprint(w, `{"ISBN:0451526538": {
				"title": "Animal Farm",
				"authors": [{"name": "George Orwell"}],
				"cover": {"medium": "https://covers.openlibrary.org/b/id/240727-M.jpg"}
			}}`)
		case "ISBN:9999999999":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Driver: database.DialectSQLite,
		Path:   filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	authSvc := auth.NewService(database.NewUserRepo(db), database.NewSessionRepo(db), auth.Options{
		BcryptCost:     bcrypt.MinCost,
		SessionTimeout: time.Hour,
	})
	lookup := openlibrary.NewClient(openLibraryStub(t).URL, 2*time.Second)
	renderer, err := templates.NewRenderer("https://covers.openlibrary.org/b")
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	RegisterRoutes(e, Dependencies{
		DB:      db,
		Auth:    authSvc,
		Library: library.NewService(database.NewBookRepo(db), lookup),
	})
	return e
}

func do(e *echo.Echo, method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func credentials(username, password string) url.Values {
	return url.Values{"username": {username}, "password": {password}}
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.SessionCookieName)
	return nil
}

// signUp registers and logs in username, returning the session cookie
func signUp(t *testing.T, e *echo.Echo, username string) *http.Cookie {
	t.Helper()

	rec := do(e, http.MethodPost, "/register", credentials(username, testPassword), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = do(e, http.MethodPost, "/login", credentials(username, testPassword), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	return sessionCookie(t, rec)
}

func TestHealthCheck(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodGet, "/register", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.PasswordRequirements)

	rec = do(e, http.MethodPost, "/register", credentials("alice", "weak"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "strength requirements")

	rec = do(e, http.MethodPost, "/register", credentials("alice", testPassword), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = do(e, http.MethodPost, "/register", credentials("alice", testPassword), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already exists")

	rec = do(e, http.MethodPost, "/login", credentials("alice", "Wr0ng!Pw"), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect username or password.")

	rec = do(e, http.MethodPost, "/login", credentials("mallory", testPassword), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/login", credentials("alice", testPassword), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	e := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/"},
		{http.MethodPost, "/add"},
		{http.MethodGet, "/edit/1"},
		{http.MethodPost, "/edit/1"},
		{http.MethodPost, "/delete/1"},
		{http.MethodGet, "/books/1"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := do(e, route.method, route.path, nil, nil)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
		})
	}
}

func TestBookLifecycle(t *testing.T) {
	e := newTestServer(t)
	alice := signUp(t, e, "alice")

	rec := do(e, http.MethodGet, "/", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "My books (0)")

	rec = do(e, http.MethodPost, "/add", url.Values{"isbn": {"0-451-52653-8"}}, alice)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = do(e, http.MethodGet, "/", nil, alice)
	body := rec.Body.String()
	assert.Contains(t, body, "My books (1)")
	assert.Contains(t, body, "Animal Farm")
	assert.Contains(t, body, "George Orwell")
	assert.Contains(t, body, "https://covers.openlibrary.org/b/id/240727-M.jpg")

	rec = do(e, http.MethodGet, "/books/1", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ISBN 0451526538")

	rec = do(e, http.MethodPost, "/edit/1", url.Values{
		"title":     {"Animal Farm"},
		"authors":   {"George Orwell"},
		"isbn":      {"0451526538"},
		"rating":    {"5"},
		"read_date": {"2024-05-17"},
		"review":    {"All animals are equal."},
	}, alice)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = do(e, http.MethodGet, "/edit/1", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="2024-05-17"`)
	assert.Contains(t, rec.Body.String(), "All animals are equal.")

	rec = do(e, http.MethodPost, "/edit/1", url.Values{"title": {"Animal Farm"}, "rating": {"9"}}, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/delete/1", nil, alice)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = do(e, http.MethodGet, "/books/1", nil, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddBookLookupFailures(t *testing.T) {
	e := newTestServer(t)
	alice := signUp(t, e, "alice")

	tests := []struct {
		isbn string
		want int
	}{
		{"12345", http.StatusBadRequest},
		{"9780000000002", http.StatusNotFound},
		{"9999999999", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.isbn, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/add", url.Values{"isbn": {tt.isbn}}, alice)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := do(e, http.MethodGet, "/", nil, alice)
	assert.Contains(t, rec.Body.String(), "My books (0)")
}

func TestBooksAreOwnerScoped(t *testing.T) {
	e := newTestServer(t)
	alice := signUp(t, e, "alice")
	bob := signUp(t, e, "bob")

	rec := do(e, http.MethodPost, "/add", url.Values{"isbn": {"0451526538"}}, alice)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = do(e, http.MethodGet, "/", nil, bob)
	assert.Contains(t, rec.Body.String(), "My books (0)")
	assert.NotContains(t, rec.Body.String(), "Animal Farm")

	rec = do(e, http.MethodGet, "/edit/1", nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "permission to edit")

	rec = do(e, http.MethodGet, "/books/1", nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "permission to view")

	rec = do(e, http.MethodPost, "/edit/1", url.Values{"title": {"Stolen"}}, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, "/delete/1", nil, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Alice's record is untouched
	rec = do(e, http.MethodGet, "/books/1", nil, alice)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Animal Farm")

	rec = do(e, http.MethodGet, "/books/abc", nil, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSorting(t *testing.T) {
	e := newTestServer(t)
	alice := signUp(t, e, "alice")

	rec := do(e, http.MethodGet, "/?sort=rating", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/?sort=rating" aria-current="true"`)

	rec = do(e, http.MethodGet, "/?sort=nonsense", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/" aria-current="true"`)
}

func TestLogoutEndsSession(t *testing.T) {
	e := newTestServer(t)
	alice := signUp(t, e, "alice")

	rec := do(e, http.MethodGet, "/logout", nil, alice)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)

	rec = do(e, http.MethodGet, "/", nil, alice)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))
}
