package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf-backend/internal/database"
	"bookshelf-backend/internal/models"
	"bookshelf-backend/internal/openlibrary"
)

type stubLookup struct {
	edition *openlibrary.Edition
	err     error
	calls   []string
}

func (s *stubLookup) LookupISBN(ctx context.Context, isbn string) (*openlibrary.Edition, error) {
	s.calls = append(s.calls, isbn)
	return s.edition, s.err
}

func newTestService(t *testing.T, lookup MetadataClient) (*Service, int64) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Driver: database.DialectSQLite,
		Path:   filepath.Join(t.TempDir(), "library.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	user := &models.User{Username: "alice", PasswordHash: "x"}
	require.NoError(t, database.NewUserRepo(db).Create(ctx, user))

	return NewService(database.NewBookRepo(db), lookup), user.ID
}

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		err  bool
	}{
		{"0451526538", "0451526538", false},
		{"0-451-52653-8", "0451526538", false},
		{" 978 0 451 52653 4 ", "9780451526534", false},
		{"080442957x", "080442957X", false},
		{"X804429579", "", true},
		{"97804515265X", "", true},
		{"12345", "", true},
		{"abcdefghij", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeISBN(tt.raw)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidISBN)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddBook(t *testing.T) {
	lookup := &stubLookup{edition: &openlibrary.Edition{
		Title:   "Animal Farm",
		Authors: []openlibrary.Author{{Name: "George Orwell"}},
		Cover:   &openlibrary.Cover{Medium: "https://covers.openlibrary.org/b/id/240727-M.jpg"},
	}}
	svc, userID := newTestService(t, lookup)
	ctx := context.Background()

	book, err := svc.AddBook(ctx, userID, "0-451-52653-8")
	require.NoError(t, err)

	assert.Equal(t, []string{"0451526538"}, lookup.calls)
	assert.Equal(t, "Animal Farm", book.Title)
	assert.Equal(t, "George Orwell", book.Authors)
	assert.Equal(t, "0451526538", book.ISBN)
	assert.Equal(t, "240727", book.CoverID)
	assert.Nil(t, book.Rating)

	books, err := svc.ListBooks(ctx, userID, models.SortCreated)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, book.ID, books[0].ID)

	count, err := svc.CountBooks(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = svc.CountBooks(ctx, userID+1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAddBookFailuresPersistNothing(t *testing.T) {
	tests := []struct {
		name    string
		isbn    string
		err     error
		wantErr error
	}{
		{"invalid isbn", "123", nil, ErrInvalidISBN},
		{"not found", "0451526538", openlibrary.ErrNotFound, openlibrary.ErrNotFound},
		{"incomplete", "0451526538", openlibrary.ErrIncompleteRecord, ErrMetadataLookupFailed},
		{"transport", "0451526538", errors.New("connection refused"), ErrMetadataLookupFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &stubLookup{err: tt.err}
			svc, userID := newTestService(t, lookup)
			ctx := context.Background()

			_, err := svc.AddBook(ctx, userID, tt.isbn)
			assert.ErrorIs(t, err, tt.wantErr)

			books, err := svc.ListBooks(ctx, userID, models.SortCreated)
			require.NoError(t, err)
			assert.Empty(t, books)
		})
	}
}

func TestAddBookInvalidISBNSkipsLookup(t *testing.T) {
	lookup := &stubLookup{}
	svc, userID := newTestService(t, lookup)

	_, err := svc.AddBook(context.Background(), userID, "not-an-isbn")
	assert.ErrorIs(t, err, ErrInvalidISBN)
	assert.Empty(t, lookup.calls)
}

func TestUpdateAndDeleteBook(t *testing.T) {
	lookup := &stubLookup{edition: &openlibrary.Edition{
		Title:   "Animal Farm",
		Authors: []openlibrary.Author{{Name: "George Orwell"}},
	}}
	svc, userID := newTestService(t, lookup)
	ctx := context.Background()

	book, err := svc.AddBook(ctx, userID, "0451526538")
	require.NoError(t, err)

	_, err = svc.UpdateBook(ctx, book.ID, userID, models.UpdateBookRequest{
		Title:    "Animal Farm",
		Authors:  "George Orwell",
		ISBN:     "0451526538",
		Rating:   "5",
		ReadDate: "2024-05-17",
		Review:   "Still sharp.",
	})
	require.NoError(t, err)

	got, err := svc.GetBook(ctx, book.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.RatingValue())
	assert.Equal(t, "2024-05-17", got.ReadDateValue())
	assert.Equal(t, "Still sharp.", got.Review)

	_, err = svc.UpdateBook(ctx, book.ID, userID+1, models.UpdateBookRequest{Title: "Mine now"})
	assert.ErrorIs(t, err, database.ErrBookNotFound)

	require.NoError(t, svc.DeleteBook(ctx, book.ID, userID))
	_, err = svc.GetBook(ctx, book.ID, userID)
	assert.ErrorIs(t, err, database.ErrBookNotFound)
}

func TestBuildUpdate(t *testing.T) {
	t.Run("empty optional fields", func(t *testing.T) {
		book, err := BuildUpdate(models.UpdateBookRequest{Title: "  Dune  "})
		require.NoError(t, err)
		assert.Equal(t, "Dune", book.Title)
		assert.Nil(t, book.Rating)
		assert.Nil(t, book.ReadDate)
		assert.Empty(t, book.ISBN)
	})

	tests := []struct {
		name string
		req  models.UpdateBookRequest
		want error
	}{
		{"missing title", models.UpdateBookRequest{Title: " "}, ErrTitleRequired},
		{"rating too low", models.UpdateBookRequest{Title: "Dune", Rating: "0"}, ErrInvalidRating},
		{"rating too high", models.UpdateBookRequest{Title: "Dune", Rating: "6"}, ErrInvalidRating},
		{"rating not a number", models.UpdateBookRequest{Title: "Dune", Rating: "great"}, ErrInvalidRating},
		{"bad date", models.UpdateBookRequest{Title: "Dune", ReadDate: "17/05/2024"}, ErrInvalidReadDate},
		{"bad isbn", models.UpdateBookRequest{Title: "Dune", ISBN: "42"}, ErrInvalidISBN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildUpdate(tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
