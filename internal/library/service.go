package library

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bookshelf-backend/internal/database"
	"bookshelf-backend/internal/models"
	"bookshelf-backend/internal/openlibrary"
)

var (
	ErrInvalidISBN          = errors.New("isbn must be 10 or 13 digits")
	ErrMetadataLookupFailed = errors.New("metadata lookup failed")
	ErrTitleRequired        = errors.New("title is required")
	ErrInvalidRating        = fmt.Errorf("rating must be between %d and %d", models.MinRating, models.MaxRating)
	ErrInvalidReadDate      = errors.New("read date must be formatted YYYY-MM-DD")
)

// MetadataClient resolves an ISBN into bibliographic fields
type MetadataClient interface {
	LookupISBN(ctx context.Context, isbn string) (*openlibrary.Edition, error)
}

// Service is the ownership-scoped entry point for reading records
type Service struct {
	books  *database.BookRepo
	lookup MetadataClient
}

// NewService creates a new library service
func NewService(books *database.BookRepo, lookup MetadataClient) *Service {
	return &Service{books: books, lookup: lookup}
}

// ListBooks returns the user's books in the requested order
func (s *Service) ListBooks(ctx context.Context, userID int64, sort models.SortKey) ([]*models.Book, error) {
	return s.books.List(ctx, userID, sort)
}

// GetBook returns a book if userID owns it, database.ErrBookNotFound otherwise
func (s *Service) GetBook(ctx context.Context, id, userID int64) (*models.Book, error) {
	return s.books.GetByID(ctx, id, userID)
}

// AddBook looks up rawISBN and stores the resulting book for userID.
// Nothing is stored when the lookup fails.
func (s *Service) AddBook(ctx context.Context, userID int64, rawISBN string) (*models.Book, error) {
	isbn, err := NormalizeISBN(rawISBN)
	if err != nil {
		return nil, err
	}

	edition, err := s.lookup.LookupISBN(ctx, isbn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataLookupFailed, err)
	}

	book := &models.Book{
		UserID:  userID,
		Title:   edition.Title,
		Authors: edition.AuthorNames(),
		ISBN:    isbn,
		CoverID: edition.CoverID(),
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	return book, nil
}

// UpdateBook replaces every editable field of a book owned by userID
func (s *Service) UpdateBook(ctx context.Context, id, userID int64, req models.UpdateBookRequest) (*models.Book, error) {
	book, err := BuildUpdate(req)
	if err != nil {
		return nil, err
	}
	book.ID = id
	book.UserID = userID

	if err := s.books.Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// DeleteBook removes a book owned by userID
func (s *Service) DeleteBook(ctx context.Context, id, userID int64) error {
	return s.books.Delete(ctx, id, userID)
}

// CountBooks returns how many books userID owns
func (s *Service) CountBooks(ctx context.Context, userID int64) (int, error) {
	return s.books.CountByUser(ctx, userID)
}

// BuildUpdate validates an edit form into a Book without identity fields
func BuildUpdate(req models.UpdateBookRequest) (*models.Book, error) {
	book := &models.Book{
		Title:   strings.TrimSpace(req.Title),
		Authors: strings.TrimSpace(req.Authors),
		CoverID: strings.TrimSpace(req.CoverID),
		Review:  strings.TrimSpace(req.Review),
		Notes:   strings.TrimSpace(req.Notes),
	}
	if book.Title == "" {
		return nil, ErrTitleRequired
	}

	if raw := strings.TrimSpace(req.ISBN); raw != "" {
		isbn, err := NormalizeISBN(raw)
		if err != nil {
			return nil, err
		}
		book.ISBN = isbn
	}

	if raw := strings.TrimSpace(req.Rating); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil || rating < models.MinRating || rating > models.MaxRating {
			return nil, ErrInvalidRating
		}
		book.Rating = &rating
	}

	if raw := strings.TrimSpace(req.ReadDate); raw != "" {
		readDate, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return nil, ErrInvalidReadDate
		}
		book.ReadDate = &readDate
	}

	return book, nil
}

// NormalizeISBN strips spaces and hyphens and checks the shape of an ISBN-10
// or ISBN-13. A trailing X is allowed on ISBN-10 only.
func NormalizeISBN(raw string) (string, error) {
	isbn := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(raw)))

	switch len(isbn) {
	case 10:
		for i, r := range isbn {
			if r >= '0' && r <= '9' {
				continue
			}
			if r == 'X' && i == 9 {
				continue
			}
			return "", ErrInvalidISBN
		}
	case 13:
		for _, r := range isbn {
			if r < '0' || r > '9' {
				return "", ErrInvalidISBN
			}
		}
	default:
		return "", ErrInvalidISBN
	}

	return isbn, nil
}
