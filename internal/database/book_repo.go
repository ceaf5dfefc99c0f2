package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bookshelf-backend/internal/models"
)

var ErrBookNotFound = errors.New("book not found")

const bookColumns = `id, user_id, title, authors, isbn, cover_id, rating, review, notes, read_date, created_at, updated_at`

// orderClauses is the closed set of ORDER BY clauses a list may use.
// User input only ever selects a key, it never reaches the query text.
var orderClauses = map[models.SortKey]string{
	models.SortCreated: "created_at DESC, id DESC",
	models.SortRating:  "rating DESC NULLS LAST, id DESC",
	models.SortRecency: "read_date DESC NULLS LAST, id DESC",
}

func orderBy(sort models.SortKey) string {
	if clause, ok := orderClauses[sort]; ok {
		return clause
	}
	return orderClauses[models.SortCreated]
}

// BookRepo handles book database operations.
// Every query is scoped to the owning user.
type BookRepo struct {
	db *DB
}

// NewBookRepo creates a new book repository
func NewBookRepo(db *DB) *BookRepo {
	return &BookRepo{db: db}
}

// Create inserts a new book for book.UserID
func (r *BookRepo) Create(ctx context.Context, book *models.Book) error {
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	return r.db.queryRow(ctx, `
		INSERT INTO books (user_id, title, authors, isbn, cover_id, rating, review, notes, read_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, book.UserID, book.Title, book.Authors, book.ISBN,
		nullString(book.CoverID), nullInt(book.Rating), nullString(book.Review), nullString(book.Notes),
		nullTime(book.ReadDate), book.CreatedAt, book.UpdatedAt,
	).Scan(&book.ID)
}

// List retrieves all books owned by userID in the requested order
func (r *BookRepo) List(ctx context.Context, userID int64, sort models.SortKey) ([]*models.Book, error) {
	rows, err := r.db.query(ctx, `
		SELECT `+bookColumns+`
		FROM books WHERE user_id = ?
		ORDER BY `+orderBy(sort), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []*models.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}

	return books, rows.Err()
}

// GetByID retrieves a book by ID if it belongs to userID
func (r *BookRepo) GetByID(ctx context.Context, id, userID int64) (*models.Book, error) {
	book, err := scanBook(r.db.queryRow(ctx, `
		SELECT `+bookColumns+`
		FROM books WHERE id = ? AND user_id = ?
	`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}

	return book, nil
}

// Update overwrites every editable field of a book owned by book.UserID
func (r *BookRepo) Update(ctx context.Context, book *models.Book) error {
	book.UpdatedAt = time.Now().UTC()

	result, err := r.db.exec(ctx, `
		UPDATE books SET
			title = ?,
			authors = ?,
			isbn = ?,
			cover_id = ?,
			rating = ?,
			review = ?,
			notes = ?,
			read_date = ?,
			updated_at = ?
		WHERE id = ? AND user_id = ?
	`, book.Title, book.Authors, book.ISBN,
		nullString(book.CoverID), nullInt(book.Rating), nullString(book.Review), nullString(book.Notes),
		nullTime(book.ReadDate), book.UpdatedAt,
		book.ID, book.UserID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBookNotFound
	}

	return nil
}

// Delete deletes a book owned by userID
func (r *BookRepo) Delete(ctx context.Context, id, userID int64) error {
	result, err := r.db.exec(ctx, "DELETE FROM books WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBookNotFound
	}

	return nil
}

// CountByUser returns the number of books owned by userID
func (r *BookRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.queryRow(ctx, "SELECT COUNT(*) FROM books WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*models.Book, error) {
	book := &models.Book{}
	var (
		coverID  sql.NullString
		rating   sql.NullInt64
		review   sql.NullString
		notes    sql.NullString
		readDate sql.NullTime
	)

	err := row.Scan(
		&book.ID, &book.UserID, &book.Title, &book.Authors, &book.ISBN,
		&coverID, &rating, &review, &notes, &readDate,
		&book.CreatedAt, &book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	book.CoverID = coverID.String
	book.Review = review.String
	book.Notes = notes.String
	if rating.Valid {
		v := int(rating.Int64)
		book.Rating = &v
	}
	if readDate.Valid {
		t := readDate.Time.UTC()
		book.ReadDate = &t
	}

	return book, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
