package models

import (
	"strings"
	"time"
)

// Book is one reading record owned by a single user
type Book struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Title     string     `json:"title"`
	Authors   string     `json:"authors"`
	ISBN      string     `json:"isbn"`
	CoverID   string     `json:"cover_id,omitempty"`
	Rating    *int       `json:"rating,omitempty"`
	Review    string     `json:"review,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	ReadDate  *time.Time `json:"read_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ReadDateValue formats the read date for date inputs, empty when unset
func (b *Book) ReadDateValue() string {
	if b.ReadDate == nil {
		return ""
	}
	return b.ReadDate.Format(DateLayout)
}

// RatingValue returns the rating or zero when unrated
func (b *Book) RatingValue() int {
	if b.Rating == nil {
		return 0
	}
	return *b.Rating
}

// DateLayout is the wire format of read dates
const DateLayout = "2006-01-02"

// Rating bounds accepted by the edit form
const (
	MinRating = 1
	MaxRating = 5
)

// AddBookRequest represents the body of POST /add
type AddBookRequest struct {
	ISBN string `json:"isbn" form:"isbn"`
}

// UpdateBookRequest represents the body of POST /edit/:id.
// Rating and ReadDate arrive as raw strings so an empty value clears them.
type UpdateBookRequest struct {
	Title    string `json:"title" form:"title"`
	Authors  string `json:"authors" form:"authors"`
	ISBN     string `json:"isbn" form:"isbn"`
	CoverID  string `json:"cover_id" form:"cover_id"`
	Rating   string `json:"rating" form:"rating"`
	Review   string `json:"review" form:"review"`
	Notes    string `json:"notes" form:"notes"`
	ReadDate string `json:"read_date" form:"read_date"`
}

// SortKey selects the ordering of a user's book list
type SortKey string

const (
	SortCreated SortKey = "created" // Newest additions first
	SortRating  SortKey = "rating"
	SortRecency SortKey = "recency" // Most recently read first
)

// ParseSortKey maps a query value onto a known sort key.
// Unknown or empty values fall back to SortCreated.
func ParseSortKey(raw string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(raw))) {
	case SortRating:
		return SortRating
	case SortRecency:
		return SortRecency
	default:
		return SortCreated
	}
}
