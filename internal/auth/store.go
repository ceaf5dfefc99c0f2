package auth

import (
	"context"
	"time"

	"bookshelf-backend/internal/models"
)

// SessionStore persists sessions keyed by the hash of their token.
// GetByTokenHash returns database.ErrSessionNotFound or
// database.ErrSessionExpired when no live session matches.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)
	Extend(ctx context.Context, tokenHash string, expiresAt time.Time) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
