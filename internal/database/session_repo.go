package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bookshelf-backend/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionRepo handles session database operations
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create stores a new session keyed by session.TokenHash
func (r *SessionRepo) Create(ctx context.Context, session *models.Session) error {
	return r.db.queryRow(ctx, `
		INSERT INTO sessions (user_id, token_hash, created_at, expires_at, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, session.UserID, session.TokenHash, session.CreatedAt.UTC(), session.ExpiresAt.UTC(),
		session.IPAddress, session.UserAgent,
	).Scan(&session.ID)
}

// GetByTokenHash retrieves a live session by its hashed token
func (r *SessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	session := &models.Session{}

	err := r.db.queryRow(ctx, `
		SELECT s.id, s.user_id, u.username, s.token_hash, s.created_at, s.expires_at, s.ip_address, s.user_agent
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ?
	`, tokenHash).Scan(
		&session.ID, &session.UserID, &session.Username, &session.TokenHash,
		&session.CreatedAt, &session.ExpiresAt, &session.IPAddress, &session.UserAgent,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	// Check if expired
	if session.Expired(time.Now()) {
		// Clean up expired session
		r.DeleteByTokenHash(ctx, tokenHash)
		return nil, ErrSessionExpired
	}

	return session, nil
}

// Extend moves a session's expiration time to expiresAt
func (r *SessionRepo) Extend(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	result, err := r.db.exec(ctx, "UPDATE sessions SET expires_at = ? WHERE token_hash = ?", expiresAt.UTC(), tokenHash)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteByTokenHash deletes a session by its hashed token
func (r *SessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	result, err := r.db.exec(ctx, "DELETE FROM sessions WHERE token_hash = ?", tokenHash)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteExpired removes all expired sessions
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.exec(ctx, "DELETE FROM sessions WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
