package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bookshelf-backend/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepo handles user database operations
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create creates a new user
func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	user.CreatedAt = time.Now().UTC()

	err := r.db.queryRow(ctx, `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`, user.Username, user.PasswordHash, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return err
	}

	return nil
}

// GetByUsername retrieves a user by username
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}

	err := r.db.queryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE username = ?
	`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// ExistsByUsername checks if a user with the given username exists
func (r *UserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int
	err := r.db.queryRow(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

