// Package redisstore keeps sessions in Redis with key expiry standing in for
// the reaper the SQL store needs.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bookshelf-backend/internal/database"
	"bookshelf-backend/internal/models"
)

const sessionKeyPrefix = "session:"

// SessionStore stores sessions as JSON values keyed by token hash
type SessionStore struct {
	rdb *redis.Client
}

// NewSessionStore creates a SessionStore over rdb
func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Connect parses a redis:// URL, pings the server and returns a store
func Connect(ctx context.Context, redisURL string) (*SessionStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewSessionStore(rdb), nil
}

// Close closes the underlying client
func (s *SessionStore) Close() error {
	return s.rdb.Close()
}

// Create saves a new session with a TTL matching its expiry
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return database.ErrSessionExpired
	}

	payload, err := json.Marshal(record{
		UserID:    session.UserID,
		Username:  session.Username,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
		IPAddress: session.IPAddress,
		UserAgent: session.UserAgent,
	})
	if err != nil {
		return err
	}

	// Never overwrite an existing session
	ok, err := s.rdb.SetNX(ctx, sessionKey(session.TokenHash), payload, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session token collision")
	}
	return nil
}

// GetByTokenHash retrieves a live session by its hashed token
func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	rec, err := s.load(ctx, tokenHash)
	if err != nil {
		return nil, err
	}

	session := rec.session(tokenHash)
	if session.Expired(time.Now()) {
		s.rdb.Del(ctx, sessionKey(tokenHash))
		return nil, database.ErrSessionExpired
	}
	return session, nil
}

// Extend moves a session's expiration time to expiresAt
func (s *SessionStore) Extend(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	key := sessionKey(tokenHash)
	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return database.ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.ExpiresAt = expiresAt
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, time.Until(expiresAt))
			return nil
		})
		return err
	}, key)
}

// DeleteByTokenHash deletes a session by its hashed token
func (s *SessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	n, err := s.rdb.Del(ctx, sessionKey(tokenHash)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.ErrSessionNotFound
	}
	return nil
}

// DeleteExpired is a no-op: Redis expires keys on its own
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *SessionStore) load(ctx context.Context, tokenHash string) (*record, error) {
	data, err := s.rdb.Get(ctx, sessionKey(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, database.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

type record struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
}

func (r *record) session(tokenHash string) *models.Session {
	return &models.Session{
		UserID:    r.UserID,
		Username:  r.Username,
		TokenHash: tokenHash,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
		IPAddress: r.IPAddress,
		UserAgent: r.UserAgent,
	}
}

func sessionKey(tokenHash string) string {
	return sessionKeyPrefix + tokenHash
}
