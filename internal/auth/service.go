package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"bookshelf-backend/internal/database"
	"bookshelf-backend/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("password does not meet the strength requirements")
	ErrInvalidUsername    = errors.New("username is required")
	ErrUsernameTaken      = errors.New("username already exists")
)

// DefaultSessionTimeout is used when no idle timeout is configured
const DefaultSessionTimeout = 60 * time.Minute

// MaxUsernameLength bounds stored usernames
const MaxUsernameLength = 64

// Options tunes hashing and session lifetime
type Options struct {
	BcryptCost     int
	SessionTimeout time.Duration
}

// Service handles registration, credential checks and sessions
type Service struct {
	userRepo *database.UserRepo
	sessions SessionStore
	cost     int
	timeout  time.Duration
	hash     func(password string, cost int) (string, error)
	now      func() time.Time

	decoyOnce sync.Once
	decoyHash string
}

// NewService creates a new auth service
func NewService(userRepo *database.UserRepo, sessions SessionStore, opts Options) *Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = DefaultBcryptCost
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = DefaultSessionTimeout
	}
	return &Service{
		userRepo: userRepo,
		sessions: sessions,
		cost:     opts.BcryptCost,
		timeout:  opts.SessionTimeout,
		hash:     HashPassword,
		now:      time.Now,
	}
}

// LoginResponse represents a successful login
type LoginResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Register creates a new account. The password policy is checked before
// anything is hashed or stored.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	if strings.TrimSpace(username) == "" || len(username) > MaxUsernameLength {
		return nil, ErrInvalidUsername
	}
	if !IsValidPassword(password) {
		return nil, ErrInvalidPassword
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	passwordHash, err := s.hash(password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration
		if errors.Is(err, database.ErrUserAlreadyExists) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies credentials against the local database.
// Unknown usernames and wrong passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			// Spend the same bcrypt work as a real comparison
			VerifyPassword(password, s.decoy())
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	valid, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password for user %d: %w", user.ID, err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// decoy returns a hash used to keep lookups of unknown users as slow as real ones
func (s *Service) decoy() string {
	s.decoyOnce.Do(func() {
		s.decoyHash, _ = HashPassword("decoy-password", s.cost)
	})
	return s.decoyHash
}

// Login authenticates a user and creates a session
func (s *Service) Login(ctx context.Context, req models.LoginRequest, ipAddress, userAgent string) (*LoginResponse, error) {
	user, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.Session{
		UserID:    user.ID,
		Username:  user.Username,
		TokenHash: hashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(s.timeout),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &LoginResponse{
		User:      user,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Logout invalidates a session. An unknown token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.sessions.DeleteByTokenHash(ctx, hashToken(token))
	if errors.Is(err, database.ErrSessionNotFound) {
		return nil
	}
	return err
}

// ValidateToken returns the live session for token
func (s *Service) ValidateToken(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, database.ErrSessionNotFound
	}
	return s.sessions.GetByTokenHash(ctx, hashToken(token))
}

// RefreshToken slides the session expiry forward once more than half of
// its lifetime has elapsed. It reports whether the expiry moved.
func (s *Service) RefreshToken(ctx context.Context, token string, session *models.Session) (bool, error) {
	now := s.now()
	if session.ExpiresAt.Sub(now) > s.timeout/2 {
		return false, nil
	}

	expiresAt := now.Add(s.timeout)
	if err := s.sessions.Extend(ctx, hashToken(token), expiresAt); err != nil {
		return false, err
	}
	session.ExpiresAt = expiresAt
	return true, nil
}

// StartSessionCleanup purges expired sessions every interval until ctx is done
func (s *Service) StartSessionCleanup(ctx context.Context, interval time.Duration, logger echo.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.sessions.DeleteExpired(ctx)
				if err != nil {
					if ctx.Err() == nil {
						logger.Error("session cleanup error: ", err)
					}
					continue
				}
				if n > 0 {
					logger.Infof("removed %d expired sessions", n)
				}
			}
		}
	}()
}
