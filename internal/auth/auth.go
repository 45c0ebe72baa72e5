package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"parlor/internal/content"
	"parlor/internal/models"

	"github.com/c-pro/geche"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenExpiry = 7 * 24 * time.Hour

	// Counting window for failed logins per email.
	throttleWindow  = 10 * time.Minute
	maxFailedLogins = 3
)

var (
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrInvalidToken       = errors.New("invalid token")
)

// Credentials is a user joined with their password hash. It never leaves the
// auth and storage packages.
type Credentials struct {
	models.User
	PasswordHash string
}

// Store is the subset of the storage contract the auth service needs.
type Store interface {
	FindUserByEmail(email string) (Credentials, error)
	CreateUser(username, email, passwordHash string) (models.User, error)
}

type Config struct {
	Secret      string        `json:"secret"`
	TokenExpiry time.Duration `json:"tokenExpiry"`
}

func (c *Config) Validate() error {
	if c.Secret == "" {
		return errors.New("auth secret is required")
	}
	if c.TokenExpiry == 0 {
		c.TokenExpiry = DefaultTokenExpiry
	}
	return nil
}

// Claims are the token claims issued on login.
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Service struct {
	Config
	store        Store
	failedLogins geche.Geche[string, int]
	now          func() time.Time
}

func NewService(ctx context.Context, config Config, store Store) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		Config:       config,
		store:        store,
		failedLogins: geche.NewMapTTLCache[string, int](ctx, throttleWindow, time.Minute),
		now:          time.Now,
	}, nil
}

// Signup creates a new account. The email must not be in use yet.
func (s *Service) Signup(username, email, password string) (models.User, error) {
	if err := content.ValidateUsername(username); err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.CreateUser(username, email, string(hash))
	if err != nil {
		return models.User{}, err
	}

	slog.Info("user created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login verifies the credentials and issues a signed token. Repeated failures
// for the same email are throttled for the duration of the counting window.
func (s *Service) Login(email, password string) (string, models.User, error) {
	if failures, err := s.failedLogins.Get(email); err == nil && failures >= maxFailedLogins {
		return "", models.User{}, ErrTooManyAttempts
	}

	creds, err := s.store.FindUserByEmail(email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.recordFailure(email)
			return "", models.User{}, ErrInvalidCredentials
		}
		return "", models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(email)
		return "", models.User{}, ErrInvalidCredentials
	}

	token, err := s.issueToken(creds.User)
	if err != nil {
		slog.Error("login failed", "user_id", creds.ID, "error", err)
		return "", models.User{}, err
	}

	_ = s.failedLogins.Del(email)
	return token, creds.User, nil
}

// ParseToken validates a signed token and returns its claims.
func (s *Service) ParseToken(raw string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(s.Secret), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) issueToken(user models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TokenExpiry)),
		},
	})
	signed, err := token.SignedString([]byte(s.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) recordFailure(email string) {
	failures, err := s.failedLogins.Get(email)
	if err != nil {
		failures = 0
	}
	s.failedLogins.Set(email, failures+1)
}
