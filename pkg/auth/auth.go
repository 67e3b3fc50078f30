// Package auth registers accounts and issues the bearer tokens the HTTP API
// accepts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smith3v/memory-pairs/pkg/db"
	"github.com/smith3v/memory-pairs/pkg/logger"
	"github.com/smith3v/memory-pairs/pkg/validation"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "memory-pairs"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// UserStore is the account storage auth needs. *db.Repository satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*db.User, error)
	FindUserByUsername(ctx context.Context, username string) (*db.User, error)
}

// Credentials is the register/login payload.
type Credentials struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Token is a signed bearer token.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	users    UserStore
	secret   []byte
	ttl      time.Duration
	hashCost int
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

func NewService(users UserStore, secret string, ttl time.Duration, opts ...Option) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is empty")
	}
	s := &Service{
		users:    users,
		secret:   []byte(secret),
		ttl:      ttl,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates an account. Duplicate usernames fail with
// db.ErrUsernameTaken.
func (s *Service) Register(ctx context.Context, creds Credentials) (*db.User, error) {
	if err := validation.Struct(creds); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.CreateUser(ctx, creds.Username, string(hash))
	if err != nil {
		return nil, err
	}
	logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login checks the password and issues a token for the account.
func (s *Service) Login(ctx context.Context, creds Credentials) (Token, error) {
	user, err := s.users.FindUserByUsername(ctx, creds.Username)
	if errors.Is(err, db.ErrNotFound) {
		return Token{}, ErrInvalidCredentials
	}
	if err != nil {
		return Token{}, err
	}
	if user.PasswordHash == "" {
		return Token{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return Token{}, ErrInvalidCredentials
	}
	return s.Issue(user.ID)
}

// Issue signs an HS256 token whose subject is userID.
func (s *Service) Issue(userID int64) (Token, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify returns the user id carried by a valid, unexpired token.
func (s *Service) Verify(token string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
