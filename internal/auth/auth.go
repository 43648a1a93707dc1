// Package auth issues and verifies admin session tokens. There is a
// single admin identity, configured by username and bcrypt password
// hash; sessions are short-lived HS256 JWTs.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"courtside/internal/config"
	"courtside/internal/constants"
	"courtside/internal/domain"
	"courtside/internal/storage"
)

var (
	// ErrDisabled indicates no admin credentials are configured.
	ErrDisabled = errors.New("admin authentication is not configured")
	// ErrBadCredentials indicates the username or password is wrong.
	ErrBadCredentials = errors.New("invalid credentials")
	// ErrBadToken indicates the session token is missing, malformed,
	// tampered with or expired.
	ErrBadToken = errors.New("invalid session token")
)

// Token is an issued admin session.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	cfg    *config.Config
	audit  storage.AuditStore
	logger zerolog.Logger
}

func NewService(cfg *config.Config, audit storage.AuditStore, logger zerolog.Logger) *Service {
	return &Service{cfg: cfg, audit: audit, logger: logger}
}

// Login checks the credentials and returns a fresh session token. The
// bcrypt comparison runs even when the username is wrong so both
// failure paths cost the same.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if !s.cfg.AdminEnabled() {
		return Token{}, ErrDisabled
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername)) == 1
	passwordErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(password))
	if !usernameOK || passwordErr != nil {
		s.logger.Warn().Str("username", username).Msg("admin login rejected")
		return Token{}, ErrBadCredentials
	}

	now := time.Now()
	expiresAt := now.Add(s.cfg.SessionTTL)
	claims := jwt.RegisteredClaims{
		Subject:   s.cfg.AdminUsername,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		return Token{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	entry := domain.AuditEntry{Actor: s.cfg.AdminUsername, Action: "login", Detail: "admin session issued"}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Msg("failed to append audit entry")
	}

	s.logger.Info().Str("username", username).Time("expires_at", expiresAt).Msg("admin logged in")
	return Token{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify parses a session token and returns the admin username it was
// issued to.
func (s *Service) Verify(tokenString string) (string, error) {
	if !s.cfg.AdminEnabled() {
		return "", ErrDisabled
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return []byte(s.cfg.SessionSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadToken, err)
	}

	if claims.Subject != s.cfg.AdminUsername {
		return "", ErrBadToken
	}
	return claims.Subject, nil
}
