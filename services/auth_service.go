package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dutyfinder/dutyfinder-api/config"
	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenClaims is the payload of an access token
type TokenClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// LoginResult is returned to the login form
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AuthService checks credentials and issues HS256 access tokens
type AuthService struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService creates the service
func NewAuthService(db *gorm.DB, secret string, ttl time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{db: db, secret: []byte(secret), ttl: ttl, logger: logger, now: time.Now}
}

// Login verifies a username and password and returns a signed token
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "username = ?", strings.TrimSpace(username)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Info("Login failed", zap.String("username", username), zap.String("reason", "unknown user"))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("Login failed", zap.String("username", username), zap.String("reason", "wrong password"))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.IssueToken(&user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: &user}, nil
}

// IssueToken signs an access token for user
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := TokenClaims{
		Name: user.Name,
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    config.TokenIssuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{config.TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}
