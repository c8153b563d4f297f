// Package auth provides token issuance and verification for the board
// service. Every HTTP request and every identity.announce on the event
// channel is verified here before a user identity is trusted.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/bcrypt"

	"github.com/Riya-023/collaborative-todo-board/pkg/observability"
)

// Common errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNoToken            = errors.New("no token provided")
)

// Claims represents JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Identity is the verified user identity extracted from a token
type Identity struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
}

// ServiceConfig represents auth configuration
type ServiceConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTExpiration time.Duration `mapstructure:"jwt_expiration"`
	CacheSize     int           `mapstructure:"cache_size"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		JWTExpiration: 7 * 24 * time.Hour,
		CacheSize:     1024,
		CacheTTL:      5 * time.Minute,
	}
}

// Service provides authentication services
type Service struct {
	config *ServiceConfig
	logger observability.Logger

	// Verified-token cache; avoids re-parsing the same bearer token on
	// every request from a connected client.
	tokenCache *expirable.LRU[string, Identity]
}

// NewService creates a new auth service
func NewService(config *ServiceConfig, logger observability.Logger) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.JWTExpiration == 0 {
		config.JWTExpiration = 7 * 24 * time.Hour
	}
	if config.CacheSize == 0 {
		config.CacheSize = 1024
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}

	return &Service{
		config:     config,
		logger:     logger,
		tokenCache: expirable.NewLRU[string, Identity](config.CacheSize, nil, config.CacheTTL),
	}
}

// GenerateToken issues a signed JWT for the given identity
func (s *Service) GenerateToken(identity Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.JWTExpiration)),
		},
		UserID:   identity.UserID.String(),
		Username: identity.Username,
		Email:    identity.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// VerifyToken validates a JWT and returns the identity it carries
func (s *Service) VerifyToken(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrNoToken
	}

	if identity, ok := s.tokenCache.Get(tokenString); ok {
		return identity, nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrInvalidToken
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	identity := Identity{
		UserID:   userID,
		Username: claims.Username,
		Email:    claims.Email,
	}
	s.tokenCache.Add(tokenString, identity)

	return identity, nil
}

// HashPassword hashes a plaintext password with bcrypt
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash
func (s *Service) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
