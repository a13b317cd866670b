package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role names a bearer token can carry. mcjars has no per-user role table
// (GitHub sign-in only grants "user", the users.admin column grants
// "admin"); RoleAgent identifies a registry-to-registry service token
// issued for mirror/replication use rather than a human session.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Claims represents JWT claims carried by an admin/service bearer
// token. Ordinary sign-in uses UserSession's opaque cookie token
// instead; these claims back the separate short-lived tokens issued to
// automation (CI publishers, mirror agents) that can't hold a browser
// cookie.
type Claims struct {
	UserID   int32    `json:"user_id"`
	Login    string   `json:"login"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenService handles JWT token operations
type TokenService struct {
	secret            []byte
	expiration        time.Duration
	refreshExpiration time.Duration
	issuer            string
}

// NewTokenService creates a new token service
func NewTokenService(secret string, expiration, refreshExpiration time.Duration) *TokenService {
	return &TokenService{
		secret:            []byte(secret),
		expiration:        expiration,
		refreshExpiration: refreshExpiration,
		issuer:            "mcjars/registry",
	}
}

// GenerateToken generates a JWT bearer token for the given user id,
// login, and roles (e.g. RoleAdmin for users.admin accounts, RoleAgent
// for mirror service accounts).
func (s *TokenService) GenerateToken(userID int32, login string, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Login:  login,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// HasRole reports whether the claims carry the given role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenPair is an access token paired with a refresh token.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// GenerateTokenPair generates both access and refresh tokens
func (s *TokenService) GenerateTokenPair(userID int32, login string, roles []string) (*TokenPair, error) {
	// Generate access token
	accessToken, err := s.GenerateToken(userID, login, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	// Generate refresh token (random string)
	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(s.expiration),
	}, nil
}

// generateRefreshToken generates a random refresh token
func (s *TokenService) generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// HashRefreshToken hashes a refresh token for storage
func HashRefreshToken(token string) (string, error) {
	return HashPassword(token)
}

// ValidateRefreshToken validates a refresh token against its hash
func ValidateRefreshToken(token, hash string) error {
	return ValidatePassword(token, hash)
}
