package services

import (
	"fmt"
	"strings"
	"time"

	"pesan/internal/authz"

	"github.com/dgrijalva/jwt-go"
)

// Principal is the identity asserted by a verified token.
type Principal struct {
	UserID  string
	Role    authz.Role
	Country string
}

// TokenService verifies bearer tokens issued by the identity provider.
type TokenService struct {
	jwtSecret  []byte
	tokenDurat time.Duration // Lifetime of tokens minted by IssueToken
}

// NewTokenService creates a new TokenService.
func NewTokenService(jwtSecret string) *TokenService {
	return &TokenService{
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
	}
}

// IssueToken signs a token for the principal. Used by local tooling and tests.
func (s *TokenService) IssueToken(p Principal) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": p.UserID,
		"role":    string(p.Role),
		"country": p.Country,
		"exp":     time.Now().Add(s.tokenDurat).Unix(),
		"iat":     time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the principal it names.
func (s *TokenService) ValidateToken(tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, fmt.Errorf("invalid token: missing user_id claim")
	}
	// The role is checked when the scope is resolved, so an unknown role is an
	// authorization failure rather than an authentication one.
	role, _ := claims["role"].(string)
	country, _ := claims["country"].(string)

	return &Principal{
		UserID:  userID,
		Role:    authz.Role(strings.ToUpper(strings.TrimSpace(role))),
		Country: strings.ToUpper(strings.TrimSpace(country)),
	}, nil
}
