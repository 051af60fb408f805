package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims carried by both access and refresh tokens
type Claims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies access and refresh tokens. The two token
// kinds use separate secrets so a leaked refresh secret cannot mint access
// tokens and vice versa.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenService creates a token service
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, issuer string) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        issuer,
		now:           time.Now,
	}
}

// AccessTTL returns the configured access token lifetime
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh token lifetime
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccessToken signs a short-lived access token for the user
func (s *TokenService) IssueAccessToken(userID uint) (string, error) {
	return s.issue(userID, s.accessSecret, s.accessTTL)
}

// IssueRefreshToken signs a long-lived refresh token for the user. Each
// token carries a unique id so rotation can tell issuances apart.
func (s *TokenService) IssueRefreshToken(userID uint) (string, error) {
	return s.issue(userID, s.refreshSecret, s.refreshTTL)
}

func (s *TokenService) issue(userID uint, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyAccessToken parses and validates an access token
func (s *TokenService) VerifyAccessToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.accessSecret)
}

// VerifyRefreshToken parses and validates a refresh token
func (s *TokenService) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.refreshSecret)
}

func (s *TokenService) verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}
