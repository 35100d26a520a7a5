package service

import (
	"errors"
	"fmt"
	"time"

	"ledger-wallet/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
)

// JWTTokenService issues and checks the HS256 bearer tokens the node
// simulator hands to wallet clients.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
	clock  clock.Clock
}

// NewJWTTokenService returns a token service on the wall clock. A
// non-positive expiry issues tokens without an exp claim.
func NewJWTTokenService(secret string, expiry time.Duration, issuer string) *JWTTokenService {
	return NewJWTTokenServiceWithClock(secret, expiry, issuer, clock.NewDefaultClock())
}

func NewJWTTokenServiceWithClock(secret string, expiry time.Duration, issuer string, clk clock.Clock) *JWTTokenService {
	return &JWTTokenService{secret: []byte(secret), expiry: expiry, issuer: issuer, clock: clk}
}

// Generate signs a token for subject. The zero time is returned for tokens
// that never expire.
func (s *JWTTokenService) Generate(subject string) (string, time.Time, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		ID:       uuid.NewString(),
		Subject:  subject,
		Issuer:   s.issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	var expiresAt time.Time
	if s.expiry > 0 {
		expiresAt = now.Add(s.expiry)
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	out := &ports.TokenClaims{ID: claims.ID, Subject: claims.Subject, Issuer: claims.Issuer}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
