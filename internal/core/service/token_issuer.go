package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/user-accounts/internal/core/domain"
)

const tokenTypeBearer = "bearer"

// JWTIssuer signs HS256 tokens whose subject is the username. The secret is
// fixed for the lifetime of the issuer.
type JWTIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTIssuer(secret, issuer string) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue returns a token for subject that expires at now+ttl. The exp claim
// has second precision, so a fractional expiry is rounded up and the token
// never lives shorter than ttl.
func (i *JWTIssuer) Issue(subject string, ttl time.Duration) (*domain.AccessToken, error) {
	now := i.now()
	exp := now.Add(ttl)
	if t := exp.Truncate(time.Second); !t.Equal(exp) {
		exp = t.Add(time.Second)
	}
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &domain.AccessToken{
		Token:     signed,
		TokenType: tokenTypeBearer,
		Subject:   subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks signature, algorithm and expiry and returns the subject.
// A token is expired once now >= exp.
func (i *JWTIssuer) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	return claims.Subject, nil
}
