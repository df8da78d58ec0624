package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/dom/account-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer mints and verifies the HS256 session tokens carried in the
// session cookie.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL is the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue returns a signed token for user and its expiry.
func (t *TokenIssuer) Issue(user *domain.User) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"name": user.Name,
		"exp":  expiresAt.Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies tokenString and returns the user id it was issued for.
func (t *TokenIssuer) Parse(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, fmt.Errorf("%w: missing 'sub' claim", ErrInvalidToken)
	}

	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad user id: %v", ErrInvalidToken, err)
	}
	return userID, nil
}
