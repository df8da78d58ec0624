package service_test

import (
	"testing"
	"time"

	"github.com/dom/account-service/internal/domain"
	"github.com/dom/account-service/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Name: "Ada"}
	issuer := service.NewTokenIssuer("secret", time.Hour)

	token, expiresAt, err := issuer.Issue(user)
	require.NoError(t, err)

	tests := []struct {
		name    string
		issuer  *service.TokenIssuer
		token   string
		wantErr bool
	}{
		{name: "valid token", issuer: issuer, token: token},
		{name: "wrong secret", issuer: service.NewTokenIssuer("other", time.Hour), token: token, wantErr: true},
		{name: "garbage", issuer: issuer, token: "not.a.token", wantErr: true},
		{name: "empty", issuer: issuer, token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, err := tt.issuer.Parse(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, service.ErrInvalidToken)
				assert.Equal(t, uuid.Nil, userID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, userID)
		})
	}

	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := service.NewTokenIssuer("secret", -time.Minute)

	token, _, err := issuer.Issue(&domain.User{ID: uuid.New()})
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = service.NewTokenIssuer("secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestTokenIssuer_MissingSubject(t *testing.T) {
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = service.NewTokenIssuer("secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}
