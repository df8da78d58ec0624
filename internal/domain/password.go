package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = 10 * time.Minute

const resetTokenBytes = 32

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var dummyHash = sync.OnceValue(func() string {
	hash, _ := HashPassword("account-service-dummy-password")
	return hash
})

// CompareDummyPassword runs a bcrypt comparison that never matches. Sign-in
// calls it for unknown emails so they cost as much as a wrong password.
func CompareDummyPassword(password string) {
	ComparePassword(dummyHash(), password)
}

// NewResetToken returns a random hex token and the hash to persist for it.
func NewResetToken() (raw, hash string, err error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashResetToken(raw), nil
}

// HashResetToken is the one-way form of a reset token stored on the user.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
