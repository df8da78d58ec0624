package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	ID                  uuid.UUID                  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name                string                     `json:"name" gorm:"not null"`
	Email               string                     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash        string                     `json:"-" gorm:"column:password_hash;not null"`
	Avatar              datatypes.JSONType[Avatar] `json:"avatar" gorm:"type:jsonb;not null;default:'{}'"`
	ResetPasswordToken  *string                    `json:"-" gorm:"index"`
	ResetPasswordExpire *time.Time                 `json:"-"`
	CreatedAt           time.Time                  `json:"createdAt"`
	UpdatedAt           time.Time                  `json:"updatedAt"`
}

// Avatar references the user's picture. Key is only set for objects held in
// the service's own media bucket.
type Avatar struct {
	URL string `json:"url,omitempty"`
	Key string `json:"key,omitempty"`
}

// IsZero reports whether no avatar is set.
func (a Avatar) IsZero() bool {
	return a.URL == "" && a.Key == ""
}

// NewUser builds a user with a hashed password. Input is expected to have
// passed ValidateSignup.
func NewUser(name, email, password string) (*User, error) {
	now := time.Now()
	user := &User{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Email:     NormalizeEmail(email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	return user, nil
}

// SetPassword replaces the stored hash and drops any pending reset token.
func (u *User) SetPassword(password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.ClearResetToken()
	return nil
}

// CheckPassword reports whether password matches the stored hash. Users
// loaded without their hash never match.
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return ComparePassword(u.PasswordHash, password)
}

// IssueResetToken stores the hash of a fresh reset token on the user and
// returns the raw token, which must only ever be sent to the user.
func (u *User) IssueResetToken(now time.Time) (string, error) {
	raw, hash, err := NewResetToken()
	if err != nil {
		return "", err
	}
	expire := now.Add(ResetTokenTTL)
	u.ResetPasswordToken = &hash
	u.ResetPasswordExpire = &expire
	return raw, nil
}

func (u *User) ClearResetToken() {
	u.ResetPasswordToken = nil
	u.ResetPasswordExpire = nil
}

// AvatarData returns the decoded avatar column.
func (u *User) AvatarData() Avatar {
	return u.Avatar.Data()
}

func (u *User) SetAvatar(a Avatar) {
	u.Avatar = datatypes.NewJSONType(a)
}

// NormalizeEmail lowercases and trims an address so it can be used as the
// identity key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
