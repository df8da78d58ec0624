package repository

import (
	"context"
	"time"

	"github.com/dom/account-service/internal/domain"
	"github.com/google/uuid"
)

// UserRepository is the persistent user store. Lookups return
// gorm.ErrRecordNotFound when nothing matches and writes return
// gorm.ErrDuplicatedKey on an email collision.
//
// The plain getters never load the password hash; use the WithPassword
// variants where credentials have to be checked.
//
// ConsumeResetToken stores the new password from user only while tokenHash
// is still the live reset token, so a token can be redeemed once.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDWithPassword(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (*domain.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*domain.User, error)
	UpdatePassword(ctx context.Context, user *domain.User) error
	SetResetToken(ctx context.Context, user *domain.User) error
	ConsumeResetToken(ctx context.Context, user *domain.User, tokenHash string, now time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left as
// they are.
type ProfileUpdate struct {
	Name   *string
	Email  *string
	Avatar *domain.Avatar
}

// IsEmpty reports whether the update changes nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Avatar == nil
}

type Repositories struct {
	User UserRepository
}
