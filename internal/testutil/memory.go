package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dom/account-service/internal/domain"
	"github.com/dom/account-service/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemoryUserRepository is an in-process repository.UserRepository that
// reports the same gorm errors as the postgres one.
type MemoryUserRepository struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*domain.User
	calls  int
	writes int
}

var _ repository.UserRepository = (*MemoryUserRepository)(nil)

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[uuid.UUID]*domain.User)}
}

// Calls is the number of repository calls made so far.
func (r *MemoryUserRepository) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Writes is the number of successful mutations made so far.
func (r *MemoryUserRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// Stored returns the full record for id, password hash included.
func (r *MemoryUserRepository) Stored(id uuid.UUID) (*domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, false
	}
	return cloneUser(u, true), true
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	if r.emailTaken(user.Email, uuid.Nil) {
		return gorm.ErrDuplicatedKey
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = cloneUser(user, true)
	r.writes++
	return nil
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(false, func(u *domain.User) bool { return u.ID == id })
}

func (r *MemoryUserRepository) GetByIDWithPassword(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(true, func(u *domain.User) bool { return u.ID == id })
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	return r.find(false, func(u *domain.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) GetByEmailWithPassword(ctx context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	return r.find(true, func(u *domain.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	return r.find(false, func(u *domain.User) bool {
		return resetTokenLive(u, tokenHash, now)
	})
}

func (r *MemoryUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update repository.ProfileUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if update.Email != nil && r.emailTaken(domain.NormalizeEmail(*update.Email), id) {
		return nil, gorm.ErrDuplicatedKey
	}

	if !update.IsEmpty() {
		if update.Name != nil {
			u.Name = *update.Name
		}
		if update.Email != nil {
			u.Email = domain.NormalizeEmail(*update.Email)
		}
		if update.Avatar != nil {
			u.SetAvatar(*update.Avatar)
		}
		u.UpdatedAt = time.Now()
		r.writes++
	}
	return cloneUser(u, false), nil
}

func (r *MemoryUserRepository) UpdatePassword(ctx context.Context, user *domain.User) error {
	return r.update(user.ID, func(u *domain.User) {
		u.PasswordHash = user.PasswordHash
		copyResetToken(u, user)
	})
}

func (r *MemoryUserRepository) SetResetToken(ctx context.Context, user *domain.User) error {
	return r.update(user.ID, func(u *domain.User) {
		copyResetToken(u, user)
	})
}

func (r *MemoryUserRepository) ConsumeResetToken(ctx context.Context, user *domain.User, tokenHash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	u, ok := r.users[user.ID]
	if !ok || !resetTokenLive(u, tokenHash, now) {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = user.PasswordHash
	u.ClearResetToken()
	u.UpdatedAt = time.Now()
	r.writes++
	return nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	if _, ok := r.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, id)
	r.writes++
	return nil
}

func (r *MemoryUserRepository) find(withPassword bool, match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	for _, u := range r.users {
		if match(u) {
			return cloneUser(u, withPassword), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MemoryUserRepository) update(id uuid.UUID, apply func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	apply(u)
	u.UpdatedAt = time.Now()
	r.writes++
	return nil
}

func (r *MemoryUserRepository) emailTaken(email string, except uuid.UUID) bool {
	for _, u := range r.users {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func resetTokenLive(u *domain.User, tokenHash string, now time.Time) bool {
	return u.ResetPasswordToken != nil && *u.ResetPasswordToken == tokenHash &&
		u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(now)
}

func copyResetToken(dst, src *domain.User) {
	dst.ClearResetToken()
	if src.ResetPasswordToken != nil {
		token := *src.ResetPasswordToken
		dst.ResetPasswordToken = &token
	}
	if src.ResetPasswordExpire != nil {
		expire := *src.ResetPasswordExpire
		dst.ResetPasswordExpire = &expire
	}
}

func cloneUser(u *domain.User, withPassword bool) *domain.User {
	c := *u
	copyResetToken(&c, u)
	if !withPassword {
		c.PasswordHash = ""
	}
	return &c
}
