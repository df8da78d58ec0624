package postgres

import (
	"context"
	"time"

	"github.com/dom/account-service/internal/domain"
	"github.com/dom/account-service/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const passwordColumn = "password_hash"

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.first(ctx, false, "id = ?", id)
}

func (r *userRepository) GetByIDWithPassword(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.first(ctx, true, "id = ?", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, false, "email = ?", domain.NormalizeEmail(email))
}

func (r *userRepository) GetByEmailWithPassword(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, true, "email = ?", domain.NormalizeEmail(email))
}

func (r *userRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	return r.first(ctx, false, "reset_password_token = ? AND reset_password_expire > ?", tokenHash, now)
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update repository.ProfileUpdate) (*domain.User, error) {
	if update.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	values := make(map[string]interface{}, 3)
	if update.Name != nil {
		values["name"] = *update.Name
	}
	if update.Email != nil {
		values["email"] = domain.NormalizeEmail(*update.Email)
	}
	if update.Avatar != nil {
		values["avatar"] = datatypes.NewJSONType(*update.Avatar)
	}

	if err := r.updateColumns(ctx, id, values); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// UpdatePassword persists the hash and reset-token state set by
// domain.User.SetPassword.
func (r *userRepository) UpdatePassword(ctx context.Context, user *domain.User) error {
	values := resetTokenColumns(user)
	values[passwordColumn] = user.PasswordHash
	return r.updateColumns(ctx, user.ID, values)
}

// SetResetToken writes only the reset token columns, leaving the rest of
// the record untouched.
func (r *userRepository) SetResetToken(ctx context.Context, user *domain.User) error {
	return r.updateColumns(ctx, user.ID, resetTokenColumns(user))
}

func (r *userRepository) ConsumeResetToken(ctx context.Context, user *domain.User, tokenHash string, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND reset_password_token = ? AND reset_password_expire > ?", user.ID, tokenHash, now).
		Updates(map[string]interface{}{
			passwordColumn:          user.PasswordHash,
			"reset_password_token":  nil,
			"reset_password_expire": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) first(ctx context.Context, withPassword bool, query string, args ...interface{}) (*domain.User, error) {
	var user domain.User
	tx := r.db.WithContext(ctx)
	if !withPassword {
		tx = tx.Omit(passwordColumn)
	}
	if err := tx.Where(query, args...).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) updateColumns(ctx context.Context, id uuid.UUID, values map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func resetTokenColumns(user *domain.User) map[string]interface{} {
	values := map[string]interface{}{
		"reset_password_token":  nil,
		"reset_password_expire": nil,
	}
	if user.ResetPasswordToken != nil {
		values["reset_password_token"] = *user.ResetPasswordToken
	}
	if user.ResetPasswordExpire != nil {
		values["reset_password_expire"] = *user.ResetPasswordExpire
	}
	return values
}
