package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/account-service/internal/domain"
	"github.com/dom/account-service/internal/repository"
	"github.com/dom/account-service/internal/repository/postgres"
	"github.com/dom/account-service/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_Create(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	first, err := domain.NewUser("First", "same@example.com", "password123")
	require.NoError(t, err)
	second, err := domain.NewUser("Second", "SAME@example.com", "password123")
	require.NoError(t, err)

	tests := []struct {
		name    string
		user    *domain.User
		wantErr error
	}{
		{
			name: "successful creation",
			user: first,
		},
		{
			name:    "duplicate email",
			user:    second,
			wantErr: gorm.ErrDuplicatedKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUserRepository_Get(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().
		WithName("Getter").
		WithEmail("getter@example.com").
		Build(t, repo)

	t.Run("by id hides the password", func(t *testing.T) {
		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Getter", got.Name)
		assert.Equal(t, "getter@example.com", got.Email)
		assert.Empty(t, got.PasswordHash)
		assert.True(t, got.AvatarData().IsZero())
	})

	t.Run("by id with password", func(t *testing.T) {
		got, err := repo.GetByIDWithPassword(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, got.CheckPassword(password))
	})

	t.Run("by email ignores case", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, " Getter@Example.COM ")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Empty(t, got.PasswordHash)

		got, err = repo.GetByEmailWithPassword(ctx, "GETTER@example.com")
		require.NoError(t, err)
		assert.True(t, got.CheckPassword(password))
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

		_, err = repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().Build(t, repo)
	other, _ := testutil.NewUserBuilder().WithEmail("other@example.com").Build(t, repo)

	name := "Renamed"
	email := "Renamed@Example.com"
	taken := other.Email
	avatar := domain.Avatar{Key: "avatars/" + user.ID.String() + "/pic", URL: "https://cdn.example.com/pic"}

	tests := []struct {
		name    string
		id      uuid.UUID
		update  repository.ProfileUpdate
		wantErr error
		check   func(t *testing.T, got *domain.User)
	}{
		{
			name:   "name and email",
			id:     user.ID,
			update: repository.ProfileUpdate{Name: &name, Email: &email},
			check: func(t *testing.T, got *domain.User) {
				assert.Equal(t, "Renamed", got.Name)
				assert.Equal(t, "renamed@example.com", got.Email)
			},
		},
		{
			name:   "avatar round trips through jsonb",
			id:     user.ID,
			update: repository.ProfileUpdate{Avatar: &avatar},
			check: func(t *testing.T, got *domain.User) {
				assert.Equal(t, avatar, got.AvatarData())
				assert.Equal(t, "Renamed", got.Name)
			},
		},
		{
			name:   "empty update returns current user",
			id:     user.ID,
			update: repository.ProfileUpdate{},
			check: func(t *testing.T, got *domain.User) {
				assert.Equal(t, user.ID, got.ID)
			},
		},
		{
			name:    "email taken",
			id:      user.ID,
			update:  repository.ProfileUpdate{Email: &taken},
			wantErr: gorm.ErrDuplicatedKey,
		},
		{
			name:    "missing user",
			id:      uuid.New(),
			update:  repository.ProfileUpdate{Name: &name},
			wantErr: gorm.ErrRecordNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.UpdateProfile(ctx, tt.id, tt.update)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, got.PasswordHash)
			tt.check(t, got)
		})
	}

	stored, err := repo.GetByIDWithPassword(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword(password), "profile updates must not touch the password")
}

func TestUserRepository_ResetToken(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repo)
	now := time.Now()

	raw, err := user.IssueResetToken(now)
	require.NoError(t, err)
	require.NoError(t, repo.SetResetToken(ctx, user))
	tokenHash := domain.HashResetToken(raw)

	t.Run("found while live", func(t *testing.T) {
		got, err := repo.GetByResetToken(ctx, tokenHash, now)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		require.NotNil(t, got.ResetPasswordExpire)
		assert.WithinDuration(t, now.Add(domain.ResetTokenTTL), *got.ResetPasswordExpire, time.Second)
	})

	t.Run("not found once expired", func(t *testing.T) {
		_, err := repo.GetByResetToken(ctx, tokenHash, now.Add(domain.ResetTokenTTL+time.Second))
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("raw token is not stored", func(t *testing.T) {
		_, err := repo.GetByResetToken(ctx, raw, now)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("consumed once", func(t *testing.T) {
		require.NoError(t, user.SetPassword("resetpassword1"))

		require.NoError(t, repo.ConsumeResetToken(ctx, user, tokenHash, now))
		assert.ErrorIs(t, repo.ConsumeResetToken(ctx, user, tokenHash, now), gorm.ErrRecordNotFound)

		stored, err := repo.GetByIDWithPassword(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, stored.CheckPassword("resetpassword1"))
		assert.Nil(t, stored.ResetPasswordToken)
		assert.Nil(t, stored.ResetPasswordExpire)
	})

	t.Run("cleared", func(t *testing.T) {
		_, err := user.IssueResetToken(now)
		require.NoError(t, err)
		require.NoError(t, repo.SetResetToken(ctx, user))

		user.ClearResetToken()
		require.NoError(t, repo.SetResetToken(ctx, user))

		stored, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.ResetPasswordToken)
	})
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().Build(t, repo)
	require.NoError(t, user.SetPassword("changedpassword"))
	require.NoError(t, repo.UpdatePassword(ctx, user))

	stored, err := repo.GetByIDWithPassword(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.CheckPassword("changedpassword"))
	assert.False(t, stored.CheckPassword(password))

	ghost := &domain.User{ID: uuid.New(), PasswordHash: "x"}
	assert.ErrorIs(t, repo.UpdatePassword(ctx, ghost), gorm.ErrRecordNotFound)
}

func TestUserRepository_Delete(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repo)

	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err := repo.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, user.ID), gorm.ErrRecordNotFound)
}
