package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dom/account-service/internal/domain"
	"github.com/dom/account-service/internal/mail"
	"github.com/dom/account-service/internal/media"
	"github.com/dom/account-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// welcomeEmailTimeout bounds a background welcome send once the request
// that triggered it has returned.
const welcomeEmailTimeout = 30 * time.Second

type AccountService struct {
	users  repository.UserRepository
	tokens *TokenIssuer
	mailer mail.Mailer
	media  media.Store
	log    *zap.Logger
	now    func() time.Time

	wg sync.WaitGroup
}

// NewAccountService wires the account operations. store may be nil when no
// media bucket is configured; uploaded avatars are then rejected.
func NewAccountService(users repository.UserRepository, tokens *TokenIssuer, mailer mail.Mailer, store media.Store, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		media:  store,
		log:    log,
		now:    time.Now,
	}
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

type SigninInput struct {
	Email    string
	Password string
}

// UpdateProfileInput holds a partial update. Nil fields are not changed and
// an empty Avatar removes the current one.
type UpdateProfileInput struct {
	Name   *string
	Email  *string
	Avatar *string
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

func (s *AccountService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	if err := domain.ValidateSignup(input.Name, input.Email, input.Password); err != nil {
		return nil, invalid(err)
	}

	_, err := s.users.GetByEmail(ctx, input.Email)
	switch {
	case err == nil:
		return nil, ErrEmailExists
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	user, err := domain.NewUser(input.Name, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	s.log.Info("account created", zap.String("user_id", user.ID.String()))
	s.sendWelcome(ctx, user)

	user.PasswordHash = ""
	return user, nil
}

func (s *AccountService) Signin(ctx context.Context, input SigninInput) (*AuthResult, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return nil, invalid(domain.ErrMissingLogin)
	}

	user, err := s.users.GetByEmailWithPassword(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			domain.CompareDummyPassword(input.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.CheckPassword(input.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(user)
}

// UserFromToken resolves a session token to its user. Tokens of deleted
// users are rejected like malformed ones.
func (s *AccountService) UserFromToken(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrInvalidToken)
		}
		return nil, err
	}
	return user, nil
}

func (s *AccountService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, user *domain.User, input UpdateProfileInput) (*domain.User, error) {
	var update repository.ProfileUpdate

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := domain.ValidateName(name); err != nil {
			return nil, invalid(err)
		}
		update.Name = &name
	}

	if input.Email != nil {
		email := domain.NormalizeEmail(*input.Email)
		if err := domain.ValidateEmail(email); err != nil {
			return nil, invalid(err)
		}
		update.Email = &email
	}

	if input.Avatar != nil {
		avatar, err := s.resolveAvatar(user.ID, *input.Avatar)
		if err != nil {
			return nil, err
		}
		update.Avatar = &avatar
	}

	updated, err := s.users.UpdateProfile(ctx, user.ID, update)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrEmailExists
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if update.Avatar != nil {
		if old := user.AvatarData(); old.Key != "" && old.Key != update.Avatar.Key {
			s.removeAvatar(ctx, user.ID, old.Key)
		}
	}

	return updated, nil
}

// resolveAvatar accepts a key from a presigned upload owned by the user, an
// external http(s) URL, or an empty string to clear the avatar.
func (s *AccountService) resolveAvatar(userID uuid.UUID, ref string) (domain.Avatar, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Avatar{}, nil
	}

	if media.IsAvatarKey(ref) {
		if s.media == nil || !strings.HasPrefix(ref, media.AvatarPrefix(userID)) || ref == media.AvatarPrefix(userID) {
			return domain.Avatar{}, invalid(domain.ErrInvalidAvatar)
		}
		return domain.Avatar{Key: ref, URL: s.media.URL(ref)}, nil
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.Avatar{}, invalid(domain.ErrInvalidAvatar)
	}
	return domain.Avatar{URL: ref}, nil
}

// CreateAvatarUpload hands out a presigned URL the client uploads its new
// avatar to before setting the returned key on its profile.
func (s *AccountService) CreateAvatarUpload(ctx context.Context, userID uuid.UUID) (*media.Upload, error) {
	if s.media == nil {
		return nil, media.ErrNotConfigured
	}
	return s.media.PresignAvatarUpload(ctx, userID)
}

func (s *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	if err := domain.ValidatePassword(input.NewPassword); err != nil {
		return invalid(err)
	}

	user, err := s.users.GetByIDWithPassword(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !user.CheckPassword(input.CurrentPassword) {
		return ErrUnauthorized
	}

	if err := user.SetPassword(input.NewPassword); err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.log.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}

// ForgotPassword issues a reset token and mails its link, built on
// baseURL. The token is withdrawn again if the mail cannot be delivered.
func (s *AccountService) ForgotPassword(ctx context.Context, email, baseURL string) error {
	if strings.TrimSpace(email) == "" {
		return invalid(domain.ErrEmailRequired)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	raw, err := user.IssueResetToken(s.now())
	if err != nil {
		return err
	}

	// The caller going away must not leave a token behind without its mail.
	ctx = context.WithoutCancel(ctx)

	if err := s.users.SetResetToken(ctx, user); err != nil {
		return err
	}

	resetURL := strings.TrimSuffix(baseURL, "/") + "/api/v1/users/reset-password/" + raw

	if _, sendErr := s.send(ctx, resetPasswordEmail(user.Email, resetURL)); sendErr != nil {
		s.log.Error("reset email failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(sendErr),
		)

		user.ClearResetToken()
		if err := s.users.SetResetToken(ctx, user); err != nil {
			s.log.Error("failed to clear reset token",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		}
		return errors.Join(ErrEmailDelivery, sendErr)
	}

	s.log.Info("reset email sent", zap.String("user_id", user.ID.String()))
	return nil
}

// ResetPassword redeems a reset token and signs the user in.
func (s *AccountService) ResetPassword(ctx context.Context, rawToken, newPassword string) (*AuthResult, error) {
	if rawToken == "" {
		return nil, invalid(ErrResetTokenInvalid)
	}
	if err := domain.ValidatePassword(newPassword); err != nil {
		return nil, invalid(err)
	}

	tokenHash := domain.HashResetToken(rawToken)
	now := s.now()

	user, err := s.users.GetByResetToken(ctx, tokenHash, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}

	if err := user.SetPassword(newPassword); err != nil {
		return nil, err
	}

	if err := s.users.ConsumeResetToken(ctx, user, tokenHash, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}

	s.log.Info("password reset", zap.String("user_id", user.ID.String()))
	return s.issueSession(user)
}

// DeleteAccount removes the user and their uploaded avatar.
func (s *AccountService) DeleteAccount(ctx context.Context, user *domain.User) error {
	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if key := user.AvatarData().Key; key != "" {
		s.removeAvatar(ctx, user.ID, key)
	}

	s.log.Info("account deleted", zap.String("user_id", user.ID.String()))
	return nil
}

// Wait blocks until background welcome emails have finished.
func (s *AccountService) Wait() {
	s.wg.Wait()
}

func (s *AccountService) issueSession(user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &AuthResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *AccountService) sendWelcome(ctx context.Context, user *domain.User) {
	msg := welcomeEmail(user.Email, user.Name)
	userID := user.ID.String()
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, welcomeEmailTimeout)
		defer cancel()

		result, err := s.send(ctx, msg)
		if err != nil {
			s.log.Warn("welcome email failed", zap.String("user_id", userID), zap.Error(err))
			return
		}

		fields := []zap.Field{zap.String("user_id", userID)}
		if result != nil {
			fields = append(fields, zap.String("message_id", result.MessageID))
		}
		s.log.Info("welcome email sent", fields...)
	}()
}

func (s *AccountService) send(ctx context.Context, msg mail.Message) (*mail.Result, error) {
	if s.mailer == nil {
		return nil, mail.ErrNotConfigured
	}
	return s.mailer.Send(ctx, msg)
}

func (s *AccountService) removeAvatar(ctx context.Context, userID uuid.UUID, key string) {
	if s.media == nil {
		return
	}
	if err := s.media.Delete(ctx, key); err != nil {
		s.log.Warn("failed to delete avatar",
			zap.String("user_id", userID.String()),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
