package service

import (
	"time"

	"github.com/dom/account-service/internal/config"
	"github.com/dom/account-service/internal/mail"
	"github.com/dom/account-service/internal/media"
	"github.com/dom/account-service/internal/repository"
	"go.uber.org/zap"
)

type Services struct {
	Account *AccountService
	Tokens  *TokenIssuer
}

func NewServices(repos *repository.Repositories, cfg *config.Config, mailer mail.Mailer, store media.Store, log *zap.Logger) *Services {
	tokens := NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour)
	return &Services{
		Account: NewAccountService(repos.User, tokens, mailer, store, log),
		Tokens:  tokens,
	}
}
