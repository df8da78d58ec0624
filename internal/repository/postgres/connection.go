package postgres

import (
	"github.com/dom/account-service/internal/domain"
	"github.com/dom/account-service/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens the database and migrates the user table. SQL is
// only logged when verbose is set.
func NewConnection(databaseURL string, verbose bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if verbose {
		logLevel = logger.Info
	}

	db, err := Open(databaseURL, logger.Default.LogMode(logLevel))
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Open connects without migrating. Duplicate key violations are translated
// to gorm.ErrDuplicatedKey.
func Open(databaseURL string, log logger.Interface) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         log,
		TranslateError: true,
	})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{})
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User: NewUserRepository(db),
	}
}
