package testutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/account-service/internal/api"
	"github.com/dom/account-service/internal/config"
	"github.com/dom/account-service/internal/repository"
	repoPostgres "github.com/dom/account-service/internal/repository/postgres"
	"github.com/dom/account-service/internal/service"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated
// connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_accounts"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	testDB := &TestDB{Container: container}
	t.Cleanup(func() {
		testDB.Cleanup()
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := repoPostgres.Open(dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB.DB = db
	testDB.DSN = dsn
	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	if err := tdb.DB.Exec("TRUNCATE TABLE users CASCADE").Error; err != nil {
		t.Logf("warning: failed to truncate users: %v", err)
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:               "0", // Random port
		Environment:        "test",
		AppName:            "Account Service",
		AllowedOrigins:     []string{"http://localhost:3000"},
		JWTSecret:          "test-jwt-secret-key-for-testing-only",
		JWTExpirationHours: 1,
		CookieSecure:       false,
		Mail: config.MailConfig{
			SMTPHost: "localhost",
			SMTPPort: 2525,
			SMTPUser: "test",
			SMTPPass: "test",
			SMTPFrom: "noreply@example.com",
			FromName: "Account Service",
		},
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Users    repository.UserRepository
	Services *service.Services
	Mailer   *FakeMailer
	Media    *FakeMediaStore
	Config   *config.Config
}

// NewTestServer creates a test server backed by an in-memory user store,
// a recording mailer and a fake media bucket
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return newTestServer(t, nil, NewMemoryUserRepository(), zap.NewNop())
}

// NewTestServerWithLogger is NewTestServer with log wired into the router
// and services, so tests can inspect what gets logged.
func NewTestServerWithLogger(t *testing.T, log *zap.Logger) *TestServer {
	t.Helper()
	return newTestServer(t, nil, NewMemoryUserRepository(), log)
}

// NewTestServerWithDB is NewTestServer on top of a PostgreSQL container
func NewTestServerWithDB(t *testing.T) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	repos := repoPostgres.NewRepositories(testDB.DB)
	return newTestServer(t, testDB, repos.User, zap.NewNop())
}

func newTestServer(t *testing.T, testDB *TestDB, users repository.UserRepository, log *zap.Logger) *TestServer {
	cfg := TestConfig()
	mailer := NewFakeMailer()
	store := NewFakeMediaStore()

	repos := &repository.Repositories{User: users}
	services := service.NewServices(repos, cfg, mailer, store, log)
	router := api.NewRouter(services, cfg, log)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       testDB,
		Users:    users,
		Services: services,
		Mailer:   mailer,
		Media:    store,
		Config:   cfg,
	}

	t.Cleanup(func() {
		server.Close()
		services.Account.Wait()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1/users%s", ts.Server.URL, path)
}

// NewClient returns an HTTP client that keeps cookies between requests,
// like a browser would.
func (ts *TestServer) NewClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}
