package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Server
	Port           string
	Environment    string
	AppName        string
	AppBaseURL     string
	AllowedOrigins []string

	// Database
	DatabaseURL string

	// JWT / session cookie
	JWTSecret          string
	JWTExpirationHours int
	CookieSecure       bool

	Mail  MailConfig
	Media MediaConfig
}

// MailConfig selects the notification transport. A hosted API key takes
// precedence over SMTP settings.
type MailConfig struct {
	SMTPHost   string
	SMTPPort   int
	SMTPSecure bool
	SMTPUser   string
	SMTPPass   string
	SMTPFrom   string
	FromName   string

	APIKey  string
	APIURL  string
	APIFrom string
}

// UsesAPI reports whether the hosted email API transport is configured.
func (m MailConfig) UsesAPI() bool {
	return m.APIKey != ""
}

// Validate checks that one complete transport is configured.
func (m MailConfig) Validate() error {
	if m.UsesAPI() {
		if m.APIFrom == "" {
			return errors.New("EMAIL_FROM is required when EMAIL_API_KEY is set")
		}
		return nil
	}

	var missing []string
	if m.SMTPHost == "" {
		missing = append(missing, "SMTP_HOST")
	}
	if m.SMTPPort == 0 {
		missing = append(missing, "SMTP_PORT")
	}
	if m.SMTPUser == "" {
		missing = append(missing, "SMTP_USER")
	}
	if m.SMTPPass == "" {
		missing = append(missing, "SMTP_PASS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("SMTP configuration is incomplete, missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// MediaConfig points at the S3-compatible bucket holding avatar uploads.
type MediaConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

// Enabled reports whether avatar storage is configured.
func (m MediaConfig) Enabled() bool {
	return m.Bucket != ""
}

func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "development")
	appName := getEnv("APP_NAME", "App")

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        env,
		AppName:            appName,
		AppBaseURL:         strings.TrimSuffix(getEnv("APP_BASE_URL", ""), "/"),
		AllowedOrigins:     getEnvList("ALLOWED_ORIGINS"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTExpirationHours: getEnvInt("JWT_EXPIRATION_HOURS", 24),
		CookieSecure:       getEnvBool("COOKIE_SECURE", env != "development"),
		Mail: MailConfig{
			SMTPHost:   getEnv("SMTP_HOST", ""),
			SMTPPort:   getEnvInt("SMTP_PORT", 0),
			SMTPSecure: getEnvBool("SMTP_SECURE", false),
			SMTPUser:   getEnv("SMTP_USER", ""),
			SMTPPass:   getEnv("SMTP_PASS", ""),
			SMTPFrom:   getEnv("SMTP_FROM", "noreply@yourdomain.com"),
			FromName:   appName,
			APIKey:     getEnv("EMAIL_API_KEY", ""),
			APIURL:     getEnv("EMAIL_API_URL", "https://api.resend.com"),
			APIFrom:    getEnv("EMAIL_FROM", ""),
		},
		Media: MediaConfig{
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			PublicURL: strings.TrimSuffix(getEnv("S3_PUBLIC_URL", ""), "/"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	// Reset links are built on this; without it they would follow the
	// request's Host header.
	if cfg.AppBaseURL == "" && !cfg.IsDevelopment() {
		return nil, fmt.Errorf("APP_BASE_URL environment variable is required outside development")
	}
	if cfg.JWTExpirationHours <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be positive")
	}
	if err := cfg.Mail.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
