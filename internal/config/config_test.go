package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/accounts?sslmode=disable")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("SMTP_USER", "mailer")
	t.Setenv("SMTP_PASS", "hunter2")
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		check   func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, 24, cfg.JWTExpirationHours)
				assert.False(t, cfg.CookieSecure)
				assert.Equal(t, "App", cfg.Mail.FromName)
				assert.Equal(t, "noreply@yourdomain.com", cfg.Mail.SMTPFrom)
				assert.Equal(t, 587, cfg.Mail.SMTPPort)
				assert.False(t, cfg.Mail.UsesAPI())
				assert.False(t, cfg.Media.Enabled())
			},
		},
		{
			name: "production enables secure cookies",
			env:  map[string]string{"ENVIRONMENT": "production", "APP_BASE_URL": "https://accounts.example.com"},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.CookieSecure)
				assert.False(t, cfg.IsDevelopment())
			},
		},
		{
			name: "allowed origins and base url",
			env: map[string]string{
				"ALLOWED_ORIGINS": "https://a.example.com, https://b.example.com,",
				"APP_BASE_URL":    "https://accounts.example.com/",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
				assert.Equal(t, "https://accounts.example.com", cfg.AppBaseURL)
			},
		},
		{
			name: "media enabled by bucket",
			env:  map[string]string{"S3_BUCKET": "avatars", "S3_PUBLIC_URL": "https://cdn.example.com/"},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Media.Enabled())
				assert.Equal(t, "https://cdn.example.com", cfg.Media.PublicURL)
			},
		},
		{
			name:    "missing database url",
			env:     map[string]string{"DATABASE_URL": ""},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "production without base url",
			env:     map[string]string{"ENVIRONMENT": "production", "APP_BASE_URL": ""},
			wantErr: "APP_BASE_URL",
		},
		{
			name: "development falls back to request host",
			env:  map[string]string{"APP_BASE_URL": ""},
			check: func(t *testing.T, cfg *Config) {
				assert.Empty(t, cfg.AppBaseURL)
			},
		},
		{
			name:    "missing jwt secret",
			env:     map[string]string{"JWT_SECRET": ""},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "incomplete smtp",
			env:     map[string]string{"SMTP_PASS": "", "SMTP_USER": ""},
			wantErr: "SMTP_USER, SMTP_PASS",
		},
		{
			name: "api key replaces smtp",
			env: map[string]string{
				"SMTP_HOST":     "",
				"EMAIL_API_KEY": "re_123",
				"EMAIL_FROM":    "App <noreply@example.com>",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Mail.UsesAPI())
				assert.Equal(t, "https://api.resend.com", cfg.Mail.APIURL)
			},
		},
		{
			name:    "api key without sender",
			env:     map[string]string{"EMAIL_API_KEY": "re_123"},
			wantErr: "EMAIL_FROM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
