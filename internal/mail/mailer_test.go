package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dajohi/goemail"
	"github.com/dom/account-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSMTPClient struct {
	err   error
	delay time.Duration
	sent  []*goemail.Message
}

func (s *stubSMTPClient) Send(msg *goemail.Message) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.sent = append(s.sent, msg)
	return s.err
}

func smtpConfig() config.MailConfig {
	return config.MailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		SMTPUser: "mailer",
		SMTPPass: "hunter2",
		SMTPFrom: "noreply@example.com",
		FromName: "App",
	}
}

func TestNewSMTPMailer(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.MailConfig)
		wantErr bool
	}{
		{name: "complete config"},
		{name: "implicit tls", mutate: func(c *config.MailConfig) { c.SMTPSecure = true }},
		{name: "missing host", mutate: func(c *config.MailConfig) { c.SMTPHost = "" }, wantErr: true},
		{name: "missing port", mutate: func(c *config.MailConfig) { c.SMTPPort = 0 }, wantErr: true},
		{name: "missing credentials", mutate: func(c *config.MailConfig) { c.SMTPPass = "" }, wantErr: true},
		{name: "bad from address", mutate: func(c *config.MailConfig) { c.SMTPFrom = "not an address" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smtpConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			m, err := NewSMTPMailer(cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotConfigured)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "App", m.mailName)
			assert.Equal(t, "noreply@example.com", m.mailAddress)
		})
	}
}

func TestSMTPMailer_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		client := &stubSMTPClient{}
		m := newSMTPMailer(client, "App", "noreply@example.com")

		res, err := m.Send(ctx, Message{To: "ada@example.com", Subject: "Hi", Text: "hello", HTML: "<p>hello</p>"})
		require.NoError(t, err)
		assert.Contains(t, res.MessageID, "@example.com>")
		assert.Len(t, client.sent, 1)
	})

	t.Run("transport failure", func(t *testing.T) {
		cause := errors.New("connection refused")
		m := newSMTPMailer(&stubSMTPClient{err: cause}, "App", "noreply@example.com")

		_, err := m.Send(ctx, Message{To: "ada@example.com", Subject: "Hi", Text: "hello"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDelivery)
		assert.ErrorIs(t, err, cause)

		var de *DeliveryError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "smtp", de.Transport)
	})

	t.Run("context deadline", func(t *testing.T) {
		m := newSMTPMailer(&stubSMTPClient{delay: 200 * time.Millisecond}, "App", "noreply@example.com")
		ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := m.Send(ctx, Message{To: "ada@example.com", Subject: "Hi", Text: "hello"})
		assert.ErrorIs(t, err, ErrDelivery)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("empty message", func(t *testing.T) {
		m := newSMTPMailer(&stubSMTPClient{}, "App", "noreply@example.com")
		_, err := m.Send(ctx, Message{To: "ada@example.com"})
		assert.ErrorIs(t, err, ErrDelivery)
	})

	t.Run("unconfigured", func(t *testing.T) {
		var m *SMTPMailer
		_, err := m.Send(ctx, Message{To: "ada@example.com", Subject: "Hi", Text: "hello"})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}

func TestAPIMailer_Send(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		response  string
		wantID    string
		wantError bool
	}{
		{name: "accepted", status: http.StatusOK, response: `{"id":"msg_123"}`, wantID: "msg_123"},
		{name: "rejected", status: http.StatusUnprocessableEntity, response: `{"message":"invalid from"}`, wantError: true},
		{name: "server error", status: http.StatusInternalServerError, response: `oops`, wantError: true},
		{name: "accepted without id", status: http.StatusAccepted, response: `{}`},
		{name: "accepted with empty body", status: http.StatusOK, response: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got apiSendRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/emails", r.URL.Path)
				assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			m, err := NewAPIMailer(config.MailConfig{
				APIKey:  "re_test",
				APIURL:  srv.URL + "/",
				APIFrom: "App <noreply@example.com>",
			}, srv.Client())
			require.NoError(t, err)

			res, err := m.Send(context.Background(), Message{
				To:      "ada@example.com",
				Subject: "Welcome",
				Text:    "hello",
			})

			assert.Equal(t, []string{"ada@example.com"}, got.To)
			assert.Equal(t, "App <noreply@example.com>", got.From)
			assert.Equal(t, "Welcome", got.Subject)

			if tt.wantError {
				assert.ErrorIs(t, err, ErrDelivery)
				return
			}
			require.NoError(t, err)
			if tt.wantID == "" {
				assert.NotEmpty(t, res.MessageID)
				return
			}
			assert.Equal(t, tt.wantID, res.MessageID)
		})
	}
}

func TestNew(t *testing.T) {
	m, err := New(smtpConfig())
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	m, err = New(config.MailConfig{APIKey: "re_test", APIFrom: "noreply@example.com", APIURL: "https://api.example.com"})
	require.NoError(t, err)
	assert.IsType(t, &APIMailer{}, m)

	_, err = New(config.MailConfig{APIKey: "re_test"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
