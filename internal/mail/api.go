package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dom/account-service/internal/config"
	"github.com/google/uuid"
)

// APIMailer sends email through a hosted provider's HTTP API. The request
// shape follows Resend's POST /emails endpoint.
type APIMailer struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

type apiSendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

type apiSendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// NewAPIMailer returns a mailer for the hosted API. A nil httpClient gets a
// client with a 30 second timeout.
func NewAPIMailer(cfg config.MailConfig, httpClient *http.Client) (*APIMailer, error) {
	if cfg.APIKey == "" || cfg.APIFrom == "" {
		return nil, fmt.Errorf("%w: EMAIL_API_KEY and EMAIL_FROM are required", ErrNotConfigured)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &APIMailer{
		baseURL:    strings.TrimSuffix(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		from:       cfg.APIFrom,
		httpClient: httpClient,
	}, nil
}

func (m *APIMailer) Send(ctx context.Context, msg Message) (*Result, error) {
	if m == nil || m.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if err := validateMessage(msg); err != nil {
		return nil, &DeliveryError{Transport: "api", Err: err}
	}

	body, err := json.Marshal(apiSendRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	})
	if err != nil {
		return nil, &DeliveryError{Transport: "api", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return nil, &DeliveryError{Transport: "api", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &DeliveryError{Transport: "api", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &DeliveryError{Transport: "api", Err: err}
	}

	var result apiSendResponse
	_ = json.Unmarshal(respBody, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := result.Message
		if detail == "" {
			detail = strings.TrimSpace(string(respBody))
		}
		return nil, &DeliveryError{
			Transport: "api",
			Err:       fmt.Errorf("provider returned status %d: %s", resp.StatusCode, detail),
		}
	}
	// Accepted without an id. Use a local one, as the SMTP transport does.
	if result.ID == "" {
		return &Result{MessageID: uuid.NewString()}, nil
	}

	return &Result{MessageID: result.ID}, nil
}
