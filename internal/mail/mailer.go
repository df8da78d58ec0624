// Package mail sends transactional email through either an SMTP server or a
// hosted email API.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/account-service/internal/config"
)

var (
	// ErrNotConfigured is returned when transport settings are missing.
	ErrNotConfigured = errors.New("email transport is not configured")
	// ErrDelivery matches every *DeliveryError.
	ErrDelivery = errors.New("failed to send email")
)

// Message is a single email to one recipient. HTML is optional; when empty
// the text body is sent.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Result identifies a sent message.
type Result struct {
	MessageID string
}

// Mailer is the notification sender used by the account service.
type Mailer interface {
	Send(ctx context.Context, msg Message) (*Result, error)
}

// DeliveryError wraps a transport failure.
type DeliveryError struct {
	Transport string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to send email via %s: %v", e.Transport, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func (e *DeliveryError) Is(target error) bool {
	return target == ErrDelivery
}

// New picks the hosted API transport when an API key is configured and
// SMTP otherwise.
func New(cfg config.MailConfig) (Mailer, error) {
	if cfg.UsesAPI() {
		m, err := NewAPIMailer(cfg, nil)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	m, err := NewSMTPMailer(cfg)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func validateMessage(msg Message) error {
	if msg.To == "" {
		return errors.New("email recipient is required")
	}
	if msg.Subject == "" {
		return errors.New("email subject is required")
	}
	if msg.Text == "" && msg.HTML == "" {
		return errors.New("email body is required")
	}
	return nil
}
