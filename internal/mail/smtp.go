package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	netmail "net/mail"
	"net/url"
	"strconv"

	"github.com/dajohi/goemail"
	"github.com/dom/account-service/internal/config"
	"github.com/google/uuid"
)

// smtpClient is the part of goemail.SMTP the mailer uses.
type smtpClient interface {
	Send(msg *goemail.Message) error
}

// SMTPMailer sends email from a preset address through an SMTP server.
type SMTPMailer struct {
	client      smtpClient
	mailName    string // From name
	mailAddress string // From email address
}

// NewSMTPMailer connects nothing up front; goemail dials per message.
// SMTP_SECURE selects implicit TLS (smtps), otherwise the plain smtp scheme
// is used and goemail upgrades with STARTTLS when offered.
func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	scheme := "smtp"
	if cfg.SMTPSecure {
		scheme = "smtps"
	}
	u := &url.URL{
		Scheme: scheme,
		User:   url.UserPassword(cfg.SMTPUser, cfg.SMTPPass),
		Host:   net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
	}

	from, err := netmail.ParseAddress(cfg.SMTPFrom)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid SMTP_FROM: %v", ErrNotConfigured, err)
	}
	name := from.Name
	if name == "" {
		name = cfg.FromName
	}

	tlsConfig := &tls.Config{
		ServerName: cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	client, err := goemail.NewSMTP(u.String(), tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	return newSMTPMailer(client, name, from.Address), nil
}

func newSMTPMailer(client smtpClient, name, address string) *SMTPMailer {
	return &SMTPMailer{
		client:      client,
		mailName:    name,
		mailAddress: address,
	}
}

// Send delivers msg. goemail has no context support, so the send runs in
// its own goroutine and ctx only bounds how long the caller waits.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) (*Result, error) {
	if m == nil || m.client == nil {
		return nil, ErrNotConfigured
	}
	if err := validateMessage(msg); err != nil {
		return nil, &DeliveryError{Transport: "smtp", Err: err}
	}

	var e *goemail.Message
	if msg.HTML != "" {
		e = goemail.NewHTMLMessage(m.mailAddress, msg.Subject, msg.HTML)
	} else {
		e = goemail.NewMessage(m.mailAddress, msg.Subject, msg.Text)
	}
	e.SetName(m.mailName)
	e.AddTo(msg.To)

	done := make(chan error, 1)
	go func() {
		done <- m.client.Send(e)
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, &DeliveryError{Transport: "smtp", Err: err}
		}
	case <-ctx.Done():
		return nil, &DeliveryError{Transport: "smtp", Err: ctx.Err()}
	}

	return &Result{MessageID: fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(m.mailAddress))}, nil
}

func domainOf(address string) string {
	for i := len(address) - 1; i >= 0; i-- {
		if address[i] == '@' {
			return address[i+1:]
		}
	}
	return "localhost"
}
