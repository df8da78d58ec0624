package service

import (
	"fmt"
	"html"

	"github.com/dom/account-service/internal/mail"
)

func welcomeEmail(to, name string) mail.Message {
	text := fmt.Sprintf(`Welcome to our platform, %s!

Thank you for signing up. We're excited to have you on board.

Best regards,
The Team
`, name)

	htmlBody := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome to our platform, %s!</h2>
  <p>Thank you for signing up. We're excited to have you on board.</p>
  <p>Start exploring our platform and enjoy all the features we have to offer.</p>
  <p>If you have any questions, feel free to reply to this email.</p>
  <p>Best regards,<br>The Team</p>
</div>
`, html.EscapeString(name))

	return mail.Message{
		To:      to,
		Subject: "Welcome to Our Platform!",
		Text:    text,
		HTML:    htmlBody,
	}
}

func resetPasswordEmail(to, resetURL string) mail.Message {
	text := fmt.Sprintf(`You are receiving this email because you (or someone else) has requested a password reset. Please make a POST request to:

%s

This password reset link will expire in 10 minutes.
`, resetURL)

	return mail.Message{
		To:      to,
		Subject: "Password Reset Request",
		Text:    text,
	}
}
