package utils

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers outbound mail. Delivery is best-effort; callers treat a
// returned error as final (no retry at this layer).
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends through a plain SMTP relay configured via SMTP_HOST,
// SMTP_PORT and DEFAULT_FROM_EMAIL.
type SMTPMailer struct {
	Addr string
	From string
}

func NewSMTPMailerFromEnv() *SMTPMailer {
	host := getenvDefault("SMTP_HOST", "localhost")
	port := getenvDefault("SMTP_PORT", "25")
	return &SMTPMailer{
		Addr: host + ":" + port,
		From: getenvDefault("DEFAULT_FROM_EMAIL", "noreply@localhost"),
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(m.Addr, nil, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
