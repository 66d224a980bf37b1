// Package mailer delivers contact form submissions over SMTP.
package mailer

import (
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrNotConfigured = errors.New("SMTP credentials not configured")
	ErrInvalidInput  = errors.New("invalid contact submission")
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	To       string
}

// Submission is one contact form entry.
type Submission struct {
	Name    string
	Email   string
	Message string
}

// Validate trims the fields and checks they are usable.
func (s *Submission) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Message = strings.TrimSpace(s.Message)

	if s.Name == "" || s.Message == "" {
		return fmt.Errorf("%w: name and message are required", ErrInvalidInput)
	}
	if strings.ContainsAny(s.Name, "\r\n") {
		return fmt.Errorf("%w: name contains line breaks", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(s.Email)
	if err != nil || addr.Address != s.Email {
		return fmt.Errorf("%w: email address is not valid", ErrInvalidInput)
	}
	return nil
}

// Mailer sends contact submissions to the site owner.
type Mailer struct {
	cfg  Config
	send SendFunc
	log  zerolog.Logger
}

// New returns a mailer using smtp.SendMail.
func New(cfg Config, log zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail, log: log.With().Str("component", "mailer").Logger()}
}

// WithSender swaps the transport, for tests.
func (m *Mailer) WithSender(send SendFunc) *Mailer {
	m.send = send
	return m
}

// configured reports whether credentials are present.
func (m *Mailer) configured() bool {
	return m.cfg.Username != "" && m.cfg.Password != ""
}

// Send validates s and mails it.
func (m *Mailer) Send(s Submission) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if !m.configured() {
		return ErrNotConfigured
	}

	msg := compose(m.cfg, s)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.send(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.Username, []string{m.cfg.To}, msg); err != nil {
		m.log.Error().Err(err).Msg("sending contact email")
		return fmt.Errorf("sending contact email: %w", err)
	}

	m.log.Info().Str("from", s.Email).Msg("contact email sent")
	return nil
}

func compose(cfg Config, s Submission) []byte {
	subject := fmt.Sprintf("Portfolio Contact: %s", s.Name)
	body := fmt.Sprintf(`New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, s.Name, s.Email, s.Message)

	return []byte("To: " + cfg.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + cfg.Username + "\r\n" +
		"Reply-To: " + s.Email + "\r\n" +
		"\r\n" +
		body + "\r\n")
}
