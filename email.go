package auth

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/goliatone/go-errors"
)

// PasswordResetSubject is the subject line of password reset emails
const PasswordResetSubject = "Password Reset Request"

// SMTPConfig holds the SMTP relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Addr returns host:port
func (c SMTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers password reset emails through an SMTP relay.
// smtp.SendMail upgrades to STARTTLS when the server offers it.
type SMTPMailer struct {
	cfg    SMTPConfig
	send   sendMailFunc
	logger Logger
}

var _ EmailSender = (*SMTPMailer)(nil)

// NewSMTPMailer creates a mailer. The sender address defaults to the
// username when From is empty.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPMailer{
		cfg:    cfg,
		send:   smtp.SendMail,
		logger: defLogger{},
	}
}

func (m *SMTPMailer) WithLogger(logger Logger) *SMTPMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// SendPasswordResetEmail sends the reset instructions to email
func (m *SMTPMailer) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "context cancelled before sending email")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := buildPasswordResetMessage(m.cfg.From, email, token)
	if err := m.send(m.cfg.Addr(), auth, m.cfg.From, []string{email}, msg); err != nil {
		m.logger.Error("failed to send password reset email", "error", err)
		return errors.Wrap(err, errors.CategoryInternal, "smtp delivery failed").
			WithTextCode(TextCodeDeliveryFailed)
	}

	m.logger.Debug("password reset email sent")
	return nil
}

func buildPasswordResetMessage(from, to, token string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", PasswordResetSubject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(PasswordResetBody(token), "\n", "\r\n"))
	return b.Bytes()
}

// PasswordResetBody renders the plain text reset instructions
func PasswordResetBody(token string) string {
	var b strings.Builder
	b.WriteString("Dear user,\n\n")
	b.WriteString("You have requested to reset your password. Please make a POST request to the ")
	b.WriteString("/api/auth/resetPassword endpoint with the following JSON body:\n\n")
	b.WriteString("{\n")
	fmt.Fprintf(&b, "  \"token\": %q,\n", token)
	b.WriteString("  \"newPassword\": \"your new password\"\n")
	b.WriteString("}\n\n")
	b.WriteString("If you did not request a password reset, please ignore this email.\n")
	return b.String()
}

// LogMailer logs reset emails instead of sending them. Used when no SMTP
// relay is configured.
type LogMailer struct {
	logger Logger
}

var _ EmailSender = (*LogMailer)(nil)

func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordResetEmail(_ context.Context, email, _ string) error {
	m.logger.Info("password reset email not sent, no smtp relay configured", "to", email)
	return nil
}
