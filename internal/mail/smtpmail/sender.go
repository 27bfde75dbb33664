// Package smtpmail implements the mail.Sender capability over SMTP,
// composing MIME messages with go-message.
package smtpmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/rs/zerolog"

	"github.com/mhoang/mailflow/internal/mail"
)

// dialTimeout bounds the initial TCP dial for STARTTLS connections.
const dialTimeout = 30 * time.Second

// Config holds the SMTP server settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
}

// Sender sends composed messages through a single SMTP server. Each
// Send dials a fresh connection.
type Sender struct {
	cfg Config
	log zerolog.Logger
}

var _ mail.Sender = (*Sender)(nil)

// New creates a Sender for the given server settings.
func New(cfg Config, log zerolog.Logger) *Sender {
	return &Sender{cfg: cfg, log: log.With().Str("smtp", cfg.Host).Logger()}
}

// Send composes msg and delivers it to every To/Cc/Bcc recipient in
// one SMTP transaction. Server rejections are surfaced to the caller
// unmodified beyond wrapping. net/smtp carries no context support, so
// cancellation does not interrupt an in-flight transaction.
func (s *Sender) Send(_ context.Context, msg *mail.Outgoing) error {
	recipients := msg.Recipients()
	if len(recipients) == 0 {
		return fmt.Errorf("message %q has no recipients", msg.Subject)
	}

	body, err := Build(msg)
	if err != nil {
		return fmt.Errorf("composing message: %w", err)
	}

	start := time.Now()
	if s.cfg.TLS {
		err = s.sendWithTLS(msg.From.Addr, recipients, body)
	} else {
		err = s.sendWithStartTLS(msg.From.Addr, recipients, body)
	}
	if err != nil {
		return err
	}

	s.log.Info().
		Str("subject", msg.Subject).
		Int("recipients", len(recipients)).
		Int("bytes", len(body)).
		Dur("took", time.Since(start)).
		Msg("message sent")

	return nil
}

// sendWithTLS delivers over an implicit TLS connection.
func (s *Sender) sendWithTLS(from string, recipients []string, body []byte) error {
	addr := s.cfg.Host + ":" + s.cfg.Port
	tlsConfig := &tls.Config{ServerName: s.cfg.Host}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return &mail.AuthError{
			Account: s.cfg.Username,
			Message: fmt.Sprintf("SMTP auth: %v", err),
		}
	}

	return transact(client, from, recipients, body)
}

// sendWithStartTLS delivers using STARTTLS.
func (s *Sender) sendWithStartTLS(from string, recipients []string, body []byte) error {
	addr := s.cfg.Host + ":" + s.cfg.Port

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: s.cfg.Host}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("SMTP STARTTLS: %w", err)
	}

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return &mail.AuthError{
			Account: s.cfg.Username,
			Message: fmt.Sprintf("SMTP auth: %v", err),
		}
	}

	return transact(client, from, recipients, body)
}

// transact runs the MAIL/RCPT/DATA sequence on an authenticated client.
func transact(client *smtp.Client, from string, recipients []string, body []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}

	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("SMTP RCPT TO %s: %w", rcpt, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}

	if _, err := writer.Write(body); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing message body: %w", err)
	}

	return client.Quit()
}
