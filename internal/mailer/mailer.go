// Package mailer sends plaintext notification email over SMTP.
package mailer

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Config holds SMTP connection settings.
type Config struct {
	Host   string
	Port   int
	User   string
	Pass   string
	UseTLS bool // STARTTLS on a plain connection; false means implicit TLS
}

// Addr returns the host:port dial address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// Sender delivers one message to one recipient.
type Sender interface {
	Send(cfg Config, to, subject, body string) error
}

// SMTP is the production Sender.
type SMTP struct {
	// DialTimeout bounds connection setup. Zero means 30 seconds.
	DialTimeout time.Duration
}

// Verify SMTP satisfies Sender at compile time.
var _ Sender = (*SMTP)(nil)

// message builds an RFC 5322 plaintext message.
func message(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// Send delivers a plaintext message. With UseTLS the connection starts plain
// and upgrades via STARTTLS; otherwise it is implicit TLS from the first byte.
func (s *SMTP) Send(cfg Config, to, subject, body string) error {
	if cfg.Host == "" {
		return fmt.Errorf("smtp host is not configured")
	}

	timeout := s.DialTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client, err := s.connect(cfg, timeout)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.User != "" {
		auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(cfg.User); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(message(cfg.User, to, subject, body)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}

// connect dials the server and returns a ready SMTP client.
func (s *SMTP) connect(cfg Config, timeout time.Duration) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: timeout}

	if cfg.UseTLS {
		conn, err := dialer.Dial("tcp", cfg.Addr())
		if err != nil {
			return nil, fmt.Errorf("smtp dial %s: %w", cfg.Addr(), err)
		}
		client, err := smtp.NewClient(conn, cfg.Host)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("smtp handshake: %w", err)
		}
		if err := client.StartTLS(&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			client.Close()
			return nil, fmt.Errorf("smtp starttls: %w", err)
		}
		return client, nil
	}

	conn, err := tls.DialWithDialer(dialer, "tcp", cfg.Addr(),
		&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return nil, fmt.Errorf("smtp tls dial %s: %w", cfg.Addr(), err)
	}
	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp handshake: %w", err)
	}
	return client, nil
}
