package autoreply

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/nhle/mail-organizer/internal/mailbox"
)

// DefaultSubmissionPort is the STARTTLS submission port.
const DefaultSubmissionPort = 587

// Sender delivers a composed message on behalf of identity.
type Sender interface {
	Send(ctx context.Context, identity mailbox.Credentials, to string, msg []byte) error
}

// SMTPSender submits mail over STARTTLS, authenticating with the mailbox
// credentials.
type SMTPSender struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// Send dials the submission server, upgrades with STARTTLS, authenticates
// and delivers msg to a single recipient.
func (s *SMTPSender) Send(ctx context.Context, identity mailbox.Credentials, to string, msg []byte) error {
	port := s.Port
	if port == 0 {
		port = DefaultSubmissionPort
	}
	timeout := s.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	addr := net.JoinHostPort(s.Host, strconv.Itoa(port))

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
		return fmt.Errorf("SMTP STARTTLS: %w", err)
	}

	auth := smtp.PlainAuth("", identity.Address, identity.Secret, s.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	if err := client.Mail(identity.Address); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing message: %w", err)
	}

	return client.Quit()
}
