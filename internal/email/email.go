// Package email sends the two customer-facing emails this domain needs:
// the email-verification OTP code and a follow-up contact notice. It
// follows the teacher's SMTP-via-go-mail shape, trimmed to this domain's
// two message types instead of the teacher's full template catalog.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// Sender is implemented by anything that can deliver the two email types
// this domain emits. A fixture implementation backs tests.
type Sender interface {
	SendVerificationCode(ctx context.Context, toEmail, code string) error
	SendFollowupNotice(ctx context.Context, toEmail, tenantName, message string) error
}

// SMTPSender delivers via a direct SMTP connection, same dial/timeout/TLS
// policy the teacher uses for its own SMTP sender.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{host: host, port: port, username: username, password: password, fromName: fromName, fromEmail: fromEmail}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) SendVerificationCode(ctx context.Context, toEmail, code string) error {
	return s.send(ctx, toEmail, "Your verification code", fmt.Sprintf("Your verification code is %s. It expires shortly.", code))
}

func (s *SMTPSender) SendFollowupNotice(ctx context.Context, toEmail, tenantName, message string) error {
	return s.send(ctx, toEmail, fmt.Sprintf("A message from %s", tenantName), message)
}
