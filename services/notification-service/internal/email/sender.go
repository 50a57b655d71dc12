// Package email delivers client notifications over SMTP, paced so a
// cancelled day of appointments does not burst the relay.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"golang.org/x/time/rate"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends plain-text mail via unauthenticated SMTP
// (Mailpit-compatible). Sends share a token bucket.
type SMTPSender struct {
	addr    string
	from    string
	limiter *rate.Limiter
}

func NewSMTPSender(host, port, from string, perSecond float64) *SMTPSender {
	if strings.TrimSpace(from) == "" {
		from = "no-reply@slotline.local"
	}
	if perSecond <= 0 {
		perSecond = 5
	}
	return &SMTPSender{
		addr:    fmt.Sprintf("%s:%s", strings.TrimSpace(host), strings.TrimSpace(port)),
		from:    from,
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := buildMessage(s.from, to, subject, body)
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg))
}

func buildMessage(from, to, subject, body string) string {
	// Minimal RFC 5322 message; enough for Mailpit and most relays.
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from, to, subject, body,
	)
}
