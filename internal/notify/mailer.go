// Package notify composes and delivers transactional email for workflow
// events. Delivery runs on the background worker; the API side only enqueues.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Mailer delivers plain-text email over SMTP.
type Mailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewMailer constructs a Mailer. Username may be empty for unauthenticated
// relays such as a local Mailpit.
func NewMailer(host string, port int, username, password, from string) *Mailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &Mailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		auth: auth,
	}
}

// Send delivers one message. Context is accepted for interface symmetry;
// net/smtp does not support cancellation mid-send.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("notify: send mail: %w", err)
	}
	return nil
}

var zarPrinter = message.NewPrinter(language.MustParse("en-ZA"))

// FormatZAR renders an amount as South African rand for email bodies,
// e.g. "R 16 675,00".
func FormatZAR(amount float64) string {
	return zarPrinter.Sprintf("%v", currency.NarrowSymbol(currency.ZAR.Amount(amount)))
}
