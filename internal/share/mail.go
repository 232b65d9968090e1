package share

import (
	"bytes"
	"context"
	"fmt"
	"io"
	netmail "net/mail"
	"time"

	"gopkg.in/mail.v2"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// MailSettings configures the SMTP transport and the message text.
type MailSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
	Body     string
	Timeout  time.Duration
}

type mailSender interface {
	DialAndSend(m ...*mail.Message) error
}

// Mailer sends attachments by email.
type Mailer struct {
	settings MailSettings
	sender   mailSender
}

// NewMailer returns a mailer. Without a host it reports ErrNotConfigured.
func NewMailer(s MailSettings) *Mailer {
	m := &Mailer{settings: s}
	if s.Host != "" {
		d := mail.NewDialer(s.Host, s.Port, s.Username, s.Password)
		if s.Timeout > 0 {
			d.Timeout = s.Timeout
		}
		m.sender = d
	}
	return m
}

func (m *Mailer) Name() string { return "mail" }

func (m *Mailer) Configured() bool {
	return m.sender != nil && m.settings.From != ""
}

// Send mails atts to recipient. SMTP has no context support; ctx is only
// checked before dialing.
func (m *Mailer) Send(ctx context.Context, recipient string, atts []Attachment) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	addr, err := netmail.ParseAddress(recipient)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRecipient, recipient)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := m.compose(addr.Address, atts)
	debug.Live("Mail: sending %d attachment(s) to %s via %s:%d", len(atts), addr.Address, m.settings.Host, m.settings.Port)
	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	debug.Info("Mail sent to %s", addr.Address)
	return nil
}

func (m *Mailer) compose(to string, atts []Attachment) *mail.Message {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.settings.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", m.settings.Subject)
	msg.SetBody("text/plain", m.settings.Body)
	for _, a := range atts {
		data := a.Data
		msg.Attach(a.Filename,
			mail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(data))
				return err
			}),
			mail.SetHeader(map[string][]string{"Content-Type": {a.MIMEType}}),
		)
	}
	return msg
}
