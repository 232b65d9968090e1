package share

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"strings"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

var phoneNumber = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// NormalizePhone strips spaces, dashes, dots and parentheses and checks
// what is left is an E.164-like number.
func NormalizePhone(s string) (string, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if !phoneNumber.MatchString(clean) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecipient, s)
	}
	return clean, nil
}

// MessageSettings configures the MMS gateway webhook.
type MessageSettings struct {
	WebhookURL string
	Token      string
	Body       string
	Timeout    time.Duration
}

// Messenger sends attachments as a text message through an HTTP gateway.
// The request is a multipart form with "to", "body" and one "media" part
// per attachment.
type Messenger struct {
	settings MessageSettings
	client   *http.Client
}

// NewMessenger returns a messenger. Without a URL it reports ErrNotConfigured.
func NewMessenger(s MessageSettings) *Messenger {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Messenger{settings: s, client: &http.Client{Timeout: timeout}}
}

func (m *Messenger) Name() string { return "message" }

func (m *Messenger) Configured() bool {
	return m.settings.WebhookURL != ""
}

func (m *Messenger) Send(ctx context.Context, recipient string, atts []Attachment) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	to, err := NormalizePhone(recipient)
	if err != nil {
		return err
	}

	body, contentType, err := m.encode(to, atts)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.settings.WebhookURL, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if m.settings.Token != "" {
		req.Header.Set("Authorization", "Bearer "+m.settings.Token)
	}

	debug.Live("Message: sending %d attachment(s) to %s", len(atts), to)
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("message gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("message gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	debug.Info("Message sent to %s", to)
	return nil
}

func (m *Messenger) encode(to string, atts []Attachment) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("to", to); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("body", m.settings.Body); err != nil {
		return nil, "", err
	}
	for _, a := range atts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename=%q`, a.Filename))
		h.Set("Content-Type", a.MIMEType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
