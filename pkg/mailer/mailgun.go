package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
	"github.com/sirupsen/logrus"
)

// ErrRejected wraps sends the provider refused outright (4xx other than
// 429). Retrying them cannot succeed.
var ErrRejected = errors.New("email rejected")

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Mailgun sends through the Mailgun HTTP API.
type Mailgun struct {
	Sender  string
	Timeout time.Duration
	client  mg.Mailgun
}

// NewMailgun returns nil when any setting is missing; see Configured.
// apiBase selects a region, e.g. mg.APIBaseEU; empty keeps the default.
func NewMailgun(domain, apiKey, sender, apiBase string) *Mailgun {
	if domain == "" || apiKey == "" || sender == "" {
		return nil
	}
	client := mg.NewMailgun(domain, apiKey)
	if apiBase != "" {
		client.SetAPIBase(apiBase)
	}
	return &Mailgun{Sender: sender, Timeout: 10 * time.Second, client: client}
}

func (m *Mailgun) Configured() bool {
	return m != nil && m.client != nil
}

// Send sends text with an optional html alternative.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()
	if _, _, err := m.client.Send(c, msg); err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	var ure *mg.UnexpectedResponseError
	if errors.As(err, &ure) && ure.Actual >= 400 && ure.Actual < 500 && ure.Actual != http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d: %v", ErrRejected, ure.Actual, err)
	}
	return err
}

// LogSender only logs what would have been sent. Used when MAIL_SEND_ENABLED is off.
type LogSender struct {
	Logger *logrus.Logger
}

func (l LogSender) Send(_ context.Context, to, subject, _, _ string) error {
	if l.Logger != nil {
		l.Logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("email send disabled, skipping")
	}
	return nil
}

var (
	_ Sender = (*Mailgun)(nil)
	_ Sender = LogSender{}
)
