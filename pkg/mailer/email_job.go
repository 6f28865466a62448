package mailer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oksasatya/library-catalog/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Html is optional; Text is recommended as fallback.
// You can also use a template by specifying Template and Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "welcome", "borrow_receipt", "overdue_reminder"
	Data     map[string]any `json:"data,omitempty"`
}

// Resolve returns the subject and bodies to send. When Template is set the
// embedded template set is rendered with Data; explicit Subject/Text/HTML
// on the job take precedence over the rendered parts.
func (j EmailJob) Resolve() (subject, text, html string, err error) {
	subject, text, html = j.Subject, j.Text, j.HTML
	if j.Template == "" {
		if subject == "" || (text == "" && html == "") {
			return "", "", "", errors.New("email job has neither template nor content")
		}
		return subject, text, html, nil
	}
	s, t, h, err := templates.Render(j.Template, j.Data)
	if err != nil {
		return "", "", "", fmt.Errorf("render %s: %w", j.Template, err)
	}
	if subject == "" {
		subject = strings.TrimSpace(s)
	}
	if text == "" {
		text = t
	}
	if html == "" {
		html = h
	}
	return subject, text, html, nil
}
