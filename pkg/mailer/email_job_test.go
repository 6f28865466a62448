package mailer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/library-catalog/pkg/mailer"
	"github.com/oksasatya/library-catalog/pkg/mailer/templates"
)

func TestResolve_ExplicitContent(t *testing.T) {
	job := mailer.EmailJob{To: "a@example.com", Subject: "Hello", Text: "Body"}
	subject, text, html, err := job.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "Hello", subject)
	assert.Equal(t, "Body", text)
	assert.Empty(t, html)
}

func TestResolve_NeedsTemplateOrContent(t *testing.T) {
	_, _, _, err := mailer.EmailJob{To: "a@example.com", Subject: "Only subject"}.Resolve()
	assert.Error(t, err)

	_, _, _, err = mailer.EmailJob{To: "a@example.com", Text: "Only body"}.Resolve()
	assert.Error(t, err)
}

func TestResolve_TemplateWithOverride(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	job := mailer.EmailJob{
		To:       "a@example.com",
		Subject:  "Custom subject",
		Template: templates.OverdueReminder,
		Data: templates.NewOverdueReminderData(templates.Branding{LibraryName: "City Library"},
			"Ann", "a@example.com", "Dune", "b-1", now.Add(-72*time.Hour), now.Add(-24*time.Hour), now),
	}
	subject, text, html, err := job.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "Custom subject", subject)
	assert.Contains(t, text, "Dune")
	assert.Contains(t, html, "City Library")
}

func TestResolve_UnknownTemplate(t *testing.T) {
	_, _, _, err := mailer.EmailJob{To: "a@example.com", Template: "missing"}.Resolve()
	assert.Error(t, err)
}
