package main

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/library-catalog/internal/application"
	"github.com/oksasatya/library-catalog/pkg/mailer"
	mailtpl "github.com/oksasatya/library-catalog/pkg/mailer/templates"
)

type sent struct {
	to, subject, text, html string
}

type recordingSender struct {
	msgs []sent
	err  error
}

func (s *recordingSender) Send(_ context.Context, to, subject, text, html string) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, sent{to, subject, text, html})
	return nil
}

func newTestHandler() (handler, *recordingSender) {
	rs := &recordingSender{}
	return handler{sender: rs, branding: mailtpl.Branding{LibraryName: "City Library"}}, rs
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHandleEmail(t *testing.T) {
	h, rs := newTestHandler()
	ctx := context.Background()

	body := mustJSON(t, mailer.EmailJob{
		To:       "ann@example.com",
		Template: mailtpl.Welcome,
		Data:     mailtpl.NewWelcomeData(h.branding, "Ann", "ann@example.com"),
	})
	require.NoError(t, h.handleEmail(ctx, body))
	require.Len(t, rs.msgs, 1)
	assert.Equal(t, "ann@example.com", rs.msgs[0].to)
	assert.NotEmpty(t, rs.msgs[0].subject)

	err := h.handleEmail(ctx, []byte("{not json"))
	assert.ErrorIs(t, err, errPermanent)

	err = h.handleEmail(ctx, mustJSON(t, mailer.EmailJob{Subject: "x", Text: "y"}))
	assert.ErrorIs(t, err, errPermanent, "missing recipient")
}

func TestHandleEmail_SenderErrorIsRetryable(t *testing.T) {
	h, rs := newTestHandler()
	rs.err = assert.AnError

	err := h.handleEmail(context.Background(), mustJSON(t, mailer.EmailJob{To: "a@example.com", Subject: "s", Text: "t"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errPermanent)
}

func TestHandleEvent(t *testing.T) {
	h, rs := newTestHandler()
	ctx := context.Background()
	borrowed := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	returned := borrowed.Add(48 * time.Hour)

	ev := application.BorrowEvent{
		Type:       application.EventBorrowReturned,
		BorrowID:   "b-1",
		ReaderName: "Ann Lee",
		ReaderMail: "ann@example.com",
		BookTitle:  "Dune",
		BorrowedAt: borrowed,
		DueAt:      borrowed.Add(14 * 24 * time.Hour),
		ReturnedAt: &returned,
	}
	require.NoError(t, h.handleEvent(ctx, mustJSON(t, ev)))
	require.Len(t, rs.msgs, 1)
	assert.Contains(t, rs.msgs[0].text, "03 April 2026")

	ev.ReaderMail = ""
	require.NoError(t, h.handleEvent(ctx, mustJSON(t, ev)))
	assert.Len(t, rs.msgs, 1, "readers without email are skipped")
}

func TestJobFromEvent(t *testing.T) {
	b := mailtpl.Branding{}
	base := application.BorrowEvent{ReaderMail: "ann@example.com", BookTitle: "Dune"}

	base.Type = application.EventBorrowCreated
	job, ok := jobFromEvent(base, b)
	require.True(t, ok)
	assert.Equal(t, mailtpl.BorrowReceipt, job.Template)

	base.Type = application.EventBorrowReturned
	job, ok = jobFromEvent(base, b)
	require.True(t, ok)
	assert.Equal(t, mailtpl.ReturnReceipt, job.Template)

	base.Type = "borrow.unknown"
	_, ok = jobFromEvent(base, b)
	assert.False(t, ok)
}

func TestRejectedSendIsPermanent(t *testing.T) {
	h, rs := newTestHandler()
	rs.err = fmt.Errorf("%w: status 400", mailer.ErrRejected)

	body := mustJSON(t, mailer.EmailJob{To: "ann@example.com", Subject: "hi", Text: "hello"})
	err := h.handleEmail(context.Background(), body)
	assert.ErrorIs(t, err, errPermanent)
}
