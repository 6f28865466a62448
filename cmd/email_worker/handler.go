package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oksasatya/library-catalog/internal/application"
	"github.com/oksasatya/library-catalog/pkg/mailer"
	mailtpl "github.com/oksasatya/library-catalog/pkg/mailer/templates"
)

// errPermanent marks messages that can never succeed and must not be requeued.
var errPermanent = errors.New("permanent failure")

func permanent(err error) error {
	return fmt.Errorf("%w: %v", errPermanent, err)
}

type handler struct {
	sender   mailer.Sender
	branding mailtpl.Branding
}

// handleEmail sends one EmailJob from the email queue.
func (h handler) handleEmail(ctx context.Context, body []byte) error {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return permanent(fmt.Errorf("bad message: %w", err))
	}
	return h.send(ctx, job)
}

// handleEvent turns a borrow event into a receipt email. Events for readers
// without an email address are dropped.
func (h handler) handleEvent(ctx context.Context, body []byte) error {
	var ev application.BorrowEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return permanent(fmt.Errorf("bad event: %w", err))
	}
	job, ok := jobFromEvent(ev, h.branding)
	if !ok {
		return nil
	}
	return h.send(ctx, job)
}

func (h handler) send(ctx context.Context, job mailer.EmailJob) error {
	if job.To == "" {
		return permanent(errors.New("missing recipient"))
	}
	subject, text, html, err := job.Resolve()
	if err != nil {
		return permanent(err)
	}
	err = h.sender.Send(ctx, job.To, subject, text, html)
	if errors.Is(err, mailer.ErrRejected) {
		return permanent(err)
	}
	return err
}

func jobFromEvent(ev application.BorrowEvent, b mailtpl.Branding) (mailer.EmailJob, bool) {
	if ev.ReaderMail == "" {
		return mailer.EmailJob{}, false
	}
	switch ev.Type {
	case application.EventBorrowCreated:
		return mailer.EmailJob{
			To:       ev.ReaderMail,
			Template: mailtpl.BorrowReceipt,
			Data:     mailtpl.NewBorrowReceiptData(b, ev.ReaderName, ev.ReaderMail, ev.BookTitle, ev.BorrowID, ev.BorrowedAt, ev.DueAt),
		}, true
	case application.EventBorrowReturned:
		return mailer.EmailJob{
			To:       ev.ReaderMail,
			Template: mailtpl.ReturnReceipt,
			Data:     mailtpl.NewReturnReceiptData(b, ev.ReaderName, ev.ReaderMail, ev.BookTitle, ev.BorrowID, ev.BorrowedAt, ev.DueAt, ev.ReturnedAt),
		}, true
	default:
		return mailer.EmailJob{}, false
	}
}
