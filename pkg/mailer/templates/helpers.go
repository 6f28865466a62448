package templates

import (
	"time"

	"github.com/oksasatya/library-catalog/config"
)

const dateLayout = "02 January 2006"

// Branding carries the library details printed in every email.
type Branding struct {
	LibraryName    string
	LibraryAddress string
	AppName        string
	SupportURL     string
}

func BrandingFromConfig(cfg *config.Config) Branding {
	return Branding{
		LibraryName:    cfg.LibraryName,
		LibraryAddress: cfg.LibraryAddress,
		AppName:        cfg.AppName,
		SupportURL:     cfg.SupportURL,
	}
}

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		d.Time = t.UTC().Format("02 January 2006, 15:04")
	}
}

func WithBook(title string) Option { return func(d *EmailData) { d.BookTitle = title } }

// WithLoan fills the borrow reference and dates. returnedAt may be nil.
func WithLoan(borrowID string, borrowedAt, dueAt time.Time, returnedAt *time.Time) Option {
	return func(d *EmailData) {
		d.BorrowID = borrowID
		d.BorrowedAtText = borrowedAt.UTC().Format(dateLayout)
		d.DueAtText = dueAt.UTC().Format(dateLayout)
		if returnedAt != nil {
			d.ReturnedAtText = returnedAt.UTC().Format(dateLayout)
		}
	}
}

// WithOverdueSince sets DaysOverdue, counting a started day as a full one.
func WithOverdueSince(dueAt, now time.Time) Option {
	return func(d *EmailData) {
		late := now.Sub(dueAt)
		days := int(late / (24 * time.Hour))
		if late%(24*time.Hour) > 0 {
			days++
		}
		if days < 1 {
			days = 1
		}
		d.DaysOverdue = days
	}
}

// NewBaseEmailData fills the common fields from b, then applies opts.
func NewBaseEmailData(b Branding, typ, name, recipient string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		RecipientEmail: recipient,
		Type:           typ,

		LibraryName:    b.LibraryName,
		LibraryAddress: b.LibraryAddress,
		AppName:        b.AppName,
		SupportURL:     b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(b Branding, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(b, Welcome, name, email, opts...))
}

func NewBorrowReceiptData(b Branding, name, email, bookTitle, borrowID string, borrowedAt, dueAt time.Time) map[string]any {
	d := NewBaseEmailData(b, BorrowReceipt, name, email, WithBook(bookTitle), WithLoan(borrowID, borrowedAt, dueAt, nil))
	return ToMap(d)
}

func NewReturnReceiptData(b Branding, name, email, bookTitle, borrowID string, borrowedAt, dueAt time.Time, returnedAt *time.Time) map[string]any {
	d := NewBaseEmailData(b, ReturnReceipt, name, email, WithBook(bookTitle), WithLoan(borrowID, borrowedAt, dueAt, returnedAt))
	return ToMap(d)
}

func NewOverdueReminderData(b Branding, name, email, bookTitle, borrowID string, borrowedAt, dueAt, now time.Time) map[string]any {
	d := NewBaseEmailData(b, OverdueReminder, name, email,
		WithBook(bookTitle),
		WithLoan(borrowID, borrowedAt, dueAt, nil),
		WithOverdueSince(dueAt, now),
		WithTime(now),
	)
	return ToMap(d)
}
