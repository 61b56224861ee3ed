package controller

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"collectra/models"

	"github.com/emersion/go-imap"
)

// The fetch response allocates its own section keys, so the body map
// carries pointers the reader never saw. Extraction must still find
// the BODY[] literal.
func TestMessagePlainText(t *testing.T) {
	raw := "From: billing@acme.com\r\n" +
		"To: ar@widgets.com\r\n" +
		"Subject: Re: Invoice INV-1042\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"We will pay INV-1042 on Friday.\r\n"

	section := &imap.BodySectionName{}
	msg := &imap.Message{
		Body: map[*imap.BodySectionName]imap.Literal{
			section: bytes.NewBufferString(raw),
		},
	}

	got, err := messagePlainText(msg)
	if err != nil {
		t.Fatalf("messagePlainText() error = %v", err)
	}
	if !strings.Contains(got, "We will pay INV-1042 on Friday.") {
		t.Errorf("messagePlainText() = %q, want the text/plain body", got)
	}
}

func TestMessagePlainTextNoBody(t *testing.T) {
	got, err := messagePlainText(&imap.Message{})
	if err != nil {
		t.Fatalf("messagePlainText() error = %v", err)
	}
	if got != "" {
		t.Errorf("messagePlainText() = %q, want empty string", got)
	}
}

func TestMatchInvoice(t *testing.T) {
	byNumber := models.Invoice{
		InvoiceNumber: "INV-1042",
		DueDate:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	byNumber.ID = 1

	newer := models.Invoice{
		InvoiceNumber: "INV-2000",
		DueDate:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Debtor: models.Debtor{
			Contacts: []models.DebtorContact{{Email: "owner@acme.com"}},
		},
	}
	newer.ID = 2

	older := models.Invoice{
		InvoiceNumber: "INV-1000",
		DueDate:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Debtor: models.Debtor{
			Contacts: []models.DebtorContact{{Email: "owner@acme.com"}},
		},
	}
	older.ID = 3

	invoices := []models.Invoice{byNumber, newer, older}

	t.Run("invoice number in subject wins", func(t *testing.T) {
		got := matchInvoice(invoices, "Re: inv-1042", "", "owner@acme.com")
		if got == nil || got.ID != 1 {
			t.Errorf("matchInvoice() = %v, want invoice 1", got)
		}
	})

	t.Run("invoice number in body wins", func(t *testing.T) {
		got := matchInvoice(invoices, "Question", "About INV-1042, see attached.", "")
		if got == nil || got.ID != 1 {
			t.Errorf("matchInvoice() = %v, want invoice 1", got)
		}
	})

	t.Run("sender email resolves to most overdue invoice", func(t *testing.T) {
		got := matchInvoice(invoices, "Hello", "No reference here.", "Owner@Acme.com")
		if got == nil || got.ID != 3 {
			t.Errorf("matchInvoice() = %v, want invoice 3 (earliest due date)", got)
		}
	})

	t.Run("no reference and unknown sender", func(t *testing.T) {
		if got := matchInvoice(invoices, "Hello", "Nothing.", "stranger@example.com"); got != nil {
			t.Errorf("matchInvoice() = %v, want nil", got)
		}
	})
}
