package queue

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iliyamo/booking-service/internal/model"
)

// Mail is a rendered message ready for delivery.
type Mail struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers rendered mail.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// RenderCreated builds the booking confirmation mail.
func RenderCreated(ev model.BookingEvent) Mail {
	return Mail{
		To:      ev.Email,
		Subject: "Confirmación de Reserva",
		HTML: fmt.Sprintf("<h1>Hola %s</h1><p>Tu reserva para <strong>%s</strong> ha sido confirmada para el día <strong>%s</strong>.</p>",
			html.EscapeString(ev.DisplayName), html.EscapeString(ev.ServiceName), html.EscapeString(ev.Date)),
	}
}

// RenderCancelled builds the booking cancellation mail.
func RenderCancelled(ev model.BookingEvent) Mail {
	return Mail{
		To:      ev.Email,
		Subject: "Cancelación de Reserva",
		HTML: fmt.Sprintf("<h1>Hola %s</h1><p>Tu reserva para <strong>%s</strong> del día <strong>%s</strong> ha sido cancelada.</p>",
			html.EscapeString(ev.DisplayName), html.EscapeString(ev.ServiceName), html.EscapeString(ev.Date)),
	}
}

// FileMailer appends one line per mail to a log file instead of talking
// to an SMTP server.
type FileMailer struct {
	path string
	mu   sync.Mutex
}

// NewFileMailer writes to path, creating its directory on first use.
func NewFileMailer(path string) *FileMailer {
	if path == "" {
		path = filepath.Join("logs", "notifications.log")
	}
	return &FileMailer{path: path}
}

// Send appends m to the log file.
func (f *FileMailer) Send(_ context.Context, m Mail) error {
	if m.To == "" {
		return fmt.Errorf("mail %q has no recipient", m.Subject)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	line := fmt.Sprintf("[%s] to=%s | subject=%q | html=%q\n", time.Now().UTC().Format(time.RFC3339), m.To, m.Subject, m.HTML)
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
