package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/booking-service/internal/model"
)

// HTTPNotifier posts booking events to the notification service's REST
// endpoints.
type HTTPNotifier struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPNotifier returns a notifier for baseURL.
func NewHTTPNotifier(baseURL string, timeout time.Duration) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPNotifier{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type notifyRequest struct {
	Email    string `json:"email"`
	Nombre   string `json:"nombre"`
	Servicio string `json:"servicio"`
	Fecha    string `json:"fecha"`
}

// NotifyCreated posts to /notify/reserva.
func (n *HTTPNotifier) NotifyCreated(ctx context.Context, ev model.BookingEvent) error {
	return n.post(ctx, "/notify/reserva", ev)
}

// NotifyCancelled posts to /notify/cancelacion.
func (n *HTTPNotifier) NotifyCancelled(ctx context.Context, ev model.BookingEvent) error {
	return n.post(ctx, "/notify/cancelacion", ev)
}

func (n *HTTPNotifier) post(ctx context.Context, path string, ev model.BookingEvent) error {
	body, err := json.Marshal(notifyRequest{
		Email:    ev.Email,
		Nombre:   ev.DisplayName,
		Servicio: ev.ServiceName,
		Fecha:    ev.Date,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: unexpected status %s", path, resp.Status)
	}
	return nil
}
