// Package directory talks to the remote user directory that owns user
// identities.  The booking service only reads from it: to verify that a
// caller exists before booking and to address notifications.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/booking-service/internal/logger"
	"github.com/iliyamo/booking-service/internal/model"
)

// ErrUserNotFound means the directory answered and does not know the user.
var ErrUserNotFound = errors.New("user not found in identity service")

// ErrUnavailable means the directory could not be asked: transport error,
// timeout, 5xx or an unreadable answer.
var ErrUnavailable = errors.New("identity service unavailable")

// Directory is the contract shared by the HTTP client and its cache.
type Directory interface {
	Verify(ctx context.Context, externalID string) (model.Profile, error)
	GetProfile(ctx context.Context, externalID string) (model.Profile, error)
}

// Client queries GET {baseURL}/users/{id}.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        logger.Logger
}

// NewClient returns a Client whose every request is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        log,
	}
}

// userResponse accepts both the English and the Spanish field names the
// user service has used.
type userResponse struct {
	ID     string `json:"_id"`
	AltID  string `json:"id"`
	Email  string `json:"email"`
	Nombre string `json:"nombre"`
	Name   string `json:"name"`
}

// Verify resolves externalID.  It returns ErrUserNotFound when the
// directory answers 404 and ErrUnavailable for any other failure.
func (c *Client) Verify(ctx context.Context, externalID string) (model.Profile, error) {
	p, err := c.fetch(ctx, externalID)
	if errors.Is(err, ErrUserNotFound) {
		c.log.Warn("user not found in identity service", "externalID", externalID)
	}
	return p, err
}

// GetProfile resolves externalID for display purposes.  Every failure,
// including an unknown user, is reported as ErrUnavailable.
func (c *Client) GetProfile(ctx context.Context, externalID string) (model.Profile, error) {
	p, err := c.fetch(ctx, externalID)
	if errors.Is(err, ErrUserNotFound) {
		return model.Profile{}, fmt.Errorf("%w: profile %s missing", ErrUnavailable, externalID)
	}
	return p, err
}

func (c *Client) fetch(ctx context.Context, externalID string) (model.Profile, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return model.Profile{}, ErrUserNotFound
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+url.PathEscape(externalID), nil)
	if err != nil {
		return model.Profile{}, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("identity service request failed", "externalID", externalID, "error", err)
		return model.Profile{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.Profile{}, ErrUserNotFound
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.log.Error("identity service returned non-OK status", "externalID", externalID, "status", resp.StatusCode)
		return model.Profile{}, fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
	}

	var body userResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return model.Profile{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}

	p := model.Profile{ExternalID: externalID, Email: body.Email, DisplayName: body.Nombre}
	if p.DisplayName == "" {
		p.DisplayName = body.Name
	}
	return p, nil
}
