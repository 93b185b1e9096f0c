package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iliyamo/booking-service/internal/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/u-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_id":"u-1","email":"ana@example.com","nombre":"Ana"}`))
	})
	mux.HandleFunc("/users/u-2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"u-2","email":"bo@example.com","name":"Bo"}`))
	})
	mux.HandleFunc("/users/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/users/garbage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	mux.HandleFunc("/users/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientVerify(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL+"/", 50*time.Millisecond, logger.NewNop())
	ctx := context.Background()

	tests := []struct {
		name    string
		id      string
		want    string
		wantErr error
	}{
		{name: "spanish fields", id: "u-1", want: "Ana"},
		{name: "english fields", id: "u-2", want: "Bo"},
		{name: "unknown user", id: "nobody", wantErr: ErrUserNotFound},
		{name: "empty id", id: "  ", wantErr: ErrUserNotFound},
		{name: "server error", id: "broken", wantErr: ErrUnavailable},
		{name: "bad body", id: "garbage", wantErr: ErrUnavailable},
		{name: "timeout", id: "slow", wantErr: ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.Verify(ctx, tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Verify(%q) error = %v, want %v", tt.id, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify(%q) unexpected error: %v", tt.id, err)
			}
			if p.DisplayName != tt.want || p.ExternalID != tt.id {
				t.Fatalf("Verify(%q) = %+v", tt.id, p)
			}
		})
	}
}

func TestClientGetProfileUnknownIsUnavailable(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, time.Second, logger.NewNop())

	_, err := c.GetProfile(context.Background(), "nobody")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("GetProfile error = %v, want ErrUnavailable", err)
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Fatalf("GetProfile must not report ErrUserNotFound")
	}
}

func TestCachedClientWithoutRedisPassesThrough(t *testing.T) {
	srv := newTestServer(t)
	c := NewCachedClient(NewClient(srv.URL, time.Second, logger.NewNop()), nil, time.Minute, logger.NewNop())

	p, err := c.GetProfile(context.Background(), "u-1")
	if err != nil || p.Email != "ana@example.com" {
		t.Fatalf("GetProfile = %+v, %v", p, err)
	}
	if _, err := c.Verify(context.Background(), "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Verify error = %v", err)
	}
}
