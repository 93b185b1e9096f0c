package repository

import (
	"context"
	"time"

	"github.com/iliyamo/booking-service/internal/model"
)

// BookingReader groups the booking queries available both on the store and
// inside a transaction.
type BookingReader interface {
	FindByID(ctx context.Context, id string) (model.Booking, error)
	// FindByUser lists every booking of userID, newest date first.
	FindByUser(ctx context.Context, userID string) ([]model.Booking, error)
	// FindActiveUpcoming lists up to limit ACTIVE bookings dated at or after
	// from, soonest first.
	FindActiveUpcoming(ctx context.Context, userID string, from time.Time, limit int) ([]model.Booking, error)
	// FindCancelled lists the CANCELLED bookings of userID ordered by
	// cancelled_at ascending, oldest cancellation first.
	FindCancelled(ctx context.Context, userID string) ([]model.Booking, error)
}

// BookingWriter groups the booking mutations.
type BookingWriter interface {
	// Create assigns ID and audit timestamps and inserts b.
	Create(ctx context.Context, b *model.Booking) error
	// UpdateStatus applies a status transition.  Only ACTIVE to CANCELLED is
	// accepted; at becomes cancelled_at.
	UpdateStatus(ctx context.Context, id string, status model.BookingStatus, at time.Time) (model.Booking, error)
	Delete(ctx context.Context, id string) error
	// DeleteBatch removes the given ids and reports how many rows went away.
	DeleteBatch(ctx context.Context, ids []string) (int64, error)
}

// BookingTx is the transaction-scoped view of the store.
type BookingTx interface {
	BookingReader
	BookingWriter
	// LockUser takes an exclusive lock on the local user row until the
	// transaction ends, serialising concurrent writers of that user's
	// bookings.
	LockUser(ctx context.Context, userID string) error
}

// BookingStore persists bookings.  RunInTx runs fn in a single transaction
// that commits when fn returns nil and rolls back otherwise.
type BookingStore interface {
	BookingReader
	BookingWriter
	RunInTx(ctx context.Context, fn func(tx BookingTx) error) error
}

// LocalUserStore persists the local copy of directory users.
type LocalUserStore interface {
	// Upsert returns the local user for externalID, creating it from p in
	// one atomic statement when it does not exist yet.  An existing row
	// is returned unchanged.
	Upsert(ctx context.Context, externalID string, p model.Profile) (model.LocalUser, error)
	FindByExternalID(ctx context.Context, externalID string) (model.LocalUser, error)
	FindByID(ctx context.Context, id string) (model.LocalUser, error)
}

var (
	_ BookingStore   = (*BookingRepo)(nil)
	_ BookingTx      = (*bookingTx)(nil)
	_ LocalUserStore = (*LocalUserRepo)(nil)
)
