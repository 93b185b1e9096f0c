package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/booking-service/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so every query can run
// either standalone or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const bookingColumns = `id, user_id, booked_for, service_name, status, cancelled_at, created_at, updated_at`

// BookingRepo is the MySQL implementation of BookingStore.  All timestamps
// are stored in UTC.
type BookingRepo struct {
	bookingQueries
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{bookingQueries: bookingQueries{q: db, now: utcNow}, db: db}
}

// RunInTx runs fn inside a REPEATABLE READ transaction.  The transaction is
// committed when fn returns nil and rolled back on error or panic.
func (r *BookingRepo) RunInTx(ctx context.Context, fn func(tx BookingTx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&bookingTx{bookingQueries{q: tx, now: r.now}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

type bookingTx struct {
	bookingQueries
}

// LockUser locks the booking_users row of userID with SELECT ... FOR UPDATE.
func (t *bookingTx) LockUser(ctx context.Context, userID string) error {
	var id string
	err := t.q.QueryRowContext(ctx, `SELECT id FROM booking_users WHERE id = ? FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

type bookingQueries struct {
	q   querier
	now func() time.Time
}

func utcNow() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func (b bookingQueries) Create(ctx context.Context, bk *model.Booking) error {
	if bk.ID == "" {
		bk.ID = uuid.NewString()
	}
	if bk.Status == "" {
		bk.Status = model.BookingActive
	}
	if bk.Status != model.BookingActive || bk.CancelledAt != nil {
		return ErrInvalidTransition
	}
	now := b.now()
	bk.Date = bk.Date.UTC()
	bk.CreatedAt, bk.UpdatedAt = now, now
	const q = `INSERT INTO bookings (id, user_id, booked_for, service_name, status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := b.q.ExecContext(ctx, q, bk.ID, bk.UserID, bk.Date, bk.ServiceName, string(bk.Status), now, now)
	return err
}

func (b bookingQueries) FindByID(ctx context.Context, id string) (model.Booking, error) {
	row := b.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	bk, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	return bk, err
}

func (b bookingQueries) FindByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return b.list(ctx, `SELECT `+bookingColumns+` FROM bookings
	                    WHERE user_id = ? ORDER BY booked_for DESC, id ASC`, userID)
}

func (b bookingQueries) FindActiveUpcoming(ctx context.Context, userID string, from time.Time, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		return []model.Booking{}, nil
	}
	return b.list(ctx, `SELECT `+bookingColumns+` FROM bookings
	                    WHERE user_id = ? AND status = 'ACTIVE' AND booked_for >= ?
	                    ORDER BY booked_for ASC, id ASC LIMIT ?`, userID, from.UTC(), limit)
}

func (b bookingQueries) FindCancelled(ctx context.Context, userID string) ([]model.Booking, error) {
	return b.list(ctx, `SELECT `+bookingColumns+` FROM bookings
	                    WHERE user_id = ? AND status = 'CANCELLED'
	                    ORDER BY cancelled_at ASC, id ASC`, userID)
}

func (b bookingQueries) UpdateStatus(ctx context.Context, id string, status model.BookingStatus, at time.Time) (model.Booking, error) {
	if status != model.BookingCancelled {
		return model.Booking{}, ErrInvalidTransition
	}
	const q = `UPDATE bookings SET status = 'CANCELLED', cancelled_at = ?, updated_at = ?
	           WHERE id = ? AND status = 'ACTIVE'`
	res, err := b.q.ExecContext(ctx, q, at.UTC(), b.now(), id)
	if err != nil {
		return model.Booking{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Booking{}, err
	}
	if n == 0 {
		// Either the row is gone or it is no longer ACTIVE.
		cur, err := b.FindByID(ctx, id)
		if err != nil {
			return model.Booking{}, err
		}
		if cur.IsCancelled() {
			return model.Booking{}, ErrAlreadyCancelled
		}
		return model.Booking{}, ErrInvalidTransition
	}
	return b.FindByID(ctx, id)
}

func (b bookingQueries) Delete(ctx context.Context, id string) error {
	res, err := b.q.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (b bookingQueries) DeleteBatch(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `DELETE FROM bookings WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	res, err := b.q.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (b bookingQueries) list(ctx context.Context, query string, args ...interface{}) ([]model.Booking, error) {
	rows, err := b.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	for rows.Next() {
		bk, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bk)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		bk        model.Booking
		status    string
		cancelled sql.NullTime
	)
	if err := s.Scan(&bk.ID, &bk.UserID, &bk.Date, &bk.ServiceName, &status, &cancelled, &bk.CreatedAt, &bk.UpdatedAt); err != nil {
		return model.Booking{}, err
	}
	bk.Status = model.BookingStatus(status)
	if cancelled.Valid {
		t := cancelled.Time.UTC()
		bk.CancelledAt = &t
	}
	bk.Date = bk.Date.UTC()
	return bk, nil
}
