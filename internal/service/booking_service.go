// Package service implements the booking lifecycle: creating bookings for
// verified users and cancelling them under the retention policy.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/booking-service/internal/directory"
	"github.com/iliyamo/booking-service/internal/logger"
	"github.com/iliyamo/booking-service/internal/metrics"
	"github.com/iliyamo/booking-service/internal/model"
	"github.com/iliyamo/booking-service/internal/repository"
)

const (
	// CancelledRetention is the number of CANCELLED bookings kept per user.
	CancelledRetention = 5
	// DefaultNextLimit is used by GetNextBookings when no limit is given.
	DefaultNextLimit = 5
)

// Directory resolves remote identities.
type Directory interface {
	Verify(ctx context.Context, externalID string) (model.Profile, error)
	GetProfile(ctx context.Context, externalID string) (model.Profile, error)
}

// Notifier delivers booking notifications.
type Notifier interface {
	NotifyCreated(ctx context.Context, ev model.BookingEvent) error
	NotifyCancelled(ctx context.Context, ev model.BookingEvent) error
}

// TaskQueue runs work after the caller has returned.  Enqueue must not
// block and reports whether the task was accepted.
type TaskQueue interface {
	Enqueue(name string, fn func(ctx context.Context) error) bool
}

// BookingService orchestrates the booking operations.  It holds no state
// besides its collaborators and is safe for concurrent use.
type BookingService struct {
	bookings  repository.BookingStore
	users     repository.LocalUserStore
	directory Directory
	notifier  Notifier
	tasks     TaskQueue
	log       logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option customises a BookingService.
type Option func(*BookingService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) { s.now = now }
}

// NewBookingService wires a BookingService.  m may be nil.
func NewBookingService(
	bookings repository.BookingStore,
	users repository.LocalUserStore,
	dir Directory,
	notifier Notifier,
	tasks TaskQueue,
	log logger.Logger,
	m *metrics.Metrics,
	opts ...Option,
) *BookingService {
	s := &BookingService{
		bookings:  bookings,
		users:     users,
		directory: dir,
		notifier:  notifier,
		tasks:     tasks,
		log:       log,
		metrics:   m,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking books serviceName at isoDate for the directory user
// callerExternalID.  Input is validated before anything is written; the
// local user is created on first use.
func (s *BookingService) CreateBooking(ctx context.Context, callerExternalID, isoDate, serviceName string) (view model.BookingView, err error) {
	defer s.observe("create", time.Now(), &err)

	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		return model.BookingView{}, newError(KindInvalidInput, "service name is required", nil)
	}
	date, perr := ParseCivilDate(isoDate)
	if perr != nil {
		return model.BookingView{}, newError(KindInvalidInput, "invalid date format", perr)
	}

	profile, verr := s.directory.Verify(ctx, callerExternalID)
	switch {
	case errors.Is(verr, directory.ErrUserNotFound):
		return model.BookingView{}, newError(KindNotFoundUpstream, "user not found", verr)
	case verr != nil:
		return model.BookingView{}, newError(KindUpstreamUnavailable, "user service unavailable", verr)
	}

	user, uerr := s.users.Upsert(ctx, callerExternalID, profile)
	if uerr != nil {
		return model.BookingView{}, newError(KindInternal, "resolve local user", uerr)
	}

	b := model.Booking{
		UserID:      user.ID,
		Date:        date.UTC(),
		ServiceName: serviceName,
		Status:      model.BookingActive,
	}
	if cerr := s.bookings.Create(ctx, &b); cerr != nil {
		return model.BookingView{}, newError(KindInternal, "create booking", cerr)
	}
	view = toView(b)
	if s.metrics != nil {
		s.metrics.BookingsCreated.Inc()
	}

	ev := model.BookingEvent{
		BookingID:   b.ID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		ServiceName: b.ServiceName,
		Date:        view.FormattedDate,
		OccurredAt:  s.now().UTC().Format(time.RFC3339),
	}
	s.tasks.Enqueue("booking.created", func(ctx context.Context) error {
		return s.notifier.NotifyCreated(ctx, ev)
	})

	s.log.Info("booking created", "bookingID", b.ID, "userID", user.ID, "service", b.ServiceName)
	return view, nil
}

// CancelBooking cancels bookingID on behalf of its owner.  The status change
// and the retention sweep commit together or not at all; the notification
// is queued only after commit.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, callerLocalUserID string) (view model.BookingView, err error) {
	defer s.observe("cancel", time.Now(), &err)

	current, err := s.owned(ctx, bookingID, callerLocalUserID)
	if err != nil {
		return model.BookingView{}, err
	}
	if current.IsCancelled() {
		return model.BookingView{}, newError(KindInvalidInput, "booking already cancelled", repository.ErrAlreadyCancelled)
	}

	at := s.now().UTC()
	var (
		cancelled model.Booking
		evicted   int64
	)
	txErr := s.bookings.RunInTx(ctx, func(tx repository.BookingTx) error {
		if err := tx.LockUser(ctx, current.UserID); err != nil {
			return err
		}
		b, err := tx.UpdateStatus(ctx, bookingID, model.BookingCancelled, at)
		if err != nil {
			return err
		}
		cancelled = b

		all, err := tx.FindCancelled(ctx, current.UserID)
		if err != nil {
			return err
		}
		if excess := len(all) - CancelledRetention; excess > 0 {
			ids := make([]string, 0, excess)
			for _, old := range all[:excess] {
				ids = append(ids, old.ID)
			}
			n, err := tx.DeleteBatch(ctx, ids)
			if err != nil {
				return fmt.Errorf("retention sweep: %w", err)
			}
			evicted = n
		}
		return nil
	})
	switch {
	case errors.Is(txErr, repository.ErrAlreadyCancelled):
		return model.BookingView{}, newError(KindInvalidInput, "booking already cancelled", txErr)
	case errors.Is(txErr, repository.ErrBookingNotFound):
		return model.BookingView{}, newError(KindUnauthorized, "booking not found or not owned by caller", txErr)
	case txErr != nil:
		s.log.Error("cancel transaction rolled back", "bookingID", bookingID, "error", txErr)
		return model.BookingView{}, newError(KindTransactionFailed, "cancel booking", txErr)
	}

	if s.metrics != nil {
		s.metrics.BookingsCancelled.Inc()
		s.metrics.BookingsEvicted.Add(float64(evicted))
	}
	view = toView(cancelled)
	s.tasks.Enqueue("booking.cancelled", func(ctx context.Context) error {
		return s.notifyCancelled(ctx, view)
	})

	s.log.Info("booking cancelled", "bookingID", bookingID, "userID", cancelled.UserID, "evicted", evicted)
	return view, nil
}

// notifyCancelled resolves the owner's current profile and sends the
// cancellation notice.  A failed lookup skips the notice.
func (s *BookingService) notifyCancelled(ctx context.Context, v model.BookingView) error {
	user, err := s.users.FindByID(ctx, v.UserID)
	if err != nil {
		return fmt.Errorf("load local user %s: %w", v.UserID, err)
	}
	profile, err := s.directory.GetProfile(ctx, user.ExternalID)
	if err != nil {
		return fmt.Errorf("load profile %s: %w", user.ExternalID, err)
	}
	return s.notifier.NotifyCancelled(ctx, model.BookingEvent{
		BookingID:   v.ID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		ServiceName: v.ServiceName,
		Date:        v.FormattedDate,
		OccurredAt:  s.now().UTC().Format(time.RFC3339),
	})
}

// DeleteBooking hard-deletes bookingID when the caller owns it.  No
// notification is sent.
func (s *BookingService) DeleteBooking(ctx context.Context, bookingID, callerLocalUserID string) (ok bool, err error) {
	defer s.observe("delete", time.Now(), &err)

	if _, err := s.owned(ctx, bookingID, callerLocalUserID); err != nil {
		return false, err
	}
	if derr := s.bookings.Delete(ctx, bookingID); derr != nil {
		if errors.Is(derr, repository.ErrBookingNotFound) {
			return false, newError(KindUnauthorized, "booking not found or not owned by caller", derr)
		}
		return false, newError(KindInternal, "delete booking", derr)
	}
	if s.metrics != nil {
		s.metrics.BookingsDeleted.Inc()
	}
	s.log.Info("booking deleted", "bookingID", bookingID, "userID", callerLocalUserID)
	return true, nil
}

// GetBookings lists every booking of the caller, newest date first.
func (s *BookingService) GetBookings(ctx context.Context, callerLocalUserID string) (views []model.BookingView, err error) {
	defer s.observe("list", time.Now(), &err)

	if callerLocalUserID == "" {
		return []model.BookingView{}, nil
	}
	list, ferr := s.bookings.FindByUser(ctx, callerLocalUserID)
	if ferr != nil {
		return nil, newError(KindInternal, "list bookings", ferr)
	}
	return toViews(list), nil
}

// GetNextBookings lists up to limit ACTIVE bookings from the start of the
// current civil day onwards, soonest first.  A non-positive limit means
// DefaultNextLimit.
func (s *BookingService) GetNextBookings(ctx context.Context, callerLocalUserID string, limit int) (views []model.BookingView, err error) {
	defer s.observe("next", time.Now(), &err)

	if limit <= 0 {
		limit = DefaultNextLimit
	}
	if callerLocalUserID == "" {
		return []model.BookingView{}, nil
	}
	from := StartOfCivilDay(s.now()).UTC()
	list, ferr := s.bookings.FindActiveUpcoming(ctx, callerLocalUserID, from, limit)
	if ferr != nil {
		return nil, newError(KindInternal, "list upcoming bookings", ferr)
	}
	return toViews(list), nil
}

// GetBooking returns bookingID when the caller owns it.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, callerLocalUserID string) (view model.BookingView, err error) {
	defer s.observe("get", time.Now(), &err)

	b, err := s.owned(ctx, bookingID, callerLocalUserID)
	if err != nil {
		return model.BookingView{}, err
	}
	return toView(b), nil
}

// CallerLocalID maps a directory identity to its local user id.  It
// returns "" when the identity has never booked anything.
func (s *BookingService) CallerLocalID(ctx context.Context, externalID string) (string, error) {
	if externalID == "" {
		return "", nil
	}
	u, err := s.users.FindByExternalID(ctx, externalID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", nil
	}
	if err != nil {
		return "", newError(KindInternal, "resolve caller", err)
	}
	return u.ID, nil
}

// owned fetches bookingID and checks it belongs to callerLocalUserID.  A
// missing booking and someone else's booking are indistinguishable to the
// caller.
func (s *BookingService) owned(ctx context.Context, bookingID, callerLocalUserID string) (model.Booking, error) {
	if bookingID == "" || callerLocalUserID == "" {
		return model.Booking{}, newError(KindUnauthorized, "booking not found or not owned by caller", nil)
	}
	b, err := s.bookings.FindByID(ctx, bookingID)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return model.Booking{}, newError(KindUnauthorized, "booking not found or not owned by caller", err)
	}
	if err != nil {
		return model.Booking{}, newError(KindInternal, "load booking", err)
	}
	if b.UserID != callerLocalUserID {
		return model.Booking{}, newError(KindUnauthorized, "booking not found or not owned by caller", nil)
	}
	return b, nil
}

func (s *BookingService) observe(op string, start time.Time, err *error) {
	kind := Kind("")
	if *err != nil {
		kind = KindOf(*err)
		if kind == KindInternal {
			s.log.Error("booking operation failed", "operation", op, "error", *err)
		}
	}
	if s.metrics == nil {
		return
	}
	s.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if kind != "" {
		s.metrics.ErrorsCount.WithLabelValues(op, string(kind)).Inc()
	}
}

func toView(b model.Booking) model.BookingView {
	return model.BookingView{Booking: b, FormattedDate: FormatCivil(b.Date)}
}

func toViews(list []model.Booking) []model.BookingView {
	out := make([]model.BookingView, 0, len(list))
	for _, b := range list {
		out = append(out, toView(b))
	}
	return out
}
