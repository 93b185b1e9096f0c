package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/booking-service/internal/directory"
	"github.com/iliyamo/booking-service/internal/model"
	"github.com/iliyamo/booking-service/internal/repository"
)

// table is an in-memory bookings table shared by the fake store and its
// transactions.
type table map[string]model.Booking

func (t table) clone() table {
	out := make(table, len(t))
	for k, v := range t {
		if v.CancelledAt != nil {
			at := *v.CancelledAt
			v.CancelledAt = &at
		}
		out[k] = v
	}
	return out
}

func (t table) create(b *model.Booking) {
	b.ID = uuid.NewString()
	if b.Status == "" {
		b.Status = model.BookingActive
	}
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	t[b.ID] = *b
}

func (t table) findByID(id string) (model.Booking, error) {
	b, ok := t[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	return b, nil
}

func (t table) filter(keep func(model.Booking) bool) []model.Booking {
	var out []model.Booking
	for _, b := range t {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func (t table) findByUser(userID string) []model.Booking {
	out := t.filter(func(b model.Booking) bool { return b.UserID == userID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t table) findActiveUpcoming(userID string, from time.Time, limit int) []model.Booking {
	out := t.filter(func(b model.Booking) bool {
		return b.UserID == userID && b.Status == model.BookingActive && !b.Date.Before(from)
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (t table) findCancelled(userID string) []model.Booking {
	out := t.filter(func(b model.Booking) bool { return b.UserID == userID && b.Status == model.BookingCancelled })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CancelledAt.Equal(*out[j].CancelledAt) {
			return out[i].CancelledAt.Before(*out[j].CancelledAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t table) updateStatus(id string, status model.BookingStatus, at time.Time) (model.Booking, error) {
	if status != model.BookingCancelled {
		return model.Booking{}, repository.ErrInvalidTransition
	}
	b, ok := t[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	if b.IsCancelled() {
		return model.Booking{}, repository.ErrAlreadyCancelled
	}
	b.Status = model.BookingCancelled
	b.CancelledAt = &at
	b.UpdatedAt = at
	t[id] = b
	return b, nil
}

func (t table) delete(id string) error {
	if _, ok := t[id]; !ok {
		return repository.ErrBookingNotFound
	}
	delete(t, id)
	return nil
}

func (t table) deleteBatch(ids []string) int64 {
	var n int64
	for _, id := range ids {
		if _, ok := t[id]; ok {
			delete(t, id)
			n++
		}
	}
	return n
}

// fakeStore is a transactional in-memory BookingStore.  Transactions work
// on a copy that replaces the table on commit; they are serialised, which
// stands in for the row lock taken by LockUser.
type fakeStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	rows table

	// failDeleteBatch makes DeleteBatch fail inside transactions.
	failDeleteBatch error
	commits         int
	rollbacks       int
}

func newFakeStore() *fakeStore { return &fakeStore{rows: table{}} }

func (s *fakeStore) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows.create(b)
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.findByID(id)
}

func (s *fakeStore) FindByUser(_ context.Context, userID string) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.findByUser(userID), nil
}

func (s *fakeStore) FindActiveUpcoming(_ context.Context, userID string, from time.Time, limit int) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.findActiveUpcoming(userID, from, limit), nil
}

func (s *fakeStore) FindCancelled(_ context.Context, userID string) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.findCancelled(userID), nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, status model.BookingStatus, at time.Time) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.updateStatus(id, status, at)
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.delete(id)
}

func (s *fakeStore) DeleteBatch(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.deleteBatch(ids), nil
}

func (s *fakeStore) RunInTx(ctx context.Context, fn func(tx repository.BookingTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	tx := &fakeTx{rows: s.rows.clone(), failDeleteBatch: s.failDeleteBatch}
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		s.mu.Lock()
		s.rollbacks++
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.rows = tx.rows
	s.commits++
	s.mu.Unlock()
	return nil
}

// all returns a snapshot of every row.
func (s *fakeStore) all() table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows.clone()
}

type fakeTx struct {
	rows            table
	failDeleteBatch error
}

func (t *fakeTx) LockUser(context.Context, string) error { return nil }

func (t *fakeTx) Create(_ context.Context, b *model.Booking) error {
	t.rows.create(b)
	return nil
}

func (t *fakeTx) FindByID(_ context.Context, id string) (model.Booking, error) {
	return t.rows.findByID(id)
}

func (t *fakeTx) FindByUser(_ context.Context, userID string) ([]model.Booking, error) {
	return t.rows.findByUser(userID), nil
}

func (t *fakeTx) FindActiveUpcoming(_ context.Context, userID string, from time.Time, limit int) ([]model.Booking, error) {
	return t.rows.findActiveUpcoming(userID, from, limit), nil
}

func (t *fakeTx) FindCancelled(_ context.Context, userID string) ([]model.Booking, error) {
	return t.rows.findCancelled(userID), nil
}

func (t *fakeTx) UpdateStatus(_ context.Context, id string, status model.BookingStatus, at time.Time) (model.Booking, error) {
	return t.rows.updateStatus(id, status, at)
}

func (t *fakeTx) Delete(_ context.Context, id string) error {
	return t.rows.delete(id)
}

func (t *fakeTx) DeleteBatch(_ context.Context, ids []string) (int64, error) {
	if t.failDeleteBatch != nil {
		return 0, t.failDeleteBatch
	}
	return t.rows.deleteBatch(ids), nil
}

// fakeUsers is an in-memory LocalUserStore.
type fakeUsers struct {
	mu    sync.Mutex
	byExt map[string]model.LocalUser
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byExt: map[string]model.LocalUser{}} }

func (f *fakeUsers) Upsert(_ context.Context, externalID string, p model.Profile) (model.LocalUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byExt[externalID]; ok {
		return u, nil
	}
	u := model.LocalUser{ID: uuid.NewString(), ExternalID: externalID, Email: p.Email, DisplayName: p.DisplayName}
	f.byExt[externalID] = u
	return u, nil
}

func (f *fakeUsers) FindByExternalID(_ context.Context, externalID string) (model.LocalUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byExt[externalID]
	if !ok {
		return model.LocalUser{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (model.LocalUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byExt {
		if u.ID == id {
			return u, nil
		}
	}
	return model.LocalUser{}, repository.ErrUserNotFound
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byExt)
}

// fakeDirectory answers from a fixed set of profiles.
type fakeDirectory struct {
	mu         sync.Mutex
	profiles   map[string]model.Profile
	verifyErr  error
	profileErr error
	calls      int
}

func (d *fakeDirectory) Verify(_ context.Context, id string) (model.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.verifyErr != nil {
		return model.Profile{}, d.verifyErr
	}
	p, ok := d.profiles[id]
	if !ok {
		return model.Profile{}, directory.ErrUserNotFound
	}
	return p, nil
}

func (d *fakeDirectory) GetProfile(_ context.Context, id string) (model.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.profileErr != nil {
		return model.Profile{}, d.profileErr
	}
	p, ok := d.profiles[id]
	if !ok {
		return model.Profile{}, directory.ErrUnavailable
	}
	return p, nil
}

type sentEvent struct {
	kind string
	ev   model.BookingEvent
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (n *fakeNotifier) NotifyCreated(_ context.Context, ev model.BookingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEvent{kind: "created", ev: ev})
	return nil
}

func (n *fakeNotifier) NotifyCancelled(_ context.Context, ev model.BookingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEvent{kind: "cancelled", ev: ev})
	return nil
}

func (n *fakeNotifier) events() []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentEvent(nil), n.sent...)
}

// syncTasks runs every task inline and records its outcome.
type syncTasks struct {
	mu     sync.Mutex
	reject bool
	names  []string
	errs   []error
}

func (q *syncTasks) Enqueue(name string, fn func(ctx context.Context) error) bool {
	q.mu.Lock()
	reject := q.reject
	q.mu.Unlock()
	if reject {
		return false
	}
	err := fn(context.Background())
	q.mu.Lock()
	q.names = append(q.names, name)
	q.errs = append(q.errs, err)
	q.mu.Unlock()
	return true
}

var errBoom = errors.New("boom")
