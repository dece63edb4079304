package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beatclock/internal/model"
)

// memStore is an in-memory Store for unit tests.
type memStore struct {
	mu        sync.Mutex
	items     []model.Reminder
	listErr   error
	insertErr error
}

func (m *memStore) ListReminders(_ context.Context) ([]model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]model.Reminder(nil), m.items...), nil
}

func (m *memStore) InsertReminder(_ context.Context, r model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.items = append(m.items, r)
	return nil
}

func (m *memStore) MarkDismissed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Dismissed = true
			return nil
		}
	}
	return ErrNotFound
}

func TestService_CreatePollDismiss(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	svc := NewService(store, NewScheduler(nil), time.UTC)
	now := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

	r, err := svc.Create(ctx, Input{Title: "noon", Date: "2030-01-01", Beats: "500"}, now)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), r.ID)
	assert.Equal(t, time.Date(2030, 1, 1, 11, 0, 0, 0, time.UTC), r.DueAt)
	require.Len(t, store.items, 1)

	sched := svc.Scheduler()
	assert.Empty(t, sched.Poll(now))
	assert.Len(t, sched.Poll(r.DueAt), 1)

	require.NoError(t, svc.Acknowledge(r.ID))
	require.NoError(t, svc.Dismiss(ctx, r.ID))
	assert.True(t, store.items[0].Dismissed)
	assert.Empty(t, sched.Poll(r.DueAt.Add(time.Hour)))
}

func TestService_IDsStrictlyIncrease(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&memStore{}, NewScheduler(nil), time.UTC)
	now := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

	in := Input{Title: "x", Date: "2030-01-02", Time: "09:00"}
	a, err := svc.Create(ctx, in, now)
	require.NoError(t, err)
	b, err := svc.Create(ctx, in, now)
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID)
}

func TestService_LoadContinuesIDs(t *testing.T) {
	future := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &memStore{items: []model.Reminder{{ID: future.UnixMilli(), Title: "old", DueAt: future}}}
	svc := NewService(store, NewScheduler(nil), time.UTC)

	assert.Equal(t, 1, svc.Load(context.Background()))
	assert.Len(t, svc.List(), 1)

	r, err := svc.Create(context.Background(), Input{Title: "new", Date: "2030-06-01", Time: "09:00"}, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, future.UnixMilli()+1, r.ID)
}

func TestService_LoadFailureIsNotFatal(t *testing.T) {
	svc := NewService(&memStore{listErr: errors.New("corrupt")}, NewScheduler(nil), time.UTC)
	assert.Zero(t, svc.Load(context.Background()))
	assert.Empty(t, svc.List())
}

func TestService_CreateRejects(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	svc := NewService(store, NewScheduler(nil), time.UTC)
	now := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, Input{Title: "late", Date: "2030-01-01", Time: "09:00"}, now)
	assert.ErrorIs(t, err, ErrNotInFuture)
	assert.Empty(t, store.items)
	assert.Empty(t, svc.List())

	store.insertErr = errors.New("read-only")
	_, err = svc.Create(ctx, Input{Title: "x", Date: "2030-01-02", Time: "09:00"}, now)
	assert.Error(t, err)
	assert.Empty(t, svc.List(), "unsaved reminders are not scheduled")
}

func TestRecurrence(t *testing.T) {
	due := time.Date(2030, 1, 31, 9, 0, 0, 0, time.UTC)

	assert.Empty(t, RecurrenceRule(model.Reminder{Repeat: model.RepeatNone}))
	assert.Contains(t, RecurrenceRule(model.Reminder{Repeat: model.RepeatWeekly}), "FREQ=WEEKLY")

	once, err := Occurrences(model.Reminder{Repeat: model.RepeatNone, DueAt: due}, 5)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{due}, once)

	daily, err := Occurrences(model.Reminder{Repeat: model.RepeatDaily, DueAt: due}, 3)
	require.NoError(t, err)
	require.Len(t, daily, 3)
	assert.True(t, due.AddDate(0, 0, 2).Equal(daily[2]), "got %s", daily[2])

	assert.Equal(t, model.RepeatMonthly, RepeatFromRule("RRULE:FREQ=MONTHLY;INTERVAL=2"))
	assert.Equal(t, model.RepeatYearly, RepeatFromRule(RecurrenceRule(model.Reminder{Repeat: model.RepeatYearly})))
	assert.Equal(t, model.RepeatNone, RepeatFromRule("FREQ=MINUTELY"))
	assert.Equal(t, model.RepeatNone, RepeatFromRule("garbage"))
	assert.Equal(t, model.RepeatNone, RepeatFromRule(""))
}

func TestRunner(t *testing.T) {
	s := NewScheduler(nil)
	s.Add(rem(1, time.Now().Add(-time.Minute)))

	r := NewRunner(s, "")
	require.NoError(t, r.Start())
	assert.Error(t, r.Start(), "double start")

	require.Eventually(t, func() bool { return s.Count() == 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
	require.NoError(t, r.Stop(ctx), "stop is idempotent")
}

func TestRunner_InvalidSpec(t *testing.T) {
	r := NewRunner(NewScheduler(nil), "every now and then")
	assert.Error(t, r.Start())
}
