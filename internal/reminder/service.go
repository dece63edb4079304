package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	appLog "beatclock/internal/log"
	"beatclock/internal/model"
)

// Store persists reminders. Implementations live in internal/store.
type Store interface {
	ListReminders(ctx context.Context) ([]model.Reminder, error)
	InsertReminder(ctx context.Context, r model.Reminder) error
	MarkDismissed(ctx context.Context, id int64) error
}

// Service ties the form flow, persistence and the scheduler together.
type Service struct {
	store Store
	sched *Scheduler
	loc   *time.Location

	mu     sync.Mutex
	lastID int64
}

// NewService returns a Service. Call Load before serving requests.
func NewService(store Store, sched *Scheduler, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, sched: sched, loc: loc}
}

// Scheduler exposes the underlying scheduler.
func (s *Service) Scheduler() *Scheduler { return s.sched }

// Location is the zone form dates and times are interpreted in.
func (s *Service) Location() *time.Location { return s.loc }

// Load reads every stored reminder into the scheduler. A read failure is
// logged and leaves the scheduler as it was; it is never fatal.
func (s *Service) Load(ctx context.Context) int {
	list, err := s.store.ListReminders(ctx)
	if err != nil {
		appLog.Error("load reminders failed; continuing with in-memory set", err)
		return 0
	}

	s.mu.Lock()
	for _, r := range list {
		if r.ID > s.lastID {
			s.lastID = r.ID
		}
	}
	s.mu.Unlock()

	for _, r := range list {
		s.sched.Add(r)
	}
	return len(list)
}

// Create validates the form against now, persists the reminder and hands it
// to the scheduler so the next poll sees it.
func (s *Service) Create(ctx context.Context, in Input, now time.Time) (model.Reminder, error) {
	r, err := Validate(in, now, s.loc)
	if err != nil {
		return model.Reminder{}, err
	}

	r.ID = s.nextID(now)
	r.CreatedAt = now.UTC()

	if err := s.store.InsertReminder(ctx, r); err != nil {
		return model.Reminder{}, fmt.Errorf("save reminder: %w", err)
	}
	s.sched.Add(r)

	appLog.Info("reminder created", "id", r.ID, "due_at", r.DueAt.Format(time.RFC3339))
	return r, nil
}

// Acknowledge marks an active reminder as seen.
func (s *Service) Acknowledge(id int64) error {
	return s.sched.Acknowledge(id)
}

// Dismiss removes a reminder from the active set and persists the flag.
func (s *Service) Dismiss(ctx context.Context, id int64) error {
	if err := s.sched.Dismiss(id); err != nil {
		return err
	}
	if err := s.store.MarkDismissed(ctx, id); err != nil {
		return fmt.Errorf("persist dismissal: %w", err)
	}
	appLog.Info("reminder dismissed", "id", id)
	return nil
}

// List returns every reminder known to the scheduler in creation order.
func (s *Service) List() []model.Reminder {
	return s.sched.Reminders()
}

// nextID derives IDs from the creation time in milliseconds, bumped past
// the last issued ID so they are strictly increasing.
func (s *Service) nextID(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}
