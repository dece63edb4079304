package reminder

import (
	"errors"
	"sync"
	"time"

	"beatclock/internal/model"
)

var (
	ErrNotFound  = errors.New("reminder not found")
	ErrNotActive = errors.New("reminder is not active")
)

// Notifier receives each reminder once, when it first becomes active.
type Notifier interface {
	Notify(r model.Reminder)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(r model.Reminder)

func (f NotifierFunc) Notify(r model.Reminder) { f(r) }

// ActiveReminder is a due reminder that has not been dismissed.
type ActiveReminder struct {
	model.Reminder
	Acknowledged bool      `json:"acknowledged"`
	ActivatedAt  time.Time `json:"activated_at"`
}

// Snapshot is the observable state of the active set.
type Snapshot struct {
	Active  []ActiveReminder `json:"active"`
	Current *ActiveReminder  `json:"current,omitempty"`
	Count   int              `json:"count"`
}

// Scheduler matches reminders against the clock. A reminder moves
// Scheduled -> Active exactly once; acknowledging keeps it active,
// dismissing removes it for good.
//
// All methods are safe for concurrent use. Callbacks run without the lock
// held.
type Scheduler struct {
	mu        sync.Mutex
	order     []int64
	reminders map[int64]*model.Reminder

	// active is kept in activation order.
	active   []*ActiveReminder
	activeBy map[int64]*ActiveReminder

	notifier Notifier
	subs     map[int]func(Snapshot)
	nextSub  int
}

// NewScheduler returns an empty scheduler. n may be nil.
func NewScheduler(n Notifier) *Scheduler {
	return &Scheduler{
		reminders: make(map[int64]*model.Reminder),
		activeBy:  make(map[int64]*ActiveReminder),
		notifier:  n,
		subs:      make(map[int]func(Snapshot)),
	}
}

// Add registers r for the next poll. Adding an ID that is already known
// replaces the stored record; if the new record is dismissed the reminder
// leaves the active set.
func (s *Scheduler) Add(r model.Reminder) {
	s.mu.Lock()
	existing, known := s.reminders[r.ID]
	if !known {
		s.order = append(s.order, r.ID)
		rc := r
		s.reminders[r.ID] = &rc
		s.mu.Unlock()
		return
	}

	// Dismissal is terminal; a stale copy must not undo it.
	if existing.Dismissed {
		r.Dismissed = true
	}
	*existing = r
	changed := false
	if a, ok := s.activeBy[r.ID]; ok {
		if r.Dismissed {
			s.removeActiveLocked(r.ID)
		} else {
			a.Reminder = r
		}
		changed = true
	}
	snap, subs := s.snapshotLocked(changed)
	s.mu.Unlock()

	publish(subs, snap)
}

// Poll activates every reminder that is due at now and not yet active or
// dismissed, in insertion order, and returns the newly activated ones.
// Calling Poll again with unchanged state returns nothing and notifies
// nobody.
func (s *Scheduler) Poll(now time.Time) []model.Reminder {
	s.mu.Lock()
	var fired []model.Reminder
	for _, id := range s.order {
		r := s.reminders[id]
		if !r.Due(now) {
			continue
		}
		if _, ok := s.activeBy[id]; ok {
			continue
		}
		a := &ActiveReminder{Reminder: *r, ActivatedAt: now}
		s.active = append(s.active, a)
		s.activeBy[id] = a
		fired = append(fired, *r)
	}
	notifier := s.notifier
	snap, subs := s.snapshotLocked(len(fired) > 0)
	s.mu.Unlock()

	if notifier != nil {
		for _, r := range fired {
			notifier.Notify(r)
		}
	}
	publish(subs, snap)
	return fired
}

// Acknowledge marks an active reminder as seen. It stays active.
func (s *Scheduler) Acknowledge(id int64) error {
	s.mu.Lock()
	a, ok := s.activeBy[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotActive
	}
	a.Acknowledged = true
	snap, subs := s.snapshotLocked(true)
	s.mu.Unlock()

	publish(subs, snap)
	return nil
}

// Dismiss removes the reminder from the active set and marks it dismissed.
// It never becomes active again. Dismissing twice is a no-op.
func (s *Scheduler) Dismiss(id int64) error {
	s.mu.Lock()
	r, ok := s.reminders[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	r.Dismissed = true
	changed := s.removeActiveLocked(id)
	snap, subs := s.snapshotLocked(changed)
	s.mu.Unlock()

	publish(subs, snap)
	return nil
}

// Current returns the first active reminder in activation order.
func (s *Scheduler) Current() (ActiveReminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.active) == 0 {
		return ActiveReminder{}, false
	}
	return *s.active[0], true
}

// Active returns a copy of the active set in activation order.
func (s *Scheduler) Active() []ActiveReminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

// Count is the number of active reminders, used for the bell badge.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Snapshot returns the current observable state.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildSnapshotLocked()
}

// Reminders returns every known reminder in insertion order.
func (s *Scheduler) Reminders() []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reminder, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.reminders[id])
	}
	return out
}

// Get returns the reminder with the given ID.
func (s *Scheduler) Get(id int64) (model.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return model.Reminder{}, false
	}
	return *r, true
}

// Subscribe registers fn to receive a snapshot after every change to the
// active set. The returned function cancels the subscription.
func (s *Scheduler) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Scheduler) removeActiveLocked(id int64) bool {
	if _, ok := s.activeBy[id]; !ok {
		return false
	}
	delete(s.activeBy, id)
	for i, a := range s.active {
		if a.ID == id {
			s.active = append(s.active[:i], s.active[i+1:]...)
			break
		}
	}
	return true
}

func (s *Scheduler) activeLocked() []ActiveReminder {
	out := make([]ActiveReminder, 0, len(s.active))
	for _, a := range s.active {
		out = append(out, *a)
	}
	return out
}

func (s *Scheduler) buildSnapshotLocked() Snapshot {
	snap := Snapshot{Active: s.activeLocked()}
	snap.Count = len(snap.Active)
	if snap.Count > 0 {
		cur := snap.Active[0]
		snap.Current = &cur
	}
	return snap
}

// snapshotLocked returns the snapshot and subscribers to publish to, or
// nothing when changed is false.
func (s *Scheduler) snapshotLocked(changed bool) (Snapshot, []func(Snapshot)) {
	if !changed || len(s.subs) == 0 {
		return Snapshot{}, nil
	}
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return s.buildSnapshotLocked(), subs
}

func publish(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
