package reminder

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beatclock/internal/model"
)

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) Notify(r model.Reminder) {
	n.mu.Lock()
	n.ids = append(n.ids, r.ID)
	n.mu.Unlock()
}

func (n *recordingNotifier) calls() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.ids...)
}

var base = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func rem(id int64, due time.Time) model.Reminder {
	return model.Reminder{ID: id, Title: "r", DueAt: due}
}

func TestPoll_ActivatesOnce(t *testing.T) {
	n := &recordingNotifier{}
	s := NewScheduler(n)
	s.Add(rem(1, base.Add(-time.Minute)))

	fired := s.Poll(base)
	require.Len(t, fired, 1)
	assert.Equal(t, int64(1), fired[0].ID)

	for i := 0; i < 5; i++ {
		assert.Empty(t, s.Poll(base.Add(time.Duration(i)*time.Second)))
	}
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, []int64{1}, n.calls())
}

func TestPoll_NotYetDue(t *testing.T) {
	s := NewScheduler(nil)
	s.Add(rem(1, base.Add(time.Second)))

	assert.Empty(t, s.Poll(base))
	assert.Zero(t, s.Count())

	fired := s.Poll(base.Add(time.Second))
	assert.Len(t, fired, 1, "dueAt == now is due")
}

func TestPoll_InsertionOrderAndCurrent(t *testing.T) {
	s := NewScheduler(nil)
	s.Add(rem(3, base.Add(-time.Hour)))
	s.Add(rem(1, base.Add(-time.Minute)))
	s.Add(rem(2, base.Add(time.Hour)))

	s.Poll(base)
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, int64(3), cur.ID)

	s.Poll(base.Add(2 * time.Hour))
	active := s.Active()
	require.Len(t, active, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{active[0].ID, active[1].ID, active[2].ID})
}

func TestAcknowledge_StaysActive(t *testing.T) {
	n := &recordingNotifier{}
	s := NewScheduler(n)
	s.Add(rem(1, base))
	s.Poll(base)

	require.NoError(t, s.Acknowledge(1))
	s.Poll(base.Add(time.Minute))

	cur, ok := s.Current()
	require.True(t, ok)
	assert.True(t, cur.Acknowledged)
	assert.Equal(t, 1, s.Count())
	assert.Len(t, n.calls(), 1, "acknowledged reminders are not re-notified")

	assert.ErrorIs(t, s.Acknowledge(42), ErrNotActive)
}

func TestDismiss_Terminal(t *testing.T) {
	n := &recordingNotifier{}
	s := NewScheduler(n)
	s.Add(rem(1, base.Add(-time.Minute)))
	s.Add(rem(2, base.Add(-time.Minute)))
	s.Poll(base)

	require.NoError(t, s.Dismiss(1))
	assert.Empty(t, s.Poll(base.Add(time.Hour)))

	active := s.Active()
	require.Len(t, active, 1)
	assert.Equal(t, int64(2), active[0].ID)

	r, ok := s.Get(1)
	require.True(t, ok)
	assert.True(t, r.Dismissed)

	require.NoError(t, s.Dismiss(1), "dismissing twice is a no-op")
	assert.ErrorIs(t, s.Dismiss(99), ErrNotFound)
	assert.Equal(t, []int64{1, 2}, n.calls())
}

func TestDismiss_BeforeDue(t *testing.T) {
	s := NewScheduler(nil)
	s.Add(rem(1, base.Add(time.Hour)))

	require.NoError(t, s.Dismiss(1))
	assert.Empty(t, s.Poll(base.Add(2*time.Hour)))
}

func TestAdd_ReplaceKeepsDismissal(t *testing.T) {
	s := NewScheduler(nil)
	s.Add(rem(1, base))
	s.Poll(base)
	require.NoError(t, s.Dismiss(1))

	// A stale copy from storage must not resurrect the reminder.
	s.Add(rem(1, base))
	assert.Empty(t, s.Poll(base.Add(time.Minute)))
	assert.Len(t, s.Reminders(), 1)
}

func TestAdd_DismissedElsewhere(t *testing.T) {
	s := NewScheduler(nil)
	s.Add(rem(1, base))
	s.Poll(base)
	require.Equal(t, 1, s.Count())

	dismissed := rem(1, base)
	dismissed.Dismissed = true
	s.Add(dismissed)
	assert.Zero(t, s.Count())
}

func TestAdd_VisibleToNextPoll(t *testing.T) {
	s := NewScheduler(nil)
	s.Poll(base)
	s.Add(rem(7, base.Add(-time.Second)))
	assert.Len(t, s.Poll(base), 1)
}

func TestSubscribe(t *testing.T) {
	s := NewScheduler(nil)
	var snaps []Snapshot
	cancel := s.Subscribe(func(snap Snapshot) { snaps = append(snaps, snap) })

	s.Add(rem(1, base))
	s.Poll(base)
	s.Poll(base) // no change, no publish
	require.NoError(t, s.Acknowledge(1))
	require.NoError(t, s.Dismiss(1))

	require.Len(t, snaps, 3)
	assert.Equal(t, 1, snaps[0].Count)
	require.NotNil(t, snaps[0].Current)
	assert.Equal(t, int64(1), snaps[0].Current.ID)
	assert.True(t, snaps[1].Active[0].Acknowledged)
	assert.Zero(t, snaps[2].Count)
	assert.Nil(t, snaps[2].Current)

	cancel()
	s.Add(rem(2, base))
	s.Poll(base)
	assert.Len(t, snaps, 3)
}

func TestScheduler_Concurrent(t *testing.T) {
	s := NewScheduler(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			s.Add(rem(id, base))
		}(int64(i))
		go func() {
			defer wg.Done()
			s.Poll(base)
		}()
	}
	wg.Wait()
	s.Poll(base)
	assert.Equal(t, 50, s.Count())
}
