// Package state owns the running application's mutable state: the active
// settings and the reminder service, kept in sync with other instances
// through a broadcast.Bus.
package state

import (
	"context"
	"sync"
	"time"

	"beatclock/internal/broadcast"
	appLog "beatclock/internal/log"
	"beatclock/internal/model"
	"beatclock/internal/reminder"
)

// reloadTimeout bounds the store reads triggered by remote events.
const reloadTimeout = 5 * time.Second

// SettingsStore persists the settings record.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) error
}

// App is created once in main and passed to the HTTP layer.
type App struct {
	settingsStore SettingsStore
	svc           *reminder.Service
	bus           broadcast.Bus
	origin        string

	mu       sync.RWMutex
	settings model.Settings

	subMu   sync.Mutex
	subs    map[int]func(model.Settings)
	nextSub int

	unsubscribe func()
}

// New returns an App with default settings. bus may be nil for a single
// instance without broadcasting.
func New(ss SettingsStore, svc *reminder.Service, bus broadcast.Bus) *App {
	if bus == nil {
		bus = broadcast.NewLocal()
	}
	return &App{
		settingsStore: ss,
		svc:           svc,
		bus:           bus,
		origin:        broadcast.NewOrigin(),
		settings:      model.DefaultSettings(),
		subs:          make(map[int]func(model.Settings)),
	}
}

// Load reads settings and reminders and starts listening for remote
// changes. Read failures fall back to defaults and are only logged.
func (a *App) Load(ctx context.Context) {
	a.reloadSettings(ctx)
	n := a.svc.Load(ctx)
	appLog.Info("state loaded", "reminders", n, "origin", a.origin)

	if a.unsubscribe == nil {
		a.unsubscribe = a.bus.Subscribe(a.handle)
	}
}

// Close stops listening for remote changes. The bus itself belongs to the
// caller.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// Origin identifies this instance on the bus.
func (a *App) Origin() string { return a.origin }

// Reminders exposes the reminder service.
func (a *App) Reminders() *reminder.Service { return a.svc }

// Settings returns the current settings.
func (a *App) Settings() model.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// SaveSettings normalizes s, persists it, makes it current and tells other
// instances. The normalized value is returned.
func (a *App) SaveSettings(ctx context.Context, s model.Settings) (model.Settings, error) {
	s.Normalize()
	if err := a.settingsStore.SaveSettings(ctx, s); err != nil {
		return model.Settings{}, err
	}
	a.setSettings(s)
	a.publish(ctx, broadcast.Event{Kind: broadcast.KindSettings})
	return s, nil
}

// OnSettings registers fn to run after every settings change, local or
// remote. The returned function cancels it.
func (a *App) OnSettings(fn func(model.Settings)) (cancel func()) {
	a.subMu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.subMu.Unlock()

	return func() {
		a.subMu.Lock()
		delete(a.subs, id)
		a.subMu.Unlock()
	}
}

// CreateReminder validates and stores a reminder, then tells other instances.
func (a *App) CreateReminder(ctx context.Context, in reminder.Input, now time.Time) (model.Reminder, error) {
	r, err := a.svc.Create(ctx, in, now)
	if err != nil {
		return model.Reminder{}, err
	}
	a.publish(ctx, broadcast.Event{Kind: broadcast.KindReminders, ID: r.ID})
	return r, nil
}

// AcknowledgeReminder marks an active reminder as seen. Acknowledgement is
// local to this instance.
func (a *App) AcknowledgeReminder(id int64) error {
	return a.svc.Acknowledge(id)
}

// DismissReminder dismisses a reminder and tells other instances.
func (a *App) DismissReminder(ctx context.Context, id int64) error {
	if err := a.svc.Dismiss(ctx, id); err != nil {
		return err
	}
	a.publish(ctx, broadcast.Event{Kind: broadcast.KindReminders, ID: id})
	return nil
}

func (a *App) publish(ctx context.Context, ev broadcast.Event) {
	ev.Origin = a.origin
	if err := a.bus.Publish(ctx, ev); err != nil {
		appLog.Warn("broadcast failed", "kind", ev.Kind, "err", err)
	}
}

func (a *App) handle(ev broadcast.Event) {
	if ev.Origin == a.origin {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
	defer cancel()

	switch ev.Kind {
	case broadcast.KindSettings:
		a.reloadSettings(ctx)
	case broadcast.KindReminders:
		n := a.svc.Load(ctx)
		appLog.Debug("reminders reloaded", "count", n, "from", ev.Origin)
	default:
		appLog.Debug("ignoring bus event", "kind", ev.Kind)
	}
}

func (a *App) reloadSettings(ctx context.Context) {
	s, err := a.settingsStore.LoadSettings(ctx)
	if err != nil {
		appLog.Error("load settings failed; using defaults", err)
		s = model.DefaultSettings()
	}
	a.setSettings(s)
}

func (a *App) setSettings(s model.Settings) {
	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()

	a.subMu.Lock()
	fns := make([]func(model.Settings), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
