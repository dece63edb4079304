package model

import "time"

// Repeat values accepted for Reminder.Repeat.
const (
	RepeatNone    = "none"
	RepeatDaily   = "daily"
	RepeatWeekly  = "weekly"
	RepeatMonthly = "monthly"
	RepeatYearly  = "yearly"
)

// AlertBefore values accepted for Reminder.AlertBefore, mapped to the lead
// time used for calendar alarms.
var AlertOffsets = map[string]time.Duration{
	"5min":  5 * time.Minute,
	"15min": 15 * time.Minute,
	"30min": 30 * time.Minute,
	"1hr":   time.Hour,
	"2hr":   2 * time.Hour,
	"12hr":  12 * time.Hour,
	"1day":  24 * time.Hour,
}

// DefaultAlertBefore is applied when a reminder is created without one.
const DefaultAlertBefore = "15min"

// Reminder is a user-created event that fires once at DueAt.
//
// Date/Time/Beats keep the form inputs for display and export. DueAt is
// computed from them once at creation and never recomputed.
type Reminder struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	Date  string `json:"date"`            // YYYY-MM-DD
	Time  string `json:"time,omitempty"`  // HH:MM
	Beats string `json:"beats,omitempty"` // normalized beats text

	Repeat      string `json:"repeat"`
	AlertBefore string `json:"alert_before"`

	DueAt     time.Time `json:"due_at"`
	Dismissed bool      `json:"dismissed"`
	CreatedAt time.Time `json:"created_at"`
}

// Due reports whether r should be active at now.
func (r Reminder) Due(now time.Time) bool {
	return !r.Dismissed && !now.Before(r.DueAt)
}

// SettingsVersion is the current layout of Settings.
const SettingsVersion = 1

// Settings are the persisted display preferences for the clock face.
type Settings struct {
	Version        int    `json:"version"`
	FontSize       int    `json:"font_size"`
	FontColor      string `json:"font_color"`
	FontFamily     string `json:"font_family"`
	TimeFormat24   bool   `json:"time_format_24"`
	ShowLocalTime  bool   `json:"show_local_time"`
	ShowCentibeats bool   `json:"show_centibeats"`
	DarkTheme      bool   `json:"dark_theme"`
}

const (
	minFontSize = 8
	maxFontSize = 400
)

// DefaultSettings returns the settings used on first run or when stored
// settings cannot be read.
func DefaultSettings() Settings {
	return Settings{
		Version:        SettingsVersion,
		FontSize:       80,
		FontColor:      "#000000",
		FontFamily:     "Roboto, sans-serif",
		TimeFormat24:   true,
		ShowLocalTime:  false,
		ShowCentibeats: true,
		DarkTheme:      false,
	}
}

// Normalize fills missing values and clamps out-of-range ones. Records
// written before versioning (Version 0) predate ShowCentibeats and get it
// enabled.
func (s *Settings) Normalize() {
	def := DefaultSettings()
	if s.Version == 0 {
		s.ShowCentibeats = def.ShowCentibeats
	}
	s.Version = SettingsVersion

	if s.FontSize <= 0 {
		s.FontSize = def.FontSize
	}
	if s.FontSize < minFontSize {
		s.FontSize = minFontSize
	}
	if s.FontSize > maxFontSize {
		s.FontSize = maxFontSize
	}
	if s.FontColor == "" {
		s.FontColor = def.FontColor
	}
	if s.FontFamily == "" {
		s.FontFamily = def.FontFamily
	}
}
