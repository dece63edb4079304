// Package clock formats the current time for display: the beats clock
// face and the flat readout served by /api/v1/current.
package clock

import (
	"fmt"
	"strconv"
	"time"

	"beatclock/internal/model"
	"beatclock/internal/swatch"
)

// Face is one rendering of the clock under the given settings.
type Face struct {
	Beats string `json:"beats"`
	// Local is empty unless Settings.ShowLocalTime is set.
	Local string `json:"local,omitempty"`

	FontSize   int    `json:"font_size"`
	FontColor  string `json:"font_color"`
	FontFamily string `json:"font_family"`
	DarkTheme  bool   `json:"dark_theme"`

	At time.Time `json:"at"`
}

// Render formats now according to s. With ShowCentibeats off the beats show
// only the integer part and the local time drops its seconds.
func Render(now time.Time, loc *time.Location, s model.Settings) Face {
	if loc == nil {
		loc = time.Local
	}
	b := swatch.FromTime(now)

	f := Face{
		Beats:      b.String(),
		FontSize:   s.FontSize,
		FontColor:  s.FontColor,
		FontFamily: s.FontFamily,
		DarkTheme:  s.DarkTheme,
		At:         now.UTC(),
	}
	if !s.ShowCentibeats {
		f.Beats = b.Short()
	}
	if s.ShowLocalTime {
		f.Local = localTime(now.In(loc), s.TimeFormat24, s.ShowCentibeats)
	}
	return f
}

func localTime(t time.Time, h24, withSeconds bool) string {
	hour := t.Hour()
	suffix := ""
	if !h24 {
		suffix = " AM"
		if hour >= 12 {
			suffix = " PM"
		}
		hour = hour % 12
		if hour == 0 {
			hour = 12
		}
	}
	if withSeconds {
		return fmt.Sprintf("%d:%02d:%02d%s", hour, t.Minute(), t.Second(), suffix)
	}
	return fmt.Sprintf("%d:%02d%s", hour, t.Minute(), suffix)
}

// Reading is the full /api/v1/current payload.
type Reading struct {
	Swatch    string `json:"swatch"`
	Rounded   string `json:"rounded"`
	Whole     string `json:"whole"`
	Time24    string `json:"time24"`
	Time12    string `json:"time12"`
	AMPM      string `json:"ampm"`
	Timestamp string `json:"timestamp"`
}

// TimestampLayout is ISO 8601 in UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Read computes every field of the current-time readout. Wall-clock fields
// use loc; rounded and whole derive from the 2-decimal swatch value.
func Read(now time.Time, loc *time.Location) Reading {
	if loc == nil {
		loc = time.Local
	}
	b := swatch.FromTime(now)
	swatchText := strconv.FormatFloat(float64(b), 'f', 2, 64)

	local := now.In(loc)
	hour := local.Hour()
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	h12 := hour % 12
	if h12 == 0 {
		h12 = 12
	}

	return Reading{
		Swatch:    swatchText,
		Rounded:   strconv.Itoa(b.Rounded()),
		Whole:     strconv.Itoa(b.Whole()),
		Time24:    fmt.Sprintf("%02d:%02d:%02d", hour, local.Minute(), local.Second()),
		Time12:    fmt.Sprintf("%02d:%02d:%02d", h12, local.Minute(), local.Second()),
		AMPM:      ampm,
		Timestamp: now.UTC().Format(TimestampLayout),
	}
}
