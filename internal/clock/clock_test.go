package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"beatclock/internal/model"
)

// 2024-03-10 12:00:00 UTC is 13:00 BMT, @541.67.
var noonUTC = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func TestRender_Defaults(t *testing.T) {
	f := Render(noonUTC, time.UTC, model.DefaultSettings())
	assert.Equal(t, "541.67", f.Beats)
	assert.Empty(t, f.Local)
	assert.Equal(t, 80, f.FontSize)
	assert.Equal(t, "#000000", f.FontColor)
	assert.Equal(t, noonUTC, f.At)
}

func TestRender_LocalTime(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	morning := time.Date(2024, 3, 10, 8, 5, 9, 0, time.UTC) // 09:05:09 CET

	cases := []struct {
		name      string
		h24, cent bool
		beats     string
		local     string
	}{
		{"24h with seconds", true, true, "378.58", "9:05:09"},
		{"24h no centibeats", true, false, "378", "9:05"},
		{"12h with seconds", false, true, "378.58", "9:05:09 AM"},
		{"12h no centibeats", false, false, "378", "9:05 AM"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := model.DefaultSettings()
			s.ShowLocalTime = true
			s.TimeFormat24 = tc.h24
			s.ShowCentibeats = tc.cent
			f := Render(morning, cet, s)
			assert.Equal(t, tc.beats, f.Beats)
			assert.Equal(t, tc.local, f.Local)
		})
	}
}

func TestRender_TwelveHourEdges(t *testing.T) {
	s := model.DefaultSettings()
	s.ShowLocalTime = true
	s.TimeFormat24 = false

	midnight := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "12:00:00 AM", Render(midnight, time.UTC, s).Local)
	assert.Equal(t, "12:00:00 PM", Render(noonUTC, time.UTC, s).Local)
	assert.Equal(t, "11:59:59 PM", Render(midnight.Add(-time.Second), time.UTC, s).Local)
}

func TestRender_ShortBeatsPadded(t *testing.T) {
	s := model.DefaultSettings()
	s.ShowCentibeats = false
	// 23:01:00 UTC is 00:01 BMT, @000.69.
	f := Render(time.Date(2024, 3, 10, 23, 1, 0, 0, time.UTC), time.UTC, s)
	assert.Equal(t, "000", f.Beats)
}

func TestRead(t *testing.T) {
	ny := time.FixedZone("EST", -5*3600)
	now := time.Date(2024, 3, 10, 12, 0, 0, 123_000_000, time.UTC)

	r := Read(now, ny)
	assert.Equal(t, "541.67", r.Swatch)
	assert.Equal(t, "542", r.Rounded)
	assert.Equal(t, "541", r.Whole)
	assert.Equal(t, "07:00:00", r.Time24)
	assert.Equal(t, "07:00:00", r.Time12)
	assert.Equal(t, "AM", r.AMPM)
	assert.Equal(t, "2024-03-10T12:00:00.123Z", r.Timestamp)
}

func TestRead_SmallBeatsUnpadded(t *testing.T) {
	// 23:01:00 UTC is @000.69; the readout does not pad the integer part.
	r := Read(time.Date(2024, 3, 10, 23, 1, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, "0.69", r.Swatch)
	assert.Equal(t, "1", r.Rounded)
	assert.Equal(t, "0", r.Whole)
	assert.Equal(t, "11:01:00", r.Time12)
	assert.Equal(t, "PM", r.AMPM)
}
