package swatch

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Swatch Internet Time divides the mean solar day into 1000 beats counted
// from midnight Biel Mean Time (UTC+1).
const (
	BeatsPerDay    = 1000
	SecondsPerBeat = 86.4
	// MaxInputBeats is the largest value NormalizeInput will produce.
	MaxInputBeats = 999.99
)

var (
	ErrBeatsOutOfRange = errors.New("swatch: beats must be in [0, 1000)")
	ErrInvalidClock    = errors.New("swatch: invalid hour/minute/second")
)

// Beats is a beats value in [0, 1000) with centibeat precision.
type Beats float64

// FromTime returns the beats value for instant t, rounded to the nearest
// centibeat. A value that rounds up to 1000.00 wraps to 0.00.
func FromTime(t time.Time) Beats {
	u := t.UTC()
	bmtHour := (u.Hour() + 1) % 24
	seconds := float64(bmtHour*3600+u.Minute()*60+u.Second()) + float64(u.Nanosecond())/1e9

	beats := math.Mod(seconds/SecondsPerBeat, BeatsPerDay)
	centi := int64(math.Round(beats * 100))
	if centi >= BeatsPerDay*100 {
		centi = 0
	}
	return Beats(float64(centi) / 100)
}

// ToBeats is FromTime rendered as canonical text, e.g. "045.32".
func ToBeats(t time.Time) string {
	return FromTime(t).String()
}

// String renders b with a zero-padded 3-digit integer part and 2 decimals.
func (b Beats) String() string {
	return fmt.Sprintf("%06.2f", float64(b))
}

// Short renders only the zero-padded integer part, e.g. "045".
func (b Beats) Short() string {
	return fmt.Sprintf("%03d", b.Whole())
}

// Rounded returns b rounded to the nearest integer beat.
func (b Beats) Rounded() int {
	return int(math.Round(float64(b)))
}

// Whole returns the integer part of b.
func (b Beats) Whole() int {
	return int(math.Trunc(float64(b)))
}

// ToInstant converts beats back to an absolute instant on the UTC calendar
// date of ref. Elapsed BMT seconds are rounded to the nearest whole second,
// never floored.
//
// BMT hour 0 maps to UTC hour -1, which time.Date normalizes to 23:xx of the
// previous UTC day. The caller is responsible for keeping beats in range.
func ToInstant(beats float64, ref time.Time) time.Time {
	total := int(math.Round(beats * SecondsPerBeat))

	bmtHour := total / 3600
	bmtMinute := (total % 3600) / 60
	bmtSecond := total % 60

	y, m, d := ref.UTC().Date()
	return time.Date(y, m, d, bmtHour-1, bmtMinute, bmtSecond, 0, time.UTC)
}

// BeatsToLocal validates beats and returns ToInstant(beats, ref) in loc.
func BeatsToLocal(beats float64, ref time.Time, loc *time.Location) (time.Time, error) {
	if math.IsNaN(beats) || beats < 0 || beats >= BeatsPerDay {
		return time.Time{}, ErrBeatsOutOfRange
	}
	if loc == nil {
		loc = time.Local
	}
	return ToInstant(beats, ref).In(loc), nil
}

// LocalToBeats returns the beats value of hour:minute:second on ref's
// calendar date in loc.
func LocalToBeats(hour, minute, second int, ref time.Time, loc *time.Location) (Beats, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, ErrInvalidClock
	}
	if loc == nil {
		loc = time.Local
	}
	y, m, d := ref.In(loc).Date()
	return FromTime(time.Date(y, m, d, hour, minute, second, 0, loc)), nil
}

// NormalizeInput canonicalizes user-entered beats text.
//
// A single leading '@' is stripped and anything other than digits and '.'
// is discarded. An integer part longer than 3 digits is truncated to its
// first 3 digits, so "1222222" becomes "122". The value is clamped to
// [0, 999.99] and rounded half-up to centibeats. Integers render without a
// decimal point, values with a zero hundredths digit with one decimal.
//
// It returns "" when no number remains.
func NormalizeInput(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "@")

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if s == "" {
		return ""
	}

	parts := strings.Split(s, ".")
	intPart := parts[0]
	if len(intPart) > 3 {
		intPart = intPart[:3]
	}
	fracPart := ""
	if len(parts) > 1 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return ""
	}

	centi, ok := parseCentibeats(intPart, fracPart)
	if !ok {
		return ""
	}
	if centi > int64(MaxInputBeats*100) {
		centi = int64(MaxInputBeats * 100)
	}
	return formatCentibeats(centi)
}

// parseCentibeats converts decimal text to centibeats, rounding half-up on
// the third fractional digit, so "544.355" yields 54436.
func parseCentibeats(intPart, fracPart string) (int64, bool) {
	var whole int64
	if intPart != "" {
		n, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return 0, false
		}
		whole = n
	}

	digits := fracPart + "000"
	hundredths, err := strconv.ParseInt(digits[:2], 10, 64)
	if err != nil {
		return 0, false
	}
	centi := whole*100 + hundredths
	if digits[2] >= '5' {
		centi++
	}
	return centi, true
}

func formatCentibeats(centi int64) string {
	whole := centi / 100
	frac := centi % 100
	switch {
	case frac == 0:
		return strconv.FormatInt(whole, 10)
	case frac%10 == 0:
		return fmt.Sprintf("%d.%d", whole, frac/10)
	default:
		return fmt.Sprintf("%d.%02d", whole, frac)
	}
}

// ParseBeats parses beats text with an optional '@' prefix. It does not
// normalize or clamp.
func ParseBeats(s string) (float64, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "@")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
