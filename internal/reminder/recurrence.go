package reminder

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"beatclock/internal/model"
)

const maxOccurrences = 366

var repeatFrequencies = map[string]rrule.Frequency{
	model.RepeatDaily:   rrule.DAILY,
	model.RepeatWeekly:  rrule.WEEKLY,
	model.RepeatMonthly: rrule.MONTHLY,
	model.RepeatYearly:  rrule.YEARLY,
}

// repeatFreq reports the frequency for a repeat option. ok is false for
// unknown options; "none" is valid with a zero frequency.
func repeatFreq(repeat string) (freq rrule.Frequency, ok bool) {
	if repeat == model.RepeatNone {
		return 0, true
	}
	freq, ok = repeatFrequencies[repeat]
	return freq, ok
}

// RecurrenceRule returns the RRULE value (without DTSTART) for r, or "" when
// r does not repeat.
func RecurrenceRule(r model.Reminder) string {
	freq, ok := repeatFrequencies[r.Repeat]
	if !ok {
		return ""
	}
	opt := rrule.ROption{Freq: freq}
	return opt.String()
}

// Occurrences lists the first count occurrences of r starting at DueAt.
// A non-repeating reminder has exactly one.
func Occurrences(r model.Reminder, count int) ([]time.Time, error) {
	if count <= 0 {
		count = 1
	}
	if count > maxOccurrences {
		count = maxOccurrences
	}
	freq, ok := repeatFrequencies[r.Repeat]
	if !ok {
		return []time.Time{r.DueAt}, nil
	}
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    freq,
		Dtstart: r.DueAt,
		Count:   count,
	})
	if err != nil {
		return nil, err
	}
	return rule.All(), nil
}

// RepeatFromRule maps an RRULE value back to a repeat option. Rules that
// carry more than a plain frequency lose their extra parts; anything
// unparseable or unsupported is RepeatNone.
func RepeatFromRule(rule string) string {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	if rule == "" {
		return model.RepeatNone
	}
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return model.RepeatNone
	}
	for repeat, freq := range repeatFrequencies {
		if freq == opt.Freq {
			return repeat
		}
	}
	return model.RepeatNone
}
