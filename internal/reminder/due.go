package reminder

import (
	"errors"
	"strings"
	"time"

	"beatclock/internal/model"
	"beatclock/internal/swatch"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Form validation errors. They are recovered locally and reported per field.
var (
	ErrTitleRequired = errors.New("title is required")
	ErrDateRequired  = errors.New("please choose a date for the reminder")
	ErrTimeRequired  = errors.New("enter a clock time or a Swatch (@beats) value")
	ErrUnresolvable  = errors.New("could not determine a valid reminder time")
	ErrNotInFuture   = errors.New("reminder must be scheduled in the future")
	ErrInvalidRepeat = errors.New("unknown repeat option")
	ErrInvalidAlert  = errors.New("unknown reminder lead time")
)

// DueInput is the date plus either a local time or a beats value.
type DueInput struct {
	Date  string // YYYY-MM-DD
	Time  string // HH:MM, optional
	Beats string // beats text, optional, may carry '@'
}

// ResolveDueDate combines a calendar date with a local time-of-day or a beats
// value into an absolute instant in loc. Beats take precedence over Time.
//
// For beats the time-of-day comes from the beats conversion and the calendar
// date stays exactly the one chosen, even when the converted instant falls on
// a neighbouring day in loc.
func ResolveDueDate(in DueInput, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(in.Date), loc)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := date.Date()

	if strings.TrimSpace(in.Beats) != "" {
		beats, ok := swatch.ParseBeats(in.Beats)
		if !ok {
			return time.Time{}, false
		}
		at := swatch.ToInstant(beats, date).In(loc)
		return time.Date(y, m, d, at.Hour(), at.Minute(), at.Second(), 0, loc), true
	}

	if strings.TrimSpace(in.Time) != "" {
		clock, err := time.Parse(timeLayout, strings.TrimSpace(in.Time))
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc), true
	}

	return time.Time{}, false
}

// Input is the reminder creation form.
type Input struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Beats       string `json:"beats"`
	Repeat      string `json:"repeat"`
	AlertBefore string `json:"alert_before"`
}

// ValidationError maps form fields to the first error found for each.
type ValidationError struct {
	Fields map[string]error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range []string{"title", "date", "time", "repeat", "alert_before"} {
		if err, ok := e.Fields[f]; ok {
			parts = append(parts, f+": "+err.Error())
		}
	}
	return "invalid reminder: " + strings.Join(parts, "; ")
}

// Is lets errors.Is match any of the field errors.
func (e *ValidationError) Is(target error) bool {
	for _, err := range e.Fields {
		if err == target {
			return true
		}
	}
	return false
}

// Validate checks the form against now and returns the reminder it
// describes, without an ID. Beats text is normalized first.
func Validate(in Input, now time.Time, loc *time.Location) (model.Reminder, error) {
	fields := make(map[string]error)

	title := strings.TrimSpace(in.Title)
	if title == "" {
		fields["title"] = ErrTitleRequired
	}
	if strings.TrimSpace(in.Date) == "" {
		fields["date"] = ErrDateRequired
	}

	beats := ""
	if strings.TrimSpace(in.Beats) != "" {
		beats = swatch.NormalizeInput(in.Beats)
		if beats == "" {
			fields["time"] = ErrUnresolvable
		}
	}
	clock := strings.TrimSpace(in.Time)
	if clock == "" && strings.TrimSpace(in.Beats) == "" {
		fields["time"] = ErrTimeRequired
	}

	repeat := in.Repeat
	if repeat == "" {
		repeat = model.RepeatNone
	}
	if _, ok := repeatFreq(repeat); !ok {
		fields["repeat"] = ErrInvalidRepeat
	}
	alert := in.AlertBefore
	if alert == "" {
		alert = model.DefaultAlertBefore
	}
	if _, ok := model.AlertOffsets[alert]; !ok {
		fields["alert_before"] = ErrInvalidAlert
	}

	var due time.Time
	if _, dateErr := fields["date"]; !dateErr {
		if _, timeErr := fields["time"]; !timeErr {
			var ok bool
			due, ok = ResolveDueDate(DueInput{Date: in.Date, Time: clock, Beats: beats}, loc)
			switch {
			case !ok:
				fields["time"] = ErrUnresolvable
			case !due.After(now):
				fields["time"] = ErrNotInFuture
			}
		}
	}

	if len(fields) > 0 {
		return model.Reminder{}, &ValidationError{Fields: fields}
	}

	r := model.Reminder{
		Title:       title,
		Description: in.Description,
		Date:        strings.TrimSpace(in.Date),
		Beats:       beats,
		Repeat:      repeat,
		AlertBefore: alert,
		DueAt:       due,
	}
	if beats == "" {
		r.Time = clock
	}
	return r, nil
}
