package ics

import (
	"errors"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "beatclock/internal/log"
	"beatclock/internal/model"
	"beatclock/internal/reminder"
)

var (
	errMissingSummary = errors.New("missing SUMMARY")
	errMissingStart   = errors.New("missing DTSTART")
	errAllDay         = errors.New("all-day events have no time of day")
)

// Parse reads a calendar and turns each timed VEVENT into reminder form input
// in loc. Events that cannot become reminders are logged and skipped.
//
// Only the first VALARM is read, and only when its trigger matches one of
// the supported lead times. RRULEs keep their frequency and nothing else.
func Parse(r io.Reader, loc *time.Location) ([]reminder.Input, error) {
	if loc == nil {
		loc = time.Local
	}
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	out := make([]reminder.Input, 0)
	for _, ve := range cal.Events() {
		in, perr := parseVEvent(ve, loc)
		if perr != nil {
			uid := ""
			if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
				uid = p.Value
			}
			appLog.Warn("ics vevent skipped", "uid", uid, "reason", perr.Error())
			continue
		}
		out = append(out, in)
	}

	appLog.Info("ics parse completed", "event_count", len(out))
	return out, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (reminder.Input, error) {
	var in reminder.Input

	p := ve.GetProperty(ical.ComponentPropertySummary)
	if p == nil || strings.TrimSpace(p.Value) == "" {
		return in, errMissingSummary
	}
	in.Title = p.Value
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		in.Description = p.Value
	}

	dt := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dt == nil {
		return in, errMissingStart
	}
	if isAllDay(dt) {
		return in, errAllDay
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return in, err
	}
	start = start.In(loc)
	in.Date = start.Format("2006-01-02")
	in.Time = start.Format("15:04")

	in.Repeat = model.RepeatNone
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		in.Repeat = reminder.RepeatFromRule(p.Value)
	}

	if alarms := ve.Alarms(); len(alarms) > 0 {
		if tp := alarms[0].GetProperty(ical.ComponentPropertyTrigger); tp != nil {
			in.AlertBefore = alertFromTrigger(tp.Value)
		}
	}
	return in, nil
}

// isAllDay reports whether DTSTART is a DATE rather than a DATE-TIME.
func isAllDay(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// alertFromTrigger returns the lead-time option whose trigger text matches
// v, or "" so the default applies.
func alertFromTrigger(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	for name, lead := range model.AlertOffsets {
		if trigger(lead) == v {
			return name
		}
	}
	return ""
}
