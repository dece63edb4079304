// Package ics converts reminders to and from iCalendar.
package ics

import (
	"fmt"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"beatclock/internal/model"
	"beatclock/internal/reminder"
)

const (
	ProductID = "-//Swatch Internet Time//EN"

	// eventLength is the DTEND offset; reminders are points in time.
	eventLength = 30 * time.Minute

	uidDomain = "beatclock"
)

// Export renders every non-dismissed reminder as a VEVENT with an RRULE for
// repeating reminders and a display VALARM for the lead time.
func Export(reminders []model.Reminder, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)

	for _, r := range reminders {
		if r.Dismissed {
			continue
		}
		addEvent(cal, r, now)
	}
	return cal.Serialize()
}

func addEvent(cal *ical.Calendar, r model.Reminder, now time.Time) {
	ev := cal.AddEvent(UID(r.ID))
	ev.SetDtStampTime(now.UTC())
	if !r.CreatedAt.IsZero() {
		ev.SetCreatedTime(r.CreatedAt.UTC())
	}
	ev.SetStartAt(r.DueAt.UTC())
	ev.SetEndAt(r.DueAt.Add(eventLength).UTC())
	ev.SetSummary(r.Title)
	if r.Description != "" {
		ev.SetDescription(r.Description)
	}
	if rule := reminder.RecurrenceRule(r); rule != "" {
		ev.AddProperty(ical.ComponentPropertyRrule, rule)
	}

	if lead, ok := model.AlertOffsets[r.AlertBefore]; ok {
		alarm := ev.AddAlarm()
		alarm.SetAction(ical.ActionDisplay)
		alarm.SetTrigger(trigger(lead))
		alarm.SetProperty(ical.ComponentPropertyDescription, r.Title)
	}
}

// UID is the iCalendar UID of a reminder.
func UID(id int64) string {
	return strconv.FormatInt(id, 10) + "@" + uidDomain
}

// trigger renders a negative lead time as an RFC 5545 duration, e.g. -PT15M.
func trigger(lead time.Duration) string {
	switch {
	case lead%(24*time.Hour) == 0:
		return fmt.Sprintf("-P%dD", int(lead/(24*time.Hour)))
	case lead%time.Hour == 0:
		return fmt.Sprintf("-PT%dH", int(lead/time.Hour))
	default:
		return fmt.Sprintf("-PT%dM", int(lead/time.Minute))
	}
}
