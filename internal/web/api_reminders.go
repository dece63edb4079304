package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"beatclock/internal/ics"
	appLog "beatclock/internal/log"
	"beatclock/internal/model"
	"beatclock/internal/reminder"
)

const (
	maxBodyBytes        = 1 << 20
	defaultOccurrences  = 10
	calendarContentType = "text/calendar; charset=utf-8"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Settings())
}

// handlePutSettings merges the body over the current settings, so a partial
// document only changes the fields it names.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	st := s.app.Settings()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&st); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings JSON")
		return
	}
	saved, err := s.app.SaveSettings(r.Context(), st)
	if err != nil {
		appLog.Error("save settings failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type remindersResponse struct {
	Reminders []model.Reminder `json:"reminders"`
}

func (s *Server) handleListReminders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, remindersResponse{Reminders: s.app.Reminders().List()})
}

type fieldErrors struct {
	Errors map[string]string `json:"errors"`
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var in reminder.Input
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid reminder JSON")
		return
	}

	rem, err := s.app.CreateReminder(r.Context(), in, s.now())
	var verr *reminder.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, fieldErrors{Errors: messages(verr)})
	case err != nil:
		appLog.Error("create reminder failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save reminder")
	default:
		writeJSON(w, http.StatusCreated, rem)
	}
}

func messages(verr *reminder.ValidationError) map[string]string {
	out := make(map[string]string, len(verr.Fields))
	for field, err := range verr.Fields {
		out[field] = err.Error()
	}
	return out
}

func (s *Server) handleActiveReminders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Reminders().Scheduler().Snapshot())
}

func (s *Server) handleAckReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}
	if err := s.app.AcknowledgeReminder(id); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.app.Reminders().Scheduler().Snapshot())
}

func (s *Server) handleDismissReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}
	err := s.app.DismissReminder(r.Context(), id)
	switch {
	case errors.Is(err, reminder.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		appLog.Error("dismiss reminder failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to dismiss reminder")
	default:
		writeJSON(w, http.StatusOK, s.app.Reminders().Scheduler().Snapshot())
	}
}

type occurrencesResponse struct {
	ID          int64       `json:"id"`
	Repeat      string      `json:"repeat"`
	Rule        string      `json:"rule,omitempty"`
	Occurrences []time.Time `json:"occurrences"`
}

// handleOccurrences lists upcoming occurrences of a reminder.
//
// GET /api/reminders/{id}/occurrences?count=10
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}
	rem, ok := s.app.Reminders().Scheduler().Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, reminder.ErrNotFound.Error())
		return
	}

	count := parseIntDefault(r.URL.Query().Get("count"), defaultOccurrences)
	occ, err := reminder.Occurrences(rem, count)
	if err != nil {
		appLog.Error("expand occurrences failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to expand occurrences")
		return
	}
	for i := range occ {
		occ[i] = occ[i].In(s.loc)
	}
	writeJSON(w, http.StatusOK, occurrencesResponse{
		ID:          rem.ID,
		Repeat:      rem.Repeat,
		Rule:        reminder.RecurrenceRule(rem),
		Occurrences: occ,
	})
}

func (s *Server) handleCalendarExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.app.Reminders().List(), s.now())
	w.Header().Set("Content-Type", calendarContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="reminders.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

type importSkip struct {
	Title  string            `json:"title"`
	Errors map[string]string `json:"errors"`
}

type importResponse struct {
	Created []model.Reminder `json:"created"`
	Skipped []importSkip     `json:"skipped"`
}

// handleCalendarImport creates a reminder for every usable event in an
// uploaded calendar. Events in the past or otherwise invalid are reported
// in skipped.
func (s *Server) handleCalendarImport(w http.ResponseWriter, r *http.Request) {
	ins, err := ics.Parse(io.LimitReader(r.Body, maxBodyBytes), s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid calendar")
		return
	}

	resp := importResponse{Created: []model.Reminder{}, Skipped: []importSkip{}}
	now := s.now()
	for _, in := range ins {
		rem, err := s.app.CreateReminder(r.Context(), in, now)
		var verr *reminder.ValidationError
		switch {
		case errors.As(err, &verr):
			resp.Skipped = append(resp.Skipped, importSkip{Title: in.Title, Errors: messages(verr)})
		case err != nil:
			appLog.Error("import reminder failed", err, "title", in.Title)
			writeError(w, http.StatusInternalServerError, "failed to save reminder")
			return
		default:
			resp.Created = append(resp.Created, rem)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
