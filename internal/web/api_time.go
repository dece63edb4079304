package web

import (
	"net/http"
	"strings"
	"time"

	"beatclock/internal/clock"
	"beatclock/internal/swatch"
)

// currentFields maps accepted ?fields= names to payload keys.
var currentFields = map[string]string{
	"swatch":      "swatch",
	"swatchtime":  "swatch",
	"swatch_time": "swatch",
	"rounded":     "rounded",
	"whole":       "whole",
	"24hr":        "time24",
	"time24":      "time24",
	"time_24":     "time24",
	"12hr":        "time12",
	"time12":      "time12",
	"time_12":     "time12",
	"timestamp":   "timestamp",
}

// handleCurrent serves the current time readout.
//
// GET /api/v1/current?fields=swatch,12hr
//   - fields: comma-separated, case-insensitive; unknown names are ignored.
//     Without it every field is returned. time12 always comes with ampm.
func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	rd := clock.Read(s.now(), s.loc)
	all := map[string]string{
		"swatch":    rd.Swatch,
		"rounded":   rd.Rounded,
		"whole":     rd.Whole,
		"time24":    rd.Time24,
		"time12":    rd.Time12,
		"ampm":      rd.AMPM,
		"timestamp": rd.Timestamp,
	}

	body := all
	if raw := r.URL.Query().Get("fields"); raw != "" {
		body = make(map[string]string)
		for _, f := range strings.Split(raw, ",") {
			key, ok := currentFields[strings.ToLower(strings.TrimSpace(f))]
			if !ok {
				continue
			}
			body[key] = all[key]
			if key == "time12" {
				body["ampm"] = all["ampm"]
			}
		}
	}

	w.Header().Set("Cache-Control", "s-maxage=1, max-age=0")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleClock(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, clock.Render(s.now(), s.loc, s.app.Settings()))
}

type convertResponse struct {
	Beats   string    `json:"beats"`
	Local   string    `json:"local"`
	Date    string    `json:"date"`
	Instant time.Time `json:"instant"`
}

// handleConvert converts in either direction.
//
// GET /api/v1/convert?beats=500&date=2030-01-01
// GET /api/v1/convert?time=13:00[:00]&date=2030-01-01
//   - date defaults to today in the configured timezone.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ref := s.now().In(s.loc)
	if d := q.Get("date"); d != "" {
		parsed, err := time.ParseInLocation("2006-01-02", d, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		ref = parsed
	}

	switch {
	case q.Get("beats") != "":
		b, ok := swatch.ParseBeats(q.Get("beats"))
		if !ok {
			writeError(w, http.StatusBadRequest, "beats must be a number")
			return
		}
		// ToInstant takes the UTC date of its reference.
		y, m, d := ref.Date()
		at, err := swatch.BeatsToLocal(b, time.Date(y, m, d, 12, 0, 0, 0, time.UTC), s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, convertResponse{
			Beats:   swatch.Beats(b).String(),
			Local:   at.Format("15:04:05"),
			Date:    at.Format("2006-01-02"),
			Instant: at,
		})

	case q.Get("time") != "":
		h, m, sec, ok := parseClock(q.Get("time"))
		if !ok {
			writeError(w, http.StatusBadRequest, "time must be HH:MM or HH:MM:SS")
			return
		}
		b, err := swatch.LocalToBeats(h, m, sec, ref, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		y, mo, d := ref.Date()
		at := time.Date(y, mo, d, h, m, sec, 0, s.loc)
		writeJSON(w, http.StatusOK, convertResponse{
			Beats:   b.String(),
			Local:   at.Format("15:04:05"),
			Date:    at.Format("2006-01-02"),
			Instant: at,
		})

	default:
		writeError(w, http.StatusBadRequest, "beats or time is required")
	}
}

func parseClock(v string) (h, m, sec int, ok bool) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Hour(), t.Minute(), t.Second(), true
		}
	}
	return 0, 0, 0, false
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	in := r.URL.Query().Get("input")
	writeJSON(w, http.StatusOK, map[string]string{
		"input":      in,
		"normalized": swatch.NormalizeInput(in),
	})
}
