package handler

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"dayflow/internal/auth"
	"dayflow/internal/event"
	"dayflow/internal/recur"

	"github.com/go-chi/chi/v5"
)

type EventReadHandler struct {
	Svc  *event.Service
	Calc *recur.Calculator
}

// List returns instances for a window. When a from/to range is given the
// response is the merged view the calendar shows: persisted instances
// plus virtual ones expanded from templates, one entry per (template,
// day). Templates themselves never appear.
func (h *EventReadHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	loc := h.Calc.Location()

	q := r.URL.Query()
	opts := event.ListOptions{
		Status:    event.Status(strings.TrimSpace(strings.ToUpper(q.Get("status")))),
		EventType: strings.TrimSpace(strings.ToLower(q.Get("type"))),
	}

	var from, to *time.Time
	if s := strings.TrimSpace(q.Get("from")); s != "" {
		d, ok := event.ParseDate(s, loc)
		if !ok {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
		d = startOfDay(d, loc)
		from = &d
	}
	if s := strings.TrimSpace(q.Get("to")); s != "" {
		d, ok := event.ParseDate(s, loc)
		if !ok {
			http.Error(w, "invalid to date", http.StatusBadRequest)
			return
		}
		d = startOfDay(d, loc)
		to = &d
	}
	opts.From = from
	opts.To = to

	rows, err := h.Svc.List(r.Context(), uid, opts)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	expand := from != nil && to != nil && q.Get("expand") != "false"
	if expand {
		templates, err := h.Svc.Templates(r.Context(), uid)
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		// Coverage is computed against every real instance in the window,
		// not just the filtered rows, so a status filter cannot resurrect
		// a virtual twin of a completed instance.
		real, err := h.Svc.InstancesBetween(r.Context(), uid, *from, *to)
		if err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		virtual := h.Calc.Expand(templates, real, *from, *to)
		for i := range virtual {
			v := &virtual[i]
			if opts.Status != "" && v.Status != opts.Status {
				continue
			}
			if opts.EventType != "" && v.EventType != opts.EventType {
				continue
			}
			rows = append(rows, *v)
		}
		sortMerged(rows)
	}

	if rows == nil {
		rows = []event.Event{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *EventReadHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	e, err := h.Svc.Get(r.Context(), id, uid)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func sortMerged(rows []event.Event) {
	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := dateOrZero(rows[i].EventDate), dateOrZero(rows[j].EventDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		si, sj := dateOrZero(rows[i].StartTime), dateOrZero(rows[j].StartTime)
		if !si.Equal(sj) {
			// Untimed entries sort after timed ones within a day.
			if si.IsZero() {
				return false
			}
			if sj.IsZero() {
				return true
			}
			return si.Before(sj)
		}
		return rows[i].ID < rows[j].ID
	})
}

func dateOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
