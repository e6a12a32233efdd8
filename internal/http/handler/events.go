package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"dayflow/internal/auth"
	"dayflow/internal/event"
	"dayflow/internal/recur"
	"dayflow/internal/snapshot"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EventHandler owns the mutation paths. Every successful mutation is
// recorded as a one-change snapshot so it can be undone later.
type EventHandler struct {
	Svc       *event.Service
	Snapshots *snapshot.Manager
	Calc      *recur.Calculator
}

type createEventReq struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Notes       *string `json:"notes"`

	EventDate  *string `json:"event_date"`
	TimePeriod *string `json:"time_period"`
	StartTime  *string `json:"start_time"` // RFC3339
	EndTime    *string `json:"end_time"`
	Duration   *int    `json:"duration"`

	EventType  string   `json:"event_type"`
	Category   *string  `json:"category"`
	Urgency    int      `json:"urgency"`
	Importance int      `json:"importance"`
	Tags       []string `json:"tags"`

	RepeatPattern json.RawMessage `json:"repeat_pattern"`
	IsTemplate    bool            `json:"is_template"`
	HabitInterval *int            `json:"habit_interval"`

	ProjectID *string `json:"project_id"`
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createEventReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		http.Error(w, "title required", http.StatusBadRequest)
		return
	}
	if req.IsTemplate && len(req.RepeatPattern) == 0 {
		http.Error(w, "template requires repeat_pattern", http.StatusBadRequest)
		return
	}

	loc := h.Calc.Location()
	e := event.Event{
		UserID:        uid,
		Title:         req.Title,
		Description:   req.Description,
		Notes:         req.Notes,
		TimePeriod:    req.TimePeriod,
		Duration:      req.Duration,
		EventType:     req.EventType,
		Category:      req.Category,
		Urgency:       req.Urgency,
		Importance:    req.Importance,
		Tags:          req.Tags,
		RepeatPattern: req.RepeatPattern,
		IsTemplate:    req.IsTemplate,
		HabitInterval: req.HabitInterval,
		ProjectID:     req.ProjectID,
	}

	if req.EventDate != nil {
		d, ok := event.ParseDate(*req.EventDate, loc)
		if !ok {
			http.Error(w, "invalid event_date", http.StatusBadRequest)
			return
		}
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		e.EventDate = &day
	}
	var bad bool
	e.StartTime, bad = parseRFC3339Opt(req.StartTime)
	if bad {
		http.Error(w, "invalid start_time (RFC3339)", http.StatusBadRequest)
		return
	}
	e.EndTime, bad = parseRFC3339Opt(req.EndTime)
	if bad {
		http.Error(w, "invalid end_time (RFC3339)", http.StatusBadRequest)
		return
	}

	if err := h.Svc.Create(r.Context(), &e); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.record(r, uid, "api: create event "+e.Title, snapshot.EventChange{
		EventID: e.ID,
		Action:  snapshot.ActionCreate,
		After:   mustJSON(&e),
	})

	writeJSON(w, http.StatusCreated, &e)
}

type updateEventReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Notes       *string `json:"notes"`

	EventDate  *string `json:"event_date"`
	TimePeriod *string `json:"time_period"`
	StartTime  *string `json:"start_time"`
	EndTime    *string `json:"end_time"`
	Duration   *int    `json:"duration"`

	EventType  *string   `json:"event_type"`
	Category   *string   `json:"category"`
	Urgency    *int      `json:"urgency"`
	Importance *int      `json:"importance"`
	Tags       *[]string `json:"tags"`

	RepeatPattern json.RawMessage `json:"repeat_pattern"`
	HabitInterval *int            `json:"habit_interval"`

	Status    *string `json:"status"`
	ProjectID *string `json:"project_id"`
}

// fields builds the typed partial-update map gorm can bind directly.
func (req *updateEventReq) fields(loc *time.Location) (map[string]any, error) {
	out := map[string]any{}
	if req.Title != nil {
		out["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		out["description"] = *req.Description
	}
	if req.Notes != nil {
		out["notes"] = *req.Notes
	}
	if req.EventDate != nil {
		d, ok := event.ParseDate(*req.EventDate, loc)
		if !ok {
			return nil, errors.New("invalid event_date")
		}
		out["event_date"] = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	}
	if req.TimePeriod != nil {
		out["time_period"] = *req.TimePeriod
	}
	if req.StartTime != nil {
		t, bad := parseRFC3339Opt(req.StartTime)
		if bad {
			return nil, errors.New("invalid start_time (RFC3339)")
		}
		out["start_time"] = t
	}
	if req.EndTime != nil {
		t, bad := parseRFC3339Opt(req.EndTime)
		if bad {
			return nil, errors.New("invalid end_time (RFC3339)")
		}
		out["end_time"] = t
	}
	if req.Duration != nil {
		out["duration"] = *req.Duration
	}
	if req.EventType != nil {
		out["event_type"] = strings.ToLower(*req.EventType)
	}
	if req.Category != nil {
		out["category"] = *req.Category
	}
	if req.Urgency != nil {
		out["urgency"] = *req.Urgency
	}
	if req.Importance != nil {
		out["importance"] = *req.Importance
	}
	if req.Tags != nil {
		out["tags"] = pq.StringArray(*req.Tags)
	}
	if len(req.RepeatPattern) > 0 {
		out["repeat_pattern"] = string(req.RepeatPattern)
	}
	if req.HabitInterval != nil {
		out["habit_interval"] = *req.HabitInterval
	}
	if req.ProjectID != nil {
		out["project_id"] = *req.ProjectID
	}
	if req.Status != nil {
		st := event.Status(strings.ToUpper(strings.TrimSpace(*req.Status)))
		switch st {
		case event.StatusPending, event.StatusInProgress, event.StatusCompleted, event.StatusCancelled:
		default:
			return nil, errors.New("invalid status")
		}
		out["status"] = st
		now := time.Now()
		if st == event.StatusInProgress {
			out["started_at"] = now
		}
		if st == event.StatusCompleted {
			out["completed_at"] = now
		}
	}
	return out, nil
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req updateEventReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	fields, err := req.fields(h.Calc.Location())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(fields) == 0 {
		http.Error(w, "no fields to update", http.StatusBadRequest)
		return
	}

	before, err := h.Svc.Get(r.Context(), id, uid)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	after, err := h.Svc.Update(r.Context(), id, uid, fields)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.record(r, uid, "api: update event "+before.Title, snapshot.EventChange{
		EventID: id,
		Action:  snapshot.ActionUpdate,
		Before:  mustJSON(before),
		After:   mustJSON(after),
	})

	writeJSON(w, http.StatusOK, after)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	before, err := h.Svc.Get(r.Context(), id, uid)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	ok, err := h.Svc.Delete(r.Context(), id, uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	// Deletes carry the captured row in both directions: Before because
	// that was the prior state, After because the revert recreates from it.
	h.record(r, uid, "api: delete event "+before.Title, snapshot.EventChange{
		EventID: id,
		Action:  snapshot.ActionDelete,
		Before:  mustJSON(before),
		After:   mustJSON(before),
	})

	w.WriteHeader(http.StatusNoContent)
}

type promoteReq struct {
	Date string `json:"date"` // YYYY-MM-DD
}

// Promote turns one virtual occurrence into a persisted instance, the
// only path by which a virtual instance gains a lifecycle of its own.
func (h *EventHandler) Promote(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req promoteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	loc := h.Calc.Location()
	d, ok := event.ParseDate(req.Date, loc)
	if !ok {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)

	tpl, err := h.Svc.Get(r.Context(), id, uid)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if !tpl.IsTemplate {
		http.Error(w, "not a template", http.StatusBadRequest)
		return
	}

	if _, err := h.Svc.InstanceForDate(r.Context(), uid, id, day); err == nil {
		http.Error(w, "instance already exists for date", http.StatusConflict)
		return
	} else if !errors.Is(err, event.ErrNotFound) {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	inst := h.Calc.Materialize(tpl, day)
	inst.ID = uuid.NewString()
	inst.IsVirtual = false
	inst.TemplateID = nil
	inst.CreatedAt = time.Time{}
	inst.UpdatedAt = time.Time{}

	if err := h.Svc.Create(r.Context(), &inst); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.record(r, uid, "api: promote instance of "+tpl.Title, snapshot.EventChange{
		EventID: inst.ID,
		Action:  snapshot.ActionCreate,
		After:   mustJSON(&inst),
	})

	writeJSON(w, http.StatusCreated, &inst)
}

func (h *EventHandler) record(r *http.Request, uid uint64, trigger string, changes ...snapshot.EventChange) {
	if _, err := h.Snapshots.Create(r.Context(), uid, trigger, changes); err != nil {
		// The mutation itself already succeeded; losing the undo record is
		// worth a log line, not a failed request.
		log.Printf("snapshot record failed: %v\n", err)
	}
}

func parseRFC3339Opt(s *string) (*time.Time, bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, true
	}
	return &t, false
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
