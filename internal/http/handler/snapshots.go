package handler

import (
	"net/http"
	"strconv"
	"strings"

	"dayflow/internal/auth"
	"dayflow/internal/snapshot"

	"github.com/go-chi/chi/v5"
)

type SnapshotHandler struct {
	Mgr *snapshot.Manager
}

func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	limit := 10
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	rows, err := h.Mgr.History(r.Context(), uid, limit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []snapshot.Snapshot{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *SnapshotHandler) Revert(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	res, err := h.Mgr.Revert(r.Context(), id, uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, revertStatus(res), res)
}

func (h *SnapshotHandler) Undo(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	res, err := h.Mgr.UndoLast(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, revertStatus(res), res)
}

// revertStatus maps the manager's explicit failure results onto HTTP:
// a missing target is 404, an already-consumed one is 409, so the UI can
// tell "nothing there" apart from "already undone".
func revertStatus(res snapshot.RevertResult) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Message {
	case "snapshot not found", "nothing to undo":
		return http.StatusNotFound
	default:
		return http.StatusConflict
	}
}
