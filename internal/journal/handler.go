// internal/journal/handler.go
package journal

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bloodlink/internal/httpapi/respond"
	"bloodlink/pkg/apperrors"
)

type Handler struct {
	journal *Journal
}

func NewHandler(j *Journal) *Handler {
	return &Handler{journal: j}
}

// HandleStream serves the audit feed, paged by after_id and limit.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	var afterID int64
	if v := r.URL.Query().Get("after_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid after_id"))
			return
		}
		afterID = id
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.journal.Stream(r.Context(), afterID, limit)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusOK, events)
}

// HandleLoad serves every event of one aggregate, oldest first.
func (h *Handler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	aggregateID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid aggregate id"))
		return
	}

	events, err := h.journal.Load(r.Context(), aggregateID)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusOK, events)
}
