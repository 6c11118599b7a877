package ledger

import (
	"net/http"

	"github.com/google/uuid"

	"bloodlink/internal/httpapi/respond"
	"bloodlink/pkg/apperrors"
	"bloodlink/pkg/blood"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// HandleInventory serves stock totals, optionally filtered by area_id and
// blood_group query parameters.
func (h *Handler) HandleInventory(w http.ResponseWriter, r *http.Request) {
	var f Filter

	if v := r.URL.Query().Get("area_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid area id"))
			return
		}
		f.AreaID = &id
	}
	if v := r.URL.Query().Get("blood_group"); v != "" {
		g, err := blood.Parse(v)
		if err != nil {
			respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid blood group"))
			return
		}
		f.Group = &g
	}

	levels, err := h.service.Inventory(r.Context(), f)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusOK, levels)
}
