// internal/notification/handler.go
package notification

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bloodlink/internal/httpapi/authctx"
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

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := authctx.From(r.Context())
	if !ok {
		respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	items, total, err := h.service.List(r.Context(), caller.UserID, page, perPage)
	if err != nil {
		respond.Err(w, err)
		return
	}

	unread, err := h.service.UnreadCount(r.Context(), caller.UserID)
	if err != nil {
		respond.Err(w, err)
		return
	}

	respond.OK(w, http.StatusOK, map[string]any{
		"items":  items,
		"total":  total,
		"unread": unread,
	})
}

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := authctx.From(r.Context())
	if !ok {
		respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid notification id"))
		return
	}

	if err := h.service.MarkRead(r.Context(), id, caller.UserID); err != nil {
		respond.Err(w, err)
		return
	}
	respond.Message(w, http.StatusOK, "Notification marked read.")
}

func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := authctx.From(r.Context())
	if !ok {
		respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.service.MarkAllRead(r.Context(), caller.UserID); err != nil {
		respond.Err(w, err)
		return
	}
	respond.Message(w, http.StatusOK, "All notifications marked read.")
}

func (h *Handler) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetRole string `json:"target_role"`
		BloodGroup string `json:"blood_group"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid request body"))
		return
	}
	if req.Message == "" {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "a message is required"))
		return
	}

	var group *blood.Group
	if req.BloodGroup != "" {
		g, err := blood.Parse(req.BloodGroup)
		if err != nil {
			respond.Err(w, err)
			return
		}
		group = &g
	}

	count, err := h.service.Broadcast(r.Context(), req.TargetRole, group, req.Message)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusOK, map[string]int{"notified": count})
}
