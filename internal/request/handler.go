// internal/request/handler.go
package request

import (
	"encoding/json"
	"net/http"

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

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := authctx.From(r.Context())
	if !ok {
		respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req struct {
		Units      int    `json:"units"`
		BloodGroup string `json:"blood_group"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid request body"))
		return
	}

	group, err := blood.Parse(req.BloodGroup)
	if err != nil {
		respond.Err(w, err)
		return
	}

	recipientID, err := h.service.RecipientIDForUser(r.Context(), caller.UserID)
	if err != nil {
		respond.Err(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), recipientID, req.Units, group)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusCreated, created)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	caller, ok := authctx.From(r.Context())
	if !ok {
		respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid request id"))
		return
	}

	if err := h.service.Approve(r.Context(), requestID, caller.UserID); err != nil {
		respond.Err(w, err)
		return
	}
	respond.Message(w, http.StatusOK, "Request approved.")
}

func (h *Handler) HandleFulfill(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid request id"))
		return
	}

	if err := h.service.Fulfill(r.Context(), requestID); err != nil {
		respond.Err(w, err)
		return
	}
	respond.Message(w, http.StatusOK, "Request fulfilled.")
}

func (h *Handler) HandleListActive(w http.ResponseWriter, r *http.Request) {
	var areaID *uuid.UUID
	if v := r.URL.Query().Get("area_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid area id"))
			return
		}
		areaID = &id
	}

	reqs, err := h.service.ListActive(r.Context(), areaID)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusOK, reqs)
}
