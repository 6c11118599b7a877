// internal/donation/handler.go
package donation

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bloodlink/internal/httpapi/authctx"
	"bloodlink/internal/httpapi/respond"
	"bloodlink/pkg/apperrors"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	caller, ok := authctx.From(r.Context())
	if !ok {
		respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req struct {
		DonorID   string  `json:"donor_id"`
		Units     int     `json:"units"`
		Exchange  bool    `json:"exchange"`
		RequestID *string `json:"request_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid request body"))
		return
	}

	donorID, err := uuid.Parse(req.DonorID)
	if err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid donor id"))
		return
	}

	in := SubmitInput{
		DonorID:      donorID,
		CallerUserID: caller.UserID,
		Units:        req.Units,
		Exchange:     req.Exchange,
	}
	if req.RequestID != nil {
		id, err := uuid.Parse(*req.RequestID)
		if err != nil {
			respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid request id"))
			return
		}
		in.RequestID = &id
	}

	d, err := h.service.Submit(r.Context(), in)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusCreated, d)
}

func (h *Handler) HandleEligibility(w http.ResponseWriter, r *http.Request) {
	donorID, ok := h.authorizeDonor(w, r)
	if !ok {
		return
	}
	e, err := h.service.CheckEligibility(r.Context(), donorID)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusOK, e)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	donorID, ok := h.authorizeDonor(w, r)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	entries, total, err := h.service.History(r.Context(), donorID, page, perPage)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusOK, map[string]any{
		"items": entries,
		"total": total,
	})
}

// authorizeDonor parses the donor id and, for donor-role callers,
// verifies they own the profile. Managers may view any donor.
func (h *Handler) authorizeDonor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	donorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid donor id"))
		return uuid.Nil, false
	}

	caller, ok := authctx.From(r.Context())
	if !ok {
		respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, false
	}
	if caller.Role == "donor" {
		owner, err := h.service.OwnerUserID(r.Context(), donorID)
		if err != nil {
			respond.Err(w, err)
			return uuid.Nil, false
		}
		if owner != caller.UserID {
			respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "you may only view your own records"))
			return uuid.Nil, false
		}
	}
	return donorID, true
}
