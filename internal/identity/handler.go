// internal/identity/handler.go
package identity

import (
	"encoding/json"
	"net/http"
	"time"

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

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		Name        string `json:"name"`
		Role        string `json:"role"`
		BloodGroup  string `json:"blood_group"`
		Area        string `json:"area"`
		Phone       string `json:"phone"`
		DateOfBirth string `json:"date_of_birth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid request body"))
		return
	}

	in := RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     Role(req.Role),
		Group:    blood.Group(req.BloodGroup),
		AreaName: req.Area,
		Phone:    req.Phone,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			respond.Err(w, apperrors.New(apperrors.CodeValidation, "date_of_birth must be YYYY-MM-DD"))
			return
		}
		in.DateOfBirth = &dob
	}

	user, err := h.service.Register(r.Context(), in)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusCreated, user)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid request body"))
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusOK, user)
}

func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := authctx.From(r.Context())
	if !ok {
		respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
		return
	}
	p, err := h.service.Profile(r.Context(), caller.UserID)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusOK, p)
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := authctx.From(r.Context())
	if !ok {
		respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Area        *string `json:"area"`
		Phone       *string `json:"phone"`
		DateOfBirth *string `json:"date_of_birth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid request body"))
		return
	}

	in := UpdateProfileInput{Name: req.Name, AreaName: req.Area, Phone: req.Phone}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			respond.Err(w, apperrors.New(apperrors.CodeValidation, "date_of_birth must be YYYY-MM-DD"))
			return
		}
		in.DateOfBirth = &dob
	}

	if err := h.service.UpdateProfile(r.Context(), caller.UserID, in); err != nil {
		respond.Err(w, err)
		return
	}
	respond.Message(w, http.StatusOK, "Profile updated.")
}

func (h *Handler) HandleSetAvailability(w http.ResponseWriter, r *http.Request) {
	caller, ok := authctx.From(r.Context())
	if !ok {
		respond.Err(w, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
		return
	}
	donorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid donor id"))
		return
	}

	var req struct {
		Available bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Err(w, apperrors.New(apperrors.CodeValidation, "invalid request body"))
		return
	}

	if err := h.service.SetAvailability(r.Context(), donorID, caller.UserID, req.Available); err != nil {
		respond.Err(w, err)
		return
	}
	respond.Message(w, http.StatusOK, "Availability updated.")
}

func (h *Handler) HandleSearchDonors(w http.ResponseWriter, r *http.Request) {
	donors, err := h.service.SearchDonors(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.OK(w, http.StatusOK, donors)
}
