package registration

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashworth-collective/backend-club/internal/common"
)

// Handler exposes registration and payment endpoints.
type Handler struct {
	Service *Service
}

// Create handles POST /api/v1/registrations for the authenticated member.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "registration service not configured", nil)
		return
	}
	memberID, ok := common.MemberID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	var input CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	reg, err := h.Service.Create(r.Context(), memberID, input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": reg})
}

// Get handles GET /api/v1/registrations/{registrationID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "registration service not configured", nil)
		return
	}
	reg, err := h.Service.Get(r.Context(), chi.URLParam(r, "registrationID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.canView(r, reg) {
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": reg})
}

// ListMine handles GET /api/v1/registrations for the authenticated member.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "registration service not configured", nil)
		return
	}
	memberID, ok := common.MemberID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	page, limit := common.ParsePagination(r, 20)
	regs, total, err := h.Service.ListByMember(r.Context(), memberID, page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       regs,
		"pagination": common.Pagination{Page: page, PerPage: limit, TotalItems: int(total)},
	})
}

// ListAll handles GET /api/v1/admin/registrations.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "registration service not configured", nil)
		return
	}
	page, limit := common.ParsePagination(r, 20)
	regs, total, err := h.Service.List(r.Context(), page, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       regs,
		"pagination": common.Pagination{Page: page, PerPage: limit, TotalItems: int(total)},
	})
}

// RecordPayment handles POST /api/v1/registrations/{registrationID}/payments.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "registration service not configured", nil)
		return
	}
	var input PaymentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	reg, err := h.Service.RecordPayment(r.Context(), chi.URLParam(r, "registrationID"), input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": reg})
}

// ListPayments handles GET /api/v1/registrations/{registrationID}/payments.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "registration service not configured", nil)
		return
	}
	id := chi.URLParam(r, "registrationID")
	reg, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.canView(r, reg) {
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 50)
	payments, err := h.Service.ListPayments(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": payments})
}

// GetReceipt handles GET /api/v1/registrations/{registrationID}/receipt.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "registration service not configured", nil)
		return
	}
	id := chi.URLParam(r, "registrationID")
	reg, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.canView(r, reg) {
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": RenderReceipt(reg)})
}

// canView allows the owning member plus organizer and admin roles.
func (h *Handler) canView(r *http.Request, reg Registration) bool {
	if memberID, ok := common.MemberID(r.Context()); ok && memberID == reg.MemberID {
		return true
	}
	for _, role := range common.Roles(r.Context()) {
		if role == "organizer" || role == "admin" {
			return true
		}
	}
	return false
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
