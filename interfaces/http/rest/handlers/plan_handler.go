package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
	"catalog-backend/pkg/utils"
)

// PlanHandler handles plan-related HTTP requests
type PlanHandler struct {
	plans        ports.PlanRepository
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(plans ports.PlanRepository, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{
		plans:        plans,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// CreatePlanRequest represents the request body for creating a plan
type CreatePlanRequest struct {
	ProductID    string     `json:"productId" validate:"required"`
	Currency     string     `json:"currency" validate:"required,oneof=CAD USD MXN"`
	Name         string     `json:"name" validate:"required,min=1,max=200"`
	Description  *string    `json:"description,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	StripePlanID *string    `json:"stripePlanId,omitempty"`
}

// UpdatePlanRequest represents the request body for updating a plan
type UpdatePlanRequest struct {
	Currency     *string    `json:"currency,omitempty" validate:"omitempty,oneof=CAD USD MXN"`
	Name         *string    `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string    `json:"description,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	StripePlanID *string    `json:"stripePlanId,omitempty"`
}

// CreatePlan handles POST /plans
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	plan, err := h.plans.CreatePlan(r.Context(), catalog.CreatePlanInput{
		ProductID:    req.ProductID,
		Currency:     catalog.Currency(req.Currency),
		Name:         req.Name,
		Description:  req.Description,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		StripePlanID: req.StripePlanID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, plan)
}

// GetPlan handles GET /plans/{planID}
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.plans.GetPlan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if plan == nil {
		h.errorHandler.Handle(w, r, apperrors.NewNotFoundError("plan"))
		return
	}
	respondJSON(w, h.logger, http.StatusOK, plan)
}

// ListPlans handles GET /plans with optional productId, currency, and
// effectiveDate query parameters.
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	var filter ports.ListPlansFilter

	query := r.URL.Query()
	if productID := query.Get("productId"); productID != "" {
		filter.ProductID = &productID
	}
	if raw := query.Get("currency"); raw != "" {
		currency := catalog.Currency(raw)
		if !currency.Valid() {
			h.errorHandler.Handle(w, r, apperrors.NewValidationError("unsupported currency").
				WithDetail("currency", raw))
			return
		}
		filter.Currency = &currency
	}
	if raw := query.Get("effectiveDate"); raw != "" {
		date, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.errorHandler.Handle(w, r, apperrors.NewValidationError("effectiveDate must be RFC 3339").WithCause(err))
			return
		}
		filter.EffectiveDate = &date
	}

	plans, err := h.plans.ListPlans(r.Context(), filter)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, plans)
}

// UpdatePlan handles PATCH /plans/{planID}
func (h *PlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req UpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	input := catalog.ModifyPlanInput{
		PlanID:       chi.URLParam(r, "planID"),
		Name:         req.Name,
		Description:  req.Description,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		StripePlanID: req.StripePlanID,
	}
	if req.Currency != nil {
		currency := catalog.Currency(*req.Currency)
		input.Currency = &currency
	}

	plan, err := h.plans.UpdatePlan(r.Context(), input)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, plan)
}

// DeletePlan handles DELETE /plans/{planID}
func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.plans.DeletePlan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, plan)
}
