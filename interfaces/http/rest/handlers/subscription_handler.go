package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
	"catalog-backend/pkg/utils"
)

// SubscriptionHandler handles subscription-related HTTP requests
type SubscriptionHandler struct {
	subscriptions ports.SubscriptionRepository
	errorHandler  *apperrors.ErrorHandler
	logger        *zap.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptions ports.SubscriptionRepository, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		errorHandler:  errorHandler,
		logger:        logger,
	}
}

// PutSubscriptionRequest represents the request body for upserting a
// subscription
type PutSubscriptionRequest struct {
	AccountID            string     `json:"accountId" validate:"required"`
	PlanID               string     `json:"planId" validate:"required"`
	ExpiresAt            *time.Time `json:"expiresAt,omitempty"`
	StripeSubscriptionID *string    `json:"stripeSubscriptionId,omitempty"`
}

// PutSubscription handles PUT /subscriptions
func (h *SubscriptionHandler) PutSubscription(w http.ResponseWriter, r *http.Request) {
	var req PutSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	subscription, err := h.subscriptions.PutSubscription(r.Context(), catalog.PutSubscriptionInput{
		AccountID:            req.AccountID,
		PlanID:               req.PlanID,
		ExpiresAt:            req.ExpiresAt,
		StripeSubscriptionID: req.StripeSubscriptionID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, subscription)
}

// GetSubscription handles GET /subscriptions/{accountID}/{planID}
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	subscription, err := h.subscriptions.GetSubscription(r.Context(), catalog.SubscriptionKey{
		AccountID: chi.URLParam(r, "accountID"),
		PlanID:    chi.URLParam(r, "planID"),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if subscription == nil {
		h.errorHandler.Handle(w, r, apperrors.NewNotFoundError("subscription"))
		return
	}
	respondJSON(w, h.logger, http.StatusOK, subscription)
}

// DeleteSubscription handles DELETE /subscriptions/{accountID}/{planID}
func (h *SubscriptionHandler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	subscription, err := h.subscriptions.DeleteSubscription(r.Context(), catalog.SubscriptionKey{
		AccountID: chi.URLParam(r, "accountID"),
		PlanID:    chi.URLParam(r, "planID"),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, subscription)
}

// ListByAccount handles GET /subscriptions/accounts/{accountID}
func (h *SubscriptionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	subscriptions, err := h.subscriptions.ListSubscriptionsByAccount(r.Context(), chi.URLParam(r, "accountID"), limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, subscriptions)
}

// ListByPlan handles GET /subscriptions/plans/{planID}
func (h *SubscriptionHandler) ListByPlan(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	subscriptions, err := h.subscriptions.ListSubscriptionsByPlan(r.Context(), chi.URLParam(r, "planID"), limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, subscriptions)
}

func parseLimit(r *http.Request) (int32, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || limit < 1 {
		return 0, apperrors.NewValidationError("limit must be a positive integer").
			WithDetail("limit", raw)
	}
	return int32(limit), nil
}
