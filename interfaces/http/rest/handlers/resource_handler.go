package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
	"catalog-backend/pkg/utils"
)

// ResourceHandler handles resource-related HTTP requests
type ResourceHandler struct {
	resources    ports.ResourceRepository
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(resources ports.ResourceRepository, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{
		resources:    resources,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// CreateResourceRequest represents the request body for creating a resource
type CreateResourceRequest struct {
	ResourceID   *string `json:"resourceId,omitempty" validate:"omitempty,min=1,max=100"`
	Name         string  `json:"name" validate:"required,min=1,max=200"`
	Description  *string `json:"description,omitempty"`
	MeteringType string  `json:"meteringType" validate:"required,oneof=boolean maximum"`
	DefaultValue int64   `json:"defaultValue"`
}

// UpdateResourceRequest represents the request body for updating a resource
type UpdateResourceRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description  *string `json:"description,omitempty"`
	MeteringType *string `json:"meteringType,omitempty" validate:"omitempty,oneof=boolean maximum"`
	DefaultValue *int64  `json:"defaultValue,omitempty"`
}

// CreateResource handles POST /resources
func (h *ResourceHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req CreateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	resource, err := h.resources.CreateResource(r.Context(), catalog.CreateResourceInput{
		ResourceID:   req.ResourceID,
		Name:         req.Name,
		Description:  req.Description,
		MeteringType: catalog.MeteringType(req.MeteringType),
		DefaultValue: req.DefaultValue,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, resource)
}

// GetResource handles GET /resources/{resourceID}
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	resource, err := h.resources.GetResource(r.Context(), chi.URLParam(r, "resourceID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if resource == nil {
		h.errorHandler.Handle(w, r, apperrors.NewNotFoundError("resource"))
		return
	}
	respondJSON(w, h.logger, http.StatusOK, resource)
}

// ListResources handles GET /resources
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.resources.ListResources(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, resources)
}

// UpdateResource handles PATCH /resources/{resourceID}
func (h *ResourceHandler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	var req UpdateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	input := catalog.ModifyResourceInput{
		ResourceID:   chi.URLParam(r, "resourceID"),
		Name:         req.Name,
		Description:  req.Description,
		DefaultValue: req.DefaultValue,
	}
	if req.MeteringType != nil {
		meteringType := catalog.MeteringType(*req.MeteringType)
		input.MeteringType = &meteringType
	}

	resource, err := h.resources.UpdateResource(r.Context(), input)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, resource)
}

// DeleteResource handles DELETE /resources/{resourceID}
func (h *ResourceHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	resource, err := h.resources.DeleteResource(r.Context(), chi.URLParam(r, "resourceID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, resource)
}
