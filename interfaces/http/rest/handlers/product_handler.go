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

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	products     ports.ProductRepository
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(products ports.ProductRepository, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products:     products,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// CreateProductRequest represents the request body for creating a product
type CreateProductRequest struct {
	Name            string                         `json:"name" validate:"required,min=1,max=200"`
	Description     *string                        `json:"description,omitempty"`
	Entitlements    map[string]catalog.Entitlement `json:"entitlements,omitempty"`
	StripeProductID *string                        `json:"stripeProductId,omitempty"`
}

// UpdateProductRequest represents the request body for updating a product
type UpdateProductRequest struct {
	Name               *string                        `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description        *string                        `json:"description,omitempty"`
	StripeProductID    *string                        `json:"stripeProductId,omitempty"`
	Entitlements       map[string]catalog.Entitlement `json:"entitlements,omitempty"`
	AddEntitlements    map[string]catalog.Entitlement `json:"addEntitlements,omitempty"`
	RemoveEntitlements []string                       `json:"removeEntitlements,omitempty"`
}

// CreateProduct handles POST /products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	product, err := h.products.CreateProduct(r.Context(), catalog.CreateProductInput{
		Name:            req.Name,
		Description:     req.Description,
		Entitlements:    req.Entitlements,
		StripeProductID: req.StripeProductID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, product)
}

// GetProduct handles GET /products/{productID}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	product, err := h.products.GetProduct(r.Context(), productID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if product == nil {
		h.errorHandler.Handle(w, r, apperrors.NewNotFoundError("product"))
		return
	}
	respondJSON(w, h.logger, http.StatusOK, product)
}

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, products)
}

// UpdateProduct handles PATCH /products/{productID}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	product, err := h.products.UpdateProduct(r.Context(), catalog.ModifyProductInput{
		ProductID:          chi.URLParam(r, "productID"),
		Name:               req.Name,
		Description:        req.Description,
		StripeProductID:    req.StripeProductID,
		Entitlements:       req.Entitlements,
		AddEntitlements:    req.AddEntitlements,
		RemoveEntitlements: req.RemoveEntitlements,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/{productID}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.DeleteProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, product)
}
