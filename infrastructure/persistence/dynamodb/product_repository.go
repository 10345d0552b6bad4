package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
)

type entitlementItem struct {
	Value      float64 `dynamodbav:"value"`
	Cumulative bool    `dynamodbav:"cumulative"`
}

// productItem is the "$metadata" row of a product's partition.
type productItem struct {
	ProductID       string                     `dynamodbav:"productId"`
	SortKey         string                     `dynamodbav:"sortkey"`
	CreatedAt       string                     `dynamodbav:"createdAt"`
	Name            string                     `dynamodbav:"name"`
	Description     string                     `dynamodbav:"description,omitempty"`
	Entitlements    map[string]entitlementItem `dynamodbav:"entitlements,omitempty"`
	StripeProductID string                     `dynamodbav:"stripeProductId,omitempty"`
}

func (it *productItem) toProduct() (*catalog.Product, error) {
	createdAt, err := parseTime(it.CreatedAt)
	if err != nil {
		return nil, err
	}
	var entitlements map[string]catalog.Entitlement
	if len(it.Entitlements) > 0 {
		entitlements = make(map[string]catalog.Entitlement, len(it.Entitlements))
		for id, ent := range it.Entitlements {
			entitlements[id] = catalog.Entitlement(ent)
		}
	}
	return &catalog.Product{
		ProductID:       it.ProductID,
		Name:            it.Name,
		Description:     optString(it.Description),
		CreatedAt:       createdAt,
		Entitlements:    entitlements,
		StripeProductID: optString(it.StripeProductID),
	}, nil
}

func entitlementItems(entitlements map[string]catalog.Entitlement) map[string]entitlementItem {
	if len(entitlements) == 0 {
		return nil
	}
	items := make(map[string]entitlementItem, len(entitlements))
	for id, ent := range entitlements {
		items[id] = entitlementItem(ent)
	}
	return items
}

// ProductRepository implements ports.ProductRepository on the catalog
// table. Entitlement resourceIds are validated against the resource
// repository on every write that sets them.
type ProductRepository struct {
	store     Store
	table     string
	resources ports.ResourceRepository
	logger    *zap.Logger
	now       nowFunc
}

// NewProductRepository creates a product repository.
func NewProductRepository(store Store, table string, resources ports.ResourceRepository, logger *zap.Logger) *ProductRepository {
	return &ProductRepository{
		store:     store,
		table:     table,
		resources: resources,
		logger:    logger,
		now:       defaultNow,
	}
}

var _ ports.ProductRepository = (*ProductRepository)(nil)

// CreateProduct validates the entitlement map and stores the product.
// Either every entitlement is accepted or nothing is written.
func (r *ProductRepository) CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*catalog.Product, error) {
	if err := r.validateEntitlements(ctx, input.Entitlements); err != nil {
		return nil, err
	}

	item := productItem{
		ProductID:       uuid.NewString(),
		SortKey:         productMetadataSortKey,
		CreatedAt:       formatTime(r.now()),
		Name:            input.Name,
		Description:     stringValue(input.Description),
		Entitlements:    entitlementItems(input.Entitlements),
		StripeProductID: stringValue(input.StripeProductID),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal product").WithCause(err)
	}
	if err := r.store.Put(ctx, PutInput{Table: r.table, Item: av}); err != nil {
		r.logger.Error("Failed to insert product", zap.String("name", input.Name), zap.Error(err))
		return nil, err
	}
	return item.toProduct()
}

// GetProduct returns the product, or nil when absent.
func (r *ProductRepository) GetProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	raw, err := r.store.Get(ctx, r.table, catalogKey(productID, productMetadataSortKey))
	if err != nil {
		r.logger.Error("Failed to get product", zap.String("productId", productID), zap.Error(err))
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var item productItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal product").WithCause(err)
	}
	return item.toProduct()
}

// ListProducts scans the table for "$metadata" rows.
func (r *ProductRepository) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	items, err := r.store.Scan(ctx, ScanInput{
		Table:       r.table,
		EqualsAttr:  attrSortKey,
		EqualsValue: productMetadataSortKey,
	})
	if err != nil {
		r.logger.Error("Failed to list products", zap.Error(err))
		return nil, err
	}

	products := make([]catalog.Product, 0, len(items))
	for _, raw := range items {
		var item productItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, apperrors.NewInternalError("failed to unmarshal product").WithCause(err)
		}
		product, err := item.toProduct()
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, nil
}

// UpdateProduct is a read-modify-write. Scalar fields merge when present in
// the input; entitlement directives apply as replace, then add, then
// remove. Every directive's resourceIds are validated before any directive
// is applied, so an invalid id leaves the product untouched.
func (r *ProductRepository) UpdateProduct(ctx context.Context, input catalog.ModifyProductInput) (*catalog.Product, error) {
	current, err := r.GetProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperrors.NewNotFoundError("product")
	}

	if err := r.validateEntitlements(ctx, input.Entitlements, input.AddEntitlements); err != nil {
		return nil, err
	}

	entitlements := make(map[string]catalog.Entitlement, len(current.Entitlements))
	for id, ent := range current.Entitlements {
		entitlements[id] = ent
	}
	if input.Entitlements != nil {
		entitlements = make(map[string]catalog.Entitlement, len(input.Entitlements))
		for id, ent := range input.Entitlements {
			entitlements[id] = ent
		}
	}
	for id, ent := range input.AddEntitlements {
		entitlements[id] = ent
	}
	for _, id := range input.RemoveEntitlements {
		delete(entitlements, id)
	}

	item := productItem{
		ProductID:       current.ProductID,
		SortKey:         productMetadataSortKey,
		CreatedAt:       formatTime(current.CreatedAt),
		Name:            current.Name,
		Description:     stringValue(current.Description),
		Entitlements:    entitlementItems(entitlements),
		StripeProductID: stringValue(current.StripeProductID),
	}
	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.StripeProductID != nil {
		item.StripeProductID = *input.StripeProductID
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal product").WithCause(err)
	}
	if err := r.store.Put(ctx, PutInput{Table: r.table, Item: av}); err != nil {
		r.logger.Error("Failed to update product", zap.String("productId", input.ProductID), zap.Error(err))
		return nil, err
	}
	return item.toProduct()
}

// DeleteProduct removes the product's metadata row; deleting an absent
// product is a no-op returning nil.
func (r *ProductRepository) DeleteProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	current, err := r.GetProduct(ctx, productID)
	if err != nil || current == nil {
		return nil, err
	}

	if err := r.store.Delete(ctx, r.table, catalogKey(productID, productMetadataSortKey)); err != nil {
		r.logger.Error("Failed to delete product", zap.String("productId", productID), zap.Error(err))
		return nil, err
	}
	return current, nil
}

// validateEntitlements checks every resourceId in every given map against
// the resource repository in one pass. Unknown ids produce a single
// validation error listing all offenders.
func (r *ProductRepository) validateEntitlements(ctx context.Context, maps ...map[string]catalog.Entitlement) error {
	total := 0
	for _, m := range maps {
		total += len(m)
	}
	if total == 0 {
		return nil
	}

	resources, err := r.resources.ListResources(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(resources))
	for _, resource := range resources {
		known[resource.ResourceID] = struct{}{}
	}

	seen := make(map[string]struct{})
	var invalid []string
	for _, m := range maps {
		for id := range m {
			if _, ok := known[id]; ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			invalid = append(invalid, id)
		}
	}
	if len(invalid) == 0 {
		return nil
	}

	sort.Strings(invalid)
	return apperrors.NewValidationError(
		fmt.Sprintf("unknown resourceIds in entitlements: %s", strings.Join(invalid, ", ")),
	).WithDetail("resourceIds", invalid)
}
