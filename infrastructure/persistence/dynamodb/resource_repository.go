package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
)

// resourceItem rides in the catalog table under a legacy key scheme: the
// partition key is a generated placeholder and the sort key a constant
// sentinel, both present only to satisfy the table's key shape. Neither
// carries meaning; all real addressing goes through ResourcesIndex
// (resourceId hash, createdAt range).
type resourceItem struct {
	ProductID    string `dynamodbav:"productId"`
	SortKey      string `dynamodbav:"sortkey"`
	ResourceID   string `dynamodbav:"resourceId"`
	CreatedAt    string `dynamodbav:"createdAt"`
	Name         string `dynamodbav:"name"`
	Description  string `dynamodbav:"description,omitempty"`
	MeteringType string `dynamodbav:"meteringType"`
	DefaultValue int64  `dynamodbav:"defaultValue"`
}

func (it *resourceItem) toResource() (*catalog.Resource, error) {
	createdAt, err := parseTime(it.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &catalog.Resource{
		ResourceID:   it.ResourceID,
		Name:         it.Name,
		Description:  optString(it.Description),
		MeteringType: catalog.MeteringType(it.MeteringType),
		DefaultValue: it.DefaultValue,
		CreatedAt:    createdAt,
	}, nil
}

// ResourceRepository implements ports.ResourceRepository on the catalog
// table's ResourcesIndex.
type ResourceRepository struct {
	store  Store
	table  string
	index  string
	logger *zap.Logger
	now    nowFunc
}

// NewResourceRepository creates a resource repository.
func NewResourceRepository(store Store, table, index string, logger *zap.Logger) *ResourceRepository {
	return &ResourceRepository{
		store:  store,
		table:  table,
		index:  index,
		logger: logger,
		now:    defaultNow,
	}
}

var _ ports.ResourceRepository = (*ResourceRepository)(nil)

// CreateResource stores a new resource. The resourceId is generated unless
// the caller supplied one.
func (r *ResourceRepository) CreateResource(ctx context.Context, input catalog.CreateResourceInput) (*catalog.Resource, error) {
	resourceID := uuid.NewString()
	if input.ResourceID != nil {
		resourceID = *input.ResourceID
	}

	item := resourceItem{
		ProductID:    uuid.NewString(),
		SortKey:      resourceSortKey,
		ResourceID:   resourceID,
		CreatedAt:    formatTime(r.now()),
		Name:         input.Name,
		Description:  stringValue(input.Description),
		MeteringType: string(input.MeteringType),
		DefaultValue: input.DefaultValue,
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal resource").WithCause(err)
	}
	if err := r.store.Put(ctx, PutInput{Table: r.table, Item: av}); err != nil {
		r.logger.Error("Failed to insert resource", zap.String("resourceId", resourceID), zap.Error(err))
		return nil, err
	}

	return item.toResource()
}

// GetResource returns the resource, or nil when absent.
func (r *ResourceRepository) GetResource(ctx context.Context, resourceID string) (*catalog.Resource, error) {
	item, err := r.getItem(ctx, resourceID)
	if err != nil || item == nil {
		return nil, err
	}
	return item.toResource()
}

// ListResources scans the whole index in chronological order.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]catalog.Resource, error) {
	items, err := r.store.Scan(ctx, ScanInput{Table: r.table, Index: r.index})
	if err != nil {
		r.logger.Error("Failed to list resources", zap.Error(err))
		return nil, err
	}

	resources := make([]catalog.Resource, 0, len(items))
	for _, raw := range items {
		var item resourceItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, apperrors.NewInternalError("failed to unmarshal resource").WithCause(err)
		}
		resource, err := item.toResource()
		if err != nil {
			return nil, err
		}
		resources = append(resources, *resource)
	}
	return resources, nil
}

// UpdateResource merges the non-nil input fields into the stored resource
// and writes it back at the physical key the index lookup located.
func (r *ResourceRepository) UpdateResource(ctx context.Context, input catalog.ModifyResourceInput) (*catalog.Resource, error) {
	item, err := r.getItem(ctx, input.ResourceID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError("resource")
	}

	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
	if input.MeteringType != nil {
		item.MeteringType = string(*input.MeteringType)
	}
	if input.DefaultValue != nil {
		item.DefaultValue = *input.DefaultValue
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal resource").WithCause(err)
	}
	if err := r.store.Put(ctx, PutInput{Table: r.table, Item: av}); err != nil {
		r.logger.Error("Failed to update resource", zap.String("resourceId", input.ResourceID), zap.Error(err))
		return nil, err
	}
	return item.toResource()
}

// DeleteResource removes the resource; deleting an absent resource is a
// no-op returning nil.
func (r *ResourceRepository) DeleteResource(ctx context.Context, resourceID string) (*catalog.Resource, error) {
	item, err := r.getItem(ctx, resourceID)
	if err != nil || item == nil {
		return nil, err
	}

	if err := r.store.Delete(ctx, r.table, catalogKey(item.ProductID, item.SortKey)); err != nil {
		r.logger.Error("Failed to delete resource", zap.String("resourceId", resourceID), zap.Error(err))
		return nil, err
	}
	return item.toResource()
}

// getItem locates the physical row through the index. The returned item
// carries the placeholder primary key needed for writes and deletes.
func (r *ResourceRepository) getItem(ctx context.Context, resourceID string) (*resourceItem, error) {
	items, err := r.store.Query(ctx, QueryInput{
		Table:    r.table,
		Index:    r.index,
		KeyAttr:  attrResourceID,
		KeyValue: resourceID,
		Limit:    1,
	})
	if err != nil {
		r.logger.Error("Failed to query resource", zap.String("resourceId", resourceID), zap.Error(err))
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	var item resourceItem
	if err := attributevalue.UnmarshalMap(items[0], &item); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal resource").WithCause(err)
	}
	return &item, nil
}
