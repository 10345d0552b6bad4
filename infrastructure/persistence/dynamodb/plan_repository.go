package dynamodb

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
)

// planItem is a "$plan:" row of a product's partition. Currency and name
// are embedded in the sort key; the name attribute is also stored flat so
// rows survive a key parse failure, and the planId attribute feeds the
// PlansIndex since callers address plans by id, not by the encoded key.
type planItem struct {
	ProductID    string `dynamodbav:"productId"`
	SortKey      string `dynamodbav:"sortkey"`
	PlanID       string `dynamodbav:"planId"`
	CreatedAt    string `dynamodbav:"createdAt"`
	Name         string `dynamodbav:"name"`
	Description  string `dynamodbav:"description,omitempty"`
	StartDate    string `dynamodbav:"startDate,omitempty"`
	EndDate      string `dynamodbav:"endDate,omitempty"`
	StripePlanID string `dynamodbav:"stripePlanId,omitempty"`
}

func (it *planItem) toPlan() (*catalog.Plan, error) {
	createdAt, err := parseTime(it.CreatedAt)
	if err != nil {
		return nil, err
	}
	startDate, err := parseOptTime(it.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := parseOptTime(it.EndDate)
	if err != nil {
		return nil, err
	}

	currency, name := parsePlanSortKey(it.SortKey)
	if it.Name != "" {
		name = it.Name
	}
	return &catalog.Plan{
		PlanID:       it.PlanID,
		ProductID:    it.ProductID,
		Currency:     currency,
		Name:         name,
		Description:  optString(it.Description),
		StartDate:    startDate,
		EndDate:      endDate,
		StripePlanID: optString(it.StripePlanID),
		CreatedAt:    createdAt,
	}, nil
}

func planItemFrom(plan *catalog.Plan) planItem {
	return planItem{
		ProductID:    plan.ProductID,
		SortKey:      planSortKey(plan.Currency, plan.Name),
		PlanID:       plan.PlanID,
		CreatedAt:    formatTime(plan.CreatedAt),
		Name:         plan.Name,
		Description:  stringValue(plan.Description),
		StartDate:    formatOptTime(plan.StartDate),
		EndDate:      formatOptTime(plan.EndDate),
		StripePlanID: stringValue(plan.StripePlanID),
	}
}

// PlanRepository implements ports.PlanRepository on the catalog table and
// its PlansIndex.
type PlanRepository struct {
	store  Store
	table  string
	index  string
	logger *zap.Logger
	now    nowFunc
}

// NewPlanRepository creates a plan repository.
func NewPlanRepository(store Store, table, index string, logger *zap.Logger) *PlanRepository {
	return &PlanRepository{
		store:  store,
		table:  table,
		index:  index,
		logger: logger,
		now:    defaultNow,
	}
}

var _ ports.PlanRepository = (*PlanRepository)(nil)

// CreatePlan writes the plan conditioned on its encoded sort key not
// existing under the product's partition, which enforces uniqueness of the
// (productId, currency, name) triple.
func (r *PlanRepository) CreatePlan(ctx context.Context, input catalog.CreatePlanInput) (*catalog.Plan, error) {
	item := planItem{
		ProductID:    input.ProductID,
		SortKey:      planSortKey(input.Currency, input.Name),
		PlanID:       uuid.NewString(),
		CreatedAt:    formatTime(r.now()),
		Name:         input.Name,
		Description:  stringValue(input.Description),
		StartDate:    formatOptTime(input.StartDate),
		EndDate:      formatOptTime(input.EndDate),
		StripePlanID: stringValue(input.StripePlanID),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal plan").WithCause(err)
	}

	err = r.store.Put(ctx, PutInput{
		Table:              r.table,
		Item:               av,
		ConditionNotExists: attrSortKey,
	})
	if stderrors.Is(err, ErrConditionFailed) {
		return nil, apperrors.NewConflictError(fmt.Sprintf(
			"plan with (productId, currency, name) = (%s, %s, %s) already exists",
			input.ProductID, input.Currency, input.Name,
		))
	}
	if err != nil {
		r.logger.Error("Failed to insert plan", zap.String("productId", input.ProductID), zap.Error(err))
		return nil, err
	}
	return item.toPlan()
}

// GetPlan looks the plan up through the PlansIndex, since the generated id
// says nothing about the physical key. Returns nil when absent.
func (r *PlanRepository) GetPlan(ctx context.Context, planID string) (*catalog.Plan, error) {
	item, err := r.getItem(ctx, planID)
	if err != nil || item == nil {
		return nil, err
	}
	return item.toPlan()
}

// UpdatePlan merges the input into the stored plan. When neither currency
// nor name changes this is an ordinary put at the same key. When either
// changes, the sort key changes with it, so the new-keyed item is put and
// the old-keyed item deleted in one batch write. The store offers no
// multi-item transaction here: if the put lands and the delete does not,
// the old row survives as an orphan under the previous key.
func (r *PlanRepository) UpdatePlan(ctx context.Context, input catalog.ModifyPlanInput) (*catalog.Plan, error) {
	current, err := r.GetPlan(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperrors.NewNotFoundError("plan")
	}

	updated := *current
	if input.Currency != nil {
		updated.Currency = *input.Currency
	}
	if input.Name != nil {
		updated.Name = *input.Name
	}
	if input.Description != nil {
		updated.Description = input.Description
	}
	if input.StartDate != nil {
		updated.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		updated.EndDate = input.EndDate
	}
	if input.StripePlanID != nil {
		updated.StripePlanID = input.StripePlanID
	}

	item := planItemFrom(&updated)
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal plan").WithCause(err)
	}

	oldKey := planSortKey(current.Currency, current.Name)
	if oldKey == item.SortKey {
		if err := r.store.Put(ctx, PutInput{Table: r.table, Item: av}); err != nil {
			r.logger.Error("Failed to update plan", zap.String("planId", input.PlanID), zap.Error(err))
			return nil, err
		}
		return item.toPlan()
	}

	err = r.store.BatchWrite(ctx, BatchWriteInput{
		Table:   r.table,
		Puts:    []Item{av},
		Deletes: []Item{catalogKey(current.ProductID, oldKey)},
	})
	if err != nil {
		r.logger.Error("Failed to migrate plan key",
			zap.String("planId", input.PlanID),
			zap.String("oldKey", oldKey),
			zap.String("newKey", item.SortKey),
			zap.Error(err),
		)
		return nil, apperrors.NewInternalError("plan key migration failed").WithCause(err)
	}
	return item.toPlan()
}

// DeletePlan removes the plan at its current encoded key; deleting an
// absent plan is a no-op returning nil.
func (r *PlanRepository) DeletePlan(ctx context.Context, planID string) (*catalog.Plan, error) {
	item, err := r.getItem(ctx, planID)
	if err != nil || item == nil {
		return nil, err
	}

	if err := r.store.Delete(ctx, r.table, catalogKey(item.ProductID, item.SortKey)); err != nil {
		r.logger.Error("Failed to delete plan", zap.String("planId", planID), zap.Error(err))
		return nil, err
	}
	return item.toPlan()
}

// ListPlans queries the product's partition with a sort-key prefix when a
// productId is given, otherwise scans the table for plan rows. The
// effective-date filter runs client-side after the store limit, so fewer
// filtered results than exist may come back.
func (r *PlanRepository) ListPlans(ctx context.Context, filter ports.ListPlansFilter) ([]catalog.Plan, error) {
	prefix := planSortKeyPrefix
	if filter.Currency != nil {
		prefix += string(*filter.Currency)
	}

	var (
		items []Item
		err   error
	)
	if filter.ProductID != nil {
		items, err = r.store.Query(ctx, QueryInput{
			Table:      r.table,
			KeyAttr:    attrProductID,
			KeyValue:   *filter.ProductID,
			PrefixAttr: attrSortKey,
			Prefix:     prefix,
		})
	} else {
		items, err = r.store.Scan(ctx, ScanInput{
			Table:      r.table,
			PrefixAttr: attrSortKey,
			Prefix:     prefix,
		})
	}
	if err != nil {
		r.logger.Error("Failed to list plans", zap.Error(err))
		return nil, err
	}

	plans := make([]catalog.Plan, 0, len(items))
	for _, raw := range items {
		var item planItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, apperrors.NewInternalError("failed to unmarshal plan").WithCause(err)
		}
		plan, err := item.toPlan()
		if err != nil {
			return nil, err
		}
		if filter.EffectiveDate != nil && !plan.EffectiveOn(*filter.EffectiveDate) {
			r.logger.Debug("Excluding plan outside effective window",
				zap.String("planId", plan.PlanID),
				zap.Time("effectiveDate", *filter.EffectiveDate),
			)
			continue
		}
		plans = append(plans, *plan)
	}
	return plans, nil
}

func (r *PlanRepository) getItem(ctx context.Context, planID string) (*planItem, error) {
	items, err := r.store.Query(ctx, QueryInput{
		Table:    r.table,
		Index:    r.index,
		KeyAttr:  attrPlanID,
		KeyValue: planID,
		Limit:    1,
	})
	if err != nil {
		r.logger.Error("Failed to query plan", zap.String("planId", planID), zap.Error(err))
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	var item planItem
	if err := attributevalue.UnmarshalMap(items[0], &item); err != nil {
		return nil, apperrors.NewInternalError("failed to unmarshal plan").WithCause(err)
	}
	return &item, nil
}
