package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/catalog"
	apperrors "catalog-backend/pkg/errors"
)

func newTestPlanRepo(t *testing.T) (*fakeStore, *PlanRepository) {
	t.Helper()
	store := newFakeStore()
	plans := NewPlanRepository(store, testCatalogTable, testPlansIndex, zap.NewNop())
	plans.now = fixedNow
	return store, plans
}

func timePtr(t time.Time) *time.Time { return &t }

func currencyPtr(c catalog.Currency) *catalog.Currency { return &c }

func TestCreatePlanRoundTrip(t *testing.T) {
	_, plans := newTestPlanRepo(t)
	ctx := context.Background()

	created, err := plans.CreatePlan(ctx, catalog.CreatePlanInput{
		ProductID:   "prod-1",
		Currency:    catalog.CurrencyUSD,
		Name:        "monthly",
		Description: strPtr("billed monthly"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.PlanID)
	assert.Equal(t, catalog.CurrencyUSD, created.Currency)
	assert.Equal(t, "monthly", created.Name)

	got, err := plans.GetPlan(ctx, created.PlanID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created, got)
}

func TestCreatePlanDuplicateTripleConflicts(t *testing.T) {
	_, plans := newTestPlanRepo(t)
	ctx := context.Background()

	_, err := plans.CreatePlan(ctx, catalog.CreatePlanInput{
		ProductID: "prod-1",
		Currency:  catalog.CurrencyCAD,
		Name:      "monthly",
	})
	require.NoError(t, err)

	_, err = plans.CreatePlan(ctx, catalog.CreatePlanInput{
		ProductID: "prod-1",
		Currency:  catalog.CurrencyCAD,
		Name:      "monthly",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Contains(t, err.Error(), "(prod-1, CAD, monthly)")

	// same name under another currency is a different key
	_, err = plans.CreatePlan(ctx, catalog.CreatePlanInput{
		ProductID: "prod-1",
		Currency:  catalog.CurrencyUSD,
		Name:      "monthly",
	})
	require.NoError(t, err)
}

func TestUpdatePlanSameKey(t *testing.T) {
	_, plans := newTestPlanRepo(t)
	ctx := context.Background()

	created, err := plans.CreatePlan(ctx, catalog.CreatePlanInput{
		ProductID: "prod-1",
		Currency:  catalog.CurrencyUSD,
		Name:      "monthly",
	})
	require.NoError(t, err)

	updated, err := plans.UpdatePlan(ctx, catalog.ModifyPlanInput{
		PlanID:      created.PlanID,
		Description: strPtr("new description"),
	})
	require.NoError(t, err)
	assert.Equal(t, created.PlanID, updated.PlanID)
	assert.Equal(t, "new description", *updated.Description)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestUpdatePlanCurrencyMigratesKey(t *testing.T) {
	store, plans := newTestPlanRepo(t)
	ctx := context.Background()

	created, err := plans.CreatePlan(ctx, catalog.CreatePlanInput{
		ProductID: "prod-1",
		Currency:  catalog.CurrencyCAD,
		Name:      "monthly",
	})
	require.NoError(t, err)

	updated, err := plans.UpdatePlan(ctx, catalog.ModifyPlanInput{
		PlanID:   created.PlanID,
		Currency: currencyPtr(catalog.CurrencyUSD),
	})
	require.NoError(t, err)
	assert.Equal(t, catalog.CurrencyUSD, updated.Currency)
	assert.Equal(t, created.PlanID, updated.PlanID)

	// the old-keyed row is gone, the new one present
	old, err := store.Get(ctx, testCatalogTable, catalogKey("prod-1", planSortKey(catalog.CurrencyCAD, "monthly")))
	require.NoError(t, err)
	assert.Nil(t, old)

	migrated, err := store.Get(ctx, testCatalogTable, catalogKey("prod-1", planSortKey(catalog.CurrencyUSD, "monthly")))
	require.NoError(t, err)
	assert.NotNil(t, migrated)

	got, err := plans.GetPlan(ctx, created.PlanID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, catalog.CurrencyUSD, got.Currency)
}

func TestUpdatePlanMigrationFailureSurfacesInternal(t *testing.T) {
	store, plans := newTestPlanRepo(t)
	ctx := context.Background()

	created, err := plans.CreatePlan(ctx, catalog.CreatePlanInput{
		ProductID: "prod-1",
		Currency:  catalog.CurrencyCAD,
		Name:      "monthly",
	})
	require.NoError(t, err)

	store.batchErr = assert.AnError
	_, err = plans.UpdatePlan(ctx, catalog.ModifyPlanInput{
		PlanID: created.PlanID,
		Name:   strPtr("yearly"),
	})
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeInternal, appErr.Type)
}

func TestUpdatePlanMissingReturnsNotFound(t *testing.T) {
	_, plans := newTestPlanRepo(t)

	_, err := plans.UpdatePlan(context.Background(), catalog.ModifyPlanInput{
		PlanID: "missing",
		Name:   strPtr("x"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeletePlanIdempotent(t *testing.T) {
	_, plans := newTestPlanRepo(t)
	ctx := context.Background()

	created, err := plans.CreatePlan(ctx, catalog.CreatePlanInput{
		ProductID: "prod-1",
		Currency:  catalog.CurrencyUSD,
		Name:      "monthly",
	})
	require.NoError(t, err)

	deleted, err := plans.DeletePlan(ctx, created.PlanID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, created.PlanID, deleted.PlanID)

	again, err := plans.DeletePlan(ctx, created.PlanID)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestListPlansFilters(t *testing.T) {
	_, plans := newTestPlanRepo(t)
	ctx := context.Background()

	mustCreate := func(productID string, currency catalog.Currency, name string, start, end *time.Time) *catalog.Plan {
		plan, err := plans.CreatePlan(ctx, catalog.CreatePlanInput{
			ProductID: productID,
			Currency:  currency,
			Name:      name,
			StartDate: start,
			EndDate:   end,
		})
		require.NoError(t, err)
		return plan
	}

	now := fixedNow()
	open := mustCreate("prod-1", catalog.CurrencyUSD, "open", nil, nil)
	mustCreate("prod-1", catalog.CurrencyUSD, "past", nil, timePtr(now.Add(-24*time.Hour)))
	future := mustCreate("prod-1", catalog.CurrencyCAD, "future", timePtr(now.Add(24*time.Hour)), nil)
	mustCreate("prod-2", catalog.CurrencyUSD, "other", nil, nil)

	byProduct, err := plans.ListPlans(ctx, ports.ListPlansFilter{ProductID: strPtr("prod-1")})
	require.NoError(t, err)
	assert.Len(t, byProduct, 3)

	byCurrency, err := plans.ListPlans(ctx, ports.ListPlansFilter{
		ProductID: strPtr("prod-1"),
		Currency:  currencyPtr(catalog.CurrencyCAD),
	})
	require.NoError(t, err)
	require.Len(t, byCurrency, 1)
	assert.Equal(t, future.PlanID, byCurrency[0].PlanID)

	effective, err := plans.ListPlans(ctx, ports.ListPlansFilter{
		ProductID:     strPtr("prod-1"),
		EffectiveDate: timePtr(now),
	})
	require.NoError(t, err)
	require.Len(t, effective, 1)
	assert.Equal(t, open.PlanID, effective[0].PlanID)

	all, err := plans.ListPlans(ctx, ports.ListPlansFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestEffectiveDateBoundariesInclusive(t *testing.T) {
	_, plans := newTestPlanRepo(t)
	ctx := context.Background()

	now := fixedNow()
	created, err := plans.CreatePlan(ctx, catalog.CreatePlanInput{
		ProductID: "prod-1",
		Currency:  catalog.CurrencyUSD,
		Name:      "window",
		StartDate: timePtr(now),
		EndDate:   timePtr(now.Add(48 * time.Hour)),
	})
	require.NoError(t, err)

	for _, date := range []time.Time{now, now.Add(24 * time.Hour), now.Add(48 * time.Hour)} {
		effective, err := plans.ListPlans(ctx, ports.ListPlansFilter{
			ProductID:     strPtr("prod-1"),
			EffectiveDate: timePtr(date),
		})
		require.NoError(t, err)
		require.Len(t, effective, 1, "date %v should be inside the window", date)
		assert.Equal(t, created.PlanID, effective[0].PlanID)
	}

	outside, err := plans.ListPlans(ctx, ports.ListPlansFilter{
		ProductID:     strPtr("prod-1"),
		EffectiveDate: timePtr(now.Add(72 * time.Hour)),
	})
	require.NoError(t, err)
	assert.Empty(t, outside)
}
