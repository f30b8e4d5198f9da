package service

import (
	"context"
	"testing"

	"retailsmart/internal/apperr"
	"retailsmart/internal/clock"
	"retailsmart/internal/freshness"
	"retailsmart/internal/models"
	"retailsmart/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureBatch(id, productID string, offset int) models.Batch {
	return models.Batch{
		ID:         id,
		ProductID:  productID,
		Quantity:   5,
		ExpiryDate: freshness.DateAfter(testNow, offset),
		Location:   models.DefaultLocation,
	}
}

func newQueryFixture(t *testing.T) (*InventoryService, *QueryService) {
	t.Helper()
	kv := store.NewMemoryKV()
	seedKV(t, kv, []models.Product{
		{ID: "p1", Name: "Whole Milk", Barcode: "4001", Category: "Dairy", ShelfLife: 7},
		{ID: "p2", Name: "Sourdough Loaf", Barcode: "4002", Category: "Bakery", ShelfLife: 4},
		{ID: "p3", Name: "Cheddar", Barcode: "4003", Category: "Dairy", ShelfLife: 90},
		{ID: "p4", Name: "Rice", Barcode: "4004", Category: "", ShelfLife: 365},
	}, []models.Batch{
		fixtureBatch("b1", "p1", 3),
		fixtureBatch("b2", "p2", -1),
		fixtureBatch("b3", "p3", 40),
		fixtureBatch("b4", "p3", 0),
		fixtureBatch("b5", "gone", 20),
		{ID: "b6", ProductID: "p4", Quantity: 1, ExpiryDate: "someday", Location: "Warehouse"},
	})

	inv, _ := newTestService(t, kv)
	_, _, err := inv.LoadOrSeed(context.Background())
	require.NoError(t, err)
	return inv, NewQueryService(inv, clock.Fixed{T: testNow})
}

func productIDs(products []models.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func batchIDs(views []models.BatchView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestQueryProducts(t *testing.T) {
	_, q := newQueryFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter ProductFilter
		want   []string
	}{
		{"no filter", ProductFilter{}, []string{"p1", "p2", "p3", "p4"}},
		{"search name", ProductFilter{Search: "milk"}, []string{"p1"}},
		{"search category", ProductFilter{Search: "  DAIRY "}, []string{"p1", "p3"}},
		{"search barcode", ProductFilter{Search: "4002"}, []string{"p2"}},
		{"risk soon", ProductFilter{Risk: models.StatusExpiringSoon}, []string{"p1", "p3"}},
		{"risk expired", ProductFilter{Risk: models.StatusExpired}, []string{"p2"}},
		{"ids", ProductFilter{IDs: []string{"p4", "p2", "nope"}}, []string{"p2", "p4"}},
		{"empty ids", ProductFilter{IDs: []string{}}, []string{}},
		{"intersect", ProductFilter{Search: "dairy", Risk: models.StatusExpiringSoon, IDs: []string{"p3", "p2"}}, []string{"p3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.QueryProducts(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, productIDs(got))
		})
	}
}

func TestQueryProductsRejectsUnknownRisk(t *testing.T) {
	_, q := newQueryFixture(t)

	for _, risk := range []models.FreshnessStatus{models.StatusFresh, "soonish"} {
		_, err := q.QueryProducts(context.Background(), ProductFilter{Risk: risk})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestQueryBatches(t *testing.T) {
	_, q := newQueryFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter BatchFilter
		want   []string
	}{
		{"no filter", BatchFilter{}, []string{"b1", "b2", "b3", "b4", "b5", "b6"}},
		{"fresh", BatchFilter{Status: models.StatusFresh}, []string{"b3", "b5"}},
		{"soon", BatchFilter{Status: models.StatusExpiringSoon}, []string{"b1", "b4"}},
		{"expired", BatchFilter{Status: models.StatusExpired}, []string{"b2"}},
		{"unknown", BatchFilter{Status: models.StatusUnknown}, []string{"b6"}},
		{"search by product", BatchFilter{Search: "cheddar"}, []string{"b3", "b4"}},
		{"search skips orphans", BatchFilter{Search: "unknown"}, []string{}},
		{"orphan by product id", BatchFilter{ProductIDs: []string{"gone"}}, []string{"b5"}},
		{"product ids", BatchFilter{ProductIDs: []string{"p1", "gone"}}, []string{"b1", "b5"}},
		{"empty product ids", BatchFilter{ProductIDs: []string{}}, []string{}},
		{"intersect", BatchFilter{Status: models.StatusExpiringSoon, Search: "dairy", ProductIDs: []string{"p3"}}, []string{"b4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.QueryBatches(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, batchIDs(got))
		})
	}
}

func TestQueryBatchesResolvesProducts(t *testing.T) {
	_, q := newQueryFixture(t)

	views, err := q.QueryBatches(context.Background(), BatchFilter{})
	require.NoError(t, err)
	byID := make(map[string]models.BatchView)
	for _, v := range views {
		byID[v.ID] = v
	}

	milk := byID["b1"]
	assert.Equal(t, "Whole Milk", milk.Product.Name)
	assert.False(t, milk.Orphaned)
	require.NotNil(t, milk.DaysUntil)
	assert.Equal(t, 3, *milk.DaysUntil)

	orphan := byID["b5"]
	assert.True(t, orphan.Orphaned)
	assert.Equal(t, models.UnknownProduct, orphan.Product)
	assert.Equal(t, models.StatusFresh, orphan.Status)

	unparsable := byID["b6"]
	assert.Equal(t, models.StatusUnknown, unparsable.Status)
	assert.Nil(t, unparsable.DaysUntil)
}

func TestQueryBatchesRejectsUnknownStatus(t *testing.T) {
	_, q := newQueryFixture(t)

	_, err := q.QueryBatches(context.Background(), BatchFilter{Status: "stale"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDashboardSummary(t *testing.T) {
	_, q := newQueryFixture(t)

	s := q.CurrentSummary(context.Background())

	assert.Equal(t, 4, s.TotalProducts)
	assert.Equal(t, 6, s.TotalBatches)
	assert.Equal(t, 2, s.FreshBatches)
	assert.Equal(t, 2, s.ExpiringSoonBatches)
	assert.Equal(t, 1, s.ExpiredBatches)
	assert.Equal(t, 1, s.UnknownBatches)
	assert.Equal(t, []string{"p1", "p3"}, s.ProductsAtRiskSoon)
	assert.Equal(t, []string{"p2"}, s.ProductsAtRiskExpired)
	assert.InDelta(t, 1.5, s.AverageBatchesPerProduct, 1e-9)
	assert.Equal(t, map[string]int{"Dairy": 2, "Bakery": 1, models.UncategorizedLabel: 1}, s.CategoryDistribution)
}

func TestDashboardSummaryTracksMutations(t *testing.T) {
	inv, q := newQueryFixture(t)
	ctx := context.Background()

	before := q.CurrentSummary(ctx)
	require.NoError(t, inv.DeleteBatch(ctx, "b2"))
	after := q.CurrentSummary(ctx)

	assert.Equal(t, 1, before.ExpiredBatches)
	assert.Equal(t, 0, after.ExpiredBatches)
	assert.Empty(t, after.ProductsAtRiskExpired)
}

func TestDashboardSummaryOnEmptyInventory(t *testing.T) {
	kv := store.NewMemoryKV()
	seedKV(t, kv, []models.Product{}, []models.Batch{})
	inv, _ := newTestService(t, kv)
	_, _, err := inv.LoadOrSeed(context.Background())
	require.NoError(t, err)
	q := NewQueryService(inv, clock.Fixed{T: testNow})

	s := q.CurrentSummary(context.Background())

	assert.Zero(t, s.TotalProducts)
	assert.Zero(t, s.AverageBatchesPerProduct)
}

// Scenario: a product with a 7 day shelf life and a batch expiring in 3 days
// is flagged as expiring soon on the dashboard.
func TestExpiringSoonScenario(t *testing.T) {
	kv := store.NewMemoryKV()
	seedKV(t, kv, []models.Product{}, []models.Batch{})
	inv, _ := newTestService(t, kv)
	ctx := context.Background()
	_, _, err := inv.LoadOrSeed(ctx)
	require.NoError(t, err)
	q := NewQueryService(inv, clock.Fixed{T: testNow})

	p, err := inv.AddProduct(ctx, models.ProductDraft{Name: "Yoghurt", Category: "Dairy", ShelfLife: 7})
	require.NoError(t, err)
	_, err = inv.AddBatch(ctx, models.BatchDraft{ProductID: p.ID, Quantity: 12, ExpiryDate: freshness.DateAfter(testNow, 3)})
	require.NoError(t, err)

	s := q.CurrentSummary(ctx)
	assert.Equal(t, 1, s.ExpiringSoonBatches)
	assert.Equal(t, []string{p.ID}, s.ProductsAtRiskSoon)

	atRisk, err := q.QueryProducts(ctx, ProductFilter{Risk: models.StatusExpiringSoon})
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, productIDs(atRisk))

	// Scenario continued: deleting the product leaves the batch as an orphan
	require.NoError(t, inv.DeleteProduct(ctx, p.ID))
	views, err := q.QueryBatches(ctx, BatchFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Orphaned)
	assert.Equal(t, "Unknown product", views[0].Product.Name)
}
