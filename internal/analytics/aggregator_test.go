package analytics

import (
	"testing"
	"time"

	"retailsmart/internal/freshness"
	"retailsmart/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func batch(id, productID string, offset int) models.Batch {
	return models.Batch{
		ID:         id,
		ProductID:  productID,
		Quantity:   1,
		ExpiryDate: freshness.DateAfter(now, offset),
		Location:   models.DefaultLocation,
	}
}

func TestAggregatePartitions(t *testing.T) {
	batches := []models.Batch{
		batch("b1", "p1", -2),
		batch("b2", "p1", 20),
		batch("b3", "p2", 3),
		batch("b4", "p3", 0),
		{ID: "b5", ProductID: "p4", Quantity: 1, ExpiryDate: "garbage"},
	}

	r := Aggregate(batches, now)

	assert.Len(t, r.Expired, 1)
	assert.Len(t, r.ExpiringSoon, 2)
	assert.Len(t, r.Fresh, 1)
	assert.Len(t, r.Unknown, 1)
	assert.Equal(t, map[string]struct{}{"p1": {}}, r.AtRiskExpired)
	assert.Equal(t, map[string]struct{}{"p2": {}, "p3": {}}, r.AtRiskSoon)
}

func TestProductsAtRiskIsAnyBatch(t *testing.T) {
	batches := []models.Batch{batch("b1", "p1", -1)}
	r := Aggregate(batches, now)
	require.Contains(t, r.ProductsAtRisk(models.StatusExpired), "p1")

	// a fresh batch does not remove the product from the set
	batches = append(batches, batch("b2", "p1", 60))
	r = Aggregate(batches, now)
	assert.Contains(t, r.ProductsAtRisk(models.StatusExpired), "p1")

	// removing every expired batch does
	r = Aggregate(batches[1:], now)
	assert.NotContains(t, r.ProductsAtRisk(models.StatusExpired), "p1")
}

func TestProductsAtRiskDistinct(t *testing.T) {
	batches := []models.Batch{
		batch("b1", "p1", 1),
		batch("b2", "p1", 2),
		batch("b3", "p1", 3),
	}
	s := Summarize(nil, batches, now)
	assert.Equal(t, 3, s.ExpiringSoonBatches)
	assert.Equal(t, []string{"p1"}, s.ProductsAtRiskSoon)
}

func TestAverageBatchesPerProduct(t *testing.T) {
	assert.Equal(t, 0.0, AverageBatchesPerProduct(0, 0))
	assert.Equal(t, 0.0, AverageBatchesPerProduct(0, 12))
	assert.Equal(t, 2.5, AverageBatchesPerProduct(2, 5))
}

func TestSummarize(t *testing.T) {
	products := []models.Product{
		{ID: "p1", Name: "Milk", Category: "Dairy", ShelfLife: 7},
		{ID: "p2", Name: "Yogurt", Category: "Dairy", ShelfLife: 14},
		{ID: "p3", Name: "Mystery"},
	}
	batches := []models.Batch{
		batch("b1", "p1", 3),
		batch("b2", "p2", -5),
		batch("b3", "p2", 40),
		batch("b4", "ghost", -1),
	}

	s := Summarize(products, batches, now)

	assert.Equal(t, "2024-03-10", s.AsOf)
	assert.Equal(t, 3, s.TotalProducts)
	assert.Equal(t, 4, s.TotalBatches)
	assert.Equal(t, 1, s.FreshBatches)
	assert.Equal(t, 1, s.ExpiringSoonBatches)
	assert.Equal(t, 2, s.ExpiredBatches)
	assert.Equal(t, 0, s.UnknownBatches)
	assert.Equal(t, []string{"p1"}, s.ProductsAtRiskSoon)
	assert.Equal(t, []string{"ghost", "p2"}, s.ProductsAtRiskExpired)
	assert.InDelta(t, 4.0/3.0, s.AverageBatchesPerProduct, 1e-9)
	assert.Equal(t, map[string]int{"Dairy": 2, models.UncategorizedLabel: 1}, s.CategoryDistribution)
	require.Len(t, s.Alerts, 2)
	assert.Equal(t, models.AlertLevelDanger, s.Alerts[0].Level)
	assert.Equal(t, models.AlertLevelWarning, s.Alerts[1].Level)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil, now)
	assert.Zero(t, s.TotalProducts)
	assert.Zero(t, s.AverageBatchesPerProduct)
	assert.Empty(t, s.ProductsAtRiskSoon)
	require.Len(t, s.Alerts, 1)
	assert.Equal(t, models.AlertLevelOK, s.Alerts[0].Level)
}

func TestSummarizeDoesNotMutate(t *testing.T) {
	products := []models.Product{{ID: "p1", Name: "Milk"}}
	batches := []models.Batch{batch("b1", "p1", 1), batch("b2", "p1", -1)}
	origP := append([]models.Product(nil), products...)
	origB := append([]models.Batch(nil), batches...)

	Summarize(products, batches, now)

	assert.Equal(t, origP, products)
	assert.Equal(t, origB, batches)
}

func TestMemo(t *testing.T) {
	var m Memo
	loads := 0
	load := func() ([]models.Product, []models.Batch) {
		loads++
		return []models.Product{{ID: "p1"}}, []models.Batch{batch("b1", "p1", 8)}
	}

	first := m.Summary(1, now, load)
	second := m.Summary(1, now.Add(3*time.Hour), load)
	assert.Equal(t, 1, loads)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, first.FreshBatches)

	m.Summary(2, now, load)
	assert.Equal(t, 2, loads)

	// next day the batch crosses the window boundary
	tomorrow := m.Summary(2, now.Add(24*time.Hour), load)
	assert.Equal(t, 3, loads)
	assert.Equal(t, 1, tomorrow.ExpiringSoonBatches)
}

func TestMemoResultsAreIndependent(t *testing.T) {
	var m Memo
	load := func() ([]models.Product, []models.Batch) {
		return []models.Product{{ID: "p1", Category: "Dairy"}, {ID: "p2"}},
			[]models.Batch{batch("b1", "p1", 2), batch("b2", "p2", -1)}
	}

	first := m.Summary(1, now, load)
	first.CategoryDistribution["Dairy"] = 99
	first.ProductsAtRiskSoon[0] = "tampered"
	first.ProductsAtRiskExpired = append(first.ProductsAtRiskExpired, "extra")
	first.Alerts[0].Title = "tampered"

	second := m.Summary(1, now, load)
	assert.Equal(t, 1, second.CategoryDistribution["Dairy"])
	assert.Equal(t, []string{"p1"}, second.ProductsAtRiskSoon)
	assert.Equal(t, []string{"p2"}, second.ProductsAtRiskExpired)
	assert.NotEqual(t, "tampered", second.Alerts[0].Title)
}
