package demodata

import (
	"math/rand"
	"testing"
	"time"

	"retailsmart/internal/freshness"
	"retailsmart/internal/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// checkInvariants returns an empty string when the dataset is valid, otherwise the reason
func checkInvariants(products []models.Product, batches []models.Batch, now time.Time) string {
	if len(products) == 0 {
		return "no products"
	}
	productIDs := make(map[string]int)
	for _, p := range products {
		if p.ID == "" || p.Name == "" {
			return "product without id or name"
		}
		if p.ShelfLife <= 0 {
			return "non-positive shelf life"
		}
		if _, dup := productIDs[p.ID]; dup {
			return "duplicate product id"
		}
		productIDs[p.ID] = 0
	}

	batchIDs := make(map[string]struct{})
	statuses := make(map[models.FreshnessStatus]int)
	for _, b := range batches {
		if _, dup := batchIDs[b.ID]; dup {
			return "duplicate batch id"
		}
		batchIDs[b.ID] = struct{}{}
		if _, ok := productIDs[b.ProductID]; !ok {
			return "batch references unknown product"
		}
		productIDs[b.ProductID]++
		if b.Quantity < minQuantity || b.Quantity > maxQuantity {
			return "quantity out of range"
		}
		days, ok := freshness.DaysUntil(b.ExpiryDate, now)
		if !ok || days < minOffsetDays || days > maxOffsetDays {
			return "expiry out of window"
		}
		statuses[freshness.Classify(b.ExpiryDate, now)]++
	}

	for _, n := range productIDs {
		if n < minBatchesPerProduct || n > maxBatchesPerProduct {
			return "batch count per product out of range"
		}
	}
	for _, s := range []models.FreshnessStatus{models.StatusExpired, models.StatusExpiringSoon, models.StatusFresh} {
		if statuses[s] == 0 {
			return "missing status " + string(s)
		}
	}
	return ""
}

func TestGenerateDefaultCount(t *testing.T) {
	g := NewGeneratorWithRand(rand.New(rand.NewSource(1)))
	products, batches := g.Generate(0, now)

	assert.Len(t, products, DefaultProductCount)
	assert.Empty(t, checkInvariants(products, batches, now))
}

func TestGenerateSingleProduct(t *testing.T) {
	g := NewGeneratorWithRand(rand.New(rand.NewSource(7)))
	products, batches := g.Generate(1, now)

	require.Len(t, products, 1)
	assert.Len(t, batches, 3)
	assert.Empty(t, checkInvariants(products, batches, now))
}

func TestGenerateMoreThanCatalog(t *testing.T) {
	g := NewGeneratorWithRand(rand.New(rand.NewSource(3)))
	products, batches := g.Generate(len(catalog)+2, now)

	require.Len(t, products, len(catalog)+2)
	assert.Equal(t, catalog[0].name+" #2", products[len(catalog)].Name)
	assert.Empty(t, checkInvariants(products, batches, now))
}

func TestGenerateDeterministicWithSeed(t *testing.T) {
	p1, b1 := NewGeneratorWithRand(rand.New(rand.NewSource(42))).Generate(5, now)
	p2, b2 := NewGeneratorWithRand(rand.New(rand.NewSource(42))).Generate(5, now)

	assert.Equal(t, p1, p2)
	assert.Equal(t, b1, b2)
}

func TestGenerateTwiceDiffers(t *testing.T) {
	g := NewGeneratorWithRand(rand.New(rand.NewSource(42)))
	p1, b1 := g.Generate(5, now)
	p2, b2 := g.Generate(5, now)

	assert.NotEqual(t, p1[0].ID, p2[0].ID)
	assert.Empty(t, checkInvariants(p1, b1, now))
	assert.Empty(t, checkInvariants(p2, b2, now))
}

func TestProperty_GeneratedDatasetInvariants(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every dataset satisfies the data model invariants", prop.ForAll(
		func(seed int64, count int) bool {
			g := NewGeneratorWithRand(rand.New(rand.NewSource(seed)))
			products, batches := g.Generate(count, now)
			if reason := checkInvariants(products, batches, now); reason != "" {
				t.Logf("seed=%d count=%d: %s", seed, count, reason)
				return false
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}
