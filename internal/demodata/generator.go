package demodata

import (
	"fmt"
	"math/rand"
	"time"

	"retailsmart/internal/freshness"
	"retailsmart/internal/models"

	"github.com/google/uuid"
)

// DefaultProductCount is used when Generate is called with a non-positive count
const DefaultProductCount = 12

const (
	minBatchesPerProduct = 1
	maxBatchesPerProduct = 3
	minQuantity          = 1
	maxQuantity          = 50
	minOffsetDays        = -30
	maxOffsetDays        = 180
)

type template struct {
	name      string
	category  string
	shelfLife int
}

var catalog = []template{
	{"Whole Milk 1L", "Dairy", 10},
	{"Greek Yogurt 500g", "Dairy", 21},
	{"Orange Juice 1L", "Beverages", 30},
	{"Sparkling Water 6-pack", "Beverages", 365},
	{"Red Wine 750ml", "Liquor", 720},
	{"Sourdough Loaf", "Bakery", 4},
	{"Baby Spinach 200g", "Produce", 6},
	{"Gala Apples 1kg", "Produce", 28},
	{"Sea Salt Crisps", "Snacks", 120},
	{"Frozen Peas 1kg", "Frozen", 240},
	{"Chicken Breast 500g", "Meat", 5},
	{"Smoked Salmon 200g", "Seafood", 14},
	{"Basmati Rice 2kg", "Pantry", 540},
	{"Dish Soap 750ml", "Household", 900},
	{"Sunscreen SPF50", "Personal Care", 365},
}

// Generator builds self-consistent demo datasets
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded from the wall clock
func NewGenerator() *Generator {
	return NewGeneratorWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewGeneratorWithRand creates a generator drawing from rng. A fixed seed gives
// a reproducible dataset for a fixed now.
func NewGeneratorWithRand(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Generate returns productCount products with 1-3 batches each, expiring relative to now.
// At least one batch is Expired, one ExpiringSoon and one Fresh.
func (g *Generator) Generate(productCount int, now time.Time) ([]models.Product, []models.Batch) {
	if productCount <= 0 {
		productCount = DefaultProductCount
	}

	ids := make(map[string]struct{})
	products := make([]models.Product, 0, productCount)
	for i := 0; i < productCount; i++ {
		tpl := catalog[i%len(catalog)]
		name := tpl.name
		if round := i / len(catalog); round > 0 {
			name = fmt.Sprintf("%s #%d", tpl.name, round+1)
		}
		products = append(products, models.Product{
			ID:        g.newID("prd", ids),
			Name:      name,
			Barcode:   g.barcode(),
			Category:  tpl.category,
			ShelfLife: tpl.shelfLife,
		})
	}

	counts := g.batchCounts(len(products))

	// the first three batches are pinned to one status each
	pinned := []models.FreshnessStatus{models.StatusExpired, models.StatusExpiringSoon, models.StatusFresh}

	var batches []models.Batch
	for i, p := range products {
		for j := 0; j < counts[i]; j++ {
			var offset int
			if n := len(batches); n < len(pinned) {
				offset = g.offsetFor(pinned[n], p.ShelfLife)
			} else {
				offset = g.between(minOffsetDays, upperOffset(p.ShelfLife))
			}
			batches = append(batches, models.Batch{
				ID:         g.newID("bat", ids),
				ProductID:  p.ID,
				Quantity:   g.between(minQuantity, maxQuantity),
				ExpiryDate: freshness.DateAfter(now, offset),
				Location:   models.Locations[g.rng.Intn(len(models.Locations))],
			})
		}
	}

	return products, batches
}

// batchCounts draws 1-3 batches per product, topping up so the dataset holds at least three
func (g *Generator) batchCounts(n int) []int {
	counts := make([]int, n)
	total := 0
	for i := range counts {
		counts[i] = g.between(minBatchesPerProduct, maxBatchesPerProduct)
		total += counts[i]
	}
	for i := 0; total < 3 && i < n; i++ {
		add := maxBatchesPerProduct - counts[i]
		if add > 3-total {
			add = 3 - total
		}
		counts[i] += add
		total += add
	}
	return counts
}

func (g *Generator) offsetFor(status models.FreshnessStatus, shelfLife int) int {
	switch status {
	case models.StatusExpired:
		return g.between(minOffsetDays, -1)
	case models.StatusExpiringSoon:
		return g.between(0, freshness.SoonWindowDays)
	default:
		lo := freshness.SoonWindowDays + 1
		hi := upperOffset(shelfLife)
		if hi < lo {
			hi = lo
		}
		return g.between(lo, hi)
	}
}

func upperOffset(shelfLife int) int {
	if shelfLife < maxOffsetDays {
		return shelfLife
	}
	return maxOffsetDays
}

// between returns a uniform integer in [lo, hi]
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) barcode() string {
	return fmt.Sprintf("%013d", g.rng.Int63n(1e13))
}

func (g *Generator) newID(prefix string, seen map[string]struct{}) string {
	for {
		u, err := uuid.NewRandomFromReader(g.rng)
		if err != nil {
			u = uuid.New()
		}
		id := prefix + "-" + u.String()[:13]
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			return id
		}
	}
}
