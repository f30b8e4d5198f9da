package analytics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"retailsmart/internal/freshness"
	"retailsmart/internal/models"
)

// Result holds the batch-level partitions and the product-level risk sets
type Result struct {
	Fresh        []models.Batch
	ExpiringSoon []models.Batch
	Expired      []models.Batch
	Unknown      []models.Batch

	// AtRiskSoon and AtRiskExpired are sets of distinct product ids referenced by
	// ExpiringSoon and Expired respectively
	AtRiskSoon    map[string]struct{}
	AtRiskExpired map[string]struct{}
}

// Aggregate partitions batches by freshness at now. It does not mutate its inputs.
func Aggregate(batches []models.Batch, now time.Time) Result {
	r := Result{
		AtRiskSoon:    make(map[string]struct{}),
		AtRiskExpired: make(map[string]struct{}),
	}
	for _, b := range batches {
		switch freshness.ClassifyBatch(b, now) {
		case models.StatusExpired:
			r.Expired = append(r.Expired, b)
			r.AtRiskExpired[b.ProductID] = struct{}{}
		case models.StatusExpiringSoon:
			r.ExpiringSoon = append(r.ExpiringSoon, b)
			r.AtRiskSoon[b.ProductID] = struct{}{}
		case models.StatusFresh:
			r.Fresh = append(r.Fresh, b)
		default:
			r.Unknown = append(r.Unknown, b)
		}
	}
	return r
}

// ProductsAtRisk returns the at-risk set for a status. Only ExpiringSoon and Expired have one.
func (r Result) ProductsAtRisk(status models.FreshnessStatus) map[string]struct{} {
	switch status {
	case models.StatusExpiringSoon:
		return r.AtRiskSoon
	case models.StatusExpired:
		return r.AtRiskExpired
	default:
		return nil
	}
}

// Batches returns the partition for a status
func (r Result) Batches(status models.FreshnessStatus) []models.Batch {
	switch status {
	case models.StatusFresh:
		return r.Fresh
	case models.StatusExpiringSoon:
		return r.ExpiringSoon
	case models.StatusExpired:
		return r.Expired
	default:
		return r.Unknown
	}
}

// AverageBatchesPerProduct is totalBatches / totalProducts, or 0 without products
func AverageBatchesPerProduct(totalProducts, totalBatches int) float64 {
	if totalProducts == 0 {
		return 0
	}
	return float64(totalBatches) / float64(totalProducts)
}

// CategoryDistribution counts products per category label
func CategoryDistribution(products []models.Product) map[string]int {
	dist := make(map[string]int)
	for _, p := range products {
		label := p.Category
		if label == "" {
			label = models.UncategorizedLabel
		}
		dist[label]++
	}
	return dist
}

// Summarize computes the dashboard summary
func Summarize(products []models.Product, batches []models.Batch, now time.Time) models.Summary {
	r := Aggregate(batches, now)

	s := models.Summary{
		AsOf:                     freshness.DateAfter(now, 0),
		TotalProducts:            len(products),
		TotalBatches:             len(batches),
		FreshBatches:             len(r.Fresh),
		ExpiringSoonBatches:      len(r.ExpiringSoon),
		ExpiredBatches:           len(r.Expired),
		UnknownBatches:           len(r.Unknown),
		ProductsAtRiskSoon:       sortedKeys(r.AtRiskSoon),
		ProductsAtRiskExpired:    sortedKeys(r.AtRiskExpired),
		AverageBatchesPerProduct: AverageBatchesPerProduct(len(products), len(batches)),
		CategoryDistribution:     CategoryDistribution(products),
	}
	s.Alerts = alerts(s)
	return s
}

func alerts(s models.Summary) []models.Alert {
	var out []models.Alert
	if s.ExpiredBatches > 0 {
		out = append(out, models.Alert{
			Level:   models.AlertLevelDanger,
			Title:   fmt.Sprintf("%d expired items", s.ExpiredBatches),
			Message: "These products have passed their expiry date and should be removed from shelves.",
		})
	}
	if s.ExpiringSoonBatches > 0 {
		out = append(out, models.Alert{
			Level:   models.AlertLevelWarning,
			Title:   fmt.Sprintf("%d items expiring soon", s.ExpiringSoonBatches),
			Message: "Consider creating promotions or moving these to the front of shelves.",
		})
	}
	if s.UnknownBatches > 0 {
		out = append(out, models.Alert{
			Level:   models.AlertLevelWarning,
			Title:   fmt.Sprintf("%d items with an unreadable expiry date", s.UnknownBatches),
			Message: "Check the expiry date of these batches.",
		})
	}
	if len(out) == 0 {
		out = append(out, models.Alert{
			Level:   models.AlertLevelOK,
			Title:   "All products are in good condition",
			Message: "No expired or soon-to-expire items found.",
		})
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Memo caches the last summary per (data version, calendar day)
type Memo struct {
	mu      sync.Mutex
	version uint64
	day     string
	valid   bool
	summary models.Summary
}

// Summary returns a copy of the cached summary when version and day match,
// otherwise recomputes. load is only called on a miss.
func (m *Memo) Summary(version uint64, now time.Time, load func() ([]models.Product, []models.Batch)) models.Summary {
	day := freshness.DateAfter(now, 0)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.version == version && m.day == day {
		return cloneSummary(m.summary)
	}
	products, batches := load()
	m.summary = Summarize(products, batches, now)
	m.version = version
	m.day = day
	m.valid = true
	return cloneSummary(m.summary)
}

func cloneSummary(s models.Summary) models.Summary {
	s.ProductsAtRiskSoon = append(make([]string, 0, len(s.ProductsAtRiskSoon)), s.ProductsAtRiskSoon...)
	s.ProductsAtRiskExpired = append(make([]string, 0, len(s.ProductsAtRiskExpired)), s.ProductsAtRiskExpired...)
	s.Alerts = append(make([]models.Alert, 0, len(s.Alerts)), s.Alerts...)
	dist := make(map[string]int, len(s.CategoryDistribution))
	for k, v := range s.CategoryDistribution {
		dist[k] = v
	}
	s.CategoryDistribution = dist
	return s
}
