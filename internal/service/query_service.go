package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"retailsmart/internal/analytics"
	"retailsmart/internal/apperr"
	"retailsmart/internal/clock"
	"retailsmart/internal/freshness"
	"retailsmart/internal/models"
	"retailsmart/internal/util"
)

// ProductFilter narrows QueryProducts. Active criteria are intersected.
type ProductFilter struct {
	// Search is matched case-insensitively against name, barcode and category
	Search string
	// Risk keeps products with at least one batch in this status (expiringSoon or expired)
	Risk models.FreshnessStatus
	// IDs restricts the result to these ids. nil means no restriction, an empty
	// non-nil slice matches nothing.
	IDs []string
}

// BatchFilter narrows QueryBatches. Active criteria are intersected.
type BatchFilter struct {
	// Status keeps batches with this freshness status
	Status models.FreshnessStatus
	// Search is matched against the resolved product's name, barcode and category.
	// Orphaned batches never match a non-empty search.
	Search string
	// ProductIDs restricts by product id with the same nil semantics as ProductFilter.IDs
	ProductIDs []string
}

// QueryService serves read-only filtered views over the inventory
type QueryService struct {
	inventory *InventoryService
	clock     clock.Clock
	memo      analytics.Memo
}

// NewQueryService creates a new query service
func NewQueryService(inventory *InventoryService, clk clock.Clock) *QueryService {
	if clk == nil {
		clk = clock.System{}
	}
	return &QueryService{
		inventory: inventory,
		clock:     clk,
	}
}

// QueryProducts returns the products matching filter in collection order
func (q *QueryService) QueryProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	_, span := util.StartSpan(ctx, "QueryService.QueryProducts")
	defer span.End()

	products, batches, _ := q.inventory.Snapshot()

	var risk map[string]struct{}
	if filter.Risk != "" {
		if filter.Risk != models.StatusExpiringSoon && filter.Risk != models.StatusExpired {
			return nil, apperr.NewValidationError("risk", fmt.Sprintf("unsupported risk filter %q", filter.Risk))
		}
		risk = analytics.Aggregate(batches, q.clock.Now()).ProductsAtRisk(filter.Risk)
	}
	allowed := idSet(filter.IDs)
	term := normalize(filter.Search)

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if allowed != nil {
			if _, ok := allowed[p.ID]; !ok {
				continue
			}
		}
		if risk != nil {
			if _, ok := risk[p.ID]; !ok {
				continue
			}
		}
		if !matchesProduct(p, term) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// QueryBatches returns batches with their product resolved and status derived.
// Batches of deleted products resolve to models.UnknownProduct.
func (q *QueryService) QueryBatches(ctx context.Context, filter BatchFilter) ([]models.BatchView, error) {
	_, span := util.StartSpan(ctx, "QueryService.QueryBatches")
	defer span.End()

	if filter.Status != "" {
		if _, ok := freshness.ParseStatus(string(filter.Status)); !ok {
			return nil, apperr.NewValidationError("status", fmt.Sprintf("unsupported status filter %q", filter.Status))
		}
	}
	allowed := idSet(filter.ProductIDs)
	term := normalize(filter.Search)
	now := q.clock.Now()

	products, batches, _ := q.inventory.Snapshot()
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]models.BatchView, 0, len(batches))
	for _, b := range batches {
		if allowed != nil {
			if _, ok := allowed[b.ProductID]; !ok {
				continue
			}
		}
		view := resolve(b, byID, now)
		if filter.Status != "" && view.Status != filter.Status {
			continue
		}
		// orphans have no product text to search
		if term != "" && (view.Orphaned || !matchesProduct(view.Product, term)) {
			continue
		}
		out = append(out, view)
	}
	return out, nil
}

// DashboardSummary returns the aggregates at now. Results are cached per data
// version and calendar day.
func (q *QueryService) DashboardSummary(ctx context.Context, now time.Time) models.Summary {
	_, span := util.StartSpan(ctx, "QueryService.DashboardSummary")
	defer span.End()

	return q.memo.Summary(q.inventory.Version(), now, func() ([]models.Product, []models.Batch) {
		products, batches, _ := q.inventory.Snapshot()
		return products, batches
	})
}

// CurrentSummary is DashboardSummary at the service clock's now
func (q *QueryService) CurrentSummary(ctx context.Context) models.Summary {
	return q.DashboardSummary(ctx, q.clock.Now())
}

func resolve(b models.Batch, byID map[string]models.Product, now time.Time) models.BatchView {
	view := models.BatchView{
		Batch:  b,
		Status: freshness.ClassifyBatch(b, now),
	}
	if days, ok := freshness.DaysUntil(b.ExpiryDate, now); ok {
		view.DaysUntil = &days
	}
	if p, ok := byID[b.ProductID]; ok {
		view.Product = p
	} else {
		view.Product = models.UnknownProduct
		view.Orphaned = true
	}
	return view
}

func matchesProduct(p models.Product, term string) bool {
	if term == "" {
		return true
	}
	for _, field := range []string{p.Name, p.Barcode, p.Category} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func idSet(ids []string) map[string]struct{} {
	if ids == nil {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
