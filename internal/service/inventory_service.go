package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"retailsmart/internal/apperr"
	"retailsmart/internal/clock"
	"retailsmart/internal/demodata"
	"retailsmart/internal/freshness"
	"retailsmart/internal/models"
	"retailsmart/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotLoaded is returned by mutations before LoadOrSeed or after Close
var ErrNotLoaded = errors.New("inventory not loaded")

// KeyValueStore is the durable backing store
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, entries map[string]string) error
}

// EventPublisher receives an event after every applied mutation
type EventPublisher interface {
	PublishInventoryEvent(ctx context.Context, event *models.InventoryEvent) error
}

// DatasetGenerator produces demo datasets
type DatasetGenerator interface {
	Generate(productCount int, now time.Time) ([]models.Product, []models.Batch)
}

// Keys names the two backing-store keys
type Keys struct {
	Products string
	Batches  string
}

// DefaultKeys are used when Options.Keys is left empty
var DefaultKeys = Keys{
	Products: "retailsmart.products",
	Batches:  "retailsmart.batches",
}

// Options configures an InventoryService. Zero values fall back to defaults.
type Options struct {
	Keys             Keys
	DemoProductCount int
	Clock            clock.Clock
	Generator        DatasetGenerator
	Publisher        EventPublisher
}

// InventoryService owns the canonical product and batch collections and keeps
// them in sync with the backing store. Reads return copies.
type InventoryService struct {
	kv        KeyValueStore
	keys      Keys
	clock     clock.Clock
	generator DatasetGenerator
	publisher EventPublisher
	demoCount int
	validate  *validator.Validate
	logger    *zap.Logger

	mu       sync.RWMutex
	loaded   bool
	version  uint64
	products []models.Product
	batches  []models.Batch
}

// NewInventoryService creates a new inventory service. Call LoadOrSeed before use.
func NewInventoryService(kv KeyValueStore, opts Options) *InventoryService {
	if opts.Keys.Products == "" || opts.Keys.Batches == "" {
		opts.Keys = DefaultKeys
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Generator == nil {
		opts.Generator = demodata.NewGenerator()
	}
	if opts.Publisher == nil {
		opts.Publisher = noopPublisher{}
	}

	return &InventoryService{
		kv:        kv,
		keys:      opts.Keys,
		clock:     opts.Clock,
		generator: opts.Generator,
		publisher: opts.Publisher,
		demoCount: opts.DemoProductCount,
		validate:  newValidator(),
		logger:    util.GetLogger(),
	}
}

// LoadOrSeed adopts the persisted collections, or replaces both with a demo
// dataset when either key is missing or malformed. A store that cannot be read
// is reported and left untouched. A returned PersistenceError means the
// collections are loaded but the seed could not be written.
func (s *InventoryService) LoadOrSeed(ctx context.Context) ([]models.Product, []models.Batch, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.LoadOrSeed")
	defer span.End()

	var products []models.Product
	var batches []models.Batch
	var persistErr error
	event, err := s.locked(func() (*models.InventoryEvent, error) {
		var err error
		products, batches, err = s.load(ctx)
		if err == nil {
			s.replace(products, batches)
			s.logger.Info("Inventory loaded",
				zap.Int("products", len(products)),
				zap.Int("batches", len(batches)))
			return nil, nil
		}

		reason := "missing"
		var parseErr *apperr.ParseError
		switch {
		case errors.As(err, &parseErr):
			reason = "malformed"
			s.logger.Warn("Stored inventory is malformed, seeding demo data", zap.Error(err))
		case errors.Is(err, apperr.ErrKeyNotFound):
			s.logger.Info("No stored inventory, seeding demo data", zap.Error(err))
		default:
			s.logger.Error("Failed to read stored inventory", zap.Error(err))
			return nil, fmt.Errorf("failed to read stored inventory: %w", err)
		}

		products, batches = s.generator.Generate(s.demoCount, s.clock.Now())
		s.replace(products, batches)
		util.DatasetSeededTotal.WithLabelValues(reason).Inc()

		persistErr = s.persistBoth(ctx, "seed")
		return &models.InventoryEvent{
			BaseEvent: newBaseEvent(models.EventTypeDatasetSeeded),
			Products:  len(products),
			Batches:   len(batches),
			Reason:    reason,
		}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.publish(ctx, event)

	return cloneProducts(products), cloneBatches(batches), persistErr
}

// load reads both keys. A read failure other than a missing key wins over
// ErrKeyNotFound so a flaky store is never mistaken for an empty one.
func (s *InventoryService) load(ctx context.Context) ([]models.Product, []models.Batch, error) {
	rawProducts, productsErr := s.kv.Get(ctx, s.keys.Products)
	rawBatches, batchesErr := s.kv.Get(ctx, s.keys.Batches)
	for _, err := range []error{productsErr, batchesErr} {
		if err != nil && !errors.Is(err, apperr.ErrKeyNotFound) {
			return nil, nil, err
		}
	}
	if productsErr != nil {
		return nil, nil, productsErr
	}
	if batchesErr != nil {
		return nil, nil, batchesErr
	}

	var products []models.Product
	if err := decodeArray(rawProducts, &products); err != nil {
		return nil, nil, &apperr.ParseError{Key: s.keys.Products, Err: err}
	}
	var batches []models.Batch
	if err := decodeArray(rawBatches, &batches); err != nil {
		return nil, nil, &apperr.ParseError{Key: s.keys.Batches, Err: err}
	}
	return products, batches, nil
}

// decodeArray accepts only a JSON array; null and other JSON values are rejected
func decodeArray[T any](raw string, out *[]T) error {
	if !strings.HasPrefix(strings.TrimSpace(raw), "[") {
		return errors.New("payload is not a JSON array")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return err
	}
	if *out == nil {
		*out = []T{}
	}
	return nil
}

// Close releases the in-memory collections. Mutations fail until the next LoadOrSeed.
func (s *InventoryService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	s.products = nil
	s.batches = nil
}

// Products returns a copy of the product collection
func (s *InventoryService) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products)
}

// Batches returns a copy of the batch collection
func (s *InventoryService) Batches() []models.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBatches(s.batches)
}

// Snapshot returns copies of both collections and the version they belong to
func (s *InventoryService) Snapshot() ([]models.Product, []models.Batch, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProducts(s.products), cloneBatches(s.batches), s.version
}

// Loaded reports whether LoadOrSeed has completed and Close has not been called
func (s *InventoryService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Version increases on every change to either collection
func (s *InventoryService) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Product looks up a product by id
func (s *InventoryService) Product(id string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// SuggestExpiryDate returns today plus the product's shelf life, the default expiry of a new batch
func (s *InventoryService) SuggestExpiryDate(productID string) (string, error) {
	p, ok := s.Product(productID)
	if !ok {
		return "", fmt.Errorf("product %s: %w", productID, apperr.ErrNotFound)
	}
	shelfLife := p.ShelfLife
	if shelfLife <= 0 {
		shelfLife = models.DefaultShelfLife
	}
	return freshness.DateAfter(s.clock.Now(), shelfLife), nil
}

// AddProduct validates draft and appends a new product
func (s *InventoryService) AddProduct(ctx context.Context, draft models.ProductDraft) (models.Product, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AddProduct")
	defer span.End()

	draft.Name = strings.TrimSpace(draft.Name)
	draft.Barcode = strings.TrimSpace(draft.Barcode)
	draft.Category = strings.TrimSpace(draft.Category)
	if err := s.validate.Struct(draft); err != nil {
		util.ValidationFailuresTotal.WithLabelValues("add_product").Inc()
		return models.Product{}, apperr.FromValidator(err)
	}
	if draft.ShelfLife == 0 {
		draft.ShelfLife = models.DefaultShelfLife
	}

	var product models.Product
	err := s.mutate(ctx, func() (*models.InventoryEvent, error) {
		if !s.loaded {
			return nil, ErrNotLoaded
		}

		product = models.Product{
			ID:        uuid.New().String(),
			Name:      draft.Name,
			Barcode:   draft.Barcode,
			Category:  draft.Category,
			ShelfLife: draft.ShelfLife,
		}
		s.products = append(s.products, product)
		s.version++
		util.ProductsAddedTotal.Inc()

		s.logger.Info("Product added",
			zap.String("product_id", product.ID),
			zap.String("name", product.Name))

		published := product
		return &models.InventoryEvent{
			BaseEvent: newBaseEvent(models.EventTypeProductAdded),
			EntityID:  product.ID,
			Product:   &published,
		}, s.persistProducts(ctx, "add_product")
	})
	return product, err
}

// DeleteProduct removes a product. Its batches are kept and become orphans.
func (s *InventoryService) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.DeleteProduct")
	defer span.End()

	return s.mutate(ctx, func() (*models.InventoryEvent, error) {
		if !s.loaded {
			return nil, ErrNotLoaded
		}

		idx := -1
		for i := range s.products {
			if s.products[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
		}

		removed := s.products[idx]
		s.products = append(s.products[:idx:idx], s.products[idx+1:]...)
		s.version++
		util.ProductsDeletedTotal.Inc()

		orphans := 0
		for _, b := range s.batches {
			if b.ProductID == id {
				orphans++
			}
		}
		s.logger.Info("Product deleted",
			zap.String("product_id", id),
			zap.Int("orphaned_batches", orphans))

		return &models.InventoryEvent{
			BaseEvent: newBaseEvent(models.EventTypeProductDeleted),
			EntityID:  id,
			Product:   &removed,
		}, s.persistProducts(ctx, "delete_product")
	})
}

// AddBatch validates draft and appends a new batch. An unknown product id is
// accepted and surfaces as an orphan at read time.
func (s *InventoryService) AddBatch(ctx context.Context, draft models.BatchDraft) (models.Batch, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.AddBatch")
	defer span.End()

	draft.ProductID = strings.TrimSpace(draft.ProductID)
	draft.ExpiryDate = strings.TrimSpace(draft.ExpiryDate)
	draft.Location = strings.TrimSpace(draft.Location)
	if err := s.validate.Struct(draft); err != nil {
		util.ValidationFailuresTotal.WithLabelValues("add_batch").Inc()
		return models.Batch{}, apperr.FromValidator(err)
	}
	if draft.Location == "" {
		draft.Location = models.DefaultLocation
	}

	var batch models.Batch
	err := s.mutate(ctx, func() (*models.InventoryEvent, error) {
		if !s.loaded {
			return nil, ErrNotLoaded
		}

		known := false
		for _, p := range s.products {
			if p.ID == draft.ProductID {
				known = true
				break
			}
		}
		if !known {
			s.logger.Warn("Batch references unknown product", zap.String("product_id", draft.ProductID))
		}

		batch = models.Batch{
			ID:         uuid.New().String(),
			ProductID:  draft.ProductID,
			Quantity:   draft.Quantity,
			ExpiryDate: draft.ExpiryDate,
			Location:   draft.Location,
		}
		s.batches = append(s.batches, batch)
		s.version++
		util.BatchesAddedTotal.Inc()

		s.logger.Info("Batch added",
			zap.String("batch_id", batch.ID),
			zap.String("product_id", batch.ProductID),
			zap.String("expiry_date", batch.ExpiryDate))

		published := batch
		return &models.InventoryEvent{
			BaseEvent: newBaseEvent(models.EventTypeBatchAdded),
			EntityID:  batch.ID,
			Batch:     &published,
		}, s.persistBatches(ctx, "add_batch")
	})
	return batch, err
}

// DeleteBatch removes a batch. Products are untouched.
func (s *InventoryService) DeleteBatch(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.DeleteBatch")
	defer span.End()

	return s.mutate(ctx, func() (*models.InventoryEvent, error) {
		if !s.loaded {
			return nil, ErrNotLoaded
		}

		idx := -1
		for i := range s.batches {
			if s.batches[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("batch %s: %w", id, apperr.ErrNotFound)
		}

		removed := s.batches[idx]
		s.batches = append(s.batches[:idx:idx], s.batches[idx+1:]...)
		s.version++
		util.BatchesDeletedTotal.Inc()

		s.logger.Info("Batch deleted", zap.String("batch_id", id))

		return &models.InventoryEvent{
			BaseEvent: newBaseEvent(models.EventTypeBatchDeleted),
			EntityID:  id,
			Batch:     &removed,
		}, s.persistBatches(ctx, "delete_batch")
	})
}

// ReplaceAll atomically swaps both collections and persists them together
func (s *InventoryService) ReplaceAll(ctx context.Context, products []models.Product, batches []models.Batch) error {
	ctx, span := util.StartSpan(ctx, "InventoryService.ReplaceAll")
	defer span.End()

	_, err := s.locked(func() (*models.InventoryEvent, error) {
		return nil, s.replaceAndPersist(ctx, products, batches, "replace_all")
	})
	return err
}

// ResetDemoData replaces both collections with a freshly generated demo dataset.
// Asking the user for confirmation is the caller's job.
func (s *InventoryService) ResetDemoData(ctx context.Context) ([]models.Product, []models.Batch, error) {
	ctx, span := util.StartSpan(ctx, "InventoryService.ResetDemoData")
	defer span.End()

	var products []models.Product
	var batches []models.Batch
	err := s.mutate(ctx, func() (*models.InventoryEvent, error) {
		products, batches = s.generator.Generate(s.demoCount, s.clock.Now())
		err := s.replaceAndPersist(ctx, products, batches, "reset")
		util.DatasetSeededTotal.WithLabelValues("reset").Inc()

		s.logger.Info("Demo data reset",
			zap.Int("products", len(products)),
			zap.Int("batches", len(batches)))

		return &models.InventoryEvent{
			BaseEvent: newBaseEvent(models.EventTypeDatasetReset),
			Products:  len(products),
			Batches:   len(batches),
			Reason:    "reset",
		}, err
	})
	return cloneProducts(products), cloneBatches(batches), err
}

// locked runs fn while holding the write lock
func (s *InventoryService) locked(fn func() (*models.InventoryEvent, error)) (*models.InventoryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// mutate runs fn under the write lock and publishes the event it returns once
// the lock is released, so a slow broker never blocks readers
func (s *InventoryService) mutate(ctx context.Context, fn func() (*models.InventoryEvent, error)) error {
	event, err := s.locked(fn)
	s.publish(ctx, event)
	return err
}

// replaceAndPersist must be called with mu held
func (s *InventoryService) replaceAndPersist(ctx context.Context, products []models.Product, batches []models.Batch, op string) error {
	s.replace(cloneProducts(products), cloneBatches(batches))
	return s.persistBoth(ctx, op)
}

func (s *InventoryService) replace(products []models.Product, batches []models.Batch) {
	if products == nil {
		products = []models.Product{}
	}
	if batches == nil {
		batches = []models.Batch{}
	}
	s.products = products
	s.batches = batches
	s.version++
	s.loaded = true
}

func (s *InventoryService) persistProducts(ctx context.Context, op string) error {
	return s.persist(ctx, op, map[string]interface{}{s.keys.Products: s.products})
}

func (s *InventoryService) persistBatches(ctx context.Context, op string) error {
	return s.persist(ctx, op, map[string]interface{}{s.keys.Batches: s.batches})
}

func (s *InventoryService) persistBoth(ctx context.Context, op string) error {
	return s.persist(ctx, op, map[string]interface{}{
		s.keys.Products: s.products,
		s.keys.Batches:  s.batches,
	})
}

// persist writes the given collections. Failures are returned as PersistenceError
// and never undo the in-memory state.
func (s *InventoryService) persist(ctx context.Context, op string, values map[string]interface{}) error {
	start := time.Now()
	defer func() {
		util.PersistLatency.Observe(time.Since(start).Seconds())
	}()

	entries := make(map[string]string, len(values))
	keys := make([]string, 0, len(values))
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return s.persistFailed(op, []string{k}, err)
		}
		entries[k] = string(raw)
		keys = append(keys, k)
	}

	var err error
	if len(entries) == 1 {
		err = s.kv.Set(ctx, keys[0], entries[keys[0]])
	} else {
		err = s.kv.SetMany(ctx, entries)
	}
	if err != nil {
		return s.persistFailed(op, keys, err)
	}
	return nil
}

func (s *InventoryService) persistFailed(op string, keys []string, err error) error {
	util.PersistenceFailuresTotal.WithLabelValues(op).Inc()
	s.logger.Error("Failed to persist inventory",
		zap.String("operation", op),
		zap.Strings("keys", keys),
		zap.Error(err))
	return &apperr.PersistenceError{Keys: keys, Err: err}
}

func (s *InventoryService) publish(ctx context.Context, event *models.InventoryEvent) {
	if event == nil {
		return
	}
	if err := s.publisher.PublishInventoryEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish inventory event",
			zap.String("event_type", event.EventType),
			zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type noopPublisher struct{}

func (noopPublisher) PublishInventoryEvent(context.Context, *models.InventoryEvent) error {
	return nil
}

func cloneProducts(in []models.Product) []models.Product {
	if in == nil {
		return nil
	}
	return append(make([]models.Product, 0, len(in)), in...)
}

func cloneBatches(in []models.Batch) []models.Batch {
	if in == nil {
		return nil
	}
	return append(make([]models.Batch, 0, len(in)), in...)
}
