package models

// Product represents a catalog item with its default shelf-life policy
type Product struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Barcode   string `json:"barcode"`
	Category  string `json:"category"`
	ShelfLife int    `json:"shelfLife"`
}

// Batch represents a physical lot of a product
type Batch struct {
	ID         string `json:"id"`
	ProductID  string `json:"productId"`
	Quantity   int    `json:"quantity"`
	ExpiryDate string `json:"expiryDate"`
	Location   string `json:"location"`
}

// ProductDraft is the user-supplied part of a new product
type ProductDraft struct {
	Name      string `json:"name" validate:"required"`
	Barcode   string `json:"barcode"`
	Category  string `json:"category"`
	ShelfLife int    `json:"shelfLife" validate:"gte=0"`
}

// BatchDraft is the user-supplied part of a new batch
type BatchDraft struct {
	ProductID  string `json:"productId" validate:"required"`
	Quantity   int    `json:"quantity" validate:"gt=0"`
	ExpiryDate string `json:"expiryDate" validate:"required,datetime=2006-01-02"`
	Location   string `json:"location"`
}

// DateLayout is the persisted format of Batch.ExpiryDate
const DateLayout = "2006-01-02"

// DefaultShelfLife applies when a product draft leaves shelf life unset
const DefaultShelfLife = 30

// DefaultLocation applies when a batch draft leaves location unset
const DefaultLocation = "Front Shelf"

// UncategorizedLabel is used in category distributions for products without a category
const UncategorizedLabel = "Uncategorized"

// Categories is the canonical category list offered to users. Free text is tolerated.
var Categories = []string{
	"Dairy", "Beverages", "Liquor", "Bakery", "Produce", "Snacks", "Frozen",
	"Meat", "Seafood", "Pantry", "Household", "Personal Care",
}

// Locations is the fixed set of storage locations
var Locations = []string{
	"Front Shelf", "Back Shelf", "Cold Storage", "Warehouse",
}

// UnknownProduct is substituted for batches whose product no longer exists
var UnknownProduct = Product{Name: "Unknown product"}

// FreshnessStatus is the derived state of a batch
type FreshnessStatus string

// Freshness statuses
const (
	StatusFresh        FreshnessStatus = "fresh"
	StatusExpiringSoon FreshnessStatus = "expiringSoon"
	StatusExpired      FreshnessStatus = "expired"
	StatusUnknown      FreshnessStatus = "unknown"
)

// BatchView is a batch with its product resolved and its status derived
type BatchView struct {
	Batch
	Product   Product         `json:"product"`
	Orphaned  bool            `json:"orphaned"`
	Status    FreshnessStatus `json:"status"`
	DaysUntil *int            `json:"daysUntil,omitempty"`
}

// Alert levels
const (
	AlertLevelDanger  = "danger"
	AlertLevelWarning = "warning"
	AlertLevelOK      = "ok"
)

// Alert is a dashboard priority alert
type Alert struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Summary holds the dashboard aggregates
type Summary struct {
	AsOf                     string         `json:"asOf"`
	TotalProducts            int            `json:"totalProducts"`
	TotalBatches             int            `json:"totalBatches"`
	FreshBatches             int            `json:"freshBatches"`
	ExpiringSoonBatches      int            `json:"expiringSoonBatches"`
	ExpiredBatches           int            `json:"expiredBatches"`
	UnknownBatches           int            `json:"unknownBatches"`
	ProductsAtRiskSoon       []string       `json:"productsAtRiskSoon"`
	ProductsAtRiskExpired    []string       `json:"productsAtRiskExpired"`
	AverageBatchesPerProduct float64        `json:"averageBatchesPerProduct"`
	CategoryDistribution     map[string]int `json:"categoryDistribution"`
	Alerts                   []Alert        `json:"alerts"`
}
