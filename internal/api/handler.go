package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"retailsmart/internal/apperr"
	"retailsmart/internal/models"
	"retailsmart/internal/service"
	"retailsmart/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	inventory *service.InventoryService
	query     *service.QueryService
	labels    models.Labels
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(inventory *service.InventoryService, query *service.QueryService, mode models.DomainMode) *Handler {
	return &Handler{
		inventory: inventory,
		query:     query,
		labels:    models.LabelsFor(mode),
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.POST("/products", h.createProduct)
		v1.DELETE("/products/:id", h.deleteProduct)
		v1.GET("/products/:id/suggested-expiry", h.suggestedExpiry)

		v1.GET("/batches", h.listBatches)
		v1.POST("/batches", h.createBatch)
		v1.DELETE("/batches/:id", h.deleteBatch)

		v1.GET("/dashboard", h.dashboard)
		v1.GET("/labels", h.getLabels)
		v1.POST("/demo/reset", h.resetDemo)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the inventory is loaded
func (h *Handler) readinessCheck(c *gin.Context) {
	if !h.inventory.Loaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "loading",
			"time":   time.Now().Unix(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	filter := service.ProductFilter{
		Search: c.Query("q"),
		Risk:   models.FreshnessStatus(c.Query("risk")),
		IDs:    idList(c, "ids"),
	}

	products, err := h.query.QueryProducts(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

func (h *Handler) createProduct(c *gin.Context) {
	var draft models.ProductDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	product, err := h.inventory.AddProduct(c.Request.Context(), draft)
	h.writeMutation(c, http.StatusCreated, gin.H{"product": product}, err)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id := c.Param("id")
	err := h.inventory.DeleteProduct(c.Request.Context(), id)
	h.writeMutation(c, http.StatusOK, gin.H{"deleted": id}, err)
}

func (h *Handler) suggestedExpiry(c *gin.Context) {
	date, err := h.inventory.SuggestExpiryDate(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expiryDate": date})
}

func (h *Handler) listBatches(c *gin.Context) {
	status := c.Query("filter")
	if status == "all" {
		status = ""
	}
	filter := service.BatchFilter{
		Status:     models.FreshnessStatus(status),
		Search:     c.Query("q"),
		ProductIDs: idList(c, "productIds"),
	}

	views, err := h.query.QueryBatches(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	type batchResponse struct {
		models.BatchView
		StatusLabel string `json:"statusLabel"`
	}
	out := make([]batchResponse, 0, len(views))
	for _, v := range views {
		out = append(out, batchResponse{BatchView: v, StatusLabel: h.labels.StatusLabel(v.Status)})
	}
	c.JSON(http.StatusOK, gin.H{
		"batches": out,
		"count":   len(out),
	})
}

func (h *Handler) createBatch(c *gin.Context) {
	var draft models.BatchDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	batch, err := h.inventory.AddBatch(c.Request.Context(), draft)
	h.writeMutation(c, http.StatusCreated, gin.H{"batch": batch}, err)
}

func (h *Handler) deleteBatch(c *gin.Context) {
	id := c.Param("id")
	err := h.inventory.DeleteBatch(c.Request.Context(), id)
	h.writeMutation(c, http.StatusOK, gin.H{"deleted": id}, err)
}

func (h *Handler) dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.query.CurrentSummary(c.Request.Context()))
}

func (h *Handler) getLabels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"labels":     h.labels,
		"categories": models.Categories,
		"locations":  models.Locations,
	})
}

// resetDemo replaces all data and therefore requires confirm=true
func (h *Handler) resetDemo(c *gin.Context) {
	if confirm, _ := strconv.ParseBool(c.Query("confirm")); !confirm {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Reset replaces all products and batches; repeat with confirm=true",
		})
		return
	}

	products, batches, err := h.inventory.ResetDemoData(c.Request.Context())
	h.writeMutation(c, http.StatusOK, gin.H{
		"products": len(products),
		"batches":  len(batches),
	}, err)
}

// writeMutation answers a mutation. A persistence failure still reports success
// because the change was applied; it is surfaced as a warning.
func (h *Handler) writeMutation(c *gin.Context, status int, body gin.H, err error) {
	if err != nil && !errors.Is(err, apperr.ErrPersistence) {
		h.writeError(c, err)
		return
	}
	if err != nil {
		body["warning"] = "Change applied but could not be saved: " + err.Error()
	}
	c.JSON(status, body)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"fields": ve.Fields,
		})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not found",
			"details": err.Error(),
		})
	case errors.Is(err, service.ErrNotLoaded):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Inventory not loaded",
		})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal error",
			"details": err.Error(),
		})
	}
}

// idList reads a comma separated id list. An absent parameter yields nil (no
// restriction) and a present but empty one yields an empty list.
func idList(c *gin.Context, name string) []string {
	raw, ok := c.GetQuery(name)
	if !ok {
		return nil
	}
	ids := []string{}
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
