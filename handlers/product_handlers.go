package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrimarket/api/catalog"
	"agrimarket/api/middleware"
	"agrimarket/api/models"
	"agrimarket/api/search"
	"agrimarket/api/utils"
)

type ProductHandlers struct {
	Catalog        *catalog.Service
	Search         *search.Index
	SearchTopK     int
	SearchMaxLimit int
	logger         *zap.Logger
}

func NewProductHandlers(svc *catalog.Service, index *search.Index, topK, maxLimit int, logger *zap.Logger) *ProductHandlers {
	return &ProductHandlers{
		Catalog:        svc,
		Search:         index,
		SearchTopK:     topK,
		SearchMaxLimit: maxLimit,
		logger:         logger.Named("product_handlers"),
	}
}

// SemanticSearch handles GET /products/semantic-search?query=...&limit=...
func (h *ProductHandlers) SemanticSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "query parameter is required"})
		return
	}
	limit, err := utils.ParseLimit(c.Query("limit"), h.SearchTopK, h.SearchMaxLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	results, err := h.Search.Search(ctx, query, limit)
	if err != nil {
		respondError(c, h.logger, err, "Failed to perform semantic search")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
}

func (h *ProductHandlers) GetProduct(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Catalog.ViewProduct(ctx, c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": p})
}

func (h *ProductHandlers) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Catalog.CreateProduct(ctx, req, middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to add product")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "product": p})
}

func (h *ProductHandlers) UpdateProduct(c *gin.Context) {
	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Catalog.UpdateProduct(ctx, c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to update product")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": p})
}

func (h *ProductHandlers) TopSelling(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	products, err := h.Catalog.TopSelling(ctx)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch top selling products")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
}

func (h *ProductHandlers) MostViewed(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	products, err := h.Catalog.MostViewed(ctx)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch most viewed products")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
}

// BackfillEmbeddings embeds every product still missing an embedding. It runs
// on the request's own context rather than the usual timeout, since a large
// catalog takes a while.
func (h *ProductHandlers) BackfillEmbeddings(c *gin.Context) {
	embedded, failed, err := h.Catalog.RegenerateMissingEmbeddings(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to backfill embeddings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "embedded": embedded, "failed": failed})
}
