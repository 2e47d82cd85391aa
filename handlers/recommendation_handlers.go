package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrimarket/api/catalog"
	"agrimarket/api/models"
	"agrimarket/api/recommend"
)

type RecommendationHandlers struct {
	Engine  *recommend.Engine
	Catalog *catalog.Service
	logger  *zap.Logger
}

func NewRecommendationHandlers(engine *recommend.Engine, svc *catalog.Service, logger *zap.Logger) *RecommendationHandlers {
	return &RecommendationHandlers{
		Engine:  engine,
		Catalog: svc,
		logger:  logger.Named("recommendation_handlers"),
	}
}

// ByProduct returns the products bought together with :productId. A product
// that has never been ordered with anything gets an empty list.
func (h *RecommendationHandlers) ByProduct(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	ids := h.Engine.RecommendationsFor(ctx, c.Param("productId"))
	products, err := h.Catalog.ProductsByIDs(ctx, ids)
	if err != nil {
		respondError(c, h.logger, err, "Failed to fetch recommendations")
		return
	}
	c.JSON(http.StatusOK, products)
}

// Hybrid returns the personalised list for :userId. It never fails; store
// errors surface as an empty list.
func (h *RecommendationHandlers) Hybrid(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	c.JSON(http.StatusOK, h.Engine.Recommend(ctx, c.Param("userId")))
}

// ByUserCategories returns catalog products from the categories :userId
// recently viewed or bought. Like Hybrid it answers 200 with an empty list
// when there is nothing to suggest.
func (h *RecommendationHandlers) ByUserCategories(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	c.JSON(http.StatusOK, h.Engine.CategoryRecommendations(ctx, c.Param("userId")))
}

func (h *RecommendationHandlers) LogActivity(c *gin.Context) {
	var req models.LogActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required fields", "details": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	activity, err := h.Catalog.LogActivity(ctx, req)
	if err != nil {
		respondError(c, h.logger, err, "Failed to log user activity")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "activity": activity})
}
