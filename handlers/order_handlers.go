package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrimarket/api/catalog"
	"agrimarket/api/models"
)

type OrderHandlers struct {
	Catalog *catalog.Service
	logger  *zap.Logger
}

func NewOrderHandlers(svc *catalog.Service, logger *zap.Logger) *OrderHandlers {
	return &OrderHandlers{Catalog: svc, logger: logger.Named("order_handlers")}
}

// OrderCompleted is called by the order service after an order is persisted.
func (h *OrderHandlers) OrderCompleted(c *gin.Context) {
	var order models.CompletedOrder
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Catalog.CompleteOrder(ctx, order); err != nil {
		respondError(c, h.logger, err, "Failed to record completed order")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}
