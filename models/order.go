package models

// OrderItem is one line of a completed order.
type OrderItem struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"gte=0"`
}

// CompletedOrder is sent by the order service once an order has been persisted.
type CompletedOrder struct {
	OrderID string      `json:"orderId" binding:"required"`
	UserID  string      `json:"userId"`
	Items   []OrderItem `json:"items" binding:"required,min=1,dive"`
}

// Basket returns the distinct product ids of the order in line order.
func (o *CompletedOrder) Basket() []string {
	seen := make(map[string]struct{}, len(o.Items))
	basket := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if item.ProductID == "" {
			continue
		}
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		basket = append(basket, item.ProductID)
	}
	return basket
}

// SalesQuantities sums quantities per product; a missing quantity counts as one.
func (o *CompletedOrder) SalesQuantities() map[string]int64 {
	out := make(map[string]int64, len(o.Items))
	for _, item := range o.Items {
		if item.ProductID == "" {
			continue
		}
		qty := int64(item.Quantity)
		if qty <= 0 {
			qty = 1
		}
		out[item.ProductID] += qty
	}
	return out
}
