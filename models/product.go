package models

import (
	"strings"
	"time"
)

// Product is a catalog item. The engine reads Category and the counters and
// owns the Embedding field, which is either absent or exactly the model's
// dimension.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Quantity    int       `json:"quantity"`
	IsActive    bool      `json:"isActive"`
	ViewCount   int64     `json:"viewCount"`
	SalesCount  int64     `json:"salesCount"`
	CreatedBy   string    `json:"createdBy"`
	Embedding   []float32 `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasEmbedding reports whether the product takes part in semantic search.
func (p *Product) HasEmbedding() bool {
	return len(p.Embedding) > 0
}

// EmbeddingText is the text the embedding is generated from.
func (p *Product) EmbeddingText() string {
	return strings.TrimSpace(p.Name + " " + p.Description)
}

type CreateProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"gte=0"`
	Category    string  `json:"category" binding:"required"`
	Quantity    int     `json:"quantity" binding:"gte=0"`
	ImageURL    string  `json:"imageUrl"`
}

// UpdateProductRequest carries a partial update; nil fields are left as they are.
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0"`
	Category    *string  `json:"category"`
	Quantity    *int     `json:"quantity" binding:"omitempty,gte=0"`
	ImageURL    *string  `json:"imageUrl"`
	IsActive    *bool    `json:"isActive"`
}
