package models

import "time"

// RecommendationEdge is the co-occurrence adjacency of one product: the
// distinct products bought together with it, never including itself.
type RecommendationEdge struct {
	ProductID           string    `json:"productId"`
	RecommendedProducts []string  `json:"recommendedProducts"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// SearchResult is one semantic search hit.
type SearchResult struct {
	Product    Product `json:"product"`
	Similarity float64 `json:"similarity"`
}
