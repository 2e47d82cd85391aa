package recommend

import (
	"sort"

	"agrimarket/api/models"
)

type scoredProduct struct {
	product models.Product
	score   float64
	rank    int // order of first appearance
}

// accumulator merges weighted candidate lists by product id.
type accumulator struct {
	byID  map[string]*scoredProduct
	order []*scoredProduct
}

func newAccumulator(capacity int) *accumulator {
	return &accumulator{
		byID:  make(map[string]*scoredProduct, capacity),
		order: make([]*scoredProduct, 0, capacity),
	}
}

func (a *accumulator) add(products []models.Product, weight float64) {
	for _, p := range products {
		if s, ok := a.byID[p.ID]; ok {
			s.score += weight
			continue
		}
		s := &scoredProduct{product: p, score: weight, rank: len(a.order)}
		a.byID[p.ID] = s
		a.order = append(a.order, s)
	}
}

// ranked returns products by accumulated score, ties kept in first-seen order.
func (a *accumulator) ranked() []models.Product {
	sorted := make([]*scoredProduct, len(a.order))
	copy(sorted, a.order)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].score != sorted[j].score {
			return sorted[i].score > sorted[j].score
		}
		return sorted[i].rank < sorted[j].rank
	})

	out := make([]models.Product, len(sorted))
	for i, s := range sorted {
		out[i] = s.product
	}
	return out
}
