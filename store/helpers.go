package store

import (
	"strings"

	"agrimarket/api/models"
)

// cleanRecommendations is the merge boundary of the co-occurrence graph: it
// drops empty ids, duplicates and the source product itself.
func cleanRecommendations(productID string, ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == productID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}

// nonNilStrings keeps pq.Array from binding NULL, which would make
// "id = ANY($n)" filters match nothing.
func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func cloneProduct(p *models.Product) models.Product {
	out := *p
	if p.Embedding != nil {
		out.Embedding = append([]float32(nil), p.Embedding...)
	}
	return out
}

func toFloat64s(v []float32) []float64 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func toFloat32s(v []float64) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
