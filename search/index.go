// Package search implements semantic product search as a linear scan over
// every catalog product that carries an embedding. There is no index
// structure: a query costs O(N·D), which is fine for catalogs of a few
// thousand products.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"agrimarket/api/apperrors"
	"agrimarket/api/metrics"
	"agrimarket/api/models"
	"agrimarket/api/similarity"
)

// DefaultTopK is the number of results returned when the caller passes k <= 0.
const DefaultTopK = 5

// Embedder turns a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProductSource lists the products that currently carry an embedding.
type ProductSource interface {
	ListEmbeddedProducts(ctx context.Context) ([]models.Product, error)
}

type Index struct {
	products ProductSource
	embedder Embedder
	topK     int
	logger   *zap.Logger
}

func NewIndex(products ProductSource, embedder Embedder, topK int, logger *zap.Logger) *Index {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Index{
		products: products,
		embedder: embedder,
		topK:     topK,
		logger:   logger.Named("search"),
	}
}

// Search returns the k products most similar to query, best first. Exact
// score ties are ordered by product id. Products without an embedding are not
// scored at all.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	start := time.Now()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	if k <= 0 {
		k = ix.topK
	}

	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	products, err := ix.products.ListEmbeddedProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list embedded products: %w", err)
	}
	metrics.SearchCandidates.Observe(float64(len(products)))

	results := make([]models.SearchResult, 0, len(products))
	for i := range products {
		p := &products[i]
		if !p.HasEmbedding() {
			continue
		}
		score, err := similarity.Cosine(queryVec, p.Embedding)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidVector) {
				ix.logger.Warn("skipping product with malformed embedding",
					zap.String("product_id", p.ID),
					zap.Int("dimensions", len(p.Embedding)),
					zap.Int("want", len(queryVec)))
				continue
			}
			return nil, err
		}
		results = append(results, models.SearchResult{Product: *p, Similarity: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Product.ID < results[j].Product.ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
