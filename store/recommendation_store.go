package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"agrimarket/api/apperrors"
	"agrimarket/api/models"
)

// RecommendationStore keeps the co-occurrence graph in PostgreSQL, one row per
// source product.
type RecommendationStore struct {
	db *sql.DB
}

func NewRecommendationStore(db *sql.DB) *RecommendationStore {
	return &RecommendationStore{db: db}
}

// addRecommendationsQuery is a single-statement set union. The conflicting
// row is locked for the duration of the update, so concurrent orders touching
// the same product are serialised by PostgreSQL and no id is lost. New ids are
// appended in the order given; ids already present are skipped, and a call
// that adds nothing leaves updated_at alone.
const addRecommendationsQuery = `
	INSERT INTO product_recommendations AS r (product_id, recommended_products, updated_at)
	VALUES ($1, $2::text[], now())
	ON CONFLICT (product_id) DO UPDATE
	SET recommended_products = r.recommended_products || ARRAY(
			SELECT t.id
			FROM unnest(EXCLUDED.recommended_products) WITH ORDINALITY AS t(id, ord)
			WHERE NOT (t.id = ANY(r.recommended_products))
			ORDER BY t.ord
		),
		updated_at = now()
	WHERE NOT (EXCLUDED.recommended_products <@ r.recommended_products);
`

func (s *RecommendationStore) AddRecommendations(ctx context.Context, productID string, recommended []string) error {
	ids := cleanRecommendations(productID, recommended)
	if productID == "" || len(ids) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, addRecommendationsQuery, productID, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to upsert recommendations for %q: %w", productID, err)
	}
	return nil
}

func (s *RecommendationStore) GetRecommendations(ctx context.Context, productID string) (*models.RecommendationEdge, error) {
	query := `
		SELECT product_id, recommended_products, updated_at
		FROM product_recommendations
		WHERE product_id = $1;
	`
	var (
		edge models.RecommendationEdge
		ids  pq.StringArray
	)
	err := s.db.QueryRowContext(ctx, query, productID).Scan(&edge.ProductID, &ids, &edge.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("recommendations for %q: %w", productID, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}
	edge.RecommendedProducts = []string(ids)
	return &edge, nil
}
