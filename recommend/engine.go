// Package recommend produces product recommendations from three signals:
// the categories a user recently touched, catalog popularity, and the
// "bought together" co-occurrence graph maintained from completed orders.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"agrimarket/api/apperrors"
	"agrimarket/api/metrics"
	"agrimarket/api/models"
)

// CatalogReader is the read side of the product catalog used by the composer.
type CatalogReader interface {
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)

	// ListProductsByCategories returns products whose lowercased category is
	// in categories, in catalog order.
	ListProductsByCategories(ctx context.Context, categories, exclude []string, minViews int64, limit int) ([]models.Product, error)

	// ListPopularProducts returns products by view count descending, ties by id.
	ListPopularProducts(ctx context.Context, exclude []string, minViews int64, limit int) ([]models.Product, error)
}

// ActivityReader queries the user activity log.
type ActivityReader interface {
	RecentActivities(ctx context.Context, userID string, actions []models.ActivityAction, limit int) ([]models.UserActivity, error)
}

// GraphStore is the co-occurrence graph. AddRecommendations must be an atomic
// add-if-absent set union on the edge of productID, creating it if needed.
type GraphStore interface {
	AddRecommendations(ctx context.Context, productID string, recommended []string) error
	GetRecommendations(ctx context.Context, productID string) (*models.RecommendationEdge, error)
}

var profileActions = []models.ActivityAction{models.ActionView, models.ActionPurchase}

// Engine is safe for concurrent use; it holds no mutable state of its own.
type Engine struct {
	cfg      Config
	catalog  CatalogReader
	activity ActivityReader
	graph    GraphStore
	logger   *zap.Logger
}

func NewEngine(cfg Config, catalog CatalogReader, activity ActivityReader, graph GraphStore, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recommendation config: %w", err)
	}
	if catalog == nil || activity == nil || graph == nil {
		return nil, fmt.Errorf("catalog, activity and graph stores are required")
	}
	return &Engine{
		cfg:      cfg,
		catalog:  catalog,
		activity: activity,
		graph:    graph,
		logger:   logger.Named("recommend"),
	}, nil
}

// Recommend returns the hybrid, deduplicated recommendation list for a user.
//
// Recommendations are advisory: any store failure is logged and yields an
// empty list instead of an error.
func (e *Engine) Recommend(ctx context.Context, userID string) []models.Product {
	log := e.logger.With(zap.String("user_id", userID))

	activities, err := e.activity.RecentActivities(ctx, userID, profileActions, e.cfg.RecentActivityLimit)
	if err != nil {
		return e.degraded(log, "read recent activity", err)
	}

	if len(activities) == 0 {
		metrics.RecommendationRequests.WithLabelValues("cold_start").Inc()
		popular, err := e.catalog.ListPopularProducts(ctx, nil, e.cfg.MinViewCount, e.cfg.ColdStartLimit)
		if err != nil {
			return e.degraded(log, "list cold start products", err)
		}
		return nonNil(popular)
	}

	interacted := distinctProductIDs(activities)
	touched, err := e.catalog.GetProductsByIDs(ctx, interacted)
	if err != nil {
		return e.degraded(log, "read interacted products", err)
	}
	categories := distinctCategories(touched)

	var content, popular []models.Product
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(categories) == 0 {
			return nil
		}
		var err error
		content, err = e.catalog.ListProductsByCategories(gctx, categories, interacted, e.cfg.MinViewCount, e.cfg.ContentLimit)
		if err != nil {
			return fmt.Errorf("list content candidates: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		popular, err = e.catalog.ListPopularProducts(gctx, interacted, e.cfg.MinViewCount, e.cfg.PopularityLimit)
		if err != nil {
			return fmt.Errorf("list popularity candidates: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return e.degraded(log, "collect candidates", err)
	}

	metrics.RecommendationRequests.WithLabelValues("hybrid").Inc()

	acc := newAccumulator(len(content) + len(popular))
	acc.add(content, e.cfg.ContentWeight)
	acc.add(popular, e.cfg.PopularityWeight)
	ranked := acc.ranked()
	if e.cfg.MaxResults > 0 && len(ranked) > e.cfg.MaxResults {
		ranked = ranked[:e.cfg.MaxResults]
	}

	log.Debug("hybrid recommendations composed",
		zap.Int("activities", len(activities)),
		zap.Strings("categories", categories),
		zap.Int("content_candidates", len(content)),
		zap.Int("popularity_candidates", len(popular)),
		zap.Int("returned", len(ranked)))
	return ranked
}

// CategoryRecommendations returns products sharing a category with what the
// user recently viewed or bought, excluding those products, in catalog order
// and capped at CategoryLimit. It applies no popularity threshold. A user with
// no history gets an empty list; store failures degrade the same way.
func (e *Engine) CategoryRecommendations(ctx context.Context, userID string) []models.Product {
	log := e.logger.With(zap.String("user_id", userID))

	activities, err := e.activity.RecentActivities(ctx, userID, profileActions, e.cfg.RecentActivityLimit)
	if err != nil {
		return e.degraded(log, "read recent activity", err)
	}
	if len(activities) == 0 {
		return []models.Product{}
	}

	interacted := distinctProductIDs(activities)
	touched, err := e.catalog.GetProductsByIDs(ctx, interacted)
	if err != nil {
		return e.degraded(log, "read interacted products", err)
	}
	categories := distinctCategories(touched)
	if len(categories) == 0 {
		return []models.Product{}
	}

	products, err := e.catalog.ListProductsByCategories(ctx, categories, interacted, 0, e.cfg.CategoryLimit)
	if err != nil {
		return e.degraded(log, "list category products", err)
	}
	metrics.RecommendationRequests.WithLabelValues("category").Inc()
	return nonNil(products)
}

// RecommendationsFor returns the products bought together with productID.
// A product with no edge yet, or a failed read, yields an empty list.
func (e *Engine) RecommendationsFor(ctx context.Context, productID string) []string {
	edge, err := e.graph.GetRecommendations(ctx, productID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			e.logger.Warn("failed to read recommendation edge",
				zap.String("product_id", productID),
				zap.Error(err))
		}
		return []string{}
	}
	out := make([]string, 0, len(edge.RecommendedProducts))
	for _, id := range edge.RecommendedProducts {
		if id != productID {
			out = append(out, id)
		}
	}
	return out
}

// RecordBasket adds every ordered pair (i, j), i != j, of the basket to the
// co-occurrence graph. Each source product gets one atomic upsert. Failures on
// one key do not stop the others; they are returned together wrapped in
// ErrGraphUpdateFailed.
func (e *Engine) RecordBasket(ctx context.Context, productIDs []string) error {
	basket := distinct(productIDs)
	if len(basket) < 2 {
		return nil
	}

	var errs []error
	for _, src := range basket {
		recommended := make([]string, 0, len(basket)-1)
		for _, dst := range basket {
			if dst == src {
				continue
			}
			recommended = append(recommended, dst)
		}
		if err := e.graph.AddRecommendations(ctx, src, recommended); err != nil {
			errs = append(errs, fmt.Errorf("product %s: %w", src, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", apperrors.ErrGraphUpdateFailed, errors.Join(errs...))
	}

	e.logger.Debug("basket recorded", zap.Strings("basket", basket))
	return nil
}

func (e *Engine) degraded(log *zap.Logger, op string, err error) []models.Product {
	metrics.RecommendationRequests.WithLabelValues("degraded").Inc()
	log.Warn("recommendations degraded to empty list", zap.String("op", op), zap.Error(err))
	return []models.Product{}
}

func distinctProductIDs(activities []models.UserActivity) []string {
	ids := make([]string, 0, len(activities))
	for _, a := range activities {
		ids = append(ids, a.ProductID)
	}
	return distinct(ids)
}

func distinctCategories(products []models.Product) []string {
	seen := make(map[string]struct{}, len(products))
	out := make([]string, 0, len(products))
	for _, p := range products {
		c := strings.ToLower(strings.TrimSpace(p.Category))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
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

func nonNil(products []models.Product) []models.Product {
	if products == nil {
		return []models.Product{}
	}
	return products
}
