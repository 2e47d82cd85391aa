// Package catalog owns the product lifecycle around the recommendation
// engine: it keeps embeddings in step with product text, counts views and
// sales, and feeds the activity log and co-occurrence graph.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agrimarket/api/apperrors"
	"agrimarket/api/metrics"
	"agrimarket/api/models"
)

// EmbeddingPolicy decides what a write does when its embedding cannot be
// generated.
type EmbeddingPolicy string

const (
	// PolicyDegrade stores the product without an embedding. It stays out of
	// semantic search until RegenerateMissingEmbeddings succeeds for it.
	PolicyDegrade EmbeddingPolicy = "degrade"
	// PolicyAbort fails the write with ErrEmbeddingUnavailable.
	PolicyAbort EmbeddingPolicy = "abort"
)

const backfillBatchSize = 100

type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	SetEmbedding(ctx context.Context, id string, embedding []float32) error
	IncrementViewCount(ctx context.Context, id string) error
	IncrementSalesCounts(ctx context.Context, quantities map[string]int64) error
	ListProductsWithoutEmbedding(ctx context.Context, limit int) ([]models.Product, error)
	ListTopSelling(ctx context.Context, limit int) ([]models.Product, error)
	ListMostViewed(ctx context.Context, limit int) ([]models.Product, error)
}

type ActivityWriter interface {
	InsertActivities(ctx context.Context, activities []models.UserActivity) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BasketRecorder updates the co-occurrence graph from a completed order.
type BasketRecorder interface {
	RecordBasket(ctx context.Context, productIDs []string) error
}

type Options struct {
	Policy EmbeddingPolicy
	// ListingLimit bounds the top-selling and most-viewed listings.
	ListingLimit int
}

type Service struct {
	products ProductStore
	activity ActivityWriter
	embedder Embedder
	baskets  BasketRecorder
	opts     Options
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(products ProductStore, activity ActivityWriter, embedder Embedder, baskets BasketRecorder, opts Options, logger *zap.Logger) (*Service, error) {
	switch opts.Policy {
	case "":
		opts.Policy = PolicyDegrade
	case PolicyDegrade, PolicyAbort:
	default:
		return nil, fmt.Errorf("unknown embedding failure policy %q", opts.Policy)
	}
	if opts.ListingLimit <= 0 {
		opts.ListingLimit = 10
	}
	if products == nil || activity == nil || embedder == nil || baskets == nil {
		return nil, fmt.Errorf("product store, activity writer, embedder and basket recorder are required")
	}
	return &Service{
		products: products,
		activity: activity,
		embedder: embedder,
		baskets:  baskets,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.Named("catalog"),
	}, nil
}

// CreateProduct stores a new product with the embedding of its name and
// description.
func (s *Service) CreateProduct(ctx context.Context, req models.CreateProductRequest, createdBy string) (*models.Product, error) {
	p := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Quantity:    req.Quantity,
		IsActive:    true,
		CreatedBy:   createdBy,
	}
	if p.Name == "" || p.Category == "" {
		return nil, fmt.Errorf("name and category are required: %w", apperrors.ErrInvalidInput)
	}
	if p.Price < 0 || p.Quantity < 0 {
		return nil, fmt.Errorf("price and quantity must not be negative: %w", apperrors.ErrInvalidInput)
	}

	emb, err := s.embed(ctx, p)
	if err != nil {
		return nil, err
	}
	p.Embedding = emb

	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.Info("product created",
		zap.String("product_id", p.ID),
		zap.Bool("embedded", p.HasEmbedding()))
	return p, nil
}

// UpdateProduct applies a partial update. The embedding is regenerated only
// when the name or description changes; under PolicyDegrade a failed
// regeneration clears the old embedding so search never ranks stale text.
func (s *Service) UpdateProduct(ctx context.Context, id string, req models.UpdateProductRequest) (*models.Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	textChanged := false
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("name must not be empty: %w", apperrors.ErrInvalidInput)
		}
		textChanged = textChanged || name != p.Name
		p.Name = name
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		textChanged = textChanged || desc != p.Description
		p.Description = desc
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return nil, fmt.Errorf("category must not be empty: %w", apperrors.ErrInvalidInput)
		}
		p.Category = category
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf("price must not be negative: %w", apperrors.ErrInvalidInput)
		}
		p.Price = *req.Price
	}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return nil, fmt.Errorf("quantity must not be negative: %w", apperrors.ErrInvalidInput)
		}
		p.Quantity = *req.Quantity
	}
	if req.ImageURL != nil {
		p.ImageURL = *req.ImageURL
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	if textChanged || !p.HasEmbedding() {
		emb, err := s.embed(ctx, p)
		if err != nil {
			return nil, err
		}
		p.Embedding = emb
	}

	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

// ViewProduct returns the product and counts the view. When the viewer is
// known a view activity is appended as well.
func (s *Service) ViewProduct(ctx context.Context, id, userID string) (*models.Product, error) {
	if err := s.products.IncrementViewCount(ctx, id); err != nil {
		return nil, err
	}
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != "" {
		s.appendActivities(ctx, []models.UserActivity{s.newActivity(userID, id, models.ActionView)})
	}
	return p, nil
}

// LogActivity appends one interaction to the activity log.
func (s *Service) LogActivity(ctx context.Context, req models.LogActivityRequest) (*models.UserActivity, error) {
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.ProductID) == "" {
		return nil, fmt.Errorf("userId and productId are required: %w", apperrors.ErrInvalidInput)
	}
	if !req.Action.Valid() {
		return nil, fmt.Errorf("action %q must be one of view, cart, purchase: %w", req.Action, apperrors.ErrInvalidInput)
	}
	a := s.newActivity(req.UserID, req.ProductID, req.Action)
	if err := s.activity.InsertActivities(ctx, []models.UserActivity{a}); err != nil {
		return nil, fmt.Errorf("failed to log activity: %w", err)
	}
	return &a, nil
}

// CompleteOrder is called once an order has been persisted. Only the sales
// count update can fail the call; the activity log and co-occurrence graph
// are updated best effort.
func (s *Service) CompleteOrder(ctx context.Context, order models.CompletedOrder) error {
	basket := order.Basket()
	if len(basket) == 0 {
		return fmt.Errorf("order %q has no products: %w", order.OrderID, apperrors.ErrInvalidInput)
	}
	log := s.logger.With(zap.String("order_id", order.OrderID))

	if err := s.products.IncrementSalesCounts(ctx, order.SalesQuantities()); err != nil {
		return fmt.Errorf("failed to record sales for order %q: %w", order.OrderID, err)
	}

	if order.UserID != "" {
		activities := make([]models.UserActivity, 0, len(basket))
		for _, id := range basket {
			activities = append(activities, s.newActivity(order.UserID, id, models.ActionPurchase))
		}
		s.appendActivities(ctx, activities)
	}

	if err := s.baskets.RecordBasket(ctx, basket); err != nil {
		metrics.GraphUpdateFailures.Inc()
		log.Error("failed to update co-occurrence graph", zap.Strings("basket", basket), zap.Error(err))
	}
	log.Info("order completed", zap.Int("products", len(basket)))
	return nil
}

// RegenerateMissingEmbeddings embeds every product that has none yet and
// reports how many were embedded. Products whose embedding still fails are
// skipped for the rest of the run and counted in failed.
func (s *Service) RegenerateMissingEmbeddings(ctx context.Context) (embedded, failed int, err error) {
	skipped := make(map[string]struct{})
	for {
		// Failed products stay in the listing; widen it so fresh ones are reached.
		limit := backfillBatchSize + len(skipped)
		batch, err := s.products.ListProductsWithoutEmbedding(ctx, limit)
		if err != nil {
			return embedded, failed, fmt.Errorf("failed to list products without embedding: %w", err)
		}

		fresh := 0
		for i := range batch {
			p := &batch[i]
			if _, ok := skipped[p.ID]; ok {
				continue
			}
			fresh++

			emb, err := s.embedder.Embed(ctx, p.EmbeddingText())
			if err != nil {
				if ctx.Err() != nil {
					return embedded, failed, ctx.Err()
				}
				skipped[p.ID] = struct{}{}
				failed++
				s.logger.Warn("backfill embedding failed", zap.String("product_id", p.ID), zap.Error(err))
				continue
			}
			if err := s.products.SetEmbedding(ctx, p.ID, emb); err != nil {
				return embedded, failed, fmt.Errorf("failed to store embedding for %q: %w", p.ID, err)
			}
			embedded++
		}
		if fresh == 0 || len(batch) < limit {
			break
		}
	}
	s.logger.Info("embedding backfill finished", zap.Int("embedded", embedded), zap.Int("failed", failed))
	return embedded, failed, nil
}

// ProductsByIDs resolves ids to products in the order given, skipping ids
// that no longer exist.
func (s *Service) ProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	found, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve products: %w", err)
	}
	byID := make(map[string]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) TopSelling(ctx context.Context) ([]models.Product, error) {
	return s.products.ListTopSelling(ctx, s.opts.ListingLimit)
}

func (s *Service) MostViewed(ctx context.Context) ([]models.Product, error) {
	return s.products.ListMostViewed(ctx, s.opts.ListingLimit)
}

func (s *Service) embed(ctx context.Context, p *models.Product) ([]float32, error) {
	emb, err := s.embedder.Embed(ctx, p.EmbeddingText())
	if err == nil {
		return emb, nil
	}
	if s.opts.Policy == PolicyAbort || !errors.Is(err, apperrors.ErrEmbeddingUnavailable) {
		return nil, fmt.Errorf("failed to embed product: %w", err)
	}
	s.logger.Warn("storing product without embedding",
		zap.String("product_id", p.ID),
		zap.String("name", p.Name),
		zap.Error(err))
	return nil, nil
}

func (s *Service) newActivity(userID, productID string, action models.ActivityAction) models.UserActivity {
	return models.UserActivity{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Action:    action,
		Timestamp: s.now(),
	}
}

func (s *Service) appendActivities(ctx context.Context, activities []models.UserActivity) {
	if err := s.activity.InsertActivities(ctx, activities); err != nil {
		metrics.ActivityWriteFailures.Inc()
		s.logger.Warn("failed to append activity", zap.Int("rows", len(activities)), zap.Error(err))
	}
}
