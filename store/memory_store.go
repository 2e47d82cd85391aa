package store

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"agrimarket/api/apperrors"
	"agrimarket/api/models"
)

// In-memory stores back local development (STORE_BACKEND=memory) and tests.
// They honour the same contracts as the SQL-backed stores.

type MemoryProductStore struct {
	mu       sync.RWMutex
	products map[string]*models.Product
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{products: make(map[string]*models.Product)}
}

func (s *MemoryProductStore) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := s.products[p.ID]; exists {
		return fmt.Errorf("product %q already exists", p.ID)
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	stored := cloneProduct(p)
	s.products[p.ID] = &stored
	return nil
}

func (s *MemoryProductStore) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %q: %w", id, apperrors.ErrNotFound)
	}
	out := cloneProduct(p)
	return &out, nil
}

func (s *MemoryProductStore) GetProductsByIDs(_ context.Context, ids []string) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Product, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := s.products[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	sortByID(out)
	return out, nil
}

func (s *MemoryProductStore) UpdateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok {
		return fmt.Errorf("product %q: %w", p.ID, apperrors.ErrNotFound)
	}
	p.CreatedAt = existing.CreatedAt
	p.ViewCount = existing.ViewCount
	p.SalesCount = existing.SalesCount
	p.UpdatedAt = time.Now().UTC()
	stored := cloneProduct(p)
	s.products[p.ID] = &stored
	return nil
}

func (s *MemoryProductStore) SetEmbedding(_ context.Context, id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %q: %w", id, apperrors.ErrNotFound)
	}
	p.Embedding = append([]float32(nil), embedding...)
	if len(p.Embedding) == 0 {
		p.Embedding = nil
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryProductStore) IncrementViewCount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %q: %w", id, apperrors.ErrNotFound)
	}
	p.ViewCount++
	return nil
}

func (s *MemoryProductStore) IncrementSalesCounts(_ context.Context, quantities map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, qty := range quantities {
		if p, ok := s.products[id]; ok {
			p.SalesCount += qty
		}
	}
	return nil
}

func (s *MemoryProductStore) ListEmbeddedProducts(_ context.Context) ([]models.Product, error) {
	return s.filter(func(p *models.Product) bool { return p.HasEmbedding() }, byID, 0), nil
}

func (s *MemoryProductStore) ListProductsWithoutEmbedding(_ context.Context, limit int) ([]models.Product, error) {
	return s.filter(func(p *models.Product) bool { return !p.HasEmbedding() }, byID, limit), nil
}

func (s *MemoryProductStore) ListProductsByCategories(_ context.Context, categories, exclude []string, minViews int64, limit int) ([]models.Product, error) {
	wanted := toSet(lowerAll(categories))
	excluded := toSet(exclude)
	return s.filter(func(p *models.Product) bool {
		_, inCategory := wanted[strings.ToLower(strings.TrimSpace(p.Category))]
		_, skip := excluded[p.ID]
		return inCategory && !skip && p.ViewCount >= minViews
	}, byID, limit), nil
}

func (s *MemoryProductStore) ListPopularProducts(_ context.Context, exclude []string, minViews int64, limit int) ([]models.Product, error) {
	excluded := toSet(exclude)
	return s.filter(func(p *models.Product) bool {
		_, skip := excluded[p.ID]
		return !skip && p.ViewCount >= minViews
	}, byViews, limit), nil
}

func (s *MemoryProductStore) ListTopSelling(_ context.Context, limit int) ([]models.Product, error) {
	return s.filter(func(*models.Product) bool { return true }, bySales, limit), nil
}

func (s *MemoryProductStore) ListMostViewed(_ context.Context, limit int) ([]models.Product, error) {
	return s.filter(func(*models.Product) bool { return true }, byViews, limit), nil
}

func (s *MemoryProductStore) filter(keep func(*models.Product) bool, less func(a, b *models.Product) bool, limit int) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Product, 0)
	for _, p := range s.products {
		if keep(p) {
			out = append(out, cloneProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func byID(a, b *models.Product) bool { return a.ID < b.ID }

func byViews(a, b *models.Product) bool {
	if a.ViewCount != b.ViewCount {
		return a.ViewCount > b.ViewCount
	}
	return a.ID < b.ID
}

func bySales(a, b *models.Product) bool {
	if a.SalesCount != b.SalesCount {
		return a.SalesCount > b.SalesCount
	}
	return a.ID < b.ID
}

func sortByID(products []models.Product) {
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

type MemoryActivityStore struct {
	mu   sync.RWMutex
	rows []models.UserActivity
}

func NewMemoryActivityStore() *MemoryActivityStore {
	return &MemoryActivityStore{}
}

func (s *MemoryActivityStore) InsertActivities(_ context.Context, activities []models.UserActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, activities...)
	return nil
}

// RecentActivities returns newest first; rows with equal timestamps come back
// in reverse insertion order.
func (s *MemoryActivityStore) RecentActivities(_ context.Context, userID string, actions []models.ActivityAction, limit int) ([]models.UserActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[models.ActivityAction]struct{}, len(actions))
	for _, a := range actions {
		wanted[a] = struct{}{}
	}

	out := make([]models.UserActivity, 0)
	for i := len(s.rows) - 1; i >= 0; i-- {
		row := s.rows[i]
		if row.UserID != userID {
			continue
		}
		if _, ok := wanted[row.Action]; !ok {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

const graphShards = 32

type memoryEdge struct {
	members   map[string]struct{}
	order     []string
	updatedAt time.Time
}

type graphShard struct {
	mu    sync.Mutex
	edges map[string]*memoryEdge
}

// MemoryRecommendationStore serialises writers per key through sharded
// mutexes; writers to keys on different shards never contend.
type MemoryRecommendationStore struct {
	shards [graphShards]graphShard
}

func NewMemoryRecommendationStore() *MemoryRecommendationStore {
	s := &MemoryRecommendationStore{}
	for i := range s.shards {
		s.shards[i].edges = make(map[string]*memoryEdge)
	}
	return s
}

func (s *MemoryRecommendationStore) shard(productID string) *graphShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(productID))
	return &s.shards[h.Sum32()%graphShards]
}

func (s *MemoryRecommendationStore) AddRecommendations(_ context.Context, productID string, recommended []string) error {
	ids := cleanRecommendations(productID, recommended)
	if productID == "" || len(ids) == 0 {
		return nil
	}

	sh := s.shard(productID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	edge, ok := sh.edges[productID]
	if !ok {
		edge = &memoryEdge{members: make(map[string]struct{}, len(ids))}
		sh.edges[productID] = edge
	}
	added := false
	for _, id := range ids {
		if _, exists := edge.members[id]; exists {
			continue
		}
		edge.members[id] = struct{}{}
		edge.order = append(edge.order, id)
		added = true
	}
	if added {
		edge.updatedAt = time.Now().UTC()
	}
	return nil
}

func (s *MemoryRecommendationStore) GetRecommendations(_ context.Context, productID string) (*models.RecommendationEdge, error) {
	sh := s.shard(productID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	edge, ok := sh.edges[productID]
	if !ok {
		return nil, fmt.Errorf("recommendations for %q: %w", productID, apperrors.ErrNotFound)
	}
	return &models.RecommendationEdge{
		ProductID:           productID,
		RecommendedProducts: append([]string(nil), edge.order...),
		UpdatedAt:           edge.updatedAt,
	}, nil
}
