package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"agrimarket/api/apperrors"
	"agrimarket/api/models"
)

// ProductStore is the PostgreSQL catalog.
type ProductStore struct {
	db *sql.DB
}

// NewProductStore creates a new ProductStore instance.
func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

const productColumns = `id, name, description, category, price, image_url, quantity,
	is_active, view_count, sales_count, created_by, embedding, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (models.Product, error) {
	var (
		p         models.Product
		embedding pq.Float64Array
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.Price,
		&p.ImageURL,
		&p.Quantity,
		&p.IsActive,
		&p.ViewCount,
		&p.SalesCount,
		&p.CreatedBy,
		&embedding,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return models.Product{}, err
	}
	p.Embedding = toFloat32s(embedding)
	return p, nil
}

func (s *ProductStore) queryProducts(ctx context.Context, op, query string, args ...any) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product while trying to %s: %w", op, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error while trying to %s: %w", op, err)
	}
	return products, nil
}

// image_url is NOT NULL with an empty-string default; "no image" is stored as ''.
const insertProductQuery = `
	INSERT INTO products (id, name, description, category, price, image_url, quantity, is_active, created_by, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING view_count, sales_count, created_at, updated_at;
`

const updateProductQuery = `
	UPDATE products
	SET name = $2, description = $3, category = $4, price = $5, image_url = $6,
		quantity = $7, is_active = $8, embedding = $9, updated_at = now()
	WHERE id = $1
	RETURNING view_count, sales_count, created_at, updated_at;
`

// CreateProduct inserts a product, assigning an id when none is set.
func (s *ProductStore) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	err := s.db.QueryRowContext(ctx, insertProductQuery,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.ImageURL, p.Quantity, p.IsActive, p.CreatedBy,
		pq.Array(toFloat64s(p.Embedding)),
	).Scan(&p.ViewCount, &p.SalesCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (s *ProductStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1;`
	p, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %q: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (s *ProductStore) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id ASC;`
	return s.queryProducts(ctx, "get products by ids", query, pq.Array(ids))
}

// UpdateProduct writes the editable fields and the embedding. Counters are
// owned by their increment paths and are left untouched.
func (s *ProductStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	err := s.db.QueryRowContext(ctx, updateProductQuery,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.ImageURL, p.Quantity, p.IsActive,
		pq.Array(toFloat64s(p.Embedding)),
	).Scan(&p.ViewCount, &p.SalesCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("product %q: %w", p.ID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

// SetEmbedding replaces the stored embedding as a whole; nil clears it.
func (s *ProductStore) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	query := `UPDATE products SET embedding = $2, updated_at = now() WHERE id = $1;`
	return s.execOne(ctx, "set embedding", id, query, id, pq.Array(toFloat64s(embedding)))
}

func (s *ProductStore) IncrementViewCount(ctx context.Context, id string) error {
	query := `UPDATE products SET view_count = view_count + 1 WHERE id = $1;`
	return s.execOne(ctx, "increment view count", id, query, id)
}

// IncrementSalesCounts applies every order line in one statement.
func (s *ProductStore) IncrementSalesCounts(ctx context.Context, quantities map[string]int64) error {
	if len(quantities) == 0 {
		return nil
	}
	ids := make([]string, 0, len(quantities))
	qtys := make([]int64, 0, len(quantities))
	for id, qty := range quantities {
		ids = append(ids, id)
		qtys = append(qtys, qty)
	}

	query := `
		UPDATE products AS p
		SET sales_count = p.sales_count + u.qty
		FROM unnest($1::text[], $2::bigint[]) AS u(id, qty)
		WHERE p.id = u.id;
	`
	if _, err := s.db.ExecContext(ctx, query, pq.Array(ids), pq.Array(qtys)); err != nil {
		return fmt.Errorf("failed to increment sales counts: %w", err)
	}
	return nil
}

func (s *ProductStore) ListEmbeddedProducts(ctx context.Context) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE embedding IS NOT NULL AND cardinality(embedding) > 0
		ORDER BY id ASC;`
	return s.queryProducts(ctx, "list embedded products", query)
}

func (s *ProductStore) ListProductsWithoutEmbedding(ctx context.Context, limit int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE embedding IS NULL OR cardinality(embedding) = 0
		ORDER BY id ASC
		LIMIT $1;`
	return s.queryProducts(ctx, "list products without embedding", query, limit)
}

func (s *ProductStore) ListProductsByCategories(ctx context.Context, categories, exclude []string, minViews int64, limit int) ([]models.Product, error) {
	if len(categories) == 0 {
		return []models.Product{}, nil
	}
	query := `SELECT ` + productColumns + ` FROM products
		WHERE lower(btrim(category)) = ANY($1)
			AND NOT (id = ANY($2))
			AND view_count >= $3
		ORDER BY id ASC
		LIMIT $4;`
	return s.queryProducts(ctx, "list products by categories", query,
		pq.Array(lowerAll(categories)), pq.Array(nonNilStrings(exclude)), minViews, limit)
}

func (s *ProductStore) ListPopularProducts(ctx context.Context, exclude []string, minViews int64, limit int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE NOT (id = ANY($1))
			AND view_count >= $2
		ORDER BY view_count DESC, id ASC
		LIMIT $3;`
	return s.queryProducts(ctx, "list popular products", query, pq.Array(nonNilStrings(exclude)), minViews, limit)
}

func (s *ProductStore) ListTopSelling(ctx context.Context, limit int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY sales_count DESC, id ASC LIMIT $1;`
	return s.queryProducts(ctx, "list top selling products", query, limit)
}

func (s *ProductStore) ListMostViewed(ctx context.Context, limit int) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY view_count DESC, id ASC LIMIT $1;`
	return s.queryProducts(ctx, "list most viewed products", query, limit)
}

func (s *ProductStore) execOne(ctx context.Context, op, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("product %q: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
