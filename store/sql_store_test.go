package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/api/apperrors"
	"agrimarket/api/models"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var productColumnNames = []string{
	"id", "name", "description", "category", "price", "image_url", "quantity",
	"is_active", "view_count", "sales_count", "created_by", "embedding", "created_at", "updated_at",
}

func TestRecommendationStore_AddRecommendations(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewRecommendationStore(db)

	mock.ExpectExec(regexp.QuoteMeta(addRecommendationsQuery)).
		WithArgs("A", pq.Array([]string{"B", "C"})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.AddRecommendations(context.Background(), "A", []string{"B", "A", "C", "B"}))
}

func TestRecommendationStore_AddRecommendationsSkipsEmpty(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewRecommendationStore(db)

	// No statement is expected.
	require.NoError(t, s.AddRecommendations(context.Background(), "A", []string{"A"}))
}

func TestRecommendationStore_AddRecommendationsError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewRecommendationStore(db)

	mock.ExpectExec(regexp.QuoteMeta(addRecommendationsQuery)).
		WillReturnError(errors.New("connection refused"))

	err := s.AddRecommendations(context.Background(), "A", []string{"B"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRecommendationStore_GetRecommendations(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewRecommendationStore(db)
	updated := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT product_id, recommended_products, updated_at\s+FROM product_recommendations`).
		WithArgs("A").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "recommended_products", "updated_at"}).
			AddRow("A", "{B,C}", updated))
	mock.ExpectQuery(`SELECT product_id, recommended_products, updated_at\s+FROM product_recommendations`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	edge, err := s.GetRecommendations(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, edge.RecommendedProducts)
	assert.Equal(t, updated, edge.UpdatedAt)

	_, err = s.GetRecommendations(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductStore_GetProduct(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewProductStore(db)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(productColumnNames).
			AddRow("p1", "Urea", "46% N", "Fertilizer", 12.5, "", 40, true, int64(11), int64(2), "seller", "{0.6,0.8}", now, now))
	mock.ExpectQuery(`(?s)SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	p, err := s.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Urea", p.Name)
	assert.Equal(t, int64(11), p.ViewCount)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, p.Embedding, 1e-6)

	_, err = s.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductStore_CreateProductAssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewProductStore(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(insertProductQuery)).
		WithArgs(sqlmock.AnyArg(), "Hoe", "", "Tools", 9.5, "", 3, true, "seller", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"view_count", "sales_count", "created_at", "updated_at"}).
			AddRow(int64(0), int64(0), now, now))

	p := &models.Product{Name: "Hoe", Category: "Tools", Price: 9.5, Quantity: 3, IsActive: true, CreatedBy: "seller"}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, now, p.CreatedAt)
}

func TestProductStore_EmptyImageURLIsBoundAsEmptyString(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewProductStore(db)
	now := time.Now().UTC()

	// The column is NOT NULL; "no image" must reach the driver as '' rather than NULL.
	assert.NotContains(t, insertProductQuery, "NULLIF")
	assert.NotContains(t, updateProductQuery, "NULLIF")

	mock.ExpectQuery(regexp.QuoteMeta(updateProductQuery)).
		WithArgs("p1", "Hoe", "", "Tools", 9.5, "", 3, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"view_count", "sales_count", "created_at", "updated_at"}).
			AddRow(int64(4), int64(1), now, now))
	mock.ExpectQuery(regexp.QuoteMeta(updateProductQuery)).
		WithArgs("p1", "Hoe", "", "Tools", 9.5, "https://img.example/hoe.png", 3, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"view_count", "sales_count", "created_at", "updated_at"}).
			AddRow(int64(4), int64(1), now, now))

	p := &models.Product{ID: "p1", Name: "Hoe", Category: "Tools", Price: 9.5, Quantity: 3, IsActive: true}
	require.NoError(t, s.UpdateProduct(context.Background(), p))
	assert.Equal(t, int64(4), p.ViewCount)

	p.ImageURL = "https://img.example/hoe.png"
	require.NoError(t, s.UpdateProduct(context.Background(), p))
}

func TestProductStore_IncrementViewCountNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewProductStore(db)

	mock.ExpectExec(`UPDATE products SET view_count = view_count \+ 1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.IncrementViewCount(context.Background(), "missing"), apperrors.ErrNotFound)
}

func TestProductStore_ListProductsByCategories(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewProductStore(db)

	mock.ExpectQuery(`WHERE lower\(btrim\(category\)\) = ANY\(\$1\)`).
		WithArgs(pq.Array([]string{"seeds", "tools"}), pq.Array([]string{}), int64(10), 10).
		WillReturnRows(sqlmock.NewRows(productColumnNames))

	got, err := s.ListProductsByCategories(context.Background(), []string{"Seeds", " TOOLS"}, nil, 10, 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	// Nothing to match means no query.
	got, err = s.ListProductsByCategories(context.Background(), nil, nil, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProductStore_IncrementSalesCounts(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewProductStore(db)

	mock.ExpectExec(`FROM unnest\(\$1::text\[\], \$2::bigint\[\]\)`).
		WithArgs(pq.Array([]string{"a"}), pq.Array([]int64{3})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.IncrementSalesCounts(context.Background(), map[string]int64{"a": 3}))
	require.NoError(t, s.IncrementSalesCounts(context.Background(), nil))
}
