package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agrimarket/api/apperrors"
	"agrimarket/api/embedding"
	"agrimarket/api/models"
)

type staticSource struct {
	products []models.Product
	err      error
}

func (s staticSource) ListEmbeddedProducts(context.Context) ([]models.Product, error) {
	return s.products, s.err
}

type fixedEmbedder struct {
	vec []float32
	err error
}

func (f fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

func product(id string, emb ...float32) models.Product {
	return models.Product{ID: id, Name: "product " + id, Embedding: emb}
}

func TestSearch_EmptyCatalog(t *testing.T) {
	ix := NewIndex(staticSource{}, fixedEmbedder{vec: []float32{1, 0}}, 0, zap.NewNop())

	results, err := ix.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_RanksByScoreThenID(t *testing.T) {
	src := staticSource{products: []models.Product{
		product("p4", 0, 1),
		product("p2", 1, 0),
		product("p9"), // no embedding
		product("p1", 1, 0),
		product("p3", 1, 1),
	}}
	ix := NewIndex(src, fixedEmbedder{vec: []float32{1, 0}}, 0, zap.NewNop())

	results, err := ix.Search(context.Background(), "rice", 5)
	require.NoError(t, err)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Product.ID
	}
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.InDelta(t, 0.7071, results[2].Similarity, 1e-4)
	assert.InDelta(t, 0.0, results[3].Similarity, 1e-9)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}
}

func TestSearch_TruncatesToK(t *testing.T) {
	var products []models.Product
	for i := 0; i < 12; i++ {
		products = append(products, product(fmt.Sprintf("p%02d", i), float32(i+1), 1))
	}
	ix := NewIndex(staticSource{products: products}, fixedEmbedder{vec: []float32{1, 0}}, 0, zap.NewNop())

	results, err := ix.Search(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
	assert.Equal(t, "p11", results[0].Product.ID)

	results, err = ix.Search(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearch_SkipsMalformedEmbeddings(t *testing.T) {
	src := staticSource{products: []models.Product{
		product("short", 1),
		product("ok", 1, 0),
	}}
	ix := NewIndex(src, fixedEmbedder{vec: []float32{1, 0}}, 0, zap.NewNop())

	results, err := ix.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].Product.ID)
}

func TestSearch_EmbeddingUnavailable(t *testing.T) {
	embedErr := fmt.Errorf("%w: model down", apperrors.ErrEmbeddingUnavailable)
	ix := NewIndex(staticSource{products: []models.Product{product("a", 1)}}, fixedEmbedder{err: embedErr}, 0, zap.NewNop())

	_, err := ix.Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, apperrors.ErrEmbeddingUnavailable)
}

func TestSearch_CatalogError(t *testing.T) {
	ix := NewIndex(staticSource{err: errors.New("db down")}, fixedEmbedder{vec: []float32{1}}, 0, zap.NewNop())

	_, err := ix.Search(context.Background(), "q", 5)
	assert.Error(t, err)
}

func TestSearch_WithHashEmbeddings(t *testing.T) {
	gen, err := embedding.NewGenerator(embedding.Config{Dimensions: 256, Name: t.Name()}, embedding.HashLoader(256), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	texts := map[string]string{
		"a": "organic basmati rice long grain",
		"b": "fresh red tomatoes from the farm",
		"c": "neem based organic fertilizer",
	}
	var products []models.Product
	for id, text := range texts {
		vec, err := gen.Embed(ctx, text)
		require.NoError(t, err)
		products = append(products, models.Product{ID: id, Name: text, Embedding: vec})
	}

	ix := NewIndex(staticSource{products: products}, gen, 5, zap.NewNop())
	results, err := ix.Search(ctx, "basmati rice", 5)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Product.ID)
}
