package vector

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulm/onebox/internal/embedding"
	"github.com/rahulm/onebox/internal/storage"
	"github.com/rahulm/onebox/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db, logrus.New())
}

func TestCollectionLifecycle(t *testing.T) {
	s := newTestStore(t)

	exists, err := s.CollectionExists()
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.EnsureCollection())

	exists, err = s.CollectionExists()
	require.NoError(t, err)
	assert.True(t, exists)

	// Re-provisioning is idempotent.
	assert.NoError(t, s.EnsureCollection())
}

func TestSearchNearestOrdersByCosine(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureCollection())

	require.NoError(t, s.UpsertPoint(types.KnowledgePoint{
		ID: 1, Vector: []float32{1, 0, 0}, Payload: "x-axis",
	}))
	require.NoError(t, s.UpsertPoint(types.KnowledgePoint{
		ID: 2, Vector: []float32{0, 1, 0}, Payload: "y-axis",
	}))
	require.NoError(t, s.UpsertPoint(types.KnowledgePoint{
		ID: 3, Vector: []float32{1, 1, 0}, Payload: "diagonal",
	}))

	results, err := s.SearchNearest([]float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "x-axis", results[0].Payload)
	assert.Equal(t, "diagonal", results[1].Payload)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchNearestCapsAtK(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureCollection())

	for i := 1; i <= 10; i++ {
		require.NoError(t, s.UpsertPoint(types.KnowledgePoint{
			ID: i, Vector: []float32{float32(i), 1}, Payload: "p",
		}))
	}

	results, err := s.SearchNearest([]float32{1, 1}, 5)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestUpsertPointOverwrites(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureCollection())

	require.NoError(t, s.UpsertPoint(types.KnowledgePoint{
		ID: 1, Vector: []float32{1, 0}, Payload: "old",
	}))
	require.NoError(t, s.UpsertPoint(types.KnowledgePoint{
		ID: 1, Vector: []float32{0, 1}, Payload: "new",
	}))

	results, err := s.SearchNearest([]float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Payload)
}

func TestSeedWritesCorpus(t *testing.T) {
	s := newTestStore(t)
	embedder := embedding.New()

	require.NoError(t, s.Seed(embedder))

	query := embedder.Embed("book a call with an interested lead")
	results, err := s.SearchNearest(query, 10)
	require.NoError(t, err)
	assert.Len(t, results, len(seedTexts))

	// Re-seeding upserts in place rather than duplicating.
	require.NoError(t, s.Seed(embedder))
	results, err = s.SearchNearest(query, 10)
	require.NoError(t, err)
	assert.Len(t, results, len(seedTexts))
}

func TestCosineZeroNormIsZero(t *testing.T) {
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
	assert.InDelta(t, 1.0, cosine([]float32{2, 0}, []float32{5, 0}), 1e-9)
}
