package vectorstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/config"
	"pdfchat/internal/models"
	"pdfchat/internal/vectorstore"
)

func newMemStore(t *testing.T) *vectorstore.Store {
	t.Helper()
	s, err := vectorstore.New(&config.VectorDBConfig{InMemory: true})
	require.NoError(t, err)
	return s
}

func TestAddAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	chunks := []models.Chunk{
		{DocumentID: 1, Seq: 0, Content: "the cat sat"},
		{DocumentID: 1, Seq: 1, Content: "the dog ran"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
	}
	require.NoError(t, s.AddChunks(ctx, 1, "pets.pdf", chunks, vectors))

	matches, err := s.Search(ctx, 1, []float32{0, 1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "the dog ran", matches[0].Chunk.Content)
	assert.Equal(t, 1, matches[0].Chunk.Seq)
	assert.Equal(t, 100, matches[0].Score)
}

func TestSearchUnknownDocument(t *testing.T) {
	s := newMemStore(t)
	matches, err := s.Search(context.Background(), 99, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLengthMismatchRejected(t *testing.T) {
	s := newMemStore(t)
	err := s.AddChunks(context.Background(), 1, "a.pdf",
		[]models.Chunk{{Seq: 0, Content: "x"}}, nil)
	assert.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	key := "0123456789abcdef0123456789abcdef"

	src, err := vectorstore.New(&config.VectorDBConfig{InMemory: true, EncryptionKey: key})
	require.NoError(t, err)
	require.NoError(t, src.AddChunks(ctx, 3, "pets.pdf",
		[]models.Chunk{{DocumentID: 3, Seq: 0, Content: "the dog ran"}},
		[][]float32{{0, 1, 0}}))

	path, err := src.Export(3, filepath.Join(t.TempDir(), "doc-3.chromem"))
	require.NoError(t, err)

	dst, err := vectorstore.New(&config.VectorDBConfig{InMemory: true, EncryptionKey: key})
	require.NoError(t, err)
	require.NoError(t, dst.Import(path))

	matches, err := dst.Search(ctx, 3, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "the dog ran", matches[0].Chunk.Content)
	assert.Equal(t, 100, matches[0].Score)
}

func TestExportRequiresEncryptionKey(t *testing.T) {
	s := newMemStore(t)
	_, err := s.Export(1, "")
	assert.Error(t, err)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	require.NoError(t, s.AddChunks(ctx, 5, "gone.pdf",
		[]models.Chunk{{DocumentID: 5, Seq: 0, Content: "bye"}},
		[][]float32{{1, 0}}))
	s.Purge(5)

	matches, err := s.Search(ctx, 5, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
