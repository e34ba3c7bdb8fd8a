package vectorstore

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pdfchat/internal/config"
	"pdfchat/internal/index"
	"pdfchat/internal/models"
)

const compress = false

// Store persists chunk vectors in a chromem-go database, one collection per
// document. It survives restarts without a relational database and serves
// as the warm-start retrieval path before the in-memory index is rebuilt.
type Store struct {
	db            *chromem.DB
	path          string
	encryptionKey string
}

func New(cfg *config.VectorDBConfig) (*Store, error) {
	var (
		db  *chromem.DB
		err error
	)
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, compress)
		if err != nil {
			return nil, fmt.Errorf("opening vector database: %w", err)
		}
	}
	return &Store{db: db, path: cfg.Path, encryptionKey: cfg.EncryptionKey}, nil
}

func collectionName(docID int64) string {
	return fmt.Sprintf("doc-%d", docID)
}

// AddChunks stores the chunks of one document together with their vectors.
func (s *Store) AddChunks(ctx context.Context, docID int64, filename string, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	collection, err := s.db.GetOrCreateCollection(collectionName(docID), map[string]string{"filename": filename}, nil)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("%d-%d", docID, chunk.Seq),
			Content: chunk.Content,
			Metadata: map[string]string{
				"filename": filename,
				"seq":      strconv.Itoa(chunk.Seq),
			},
			Embedding: vectors[i],
		}
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("adding documents to collection: %w", err)
	}
	return nil
}

// Search ranks the persisted chunks of a document against a query vector.
// An unknown or empty document yields an empty result.
func (s *Store) Search(ctx context.Context, docID int64, query []float32, k int) ([]models.Match, error) {
	collection := s.db.GetCollection(collectionName(docID), nil)
	if collection == nil {
		return nil, nil
	}
	count := collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k <= 0 || k > count {
		k = count
	}

	results, err := collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: query,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	matches := make([]models.Match, 0, len(results))
	for _, res := range results {
		seq, _ := strconv.Atoi(res.Metadata["seq"])
		matches = append(matches, models.Match{
			Chunk: models.Chunk{DocumentID: docID, Seq: seq, Content: res.Content},
			Score: index.Percent(float64(res.Similarity)),
		})
	}
	return matches, nil
}

// Purge drops the document's collection. Missing collections are fine; the
// delete already happened.
func (s *Store) Purge(docID int64) {
	if err := s.db.DeleteCollection(collectionName(docID)); err != nil {
		log.Debug().Err(err).Int64("document_id", docID).Msg("vector collection already gone")
	}
}

// Export writes a document's collection to an encrypted file so it can be
// moved to another database. An empty filePath defaults to
// <path>/doc-<id>.chromem; the written path is returned.
func (s *Store) Export(docID int64, filePath string) (string, error) {
	if s.encryptionKey == "" {
		return "", fmt.Errorf("encryption key is required for export")
	}
	name := collectionName(docID)
	if filePath == "" {
		dir := s.path
		if dir == "" {
			dir = "."
		}
		filePath = filepath.Join(dir, name+".chromem")
	}
	if err := s.db.ExportToFile(filePath, compress, s.encryptionKey, name); err != nil {
		return "", fmt.Errorf("exporting collection: %w", err)
	}
	return filePath, nil
}

// Import restores collections previously written by Export.
func (s *Store) Import(filePath string) error {
	if s.encryptionKey == "" {
		return fmt.Errorf("encryption key is required for import")
	}
	if err := s.db.ImportFromFile(filePath, s.encryptionKey); err != nil {
		return fmt.Errorf("importing collection: %w", err)
	}
	return nil
}
