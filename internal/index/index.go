package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"pdfchat/internal/models"
)

// DefaultTopK is the number of matches returned when the caller does not
// ask for a specific count.
const DefaultTopK = 3

type entry struct {
	chunk models.Chunk
	vec   []float32
}

// Index holds (chunk, vector) pairs per document and ranks them against a
// query vector by cosine similarity. It is an explicit service object owned
// by the process; lookups are scoped by document identifier. Chunks are
// immutable once added, so concurrent reads are safe; the mutex serializes
// writers.
type Index struct {
	mu   sync.RWMutex
	docs map[int64][]entry
}

func New() *Index {
	return &Index{docs: make(map[int64][]entry)}
}

// Add appends a chunk vector to the document's list. All vectors of one
// document must share a dimension.
func (ix *Index) Add(docID int64, chunk models.Chunk, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty vector for document %d chunk %d", docID, chunk.Seq)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	entries := ix.docs[docID]
	if len(entries) > 0 && len(entries[0].vec) != len(vec) {
		return fmt.Errorf("vector dimension mismatch for document %d: have %d, got %d",
			docID, len(entries[0].vec), len(vec))
	}
	ix.docs[docID] = append(entries, entry{chunk: chunk, vec: vec})
	return nil
}

// Search returns up to k chunks of the document ordered by descending
// similarity to the query vector. Ties keep the original chunk sequence
// order. A document with no chunks yields an empty result, not an error.
// A query whose dimension differs from the stored vectors also yields an
// empty result; comparing over a shared prefix would rank garbage.
func (ix *Index) Search(docID int64, query []float32, k int) []models.Match {
	if k <= 0 {
		k = DefaultTopK
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	entries := ix.docs[docID]
	if len(entries) == 0 {
		return nil
	}
	if len(query) != len(entries[0].vec) {
		return nil
	}

	type scored struct {
		match models.Match
		raw   float64
	}
	ranked := make([]scored, 0, len(entries))
	for _, e := range entries {
		raw := cosine(query, e.vec)
		ranked = append(ranked, scored{
			match: models.Match{Chunk: e.chunk, Score: Percent(raw)},
			raw:   raw,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].raw > ranked[j].raw })

	if k > len(ranked) {
		k = len(ranked)
	}
	matches := make([]models.Match, k)
	for i := 0; i < k; i++ {
		matches[i] = ranked[i].match
	}
	return matches
}

// Size reports the number of chunks held for a document.
func (ix *Index) Size(docID int64) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs[docID])
}

// Purge drops all chunks of a document.
func (ix *Index) Purge(docID int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.docs, docID)
}

// Percent converts a raw cosine similarity in [-1,1] to the reported 0-100
// percentage: negative scores clamp to zero, then round to nearest integer.
func Percent(raw float64) int {
	if raw < 0 || math.IsNaN(raw) {
		raw = 0
	}
	if raw > 1 {
		raw = 1
	}
	return int(math.Round(raw * 100))
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
