package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pdfchat/internal/chat"
	"pdfchat/internal/chunker"
	"pdfchat/internal/config"
	"pdfchat/internal/embedding"
	"pdfchat/internal/index"
	"pdfchat/internal/models"
	"pdfchat/internal/parser"
	"pdfchat/internal/store"
	"pdfchat/internal/synthesizer"
	"pdfchat/internal/vectorstore"
)

// Storage is the slice of the persistence layer the pipeline needs.
// Implemented by store.Store.
type Storage interface {
	SaveDocument(ctx context.Context, doc *store.Document, text string, chunks []store.DocumentChunk) error
	Document(ctx context.Context, id int64) (*store.Document, error)
	Documents(ctx context.Context) ([]store.Document, error)
	Content(ctx context.Context, docID int64) (string, error)
	Chunks(ctx context.Context, docID int64) ([]store.DocumentChunk, error)
	DeleteDocument(ctx context.Context, id int64) error
}

// Mode selects how an answer is produced.
type Mode string

const (
	ModeStandard Mode = "standard" // top chunk, no external model
	ModeAI       Mode = "ai"       // external model over retrieved context
	ModeCompare  Mode = "compare"  // both, side by side
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStandard, "":
		return ModeStandard, nil
	case ModeAI:
		return ModeAI, nil
	case ModeCompare:
		return ModeCompare, nil
	}
	return "", fmt.Errorf("unknown answer mode %q", s)
}

// Service wires extraction, chunking, embedding, retrieval, synthesis and
// chat bookkeeping into the upload/ask/delete operations the CLI exposes.
// The vector store is optional; without it retrieval relies on the
// in-memory index plus the relational chunk cache.
type Service struct {
	cfg      config.RAGConfig
	storage  Storage
	embedder embedding.Embedder
	idx      *index.Index
	vectors  *vectorstore.Store
	synth    *synthesizer.Synthesizer
	chats    *chat.Manager
}

func New(cfg config.RAGConfig, storage Storage, embedder embedding.Embedder, idx *index.Index,
	vectors *vectorstore.Store, synth *synthesizer.Synthesizer, chats *chat.Manager) *Service {
	return &Service{
		cfg:      cfg,
		storage:  storage,
		embedder: embedder,
		idx:      idx,
		vectors:  vectors,
		synth:    synth,
		chats:    chats,
	}
}

// Upload extracts a file from disk and ingests its text. A readable file
// that yields no text is still stored, with zero chunks, and reported via
// ErrExtractionEmpty alongside the document.
func (s *Service) Upload(ctx context.Context, path string) (*models.Document, error) {
	text, pages, err := parser.Extract(path)
	if err != nil && !errors.Is(err, models.ErrExtractionEmpty) {
		return nil, err
	}
	return s.UploadText(ctx, filepath.Base(path), text, pages)
}

// UploadText ingests already-extracted text: chunk, embed, persist, index.
// The returned document carries the id every later operation refers to.
// Empty text stores a zero-chunk document and returns it together with
// ErrExtractionEmpty so the caller can decide whether that is a problem.
func (s *Service) UploadText(ctx context.Context, filename, text string, pages int) (*models.Document, error) {
	text = parser.Clean(text)

	pieces := chunker.Split(text, s.cfg.ChunkWords, s.cfg.OverlapWords)

	doc := &store.Document{
		OriginalFilename: filename,
		StoredFilename:   uuid.NewString() + "-" + filename,
		Pages:            pages,
	}

	chunks := make([]store.DocumentChunk, len(pieces))
	vectors := make([][]float32, len(pieces))
	for i, piece := range pieces {
		vec, err := s.embed(ctx, piece)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d of %s: %w", i, filename, err)
		}
		chunks[i] = store.DocumentChunk{Seq: i, Content: piece}
		if err := chunks[i].SetVector(vec); err != nil {
			return nil, fmt.Errorf("caching embedding: %w", err)
		}
		vectors[i] = vec
	}

	if err := s.storage.SaveDocument(ctx, doc, text, chunks); err != nil {
		return nil, err
	}

	modelChunks := make([]models.Chunk, len(pieces))
	for i, piece := range pieces {
		modelChunks[i] = models.Chunk{DocumentID: doc.ID, Seq: i, Content: piece}
		if err := s.idx.Add(doc.ID, modelChunks[i], vectors[i]); err != nil {
			return nil, fmt.Errorf("indexing chunk %d: %w", i, err)
		}
	}
	if s.vectors != nil {
		if err := s.vectors.AddChunks(ctx, doc.ID, filename, modelChunks, vectors); err != nil {
			log.Warn().Err(err).Int64("document_id", doc.ID).Msg("vector store ingestion failed, index still serves queries")
		}
	}

	log.Info().Int64("document_id", doc.ID).Str("filename", filename).
		Int("chunks", len(pieces)).Int("pages", pages).Msg("document ingested")

	result := &models.Document{
		ID:         doc.ID,
		Filename:   doc.OriginalFilename,
		Pages:      doc.Pages,
		UploadedAt: doc.UploadedAt,
	}
	if len(pieces) == 0 {
		return result, fmt.Errorf("%w: %s", models.ErrExtractionEmpty, filename)
	}
	return result, nil
}

// AskOptions parameterize one question.
type AskOptions struct {
	SessionID  string
	DocumentID int64 // zero means no document context
	Question   string
	Mode       Mode
}

// Ask answers one question and records the turn. Small talk is answered
// before any retrieval happens. The returned session id is the one the
// turn was recorded in, freshly created when opts.SessionID was empty.
func (s *Service) Ask(ctx context.Context, opts AskOptions) (*models.Answer, string, error) {
	question := strings.TrimSpace(opts.Question)
	if question == "" {
		return nil, "", errors.New("empty question")
	}
	if opts.Mode == "" {
		opts.Mode = ModeStandard
	}

	if ans, ok := chat.Classify(question); ok {
		sid, err := s.chats.Record(ctx, opts.SessionID, 0, ans)
		if err != nil {
			return nil, "", err
		}
		return ans, sid, nil
	}

	ans, err := s.answer(ctx, question, opts)
	if err != nil {
		return nil, "", err
	}

	sid, err := s.chats.Record(ctx, opts.SessionID, opts.DocumentID, ans)
	if err != nil {
		return nil, "", err
	}
	return ans, sid, nil
}

func (s *Service) answer(ctx context.Context, question string, opts AskOptions) (*models.Answer, error) {
	var filename string
	var matches []models.Match
	if opts.DocumentID != 0 {
		doc, found, err := s.retrieve(ctx, opts.DocumentID, question)
		if err != nil {
			return nil, err
		}
		filename = doc.OriginalFilename
		matches = found
	}

	switch opts.Mode {
	case ModeStandard:
		if opts.DocumentID == 0 {
			return synthesizer.NoticeAnswer(question), nil
		}
		ans, err := s.synth.Standard(question, filename, matches)
		if errors.Is(err, models.ErrNoRelevantContent) {
			return synthesizer.NoticeAnswer(question), nil
		}
		return ans, err

	case ModeAI:
		ans, err := s.synth.AI(ctx, question, filename, matches)
		switch {
		case err == nil:
			return ans, nil
		case errors.Is(err, models.ErrNoRelevantContent):
			return synthesizer.NoticeAnswer(question), nil
		case errors.Is(err, models.ErrGenerationUnavailable) && opts.DocumentID != 0:
			log.Warn().Err(err).Msg("ai answer unavailable, falling back to standard mode")
			ans, err := s.synth.Standard(question, filename, matches)
			if errors.Is(err, models.ErrNoRelevantContent) {
				return synthesizer.NoticeAnswer(question), nil
			}
			return ans, err
		case errors.Is(err, models.ErrGenerationUnavailable):
			// No document context to fall back on.
			return nil, fmt.Errorf("the answer service is unavailable right now, please try again shortly: %w", err)
		default:
			return nil, err
		}

	case ModeCompare:
		cmp := s.synth.Compare(ctx, question, filename, matches)
		// Carry the standard half's verdict on the envelope so chat
		// history records something meaningful.
		cmp.Text = cmp.Standard.Text
		cmp.Sources = cmp.Standard.Sources
		cmp.Confidence = cmp.Standard.Confidence
		return cmp, nil
	}
	return nil, fmt.Errorf("unknown answer mode %q", opts.Mode)
}

// retrieve ranks the document's chunks against the question. The warm path
// is the in-memory index; a cold index falls back to the vector store,
// then to reloading cached chunks from the relational store.
func (s *Service) retrieve(ctx context.Context, docID int64, question string) (*store.Document, []models.Match, error) {
	doc, err := s.storage.Document(ctx, docID)
	if err != nil {
		return nil, nil, err
	}

	query, err := s.embed(ctx, question)
	if err != nil {
		return nil, nil, err
	}

	if s.idx.Size(docID) == 0 {
		if s.vectors != nil {
			matches, err := s.vectors.Search(ctx, docID, query, s.cfg.TopK)
			if err == nil && len(matches) > 0 {
				return doc, matches, nil
			}
			if err != nil {
				log.Warn().Err(err).Int64("document_id", docID).Msg("vector store search failed")
			}
		}
		if err := s.loadDocument(ctx, docID); err != nil {
			return nil, nil, err
		}
	}

	return doc, s.idx.Search(docID, query, s.cfg.TopK), nil
}

// loadDocument rebuilds a document's index entries from the cached chunk
// embeddings.
func (s *Service) loadDocument(ctx context.Context, docID int64) error {
	chunks, err := s.storage.Chunks(ctx, docID)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		vec, err := c.Vector()
		if err != nil {
			return fmt.Errorf("decoding cached embedding for chunk %d: %w", c.Seq, err)
		}
		chunk := models.Chunk{DocumentID: docID, Seq: c.Seq, Content: c.Content}
		if err := s.idx.Add(docID, chunk, vec); err != nil {
			return err
		}
	}
	log.Debug().Int64("document_id", docID).Int("chunks", len(chunks)).Msg("index warmed from chunk cache")
	return nil
}

// Rebuild warms the index (and vector store, when configured) for every
// stored document. Returns the number of documents loaded.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	docs, err := s.storage.Documents(ctx)
	if err != nil {
		return 0, err
	}
	for _, doc := range docs {
		s.idx.Purge(doc.ID)
		if err := s.loadDocument(ctx, doc.ID); err != nil {
			return 0, fmt.Errorf("rebuilding document %d: %w", doc.ID, err)
		}
	}
	return len(docs), nil
}

// Delete removes a document everywhere: relational rows, index entries and
// the vector collection. Recorded chat turns stay; history annotates them.
func (s *Service) Delete(ctx context.Context, docID int64) error {
	if err := s.storage.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	s.idx.Purge(docID)
	if s.vectors != nil {
		s.vectors.Purge(docID)
	}
	log.Info().Int64("document_id", docID).Msg("document deleted")
	return nil
}

// ExportVectors writes a document's vector collection to an encrypted file
// and returns the written path. An empty path uses the vector store's
// default location.
func (s *Service) ExportVectors(ctx context.Context, docID int64, path string) (string, error) {
	if s.vectors == nil {
		return "", errors.New("no vector store configured")
	}
	if _, err := s.storage.Document(ctx, docID); err != nil {
		return "", err
	}
	return s.vectors.Export(docID, path)
}

// ImportVectors restores collections previously written by ExportVectors.
func (s *Service) ImportVectors(path string) error {
	if s.vectors == nil {
		return errors.New("no vector store configured")
	}
	return s.vectors.Import(path)
}

// Summarize digests one stored document.
func (s *Service) Summarize(ctx context.Context, docID int64) (*models.Summary, error) {
	doc, err := s.storage.Document(ctx, docID)
	if err != nil {
		return nil, err
	}
	text, err := s.storage.Content(ctx, docID)
	if err != nil {
		return nil, err
	}
	cached, err := s.storage.Chunks(ctx, docID)
	if err != nil {
		return nil, err
	}
	chunks := make([]models.Chunk, len(cached))
	for i, c := range cached {
		chunks[i] = models.Chunk{DocumentID: docID, Seq: c.Seq, Content: c.Content}
	}

	return s.synth.Summarize(ctx, models.Document{
		ID:         doc.ID,
		Filename:   doc.OriginalFilename,
		Pages:      doc.Pages,
		UploadedAt: doc.UploadedAt,
	}, text, chunks)
}

// Documents lists stored documents, newest first per the storage ordering.
func (s *Service) Documents(ctx context.Context) ([]models.Document, error) {
	stored, err := s.storage.Documents(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, len(stored))
	for i, d := range stored {
		docs[i] = models.Document{
			ID:         d.ID,
			Filename:   d.OriginalFilename,
			Pages:      d.Pages,
			UploadedAt: d.UploadedAt,
		}
	}
	return docs, nil
}

// History replays one session's turns in order.
func (s *Service) History(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	return s.chats.History(ctx, sessionID)
}

// embed retries once on failure; transient backend hiccups should not fail
// a whole upload.
func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	log.Warn().Err(err).Msg("embedding failed, retrying once")

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(200 * time.Millisecond):
	}
	vec, err = s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
	}
	return vec, nil
}
