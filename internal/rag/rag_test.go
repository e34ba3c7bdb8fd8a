package rag_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/chat"
	"pdfchat/internal/config"
	"pdfchat/internal/embedding"
	"pdfchat/internal/index"
	"pdfchat/internal/models"
	"pdfchat/internal/rag"
	"pdfchat/internal/store"
	"pdfchat/internal/synthesizer"
)

// fakeStore is an in-memory stand-in for the relational store, shared by
// the pipeline and the chat manager in tests.
type fakeStore struct {
	nextID   int64
	docs     map[int64]*store.Document
	contents map[int64]string
	chunks   map[int64][]store.DocumentChunk
	sessions map[string]bool
	turns    []store.ChatTurn
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:     map[int64]*store.Document{},
		contents: map[int64]string{},
		chunks:   map[int64][]store.DocumentChunk{},
		sessions: map[string]bool{},
	}
}

func (f *fakeStore) SaveDocument(_ context.Context, doc *store.Document, text string, chunks []store.DocumentChunk) error {
	f.nextID++
	doc.ID = f.nextID
	doc.UploadedAt = time.Now()
	copied := *doc
	f.docs[doc.ID] = &copied
	f.contents[doc.ID] = text
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
	}
	f.chunks[doc.ID] = chunks
	return nil
}

func (f *fakeStore) Document(_ context.Context, id int64) (*store.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, models.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeStore) Documents(_ context.Context) ([]store.Document, error) {
	var out []store.Document
	for _, d := range f.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeStore) Content(_ context.Context, docID int64) (string, error) {
	return f.contents[docID], nil
}

func (f *fakeStore) Chunks(_ context.Context, docID int64) ([]store.DocumentChunk, error) {
	return f.chunks[docID], nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, id int64) error {
	if _, ok := f.docs[id]; !ok {
		return models.ErrDocumentNotFound
	}
	delete(f.docs, id)
	delete(f.contents, id)
	delete(f.chunks, id)
	return nil
}

func (f *fakeStore) DocumentExists(_ context.Context, id int64) (bool, error) {
	_, ok := f.docs[id]
	return ok, nil
}

func (f *fakeStore) EnsureSession(_ context.Context, id string) (string, error) {
	if id == "" {
		id = "session-1"
	}
	f.sessions[id] = true
	return id, nil
}

func (f *fakeStore) AppendTurn(_ context.Context, turn *store.ChatTurn) error {
	f.turns = append(f.turns, *turn)
	return nil
}

func (f *fakeStore) Turns(_ context.Context, sessionID string) ([]store.ChatTurn, error) {
	var out []store.ChatTurn
	for _, t := range f.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

// countingEmbedder wraps the local embedder and counts calls.
type countingEmbedder struct {
	inner embedding.Embedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Dimension() int { return c.inner.Dimension() }
func (c *countingEmbedder) Name() string   { return c.inner.Name() }

// flakyEmbedder fails a fixed number of calls before delegating.
type flakyEmbedder struct {
	inner    embedding.Embedder
	failures int
	calls    int
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("backend hiccup")
	}
	return f.inner.Embed(ctx, text)
}

func (f *flakyEmbedder) Dimension() int { return f.inner.Dimension() }
func (f *flakyEmbedder) Name() string   { return f.inner.Name() }

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, string, string) (string, error) {
	return "", models.ErrGenerationUnavailable
}

func (failingGenerator) Name() string { return "broken-model" }

func testConfig() config.RAGConfig {
	return config.RAGConfig{ChunkWords: 3, OverlapWords: 1, TopK: 3, MinRelevance: 20, MaxContextChars: 12000}
}

func newService(fs *fakeStore, emb embedding.Embedder, gen synthesizer.Generator) *rag.Service {
	cfg := testConfig()
	synth := synthesizer.New(gen, synthesizer.Options{
		TopK: cfg.TopK, MinRelevance: cfg.MinRelevance, MaxContextChars: cfg.MaxContextChars,
	})
	return rag.New(cfg, fs, emb, index.New(), nil, synth, chat.NewManager(fs))
}

const petsText = "The cat sat. The dog ran. The bird flew."

func TestUploadAndAskStandard(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, embedding.NewLocal(0), nil)
	ctx := context.Background()

	doc, err := svc.UploadText(ctx, "pets.pdf", petsText, 1)
	require.NoError(t, err)
	require.NotZero(t, doc.ID)

	ans, sid, err := svc.Ask(ctx, rag.AskOptions{
		DocumentID: doc.ID,
		Question:   "What did the dog do?",
		Mode:       rag.ModeStandard,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sid)
	assert.Equal(t, models.KindStandard, ans.Kind)
	assert.Contains(t, ans.Text, "dog")
	assert.Equal(t, []string{"pets.pdf"}, ans.Sources)
	assert.Greater(t, ans.Confidence, 0)

	require.Len(t, fs.turns, 1)
	assert.Equal(t, doc.ID, fs.turns[0].DocumentID)
}

func TestSmallTalkSkipsRetrieval(t *testing.T) {
	fs := newFakeStore()
	emb := &countingEmbedder{inner: embedding.NewLocal(0)}
	svc := newService(fs, emb, nil)

	ans, sid, err := svc.Ask(context.Background(), rag.AskOptions{Question: "hello"})
	require.NoError(t, err)
	assert.Equal(t, models.KindSmallTalk, ans.Kind)
	assert.Equal(t, "session-1", sid)
	assert.Zero(t, emb.calls)

	require.Len(t, fs.turns, 1)
	assert.Zero(t, fs.turns[0].DocumentID)
}

func TestAskUnknownDocument(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, embedding.NewLocal(0), nil)

	_, _, err := svc.Ask(context.Background(), rag.AskOptions{
		DocumentID: 99,
		Question:   "What did the dog do?",
	})
	assert.True(t, errors.Is(err, models.ErrDocumentNotFound))
}

func TestAskStandardWithoutDocument(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, embedding.NewLocal(0), nil)

	ans, _, err := svc.Ask(context.Background(), rag.AskOptions{Question: "What did the dog do?"})
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "couldn't find")
	assert.Zero(t, ans.Confidence)
}

func TestCompareIsolatesGeneratorFailure(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, embedding.NewLocal(0), failingGenerator{})
	ctx := context.Background()

	doc, err := svc.UploadText(ctx, "pets.pdf", petsText, 1)
	require.NoError(t, err)

	ans, _, err := svc.Ask(ctx, rag.AskOptions{
		DocumentID: doc.ID,
		Question:   "What did the dog do?",
		Mode:       rag.ModeCompare,
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindComparison, ans.Kind)
	assert.False(t, ans.AISuccess)
	require.NotNil(t, ans.Standard)
	assert.Contains(t, ans.Standard.Text, "dog")
	assert.Equal(t, ans.Standard.Confidence, ans.Confidence)
}

func TestAIFallsBackToStandard(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, embedding.NewLocal(0), failingGenerator{})
	ctx := context.Background()

	doc, err := svc.UploadText(ctx, "pets.pdf", petsText, 1)
	require.NoError(t, err)

	ans, _, err := svc.Ask(ctx, rag.AskOptions{
		DocumentID: doc.ID,
		Question:   "What did the dog do?",
		Mode:       rag.ModeAI,
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindStandard, ans.Kind)
	assert.Contains(t, ans.Text, "dog")
}

func TestEmbedRetriesOnceThenSucceeds(t *testing.T) {
	fs := newFakeStore()
	emb := &flakyEmbedder{inner: embedding.NewLocal(0), failures: 1}
	svc := newService(fs, emb, nil)

	doc, err := svc.UploadText(context.Background(), "pets.pdf", "The dog ran", 1)
	require.NoError(t, err)
	assert.NotZero(t, doc.ID)
	assert.Equal(t, 2, emb.calls)
}

func TestEmbedFailingTwiceSurfacesUnavailable(t *testing.T) {
	fs := newFakeStore()
	emb := &flakyEmbedder{inner: embedding.NewLocal(0), failures: 2}
	svc := newService(fs, emb, nil)

	_, err := svc.UploadText(context.Background(), "pets.pdf", "The dog ran", 1)
	assert.True(t, errors.Is(err, models.ErrEmbeddingUnavailable))
}

func TestGeneralKnowledgeGenerationFailureIsWrapped(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, embedding.NewLocal(0), failingGenerator{})

	_, _, err := svc.Ask(context.Background(), rag.AskOptions{
		Question: "Is the hypothesis supported?",
		Mode:     rag.ModeAI,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrGenerationUnavailable))
	assert.Contains(t, err.Error(), "try again")
}

func TestUploadEmptyTextStoresZeroChunkDocument(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, embedding.NewLocal(0), nil)
	ctx := context.Background()

	doc, err := svc.UploadText(ctx, "blank.pdf", "   \n\t ", 1)
	assert.True(t, errors.Is(err, models.ErrExtractionEmpty))
	require.NotNil(t, doc)
	require.NotZero(t, doc.ID)

	// The document exists; asking about it finds nothing relevant.
	ans, _, err := svc.Ask(ctx, rag.AskOptions{DocumentID: doc.ID, Question: "What did the dog do?"})
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "couldn't find")
	assert.Zero(t, ans.Confidence)
}

func TestDeleteRemovesDocument(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, embedding.NewLocal(0), nil)
	ctx := context.Background()

	doc, err := svc.UploadText(ctx, "pets.pdf", petsText, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, doc.ID))

	err = svc.Delete(ctx, doc.ID)
	assert.True(t, errors.Is(err, models.ErrDocumentNotFound))

	_, _, err = svc.Ask(ctx, rag.AskOptions{DocumentID: doc.ID, Question: "What did the dog do?"})
	assert.True(t, errors.Is(err, models.ErrDocumentNotFound))
}

func TestColdIndexWarmsFromChunkCache(t *testing.T) {
	fs := newFakeStore()
	ctx := context.Background()

	first := newService(fs, embedding.NewLocal(0), nil)
	doc, err := first.UploadText(ctx, "pets.pdf", petsText, 1)
	require.NoError(t, err)

	// Fresh service, empty index, same storage: retrieval must reload the
	// cached chunk embeddings.
	second := newService(fs, embedding.NewLocal(0), nil)
	ans, _, err := second.Ask(ctx, rag.AskOptions{
		DocumentID: doc.ID,
		Question:   "What did the dog do?",
	})
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "dog")
	assert.Greater(t, ans.Confidence, 0)
}

func TestRebuild(t *testing.T) {
	fs := newFakeStore()
	ctx := context.Background()

	first := newService(fs, embedding.NewLocal(0), nil)
	_, err := first.UploadText(ctx, "pets.pdf", petsText, 1)
	require.NoError(t, err)
	_, err = first.UploadText(ctx, "more.pdf", "Fish swim in the deep blue sea.", 1)
	require.NoError(t, err)

	second := newService(fs, embedding.NewLocal(0), nil)
	n, err := second.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSummarizeExtractive(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, embedding.NewLocal(0), nil)
	ctx := context.Background()

	text := "Golden retrievers are friendly dogs that love exercise. They need daily walks and plenty of attention from their owners."
	doc, err := svc.UploadText(ctx, "dogs.pdf", text, 1)
	require.NoError(t, err)

	sum, err := svc.Summarize(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "extractive", sum.Generator)
	assert.Equal(t, "dogs.pdf", sum.Filename)
	assert.NotEmpty(t, sum.Text)
	assert.NotEmpty(t, sum.Keywords)
}

func TestDocumentsListing(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, embedding.NewLocal(0), nil)
	ctx := context.Background()

	_, err := svc.UploadText(ctx, "pets.pdf", petsText, 1)
	require.NoError(t, err)

	docs, err := svc.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "pets.pdf", docs[0].Filename)
	assert.Equal(t, 1, docs[0].Pages)
}

func TestHistoryAfterDelete(t *testing.T) {
	fs := newFakeStore()
	svc := newService(fs, embedding.NewLocal(0), nil)
	ctx := context.Background()

	doc, err := svc.UploadText(ctx, "pets.pdf", petsText, 1)
	require.NoError(t, err)

	_, sid, err := svc.Ask(ctx, rag.AskOptions{DocumentID: doc.ID, Question: "What did the dog do?"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, doc.ID))

	history, err := svc.History(ctx, sid)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Len(t, history[0].Sources, 1)
	assert.Contains(t, history[0].Sources[0], "(source unavailable)")
}
