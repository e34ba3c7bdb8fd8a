package store

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Document is an uploaded file. Immutable after text extraction; deleting
// it cascades to its content, chunks and vector collection.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID               int64     `bun:"id,pk,autoincrement"`
	OriginalFilename string    `bun:"original_filename,notnull"`
	StoredFilename   string    `bun:"stored_filename,notnull,unique"`
	Pages            int       `bun:"pages,notnull,default:0"`
	UploadedAt       time.Time `bun:"uploaded_at,nullzero,notnull,default:current_timestamp"`
}

// DocumentContent holds the full extracted text of one document.
type DocumentContent struct {
	bun.BaseModel `bun:"table:document_contents,alias:dc"`

	ID         int64  `bun:"id,pk,autoincrement"`
	DocumentID int64  `bun:"document_id,notnull"`
	Text       string `bun:"text_content,notnull"`
}

// DocumentChunk is one retrieval unit with its cached embedding, stored as
// a JSON array so the schema stays portable.
type DocumentChunk struct {
	bun.BaseModel `bun:"table:document_chunks,alias:ch"`

	ID         int64  `bun:"id,pk,autoincrement"`
	DocumentID int64  `bun:"document_id,notnull"`
	Seq        int    `bun:"seq,notnull"`
	Content    string `bun:"content,notnull"`
	Embedding  string `bun:"embedding,notnull"`
}

// Vector decodes the cached embedding.
func (c *DocumentChunk) Vector() ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(c.Embedding), &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// SetVector caches the embedding as JSON.
func (c *DocumentChunk) SetVector(vec []float32) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	c.Embedding = string(data)
	return nil
}

// ChatSession groups ordered chat turns for one conversational context.
// Created implicitly on the first question; no expiry.
type ChatSession struct {
	bun.BaseModel `bun:"table:chat_sessions,alias:s"`

	ID        string    `bun:"id,pk"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// ChatTurn is one question/answer pair. Append-only. DocumentID is zero
// for general-knowledge or small-talk turns.
type ChatTurn struct {
	bun.BaseModel `bun:"table:chat_turns,alias:t"`

	ID         int64     `bun:"id,pk,autoincrement"`
	SessionID  string    `bun:"session_id,notnull"`
	DocumentID int64     `bun:"document_id,nullzero"`
	Question   string    `bun:"question,notnull"`
	Answer     string    `bun:"answer,notnull"`
	Kind       string    `bun:"kind,notnull"`
	Sources    string    `bun:"sources"` // JSON array of source names
	Confidence int       `bun:"confidence,notnull,default:0"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// SourceList decodes the recorded source names.
func (t *ChatTurn) SourceList() []string {
	var sources []string
	if t.Sources == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(t.Sources), &sources); err != nil {
		return nil
	}
	return sources
}

// SetSources records source names as JSON.
func (t *ChatTurn) SetSources(sources []string) {
	if len(sources) == 0 {
		t.Sources = ""
		return
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return
	}
	t.Sources = string(data)
}
