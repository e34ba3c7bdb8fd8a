package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"pdfchat/internal/models"
)

// Store is the relational persistence collaborator: documents, their full
// text and chunks, and the chat history.
type Store struct {
	db *bun.DB
}

// Connect opens a Postgres-backed store from a DSN.
func Connect(dsn string, debug bool) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	for _, model := range []any{
		(*Document)(nil),
		(*DocumentContent)(nil),
		(*DocumentChunk)(nil),
		(*ChatSession)(nil),
		(*ChatTurn)(nil),
	} {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}
	return nil
}

// SaveDocument inserts the document, its full text and its chunks in one
// transaction and fills in the generated document id.
func (s *Store) SaveDocument(ctx context.Context, doc *Document, text string, chunks []DocumentChunk) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(doc).Exec(ctx); err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}
		content := &DocumentContent{DocumentID: doc.ID, Text: text}
		if _, err := tx.NewInsert().Model(content).Exec(ctx); err != nil {
			return fmt.Errorf("inserting content: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}
		for i := range chunks {
			chunks[i].DocumentID = doc.ID
		}
		if _, err := tx.NewInsert().Model(&chunks).Exec(ctx); err != nil {
			return fmt.Errorf("inserting chunks: %w", err)
		}
		return nil
	})
}

func (s *Store) Document(ctx context.Context, id int64) (*Document, error) {
	doc := new(Document)
	err := s.db.NewSelect().Model(doc).Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", models.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := s.db.NewSelect().Model(&docs).Order("uploaded_at DESC").Scan(ctx)
	return docs, err
}

func (s *Store) DocumentExists(ctx context.Context, id int64) (bool, error) {
	return s.db.NewSelect().Model((*Document)(nil)).Where("d.id = ?", id).Exists(ctx)
}

func (s *Store) Content(ctx context.Context, docID int64) (string, error) {
	content := new(DocumentContent)
	err := s.db.NewSelect().Model(content).Where("dc.document_id = ?", docID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: no content for id %d", models.ErrDocumentNotFound, docID)
	}
	if err != nil {
		return "", err
	}
	return content.Text, nil
}

func (s *Store) Chunks(ctx context.Context, docID int64) ([]DocumentChunk, error) {
	var chunks []DocumentChunk
	err := s.db.NewSelect().Model(&chunks).Where("ch.document_id = ?", docID).Order("seq ASC").Scan(ctx)
	return chunks, err
}

// DeleteDocument removes the document and cascades to its content and
// chunks. Chat turns that cite it are kept; their sources render as
// unavailable.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*Document)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: id %d", models.ErrDocumentNotFound, id)
		}
		if _, err := tx.NewDelete().Model((*DocumentContent)(nil)).Where("document_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*DocumentChunk)(nil)).Where("document_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
}

// EnsureSession returns the id unchanged when the session exists, creating
// it (or a fresh one when id is empty) otherwise.
func (s *Store) EnsureSession(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	session := &ChatSession{ID: id}
	_, err := s.db.NewInsert().Model(session).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("ensuring session: %w", err)
	}
	return session.ID, nil
}

func (s *Store) AppendTurn(ctx context.Context, turn *ChatTurn) error {
	_, err := s.db.NewInsert().Model(turn).Exec(ctx)
	return err
}

func (s *Store) Turns(ctx context.Context, sessionID string) ([]ChatTurn, error) {
	var turns []ChatTurn
	err := s.db.NewSelect().Model(&turns).Where("t.session_id = ?", sessionID).Order("created_at ASC", "id ASC").Scan(ctx)
	return turns, err
}
