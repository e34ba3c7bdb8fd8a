package models

import "time"

// Document is an uploaded file after text extraction.
type Document struct {
	ID         int64
	Filename   string
	Pages      int
	UploadedAt time.Time
}

// Chunk is a bounded span of a document's text used as the unit of retrieval.
type Chunk struct {
	DocumentID int64
	Seq        int
	Content    string
}

// Match is a chunk ranked against a query, with the similarity reported as
// a 0-100 percentage.
type Match struct {
	Chunk Chunk
	Score int
}

type AnswerKind string

const (
	KindStandard   AnswerKind = "standard"
	KindAI         AnswerKind = "ai"
	KindComparison AnswerKind = "comparison"
	KindSmallTalk  AnswerKind = "smalltalk"
)

// Answer is the tagged result of a question. Standard and AI kinds carry
// Text/Sources/Confidence; Comparison carries both halves.
type Answer struct {
	Kind       AnswerKind `json:"kind"`
	Question   string     `json:"question"`
	Text       string     `json:"answer,omitempty"`
	Sources    []string   `json:"sources,omitempty"`
	Confidence int        `json:"confidence"`
	Generator  string     `json:"generator,omitempty"`

	// Comparison kind only.
	Standard  *Answer `json:"standard,omitempty"`
	AI        *Answer `json:"ai,omitempty"`
	AISuccess bool    `json:"ai_success,omitempty"`
}

// Summary is a structured digest of one document.
type Summary struct {
	DocumentID int64    `json:"document_id"`
	Filename   string   `json:"filename"`
	Text       string   `json:"summary_text"`
	Keywords   []string `json:"keywords"`
	Generator  string   `json:"generator"`
}
