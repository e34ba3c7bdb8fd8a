package chat

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pdfchat/internal/models"
	"pdfchat/internal/store"
)

// Storage is the slice of the persistence layer the chat manager needs.
type Storage interface {
	EnsureSession(ctx context.Context, id string) (string, error)
	AppendTurn(ctx context.Context, turn *store.ChatTurn) error
	Turns(ctx context.Context, sessionID string) ([]store.ChatTurn, error)
	DocumentExists(ctx context.Context, id int64) (bool, error)
}

// Manager records question/answer turns per session and replays history.
// Small-talk classification is stateless and lives on the package.
type Manager struct {
	store Storage
}

func NewManager(store Storage) *Manager {
	return &Manager{store: store}
}

type ruleKind int

const (
	ruleGreeting ruleKind = iota
	ruleIdentity
	ruleFarewell
	ruleThanks
)

// smallTalkRules are checked in order; first match wins. Identity patterns
// come before greetings so "hi, who are you?" answers the real question.
var smallTalkRules = []struct {
	kind    ruleKind
	pattern *regexp.Regexp
}{
	{ruleIdentity, regexp.MustCompile(`\bwho (are|r) (you|u)\b`)},
	{ruleIdentity, regexp.MustCompile(`\bwhat are you\b`)},
	{ruleIdentity, regexp.MustCompile(`\b(what is|what's) your name\b`)},
	{ruleIdentity, regexp.MustCompile(`\bintroduce yourself\b`)},
	{ruleGreeting, regexp.MustCompile(`^(hello|hi|hey|yo|greetings|good (morning|afternoon|evening))\b`)},
	{ruleFarewell, regexp.MustCompile(`^(bye|goodbye|good night|see (you|ya))\b`)},
	{ruleThanks, regexp.MustCompile(`^(thanks|thank you|thx|ty)\b`)},
}

var smallTalkReplies = map[ruleKind]string{
	ruleGreeting: fmt.Sprintf("Hello! I'm %s, your document assistant. Upload a document and ask me anything about it.", models.AssistantName),
	ruleIdentity: fmt.Sprintf("I'm %s, a document question answering assistant. I find answers inside the documents you upload.", models.AssistantName),
	ruleFarewell: "Goodbye! Feel free to come back with more questions.",
	ruleThanks:   "You're welcome! Happy to help with anything else.",
}

// Classify answers greetings, identity questions, farewells and thanks
// without touching the retrieval pipeline. It reports false for anything
// that looks like a real question.
func Classify(question string) (*models.Answer, bool) {
	normalized := strings.ToLower(strings.TrimSpace(question))
	normalized = strings.TrimRight(normalized, "!?.,")
	if normalized == "" {
		return nil, false
	}
	for _, rule := range smallTalkRules {
		if rule.pattern.MatchString(normalized) {
			return &models.Answer{
				Kind:      models.KindSmallTalk,
				Question:  question,
				Text:      smallTalkReplies[rule.kind],
				Generator: "small-talk",
			}, true
		}
	}
	return nil, false
}

// Record appends one turn to the session, creating the session first when
// sessionID is empty or unknown, and returns the id the turn landed in.
func (m *Manager) Record(ctx context.Context, sessionID string, docID int64, ans *models.Answer) (string, error) {
	sessionID, err := m.store.EnsureSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	turn := &store.ChatTurn{
		SessionID:  sessionID,
		DocumentID: docID,
		Question:   ans.Question,
		Answer:     ans.Text,
		Kind:       string(ans.Kind),
		Confidence: ans.Confidence,
	}
	turn.SetSources(ans.Sources)
	if err := m.store.AppendTurn(ctx, turn); err != nil {
		return "", fmt.Errorf("recording turn: %w", err)
	}
	return sessionID, nil
}

// Turn is one replayed history entry. Sources of deleted documents are
// annotated rather than dropped so old answers stay readable.
type Turn struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Kind       string    `json:"kind"`
	Sources    []string  `json:"sources,omitempty"`
	Confidence int       `json:"confidence"`
	AskedAt    time.Time `json:"asked_at"`
}

// History replays a session's turns in order.
func (m *Manager) History(ctx context.Context, sessionID string) ([]Turn, error) {
	turns, err := m.store.Turns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	missing := make(map[int64]bool)
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		sources := t.SourceList()
		if t.DocumentID != 0 {
			gone, seen := missing[t.DocumentID]
			if !seen {
				exists, err := m.store.DocumentExists(ctx, t.DocumentID)
				if err != nil {
					log.Warn().Err(err).Int64("document_id", t.DocumentID).Msg("could not check source document")
					exists = true
				}
				gone = !exists
				missing[t.DocumentID] = gone
			}
			if gone {
				for i, s := range sources {
					sources[i] = s + " (source unavailable)"
				}
			}
		}
		out = append(out, Turn{
			Question:   t.Question,
			Answer:     t.Answer,
			Kind:       t.Kind,
			Sources:    sources,
			Confidence: t.Confidence,
			AskedAt:    t.CreatedAt,
		})
	}
	return out, nil
}
