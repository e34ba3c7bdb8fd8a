package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"pdfchat/internal/models"
)

// Generator produces free text from a prompt; implemented by
// llmservice.Client. A nil Generator means AI mode is not configured and
// every AI path reports ErrGenerationUnavailable.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

type Options struct {
	TopK            int
	MinRelevance    int // percent; matches below it are noise
	MaxContextChars int
}

// Synthesizer turns ranked matches into answers: locally (standard mode) or
// through an external model (AI mode), or both side by side.
type Synthesizer struct {
	gen  Generator
	opts Options
}

func New(gen Generator, opts Options) *Synthesizer {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.MinRelevance <= 0 {
		opts.MinRelevance = 20
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = 12000
	}
	return &Synthesizer{gen: gen, opts: opts}
}

const noRelevantContentMessage = "I couldn't find any relevant information in the document. Try rephrasing the question."

// NoticeAnswer is the user-visible rendering of ErrNoRelevantContent: a
// normal answer, not an error state.
func NoticeAnswer(question string) *models.Answer {
	return &models.Answer{
		Kind:     models.KindStandard,
		Question: question,
		Text:     noRelevantContentMessage,
	}
}

// Standard answers from the single top-scoring chunk. Matches below the
// relevance threshold are treated the same as no matches at all:
// ErrNoRelevantContent, never noise.
func (s *Synthesizer) Standard(question, filename string, matches []models.Match) (*models.Answer, error) {
	if len(matches) == 0 {
		return nil, models.ErrNoRelevantContent
	}
	top := matches[0]
	if top.Score < s.opts.MinRelevance {
		return nil, fmt.Errorf("%w: best score %d below threshold %d",
			models.ErrNoRelevantContent, top.Score, s.opts.MinRelevance)
	}

	var text string
	switch {
	case top.Score >= 70:
		text = fmt.Sprintf("Based on the document content, I found this information:\n\n%s", top.Chunk.Content)
	case top.Score >= 40:
		text = fmt.Sprintf("I'm not entirely sure, but here's what I found in the document:\n\n%s", top.Chunk.Content)
	default:
		text = fmt.Sprintf("I couldn't find a definitive answer, but this might be relevant:\n\n%s", top.Chunk.Content)
	}

	return &models.Answer{
		Kind:       models.KindStandard,
		Question:   question,
		Text:       text,
		Sources:    []string{filename},
		Confidence: top.Score,
		Generator:  "similarity-search",
	}, nil
}

// AI concatenates the top-K chunks, truncated to the model's input budget,
// and asks the external model to answer from that context only. The source
// list is what the model was given; its citations are best-effort.
func (s *Synthesizer) AI(ctx context.Context, question, filename string, matches []models.Match) (*models.Answer, error) {
	if s.gen == nil {
		return nil, fmt.Errorf("%w: no generation backend configured", models.ErrGenerationUnavailable)
	}

	var prompt string
	sources := []string{filename}
	if len(matches) == 0 && filename == "" {
		// General-knowledge question, no document context.
		prompt = question
		sources = nil
	} else {
		if len(matches) == 0 {
			return nil, models.ErrNoRelevantContent
		}
		k := s.opts.TopK
		if k > len(matches) {
			k = len(matches)
		}
		texts := make([]string, k)
		for i := 0; i < k; i++ {
			texts[i] = matches[i].Chunk.Content
		}
		context := truncate(strings.Join(texts, models.ContextSeparator), s.opts.MaxContextChars)
		prompt = fmt.Sprintf(models.AnswerPromptTemplate, context, filename, question)
	}

	text, err := s.gen.Generate(ctx, models.AnswerSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return &models.Answer{
		Kind:      models.KindAI,
		Question:  question,
		Text:      strings.TrimSpace(text),
		Sources:   sources,
		Generator: s.gen.Name(),
	}, nil
}

// Compare runs both variants for the same question. A failure in one
// variant never aborts the other; the AI half carries an explicit success
// flag.
func (s *Synthesizer) Compare(ctx context.Context, question, filename string, matches []models.Match) *models.Answer {
	cmp := &models.Answer{Kind: models.KindComparison, Question: question}

	std, err := s.Standard(question, filename, matches)
	if err != nil {
		std = NoticeAnswer(question)
	}
	cmp.Standard = std

	ai, err := s.AI(ctx, question, filename, matches)
	if err != nil {
		log.Warn().Err(err).Msg("ai half of comparison failed")
		cmp.AI = &models.Answer{Kind: models.KindAI, Question: question, Text: "AI answer not available"}
		cmp.AISuccess = false
		return cmp
	}
	cmp.AI = ai
	cmp.AISuccess = true
	return cmp
}

func truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
