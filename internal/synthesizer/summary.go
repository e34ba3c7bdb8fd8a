package synthesizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"pdfchat/internal/models"
)

// Summarize produces a structured digest of one document: an AI summary
// with model-extracted keywords when a generator is configured, otherwise
// (or when generation is unavailable) an extractive summary built from the
// chunks themselves.
func (s *Synthesizer) Summarize(ctx context.Context, doc models.Document, text string, chunks []models.Chunk) (*models.Summary, error) {
	if s.gen != nil {
		summary, err := s.aiSummary(ctx, doc, text)
		if err == nil {
			return summary, nil
		}
		if !errors.Is(err, models.ErrGenerationUnavailable) {
			return nil, err
		}
		log.Warn().Err(err).Int64("document_id", doc.ID).Msg("falling back to extractive summary")
	}
	return s.extractiveSummary(doc, chunks), nil
}

func (s *Synthesizer) aiSummary(ctx context.Context, doc models.Document, text string) (*models.Summary, error) {
	truncated := truncate(text, s.opts.MaxContextChars)

	summaryText, err := s.gen.Generate(ctx, models.AnswerSystemPrompt,
		fmt.Sprintf(models.SummaryPromptTemplate, doc.Filename, truncated))
	if err != nil {
		return nil, err
	}

	var keywords []string
	keywordText, err := s.gen.Generate(ctx, models.AnswerSystemPrompt,
		fmt.Sprintf(models.KeywordPromptTemplate, truncate(text, 5000)))
	if err != nil {
		log.Warn().Err(err).Msg("keyword extraction failed, summary kept without keywords")
	} else if err := json.Unmarshal([]byte(stripCodeFence(keywordText)), &keywords); err != nil {
		log.Warn().Err(err).Msg("keyword response was not a JSON array")
		keywords = nil
	}

	return &models.Summary{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Text:       strings.TrimSpace(summaryText),
		Keywords:   keywords,
		Generator:  s.gen.Name(),
	}, nil
}

// extractiveSummary picks the leading sentences of each chunk, deduplicates
// near-identical ones and caps the result, with frequency-based keywords.
// No external calls; always succeeds.
func (s *Synthesizer) extractiveSummary(doc models.Document, chunks []models.Chunk) *models.Summary {
	summary := &models.Summary{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Generator:  "extractive",
	}
	if len(chunks) == 0 {
		summary.Text = "No content available for summarization"
		return summary
	}

	var sentences []string
	for _, chunk := range chunks {
		parts := strings.Split(chunk.Content, ". ")
		n := 0
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if len(p) <= 10 {
				continue
			}
			if !strings.HasSuffix(p, ".") {
				p += "."
			}
			sentences = append(sentences, p)
			if n++; n == 2 {
				break
			}
		}
	}

	seen := make(map[string]bool)
	var unique []string
	for _, sentence := range sentences {
		simplified := nonWord.ReplaceAllString(strings.ToLower(sentence), "")
		if len(simplified) <= 20 || seen[simplified] {
			continue
		}
		seen[simplified] = true
		unique = append(unique, sentence)
		if len(unique) == 5 {
			break
		}
	}

	if len(unique) > 0 {
		summary.Text = strings.Join(unique, " ")
	} else {
		summary.Text = truncate(chunks[0].Content, 300)
	}

	var full strings.Builder
	for _, chunk := range chunks {
		full.WriteString(chunk.Content)
		full.WriteByte(' ')
	}
	summary.Keywords = topKeywords(full.String(), 10)
	return summary
}

var (
	nonWord   = regexp.MustCompile(`\W+`)
	wordRe    = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)
	stopwords = map[string]bool{
		"this": true, "that": true, "with": true, "from": true,
		"have": true, "were": true, "they": true, "what": true,
		"when": true, "where": true, "their": true, "will": true,
		"been": true, "which": true, "about": true,
	}
)

// topKeywords ranks words of four letters or more by frequency, skipping
// stopwords. Ties break alphabetically so the result is deterministic.
func topKeywords(text string, limit int) []string {
	freq := make(map[string]int)
	for _, word := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if !stopwords[word] {
			freq[word]++
		}
	}

	words := make([]string, 0, len(freq))
	for word := range freq {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

// stripCodeFence unwraps ```json ... ``` style responses so the array can
// be parsed.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if end := strings.Index(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}
