package chunker

import "strings"

const (
	DefaultWindowWords  = 180
	DefaultOverlapWords = 30
)

// Split breaks text into word windows of up to window words, where
// consecutive windows share overlap words so content spanning a boundary is
// not lost. Splitting happens on whitespace; the word sequence is preserved.
//
// Empty or blank text yields nil (the document has no searchable content).
// Text shorter than the window yields exactly one chunk. An overlap that is
// negative is treated as zero; an overlap >= window is coerced to window/2.
func Split(text string, window, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if window <= 0 {
		window = DefaultWindowWords
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= window {
		overlap = window / 2
	}
	if len(words) <= window {
		return []string{strings.Join(words, " ")}
	}

	step := window - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + window
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
