package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/chunker"
)

func TestSplitEmpty(t *testing.T) {
	assert.Nil(t, chunker.Split("", 3, 1))
	assert.Nil(t, chunker.Split("   \n\t ", 3, 1))
}

func TestSplitShortText(t *testing.T) {
	chunks := chunker.Split("just two", 10, 2)
	require.Len(t, chunks, 1)
	assert.Equal(t, "just two", chunks[0])
}

func TestSplitWindowAndOverlap(t *testing.T) {
	text := "The cat sat. The dog ran. The bird flew."
	chunks := chunker.Split(text, 3, 1)

	require.Len(t, chunks, 4)
	assert.Equal(t, "The cat sat.", chunks[0])
	assert.Equal(t, "sat. The dog", chunks[1])
	assert.Equal(t, "dog ran. The", chunks[2])
	assert.Equal(t, "The bird flew.", chunks[3])

	// Consecutive chunks share exactly one word.
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		cur := strings.Fields(chunks[i])
		assert.Equal(t, prev[len(prev)-1], cur[0])
	}
}

func TestSplitReconstruction(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu nu xi omicron"
	want := strings.Fields(text)

	cases := []struct{ window, overlap int }{
		{3, 1},
		{4, 2},
		{5, 0},
		{7, 3},
		{100, 10},
	}
	for _, tc := range cases {
		chunks := chunker.Split(text, tc.window, tc.overlap)
		require.NotEmpty(t, chunks)

		// Drop the leading overlap words of every chunk after the first and
		// the concatenation must reconstruct the original word sequence.
		var got []string
		for i, c := range chunks {
			words := strings.Fields(c)
			if i > 0 {
				if len(words) <= tc.overlap {
					continue
				}
				words = words[tc.overlap:]
			}
			got = append(got, words...)
		}
		assert.Equal(t, want, got, "window=%d overlap=%d", tc.window, tc.overlap)
	}
}

func TestSplitCoercesInvalidOverlap(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	// overlap >= window must not loop forever or produce empty output
	chunks := chunker.Split(text, 4, 4)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0], "one")
	assert.Contains(t, chunks[len(chunks)-1], "ten")
}

func TestSplitDeterministic(t *testing.T) {
	text := "repeatable input gives repeatable chunks every single time"
	a := chunker.Split(text, 3, 1)
	b := chunker.Split(text, 3, 1)
	assert.Equal(t, a, b)
}
