package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/models"
)

func TestAnswerPayloadKeepsZeroConfidence(t *testing.T) {
	ans := models.Answer{
		Kind:       models.KindStandard,
		Question:   "anything?",
		Text:       "I couldn't find any relevant information in the document. Try rephrasing the question.",
		Confidence: 0,
	}
	data, err := json.Marshal(ans)
	require.NoError(t, err)

	// A genuine zero confidence is part of the payload, not an omission.
	assert.Contains(t, string(data), `"confidence":0`)
}
