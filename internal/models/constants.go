package models

const (
	AssistantName = "pdfchat"

	ContextSeparator = "\n\n---\n\n"
)

var (
	AnswerSystemPrompt = "You are " + AssistantName + ", an assistant specializing in analyzing documents and answering questions."

	// %s = context, %s = document filename, %s = question
	AnswerPromptTemplate = `Answer the following question based ONLY on the document content provided below.
If the answer cannot be derived from the content, clearly state that the information is not in the provided document.
Do not fabricate information that is not in the document.

Document content:
%s

Document source: %s

Question: %s

Guidelines:
1. Answer directly based on the provided content
2. Cite which section of the content you used
3. If the content does not contain the answer, say so explicitly
4. Be precise, concise, and accurate
`

	// %s = document filename, %s = document text
	SummaryPromptTemplate = `Generate a comprehensive summary of the document "%s".

The summary should include:
1. A brief overview (2-3 sentences)
2. Main topics and key points (3-5 bullet points)
3. Important details, findings, or conclusions

Keep it concise but informative.

Document content:

%s
`

	// %s = document text
	KeywordPromptTemplate = `Based on this text, provide exactly 10 keywords or key phrases that best represent the main topics.
Format as a simple JSON array of strings. Only return the JSON array, nothing else.

Text: %s
`
)
