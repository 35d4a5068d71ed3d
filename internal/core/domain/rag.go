package domain

// RagAnswer is a grounded answer with the chunks that were actually
// included as context, ordered by relevance rank.
type RagAnswer struct {
	// AnswerText is the LLM completion. Never empty on success, even
	// when no supporting documents were found.
	AnswerText string `json:"answer_text"`

	// Citations lists the chunk ids used as context, in rank order.
	// Empty when the answer was produced without supporting documents.
	Citations []string `json:"citations"`
}
