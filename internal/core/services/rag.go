package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/mira-labs/mira/internal/core/domain"
	"github.com/mira-labs/mira/internal/core/ports/driven"
	"github.com/mira-labs/mira/internal/logger"
)

// Default generation settings.
const (
	DefaultMaxContextChars = 6000
	DefaultMaxTokens       = 1024
)

const answerSystemPrompt = `You are an assistant answering questions about mining safety and regulation.
Answer using only the numbered context passages. Cite passages as [1], [2] and so on.
If the context does not contain the answer, say so plainly.`

const noContextPreamble = `No supporting documents were found for this question.
Say that no supporting documents were found, then answer from general knowledge if you can, clearly marked as ungrounded.`

// RagService retrieves context chunks for a question and delegates to a
// completion backend for a grounded answer with citations.
type RagService struct {
	search          *SearchService
	llm             driven.LLMService
	maxContextChars int
	maxTokens       int
}

// NewRagService wires the answer path.
func NewRagService(search *SearchService, llm driven.LLMService) (*RagService, error) {
	if search == nil || llm == nil {
		return nil, fmt.Errorf("%w: rag requires search service and llm", domain.ErrInvalidConfig)
	}
	return &RagService{
		search:          search,
		llm:             llm,
		maxContextChars: DefaultMaxContextChars,
		maxTokens:       DefaultMaxTokens,
	}, nil
}

// SetMaxContextChars overrides the context budget. Values below 1 are
// ignored.
func (r *RagService) SetMaxContextChars(n int) {
	if n >= 1 {
		r.maxContextChars = n
	}
}

// SetMaxTokens overrides the completion token budget.
func (r *RagService) SetMaxTokens(n int) {
	if n >= 1 {
		r.maxTokens = n
	}
}

// Answer retrieves topK chunks for the question, packs as many as fit
// the context budget in rank order, and returns the completion with the
// chunk ids actually used. Zero retrieval hits still produce an answer,
// with an explicit no-supporting-documents framing and no citations.
func (r *RagService) Answer(ctx context.Context, question string, topK int, filter domain.Filter) (domain.RagAnswer, error) {
	logger.Section("RAG Answer")

	results, err := r.search.Search(ctx, question, topK, filter)
	if err != nil {
		return domain.RagAnswer{}, fmt.Errorf("retrieve context: %w", err)
	}

	packed, citations := r.packContext(results)
	logger.Debug("Context: %d chunks, %d chars", len(citations), len(packed))

	prompt := r.buildPrompt(question, packed)

	answer, err := r.llm.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: prompt},
	}, driven.GenerateOptions{MaxTokens: r.maxTokens})
	if err != nil {
		return domain.RagAnswer{}, fmt.Errorf("generate answer: %w", err)
	}

	return domain.RagAnswer{
		AnswerText: answer,
		Citations:  citations,
	}, nil
}

// packContext concatenates chunk texts in rank order until the budget
// is exhausted. A chunk that would overflow the budget is omitted
// entirely, never truncated; later, smaller chunks may still fit.
func (r *RagService) packContext(results []domain.SearchResult) (string, []string) {
	var b strings.Builder
	citations := make([]string, 0, len(results))
	remaining := r.maxContextChars

	for _, res := range results {
		header := fmt.Sprintf("[%d] (%s)\n", len(citations)+1, res.ChunkID)
		cost := len(header) + len(res.Text) + 2
		if cost > remaining {
			logger.Debug("Chunk %s omitted: %d chars over budget", res.ChunkID, cost-remaining)
			continue
		}
		b.WriteString(header)
		b.WriteString(res.Text)
		b.WriteString("\n\n")
		citations = append(citations, res.ChunkID)
		remaining -= cost
	}

	return b.String(), citations
}

// buildPrompt frames the question with the packed context, or with the
// explicit no-context preamble when retrieval came back empty.
func (r *RagService) buildPrompt(question, packed string) string {
	var b strings.Builder
	if packed == "" {
		b.WriteString(noContextPreamble)
		b.WriteString("\n\n")
	} else {
		b.WriteString("Context passages:\n\n")
		b.WriteString(packed)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
