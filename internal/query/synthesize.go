package query

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultSynthesisModel is the generation model for answer synthesis.
const DefaultSynthesisModel = "gemini-2.5-flash"

// GenAISummarizer synthesizes an answer from retrieved passages with a
// Gemini generation model. Safe for concurrent use.
type GenAISummarizer struct {
	client *genai.Client
	model  string
}

// NewGenAISummarizer creates the summarizer. An empty model falls back to
// DefaultSynthesisModel.
func NewGenAISummarizer(ctx context.Context, apiKey, model string) (*GenAISummarizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("query: API key is required")
	}
	if model == "" {
		model = DefaultSynthesisModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("query: create genai client: %w", err)
	}

	return &GenAISummarizer{client: client, model: model}, nil
}

// Summarize answers the query strictly from the given passages. Each passage
// is labelled with its source so the model can cite it.
func (s *GenAISummarizer) Summarize(ctx context.Context, query string, passages []Passage) (string, error) {
	if len(passages) == 0 {
		return "", fmt.Errorf("no passages to summarize")
	}

	prompt := buildSynthesisPrompt(query, passages)

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", fmt.Errorf("empty answer from model")
	}
	return answer, nil
}

// buildSynthesisPrompt assembles the grounding prompt. The instruction to
// answer only from the excerpts is what keeps synthesis from hallucinating
// content the index never held.
func buildSynthesisPrompt(query string, passages []Passage) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the website excerpts below. ")
	b.WriteString("Answer in the language of the question. ")
	b.WriteString("Cite sources by their bracketed number. ")
	b.WriteString("If the excerpts do not contain the answer, say so.\n\n")

	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s", i+1, p.SourceTitle)
		if p.HeadingPath != "" {
			fmt.Fprintf(&b, ", %s", p.HeadingPath)
		}
		fmt.Fprintf(&b, " (%s)\n%s\n\n", p.SourceURL, p.Text)
	}

	fmt.Fprintf(&b, "Question: %s\n", query)
	return b.String()
}
