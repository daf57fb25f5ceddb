package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// Rough characters-per-token ratio used for context window checks.
	charsPerToken = 4
)

// BuildMessages assembles the chat transcript sent to a provider: a system
// message listing the context chunks, the conversation history, then the query.
func BuildMessages(req *SynthesisRequest) []Message {
	messages := make([]Message, 0, len(req.History)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: buildContextPrompt(req.Chunks)})
	messages = append(messages, req.History...)
	messages = append(messages, Message{Role: RoleUser, Content: req.Query})
	return messages
}

func buildContextPrompt(chunks []ContextChunk) string {
	var builder strings.Builder
	builder.WriteString("Answer the question using only the context below. Quote the context where possible.\n")
	for _, chunk := range chunks {
		fmt.Fprintf(&builder, "\n[%s] %s\n", chunk.ID, chunk.Text)
	}
	return builder.String()
}

// EstimateTokens approximates the prompt size of a request.
func EstimateTokens(req *SynthesisRequest) int {
	var chars int
	for _, msg := range BuildMessages(req) {
		chars += utf8.RuneCountInString(msg.Content)
	}
	return (chars + charsPerToken - 1) / charsPerToken
}

// Validate checks the request before any provider is called.
func (r *SynthesisRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return errors.New("query cannot be empty")
	}

	if r.Params.MaxTokens < 0 {
		return errors.New("max tokens cannot be negative")
	}

	if r.Params.Temperature < 0 {
		return errors.New("temperature cannot be negative")
	}

	seen := make(map[string]struct{}, len(r.Chunks))
	for _, chunk := range r.Chunks {
		if chunk.ID == "" {
			return errors.New("chunk id cannot be empty")
		}
		if _, dup := seen[chunk.ID]; dup {
			return fmt.Errorf("duplicate chunk id: %s", chunk.ID)
		}
		seen[chunk.ID] = struct{}{}

		if chunk.Relevance < 0 || chunk.Relevance > 1 {
			return fmt.Errorf("chunk %s relevance %.3f outside [0,1]", chunk.ID, chunk.Relevance)
		}
	}

	return nil
}
