package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veldt-labs/papyrus/internal/domain"
	"github.com/veldt-labs/papyrus/internal/openai"
)

// ChatClient defines the interface for answer generation
type ChatClient interface {
	GenerateAnswer(ctx context.Context, systemPrompt string, history []openai.Message, userPrompt string) (string, error)
}

// SynthesizerConfig bounds the assembled prompt.
type SynthesizerConfig struct {
	// MaxContextChars caps the total size of chunk text included in
	// the prompt. Chunks are dropped whole, lowest score first.
	MaxContextChars int
	// HistoryWindow is the number of most recent turns replayed to
	// the model.
	HistoryWindow int
	// CallTimeout bounds a single generation call.
	CallTimeout time.Duration
}

func DefaultSynthesizerConfig() SynthesizerConfig {
	return SynthesizerConfig{
		MaxContextChars: 12000,
		HistoryWindow:   6,
		CallTimeout:     120 * time.Second,
	}
}

// Answer is the result of one synthesis call.
type Answer struct {
	Text     string
	ChunkIDs []string
}

// Synthesizer assembles retrieved chunks and conversation history into
// a prompt and generates a grounded answer. Generation is never
// retried: a failed call surfaces immediately.
type Synthesizer struct {
	client ChatClient
	cfg    SynthesizerConfig
}

func NewSynthesizer(client ChatClient) *Synthesizer {
	return NewSynthesizerWithConfig(client, DefaultSynthesizerConfig())
}

func NewSynthesizerWithConfig(client ChatClient, cfg SynthesizerConfig) *Synthesizer {
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultSynthesizerConfig().MaxContextChars
	}
	if cfg.HistoryWindow < 0 {
		cfg.HistoryWindow = 0
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultSynthesizerConfig().CallTimeout
	}
	return &Synthesizer{
		client: client,
		cfg:    cfg,
	}
}

// Synthesize answers the question from the given scored chunks and
// recent turns. Chunks must arrive ordered by descending score; the
// ones that fit the context budget are kept, the rest dropped whole.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, chunks []domain.ScoredChunk, history []domain.QueryTurn) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "question must not be empty")
	}

	included := s.fitBudget(chunks)
	contextText := buildContext(included)
	userPrompt := buildUserPrompt(contextText, question)
	messages := s.historyMessages(history)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()

	text, err := s.client.GenerateAnswer(callCtx, answerSystemPrompt, messages, userPrompt)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "answer generation failed", err)
	}

	chunkIDs := make([]string, len(included))
	for i, sc := range included {
		chunkIDs[i] = sc.Chunk.ID()
	}

	return &Answer{Text: text, ChunkIDs: chunkIDs}, nil
}

// fitBudget keeps the longest score-descending prefix of chunks whose
// combined text fits MaxContextChars. Stopping at the first overflow
// guarantees a lower-scored chunk is never kept at the expense of a
// higher-scored one; a chunk is never truncated mid-text.
func (s *Synthesizer) fitBudget(chunks []domain.ScoredChunk) []domain.ScoredChunk {
	included := make([]domain.ScoredChunk, 0, len(chunks))
	used := 0
	for _, sc := range chunks {
		size := len(sc.Chunk.CombinedText)
		if used+size > s.cfg.MaxContextChars {
			break
		}
		included = append(included, sc)
		used += size
	}
	return included
}

func (s *Synthesizer) historyMessages(history []domain.QueryTurn) []openai.Message {
	if s.cfg.HistoryWindow > 0 && len(history) > s.cfg.HistoryWindow {
		history = history[len(history)-s.cfg.HistoryWindow:]
	}
	messages := make([]openai.Message, 0, len(history)*2)
	for _, turn := range history {
		messages = append(messages,
			openai.Message{Role: "user", Content: turn.Question},
			openai.Message{Role: "assistant", Content: turn.Answer},
		)
	}
	return messages
}

// buildContext renders the included chunks in rank order, each prefixed
// with its page so the model can attribute answers to pages.
func buildContext(chunks []domain.ScoredChunk) string {
	parts := make([]string, len(chunks))
	for i, sc := range chunks {
		parts[i] = fmt.Sprintf("[page %d]\n%s", sc.Chunk.PageNumber, sc.Chunk.CombinedText)
	}
	return strings.Join(parts, "\n\n")
}

func buildUserPrompt(contextText, question string) string {
	return fmt.Sprintf("Context:\n\n%s\n\nQuestion: %s", contextText, question)
}
