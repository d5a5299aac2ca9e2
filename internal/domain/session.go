package domain

import (
	"fmt"
	"time"
)

// QueryTurn is one completed question/answer exchange. Turns are
// appended to a session's history only after generation succeeds.
type QueryTurn struct {
	ID        string
	SessionID string
	Question  string
	Answer    string
	ChunkIDs  []string
	CreatedAt time.Time
}

// ChatSession owns an append-only sequence of query turns against a
// single document. Turns reference chunks by ID only; the document owns
// the chunks themselves.
type ChatSession struct {
	ID         string
	DocumentID string
	CreatedAt  time.Time
}

// NewChatSession creates a new ChatSession instance
func NewChatSession(id, documentID string, createdAt time.Time) *ChatSession {
	return &ChatSession{
		ID:         id,
		DocumentID: documentID,
		CreatedAt:  createdAt,
	}
}

// ValidateQueryTurn validates a QueryTurn instance
func ValidateQueryTurn(t *QueryTurn) error {
	if t == nil {
		return fmt.Errorf("query turn cannot be nil")
	}

	if t.SessionID == "" {
		return fmt.Errorf("query turn SessionID is required")
	}

	if t.Question == "" {
		return fmt.Errorf("query turn Question is required")
	}

	if t.Answer == "" {
		return fmt.Errorf("query turn Answer is required")
	}

	return nil
}
