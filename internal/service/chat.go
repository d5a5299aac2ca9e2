package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/veldt-labs/papyrus/internal/domain"
	"github.com/veldt-labs/papyrus/internal/telemetry"
)

// SessionRepository defines the chat session persistence operations
// the chat service needs.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.ChatSession) error
	GetSession(ctx context.Context, id string) (*domain.ChatSession, error)
	CreateTurn(ctx context.Context, turn *domain.QueryTurn) error
	// ListTurns returns a session's turns oldest first.
	ListTurns(ctx context.Context, sessionID string) ([]domain.QueryTurn, error)
}

// ChatService manages question answering sessions over a single
// document.
type ChatService struct {
	sessions    SessionRepository
	docs        DocumentRepository
	retriever   *Retriever
	synthesizer *Synthesizer
}

func NewChatService(sessions SessionRepository, docs DocumentRepository, retriever *Retriever, synthesizer *Synthesizer) *ChatService {
	return &ChatService{
		sessions:    sessions,
		docs:        docs,
		retriever:   retriever,
		synthesizer: synthesizer,
	}
}

// CreateSession opens a session against a document. The document must
// exist and be ready for querying.
func (s *ChatService) CreateSession(ctx context.Context, documentID string) (*domain.ChatSession, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.DocumentStatusReady {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document is not ready for querying")
	}

	session := domain.NewChatSession(uuid.New().String(), doc.ID, time.Now().UTC())
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession returns a session together with its turn history.
func (s *ChatService) GetSession(ctx context.Context, id string) (*domain.ChatSession, []domain.QueryTurn, error) {
	if id == "" {
		return nil, nil, domain.NewDomainError(domain.ErrCodeValidation, "session ID is required")
	}
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	turns, err := s.sessions.ListTurns(ctx, session.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, turns, nil
}

// Ask retrieves context for the question, generates an answer and
// appends the completed turn to the session. A failed generation leaves
// the history untouched.
func (s *ChatService) Ask(ctx context.Context, sessionID, question string) (*domain.QueryTurn, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.Ask", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "ask",
	})
	defer span.End()

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	history, err := s.sessions.ListTurns(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	chunks, err := s.retriever.Retrieve(ctx, session.DocumentID, question)
	if err != nil {
		return nil, err
	}

	answer, err := s.synthesizer.Synthesize(ctx, question, chunks, history)
	if err != nil {
		return nil, err
	}

	turn := &domain.QueryTurn{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Question:  question,
		Answer:    answer.Text,
		ChunkIDs:  answer.ChunkIDs,
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateQueryTurn(turn); err != nil {
		return nil, err
	}
	if err := s.sessions.CreateTurn(ctx, turn); err != nil {
		return nil, err
	}
	return turn, nil
}
