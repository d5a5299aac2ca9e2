package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldt-labs/papyrus/internal/domain"
)

// SessionRepository persists chat sessions and their query turns.
type SessionRepository struct {
	db dbtx
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: pool}
}

func NewSessionRepositoryWithTx(tx pgx.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_sessions (id, document_id, created_at) VALUES ($1, $2, $3)`,
		session.ID, session.DocumentID, session.CreatedAt,
	)
	return err
}

func (r *SessionRepository) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	var session domain.ChatSession
	err := r.db.QueryRow(ctx,
		`SELECT id, document_id, created_at FROM chat_sessions WHERE id = $1`,
		id,
	).Scan(&session.ID, &session.DocumentID, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) CreateTurn(ctx context.Context, turn *domain.QueryTurn) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO query_turns (id, session_id, question, answer, chunk_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		turn.ID, turn.SessionID, turn.Question, turn.Answer, turn.ChunkIDs, turn.CreatedAt,
	)
	return err
}

// ListTurns returns a session's turns oldest first.
func (r *SessionRepository) ListTurns(ctx context.Context, sessionID string) ([]domain.QueryTurn, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, question, answer, chunk_ids, created_at
		 FROM query_turns
		 WHERE session_id = $1
		 ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.QueryTurn
	for rows.Next() {
		var turn domain.QueryTurn
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Question, &turn.Answer, &turn.ChunkIDs, &turn.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}
