package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/veldt-labs/papyrus/internal/api"
	"github.com/veldt-labs/papyrus/internal/domain"
)

type ChatService interface {
	CreateSession(ctx context.Context, documentID string) (*domain.ChatSession, error)
	GetSession(ctx context.Context, id string) (*domain.ChatSession, []domain.QueryTurn, error)
	Ask(ctx context.Context, sessionID, question string) (*domain.QueryTurn, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type CreateSessionRequest struct {
	DocumentID string `json:"document_id"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type SessionResponse struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	CreatedAt  string         `json:"created_at"`
	Turns      []TurnResponse `json:"turns,omitempty"`
}

type TurnResponse struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	ChunkIDs  []string `json:"chunk_ids,omitempty"`
	CreatedAt string   `json:"created_at"`
}

func turnToResponse(turn *domain.QueryTurn) TurnResponse {
	return TurnResponse{
		ID:        turn.ID,
		Question:  turn.Question,
		Answer:    turn.Answer,
		ChunkIDs:  turn.ChunkIDs,
		CreatedAt: turn.CreatedAt.Format(time.RFC3339),
	}
}

func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" {
		api.Error(w, http.StatusBadRequest, "document_id is required")
		return
	}

	session, err := h.svc.CreateSession(r.Context(), req.DocumentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, SessionResponse{
		ID:         session.ID,
		DocumentID: session.DocumentID,
		CreatedAt:  session.CreatedAt.Format(time.RFC3339),
	})
}

func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	session, turns, err := h.svc.GetSession(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := SessionResponse{
		ID:         session.ID,
		DocumentID: session.DocumentID,
		CreatedAt:  session.CreatedAt.Format(time.RFC3339),
		Turns:      make([]TurnResponse, len(turns)),
	}
	for i := range turns {
		resp.Turns[i] = turnToResponse(&turns[i])
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	turn, err := h.svc.Ask(r.Context(), id, req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, turnToResponse(turn))
}
