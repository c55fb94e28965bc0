package interfaces

import (
	"context"

	"jude-e/backend/internal/model"
	"jude-e/backend/internal/service"
)

// The API layer depends on these interfaces rather than the concrete services,
// so handlers can be tested against mocks.

// ChatService runs chat turns.
type ChatService interface {
	Chat(ctx context.Context, req *service.ChatRequest) (*service.ChatResult, error)
	CompleteTurn(ctx context.Context, result *service.ChatResult, bytesRelayed int64, relayErr error)
}

// TurnService reads the turn ledger.
type TurnService interface {
	ListTurns(ctx context.Context, limit int) ([]*model.Turn, error)
	GetTurn(ctx context.Context, turnID string) (*model.Turn, error)
}

// HealthService reports upstream readiness.
type HealthService interface {
	Ready(ctx context.Context) *service.Readiness
}
