package repository

import (
	"context"

	"jude-e/backend/internal/model"
)

// TurnRepository stores the operational record of each chat turn.
// Implementations never see question or answer text.
type TurnRepository interface {
	RecordTurn(ctx context.Context, turn *model.Turn) error
	// ListTurns returns the most recent turns first.
	ListTurns(ctx context.Context, limit int) ([]*model.Turn, error)
	GetTurn(ctx context.Context, turnID string) (*model.Turn, error)
}
