package repository

import (
	"context"

	"jude-e/backend/internal/model"
)

// nopRepository is used when no turn ledger path is configured.
type nopRepository struct{}

func NewNopRepository() TurnRepository {
	return nopRepository{}
}

func (nopRepository) RecordTurn(context.Context, *model.Turn) error { return nil }

func (nopRepository) ListTurns(context.Context, int) ([]*model.Turn, error) {
	return []*model.Turn{}, nil
}

func (nopRepository) GetTurn(context.Context, string) (*model.Turn, error) {
	return nil, ErrNotFound
}
