package service

import (
	"context"
	"errors"
	"fmt"

	app_errors "jude-e/backend/internal/errors"
	"jude-e/backend/internal/model"
	"jude-e/backend/internal/repository"
)

const (
	DefaultTurnLimit = 50
	MaxTurnLimit     = 500
)

// TurnService exposes the turn ledger read-only.
type TurnService struct {
	repo repository.TurnRepository
}

func NewTurnService(repo repository.TurnRepository) *TurnService {
	if repo == nil {
		repo = repository.NewNopRepository()
	}
	return &TurnService{repo: repo}
}

// ListTurns returns the newest turns. A non-positive limit selects the default;
// larger limits are capped.
func (s *TurnService) ListTurns(ctx context.Context, limit int) ([]*model.Turn, error) {
	if limit <= 0 {
		limit = DefaultTurnLimit
	}
	if limit > MaxTurnLimit {
		limit = MaxTurnLimit
	}
	turns, err := s.repo.ListTurns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: could not list turns: %w", app_errors.ErrInternal, err)
	}
	return turns, nil
}

func (s *TurnService) GetTurn(ctx context.Context, turnID string) (*model.Turn, error) {
	turn, err := s.repo.GetTurn(ctx, turnID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: turn %s", app_errors.ErrNotFound, turnID)
		}
		return nil, fmt.Errorf("%w: could not get turn: %w", app_errors.ErrInternal, err)
	}
	return turn, nil
}
