package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jude-e/backend/internal/model"
)

type sqliteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) TurnRepository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) RecordTurn(ctx context.Context, turn *model.Turn) error {
	query := `
		INSERT INTO turns (id, role, mode, document_count, context_skipped, status, error_kind, bytes_relayed, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var errorKind sql.NullString
	if turn.ErrorKind != "" {
		errorKind = sql.NullString{String: turn.ErrorKind, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		turn.ID,
		string(turn.Role),
		turn.Mode,
		turn.DocumentCount,
		turn.ContextSkipped,
		string(turn.Status),
		errorKind,
		turn.BytesRelayed,
		turn.StartedAt.UTC(),
		turn.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("could not insert turn: %w", err)
	}
	return nil
}

const selectTurn = `
	SELECT id, role, mode, document_count, context_skipped, status, error_kind, bytes_relayed, started_at, duration_ms
	FROM turns
`

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(s scanner) (*model.Turn, error) {
	var turn model.Turn
	var role, status string
	var errorKind sql.NullString
	if err := s.Scan(
		&turn.ID,
		&role,
		&turn.Mode,
		&turn.DocumentCount,
		&turn.ContextSkipped,
		&status,
		&errorKind,
		&turn.BytesRelayed,
		&turn.StartedAt,
		&turn.DurationMs,
	); err != nil {
		return nil, err
	}
	turn.Role = model.Role(role)
	turn.Status = model.TurnStatus(status)
	if errorKind.Valid {
		turn.ErrorKind = errorKind.String
	}
	return &turn, nil
}

func (r *sqliteRepository) ListTurns(ctx context.Context, limit int) ([]*model.Turn, error) {
	rows, err := r.db.QueryContext(ctx, selectTurn+" ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("could not query turns: %w", err)
	}
	defer rows.Close()

	turns := make([]*model.Turn, 0)
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan turn: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate turns: %w", err)
	}
	return turns, nil
}

func (r *sqliteRepository) GetTurn(ctx context.Context, turnID string) (*model.Turn, error) {
	row := r.db.QueryRowContext(ctx, selectTurn+" WHERE id = ?", turnID)
	turn, err := scanTurn(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not get turn: %w", err)
	}
	return turn, nil
}
