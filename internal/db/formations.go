package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"astba/training/internal/model"
)

const formationColumns = `id, title, description, duration_hours, start_date, created_by, active, default_trainer_id, color, pattern, created_at, updated_at`

func scanFormation(row pgx.Row) (model.Formation, error) {
	var f model.Formation
	err := row.Scan(
		&f.ID,
		&f.Title,
		&f.Description,
		&f.DurationHours,
		&f.StartDate,
		&f.CreatedBy,
		&f.Active,
		&f.DefaultTrainerID,
		&f.Color,
		&f.Pattern,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	return f, mapErr(err)
}

func (s *Store) CreateFormation(ctx context.Context, f model.Formation) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO formations (`+formationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, f.ID, f.Title, f.Description, f.DurationHours, f.StartDate, f.CreatedBy, f.Active, f.DefaultTrainerID, f.Color, f.Pattern, f.CreatedAt, f.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetFormation(ctx context.Context, id string) (model.Formation, error) {
	return scanFormation(s.q.QueryRow(ctx, `SELECT `+formationColumns+` FROM formations WHERE id = $1`, id))
}

func (s *Store) ListFormations(ctx context.Context) ([]model.Formation, error) {
	rows, err := s.q.Query(ctx, `SELECT `+formationColumns+` FROM formations ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Formation
	for rows.Next() {
		f, err := scanFormation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) UpdateFormation(ctx context.Context, f model.Formation) error {
	return affected(s.q.Exec(ctx, `
		UPDATE formations
		SET title = $2, description = $3, duration_hours = $4, start_date = $5, active = $6,
		    default_trainer_id = $7, color = $8, pattern = $9, updated_at = $10
		WHERE id = $1
	`, f.ID, f.Title, f.Description, f.DurationHours, f.StartDate, f.Active, f.DefaultTrainerID, f.Color, f.Pattern, f.UpdatedAt))
}

func (s *Store) DeleteFormation(ctx context.Context, id string) error {
	return affected(s.q.Exec(ctx, `DELETE FROM formations WHERE id = $1`, id))
}

const levelColumns = `id, formation_id, level_order, title, created_at, updated_at`

func scanLevel(row pgx.Row) (model.Level, error) {
	var l model.Level
	err := row.Scan(&l.ID, &l.FormationID, &l.Order, &l.Title, &l.CreatedAt, &l.UpdatedAt)
	return l, mapErr(err)
}

func (s *Store) CreateLevel(ctx context.Context, l model.Level) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO levels (`+levelColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, l.ID, l.FormationID, l.Order, l.Title, l.CreatedAt, l.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetLevel(ctx context.Context, id string) (model.Level, error) {
	return scanLevel(s.q.QueryRow(ctx, `SELECT `+levelColumns+` FROM levels WHERE id = $1`, id))
}

func (s *Store) ListLevels(ctx context.Context, formationID string) ([]model.Level, error) {
	rows, err := s.q.Query(ctx, `SELECT `+levelColumns+` FROM levels WHERE formation_id = $1 ORDER BY level_order ASC`, formationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Level
	for rows.Next() {
		l, err := scanLevel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) UpdateLevel(ctx context.Context, l model.Level) error {
	return affected(s.q.Exec(ctx, `
		UPDATE levels SET level_order = $2, title = $3, updated_at = $4 WHERE id = $1
	`, l.ID, l.Order, l.Title, l.UpdatedAt))
}

func (s *Store) DeleteLevel(ctx context.Context, id string) error {
	return affected(s.q.Exec(ctx, `DELETE FROM levels WHERE id = $1`, id))
}
