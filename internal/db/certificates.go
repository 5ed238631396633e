package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"astba/training/internal/model"
)

const certificateColumns = `id, user_id, formation_id, number, issued_at, issued_by, created_at`

func scanCertificate(row pgx.Row) (model.Certificate, error) {
	var c model.Certificate
	err := row.Scan(&c.ID, &c.UserID, &c.FormationID, &c.Number, &c.IssuedAt, &c.IssuedBy, &c.CreatedAt)
	return c, mapErr(err)
}

func (s *Store) CreateCertificate(ctx context.Context, c model.Certificate) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO certificates (`+certificateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.UserID, c.FormationID, c.Number, c.IssuedAt, c.IssuedBy, c.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetCertificate(ctx context.Context, userID, formationID string) (model.Certificate, error) {
	return scanCertificate(s.q.QueryRow(ctx, `
		SELECT `+certificateColumns+` FROM certificates WHERE user_id = $1 AND formation_id = $2
	`, userID, formationID))
}

// ListCertificates returns every certificate when userID is empty.
func (s *Store) ListCertificates(ctx context.Context, userID string) ([]model.Certificate, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+certificateColumns+` FROM certificates
		WHERE $1 = '' OR user_id = $1
		ORDER BY issued_at DESC, seq DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
