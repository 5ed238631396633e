package db

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"astba/training/internal/model"
	"astba/training/internal/store"
)

const sessionColumns = `id, formation_id, level_id, session_date, start_time, end_time, trainer_id, participants, max_participants, created_at, updated_at`

func scanSession(row pgx.Row) (model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ID,
		&s.FormationID,
		&s.LevelID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.TrainerID,
		&s.Participants,
		&s.MaxParticipants,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if s.Participants == nil {
		s.Participants = []string{}
	}
	return s, mapErr(err)
}

func participants(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func (s *Store) CreateSession(ctx context.Context, session model.Session) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, session.ID, session.FormationID, session.LevelID, session.Date, session.StartTime, session.EndTime,
		session.TrainerID, participants(session.Participants), session.MaxParticipants, session.CreatedAt, session.UpdatedAt)
	return mapErr(err)
}

func (s *Store) GetSession(ctx context.Context, id string) (model.Session, error) {
	return scanSession(s.q.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
}

func sessionWhere(filter store.SessionFilter, a *args) string {
	var where []string
	if filter.IDs != nil {
		where = append(where, "id = ANY("+a.add(filter.IDs)+")")
	}
	if filter.FormationID != "" {
		where = append(where, "formation_id = "+a.add(filter.FormationID))
	}
	if filter.LevelID != "" {
		where = append(where, "level_id = "+a.add(filter.LevelID))
	}
	if filter.ParticipantID != "" {
		where = append(where, a.add(filter.ParticipantID)+" = ANY(participants)")
	}
	if filter.From != nil {
		where = append(where, "session_date >= "+a.add(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "session_date < "+a.add(*filter.To))
	}
	if len(where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(where, " AND ")
}

func sessionOrder(order store.SessionOrder) string {
	switch order {
	case store.OrderByCreatedDesc:
		return " ORDER BY created_at DESC, seq DESC"
	case store.OrderByDateDesc:
		return " ORDER BY session_date DESC, start_time DESC, seq DESC"
	default:
		return " ORDER BY session_date ASC, start_time ASC, seq ASC"
	}
}

func (s *Store) ListSessions(ctx context.Context, filter store.SessionFilter) ([]model.Session, error) {
	var a args
	query := `SELECT ` + sessionColumns + ` FROM sessions` + sessionWhere(filter, &a) + sessionOrder(filter.Order)
	if filter.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(filter.Limit)
	}
	rows, err := s.q.Query(ctx, query, a...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func (s *Store) CountSessions(ctx context.Context, filter store.SessionFilter) (int, error) {
	var a args
	var count int
	err := s.q.QueryRow(ctx, `SELECT count(*) FROM sessions`+sessionWhere(filter, &a), a...).Scan(&count)
	return count, err
}

func (s *Store) UpdateSession(ctx context.Context, session model.Session) error {
	return affected(s.q.Exec(ctx, `
		UPDATE sessions
		SET formation_id = $2, level_id = $3, session_date = $4, start_time = $5, end_time = $6,
		    trainer_id = $7, participants = $8, max_participants = $9, updated_at = $10
		WHERE id = $1
	`, session.ID, session.FormationID, session.LevelID, session.Date, session.StartTime, session.EndTime,
		session.TrainerID, participants(session.Participants), session.MaxParticipants, session.UpdatedAt))
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return affected(s.q.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id))
}

func (s *Store) DeleteSessionsByLevel(ctx context.Context, levelID string) (int, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM sessions WHERE level_id = $1`, levelID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// AddParticipant appends in one conditional UPDATE so concurrent enrollments
// cannot push a session past its capacity. When no row changes, the current
// state tells which condition failed.
func (s *Store) AddParticipant(ctx context.Context, sessionID, userID string, enforceCapacity bool) (model.Session, error) {
	updated, err := scanSession(s.q.QueryRow(ctx, `
		UPDATE sessions
		SET participants = array_append(participants, $2), updated_at = now()
		WHERE id = $1
		  AND NOT ($2 = ANY(participants))
		  AND (NOT $3 OR cardinality(participants) < max_participants)
		RETURNING `+sessionColumns,
		sessionID, userID, enforceCapacity))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.Session{}, err
	}
	current, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return model.Session{}, err
	}
	if current.HasParticipant(userID) {
		return current, store.ErrDuplicate
	}
	return current, store.ErrCapacity
}

func (s *Store) RemoveParticipant(ctx context.Context, sessionID, userID string) (model.Session, error) {
	updated, err := scanSession(s.q.QueryRow(ctx, `
		UPDATE sessions
		SET participants = array_remove(participants, $2), updated_at = now()
		WHERE id = $1 AND $2 = ANY(participants)
		RETURNING `+sessionColumns,
		sessionID, userID))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.Session{}, err
	}
	current, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return model.Session{}, err
	}
	return current, store.ErrNotMember
}
