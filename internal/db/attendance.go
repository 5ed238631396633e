package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"astba/training/internal/model"
	"astba/training/internal/store"
)

const attendanceColumns = `id, session_id, participant_id, status, marked_by, created_at, updated_at`

func scanAttendance(row pgx.Row) (model.Attendance, error) {
	var a model.Attendance
	err := row.Scan(&a.ID, &a.SessionID, &a.ParticipantID, &a.Status, &a.MarkedBy, &a.CreatedAt, &a.UpdatedAt)
	return a, mapErr(err)
}

// UpsertAttendance relies on the (session_id, participant_id) unique key so
// repeated marks converge on one row.
func (s *Store) UpsertAttendance(ctx context.Context, record model.Attendance) (model.Attendance, error) {
	return scanAttendance(s.q.QueryRow(ctx, `
		INSERT INTO attendance (`+attendanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, participant_id) DO UPDATE
		SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
		RETURNING `+attendanceColumns,
		record.ID, record.SessionID, record.ParticipantID, record.Status, record.MarkedBy, record.CreatedAt, record.UpdatedAt))
}

func (s *Store) GetAttendance(ctx context.Context, id string) (model.Attendance, error) {
	return scanAttendance(s.q.QueryRow(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE id = $1`, id))
}

func (s *Store) UpdateAttendance(ctx context.Context, record model.Attendance) error {
	return affected(s.q.Exec(ctx, `
		UPDATE attendance SET status = $2, marked_by = $3, updated_at = $4 WHERE id = $1
	`, record.ID, record.Status, record.MarkedBy, record.UpdatedAt))
}

func (s *Store) DeleteAttendance(ctx context.Context, id string) error {
	return affected(s.q.Exec(ctx, `DELETE FROM attendance WHERE id = $1`, id))
}

func attendanceWhere(filter store.AttendanceFilter, a *args) string {
	var where []string
	if filter.SessionIDs != nil {
		where = append(where, "session_id = ANY("+a.add(filter.SessionIDs)+")")
	}
	if filter.ParticipantID != "" {
		where = append(where, "participant_id = "+a.add(filter.ParticipantID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			statuses[i] = string(status)
		}
		where = append(where, "status = ANY("+a.add(statuses)+")")
	}
	if len(where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(where, " AND ")
}

func (s *Store) ListAttendance(ctx context.Context, filter store.AttendanceFilter) ([]model.Attendance, error) {
	var a args
	rows, err := s.q.Query(ctx, `SELECT `+attendanceColumns+` FROM attendance`+attendanceWhere(filter, &a)+` ORDER BY created_at DESC, seq DESC`, a...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Attendance
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *Store) CountAttendance(ctx context.Context, filter store.AttendanceFilter) (int, error) {
	var a args
	var count int
	err := s.q.QueryRow(ctx, `SELECT count(*) FROM attendance`+attendanceWhere(filter, &a), a...).Scan(&count)
	return count, err
}
