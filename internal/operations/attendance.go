package operations

import (
	"context"

	"go.uber.org/zap"

	"astba/training/internal/logging"
	"astba/training/internal/metrics"
	"astba/training/internal/model"
	"astba/training/internal/store"
)

func parseStatus(status model.AttendanceStatus) (model.AttendanceStatus, error) {
	if status == "" {
		return model.AttendanceAbsent, nil
	}
	parsed, err := model.ParseAttendanceStatus(string(status))
	if err != nil {
		return "", invalidArgument(ErrInvalidStatus)
	}
	return parsed, nil
}

// MarkAttendance records the status of a participant for a session. A second
// mark for the same pair updates the existing record.
func (s *Service) MarkAttendance(ctx context.Context, sessionID, participantID string, status model.AttendanceStatus, markedBy string) (model.Attendance, error) {
	parsed, err := parseStatus(status)
	if err != nil {
		return model.Attendance{}, err
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return model.Attendance{}, s.storeErr("get session", err, ErrSessionNotFound)
	}

	now := s.now()
	record, err := s.store.UpsertAttendance(ctx, model.Attendance{
		ID:            s.newID(),
		SessionID:     session.ID,
		ParticipantID: participantID,
		Status:        parsed,
		MarkedBy:      markedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return model.Attendance{}, s.storeErr("upsert attendance", err, "")
	}
	metrics.AttendanceMarked.WithLabelValues(string(parsed)).Inc()
	s.invalidateStats(ctx, session.FormationID)
	return record, nil
}

// UpdateAttendanceStatus changes the status of an existing record by id.
func (s *Service) UpdateAttendanceStatus(ctx context.Context, id string, status model.AttendanceStatus, markedBy string) (model.Attendance, error) {
	parsed, err := parseStatus(status)
	if err != nil {
		return model.Attendance{}, err
	}
	record, err := s.store.GetAttendance(ctx, id)
	if err != nil {
		return model.Attendance{}, s.storeErr("get attendance", err, ErrAttendanceNotFound)
	}
	record.Status = parsed
	if markedBy != "" {
		record.MarkedBy = markedBy
	}
	record.UpdatedAt = s.now()
	if err := s.store.UpdateAttendance(ctx, record); err != nil {
		return model.Attendance{}, s.storeErr("update attendance", err, ErrAttendanceNotFound)
	}
	metrics.AttendanceMarked.WithLabelValues(string(parsed)).Inc()
	s.invalidateForSession(ctx, record.SessionID)
	return record, nil
}

func (s *Service) DeleteAttendance(ctx context.Context, id string) error {
	record, err := s.store.GetAttendance(ctx, id)
	if err != nil {
		return s.storeErr("get attendance", err, ErrAttendanceNotFound)
	}
	if err := s.store.DeleteAttendance(ctx, id); err != nil {
		return s.storeErr("delete attendance", err, ErrAttendanceNotFound)
	}
	s.invalidateForSession(ctx, record.SessionID)
	return nil
}

// ListForSession returns the session's attendance, most recent first.
func (s *Service) ListForSession(ctx context.Context, sessionID string) ([]model.Attendance, error) {
	records, err := s.store.ListAttendance(ctx, store.AttendanceFilter{SessionIDs: []string{sessionID}})
	if err != nil {
		return nil, s.storeErr("list attendance", err, "")
	}
	return records, nil
}

// ListForParticipant returns the participant's attendance, most recent first.
func (s *Service) ListForParticipant(ctx context.Context, participantID string) ([]model.Attendance, error) {
	records, err := s.store.ListAttendance(ctx, store.AttendanceFilter{ParticipantID: participantID})
	if err != nil {
		return nil, s.storeErr("list attendance", err, "")
	}
	return records, nil
}

func (s *Service) invalidateForSession(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		s.log.Warn("stats invalidation skipped",
			zap.String(logging.FieldSessionID, sessionID),
			zap.NamedError(logging.FieldError, err),
		)
		return
	}
	s.invalidateStats(ctx, session.FormationID)
}
