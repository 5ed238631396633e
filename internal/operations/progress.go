package operations

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"astba/training/internal/logging"
	"astba/training/internal/metrics"
	"astba/training/internal/model"
	"astba/training/internal/store"
)

type FormationProgress struct {
	TotalSessions     int `json:"totalSessions"`
	AttendedSessions  int `json:"attendedSessions"`
	MissedSessions    int `json:"missedSessions"`
	RemainingSessions int `json:"remainingSessions"`
	ProgressPercent   int `json:"progressPercent"`
}

type LevelStatus string

const (
	LevelValidated  LevelStatus = "validated"
	LevelInProgress LevelStatus = "in_progress"
	LevelLocked     LevelStatus = "locked"
)

type LevelProgress struct {
	LevelID           string      `json:"levelId"`
	Order             int         `json:"order"`
	Title             string      `json:"title"`
	TotalSessions     int         `json:"totalSessions"`
	AttendedSessions  int         `json:"attendedSessions"`
	RemainingSessions int         `json:"remainingSessions"`
	Validated         bool        `json:"validated"`
	Status            LevelStatus `json:"status"`
}

type ParticipantStats struct {
	ParticipantID   string `json:"participantId"`
	Attended        int    `json:"attended"`
	Total           int    `json:"total"`
	ProgressPercent int    `json:"progressPercent"`
}

// FormationProgress counts every session of the formation as the total,
// whether or not the participant is enrolled in it.
func (s *Service) FormationProgress(ctx context.Context, formationID, participantID string) (FormationProgress, error) {
	sessions, err := s.store.ListSessions(ctx, store.SessionFilter{FormationID: formationID})
	if err != nil {
		return FormationProgress{}, s.storeErr("list sessions", err, "")
	}
	statuses, err := s.participantStatuses(ctx, sessions, participantID)
	if err != nil {
		return FormationProgress{}, err
	}
	return summarize(len(sessions), statuses), nil
}

func summarize(total int, statuses map[string]model.AttendanceStatus) FormationProgress {
	progress := FormationProgress{TotalSessions: total}
	for _, status := range statuses {
		switch {
		case status.Attended():
			progress.AttendedSessions++
		case status == model.AttendanceAbsent:
			progress.MissedSessions++
		}
	}
	progress.RemainingSessions = total - progress.AttendedSessions - progress.MissedSessions
	if progress.RemainingSessions < 0 {
		progress.RemainingSessions = 0
	}
	progress.ProgressPercent = percent(progress.AttendedSessions, total)
	return progress
}

// participantStatuses maps session id to the participant's recorded status
// for the given sessions.
func (s *Service) participantStatuses(ctx context.Context, sessions []model.Session, participantID string) (map[string]model.AttendanceStatus, error) {
	statuses := make(map[string]model.AttendanceStatus)
	if len(sessions) == 0 || participantID == "" {
		return statuses, nil
	}
	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
	}
	records, err := s.store.ListAttendance(ctx, store.AttendanceFilter{SessionIDs: ids, ParticipantID: participantID})
	if err != nil {
		return nil, s.storeErr("list attendance", err, "")
	}
	for _, record := range records {
		if _, seen := statuses[record.SessionID]; !seen {
			statuses[record.SessionID] = record.Status
		}
	}
	return statuses, nil
}

// LevelProgress reports per level coverage in ascending level order. A level
// without sessions is never validated.
func (s *Service) LevelProgress(ctx context.Context, formationID, participantID string) ([]LevelProgress, error) {
	levels, err := s.store.ListLevels(ctx, formationID)
	if err != nil {
		return nil, s.storeErr("list levels", err, "")
	}
	if len(levels) == 0 {
		return []LevelProgress{}, nil
	}
	sessions, err := s.store.ListSessions(ctx, store.SessionFilter{FormationID: formationID})
	if err != nil {
		return nil, s.storeErr("list sessions", err, "")
	}
	statuses, err := s.participantStatuses(ctx, sessions, participantID)
	if err != nil {
		return nil, err
	}

	type tally struct{ total, attended int }
	byLevel := make(map[string]*tally, len(levels))
	for _, session := range sessions {
		t, ok := byLevel[session.LevelID]
		if !ok {
			t = &tally{}
			byLevel[session.LevelID] = t
		}
		t.total++
		if statuses[session.ID].Attended() {
			t.attended++
		}
	}

	out := make([]LevelProgress, 0, len(levels))
	for _, level := range levels {
		var t tally
		if counted, ok := byLevel[level.ID]; ok {
			t = *counted
		}
		lp := LevelProgress{
			LevelID:           level.ID,
			Order:             level.Order,
			Title:             level.Title,
			TotalSessions:     t.total,
			AttendedSessions:  t.attended,
			RemainingSessions: t.total - t.attended,
			Validated:         t.total > 0 && t.attended >= t.total,
		}
		switch {
		case lp.Validated:
			lp.Status = LevelValidated
		case t.attended > 0:
			lp.Status = LevelInProgress
		default:
			lp.Status = LevelLocked
		}
		out = append(out, lp)
	}
	return out, nil
}

// FormationStatsForAllEnrolled reports every participant enrolled in at least
// one session of the formation, in first-enrollment order. Totals count only
// the sessions the participant is enrolled in.
func (s *Service) FormationStatsForAllEnrolled(ctx context.Context, formationID string) ([]ParticipantStats, error) {
	cached, generation, cacheable := s.cachedStats(ctx, formationID)
	if cached != nil {
		return cached, nil
	}

	sessions, err := s.store.ListSessions(ctx, store.SessionFilter{FormationID: formationID, Order: store.OrderByDateAsc})
	if err != nil {
		return nil, s.storeErr("list sessions", err, "")
	}

	var order []string
	stats := make(map[string]*ParticipantStats)
	enrolled := make(map[string]map[string]struct{}, len(sessions))
	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.ID)
		members := make(map[string]struct{}, len(session.Participants))
		for _, participantID := range session.Participants {
			if _, dup := members[participantID]; dup {
				continue
			}
			members[participantID] = struct{}{}
			entry, ok := stats[participantID]
			if !ok {
				entry = &ParticipantStats{ParticipantID: participantID}
				stats[participantID] = entry
				order = append(order, participantID)
			}
			entry.Total++
		}
		enrolled[session.ID] = members
	}

	if len(ids) > 0 && len(order) > 0 {
		records, err := s.store.ListAttendance(ctx, store.AttendanceFilter{
			SessionIDs: ids,
			Statuses:   []model.AttendanceStatus{model.AttendancePresent, model.AttendanceLate},
		})
		if err != nil {
			return nil, s.storeErr("list attendance", err, "")
		}
		for _, record := range records {
			if _, ok := enrolled[record.SessionID][record.ParticipantID]; !ok {
				continue
			}
			stats[record.ParticipantID].Attended++
		}
	}

	out := make([]ParticipantStats, 0, len(order))
	for _, participantID := range order {
		entry := stats[participantID]
		entry.ProgressPercent = percent(entry.Attended, entry.Total)
		out = append(out, *entry)
	}
	if cacheable {
		s.storeStats(ctx, formationID, generation, out)
	}
	return out, nil
}

// cachedStats returns cached stats on a hit. On a miss it reports the
// generation to store fresh stats under, and whether storing is allowed.
func (s *Service) cachedStats(ctx context.Context, formationID string) ([]ParticipantStats, int64, bool) {
	if s.cache == nil {
		return nil, 0, false
	}
	payload, generation, ok, err := s.cache.Get(ctx, formationID)
	if err != nil {
		s.log.Warn("stats cache read failed", zap.String(logging.FieldFormationID, formationID), zap.NamedError(logging.FieldError, err))
		return nil, 0, false
	}
	if !ok {
		metrics.StatsCacheLookups.WithLabelValues("miss").Inc()
		return nil, generation, true
	}
	stats := []ParticipantStats{}
	if err := json.Unmarshal(payload, &stats); err != nil {
		s.log.Warn("stats cache payload invalid", zap.String(logging.FieldFormationID, formationID), zap.NamedError(logging.FieldError, err))
		return nil, generation, true
	}
	metrics.StatsCacheLookups.WithLabelValues("hit").Inc()
	return stats, generation, false
}

func (s *Service) storeStats(ctx context.Context, formationID string, generation int64, stats []ParticipantStats) {
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, formationID, generation, payload); err != nil {
		s.log.Warn("stats cache write failed", zap.String(logging.FieldFormationID, formationID), zap.NamedError(logging.FieldError, err))
	}
}
