package operations

import (
	"context"
	"errors"
	"time"

	"astba/training/internal/model"
	"astba/training/internal/store"
)

const (
	upcomingLimit = 5
	// AttendancePending marks a session without a recorded status.
	AttendancePending = "pending"
)

type DashboardStats struct {
	TotalFormations       int `json:"totalFormations"`
	TotalSessionsAttended int `json:"totalSessionsAttended"`
	TotalMissedSessions   int `json:"totalMissedSessions"`
}

type DashboardSession struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Date             time.Time `json:"date"`
	AttendanceStatus string    `json:"attendanceStatus"`
}

type DashboardFormation struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Color       string             `json:"color"`
	Pattern     string             `json:"pattern"`
	Progress    int                `json:"progress"`
	Levels      []LevelProgress    `json:"levelsDetails"`
	Sessions    []DashboardSession `json:"sessions"`
}

type UpcomingSession struct {
	ID             string    `json:"id"`
	FormationTitle string    `json:"title"`
	LevelTitle     string    `json:"level"`
	Date           time.Time `json:"date"`
	StartTime      string    `json:"startTime"`
	EndTime        string    `json:"endTime"`
	TrainerName    string    `json:"formateur"`
}

type MissedSession struct {
	ID             string    `json:"id"`
	FormationID    string    `json:"formationId"`
	FormationTitle string    `json:"title"`
	Date           time.Time `json:"date"`
}

type Dashboard struct {
	Stats            DashboardStats       `json:"stats"`
	Formations       []DashboardFormation `json:"formations"`
	UpcomingSessions []UpcomingSession    `json:"upcomingSessions"`
	MissedSessions   []MissedSession      `json:"missedSessions"`
}

type HistoryEntry struct {
	Attendance     model.Attendance `json:"attendance"`
	Session        *model.Session   `json:"session,omitempty"`
	FormationTitle string           `json:"formationTitle,omitempty"`
	LevelOrder     int              `json:"levelOrder,omitempty"`
	LevelTitle     string           `json:"levelTitle,omitempty"`
}

// lookups memoizes referenced entities for one request. Missing references
// resolve to ok=false rather than an error.
type lookups struct {
	st         store.Store
	formations map[string]*model.Formation
	levels     map[string]*model.Level
	users      map[string]*model.User
}

func newLookups(st store.Store) *lookups {
	return &lookups{
		st:         st,
		formations: map[string]*model.Formation{},
		levels:     map[string]*model.Level{},
		users:      map[string]*model.User{},
	}
}

func (l *lookups) formation(ctx context.Context, id string) (*model.Formation, error) {
	if f, ok := l.formations[id]; ok {
		return f, nil
	}
	f, err := l.st.GetFormation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		l.formations[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.formations[id] = &f
	return &f, nil
}

func (l *lookups) level(ctx context.Context, id string) (*model.Level, error) {
	if lv, ok := l.levels[id]; ok {
		return lv, nil
	}
	lv, err := l.st.GetLevel(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		l.levels[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.levels[id] = &lv
	return &lv, nil
}

func (l *lookups) user(ctx context.Context, id string) (*model.User, error) {
	if u, ok := l.users[id]; ok {
		return u, nil
	}
	u, err := l.st.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		l.users[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.users[id] = &u
	return &u, nil
}

// StudentDashboard assembles the formations a participant is enrolled in with
// their progress, the next sessions and the missed ones.
func (s *Service) StudentDashboard(ctx context.Context, userID string) (Dashboard, error) {
	refs := newLookups(s.store)
	enrolled, err := s.store.ListSessions(ctx, store.SessionFilter{ParticipantID: userID, Order: store.OrderByDateAsc})
	if err != nil {
		return Dashboard{}, s.storeErr("list sessions", err, "")
	}

	var formationIDs []string
	seen := map[string]bool{}
	for _, session := range enrolled {
		if !seen[session.FormationID] {
			seen[session.FormationID] = true
			formationIDs = append(formationIDs, session.FormationID)
		}
	}

	dashboard := Dashboard{
		Formations:       []DashboardFormation{},
		UpcomingSessions: []UpcomingSession{},
	}
	for _, formationID := range formationIDs {
		formation, err := refs.formation(ctx, formationID)
		if err != nil {
			return Dashboard{}, s.storeErr("get formation", err, "")
		}
		if formation == nil {
			continue
		}
		entry, err := s.dashboardFormation(ctx, refs, *formation, userID)
		if err != nil {
			return Dashboard{}, err
		}
		dashboard.Formations = append(dashboard.Formations, entry)
	}
	dashboard.Stats.TotalFormations = len(dashboard.Formations)

	from := s.now()
	upcoming, err := s.store.ListSessions(ctx, store.SessionFilter{
		ParticipantID: userID,
		From:          &from,
		Order:         store.OrderByDateAsc,
		Limit:         upcomingLimit,
	})
	if err != nil {
		return Dashboard{}, s.storeErr("list upcoming sessions", err, "")
	}
	for _, session := range upcoming {
		item := UpcomingSession{
			ID:             session.ID,
			FormationTitle: "Formation",
			LevelTitle:     "Session",
			Date:           session.Date,
			StartTime:      session.StartTime,
			EndTime:        session.EndTime,
			TrainerName:    "Staff",
		}
		if formation, err := refs.formation(ctx, session.FormationID); err != nil {
			return Dashboard{}, s.storeErr("get formation", err, "")
		} else if formation != nil {
			item.FormationTitle = formation.Title
		}
		if level, err := refs.level(ctx, session.LevelID); err != nil {
			return Dashboard{}, s.storeErr("get level", err, "")
		} else if level != nil {
			item.LevelTitle = level.Title
		}
		if trainer, err := refs.user(ctx, session.TrainerID); err != nil {
			return Dashboard{}, s.storeErr("get trainer", err, "")
		} else if trainer != nil {
			item.TrainerName = trainer.Name
		}
		dashboard.UpcomingSessions = append(dashboard.UpcomingSessions, item)
	}

	missed, err := s.missedSessions(ctx, refs, userID)
	if err != nil {
		return Dashboard{}, err
	}
	dashboard.MissedSessions = missed

	attended, err := s.store.CountAttendance(ctx, store.AttendanceFilter{
		ParticipantID: userID,
		Statuses:      []model.AttendanceStatus{model.AttendancePresent, model.AttendanceLate},
	})
	if err != nil {
		return Dashboard{}, s.storeErr("count attendance", err, "")
	}
	absent, err := s.store.CountAttendance(ctx, store.AttendanceFilter{
		ParticipantID: userID,
		Statuses:      []model.AttendanceStatus{model.AttendanceAbsent},
	})
	if err != nil {
		return Dashboard{}, s.storeErr("count attendance", err, "")
	}
	dashboard.Stats.TotalSessionsAttended = attended
	dashboard.Stats.TotalMissedSessions = absent
	return dashboard, nil
}

func (s *Service) dashboardFormation(ctx context.Context, refs *lookups, formation model.Formation, userID string) (DashboardFormation, error) {
	sessions, err := s.store.ListSessions(ctx, store.SessionFilter{FormationID: formation.ID, Order: store.OrderByDateAsc})
	if err != nil {
		return DashboardFormation{}, s.storeErr("list sessions", err, "")
	}
	statuses, err := s.participantStatuses(ctx, sessions, userID)
	if err != nil {
		return DashboardFormation{}, err
	}
	levels, err := s.LevelProgress(ctx, formation.ID, userID)
	if err != nil {
		return DashboardFormation{}, err
	}

	entry := DashboardFormation{
		ID:          formation.ID,
		Title:       formation.Title,
		Description: formation.Description,
		Color:       formation.Color,
		Pattern:     formation.Pattern,
		Progress:    summarize(len(sessions), statuses).ProgressPercent,
		Levels:      levels,
		Sessions:    make([]DashboardSession, 0, len(sessions)),
	}
	for _, session := range sessions {
		item := DashboardSession{
			ID:               session.ID,
			Title:            "Session " + session.Date.Format("02/01/2006"),
			Date:             session.Date,
			AttendanceStatus: AttendancePending,
		}
		if level, err := refs.level(ctx, session.LevelID); err != nil {
			return DashboardFormation{}, s.storeErr("get level", err, "")
		} else if level != nil {
			item.Title = level.Title
		}
		if status, ok := statuses[session.ID]; ok {
			item.AttendanceStatus = string(status)
		}
		entry.Sessions = append(entry.Sessions, item)
	}
	return entry, nil
}

// MissedSessions lists the sessions the participant was marked absent for.
func (s *Service) MissedSessions(ctx context.Context, userID string) ([]MissedSession, error) {
	return s.missedSessions(ctx, newLookups(s.store), userID)
}

func (s *Service) missedSessions(ctx context.Context, refs *lookups, userID string) ([]MissedSession, error) {
	records, err := s.store.ListAttendance(ctx, store.AttendanceFilter{
		ParticipantID: userID,
		Statuses:      []model.AttendanceStatus{model.AttendanceAbsent},
	})
	if err != nil {
		return nil, s.storeErr("list attendance", err, "")
	}
	out := make([]MissedSession, 0, len(records))
	for _, record := range records {
		session, err := s.store.GetSession(ctx, record.SessionID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, s.storeErr("get session", err, "")
		}
		item := MissedSession{
			ID:             session.ID,
			FormationID:    session.FormationID,
			FormationTitle: "Formation",
			Date:           session.Date,
		}
		formation, err := refs.formation(ctx, session.FormationID)
		if err != nil {
			return nil, s.storeErr("get formation", err, "")
		}
		if formation != nil {
			item.FormationTitle = formation.Title
		}
		out = append(out, item)
	}
	return out, nil
}

// ParticipantHistory returns every attendance record of the participant,
// most recent first, with its session, formation and level resolved.
func (s *Service) ParticipantHistory(ctx context.Context, userID string) ([]HistoryEntry, error) {
	refs := newLookups(s.store)
	records, err := s.store.ListAttendance(ctx, store.AttendanceFilter{ParticipantID: userID})
	if err != nil {
		return nil, s.storeErr("list attendance", err, "")
	}
	out := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		entry := HistoryEntry{Attendance: record}
		session, err := s.store.GetSession(ctx, record.SessionID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			out = append(out, entry)
			continue
		case err != nil:
			return nil, s.storeErr("get session", err, "")
		}
		entry.Session = &session
		formation, err := refs.formation(ctx, session.FormationID)
		if err != nil {
			return nil, s.storeErr("get formation", err, "")
		}
		if formation != nil {
			entry.FormationTitle = formation.Title
		}
		level, err := refs.level(ctx, session.LevelID)
		if err != nil {
			return nil, s.storeErr("get level", err, "")
		}
		if level != nil {
			entry.LevelOrder = level.Order
			entry.LevelTitle = level.Title
		}
		out = append(out, entry)
	}
	return out, nil
}
