package http

import (
	"time"

	"astba/training/internal/model"
	"astba/training/internal/operations"
)

type userResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	ProfileImage *string   `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func userView(u model.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         string(u.Role),
		Status:       string(u.Status),
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}

func userViews(users []model.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userView(u))
	}
	return out
}

type formationResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DurationHours    int       `json:"duration"`
	StartDate        time.Time `json:"startDate"`
	CreatedBy        string    `json:"createdBy"`
	Active           bool      `json:"isActive"`
	DefaultTrainerID *string   `json:"defaultTrainerId,omitempty"`
	Color            string    `json:"color"`
	Pattern          string    `json:"pattern"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func formationView(f model.Formation) formationResponse {
	return formationResponse{
		ID:               f.ID,
		Title:            f.Title,
		Description:      f.Description,
		DurationHours:    f.DurationHours,
		StartDate:        f.StartDate,
		CreatedBy:        f.CreatedBy,
		Active:           f.Active,
		DefaultTrainerID: f.DefaultTrainerID,
		Color:            f.Color,
		Pattern:          f.Pattern,
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

type levelResponse struct {
	ID          string `json:"id"`
	FormationID string `json:"formationId"`
	Order       int    `json:"order"`
	Title       string `json:"title"`
}

func levelView(l model.Level) levelResponse {
	return levelResponse{ID: l.ID, FormationID: l.FormationID, Order: l.Order, Title: l.Title}
}

func levelViews(levels []model.Level) []levelResponse {
	out := make([]levelResponse, 0, len(levels))
	for _, l := range levels {
		out = append(out, levelView(l))
	}
	return out
}

type sessionResponse struct {
	ID              string    `json:"id"`
	FormationID     string    `json:"formationId"`
	LevelID         string    `json:"levelId"`
	Date            time.Time `json:"date"`
	StartTime       string    `json:"startTime"`
	EndTime         string    `json:"endTime"`
	TrainerID       string    `json:"trainerId"`
	Participants    []string  `json:"participants"`
	MaxParticipants int       `json:"maxParticipants"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func sessionView(s model.Session) sessionResponse {
	participants := s.Participants
	if participants == nil {
		participants = []string{}
	}
	return sessionResponse{
		ID:              s.ID,
		FormationID:     s.FormationID,
		LevelID:         s.LevelID,
		Date:            s.Date,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		TrainerID:       s.TrainerID,
		Participants:    participants,
		MaxParticipants: s.MaxParticipants,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func sessionViews(sessions []model.Session) []sessionResponse {
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionView(s))
	}
	return out
}

type attendanceResponse struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	ParticipantID string    `json:"participantId"`
	Status        string    `json:"status"`
	MarkedBy      string    `json:"markedBy"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func attendanceView(a model.Attendance) attendanceResponse {
	return attendanceResponse{
		ID:            a.ID,
		SessionID:     a.SessionID,
		ParticipantID: a.ParticipantID,
		Status:        string(a.Status),
		MarkedBy:      a.MarkedBy,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func attendanceViews(records []model.Attendance) []attendanceResponse {
	out := make([]attendanceResponse, 0, len(records))
	for _, a := range records {
		out = append(out, attendanceView(a))
	}
	return out
}

type certificateResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	FormationID   string    `json:"formationId"`
	CertificateID string    `json:"certificateId"`
	IssuedAt      time.Time `json:"issuedAt"`
	IssuedBy      string    `json:"issuedBy"`
}

func certificateView(c model.Certificate) certificateResponse {
	return certificateResponse{
		ID:            c.ID,
		UserID:        c.UserID,
		FormationID:   c.FormationID,
		CertificateID: c.Number,
		IssuedAt:      c.IssuedAt,
		IssuedBy:      c.IssuedBy,
	}
}

func certificateViews(certs []model.Certificate) []certificateResponse {
	out := make([]certificateResponse, 0, len(certs))
	for _, c := range certs {
		out = append(out, certificateView(c))
	}
	return out
}

type historyResponse struct {
	Attendance     attendanceResponse `json:"attendance"`
	Session        *sessionResponse   `json:"session,omitempty"`
	FormationTitle string             `json:"formationTitle,omitempty"`
	LevelOrder     int                `json:"levelOrder,omitempty"`
	LevelTitle     string             `json:"levelTitle,omitempty"`
}

func historyViews(entries []operations.HistoryEntry) []historyResponse {
	out := make([]historyResponse, 0, len(entries))
	for _, e := range entries {
		item := historyResponse{
			Attendance:     attendanceView(e.Attendance),
			FormationTitle: e.FormationTitle,
			LevelOrder:     e.LevelOrder,
			LevelTitle:     e.LevelTitle,
		}
		if e.Session != nil {
			view := sessionView(*e.Session)
			item.Session = &view
		}
		out = append(out, item)
	}
	return out
}
