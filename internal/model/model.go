package model

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       UserStatus
	ProfileImage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Formation struct {
	ID               string
	Title            string
	Description      string
	DurationHours    int
	StartDate        time.Time
	CreatedBy        string
	Active           bool
	DefaultTrainerID *string
	Color            string
	Pattern          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Level struct {
	ID          string
	FormationID string
	Order       int
	Title       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Session struct {
	ID              string
	FormationID     string
	LevelID         string
	Date            time.Time
	StartTime       string
	EndTime         string
	TrainerID       string
	Participants    []string
	MaxParticipants int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasParticipant reports whether userID is in the participant list.
func (s Session) HasParticipant(userID string) bool {
	for _, p := range s.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

type Attendance struct {
	ID            string
	SessionID     string
	ParticipantID string
	Status        AttendanceStatus
	MarkedBy      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Certificate struct {
	ID          string
	UserID      string
	FormationID string
	Number      string
	IssuedAt    time.Time
	IssuedBy    string
	CreatedAt   time.Time
}
