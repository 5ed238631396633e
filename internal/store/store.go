// Package store declares the entity store the training operations run
// against. Implementations live in internal/db (Postgres) and internal/memdb.
package store

import (
	"context"
	"errors"
	"time"

	"astba/training/internal/model"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate")
	ErrCapacity  = errors.New("store: capacity reached")
	ErrNotMember = errors.New("store: not a participant")
)

type UserFilter struct {
	Role   *model.Role
	Status *model.UserStatus
}

type SessionOrder int

const (
	OrderByDateAsc SessionOrder = iota
	OrderByDateDesc
	OrderByCreatedDesc
)

// SessionFilter combines equality, set membership and date range conditions.
// Zero fields do not constrain.
type SessionFilter struct {
	IDs           []string
	FormationID   string
	LevelID       string
	ParticipantID string
	From          *time.Time
	To            *time.Time
	Order         SessionOrder
	Limit         int
}

type AttendanceFilter struct {
	SessionIDs    []string
	ParticipantID string
	Statuses      []model.AttendanceStatus
}

type Users interface {
	CreateUser(ctx context.Context, user model.User) error
	GetUser(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]model.User, error)
	UpdateUser(ctx context.Context, user model.User) error
}

type Formations interface {
	CreateFormation(ctx context.Context, formation model.Formation) error
	GetFormation(ctx context.Context, id string) (model.Formation, error)
	ListFormations(ctx context.Context) ([]model.Formation, error)
	UpdateFormation(ctx context.Context, formation model.Formation) error
	DeleteFormation(ctx context.Context, id string) error
}

type Levels interface {
	CreateLevel(ctx context.Context, level model.Level) error
	GetLevel(ctx context.Context, id string) (model.Level, error)
	// ListLevels returns the formation's levels in ascending order.
	ListLevels(ctx context.Context, formationID string) ([]model.Level, error)
	UpdateLevel(ctx context.Context, level model.Level) error
	DeleteLevel(ctx context.Context, id string) error
}

type Sessions interface {
	CreateSession(ctx context.Context, session model.Session) error
	GetSession(ctx context.Context, id string) (model.Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]model.Session, error)
	CountSessions(ctx context.Context, filter SessionFilter) (int, error)
	UpdateSession(ctx context.Context, session model.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsByLevel(ctx context.Context, levelID string) (int, error)
	// AddParticipant appends userID in a single conditional write. It fails
	// with ErrDuplicate when already present and, when enforceCapacity is
	// set, with ErrCapacity when the session is full at write time.
	AddParticipant(ctx context.Context, sessionID, userID string, enforceCapacity bool) (model.Session, error)
	RemoveParticipant(ctx context.Context, sessionID, userID string) (model.Session, error)
}

type Attendance interface {
	// UpsertAttendance writes the record for (session, participant), keeping
	// the existing id and creation time when one exists.
	UpsertAttendance(ctx context.Context, record model.Attendance) (model.Attendance, error)
	GetAttendance(ctx context.Context, id string) (model.Attendance, error)
	UpdateAttendance(ctx context.Context, record model.Attendance) error
	DeleteAttendance(ctx context.Context, id string) error
	// ListAttendance returns matching records, most recent first.
	ListAttendance(ctx context.Context, filter AttendanceFilter) ([]model.Attendance, error)
	CountAttendance(ctx context.Context, filter AttendanceFilter) (int, error)
}

type Certificates interface {
	// CreateCertificate fails with ErrDuplicate when the (user, formation)
	// pair or the certificate number already exists.
	CreateCertificate(ctx context.Context, cert model.Certificate) error
	GetCertificate(ctx context.Context, userID, formationID string) (model.Certificate, error)
	ListCertificates(ctx context.Context, userID string) ([]model.Certificate, error)
}

type Store interface {
	Users
	Formations
	Levels
	Sessions
	Attendance
	Certificates
	// WithTx runs fn against a transactional view of the store.
	WithTx(ctx context.Context, fn func(Store) error) error
}
