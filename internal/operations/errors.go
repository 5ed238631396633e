package operations

import (
	"errors"

	"astba/training/internal/model"
)

type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindInvalidArgument  Kind = "invalid_argument"
	KindConflict         Kind = "conflict"
	KindAlreadyExists    Kind = "already_exists"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindNotEnrolled      Kind = "not_enrolled"
	KindAccessDenied     Kind = "access_denied"
)

const (
	ErrUserNotFound        = "user_not_found"
	ErrFormationNotFound   = "formation_not_found"
	ErrLevelNotFound       = "level_not_found"
	ErrSessionNotFound     = "session_not_found"
	ErrAttendanceNotFound  = "attendance_not_found"
	ErrCertificateNotFound = "certificate_not_found"
	ErrNoSessions          = "formation_has_no_sessions"

	ErrInvalidStatus      = "invalid_status"
	ErrInvalidRole        = "invalid_role"
	ErrInvalidUserStatus  = "invalid_user_status"
	ErrInvalidTitle       = "invalid_title"
	ErrInvalidDescription = "invalid_description"
	ErrInvalidDuration    = "invalid_duration"
	ErrInvalidOrder       = "invalid_order"
	ErrInvalidCapacity    = "invalid_max_participants"
	ErrInvalidName        = "invalid_name"
	ErrInvalidEmail       = "invalid_email"
	ErrInvalidPassword    = "invalid_password"
	ErrLevelMismatch      = "level_not_in_formation"
	ErrMissingTrainer     = "missing_trainer"
	ErrInvalidTime        = "invalid_time"

	ErrAlreadyEnrolled   = "already_enrolled"
	ErrLevelOrderTaken   = "level_order_taken"
	ErrEmailTaken        = "email_taken"
	ErrCertificateExists = "certificate_exists"
	ErrSessionFull       = "session_full"
	ErrNotEnrolled       = "not_enrolled"

	ErrInvalidCredentials = "invalid_credentials"
	ErrAccountPending     = "account_pending"
)

// Error is the single typed failure returned by operations for expected
// business conditions. Store failures are returned wrapped instead.
type Error struct {
	Kind Kind
	Code string
	// Certificate is set on KindAlreadyExists from IssueCertificate.
	Certificate *model.Certificate
}

func (e *Error) Error() string {
	return e.Code
}

// Is matches another *Error by kind, and by code when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is checks by kind.
var (
	NotFound         = &Error{Kind: KindNotFound}
	InvalidArgument  = &Error{Kind: KindInvalidArgument}
	Conflict         = &Error{Kind: KindConflict}
	AlreadyExists    = &Error{Kind: KindAlreadyExists}
	CapacityExceeded = &Error{Kind: KindCapacityExceeded}
	NotEnrolled      = &Error{Kind: KindNotEnrolled}
	AccessDenied     = &Error{Kind: KindAccessDenied}
)

func newError(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func notFound(code string) *Error        { return newError(KindNotFound, code) }
func invalidArgument(code string) *Error { return newError(KindInvalidArgument, code) }

// KindOf returns the kind of an operations error, or "" for anything else.
func KindOf(err error) Kind {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}
