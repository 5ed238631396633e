package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidEnum = errors.New("invalid enum value")

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTrainer Role = "trainer"
	RoleManager Role = "manager"
	RoleStudent Role = "student"
)

// ParseRole normalizes a role name once at the boundary. Legacy names and
// casing variants ("formateur", "Responsable", "responsable") map onto the
// closed set.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "admin":
		return RoleAdmin, nil
	case "trainer", "formateur":
		return RoleTrainer, nil
	case "manager", "responsable":
		return RoleManager, nil
	case "student", "etudiant", "étudiant":
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("%w: role %q", ErrInvalidEnum, value)
	}
}

// IsStaff reports whether the role may manage formations, sessions and attendance.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleTrainer || r == RoleManager
}

type UserStatus string

const (
	UserPending   UserStatus = "pending"
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
	UserRejected  UserStatus = "rejected"
)

func ParseUserStatus(value string) (UserStatus, error) {
	switch UserStatus(strings.ToLower(strings.TrimSpace(value))) {
	case UserPending:
		return UserPending, nil
	case UserActive:
		return UserActive, nil
	case UserSuspended:
		return UserSuspended, nil
	case UserRejected:
		return UserRejected, nil
	default:
		return "", fmt.Errorf("%w: user status %q", ErrInvalidEnum, value)
	}
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

func ParseAttendanceStatus(value string) (AttendanceStatus, error) {
	switch AttendanceStatus(value) {
	case AttendancePresent, AttendanceAbsent, AttendanceLate:
		return AttendanceStatus(value), nil
	default:
		return "", fmt.Errorf("%w: attendance status %q", ErrInvalidEnum, value)
	}
}

// Attended reports whether the status counts towards progress.
func (s AttendanceStatus) Attended() bool {
	return s == AttendancePresent || s == AttendanceLate
}
