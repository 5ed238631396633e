package operations

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"astba/training/internal/logging"
	"astba/training/internal/metrics"
	"astba/training/internal/model"
	"astba/training/internal/store"
)

const (
	ReasonNoLevels             = "no_levels"
	ReasonNoSessions           = "no_sessions"
	ReasonIncompleteAttendance = "incomplete_attendance"
)

const certificateNumberAttempts = 3

type Eligibility struct {
	Eligible      bool   `json:"eligible"`
	Reason        string `json:"reason,omitempty"`
	TotalSessions int    `json:"totalSessions"`
	AttendedCount int    `json:"attendedCount"`
}

// CheckEligibility requires at least one level, at least one session and an
// attended mark on every session of the formation. Levels are checked for
// existence only.
func (s *Service) CheckEligibility(ctx context.Context, userID, formationID string) (Eligibility, error) {
	levels, err := s.store.ListLevels(ctx, formationID)
	if err != nil {
		return Eligibility{}, s.storeErr("list levels", err, "")
	}
	if len(levels) == 0 {
		return Eligibility{Reason: ReasonNoLevels}, nil
	}

	sessions, err := s.store.ListSessions(ctx, store.SessionFilter{FormationID: formationID})
	if err != nil {
		return Eligibility{}, s.storeErr("list sessions", err, "")
	}
	if len(sessions) == 0 {
		return Eligibility{Reason: ReasonNoSessions}, nil
	}

	statuses, err := s.participantStatuses(ctx, sessions, userID)
	if err != nil {
		return Eligibility{}, err
	}
	result := Eligibility{TotalSessions: len(sessions)}
	for _, session := range sessions {
		if statuses[session.ID].Attended() {
			result.AttendedCount++
		}
	}
	if result.AttendedCount < result.TotalSessions {
		result.Reason = ReasonIncompleteAttendance
		return result, nil
	}
	result.Eligible = true
	return result, nil
}

// IssueCertificate creates the single certificate of a (user, formation)
// pair. It does not check eligibility; callers decide whether to.
func (s *Service) IssueCertificate(ctx context.Context, userID, formationID, issuedBy string) (model.Certificate, error) {
	if existing, err := s.store.GetCertificate(ctx, userID, formationID); err == nil {
		return model.Certificate{}, alreadyIssued(existing)
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.Certificate{}, s.storeErr("get certificate", err, "")
	}

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return model.Certificate{}, s.storeErr("get user", err, ErrUserNotFound)
	}
	if _, err := s.store.GetFormation(ctx, formationID); err != nil {
		return model.Certificate{}, s.storeErr("get formation", err, ErrFormationNotFound)
	}

	now := s.now()
	for attempt := 0; attempt < certificateNumberAttempts; attempt++ {
		cert := model.Certificate{
			ID:          s.newID(),
			UserID:      userID,
			FormationID: formationID,
			Number:      s.certificateNumber(),
			IssuedAt:    now,
			IssuedBy:    issuedBy,
			CreatedAt:   now,
		}
		err := s.store.CreateCertificate(ctx, cert)
		if err == nil {
			metrics.CertificatesIssued.Inc()
			s.log.Info("certificate issued",
				zap.String(logging.FieldUserID, userID),
				zap.String(logging.FieldFormationID, formationID),
				zap.String("certificate_number", cert.Number),
			)
			return cert, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return model.Certificate{}, s.storeErr("create certificate", err, "")
		}
		// A concurrent writer may have won the pair; otherwise the number collided.
		if existing, getErr := s.store.GetCertificate(ctx, userID, formationID); getErr == nil {
			return model.Certificate{}, alreadyIssued(existing)
		}
	}
	return model.Certificate{}, s.storeErr("create certificate", fmt.Errorf("certificate number collisions: %w", store.ErrDuplicate), "")
}

// CertificateFor returns the certificate issued for the pair.
func (s *Service) CertificateFor(ctx context.Context, userID, formationID string) (model.Certificate, error) {
	cert, err := s.store.GetCertificate(ctx, userID, formationID)
	if err != nil {
		return model.Certificate{}, s.storeErr("get certificate", err, ErrCertificateNotFound)
	}
	return cert, nil
}

func (s *Service) ListCertificates(ctx context.Context, userID string) ([]model.Certificate, error) {
	certs, err := s.store.ListCertificates(ctx, userID)
	if err != nil {
		return nil, s.storeErr("list certificates", err, "")
	}
	return certs, nil
}

func alreadyIssued(existing model.Certificate) *Error {
	cert := existing
	return &Error{Kind: KindAlreadyExists, Code: ErrCertificateExists, Certificate: &cert}
}

// certificateNumber renders CERT-<unix millis>-<9 random digits>.
func (s *Service) certificateNumber() string {
	suffix, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000))
	if err != nil {
		return fmt.Sprintf("CERT-%d-%s", s.now().UnixMilli(), uuid.NewString()[:8])
	}
	return fmt.Sprintf("CERT-%d-%09d", s.now().UnixMilli(), suffix.Int64())
}
