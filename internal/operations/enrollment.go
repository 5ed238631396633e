package operations

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"astba/training/internal/logging"
	"astba/training/internal/metrics"
	"astba/training/internal/model"
	"astba/training/internal/store"
)

type BulkEnrollment struct {
	FormationID     string   `json:"formationId"`
	SessionsTouched int      `json:"sessionsTouched"`
	Added           int      `json:"added"`
	AlreadyEnrolled int      `json:"alreadyEnrolled"`
	SkippedFull     []string `json:"skippedFull,omitempty"`
}

// EnrollInSession appends userID to the session. Membership and capacity
// are verified by the store at write time.
func (s *Service) EnrollInSession(ctx context.Context, sessionID, userID string) (model.Session, error) {
	session, err := s.store.AddParticipant(ctx, sessionID, userID, true)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrDuplicate):
		metrics.Enrollments.WithLabelValues("single", "duplicate").Inc()
		return model.Session{}, newError(KindConflict, ErrAlreadyEnrolled)
	case errors.Is(err, store.ErrCapacity):
		metrics.Enrollments.WithLabelValues("single", "full").Inc()
		return model.Session{}, newError(KindCapacityExceeded, ErrSessionFull)
	default:
		return model.Session{}, s.storeErr("add participant", err, ErrSessionNotFound)
	}
	metrics.Enrollments.WithLabelValues("single", "added").Inc()
	s.invalidateStats(ctx, session.FormationID)
	return session, nil
}

func (s *Service) UnenrollFromSession(ctx context.Context, sessionID, userID string) (model.Session, error) {
	session, err := s.store.RemoveParticipant(ctx, sessionID, userID)
	if errors.Is(err, store.ErrNotMember) {
		return model.Session{}, newError(KindNotEnrolled, ErrNotEnrolled)
	}
	if err != nil {
		return model.Session{}, s.storeErr("remove participant", err, ErrSessionNotFound)
	}
	s.invalidateStats(ctx, session.FormationID)
	return session, nil
}

// EnrollAcrossFormation adds userID to every session of the formation where
// it is missing. Sessions are processed concurrently and independently.
// Capacity is only enforced when the policy asks for it, in which case full
// sessions are skipped and reported.
func (s *Service) EnrollAcrossFormation(ctx context.Context, formationID, userID string) (BulkEnrollment, error) {
	sessions, err := s.store.ListSessions(ctx, store.SessionFilter{FormationID: formationID})
	if err != nil {
		return BulkEnrollment{}, s.storeErr("list sessions", err, "")
	}
	if len(sessions) == 0 {
		return BulkEnrollment{}, notFound(ErrNoSessions)
	}

	result := BulkEnrollment{FormationID: formationID}
	var mu sync.Mutex
	enforce := s.policy.EnforceBulkCapacity

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.policy.BulkEnrollConcurrency)
	for _, session := range sessions {
		sessionID := session.ID
		g.Go(func() error {
			_, err := s.store.AddParticipant(gctx, sessionID, userID, enforce)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Added++
				result.SessionsTouched++
			case errors.Is(err, store.ErrDuplicate):
				result.AlreadyEnrolled++
				result.SessionsTouched++
			case errors.Is(err, store.ErrCapacity):
				result.SkippedFull = append(result.SkippedFull, sessionID)
			case errors.Is(err, store.ErrNotFound):
				// deleted since listing
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BulkEnrollment{}, s.storeErr("bulk enroll", err, "")
	}
	sort.Strings(result.SkippedFull)

	metrics.Enrollments.WithLabelValues("bulk", "added").Add(float64(result.Added))
	s.log.Info("bulk enrollment",
		zap.String(logging.FieldFormationID, formationID),
		zap.String(logging.FieldUserID, userID),
		zap.Int("added", result.Added),
		zap.Int("already_enrolled", result.AlreadyEnrolled),
		zap.Int("skipped_full", len(result.SkippedFull)),
	)
	s.invalidateStats(ctx, formationID)
	return result, nil
}
