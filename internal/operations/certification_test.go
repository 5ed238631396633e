package operations

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"astba/training/internal/model"
	"astba/training/internal/store"
)

func TestCheckEligibilityTransitions(t *testing.T) {
	f := newFixture(t)
	formation, levels := f.formation("Robotique")

	got, err := f.svc.CheckEligibility(f.ctx, "p", formation.ID)
	if err != nil {
		t.Fatalf("eligibility: %v", err)
	}
	if got.Eligible || got.Reason != ReasonNoSessions {
		t.Fatalf("expected no_sessions, got %+v", got)
	}

	s1 := f.session(formation, levels[0], 1)
	s2 := f.session(formation, levels[1], 2)
	f.mark(s1, "p", model.AttendancePresent)
	f.mark(s2, "p", model.AttendanceAbsent)

	got, err = f.svc.CheckEligibility(f.ctx, "p", formation.ID)
	if err != nil {
		t.Fatalf("eligibility: %v", err)
	}
	if got.Eligible || got.Reason != ReasonIncompleteAttendance || got.TotalSessions != 2 || got.AttendedCount != 1 {
		t.Fatalf("unexpected eligibility %+v", got)
	}

	f.mark(s2, "p", model.AttendanceLate)
	got, err = f.svc.CheckEligibility(f.ctx, "p", formation.ID)
	if err != nil {
		t.Fatalf("eligibility: %v", err)
	}
	if !got.Eligible || got.Reason != "" {
		t.Fatalf("expected eligible, got %+v", got)
	}

	// Levels without sessions do not block eligibility.
	progress, _ := f.svc.LevelProgress(f.ctx, formation.ID, "p")
	if progress[3].Validated {
		t.Fatalf("expected the empty level to stay unvalidated")
	}
}

func TestCheckEligibilityWithoutLevels(t *testing.T) {
	f := newFixture(t)
	got, err := f.svc.CheckEligibility(f.ctx, "p", "unknown")
	if err != nil {
		t.Fatalf("eligibility: %v", err)
	}
	if got.Eligible || got.Reason != ReasonNoLevels {
		t.Fatalf("expected no_levels, got %+v", got)
	}
}

func TestIssueCertificateOncePerPair(t *testing.T) {
	f := newFixture(t)
	student := f.user("alice")
	formation, _ := f.formation("Robotique")

	cert, err := f.svc.IssueCertificate(f.ctx, student.ID, formation.ID, "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(cert.Number, "CERT-") {
		t.Fatalf("unexpected number %s", cert.Number)
	}

	_, err = f.svc.IssueCertificate(f.ctx, student.ID, formation.ID, "admin")
	expectKind(t, err, KindAlreadyExists, ErrCertificateExists)
	var opErr *Error
	errors.As(err, &opErr)
	if opErr.Certificate == nil || opErr.Certificate.ID != cert.ID {
		t.Fatalf("expected existing certificate in error, got %+v", opErr.Certificate)
	}

	certs, _ := f.svc.ListCertificates(f.ctx, student.ID)
	if len(certs) != 1 {
		t.Fatalf("expected exactly one certificate, got %d", len(certs))
	}
}

func TestIssueCertificateDoesNotRequireEligibility(t *testing.T) {
	f := newFixture(t)
	student := f.user("bob")
	formation, levels := f.formation("Robotique")
	f.session(formation, levels[0], 1)
	if _, err := f.svc.IssueCertificate(f.ctx, student.ID, formation.ID, "admin"); err != nil {
		t.Fatalf("expected administrative issuance to succeed, got %v", err)
	}
}

func TestIssueCertificateUnknownReferences(t *testing.T) {
	f := newFixture(t)
	student := f.user("carol")
	formation, _ := f.formation("Robotique")
	_, err := f.svc.IssueCertificate(f.ctx, "nobody", formation.ID, "admin")
	expectKind(t, err, KindNotFound, ErrUserNotFound)
	_, err = f.svc.IssueCertificate(f.ctx, student.ID, "nothing", "admin")
	expectKind(t, err, KindNotFound, ErrFormationNotFound)
}

// racingStore hides existing certificates from the first lookup so the
// duplicate is only detected by the store constraint.
type racingStore struct {
	store.Store
	mu     sync.Mutex
	hidden bool
}

func (r *racingStore) GetCertificate(ctx context.Context, userID, formationID string) (model.Certificate, error) {
	r.mu.Lock()
	hide := !r.hidden
	r.hidden = true
	r.mu.Unlock()
	if hide {
		return model.Certificate{}, store.ErrNotFound
	}
	return r.Store.GetCertificate(ctx, userID, formationID)
}

func TestIssueCertificateTranslatesStoreDuplicate(t *testing.T) {
	f := newFixture(t)
	student := f.user("dave")
	formation, _ := f.formation("Robotique")
	existing, err := f.svc.IssueCertificate(f.ctx, student.ID, formation.ID, "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	racing := NewService(&racingStore{Store: f.store})
	_, err = racing.IssueCertificate(f.ctx, student.ID, formation.ID, "admin")
	expectKind(t, err, KindAlreadyExists, ErrCertificateExists)
	var opErr *Error
	errors.As(err, &opErr)
	if opErr.Certificate == nil || opErr.Certificate.ID != existing.ID {
		t.Fatalf("expected the stored certificate, got %+v", opErr.Certificate)
	}
}

func TestConcurrentIssuanceCreatesOneCertificate(t *testing.T) {
	f := newFixture(t)
	student := f.user("erin")
	formation, _ := f.formation("Robotique")

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, duplicates := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.IssueCertificate(f.ctx, student.ID, formation.ID, "admin")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, AlreadyExists):
				duplicates++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()
	if successes != 1 || duplicates != 7 {
		t.Fatalf("expected 1 success and 7 duplicates, got %d and %d", successes, duplicates)
	}
}
