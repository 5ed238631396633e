package memdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"astba/training/internal/model"
	"astba/training/internal/store"
)

func TestAddParticipantChecksMembershipThenCapacity(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateSession(ctx, model.Session{ID: "s1", Participants: []string{"u1"}, MaxParticipants: 2}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := s.AddParticipant(ctx, "s1", "u1", true); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	session, err := s.AddParticipant(ctx, "s1", "u2", true)
	if err != nil {
		t.Fatalf("add participant: %v", err)
	}
	if len(session.Participants) != 2 || session.Participants[1] != "u2" {
		t.Fatalf("unexpected participants %v", session.Participants)
	}
	if _, err := s.AddParticipant(ctx, "s1", "u3", true); !errors.Is(err, store.ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if _, err := s.AddParticipant(ctx, "s1", "u3", false); err != nil {
		t.Fatalf("expected unenforced add to succeed, got %v", err)
	}
	if _, err := s.AddParticipant(ctx, "missing", "u3", false); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReturnedSessionsDoNotAliasStorage(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateSession(ctx, model.Session{ID: "s1", Participants: []string{"u1"}, MaxParticipants: 5})
	got, _ := s.GetSession(ctx, "s1")
	got.Participants[0] = "mutated"
	again, _ := s.GetSession(ctx, "s1")
	if again.Participants[0] != "u1" {
		t.Fatalf("expected stored participants to be unchanged, got %v", again.Participants)
	}
}

func TestUpsertAttendanceKeepsOneRecordPerPair(t *testing.T) {
	ctx := context.Background()
	s := New()
	first, err := s.UpsertAttendance(ctx, model.Attendance{ID: "a1", SessionID: "s1", ParticipantID: "u1", Status: model.AttendanceAbsent})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := s.UpsertAttendance(ctx, model.Attendance{ID: "a2", SessionID: "s1", ParticipantID: "u1", Status: model.AttendanceLate})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if second.ID != first.ID || second.Status != model.AttendanceLate {
		t.Fatalf("expected update of %s, got %+v", first.ID, second)
	}
	count, _ := s.CountAttendance(ctx, store.AttendanceFilter{SessionIDs: []string{"s1"}})
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CreateFormation(ctx, model.Formation{ID: "f1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.GetFormation(ctx, "f1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CreateFormation(ctx, model.Formation{ID: "f1"}); err != nil {
			return err
		}
		return tx.WithTx(ctx, func(inner store.Store) error {
			return inner.CreateLevel(ctx, model.Level{ID: "l1", FormationID: "f1", Order: 1})
		})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	if _, err := s.GetFormation(ctx, "f1"); err != nil {
		t.Fatalf("expected committed formation, got %v", err)
	}
	if _, err := s.GetLevel(ctx, "l1"); err != nil {
		t.Fatalf("expected committed level, got %v", err)
	}
}

func TestRollbackKeepsWritesFromOtherCallers(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateSession(ctx, model.Session{ID: "s1", FormationID: "f1", MaxParticipants: 5}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	started := make(chan struct{})
	done := make(chan error, 1)
	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Store) error {
		go func() {
			close(started)
			_, err := s.AddParticipant(ctx, "s1", "u1", true)
			done <- err
		}()
		<-started
		time.Sleep(10 * time.Millisecond)
		if err := tx.CreateFormation(ctx, model.Formation{ID: "f1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("add participant: %v", err)
	}

	session, err := s.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if len(session.Participants) != 1 || session.Participants[0] != "u1" {
		t.Fatalf("expected acknowledged enrollment to survive the rollback, got %v", session.Participants)
	}
	if _, err := s.GetFormation(ctx, "f1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected rolled back formation, got %v", err)
	}
}

func TestLevelOrderIsUniquePerFormation(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateLevel(ctx, model.Level{ID: "l1", FormationID: "f1", Order: 1}); err != nil {
		t.Fatalf("create level: %v", err)
	}
	if err := s.CreateLevel(ctx, model.Level{ID: "l2", FormationID: "f1", Order: 1}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate order, got %v", err)
	}
	if err := s.CreateLevel(ctx, model.Level{ID: "l3", FormationID: "f2", Order: 1}); err != nil {
		t.Fatalf("expected same order in other formation: %v", err)
	}
}

func TestListSessionsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := New()
	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	_ = s.CreateSession(ctx, model.Session{ID: "s3", FormationID: "f1", Date: day(3), CreatedAt: day(1)})
	_ = s.CreateSession(ctx, model.Session{ID: "s1", FormationID: "f1", Date: day(1), CreatedAt: day(2), Participants: []string{"u1"}})
	_ = s.CreateSession(ctx, model.Session{ID: "s2", FormationID: "f2", Date: day(2), CreatedAt: day(3)})

	list, _ := s.ListSessions(ctx, store.SessionFilter{FormationID: "f1"})
	if len(list) != 2 || list[0].ID != "s1" || list[1].ID != "s3" {
		t.Fatalf("unexpected date order %+v", list)
	}
	from := day(2)
	list, _ = s.ListSessions(ctx, store.SessionFilter{From: &from, Order: store.OrderByDateDesc})
	if len(list) != 2 || list[0].ID != "s3" {
		t.Fatalf("unexpected range result %+v", list)
	}
	list, _ = s.ListSessions(ctx, store.SessionFilter{FormationID: "f1", Order: store.OrderByCreatedDesc, Limit: 1})
	if len(list) != 1 || list[0].ID != "s1" {
		t.Fatalf("expected most recently created session, got %+v", list)
	}
	count, _ := s.CountSessions(ctx, store.SessionFilter{ParticipantID: "u1"})
	if count != 1 {
		t.Fatalf("expected 1 enrolled session, got %d", count)
	}
}
