package operations

import (
	"testing"
	"time"

	"astba/training/internal/model"
	"astba/training/internal/store"
)

func sessionFilterFor(formationID string) store.SessionFilter {
	return store.SessionFilter{FormationID: formationID}
}

func TestCreateFormationCreatesFourLevels(t *testing.T) {
	f := newFixture(t)
	formation, levels := f.formation("Robotique")

	if formation.Color != model.FormationColor(formation.ID) || formation.Pattern != model.FormationPattern(formation.ID) {
		t.Fatalf("expected color and pattern derived from the id, got %s %s", formation.Color, formation.Pattern)
	}
	if !formation.Active {
		t.Fatalf("expected new formations to be active")
	}
	stored, err := f.svc.ListLevels(f.ctx, formation.ID)
	if err != nil {
		t.Fatalf("list levels: %v", err)
	}
	if len(stored) != 4 || len(levels) != 4 {
		t.Fatalf("expected 4 levels, got %d", len(stored))
	}
	for i, level := range stored {
		if level.Order != i+1 || level.Title != DefaultLevelTitle(i+1) {
			t.Fatalf("unexpected level %+v", level)
		}
	}
}

func TestCreateFormationValidation(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.CreateFormation(f.ctx, FormationInput{Title: " ", Description: "d", DurationHours: 1})
	expectKind(t, err, KindInvalidArgument, ErrInvalidTitle)
	_, _, err = f.svc.CreateFormation(f.ctx, FormationInput{Title: "t", Description: "", DurationHours: 1})
	expectKind(t, err, KindInvalidArgument, ErrInvalidDescription)
	_, _, err = f.svc.CreateFormation(f.ctx, FormationInput{Title: "t", Description: "d", DurationHours: 0})
	expectKind(t, err, KindInvalidArgument, ErrInvalidDuration)
}

func TestUpdateAndDeleteFormation(t *testing.T) {
	f := newFixture(t)
	formation, _ := f.formation("Robotique")
	title := "Robotique avancée"
	inactive := false
	updated, err := f.svc.UpdateFormation(f.ctx, formation.ID, FormationPatch{Title: &title, Active: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title || updated.Active || updated.Color != formation.Color {
		t.Fatalf("unexpected update %+v", updated)
	}
	if err := f.svc.DeleteFormation(f.ctx, formation.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = f.svc.GetFormation(f.ctx, formation.ID)
	expectKind(t, err, KindNotFound, ErrFormationNotFound)
}

func TestCreateLevelRejectsTakenOrder(t *testing.T) {
	f := newFixture(t)
	formation, _ := f.formation("Robotique")
	_, err := f.svc.CreateLevel(f.ctx, formation.ID, 2, "")
	expectKind(t, err, KindConflict, ErrLevelOrderTaken)
	_, err = f.svc.CreateLevel(f.ctx, formation.ID, 0, "")
	expectKind(t, err, KindInvalidArgument, ErrInvalidOrder)

	level, err := f.svc.CreateLevel(f.ctx, formation.ID, 5, "")
	if err != nil {
		t.Fatalf("create level: %v", err)
	}
	if level.Title != "Level 5" {
		t.Fatalf("expected default title, got %s", level.Title)
	}

	order := 1
	_, err = f.svc.UpdateLevel(f.ctx, level.ID, &order, nil)
	expectKind(t, err, KindConflict, ErrLevelOrderTaken)
}

func TestDeleteLevelCascadesToSessions(t *testing.T) {
	f := newFixture(t)
	formation, levels := f.formation("Robotique")
	f.session(formation, levels[0], 1)
	f.session(formation, levels[0], 2)
	kept := f.session(formation, levels[1], 3)

	removed, err := f.svc.DeleteLevel(f.ctx, levels[0].ID)
	if err != nil {
		t.Fatalf("delete level: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 sessions removed, got %d", removed)
	}
	sessions, _ := f.svc.ListSessions(f.ctx, sessionFilterFor(formation.ID))
	if len(sessions) != 1 || sessions[0].ID != kept.ID {
		t.Fatalf("expected only the other level's session to remain, got %+v", sessions)
	}
	_, err = f.svc.DeleteLevel(f.ctx, levels[0].ID)
	expectKind(t, err, KindNotFound, ErrLevelNotFound)
}

func TestCreateSessionCarriesOverLatestParticipants(t *testing.T) {
	f := newFixture(t)
	formation, levels := f.formation("Robotique")

	first := f.session(formation, levels[0], 10)
	if len(first.Participants) != 0 {
		t.Fatalf("expected empty first session, got %v", first.Participants)
	}
	f.enroll(first, "p1")
	f.enroll(first, "p2")

	second := f.session(formation, levels[0], 5)
	if len(second.Participants) != 2 || second.Participants[0] != "p1" || second.Participants[1] != "p2" {
		t.Fatalf("expected carry-over of [p1 p2], got %v", second.Participants)
	}
	if _, err := f.svc.UnenrollFromSession(f.ctx, second.ID, "p1"); err != nil {
		t.Fatalf("unenroll: %v", err)
	}
	f.enroll(first, "p3")

	// The most recently created session is second, regardless of dates.
	third := f.session(formation, levels[1], 1)
	if len(third.Participants) != 1 || third.Participants[0] != "p2" {
		t.Fatalf("expected carry-over from the most recent session, got %v", third.Participants)
	}
	stored, _ := f.svc.GetSession(f.ctx, second.ID)
	if len(stored.Participants) != 1 {
		t.Fatalf("expected later changes not to propagate, got %v", stored.Participants)
	}

	other, otherLevels := f.formation("Autre")
	fresh := f.session(other, otherLevels[0], 1)
	if len(fresh.Participants) != 0 {
		t.Fatalf("expected no carry-over across formations, got %v", fresh.Participants)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture(t)
	formation, levels := f.formation("Robotique")
	_, otherLevels := f.formation("Autre")
	base := SessionInput{
		FormationID: formation.ID,
		LevelID:     levels[0].ID,
		Date:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		StartTime:   "09:00",
		EndTime:     "10:00",
	}

	_, err := f.svc.CreateSession(f.ctx, base)
	expectKind(t, err, KindInvalidArgument, ErrMissingTrainer)

	withLevel := base
	withLevel.TrainerID = "trainer"
	withLevel.LevelID = otherLevels[0].ID
	_, err = f.svc.CreateSession(f.ctx, withLevel)
	expectKind(t, err, KindInvalidArgument, ErrLevelMismatch)

	missing := base
	missing.FormationID = "missing"
	_, err = f.svc.CreateSession(f.ctx, missing)
	expectKind(t, err, KindNotFound, ErrFormationNotFound)

	trainer := "default-trainer"
	if _, err := f.svc.UpdateFormation(f.ctx, formation.ID, FormationPatch{DefaultTrainerID: &trainer}); err != nil {
		t.Fatalf("update formation: %v", err)
	}
	session, err := f.svc.CreateSession(f.ctx, base)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.TrainerID != trainer || session.MaxParticipants != 30 {
		t.Fatalf("expected defaults, got trainer %s max %d", session.TrainerID, session.MaxParticipants)
	}
}

func TestUpdateAndDeleteSession(t *testing.T) {
	f := newFixture(t)
	formation, levels := f.formation("Robotique")
	session := f.session(formation, levels[0], 1)

	capacity := 12
	level := levels[2].ID
	updated, err := f.svc.UpdateSession(f.ctx, session.ID, SessionPatch{MaxParticipants: &capacity, LevelID: &level})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.MaxParticipants != 12 || updated.LevelID != level {
		t.Fatalf("unexpected update %+v", updated)
	}
	zero := 0
	_, err = f.svc.UpdateSession(f.ctx, session.ID, SessionPatch{MaxParticipants: &zero})
	expectKind(t, err, KindInvalidArgument, ErrInvalidCapacity)

	if err := f.svc.DeleteSession(f.ctx, session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = f.svc.GetSession(f.ctx, session.ID)
	expectKind(t, err, KindNotFound, ErrSessionNotFound)
}
