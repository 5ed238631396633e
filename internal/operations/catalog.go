package operations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"astba/training/internal/model"
	"astba/training/internal/store"
)

// LevelsPerFormation is the number of levels created with a formation.
const LevelsPerFormation = 4

type FormationInput struct {
	Title            string
	Description      string
	DurationHours    int
	StartDate        *time.Time
	CreatedBy        string
	DefaultTrainerID *string
}

type FormationPatch struct {
	Title            *string
	Description      *string
	DurationHours    *int
	StartDate        *time.Time
	Active           *bool
	DefaultTrainerID *string
}

type SessionInput struct {
	FormationID     string
	LevelID         string
	Date            time.Time
	StartTime       string
	EndTime         string
	TrainerID       string
	MaxParticipants int
}

type SessionPatch struct {
	LevelID         *string
	Date            *time.Time
	StartTime       *string
	EndTime         *string
	TrainerID       *string
	MaxParticipants *int
}

func DefaultLevelTitle(order int) string {
	return fmt.Sprintf("Level %d", order)
}

// CreateFormation stores the formation and its ordered levels in one
// transaction. Color and pattern derive from the new id.
func (s *Service) CreateFormation(ctx context.Context, input FormationInput) (model.Formation, []model.Level, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" {
		return model.Formation{}, nil, invalidArgument(ErrInvalidTitle)
	}
	if description == "" {
		return model.Formation{}, nil, invalidArgument(ErrInvalidDescription)
	}
	if input.DurationHours < 1 {
		return model.Formation{}, nil, invalidArgument(ErrInvalidDuration)
	}

	now := s.now()
	id := s.newID()
	formation := model.Formation{
		ID:               id,
		Title:            title,
		Description:      description,
		DurationHours:    input.DurationHours,
		StartDate:        now,
		CreatedBy:        input.CreatedBy,
		Active:           true,
		DefaultTrainerID: input.DefaultTrainerID,
		Color:            model.FormationColor(id),
		Pattern:          model.FormationPattern(id),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if input.StartDate != nil {
		formation.StartDate = *input.StartDate
	}

	levels := make([]model.Level, 0, LevelsPerFormation)
	for order := 1; order <= LevelsPerFormation; order++ {
		levels = append(levels, model.Level{
			ID:          s.newID(),
			FormationID: id,
			Order:       order,
			Title:       DefaultLevelTitle(order),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CreateFormation(ctx, formation); err != nil {
			return err
		}
		for _, level := range levels {
			if err := tx.CreateLevel(ctx, level); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Formation{}, nil, s.storeErr("create formation", err, "")
	}
	return formation, levels, nil
}

func (s *Service) GetFormation(ctx context.Context, id string) (model.Formation, error) {
	formation, err := s.store.GetFormation(ctx, id)
	if err != nil {
		return model.Formation{}, s.storeErr("get formation", err, ErrFormationNotFound)
	}
	return formation, nil
}

func (s *Service) ListFormations(ctx context.Context) ([]model.Formation, error) {
	formations, err := s.store.ListFormations(ctx)
	if err != nil {
		return nil, s.storeErr("list formations", err, "")
	}
	return formations, nil
}

func (s *Service) UpdateFormation(ctx context.Context, id string, patch FormationPatch) (model.Formation, error) {
	formation, err := s.store.GetFormation(ctx, id)
	if err != nil {
		return model.Formation{}, s.storeErr("get formation", err, ErrFormationNotFound)
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.Formation{}, invalidArgument(ErrInvalidTitle)
		}
		formation.Title = title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if description == "" {
			return model.Formation{}, invalidArgument(ErrInvalidDescription)
		}
		formation.Description = description
	}
	if patch.DurationHours != nil {
		if *patch.DurationHours < 1 {
			return model.Formation{}, invalidArgument(ErrInvalidDuration)
		}
		formation.DurationHours = *patch.DurationHours
	}
	if patch.StartDate != nil {
		formation.StartDate = *patch.StartDate
	}
	if patch.Active != nil {
		formation.Active = *patch.Active
	}
	if patch.DefaultTrainerID != nil {
		if *patch.DefaultTrainerID == "" {
			formation.DefaultTrainerID = nil
		} else {
			trainer := *patch.DefaultTrainerID
			formation.DefaultTrainerID = &trainer
		}
	}
	formation.UpdatedAt = s.now()
	if err := s.store.UpdateFormation(ctx, formation); err != nil {
		return model.Formation{}, s.storeErr("update formation", err, ErrFormationNotFound)
	}
	return formation, nil
}

// DeleteFormation removes the formation only. Its levels and sessions are
// left in place.
func (s *Service) DeleteFormation(ctx context.Context, id string) error {
	if err := s.store.DeleteFormation(ctx, id); err != nil {
		return s.storeErr("delete formation", err, ErrFormationNotFound)
	}
	s.invalidateStats(ctx, id)
	return nil
}

// Levels

func (s *Service) CreateLevel(ctx context.Context, formationID string, order int, title string) (model.Level, error) {
	if order < 1 {
		return model.Level{}, invalidArgument(ErrInvalidOrder)
	}
	if _, err := s.store.GetFormation(ctx, formationID); err != nil {
		return model.Level{}, s.storeErr("get formation", err, ErrFormationNotFound)
	}
	existing, err := s.store.ListLevels(ctx, formationID)
	if err != nil {
		return model.Level{}, s.storeErr("list levels", err, "")
	}
	for _, level := range existing {
		if level.Order == order {
			return model.Level{}, newError(KindConflict, ErrLevelOrderTaken)
		}
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultLevelTitle(order)
	}
	now := s.now()
	level := model.Level{
		ID:          s.newID(),
		FormationID: formationID,
		Order:       order,
		Title:       title,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateLevel(ctx, level); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.Level{}, newError(KindConflict, ErrLevelOrderTaken)
		}
		return model.Level{}, s.storeErr("create level", err, "")
	}
	return level, nil
}

func (s *Service) GetLevel(ctx context.Context, id string) (model.Level, error) {
	level, err := s.store.GetLevel(ctx, id)
	if err != nil {
		return model.Level{}, s.storeErr("get level", err, ErrLevelNotFound)
	}
	return level, nil
}

func (s *Service) ListLevels(ctx context.Context, formationID string) ([]model.Level, error) {
	levels, err := s.store.ListLevels(ctx, formationID)
	if err != nil {
		return nil, s.storeErr("list levels", err, "")
	}
	return levels, nil
}

func (s *Service) UpdateLevel(ctx context.Context, id string, order *int, title *string) (model.Level, error) {
	level, err := s.store.GetLevel(ctx, id)
	if err != nil {
		return model.Level{}, s.storeErr("get level", err, ErrLevelNotFound)
	}
	if order != nil {
		if *order < 1 {
			return model.Level{}, invalidArgument(ErrInvalidOrder)
		}
		level.Order = *order
	}
	if title != nil {
		level.Title = strings.TrimSpace(*title)
		if level.Title == "" {
			level.Title = DefaultLevelTitle(level.Order)
		}
	}
	level.UpdatedAt = s.now()
	if err := s.store.UpdateLevel(ctx, level); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.Level{}, newError(KindConflict, ErrLevelOrderTaken)
		}
		return model.Level{}, s.storeErr("update level", err, ErrLevelNotFound)
	}
	return level, nil
}

// DeleteLevel removes the level and its sessions together.
func (s *Service) DeleteLevel(ctx context.Context, id string) (int, error) {
	level, err := s.store.GetLevel(ctx, id)
	if err != nil {
		return 0, s.storeErr("get level", err, ErrLevelNotFound)
	}
	removed := 0
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		n, err := tx.DeleteSessionsByLevel(ctx, id)
		if err != nil {
			return err
		}
		removed = n
		return tx.DeleteLevel(ctx, id)
	})
	if err != nil {
		return 0, s.storeErr("delete level", err, ErrLevelNotFound)
	}
	s.invalidateStats(ctx, level.FormationID)
	return removed, nil
}

// Sessions

// CreateSession schedules a session. The participant list starts as a copy
// of the most recently created session of the same formation.
func (s *Service) CreateSession(ctx context.Context, input SessionInput) (model.Session, error) {
	if strings.TrimSpace(input.StartTime) == "" || strings.TrimSpace(input.EndTime) == "" {
		return model.Session{}, invalidArgument(ErrInvalidTime)
	}
	if input.MaxParticipants < 0 {
		return model.Session{}, invalidArgument(ErrInvalidCapacity)
	}
	formation, err := s.store.GetFormation(ctx, input.FormationID)
	if err != nil {
		return model.Session{}, s.storeErr("get formation", err, ErrFormationNotFound)
	}
	level, err := s.store.GetLevel(ctx, input.LevelID)
	if err != nil {
		return model.Session{}, s.storeErr("get level", err, ErrLevelNotFound)
	}
	if level.FormationID != formation.ID {
		return model.Session{}, invalidArgument(ErrLevelMismatch)
	}

	trainerID := input.TrainerID
	if trainerID == "" && formation.DefaultTrainerID != nil {
		trainerID = *formation.DefaultTrainerID
	}
	if trainerID == "" {
		return model.Session{}, invalidArgument(ErrMissingTrainer)
	}
	maxParticipants := input.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = s.policy.DefaultMaxParticipants
	}

	now := s.now()
	session := model.Session{
		ID:              s.newID(),
		FormationID:     formation.ID,
		LevelID:         level.ID,
		Date:            input.Date,
		StartTime:       strings.TrimSpace(input.StartTime),
		EndTime:         strings.TrimSpace(input.EndTime),
		TrainerID:       trainerID,
		Participants:    []string{},
		MaxParticipants: maxParticipants,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		previous, err := tx.ListSessions(ctx, store.SessionFilter{
			FormationID: formation.ID,
			Order:       store.OrderByCreatedDesc,
			Limit:       1,
		})
		if err != nil {
			return err
		}
		if len(previous) > 0 {
			session.Participants = append([]string{}, previous[0].Participants...)
		}
		return tx.CreateSession(ctx, session)
	})
	if err != nil {
		return model.Session{}, s.storeErr("create session", err, "")
	}
	s.invalidateStats(ctx, formation.ID)
	return session, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (model.Session, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return model.Session{}, s.storeErr("get session", err, ErrSessionNotFound)
	}
	return session, nil
}

func (s *Service) ListSessions(ctx context.Context, filter store.SessionFilter) ([]model.Session, error) {
	sessions, err := s.store.ListSessions(ctx, filter)
	if err != nil {
		return nil, s.storeErr("list sessions", err, "")
	}
	return sessions, nil
}

func (s *Service) UpdateSession(ctx context.Context, id string, patch SessionPatch) (model.Session, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return model.Session{}, s.storeErr("get session", err, ErrSessionNotFound)
	}
	if patch.LevelID != nil && *patch.LevelID != session.LevelID {
		level, err := s.store.GetLevel(ctx, *patch.LevelID)
		if err != nil {
			return model.Session{}, s.storeErr("get level", err, ErrLevelNotFound)
		}
		if level.FormationID != session.FormationID {
			return model.Session{}, invalidArgument(ErrLevelMismatch)
		}
		session.LevelID = level.ID
	}
	if patch.Date != nil {
		session.Date = *patch.Date
	}
	if patch.StartTime != nil {
		if strings.TrimSpace(*patch.StartTime) == "" {
			return model.Session{}, invalidArgument(ErrInvalidTime)
		}
		session.StartTime = strings.TrimSpace(*patch.StartTime)
	}
	if patch.EndTime != nil {
		if strings.TrimSpace(*patch.EndTime) == "" {
			return model.Session{}, invalidArgument(ErrInvalidTime)
		}
		session.EndTime = strings.TrimSpace(*patch.EndTime)
	}
	if patch.TrainerID != nil && *patch.TrainerID != "" {
		session.TrainerID = *patch.TrainerID
	}
	if patch.MaxParticipants != nil {
		if *patch.MaxParticipants < 1 {
			return model.Session{}, invalidArgument(ErrInvalidCapacity)
		}
		session.MaxParticipants = *patch.MaxParticipants
	}
	session.UpdatedAt = s.now()
	if err := s.store.UpdateSession(ctx, session); err != nil {
		return model.Session{}, s.storeErr("update session", err, ErrSessionNotFound)
	}
	return session, nil
}

// DeleteSession removes the session only; its attendance records remain.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return s.storeErr("get session", err, ErrSessionNotFound)
	}
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return s.storeErr("delete session", err, ErrSessionNotFound)
	}
	s.invalidateStats(ctx, session.FormationID)
	return nil
}
