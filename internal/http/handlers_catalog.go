package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"astba/training/internal/operations"
)

const errInvalidDate = "invalid_date"

// parseDate accepts RFC3339 timestamps and plain calendar dates.
func parseDate(value string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	t, err := time.Parse("2006-01-02", value)
	return t, err == nil
}

func parseOptionalDate(value *string) (*time.Time, bool) {
	if value == nil || *value == "" {
		return nil, true
	}
	t, ok := parseDate(*value)
	if !ok {
		return nil, false
	}
	return &t, true
}

func (s *Server) handleListFormations(w http.ResponseWriter, r *http.Request) {
	formations, err := s.svc.ListFormations(r.Context())
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	out := make([]formationResponse, 0, len(formations))
	for _, f := range formations {
		out = append(out, formationView(f))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"formations": out})
}

type createFormationRequest struct {
	Title            string  `json:"title" validate:"required"`
	Description      string  `json:"description" validate:"required"`
	DurationHours    int     `json:"duration" validate:"required,gt=0"`
	StartDate        *string `json:"startDate"`
	DefaultTrainerID *string `json:"defaultTrainerId"`
}

func (s *Server) handleCreateFormation(w http.ResponseWriter, r *http.Request) {
	var req createFormationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	start, ok := parseOptionalDate(req.StartDate)
	if !ok {
		writeError(w, http.StatusBadRequest, errInvalidDate)
		return
	}
	claims := claimsFromContext(r.Context())
	formation, levels, err := s.svc.CreateFormation(r.Context(), operations.FormationInput{
		Title:            req.Title,
		Description:      req.Description,
		DurationHours:    req.DurationHours,
		StartDate:        start,
		CreatedBy:        claims.UserID,
		DefaultTrainerID: req.DefaultTrainerID,
	})
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"formation": formationView(formation),
		"levels":    levelViews(levels),
	})
}

func (s *Server) handleGetFormation(w http.ResponseWriter, r *http.Request) {
	formation, err := s.svc.GetFormation(r.Context(), chi.URLParam(r, "formationID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"formation": formationView(formation)})
}

type updateFormationRequest struct {
	Title            *string `json:"title"`
	Description      *string `json:"description"`
	DurationHours    *int    `json:"duration"`
	StartDate        *string `json:"startDate"`
	Active           *bool   `json:"isActive"`
	DefaultTrainerID *string `json:"defaultTrainerId"`
}

func (s *Server) handleUpdateFormation(w http.ResponseWriter, r *http.Request) {
	var req updateFormationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	start, ok := parseOptionalDate(req.StartDate)
	if !ok {
		writeError(w, http.StatusBadRequest, errInvalidDate)
		return
	}
	formation, err := s.svc.UpdateFormation(r.Context(), chi.URLParam(r, "formationID"), operations.FormationPatch{
		Title:            req.Title,
		Description:      req.Description,
		DurationHours:    req.DurationHours,
		StartDate:        start,
		Active:           req.Active,
		DefaultTrainerID: req.DefaultTrainerID,
	})
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"formation": formationView(formation)})
}

func (s *Server) handleDeleteFormation(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteFormation(r.Context(), chi.URLParam(r, "formationID")); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.svc.ListLevels(r.Context(), chi.URLParam(r, "formationID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"levels": levelViews(levels)})
}

type createLevelRequest struct {
	Order int    `json:"order" validate:"required,gt=0"`
	Title string `json:"title"`
}

func (s *Server) handleCreateLevel(w http.ResponseWriter, r *http.Request) {
	var req createLevelRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	level, err := s.svc.CreateLevel(r.Context(), chi.URLParam(r, "formationID"), req.Order, req.Title)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"level": levelView(level)})
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	level, err := s.svc.GetLevel(r.Context(), chi.URLParam(r, "levelID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"level": levelView(level)})
}

type updateLevelRequest struct {
	Order *int    `json:"order" validate:"omitempty,gt=0"`
	Title *string `json:"title"`
}

func (s *Server) handleUpdateLevel(w http.ResponseWriter, r *http.Request) {
	var req updateLevelRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	level, err := s.svc.UpdateLevel(r.Context(), chi.URLParam(r, "levelID"), req.Order, req.Title)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"level": levelView(level)})
}

func (s *Server) handleDeleteLevel(w http.ResponseWriter, r *http.Request) {
	removed, err := s.svc.DeleteLevel(r.Context(), chi.URLParam(r, "levelID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deletedSessions": removed})
}

// progressTarget resolves the participant a progress query is about.
// Students may only look at their own progress.
func (s *Server) progressTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := claimsFromContext(r.Context())
	participantID := r.URL.Query().Get("participantId")
	if participantID == "" {
		participantID = claims.UserID
	}
	if !canActFor(claims, participantID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return "", false
	}
	return participantID, true
}

func (s *Server) handleFormationProgress(w http.ResponseWriter, r *http.Request) {
	participantID, ok := s.progressTarget(w, r)
	if !ok {
		return
	}
	progress, err := s.svc.FormationProgress(r.Context(), chi.URLParam(r, "formationID"), participantID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleLevelProgress(w http.ResponseWriter, r *http.Request) {
	participantID, ok := s.progressTarget(w, r)
	if !ok {
		return
	}
	levels, err := s.svc.LevelProgress(r.Context(), chi.URLParam(r, "formationID"), participantID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"levels": levels})
}

func (s *Server) handleFormationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.FormationStatsForAllEnrolled(r.Context(), chi.URLParam(r, "formationID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"participants": stats})
}

type bulkEnrollRequest struct {
	ParticipantID string `json:"participantId" validate:"required"`
}

func (s *Server) handleEnrollAcrossFormation(w http.ResponseWriter, r *http.Request) {
	var req bulkEnrollRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	result, err := s.svc.EnrollAcrossFormation(r.Context(), chi.URLParam(r, "formationID"), req.ParticipantID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
