package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"astba/training/internal/operations"
	"astba/training/internal/store"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.SessionFilter{
		FormationID:   query.Get("formationId"),
		LevelID:       query.Get("levelId"),
		ParticipantID: query.Get("participantId"),
		Order:         store.OrderByDateDesc,
	}
	if value := query.Get("from"); value != "" {
		from, ok := parseDate(value)
		if !ok {
			writeError(w, http.StatusBadRequest, errInvalidDate)
			return
		}
		filter.From = &from
	}
	if value := query.Get("to"); value != "" {
		to, ok := parseDate(value)
		if !ok {
			writeError(w, http.StatusBadRequest, errInvalidDate)
			return
		}
		filter.To = &to
	}
	if value := query.Get("limit"); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		filter.Limit = limit
	}
	sessions, err := s.svc.ListSessions(r.Context(), filter)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessionViews(sessions)})
}

type createSessionRequest struct {
	FormationID     string `json:"formationId" validate:"required"`
	LevelID         string `json:"levelId" validate:"required"`
	Date            string `json:"date" validate:"required"`
	StartTime       string `json:"startTime" validate:"required"`
	EndTime         string `json:"endTime" validate:"required"`
	TrainerID       string `json:"trainerId"`
	MaxParticipants int    `json:"maxParticipants" validate:"omitempty,gt=0"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	date, ok := parseDate(req.Date)
	if !ok {
		writeError(w, http.StatusBadRequest, errInvalidDate)
		return
	}
	session, err := s.svc.CreateSession(r.Context(), operations.SessionInput{
		FormationID:     req.FormationID,
		LevelID:         req.LevelID,
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		TrainerID:       req.TrainerID,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": sessionView(session)})
}

func (s *Server) handleMissedSessions(w http.ResponseWriter, r *http.Request) {
	participantID, ok := s.progressTarget(w, r)
	if !ok {
		return
	}
	missed, err := s.svc.MissedSessions(r.Context(), participantID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	if missed == nil {
		missed = []operations.MissedSession{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"missedSessions": missed})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": sessionView(session)})
}

type updateSessionRequest struct {
	LevelID         *string `json:"levelId"`
	Date            *string `json:"date"`
	StartTime       *string `json:"startTime"`
	EndTime         *string `json:"endTime"`
	TrainerID       *string `json:"trainerId"`
	MaxParticipants *int    `json:"maxParticipants"`
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	date, ok := parseOptionalDate(req.Date)
	if !ok {
		writeError(w, http.StatusBadRequest, errInvalidDate)
		return
	}
	session, err := s.svc.UpdateSession(r.Context(), chi.URLParam(r, "sessionID"), operations.SessionPatch{
		LevelID:         req.LevelID,
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		TrainerID:       req.TrainerID,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": sessionView(session)})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type enrollRequest struct {
	ParticipantID string `json:"participantId"`
}

// enrollTarget reads the optional participant from the body. Enrolling
// someone else requires a staff role.
func (s *Server) enrollTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req enrollRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return "", false
	}
	claims := claimsFromContext(r.Context())
	if req.ParticipantID == "" {
		req.ParticipantID = claims.UserID
	}
	if !canActFor(claims, req.ParticipantID) {
		writeError(w, http.StatusForbidden, "staff_only")
		return "", false
	}
	return req.ParticipantID, true
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	participantID, ok := s.enrollTarget(w, r)
	if !ok {
		return
	}
	session, err := s.svc.EnrollInSession(r.Context(), chi.URLParam(r, "sessionID"), participantID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": sessionView(session)})
}

func (s *Server) handleUnenroll(w http.ResponseWriter, r *http.Request) {
	participantID, ok := s.enrollTarget(w, r)
	if !ok {
		return
	}
	session, err := s.svc.UnenrollFromSession(r.Context(), chi.URLParam(r, "sessionID"), participantID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": sessionView(session)})
}
