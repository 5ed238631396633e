package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"astba/training/internal/model"
)

type markAttendanceRequest struct {
	SessionID     string `json:"sessionId" validate:"required"`
	ParticipantID string `json:"participantId" validate:"required"`
	Status        string `json:"status"`
}

func (s *Server) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req markAttendanceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	claims := claimsFromContext(r.Context())
	record, err := s.svc.MarkAttendance(r.Context(), req.SessionID, req.ParticipantID, model.AttendanceStatus(req.Status), claims.UserID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attendance": attendanceView(record)})
}

type updateAttendanceRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) handleUpdateAttendance(w http.ResponseWriter, r *http.Request) {
	var req updateAttendanceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	claims := claimsFromContext(r.Context())
	record, err := s.svc.UpdateAttendanceStatus(r.Context(), chi.URLParam(r, "attendanceID"), model.AttendanceStatus(req.Status), claims.UserID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attendance": attendanceView(record)})
}

func (s *Server) handleDeleteAttendance(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteAttendance(r.Context(), chi.URLParam(r, "attendanceID")); err != nil {
		s.writeOpError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionAttendance(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.ListForSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attendance": attendanceViews(records)})
}

func (s *Server) handleParticipantAttendance(w http.ResponseWriter, r *http.Request) {
	participantID := chi.URLParam(r, "participantID")
	if !canActFor(claimsFromContext(r.Context()), participantID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	records, err := s.svc.ListForParticipant(r.Context(), participantID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attendance": attendanceViews(records)})
}
