package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"astba/training/internal/model"
	"astba/training/internal/operations"
	"astba/training/internal/store"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var filter store.UserFilter
	if value := r.URL.Query().Get("role"); value != "" {
		role, err := model.ParseRole(value)
		if err != nil {
			writeError(w, http.StatusBadRequest, operations.ErrInvalidRole)
			return
		}
		filter.Role = &role
	}
	if value := r.URL.Query().Get("status"); value != "" {
		status, err := model.ParseUserStatus(value)
		if err != nil {
			writeError(w, http.StatusBadRequest, operations.ErrInvalidUserStatus)
			return
		}
		filter.Status = &status
	}
	users, err := s.svc.ListUsers(r.Context(), filter)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": userViews(users)})
}

type createUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := s.svc.CreateUser(r.Context(), operations.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Status:   req.Status,
	})
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": userView(user)})
}

type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := s.svc.UpdateUser(r.Context(), chi.URLParam(r, "userID"), operations.UserPatch{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": userView(user)})
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) handleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := s.svc.SetUserStatus(r.Context(), chi.URLParam(r, "userID"), req.Status)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": userView(user)})
}

func (s *Server) handleListTrainers(w http.ResponseWriter, r *http.Request) {
	trainers, err := s.svc.ListTrainers(r.Context())
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"formateurs": userViews(trainers)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	user, err := s.svc.GetUser(r.Context(), userID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	history, err := s.svc.ParticipantHistory(r.Context(), userID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    userView(user),
		"history": historyViews(history),
	})
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	eligibility, err := s.svc.CheckEligibility(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "formationID"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eligibility)
}

type issueCertificateRequest struct {
	UserID      string `json:"userId" validate:"required"`
	FormationID string `json:"formationId" validate:"required"`
}

func (s *Server) handleIssueCertificate(w http.ResponseWriter, r *http.Request) {
	var req issueCertificateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	claims := claimsFromContext(r.Context())
	cert, err := s.svc.IssueCertificate(r.Context(), req.UserID, req.FormationID, claims.UserID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"certificate": certificateView(cert)})
}

func (s *Server) handleListAllCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := s.svc.ListCertificates(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"certificates": certificateViews(certs)})
}
