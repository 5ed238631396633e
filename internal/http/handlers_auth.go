package http

import (
	"net/http"

	"astba/training/internal/auth"
	"astba/training/internal/operations"
)

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := s.svc.Signup(r.Context(), operations.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "account_pending_approval",
		"user":    userView(user),
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := s.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID: user.ID,
		Role:   string(user.Role),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: userView(user)})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	user, err := s.svc.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": userView(user)})
}

type updateMeRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Password     *string `json:"password"`
	ProfileImage *string `json:"profileImage"`
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	claims := claimsFromContext(r.Context())
	user, err := s.svc.UpdateProfile(r.Context(), claims.UserID, operations.ProfilePatch{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": userView(user)})
}
