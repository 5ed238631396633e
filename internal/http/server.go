package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"astba/training/internal/config"
	"astba/training/internal/model"
	"astba/training/internal/operations"
)

type Server struct {
	cfg config.Config
	svc *operations.Service
	log *zap.Logger
}

func NewServer(cfg config.Config, svc *operations.Service, log *zap.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{cfg: cfg, svc: svc, log: log}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.With(s.authMiddleware).Get("/auth/me", s.handleGetMe)
	r.With(s.authMiddleware).Put("/auth/me", s.handleUpdateMe)

	admin := s.requireRoles(model.RoleAdmin)
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.With(admin).Get("/users", s.handleListUsers)
		r.With(admin).Post("/users", s.handleCreateUser)
		r.With(admin).Put("/users/{userID}", s.handleUpdateUser)
		r.With(admin).Put("/users/{userID}/status", s.handleSetUserStatus)
		r.With(s.requireStaff).Get("/formateurs", s.handleListTrainers)
		r.With(admin).Get("/history/{userID}", s.handleHistory)
		r.With(admin).Get("/certification/eligible/{userID}/{formationID}", s.handleEligibility)
		r.With(admin).Post("/certification/generate", s.handleIssueCertificate)
		r.With(admin).Get("/certificates", s.handleListAllCertificates)
	})

	r.Route("/formations", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListFormations)
		r.With(s.requireStaff).Post("/", s.handleCreateFormation)
		r.Get("/{formationID}", s.handleGetFormation)
		r.With(s.requireStaff).Put("/{formationID}", s.handleUpdateFormation)
		r.With(s.requireStaff).Delete("/{formationID}", s.handleDeleteFormation)
		r.Get("/{formationID}/levels", s.handleListLevels)
		r.With(s.requireStaff).Post("/{formationID}/levels", s.handleCreateLevel)
		r.Get("/{formationID}/progress", s.handleFormationProgress)
		r.Get("/{formationID}/levels/progress", s.handleLevelProgress)
		r.With(s.requireStaff).Get("/{formationID}/stats", s.handleFormationStats)
		r.With(s.requireStaff).Post("/{formationID}/enroll", s.handleEnrollAcrossFormation)
	})

	r.Route("/levels", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/{levelID}", s.handleGetLevel)
		r.With(s.requireStaff).Put("/{levelID}", s.handleUpdateLevel)
		r.With(s.requireStaff).Delete("/{levelID}", s.handleDeleteLevel)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListSessions)
		r.With(s.requireStaff).Post("/", s.handleCreateSession)
		r.Get("/missed", s.handleMissedSessions)
		r.Get("/{sessionID}", s.handleGetSession)
		r.With(s.requireStaff).Put("/{sessionID}", s.handleUpdateSession)
		r.With(s.requireStaff).Delete("/{sessionID}", s.handleDeleteSession)
		r.Post("/{sessionID}/enroll", s.handleEnroll)
		r.Post("/{sessionID}/unenroll", s.handleUnenroll)
	})

	r.Route("/attendance", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.With(s.requireStaff).Get("/session/{sessionID}", s.handleSessionAttendance)
		r.Get("/participant/{participantID}", s.handleParticipantAttendance)
		r.With(s.requireStaff).Post("/", s.handleMarkAttendance)
		r.With(s.requireStaff).Put("/{attendanceID}", s.handleUpdateAttendance)
		r.With(s.requireStaff).Delete("/{attendanceID}", s.handleDeleteAttendance)
	})

	r.Route("/student", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/certificates", s.handleMyCertificates)
		r.Get("/certificate/download/{formationID}", s.handleDownloadCertificate)
	})

	r.With(s.authMiddleware).Post("/voice/command", s.handleVoiceCommand)

	return r
}
