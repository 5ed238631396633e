package http

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"astba/training/internal/certpdf"
	"astba/training/internal/logging"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	dashboard, err := s.svc.StudentDashboard(r.Context(), claims.UserID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleMyCertificates(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	certs, err := s.svc.ListCertificates(r.Context(), claims.UserID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"certificates": certificateViews(certs)})
}

func (s *Server) handleDownloadCertificate(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	formationID := chi.URLParam(r, "formationID")
	cert, err := s.svc.CertificateFor(r.Context(), claims.UserID, formationID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	user, err := s.svc.GetUser(r.Context(), claims.UserID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}
	formation, err := s.svc.GetFormation(r.Context(), formationID)
	if err != nil {
		s.writeOpError(w, r, err)
		return
	}

	var buf bytes.Buffer
	err = certpdf.Render(&buf, certpdf.Data{
		Number:         cert.Number,
		StudentName:    user.Name,
		FormationTitle: formation.Title,
		IssuedAt:       cert.IssuedAt,
	})
	if err != nil {
		s.log.Error("render certificate",
			zap.String(logging.FieldUserID, claims.UserID),
			zap.String(logging.FieldFormationID, formationID),
			zap.NamedError(logging.FieldError, err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+certpdf.Filename(cert.Number))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
