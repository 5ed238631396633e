package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"astba/training/internal/auth"
	"astba/training/internal/config"
	"astba/training/internal/memdb"
	"astba/training/internal/model"
	"astba/training/internal/operations"
)

type testServer struct {
	t       *testing.T
	cfg     config.Config
	svc     *operations.Service
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{
		JWTSecret:      "test-secret",
		JWTIssuer:      "astba-training",
		AccessTokenTTL: time.Hour,
	}
	svc := operations.NewService(memdb.New())
	srv, err := NewServer(cfg, svc, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &testServer{t: t, cfg: cfg, svc: svc, handler: srv.Router()}
}

func (ts *testServer) user(name string, role model.Role) (model.User, string) {
	ts.t.Helper()
	user, err := ts.svc.CreateUser(context.Background(), operations.CreateUserInput{
		Name:     name,
		Email:    name + "@example.com",
		Password: "password",
		Role:     string(role),
	})
	if err != nil {
		ts.t.Fatalf("create user: %v", err)
	}
	token, err := auth.NewAccessToken(ts.cfg.JWTSecret, ts.cfg.JWTIssuer, time.Hour, auth.Claims{UserID: user.ID, Role: string(user.Role)})
	if err != nil {
		ts.t.Fatalf("token: %v", err)
	}
	return user, token
}

func (ts *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	if got := decodeBody(t, rec)["error"]; got != code {
		t.Fatalf("expected error %s, got %v", code, got)
	}
}

func TestNewServerRequiresSecret(t *testing.T) {
	if _, err := NewServer(config.Config{}, operations.NewService(memdb.New()), nil); err == nil {
		t.Fatalf("expected an error without a JWT secret")
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if decodeBody(t, rec)["status"] != "ok" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestSignupRequiresApprovalBeforeLogin(t *testing.T) {
	ts := newTestServer(t)
	_, adminToken := ts.user("root", model.RoleAdmin)

	rec := ts.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"name":     "Sami",
		"email":    "sami@example.com",
		"password": "secret1",
	})
	expectStatus(t, rec, http.StatusCreated)
	user := decodeBody(t, rec)["user"].(map[string]interface{})
	if user["status"] != "pending" || user["role"] != "manager" {
		t.Fatalf("unexpected signup user %v", user)
	}

	credentials := map[string]string{"email": "sami@example.com", "password": "secret1"}
	expectErrorCode(t, ts.do(http.MethodPost, "/auth/login", "", credentials), http.StatusForbidden, operations.ErrAccountPending)

	rec = ts.do(http.MethodPut, "/admin/users/"+user["id"].(string)+"/status", adminToken, map[string]string{"status": "active"})
	expectStatus(t, rec, http.StatusOK)

	rec = ts.do(http.MethodPost, "/auth/login", "", credentials)
	expectStatus(t, rec, http.StatusOK)
	token, _ := decodeBody(t, rec)["token"].(string)
	if token == "" {
		t.Fatalf("expected a token, got %s", rec.Body.String())
	}

	rec = ts.do(http.MethodGet, "/auth/me", token, nil)
	expectStatus(t, rec, http.StatusOK)

	wrong := map[string]string{"email": "sami@example.com", "password": "nope-nope"}
	expectErrorCode(t, ts.do(http.MethodPost, "/auth/login", "", wrong), http.StatusUnauthorized, operations.ErrInvalidCredentials)
}

func TestSignupValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/auth/signup", "", map[string]string{"name": "Sami"})
	expectErrorCode(t, rec, http.StatusBadRequest, "validation_failed")

	rec = ts.do(http.MethodPost, "/auth/signup", "", map[string]string{"name": "Sami", "email": "sami@example.com", "password": "secret1", "extra": "x"})
	expectErrorCode(t, rec, http.StatusBadRequest, "invalid_request")
}

func TestAuthorization(t *testing.T) {
	ts := newTestServer(t)
	_, studentToken := ts.user("lina", model.RoleStudent)

	expectErrorCode(t, ts.do(http.MethodGet, "/formations", "", nil), http.StatusUnauthorized, "missing_token")
	expectErrorCode(t, ts.do(http.MethodGet, "/formations", "garbage", nil), http.StatusUnauthorized, "invalid_token")
	expectErrorCode(t, ts.do(http.MethodGet, "/admin/users", studentToken, nil), http.StatusForbidden, "forbidden")
	expectErrorCode(t, ts.do(http.MethodPost, "/formations", studentToken, map[string]interface{}{
		"title": "t", "description": "d", "duration": 1,
	}), http.StatusForbidden, "staff_only")

	expectStatus(t, ts.do(http.MethodGet, "/formations", studentToken, nil), http.StatusOK)
}

func TestSuspendedAccountLosesAccess(t *testing.T) {
	ts := newTestServer(t)
	student, studentToken := ts.user("lina", model.RoleStudent)
	if _, err := ts.svc.SetUserStatus(context.Background(), student.ID, "suspended"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	expectErrorCode(t, ts.do(http.MethodGet, "/student/dashboard", studentToken, nil), http.StatusForbidden, "account_suspended")
}

// createFormation returns the formation id and the id of its first level.
func createFormation(t *testing.T, ts *testServer, token string) (string, string) {
	t.Helper()
	rec := ts.do(http.MethodPost, "/formations", token, map[string]interface{}{
		"title":       "Robotique",
		"description": "Initiation",
		"duration":    20,
		"startDate":   "2024-01-15",
	})
	expectStatus(t, rec, http.StatusCreated)
	body := decodeBody(t, rec)
	levels := body["levels"].([]interface{})
	if len(levels) != operations.LevelsPerFormation {
		t.Fatalf("expected %d levels, got %d", operations.LevelsPerFormation, len(levels))
	}
	formation := body["formation"].(map[string]interface{})
	return formation["id"].(string), levels[0].(map[string]interface{})["id"].(string)
}

func TestSessionEnrollment(t *testing.T) {
	ts := newTestServer(t)
	trainer, trainerToken := ts.user("tarek", model.RoleTrainer)
	_, firstToken := ts.user("lina", model.RoleStudent)
	_, secondToken := ts.user("omar", model.RoleStudent)
	formationID, levelID := createFormation(t, ts, trainerToken)

	rec := ts.do(http.MethodPost, "/sessions", trainerToken, map[string]interface{}{
		"formationId":     formationID,
		"levelId":         levelID,
		"date":            "2024-02-01",
		"startTime":       "09:00",
		"endTime":         "12:00",
		"trainerId":       trainer.ID,
		"maxParticipants": 1,
	})
	expectStatus(t, rec, http.StatusCreated)
	sessionID := decodeBody(t, rec)["session"].(map[string]interface{})["id"].(string)

	expectStatus(t, ts.do(http.MethodPost, "/sessions/"+sessionID+"/enroll", firstToken, nil), http.StatusOK)
	expectErrorCode(t, ts.do(http.MethodPost, "/sessions/"+sessionID+"/enroll", firstToken, nil), http.StatusConflict, operations.ErrAlreadyEnrolled)
	expectErrorCode(t, ts.do(http.MethodPost, "/sessions/"+sessionID+"/enroll", secondToken, nil), http.StatusConflict, operations.ErrSessionFull)
	expectErrorCode(t, ts.do(http.MethodPost, "/sessions/"+sessionID+"/enroll", secondToken, map[string]string{"participantId": "someone-else"}), http.StatusForbidden, "staff_only")

	expectStatus(t, ts.do(http.MethodPost, "/sessions/"+sessionID+"/unenroll", firstToken, nil), http.StatusOK)
	expectErrorCode(t, ts.do(http.MethodPost, "/sessions/"+sessionID+"/unenroll", firstToken, nil), http.StatusBadRequest, operations.ErrNotEnrolled)
	expectErrorCode(t, ts.do(http.MethodGet, "/sessions/missing", firstToken, nil), http.StatusNotFound, operations.ErrSessionNotFound)
}

func TestAttendanceAndProgress(t *testing.T) {
	ts := newTestServer(t)
	_, trainerToken := ts.user("tarek", model.RoleTrainer)
	student, studentToken := ts.user("lina", model.RoleStudent)
	_, otherToken := ts.user("omar", model.RoleStudent)
	formationID, levelID := createFormation(t, ts, trainerToken)

	rec := ts.do(http.MethodPost, "/sessions", trainerToken, map[string]interface{}{
		"formationId": formationID,
		"levelId":     levelID,
		"date":        "2024-02-01T09:00:00Z",
		"startTime":   "09:00",
		"endTime":     "12:00",
		"trainerId":   "tarek",
	})
	expectStatus(t, rec, http.StatusCreated)
	sessionID := decodeBody(t, rec)["session"].(map[string]interface{})["id"].(string)

	rec = ts.do(http.MethodPost, "/attendance", trainerToken, map[string]string{
		"sessionId":     sessionID,
		"participantId": student.ID,
		"status":        "present",
	})
	expectStatus(t, rec, http.StatusOK)
	expectErrorCode(t, ts.do(http.MethodPost, "/attendance", trainerToken, map[string]string{
		"sessionId":     sessionID,
		"participantId": student.ID,
		"status":        "excused",
	}), http.StatusBadRequest, operations.ErrInvalidStatus)

	rec = ts.do(http.MethodGet, "/formations/"+formationID+"/progress", studentToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if decodeBody(t, rec)["progressPercent"] != float64(100) {
		t.Fatalf("unexpected progress %s", rec.Body.String())
	}
	expectErrorCode(t, ts.do(http.MethodGet, "/formations/"+formationID+"/progress?participantId="+student.ID, otherToken, nil), http.StatusForbidden, "forbidden")
	expectErrorCode(t, ts.do(http.MethodGet, "/attendance/participant/"+student.ID, otherToken, nil), http.StatusForbidden, "forbidden")
	expectStatus(t, ts.do(http.MethodGet, "/attendance/participant/"+student.ID, studentToken, nil), http.StatusOK)
}

func TestCertificateIssuanceAndDownload(t *testing.T) {
	ts := newTestServer(t)
	_, adminToken := ts.user("root", model.RoleAdmin)
	student, studentToken := ts.user("lina", model.RoleStudent)
	formationID, _ := createFormation(t, ts, adminToken)

	request := map[string]string{"userId": student.ID, "formationId": formationID}
	rec := ts.do(http.MethodPost, "/admin/certification/generate", adminToken, request)
	expectStatus(t, rec, http.StatusCreated)
	issued := decodeBody(t, rec)["certificate"].(map[string]interface{})
	number := issued["certificateId"].(string)
	if !strings.HasPrefix(number, "CERT-") {
		t.Fatalf("unexpected certificate number %s", number)
	}

	rec = ts.do(http.MethodPost, "/admin/certification/generate", adminToken, request)
	expectStatus(t, rec, http.StatusConflict)
	existing, ok := decodeBody(t, rec)["certificate"].(map[string]interface{})
	if !ok || existing["id"] != issued["id"] {
		t.Fatalf("expected the existing certificate in the conflict body, got %s", rec.Body.String())
	}

	rec = ts.do(http.MethodGet, "/student/certificate/download/"+formationID, studentToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected content type %s", rec.Header().Get("Content-Type"))
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=Certificat-"+number+".pdf" {
		t.Fatalf("unexpected disposition %s", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected a PDF body")
	}

	expectErrorCode(t, ts.do(http.MethodGet, "/student/certificate/download/other", studentToken, nil), http.StatusNotFound, operations.ErrCertificateNotFound)
}

func TestVoiceCommand(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.user("lina", model.RoleStudent)

	rec := ts.do(http.MethodPost, "/voice/command", token, map[string]interface{}{
		"userInput": "remplir email avec sami at example dot com",
		"pageContext": map[string]interface{}{
			"formFields": []map[string]string{{"id": "email", "type": "email"}, {"id": "password", "type": "password"}},
		},
		"focusedElement": map[string]string{"id": "email"},
	})
	expectStatus(t, rec, http.StatusOK)
	body := decodeBody(t, rec)
	if body["action"] != "fill_field" || body["target"] != "email" || body["value"] != "sami@example.com" {
		t.Fatalf("unexpected intent %v", body)
	}

	rec = ts.do(http.MethodPost, "/voice/command", token, map[string]string{"userInput": "arrête"})
	expectStatus(t, rec, http.StatusOK)
	if decodeBody(t, rec)["action"] != "stop" {
		t.Fatalf("unexpected intent %s", rec.Body.String())
	}

	expectErrorCode(t, ts.do(http.MethodPost, "/voice/command", token, map[string]string{"userInput": "  "}), http.StatusBadRequest, "user_input_required")
}
