package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"astba/training/internal/auth"
	"astba/training/internal/logging"
	"astba/training/internal/metrics"
	"astba/training/internal/model"
)

type claimsKey struct{}

// authMiddleware validates the bearer token and reloads the account so role
// and status changes apply to tokens that are already issued.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		user, err := s.svc.GetUser(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		if user.Status != model.UserActive {
			writeError(w, http.StatusForbidden, "account_"+string(user.Status))
			return
		}
		claims.Role = string(user.Role)

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireRoles(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil || !hasRole(claims, roles...) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isStaff(claimsFromContext(r.Context())) {
			writeError(w, http.StatusForbidden, "staff_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger records one structured line and the request metrics once
// the handler has run and the route pattern is known.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())

		fields := []zap.Field{
			zap.String(logging.FieldRequestID, middleware.GetReqID(r.Context())),
			zap.String(logging.FieldMethod, r.Method),
			zap.String(logging.FieldPath, r.URL.Path),
			zap.Int(logging.FieldStatus, status),
			zap.Duration(logging.FieldDuration, elapsed),
		}
		if status >= http.StatusInternalServerError {
			s.log.Error("request failed", fields...)
			return
		}
		s.log.Debug("request served", fields...)
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func hasRole(claims *auth.Claims, roles ...model.Role) bool {
	if claims == nil {
		return false
	}
	for _, role := range roles {
		if model.Role(claims.Role) == role {
			return true
		}
	}
	return false
}

func isStaff(claims *auth.Claims) bool {
	return claims != nil && model.Role(claims.Role).IsStaff()
}

// canActFor reports whether the caller may read or change data belonging to
// participantID.
func canActFor(claims *auth.Claims, participantID string) bool {
	if claims == nil {
		return false
	}
	return claims.UserID == participantID || isStaff(claims)
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
