package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"astba/training/internal/logging"
	"astba/training/internal/operations"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// decodeAndValidate reads a strict JSON body into out and runs the struct
// validation rules. It writes the 400 response itself and reports false
// when the request cannot be used.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := decodeJSON(r, out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return false
	}
	if err := requestValidator().Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return false
		}
		fields := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation_failed",
			"fields": fields,
		})
		return false
	}
	return true
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, out interface{}) error {
	if err := decodeJSON(r, out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeOpError maps an operations failure onto a status code. Anything that
// is not a typed operations error is an infrastructure failure.
func (s *Server) writeOpError(w http.ResponseWriter, r *http.Request, err error) {
	var opErr *operations.Error
	if !errors.As(err, &opErr) {
		s.log.Error("request failed", zap.String(logging.FieldPath, r.URL.Path), zap.NamedError(logging.FieldError, err))
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	switch opErr.Kind {
	case operations.KindNotFound:
		writeError(w, http.StatusNotFound, opErr.Code)
	case operations.KindInvalidArgument, operations.KindNotEnrolled:
		writeError(w, http.StatusBadRequest, opErr.Code)
	case operations.KindConflict, operations.KindCapacityExceeded:
		writeError(w, http.StatusConflict, opErr.Code)
	case operations.KindAlreadyExists:
		payload := map[string]interface{}{"error": opErr.Code}
		if opErr.Certificate != nil {
			payload["certificate"] = certificateView(*opErr.Certificate)
		}
		writeJSON(w, http.StatusConflict, payload)
	case operations.KindAccessDenied:
		if opErr.Code == operations.ErrInvalidCredentials {
			writeError(w, http.StatusUnauthorized, opErr.Code)
			return
		}
		writeError(w, http.StatusForbidden, opErr.Code)
	default:
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}
