package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"astba/training/internal/metrics"
	"astba/training/internal/voice"
)

type voiceCommandRequest struct {
	UserInput      string            `json:"userInput"`
	PageContext    voice.PageContext `json:"pageContext"`
	FocusedElement json.RawMessage   `json:"focusedElement,omitempty"`
}

// handleVoiceCommand decodes leniently since browsers send extra page
// context that the parser does not use.
func (s *Server) handleVoiceCommand(w http.ResponseWriter, r *http.Request) {
	var req voiceCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		writeError(w, http.StatusBadRequest, "user_input_required")
		return
	}
	intent := voice.Parse(req.UserInput, req.PageContext)
	metrics.VoiceIntents.WithLabelValues(string(intent.Action)).Inc()
	writeJSON(w, http.StatusOK, intent)
}
