package api

import (
	"log/slog"
	"net/http"
	"time"

	mw "github.com/callforge/callforge/internal/api/middleware"
	"github.com/callforge/callforge/internal/database/models"
)

// voiceRequest is the JSON request body for creating a custom voice mapping.
type voiceRequest struct {
	VoiceName string `json:"voice_name"`
	VoiceID   string `json:"voice_id"`
}

// voiceResponse is the JSON shape of a single custom voice.
type voiceResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	VoiceName string `json:"voice_name"`
	VoiceID   string `json:"voice_id"`
	CreatedAt string `json:"created_at"`
}

func toVoiceResponse(v *models.CustomVoice) voiceResponse {
	return voiceResponse{
		ID:        v.ID,
		UserID:    v.UserID,
		VoiceName: v.VoiceName,
		VoiceID:   v.VoiceID,
		CreatedAt: v.CreatedAt.Format(time.RFC3339),
	}
}

// handleCreateVoice creates a new custom voice mapping.
func (s *Server) handleCreateVoice(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	var req voiceRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateRequiredStringLen("voice_name", req.VoiceName, maxNameLen); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateRequiredStringLen("voice_id", req.VoiceID, maxNameLen); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	voice := &models.CustomVoice{
		UserID:    userID,
		VoiceName: req.VoiceName,
		VoiceID:   req.VoiceID,
	}

	if err := s.voices.Create(r.Context(), voice); err != nil {
		slog.Error("create voice: failed to insert", "error", err, "user_id", userID)
		writeError(w, http.StatusBadRequest, "could not create voice")
		return
	}

	slog.Info("custom voice created", "voice_id", voice.ID, "user_id", userID)

	writeEntity(w, http.StatusCreated, "voice", toVoiceResponse(voice))
}

// handleListVoices returns the authenticated user's custom voices.
func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	voices, err := s.voices.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("list voices: failed to query", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]voiceResponse, len(voices))
	for i := range voices {
		items[i] = toVoiceResponse(&voices[i])
	}
	writeEntity(w, http.StatusOK, "voices", items)
}
