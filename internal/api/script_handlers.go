package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	mw "github.com/callforge/callforge/internal/api/middleware"
	"github.com/callforge/callforge/internal/database/models"
)

// scriptRequest is the JSON request body for creating a script.
type scriptRequest struct {
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Company      *string         `json:"company"`
	FirstMessage *string         `json:"first_message"`
	Sections     json.RawMessage `json:"sections"`
}

// scriptResponse is the JSON shape of a single script.
type scriptResponse struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Company      *string         `json:"company"`
	FirstMessage *string         `json:"first_message"`
	Sections     json.RawMessage `json:"sections"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

func toScriptResponse(sc *models.Script) scriptResponse {
	return scriptResponse{
		ID:           sc.ID,
		UserID:       sc.UserID,
		Name:         sc.Name,
		Description:  sc.Description,
		Company:      sc.Company,
		FirstMessage: sc.FirstMessage,
		Sections:     rawJSONOr(sc.Sections, "[]"),
		CreatedAt:    sc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    sc.UpdatedAt.Format(time.RFC3339),
	}
}

// handleCreateScript creates a new script owned by the authenticated user.
func (s *Server) handleCreateScript(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	var req scriptRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateRequiredStringLen("name", req.Name, maxNameLen); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateJSONArray("sections", req.Sections); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	script := &models.Script{
		UserID:       userID,
		Name:         req.Name,
		Description:  req.Description,
		Company:      req.Company,
		FirstMessage: req.FirstMessage,
		Sections:     string(req.Sections),
	}

	if err := s.scripts.Create(r.Context(), script); err != nil {
		slog.Error("create script: failed to insert", "error", err, "user_id", userID)
		writeError(w, http.StatusBadRequest, "could not create script")
		return
	}

	slog.Info("script created", "script_id", script.ID, "user_id", userID)

	writeEntity(w, http.StatusCreated, "script", toScriptResponse(script))
}

// handleListScripts returns the authenticated user's scripts, newest first.
// Mounted at both /scripts/list and /scripts/user-scripts.
func (s *Server) handleListScripts(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	scripts, err := s.scripts.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("list scripts: failed to query", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]scriptResponse, len(scripts))
	for i := range scripts {
		items[i] = toScriptResponse(&scripts[i])
	}
	writeEntity(w, http.StatusOK, "scripts", items)
}
