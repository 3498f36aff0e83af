package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	mw "github.com/callforge/callforge/internal/api/middleware"
	"github.com/callforge/callforge/internal/database/models"
)

// knowledgeBaseRequest is the JSON request body for creating a knowledge
// base entry.
type knowledgeBaseRequest struct {
	Title       string          `json:"title"`
	Type        string          `json:"type"`
	Description *string         `json:"description"`
	Content     *string         `json:"content"`
	Tags        json.RawMessage `json:"tags"`
	Status      string          `json:"status"`
}

// knowledgeBaseResponse is the JSON shape of a single knowledge base entry.
type knowledgeBaseResponse struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Title        string          `json:"title"`
	Type         string          `json:"type"`
	Description  *string         `json:"description"`
	Content      *string         `json:"content"`
	Tags         json.RawMessage `json:"tags"`
	Status       string          `json:"status"`
	DateAdded    string          `json:"date_added"`
	LastModified string          `json:"last_modified"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

func toKnowledgeBaseResponse(kb *models.KnowledgeBase) knowledgeBaseResponse {
	return knowledgeBaseResponse{
		ID:           kb.ID,
		UserID:       kb.UserID,
		Title:        kb.Title,
		Type:         kb.Type,
		Description:  kb.Description,
		Content:      kb.Content,
		Tags:         rawJSONOr(kb.Tags, "[]"),
		Status:       kb.Status,
		DateAdded:    kb.DateAdded.Format(time.RFC3339),
		LastModified: kb.LastModified.Format(time.RFC3339),
		CreatedAt:    kb.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    kb.UpdatedAt.Format(time.RFC3339),
	}
}

// validateKnowledgeBaseRequest checks required fields for knowledge base
// creation.
func validateKnowledgeBaseRequest(req knowledgeBaseRequest) string {
	if errMsg := validateRequiredStringLen("title", req.Title, maxNameLen); errMsg != "" {
		return errMsg
	}
	if req.Status != "" && req.Status != "draft" && req.Status != "published" {
		return "status must be \"draft\" or \"published\""
	}
	if req.Content != nil {
		if errMsg := validateStringLen("content", *req.Content, maxContentLen); errMsg != "" {
			return errMsg
		}
	}
	if errMsg := validateJSONArray("tags", req.Tags); errMsg != "" {
		return errMsg
	}
	return ""
}

// createKnowledgeBase inserts a knowledge base entry. Shared between the
// knowledge-base endpoint and tagged entity creation.
func (s *Server) createKnowledgeBase(r *http.Request, userID string, req knowledgeBaseRequest) (*models.KnowledgeBase, string) {
	if errMsg := validateKnowledgeBaseRequest(req); errMsg != "" {
		return nil, errMsg
	}

	kb := &models.KnowledgeBase{
		UserID:      userID,
		Title:       req.Title,
		Type:        "document",
		Description: req.Description,
		Content:     req.Content,
		Tags:        string(req.Tags),
		Status:      "draft",
	}
	if req.Type != "" {
		kb.Type = req.Type
	}
	if req.Status != "" {
		kb.Status = req.Status
	}

	if err := s.knowledge.Create(r.Context(), kb); err != nil {
		slog.Error("create knowledge base: failed to insert", "error", err, "user_id", userID)
		return nil, "could not create knowledge base entry"
	}

	slog.Info("knowledge base entry created", "knowledge_base_id", kb.ID, "user_id", userID, "status", kb.Status)
	return kb, ""
}

// handleCreateKnowledgeBase creates a new knowledge base entry.
func (s *Server) handleCreateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	var req knowledgeBaseRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	kb, errMsg := s.createKnowledgeBase(r, userID, req)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	writeEntity(w, http.StatusCreated, "knowledge_base", toKnowledgeBaseResponse(kb))
}

// handleListKnowledgeBase returns the authenticated user's knowledge base
// entries, newest first.
func (s *Server) handleListKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	entries, err := s.knowledge.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("list knowledge base: failed to query", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]knowledgeBaseResponse, len(entries))
	for i := range entries {
		items[i] = toKnowledgeBaseResponse(&entries[i])
	}
	writeEntity(w, http.StatusOK, "knowledge_bases", items)
}
