package api

import (
	"log/slog"
	"net/http"
	"time"

	mw "github.com/callforge/callforge/internal/api/middleware"
	"github.com/callforge/callforge/internal/database/models"
)

// agentRequest is the JSON request body for creating an agent.
type agentRequest struct {
	Name            string  `json:"name"`
	Voice           string  `json:"voice"`
	Status          string  `json:"status"`
	Description     *string `json:"description"`
	SystemPrompt    *string `json:"system_prompt"`
	FirstMessage    *string `json:"first_message"`
	KnowledgeBaseID *string `json:"knowledge_base_id"`
	Company         *string `json:"company"`
	AgentType       string  `json:"agent_type"`
}

// agentResponse is the JSON shape of a single agent.
type agentResponse struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	Name            string  `json:"name"`
	Voice           string  `json:"voice"`
	Status          string  `json:"status"`
	Description     *string `json:"description"`
	SystemPrompt    *string `json:"system_prompt"`
	FirstMessage    *string `json:"first_message"`
	KnowledgeBaseID *string `json:"knowledge_base_id"`
	Company         *string `json:"company"`
	AgentType       string  `json:"agent_type"`
	Conversations   int     `json:"conversations"`
	LastActive      *string `json:"last_active"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toAgentResponse(a *models.Agent) agentResponse {
	resp := agentResponse{
		ID:              a.ID,
		UserID:          a.UserID,
		Name:            a.Name,
		Voice:           a.Voice,
		Status:          a.Status,
		Description:     a.Description,
		SystemPrompt:    a.SystemPrompt,
		FirstMessage:    a.FirstMessage,
		KnowledgeBaseID: a.KnowledgeBaseID,
		Company:         a.Company,
		AgentType:       a.AgentType,
		Conversations:   a.Conversations,
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       a.UpdatedAt.Format(time.RFC3339),
	}
	if a.LastActive != nil {
		formatted := a.LastActive.Format(time.RFC3339)
		resp.LastActive = &formatted
	}
	return resp
}

// validateAgentRequest checks required fields for agent creation.
func validateAgentRequest(req agentRequest) string {
	if errMsg := validateRequiredStringLen("name", req.Name, maxNameLen); errMsg != "" {
		return errMsg
	}
	if req.AgentType != "" && req.AgentType != "inbound" && req.AgentType != "outbound" {
		return "agent_type must be \"inbound\" or \"outbound\""
	}
	if req.SystemPrompt != nil {
		if errMsg := validateStringLen("system_prompt", *req.SystemPrompt, maxLongStringLen); errMsg != "" {
			return errMsg
		}
	}
	if req.FirstMessage != nil {
		if errMsg := validateStringLen("first_message", *req.FirstMessage, maxLongStringLen); errMsg != "" {
			return errMsg
		}
	}
	return ""
}

// createAgent inserts an agent. Shared between the agent endpoint and
// tagged entity creation.
func (s *Server) createAgent(r *http.Request, userID string, req agentRequest) (*models.Agent, string) {
	if errMsg := validateAgentRequest(req); errMsg != "" {
		return nil, errMsg
	}

	agent := &models.Agent{
		UserID:          userID,
		Name:            req.Name,
		Voice:           "nova",
		Status:          "inactive",
		Description:     req.Description,
		SystemPrompt:    req.SystemPrompt,
		FirstMessage:    req.FirstMessage,
		KnowledgeBaseID: req.KnowledgeBaseID,
		Company:         req.Company,
		AgentType:       "outbound",
	}
	if req.Voice != "" {
		agent.Voice = req.Voice
	}
	if req.Status != "" {
		agent.Status = req.Status
	}
	if req.AgentType != "" {
		agent.AgentType = req.AgentType
	}

	if err := s.agents.Create(r.Context(), agent); err != nil {
		slog.Error("create agent: failed to insert", "error", err, "user_id", userID)
		return nil, "could not create agent"
	}

	slog.Info("agent created", "agent_id", agent.ID, "user_id", userID)
	return agent, ""
}

// handleCreateAgent creates a new agent owned by the authenticated user.
func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	var req agentRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	agent, errMsg := s.createAgent(r, userID, req)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	writeEntity(w, http.StatusCreated, "agent", toAgentResponse(agent))
}

// handleListAgents returns the authenticated user's agents, newest first.
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	agents, err := s.agents.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("list agents: failed to query", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]agentResponse, len(agents))
	for i := range agents {
		items[i] = toAgentResponse(&agents[i])
	}
	writeEntity(w, http.StatusOK, "agents", items)
}

// handleAgentByNumber returns the first agent matching the given number by
// name-contains or exact ID. Public: called by the telephony infrastructure.
func (s *Server) handleAgentByNumber(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("number")
	if number == "" {
		writeError(w, http.StatusBadRequest, "number query parameter is required")
		return
	}

	agent, err := s.agents.FindByNumber(r.Context(), number)
	if err != nil {
		slog.Error("agent by number: failed to query", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if agent == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}

	writeEntity(w, http.StatusOK, "agent", toAgentResponse(agent))
}
