package api

import (
	"encoding/json"
	"net/http"

	mw "github.com/callforge/callforge/internal/api/middleware"
)

// createEntityRequest is the tagged envelope for generic entity creation.
// data is decoded per variant once the tag is known, so a payload can never
// smuggle another entity's fields.
type createEntityRequest struct {
	EntityType string          `json:"entityType"`
	Data       json.RawMessage `json:"data"`
}

// handleCreateEntity dispatches tagged entity creation to the matching
// per-entity path. An unknown tag is rejected before anything is decoded or
// inserted.
func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	var req createEntityRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if len(req.Data) == 0 {
		writeError(w, http.StatusBadRequest, "data is required")
		return
	}

	switch req.EntityType {
	case "agent":
		var data agentRequest
		if err := json.Unmarshal(req.Data, &data); err != nil {
			writeError(w, http.StatusBadRequest, "invalid agent data")
			return
		}
		agent, errMsg := s.createAgent(r, userID, data)
		if errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
		writeEntity(w, http.StatusCreated, "agent", toAgentResponse(agent))

	case "contact":
		var data contactRequest
		if err := json.Unmarshal(req.Data, &data); err != nil {
			writeError(w, http.StatusBadRequest, "invalid contact data")
			return
		}
		contact, errMsg := s.createContact(r, userID, data)
		if errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
		writeEntity(w, http.StatusCreated, "contact", toContactResponse(contact))

	case "knowledge_base":
		var data knowledgeBaseRequest
		if err := json.Unmarshal(req.Data, &data); err != nil {
			writeError(w, http.StatusBadRequest, "invalid knowledge_base data")
			return
		}
		kb, errMsg := s.createKnowledgeBase(r, userID, data)
		if errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
		writeEntity(w, http.StatusCreated, "knowledge_base", toKnowledgeBaseResponse(kb))

	case "campaign":
		var data campaignRequest
		if err := json.Unmarshal(req.Data, &data); err != nil {
			writeError(w, http.StatusBadRequest, "invalid campaign data")
			return
		}
		campaign, errMsg := s.createCampaign(r, userID, data)
		if errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
		writeEntity(w, http.StatusCreated, "campaign", toCampaignResponse(campaign))

	default:
		writeError(w, http.StatusBadRequest, "unknown entity type")
	}
}
