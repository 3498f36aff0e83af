package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	mw "github.com/callforge/callforge/internal/api/middleware"
	"github.com/callforge/callforge/internal/database/models"
	"github.com/go-chi/chi/v5"
)

// campaignRequest is the JSON request body for creating a campaign.
type campaignRequest struct {
	Name                string          `json:"name"`
	Description         *string         `json:"description"`
	AgentID             *string         `json:"agent_id"`
	ScriptID            *string         `json:"script_id"`
	KnowledgeBaseID     *string         `json:"knowledge_base_id"`
	Status              string          `json:"status"`
	ContactIDs          []string        `json:"contact_ids"`
	Settings            json.RawMessage `json:"settings"`
	ExtractedDataConfig json.RawMessage `json:"extracted_data_config"`
}

// campaignResponse is the JSON shape of a single campaign. JSON columns are
// emitted raw so clients see the stored arrays/objects, not strings.
type campaignResponse struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	Name                string          `json:"name"`
	Description         *string         `json:"description"`
	AgentID             *string         `json:"agent_id"`
	ScriptID            *string         `json:"script_id"`
	KnowledgeBaseID     *string         `json:"knowledge_base_id"`
	Status              string          `json:"status"`
	ContactIDs          json.RawMessage `json:"contact_ids"`
	Settings            json.RawMessage `json:"settings"`
	ExtractedDataConfig json.RawMessage `json:"extracted_data_config"`
	CreatedAt           string          `json:"created_at"`
	UpdatedAt           string          `json:"updated_at"`
}

func toCampaignResponse(c *models.Campaign) campaignResponse {
	return campaignResponse{
		ID:                  c.ID,
		UserID:              c.UserID,
		Name:                c.Name,
		Description:         c.Description,
		AgentID:             c.AgentID,
		ScriptID:            c.ScriptID,
		KnowledgeBaseID:     c.KnowledgeBaseID,
		Status:              c.Status,
		ContactIDs:          rawJSONOr(c.ContactIDs, "[]"),
		Settings:            rawJSONOr(c.Settings, "{}"),
		ExtractedDataConfig: rawJSONOr(c.ExtractedDataConfig, "[]"),
		CreatedAt:           c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           c.UpdatedAt.Format(time.RFC3339),
	}
}

// rawJSONOr returns s as raw JSON, or fallback when s is empty.
func rawJSONOr(s, fallback string) json.RawMessage {
	if s == "" {
		return json.RawMessage(fallback)
	}
	return json.RawMessage(s)
}

// validateCampaignRequest checks required fields for campaign creation.
func validateCampaignRequest(req campaignRequest) string {
	if errMsg := validateRequiredStringLen("name", req.Name, maxNameLen); errMsg != "" {
		return errMsg
	}
	if errMsg := validateJSONObject("settings", req.Settings); errMsg != "" {
		return errMsg
	}
	if errMsg := validateJSONArray("extracted_data_config", req.ExtractedDataConfig); errMsg != "" {
		return errMsg
	}
	return ""
}

// createCampaign inserts the campaign and its campaign_contacts join rows.
// Shared between the campaign endpoint and tagged entity creation.
func (s *Server) createCampaign(r *http.Request, userID string, req campaignRequest) (*models.Campaign, string) {
	if errMsg := validateCampaignRequest(req); errMsg != "" {
		return nil, errMsg
	}

	contactIDs := req.ContactIDs
	if contactIDs == nil {
		contactIDs = []string{}
	}
	contactIDsJSON, err := json.Marshal(contactIDs)
	if err != nil {
		return nil, "invalid contact_ids"
	}

	campaign := &models.Campaign{
		UserID:              userID,
		Name:                req.Name,
		Description:         req.Description,
		AgentID:             req.AgentID,
		ScriptID:            req.ScriptID,
		KnowledgeBaseID:     req.KnowledgeBaseID,
		Status:              "draft",
		ContactIDs:          string(contactIDsJSON),
		Settings:            string(req.Settings),
		ExtractedDataConfig: string(req.ExtractedDataConfig),
	}
	if req.Status != "" {
		campaign.Status = req.Status
	}

	if err := s.campaigns.Create(r.Context(), campaign); err != nil {
		slog.Error("create campaign: failed to insert", "error", err, "user_id", userID)
		return nil, "could not create campaign"
	}

	if len(contactIDs) > 0 {
		if err := s.links.AddContacts(r.Context(), campaign.ID, contactIDs); err != nil {
			slog.Error("create campaign: failed to link contacts", "error", err, "campaign_id", campaign.ID)
			return nil, "could not link campaign contacts"
		}
	}

	slog.Info("campaign created", "campaign_id", campaign.ID, "user_id", userID, "contacts", len(contactIDs))
	return campaign, ""
}

// handleCreateCampaign creates a new campaign owned by the authenticated user.
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	var req campaignRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	campaign, errMsg := s.createCampaign(r, userID, req)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	writeEntity(w, http.StatusCreated, "campaign", toCampaignResponse(campaign))
}

// handleListCampaigns returns the authenticated user's campaigns, newest first.
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	campaigns, err := s.campaigns.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("list campaigns: failed to query", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]campaignResponse, len(campaigns))
	for i := range campaigns {
		items[i] = toCampaignResponse(&campaigns[i])
	}
	writeEntity(w, http.StatusOK, "campaigns", items)
}

// extractedCallResponse is one call carrying extracted data, joined to its
// contact's name.
type extractedCallResponse struct {
	ID            string          `json:"id"`
	ContactID     string          `json:"contact_id"`
	ContactName   string          `json:"contact_name"`
	Phone         string          `json:"phone"`
	Status        string          `json:"status"`
	Direction     string          `json:"direction"`
	CallStatus    string          `json:"call_status"`
	StartedAt     string          `json:"started_at"`
	EndedAt       *string         `json:"ended_at"`
	Outcome       *string         `json:"outcome"`
	ExtractedData json.RawMessage `json:"extracted_data"`
}

// handleCampaignExtractedData returns a campaign summary plus its calls that
// carry extracted data. Public: consumed by reporting dashboards.
func (s *Server) handleCampaignExtractedData(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	campaign, err := s.campaigns.GetByID(r.Context(), campaignID)
	if err != nil {
		slog.Error("extracted data: failed to query campaign", "error", err, "campaign_id", campaignID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if campaign == nil {
		writeError(w, http.StatusNotFound, "campaign not found")
		return
	}

	calls, err := s.calls.ListExtractedByCampaign(r.Context(), campaignID)
	if err != nil {
		slog.Error("extracted data: failed to query calls", "error", err, "campaign_id", campaignID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]extractedCallResponse, len(calls))
	for i, c := range calls {
		item := extractedCallResponse{
			ID:          c.ID,
			ContactID:   c.ContactID,
			ContactName: c.ContactName,
			Phone:       c.Phone,
			Status:      c.Status,
			Direction:   c.Direction,
			CallStatus:  c.CallStatus,
			StartedAt:   c.StartedAt.Format(time.RFC3339),
			Outcome:     c.Outcome,
		}
		if c.EndedAt != nil {
			formatted := c.EndedAt.Format(time.RFC3339)
			item.EndedAt = &formatted
		}
		if c.ExtractedData != nil {
			item.ExtractedData = json.RawMessage(*c.ExtractedData)
		}
		items[i] = item
	}

	var fieldsConfigured []json.RawMessage
	if campaign.ExtractedDataConfig != "" {
		// Malformed stored config counts as zero fields rather than an error.
		json.Unmarshal([]byte(campaign.ExtractedDataConfig), &fieldsConfigured) //nolint:errcheck
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"campaign":          toCampaignResponse(campaign),
		"calls":             items,
		"total_calls":       len(items),
		"fields_configured": len(fieldsConfigured),
	})
}
