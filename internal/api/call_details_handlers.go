package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/callforge/callforge/internal/callcontext"
)

// callContextResponse is the assembled context returned to the calling
// infrastructure before it conducts a call.
type callContextResponse struct {
	Campaign       campaignResponse        `json:"campaign"`
	Contact        contactResponse         `json:"contact"`
	Agent          *agentResponse          `json:"agent"`
	Script         *scriptResponse         `json:"script"`
	User           *profileResponse        `json:"user"`
	KnowledgeBases []knowledgeBaseResponse `json:"knowledge_bases"`
}

func toCallContextResponse(c *callcontext.Context) callContextResponse {
	resp := callContextResponse{
		Campaign:       toCampaignResponse(c.Campaign),
		Contact:        toContactResponse(c.Contact),
		KnowledgeBases: make([]knowledgeBaseResponse, 0, len(c.KnowledgeBases)),
	}
	if c.Agent != nil {
		agent := toAgentResponse(c.Agent)
		resp.Agent = &agent
	}
	if c.Script != nil {
		script := toScriptResponse(c.Script)
		resp.Script = &script
	}
	if c.Profile != nil {
		profile := toProfileResponse(c.Profile)
		resp.User = &profile
	}
	for i := range c.KnowledgeBases {
		resp.KnowledgeBases = append(resp.KnowledgeBases, toKnowledgeBaseResponse(&c.KnowledgeBases[i]))
	}
	return resp
}

// resolutionFailure maps a resolver sentinel error to an HTTP status. All
// known resolution failures are 404s; anything else is a 500.
func resolutionFailure(err error) (int, string) {
	for _, sentinel := range []error{
		callcontext.ErrContactNotFound,
		callcontext.ErrNoInboundCampaign,
		callcontext.ErrCampaignNotFound,
		callcontext.ErrContactNotInCampaign,
		callcontext.ErrNoAgentAssigned,
	} {
		if errors.Is(err, sentinel) {
			return http.StatusNotFound, sentinel.Error()
		}
	}
	return http.StatusInternalServerError, "internal error"
}

// handleCallerDetails resolves the inbound calling context for a phone
// number. Public: called by the telephony infrastructure when a call
// arrives.
func (s *Server) handleCallerDetails(w http.ResponseWriter, r *http.Request) {
	phoneNumber := r.URL.Query().Get("phone")
	if phoneNumber == "" {
		writeError(w, http.StatusBadRequest, "phone query parameter is required")
		return
	}

	callCtx, err := s.resolver.ResolveInbound(r.Context(), phoneNumber)
	if err != nil {
		status, msg := resolutionFailure(err)
		if status == http.StatusInternalServerError {
			slog.Error("caller details: resolution failed", "error", err)
		}
		writeError(w, status, msg)
		return
	}

	writeEntity(w, http.StatusOK, "context", toCallContextResponse(callCtx))
}

// handleOutboundCallDetails resolves the outbound calling context for a
// campaign and phone number. Public: called before an outbound call is
// placed.
func (s *Server) handleOutboundCallDetails(w http.ResponseWriter, r *http.Request) {
	campaignID := r.URL.Query().Get("campaign_id")
	phoneNumber := r.URL.Query().Get("phone")
	if campaignID == "" || phoneNumber == "" {
		writeError(w, http.StatusBadRequest, "campaign_id and phone query parameters are required")
		return
	}

	callCtx, err := s.resolver.ResolveOutbound(r.Context(), campaignID, phoneNumber)
	if err != nil {
		status, msg := resolutionFailure(err)
		if status == http.StatusInternalServerError {
			slog.Error("outbound call details: resolution failed", "error", err, "campaign_id", campaignID)
		}
		writeError(w, status, msg)
		return
	}

	resp := toCallContextResponse(callCtx)
	writeSuccess(w, http.StatusOK, map[string]any{
		"context":      resp,
		"contact_user": resp.User,
	})
}
