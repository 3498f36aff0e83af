// Package callcontext assembles the context needed to conduct or log a
// call: matching a phone number to its contact, then gathering the
// campaign, agent, script, owner profile, and published knowledge base.
package callcontext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/callforge/callforge/internal/database"
	"github.com/callforge/callforge/internal/database/models"
)

// Resolution failure reasons. All map to HTTP 404 at the API layer.
var (
	ErrContactNotFound      = errors.New("contact not found")
	ErrNoInboundCampaign    = errors.New("no active inbound campaign found for this contact")
	ErrCampaignNotFound     = errors.New("campaign not found")
	ErrContactNotInCampaign = errors.New("contact not found in the specified campaign")
	ErrNoAgentAssigned      = errors.New("no agent assigned to this outbound campaign")
)

// Context is the bundle needed to conduct or log a call. Agent, Script, and
// Profile may be nil where resolution tolerates their absence;
// KnowledgeBases holds zero or one published entries.
type Context struct {
	Campaign       *models.Campaign
	Contact        *models.Contact
	Agent          *models.Agent
	Script         *models.Script
	Profile        *models.Profile
	KnowledgeBases []models.KnowledgeBase
}

// CallArchiver mirrors ingested call records to secondary storage.
type CallArchiver interface {
	ArchiveCall(ctx context.Context, call *models.Call, contactName string) error
}

// Resolver orchestrates call-context resolution over the repositories.
type Resolver struct {
	contacts  database.ContactRepository
	campaigns database.CampaignRepository
	links     database.CampaignContactRepository
	agents    database.AgentRepository
	scripts   database.ScriptRepository
	profiles  database.ProfileRepository
	knowledge database.KnowledgeBaseRepository
	calls     database.CallRepository
	archive   CallArchiver // optional
}

// NewResolver creates a Resolver. archive may be nil.
func NewResolver(
	contacts database.ContactRepository,
	campaigns database.CampaignRepository,
	links database.CampaignContactRepository,
	agents database.AgentRepository,
	scripts database.ScriptRepository,
	profiles database.ProfileRepository,
	knowledge database.KnowledgeBaseRepository,
	calls database.CallRepository,
	archive CallArchiver,
) *Resolver {
	return &Resolver{
		contacts:  contacts,
		campaigns: campaigns,
		links:     links,
		agents:    agents,
		scripts:   scripts,
		profiles:  profiles,
		knowledge: knowledge,
		calls:     calls,
		archive:   archive,
	}
}

// campaignSettings is the portion of a campaign's settings JSON that gates
// context resolution.
type campaignSettings struct {
	CampaignType string `json:"campaign_type"`
}

// campaignType extracts settings.campaign_type, returning the empty string
// for missing or malformed settings. A campaign without the field never
// matches inbound resolution.
func campaignType(c *models.Campaign) string {
	if c.Settings == "" {
		return ""
	}
	var s campaignSettings
	if err := json.Unmarshal([]byte(c.Settings), &s); err != nil {
		return ""
	}
	return s.CampaignType
}

// ResolveInbound matches an inbound caller to a contact and the owner's
// first active inbound campaign.
func (r *Resolver) ResolveInbound(ctx context.Context, phoneNumber string) (*Context, error) {
	contact, err := r.contacts.FindByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("looking up contact: %w", err)
	}
	if contact == nil {
		return nil, ErrContactNotFound
	}

	active, err := r.campaigns.ListActiveByUser(ctx, contact.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing active campaigns: %w", err)
	}

	var campaign *models.Campaign
	for i := range active {
		if campaignType(&active[i]) == "inbound" {
			campaign = &active[i]
			break
		}
	}
	if campaign == nil {
		return nil, ErrNoInboundCampaign
	}

	result := &Context{Campaign: campaign, Contact: contact}
	if err := r.attachDetails(ctx, result, contact.UserID); err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveOutbound verifies a contact's membership in the given campaign and
// assembles the outbound calling context. Unlike inbound resolution, an
// outbound campaign must have an agent assigned.
func (r *Resolver) ResolveOutbound(ctx context.Context, campaignID, phoneNumber string) (*Context, error) {
	campaign, err := r.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("looking up campaign: %w", err)
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	contact, err := r.contacts.FindByPhone(ctx, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("looking up contact: %w", err)
	}
	if contact == nil {
		return nil, ErrContactNotFound
	}

	linked, err := r.links.Exists(ctx, campaign.ID, contact.ID)
	if err != nil {
		return nil, fmt.Errorf("checking campaign membership: %w", err)
	}
	if !linked {
		return nil, ErrContactNotInCampaign
	}

	result := &Context{Campaign: campaign, Contact: contact}
	if err := r.attachDetails(ctx, result, contact.UserID); err != nil {
		return nil, err
	}
	if result.Agent == nil {
		return nil, ErrNoAgentAssigned
	}
	return result, nil
}

// attachDetails resolves the campaign's agent, script, and knowledge base
// plus the owning user's profile. A missing agent or script is tolerated
// here; callers enforce stricter requirements. Only a published knowledge
// base entry is attached.
func (r *Resolver) attachDetails(ctx context.Context, c *Context, userID string) error {
	if c.Campaign.AgentID != nil {
		agent, err := r.agents.GetByID(ctx, *c.Campaign.AgentID)
		if err != nil {
			return fmt.Errorf("looking up agent: %w", err)
		}
		c.Agent = agent
	}

	if c.Campaign.ScriptID != nil {
		script, err := r.scripts.GetByID(ctx, *c.Campaign.ScriptID)
		if err != nil {
			return fmt.Errorf("looking up script: %w", err)
		}
		c.Script = script
	}

	profile, err := r.profiles.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("looking up profile: %w", err)
	}
	c.Profile = profile

	c.KnowledgeBases = []models.KnowledgeBase{}
	if c.Campaign.KnowledgeBaseID != nil {
		kb, err := r.knowledge.GetPublishedByID(ctx, *c.Campaign.KnowledgeBaseID)
		if err != nil {
			return fmt.Errorf("looking up knowledge base: %w", err)
		}
		if kb != nil {
			c.KnowledgeBases = append(c.KnowledgeBases, *kb)
		}
	}
	return nil
}

// CallResult is the payload of a completed call pushed back by the calling
// infrastructure. Phone is required; everything else is optional.
type CallResult struct {
	Phone          string
	Duration       *int
	Status         *string
	Direction      *string
	RecordingURL   *string
	Transcript     *string
	ExternalCallID *string
	StartedAt      *time.Time
	EndedAt        *time.Time
	Notes          *string
	CampaignID     *string
	Outcome        *string
	Sentiment      *float64
	UserID         *string
	ExtractedData  *string // JSON object
	CallStatus     *string
	RescheduledFor *time.Time
	ObjectiveMet   *bool
}

// IngestReceipt summarizes a stored call result.
type IngestReceipt struct {
	CallID      string
	CampaignID  *string
	ContactID   string
	ContactName string
	Phone       *string
}

// IngestCallResult attaches a completed call to its contact: the contact's
// last_called is stamped (ended_at, else started_at, else now) and one call
// row is inserted with defaults applied. There is no cross-statement
// transaction; a failed insert after the contact update is surfaced as an
// error without rollback.
func (r *Resolver) IngestCallResult(ctx context.Context, result *CallResult) (*IngestReceipt, error) {
	contact, err := r.contacts.FindByPhone(ctx, result.Phone)
	if err != nil {
		return nil, fmt.Errorf("looking up contact: %w", err)
	}
	if contact == nil {
		return nil, ErrContactNotFound
	}

	now := time.Now().UTC()

	lastCalled := now
	if result.EndedAt != nil {
		lastCalled = *result.EndedAt
	} else if result.StartedAt != nil {
		lastCalled = *result.StartedAt
	}
	if err := r.contacts.UpdateLastCalled(ctx, contact.ID, lastCalled, now); err != nil {
		return nil, fmt.Errorf("updating contact: %w", err)
	}

	call := &models.Call{
		ContactID:      contact.ID,
		CampaignID:     result.CampaignID,
		Phone:          result.Phone,
		Duration:       result.Duration,
		Status:         stringOr(result.Status, "unknown"),
		Direction:      stringOr(result.Direction, "outbound"),
		RecordingURL:   result.RecordingURL,
		Transcript:     result.Transcript,
		ExternalCallID: result.ExternalCallID,
		StartedAt:      now,
		EndedAt:        result.EndedAt,
		Notes:          result.Notes,
		Outcome:        result.Outcome,
		Sentiment:      result.Sentiment,
		UserID:         contact.UserID,
		ExtractedData:  result.ExtractedData,
		CallStatus:     stringOr(result.CallStatus, "completed"),
		RescheduledFor: result.RescheduledFor,
		ObjectiveMet:   result.ObjectiveMet,
	}
	if result.StartedAt != nil {
		call.StartedAt = *result.StartedAt
	}
	if result.UserID != nil && *result.UserID != "" {
		call.UserID = *result.UserID
	}

	if err := r.calls.Create(ctx, call); err != nil {
		return nil, fmt.Errorf("inserting call: %w", err)
	}

	if r.archive != nil {
		if err := r.archive.ArchiveCall(ctx, call, contact.Name); err != nil {
			slog.Warn("call archive mirror failed", "call_id", call.ID, "error", err)
		}
	}

	return &IngestReceipt{
		CallID:      call.ID,
		CampaignID:  result.CampaignID,
		ContactID:   contact.ID,
		ContactName: contact.Name,
		Phone:       contact.Phone,
	}, nil
}

// stringOr returns *s when set and non-empty, else fallback.
func stringOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
