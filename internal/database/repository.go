package database

import (
	"context"
	"time"

	"github.com/callforge/callforge/internal/database/models"
)

// ProfileRepository manages platform user accounts.
type ProfileRepository interface {
	Create(ctx context.Context, p *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
}

// UserSettingRepository manages per-user key-value settings. API keys are
// stored as setting_key="api_key" rows.
type UserSettingRepository interface {
	Create(ctx context.Context, s *models.UserSetting) error
	FindUserByAPIKey(ctx context.Context, apiKey string) (string, error)
	ListByUser(ctx context.Context, userID string) ([]models.UserSetting, error)
}

// AgentRepository manages conversational agent configurations.
type AgentRepository interface {
	Create(ctx context.Context, a *models.Agent) error
	GetByID(ctx context.Context, id string) (*models.Agent, error)
	ListByUser(ctx context.Context, userID string) ([]models.Agent, error)
	// FindByNumber returns the first agent whose name contains the given
	// number or whose ID equals it.
	FindByNumber(ctx context.Context, number string) (*models.Agent, error)
	Count(ctx context.Context) (int64, error)
}

// ContactRepository manages callable person records.
type ContactRepository interface {
	Create(ctx context.Context, c *models.Contact) error
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	ListByUser(ctx context.Context, userID string) ([]models.Contact, error)
	// FindByPhone returns the first contact whose normalized phone equals
	// the normalized input, or nil when no contact matches.
	FindByPhone(ctx context.Context, phoneNumber string) (*models.Contact, error)
	// UpdateLastCalled stamps last_called and updated_at on a contact.
	UpdateLastCalled(ctx context.Context, id string, lastCalled, updatedAt time.Time) error
	Count(ctx context.Context) (int64, error)
}

// CampaignRepository manages calling campaigns.
type CampaignRepository interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	ListByUser(ctx context.Context, userID string) ([]models.Campaign, error)
	// ListActiveByUser returns a user's campaigns with status "active",
	// oldest first, so inbound resolution picks a stable first match.
	ListActiveByUser(ctx context.Context, userID string) ([]models.Campaign, error)
	Count(ctx context.Context) (int64, error)
}

// CampaignContactRepository manages campaign membership rows.
type CampaignContactRepository interface {
	// AddContacts inserts one membership row per contact ID.
	AddContacts(ctx context.Context, campaignID string, contactIDs []string) error
	Exists(ctx context.Context, campaignID, contactID string) (bool, error)
}

// ScriptRepository manages conversation scripts.
type ScriptRepository interface {
	Create(ctx context.Context, s *models.Script) error
	GetByID(ctx context.Context, id string) (*models.Script, error)
	ListByUser(ctx context.Context, userID string) ([]models.Script, error)
}

// KnowledgeBaseRepository manages knowledge-base entries.
type KnowledgeBaseRepository interface {
	Create(ctx context.Context, kb *models.KnowledgeBase) error
	GetByID(ctx context.Context, id string) (*models.KnowledgeBase, error)
	// GetPublishedByID returns the entry only when its status is
	// "published"; draft entries resolve to nil.
	GetPublishedByID(ctx context.Context, id string) (*models.KnowledgeBase, error)
	ListByUser(ctx context.Context, userID string) ([]models.KnowledgeBase, error)
}

// CustomVoiceRepository manages custom voice mappings.
type CustomVoiceRepository interface {
	Create(ctx context.Context, v *models.CustomVoice) error
	ListByUser(ctx context.Context, userID string) ([]models.CustomVoice, error)
}

// CallRepository manages the append-only call log.
type CallRepository interface {
	Create(ctx context.Context, c *models.Call) error
	GetByID(ctx context.Context, id string) (*models.Call, error)
	// ListExtractedByCampaign returns a campaign's calls that carry
	// extracted data, joined to the contact's name.
	ListExtractedByCampaign(ctx context.Context, campaignID string) ([]models.CallWithContact, error)
	CountByDirection(ctx context.Context) (map[string]int64, error)
}
