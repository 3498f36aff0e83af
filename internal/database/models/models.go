// Package models defines the database row types shared by the repository
// layer and the API.
package models

import "time"

// Profile represents a platform user account. Every other row is owned by
// exactly one profile.
type Profile struct {
	ID           string
	Email        string
	Name         string
	Company      string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSetting is a key-value setting row scoped to a profile. API keys are
// stored as ("api_key", "cfk_...") rows.
type UserSetting struct {
	ID           string
	UserID       string
	SettingKey   string
	SettingValue string
	CreatedAt    time.Time
}

// Agent describes how an automated call is conducted: voice, prompts, and
// optional knowledge base.
type Agent struct {
	ID              string
	UserID          string
	Name            string
	Voice           string
	Status          string
	Description     *string
	SystemPrompt    *string
	FirstMessage    *string
	KnowledgeBaseID *string
	Company         *string
	AgentType       string // "inbound" | "outbound"
	Conversations   int
	LastActive      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Contact is a callable person record. Phone is the natural join key used by
// call-context resolution after normalization.
type Contact struct {
	ID         string
	UserID     string
	Name       string
	Email      *string
	Phone      *string
	Address    *string
	City       *string
	State      *string
	ZipCode    *string
	Status     string
	LastCalled *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Campaign is a configured calling effort linking contacts, an agent, a
// script, and an optional knowledge base. Settings is a free-form JSON
// object; its "campaign_type" key ("inbound"/"outbound") gates context
// resolution. ContactIDs is the denormalized JSON list captured at creation;
// campaign_contacts rows are the source of truth for membership.
type Campaign struct {
	ID                  string
	UserID              string
	Name                string
	Description         *string
	AgentID             *string
	ScriptID            *string
	KnowledgeBaseID     *string
	Status              string // "draft" | "active" | ...
	ContactIDs          string // JSON array
	Settings            string // JSON object
	ExtractedDataConfig string // JSON array
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CampaignContact ties a contact to a campaign. Row existence is the sole
// evidence of membership.
type CampaignContact struct {
	ID         string
	CampaignID string
	ContactID  string
	CreatedAt  time.Time
}

// Script is an ordered list of conversation sections.
type Script struct {
	ID           string
	UserID       string
	Name         string
	Description  *string
	Company      *string
	FirstMessage *string
	Sections     string // JSON array
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// KnowledgeBase is reference content an agent may draw on during a call.
// Only "published" entries participate in call-context resolution.
type KnowledgeBase struct {
	ID           string
	UserID       string
	Title        string
	Type         string
	Description  *string
	Content      *string
	Tags         string // JSON array
	Status       string // "draft" | "published"
	DateAdded    time.Time
	LastModified time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CustomVoice maps a user-chosen label to a provider voice identifier.
type CustomVoice struct {
	ID        string
	UserID    string
	VoiceName string
	VoiceID   string
	CreatedAt time.Time
}

// Call is an immutable record of a completed call. CampaignID is null for
// calls not tied to a campaign.
type Call struct {
	ID             string
	ContactID      string
	CampaignID     *string
	Phone          string
	Duration       *int
	Status         string
	Direction      string
	RecordingURL   *string
	Transcript     *string
	ExternalCallID *string
	StartedAt      time.Time
	EndedAt        *time.Time
	Notes          *string
	Outcome        *string
	Sentiment      *float64
	UserID         string
	ExtractedData  *string // JSON object, null when nothing was extracted
	CallStatus     string
	RescheduledFor *time.Time
	ObjectiveMet   *bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CallWithContact joins a call row to its contact's name for reporting.
type CallWithContact struct {
	Call
	ContactName string
}
