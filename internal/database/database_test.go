package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/callforge/callforge/internal/database/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

// createTestProfile inserts a profile and returns its ID.
func createTestProfile(t *testing.T, db *DB, email string) string {
	t.Helper()
	p := &models.Profile{Email: email, Name: "Test User", PasswordHash: "x"}
	if err := NewProfileRepository(db).Create(context.Background(), p); err != nil {
		t.Fatalf("creating profile: %v", err)
	}
	return p.ID
}

func TestOpenAndMigrate(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	dbPath := filepath.Join(dir, "callforge.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	tables := []string{
		"schema_migrations", "profiles", "user_settings", "agents",
		"contacts", "campaigns", "campaign_contacts", "scripts",
		"knowledge_base", "custom_voices", "calls",
	}
	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Errorf("checking table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s not found", table)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	db1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open() error: %v", err)
	}
	db1.Close()

	db2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	db2.Close()
}

func TestProfileRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewProfileRepository(db)

	p := &models.Profile{Email: "owner@example.com", Name: "Owner", Company: "Acme", PasswordHash: "h"}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if p.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}

	got, err := repo.GetByEmail(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error: %v", err)
	}
	if got == nil || got.ID != p.ID {
		t.Fatalf("GetByEmail() = %+v, want ID %s", got, p.ID)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if missing != nil {
		t.Fatalf("GetByID(nope) = %+v, want nil", missing)
	}
}

func TestUserSettingAPIKeyLookup(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := createTestProfile(t, db, "keys@example.com")
	repo := NewUserSettingRepository(db)

	err := repo.Create(ctx, &models.UserSetting{
		UserID:       userID,
		SettingKey:   "api_key",
		SettingValue: "cfk_test123",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := repo.FindUserByAPIKey(ctx, "cfk_test123")
	if err != nil {
		t.Fatalf("FindUserByAPIKey() error: %v", err)
	}
	if got != userID {
		t.Errorf("FindUserByAPIKey() = %q, want %q", got, userID)
	}

	none, err := repo.FindUserByAPIKey(ctx, "cfk_wrong")
	if err != nil {
		t.Fatalf("FindUserByAPIKey(miss) error: %v", err)
	}
	if none != "" {
		t.Errorf("FindUserByAPIKey(miss) = %q, want empty", none)
	}
}

func TestContactFindByPhone(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := createTestProfile(t, db, "contacts@example.com")
	repo := NewContactRepository(db)

	first := &models.Contact{UserID: userID, Name: "Alice", Phone: strPtr("555-111-2222"), Status: "active"}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("creating first contact: %v", err)
	}
	other := &models.Contact{UserID: userID, Name: "Bob", Phone: strPtr("(555) 333-4444"), Status: "active"}
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("creating second contact: %v", err)
	}

	tests := []struct {
		name   string
		phone  string
		wantID string
	}{
		{"exact stored format", "555-111-2222", first.ID},
		{"bare digits", "5551112222", first.ID},
		{"other contact with dots", "555.333.4444", other.ID},
		{"no match", "5559999999", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindByPhone(ctx, tt.phone)
			if err != nil {
				t.Fatalf("FindByPhone() error: %v", err)
			}
			if tt.wantID == "" {
				if got != nil {
					t.Fatalf("FindByPhone() = %+v, want nil", got)
				}
				return
			}
			if got == nil || got.ID != tt.wantID {
				t.Fatalf("FindByPhone() = %+v, want ID %s", got, tt.wantID)
			}
		})
	}
}

func TestContactFindByPhoneFirstMatchWins(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := createTestProfile(t, db, "dupes@example.com")
	repo := NewContactRepository(db)

	// Two contacts normalizing to the same number; the older row wins.
	older := &models.Contact{UserID: userID, Name: "Older", Phone: strPtr("555-777-8888"), Status: "active"}
	if err := repo.Create(ctx, older); err != nil {
		t.Fatalf("creating older contact: %v", err)
	}
	newer := &models.Contact{UserID: userID, Name: "Newer", Phone: strPtr("(555) 777.8888"), Status: "active"}
	if err := repo.Create(ctx, newer); err != nil {
		t.Fatalf("creating newer contact: %v", err)
	}

	got, err := repo.FindByPhone(ctx, "5557778888")
	if err != nil {
		t.Fatalf("FindByPhone() error: %v", err)
	}
	if got == nil || got.ID != older.ID {
		t.Fatalf("FindByPhone() matched %+v, want the older contact %s", got, older.ID)
	}
}

func TestContactUpdateLastCalled(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := createTestProfile(t, db, "called@example.com")
	repo := NewContactRepository(db)

	c := &models.Contact{UserID: userID, Name: "Callee", Phone: strPtr("5550001111"), Status: "active"}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("creating contact: %v", err)
	}

	called := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.UpdateLastCalled(ctx, c.ID, called, time.Now().UTC()); err != nil {
		t.Fatalf("UpdateLastCalled() error: %v", err)
	}

	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.LastCalled == nil || !got.LastCalled.Equal(called) {
		t.Errorf("LastCalled = %v, want %v", got.LastCalled, called)
	}
}

func TestCampaignRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := createTestProfile(t, db, "campaigns@example.com")
	repo := NewCampaignRepository(db)

	draft := &models.Campaign{UserID: userID, Name: "Draft", Status: "draft"}
	if err := repo.Create(ctx, draft); err != nil {
		t.Fatalf("creating draft campaign: %v", err)
	}
	active := &models.Campaign{
		UserID:   userID,
		Name:     "Active Inbound",
		Status:   "active",
		Settings: `{"campaign_type":"inbound"}`,
	}
	if err := repo.Create(ctx, active); err != nil {
		t.Fatalf("creating active campaign: %v", err)
	}

	actives, err := repo.ListActiveByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListActiveByUser() error: %v", err)
	}
	if len(actives) != 1 || actives[0].ID != active.ID {
		t.Fatalf("ListActiveByUser() = %+v, want only %s", actives, active.ID)
	}

	all, err := repo.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListByUser() error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListByUser() returned %d campaigns, want 2", len(all))
	}

	got, err := repo.GetByID(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.ContactIDs != "[]" || got.Settings != "{}" {
		t.Errorf("JSON defaults not applied: contact_ids=%q settings=%q", got.ContactIDs, got.Settings)
	}
}

func TestCampaignContactMembership(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := createTestProfile(t, db, "membership@example.com")

	campaigns := NewCampaignRepository(db)
	contacts := NewContactRepository(db)
	links := NewCampaignContactRepository(db)

	camp := &models.Campaign{UserID: userID, Name: "Outreach", Status: "active"}
	if err := campaigns.Create(ctx, camp); err != nil {
		t.Fatalf("creating campaign: %v", err)
	}
	in := &models.Contact{UserID: userID, Name: "Member", Phone: strPtr("5551230001"), Status: "active"}
	out := &models.Contact{UserID: userID, Name: "Outsider", Phone: strPtr("5551230002"), Status: "active"}
	for _, c := range []*models.Contact{in, out} {
		if err := contacts.Create(ctx, c); err != nil {
			t.Fatalf("creating contact: %v", err)
		}
	}

	if err := links.AddContacts(ctx, camp.ID, []string{in.ID}); err != nil {
		t.Fatalf("AddContacts() error: %v", err)
	}

	ok, err := links.Exists(ctx, camp.ID, in.ID)
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if !ok {
		t.Error("Exists() = false for linked contact, want true")
	}

	ok, err = links.Exists(ctx, camp.ID, out.ID)
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if ok {
		t.Error("Exists() = true for unlinked contact, want false")
	}
}

func TestKnowledgeBasePublishedGate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := createTestProfile(t, db, "kb@example.com")
	repo := NewKnowledgeBaseRepository(db)

	draft := &models.KnowledgeBase{UserID: userID, Title: "Draft FAQ", Type: "document", Status: "draft"}
	published := &models.KnowledgeBase{UserID: userID, Title: "Live FAQ", Type: "document", Status: "published"}
	for _, kb := range []*models.KnowledgeBase{draft, published} {
		if err := repo.Create(ctx, kb); err != nil {
			t.Fatalf("creating knowledge base entry: %v", err)
		}
	}

	got, err := repo.GetPublishedByID(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetPublishedByID(draft) error: %v", err)
	}
	if got != nil {
		t.Errorf("GetPublishedByID(draft) = %+v, want nil", got)
	}

	got, err = repo.GetPublishedByID(ctx, published.ID)
	if err != nil {
		t.Fatalf("GetPublishedByID(published) error: %v", err)
	}
	if got == nil || got.ID != published.ID {
		t.Errorf("GetPublishedByID(published) = %+v, want %s", got, published.ID)
	}
}

func TestAgentFindByNumber(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := createTestProfile(t, db, "agents@example.com")
	repo := NewAgentRepository(db)

	a := &models.Agent{UserID: userID, Name: "Line 4155550100", Voice: "nova", Status: "active", AgentType: "inbound"}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("creating agent: %v", err)
	}

	byName, err := repo.FindByNumber(ctx, "4155550100")
	if err != nil {
		t.Fatalf("FindByNumber(name) error: %v", err)
	}
	if byName == nil || byName.ID != a.ID {
		t.Fatalf("FindByNumber(name) = %+v, want %s", byName, a.ID)
	}

	byID, err := repo.FindByNumber(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindByNumber(id) error: %v", err)
	}
	if byID == nil || byID.ID != a.ID {
		t.Fatalf("FindByNumber(id) = %+v, want %s", byID, a.ID)
	}

	missing, err := repo.FindByNumber(ctx, "0000000000")
	if err != nil {
		t.Fatalf("FindByNumber(miss) error: %v", err)
	}
	if missing != nil {
		t.Fatalf("FindByNumber(miss) = %+v, want nil", missing)
	}
}

func TestCallRepository(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := createTestProfile(t, db, "calls@example.com")

	contacts := NewContactRepository(db)
	campaigns := NewCampaignRepository(db)
	calls := NewCallRepository(db)

	contact := &models.Contact{UserID: userID, Name: "Dana", Phone: strPtr("5554440000"), Status: "active"}
	if err := contacts.Create(ctx, contact); err != nil {
		t.Fatalf("creating contact: %v", err)
	}
	camp := &models.Campaign{UserID: userID, Name: "Q1 Outreach", Status: "active"}
	if err := campaigns.Create(ctx, camp); err != nil {
		t.Fatalf("creating campaign: %v", err)
	}

	withData := &models.Call{
		ContactID:     contact.ID,
		CampaignID:    &camp.ID,
		Phone:         "5554440000",
		Status:        "answered",
		Direction:     "outbound",
		StartedAt:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UserID:        userID,
		ExtractedData: strPtr(`{"budget":"10k"}`),
		CallStatus:    "completed",
	}
	withoutData := &models.Call{
		ContactID:  contact.ID,
		CampaignID: &camp.ID,
		Phone:      "5554440000",
		Status:     "no_answer",
		Direction:  "outbound",
		StartedAt:  time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
		UserID:     userID,
		CallStatus: "completed",
	}
	for _, c := range []*models.Call{withData, withoutData} {
		if err := calls.Create(ctx, c); err != nil {
			t.Fatalf("creating call: %v", err)
		}
	}

	extracted, err := calls.ListExtractedByCampaign(ctx, camp.ID)
	if err != nil {
		t.Fatalf("ListExtractedByCampaign() error: %v", err)
	}
	if len(extracted) != 1 {
		t.Fatalf("ListExtractedByCampaign() returned %d calls, want 1", len(extracted))
	}
	if extracted[0].ID != withData.ID || extracted[0].ContactName != "Dana" {
		t.Errorf("ListExtractedByCampaign()[0] = id %s contact %q, want id %s contact Dana",
			extracted[0].ID, extracted[0].ContactName, withData.ID)
	}

	counts, err := calls.CountByDirection(ctx)
	if err != nil {
		t.Fatalf("CountByDirection() error: %v", err)
	}
	if counts["outbound"] != 2 {
		t.Errorf("CountByDirection()[outbound] = %d, want 2", counts["outbound"])
	}
}
