package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/callforge/callforge/internal/config"
	"github.com/callforge/callforge/internal/database"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{HTTPPort: 8080, LogLevel: "error", LogFormat: "text"}
	s := NewServer(db, cfg, testSecret, nil)
	t.Cleanup(s.Close)
	return s
}

// doJSON performs a request against the server and decodes the JSON body.
func doJSON(t *testing.T, s *Server, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)

	decoded := map[string]any{}
	if rr.Body.Len() > 0 && strings.Contains(rr.Header().Get("Content-Type"), "json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decoding %s %s response: %v\nbody: %s", method, path, err, rr.Body.String())
		}
	}
	return rr.Code, decoded
}

// registerUser registers an account and returns its API key.
func registerUser(t *testing.T, s *Server, email string) string {
	t.Helper()

	status, body := doJSON(t, s, http.MethodPost, "/auth/register", "", map[string]any{
		"email":    email,
		"password": "correct horse battery",
		"name":     "Test User",
		"company":  "Acme",
	})
	if status != http.StatusCreated {
		t.Fatalf("register returned %d: %v", status, body)
	}
	apiKey, _ := body["api_key"].(string)
	if apiKey == "" {
		t.Fatal("register returned no api key")
	}
	return apiKey
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	status, body := doJSON(t, s, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	apiKey := registerUser(t, s, "ada@example.com")
	if !strings.HasPrefix(apiKey, "cfk_") {
		t.Errorf("api key %q missing cfk_ prefix", apiKey)
	}

	// Duplicate registration is rejected.
	status, _ := doJSON(t, s, http.MethodPost, "/auth/register", "", map[string]any{
		"email":    "ada@example.com",
		"password": "correct horse battery",
		"name":     "Again",
	})
	if status != http.StatusBadRequest {
		t.Errorf("duplicate register returned %d, want 400", status)
	}

	status, body := doJSON(t, s, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "ada@example.com",
		"password": "correct horse battery",
	})
	if status != http.StatusOK {
		t.Fatalf("login returned %d: %v", status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}

	// The session token authenticates API calls.
	status, _ = doJSON(t, s, http.MethodGet, "/agents/list", token, nil)
	if status != http.StatusOK {
		t.Errorf("agents/list with session token returned %d", status)
	}

	// So does the API key.
	status, _ = doJSON(t, s, http.MethodGet, "/agents/list", apiKey, nil)
	if status != http.StatusOK {
		t.Errorf("agents/list with api key returned %d", status)
	}

	// Wrong password is rejected.
	status, _ = doJSON(t, s, http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "ada@example.com",
		"password": "wrong",
	})
	if status != http.StatusUnauthorized {
		t.Errorf("bad login returned %d, want 401", status)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/agents/list"},
		{http.MethodPost, "/agents/create"},
		{http.MethodGet, "/contacts/list"},
		{http.MethodGet, "/campaigns/list"},
		{http.MethodGet, "/scripts/list"},
		{http.MethodGet, "/knowledge-base/list"},
		{http.MethodGet, "/voices/list"},
		{http.MethodPost, "/entities/create-entity"},
	}
	for _, ep := range protected {
		status, body := doJSON(t, s, ep.method, ep.path, "", nil)
		if status != http.StatusUnauthorized {
			t.Errorf("%s %s without auth returned %d, want 401", ep.method, ep.path, status)
		}
		if body["success"] != false {
			t.Errorf("%s %s: success = %v, want false", ep.method, ep.path, body["success"])
		}
	}

	// Garbage credentials are also rejected.
	status, _ := doJSON(t, s, http.MethodGet, "/agents/list", "nonsense", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("garbage token returned %d, want 401", status)
	}
}

func TestCreateAndListAgents(t *testing.T) {
	s := newTestServer(t)
	key := registerUser(t, s, "ada@example.com")

	status, body := doJSON(t, s, http.MethodPost, "/agents/create", key, map[string]any{
		"name":          "Receptionist",
		"voice":         "alloy",
		"system_prompt": "You answer calls.",
	})
	if status != http.StatusCreated {
		t.Fatalf("create agent returned %d: %v", status, body)
	}
	agent := body["agent"].(map[string]any)
	if agent["voice"] != "alloy" {
		t.Errorf("voice = %v, want alloy", agent["voice"])
	}
	if agent["agent_type"] != "outbound" {
		t.Errorf("agent_type = %v, want default outbound", agent["agent_type"])
	}

	// Defaults applied when fields are omitted.
	status, body = doJSON(t, s, http.MethodPost, "/agents/create", key, map[string]any{"name": "Minimal"})
	if status != http.StatusCreated {
		t.Fatalf("create minimal agent returned %d: %v", status, body)
	}
	minimal := body["agent"].(map[string]any)
	if minimal["voice"] != "nova" || minimal["status"] != "inactive" {
		t.Errorf("defaults not applied: voice=%v status=%v", minimal["voice"], minimal["status"])
	}

	// Missing name is a validation failure.
	status, _ = doJSON(t, s, http.MethodPost, "/agents/create", key, map[string]any{"voice": "nova"})
	if status != http.StatusBadRequest {
		t.Errorf("nameless agent returned %d, want 400", status)
	}

	status, body = doJSON(t, s, http.MethodGet, "/agents/list", key, nil)
	if status != http.StatusOK {
		t.Fatalf("list agents returned %d", status)
	}
	agents := body["agents"].([]any)
	if len(agents) != 2 {
		t.Errorf("listed %d agents, want 2", len(agents))
	}

	// Another user sees none of them.
	otherKey := registerUser(t, s, "bob@example.com")
	_, body = doJSON(t, s, http.MethodGet, "/agents/list", otherKey, nil)
	if got := len(body["agents"].([]any)); got != 0 {
		t.Errorf("other user sees %d agents, want 0", got)
	}
}

func TestAgentByNumber(t *testing.T) {
	s := newTestServer(t)
	key := registerUser(t, s, "ada@example.com")

	_, body := doJSON(t, s, http.MethodPost, "/agents/create", key, map[string]any{"name": "Line 5551234"})
	created := body["agent"].(map[string]any)

	// Public endpoint, no auth header.
	status, body := doJSON(t, s, http.MethodGet, "/agents/by-number?number=5551234", "", nil)
	if status != http.StatusOK {
		t.Fatalf("by-number returned %d: %v", status, body)
	}
	if got := body["agent"].(map[string]any)["id"]; got != created["id"] {
		t.Errorf("matched agent %v, want %v", got, created["id"])
	}

	status, _ = doJSON(t, s, http.MethodGet, "/agents/by-number?number=0000000", "", nil)
	if status != http.StatusNotFound {
		t.Errorf("unknown number returned %d, want 404", status)
	}

	status, _ = doJSON(t, s, http.MethodGet, "/agents/by-number", "", nil)
	if status != http.StatusBadRequest {
		t.Errorf("missing number returned %d, want 400", status)
	}
}

func TestCreateCampaignLinksContacts(t *testing.T) {
	s := newTestServer(t)
	key := registerUser(t, s, "ada@example.com")

	_, body := doJSON(t, s, http.MethodPost, "/contacts/create", key, map[string]any{
		"name":  "Ada",
		"phone": "+1 (555) 000-1111",
	})
	contact := body["contact"].(map[string]any)
	contactID := contact["id"].(string)

	status, body := doJSON(t, s, http.MethodPost, "/campaigns/create", key, map[string]any{
		"name":        "Outreach",
		"contact_ids": []string{contactID},
		"settings":    map[string]any{"campaign_type": "outbound"},
	})
	if status != http.StatusCreated {
		t.Fatalf("create campaign returned %d: %v", status, body)
	}
	campaign := body["campaign"].(map[string]any)
	campaignID := campaign["id"].(string)

	ids := campaign["contact_ids"].([]any)
	if len(ids) != 1 || ids[0] != contactID {
		t.Errorf("contact_ids = %v, want [%s]", ids, contactID)
	}

	linked, err := s.links.Exists(context.Background(), campaignID, contactID)
	if err != nil {
		t.Fatalf("checking link: %v", err)
	}
	if !linked {
		t.Error("campaign_contacts join row missing")
	}
}

func TestCreateEntityDispatch(t *testing.T) {
	s := newTestServer(t)
	key := registerUser(t, s, "ada@example.com")

	status, body := doJSON(t, s, http.MethodPost, "/entities/create-entity", key, map[string]any{
		"entityType": "agent",
		"data":       map[string]any{"name": "Dispatched"},
	})
	if status != http.StatusCreated {
		t.Fatalf("create-entity agent returned %d: %v", status, body)
	}
	if body["agent"] == nil {
		t.Error("agent missing from response")
	}

	status, _ = doJSON(t, s, http.MethodPost, "/entities/create-entity", key, map[string]any{
		"entityType": "contact",
		"data":       map[string]any{"name": "Ada", "phone": "555-1111"},
	})
	if status != http.StatusCreated {
		t.Errorf("create-entity contact returned %d", status)
	}

	status, _ = doJSON(t, s, http.MethodPost, "/entities/create-entity", key, map[string]any{
		"entityType": "knowledge_base",
		"data":       map[string]any{"title": "FAQ"},
	})
	if status != http.StatusCreated {
		t.Errorf("create-entity knowledge_base returned %d", status)
	}

	status, _ = doJSON(t, s, http.MethodPost, "/entities/create-entity", key, map[string]any{
		"entityType": "campaign",
		"data":       map[string]any{"name": "Via dispatch"},
	})
	if status != http.StatusCreated {
		t.Errorf("create-entity campaign returned %d", status)
	}

	// Unknown tag: 400 and nothing inserted.
	status, _ = doJSON(t, s, http.MethodPost, "/entities/create-entity", key, map[string]any{
		"entityType": "script",
		"data":       map[string]any{"name": "nope"},
	})
	if status != http.StatusBadRequest {
		t.Errorf("unknown entity type returned %d, want 400", status)
	}

	_, body = doJSON(t, s, http.MethodGet, "/agents/list", key, nil)
	if got := len(body["agents"].([]any)); got != 1 {
		t.Errorf("agent count after dispatches = %d, want 1", got)
	}
}

func TestCallerDetailsEndToEnd(t *testing.T) {
	s := newTestServer(t)
	key := registerUser(t, s, "ada@example.com")

	_, body := doJSON(t, s, http.MethodPost, "/contacts/create", key, map[string]any{
		"name":  "Ada",
		"phone": "555-111-2222",
	})
	_ = body

	_, body = doJSON(t, s, http.MethodPost, "/agents/create", key, map[string]any{"name": "Receptionist"})
	agentID := body["agent"].(map[string]any)["id"].(string)

	_, body = doJSON(t, s, http.MethodPost, "/knowledge-base/create", key, map[string]any{
		"title":  "FAQ",
		"status": "published",
	})
	kbID := body["knowledge_base"].(map[string]any)["id"].(string)

	status, body := doJSON(t, s, http.MethodPost, "/campaigns/create", key, map[string]any{
		"name":              "Front desk",
		"status":            "active",
		"agent_id":          agentID,
		"knowledge_base_id": kbID,
		"settings":          map[string]any{"campaign_type": "inbound"},
	})
	if status != http.StatusCreated {
		t.Fatalf("create campaign returned %d: %v", status, body)
	}

	status, body = doJSON(t, s, http.MethodGet, "/call-details/caller-details?phone=5551112222", "", nil)
	if status != http.StatusOK {
		t.Fatalf("caller-details returned %d: %v", status, body)
	}
	callCtx := body["context"].(map[string]any)
	if callCtx["agent"].(map[string]any)["id"] != agentID {
		t.Errorf("resolved wrong agent")
	}
	kbs := callCtx["knowledge_bases"].([]any)
	if len(kbs) != 1 || kbs[0].(map[string]any)["id"] != kbID {
		t.Errorf("knowledge_bases = %v, want [%s]", kbs, kbID)
	}
	if callCtx["user"].(map[string]any)["email"] != "ada@example.com" {
		t.Errorf("profile not resolved")
	}

	status, body = doJSON(t, s, http.MethodGet, "/call-details/caller-details?phone=9999999999", "", nil)
	if status != http.StatusNotFound {
		t.Errorf("unknown caller returned %d, want 404: %v", status, body)
	}
}

func TestOutboundCallDetailsEndToEnd(t *testing.T) {
	s := newTestServer(t)
	key := registerUser(t, s, "ada@example.com")

	_, body := doJSON(t, s, http.MethodPost, "/contacts/create", key, map[string]any{
		"name":  "Ada",
		"phone": "5551112222",
	})
	contactID := body["contact"].(map[string]any)["id"].(string)

	_, body = doJSON(t, s, http.MethodPost, "/agents/create", key, map[string]any{"name": "Closer"})
	agentID := body["agent"].(map[string]any)["id"].(string)

	_, body = doJSON(t, s, http.MethodPost, "/campaigns/create", key, map[string]any{
		"name":        "Outreach",
		"status":      "active",
		"agent_id":    agentID,
		"contact_ids": []string{contactID},
	})
	campaignID := body["campaign"].(map[string]any)["id"].(string)

	status, body := doJSON(t, s, http.MethodGet,
		"/call-details/outbound-call-details?campaign_id="+campaignID+"&phone=555-111-2222", "", nil)
	if status != http.StatusOK {
		t.Fatalf("outbound-call-details returned %d: %v", status, body)
	}
	callCtx := body["context"].(map[string]any)
	if callCtx["agent"].(map[string]any)["id"] != agentID {
		t.Errorf("resolved wrong agent")
	}
	if body["contact_user"].(map[string]any)["email"] != "ada@example.com" {
		t.Errorf("contact_user not present")
	}

	// A contact outside the campaign is a 404.
	doJSON(t, s, http.MethodPost, "/contacts/create", key, map[string]any{
		"name":  "Stranger",
		"phone": "5553334444",
	})
	status, _ = doJSON(t, s, http.MethodGet,
		"/call-details/outbound-call-details?campaign_id="+campaignID+"&phone=5553334444", "", nil)
	if status != http.StatusNotFound {
		t.Errorf("unlinked contact returned %d, want 404", status)
	}
}

func TestReceiveCallData(t *testing.T) {
	s := newTestServer(t)
	key := registerUser(t, s, "ada@example.com")

	_, body := doJSON(t, s, http.MethodPost, "/contacts/create", key, map[string]any{
		"name":  "Ada",
		"phone": "5551112222",
	})
	contactID := body["contact"].(map[string]any)["id"].(string)

	status, body := doJSON(t, s, http.MethodPost, "/call-data/receive-call-data", "", map[string]any{
		"phone":          "(555) 111-2222",
		"duration":       120,
		"status":         "answered",
		"ended_at":       "2024-01-01T00:00:00Z",
		"extracted_data": map[string]any{"budget": "10k"},
	})
	if status != http.StatusCreated {
		t.Fatalf("receive-call-data returned %d: %v", status, body)
	}
	if body["call_id"] == "" || body["call_id"] == nil {
		t.Error("no call_id in receipt")
	}
	if body["contact"].(map[string]any)["id"] != contactID {
		t.Errorf("receipt contact mismatch")
	}

	// last_called picked up ended_at.
	_, body = doJSON(t, s, http.MethodGet, "/contacts/list", key, nil)
	listed := body["contacts"].([]any)[0].(map[string]any)
	if listed["last_called"] != "2024-01-01T00:00:00Z" {
		t.Errorf("last_called = %v, want 2024-01-01T00:00:00Z", listed["last_called"])
	}

	// Unknown contact: 404.
	status, _ = doJSON(t, s, http.MethodPost, "/call-data/receive-call-data", "", map[string]any{
		"phone": "9998887777",
	})
	if status != http.StatusNotFound {
		t.Errorf("unknown contact returned %d, want 404", status)
	}

	// Malformed timestamp: 400.
	status, _ = doJSON(t, s, http.MethodPost, "/call-data/receive-call-data", "", map[string]any{
		"phone":    "5551112222",
		"ended_at": "yesterday",
	})
	if status != http.StatusBadRequest {
		t.Errorf("bad timestamp returned %d, want 400", status)
	}
}

func TestCampaignExtractedData(t *testing.T) {
	s := newTestServer(t)
	key := registerUser(t, s, "ada@example.com")

	_, body := doJSON(t, s, http.MethodPost, "/contacts/create", key, map[string]any{
		"name":  "Ada",
		"phone": "5551112222",
	})
	contactID := body["contact"].(map[string]any)["id"].(string)

	_, body = doJSON(t, s, http.MethodPost, "/campaigns/create", key, map[string]any{
		"name":                  "Survey",
		"contact_ids":           []string{contactID},
		"extracted_data_config": []map[string]any{{"field": "budget"}},
	})
	campaignID := body["campaign"].(map[string]any)["id"].(string)

	// One call with extracted data, one without.
	doJSON(t, s, http.MethodPost, "/call-data/receive-call-data", "", map[string]any{
		"phone":          "5551112222",
		"campaign_id":    campaignID,
		"extracted_data": map[string]any{"budget": "10k"},
	})
	doJSON(t, s, http.MethodPost, "/call-data/receive-call-data", "", map[string]any{
		"phone":       "5551112222",
		"campaign_id": campaignID,
	})

	status, body := doJSON(t, s, http.MethodGet, "/campaigns/extracted-data/"+campaignID, "", nil)
	if status != http.StatusOK {
		t.Fatalf("extracted-data returned %d: %v", status, body)
	}
	calls := body["calls"].([]any)
	if len(calls) != 1 {
		t.Fatalf("extracted calls = %d, want 1", len(calls))
	}
	call := calls[0].(map[string]any)
	if call["contact_name"] != "Ada" {
		t.Errorf("contact_name = %v, want Ada", call["contact_name"])
	}
	if call["extracted_data"].(map[string]any)["budget"] != "10k" {
		t.Errorf("extracted_data not round-tripped: %v", call["extracted_data"])
	}
	if body["total_calls"].(float64) != 1 {
		t.Errorf("total_calls = %v, want 1", body["total_calls"])
	}
	if body["fields_configured"].(float64) != 1 {
		t.Errorf("fields_configured = %v, want 1", body["fields_configured"])
	}

	status, _ = doJSON(t, s, http.MethodGet, "/campaigns/extracted-data/nope", "", nil)
	if status != http.StatusNotFound {
		t.Errorf("unknown campaign returned %d, want 404", status)
	}
}

func TestScriptsAndAlias(t *testing.T) {
	s := newTestServer(t)
	key := registerUser(t, s, "ada@example.com")

	status, body := doJSON(t, s, http.MethodPost, "/scripts/create", key, map[string]any{
		"name":     "Greeting",
		"sections": []map[string]any{{"title": "Opening", "content": "Hello"}},
	})
	if status != http.StatusCreated {
		t.Fatalf("create script returned %d: %v", status, body)
	}

	for _, path := range []string{"/scripts/list", "/scripts/user-scripts"} {
		status, body := doJSON(t, s, http.MethodGet, path, key, nil)
		if status != http.StatusOK {
			t.Fatalf("%s returned %d", path, status)
		}
		if got := len(body["scripts"].([]any)); got != 1 {
			t.Errorf("%s listed %d scripts, want 1", path, got)
		}
	}
}

func TestVoices(t *testing.T) {
	s := newTestServer(t)
	key := registerUser(t, s, "ada@example.com")

	status, body := doJSON(t, s, http.MethodPost, "/voices/create", key, map[string]any{
		"voice_name": "Warm narrator",
		"voice_id":   "prov-123",
	})
	if status != http.StatusCreated {
		t.Fatalf("create voice returned %d: %v", status, body)
	}

	// voice_id is required.
	status, _ = doJSON(t, s, http.MethodPost, "/voices/create", key, map[string]any{
		"voice_name": "No id",
	})
	if status != http.StatusBadRequest {
		t.Errorf("voice without id returned %d, want 400", status)
	}

	_, body = doJSON(t, s, http.MethodGet, "/voices/list", key, nil)
	if got := len(body["voices"].([]any)); got != 1 {
		t.Errorf("listed %d voices, want 1", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics returned %d", rr.Code)
	}
	for _, metric := range []string{"callforge_uptime_seconds", "callforge_agents", "callforge_calls_total"} {
		if !strings.Contains(rr.Body.String(), metric) {
			t.Errorf("metrics output missing %s", metric)
		}
	}
}
