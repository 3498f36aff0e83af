// Package api exposes the CallForge HTTP surface: entity CRUD, auth, call
// context resolution, and call-data ingestion.
package api

import (
	"log/slog"
	"net/http"
	"time"

	mw "github.com/callforge/callforge/internal/api/middleware"
	"github.com/callforge/callforge/internal/auth"
	"github.com/callforge/callforge/internal/callcontext"
	"github.com/callforge/callforge/internal/config"
	"github.com/callforge/callforge/internal/database"
	"github.com/callforge/callforge/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router *chi.Mux
	cfg    *config.Config

	profiles  database.ProfileRepository
	settings  database.UserSettingRepository
	agents    database.AgentRepository
	contacts  database.ContactRepository
	campaigns database.CampaignRepository
	links     database.CampaignContactRepository
	scripts   database.ScriptRepository
	knowledge database.KnowledgeBaseRepository
	voices    database.CustomVoiceRepository
	calls     database.CallRepository

	auth     *auth.Resolver
	resolver *callcontext.Resolver

	apiLimiter  *mw.IPRateLimiter
	authLimiter *mw.IPRateLimiter
}

// NewServer creates the HTTP handler with all routes mounted. archive may be
// nil when no call archive mirror is configured.
func NewServer(db *database.DB, cfg *config.Config, jwtSecret []byte, archive callcontext.CallArchiver) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,

		profiles:  database.NewProfileRepository(db),
		settings:  database.NewUserSettingRepository(db),
		agents:    database.NewAgentRepository(db),
		contacts:  database.NewContactRepository(db),
		campaigns: database.NewCampaignRepository(db),
		links:     database.NewCampaignContactRepository(db),
		scripts:   database.NewScriptRepository(db),
		knowledge: database.NewKnowledgeBaseRepository(db),
		voices:    database.NewCustomVoiceRepository(db),
		calls:     database.NewCallRepository(db),

		apiLimiter:  mw.NewIPRateLimiter(mw.DefaultRateLimitConfig()),
		authLimiter: mw.NewIPRateLimiter(mw.AuthRateLimitConfig()),
	}

	s.auth = auth.NewResolver(jwtSecret, s.settings)
	s.resolver = callcontext.NewResolver(
		s.contacts, s.campaigns, s.links, s.agents, s.scripts,
		s.profiles, s.knowledge, s.calls, archive,
	)

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops the background rate limiter cleanup goroutines.
func (s *Server) Close() {
	s.apiLimiter.Stop()
	s.authLimiter.Stop()
}

// routes configures all middleware and mounts all route groups.
func (s *Server) routes() {
	r := s.router

	// Global middleware stack.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.StructuredLogger)
	r.Use(mw.Recoverer)
	r.Use(mw.SecurityHeaders())
	r.Use(mw.CORS(mw.ParseCORSOrigins(s.cfg.CORSOrigins)))
	r.Use(mw.RateLimit(s.apiLimiter))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metricsHandler())

	// Auth endpoints: public, stricter rate limit.
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit(s.authLimiter))
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
	})

	// Public call-infrastructure endpoints.
	r.Get("/agents/by-number", s.handleAgentByNumber)
	r.Get("/campaigns/extracted-data/{campaignID}", s.handleCampaignExtractedData)
	r.Get("/call-details/caller-details", s.handleCallerDetails)
	r.Get("/call-details/outbound-call-details", s.handleOutboundCallDetails)
	r.Post("/call-data/receive-call-data", s.handleReceiveCallData)

	// Authenticated entity endpoints.
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth(s.auth))

		r.Post("/agents/create", s.handleCreateAgent)
		r.Get("/agents/list", s.handleListAgents)

		r.Post("/campaigns/create", s.handleCreateCampaign)
		r.Get("/campaigns/list", s.handleListCampaigns)

		r.Post("/contacts/create", s.handleCreateContact)
		r.Get("/contacts/list", s.handleListContacts)

		r.Post("/scripts/create", s.handleCreateScript)
		r.Get("/scripts/list", s.handleListScripts)
		r.Get("/scripts/user-scripts", s.handleListScripts)

		r.Post("/knowledge-base/create", s.handleCreateKnowledgeBase)
		r.Get("/knowledge-base/list", s.handleListKnowledgeBase)

		r.Post("/voices/create", s.handleCreateVoice)
		r.Get("/voices/list", s.handleListVoices)

		r.Post("/entities/create-entity", s.handleCreateEntity)
	})

	slog.Info("api routes mounted")
}

// metricsHandler serves the CallForge collector from a private registry so
// scrape-time repository queries stay isolated from any default registry.
func (s *Server) metricsHandler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(s.agents, s.contacts, s.campaigns, s.calls, time.Now()))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// handleHealth returns basic health status. Unauthenticated.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{"status": "ok"})
}
