package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/callforge/callforge/internal/auth"
	"github.com/callforge/callforge/internal/database"
	"github.com/callforge/callforge/internal/database/models"
)

// registerRequest is the JSON request body for account registration.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Company  string `json:"company"`
}

// loginRequest is the JSON request body for login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// profileResponse is the JSON shape of a profile. The password hash is never
// returned.
type profileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toProfileResponse(p *models.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Email:     p.Email,
		Name:      p.Name,
		Company:   p.Company,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

// handleRegister creates a profile and issues its initial API key.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if errMsg := validateEmail("email", req.Email); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if errMsg := validateStringLen("password", req.Password, maxPasswordLen); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateRequiredStringLen("name", req.Name, maxNameLen); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validateStringLen("company", req.Company, maxNameLen); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	existing, err := s.profiles.GetByEmail(r.Context(), req.Email)
	if err != nil {
		slog.Error("register: failed to query profile", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	}

	hash, err := database.HashPassword(req.Password)
	if err != nil {
		slog.Error("register: failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	profile := &models.Profile{
		Email:        req.Email,
		Name:         req.Name,
		Company:      req.Company,
		PasswordHash: hash,
	}
	if err := s.profiles.Create(r.Context(), profile); err != nil {
		slog.Error("register: failed to insert profile", "error", err)
		writeError(w, http.StatusBadRequest, "could not create account")
		return
	}

	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		slog.Error("register: failed to generate api key", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	setting := &models.UserSetting{
		UserID:       profile.ID,
		SettingKey:   "api_key",
		SettingValue: apiKey,
	}
	if err := s.settings.Create(r.Context(), setting); err != nil {
		slog.Error("register: failed to store api key", "error", err, "user_id", profile.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("profile registered", "user_id", profile.ID, "email", profile.Email)

	writeSuccess(w, http.StatusCreated, map[string]any{
		"profile": toProfileResponse(profile),
		"api_key": apiKey,
	})
}

// handleLogin verifies credentials and issues a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	profile, err := s.profiles.GetByEmail(r.Context(), req.Email)
	if err != nil {
		slog.Error("login: failed to query profile", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if profile == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	ok, err := database.CheckPassword(req.Password, profile.PasswordHash)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, expiresAt, err := s.auth.IssueToken(profile.ID, profile.Email)
	if err != nil {
		slog.Error("login: failed to issue token", "error", err, "user_id", profile.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("login", "user_id", profile.ID)

	writeSuccess(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
		"profile":    toProfileResponse(profile),
	})
}
