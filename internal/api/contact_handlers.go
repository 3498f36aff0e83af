package api

import (
	"log/slog"
	"net/http"
	"time"

	mw "github.com/callforge/callforge/internal/api/middleware"
	"github.com/callforge/callforge/internal/database/models"
)

// contactRequest is the JSON request body for creating a contact.
type contactRequest struct {
	Name    string  `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	ZipCode *string `json:"zip_code"`
	Status  string  `json:"status"`
}

// contactResponse is the JSON shape of a single contact.
type contactResponse struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	Name       string  `json:"name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	ZipCode    *string `json:"zip_code"`
	Status     string  `json:"status"`
	LastCalled *string `json:"last_called"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

func toContactResponse(c *models.Contact) contactResponse {
	resp := contactResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		City:      c.City,
		State:     c.State,
		ZipCode:   c.ZipCode,
		Status:    c.Status,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
	if c.LastCalled != nil {
		formatted := c.LastCalled.Format(time.RFC3339)
		resp.LastCalled = &formatted
	}
	return resp
}

// validateContactRequest checks required fields for contact creation.
func validateContactRequest(req contactRequest) string {
	if errMsg := validateRequiredStringLen("name", req.Name, maxNameLen); errMsg != "" {
		return errMsg
	}
	if req.Email != nil {
		if errMsg := validateEmail("email", *req.Email); errMsg != "" {
			return errMsg
		}
	}
	if req.Phone != nil {
		if errMsg := validateStringLen("phone", *req.Phone, maxPhoneLen); errMsg != "" {
			return errMsg
		}
	}
	return ""
}

// createContact inserts a contact. Shared between the contact endpoint and
// tagged entity creation.
func (s *Server) createContact(r *http.Request, userID string, req contactRequest) (*models.Contact, string) {
	if errMsg := validateContactRequest(req); errMsg != "" {
		return nil, errMsg
	}

	contact := &models.Contact{
		UserID:  userID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		City:    req.City,
		State:   req.State,
		ZipCode: req.ZipCode,
		Status:  "active",
	}
	if req.Status != "" {
		contact.Status = req.Status
	}

	if err := s.contacts.Create(r.Context(), contact); err != nil {
		slog.Error("create contact: failed to insert", "error", err, "user_id", userID)
		return nil, "could not create contact"
	}

	slog.Info("contact created", "contact_id", contact.ID, "user_id", userID)
	return contact, ""
}

// handleCreateContact creates a new contact owned by the authenticated user.
func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	var req contactRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	contact, errMsg := s.createContact(r, userID, req)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	writeEntity(w, http.StatusCreated, "contact", toContactResponse(contact))
}

// handleListContacts returns the authenticated user's contacts, newest first.
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	userID := mw.UserIDFromContext(r.Context())

	contacts, err := s.contacts.ListByUser(r.Context(), userID)
	if err != nil {
		slog.Error("list contacts: failed to query", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]contactResponse, len(contacts))
	for i := range contacts {
		items[i] = toContactResponse(&contacts[i])
	}
	writeEntity(w, http.StatusOK, "contacts", items)
}
