package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/callforge/callforge/internal/callcontext"
)

// callDataRequest is the payload pushed by the calling infrastructure after
// a call completes. Only phone is required; timestamps are RFC 3339.
type callDataRequest struct {
	Phone          string          `json:"phone"`
	Duration       *int            `json:"duration"`
	Status         *string         `json:"status"`
	Direction      *string         `json:"direction"`
	RecordingURL   *string         `json:"recording_url"`
	Transcript     *string         `json:"transcript"`
	CallID         *string         `json:"call_id"`
	StartedAt      *string         `json:"started_at"`
	EndedAt        *string         `json:"ended_at"`
	Notes          *string         `json:"notes"`
	CampaignID     *string         `json:"campaign_id"`
	Outcome        *string         `json:"outcome"`
	Sentiment      *float64        `json:"sentiment"`
	UserID         *string         `json:"user_id"`
	ExtractedData  json.RawMessage `json:"extracted_data"`
	CallStatus     *string         `json:"call_status"`
	RescheduledFor *string         `json:"rescheduled_for"`
	ObjectiveMet   *bool           `json:"objective_met"`
}

// parseTimestamp parses an optional RFC 3339 timestamp field. A malformed
// value is an error rather than being silently dropped.
func parseTimestamp(field string, value *string) (*time.Time, string) {
	if value == nil || *value == "" {
		return nil, ""
	}
	t, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil, field + " must be an RFC 3339 timestamp"
	}
	utc := t.UTC()
	return &utc, ""
}

// handleReceiveCallData ingests a completed call: stamps the matched
// contact's last_called and appends one call record. Public: called by the
// telephony infrastructure.
func (s *Server) handleReceiveCallData(w http.ResponseWriter, r *http.Request) {
	var req callDataRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}
	if req.Transcript != nil {
		if errMsg := validateStringLen("transcript", *req.Transcript, maxContentLen); errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
	}
	if req.RecordingURL != nil {
		if errMsg := validateStringLen("recording_url", *req.RecordingURL, maxURLLen); errMsg != "" {
			writeError(w, http.StatusBadRequest, errMsg)
			return
		}
	}
	if errMsg := validateJSONObject("extracted_data", req.ExtractedData); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	startedAt, errMsg := parseTimestamp("started_at", req.StartedAt)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	endedAt, errMsg := parseTimestamp("ended_at", req.EndedAt)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	rescheduledFor, errMsg := parseTimestamp("rescheduled_for", req.RescheduledFor)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	result := &callcontext.CallResult{
		Phone:          req.Phone,
		Duration:       req.Duration,
		Status:         req.Status,
		Direction:      req.Direction,
		RecordingURL:   req.RecordingURL,
		Transcript:     req.Transcript,
		ExternalCallID: req.CallID,
		StartedAt:      startedAt,
		EndedAt:        endedAt,
		Notes:          req.Notes,
		CampaignID:     req.CampaignID,
		Outcome:        req.Outcome,
		Sentiment:      req.Sentiment,
		UserID:         req.UserID,
		CallStatus:     req.CallStatus,
		RescheduledFor: rescheduledFor,
		ObjectiveMet:   req.ObjectiveMet,
	}
	if len(req.ExtractedData) > 0 {
		extracted := string(req.ExtractedData)
		result.ExtractedData = &extracted
	}

	receipt, err := s.resolver.IngestCallResult(r.Context(), result)
	if err != nil {
		if errors.Is(err, callcontext.ErrContactNotFound) {
			writeError(w, http.StatusNotFound, callcontext.ErrContactNotFound.Error())
			return
		}
		slog.Error("receive call data: ingestion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"call_id": receipt.CallID,
		"contact": map[string]any{
			"id":    receipt.ContactID,
			"name":  receipt.ContactName,
			"phone": receipt.Phone,
		},
		"campaign_id": receipt.CampaignID,
	})
}
