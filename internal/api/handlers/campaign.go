// Package handlers contains the HTTP handler implementations for the email
// automation API.
//
// This file implements the campaign processing handler. It covers:
//   - Batch drafting and auto-reply over a campaign's unread inbox
//     (POST /campaign/process)
//   - Per-email result reporting with generated_only/replied/failed statuses
//   - Route registration
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Abhishek-cmd13/Emailautomation/internal/campaigns"
	"github.com/Abhishek-cmd13/Emailautomation/internal/core"
	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// CampaignService defines the service contract for the campaign handler.
// Matches the campaigns.Service batch method but is defined locally to avoid
// tight coupling per the handler injection pattern.
type CampaignService interface {
	ProcessCampaign(ctx context.Context, input campaigns.ProcessInput) (types.BatchReport, error)
}

// --- Request/Response Models ---

// processCampaignRequest is the request body for POST /campaign/process.
type processCampaignRequest struct {
	CampaignName string            `json:"campaign_name" validate:"required,notblank"`
	AutoReply    bool              `json:"auto_reply"`
	BorrowerName string            `json:"borrower_name"`
	Context      map[string]string `json:"context"`
}

// processCampaignResponse is the success envelope for POST /campaign/process.
// The batch endpoint keeps its own flat envelope so existing consumers of the
// results array keep working.
type processCampaignResponse struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	CampaignID   string          `json:"campaign_id"`
	CampaignName string          `json:"campaign_name"`
	TotalEmails  int             `json:"total_emails"`
	Processed    int             `json:"processed"`
	Results      []resultPayload `json:"results"`
	Timestamp    string          `json:"timestamp"`
}

// resultPayload is the wire form of one per-email outcome. It materializes the
// result's error as a plain string; failed results carry error and nothing
// draft-related, successful ones carry the draft fields.
type resultPayload struct {
	EmailID string                 `json:"email_id"`
	Lead    string                 `json:"lead"`
	Status  types.ProcessingStatus `json:"status"`
	Intent  types.IntentLabel      `json:"intent,omitempty"`
	Reply   string                 `json:"reply,omitempty"`
	ReplyID string                 `json:"reply_id,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

func toResultPayload(res types.ProcessingResult) resultPayload {
	p := resultPayload{
		EmailID: res.EmailID,
		Lead:    res.Lead,
		Status:  res.Status,
		Intent:  res.Intent,
		Reply:   res.Reply,
		ReplyID: res.ReplyID,
	}
	if res.Err != nil {
		p.Error = res.Err.Error()
	}
	return p
}

// --- Handler ---

// CampaignHandler maps HTTP requests to campaign batch operations.
type CampaignHandler struct {
	service   CampaignService
	validator *core.Validator
	logger    *slog.Logger
}

// NewCampaignHandler creates a new CampaignHandler with the provided dependencies.
func NewCampaignHandler(
	svc CampaignService,
	val *core.Validator,
	logger *slog.Logger,
) *CampaignHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CampaignHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the campaign endpoints onto the mux.
func (h *CampaignHandler) RegisterRoutes(r chi.Router) {
	r.Post("/process", h.HandleProcess)
}

// HandleProcess handles POST /campaign/process.
//
//  1. Decode and validate the request body.
//  2. Run the batch: resolve campaign, fetch unread, draft, optionally reply.
//  3. Return the full report. Per-email failures surface inside results with
//     status "failed"; only campaign-level failures produce an error response.
func (h *CampaignHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	var req processCampaignRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	report, err := h.service.ProcessCampaign(r.Context(), campaigns.ProcessInput{
		CampaignName: req.CampaignName,
		AutoReply:    req.AutoReply,
		BorrowerName: req.BorrowerName,
		Context:      req.Context,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	message := fmt.Sprintf("Processed %d emails from campaign '%s'", report.Processed, report.CampaignName)
	if report.TotalEmails == 0 {
		message = fmt.Sprintf("No unread emails found in campaign '%s'", report.CampaignName)
	}

	results := make([]resultPayload, 0, len(report.Results))
	for _, res := range report.Results {
		results = append(results, toResultPayload(res))
	}

	core.JSON(w, r, http.StatusOK, processCampaignResponse{
		Success:      true,
		Message:      message,
		CampaignID:   report.CampaignID,
		CampaignName: report.CampaignName,
		TotalEmails:  report.TotalEmails,
		Processed:    report.Processed,
		Results:      results,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}
