// Package handlers contains the HTTP handler implementations for the email
// automation API.
//
// This file implements the direct mail handler. It covers:
//   - One-off sends through the provider's quick-send path (POST /send-email)
//   - Manual threaded replies with thread metadata backfill (POST /reply-email)
//   - Route registration
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Abhishek-cmd13/Emailautomation/internal/core"
	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// MailService defines the provider contract for the mail handler. Matches the
// external.CampaignProvider methods used here but is defined locally to avoid
// tight coupling per the handler injection pattern.
type MailService interface {
	SendEmail(ctx context.Context, input types.SendEmailInput) (string, error)
	SubmitReply(ctx context.Context, input types.ReplyInput) (string, error)
	GetEmail(ctx context.Context, emailID string) (*types.InboundMessage, error)
}

// --- Request/Response Models ---

// sendEmailRequest is the request body for POST /send-email.
type sendEmailRequest struct {
	To       string `json:"to" validate:"required,email"`
	Subject  string `json:"subject" validate:"required,notblank"`
	Body     string `json:"body" validate:"required"`
	HTMLBody string `json:"html_body"`
	EAccount string `json:"eaccount" validate:"omitempty,email"`
}

// replyEmailRequest is the request body for POST /reply-email.
//
// ReplyToUUID is an alias for EmailID kept for callers that already speak the
// provider's reply vocabulary; when both are set ReplyToUUID wins.
type replyEmailRequest struct {
	EmailID     string `json:"email_id" validate:"required,notblank"`
	Body        string `json:"body" validate:"required"`
	HTMLBody    string `json:"html_body"`
	Subject     string `json:"subject"`
	EAccount    string `json:"eaccount" validate:"omitempty,email"`
	ReplyToUUID string `json:"reply_to_uuid"`
}

// mailResponse is the shared success envelope for the direct mail endpoints.
type mailResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	EmailID   string `json:"email_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// --- Handler ---

// MailHandler maps HTTP requests to provider send and reply operations.
type MailHandler struct {
	provider  MailService
	validator *core.Validator
	logger    *slog.Logger
}

// NewMailHandler creates a new MailHandler with the provided dependencies.
func NewMailHandler(
	provider MailService,
	val *core.Validator,
	logger *slog.Logger,
) *MailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailHandler{
		provider:  provider,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the mail endpoints onto the mux.
func (h *MailHandler) RegisterRoutes(r chi.Router) {
	r.Post("/send-email", h.HandleSend)
	r.Post("/reply-email", h.HandleReply)
}

// HandleSend handles POST /send-email. The body passes through to the
// provider untouched; html_body is optional and never synthesized here.
func (h *MailHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	emailID, err := h.provider.SendEmail(r.Context(), types.SendEmailInput{
		To:       req.To,
		Subject:  req.Subject,
		BodyText: req.Body,
		BodyHTML: req.HTMLBody,
		EAccount: req.EAccount,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("email sent",
		"to", req.To,
		"email_id", emailID,
	)

	core.JSON(w, r, http.StatusOK, mailResponse{
		Success:   true,
		Message:   "Email sent successfully",
		EmailID:   emailID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReply handles POST /reply-email.
//
//  1. Decode and validate; resolve the target id (reply_to_uuid wins).
//  2. When the caller omitted eaccount or subject, fetch the original message
//     and backfill from it. The fetch is best effort: a lookup failure falls
//     back to the request values and lets the provider enforce what it needs.
//  3. Submit the reply into the thread.
func (h *MailHandler) HandleReply(w http.ResponseWriter, r *http.Request) {
	var req replyEmailRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	replyToID := req.EmailID
	if req.ReplyToUUID != "" {
		replyToID = req.ReplyToUUID
	}

	eaccount := req.EAccount
	subject := req.Subject
	if eaccount == "" || subject == "" {
		if msg, err := h.provider.GetEmail(r.Context(), replyToID); err != nil {
			h.logger.Debug("could not fetch original email for backfill",
				"email_id", replyToID,
				"error", err,
			)
		} else {
			if eaccount == "" {
				eaccount = msg.EAccount
			}
			if subject == "" {
				subject = msg.Subject
			}
		}
	}

	replyID, err := h.provider.SubmitReply(r.Context(), types.ReplyInput{
		ReplyToID: replyToID,
		EAccount:  eaccount,
		Subject:   subject,
		BodyText:  req.Body,
		BodyHTML:  req.HTMLBody,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.Info("reply sent",
		"reply_to_id", replyToID,
		"email_id", replyID,
	)

	core.JSON(w, r, http.StatusOK, mailResponse{
		Success:   true,
		Message:   "Reply sent successfully",
		EmailID:   replyID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
