// Package handlers contains the HTTP handler implementations for the email
// automation API.
//
// This file implements the auto-reply handler. It covers:
//   - Standalone draft generation from a raw email body (POST /auto-reply/generate)
//   - Single-message classify, compose, and optional send (POST /auto-reply/to-borrower)
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

// AutoReplyService defines the service contract for the auto-reply handler.
// Matches the campaigns.Service single-message methods but is defined locally
// to avoid tight coupling per the handler injection pattern.
type AutoReplyService interface {
	GenerateReply(ctx context.Context, input campaigns.GenerateInput) (types.ReplyDraft, error)
	AutoReplyToEmail(ctx context.Context, input campaigns.AutoReplyInput) (types.ProcessingResult, error)
}

// --- Request/Response Models ---

// generateReplyRequest is the request body for POST /auto-reply/generate.
type generateReplyRequest struct {
	EmailBody    string            `json:"email_body" validate:"required,notblank"`
	Subject      string            `json:"subject"`
	BorrowerName string            `json:"borrower_name"`
	Context      map[string]string `json:"context"`
}

// generateReplyResponse is the success envelope for POST /auto-reply/generate.
type generateReplyResponse struct {
	Success   bool              `json:"success"`
	Reply     string            `json:"reply"`
	Intent    types.IntentLabel `json:"intent"`
	Model     string            `json:"model"`
	Timestamp string            `json:"timestamp"`
}

// autoReplyRequest is the request body for POST /auto-reply/to-borrower.
//
// AutoSend defaults to true: the endpoint's purpose is replying, so omitting
// the flag sends. Callers that only want a draft pass auto_send: false, which
// is why the field is a pointer rather than a plain bool.
type autoReplyRequest struct {
	EmailID      string            `json:"email_id" validate:"required,notblank"`
	BorrowerName string            `json:"borrower_name"`
	Context      map[string]string `json:"context"`
	AutoSend     *bool             `json:"auto_send"`
}

// autoReplyResponse is the success envelope for POST /auto-reply/to-borrower.
// EmailID echoes the message replied to; ReplyID identifies the submitted
// reply and is absent when auto_send was false.
type autoReplyResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	EmailID   string            `json:"email_id"`
	Intent    types.IntentLabel `json:"intent"`
	Reply     string            `json:"reply"`
	ReplyID   string            `json:"reply_id,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// --- Handler ---

// AutoReplyHandler maps HTTP requests to single-message draft operations.
type AutoReplyHandler struct {
	service   AutoReplyService
	validator *core.Validator
	logger    *slog.Logger
}

// NewAutoReplyHandler creates a new AutoReplyHandler with the provided dependencies.
func NewAutoReplyHandler(
	svc AutoReplyService,
	val *core.Validator,
	logger *slog.Logger,
) *AutoReplyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoReplyHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the auto-reply endpoints onto the mux.
func (h *AutoReplyHandler) RegisterRoutes(r chi.Router) {
	r.Post("/generate", h.HandleGenerate)
	r.Post("/to-borrower", h.HandleToBorrower)
}

// HandleGenerate handles POST /auto-reply/generate. No provider lookup
// happens: the caller supplies the email body and the endpoint returns the
// classified intent and composed reply without touching any thread.
func (h *AutoReplyHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateReplyRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	draft, err := h.service.GenerateReply(r.Context(), campaigns.GenerateInput{
		EmailBody:    req.EmailBody,
		Subject:      req.Subject,
		BorrowerName: req.BorrowerName,
		Context:      req.Context,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, generateReplyResponse{
		Success:   true,
		Reply:     draft.Text,
		Intent:    draft.Intent,
		Model:     draft.Backend,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleToBorrower handles POST /auto-reply/to-borrower.
//
//  1. Decode and validate; auto_send defaults to true when omitted.
//  2. Fetch the message, classify, compose, and (unless auto_send is false)
//     submit the reply into the thread.
//  3. Return the draft alongside the submission outcome.
func (h *AutoReplyHandler) HandleToBorrower(w http.ResponseWriter, r *http.Request) {
	var req autoReplyRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	autoSend := true
	if req.AutoSend != nil {
		autoSend = *req.AutoSend
	}

	res, err := h.service.AutoReplyToEmail(r.Context(), campaigns.AutoReplyInput{
		EmailID:      req.EmailID,
		BorrowerName: req.BorrowerName,
		Context:      req.Context,
		AutoSend:     autoSend,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	message := fmt.Sprintf("AI auto-reply generated (Model: %s)", res.Backend)
	if res.Status == types.StatusReplied {
		message = fmt.Sprintf("AI auto-reply sent successfully (Model: %s)", res.Backend)
	}

	core.JSON(w, r, http.StatusOK, autoReplyResponse{
		Success:   true,
		Message:   message,
		EmailID:   res.EmailID,
		Intent:    res.Intent,
		Reply:     res.Reply,
		ReplyID:   res.ReplyID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
