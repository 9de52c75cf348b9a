package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhishek-cmd13/Emailautomation/internal/campaigns"
	"github.com/Abhishek-cmd13/Emailautomation/internal/core"
	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// --- Mock Service ---

type mockAutoReplyService struct {
	generateFn  func(ctx context.Context, input campaigns.GenerateInput) (types.ReplyDraft, error)
	autoReplyFn func(ctx context.Context, input campaigns.AutoReplyInput) (types.ProcessingResult, error)

	// Track calls for assertions.
	lastGenerate  campaigns.GenerateInput
	lastAutoReply campaigns.AutoReplyInput
}

func (m *mockAutoReplyService) GenerateReply(ctx context.Context, input campaigns.GenerateInput) (types.ReplyDraft, error) {
	m.lastGenerate = input
	if m.generateFn != nil {
		return m.generateFn(ctx, input)
	}
	return types.ReplyDraft{
		Intent:  "already paid",
		Text:    "Hi Rahul,\n\nThank you for letting us know.",
		Backend: "gpt-4o-mini",
	}, nil
}

func (m *mockAutoReplyService) AutoReplyToEmail(ctx context.Context, input campaigns.AutoReplyInput) (types.ProcessingResult, error) {
	m.lastAutoReply = input
	if m.autoReplyFn != nil {
		return m.autoReplyFn(ctx, input)
	}
	return types.ProcessingResult{
		EmailID: input.EmailID,
		Lead:    "rahul@example.com",
		Status:  types.StatusReplied,
		Intent:  "already paid",
		Reply:   "Hi Rahul,\n\nThank you for letting us know.",
		ReplyID: "r_001",
		Backend: "gpt-4o-mini",
	}, nil
}

// --- Helpers ---

func newTestAutoReplyHandler(svc AutoReplyService) *AutoReplyHandler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewAutoReplyHandler(svc, core.NewValidator(logger), logger)
}

// --- HandleGenerate Tests ---

func TestAutoReplyHandler_Generate_Success(t *testing.T) {
	svc := &mockAutoReplyService{}
	handler := newTestAutoReplyHandler(svc)

	req := postJSON(t, "/auto-reply/generate", map[string]any{
		"email_body":    "I already made the payment, screenshot attached.",
		"subject":       "Loan closure",
		"borrower_name": "Rahul",
		"context":       map[string]string{"total_due": "45000"},
	})
	rr := httptest.NewRecorder()
	handler.HandleGenerate(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "I already made the payment, screenshot attached.", svc.lastGenerate.EmailBody)
	assert.Equal(t, "Loan closure", svc.lastGenerate.Subject)
	assert.Equal(t, "Rahul", svc.lastGenerate.BorrowerName)
	assert.Equal(t, "45000", svc.lastGenerate.Context["total_due"])

	var resp generateReplyResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Hi Rahul,\n\nThank you for letting us know.", resp.Reply)
	assert.Equal(t, types.IntentLabel("already paid"), resp.Intent)
	assert.Equal(t, "gpt-4o-mini", resp.Model)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestAutoReplyHandler_Generate_MissingBody(t *testing.T) {
	svc := &mockAutoReplyService{}
	handler := newTestAutoReplyHandler(svc)

	req := postJSON(t, "/auto-reply/generate", map[string]any{"subject": "Loan closure"})
	rr := httptest.NewRecorder()
	handler.HandleGenerate(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, svc.lastGenerate.EmailBody)

	var errResp core.APIErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
	assert.Equal(t, string(types.ErrCodeValidationMissingField), errResp.Error.Code)
}

func TestAutoReplyHandler_Generate_GenerationFailure(t *testing.T) {
	svc := &mockAutoReplyService{
		generateFn: func(_ context.Context, _ campaigns.GenerateInput) (types.ReplyDraft, error) {
			return types.ReplyDraft{}, types.NewAppError(
				types.ErrCodeGenerationFailed,
				"reply generation failed",
				nil,
			)
		},
	}
	handler := newTestAutoReplyHandler(svc)

	req := postJSON(t, "/auto-reply/generate", map[string]any{"email_body": "x"})
	rr := httptest.NewRecorder()
	handler.HandleGenerate(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)

	var errResp core.APIErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
	assert.Equal(t, string(types.ErrCodeGenerationFailed), errResp.Error.Code)
}

// --- HandleToBorrower Tests ---

func TestAutoReplyHandler_ToBorrower_SendsByDefault(t *testing.T) {
	svc := &mockAutoReplyService{}
	handler := newTestAutoReplyHandler(svc)

	req := postJSON(t, "/auto-reply/to-borrower", map[string]any{"email_id": "em_001"})
	rr := httptest.NewRecorder()
	handler.HandleToBorrower(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, svc.lastAutoReply.AutoSend, "auto_send must default to true")
	assert.Equal(t, "em_001", svc.lastAutoReply.EmailID)

	var resp autoReplyResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "AI auto-reply sent successfully (Model: gpt-4o-mini)", resp.Message)
	assert.Equal(t, "em_001", resp.EmailID)
	assert.Equal(t, types.IntentLabel("already paid"), resp.Intent)
	assert.Equal(t, "r_001", resp.ReplyID)
}

func TestAutoReplyHandler_ToBorrower_GeneratedOnly(t *testing.T) {
	svc := &mockAutoReplyService{
		autoReplyFn: func(_ context.Context, input campaigns.AutoReplyInput) (types.ProcessingResult, error) {
			return types.ProcessingResult{
				EmailID: input.EmailID,
				Lead:    "rahul@example.com",
				Status:  types.StatusGeneratedOnly,
				Intent:  "wants a call",
				Reply:   "Hi Rahul,\n\nWe hear you.",
				Backend: "template",
			}, nil
		},
	}
	handler := newTestAutoReplyHandler(svc)

	req := postJSON(t, "/auto-reply/to-borrower", map[string]any{
		"email_id":  "em_001",
		"auto_send": false,
	})
	rr := httptest.NewRecorder()
	handler.HandleToBorrower(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, svc.lastAutoReply.AutoSend)

	body := rr.Body.String()
	assert.NotContains(t, body, "reply_id", "unsent drafts must not carry a reply id")

	var resp autoReplyResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "AI auto-reply generated (Model: template)", resp.Message)
	assert.Equal(t, types.IntentLabel("wants a call"), resp.Intent)
}

func TestAutoReplyHandler_ToBorrower_ForwardsNameAndContext(t *testing.T) {
	svc := &mockAutoReplyService{}
	handler := newTestAutoReplyHandler(svc)

	req := postJSON(t, "/auto-reply/to-borrower", map[string]any{
		"email_id":      "em_001",
		"borrower_name": "Priya",
		"context":       map[string]string{"due_date": "2026-09-01"},
	})
	rr := httptest.NewRecorder()
	handler.HandleToBorrower(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Priya", svc.lastAutoReply.BorrowerName)
	assert.Equal(t, "2026-09-01", svc.lastAutoReply.Context["due_date"])
}

func TestAutoReplyHandler_ToBorrower_MissingEmailID(t *testing.T) {
	svc := &mockAutoReplyService{}
	handler := newTestAutoReplyHandler(svc)

	req := postJSON(t, "/auto-reply/to-borrower", map[string]any{"borrower_name": "Rahul"})
	rr := httptest.NewRecorder()
	handler.HandleToBorrower(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, svc.lastAutoReply.EmailID)
}

func TestAutoReplyHandler_ToBorrower_EmailNotFound(t *testing.T) {
	svc := &mockAutoReplyService{
		autoReplyFn: func(_ context.Context, input campaigns.AutoReplyInput) (types.ProcessingResult, error) {
			return types.ProcessingResult{}, types.NewAppError(
				types.ErrCodeNotFoundEmail,
				"email "+input.EmailID+" not found",
				nil,
			)
		},
	}
	handler := newTestAutoReplyHandler(svc)

	req := postJSON(t, "/auto-reply/to-borrower", map[string]any{"email_id": "em_gone"})
	rr := httptest.NewRecorder()
	handler.HandleToBorrower(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)

	var errResp core.APIErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
	assert.Equal(t, string(types.ErrCodeNotFoundEmail), errResp.Error.Code)
}

func TestAutoReplyHandler_RegisterRoutes(t *testing.T) {
	svc := &mockAutoReplyService{}
	handler := newTestAutoReplyHandler(svc)

	r := chiRouterWith(t, "/auto-reply", handler.RegisterRoutes)

	req := postJSON(t, "/auto-reply/generate", map[string]any{"email_body": "x"})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = postJSON(t, "/auto-reply/to-borrower", map[string]any{"email_id": "em_001"})
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
