package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"

	"github.com/google/uuid"
)

// instantlyAPIBase is the default Instantly API base URL.
// Overridable in tests via InstantlyClientConfig.BaseURL.
const instantlyAPIBase = "https://api.instantly.ai"

// Listing defaults when the config leaves them zero.
const (
	defaultCampaignPageSize = 100
	defaultUnreadFetchLimit = 50
)

// InstantlyClientConfig holds the configuration for creating an InstantlyClient.
type InstantlyClientConfig struct {
	APIKey  string
	BaseURL string // Override for testing; defaults to instantlyAPIBase

	// MinRequestInterval spaces consecutive requests to stay inside the
	// provider's per-workspace rate budget (~20/minute). Zero disables pacing.
	MinRequestInterval time.Duration

	// MaxRetries bounds retries on 429/5xx. Only used by NewInstantlyClient;
	// NewInstantlyClientWithBase takes the schedule from the provided transport.
	MaxRetries int

	CampaignPageSize int
	UnreadFetchLimit int

	Logger *slog.Logger
}

// InstantlyClient implements CampaignProvider by making direct HTTP calls to
// the Instantly v2 API through the shared OutboundClient (circuit breaker,
// retries, error mapping) plus a client-side pacer, because Instantly
// throttles aggressively and a 429 burns a whole backoff cycle that spacing
// would have avoided.
type InstantlyClient struct {
	base    *OutboundClient
	apiKey  string
	baseURL string
	logger  *slog.Logger

	campaignPageSize int
	unreadFetchLimit int

	// Request pacing. lastSlot is the departure time reserved by the most
	// recent request; callers queue behind it under mu.
	minInterval time.Duration
	mu          sync.Mutex
	lastSlot    time.Time
	nowFn       func() time.Time
	sleepFn     func(time.Duration)
}

// InstantlyClientOption is a functional option for configuring an InstantlyClient.
type InstantlyClientOption func(*InstantlyClient)

// WithClock overrides the clock and sleep functions used by the request pacer.
// This is intended for testing to avoid real delays.
func WithClock(now func() time.Time, sleep func(time.Duration)) InstantlyClientOption {
	return func(c *InstantlyClient) {
		c.nowFn = now
		c.sleepFn = sleep
	}
}

// NewInstantlyClient creates a new InstantlyClient. The httpClient timeout
// bounds each individual attempt; retries and pacing happen above it.
func NewInstantlyClient(
	httpClient *http.Client,
	cfg InstantlyClientConfig,
	opts ...InstantlyClientOption,
) *InstantlyClient {
	backoff := DefaultBackoff()
	backoff.MaxRetries = cfg.MaxRetries

	base := NewOutboundClient(httpClient, "instantly", backoff, "EmailAutomation/1.0")

	return NewInstantlyClientWithBase(base, cfg, opts...)
}

// NewInstantlyClientWithBase creates an InstantlyClient over a pre-built
// transport. Tests use it to disable retries or inject a recording sleep.
func NewInstantlyClientWithBase(
	base *OutboundClient,
	cfg InstantlyClientConfig,
	opts ...InstantlyClientOption,
) *InstantlyClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = instantlyAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pageSize := cfg.CampaignPageSize
	if pageSize <= 0 {
		pageSize = defaultCampaignPageSize
	}
	fetchLimit := cfg.UnreadFetchLimit
	if fetchLimit <= 0 {
		fetchLimit = defaultUnreadFetchLimit
	}

	c := &InstantlyClient{
		base:             base,
		apiKey:           normalizeAPIKey(cfg.APIKey),
		baseURL:          normalizeBaseURL(baseURL),
		logger:           logger,
		campaignPageSize: pageSize,
		unreadFetchLimit: fetchLimit,
		minInterval:      cfg.MinRequestInterval,
		nowFn:            time.Now,
		sleepFn:          time.Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// normalizeAPIKey strips whitespace and stray quotes. Keys pasted into env
// files routinely arrive wrapped in quotes that then reach the wire verbatim
// and fail auth.
func normalizeAPIKey(key string) string {
	key = strings.TrimSpace(key)
	return strings.Trim(key, `"'`)
}

// normalizeBaseURL strips trailing slashes and a trailing /api/v2 segment, so
// both "https://api.instantly.ai" and "https://api.instantly.ai/api/v2/" are
// accepted. Endpoint paths always include the /api/v2 prefix themselves.
func normalizeBaseURL(raw string) string {
	u := strings.TrimRight(raw, "/")
	return strings.TrimSuffix(u, "/api/v2")
}

// ---------------------------------------------------------------------------
// CampaignProvider Implementation
// ---------------------------------------------------------------------------

// ResolveCampaign pages GET /api/v2/campaigns and returns the first campaign
// whose name matches exactly. A short page terminates the scan; a full scan
// without a match is a not-found error.
func (c *InstantlyClient) ResolveCampaign(ctx context.Context, name string) (*types.Campaign, error) {
	offset := 0
	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(c.campaignPageSize))
		query.Set("offset", strconv.Itoa(offset))

		var page instantlyCampaignList
		if err := c.do(ctx, http.MethodGet, "/api/v2/campaigns", query, nil, &page, "ResolveCampaign"); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Name == name {
				return &types.Campaign{ID: item.ID, Name: item.Name}, nil
			}
		}

		if len(page.Items) < c.campaignPageSize {
			return nil, types.NewAppError(
				types.ErrCodeNotFoundCampaign,
				fmt.Sprintf("campaign %q not found", name),
				nil,
			)
		}
		offset += c.campaignPageSize
	}
}

// ListUnreadInbound fetches unread emails (GET /api/v2/emails?is_unread=true)
// and filters client-side: the provider's list endpoint cannot scope to a
// campaign, and stored outbound copies (ue_type 1) share the unread flag with
// real borrower messages.
func (c *InstantlyClient) ListUnreadInbound(ctx context.Context, campaignID string) ([]types.InboundMessage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.unreadFetchLimit))
	query.Set("offset", "0")
	query.Set("is_unread", "true")

	var page instantlyEmailList
	if err := c.do(ctx, http.MethodGet, "/api/v2/emails", query, nil, &page, "ListUnreadInbound"); err != nil {
		return nil, err
	}

	messages := make([]types.InboundMessage, 0, len(page.Items))
	for _, item := range page.Items {
		if item.CampaignID != campaignID {
			continue
		}
		if item.UEType == 1 {
			continue
		}
		messages = append(messages, item.toDomain())
	}

	c.logger.Debug("unread inbound listed",
		"campaign_id", campaignID,
		"fetched", len(page.Items),
		"matched", len(messages),
	)

	return messages, nil
}

// GetEmail retrieves a single stored email by id (GET /api/v2/emails/{id}).
func (c *InstantlyClient) GetEmail(ctx context.Context, emailID string) (*types.InboundMessage, error) {
	var item instantlyEmail
	path := "/api/v2/emails/" + url.PathEscape(emailID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &item, "GetEmail"); err != nil {
		return nil, err
	}
	msg := item.toDomain()
	return &msg, nil
}

// SubmitReply threads a reply onto an existing message via
// POST /api/v2/emails/reply. The subject gets a "Re: " prefix when the
// original lacks one, and the body always carries a text part.
func (c *InstantlyClient) SubmitReply(ctx context.Context, input types.ReplyInput) (string, error) {
	if input.EAccount == "" {
		return "", types.NewAppError(
			types.ErrCodeSubmissionFailed,
			"eaccount is required to submit a reply",
			nil,
		)
	}

	subject := input.Subject
	if subject != "" && !strings.HasPrefix(subject, "Re:") {
		subject = "Re: " + subject
	}

	payload := instantlyReplyRequest{
		ReplyToUUID: input.ReplyToID,
		Subject:     subject,
		EAccount:    input.EAccount,
		Body: instantlyReplyBody{
			Text: input.BodyText,
			HTML: input.BodyHTML,
		},
	}

	var result instantlyReplyResponse
	if err := c.do(ctx, http.MethodPost, "/api/v2/emails/reply", nil, payload, &result, "SubmitReply"); err != nil {
		return "", err
	}

	return result.ID, nil
}

// SendEmail performs a quick send by staging a single-recipient campaign and
// activating it (the provider exposes no direct send endpoint). The provider
// returns no message id for the delivery, so the client mints one.
func (c *InstantlyClient) SendEmail(ctx context.Context, input types.SendEmailInput) (string, error) {
	content := input.BodyHTML
	if content == "" {
		content = input.BodyText
	}
	fromName := input.EAccount
	if fromName == "" {
		fromName = "Email Agent"
	}

	payload := instantlyQuickCampaign{
		Name:     "Quick Send - " + truncateRunes(input.Subject, 50),
		Subject:  input.Subject,
		Content:  content,
		FromName: fromName,
		EAccount: input.EAccount,
		Schedule: immediateSchedule(),
		Leads: []instantlyLead{
			{Email: input.To},
		},
	}

	var created instantlyCampaign
	if err := c.do(ctx, http.MethodPost, "/api/v2/campaigns", nil, payload, &created, "SendEmail"); err != nil {
		return "", err
	}

	if created.ID != "" {
		activatePath := "/api/v2/campaigns/" + url.PathEscape(created.ID) + "/activate"
		if err := c.do(ctx, http.MethodPost, activatePath, nil, nil, nil, "SendEmail"); err != nil {
			return "", err
		}
	}

	return uuid.NewString(), nil
}

// ---------------------------------------------------------------------------
// Health Probe
// ---------------------------------------------------------------------------

// Name identifies the client on the health endpoint.
func (c *InstantlyClient) Name() string { return "instantly" }

// Check reports whether the client holds a usable credential. It makes no
// network call: health polls arrive far more often than the provider's rate
// budget allows, and the pacer would stall them past the probe timeout.
func (c *InstantlyClient) Check(ctx context.Context) error {
	if c.apiKey == "" {
		return errors.New("instantly api key is not configured")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Request Plumbing
// ---------------------------------------------------------------------------

// pace reserves a departure slot at least minInterval after the previous one.
// Concurrent callers serialize into evenly spaced slots; the reservation is
// made under the lock and the wait happens outside it.
func (c *InstantlyClient) pace() {
	if c.minInterval <= 0 {
		return
	}

	c.mu.Lock()
	now := c.nowFn()
	slot := c.lastSlot.Add(c.minInterval)
	if slot.Before(now) {
		slot = now
	}
	c.lastSlot = slot
	c.mu.Unlock()

	if wait := slot.Sub(now); wait > 0 {
		c.sleepFn(wait)
	}
}

// do executes one paced, authenticated API call and decodes the JSON response
// into out (skipped when out is nil).
func (c *InstantlyClient) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	payload any,
	out any,
	operation string,
) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return types.NewAppError(
				types.ErrCodeInternalUnexpected,
				fmt.Sprintf("%s: failed to marshal Instantly payload", operation),
				err,
			)
		}
		body = bytes.NewReader(raw)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			fmt.Sprintf("%s: failed to create Instantly request", operation),
			err,
		)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.pace()

	resp, err := c.base.Do(req)
	if err != nil {
		return c.wrapInstantlyError(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return types.NewAppError(
			types.ErrCodeUpstreamAuth,
			fmt.Sprintf("%s: Instantly authentication failed; check the API key", operation),
			nil,
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(resp, operation)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("%s: Instantly returned an unparsable response", operation),
			err,
		)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Wire Types
// ---------------------------------------------------------------------------

type instantlyCampaign struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type instantlyCampaignList struct {
	Items []instantlyCampaign `json:"items"`
}

type instantlyEmail struct {
	ID         string             `json:"id"`
	CampaignID string             `json:"campaign_id"`
	Lead       string             `json:"lead"`
	Subject    string             `json:"subject"`
	Body       instantlyEmailBody `json:"body"`
	EAccount   string             `json:"eaccount"`
	UEType     int                `json:"ue_type"`
}

type instantlyEmailBody struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

type instantlyEmailList struct {
	Items []instantlyEmail `json:"items"`
}

// toDomain maps a wire email to the domain type. Classification runs on the
// text part; when the provider stored none, the HTML body stands in so the
// message is still classifiable.
func (e instantlyEmail) toDomain() types.InboundMessage {
	text := e.Body.Text
	if text == "" {
		text = e.Body.HTML
	}
	return types.InboundMessage{
		ID:         e.ID,
		CampaignID: e.CampaignID,
		Lead:       e.Lead,
		Subject:    e.Subject,
		BodyText:   text,
		BodyHTML:   e.Body.HTML,
		EAccount:   e.EAccount,
		Outbound:   e.UEType == 1,
	}
}

type instantlyReplyRequest struct {
	ReplyToUUID string             `json:"reply_to_uuid"`
	Subject     string             `json:"subject"`
	EAccount    string             `json:"eaccount"`
	Body        instantlyReplyBody `json:"body"`
}

type instantlyReplyBody struct {
	Text string `json:"text"`
	HTML string `json:"html,omitempty"`
}

type instantlyReplyResponse struct {
	ID string `json:"id"`
}

type instantlyQuickCampaign struct {
	Name     string            `json:"name"`
	Subject  string            `json:"subject"`
	Content  string            `json:"content"`
	FromName string            `json:"from_name"`
	EAccount string            `json:"eaccount,omitempty"`
	Schedule instantlySchedule `json:"campaign_schedule"`
	Leads    []instantlyLead   `json:"leads"`
}

type instantlySchedule struct {
	Schedules []instantlyScheduleWindow `json:"schedules"`
}

type instantlyScheduleWindow struct {
	Name     string          `json:"name"`
	Timing   instantlyTiming `json:"timing"`
	Days     map[string]bool `json:"days"`
	Timezone string          `json:"timezone"`
}

type instantlyTiming struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type instantlyLead struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// immediateSchedule builds the all-day, every-day window a quick-send
// campaign needs so the provider dispatches it as soon as it activates.
func immediateSchedule() instantlySchedule {
	days := make(map[string]bool, 7)
	for d := 0; d < 7; d++ {
		days[strconv.Itoa(d)] = true
	}
	return instantlySchedule{
		Schedules: []instantlyScheduleWindow{{
			Name:     "Immediate Send",
			Timing:   instantlyTiming{From: "00:00", To: "23:59"},
			Days:     days,
			Timezone: "UTC",
		}},
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ---------------------------------------------------------------------------
// Error Handling
// ---------------------------------------------------------------------------

// instantlyErrorResponse represents the JSON error body returned by Instantly.
type instantlyErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// handleErrorResponse reads an Instantly error response and maps it to a
// types.AppError. 404s map to the email-not-found code (the only per-resource
// GET in this client); everything else is a provider error.
func (c *InstantlyClient) handleErrorResponse(resp *http.Response, operation string) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if readErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("%s: Instantly returned status %d and response body was unreadable", operation, resp.StatusCode),
			readErr,
		)
	}

	var apiErr instantlyErrorResponse
	errMsg := ""
	if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil {
		errMsg = apiErr.Message
		if errMsg == "" {
			errMsg = apiErr.Error
		}
	}
	if errMsg == "" {
		errMsg = strings.TrimSpace(string(body))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return types.NewAppError(
			types.ErrCodeNotFoundEmail,
			fmt.Sprintf("%s: Instantly has no record with that id", operation),
			nil,
		)
	case resp.StatusCode == http.StatusTooManyRequests:
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimited,
			fmt.Sprintf("%s: Instantly rate limit exceeded", operation),
			nil,
		)
	case resp.StatusCode >= 500:
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("%s: Instantly server error: %s", operation, errMsg),
			nil,
		)
	default:
		return types.NewAppError(
			types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("%s: Instantly error (%d): %s", operation, resp.StatusCode, errMsg),
			nil,
		)
	}
}

// wrapInstantlyError wraps a transport-level error with operation context.
func (c *InstantlyClient) wrapInstantlyError(operation string, err error) error {
	// An AppError from the transport (circuit open, retries exhausted)
	// already carries the right error code; pass it through untouched.
	if _, ok := err.(*types.AppError); ok {
		return err
	}
	return types.NewAppError(
		types.ErrCodeUpstreamEmailProvider,
		fmt.Sprintf("%s: Instantly request failed: %v", operation, err),
		err,
	)
}

// ---------------------------------------------------------------------------
// Interface Compliance
// ---------------------------------------------------------------------------

// Compile-time assertion that InstantlyClient satisfies CampaignProvider.
var _ CampaignProvider = (*InstantlyClient)(nil)
