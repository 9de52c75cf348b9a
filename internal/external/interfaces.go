package external

import (
	"context"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// ---------------------------------------------------------------------------
// Campaign/Inbox Integration (Instantly)
// ---------------------------------------------------------------------------

// CampaignProvider abstracts interactions with the campaign and inbox provider
// (Instantly.ai). Implementations translate between domain types and the
// provider's REST endpoints.
type CampaignProvider interface {
	// ResolveCampaign finds a campaign by its human-readable name. It pages
	// through the provider's campaign list and returns the first exact name
	// match, or a not-found error when no campaign carries that name.
	ResolveCampaign(ctx context.Context, name string) (*types.Campaign, error)

	// ListUnreadInbound retrieves unread messages scoped to the given campaign.
	// Outbound-direction messages are filtered out before returning, so every
	// element is a borrower message awaiting a reply.
	ListUnreadInbound(ctx context.Context, campaignID string) ([]types.InboundMessage, error)

	// GetEmail retrieves a single stored email by its provider id.
	GetEmail(ctx context.Context, emailID string) (*types.InboundMessage, error)

	// SubmitReply threads a reply onto an existing message. Returns the
	// provider's id for the submitted reply. The input must carry an eaccount;
	// the provider rejects replies without a sending mailbox.
	SubmitReply(ctx context.Context, input types.ReplyInput) (replyID string, err error)

	// SendEmail dispatches a standalone (non-thread) email. The provider has
	// no direct send endpoint, so implementations stage a single-recipient
	// campaign and activate it; the returned id is client-minted.
	SendEmail(ctx context.Context, input types.SendEmailInput) (emailID string, err error)
}

// ---------------------------------------------------------------------------
// Completion Integration (OpenAI)
// ---------------------------------------------------------------------------

// TextGenerator abstracts the completion service the reply composer uses for
// free-text acknowledgment lines. The composer's structural guarantees hold
// regardless of what a generator returns; implementations only need to
// produce plausible text or fail loudly.
type TextGenerator interface {
	// Generate produces completion text for the given prompts. An error or an
	// empty result is treated by callers as a generation failure for the
	// message being drafted, never as a batch failure.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Backend identifies the generator on drafts it produced
	// (a model name such as "gpt-4o", or "template").
	Backend() string
}
