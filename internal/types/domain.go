package types

import "strings"

// Campaign is a named outbound email sequence configured in the provider.
// This service uses it only as a scope for inbound replies.
type Campaign struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// InboundMessage is one unread inbound email fetched from the provider.
// Immutable once fetched; owned transiently by a single processing pass.
type InboundMessage struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`

	// Lead is the sender address the provider associates with the thread.
	Lead    string `json:"lead"`
	Subject string `json:"subject"`

	// BodyText is the plain-text body; BodyHTML is the raw HTML body when
	// the provider stored one. Classification always runs on BodyText.
	BodyText string `json:"body_text"`
	BodyHTML string `json:"body_html,omitempty"`

	// EAccount is the provider-side mailbox the message arrived at, and the
	// mailbox any reply must be dispatched from.
	EAccount string `json:"eaccount"`

	// Outbound marks messages the provider stored for the outgoing direction
	// (ue_type == 1). Outbound messages are never replied to.
	Outbound bool `json:"outbound,omitempty"`

	// Context carries optional semantic key/value pairs (payment amount, due
	// date) attached by the caller before drafting. Nil when none supplied.
	Context map[string]string `json:"context,omitempty"`
}

// IntentLabel identifies one category from the fixed intent table.
type IntentLabel string

// IntentUnclassified is the terminal label for messages matching no cue set.
// It is a valid classification, not an error.
const IntentUnclassified IntentLabel = "unclassified"

// ReplyDraft is a fully composed reply for one inbound message.
// Produced fresh per message; never mutated after creation.
type ReplyDraft struct {
	Intent IntentLabel `json:"intent"`

	// Bullets are the next-step lines, in render order.
	Bullets []string `json:"bullets"`

	// PrimaryCTA is the intent-specific call to action; SecondaryCTA is the
	// fixed contact-channel line every reply ends with.
	PrimaryCTA   string `json:"primary_cta"`
	SecondaryCTA string `json:"secondary_cta"`

	// Text is the final rendered reply body.
	Text string `json:"text"`

	// Backend names the text-generation backend that produced the free-text
	// lines (e.g. "gpt-4o", "template").
	Backend string `json:"backend,omitempty"`
}

// HTML renders the reply body as minimal HTML: one paragraph with <br> line
// breaks. Empty when the draft has no text.
func (d ReplyDraft) HTML() string {
	if d.Text == "" {
		return ""
	}
	return "<p>" + strings.ReplaceAll(d.Text, "\n", "<br>") + "</p>"
}

// ProcessingStatus is the outcome of one message within a batch.
type ProcessingStatus string

const (
	// StatusGeneratedOnly means a draft was composed but not submitted.
	StatusGeneratedOnly ProcessingStatus = "generated_only"
	// StatusReplied means the draft was submitted into the message's thread.
	StatusReplied ProcessingStatus = "replied"
	// StatusFailed means generation or submission failed for this message.
	StatusFailed ProcessingStatus = "failed"
)

// ProcessingResult is the per-message record inside a batch report.
// Discarded after being returned to the caller; nothing is persisted.
type ProcessingResult struct {
	EmailID string           `json:"email_id"`
	Lead    string           `json:"lead"`
	Status  ProcessingStatus `json:"status"`
	Intent  IntentLabel      `json:"intent,omitempty"`
	Reply   string           `json:"reply,omitempty"`
	ReplyID string           `json:"reply_id,omitempty"`

	// Backend names the generator behind the draft. Operator-facing messages
	// only; never serialized into result payloads.
	Backend string `json:"-"`

	// Err holds the failure for StatusFailed results. Serialized by the API
	// layer as a plain string; never exposed as a structured error envelope.
	Err error `json:"-"`
}

// BatchReport aggregates one processing pass over a campaign's unread inbox.
type BatchReport struct {
	CampaignID   string             `json:"campaign_id"`
	CampaignName string             `json:"campaign_name"`
	TotalEmails  int                `json:"total_emails"`
	Processed    int                `json:"processed"`
	Results      []ProcessingResult `json:"results"`
}

// ReplyInput carries everything the provider needs to thread a reply.
type ReplyInput struct {
	// ReplyToID is the provider id of the message being replied to.
	ReplyToID string
	// EAccount is the mailbox the reply is dispatched from. The provider
	// rejects submissions without one.
	EAccount string
	Subject  string
	BodyText string
	BodyHTML string
}

// SendEmailInput carries the fields for a standalone (non-thread) send.
type SendEmailInput struct {
	To       string
	Subject  string
	BodyText string
	BodyHTML string
	EAccount string
}
