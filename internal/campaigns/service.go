// Package campaigns orchestrates processing passes over a campaign's unread
// inbox: resolve the campaign, fetch unread borrower messages, classify and
// draft a reply for each, and submit the drafts back into their threads.
package campaigns

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Abhishek-cmd13/Emailautomation/internal/external"
	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// DefaultMaxParallelDrafts bounds concurrent classify+compose work per batch.
// Drafting is the slow step (one completion round trip per message); submission
// stays sequential to respect the provider's pacing.
const DefaultMaxParallelDrafts = 4

// Classifier assigns an intent label to one borrower message.
type Classifier interface {
	Classify(subject, body string) types.IntentLabel
}

// Composer drafts the reply for one classified message.
type Composer interface {
	Compose(ctx context.Context, msg types.InboundMessage, label types.IntentLabel, borrowerName string) (types.ReplyDraft, error)
}

// ProcessInput describes one batch pass over a campaign.
type ProcessInput struct {
	CampaignName string

	// AutoReply submits each draft into its thread. When false, drafts are
	// composed and reported but nothing is sent.
	AutoReply bool

	// BorrowerName, when set, addresses every reply in the batch to this name
	// instead of the generic fallback.
	BorrowerName string

	// Context is attached to every message before drafting.
	Context map[string]string
}

// AutoReplyInput describes a single-message draft-and-optionally-send pass.
type AutoReplyInput struct {
	EmailID      string
	BorrowerName string
	Context      map[string]string

	// AutoSend submits the draft into the thread. When false the draft is
	// returned without touching the provider's outbound side.
	AutoSend bool
}

// GenerateInput describes a standalone draft request with no provider lookup.
type GenerateInput struct {
	EmailBody    string
	Subject      string
	BorrowerName string
	Context      map[string]string
}

// ServiceConfig holds the collaborators for a Service.
type ServiceConfig struct {
	Provider   external.CampaignProvider
	Classifier Classifier
	Composer   Composer

	// MaxParallelDrafts bounds concurrent drafting. Zero means
	// DefaultMaxParallelDrafts.
	MaxParallelDrafts int

	Logger *slog.Logger
}

// Service runs the classify-compose-submit pipeline. It keeps no state
// between passes; idempotence rests entirely on the provider's unread flags.
type Service struct {
	provider    external.CampaignProvider
	classifier  Classifier
	composer    Composer
	maxParallel int
	logger      *slog.Logger
}

// NewService creates a Service. Zero-value config fields fall back to
// defaults.
func NewService(cfg ServiceConfig) *Service {
	maxParallel := cfg.MaxParallelDrafts
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallelDrafts
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider:    cfg.Provider,
		classifier:  cfg.Classifier,
		composer:    cfg.Composer,
		maxParallel: maxParallel,
		logger:      logger,
	}
}

// draftSlot carries one message's drafting outcome from the parallel phase
// into the sequential submission phase.
type draftSlot struct {
	draft types.ReplyDraft
	err   error
}

// ProcessCampaign runs one pass over the campaign's unread inbox.
//
// A campaign that does not resolve aborts the whole request. Everything after
// that point is isolated per message: a failed draft or submission is recorded
// in that message's result and the batch continues. Drafting runs in parallel
// (bounded by MaxParallelDrafts); submissions run sequentially in fetch order
// so each reply lands in its own thread at the provider's pace.
//
// Processed counts successful submissions only, so it stays zero when
// AutoReply is false. An empty inbox yields TotalEmails 0 and an empty (never
// nil) Results slice.
func (s *Service) ProcessCampaign(ctx context.Context, input ProcessInput) (types.BatchReport, error) {
	campaign, err := s.provider.ResolveCampaign(ctx, input.CampaignName)
	if err != nil {
		return types.BatchReport{}, err
	}

	messages, err := s.provider.ListUnreadInbound(ctx, campaign.ID)
	if err != nil {
		return types.BatchReport{}, err
	}

	report := types.BatchReport{
		CampaignID:   campaign.ID,
		CampaignName: campaign.Name,
		TotalEmails:  len(messages),
		Results:      []types.ProcessingResult{},
	}

	s.logger.Info("processing campaign inbox",
		"campaign_id", campaign.ID,
		"campaign_name", campaign.Name,
		"unread", len(messages),
		"auto_reply", input.AutoReply,
	)

	if len(messages) == 0 {
		return report, nil
	}

	slots := s.draftAll(ctx, messages, input)

	processed := 0
	results := make([]types.ProcessingResult, 0, len(messages))
	for i, msg := range messages {
		res := types.ProcessingResult{EmailID: msg.ID, Lead: msg.Lead}

		slot := slots[i]
		if slot.err != nil {
			res.Status = types.StatusFailed
			res.Err = slot.err
			s.logger.Warn("draft failed",
				"email_id", msg.ID,
				"error", slot.err,
			)
			results = append(results, res)
			continue
		}

		res.Intent = slot.draft.Intent
		res.Reply = slot.draft.Text
		res.Backend = slot.draft.Backend

		if !input.AutoReply {
			res.Status = types.StatusGeneratedOnly
			results = append(results, res)
			continue
		}

		replyID, err := s.provider.SubmitReply(ctx, types.ReplyInput{
			ReplyToID: msg.ID,
			EAccount:  msg.EAccount,
			Subject:   msg.Subject,
			BodyText:  slot.draft.Text,
			BodyHTML:  slot.draft.HTML(),
		})
		if err != nil {
			res.Status = types.StatusFailed
			res.Err = err
			s.logger.Warn("reply submission failed",
				"email_id", msg.ID,
				"error", err,
			)
			results = append(results, res)
			continue
		}

		res.Status = types.StatusReplied
		res.ReplyID = replyID
		processed++
		results = append(results, res)
	}

	report.Processed = processed
	report.Results = results

	s.logger.Info("campaign inbox processed",
		"campaign_id", campaign.ID,
		"total", report.TotalEmails,
		"processed", report.Processed,
	)
	return report, nil
}

// draftAll classifies and composes a reply for every message, in parallel.
// Results come back index-aligned with messages so submission can preserve
// fetch order. Failures stay in their slot; no message's error cancels the
// group.
func (s *Service) draftAll(ctx context.Context, messages []types.InboundMessage, input ProcessInput) []draftSlot {
	slots := make([]draftSlot, len(messages))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)

	for i, msg := range messages {
		i, msg := i, msg
		g.Go(func() error {
			if input.Context != nil {
				msg.Context = input.Context
			}
			// Without a caller-supplied name the greeting addresses the lead.
			name := input.BorrowerName
			if name == "" {
				name = msg.Lead
			}
			label := s.classifier.Classify(msg.Subject, msg.BodyText)
			draft, err := s.composer.Compose(gCtx, msg, label, name)
			slots[i] = draftSlot{draft: draft, err: err}
			return nil
		})
	}

	// Goroutines never return errors; drafting failures live in their slot.
	_ = g.Wait()

	return slots
}

// AutoReplyToEmail drafts a reply for one stored email and, when AutoSend is
// set, submits it into the thread. Unlike the batch path, failures here
// propagate as errors: there is no batch to keep alive.
func (s *Service) AutoReplyToEmail(ctx context.Context, input AutoReplyInput) (types.ProcessingResult, error) {
	msg, err := s.provider.GetEmail(ctx, input.EmailID)
	if err != nil {
		return types.ProcessingResult{}, err
	}

	if input.Context != nil {
		msg.Context = input.Context
	}

	label := s.classifier.Classify(msg.Subject, msg.BodyText)
	draft, err := s.composer.Compose(ctx, *msg, label, input.BorrowerName)
	if err != nil {
		return types.ProcessingResult{}, err
	}

	res := types.ProcessingResult{
		EmailID: msg.ID,
		Lead:    msg.Lead,
		Intent:  draft.Intent,
		Reply:   draft.Text,
		Backend: draft.Backend,
		Status:  types.StatusGeneratedOnly,
	}

	if !input.AutoSend {
		return res, nil
	}

	replyID, err := s.provider.SubmitReply(ctx, types.ReplyInput{
		ReplyToID: msg.ID,
		EAccount:  msg.EAccount,
		Subject:   msg.Subject,
		BodyText:  draft.Text,
		BodyHTML:  draft.HTML(),
	})
	if err != nil {
		return types.ProcessingResult{}, err
	}

	res.Status = types.StatusReplied
	res.ReplyID = replyID
	return res, nil
}

// GenerateReply classifies and drafts a reply for caller-supplied text
// without touching the provider. Used for previews and offline tooling.
func (s *Service) GenerateReply(ctx context.Context, input GenerateInput) (types.ReplyDraft, error) {
	msg := types.InboundMessage{
		Subject:  input.Subject,
		BodyText: input.EmailBody,
		Context:  input.Context,
	}
	label := s.classifier.Classify(input.Subject, input.EmailBody)
	return s.composer.Compose(ctx, msg, label, input.BorrowerName)
}
