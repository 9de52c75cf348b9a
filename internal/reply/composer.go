package reply

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Abhishek-cmd13/Emailautomation/internal/external"
	"github.com/Abhishek-cmd13/Emailautomation/internal/intent"
	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// secondaryCTA closes every reply, byte for byte, regardless of intent.
const secondaryCTA = "Any query you can whatsapp us on +91 99024 05551."

// maxFreeTextLines caps how much of the generated acknowledgment survives
// into the reply. Together with the fixed greeting and the two CTAs this
// keeps the non-bullet line count between three and five.
const maxFreeTextLines = 2

var (
	// nocTermRe matches mentions of the NOC or an equivalent closure document.
	nocTermRe = regexp.MustCompile(`(?i)\b(noc|no[\s-]objection(\s+certificate)?|closure\s+(letter|certificate|proof)|proof\s+of\s+closure)\b`)

	// nocTimelineRe matches timeframe phrasing: counted durations, "within",
	// vague durations, and near-term date words.
	nocTimelineRe = regexp.MustCompile(`(?i)\b\d+\s*(hour|day|week|month|business\s+day)s?\b` +
		`|\bwithin\b` +
		`|\b(a|few|couple\s+of)\s+(day|week|month)s?\b` +
		`|\b(today|tonight|tomorrow|soon|shortly|immediately|next\s+(week|month))\b`)

	// greetingRe matches a salutation-shaped line with or without terminal
	// punctuation, e.g. "Hi Rahul,", "Hello Rahul" or "Dear Rahul!".
	greetingRe = regexp.MustCompile(`(?i)^(hi|hello|dear)\b[^,.!?]*[,.!]?$`)
)

// Composer assembles borrower replies: a greeting, the generated
// acknowledgment (at most two lines), the intent's next-step bullets, its
// primary CTA, and the shared secondary CTA. Only the acknowledgment comes
// from the text backend; everything else is table-driven, so the reply
// skeleton for a given intent is reproducible.
type Composer struct {
	catalog   *intent.Catalog
	generator external.TextGenerator
	company   string
	support   string
	logger    *slog.Logger
}

// ComposerConfig holds the parameters needed to construct a Composer.
type ComposerConfig struct {
	Catalog   *intent.Catalog
	Generator external.TextGenerator

	// CompanyName brands the completion persona. Defaults to "Riverline".
	CompanyName string

	// SupportEmail is the sender identity named in the persona prompt.
	SupportEmail string

	Logger *slog.Logger
}

// NewComposer creates a Composer. Zero-value config fields fall back to the
// production defaults.
func NewComposer(cfg ComposerConfig) *Composer {
	company := cfg.CompanyName
	if company == "" {
		company = "Riverline"
	}
	support := cfg.SupportEmail
	if support == "" {
		support = "support@riverline.com"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		catalog:   cfg.Catalog,
		generator: cfg.Generator,
		company:   company,
		support:   support,
		logger:    logger,
	}
}

// Compose drafts the reply for one inbound message. Unknown intents resolve
// to the unclassified fallback entry rather than failing. Every candidate
// line, generated or table-sourced, passes the NOC timeline filter before
// assembly. A generator error fails only this draft; callers decide what
// that means for the batch.
func (c *Composer) Compose(ctx context.Context, msg types.InboundMessage, label types.IntentLabel, borrowerName string) (types.ReplyDraft, error) {
	entry, ok := c.catalog.Lookup(label)
	if !ok {
		entry = c.catalog.Unclassified()
	}
	label = entry.Label

	name := strings.TrimSpace(borrowerName)
	if name == "" {
		name = defaultBorrowerName
	}

	text, err := c.generator.Generate(ctx, systemPrompt(c.company, c.support), userPrompt(label, name, msg))
	if err != nil {
		return types.ReplyDraft{}, types.NewAppError(
			types.ErrCodeGenerationFailed,
			"reply generation failed",
			err,
		)
	}

	free := c.freeTextLines(label, text)
	bullets, primaryCTA := c.tableLines(entry)

	sections := make([][]string, 0, 4)
	sections = append(sections, []string{"Hi " + name + ","})
	if len(free) > 0 {
		sections = append(sections, free)
	}
	if len(bullets) > 0 {
		marked := make([]string, len(bullets))
		for i, bl := range bullets {
			marked[i] = "- " + bl
		}
		sections = append(sections, marked)
	}
	closing := []string{secondaryCTA}
	if primaryCTA != "" {
		closing = []string{primaryCTA, secondaryCTA}
	}
	sections = append(sections, closing)

	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = strings.Join(s, "\n")
	}

	draft := types.ReplyDraft{
		Intent:       label,
		Bullets:      bullets,
		PrimaryCTA:   primaryCTA,
		SecondaryCTA: secondaryCTA,
		Text:         strings.Join(parts, "\n\n"),
		Backend:      c.generator.Backend(),
	}

	c.logger.Debug("reply composed",
		"intent", label,
		"backend", draft.Backend,
		"free_lines", len(free),
	)
	return draft, nil
}

// freeTextLines cleans the generated acknowledgment. Generated text
// contributes plain acknowledgment lines only: blanks, salutations, and
// list markers are assembly concerns and are dropped, as is any line that
// ties the NOC to a timeframe. A copy of the secondary CTA is stripped
// wherever it appears; the skeleton appends the real one. The survivors
// are clipped to maxFreeTextLines.
func (c *Composer) freeTextLines(label types.IntentLabel, text string) []string {
	kept := make([]string, 0, maxFreeTextLines)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, secondaryCTA) {
			line = strings.TrimSpace(strings.ReplaceAll(line, secondaryCTA, ""))
		}
		switch {
		case line == "":
			continue
		case greetingRe.MatchString(line):
			continue
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "), strings.HasPrefix(line, "• "):
			continue
		case tiesNOCToTimeline(line):
			c.logger.Warn("dropped generated line promising the NOC on a timeline",
				"intent", label,
			)
			continue
		}
		kept = append(kept, line)
		if len(kept) == maxFreeTextLines {
			break
		}
	}
	return kept
}

// tableLines screens the entry's bullets and primary CTA through the NOC
// timeline filter. The embedded table is authored clean; a table loaded
// through the file override carries no such guarantee.
func (c *Composer) tableLines(entry intent.Entry) ([]string, string) {
	var bullets []string
	for _, bl := range entry.Bullets {
		if tiesNOCToTimeline(bl) {
			c.logger.Warn("dropped table bullet promising the NOC on a timeline",
				"intent", entry.Label,
			)
			continue
		}
		bullets = append(bullets, bl)
	}
	primaryCTA := entry.PrimaryCTA
	if tiesNOCToTimeline(primaryCTA) {
		c.logger.Warn("dropped primary CTA promising the NOC on a timeline",
			"intent", entry.Label,
		)
		primaryCTA = ""
	}
	return bullets, primaryCTA
}

// tiesNOCToTimeline reports whether a line mentions the closure certificate
// together with a timeframe. Either alone is acceptable.
func tiesNOCToTimeline(line string) bool {
	return nocTermRe.MatchString(line) && nocTimelineRe.MatchString(line)
}
