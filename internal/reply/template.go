package reply

import (
	"context"
	"strings"

	"github.com/Abhishek-cmd13/Emailautomation/internal/external"
	"github.com/Abhishek-cmd13/Emailautomation/internal/intent"
	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// BackendTemplate is the backend identifier recorded on drafts produced
// without a completion API.
const BackendTemplate = "template"

// Compile-time interface compliance check.
var _ external.TextGenerator = (*TemplateGenerator)(nil)

// TemplateGenerator produces acknowledgment lines from the intent catalog
// instead of calling a completion API. It backs deployments that run without
// an OpenAI key and keeps draft output reproducible. The generator recovers
// the intent from the prompt's leading "Intent:" line, so it honors the same
// Generate contract as the network-backed implementation.
type TemplateGenerator struct {
	acks     map[types.IntentLabel]string
	fallback string
}

// NewTemplateGenerator builds a TemplateGenerator over the catalog's
// acknowledgment lines.
func NewTemplateGenerator(catalog *intent.Catalog) *TemplateGenerator {
	acks := make(map[types.IntentLabel]string, len(catalog.Entries()))
	for _, e := range catalog.Entries() {
		acks[e.Label] = e.Ack
	}
	return &TemplateGenerator{
		acks:     acks,
		fallback: catalog.Unclassified().Ack,
	}
}

// Generate returns the catalog acknowledgment for the intent named in the
// user prompt. The system prompt is ignored; there is no model to steer.
func (g *TemplateGenerator) Generate(_ context.Context, _ string, userPrompt string) (string, error) {
	if ack, ok := g.acks[parseIntentLine(userPrompt)]; ok {
		return ack, nil
	}
	return g.fallback, nil
}

// Backend reports the identifier recorded on drafts.
func (g *TemplateGenerator) Backend() string {
	return BackendTemplate
}

// parseIntentLine extracts the intent label from the prompt's first line.
// Prompts without the prefix resolve to the unclassified fallback.
func parseIntentLine(prompt string) types.IntentLabel {
	line := prompt
	if i := strings.IndexByte(prompt, '\n'); i >= 0 {
		line = prompt[:i]
	}
	rest, ok := strings.CutPrefix(line, intentPromptPrefix)
	if !ok {
		return types.IntentUnclassified
	}
	return types.IntentLabel(strings.TrimSpace(rest))
}
