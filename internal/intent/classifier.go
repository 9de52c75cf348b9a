package intent

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// Classifier matches borrower text against the catalog's cue phrases.
// Matching is deterministic: case-insensitive whole-phrase matching on word
// boundaries, so the cue "noc" does not match "knock" and "send link" still
// matches across a line break. When cues from several intents match, the
// lowest rank wins.
type Classifier struct {
	rules []rule
}

// rule carries one intent's compiled cue patterns, held in rank order.
type rule struct {
	label    types.IntentLabel
	patterns []*regexp.Regexp
}

// NewClassifier compiles the catalog's cues into matching rules. A cue that
// cannot compile is a startup error, same as an invalid catalog.
func NewClassifier(catalog *Catalog) (*Classifier, error) {
	entries := catalog.Entries()
	rules := make([]rule, 0, len(entries))
	for _, e := range entries {
		patterns := make([]*regexp.Regexp, 0, len(e.Cues))
		for _, cue := range e.Cues {
			re, err := compileCue(cue)
			if err != nil {
				return nil, fmt.Errorf("intent %q: cue %q: %w", e.Label, cue, err)
			}
			patterns = append(patterns, re)
		}
		rules = append(rules, rule{label: e.Label, patterns: patterns})
	}
	return &Classifier{rules: rules}, nil
}

// compileCue turns a cue phrase into a case-insensitive word-boundary
// pattern. Tokens are literal; gaps between them accept any whitespace run,
// which also collapses the message's own irregular spacing.
func compileCue(cue string) (*regexp.Regexp, error) {
	tokens := strings.Fields(cue)
	if len(tokens) == 0 {
		return nil, errors.New("empty cue")
	}
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = regexp.QuoteMeta(tok)
	}
	return regexp.Compile(`(?i)\b` + strings.Join(quoted, `\s+`) + `\b`)
}

// Classify returns the highest-priority intent whose cues match the message,
// or unclassified when nothing matches. Unclassified is a valid terminal
// outcome, not an error. The subject participates in matching alongside the
// body.
func (c *Classifier) Classify(subject, body string) types.IntentLabel {
	text := strings.TrimSpace(subject + "\n" + body)
	if text == "" {
		return types.IntentUnclassified
	}

	// Rules are in rank order, so the first matching rule is the winner.
	for _, r := range c.rules {
		for _, p := range r.patterns {
			if p.MatchString(text) {
				return r.label
			}
		}
	}
	return types.IntentUnclassified
}
