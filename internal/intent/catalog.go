// Package intent holds the ranked borrower-intent table and the classifier
// that matches inbound messages against it. The table is data: an embedded
// YAML document parsed once at startup, overridable by file for operators.
package intent

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"

	"gopkg.in/yaml.v3"
)

//go:embed intents.yaml
var embeddedTable []byte

// Entry is one row of the ranked intent table. Rank 1 is the highest
// priority and wins ties during classification.
type Entry struct {
	Label      types.IntentLabel `yaml:"label"`
	Rank       int               `yaml:"rank"`
	Cues       []string          `yaml:"cues"`
	Ack        string            `yaml:"ack"`
	Bullets    []string          `yaml:"bullets"`
	PrimaryCTA string            `yaml:"primary_cta"`
}

// Catalog is the parsed, validated intent table. Read-only after load; safe
// for concurrent use.
type Catalog struct {
	entries      []Entry // sorted by rank ascending
	byLabel      map[types.IntentLabel]Entry
	unclassified Entry
}

type catalogFile struct {
	Intents      []Entry            `yaml:"intents"`
	Unclassified unclassifiedRecord `yaml:"unclassified"`
}

type unclassifiedRecord struct {
	Ack        string   `yaml:"ack"`
	Bullets    []string `yaml:"bullets"`
	PrimaryCTA string   `yaml:"primary_cta"`
}

// LoadCatalog parses the embedded intent table.
func LoadCatalog() (*Catalog, error) {
	return parseCatalog(embeddedTable)
}

// LoadCatalogFromFile parses an operator-supplied intent table. The file
// replaces the embedded table wholesale; there is no merging.
func LoadCatalogFromFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("intent catalog: read %s: %w", path, err)
	}
	return parseCatalog(raw)
}

func parseCatalog(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("intent catalog: parse: %w", err)
	}

	if len(file.Intents) == 0 {
		return nil, errors.New("intent catalog: no intents defined")
	}

	entries := make([]Entry, len(file.Intents))
	copy(entries, file.Intents)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })

	byLabel := make(map[types.IntentLabel]Entry, len(entries))
	for i, e := range entries {
		if err := validateEntry(e); err != nil {
			return nil, fmt.Errorf("intent catalog: %w", err)
		}
		// Ranks must be contiguous from 1; a gap or duplicate means the
		// table was edited carelessly and the priority order is undefined.
		if e.Rank != i+1 {
			return nil, fmt.Errorf("intent catalog: ranks not contiguous from 1 (found rank %d at position %d)", e.Rank, i+1)
		}
		if e.Label == types.IntentUnclassified {
			return nil, fmt.Errorf("intent catalog: %q may not appear in the ranked table", types.IntentUnclassified)
		}
		if _, dup := byLabel[e.Label]; dup {
			return nil, fmt.Errorf("intent catalog: duplicate label %q", e.Label)
		}
		byLabel[e.Label] = e
	}

	unclassified := Entry{
		Label:      types.IntentUnclassified,
		Ack:        file.Unclassified.Ack,
		Bullets:    file.Unclassified.Bullets,
		PrimaryCTA: file.Unclassified.PrimaryCTA,
	}
	if err := validateUnclassified(unclassified); err != nil {
		return nil, fmt.Errorf("intent catalog: %w", err)
	}

	return &Catalog{
		entries:      entries,
		byLabel:      byLabel,
		unclassified: unclassified,
	}, nil
}

func validateEntry(e Entry) error {
	if strings.TrimSpace(string(e.Label)) == "" {
		return fmt.Errorf("rank %d: empty label", e.Rank)
	}
	if len(e.Cues) == 0 {
		return fmt.Errorf("intent %q: no cues", e.Label)
	}
	for _, cue := range e.Cues {
		if strings.TrimSpace(cue) == "" {
			return fmt.Errorf("intent %q: blank cue", e.Label)
		}
	}
	if len(e.Bullets) == 0 {
		return fmt.Errorf("intent %q: no bullets", e.Label)
	}
	if strings.TrimSpace(e.PrimaryCTA) == "" {
		return fmt.Errorf("intent %q: empty primary CTA", e.Label)
	}
	if strings.TrimSpace(e.Ack) == "" {
		return fmt.Errorf("intent %q: empty ack line", e.Label)
	}
	return nil
}

func validateUnclassified(e Entry) error {
	if len(e.Bullets) == 0 {
		return errors.New("unclassified: no bullets")
	}
	if strings.TrimSpace(e.PrimaryCTA) == "" {
		return errors.New("unclassified: empty primary CTA")
	}
	if strings.TrimSpace(e.Ack) == "" {
		return errors.New("unclassified: empty ack line")
	}
	return nil
}

// Entries returns the ranked table in priority order (rank 1 first).
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup returns the entry for a label. The unclassified label resolves to
// the fallback entry.
func (c *Catalog) Lookup(label types.IntentLabel) (Entry, bool) {
	if label == types.IntentUnclassified {
		return c.unclassified, true
	}
	e, ok := c.byLabel[label]
	return e, ok
}

// Unclassified returns the fallback entry for messages matching no cue set.
func (c *Catalog) Unclassified() Entry {
	return c.unclassified
}

// ---------------------------------------------------------------------------
// Health Probe
// ---------------------------------------------------------------------------

// Name identifies the catalog on the health endpoint.
func (c *Catalog) Name() string { return "intent_catalog" }

// Check reports whether a validated table is loaded. The catalog is
// immutable after startup, so an unhealthy result here means the process
// booted in a state that should have been fatal.
func (c *Catalog) Check(ctx context.Context) error {
	if len(c.entries) == 0 {
		return errors.New("intent catalog is empty")
	}
	return nil
}
