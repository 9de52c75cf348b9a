package intent

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

func TestLoadCatalog_Embedded(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("expected embedded catalog to load, got: %v", err)
	}

	entries := catalog.Entries()
	if len(entries) != 17 {
		t.Fatalf("expected 17 ranked intents, got %d", len(entries))
	}

	if entries[0].Label != "already paid" || entries[0].Rank != 1 {
		t.Errorf("expected rank 1 'already paid', got rank %d %q", entries[0].Rank, entries[0].Label)
	}
	if entries[16].Label != "wants draft noc" || entries[16].Rank != 17 {
		t.Errorf("expected rank 17 'wants draft noc', got rank %d %q", entries[16].Rank, entries[16].Label)
	}
}

func TestLoadCatalog_EntriesOrderedByRank(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	for i, e := range catalog.Entries() {
		if e.Rank != i+1 {
			t.Errorf("position %d: expected rank %d, got %d (%s)", i, i+1, e.Rank, e.Label)
		}
	}
}

func TestLoadCatalog_EveryEntryComplete(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	for _, e := range catalog.Entries() {
		if len(e.Cues) == 0 {
			t.Errorf("intent %q: no cues", e.Label)
		}
		if len(e.Bullets) == 0 {
			t.Errorf("intent %q: no bullets", e.Label)
		}
		if strings.TrimSpace(e.PrimaryCTA) == "" {
			t.Errorf("intent %q: empty primary CTA", e.Label)
		}
		if strings.TrimSpace(e.Ack) == "" {
			t.Errorf("intent %q: empty ack", e.Label)
		}
	}
}

// The table must never promise a NOC on a timeline. The composer also strips
// such lines at render time, but the shipped data has to be clean on its own.
func TestLoadCatalog_NoNOCTimelineInTable(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	nocRe := regexp.MustCompile(`(?i)\b(noc|closure (letter|certificate|proof)|proof of closure|no.objection)\b`)
	durationRe := regexp.MustCompile(`(?i)(\b\d+\s*(hour|day|week|month)s?\b|\bwithin\b|\btomorrow\b)`)

	entries := append(catalog.Entries(), catalog.Unclassified())
	for _, e := range entries {
		lines := append([]string{e.PrimaryCTA, e.Ack}, e.Bullets...)
		for _, line := range lines {
			if nocRe.MatchString(line) && durationRe.MatchString(line) {
				t.Errorf("intent %q: line ties NOC to a timeline: %q", e.Label, line)
			}
		}
	}
}

func TestCatalog_Lookup(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	entry, ok := catalog.Lookup("already paid")
	if !ok {
		t.Fatal("expected lookup of 'already paid' to succeed")
	}
	if entry.PrimaryCTA != "Please share the payment screenshot and UTR so we can verify and update you today." {
		t.Errorf("unexpected primary CTA: %q", entry.PrimaryCTA)
	}

	if _, ok := catalog.Lookup("no such intent"); ok {
		t.Error("expected lookup of unknown label to fail")
	}

	// The unclassified label resolves to the fallback entry.
	fallback, ok := catalog.Lookup(types.IntentUnclassified)
	if !ok {
		t.Fatal("expected unclassified lookup to succeed")
	}
	if fallback.Label != types.IntentUnclassified {
		t.Errorf("expected unclassified label, got %q", fallback.Label)
	}
	if len(fallback.Bullets) == 0 || fallback.PrimaryCTA == "" {
		t.Error("expected a complete fallback entry")
	}
}

func TestCatalog_EntriesReturnsCopy(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	first := catalog.Entries()
	first[0].Label = "mutated"

	second := catalog.Entries()
	if second[0].Label == "mutated" {
		t.Error("mutating the returned slice must not affect the catalog")
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	valid := func(overrideIntents string) string {
		unclassified := `
unclassified:
  ack: Thanks for writing in.
  bullets:
    - We will get back to you.
  primary_cta: Please share more detail.
`
		return overrideIntents + unclassified
	}

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			yaml:    "intents: [",
			wantErr: "parse",
		},
		{
			name:    "no intents",
			yaml:    valid("intents: []\n"),
			wantErr: "no intents",
		},
		{
			name: "rank gap",
			yaml: valid(`
intents:
  - {label: a, rank: 1, cues: [x], ack: hi, bullets: [b], primary_cta: do it}
  - {label: b, rank: 3, cues: [y], ack: hi, bullets: [b], primary_cta: do it}
`),
			wantErr: "not contiguous",
		},
		{
			name: "duplicate rank",
			yaml: valid(`
intents:
  - {label: a, rank: 1, cues: [x], ack: hi, bullets: [b], primary_cta: do it}
  - {label: b, rank: 1, cues: [y], ack: hi, bullets: [b], primary_cta: do it}
`),
			wantErr: "not contiguous",
		},
		{
			name: "duplicate label",
			yaml: valid(`
intents:
  - {label: a, rank: 1, cues: [x], ack: hi, bullets: [b], primary_cta: do it}
  - {label: a, rank: 2, cues: [y], ack: hi, bullets: [b], primary_cta: do it}
`),
			wantErr: "duplicate label",
		},
		{
			name: "ranked unclassified",
			yaml: valid(`
intents:
  - {label: unclassified, rank: 1, cues: [x], ack: hi, bullets: [b], primary_cta: do it}
`),
			wantErr: "may not appear",
		},
		{
			name: "no cues",
			yaml: valid(`
intents:
  - {label: a, rank: 1, cues: [], ack: hi, bullets: [b], primary_cta: do it}
`),
			wantErr: "no cues",
		},
		{
			name: "blank cue",
			yaml: valid(`
intents:
  - {label: a, rank: 1, cues: ["  "], ack: hi, bullets: [b], primary_cta: do it}
`),
			wantErr: "blank cue",
		},
		{
			name: "no bullets",
			yaml: valid(`
intents:
  - {label: a, rank: 1, cues: [x], ack: hi, bullets: [], primary_cta: do it}
`),
			wantErr: "no bullets",
		},
		{
			name: "empty primary cta",
			yaml: valid(`
intents:
  - {label: a, rank: 1, cues: [x], ack: hi, bullets: [b], primary_cta: ""}
`),
			wantErr: "empty primary CTA",
		},
		{
			name: "empty ack",
			yaml: valid(`
intents:
  - {label: a, rank: 1, cues: [x], ack: "", bullets: [b], primary_cta: do it}
`),
			wantErr: "empty ack",
		},
		{
			name: "missing unclassified block",
			yaml: `
intents:
  - {label: a, rank: 1, cues: [x], ack: hi, bullets: [b], primary_cta: do it}
`,
			wantErr: "unclassified",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCatalog([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intents.yaml")

	content := `
intents:
  - label: already paid
    rank: 1
    cues: [already paid]
    ack: Thanks for confirming.
    bullets:
      - We will verify within 24 hours.
    primary_cta: Please share the screenshot.
unclassified:
  ack: Thanks for writing in.
  bullets:
    - We will get back to you.
  primary_cta: Please share more detail.
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write catalog file: %v", err)
	}

	catalog, err := LoadCatalogFromFile(path)
	if err != nil {
		t.Fatalf("expected file catalog to load, got: %v", err)
	}
	if len(catalog.Entries()) != 1 {
		t.Errorf("expected 1 entry, got %d", len(catalog.Entries()))
	}
}

func TestLoadCatalogFromFile_Missing(t *testing.T) {
	_, err := LoadCatalogFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "intent catalog") {
		t.Errorf("expected intent catalog error, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Health Probe
// ---------------------------------------------------------------------------

func TestCatalog_HealthProbe(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	if catalog.Name() != "intent_catalog" {
		t.Errorf("expected probe name 'intent_catalog', got %q", catalog.Name())
	}
	if err := catalog.Check(context.Background()); err != nil {
		t.Errorf("expected healthy catalog, got: %v", err)
	}

	empty := &Catalog{}
	if err := empty.Check(context.Background()); err == nil {
		t.Error("expected unhealthy empty catalog, got nil")
	}
}
