package reply

import (
	"strings"
	"testing"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

func TestSystemPrompt_InterpolatesIdentity(t *testing.T) {
	prompt := systemPrompt("Acme Collections", "care@acme.example")

	for _, want := range []string{
		"Acme Collections's empathetic borrower-support assistant",
		"care@acme.example",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected system prompt to contain %q", want)
		}
	}
}

// The skeleton owns both CTAs. A prompt that asks the model for the closing
// CTA makes every well-behaved completion arrive with a duplicate.
func TestSystemPrompt_LeavesCTAsToAssembly(t *testing.T) {
	prompt := systemPrompt("Acme Collections", "care@acme.example")

	if strings.Contains(prompt, secondaryCTA) {
		t.Error("expected the system prompt not to quote the closing CTA")
	}
	if strings.Contains(prompt, "whatsapp") {
		t.Error("expected the system prompt not to mention the WhatsApp contact")
	}
}

func TestUserPrompt_OmitsEmptySections(t *testing.T) {
	msg := types.InboundMessage{BodyText: "Hello."}
	prompt := userPrompt("emotional", "Rahul", msg)

	if strings.Contains(prompt, "Email Subject:") {
		t.Error("expected no subject line for a message without one")
	}
	if strings.Contains(prompt, "Additional Context:") {
		t.Error("expected no context section for a message without context")
	}
	if !strings.HasPrefix(prompt, "Intent: emotional\n") {
		t.Errorf("expected the intent line first, got: %q", firstLine(prompt))
	}
}

func TestUserPrompt_SortsContextKeys(t *testing.T) {
	msg := types.InboundMessage{
		BodyText: "Hello.",
		Context:  map[string]string{"zeta": "1", "alpha": "2", "mid_key": "3"},
	}
	prompt := userPrompt("emotional", "Rahul", msg)

	alpha := strings.Index(prompt, "- Alpha: 2")
	mid := strings.Index(prompt, "- Mid Key: 3")
	zeta := strings.Index(prompt, "- Zeta: 1")
	if alpha == -1 || mid == -1 || zeta == -1 {
		t.Fatalf("expected all context lines present:\n%s", prompt)
	}
	if !(alpha < mid && mid < zeta) {
		t.Error("expected context keys in sorted order")
	}
}

func TestTitleKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "total_due", want: "Total Due"},
		{in: "name", want: "Name"},
		{in: "due date", want: "Due Date"},
		{in: "loan_id_last4", want: "Loan Id Last4"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := titleKey(tt.in); got != tt.want {
			t.Errorf("titleKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
