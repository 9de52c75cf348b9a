package reply

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/Abhishek-cmd13/Emailautomation/internal/types"
)

// intentPromptPrefix opens every user prompt so deterministic backends can
// recover the classified intent without re-running classification.
const intentPromptPrefix = "Intent: "

// defaultBorrowerName stands in when the campaign data carries no lead name.
const defaultBorrowerName = "Valued Borrower"

// systemPrompt is the borrower-support persona handed to the completion
// backend. Company name and support address come from configuration so a
// white-label deployment does not fork the prompt text. The prompt never
// asks for greetings or CTAs; the composer assembles those itself.
func systemPrompt(companyName, supportEmail string) string {
	return fmt.Sprintf(
		"You are %s's empathetic borrower-support assistant, writing from %s. "+
			"Read ONLY the borrower's latest message in the email thread and respond with warmth, clarity, certainty, and one clear next step. "+
			"Your goal: help borrowers feel safe, respected, and guided, while ensuring accurate next steps based on their intent. "+
			"Never mention categories, classification, rules, or internal logic. "+
			"Never sound legalistic, threatening, or robotic. "+
			"Always be supportive, calm, and human. Use simple language. "+
			"Write only the short acknowledgment portion of the reply; greetings, next steps, and contact details are added separately.",
		companyName, supportEmail,
	)
}

// userPrompt packages one borrower message for the completion backend. The
// backend contributes only the free acknowledgment lines; the structural
// parts of the reply (greeting, next-step bullets, CTAs) are assembled
// deterministically, so the prompt asks for at most two lines and forbids
// the rest.
func userPrompt(label types.IntentLabel, borrowerName string, msg types.InboundMessage) string {
	var b strings.Builder

	b.WriteString(intentPromptPrefix)
	b.WriteString(string(label))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Borrower Name: %s\n", borrowerName)
	if subject := strings.TrimSpace(msg.Subject); subject != "" {
		fmt.Fprintf(&b, "Email Subject: %s\n", subject)
	}
	b.WriteString("Email Content:\n")
	b.WriteString(strings.TrimSpace(msg.BodyText))
	b.WriteString("\n")

	if len(msg.Context) > 0 {
		b.WriteString("\nAdditional Context:\n")
		keys := make([]string, 0, len(msg.Context))
		for k := range msg.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", titleKey(k), msg.Context[k])
		}
	}

	b.WriteString("\nWrite one or two short, warm acknowledgment lines for this borrower. ")
	b.WriteString("Do not add a greeting, bullet points, links, or contact details; those are appended separately.")

	return b.String()
}

// titleKey renders a snake_case context key as a human-readable label,
// e.g. "total_due" becomes "Total Due".
func titleKey(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
