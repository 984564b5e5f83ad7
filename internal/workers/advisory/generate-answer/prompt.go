package generateanswer

import (
	"fmt"
	"strings"

	"agri-evidence-workers/internal/evidence"
)

const maxExcerptRunes = 1200

// buildPrompt lays out numbered evidence, the reconciliation outcome and the
// question so the model can cite with [n] markers.
func buildPrompt(input *Input, formatter *evidence.CitationFormatter, extension string) string {
	var b strings.Builder

	b.WriteString("You are an agricultural advisory assistant. Answer using only the evidence below.\n\n")
	b.WriteString("[INSTRUCTIONS]\n")
	b.WriteString("1. Cite every claim with the source number in square brackets, e.g. [1].\n")
	b.WriteString("2. Where sources disagree, follow the reconciled guidance and say that sources differ.\n")
	b.WriteString("3. If the evidence is general, say: \"This is a national-level recommendation; local conditions may vary.\"\n")
	b.WriteString("4. Never invent data.\n")
	fmt.Fprintf(&b, "5. Refer farmers to %s for site-specific advice.\n\n", extension)

	b.WriteString("[CONTEXT EVIDENCE]\n")
	for i, src := range input.Sources {
		c := formatter.Cite(i+1, src)
		fmt.Fprintf(&b, "[%d] %s – %s", c.Number, c.Organization, c.Title)
		if c.Page != "" {
			fmt.Fprintf(&b, ", p. %s", c.Page)
		}
		b.WriteString("\n")
		b.WriteString(excerpt(src.Content))
		b.WriteString("\n\n")
	}

	if r := input.Reconciliation; r != nil && len(r.ConsensusRecommendations) > 0 {
		b.WriteString("[SOURCE AGREEMENT]\n")
		if r.Summary != "" {
			b.WriteString(r.Summary + "\n")
		}
		for _, entry := range r.ConsensusRecommendations {
			fmt.Fprintf(&b, "- %s (%s confidence): %s\n", entry.Topic, entry.Confidence, entry.Recommendation)
		}
		b.WriteString("\n")
	}

	if input.District != "" {
		fmt.Fprintf(&b, "[LOCATION]\n%s\n\n", input.District)
	}

	b.WriteString("[USER QUESTION]\n")
	b.WriteString(input.Query)
	b.WriteString("\n")
	return b.String()
}

func excerpt(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= maxExcerptRunes {
		return content
	}
	return string(runes[:maxExcerptRunes]) + "..."
}
