package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/legal-case-assistant/internal/core/domain"
)

const promptRules = `You are a legal assistant helping with case analysis. You MUST follow these rules:

1. You may ONLY cite the sources listed below, by their exact identifier.
2. Every factual claim MUST be supported by a citation with a verbatim quoted excerpt.
3. If the information is not in the listed sources, reply exactly:
   "This information does not appear in the current case documents or permitted legal sources."
4. NEVER invent sources or identifiers that are not listed below.
5. End your answer with a line "CITATIONS:" followed by a JSON array of objects:
   {"source_id": "...", "source_type": "client"|"legal", "url": "...", "file_name": "...", "page": 0, "excerpt": "verbatim quote"}
   Use an empty array [] only for the no-information reply.`

// buildAnswerPrompt lists every permitted source with its identifier and the
// structural citation contract. The text shown here is the same text the
// validator checks against; only the shared whitespace normalization sits
// between the two.
func buildAnswerPrompt(
	question string,
	evidence []domain.EvidenceItem,
	sources []domain.LegalSnapshot,
	sessionContext string,
	whitelist domain.Whitelist,
) string {
	var b strings.Builder
	b.WriteString(promptRules)
	b.WriteString("\n\n")

	if sessionContext != "" {
		b.WriteString("CASE CONTEXT (advisory, from previous analysis — do not cite):\n")
		b.WriteString(sessionContext)
		b.WriteString("\n\n")
	}

	if len(evidence) > 0 {
		b.WriteString("CLIENT DOCUMENTS (citable, source_type \"client\"):\n")
		for _, item := range evidence {
			location := fmt.Sprintf("page %d", item.Page)
			if item.Page == 0 {
				location = fmt.Sprintf("paragraph %d", item.Paragraph)
			}
			fmt.Fprintf(&b, "\n[%s] file: %s, %s\n%s\n", item.ChunkID, item.FileName, location, item.Text)
		}
		b.WriteString("\n")
	}

	if len(sources) > 0 {
		fmt.Fprintf(&b, "LEGAL SOURCES (citable, source_type \"legal\"; whitelisted domains: %s):\n", whitelist)
		for _, snap := range sources {
			fmt.Fprintf(&b, "\n[%s] url: %s\ntitle: %s\n%s\n", snap.ID, snap.URL, snap.Title, truncate(snap.Text, 3000))
		}
		b.WriteString("\n")
	}

	b.WriteString("QUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n")
	return b.String()
}

// buildStricterPrompt prefixes the regeneration attempt with the previous
// attempt's validation failures, verbatim, so the model sees concrete
// feedback.
func buildStricterPrompt(basePrompt string, failures []string) string {
	var b strings.Builder
	b.WriteString("IMPORTANT: your previous response had citation errors that MUST be fixed:\n")
	for _, failure := range failures {
		b.WriteString("- ")
		b.WriteString(failure)
		b.WriteString("\n")
	}
	b.WriteString(`
Only quote text that appears EXACTLY in the listed sources. If you cannot find
a supporting quote, do not cite that source; prefer the no-information reply
over an unverifiable citation.

`)
	b.WriteString(basePrompt)
	return b.String()
}

// sessionContext formats the rolling summary and recent facts as advisory
// prompt context. Session state is never a citable source.
func sessionContext(state *domain.SessionState) string {
	if state == nil {
		return ""
	}
	var parts []string

	summary := state.RollingSummary
	if summary.ClientBackground != "" {
		parts = append(parts, "Client background:\n"+summary.ClientBackground)
	}
	if len(summary.KeyChronology) > 0 {
		parts = append(parts, "Key chronology:\n- "+strings.Join(summary.KeyChronology, "\n- "))
	}
	if len(summary.LegalIssues) > 0 {
		parts = append(parts, "Legal issues identified:\n- "+strings.Join(summary.LegalIssues, "\n- "))
	}
	if len(state.RetrievedFacts) > 0 {
		recent := state.RetrievedFacts
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		parts = append(parts, "Recently retrieved facts:\n- "+strings.Join(recent, "\n- "))
	}
	return strings.Join(parts, "\n\n")
}
