package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/inquest-cli/internal/core/domain"
)

var (
	// answerRefRe matches inline reference markers an answer may carry.
	answerRefRe = regexp.MustCompile(`(?i)\[\d+\.\d+\]|\[ref:\s*\d+\]|\[chunk\s*\d+\]`)

	// blankRunRe collapses runs of blank lines left by completions.
	blankRunRe = regexp.MustCompile(`\n{3,}`)

	// attributionRe detects attributed speech in an answer.
	attributionRe = regexp.MustCompile(`@\w+|\w+\s+said`)
)

// basicVerification runs the cheap answer checks used for non-exhaustive
// queries: blockquote and reference-marker counts plus a few advisory
// issues derived from the query phrasing.
func basicVerification(answer, query string) *domain.VerificationResult {
	v := &domain.VerificationResult{}

	quotes := blockquoteRe.FindAllString(answer, -1)
	v.CitationsFound = len(quotes)
	v.HasCitations = v.CitationsFound > 0

	v.ReferenceIDs = answerRefRe.FindAllString(answer, -1)

	lower := strings.ToLower(query)
	for _, word := range []string{"all", "every", "exhaustive", "complete"} {
		if strings.Contains(lower, word) && v.CitationsFound < 3 {
			v.Issues = append(v.Issues, "query asked for exhaustive results but few citations found")
			break
		}
	}
	if strings.Contains(lower, "who") && !attributionRe.MatchString(answer) {
		v.Issues = append(v.Issues, "query asked 'who' but no usernames found in answer")
	}

	return v
}

// postProcessAnswer cleans up the synthesized answer and, when the
// verification found citations, appends a summary table.
func postProcessAnswer(answer string, v *domain.VerificationResult) string {
	answer = blankRunRe.ReplaceAllString(answer, "\n\n")

	if v == nil || !v.HasCitations {
		return answer
	}

	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\n---\n\n## Verification Summary\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Citations found | %d |\n", v.CitationsFound)
	fmt.Fprintf(&b, "| Unique contributors | %d |\n", v.UniqueAuthors)
	fmt.Fprintf(&b, "| Positive mentions | %d |\n", v.PositiveMentions)
	fmt.Fprintf(&b, "| Negative mentions | %d |\n", v.NegativeMentions)
	fmt.Fprintf(&b, "| Neutral mentions | %d |\n", v.NeutralMentions)

	if len(v.Issues) > 0 {
		b.WriteString("\n**Issues:**\n")
		for _, issue := range v.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}

	if len(v.ReferenceIDs) > 0 {
		refs := v.ReferenceIDs
		more := 0
		if len(refs) > 10 {
			more = len(refs) - 10
			refs = refs[:10]
		}
		fmt.Fprintf(&b, "\n**Reference IDs:** `%s`", strings.Join(refs, ", "))
		if more > 0 {
			fmt.Fprintf(&b, " and %d more", more)
		}
		b.WriteString("\n")
	}

	return b.String()
}
