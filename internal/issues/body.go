package issues

import (
	"strings"

	"github.com/xkilldash9x/nsreconcile/api/schemas"
	"github.com/xkilldash9x/nsreconcile/internal/identity"
)

// TagPrefix starts the identity tag embedded in every tracking issue body.
// Changing it orphans every issue filed so far.
const TagPrefix = "nowsecure_unique_id: "

const notAvailable = "N/A"

// Tag returns the identity tag of finding within assessment.
func Tag(assessment schemas.Assessment, finding schemas.Finding, key identity.KeyPolicy) string {
	return TagPrefix + identity.FindingKey(assessment, finding, key)
}

// Body renders the markdown body of a new tracking issue. The identity tag
// comes first so later runs can find the issue again.
func Body(assessment schemas.Assessment, finding schemas.Finding, key identity.KeyPolicy) string {
	issue := finding.Check.Issue
	if issue == nil {
		issue = &schemas.IssueDetail{}
	}

	var b strings.Builder
	b.WriteString(Tag(assessment, finding, key))
	b.WriteString("\n")
	section(&b, "Severity", string(finding.Severity))
	section(&b, "Description", issue.Description)
	section(&b, "Impact Summary", issue.ImpactSummary)
	section(&b, "Steps to reproduce", issue.StepsToReproduce)
	section(&b, "Recommendations", issue.Recommendation)
	return b.String()
}

func section(b *strings.Builder, heading, text string) {
	if strings.TrimSpace(text) == "" {
		text = notAvailable
	}
	b.WriteString("\n### ")
	b.WriteString(heading)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n")
}

// Title returns the issue title for finding, falling back to its check key.
func Title(finding schemas.Finding) string {
	if t := strings.TrimSpace(finding.Title); t != "" {
		return t
	}
	return finding.Key
}
