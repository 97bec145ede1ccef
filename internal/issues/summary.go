package issues

import (
	"fmt"

	"github.com/xkilldash9x/nsreconcile/internal/nsconfig"
)

// Summarize describes a plan in plain text lines. A short summary is one
// count line; a long one adds a row per action, at most maxRows of them
// (0 means no limit).
func Summarize(plan []Action, level nsconfig.SummaryLevel, maxRows int) []string {
	if level == nsconfig.SummaryNone {
		return nil
	}

	var created, reopened int
	for _, a := range plan {
		switch a.Kind {
		case ActionCreate:
			created++
		case ActionReopen:
			reopened++
		}
	}

	lines := []string{countLine(created, reopened)}
	if level != nsconfig.SummaryLong {
		return lines
	}

	shown := plan
	if maxRows > 0 && len(plan) > maxRows {
		shown = plan[:maxRows]
	}
	for _, a := range shown {
		lines = append(lines, row(a))
	}
	if hidden := len(plan) - len(shown); hidden > 0 {
		lines = append(lines, fmt.Sprintf("... and %d more", hidden))
	}
	return lines
}

func countLine(created, reopened int) string {
	if created == 0 && reopened == 0 {
		return "No issue changes required."
	}
	return fmt.Sprintf("%d %s to create, %d %s to reopen.",
		created, plural(created), reopened, plural(reopened))
}

func plural(n int) string {
	if n == 1 {
		return "issue"
	}
	return "issues"
}

func row(a Action) string {
	f := a.Finding
	switch a.Kind {
	case ActionReopen:
		return fmt.Sprintf("reopen #%d [%s] %s: %s", a.IssueNumber, f.Severity, f.Key, Title(f))
	default:
		return fmt.Sprintf("create [%s] %s: %s", f.Severity, f.Key, Title(f))
	}
}
