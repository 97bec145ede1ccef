package schemas

import "strings"

// -- Finding Schemas --

// Severity represents the severity level of a finding, ranging from
// critical to informational. The values are lowercase to match the platform API.
type Severity string

// Constants defining the standard severity levels for findings.
const (
	SeverityCritical Severity = "critical" // Represents a critical vulnerability.
	SeverityHigh     Severity = "high"     // Represents a high-severity vulnerability.
	SeverityMedium   Severity = "medium"   // Represents a medium-severity vulnerability.
	SeverityLow      Severity = "low"      // Represents a low-severity vulnerability.
	SeverityInfo     Severity = "info"     // Represents an informational finding.
)

// SeverityLevels lists every severity from most to least severe. Code that
// needs an "at least S" set slices this from the front.
var SeverityLevels = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

// ParseSeverity maps a case-insensitive name onto a Severity.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.Rank() < 0 {
		return "", false
	}
	return sev, true
}

// Rank returns the position of the severity in SeverityLevels (0 is critical),
// or -1 for an unknown severity.
func (s Severity) Rank() int {
	for i, level := range SeverityLevels {
		if level == s {
			return i
		}
	}
	return -1
}

// AtLeast returns every severity from critical down to and including s.
// An unknown severity yields nil.
func AtLeast(s Severity) []Severity {
	rank := s.Rank()
	if rank < 0 {
		return nil
	}
	out := make([]Severity, rank+1)
	copy(out, SeverityLevels[:rank+1])
	return out
}

// PlatformAndroid and PlatformIOS are the platform types an assessment may carry.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// Assessment identifies one scan run of an application and carries its report.
// It is produced by the report retrieval step and never mutated afterwards.
type Assessment struct {
	PlatformType   string  `json:"platformType"`
	PackageKey     string  `json:"packageKey"`
	TaskID         string  `json:"taskId,omitempty"`
	ApplicationRef string  `json:"applicationRef,omitempty"`
	Ref            string  `json:"ref,omitempty"`
	Report         *Report `json:"report"`
}

// Report holds the findings of an assessment.
type Report struct {
	Findings []Finding `json:"findings"`
}

// Finding is a single scan result. Affected is false for checks that passed.
type Finding struct {
	Kind     string   `json:"kind,omitempty"` // static or dynamic
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary,omitempty"`
	Affected bool     `json:"affected"`
	Severity Severity `json:"severity"`
	Check    Check    `json:"check"`
}

// Check wraps the optional issue detail of a finding.
type Check struct {
	Issue *IssueDetail `json:"issue"`
}

// IssueDetail is the descriptive part of a finding. Every field is optional.
type IssueDetail struct {
	Title            string   `json:"title,omitempty"`
	Description      string   `json:"description,omitempty"`
	ImpactSummary    string   `json:"impactSummary,omitempty"`
	StepsToReproduce string   `json:"stepsToReproduce,omitempty"`
	Recommendation   string   `json:"recommendation,omitempty"`
	Category         string   `json:"category,omitempty"`
	CVSS             *float64 `json:"cvss,omitempty"`
	Warn             bool     `json:"warn,omitempty"`
}

// Warn reports whether the finding is flagged as warning-worthy. A missing
// issue detail counts as false.
func (f Finding) Warn() bool {
	return f.Check.Issue != nil && f.Check.Issue.Warn
}

// Category returns the finding's category, or "" when there is none.
func (f Finding) Category() string {
	if f.Check.Issue == nil {
		return ""
	}
	return f.Check.Issue.Category
}
