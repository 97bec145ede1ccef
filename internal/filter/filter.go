// internal/filter/filter.go
package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/xkilldash9x/nsreconcile/api/schemas"
	"github.com/xkilldash9x/nsreconcile/internal/rawdoc"
	"github.com/xkilldash9x/nsreconcile/internal/validation"
)

// Policy document keys that make up a filter.
const (
	KeyExcludeChecks   = "exclude-checks"
	KeyIncludeChecks   = "include-checks"
	KeyMinimumSeverity = "minimum-severity"
	KeyIncludeWarnings = "include-warnings"
)

// Keys lists every key a filter object may carry.
var Keys = []string{KeyExcludeChecks, KeyIncludeChecks, KeyMinimumSeverity, KeyIncludeWarnings}

// Filter decides which findings are in scope for a job.
// A nil field is unset and plays no part in matching or merging.
type Filter struct {
	IncludeChecks   []string           `yaml:"include-checks,omitempty"`
	ExcludeChecks   []string           `yaml:"exclude-checks,omitempty"`
	SeverityFilter  []schemas.Severity `yaml:"severity-filter,omitempty"`
	IncludeWarnings *bool              `yaml:"include-warnings,omitempty"`
}

// Default is the filter every job starts from before its own fields are
// merged in: critical, high and medium findings.
func Default() Filter {
	return Filter{SeverityFilter: schemas.AtLeast(schemas.SeverityMedium)}
}

// Merge overlays the set fields of override onto base. Fields are replaced
// whole; lists are never combined.
func Merge(base, override Filter) Filter {
	out := base.clone()
	if override.IncludeChecks != nil {
		out.IncludeChecks = slices.Clone(override.IncludeChecks)
	}
	if override.ExcludeChecks != nil {
		out.ExcludeChecks = slices.Clone(override.ExcludeChecks)
	}
	if override.SeverityFilter != nil {
		out.SeverityFilter = slices.Clone(override.SeverityFilter)
	}
	if override.IncludeWarnings != nil {
		b := *override.IncludeWarnings
		out.IncludeWarnings = &b
	}
	return out
}

func (f Filter) clone() Filter {
	out := Filter{
		IncludeChecks:  slices.Clone(f.IncludeChecks),
		ExcludeChecks:  slices.Clone(f.ExcludeChecks),
		SeverityFilter: slices.Clone(f.SeverityFilter),
	}
	if f.IncludeWarnings != nil {
		b := *f.IncludeWarnings
		out.IncludeWarnings = &b
	}
	return out
}

// Parse reads the filter keys of obj. Other keys are ignored so the outer
// document, which mixes filter keys with everything else, can be parsed
// directly; callers that need a pure filter object check keys first.
//
// When knownChecks is non-nil every listed check must be one of them.
func Parse(obj *rawdoc.Object, knownChecks []string) (Filter, error) {
	var f Filter

	if v, ok := obj.Get(KeyMinimumSeverity); ok {
		s, err := v.String(KeyMinimumSeverity)
		if err != nil {
			return Filter{}, err
		}
		sev, ok := schemas.ParseSeverity(s)
		if !ok {
			return Filter{}, validation.Valuef(v.Path(), v.Line(), "%s is not a valid severity filter type", s)
		}
		f.SeverityFilter = schemas.AtLeast(sev)
	}

	var known []string
	if knownChecks != nil {
		known = normalizeChecks(knownChecks)
	}

	var err error
	if f.IncludeChecks, err = parseChecks(obj, KeyIncludeChecks, "include", known); err != nil {
		return Filter{}, err
	}
	if f.ExcludeChecks, err = parseChecks(obj, KeyExcludeChecks, "exclude", known); err != nil {
		return Filter{}, err
	}

	if v, ok := obj.Get(KeyIncludeWarnings); ok {
		b, err := v.Bool(KeyIncludeWarnings)
		if err != nil {
			return Filter{}, err
		}
		f.IncludeWarnings = &b
	}

	if both := intersect(f.IncludeChecks, f.ExcludeChecks); len(both) > 0 {
		return Filter{}, validation.InvalidFilterf(obj.Value().Path(), obj.Value().Line(),
			"check ids must be limited to either the exclude or include list, found in both: %s",
			strings.Join(both, ", "))
	}

	return f, nil
}

func parseChecks(obj *rawdoc.Object, key, listName string, known []string) ([]string, error) {
	v, ok := obj.Get(key)
	if !ok {
		return nil, nil
	}
	raw, err := v.StringList(key)
	if err != nil {
		return nil, err
	}
	checks := normalizeChecks(raw)

	if known != nil {
		var unknown []string
		for _, c := range checks {
			if !slices.Contains(known, c) {
				unknown = append(unknown, c)
			}
		}
		if len(unknown) > 0 {
			return nil, validation.Valuef(v.Path(), v.Line(),
				"the following check ids within the %s list are not valid: [%s]",
				listName, strings.Join(unknown, ", "))
		}
	}
	return checks, nil
}

// normalizeChecks lower-cases check ids and drops repeats, keeping first
// occurrence order. The result is never nil.
func normalizeChecks(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToLower(c)
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func intersect(a, b []string) []string {
	var out []string
	for _, x := range a {
		if slices.Contains(b, x) {
			out = append(out, x)
		}
	}
	return out
}

// Matches reports whether finding is in scope for f. Rules are tried in
// order and the first that applies decides:
//
//  1. unaffected findings never match
//  2. an included check matches
//  3. an excluded check does not
//  4. a severity in the severity filter matches
//  5. a warning matches when warnings are included
func Matches(finding schemas.Finding, f Filter) bool {
	if !finding.Affected {
		return false
	}

	key := strings.ToLower(finding.Key)
	if f.IncludeChecks != nil && slices.Contains(f.IncludeChecks, key) {
		return true
	}
	if f.ExcludeChecks != nil && slices.Contains(f.ExcludeChecks, key) {
		return false
	}

	if f.SeverityFilter != nil {
		if sev, ok := schemas.ParseSeverity(string(finding.Severity)); ok && slices.Contains(f.SeverityFilter, sev) {
			return true
		}
	}

	if f.IncludeWarnings != nil && *f.IncludeWarnings && finding.Warn() {
		return true
	}
	return false
}

// String renders the filter for log output.
func (f Filter) String() string {
	var parts []string
	if f.IncludeChecks != nil {
		parts = append(parts, fmt.Sprintf("include=%v", f.IncludeChecks))
	}
	if f.ExcludeChecks != nil {
		parts = append(parts, fmt.Sprintf("exclude=%v", f.ExcludeChecks))
	}
	if f.SeverityFilter != nil {
		parts = append(parts, fmt.Sprintf("severity=%v", f.SeverityFilter))
	}
	if f.IncludeWarnings != nil {
		parts = append(parts, fmt.Sprintf("warnings=%t", *f.IncludeWarnings))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
