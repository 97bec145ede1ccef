package identity

import (
	"slices"
	"sort"

	"github.com/xkilldash9x/nsreconcile/api/schemas"
	"github.com/xkilldash9x/nsreconcile/internal/rawdoc"
	"github.com/xkilldash9x/nsreconcile/internal/validation"
)

// Label block keys. Each bucket holds a string or a list of strings.
const (
	LabelAlways         = "always"
	LabelWarning        = "warning"
	LabelCategoryLabels = "category-labels"
)

// LabelBuckets lists the list-valued keys of a labels block.
var LabelBuckets = []string{
	LabelAlways,
	string(schemas.SeverityInfo),
	LabelWarning,
	string(schemas.SeverityLow),
	string(schemas.SeverityMedium),
	string(schemas.SeverityHigh),
	string(schemas.SeverityCritical),
}

// LabelBlockKeys lists every key a labels block may carry.
var LabelBlockKeys = append(slices.Clone(LabelBuckets), LabelCategoryLabels)

// LabelPolicy maps severity buckets to issue labels.
type LabelPolicy struct {
	Always         []string `yaml:"always"`
	Info           []string `yaml:"info"`
	Warning        []string `yaml:"warning"`
	Low            []string `yaml:"low"`
	Medium         []string `yaml:"medium"`
	High           []string `yaml:"high"`
	Critical       []string `yaml:"critical"`
	CategoryLabels bool     `yaml:"category-labels"`
}

// DefaultLabels tags every issue "NowSecure" and nothing else.
func DefaultLabels() LabelPolicy {
	return LabelPolicy{
		Always:   []string{"NowSecure"},
		Info:     []string{},
		Warning:  []string{},
		Low:      []string{},
		Medium:   []string{},
		High:     []string{},
		Critical: []string{},
	}
}

func (p *LabelPolicy) bucket(name string) *[]string {
	switch name {
	case LabelAlways:
		return &p.Always
	case string(schemas.SeverityInfo):
		return &p.Info
	case LabelWarning:
		return &p.Warning
	case string(schemas.SeverityLow):
		return &p.Low
	case string(schemas.SeverityMedium):
		return &p.Medium
	case string(schemas.SeverityHigh):
		return &p.High
	case string(schemas.SeverityCritical):
		return &p.Critical
	}
	return nil
}

// ParseLabels reads a labels value in any of its three shapes: a single
// label, a list of labels (both shorthand for the always bucket) or a full
// labels block. Buckets not named keep the default, which is empty for
// every bucket but always.
func ParseLabels(v *rawdoc.Value) (LabelPolicy, error) {
	policy := DefaultLabels()

	switch {
	case v.IsString():
		s, _ := v.String("labels")
		policy.Always = []string{s}
		return policy, nil

	case v.IsList():
		list, err := v.StringList("labels")
		if err != nil {
			return LabelPolicy{}, validation.Typef(v.Path(), v.Line(),
				"labels must be a string, a list of strings or a labels object")
		}
		policy.Always = list
		return policy, nil

	case !v.IsObject():
		return LabelPolicy{}, validation.Typef(v.Path(), v.Line(),
			"labels must be a string, a list of strings or a labels object")
	}

	obj, err := v.Object("labels")
	if err != nil {
		return LabelPolicy{}, err
	}
	if err := obj.CheckKeys(LabelBlockKeys, "labels"); err != nil {
		return LabelPolicy{}, err
	}

	for _, name := range LabelBuckets {
		item, ok := obj.Get(name)
		if !ok {
			continue
		}
		var list []string
		if item.IsString() {
			s, _ := item.String(name)
			list = []string{s}
		} else if list, err = item.StringList(name); err != nil {
			return LabelPolicy{}, validation.Typef(item.Path(), item.Line(),
				"%s must be a string or a list of strings", name)
		}
		*policy.bucket(name) = list
	}

	if item, ok := obj.Get(LabelCategoryLabels); ok {
		b, err := item.Bool(LabelCategoryLabels)
		if err != nil {
			return LabelPolicy{}, err
		}
		policy.CategoryLabels = b
	}
	return policy, nil
}

// BucketFor returns the label bucket of a finding: its severity, except an
// info finding flagged as a warning goes to the warning bucket.
func BucketFor(finding schemas.Finding) string {
	sev, ok := schemas.ParseSeverity(string(finding.Severity))
	if !ok {
		return ""
	}
	if sev == schemas.SeverityInfo && finding.Warn() {
		return LabelWarning
	}
	return string(sev)
}

// FindingLabels returns the sorted, de-duplicated labels for finding.
func FindingLabels(finding schemas.Finding, policy LabelPolicy) []string {
	set := make(map[string]struct{})
	add := func(labels []string) {
		for _, l := range labels {
			if l != "" {
				set[l] = struct{}{}
			}
		}
	}

	add(policy.Always)
	if b := policy.bucket(BucketFor(finding)); b != nil {
		add(*b)
	}
	if policy.CategoryLabels {
		add([]string{finding.Category()})
	}

	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
