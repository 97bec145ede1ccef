package nsconfig

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/nsreconcile/internal/filter"
	"github.com/xkilldash9x/nsreconcile/internal/identity"
	"github.com/xkilldash9x/nsreconcile/internal/rawdoc"
	"github.com/xkilldash9x/nsreconcile/internal/validation"
)

// DefaultMaxRows caps the rows of a long summary when a job sets no limit.
const DefaultMaxRows = 20

// SummaryLevel controls how much a job reports once it has run.
type SummaryLevel string

const (
	SummaryNone  SummaryLevel = "none"
	SummaryShort SummaryLevel = "short"
	SummaryLong  SummaryLevel = "long"
)

// ParseSummaryLevel accepts exactly "none", "short" or "long".
func ParseSummaryLevel(s string) (SummaryLevel, bool) {
	switch level := SummaryLevel(s); level {
	case SummaryNone, SummaryShort, SummaryLong:
		return level, true
	}
	return "", false
}

// JobType selects the kind of output a job produces.
type JobType string

const (
	JobIssues JobType = "issues"
	JobSarif  JobType = "sarif"
)

// JobTypes lists every job type.
var JobTypes = []JobType{JobIssues, JobSarif}

// ParseJobType maps a case-insensitive name onto a JobType.
func ParseJobType(s string) (JobType, error) {
	switch jt := JobType(strings.ToLower(s)); jt {
	case JobIssues, JobSarif:
		return jt, nil
	}
	return "", fmt.Errorf("unknown job type %q, want one of %v", s, JobTypes)
}

// JobConfig is the resolved configuration of one job: either an IssuesJob or
// a SarifJob. Callers switch on the concrete type.
type JobConfig interface {
	Type() JobType
	isJobConfig()
}

// IssuesJob is the resolved configuration of an issues job.
type IssuesJob struct {
	Filter  filter.Filter        `yaml:"filter"`
	Key     identity.KeyPolicy   `yaml:"key"`
	Labels  identity.LabelPolicy `yaml:"labels"`
	MaxRows int                  `yaml:"max-rows"`
	Summary SummaryLevel         `yaml:"summary"`
}

func (IssuesJob) Type() JobType { return JobIssues }
func (IssuesJob) isJobConfig()  {}

// SarifJob is the resolved configuration of a sarif job.
type SarifJob struct {
	Filter  filter.Filter      `yaml:"filter"`
	Key     identity.KeyPolicy `yaml:"key"`
	Summary SummaryLevel       `yaml:"summary"`
}

func (SarifJob) Type() JobType { return JobSarif }
func (SarifJob) isJobConfig()  {}

// Resolve merges the settings of job name for the given job type. The empty
// name resolves an implicit job that inherits everything from the outer
// document.
func (d *Document) Resolve(name string, jt JobType) (JobConfig, error) {
	switch jt {
	case JobIssues:
		return d.ResolveIssues(name)
	case JobSarif:
		return d.ResolveSarif(name)
	}
	return nil, validation.Valuef(rawdoc.RootPath, 0, "unknown job type %q", jt)
}

// ResolveIssues resolves job name as an issues job.
func (d *Document) ResolveIssues(name string) (IssuesJob, error) {
	entry, err := d.entry(name, issuesJobKeys, "issues job configuration")
	if err != nil {
		return IssuesJob{}, err
	}

	job := IssuesJob{
		Filter:  filter.Merge(filter.Default(), entry.filter),
		Key:     d.keyPolicy(entry),
		Labels:  cloneLabels(d.labels),
		MaxRows: DefaultMaxRows,
		Summary: entry.summary,
	}
	if entry.labels != nil {
		job.Labels = cloneLabels(*entry.labels)
	}
	if entry.maxRows != nil {
		job.MaxRows = *entry.maxRows
	}
	return job, nil
}

// ResolveSarif resolves job name as a sarif job. Jobs carrying labels or
// max-rows are rejected.
func (d *Document) ResolveSarif(name string) (SarifJob, error) {
	entry, err := d.entry(name, sarifJobKeys, "sarif job configuration")
	if err != nil {
		return SarifJob{}, err
	}
	return SarifJob{
		Filter:  filter.Merge(filter.Default(), entry.filter),
		Key:     d.keyPolicy(entry),
		Summary: entry.summary,
	}, nil
}

// Admits reports whether job name can be resolved as type jt without a key
// error. Unknown names are admitted by neither type.
func (d *Document) Admits(name string, jt JobType) bool {
	allowed := issuesJobKeys
	if jt == JobSarif {
		allowed = sarifJobKeys
	}
	_, err := d.entry(name, allowed, string(jt))
	return err == nil
}

func (d *Document) entry(name string, allowed []string, what string) (*jobEntry, error) {
	if name == "" {
		return &jobEntry{filter: d.outerFilter, summary: d.summary}, nil
	}
	entry, ok := d.configs[name]
	if !ok {
		return nil, validation.Valuef(keyConfigs, 0, "Config %s is not defined", name)
	}
	if err := entry.obj.CheckKeys(allowed, what); err != nil {
		return nil, err
	}
	return entry, nil
}

func (d *Document) keyPolicy(entry *jobEntry) identity.KeyPolicy {
	switch {
	case entry.key != nil:
		return cloneKey(*entry.key)
	case d.key != nil:
		return cloneKey(*d.key)
	}
	return identity.DefaultKeyPolicy()
}

func cloneKey(k identity.KeyPolicy) identity.KeyPolicy {
	if k.V1Override != nil {
		v1 := *k.V1Override
		k.V1Override = &v1
	}
	return k
}

func cloneLabels(l identity.LabelPolicy) identity.LabelPolicy {
	clone := func(s []string) []string { return append([]string{}, s...) }
	return identity.LabelPolicy{
		Always:         clone(l.Always),
		Info:           clone(l.Info),
		Warning:        clone(l.Warning),
		Low:            clone(l.Low),
		Medium:         clone(l.Medium),
		High:           clone(l.High),
		Critical:       clone(l.Critical),
		CategoryLabels: l.CategoryLabels,
	}
}
