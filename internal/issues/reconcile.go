// Package issues reconciles the findings of an assessment against the
// tracking issues filed on earlier runs and applies the resulting plan.
package issues

import (
	"cmp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/nsreconcile/api/schemas"
	"github.com/xkilldash9x/nsreconcile/internal/filter"
	"github.com/xkilldash9x/nsreconcile/internal/identity"
)

// Issue states reported by the tracker.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// TrackingIssue is an issue already present in the tracker.
type TrackingIssue struct {
	Number int
	State  string
	Body   string
}

// ActionKind is what must happen for one finding.
type ActionKind int

const (
	// ActionCreate files a new tracking issue.
	ActionCreate ActionKind = iota + 1
	// ActionReopen reopens the closed issue tracking the finding.
	ActionReopen
)

func (k ActionKind) String() string {
	switch k {
	case ActionCreate:
		return "create"
	case ActionReopen:
		return "reopen"
	}
	return "unknown"
}

// Action is one step of a plan. IssueNumber is zero for ActionCreate.
type Action struct {
	Kind        ActionKind
	Finding     schemas.Finding
	IssueNumber int
}

// Reconciler computes plans. It holds no state besides its logger.
type Reconciler struct {
	logger *zap.Logger
}

// NewReconciler returns a Reconciler that logs its decisions to logger.
func NewReconciler(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger.Named("reconciler")}
}

// Plan returns the actions needed so each in-scope finding is tracked by
// exactly one open issue. Actions keep the order of findings. Findings that
// are out of scope, or already tracked by an open issue, produce no action.
func (r *Reconciler) Plan(
	assessment schemas.Assessment,
	findings []schemas.Finding,
	existing []TrackingIssue,
	flt filter.Filter,
	key identity.KeyPolicy,
) []Action {
	// Newest first, so the first candidate found in each pass wins.
	sorted := slices.Clone(existing)
	slices.SortStableFunc(sorted, func(a, b TrackingIssue) int {
		return cmp.Compare(b.Number, a.Number)
	})

	r.logger.Debug("Reconciling findings.",
		zap.Int("findings", len(findings)),
		zap.Int("existing_issues", len(existing)),
		zap.Stringer("filter", flt))

	var plan []Action
	for _, finding := range findings {
		if !filter.Matches(finding, flt) {
			continue
		}

		log := r.logger.With(zap.String("check", finding.Key))
		issue, found := findExisting(Tag(assessment, finding, key), sorted)

		switch {
		case !found:
			log.Info("Creating a new issue.",
				zap.String("title", finding.Title),
				zap.String("severity", string(finding.Severity)))
			plan = append(plan, Action{Kind: ActionCreate, Finding: finding})
		case issue.State == StateOpen:
			log.Debug("Found open issue, no action required.", zap.Int("issue", issue.Number))
		case issue.State == StateClosed:
			log.Info("Reopening issue.", zap.Int("issue", issue.Number))
			plan = append(plan, Action{Kind: ActionReopen, Finding: finding, IssueNumber: issue.Number})
		default:
			log.Warn("Issue has unexpected state, leaving it alone.",
				zap.Int("issue", issue.Number),
				zap.String("state", issue.State))
		}
	}
	return plan
}

// findExisting picks the tracking issue for tag from issues sorted newest
// first: the newest open candidate, else the newest candidate of any state.
func findExisting(tag string, sorted []TrackingIssue) (TrackingIssue, bool) {
	var newest *TrackingIssue
	for i := range sorted {
		issue := &sorted[i]
		if !strings.Contains(issue.Body, tag) {
			continue
		}
		if issue.State == StateOpen {
			return *issue, true
		}
		if newest == nil {
			newest = issue
		}
	}
	if newest == nil {
		return TrackingIssue{}, false
	}
	return *newest, true
}
