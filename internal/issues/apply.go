package issues

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/nsreconcile/api/schemas"
	"github.com/xkilldash9x/nsreconcile/internal/identity"
	"github.com/xkilldash9x/nsreconcile/internal/nsconfig"
)

// DefaultInterval spaces consecutive tracker writes.
const DefaultInterval = time.Second

// ErrInsufficientRateLimit is returned, wrapped in a *RateLimitError, when
// the tracker's remaining quota cannot cover a plan.
var ErrInsufficientRateLimit = errors.New("insufficient rate limit available")

// RateLimit is the tracker's API quota.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// RateLimitError reports a plan that needs more calls than remain.
type RateLimitError struct {
	Required  int
	Remaining int
	Reset     time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v: %d required, %d remaining, limit resets at %s",
		ErrInsufficientRateLimit, e.Required, e.Remaining, e.Reset.Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error { return ErrInsufficientRateLimit }

// NewIssue is a tracking issue to be filed.
type NewIssue struct {
	Title  string
	Body   string
	Labels []string
}

// Tracker is the issue tracker a plan is applied to.
type Tracker interface {
	ListIssues(ctx context.Context) ([]TrackingIssue, error)
	CreateIssue(ctx context.Context, issue NewIssue) (int, error)
	ReopenIssue(ctx context.Context, number int) error
	RateLimit(ctx context.Context) (RateLimit, error)
}

// Result records what Apply changed.
type Result struct {
	Created  []int
	Reopened []int
}

// Applier executes plans against a Tracker.
type Applier struct {
	tracker Tracker
	logger  *zap.Logger
	limiter *rate.Limiter
	dryRun  bool
}

// ApplierOption configures an Applier.
type ApplierOption func(*Applier)

// WithInterval sets the minimum spacing between tracker writes. A
// non-positive interval disables pacing.
func WithInterval(d time.Duration) ApplierOption {
	return func(a *Applier) {
		if d <= 0 {
			a.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		a.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithDryRun logs actions instead of performing them.
func WithDryRun(dryRun bool) ApplierOption {
	return func(a *Applier) { a.dryRun = dryRun }
}

// NewApplier returns an Applier writing to tracker.
func NewApplier(tracker Tracker, logger *zap.Logger, opts ...ApplierOption) *Applier {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Applier{
		tracker: tracker,
		logger:  logger.Named("applier"),
		limiter: rate.NewLimiter(rate.Every(DefaultInterval), 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Apply performs plan in order. It checks the rate limit up front and fails
// without writing anything if the remaining quota is below len(plan). An
// empty plan makes no tracker calls.
func (a *Applier) Apply(ctx context.Context, assessment schemas.Assessment, plan []Action, job nsconfig.IssuesJob) (Result, error) {
	var res Result
	if len(plan) == 0 {
		return res, nil
	}

	if a.dryRun {
		for _, action := range plan {
			a.logger.Info("Dry run, skipping action.",
				zap.Stringer("action", action.Kind),
				zap.String("check", action.Finding.Key),
				zap.Int("issue", action.IssueNumber))
		}
		return res, nil
	}

	limit, err := a.tracker.RateLimit(ctx)
	if err != nil {
		return res, fmt.Errorf("checking rate limit: %w", err)
	}
	if limit.Remaining < len(plan) {
		return res, &RateLimitError{Required: len(plan), Remaining: limit.Remaining, Reset: limit.Reset}
	}

	for _, action := range plan {
		if err := a.limiter.Wait(ctx); err != nil {
			return res, err
		}

		switch action.Kind {
		case ActionCreate:
			number, err := a.tracker.CreateIssue(ctx, newIssue(assessment, action.Finding, job.Key, job.Labels))
			if err != nil {
				return res, fmt.Errorf("creating issue for %s: %w", action.Finding.Key, err)
			}
			a.logger.Info("Created issue.", zap.Int("issue", number), zap.String("check", action.Finding.Key))
			res.Created = append(res.Created, number)

		case ActionReopen:
			if err := a.tracker.ReopenIssue(ctx, action.IssueNumber); err != nil {
				return res, fmt.Errorf("reopening issue #%d: %w", action.IssueNumber, err)
			}
			a.logger.Info("Reopened issue.", zap.Int("issue", action.IssueNumber), zap.String("check", action.Finding.Key))
			res.Reopened = append(res.Reopened, action.IssueNumber)

		default:
			return res, fmt.Errorf("unknown action kind %d", action.Kind)
		}
	}
	return res, nil
}

func newIssue(assessment schemas.Assessment, finding schemas.Finding, key identity.KeyPolicy, labels identity.LabelPolicy) NewIssue {
	return NewIssue{
		Title:  Title(finding),
		Body:   Body(assessment, finding, key),
		Labels: identity.FindingLabels(finding, labels),
	}
}
