package issues_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/nsreconcile/api/schemas"
	"github.com/xkilldash9x/nsreconcile/internal/filter"
	"github.com/xkilldash9x/nsreconcile/internal/identity"
	"github.com/xkilldash9x/nsreconcile/internal/issues"
	"github.com/xkilldash9x/nsreconcile/internal/mocks"
	"github.com/xkilldash9x/nsreconcile/internal/nsconfig"
)

var assessment = schemas.Assessment{PlatformType: "android", PackageKey: "com.example.app"}

func issuesJob() nsconfig.IssuesJob {
	labels := identity.DefaultLabels()
	labels.High = []string{"P1"}
	return nsconfig.IssuesJob{
		Filter:  filter.Default(),
		Key:     identity.DefaultKeyPolicy(),
		Labels:  labels,
		MaxRows: nsconfig.DefaultMaxRows,
		Summary: nsconfig.SummaryShort,
	}
}

func testPlan() []issues.Action {
	return []issues.Action{
		{
			Kind: issues.ActionCreate,
			Finding: schemas.Finding{
				Key: "check_1", Title: "Weak crypto", Severity: schemas.SeverityHigh, Affected: true,
			},
		},
		{
			Kind:        issues.ActionReopen,
			Finding:     schemas.Finding{Key: "check_2", Severity: schemas.SeverityCritical, Affected: true},
			IssueNumber: 17,
		},
	}
}

func newApplier(t *testing.T, tracker issues.Tracker, opts ...issues.ApplierOption) *issues.Applier {
	opts = append([]issues.ApplierOption{issues.WithInterval(0)}, opts...)
	return issues.NewApplier(tracker, zaptest.NewLogger(t), opts...)
}

func TestApply_PerformsPlanInOrder(t *testing.T) {
	ctx := context.Background()
	tracker := new(mocks.MockTracker)

	tracker.On("RateLimit", ctx).Return(issues.RateLimit{Limit: 5000, Remaining: 2}, nil).Once()
	created := tracker.On("CreateIssue", ctx, mock.MatchedBy(func(issue issues.NewIssue) bool {
		return issue.Title == "Weak crypto" &&
			strings.HasPrefix(issue.Body, issues.TagPrefix) &&
			assert.ObjectsAreEqual([]string{"NowSecure", "P1"}, issue.Labels)
	})).Return(42, nil).Once()
	tracker.On("ReopenIssue", ctx, 17).Return(nil).Once().NotBefore(created)

	res, err := newApplier(t, tracker).Apply(ctx, assessment, testPlan(), issuesJob())
	require.NoError(t, err)
	assert.Equal(t, []int{42}, res.Created)
	assert.Equal(t, []int{17}, res.Reopened)
	tracker.AssertExpectations(t)
}

func TestApply_InsufficientRateLimit(t *testing.T) {
	ctx := context.Background()
	reset := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tracker := new(mocks.MockTracker)
	tracker.On("RateLimit", ctx).Return(issues.RateLimit{Limit: 5000, Remaining: 1, Reset: reset}, nil).Once()

	_, err := newApplier(t, tracker).Apply(ctx, assessment, testPlan(), issuesJob())
	require.Error(t, err)
	assert.True(t, errors.Is(err, issues.ErrInsufficientRateLimit))

	var rle *issues.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 2, rle.Required)
	assert.Equal(t, 1, rle.Remaining)
	assert.Equal(t, reset, rle.Reset)

	tracker.AssertExpectations(t)
	tracker.AssertNotCalled(t, "CreateIssue", mock.Anything, mock.Anything)
	tracker.AssertNotCalled(t, "ReopenIssue", mock.Anything, mock.Anything)
}

func TestApply_EmptyPlanMakesNoCalls(t *testing.T) {
	tracker := new(mocks.MockTracker)
	res, err := newApplier(t, tracker).Apply(context.Background(), assessment, nil, issuesJob())
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	tracker.AssertExpectations(t)
}

func TestApply_DryRun(t *testing.T) {
	tracker := new(mocks.MockTracker)
	res, err := newApplier(t, tracker, issues.WithDryRun(true)).Apply(context.Background(), assessment, testPlan(), issuesJob())
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Empty(t, res.Reopened)
	tracker.AssertExpectations(t)
}

func TestApply_StopsOnTrackerError(t *testing.T) {
	ctx := context.Background()
	tracker := new(mocks.MockTracker)
	tracker.On("RateLimit", ctx).Return(issues.RateLimit{Remaining: 100}, nil).Once()
	tracker.On("CreateIssue", ctx, mock.Anything).Return(0, errors.New("boom")).Once()

	res, err := newApplier(t, tracker).Apply(ctx, assessment, testPlan(), issuesJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating issue for check_1")
	assert.Empty(t, res.Created)
	tracker.AssertNotCalled(t, "ReopenIssue", mock.Anything, mock.Anything)
}

func TestApply_PacingHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tracker := new(mocks.MockTracker)
	tracker.On("RateLimit", ctx).Return(issues.RateLimit{Remaining: 100}, nil).Once()
	tracker.On("CreateIssue", ctx, mock.Anything).Return(1, nil).Once().Run(func(mock.Arguments) { cancel() })

	applier := issues.NewApplier(tracker, zaptest.NewLogger(t), issues.WithInterval(time.Hour))
	res, err := applier.Apply(ctx, assessment, testPlan(), issuesJob())
	require.Error(t, err)
	assert.Equal(t, []int{1}, res.Created)
	tracker.AssertNotCalled(t, "ReopenIssue", mock.Anything, mock.Anything)
}
