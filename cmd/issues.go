// File: cmd/issues.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/nsreconcile/api/schemas"
	"github.com/xkilldash9x/nsreconcile/internal/config"
	"github.com/xkilldash9x/nsreconcile/internal/githubissues"
	"github.com/xkilldash9x/nsreconcile/internal/issues"
	"github.com/xkilldash9x/nsreconcile/internal/nsconfig"
	"github.com/xkilldash9x/nsreconcile/internal/observability"
	"github.com/xkilldash9x/nsreconcile/internal/report"
)

// trackerProvider creates the issue tracker a run writes to. Tests inject a
// mock tracker through it.
type trackerProvider interface {
	Create(ctx context.Context, cfg config.GitHubConfig, logger *zap.Logger) (issues.Tracker, error)
}

type defaultTrackerProvider struct{}

// NewTrackerProvider returns the provider backed by the GitHub REST API.
func NewTrackerProvider() trackerProvider {
	return &defaultTrackerProvider{}
}

func (p *defaultTrackerProvider) Create(ctx context.Context, cfg config.GitHubConfig, logger *zap.Logger) (issues.Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return githubissues.New(ctx, cfg, logger)
}

// newIssuesCmd creates the `issues` command.
func newIssuesCmd(provider trackerProvider) *cobra.Command {
	var (
		job         string
		dryRun      bool
		knownChecks []string
	)

	issuesCmd := &cobra.Command{
		Use:   "issues",
		Short: "Create or reopen GitHub issues for the findings of a report",
		Long: `Loads the assessment report, resolves the issues job from the policy
document and plans one action per in-scope finding: create an issue when none
tracks it, reopen the tracking issue when it is closed. The plan is applied to
the repository and a summary is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("job") {
				cfg.SetRunJob(job)
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.SetRunDryRun(dryRun)
			}
			return runIssues(ctx, observability.GetLogger(), cfg, knownChecks, provider, cmd.OutOrStdout())
		},
	}

	issuesCmd.Flags().String("policy", "", "Policy document or directory holding .nsconfig.yml (default ./.nsconfig.yml)")
	issuesCmd.Flags().StringVarP(&job, "job", "j", "", "Named job under configs; empty uses the outer settings")
	issuesCmd.Flags().StringP("report", "r", "", "JSON assessment report (required)")
	issuesCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and log actions without writing to GitHub")
	issuesCmd.Flags().Duration("interval", issues.DefaultInterval, "Minimum spacing between issue writes")
	issuesCmd.Flags().Duration("timeout", 0, "Bound on the whole run (default from settings)")
	issuesCmd.Flags().StringSliceVar(&knownChecks, "known-checks", nil, "Check keys filters may name; unset accepts any")
	return issuesCmd
}

// runIssues contains the testable core of the issues command.
func runIssues(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	knownChecks []string,
	provider trackerProvider,
	out io.Writer,
) error {
	run := cfg.Run()
	if err := run.Validate(); err != nil {
		return err
	}

	runID := uuid.New().String()
	logger = logger.With(zap.String("run_id", runID), zap.String("job", run.Job))

	if run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, run.Timeout)
		defer cancel()
	}

	doc, err := nsconfig.Load(run.PolicyPath, nsconfig.WithKnownChecks(knownChecks...), nsconfig.WithLogger(logger))
	if err != nil {
		return err
	}
	job, err := doc.ResolveIssues(run.Job)
	if err != nil {
		return fmt.Errorf("resolving job %q: %w", run.Job, err)
	}

	tracker, err := provider.Create(ctx, cfg.GitHub(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize issue tracker: %w", err)
	}

	var (
		assessment schemas.Assessment
		existing   []issues.TrackingIssue
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assessment, err = report.Load(run.ReportPath)
		return err
	})
	g.Go(func() error {
		var err error
		existing, err = tracker.ListIssues(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Reconciling assessment.",
		zap.String("package", assessment.PackageKey),
		zap.String("platform", assessment.PlatformType),
		zap.Int("findings", len(assessment.Report.Findings)),
		zap.Stringer("filter", job.Filter))

	plan := issues.NewReconciler(logger).Plan(assessment, assessment.Report.Findings, existing, job.Filter, job.Key)

	applier := issues.NewApplier(tracker, logger,
		issues.WithInterval(run.IssueInterval),
		issues.WithDryRun(run.DryRun))
	result, err := applier.Apply(ctx, assessment, plan, job)
	if err != nil {
		return fmt.Errorf("applying issue changes: %w", err)
	}

	for _, line := range issues.Summarize(plan, job.Summary, job.MaxRows) {
		fmt.Fprintln(out, line)
	}

	logger.Info("Reconciliation complete.",
		zap.Ints("created", result.Created),
		zap.Ints("reopened", result.Reopened),
		zap.Bool("dry_run", run.DryRun))
	return nil
}
