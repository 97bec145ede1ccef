// Package githubissues implements issues.Tracker on the GitHub REST API.
package githubissues

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/xkilldash9x/nsreconcile/internal/config"
	"github.com/xkilldash9x/nsreconcile/internal/issues"
)

const perPage = 100

// Tracker reads and writes the issues of one repository.
type Tracker struct {
	client *github.Client
	owner  string
	repo   string
	logger *zap.Logger
}

var _ issues.Tracker = (*Tracker)(nil)

// New returns a Tracker for the repository in cfg. Requests authenticate
// with cfg.Token when it is set. A non-empty cfg.APIURL targets a GitHub
// Enterprise Server instead of github.com.
func New(ctx context.Context, cfg config.GitHubConfig, logger *zap.Logger) (*Tracker, error) {
	var httpClient *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client := github.NewClient(httpClient)
	if cfg.APIURL != "" {
		var err error
		if client, err = client.WithEnterpriseURLs(cfg.APIURL, cfg.APIURL); err != nil {
			return nil, fmt.Errorf("configuring GitHub API URL %q: %w", cfg.APIURL, err)
		}
	}
	return NewWithClient(client, cfg.Owner, cfg.Repo, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *github.Client, owner, repo string, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		client: client,
		owner:  owner,
		repo:   repo,
		logger: logger.Named("github").With(zap.String("repository", owner+"/"+repo)),
	}
}

// ListIssues returns every issue of the repository in any state. Pull
// requests, which the issues endpoint also returns, are skipped.
func (t *Tracker) ListIssues(ctx context.Context) ([]issues.TrackingIssue, error) {
	opt := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "created",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var out []issues.TrackingIssue
	for {
		page, resp, err := t.client.Issues.ListByRepo(ctx, t.owner, t.repo, opt)
		if err != nil {
			return nil, fmt.Errorf("listing issues of %s/%s: %w", t.owner, t.repo, err)
		}
		for _, issue := range page {
			if issue.IsPullRequest() {
				continue
			}
			out = append(out, issues.TrackingIssue{
				Number: issue.GetNumber(),
				State:  issue.GetState(),
				Body:   issue.GetBody(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	t.logger.Debug("Listed existing issues.", zap.Int("count", len(out)))
	return out, nil
}

// CreateIssue files a new issue and returns its number.
func (t *Tracker) CreateIssue(ctx context.Context, issue issues.NewIssue) (int, error) {
	labels := issue.Labels
	if labels == nil {
		labels = []string{}
	}
	created, _, err := t.client.Issues.Create(ctx, t.owner, t.repo, &github.IssueRequest{
		Title:  github.String(issue.Title),
		Body:   github.String(issue.Body),
		Labels: &labels,
	})
	if err != nil {
		return 0, fmt.Errorf("creating issue in %s/%s: %w", t.owner, t.repo, err)
	}
	return created.GetNumber(), nil
}

// ReopenIssue sets the state of issue number to open.
func (t *Tracker) ReopenIssue(ctx context.Context, number int) error {
	_, _, err := t.client.Issues.Edit(ctx, t.owner, t.repo, number, &github.IssueRequest{
		State: github.String(issues.StateOpen),
	})
	if err != nil {
		return fmt.Errorf("reopening issue #%d in %s/%s: %w", number, t.owner, t.repo, err)
	}
	return nil
}

// RateLimit returns the core REST API quota.
func (t *Tracker) RateLimit(ctx context.Context) (issues.RateLimit, error) {
	limits, _, err := t.client.RateLimit.Get(ctx)
	if err != nil {
		return issues.RateLimit{}, fmt.Errorf("reading rate limit: %w", err)
	}
	core := limits.GetCore()
	if core == nil {
		return issues.RateLimit{}, fmt.Errorf("reading rate limit: response has no core quota")
	}
	return issues.RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}
