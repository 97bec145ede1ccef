// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/nsreconcile/internal/config"
	"github.com/xkilldash9x/nsreconcile/internal/issues"
	"github.com/xkilldash9x/nsreconcile/internal/mocks"
	"github.com/xkilldash9x/nsreconcile/internal/observability"
)

// resetForTest isolates a test from settings files, CI environment
// variables and the global logger.
func resetForTest(t *testing.T) {
	t.Helper()

	cfgFile = ""
	t.Chdir(t.TempDir())
	for _, name := range []string{"GITHUB_TOKEN", "GITHUB_REPOSITORY", "NSRECONCILE_GITHUB_TOKEN", "NSRECONCILE_RUN_REPORT_PATH"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	// A silent logger claims the one-time initialization.
	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
	t.Cleanup(observability.ResetForTest)
}

// mockTrackerProvider hands out a fixed tracker.
type mockTrackerProvider struct {
	tracker issues.Tracker
	err     error
}

func (p *mockTrackerProvider) Create(context.Context, config.GitHubConfig, *zap.Logger) (issues.Tracker, error) {
	return p.tracker, p.err
}

// newPristineRootCmd returns a fresh command tree writing to tracker.
func newPristineRootCmd(tracker *mocks.MockTracker) *cobra.Command {
	return newRootCmd(&mockTrackerProvider{tracker: tracker})
}

// executeCommand runs args against a fresh tree and returns stdout and stderr.
func executeCommand(t *testing.T, tracker *mocks.MockTracker, args ...string) (string, string, error) {
	t.Helper()
	root := newPristineRootCmd(tracker)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeFile creates name under the working directory with content.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path, err := filepath.Abs(name)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
