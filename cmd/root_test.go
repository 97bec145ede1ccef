// File: cmd/root_test.go
package cmd

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/nsreconcile/internal/config"
)

func TestRootCmd_VersionFlag(t *testing.T) {
	resetForTest(t)
	stdout, _, err := executeCommand(t, nil, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", stdout)
}

func TestVersionCmd(t *testing.T) {
	resetForTest(t)
	stdout, _, err := executeCommand(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "nsreconcile "+Version)
}

func TestRootCmd_NoArgs(t *testing.T) {
	resetForTest(t)
	stdout, _, err := executeCommand(t, nil)
	require.NoError(t, err)
	assert.Contains(t, stdout, "keeps exactly one open GitHub")
	assert.Contains(t, stdout, "issues")
}

// captureConfig runs args with a probe subcommand and returns the settings
// it received.
func captureConfig(t *testing.T, args ...string) (config.Interface, error) {
	t.Helper()
	var got config.Interface
	root := newPristineRootCmd(nil)
	probe := &cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			got, err = getConfigFromContext(cmd.Context())
			return err
		},
	}
	probe.Flags().String("policy", "", "")
	probe.Flags().String("report", "", "")
	root.AddCommand(probe)
	root.SetArgs(append([]string{"probe"}, args...))
	err := root.ExecuteContext(context.Background())
	return got, err
}

func TestRootCmd_SettingsLayering(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		resetForTest(t)
		cfg, err := captureConfig(t)
		require.NoError(t, err)
		assert.Equal(t, "nsreconcile", cfg.Logger().ServiceName)
		assert.Empty(t, cfg.Run().PolicyPath)
	})

	t.Run("settings file found in working directory", func(t *testing.T) {
		resetForTest(t)
		writeFile(t, "nsreconcile.yaml", "github:\n  owner: acme\n  repo: app\nrun:\n  policy_path: policies\n")
		cfg, err := captureConfig(t)
		require.NoError(t, err)
		assert.Equal(t, "acme", cfg.GitHub().Owner)
		assert.Equal(t, "policies", cfg.Run().PolicyPath)
	})

	t.Run("explicit settings file", func(t *testing.T) {
		resetForTest(t)
		path := writeFile(t, "conf/custom.yaml", "run:\n  report_path: from-file.json\n")
		cfg, err := captureConfig(t, "--settings", path)
		require.NoError(t, err)
		assert.Equal(t, "from-file.json", cfg.Run().ReportPath)
	})

	t.Run("env overrides file and flag overrides env", func(t *testing.T) {
		resetForTest(t)
		writeFile(t, "nsreconcile.yaml", "run:\n  policy_path: from-file\n  report_path: from-file.json\n")
		t.Setenv("NSRECONCILE_RUN_POLICY_PATH", "from-env")
		t.Setenv("NSRECONCILE_RUN_REPORT_PATH", "from-env.json")

		cfg, err := captureConfig(t, "--report", "from-flag.json")
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Run().PolicyPath)
		assert.Equal(t, "from-flag.json", cfg.Run().ReportPath)
	})

	t.Run("missing explicit settings file", func(t *testing.T) {
		resetForTest(t)
		_, err := captureConfig(t, "--settings", "nope.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize configuration")
	})

	t.Run("invalid settings", func(t *testing.T) {
		resetForTest(t)
		t.Setenv("NSRECONCILE_LOGGER_FORMAT", "xml")
		_, err := captureConfig(t)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger.format")
	})
}

func TestGetConfigFromContext_Missing(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)
}
