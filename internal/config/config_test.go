// File: internal/config/config_test.go
package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "console", cfg.Logger().Format)
	assert.Equal(t, "nsreconcile", cfg.Logger().ServiceName)
	assert.Empty(t, cfg.Logger().LogFile)
	assert.Equal(t, time.Second, cfg.Run().IssueInterval)
	assert.Equal(t, 10*time.Minute, cfg.Run().Timeout)
	assert.False(t, cfg.Run().DryRun)
	assert.Empty(t, cfg.GitHub().APIURL)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		assert.NoError(t, cfg.Validate())

		badFormat := *cfg
		badFormat.LoggerCfg.Format = "xml"
		err := badFormat.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger.format")

		badInterval := *cfg
		badInterval.RunCfg.IssueInterval = -time.Second
		err = badInterval.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "run.issue_interval must not be negative")

		badTimeout := *cfg
		badTimeout.RunCfg.Timeout = -time.Second
		assert.Error(t, badTimeout.Validate())
	})

	t.Run("GitHub Validation", func(t *testing.T) {
		valid := GitHubConfig{Token: "ghp_testtoken123", Owner: "test-owner", Repo: "test-repo"}
		assert.NoError(t, valid.Validate())

		missingOwner := valid
		missingOwner.Owner = ""
		err := missingOwner.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "github.owner and github.repo are required")

		missingToken := valid
		missingToken.Token = ""
		err = missingToken.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "GitHub token is required but not found")
	})

	t.Run("Run Validation", func(t *testing.T) {
		assert.Error(t, RunConfig{}.Validate())
		assert.NoError(t, RunConfig{ReportPath: "report.json"}.Validate())
	})
}

// -- Setter Tests --

func TestSetters(t *testing.T) {
	var cfg Interface = NewDefaultConfig()
	cfg.SetRunJob("release")
	cfg.SetRunDryRun(true)
	assert.Equal(t, "release", cfg.Run().Job)
	assert.True(t, cfg.Run().DryRun)
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
github:
  owner: acme
  repo: mobile-app
run:
  policy_path: ~/policies/.nsconfig.yml
  issue_interval: 250ms
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "acme", cfg.GitHub().Owner)
		assert.Equal(t, "mobile-app", cfg.GitHub().Repo)
		assert.Equal(t, "~/policies/.nsconfig.yml", cfg.Run().PolicyPath)
		assert.Equal(t, 250*time.Millisecond, cfg.Run().IssueInterval)
		// Check a default value was also loaded
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("logger.format", "xml")

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetEnvPrefix("NSRECONCILE")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		yamlConfig := []byte(`
github:
  repo: from-file
`)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

		t.Setenv("GITHUB_TOKEN", "ghp_runner_token")
		t.Setenv("NSRECONCILE_GITHUB_REPO", "from-env")
		t.Setenv("NSRECONCILE_GITHUB_OWNER", "acme")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "ghp_runner_token", cfg.GitHub().Token)
		// The env var overrides the value from the config buffer.
		assert.Equal(t, "from-env", cfg.GitHub().Repo)
		assert.Equal(t, "acme", cfg.GitHub().Owner)
	})

	t.Run("Prefixed token wins over runner token", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		t.Setenv("GITHUB_TOKEN", "ghp_runner_token")
		t.Setenv("NSRECONCILE_GITHUB_TOKEN", "ghp_explicit_token")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "ghp_explicit_token", cfg.GitHub().Token)
	})

	t.Run("Repository from GITHUB_REPOSITORY", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		t.Setenv("GITHUB_REPOSITORY", "acme/mobile-app")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "acme", cfg.GitHub().Owner)
		assert.Equal(t, "mobile-app", cfg.GitHub().Repo)
	})
}
