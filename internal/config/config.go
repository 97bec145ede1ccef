// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	GitHub() GitHubConfig
	Run() RunConfig

	// Run Setters, for values supplied as command flags.
	SetRunJob(string)
	SetRunDryRun(bool)
}

// Config holds the application settings. The policy document that drives
// reconciliation is not part of it; see package nsconfig.
type Config struct {
	LoggerCfg LoggerConfig `mapstructure:"logger" yaml:"logger"`
	GitHubCfg GitHubConfig `mapstructure:"github" yaml:"github"`
	RunCfg    RunConfig    `mapstructure:"run" yaml:"run"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig { return c.LoggerCfg }
func (c *Config) GitHub() GitHubConfig { return c.GitHubCfg }
func (c *Config) Run() RunConfig       { return c.RunCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetRunJob(job string)     { c.RunCfg.Job = job }
func (c *Config) SetRunDryRun(dryRun bool) { c.RunCfg.DryRun = dryRun }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// GitHubConfig locates the repository that holds the tracking issues.
type GitHubConfig struct {
	Token string `mapstructure:"token" yaml:"-"`
	Owner string `mapstructure:"owner" yaml:"owner"`
	Repo  string `mapstructure:"repo" yaml:"repo"`
	// APIURL points at a GitHub Enterprise Server API; empty means github.com.
	APIURL string `mapstructure:"api_url" yaml:"api_url"`
}

// RunConfig holds the inputs of one reconciliation run.
type RunConfig struct {
	PolicyPath string `mapstructure:"policy_path" yaml:"policy_path"`
	Job        string `mapstructure:"job" yaml:"job"`
	ReportPath string `mapstructure:"report_path" yaml:"report_path"`
	DryRun     bool   `mapstructure:"dry_run" yaml:"dry_run"`
	// IssueInterval spaces consecutive issue writes.
	IssueInterval time.Duration `mapstructure:"issue_interval" yaml:"issue_interval"`
	// Timeout bounds the whole run, including every tracker call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "nsreconcile")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- GitHub --
	v.SetDefault("github.owner", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.api_url", "")

	// -- Run --
	v.SetDefault("run.policy_path", "")
	v.SetDefault("run.job", "")
	v.SetDefault("run.report_path", "")
	v.SetDefault("run.dry_run", false)
	v.SetDefault("run.issue_interval", "1s")
	v.SetDefault("run.timeout", "10m")
}

// NewConfigFromViper builds and validates a Config from v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data. GITHUB_TOKEN is what
	// CI runners provide.
	v.BindEnv("github.token", "NSRECONCILE_GITHUB_TOKEN", "GITHUB_TOKEN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// GITHUB_REPOSITORY is "owner/repo" on GitHub Actions runners.
	if cfg.GitHubCfg.Owner == "" && cfg.GitHubCfg.Repo == "" {
		if owner, repo, ok := strings.Cut(os.Getenv("GITHUB_REPOSITORY"), "/"); ok {
			cfg.GitHubCfg.Owner, cfg.GitHubCfg.Repo = owner, repo
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values. Fields only some
// commands need are checked by GitHubConfig.Validate and RunConfig.Validate.
func (c *Config) Validate() error {
	switch c.LoggerCfg.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be \"console\" or \"json\", got %q", c.LoggerCfg.Format)
	}
	if c.RunCfg.IssueInterval < 0 {
		return fmt.Errorf("run.issue_interval must not be negative")
	}
	if c.RunCfg.Timeout < 0 {
		return fmt.Errorf("run.timeout must not be negative")
	}
	return nil
}

// Validate checks the settings needed to talk to the issue tracker.
func (g GitHubConfig) Validate() error {
	if g.Owner == "" || g.Repo == "" {
		return fmt.Errorf("github.owner and github.repo are required")
	}
	if g.Token == "" {
		return fmt.Errorf("GitHub token is required but not found. Ensure NSRECONCILE_GITHUB_TOKEN or GITHUB_TOKEN is set")
	}
	return nil
}

// Validate checks the settings needed to run reconciliation.
func (r RunConfig) Validate() error {
	if r.ReportPath == "" {
		return fmt.Errorf("run.report_path is required")
	}
	return nil
}
