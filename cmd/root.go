// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/nsreconcile/internal/config"
	"github.com/xkilldash9x/nsreconcile/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// envPrefix prefixes every settings environment variable,
// e.g. NSRECONCILE_LOGGER_LEVEL.
const envPrefix = "NSRECONCILE"

var cfgFile string

// flagKeys maps command flags onto the settings keys they override.
var flagKeys = map[string]string{
	"policy":   "run.policy_path",
	"report":   "run.report_path",
	"interval": "run.issue_interval",
	"timeout":  "run.timeout",
}

// newRootCmd builds the command tree. Each call returns an independent tree
// whose issues command writes through provider.
func newRootCmd(provider trackerProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nsreconcile",
		Short: "Reconcile mobile security assessment findings with GitHub issues.",
		Long: `nsreconcile reads an assessment report and keeps exactly one open GitHub
issue per in-scope finding, as selected by the jobs of a .nsconfig.yml policy.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "nsreconcile"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting nsreconcile", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, config.Interface(cfg)))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "settings", "s", "", "settings file (default is ./nsreconcile.yaml)")
	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.AddCommand(newIssuesCmd(provider))
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

var rootCmd = newRootCmd(NewTrackerProvider())

// Execute runs the root command with ctx, logging any failure.
func Execute(ctx context.Context) error {
	defer observability.Sync()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			observability.GetLogger().Warn("Run aborted by signal.")
			return err
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// initializeConfig layers the settings file, NSRECONCILE_* environment
// variables and the flags of cmd onto v.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return fmt.Errorf("settings file: %w", err)
		}
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("nsreconcile")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading settings file: %w", err)
		}
	}

	for name, key := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}
	return nil
}

// getConfigFromContext returns the settings stored by PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not found in command context")
	}
	return cfg, nil
}
