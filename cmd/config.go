// File: cmd/config.go
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/nsreconcile/internal/nsconfig"
	"github.com/xkilldash9x/nsreconcile/internal/observability"
)

// newConfigCmd creates the `config` command group for inspecting policy
// documents without touching GitHub.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate .nsconfig.yml policy documents",
	}
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigCheckCmd())
	return configCmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		job         string
		jobType     string
		knownChecks []string
	)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the fully resolved settings of a job as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			jt, err := nsconfig.ParseJobType(jobType)
			if err != nil {
				return err
			}
			return runConfigShow(observability.GetLogger(), cfg.Run().PolicyPath, job, jt, knownChecks, cmd.OutOrStdout())
		},
	}

	showCmd.Flags().String("policy", "", "Policy document or directory holding .nsconfig.yml (default ./.nsconfig.yml)")
	showCmd.Flags().StringVarP(&job, "job", "j", "", "Named job under configs; empty shows the outer settings")
	showCmd.Flags().StringVarP(&jobType, "type", "t", string(nsconfig.JobIssues), "Job type to resolve: issues or sarif")
	showCmd.Flags().StringSliceVar(&knownChecks, "known-checks", nil, "Check keys filters may name; unset accepts any")
	return showCmd
}

func runConfigShow(logger *zap.Logger, policyPath, job string, jt nsconfig.JobType, knownChecks []string, out io.Writer) error {
	doc, err := nsconfig.Load(policyPath, nsconfig.WithKnownChecks(knownChecks...), nsconfig.WithLogger(logger))
	if err != nil {
		return err
	}
	resolved, err := doc.Resolve(job, jt)
	if err != nil {
		return fmt.Errorf("resolving %s job %q: %w", jt, job, err)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(resolved); err != nil {
		return fmt.Errorf("encoding resolved job: %w", err)
	}
	return enc.Close()
}

func newConfigCheckCmd() *cobra.Command {
	var knownChecks []string

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a policy document and every job it defines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runConfigCheck(observability.GetLogger(), cfg.Run().PolicyPath, knownChecks, cmd.OutOrStdout())
		},
	}

	checkCmd.Flags().String("policy", "", "Policy document or directory holding .nsconfig.yml (default ./.nsconfig.yml)")
	checkCmd.Flags().StringSliceVar(&knownChecks, "known-checks", nil, "Check keys filters may name; unset accepts any")
	return checkCmd
}

// runConfigCheck resolves every named job as each job type it admits. Load
// already rejects a job no type admits, so each job lists at least one type.
func runConfigCheck(logger *zap.Logger, policyPath string, knownChecks []string, out io.Writer) error {
	doc, err := nsconfig.Load(policyPath, nsconfig.WithKnownChecks(knownChecks...), nsconfig.WithLogger(logger))
	if err != nil {
		return err
	}

	for _, name := range doc.Names() {
		var admitted []string
		for _, jt := range nsconfig.JobTypes {
			if !doc.Admits(name, jt) {
				continue
			}
			if _, err := doc.Resolve(name, jt); err != nil {
				return fmt.Errorf("resolving %s job %q: %w", jt, name, err)
			}
			admitted = append(admitted, string(jt))
		}
		fmt.Fprintf(out, "%s: %s\n", name, strings.Join(admitted, ", "))
	}

	fmt.Fprintf(out, "%s: OK (%d jobs, %d named filters)\n", displayPath(doc.Path()), len(doc.Names()), len(doc.FilterNames()))
	return nil
}

func displayPath(path string) string {
	if path == "" {
		return "<defaults>"
	}
	return path
}
