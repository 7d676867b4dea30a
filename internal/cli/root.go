package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath  string
	SourcesPath string
}

// NewRootCommand creates the root command for the pipeline CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Public-health time-series validation and reconciliation pipeline",
		Long: "Fetches daily public-health time series from per-country sources, validates\n" +
			"cumulative metrics against monotonicity rules, reconciles declared source\n" +
			"anomalies, and exports a unified dataset per metric family.",
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "pipeline.yaml", "pipeline policy configuration file")
	cmd.PersistentFlags().StringVar(&opts.SourcesPath, "sources", "sources.yaml", "per-country source registry file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewDatasetsCommand())

	return cmd
}
