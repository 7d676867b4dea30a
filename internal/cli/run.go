package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"health-data-pipeline/internal/export"
	"health-data-pipeline/internal/fetch"
	"health-data-pipeline/internal/model"
	"health-data-pipeline/internal/pipeline"
	"health-data-pipeline/internal/policy"
	"health-data-pipeline/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Workers int
	Output  string
	Format  string
	DBPath  string
}

// NewRunCommand creates the run command: it drives one pipeline run per
// selected dataset (all configured datasets when none are named).
func NewRunCommand(root *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run [dataset...]",
		Short: "Run the pipeline for one or more datasets",
		Long: "Runs Get → Process → Generate → Export for each selected dataset.\n" +
			"Negative --workers means all CPUs minus that margin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatasets(root, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "worker pool size (0 = default, negative = NumCPU minus margin)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "output", "export directory")
	cmd.Flags().StringVar(&opts.Format, "format", "csv", "export format (csv|json)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "optional sqlite path for run tracking")

	return cmd
}

func runDatasets(root *RootOptions, opts *RunOptions, datasets []string) error {
	pol, err := policy.Load(root.ConfigPath)
	if err != nil {
		return err
	}
	sources, err := fetch.LoadSources(root.SourcesPath)
	if err != nil {
		return err
	}
	if opts.DBPath != "" {
		if err := store.InitDB(opts.DBPath); err != nil {
			return fmt.Errorf("init run store: %w", err)
		}
	}

	if len(datasets) == 0 {
		datasets = pol.Datasets()
	}
	for _, dataset := range datasets {
		if _, ok := model.Datasets[dataset]; !ok {
			return &model.ConfigError{Dataset: dataset, Message: "unknown dataset"}
		}
	}

	deps := pipeline.Deps{
		Policy:   pol,
		Fetcher:  fetch.New(sources),
		Exporter: export.NewFileExporter(opts.Output, opts.Format),
		Workers:  opts.Workers,
	}

	var firstErr error
	for _, dataset := range datasets {
		runID := uuid.New().String()
		store.SaveRun(runID, dataset)

		report, err := pipeline.Run(cmdContext(), runID, dataset, deps)
		if err != nil {
			fmt.Printf("❌ %s run failed: %v\n", dataset, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		printSummary(report)
	}
	return firstErr
}

func printSummary(report *model.RunReport) {
	partial := 0
	for _, country := range report.Fetched {
		if report.CountryOutcome(country) == model.CountryPartial {
			partial++
		}
	}
	fmt.Printf("📋 %s: %d countries fetched (%d with rejected points), %d failed, %d exempted, %d rejected\n",
		report.Dataset, len(report.Fetched), partial, len(report.FetchFails),
		len(report.Exempted), len(report.Rejected))
}
