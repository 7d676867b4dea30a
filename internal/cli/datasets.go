package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"health-data-pipeline/internal/model"
)

// NewDatasetsCommand creates the datasets command, listing the known
// metric families and their columns.
func NewDatasetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List known datasets and their metrics",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range model.DatasetNames() {
				def := model.Datasets[name]
				fmt.Printf("%s\n", name)
				fmt.Printf("  metrics:      %s\n", strings.Join(def.Metrics, ", "))
				if len(def.Cumulative) > 0 {
					fmt.Printf("  cumulative:   %s\n", strings.Join(def.Cumulative, ", "))
				}
				if len(def.Completeness) > 0 {
					fmt.Printf("  completeness: %s\n", strings.Join(def.Completeness, ", "))
				}
			}
		},
	}
}

func cmdContext() context.Context {
	return context.Background()
}
