package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"health-data-pipeline/internal/model"
	"health-data-pipeline/internal/policy"
	"health-data-pipeline/internal/store"
)

// Exporter is the external sink collaborator. A failed export is the
// only per-dataset failure that aborts the run.
type Exporter interface {
	Export(ctx context.Context, dataset string, table *model.UnifiedTable) error
}

// Deps wires the collaborators for one dataset run. The policy store is
// read-only and shared by every stage.
type Deps struct {
	Policy   *policy.Store
	Fetcher  Fetcher
	Exporter Exporter
	Workers  int // raw configured value; resolved at run start
}

// ------------------- Dataset Pipeline Runner -------------------

// Run drives the Get → Process → Generate → Export sequence for one
// dataset. Per-country and per-point failures are recorded in the
// returned report and never terminate the run; only an unknown dataset,
// an unbuildable worker pool, or an export failure return an error.
func Run(ctx context.Context, runID, dataset string, deps Deps) (*model.RunReport, error) {
	start := time.Now()
	fmt.Printf("🚀 Starting %s pipeline (run %s)\n", dataset, runID)

	def, ok := model.Datasets[dataset]
	if !ok {
		return nil, &model.ConfigError{Dataset: dataset, Message: "unknown dataset"}
	}

	report := model.NewRunReport(runID, dataset)
	workers := ResolveWorkerCount(deps.Workers)

	// --- GET STAGE ---
	store.UpdateRunStatus(runID, "fetching")
	countries := deps.Policy.AllowList(dataset)
	if countries == nil {
		countries = deps.Fetcher.Countries(dataset)
	}
	records, err := FetchCountries(ctx, dataset, countries, deps.Fetcher, deps.Policy, workers, report)
	if err != nil {
		store.UpdateRunStatus(runID, "failed")
		store.SaveRunError(runID, err)
		runsTotal.WithLabelValues(dataset, "failed").Inc()
		return report, err
	}
	fmt.Printf("➡️ Get stage done: %d countries fetched, %d failed\n", len(records), len(report.FetchFails))

	// --- PROCESS STAGE ---
	store.UpdateRunStatus(runID, "validating")
	resolver := NewOverrideResolver(deps.Policy)

	jobs := make(chan *model.CountryRecord)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for record := range jobs {
				relaxed := deps.Policy.IsMonotonicityRelaxed(dataset, record.Country)
				verdicts := CheckRecord(def, record, relaxed, resolver)
				report.AddVerdicts(verdicts)
				for _, v := range verdicts {
					verdictsTotal.WithLabelValues(dataset, string(v.Status)).Inc()
				}
			}
		}()
	}
	for _, record := range records {
		jobs <- record
	}
	close(jobs)
	wg.Wait()
	fmt.Printf("🔍 Process stage done: %d exempted, %d rejected\n", len(report.Exempted), len(report.Rejected))

	// --- GENERATE STAGE ---
	store.UpdateRunStatus(runID, "generating")
	table := Generate(def, records, deps.Policy, report)
	fmt.Printf("📊 Generate stage done: %d rows, %d columns\n", len(table.Rows), len(table.Columns))

	// --- EXPORT STAGE ---
	store.UpdateRunStatus(runID, "exporting")
	if err := deps.Exporter.Export(ctx, dataset, table); err != nil {
		report.Finalize()
		store.UpdateRunStatus(runID, "failed")
		store.SaveRunError(runID, err)
		store.SaveReport(report)
		runsTotal.WithLabelValues(dataset, "failed").Inc()
		if !model.IsExportError(err) {
			err = &model.ExportError{Dataset: dataset, Err: err}
		}
		return report, err
	}

	report.Finalize()
	store.UpdateRunStatus(runID, "completed")
	store.SaveReport(report)
	runsTotal.WithLabelValues(dataset, "completed").Inc()

	fmt.Printf("🏁 Pipeline completed for %s in %v\n", dataset, time.Since(start))
	return report, nil
}
