package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"health-data-pipeline/internal/model"
	"health-data-pipeline/internal/policy"
)

// Fetcher retrieves raw observations for one country. Implementations
// may block on network I/O; each call is independent of every other.
type Fetcher interface {
	// Countries lists the countries this fetcher has a source for.
	Countries(dataset string) []string

	// Fetch returns the raw record for one country, or an error if the
	// source is unreachable or unparsable.
	Fetch(ctx context.Context, dataset, country string) (*model.CountryRecord, error)
}

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 4

// ResolveWorkerCount turns a configured worker count into a concrete
// pool size. Zero means the default; a negative value means "all
// available execution units minus that margin", floored at one.
func ResolveWorkerCount(n int) int {
	switch {
	case n == 0:
		return DefaultWorkers
	case n < 0:
		if w := runtime.NumCPU() + n; w >= 1 {
			return w
		}
		return 1
	default:
		return n
	}
}

// FetchCountries runs one fetch task per non-excluded country on a
// bounded worker pool. Each task's failure is captured in the report
// independently; a failed country never cancels its siblings and never
// aborts the run. The only error return is a pool that cannot be
// constructed.
func FetchCountries(
	ctx context.Context,
	dataset string,
	countries []string,
	fetcher Fetcher,
	pol *policy.Store,
	workers int,
	report *model.RunReport,
) (map[string]*model.CountryRecord, error) {
	if workers < 1 {
		return nil, fmt.Errorf("fetch pool needs at least one worker, got %d", workers)
	}

	jobs := make(chan string)
	records := make(map[string]*model.CountryRecord)
	var mu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for country := range jobs {
				record, err := fetcher.Fetch(ctx, dataset, country)
				if err != nil {
					if !model.IsFetchError(err) {
						err = &model.FetchError{Country: country, Err: err}
					}
					report.AddFetchFailure(country, err)
					fetchesTotal.WithLabelValues(dataset, "failed").Inc()
					fmt.Printf("❌ Fetch failed for %s: %v\n", country, err)
					continue
				}
				record.SortByDate()
				mu.Lock()
				records[country] = record
				mu.Unlock()
				report.AddFetched(country)
				fetchesTotal.WithLabelValues(dataset, "succeeded").Inc()
			}
		}()
	}

	for _, country := range countries {
		if pol.IsCountryExcluded(dataset, country) {
			continue
		}
		jobs <- country
	}
	close(jobs)
	wg.Wait()

	return records, nil
}
