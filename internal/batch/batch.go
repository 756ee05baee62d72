// Package batch runs independent document jobs in parallel workers. Jobs
// share nothing but the transcript sink; one job's failure, panics included,
// never affects its siblings.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/spherical/docmark/internal/domain"
)

// Job is one unit of batch work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Summary aggregates batch results. Results is keyed by job name; iteration
// order carries no meaning.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	// FailedNames lists failed jobs in submission order.
	FailedNames []string
	Results     map[string]bool
}

// AllSucceeded reports whether every job completed successfully.
func (s Summary) AllSucceeded() bool { return s.Failed == 0 }

// Orchestrator runs job sets with bounded parallelism.
type Orchestrator struct {
	log          zerolog.Logger
	maxWorkers   int
	showProgress bool
}

// NewOrchestrator builds an orchestrator. maxWorkers <= 0 defaults to the
// available hardware parallelism.
func NewOrchestrator(log zerolog.Logger, maxWorkers int, showProgress bool) *Orchestrator {
	return &Orchestrator{log: log, maxWorkers: maxWorkers, showProgress: showProgress}
}

// Run executes all jobs and returns the aggregate summary. It always
// completes: errors and panics are recorded per job, never propagated.
func (o *Orchestrator) Run(ctx context.Context, jobs []Job) Summary {
	summary := Summary{Total: len(jobs), Results: make(map[string]bool, len(jobs))}
	if len(jobs) == 0 {
		return summary
	}

	workers := o.maxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	o.log.Info().Int("jobs", len(jobs)).Int("workers", workers).Msg("batch started")

	var bar *progressbar.ProgressBar
	if o.showProgress {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetDescription("converting"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var mu sync.Mutex
	outcomes := make(map[string]error, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		g.Go(func() error {
			err := o.runOne(gctx, job)

			mu.Lock()
			outcomes[job.Name] = err
			mu.Unlock()

			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, job := range jobs {
		err := outcomes[job.Name]
		summary.Results[job.Name] = err == nil
		if err == nil {
			summary.Succeeded++
		} else {
			summary.Failed++
			summary.FailedNames = append(summary.FailedNames, job.Name)
		}
	}
	o.log.Info().Int("succeeded", summary.Succeeded).Int("failed", summary.Failed).Msg("batch complete")
	return summary
}

// runOne is the job boundary: any error or panic is converted into a
// JobFailure here and goes no further.
func (o *Orchestrator) runOne(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.JobFailureError(job.Name, fmt.Errorf("panic: %v", r))
			o.log.Error().Str("job", job.Name).Interface("panic", r).Msg("job panicked")
		}
	}()

	if err := job.Run(ctx); err != nil {
		o.log.Error().Str("job", job.Name).Err(err).Msg("job failed")
		return domain.JobFailureError(job.Name, err)
	}
	o.log.Info().Str("job", job.Name).Msg("job succeeded")
	return nil
}
