package converter

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/register-interests/internal/config"
	"github.com/ginjaninja78/register-interests/internal/errata"
)

// =============================================================================
// RUNNER
// =============================================================================

// Runner parses many subject pages concurrently.
type Runner struct {
	// Registry is shared by every converter. It is never mutated.
	Registry *errata.Registry

	Logger *zap.Logger

	// MaxConcurrency bounds the pages parsed at once. Zero or less means
	// no limit.
	MaxConcurrency int

	// ContinueOnError keeps going when a page cannot be parsed. When false,
	// the first failure cancels the pages not yet started.
	ContinueOnError bool
}

// Run parses every job and returns one Result per job, in job order.
// Skipped pages are included.
//
// RETURNS:
//   - The results.
//   - The first page failure when ContinueOnError is false, or the
//     context's error if it was cancelled.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	if r.MaxConcurrency > 0 {
		g.SetLimit(r.MaxConcurrency)
	}

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			result := New(job, r.Registry, logger).Run(gctx)
			results[i] = result
			if result.Success {
				return nil
			}

			logger.Error("Failed to process page", zap.String("file", job.Path), zap.Error(result.Error))
			if r.ContinueOnError {
				return nil
			}
			return fmt.Errorf("%s: %w", job.Path, result.Error)
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// Jobs expands the register configurations into one job per page file.
//
// PARAMETERS:
//   - inputDir: The directory the register patterns are relative to.
//   - registers: The register configurations to expand.
//   - subject: When set, every job is restricted to that subject.
func Jobs(inputDir string, registers []*config.RegisterConfig, subject string) ([]Job, error) {
	var jobs []Job
	for _, reg := range registers {
		files, err := reg.Files(inputDir)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", reg.Name, err)
		}
		for _, file := range files {
			jobs = append(jobs, Job{
				Path:      file,
				Period:    reg.Period,
				ContentID: reg.ContentID,
				Register:  reg.Name,
				Subject:   subject,
			})
		}
	}
	return jobs, nil
}

// =============================================================================
// RESULT HELPERS
// =============================================================================

// Summary totals a run's results.
type Summary struct {
	Pages       int
	Parsed      int
	Skipped     int
	Failed      int
	Interests   int
	Diagnostics int
}

// Summarize totals results. Jobs never started after a cancellation are
// not counted.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.FilePath == "" {
			continue
		}
		s.Pages++
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Success:
			s.Parsed++
			s.Interests += len(r.Interests)
			s.Diagnostics += len(r.Diagnostics)
		default:
			s.Failed++
		}
	}
	return s
}
