// =============================================================================
// Register Interests Parser - Converter Module
// =============================================================================
//
// This module runs the parsing pipeline for a single subject page.
//
// CONVERSION PIPELINE:
//   1. Read the page and build the document tree
//   2. Determine the subject from the page heading (or the file name)
//   3. Walk the structural lines in document order
//   4. Accumulate records, consulting the errata registry on failures
//   5. Return the committed interests with their diagnostics
//
// CONCURRENCY:
//   A Converter owns its accumulator and touches no shared mutable state.
//   Many run at once under a Runner; the registry they share is read-only.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/register-interests/internal/document"
	"github.com/ginjaninja78/register-interests/internal/errata"
	"github.com/ginjaninja78/register-interests/internal/htmltree"
	"github.com/ginjaninja78/register-interests/internal/interest"
	"github.com/ginjaninja78/register-interests/internal/taxonomy"
	"github.com/ginjaninja78/register-interests/internal/textnorm"
	"github.com/ginjaninja78/register-interests/internal/types"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single subject page.
type Result struct {
	// FilePath is the page that was processed.
	FilePath string

	// Subject is the normalised "surname, forename" of the page.
	// This is empty if the page could not be read.
	Subject string

	// Period is the reporting period of the register the page belongs to.
	Period string

	// Interests are the committed records, in document order.
	Interests []types.Interest

	// Diagnostics are the anomalies no errata rule could correct.
	Diagnostics []interest.Diagnostic

	// Success indicates whether the page was parsed. A page with
	// diagnostics is still a success.
	Success bool

	// Skipped is set when the page belongs to a subject other than the one
	// requested. Skipped pages are successful and carry no records.
	Skipped bool

	// Error contains the error if processing failed. Partial results of a
	// failed page are discarded.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// LinesProcessed is the number of structural lines walked.
	LinesProcessed int

	// InterestsCreated is the number of committed interests.
	InterestsCreated int

	// Diagnostics is the number of uncorrected anomalies.
	Diagnostics int

	// ProcessingTime is the time taken to process the page.
	ProcessingTime time.Duration
}

// =============================================================================
// JOB STRUCTURE
// =============================================================================

// Job names one subject page of one register.
type Job struct {
	// Path is the page file.
	Path string

	// Period is the register's reporting period.
	Period string

	// ContentID is the id of the element wrapping the register text.
	ContentID string

	// Register is the register's name, for logs.
	Register string

	// Subject, when set, restricts parsing to the page of that subject.
	// It is normalised before comparison.
	Subject string
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter parses one subject page.
type Converter struct {
	job      Job
	registry *errata.Registry
	logger   *zap.Logger
}

// New creates a new Converter instance.
//
// PARAMETERS:
//   - job: The page to parse and its register settings.
//   - registry: The errata consulted on failures. May be nil.
//   - logger: May be nil.
//
// RETURNS:
//   - A new Converter instance.
func New(job Job, registry *errata.Registry, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if job.ContentID == "" {
		job.ContentID = htmltree.DefaultContentID
	}
	return &Converter{
		job:      job,
		registry: registry,
		logger:   logger.Named("converter").With(zap.String("file", job.Path), zap.String("period", job.Period)),
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the page. It returns early with the
// context's error if ctx is already done, and fails the page without reading
// it when the job's period is malformed.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{
		FilePath: c.job.Path,
		Period:   c.job.Period,
	}

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	if _, err := taxonomy.StartYear(c.job.Period); err != nil {
		result.Error = fmt.Errorf("register %q: %w", c.job.Register, err)
		return result
	}

	// =========================================================================
	// STEP 1: BUILD THE DOCUMENT TREE
	// =========================================================================

	page, err := htmltree.LoadFile(c.job.Path, c.job.ContentID)
	if err != nil {
		result.Error = fmt.Errorf("failed to load page: %w", err)
		return result
	}

	// =========================================================================
	// STEP 2: DETERMINE THE SUBJECT
	// =========================================================================

	subject, err := c.subject(page)
	if err != nil {
		result.Error = err
		return result
	}
	result.Subject = subject

	if c.job.Subject != "" && !sameSubject(c.job.Subject, subject) {
		result.Success = true
		result.Skipped = true
		return result
	}
	c.logger.Info("Processing subject", zap.String("subject", subject))

	// =========================================================================
	// STEP 3-4: WALK AND ACCUMULATE
	// =========================================================================

	acc := interest.NewAccumulator(subject, c.job.Period, c.registry, c.logger)
	out := acc.Run(counted(page.Lines(), &result.Stats.LinesProcessed))

	// =========================================================================
	// COMPLETE
	// =========================================================================

	result.Interests = out.Interests
	result.Diagnostics = out.Diagnostics
	result.Success = true
	result.Stats.InterestsCreated = len(out.Interests)
	result.Stats.Diagnostics = len(out.Diagnostics)
	result.Stats.ProcessingTime = time.Since(startTime)

	c.logger.Debug("Processed subject",
		zap.String("subject", subject),
		zap.Int("lines", result.Stats.LinesProcessed),
		zap.Int("interests", result.Stats.InterestsCreated),
		zap.Int("diagnostics", result.Stats.Diagnostics),
	)

	return result
}

// subject reads the subject name from the page heading, falling back to a
// file named like "abbott_diane.htm".
func (c *Converter) subject(page *htmltree.Page) (string, error) {
	subject, err := textnorm.NormalizeSubject(page.SubjectName())
	if err == nil {
		return subject, nil
	}

	fallback, ferr := textnorm.NormalizeSubject(SubjectFromFileName(c.job.Path))
	if ferr != nil {
		return "", fmt.Errorf("failed to determine subject: %w", err)
	}
	c.logger.Warn("Subject heading unreadable, using file name",
		zap.String("heading", page.Heading()),
		zap.String("subject", fallback),
	)
	return fallback, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// SubjectFromFileName turns "abbott_diane.htm" into "abbott, diane". Only
// the first underscore separates surname and forename; later ones become
// spaces.
func SubjectFromFileName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	surname, forename, ok := strings.Cut(stem, "_")
	if !ok {
		return stem
	}
	return surname + ", " + strings.ReplaceAll(forename, "_", " ")
}

// sameSubject compares a requested name in any register spelling with a
// normalised subject.
func sameSubject(requested, subject string) bool {
	if normalized, err := textnorm.NormalizeSubject(requested); err == nil {
		requested = normalized
	}
	return strings.EqualFold(strings.TrimSpace(requested), subject)
}

// counted passes lines through, counting them into n.
func counted(lines iter.Seq[document.Line], n *int) iter.Seq[document.Line] {
	return func(yield func(document.Line) bool) {
		for line := range lines {
			*n++
			if !yield(line) {
				return
			}
		}
	}
}
