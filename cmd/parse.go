// =============================================================================
// Register Interests Parser - Parse Command
// =============================================================================
//
// This file defines the 'parse' command, the main command of the tool. It
// orchestrates the whole pipeline.
//
// COMMAND USAGE:
//   interests parse [flags]
//
// FLAGS:
//   --period     : Parse only the registers of one reporting period
//   --subject    : Parse only one member's pages
//   --filter     : Keep interests whose description contains a term
//   --category   : Keep interests of one category code
//   --group-by   : Sum amounts per subject and/or period
//   --order      : Sort rows by a column, largest first
//   --format     : Output formats (csv, xlsx, xml, console)
//   --dry-run    : Parse and report without writing any file
//   --clear-cache: Parse again instead of reusing cached interests
//
// PROCESSING PIPELINE:
//   1. Load configuration, register configurations and errata
//   2. Reuse the cached interests of the same request, or expand the
//      registers into one job per subject page
//   3. Parse the pages concurrently and cache the interests
//   4. Validate the records and build the report
//   5. Write the outputs, the error log and the processing summary
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/register-interests/internal/cache"
	"github.com/ginjaninja78/register-interests/internal/config"
	"github.com/ginjaninja78/register-interests/internal/converter"
	"github.com/ginjaninja78/register-interests/internal/errata"
	"github.com/ginjaninja78/register-interests/internal/export"
	"github.com/ginjaninja78/register-interests/internal/interest"
	"github.com/ginjaninja78/register-interests/internal/report"
	"github.com/ginjaninja78/register-interests/internal/textnorm"
	"github.com/ginjaninja78/register-interests/internal/types"
	"github.com/ginjaninja78/register-interests/internal/validation"
	"github.com/ginjaninja78/register-interests/pkg/utils"
)

// formatConsole prints the report instead of writing a file. It is only
// accepted on the command line.
const formatConsole = "console"

// parseOptions holds the parse command's flags.
type parseOptions struct {
	Period     string
	Subject    string
	Filter     string
	Category   int
	GroupBy    []string
	Order      string
	Formats    []string
	DryRun     bool
	ClearCache bool
}

var parseFlags parseOptions

// =============================================================================
// PARSE COMMAND DEFINITION
// =============================================================================

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse register pages into interest records",
	Long: `The parse command reads every page matched by the register configurations,
extracts the interests it declares and writes them in the configured formats.

Pages are parsed concurrently. A page that cannot be read is reported and
skipped unless continue_on_error is disabled.

Entries that could not be parsed and are not covered by an erratum are
appended to the error log in the output directory.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadMainConfig(cmd)
		if err != nil {
			return err
		}

		logger, closeLogger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer closeLogger()

		return runParse(cmd.Context(), cmd.OutOrStdout(), cfg, logger, parseFlags)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)

	flags := parseCmd.Flags()
	flags.StringVar(&parseFlags.Period, "period", "", "Parse only the registers of this period, e.g. 2015-16")
	flags.StringVar(&parseFlags.Subject, "subject", "", `Parse only this member, e.g. "ABBOTT, Diane"`)
	flags.StringVar(&parseFlags.Filter, "filter", "", "Keep interests whose description contains this term")
	flags.IntVar(&parseFlags.Category, "category", 0, "Keep interests of this category code")
	flags.StringSliceVar(&parseFlags.GroupBy, "group-by", nil, "Sum amounts per subject (mp) and/or period (session)")
	flags.StringVar(&parseFlags.Order, "order", "", "Sort rows by this column, largest first")
	flags.StringSliceVar(&parseFlags.Formats, "format", nil, "Output formats: csv, xlsx, xml, console (default from config)")
	flags.BoolVar(&parseFlags.DryRun, "dry-run", false, "Parse and report without writing any file")
	flags.BoolVar(&parseFlags.ClearCache, "clear-cache", false, "Discard the cached interests of this request and parse again")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runParse runs the pipeline and prints a summary to out.
func runParse(ctx context.Context, out io.Writer, cfg *config.MainConfig, logger *zap.Logger, opts parseOptions) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: CHECK OPTIONS AND LOAD CONFIGURATION
	// =========================================================================

	formats := opts.Formats
	if len(formats) == 0 {
		formats = cfg.OutputFormats
	}
	for _, format := range formats {
		switch format {
		case config.FormatCSV, config.FormatXLSX, config.FormatXML, formatConsole:
		default:
			return fmt.Errorf("unknown output format %q", format)
		}
	}

	var groupKeys []report.GroupKey
	for _, name := range opts.GroupBy {
		key, err := report.ParseGroupKey(name)
		if err != nil {
			return err
		}
		groupKeys = append(groupKeys, key)
	}

	var order report.Column
	if opts.Order != "" {
		column, err := report.ParseColumn(opts.Order)
		if err != nil {
			return err
		}
		order = column
	}

	subject := opts.Subject
	if subject != "" {
		normalized, err := textnorm.NormalizeSubject(subject)
		if err != nil {
			return err
		}
		subject = normalized
	}

	registers, err := config.LoadRegisterConfigs(cfg.ConfigsDir)
	if err != nil {
		return fmt.Errorf("failed to load register configs: %w", err)
	}
	registers = config.SelectPeriod(registers, opts.Period)
	if len(registers) == 0 {
		return fmt.Errorf("no register configured for period %q", opts.Period)
	}

	declarations, err := loadDeclarations(cfg)
	if err != nil {
		return err
	}
	registry, err := buildRegistry(declarations)
	if err != nil {
		return err
	}
	fingerprint, err := errata.Fingerprint(declarations)
	if err != nil {
		return err
	}
	logger.Info("Loaded configuration",
		zap.Int("registers", len(registers)),
		zap.Int("errata", registry.Len()))

	// =========================================================================
	// STEP 2-3: PARSE PAGES, OR REUSE THE CACHED INTERESTS
	// =========================================================================

	store := cache.New(cfg.CacheDir)
	key := cache.Key(opts.Period, subject, fingerprint)
	if cfg.CacheEnabled() && opts.ClearCache {
		if err := store.Clear(key); err != nil {
			return err
		}
	}

	var (
		run    pageRun
		cached cache.Entry
		hit    bool
	)
	if cfg.CacheEnabled() {
		if cached, hit, err = store.Load(key); err != nil {
			logger.Warn("Ignoring unreadable cache entry", zap.String("key", key), zap.Error(err))
			hit = false
		}
	}

	if hit {
		logger.Info("Using cached interests",
			zap.String("key", key),
			zap.Int("interests", len(cached.Interests)),
			zap.Int("diagnostics", len(cached.Diagnostics)))
		run = fromCache(key, cached)
	} else {
		jobs, err := converter.Jobs(cfg.InputDir, registers, subject)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Fprintln(out, "No register pages found in the input directory.")
			return nil
		}
		logger.Info("Parsing pages", zap.Int("pages", len(jobs)))

		runner := &converter.Runner{
			Registry:        registry,
			Logger:          logger,
			MaxConcurrency:  cfg.MaxConcurrency,
			ContinueOnError: cfg.ShouldContinueOnError(),
		}
		results, runErr := runner.Run(ctx, jobs)
		run = collect(results, runErr)

		if cfg.CacheEnabled() && !opts.DryRun && run.complete() {
			if err := store.Save(key, run.cacheEntry()); err != nil {
				logger.Warn("Failed to cache interests", zap.String("key", key), zap.Error(err))
			}
		}
	}
	interests, diagnostics, summary := run.interests, run.pageDiagnostics(), run.summary

	// =========================================================================
	// STEP 4: VALIDATE AND BUILD THE REPORT
	// =========================================================================

	check := validation.NewValidator().ValidateInterests(interests)
	for _, finding := range check.Errors {
		logger.Warn("Record failed validation", zap.String("finding", finding.Error()))
	}

	rep := report.New(interests).Filter(opts.Filter).FilterCategory(opts.Category)
	if len(groupKeys) > 0 {
		rep.GroupBy(groupKeys...)
	}
	if order != "" {
		rep.OrderBy(order)
	}

	// =========================================================================
	// STEP 5: WRITE OUTPUTS
	// =========================================================================

	if slices.Contains(formats, formatConsole) {
		if err := export.WriteConsole(out, rep.Table()); err != nil {
			return err
		}
	}

	fm := utils.NewFileManager(cfg.OutputDir)
	var outputFiles []string
	if !opts.DryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}

		params := map[string]string{}
		if opts.Period != "" {
			params["period"] = opts.Period
		}
		for _, format := range formats {
			if format == formatConsole {
				continue
			}
			path, err := writeReport(fm, cfg.OutputNameFormat, format, rep, diagnostics, params)
			if err != nil {
				return err
			}
			logger.Info("Wrote output", zap.String("format", format), zap.String("path", path))
			outputFiles = append(outputFiles, path)
		}

		if err := utils.WriteErrorLog(run.entries, filepath.Join(cfg.OutputDir, cfg.ErrorLogName), fm.RunID); err != nil {
			return err
		}
	}

	printSummary(out, summary, rep, run.cacheKey, outputFiles, opts.DryRun, time.Since(startTime))

	if !opts.DryRun {
		_, err := utils.WriteSummaryLog(utils.ProcessingSummary{
			RunID:          fm.RunID,
			StartTime:      startTime,
			EndTime:        time.Now(),
			TotalPages:     summary.Pages,
			ParsedPages:    summary.Parsed,
			SkippedPages:   summary.Skipped,
			FailedPages:    summary.Failed,
			Interests:      summary.Interests,
			Diagnostics:    summary.Diagnostics,
			Total:          report.FormatAmount(rep.Total()),
			OutputFiles:    outputFiles,
			FailedFileList: run.failed,
		}, cfg.OutputDir)
		if err != nil {
			return err
		}
	}

	if run.err != nil {
		return fmt.Errorf("parsing stopped: %w", run.err)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// pageRun gathers the results of parsing every page, or of one cache entry.
type pageRun struct {
	interests   []types.Interest
	diagnostics []cache.Diagnostic
	entries     []utils.ErrorLogEntry
	failed      []utils.FailedFileInfo
	summary     converter.Summary
	err         error

	// cacheKey is set when the run was served from the cache.
	cacheKey string
}

// complete reports whether every page was parsed, so the interests can be
// cached.
func (r pageRun) complete() bool {
	return r.err == nil && r.summary.Failed == 0
}

// addDiagnostics records the diagnostics raised on one page.
func (r *pageRun) addDiagnostics(file string, diagnostics []interest.Diagnostic) {
	for _, d := range diagnostics {
		r.diagnostics = append(r.diagnostics, cache.Diagnostic{File: file, Diagnostic: d})
		r.entries = append(r.entries, utils.ErrorLogEntry{
			Timestamp: time.Now(),
			FileName:  file,
			Subject:   d.Subject,
			Period:    d.Period,
			ErrorType: d.Kind,
			Message:   d.Message,
			Category:  d.CategoryCode,
			Text:      d.Text,
		})
	}
}

// pageDiagnostics returns the diagnostics without their page names.
func (r pageRun) pageDiagnostics() []interest.Diagnostic {
	out := make([]interest.Diagnostic, 0, len(r.diagnostics))
	for _, d := range r.diagnostics {
		out = append(out, d.Diagnostic)
	}
	return out
}

func (r pageRun) cacheEntry() cache.Entry {
	return cache.Entry{Interests: r.interests, Diagnostics: r.diagnostics}
}

// collect merges results in job order and builds the error log entries.
func collect(results []converter.Result, runErr error) pageRun {
	run := pageRun{summary: converter.Summarize(results), err: runErr}
	for _, result := range results {
		if result.FilePath == "" {
			continue
		}
		if !result.Success {
			run.failed = append(run.failed, utils.FailedFileInfo{InputFile: result.FilePath, ErrorMessage: result.Error.Error()})
			run.entries = append(run.entries, utils.ErrorLogEntry{
				Timestamp: time.Now(),
				FileName:  filepath.Base(result.FilePath),
				Period:    result.Period,
				ErrorType: "page",
				Message:   result.Error.Error(),
			})
			continue
		}
		run.interests = append(run.interests, result.Interests...)
		run.addDiagnostics(filepath.Base(result.FilePath), result.Diagnostics)
	}
	return run
}

// fromCache rebuilds a run from a cache entry. Page counts are not cached.
func fromCache(key string, entry cache.Entry) pageRun {
	run := pageRun{interests: entry.Interests, cacheKey: key}
	for _, d := range entry.Diagnostics {
		run.addDiagnostics(d.File, []interest.Diagnostic{d.Diagnostic})
	}
	run.summary.Interests = len(entry.Interests)
	run.summary.Diagnostics = len(entry.Diagnostics)
	return run
}

// writeReport writes the report in one file format and returns its path.
func writeReport(fm *utils.FileManager, nameFormat, format string, rep *report.Report, diagnostics []interest.Diagnostic, params map[string]string) (string, error) {
	path := fm.OutputPath(nameFormat, "."+format, params)

	switch format {
	case config.FormatCSV:
		return path, export.WriteCSVFile(path, rep.Table())

	case config.FormatXLSX:
		return path, export.WriteXLSX(path,
			export.Sheet{Name: "Interests", Table: rep.Table()},
			export.Sheet{Name: "Categories", Table: export.CategoryTotalsTable(rep.TotalsByCategory())},
			export.Sheet{Name: "Diagnostics", Table: export.DiagnosticsTable(diagnostics)},
		)

	case config.FormatXML:
		options := export.DefaultXMLOptions()
		options.RootAttributes["run"] = fm.RunID
		if period, ok := params["period"]; ok {
			options.RootAttributes["period"] = period
		}

		f, err := os.Create(path)
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := export.WriteXML(f, rep.Interests(), options); err != nil {
			f.Close()
			return "", err
		}
		return path, f.Close()
	}
	return "", fmt.Errorf("unknown output format %q", format)
}

// printSummary prints the run statistics and totals.
func printSummary(out io.Writer, summary converter.Summary, rep *report.Report, cacheKey string, outputFiles []string, dryRun bool, elapsed time.Duration) {
	fmt.Fprintln(out, "\n=== Parsing Complete ===")
	if cacheKey != "" {
		fmt.Fprintf(out, "Cached:          %s (use --clear-cache to parse the pages again)\n", cacheKey)
	}
	fmt.Fprintf(out, "Pages:           %d\n", summary.Pages)
	fmt.Fprintf(out, "Parsed:          %d\n", summary.Parsed)
	fmt.Fprintf(out, "Skipped:         %d\n", summary.Skipped)
	fmt.Fprintf(out, "Failed:          %d\n", summary.Failed)
	fmt.Fprintf(out, "Interests:       %d\n", summary.Interests)
	fmt.Fprintf(out, "Diagnostics:     %d\n", summary.Diagnostics)
	fmt.Fprintf(out, "Total:           %s\n", report.FormatAmount(rep.Total()))

	for _, t := range rep.TotalsByCategory() {
		fmt.Fprintf(out, "  %2d. %-50s %4d  %s\n", t.Code, t.Title, t.Count, report.FormatAmount(t.Total))
	}

	if dryRun {
		fmt.Fprintln(out, "\nDry run: no files written.")
	}
	for _, f := range outputFiles {
		fmt.Fprintf(out, "Output:          %s\n", f)
	}
	fmt.Fprintf(out, "Time elapsed:    %s\n", elapsed.Round(time.Millisecond))
}
