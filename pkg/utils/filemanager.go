// =============================================================================
// Register Interests Parser - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the parser, including:
//   - Output directory management
//   - Output file naming
//   - Error log generation
//   - Processing summary generation
//
// Input pages are never moved or rewritten; a run can be repeated against
// the same downloaded register.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles the files a run writes.
type FileManager struct {
	// OutputDir is the directory where output files are placed.
	OutputDir string

	// RunID identifies the run in file names and logs.
	RunID string

	// now is replaced in tests.
	now func() time.Time
}

// NewFileManager creates a new FileManager with a fresh run id.
func NewFileManager(outputDir string) *FileManager {
	return &FileManager{
		OutputDir: outputDir,
		RunID:     uuid.NewString(),
		now:       time.Now,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the output directory if it does not exist.
func (fm *FileManager) EnsureDirectories() error {
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// OutputPath returns the path of an output file named after format, with
// extension ext.
func (fm *FileManager) OutputPath(format, ext string, params map[string]string) string {
	merged := map[string]string{"run": fm.RunID}
	for k, v := range params {
		merged[k] = v
	}
	return filepath.Join(fm.OutputDir, generateOutputFileName(format, ext, merged, fm.now(), uuid.NewString()))
}

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {period}    - Reporting period, when given in params
//   - ext: The extension to ensure, e.g. ".csv"
//   - params: Additional placeholder values.
//
// RETURNS:
//   - The generated file name.
//
// EXAMPLE:
//
//	format: "interests_{period}_{timestamp}"
//	params: {"period": "2015-16"}
//	output: "interests_2015-16_20240115_143022.csv"
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	return generateOutputFileName(format, ext, params, time.Now(), uuid.NewString())
}

func generateOutputFileName(format, ext string, params map[string]string, now time.Time, id string) string {
	replacements := map[string]string{
		"{uuid}":      id,
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{period}":    "all",
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	result = sanitizeFileName(result)

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// sanitizeFileName replaces path separators and other characters that are
// unsafe in file names.
func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ',':
			return '_'
		case ' ':
			return '_'
		}
		return r
	}, name)
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry is one uncorrected anomaly or failed page.
type ErrorLogEntry struct {
	Timestamp time.Time
	FileName  string
	Subject   string
	Period    string
	ErrorType string
	Message   string
	Category  int
	Text      string
}

// WriteErrorLog appends entries to the error log at path. Nothing is written
// when there are no entries.
//
// PARAMETERS:
//   - entries: The error entries to write.
//   - path: The log file, created if missing.
//   - runID: Written in the run header.
//
// RETURNS:
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, path, runID string) error {
	if len(entries) == 0 {
		return nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Register Interests Parser - Error Log\n"+
		"Run:          %s\n"+
		"Generated:    %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n",
		runID,
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for _, entry := range entries {
		// one line per entry: "<message> <subject> (<period>) - <text>"
		line := entry.Message
		if entry.Subject != "" {
			line += " " + entry.Subject
		}
		if entry.Period != "" {
			line += " (" + entry.Period + ")"
		}
		if entry.Text != "" {
			line += " - " + entry.Text
		}
		fmt.Fprintf(writer, "%s [%s] %s", entry.Timestamp.Format("2006-01-02 15:04:05"), entry.ErrorType, line)
		if entry.Category > 0 {
			fmt.Fprintf(writer, " [category %d]", entry.Category)
		}
		if entry.FileName != "" {
			fmt.Fprintf(writer, " [%s]", entry.FileName)
		}
		writer.WriteString("\n")
	}
	writer.WriteString("\n")

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush error log: %w", err)
	}
	return nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	RunID          string
	StartTime      time.Time
	EndTime        time.Time
	TotalPages     int
	ParsedPages    int
	SkippedPages   int
	FailedPages    int
	Interests      int
	Diagnostics    int
	Total          string
	OutputFiles    []string
	FailedFileList []FailedFileInfo
}

// FailedFileInfo contains information about a page that could not be parsed.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a processing summary into dir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, dir string) (string, error) {
	timestamp := summary.EndTime.Format("20060102_150405")
	summaryPath := filepath.Join(dir, fmt.Sprintf("processing_summary_%s.txt", timestamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "Register Interests Parser - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Pages:    %d\n"+
		"  Parsed:         %d\n"+
		"  Skipped:        %d\n"+
		"  Failed:         %d\n"+
		"  Interests:      %d\n"+
		"  Diagnostics:    %d\n"+
		"  Total Amount:   %s\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.TotalPages,
		summary.ParsedPages,
		summary.SkippedPages,
		summary.FailedPages,
		summary.Interests,
		summary.Diagnostics,
		summary.Total)

	if len(summary.OutputFiles) > 0 {
		writer.WriteString("Output Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, f := range summary.OutputFiles {
			fmt.Fprintf(writer, "  %s\n", f)
		}
		writer.WriteString("\n")
	}

	if len(summary.FailedFileList) > 0 {
		writer.WriteString("Failed Pages:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFileList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
