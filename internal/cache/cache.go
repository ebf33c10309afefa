// =============================================================================
// Register Interests Parser - Parse Cache
// =============================================================================
//
// This module keeps the results of a completed run on disk so that a
// repeated request (same period, same subject, same errata) skips page
// parsing.
//
// STORAGE FORMAT:
//   Two CSV files per request key, header first:
//     <key>.csv              subject,period,category,title,date,amount,description
//     <key>.diagnostics.csv  file,kind,subject,period,category,text,message
//   An empty amount cell means the interest has no amount. The interests
//   file is written last, so an entry without it is treated as absent.
//
// KEYS:
//   "mp", the period, the subject and the errata fingerprint joined by "_",
//   lower-cased, with spaces and hyphens turned into "_" and commas dropped:
//     Key("2015-16", "abbott, diane", "") == "mp_2015_16_abbott_diane"
//     Key("", "", "9f3c01ab")             == "mp_9f3c01ab"
//
// A changed errata set gives a new key. Changed pages do not; use Clear (the
// --clear-cache flag) after downloading them again.
//
// =============================================================================

package cache

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/register-interests/internal/interest"
	"github.com/ginjaninja78/register-interests/internal/types"
)

var (
	interestHeader   = []string{"subject", "period", "category", "title", "date", "amount", "description"}
	diagnosticHeader = []string{"file", "kind", "subject", "period", "category", "text", "message"}
)

// Entry is everything cached for one request.
type Entry struct {
	Interests   []types.Interest
	Diagnostics []Diagnostic
}

// Diagnostic is a parse diagnostic with the page it was raised on.
type Diagnostic struct {
	File string
	interest.Diagnostic
}

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes cache files in a directory.
type Store struct {
	Dir string
}

// New creates a store rooted at dir. The directory is created on first save.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Key builds the cache key of a request. Empty parts are left out.
func Key(period, subject, errataFingerprint string) string {
	parts := []string{"mp"}
	for _, p := range []string{period, subject, errataFingerprint} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	key := strings.Join(parts, "_")
	key = strings.NewReplacer(" ", "_", ",", "", "-", "_").Replace(key)
	return strings.ToLower(key)
}

func (s *Store) interestsPath(key string) string {
	return filepath.Join(s.Dir, key+".csv")
}

func (s *Store) diagnosticsPath(key string) string {
	return filepath.Join(s.Dir, key+".diagnostics.csv")
}

// Load returns the entry cached under key.
//
// RETURNS:
//   - The entry, with interests and diagnostics in the order they were saved.
//   - false when nothing, or only part of an entry, is cached under key.
//   - An error if a cache file exists but cannot be read.
func (s *Store) Load(key string) (Entry, bool, error) {
	var entry Entry

	err := readRows(s.interestsPath(key), interestHeader, func(row map[string]string) error {
		in, err := decodeInterest(row)
		if err != nil {
			return err
		}
		entry.Interests = append(entry.Interests, in)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache %s: %w", key, err)
	}

	err = readRows(s.diagnosticsPath(key), diagnosticHeader, func(row map[string]string) error {
		d, err := decodeDiagnostic(row)
		if err != nil {
			return err
		}
		entry.Diagnostics = append(entry.Diagnostics, d)
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache %s diagnostics: %w", key, err)
	}

	return entry, true, nil
}

// Save replaces the entry for key. Each file is written under a temporary
// name and renamed, so a reader never sees a partial file.
func (s *Store) Save(key string, entry Entry) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	diagnostics := make([][]string, 0, len(entry.Diagnostics))
	for _, d := range entry.Diagnostics {
		diagnostics = append(diagnostics, encodeDiagnostic(d))
	}
	if err := s.writeRows(s.diagnosticsPath(key), diagnosticHeader, diagnostics); err != nil {
		return err
	}

	interests := make([][]string, 0, len(entry.Interests))
	for _, in := range entry.Interests {
		interests = append(interests, encodeInterest(in))
	}
	return s.writeRows(s.interestsPath(key), interestHeader, interests)
}

// Clear removes the entry for key. A missing entry is not an error.
func (s *Store) Clear(key string) error {
	for _, path := range []string{s.interestsPath(key), s.diagnosticsPath(key)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to clear cache entry: %w", err)
		}
	}
	return nil
}

func (s *Store) writeRows(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(s.Dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	buf := bufio.NewWriter(tmp)
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache rows: %w", err)
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// readRows calls decode for every row of the file at path.
func readRows(path string, header []string, decode func(map[string]string) error) error {
	r, err := newReader(path, header)
	if err != nil {
		return err
	}
	defer r.Close()

	for r.Next() {
		if err := decode(r.Row()); err != nil {
			return fmt.Errorf("row %d: %w", r.RowNumber(), err)
		}
	}
	return r.Err()
}

// =============================================================================
// ROW CODEC
// =============================================================================

func encodeInterest(in types.Interest) []string {
	amount := ""
	if in.Amount != nil {
		amount = in.Amount.String()
	}
	return []string{
		in.Subject,
		in.Period,
		strconv.Itoa(in.CategoryCode),
		in.CategoryTitle,
		in.Date,
		amount,
		in.Description,
	}
}

func decodeInterest(row map[string]string) (types.Interest, error) {
	code, err := strconv.Atoi(row["category"])
	if err != nil {
		return types.Interest{}, fmt.Errorf("invalid category %q", row["category"])
	}

	in := types.Interest{
		Subject:       row["subject"],
		Period:        row["period"],
		CategoryCode:  code,
		CategoryTitle: row["title"],
		Date:          row["date"],
		Description:   row["description"],
	}
	if s := row["amount"]; s != "" {
		value, err := decimal.NewFromString(s)
		if err != nil {
			return types.Interest{}, fmt.Errorf("invalid amount %q", s)
		}
		in.Amount = &value
	}
	return in, nil
}

func encodeDiagnostic(d Diagnostic) []string {
	return []string{
		d.File,
		d.Kind,
		d.Subject,
		d.Period,
		strconv.Itoa(d.CategoryCode),
		d.Text,
		d.Message,
	}
}

func decodeDiagnostic(row map[string]string) (Diagnostic, error) {
	code, err := strconv.Atoi(row["category"])
	if err != nil {
		return Diagnostic{}, fmt.Errorf("invalid category %q", row["category"])
	}
	return Diagnostic{
		File: row["file"],
		Diagnostic: interest.Diagnostic{
			Kind:         row["kind"],
			Subject:      row["subject"],
			Period:       row["period"],
			CategoryCode: code,
			Text:         row["text"],
			Message:      row["message"],
		},
	}, nil
}

// =============================================================================
// STREAMING READER
// =============================================================================

// reader reads a cache file one row at a time, keyed by header.
//
// USAGE:
//
//	r, err := newReader(path, header)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	for r.Next() {
//	    row := r.Row()
//	}
//	if err := r.Err(); err != nil {
//	    return err
//	}
type reader struct {
	file       *os.File
	rd         *csv.Reader
	headers    []string
	currentRow map[string]string
	rowNumber  int
	err        error
}

func newReader(path string, header []string) (*reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := &reader{file: file, rd: csv.NewReader(bufio.NewReader(file))}
	r.rd.FieldsPerRecord = len(header)

	headers, err := r.rd.Read()
	if err != nil {
		file.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("cache file %s has no header", path)
		}
		return nil, fmt.Errorf("error reading cache header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	if !slices.Equal(headers, header) {
		file.Close()
		return nil, fmt.Errorf("cache file %s has unexpected columns %v", path, headers)
	}
	r.headers = headers
	r.rowNumber = 1
	return r, nil
}

// Next advances to the next row. Returns false at the end or on error.
func (r *reader) Next() bool {
	if r.err != nil {
		return false
	}

	row, err := r.rd.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		r.err = fmt.Errorf("error reading row %d: %w", r.rowNumber+1, err)
		return false
	}
	r.rowNumber++

	r.currentRow = make(map[string]string, len(r.headers))
	for i, h := range r.headers {
		r.currentRow[h] = row[i]
	}
	return true
}

// Row returns the current row as a header -> value map.
func (r *reader) Row() map[string]string { return r.currentRow }

// RowNumber returns the current row number, header included (1-indexed).
func (r *reader) RowNumber() int { return r.rowNumber }

// Err returns any error that occurred during reading.
func (r *reader) Err() error { return r.err }

// Close closes the underlying file.
func (r *reader) Close() error { return r.file.Close() }
