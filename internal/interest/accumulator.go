// =============================================================================
// Register Interests Parser - Record Accumulator
// =============================================================================
//
// The accumulator walks one subject's page for one period, line by line, and
// turns it into committed interests.
//
// PROCESSING ORDER (first match wins for each line):
//   1. Skip empty, single-character, "Nil" and page-header lines
//   2. Titles flush the open record and set the category
//   3. The footer navigation flushes and ends the page
//   4. Lines introducing sub-entries are skipped; children inherit them
//   5. Anything else is appended; a registration date closes the record
//
// FLUSH:
//   A record without an amount is discarded if it is an undated rectification
//   notice, and reported as missing-amount if its category requires one.
//   Otherwise it is committed. A committed record holding several lines that
//   each state an amount is split into one interest per amount.
//
// Failures consult the errata registry. Anything it cannot correct becomes a
// Diagnostic; nothing is guessed.
//
// =============================================================================

package interest

import (
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/register-interests/internal/document"
	"github.com/ginjaninja78/register-interests/internal/errata"
	"github.com/ginjaninja78/register-interests/internal/taxonomy"
	"github.com/ginjaninja78/register-interests/internal/types"
)

// =============================================================================
// RESULTS
// =============================================================================

// UnknownCategory is the diagnostic kind for codes missing from the taxonomy.
const UnknownCategory = "unknown-category"

// Diagnostic is an anomaly the accumulator could not correct.
type Diagnostic struct {
	Kind         string
	Subject      string
	Period       string
	CategoryCode int
	Text         string
	Message      string
}

// String formats the diagnostic the way it is written to the error log.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s (%s) - %s", d.Message, d.Subject, d.Period, d.Text)
}

// Result is everything produced for one subject and period.
type Result struct {
	Subject     string
	Period      string
	Interests   []types.Interest
	Diagnostics []Diagnostic
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator is the per-subject state machine. It is not safe for
// concurrent use; run one per subject.
type Accumulator struct {
	subject  string
	period   string
	registry *errata.Registry
	logger   *zap.Logger

	// category is the category stated by the last title. Headings are not
	// repeated per record, so every new record starts with it.
	category *taxonomy.Category
	record   *Record
	done     bool

	interests   []types.Interest
	diagnostics []Diagnostic
}

// NewAccumulator creates an accumulator for one subject and period.
//
// PARAMETERS:
//   - subject: normalised "surname, forename"
//   - period: reporting period such as "2015-16"
//   - registry: errata consulted on failures, may be nil
//   - logger: may be nil
func NewAccumulator(subject, period string, registry *errata.Registry, logger *zap.Logger) *Accumulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Accumulator{
		subject:  subject,
		period:   period,
		registry: registry,
		logger:   logger.Named("accumulator").With(zap.String("subject", subject), zap.String("period", period)),
	}
	a.record = newRecord(period, nil)
	return a
}

// Run consumes lines in document order and returns the committed interests
// with any diagnostics. A page without footer navigation is flushed when the
// lines run out.
func (a *Accumulator) Run(lines iter.Seq[document.Line]) Result {
	for line := range lines {
		a.Process(line)
		if a.done {
			break
		}
	}
	a.Finish()

	return Result{
		Subject:     a.subject,
		Period:      a.period,
		Interests:   a.interests,
		Diagnostics: a.diagnostics,
	}
}

// Process handles one line.
func (a *Accumulator) Process(line document.Line) {
	if a.done {
		return
	}

	if line.IsNil() || line.IsEmpty() || line.IsSingleCharacter() || line.IsPageHeader(a.subject) {
		return
	}

	if line.IsTitle() {
		a.flush()
		if a.processTitle(line) {
			return
		}
	}

	if line.IsLastLine() {
		a.flush()
		a.done = true
		return
	}

	if line.IsParentWithSubEntries() {
		return
	}

	a.record.addLine(line)

	if date := line.RegistrationDate(); date != "" {
		a.processDate(line, date)
		a.flush()
	}
}

// Finish flushes the open record and ends the page.
func (a *Accumulator) Finish() {
	if a.done {
		return
	}
	a.flush()
	a.done = true
}

// Category returns the category new records start with.
func (a *Accumulator) Category() *taxonomy.Category {
	return a.category
}

// Interests returns the interests committed so far.
func (a *Accumulator) Interests() []types.Interest {
	return a.interests
}

// Diagnostics returns the diagnostics reported so far.
func (a *Accumulator) Diagnostics() []Diagnostic {
	return a.diagnostics
}

// processTitle sets the category from a title line. It returns false when
// the line should be handled as ordinary content instead.
func (a *Accumulator) processTitle(line document.Line) bool {
	code, err := line.CategoryCodeOrErr()
	if err != nil {
		// Ordinary entries are sometimes marked up as headings. A date, or a
		// real heading just before, gives them away.
		if line.RegistrationDate() == "" && !line.IsPreviousLineHeader() {
			a.raise(errata.MissingCategory, line)
			return true
		}
		return false
	}

	a.discardUnterminated()

	category, err := taxonomy.Resolve(code, a.period)
	if err != nil {
		a.category = nil
		a.reset()
		a.report(UnknownCategory, err.Error(), code, line.Text())
		return true
	}

	a.category = &category
	a.reset()
	return true
}

// discardUnterminated drops lines the last flush left open, so they are not
// attributed to the category that follows.
func (a *Accumulator) discardUnterminated() {
	if len(a.record.lines) == 0 {
		return
	}
	a.logger.Debug("discarding unterminated record",
		zap.Int("lines", len(a.record.lines)),
		zap.String("text", a.record.FlattenedLines()),
	)
	a.reset()
}

func (a *Accumulator) processDate(line document.Line, date string) {
	a.record.setDate(date)
	if !line.IsSubEntry() {
		return
	}

	parent, err := line.Parent()
	if err != nil {
		// straight after a heading, a missing parent is an indentation slip
		if !line.IsPreviousLineHeader() {
			a.raise(errata.MissingParent, line)
		}
		return
	}
	a.record.setParent(parent)
}

// flush validates and commits the open record.
func (a *Accumulator) flush() {
	r := a.record
	if !r.Eligible() {
		return
	}

	if _, ok := r.Amount(); !ok {
		// addenda to earlier entries carry no date and are not records
		if r.IsRectification() && r.Date() == "" {
			a.reset()
			return
		}
		if r.AmountRequired() && !r.IsRectification() {
			a.missingAmount(r.lines[0])
			return
		}
	}

	a.commit()
}

func (a *Accumulator) missingAmount(first document.Line) {
	// parent entries sometimes carry a date but never an amount
	if first.IsParentWithSubEntries() {
		return
	}
	a.raise(errata.MissingAmount, first)
	a.reset()
}

// commit emits the open record, splitting it when several of its lines
// state their own amount.
func (a *Accumulator) commit() {
	r := a.record
	if !r.Eligible() {
		a.logger.Debug("skipping commit of record without lines or category")
		return
	}

	if len(r.lines) > 1 && r.LinesWithAmount() > 1 {
		a.split()
		return
	}

	a.emit(r)
	a.reset()
}

// split emits one interest per amount-bearing line. Lines without an amount
// join the next amount-bearing line; trailing ones are dropped. Every part
// shares the date and parent last set on the original record.
func (a *Accumulator) split() {
	lines, date, parent := a.record.lines, a.record.date, a.record.parent
	a.reset()

	for _, line := range lines {
		a.record.date = date
		a.record.parent = parent
		a.record.addLine(line)
		if line.HasAmount() {
			a.emit(a.record)
			a.reset()
		}
	}
	a.reset()
}

func (a *Accumulator) emit(r *Record) {
	interest := r.Interest(a.subject)
	a.interests = append(a.interests, interest)
	a.logger.Debug("interest committed",
		zap.Int("category", interest.CategoryCode),
		zap.String("date", interest.Date),
		zap.Stringer("amount", interest.AmountOrZero()),
	)
}

// reset opens a fresh record carrying the current category.
func (a *Accumulator) reset() {
	a.record = newRecord(a.period, a.category)
}

// raise consults the registry for a failure on line. A matching rule's
// correction is applied and, if the rule says so, the record is committed
// without the mandatory-amount check. Otherwise a diagnostic is reported.
func (a *Accumulator) raise(kind errata.Kind, line document.Line) {
	ctx := errata.Context{
		Subject:      a.subject,
		Period:       a.period,
		CategoryCode: a.record.CategoryCode(),
		Line:         line.Text(),
	}

	rule, ok := a.registry.Match(kind, ctx)
	if !ok {
		a.report(kind.String(), kind.Message(), ctx.CategoryCode, ctx.Line)
		return
	}
	a.logger.Debug("errata applied", zap.Stringer("rule", rule))

	switch c := rule.Correction.(type) {
	case errata.CategoryCorrection:
		a.record.addLine(line)
	case errata.ParentCorrection:
		if c.Replacement != "" && !strings.Contains(a.record.FlattenedLines(), c.Replacement) {
			a.record.setParent(c.Replacement)
		}
	case errata.AmountCorrection:
		if c.Replacement != nil {
			a.record.setAmount(*c.Replacement)
		}
	default:
		a.logger.Error("unhandled errata correction", zap.String("type", fmt.Sprintf("%T", c)))
		return
	}

	if rule.Commit {
		a.commit()
	}
}

func (a *Accumulator) report(kind, message string, code int, text string) {
	d := Diagnostic{
		Kind:         kind,
		Subject:      a.subject,
		Period:       a.period,
		CategoryCode: code,
		Text:         text,
		Message:      message,
	}
	a.diagnostics = append(a.diagnostics, d)
	a.logger.Warn(message,
		zap.String("kind", kind),
		zap.Int("category", code),
		zap.String("line", text),
	)
}
