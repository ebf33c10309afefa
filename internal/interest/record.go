package interest

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/register-interests/internal/amount"
	"github.com/ginjaninja78/register-interests/internal/document"
	"github.com/ginjaninja78/register-interests/internal/taxonomy"
	"github.com/ginjaninja78/register-interests/internal/textnorm"
	"github.com/ginjaninja78/register-interests/internal/types"
)

// Phrases that waive the amount a category would otherwise require.
var unremuneratedPhrases = []string{
	"not for profit",
	"unremunerated",
	"no remuneration",
	"no payment received",
	"I make no drawings",
	"not receiving any money",
	// farm income is never itemised
	"farmer",
	"crofter",
	"unpaid",
	"territorial army",
	"voluntary service",
	"No fixed remuneration",
	"not paid as the activity is loss-making",
	"non-practising",
	"no further payments",
	"no personal payments",
	"Royal Navy Reserve",
	"Reserve Officer",
	"Payment made direct to local charity",
	"Fee waived",
	"Fees waived",
	"not trading",
	"donated to charity",
}

var rectificationPhrases = []string{
	"rectification procedure",
	"Correction to earlier register",
}

// Record is an interest under construction.
type Record struct {
	period   string
	category *taxonomy.Category
	date     string
	parent   string
	lines    []document.Line

	amount      decimal.Decimal
	amountKnown bool
}

func newRecord(period string, category *taxonomy.Category) *Record {
	return &Record{period: period, category: category}
}

// Eligible reports whether the record may be committed: it has at least one
// line and a resolved category.
func (r *Record) Eligible() bool {
	return len(r.lines) > 0 && r.category != nil
}

// Category returns the resolved category, or nil.
func (r *Record) Category() *taxonomy.Category { return r.category }

// CategoryCode returns the resolved category code, or 0.
func (r *Record) CategoryCode() int {
	if r.category == nil {
		return 0
	}
	return r.category.Code
}

// Lines returns the lines appended so far.
func (r *Record) Lines() []document.Line { return r.lines }

// Date returns the registration date, or "".
func (r *Record) Date() string { return r.date }

// Parent returns the inherited parent text, or "".
func (r *Record) Parent() string { return r.parent }

func (r *Record) addLine(l document.Line) {
	r.lines = append(r.lines, l)
}

func (r *Record) setDate(date string) {
	r.date = date
}

func (r *Record) setParent(parent string) {
	r.parent = textnorm.Normalize(parent)
}

func (r *Record) setAmount(value decimal.Decimal) {
	r.amount, r.amountKnown = value, true
}

// FlattenedLines joins the line texts with spaces.
func (r *Record) FlattenedLines() string {
	texts := make([]string, len(r.lines))
	for i, l := range r.lines {
		texts[i] = l.Text()
	}
	return strings.Join(texts, " ")
}

// Description is the record text, prefixed with the parent when the body
// does not already contain it.
func (r *Record) Description() string {
	body := r.FlattenedLines()
	if r.parent != "" && !strings.Contains(body, r.parent) {
		return r.parent + " " + body
	}
	return body
}

// Amount returns the largest amount stated in the record's lines. A found
// amount is cached; a miss is retried since more lines may still arrive.
func (r *Record) Amount() (decimal.Decimal, bool) {
	if r.amountKnown {
		return r.amount, true
	}
	if value, ok := amount.Extract(r.FlattenedLines()); ok {
		r.setAmount(value)
	}
	return r.amount, r.amountKnown
}

// LinesWithAmount counts lines carrying their own currency marker.
func (r *Record) LinesWithAmount() int {
	n := 0
	for _, l := range r.lines {
		if l.HasAmount() {
			n++
		}
	}
	return n
}

// IsRectification reports a correction notice for an earlier register.
func (r *Record) IsRectification() bool {
	return r.containsAny(rectificationPhrases)
}

// IsUnremunerated reports wording that explains why no amount is given.
func (r *Record) IsUnremunerated() bool {
	return r.containsAny(unremuneratedPhrases)
}

// AmountRequired reports whether the record must carry an amount to be
// committed.
func (r *Record) AmountRequired() bool {
	if r.category == nil || !r.category.AmountRequired {
		return false
	}
	return !r.IsUnremunerated()
}

func (r *Record) containsAny(phrases []string) bool {
	description := strings.ToLower(r.Description())
	for _, p := range phrases {
		if strings.Contains(description, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Interest freezes the record into its output form.
func (r *Record) Interest(subject string) types.Interest {
	out := types.Interest{
		Subject:     subject,
		Period:      r.period,
		Date:        r.date,
		Description: r.Description(),
	}
	if r.category != nil {
		out.CategoryCode = r.category.Code
		out.CategoryTitle = r.category.Title
	}
	if value, ok := r.Amount(); ok {
		out.Amount = &value
	}
	return out
}
