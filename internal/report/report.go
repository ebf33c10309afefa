// =============================================================================
// Register Interests Parser - Report Module
// =============================================================================
//
// This module aggregates committed interests for output: filtering by a
// search term or category, grouping by subject and/or period with summed
// amounts, ordering by column, and totals.
//
// A Report is a view. It never mutates the interests it was built from.
//
// =============================================================================

package report

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/register-interests/internal/types"
)

// =============================================================================
// COLUMNS
// =============================================================================

// Column names a field of the output table.
type Column string

const (
	ColumnSubject     Column = "subject"
	ColumnTitle       Column = "title"
	ColumnCategory    Column = "category"
	ColumnAmount      Column = "amount"
	ColumnDate        Column = "date"
	ColumnDescription Column = "description"
	ColumnPeriod      Column = "period"
)

// Columns is the detail table layout.
var Columns = []Column{
	ColumnSubject,
	ColumnTitle,
	ColumnCategory,
	ColumnAmount,
	ColumnDate,
	ColumnDescription,
	ColumnPeriod,
}

// ParseColumn validates a column name.
func ParseColumn(name string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(Columns, c) {
		return c, nil
	}
	return "", fmt.Errorf("unknown column %q", name)
}

// GroupKey is a column interests can be grouped by.
type GroupKey = Column

// ParseGroupKey accepts "subject" (or "mp") and "period" (or "session").
func ParseGroupKey(name string) (GroupKey, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "subject", "mp", "member":
		return ColumnSubject, nil
	case "period", "session":
		return ColumnPeriod, nil
	}
	return "", fmt.Errorf("cannot group by %q", name)
}

// =============================================================================
// REPORT
// =============================================================================

// Report is a filtered, grouped and ordered view over interests.
type Report struct {
	interests []types.Interest
	term      string
	category  int
	groupBy   []GroupKey
	orderBy   Column
}

// New creates a report over interests.
func New(interests []types.Interest) *Report {
	return &Report{interests: interests}
}

// Filter keeps interests whose description contains term, ignoring case.
func (r *Report) Filter(term string) *Report {
	r.term = strings.TrimSpace(term)
	return r
}

// FilterCategory keeps interests of one category code. Zero keeps all.
func (r *Report) FilterCategory(code int) *Report {
	r.category = code
	return r
}

// GroupBy sums amounts per distinct value of the keys. Keys are applied in
// the fixed order subject, period regardless of argument order.
func (r *Report) GroupBy(keys ...GroupKey) *Report {
	r.groupBy = nil
	for _, k := range []GroupKey{ColumnSubject, ColumnPeriod} {
		if slices.Contains(keys, k) {
			r.groupBy = append(r.groupBy, k)
		}
	}
	return r
}

// OrderBy sorts rows by column, largest first. Ties keep input order.
func (r *Report) OrderBy(c Column) *Report {
	r.orderBy = c
	return r
}

// IsGrouped reports whether rows are group totals.
func (r *Report) IsGrouped() bool {
	return len(r.groupBy) > 0
}

// Interests returns the filtered interests, ordered if an order is set.
func (r *Report) Interests() []types.Interest {
	out := make([]types.Interest, 0, len(r.interests))
	for _, i := range r.interests {
		if r.keep(i) {
			out = append(out, i)
		}
	}
	if r.orderBy != "" && !r.IsGrouped() {
		slices.SortStableFunc(out, func(a, b types.Interest) int {
			return compareDesc(detailValue(a, r.orderBy), detailValue(b, r.orderBy))
		})
	}
	return out
}

func (r *Report) keep(i types.Interest) bool {
	if r.category != 0 && i.CategoryCode != r.category {
		return false
	}
	if r.term != "" && !strings.Contains(strings.ToLower(i.Description), strings.ToLower(r.term)) {
		return false
	}
	return true
}

// =============================================================================
// GROUPS
// =============================================================================

// Group is the summed amount of the interests sharing key values.
type Group struct {
	Subject string
	Period  string
	Count   int
	Total   decimal.Decimal
}

// Groups returns one group per distinct key, in order of first appearance
// unless an order is set. It is empty when the report is not grouped.
func (r *Report) Groups() []Group {
	if !r.IsGrouped() {
		return nil
	}

	type groupKey struct{ subject, period string }

	index := make(map[groupKey]int)
	var groups []Group
	for _, i := range r.Interests() {
		var key groupKey
		if slices.Contains(r.groupBy, ColumnSubject) {
			key.subject = i.Subject
		}
		if slices.Contains(r.groupBy, ColumnPeriod) {
			key.period = i.Period
		}

		n, ok := index[key]
		if !ok {
			n = len(groups)
			index[key] = n
			groups = append(groups, Group{Subject: key.subject, Period: key.period, Total: decimal.Zero})
		}
		groups[n].Count++
		groups[n].Total = groups[n].Total.Add(i.AmountOrZero())
	}

	if r.orderBy != "" {
		slices.SortStableFunc(groups, func(a, b Group) int {
			return compareDesc(groupValue(a, r.orderBy), groupValue(b, r.orderBy))
		})
	}
	return groups
}

// =============================================================================
// TOTALS
// =============================================================================

// Total sums the amounts of the filtered interests, to the penny.
func (r *Report) Total() decimal.Decimal {
	total := decimal.Zero
	for _, i := range r.Interests() {
		total = total.Add(i.AmountOrZero())
	}
	return total.Round(2)
}

// TotalByCategory sums the filtered interests of one category.
func (r *Report) TotalByCategory(code int) decimal.Decimal {
	total := decimal.Zero
	for _, i := range r.Interests() {
		if i.CategoryCode == code {
			total = total.Add(i.AmountOrZero())
		}
	}
	return total.Round(2)
}

// CategoryTotal is one line of TotalsByCategory.
type CategoryTotal struct {
	Code  int
	Title string
	Count int
	Total decimal.Decimal
}

// TotalsByCategory sums the filtered interests per category code, ordered by
// code. The title is the first one seen for the code.
func (r *Report) TotalsByCategory() []CategoryTotal {
	byCode := make(map[int]*CategoryTotal)
	for _, i := range r.Interests() {
		t, ok := byCode[i.CategoryCode]
		if !ok {
			t = &CategoryTotal{Code: i.CategoryCode, Title: i.CategoryTitle, Total: decimal.Zero}
			byCode[i.CategoryCode] = t
		}
		t.Count++
		t.Total = t.Total.Add(i.AmountOrZero())
	}

	out := make([]CategoryTotal, 0, len(byCode))
	for _, t := range byCode {
		t.Total = t.Total.Round(2)
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int { return a.Code - b.Code })
	return out
}

// =============================================================================
// TABLE
// =============================================================================

// Table is the report flattened to strings, ready for a writer.
type Table struct {
	Header []string
	Rows   [][]string
}

// Table renders the detail rows, or the group rows when grouped. Amounts
// are plain decimals with two places; missing amounts are empty.
func (r *Report) Table() Table {
	if r.IsGrouped() {
		header := make([]string, 0, len(r.groupBy)+2)
		for _, k := range r.groupBy {
			header = append(header, string(k))
		}
		header = append(header, "count", string(ColumnAmount))

		var rows [][]string
		for _, g := range r.Groups() {
			var row []string
			for _, k := range r.groupBy {
				row = append(row, groupValue(g, k).text)
			}
			row = append(row, strconv.Itoa(g.Count), g.Total.StringFixed(2))
			rows = append(rows, row)
		}
		return Table{Header: header, Rows: rows}
	}

	header := make([]string, len(Columns))
	for n, c := range Columns {
		header[n] = string(c)
	}
	var rows [][]string
	for _, i := range r.Interests() {
		row := make([]string, len(Columns))
		for n, c := range Columns {
			row[n] = detailValue(i, c).text
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}

// =============================================================================
// ORDERING HELPERS
// =============================================================================

// value is a cell in comparable form. Numeric cells compare by number,
// dates by calendar, everything else as text.
type value struct {
	text   string
	number decimal.Decimal
	date   time.Time
	kind   int
}

const (
	kindText = iota
	kindNumber
	kindDate
)

func detailValue(i types.Interest, c Column) value {
	switch c {
	case ColumnSubject:
		return value{text: i.Subject}
	case ColumnTitle:
		return value{text: i.CategoryTitle}
	case ColumnCategory:
		return value{text: strconv.Itoa(i.CategoryCode), number: decimal.NewFromInt(int64(i.CategoryCode)), kind: kindNumber}
	case ColumnAmount:
		if i.Amount == nil {
			return value{kind: kindNumber, number: decimal.Zero}
		}
		return value{text: i.Amount.StringFixed(2), number: *i.Amount, kind: kindNumber}
	case ColumnDate:
		if d, ok := ParseDate(i.Date); ok {
			return value{text: i.Date, date: d, kind: kindDate}
		}
		return value{text: i.Date}
	case ColumnDescription:
		return value{text: i.Description}
	case ColumnPeriod:
		return value{text: i.Period}
	}
	return value{}
}

func groupValue(g Group, c Column) value {
	switch c {
	case ColumnSubject:
		return value{text: g.Subject}
	case ColumnPeriod:
		return value{text: g.Period}
	case ColumnAmount:
		return value{text: g.Total.StringFixed(2), number: g.Total, kind: kindNumber}
	}
	return value{}
}

// compareDesc orders larger values first.
func compareDesc(a, b value) int {
	switch {
	case a.kind == kindNumber && b.kind == kindNumber:
		return b.number.Cmp(a.number)
	case a.kind == kindDate && b.kind == kindDate:
		return b.date.Compare(a.date)
	}
	return strings.Compare(b.text, a.text)
}

// ParseDate reads a registration date such as "1 January 2016".
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse("2 January 2006", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatAmount renders an amount as currency with thousands separators,
// e.g. "£12,345.60".
func FormatAmount(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for n, ch := range whole {
		if n > 0 && (len(whole)-n)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "£" + b.String() + "." + frac
}
