// =============================================================================
// Register Interests Parser - Category Taxonomy
// =============================================================================
//
// The register groups interests into numbered categories. The numbering and
// titles changed when the 2015 rules came into force, so a category code only
// means something together with the reporting period it was read from.
//
// =============================================================================

package taxonomy

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownCategory is returned when no rule-set generation defines a code
// for a period. It indicates a gap in the table, not a bad document.
var ErrUnknownCategory = errors.New("unknown category")

// ErrInvalidPeriod is returned when a period identifier has no leading year.
var ErrInvalidPeriod = errors.New("invalid period")

// Category is one interest classification.
type Category struct {
	Code           int
	Title          string
	AmountRequired bool
	RuleSetYear    int
}

// String returns the display form "N. Title".
func (c Category) String() string {
	return fmt.Sprintf("%d. %s", c.Code, c.Title)
}

// AppliesTo reports whether the category belongs to a rule set in force for
// a period starting in startYear.
func (c Category) AppliesTo(startYear int) bool {
	return startYear >= c.RuleSetYear
}

// categories holds every generation. Order within a generation follows the
// published code of conduct.
var categories = []Category{
	{Code: 1, Title: "Directorships", RuleSetYear: 2010},
	{Code: 2, Title: "Employment and earnings", AmountRequired: true, RuleSetYear: 2010},
	{Code: 3, Title: "Clients", AmountRequired: true, RuleSetYear: 2010},
	{Code: 4, Title: "Sponsorship or financial or material support", AmountRequired: true, RuleSetYear: 2010},
	{Code: 5, Title: "Gifts, benefits and hospitality", RuleSetYear: 2010},
	{Code: 6, Title: "Overseas visits", RuleSetYear: 2010},
	{Code: 7, Title: "Overseas benefits and gifts", RuleSetYear: 2010},
	{Code: 8, Title: "Land and property", RuleSetYear: 2010},
	{Code: 9, Title: "Registrable shareholdings", RuleSetYear: 2010},
	{Code: 10, Title: "Loans and other controlled transactions", RuleSetYear: 2010},
	{Code: 11, Title: "Miscellaneous", RuleSetYear: 2010},

	{Code: 1, Title: "Employment and earnings", AmountRequired: true, RuleSetYear: 2015},
	{Code: 2, Title: "Donations and other support (including loans)", AmountRequired: true, RuleSetYear: 2015},
	{Code: 3, Title: "Gifts, benefits and hospitality from UK sources", RuleSetYear: 2015},
	{Code: 4, Title: "Visits outside the UK", RuleSetYear: 2015},
	{Code: 5, Title: "Gifts and benefits from sources outside the UK", RuleSetYear: 2015},
	{Code: 6, Title: "Land and property", RuleSetYear: 2015},
	{Code: 7, Title: "Shareholdings", RuleSetYear: 2015},
	{Code: 8, Title: "Miscellaneous", RuleSetYear: 2015},
	{Code: 9, Title: "Family members employed", RuleSetYear: 2015},
	{Code: 10, Title: "Family members engaged in lobbying", RuleSetYear: 2015},
}

// StartYear returns the first year of a period identifier such as "2015-16"
// or "2010-12".
func StartYear(period string) (int, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(period), "-")
	year, err := strconv.Atoi(head)
	if err != nil || len(head) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return year, nil
}

// Resolve returns the category with the given code from the newest rule-set
// generation applicable to period.
func Resolve(code int, period string) (Category, error) {
	year, err := StartYear(period)
	if err != nil {
		return Category{}, err
	}

	var (
		best  Category
		found bool
	)
	for _, c := range categories {
		if c.Code != code || !c.AppliesTo(year) {
			continue
		}
		if !found || c.RuleSetYear > best.RuleSetYear {
			best, found = c, true
		}
	}
	if !found {
		return Category{}, fmt.Errorf("%w: code %d in period %s", ErrUnknownCategory, code, period)
	}
	return best, nil
}

// ForPeriod lists the categories in force for a period, ordered by code.
func ForPeriod(period string) ([]Category, error) {
	year, err := StartYear(period)
	if err != nil {
		return nil, err
	}

	byCode := make(map[int]Category)
	for _, c := range categories {
		if !c.AppliesTo(year) {
			continue
		}
		if prev, ok := byCode[c.Code]; !ok || c.RuleSetYear > prev.RuleSetYear {
			byCode[c.Code] = c
		}
	}

	out := make([]Category, 0, len(byCode))
	for _, c := range byCode {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// All returns every category of every generation.
func All() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}
