// =============================================================================
// Register Interests Parser - Errata
// =============================================================================
//
// Errata are human-curated corrections for known-bad register pages. When the
// accumulator cannot classify a line, find a sub-entry's parent, or find a
// required amount, it asks the registry for the first rule whose filter
// matches the failure. Rules are data; nothing here infers a correction.
//
// MATCHING:
//   Rules are bucketed by kind and scanned in declaration order. A rule
//   matches when every filter field it sets equals the failure context.
//   Unset fields match anything, so a rule naming only a subject covers
//   every failure of that kind for that subject. Authoring order matters:
//   a broad rule declared first hides narrower rules after it.
//
// =============================================================================

package errata

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/register-interests/internal/textnorm"
)

// =============================================================================
// KINDS
// =============================================================================

// Kind is the failure a rule corrects.
type Kind int

const (
	MissingCategory Kind = iota + 1
	MissingParent
	MissingAmount
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{MissingCategory, MissingParent, MissingAmount}

// String returns the declaration name of the kind.
func (k Kind) String() string {
	switch k {
	case MissingCategory:
		return "missing-category"
	case MissingParent:
		return "missing-parent"
	case MissingAmount:
		return "missing-amount"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is the operator-facing description of an uncorrected failure.
func (k Kind) Message() string {
	switch k {
	case MissingCategory:
		return "Could not extract category code"
	case MissingParent:
		return "Missing parent line"
	case MissingAmount:
		return "Amount missing"
	default:
		return "Unknown error"
	}
}

// DefaultCommit is the commit flag a rule of this kind gets when its
// declaration does not set one.
func (k Kind) DefaultCommit() bool {
	return k != MissingParent
}

// ParseKind parses a declaration name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown errata kind %q", s)
}

// =============================================================================
// CORRECTIONS
// =============================================================================

// Correction is the payload of a rule. The set of implementations is closed:
// CategoryCorrection, ParentCorrection and AmountCorrection.
type Correction interface {
	kind() Kind
}

// CategoryCorrection accepts the offending title line as ordinary content.
type CategoryCorrection struct{}

// ParentCorrection optionally supplies the parent text a sub-entry lacks.
type ParentCorrection struct {
	Replacement string
}

// AmountCorrection optionally supplies the amount a record lacks.
type AmountCorrection struct {
	Replacement *decimal.Decimal
}

func (CategoryCorrection) kind() Kind { return MissingCategory }
func (ParentCorrection) kind() Kind   { return MissingParent }
func (AmountCorrection) kind() Kind   { return MissingAmount }

// =============================================================================
// FILTERS
// =============================================================================

// Context describes one failure.
type Context struct {
	Subject string
	Period  string

	// CategoryCode is 0 when no category has been resolved yet.
	CategoryCode int

	Line string
}

// Filter holds the fields a rule constrains. Zero values are unset.
type Filter struct {
	Subject      string
	Period       string
	CategoryCode int
	Line         string
}

// Matches reports whether every set field equals the context.
func (f Filter) Matches(ctx Context) bool {
	if f.Subject != "" && f.Subject != ctx.Subject {
		return false
	}
	if f.Period != "" && f.Period != ctx.Period {
		return false
	}
	if f.CategoryCode != 0 && f.CategoryCode != ctx.CategoryCode {
		return false
	}
	if f.Line != "" && f.Line != ctx.Line {
		return false
	}
	return true
}

// Covers reports whether every context matched by other is also matched by
// f, i.e. f sets a subset of other's fields with equal values.
func (f Filter) Covers(other Filter) bool {
	return f.Matches(Context{
		Subject:      other.Subject,
		Period:       other.Period,
		CategoryCode: other.CategoryCode,
		Line:         other.Line,
	})
}

// IsEmpty reports a filter that matches every failure.
func (f Filter) IsEmpty() bool {
	return f == Filter{}
}

// =============================================================================
// RULES
// =============================================================================

// Rule is one correction.
type Rule struct {
	Filter     Filter
	Commit     bool
	Correction Correction
}

// Kind returns the failure the rule corrects.
func (r Rule) Kind() Kind {
	if r.Correction == nil {
		return 0
	}
	return r.Correction.kind()
}

// String describes the rule for logs.
func (r Rule) String() string {
	return fmt.Sprintf("%s{subject=%q period=%q category=%d line=%q commit=%t}",
		r.Kind(), r.Filter.Subject, r.Filter.Period, r.Filter.CategoryCode, r.Filter.Line, r.Commit)
}

// normalized returns the rule with its subject and texts in the form lines
// are compared in.
func (r Rule) normalized() (Rule, error) {
	if r.Correction == nil {
		return Rule{}, fmt.Errorf("rule %s has no correction", r)
	}
	if r.Filter.Subject != "" {
		subject, err := textnorm.NormalizeSubject(r.Filter.Subject)
		if err != nil {
			return Rule{}, err
		}
		r.Filter.Subject = subject
	}
	r.Filter.Line = textnorm.Normalize(r.Filter.Line)
	if pc, ok := r.Correction.(ParentCorrection); ok {
		pc.Replacement = textnorm.Normalize(pc.Replacement)
		r.Correction = pc
	}
	return r, nil
}
