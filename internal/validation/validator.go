// =============================================================================
// Register Interests Parser - Validation Engine
// =============================================================================
//
// This module validates the two inputs a run depends on besides the pages
// themselves:
//   - Errata declarations: every rule must convert, name a parseable subject
//     and period, and be reachable (not covered by an earlier rule)
//   - Output records: every interest must carry a subject, a category valid
//     for its period, a description and a non-negative amount
//
// ERROR HANDLING:
//   - Errors are collected, not returned on the first failure
//   - Each error names the rule index or record position it concerns
//   - Warnings do not make a result invalid unless TreatWarningsAsErrors is set
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/register-interests/internal/errata"
	"github.com/ginjaninja78/register-interests/internal/taxonomy"
	"github.com/ginjaninja78/register-interests/internal/textnorm"
	"github.com/ginjaninja78/register-interests/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Source is "errata" or "record".
	Source string

	// Index is the 1-based position of the rule or record.
	Index int

	// Field is the declaration or record field concerned, if any.
	Field string

	// Value is the offending value.
	Value string

	// Rule names the check that failed.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("[%s] %s %d: %s", strings.ToUpper(e.Severity), e.Source, e.Index, e.Message)
	if e.Field != "" {
		msg += fmt.Sprintf(" (%s: '%s')", e.Field, e.Value)
	}
	return msg
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all findings, warnings included.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// Checked is the number of rules or records examined.
	Checked int
}

func (r *ValidationResult) add(err *ValidationError, options ValidationOptions) {
	r.Errors = append(r.Errors, err)
	if err.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
		return
	}
	r.WarningCount++
	if options.TreatWarningsAsErrors {
		r.IsValid = false
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// StopOnFirstError stops validation after the first fatal error.
	StopOnFirstError bool

	// TreatWarningsAsErrors makes warnings invalidate the result.
	TreatWarningsAsErrors bool
}

// Validator checks errata declarations and interest records.
type Validator struct {
	options ValidationOptions
}

// NewValidator creates a new Validator with default options.
func NewValidator() *Validator {
	return &Validator{}
}

// NewValidatorWithOptions creates a new Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// =============================================================================
// ERRATA VALIDATION
// =============================================================================

// ValidateErrata checks declarations in the order they would be registered.
//
// CHECKS:
//   - kind and field combination convert to a rule
//   - subject is a "SURNAME, Forename" name
//   - period has a leading year, and category exists in that period
//   - replacement amount is positive
//   - filter is not empty (warning)
//   - rule is not covered by an earlier rule of the same kind (warning)
func (v *Validator) ValidateErrata(declarations []errata.Declaration) *ValidationResult {
	result := &ValidationResult{IsValid: true, Checked: len(declarations)}

	var accepted []indexedRule
	for i, d := range declarations {
		index := i + 1
		findings := validateDeclaration(index, d)

		rule, err := d.Rule()
		if err != nil {
			findings = append(findings, &ValidationError{
				Severity: SeverityError, Source: "errata", Index: index,
				Field: "kind", Value: d.Kind, Rule: "convert", Message: err.Error(),
			})
		} else if !hasError(findings) {
			filter := comparableFilter(rule.Filter)
			if filter.IsEmpty() {
				findings = append(findings, &ValidationError{
					Severity: SeverityWarning, Source: "errata", Index: index,
					Rule: "empty_filter", Message: fmt.Sprintf("rule matches every %s failure", rule.Kind()),
				})
			}
			for _, earlier := range accepted {
				if earlier.kind == rule.Kind() && earlier.filter.Covers(filter) {
					findings = append(findings, &ValidationError{
						Severity: SeverityWarning, Source: "errata", Index: index,
						Rule: "shadowed", Message: fmt.Sprintf("rule never matches, covered by rule %d", earlier.index),
					})
					break
				}
			}
			accepted = append(accepted, indexedRule{index: index, kind: rule.Kind(), filter: filter})
		}

		for _, f := range findings {
			result.add(f, v.options)
			if f.Severity == SeverityError && v.options.StopOnFirstError {
				return result
			}
		}
	}
	return result
}

type indexedRule struct {
	index  int
	kind   errata.Kind
	filter errata.Filter
}

func validateDeclaration(index int, d errata.Declaration) []*ValidationError {
	var errs []*ValidationError
	fail := func(field, value, rule, msg string) {
		errs = append(errs, &ValidationError{
			Severity: SeverityError, Source: "errata", Index: index,
			Field: field, Value: value, Rule: rule, Message: msg,
		})
	}

	if d.Subject != "" {
		if _, err := textnorm.NormalizeSubject(d.Subject); err != nil {
			fail("subject", d.Subject, "subject", err.Error())
		}
	}

	if d.Period != "" {
		if _, err := taxonomy.StartYear(d.Period); err != nil {
			fail("period", d.Period, "period", err.Error())
		} else if d.Category != 0 {
			if _, err := taxonomy.Resolve(d.Category, d.Period); err != nil {
				fail("category", fmt.Sprint(d.Category), "category", err.Error())
			}
		}
	}
	if d.Category < 0 {
		fail("category", fmt.Sprint(d.Category), "category", "category must be positive")
	}

	if d.ReplacementAmount != "" {
		if value, err := decimal.NewFromString(d.ReplacementAmount); err == nil && !value.IsPositive() {
			fail("replacement_amount", d.ReplacementAmount, "amount", "replacement amount must be positive")
		}
	}
	return errs
}

// comparableFilter puts a filter in the form the registry compares in.
func comparableFilter(f errata.Filter) errata.Filter {
	if f.Subject != "" {
		if subject, err := textnorm.NormalizeSubject(f.Subject); err == nil {
			f.Subject = subject
		}
	}
	f.Line = textnorm.Normalize(f.Line)
	return f
}

func hasError(errs []*ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// =============================================================================
// RECORD VALIDATION
// =============================================================================

// ValidateInterests checks committed records before export.
func (v *Validator) ValidateInterests(interests []types.Interest) *ValidationResult {
	result := &ValidationResult{IsValid: true, Checked: len(interests)}
	for i, in := range interests {
		for _, f := range validateInterest(i+1, in) {
			result.add(f, v.options)
			if f.Severity == SeverityError && v.options.StopOnFirstError {
				return result
			}
		}
	}
	return result
}

func validateInterest(index int, in types.Interest) []*ValidationError {
	var errs []*ValidationError
	add := func(severity, field, value, rule, msg string) {
		errs = append(errs, &ValidationError{
			Severity: severity, Source: "record", Index: index,
			Field: field, Value: value, Rule: rule, Message: msg,
		})
	}

	if in.Subject == "" {
		add(SeverityError, "subject", "", "required", "subject is empty")
	}
	if strings.TrimSpace(in.Description) == "" {
		add(SeverityError, "description", in.Description, "required", "description is empty")
	}
	if in.HasAmount() && in.Amount.IsNegative() {
		add(SeverityError, "amount", in.Amount.String(), "amount", "amount is negative")
	}

	if in.CategoryCode == 0 {
		add(SeverityError, "category", "", "required", "category is missing")
	} else if category, err := taxonomy.Resolve(in.CategoryCode, in.Period); err != nil {
		add(SeverityError, "category", fmt.Sprint(in.CategoryCode), "category", err.Error())
	} else if in.CategoryTitle != "" && category.Title != in.CategoryTitle {
		add(SeverityWarning, "category_title", in.CategoryTitle, "category",
			fmt.Sprintf("title differs from %q", category.Title))
	}
	return errs
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Validation completed with %d finding(s):\n\n", len(errors))
	for i, err := range errors {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, err.Error())
	}
	return builder.String()
}
