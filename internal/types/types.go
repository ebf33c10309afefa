// =============================================================================
// Register Interests Parser - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - interest
//   - converter
//   - report
//   - export
//   - validation
//
// =============================================================================

package types

import "github.com/shopspring/decimal"

// =============================================================================
// INTEREST RECORD
// =============================================================================

// Interest is one committed financial-interest entry for a subject in a
// reporting period. Once produced by the accumulator it is never mutated.
type Interest struct {
	// Subject is the normalised "surname, forename" of the member.
	Subject string

	// Period is the reporting period identifier, e.g. "2015-16".
	Period string

	// CategoryCode and CategoryTitle identify the resolved category.
	CategoryCode  int
	CategoryTitle string

	// Date is the registration date as it appears in the source.
	// No calendar normalisation is performed.
	Date string

	// Amount is nil when the record carries no amount.
	Amount *decimal.Decimal

	// Description is the full record text with the parent context
	// prefixed when it is not already part of the body.
	Description string
}

// AmountOrZero returns the amount, or zero when the record has none.
func (i Interest) AmountOrZero() decimal.Decimal {
	if i.Amount == nil {
		return decimal.Zero
	}
	return *i.Amount
}

// HasAmount reports whether the record carries an amount.
func (i Interest) HasAmount() bool {
	return i.Amount != nil
}
