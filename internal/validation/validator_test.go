package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/register-interests/internal/errata"
	"github.com/ginjaninja78/register-interests/internal/types"
)

func rules(findings []*ValidationError) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Rule)
	}
	return out
}

func TestValidateErrata_Defaults(t *testing.T) {
	declarations, err := errata.DefaultDeclarations()
	require.NoError(t, err)

	result := NewValidator().ValidateErrata(declarations)
	assert.Equal(t, len(declarations), result.Checked)
	assert.Zero(t, result.ErrorCount, FormatErrors(result.Errors))
	assert.True(t, result.IsValid)
}

func TestValidateErrata_Findings(t *testing.T) {
	declarations := []errata.Declaration{
		{Kind: "missing-amount", Subject: "SMITH, Owen"},
		{Kind: "missing-amount", Subject: "smith, owen", Period: "2015-16", Line: "Speech."},
		{Kind: "missing-parent"},
		{Kind: "missing-category", Subject: "Madonna"},
		{Kind: "missing-category", Period: "fifteen"},
		{Kind: "missing-amount", Subject: "jones, ann", ReplacementAmount: "0"},
		{Kind: "missing-amount", Period: "2010-12", Category: 12},
		{Kind: "missing-nothing", Subject: "jones, ann"},
		{Kind: "missing-parent", Subject: "jones, ann", ReplacementAmount: "10"},
	}

	result := NewValidator().ValidateErrata(declarations)
	require.False(t, result.IsValid)

	byIndex := make(map[int][]*ValidationError)
	for _, f := range result.Errors {
		byIndex[f.Index] = append(byIndex[f.Index], f)
	}

	assert.Empty(t, byIndex[1])
	assert.Equal(t, []string{"shadowed"}, rules(byIndex[2]))
	assert.Contains(t, byIndex[2][0].Message, "rule 1")
	assert.Equal(t, []string{"empty_filter"}, rules(byIndex[3]))
	assert.Equal(t, SeverityWarning, byIndex[3][0].Severity)
	assert.Equal(t, []string{"subject"}, rules(byIndex[4]))
	assert.Equal(t, []string{"period"}, rules(byIndex[5]))
	assert.Equal(t, []string{"amount"}, rules(byIndex[6]))
	assert.Equal(t, []string{"category"}, rules(byIndex[7]))
	assert.Equal(t, []string{"convert"}, rules(byIndex[8]))
	assert.Equal(t, []string{"convert"}, rules(byIndex[9]))

	assert.Equal(t, 2, result.WarningCount)
	assert.Equal(t, 6, result.ErrorCount)
}

func TestValidateErrata_Options(t *testing.T) {
	declarations := []errata.Declaration{
		{Kind: "missing-parent"},
		{Kind: "missing-category", Period: "x"},
		{Kind: "missing-category", Period: "y"},
	}

	result := NewValidatorWithOptions(ValidationOptions{StopOnFirstError: true}).ValidateErrata(declarations)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 1, result.WarningCount)

	result = NewValidatorWithOptions(ValidationOptions{TreatWarningsAsErrors: true}).ValidateErrata(declarations[:1])
	assert.False(t, result.IsValid)
	assert.Zero(t, result.ErrorCount)
}

func TestValidateInterests(t *testing.T) {
	negative := decimal.NewFromInt(-5)
	positive := decimal.NewFromInt(5)
	interests := []types.Interest{
		{Subject: "abbott, diane", Period: "2015-16", CategoryCode: 1, CategoryTitle: "Employment and earnings", Amount: &positive, Description: "Speech."},
		{Subject: "abbott, diane", Period: "2015-16", Description: "Orphan."},
		{Subject: "", Period: "2015-16", CategoryCode: 7, CategoryTitle: "Shareholdings", Description: " ", Amount: &negative},
		{Subject: "abbott, diane", Period: "2015-16", CategoryCode: 1, CategoryTitle: "Directorships", Description: "Old title."},
		{Subject: "abbott, diane", Period: "2015-16", CategoryCode: 12, Description: "Gone."},
	}

	result := NewValidator().ValidateInterests(interests)
	assert.Equal(t, 5, result.Checked)
	assert.False(t, result.IsValid)

	byIndex := make(map[int][]string)
	for _, f := range result.Errors {
		byIndex[f.Index] = append(byIndex[f.Index], f.Field)
	}
	assert.Empty(t, byIndex[1])
	assert.Equal(t, []string{"category"}, byIndex[2])
	assert.Equal(t, []string{"subject", "description", "amount"}, byIndex[3])
	assert.Equal(t, []string{"category_title"}, byIndex[4])
	assert.Equal(t, []string{"category"}, byIndex[5])
	assert.Equal(t, 1, result.WarningCount)
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))

	out := FormatErrors([]*ValidationError{{
		Severity: SeverityError, Source: "record", Index: 3,
		Field: "amount", Value: "-5", Message: "amount is negative",
	}})
	assert.Contains(t, out, "1 finding(s)")
	assert.Contains(t, out, "1. [ERROR] record 3: amount is negative (amount: '-5')")
}
