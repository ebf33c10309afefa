package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "smart quotes", in: "“Fees” from ‘ABC’", want: `"Fees" from 'ABC'`},
		{name: "dashes", in: "2015–16 — note", want: "2015-16 - note"},
		{name: "newlines folded", in: "Payment of £100\nfor speech", want: "Payment of £100 for speech"},
		{name: "double spaces", in: "a   b \t c", want: "a b c"},
		{name: "zero width space", in: "Regis\u200btered", want: "Registered"},
		{name: "nbsp", in: "£1,000  for", want: "£1,000 for"},
		{name: "mojibake pound", in: "Â£500", want: "£500"},
		{name: "trimmed", in: "  Nil.  ", want: "Nil."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestRemoveRemunerationBands(t *testing.T) {
	assert.Equal(t, "Salary ()", RemoveRemunerationBands("Salary (£45,001-£50,000)"))
	assert.Equal(t, "Payment  for article", RemoveRemunerationBands("Payment up to £5,000 for article"))
	assert.Equal(t, "Band ", RemoveRemunerationBands("Band £0-5,000"))
	assert.Equal(t, "£10,000 fee", RemoveRemunerationBands("£10,000 fee"))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("Subject to the Rectification Procedure", "rectification procedure"))
	assert.True(t, ContainsFold("Fee of £200", "£"))
	assert.False(t, ContainsFold("Payment up to £5,000", "£"))
}

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "ABBOTT, Diane", want: "abbott, diane"},
		{in: "ABBOTT, Ms Diane", want: "abbott, diane"},
		{in: "REES-MOGG, Jacob", want: "rees-mogg, jacob"},
		{in: "davies, glyn", want: "davies, glyn"},
		{in: "SMITH, Owen J. ", want: "smith, owen"},
		{in: "Sir Bill CASH, William", want: "cash, william"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeSubject(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizeSubject("no comma here")
	require.ErrorIs(t, err, ErrSubjectName)
}

func TestSplitSubject(t *testing.T) {
	surname, forename := SplitSubject("abbott, diane")
	assert.Equal(t, "abbott", surname)
	assert.Equal(t, "diane", forename)
}
