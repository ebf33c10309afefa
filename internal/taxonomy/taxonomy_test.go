package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartYear(t *testing.T) {
	tests := []struct {
		period  string
		want    int
		wantErr bool
	}{
		{period: "2015-16", want: 2015},
		{period: "2010-12", want: 2010},
		{period: " 2019-20 ", want: 2019},
		{period: "2016", want: 2016},
		{period: "15-16", wantErr: true},
		{period: "", wantErr: true},
		{period: "abcd-ef", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			got, err := StartYear(tt.period)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPeriod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_NewestGenerationWins(t *testing.T) {
	c, err := Resolve(2, "2015-16")
	require.NoError(t, err)
	assert.Equal(t, 2015, c.RuleSetYear)
	assert.Equal(t, "Donations and other support (including loans)", c.Title)
	assert.True(t, c.AmountRequired)

	c, err = Resolve(2, "2014-15")
	require.NoError(t, err)
	assert.Equal(t, 2010, c.RuleSetYear)
	assert.Equal(t, "Employment and earnings", c.Title)
}

func TestResolve_OldCodeOnlyInOldGeneration(t *testing.T) {
	c, err := Resolve(11, "2012-13")
	require.NoError(t, err)
	assert.Equal(t, "Miscellaneous", c.Title)
	assert.False(t, c.AmountRequired)

	// 11 was never reused, but the 2010 entry still applies to later periods.
	c, err = Resolve(11, "2016-17")
	require.NoError(t, err)
	assert.Equal(t, 2010, c.RuleSetYear)
}

func TestResolve_Unknown(t *testing.T) {
	_, err := Resolve(12, "2015-16")
	require.ErrorIs(t, err, ErrUnknownCategory)

	_, err = Resolve(1, "2009-10")
	require.ErrorIs(t, err, ErrUnknownCategory)

	_, err = Resolve(1, "bad")
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestForPeriod(t *testing.T) {
	cats, err := ForPeriod("2015-16")
	require.NoError(t, err)
	require.Len(t, cats, 11)
	assert.Equal(t, "Employment and earnings", cats[0].Title)
	assert.Equal(t, 2010, cats[10].RuleSetYear)

	cats, err = ForPeriod("2010-12")
	require.NoError(t, err)
	require.Len(t, cats, 11)
	for _, c := range cats {
		assert.Equal(t, 2010, c.RuleSetYear)
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "7. Shareholdings", Category{Code: 7, Title: "Shareholdings"}.String())
}
