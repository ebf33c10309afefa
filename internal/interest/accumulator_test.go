package interest

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ginjaninja78/register-interests/internal/errata"
	"github.com/ginjaninja78/register-interests/internal/htmltree"
	"github.com/ginjaninja78/register-interests/internal/taxonomy"
)

const testSubject = "abbott, diane"

func page(t *testing.T, body string) *htmltree.Page {
	t.Helper()
	markup := `<html><head><meta charset="utf-8"></head><body><div id="mainTextBlock">` +
		`<h2>ABBOTT, Diane (Hackney North and Stoke Newington)</h2>` + body +
		`<p class="prevNext"><a href="prev.htm">Back to Register</a></p></div></body></html>`
	p, err := htmltree.Load(strings.NewReader(markup), "")
	require.NoError(t, err)
	return p
}

func run(t *testing.T, period, body string, rules ...errata.Rule) Result {
	t.Helper()
	registry, err := errata.NewRegistry(rules...)
	require.NoError(t, err)
	return NewAccumulator(testSubject, period, registry, zap.NewNop()).Run(page(t, body).Lines())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRun_SingleRecord(t *testing.T) {
	res := run(t, "2015-16", `
<h3>2. Employment and earnings</h3>
<p>£10,000 for consulting. (Registered 1 January 2016)</p>`)

	require.Len(t, res.Interests, 1)
	assert.Empty(t, res.Diagnostics)

	got := res.Interests[0]
	assert.Equal(t, testSubject, got.Subject)
	assert.Equal(t, "2015-16", got.Period)
	assert.Equal(t, 2, got.CategoryCode)
	assert.Equal(t, "Donations and other support (including loans)", got.CategoryTitle)
	assert.Equal(t, "1 January 2016", got.Date)
	require.NotNil(t, got.Amount)
	assert.True(t, dec("10000.00").Equal(*got.Amount))
	assert.Equal(t, "£10,000 for consulting. (Registered 1 January 2016)", got.Description)
}

func TestRun_SplitsMultipleAmounts(t *testing.T) {
	res := run(t, "2015-16", `
<h3>1. Employment and earnings</h3>
<p>£100 from Acme Ltd for a speech.</p>
<p>£200 from Widgets Ltd for an article.</p>
<p>(Registered 1 January 2016)</p>`)

	require.Len(t, res.Interests, 2)
	assert.True(t, dec("100").Equal(*res.Interests[0].Amount))
	assert.True(t, dec("200").Equal(*res.Interests[1].Amount))
	for _, got := range res.Interests {
		assert.Equal(t, "1 January 2016", got.Date)
		assert.Equal(t, 1, got.CategoryCode)
	}
	assert.Equal(t, "£100 from Acme Ltd for a speech.", res.Interests[0].Description)
}

func TestRun_NestedBlocksKeepRecords(t *testing.T) {
	res := run(t, "2015-16", `
<h3>1. Employment and earnings</h3>
<p>£100 for a speech. (Registered 1 January 2016)</p>
<div><div><p>£200 for an article. (Registered 2 January 2016)</p></div>
<p>£300 for a lecture. (Registered 3 January 2016)</p></div>`)

	require.Len(t, res.Interests, 3)
	assert.Empty(t, res.Diagnostics)
	for i, want := range []string{"100", "200", "300"} {
		assert.True(t, dec(want).Equal(*res.Interests[i].Amount))
	}
	assert.Equal(t, "2 January 2016", res.Interests[1].Date)
}

func TestRun_OverrideReplacesAmount(t *testing.T) {
	replacement := dec("500")
	line := "Fee of £TBC for a speech. (Registered 1 January 2016)"

	res := run(t, "2015-16", `
<h3>1. Employment and earnings</h3>
<p>`+line+`</p>`,
		errata.Rule{
			Filter:     errata.Filter{Subject: "ABBOTT, Diane", Period: "2015-16", Line: line},
			Commit:     true,
			Correction: errata.AmountCorrection{Replacement: &replacement},
		},
	)

	require.Len(t, res.Interests, 1)
	assert.Empty(t, res.Diagnostics)
	assert.True(t, replacement.Equal(*res.Interests[0].Amount))
}

func TestRun_MandatoryAmountMissing(t *testing.T) {
	res := run(t, "2015-16", `
<h3>1. Employment and earnings</h3>
<p>Consultant to Acme Ltd. (Registered 1 January 2016)</p>
<p>Fee £300 for an article. (Registered 2 January 2016)</p>`)

	require.Len(t, res.Interests, 1, "records lacking a required amount are dropped")
	assert.Equal(t, "2 January 2016", res.Interests[0].Date)

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, errata.MissingAmount.String(), d.Kind)
	assert.Equal(t, 1, d.CategoryCode)
	assert.Equal(t, "Consultant to Acme Ltd. (Registered 1 January 2016)", d.Text)
	assert.Equal(t, "Amount missing abbott, diane (2015-16) - Consultant to Acme Ltd. (Registered 1 January 2016)", d.String())
}

func TestRun_OverrideWithoutCommitDiscards(t *testing.T) {
	res := run(t, "2015-16", `
<h3>1. Employment and earnings</h3>
<p>Consultant to Acme Ltd. (Registered 1 January 2016)</p>`,
		errata.Rule{
			Filter:     errata.Filter{Subject: testSubject},
			Correction: errata.AmountCorrection{},
		},
	)

	assert.Empty(t, res.Interests)
	assert.Empty(t, res.Diagnostics)
}

func TestRun_OptionalAmount(t *testing.T) {
	res := run(t, "2015-16", `
<h3>7. Shareholdings</h3>
<p>Acme Ltd; widget maker. (Registered 1 May 2016)</p>
<p>Widgets Ltd; retailer. (Registered 2 May 2016)</p>`)

	require.Len(t, res.Interests, 2)
	for _, got := range res.Interests {
		assert.Nil(t, got.Amount)
		assert.Equal(t, 7, got.CategoryCode)
	}
}

func TestRun_UnremuneratedWaivesAmount(t *testing.T) {
	res := run(t, "2015-16", `
<h3>1. Employment and earnings</h3>
<p>Unpaid trustee of a local charity. (Registered 1 May 2016)</p>`)

	require.Len(t, res.Interests, 1)
	assert.Nil(t, res.Interests[0].Amount)
	assert.Empty(t, res.Diagnostics)
}

func TestRun_UndatedRectificationDiscarded(t *testing.T) {
	res := run(t, "2015-16", `
<h3>1. Employment and earnings</h3>
<p>This entry was made under the rectification procedure.</p>`)

	assert.Empty(t, res.Interests)
	assert.Empty(t, res.Diagnostics)
}

func TestRun_DatedRectificationCommitted(t *testing.T) {
	res := run(t, "2015-16", `
<h3>1. Employment and earnings</h3>
<p>Correction to earlier register: fee withdrawn. (Registered 1 May 2016)</p>`)

	require.Len(t, res.Interests, 1)
	assert.Nil(t, res.Interests[0].Amount)
}

func TestRun_SkipsPlaceholders(t *testing.T) {
	res := run(t, "2015-16", `
<h3>ABBOTT, Diane (Hackney North and Stoke Newington)</h3>
<h3>1. Employment and earnings</h3>
<p>Nil.</p>
<p>*</p>
<p></p>
<h3>3. Gifts, benefits and hospitality from UK sources</h3>
<p>Tickets from Acme Ltd. (Registered 1 May 2016)</p>`)

	require.Len(t, res.Interests, 1)
	assert.Equal(t, 3, res.Interests[0].CategoryCode)
	assert.Empty(t, res.Diagnostics)
}

func TestRun_CategoryCarriesAcrossRecords(t *testing.T) {
	registry, err := errata.NewRegistry()
	require.NoError(t, err)
	acc := NewAccumulator(testSubject, "2015-16", registry, nil)

	lines := page(t, `
<h3>4. Visits outside the UK</h3>
<p>Visit to Paris. (Registered 1 May 2016)</p>`).Lines()

	var committed int
	for line := range lines {
		acc.Process(line)
		if n := len(acc.Interests()); n > committed {
			committed = n
			last := acc.Interests()[n-1]
			require.NotNil(t, acc.Category())
			assert.Equal(t, last.CategoryCode, acc.Category().Code)
			assert.Equal(t, last.CategoryCode, acc.record.CategoryCode())
		}
	}
	assert.Equal(t, 1, committed)
}

func TestRun_UnknownCategory(t *testing.T) {
	res := run(t, "2015-16", `
<h3>12. Something new</h3>
<p>Fee £5. (Registered 1 May 2016)</p>
<h3>1. Employment and earnings</h3>
<p>Fee £7. (Registered 2 May 2016)</p>`)

	require.Len(t, res.Interests, 1)
	assert.True(t, dec("7").Equal(*res.Interests[0].Amount))

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, UnknownCategory, res.Diagnostics[0].Kind)
	assert.Equal(t, 12, res.Diagnostics[0].CategoryCode)
	assert.Contains(t, res.Diagnostics[0].Message, taxonomy.ErrUnknownCategory.Error())
}

func TestRun_MissingCategory(t *testing.T) {
	body := `
<h3>1. Employment and earnings</h3>
<p>Fee £100. (Registered 1 May 2016)</p>
<h3>Self-employed farmer.</h3>`

	res := run(t, "2015-16", body)
	require.Len(t, res.Interests, 1)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, errata.MissingCategory.String(), res.Diagnostics[0].Kind)
	assert.Equal(t, "Self-employed farmer.", res.Diagnostics[0].Text)

	res = run(t, "2015-16", body, errata.Rule{
		Filter:     errata.Filter{Subject: testSubject, Line: "Self-employed farmer."},
		Commit:     true,
		Correction: errata.CategoryCorrection{},
	})
	require.Len(t, res.Interests, 2)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "Self-employed farmer.", res.Interests[1].Description)
	assert.Equal(t, 1, res.Interests[1].CategoryCode)
}

func TestRun_DatedHeadingIsContent(t *testing.T) {
	res := run(t, "2015-16", `
<h3>1. Employment and earnings</h3>
<p>Fee £100. (Registered 1 May 2016)</p>
<h3>Fee £300 from Acme Ltd. (Registered 2 May 2016)</h3>`)

	require.Len(t, res.Interests, 2)
	assert.True(t, dec("300").Equal(*res.Interests[1].Amount))
	assert.Empty(t, res.Diagnostics)
}

func TestRun_SubEntriesInheritParent(t *testing.T) {
	res := run(t, "2015-16", `
<h3>1. Employment and earnings</h3>
<p class="indent">Payments from Acme Ltd:</p>
<p class="indent2">£500 for a speech. (Registered 1 May 2016)</p>
<p class="indent2">£700 for an article. (Registered 2 May 2016)</p>`)

	require.Len(t, res.Interests, 2)
	assert.Equal(t, "Payments from Acme Ltd: £500 for a speech. (Registered 1 May 2016)", res.Interests[0].Description)
	assert.Equal(t, "Payments from Acme Ltd: £700 for an article. (Registered 2 May 2016)", res.Interests[1].Description)
	assert.Empty(t, res.Diagnostics)
}

func TestRun_MissingParent(t *testing.T) {
	body := `
<h3>1. Employment and earnings</h3>
<p class="indent2">£100 fee. (Registered 1 May 2015)</p>
<p class="indent2">£350 fee. (Registered 1 May 2016)</p>`

	res := run(t, "2015-16", body)
	require.Len(t, res.Interests, 2)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, errata.MissingParent.String(), res.Diagnostics[0].Kind)
	assert.Equal(t, "£350 fee. (Registered 1 May 2016)", res.Interests[1].Description)

	res = run(t, "2015-16", body, errata.Rule{
		Filter:     errata.Filter{Subject: testSubject, CategoryCode: 1},
		Correction: errata.ParentCorrection{Replacement: "Legal aid payments:"},
	})
	require.Len(t, res.Interests, 2)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, "Legal aid payments: £350 fee. (Registered 1 May 2016)", res.Interests[1].Description)
}

func TestRun_FlushesWithoutFooter(t *testing.T) {
	registry, err := errata.NewRegistry()
	require.NoError(t, err)

	p, err := htmltree.Load(strings.NewReader(`<div id="mainTextBlock"><h2>ABBOTT, Diane</h2>
<h3>7. Shareholdings</h3><p>Acme Ltd.</p></div>`), "")
	require.NoError(t, err)

	res := NewAccumulator(testSubject, "2015-16", registry, nil).Run(p.Lines())
	require.Len(t, res.Interests, 1)
	assert.Equal(t, "Acme Ltd.", res.Interests[0].Description)
}

func TestRun_StopsAtFooter(t *testing.T) {
	res := run(t, "2015-16", `<h3>7. Shareholdings</h3><p>Acme Ltd.</p>`)
	require.Len(t, res.Interests, 1)
}

func TestSplit_UsesLastDate(t *testing.T) {
	acc := NewAccumulator(testSubject, "2015-16", errata.Empty(), nil)
	category, err := taxonomy.Resolve(1, "2015-16")
	require.NoError(t, err)
	acc.category = &category
	acc.reset()

	for line := range page(t, `<p>£100 from Acme Ltd.</p><p>£200 from Widgets Ltd.</p>`).Lines() {
		if line.HasAmount() {
			acc.record.addLine(line)
		}
	}
	acc.record.setDate("1 May 2016")
	acc.record.setDate("2 May 2016")
	acc.record.setParent("Speeches:")
	acc.commit()

	require.Len(t, acc.Interests(), 2)
	for _, got := range acc.Interests() {
		assert.Equal(t, "2 May 2016", got.Date)
		assert.True(t, strings.HasPrefix(got.Description, "Speeches: "))
	}
}

func TestRun_LogsDiagnostics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	registry, err := errata.NewRegistry()
	require.NoError(t, err)

	NewAccumulator(testSubject, "2015-16", registry, zap.New(core)).Run(page(t, `
<h3>1. Employment and earnings</h3>
<p>Consultant to Acme Ltd. (Registered 1 January 2016)</p>`).Lines())

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("Amount missing")
	require.Equal(t, 1, warnings.Len())
	fields := warnings.All()[0].ContextMap()
	assert.Equal(t, testSubject, fields["subject"])
	assert.Equal(t, "missing-amount", fields["kind"])
}
