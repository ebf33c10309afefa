package export

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/register-interests/internal/interest"
	"github.com/ginjaninja78/register-interests/internal/report"
	"github.com/ginjaninja78/register-interests/internal/types"
)

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func interests() []types.Interest {
	return []types.Interest{
		{Subject: "abbott, diane", Period: "2015-16", CategoryCode: 1, CategoryTitle: "Employment and earnings", Date: "3 May 2016", Amount: amount("500"), Description: `£500 from "The Guardian" for an article.`},
		{Subject: "adams, nigel", Period: "2015-16", CategoryCode: 7, CategoryTitle: "Shareholdings", Description: "Widgets & Sons plc."},
		{Subject: "abbott, diane", Period: "2015-16", CategoryCode: 1, CategoryTitle: "Employment and earnings", Date: "4 May 2016", Amount: amount("1200.5"), Description: "Speech, Acme Ltd."},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, report.New(interests()).Table()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "subject", records[0][0])
	assert.Equal(t, `£500 from "The Guardian" for an article.`, records[1][5])
	assert.Equal(t, "1200.50", records[3][3])
	assert.Equal(t, "", records[2][3])
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grouped.csv")
	require.NoError(t, WriteCSVFile(path, report.New(interests()).GroupBy(report.ColumnSubject).Table()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "subject,count,amount\n\"abbott, diane\",2,1700.50\n\"adams, nigel\",1,0.00\n", string(data))

	require.Error(t, WriteCSVFile(filepath.Join(t.TempDir(), "missing", "x.csv"), report.Table{}))
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interests.xlsx")
	r := report.New(interests())
	diagnostics := []interest.Diagnostic{{
		Kind: "missing-amount", Subject: "abbott, diane", Period: "2015-16", CategoryCode: 1,
		Text: "Consultant to Acme Ltd.", Message: "Amount missing",
	}}

	require.NoError(t, WriteXLSX(path,
		Sheet{Name: "Interests", Table: r.Table()},
		Sheet{Name: "Categories", Table: CategoryTotalsTable(r.TotalsByCategory())},
		Sheet{Name: "Diagnostics", Table: DiagnosticsTable(diagnostics)},
	))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Interests", "Categories", "Diagnostics"}, f.GetSheetList())

	rows, err := f.GetRows("Interests", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "amount", rows[0][3])
	assert.Equal(t, "500", rows[1][3])
	assert.Equal(t, "1200.5", rows[3][3])
	assert.Equal(t, "Widgets & Sons plc.", rows[2][5])

	rows, err = f.GetRows("Categories", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "Employment and earnings", "2", "1700.5"}, rows[1])

	rows, err = f.GetRows("Diagnostics")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "missing-amount", rows[1][0])
	assert.Equal(t, "Consultant to Acme Ltd.", rows[1][5])

	require.Error(t, WriteXLSX(path))
}

func TestWriteXML(t *testing.T) {
	var buf bytes.Buffer
	options := DefaultXMLOptions()
	options.RootAttributes["period"] = "2015-16"
	require.NoError(t, WriteXML(&buf, interests(), options))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `<interests period="2015-16">`)
	assert.Contains(t, out, `<interest n="3" period="2015-16">`)
	assert.Contains(t, out, `<amount>500.00</amount>`)
	assert.Contains(t, out, `Widgets &amp; Sons plc.`)

	var doc struct {
		Subjects []struct {
			Name      string `xml:"name,attr"`
			Interests []struct {
				N        int `xml:"n,attr"`
				Category struct {
					Code  int    `xml:"code,attr"`
					Title string `xml:",chardata"`
				} `xml:"category"`
				Amount      string `xml:"amount"`
				Description string `xml:"description"`
			} `xml:"interest"`
		} `xml:"subject"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Subjects, 2)
	assert.Equal(t, "abbott, diane", doc.Subjects[0].Name)
	require.Len(t, doc.Subjects[0].Interests, 2)
	assert.Equal(t, 1, doc.Subjects[0].Interests[0].N)
	assert.Equal(t, 3, doc.Subjects[0].Interests[1].N)
	assert.Equal(t, 1, doc.Subjects[0].Interests[0].Category.Code)
	assert.Equal(t, "Employment and earnings", doc.Subjects[0].Interests[0].Category.Title)
	assert.Equal(t, `£500 from "The Guardian" for an article.`, doc.Subjects[0].Interests[0].Description)
	assert.Equal(t, "", doc.Subjects[1].Interests[0].Amount)
}

func TestWriteConsole(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConsole(&buf, report.New(interests()).GroupBy(report.ColumnSubject).Table()))

	out := buf.String()
	assert.Contains(t, out, "subject")
	assert.Contains(t, out, "abbott, diane")
	assert.Contains(t, out, "1700.50")
	assert.Equal(t, 2, strings.Count(out, "adams")+strings.Count(out, "abbott"))
}
