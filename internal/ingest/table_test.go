package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestReadFromCSVComma(t *testing.T) {
	t.Parallel()

	in := "phone,name\n0612345678,Jan\n0687654321,Piet\n"
	tbl, err := ReadFrom(strings.NewReader(in), "upload.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"phone", "name"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"0612345678", "Jan"}, tbl.Rows[0])
}

func TestReadFromCSVSemicolonFallback(t *testing.T) {
	t.Parallel()

	in := "phone;name\n0612345678;Jan\n"
	tbl, err := ReadFrom(strings.NewReader(in), "upload.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"phone", "name"}, tbl.Header)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "Jan", tbl.Rows[0][1])
}

func TestReadFromCSVPadsShortRows(t *testing.T) {
	t.Parallel()

	in := "phone,name,city\n0612345678\n"
	tbl, err := ReadFrom(strings.NewReader(in), "upload.csv")
	require.NoError(t, err)

	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"0612345678", "", ""}, tbl.Rows[0])
}

func TestReadFromCSVEmpty(t *testing.T) {
	t.Parallel()

	_, err := ReadFrom(strings.NewReader(""), "upload.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestReadFromXLSX(t *testing.T) {
	t.Parallel()

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Blad1")
	require.NoError(t, err)

	for _, cells := range [][]string{
		{"phone", "name"},
		{"0612345678", "Jan"},
		{"0031687654321", ""},
	} {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	tbl, err := ReadFrom(&buf, "upload.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"phone", "name"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "0031687654321", tbl.Rows[1][0])
	assert.Equal(t, "", tbl.Rows[1][1])
}

func TestColumnIndexAndRowMap(t *testing.T) {
	t.Parallel()

	tbl := &Table{
		Header: []string{"phone", "name", "city"},
		Rows:   [][]string{{"0612345678", "Jan", "Utrecht"}},
	}

	i, ok := tbl.ColumnIndex("name")
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = tbl.ColumnIndex("email")
	assert.False(t, ok)

	m := tbl.RowMap(tbl.Rows[0])
	assert.Equal(t, map[string]string{"phone": "0612345678", "name": "Jan", "city": "Utrecht"}, m)
}
