package ingest

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

func TestReadCSVDetectsSeparator(t *testing.T) {
	cases := []struct {
		input string
		sep   rune
	}{
		{input: "date,sku,qty\n2024-01-01,A,1\n", sep: ','},
		{input: "date;sku;qty\n2024-01-01;A;1\n", sep: ';'},
		{input: "date\tsku\tqty\n2024-01-01\tA\t1\n", sep: '\t'},
		{input: "date|sku|qty\n2024-01-01|A|1\n", sep: '|'},
	}

	for _, tc := range cases {
		table, err := ReadCSV([]byte(tc.input), ReadOptions{})
		require.NoError(t, err)
		assert.Equal(t, tc.sep, table.Separator)
		assert.Equal(t, []string{"date", "sku", "qty"}, table.Headers)
		require.Len(t, table.Records, 1)
		assert.Equal(t, "A", table.Records[0][1])
	}
}

func TestReadCSVExplicitSeparator(t *testing.T) {
	table, err := ReadCSV([]byte("a;b,c\n1;2,3\n"), ReadOptions{Separator: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b,c"}, table.Headers)
}

func TestReadCSVStripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Дата;Артикул\n01.01.2024;A\n")...)

	table, err := ReadCSV(data, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, table.Encoding)
	assert.Equal(t, "Дата", table.Headers[0])
}

func TestReadCSVFallsBackToWindows1251(t *testing.T) {
	encoded, err := charmap.Windows1251.NewEncoder().String("Дата;Артикул;Товар\n01.01.2024;A-1;Хлеб\n")
	require.NoError(t, err)

	table, err := ReadCSV([]byte(encoded), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, EncodingWin1251, table.Encoding)
	assert.Equal(t, []string{"Дата", "Артикул", "Товар"}, table.Headers)
	assert.Equal(t, "Хлеб", table.Records[0][2])
}

func TestReadCSVRejectsInvalidUTF8WhenForced(t *testing.T) {
	_, err := ReadCSV([]byte{0xC4, 0xE0, 0xF2, 0xE0}, ReadOptions{Encoding: "utf-8"})
	require.Error(t, err)

	_, err = ReadCSV([]byte("a,b\n"), ReadOptions{Encoding: "koi8-r"})
	require.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Дата", "Артикул", "Товар", "Количество", "Цена"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"01.02.2024", "SKU-1", "Хлеб", "3", "45"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	assert.True(t, IsXLSX("sales.bin", buf.Bytes()))

	table, err := ReadTable("sales.xlsx", buf.Bytes(), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Количество", table.Headers[3])
	require.Len(t, table.Records, 1)
	assert.Equal(t, "SKU-1", table.Records[0][1])
}

func TestReadXLSXConvertsDateCells(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Дата", "Артикул", "Товар", "Количество", "Цена"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), "SKU-1", "Хлеб", 5, 49.5}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"16.01.2024", "SKU-1", "Хлеб", 7, 49.5}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	table, err := ReadTable("sales.xlsx", buf.Bytes(), ReadOptions{})
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.Equal(t, "2024-01-15", table.Records[0][0])
	assert.Equal(t, "5", table.Records[0][3])
	assert.Equal(t, "49.5", table.Records[0][4])

	batch, err := Normalize(table, Options{DatePolicy: DatePolicyDrop})
	require.NoError(t, err)
	require.Len(t, batch.Rows, 2)
	assert.Zero(t, batch.Skipped)
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), batch.Rows[0].Date)
	assert.Equal(t, 5.0, batch.Rows[0].Quantity)
	assert.Equal(t, time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC), batch.Rows[1].Date)
}

func TestIsDateFormatCode(t *testing.T) {
	assert.True(t, isDateFormatCode("dd.mm.yyyy"))
	assert.True(t, isDateFormatCode("[$-419]d mmmm yyyy"))
	assert.False(t, isDateFormatCode("#,##0.00"))
	assert.False(t, isDateFormatCode(`0.0 "days"`))
	assert.False(t, isDateFormatCode("[Red]0.00"))
}

func TestParseSeparator(t *testing.T) {
	assert.Equal(t, rune(0), ParseSeparator(""))
	assert.Equal(t, '\t', ParseSeparator(`\t`))
	assert.Equal(t, '\t', ParseSeparator("tab"))
	assert.Equal(t, ';', ParseSeparator(";"))
}
