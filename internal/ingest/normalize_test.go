package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

func flexibleTable(records ...[]string) *Table {
	return &Table{
		Headers: []string{"Дата", "Артикул", "Товар", "Количество", "Цена"},
		Records: records,
	}
}

func TestNormalizeFlexible(t *testing.T) {
	table := flexibleTable(
		[]string{"01.03.2024", "A-1", "Хлеб", "3", "45,50"},
		[]string{"", "", "", "", ""},
		[]string{"2024-03-02", "A-1", "", "1 200", ""},
	)

	batch, err := Normalize(table, Options{})
	require.NoError(t, err)

	assert.Equal(t, domain.SchemaFlexible, batch.Schema)
	require.Len(t, batch.Rows, 2)

	first := batch.Rows[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "A-1", first.SKU)
	assert.Equal(t, "Хлеб", first.Name)
	assert.True(t, first.HasName)
	assert.InDelta(t, 3.0, first.Quantity, 1e-9)
	assert.InDelta(t, 45.5, first.Price, 1e-9)
	assert.True(t, first.HasPrice)

	second := batch.Rows[1]
	assert.Equal(t, 4, second.Line)
	assert.False(t, second.HasName)
	assert.False(t, second.HasPrice)
	assert.InDelta(t, 1200.0, second.Quantity, 1e-9)
	assert.Equal(t, "2024-03-02", second.Date.Format(domain.DateLayout))
}

func TestNormalizeDatePolicy(t *testing.T) {
	table := flexibleTable(
		[]string{"01.03.2024", "A-1", "Хлеб", "3", "45"},
		[]string{"not a date", "A-1", "Хлеб", "3", "45"},
	)

	batch, err := Normalize(table, Options{DatePolicy: DatePolicyDrop})
	require.NoError(t, err)
	assert.Len(t, batch.Rows, 1)
	assert.Equal(t, 1, batch.Skipped)

	_, err = Normalize(table, Options{DatePolicy: DatePolicyStrict})
	var dateErr *domain.DateParseError
	require.True(t, errors.As(err, &dateErr))
	assert.Equal(t, 3, dateErr.Line)
	assert.Equal(t, "not a date", dateErr.Value)
}

func TestParseDatePolicy(t *testing.T) {
	cases := map[string]string{"": DatePolicyDrop, "drop": DatePolicyDrop, " Strict ": DatePolicyStrict}
	for in, want := range cases {
		got, err := ParseDatePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDatePolicy("strcit")
	assert.ErrorContains(t, err, "strcit")
}

func TestNormalizeRejectsUnknownDatePolicy(t *testing.T) {
	table := flexibleTable([]string{"not a date", "A-1", "Хлеб", "3", "45"})

	_, err := Normalize(table, Options{DatePolicy: "strcit"})
	require.Error(t, err)
	assert.False(t, domain.IsValidation(err))
	assert.NotErrorIs(t, err, domain.ErrNoRows)
}

func TestNormalizeRejectsBadQuantity(t *testing.T) {
	_, err := Normalize(flexibleTable([]string{"01.03.2024", "A-1", "Хлеб", "three", "45"}), Options{})

	var rowErr *domain.RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, "Количество", rowErr.Column)
	assert.True(t, domain.IsValidation(err))
}

func TestNormalizeOnlyUnparseableDates(t *testing.T) {
	_, err := Normalize(flexibleTable([]string{"soon", "A-1", "Хлеб", "1", "45"}), Options{})
	assert.ErrorIs(t, err, domain.ErrNoRows)
}

func TestNormalizeFixedSchema(t *testing.T) {
	table := &Table{
		Headers: []string{"date", "product_id", "quantity_sold"},
		Records: [][]string{
			{"2024-03-01", "P-9", "4"},
			{"01.03.2024", "P-9", "4"},
		},
	}

	assert.Equal(t, domain.SchemaFixed, DetectSchema(table.Headers))

	batch, err := Normalize(table, Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.SchemaFixed, batch.Schema)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "P-9", batch.Rows[0].SKU)
	assert.False(t, batch.Rows[0].HasPrice)
	assert.Equal(t, 1, batch.Skipped)
}

func TestNormalizeForcedFixedSchemaWrongHeaders(t *testing.T) {
	table := &Table{Headers: []string{"date", "sku", "quantity_sold"}, Records: [][]string{{"2024-03-01", "A", "1"}}}

	_, err := Normalize(table, Options{Schema: domain.SchemaFixed})
	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"date", "quantity_sold"}, schemaErr.Found)
}

func TestBatchSKUsFirstAppearance(t *testing.T) {
	batch, err := Normalize(flexibleTable(
		[]string{"01.03.2024", "B", "b", "1", "1"},
		[]string{"01.03.2024", "A", "a", "1", "1"},
		[]string{"02.03.2024", "B", "b", "1", "1"},
	), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "A"}, batch.SKUs())
}

func TestParseNumber(t *testing.T) {
	cases := map[string]float64{
		"12":       12,
		"12.5":     12.5,
		"12,5":     12.5,
		"1 234,50": 1234.5,
		"1,234.50": 1234.5,
	}
	for in, want := range cases {
		got, err := parseNumber(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}

	_, err := parseNumber("")
	assert.Error(t, err)
}
