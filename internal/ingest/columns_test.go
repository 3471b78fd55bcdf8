package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

func TestResolveColumnsAnyOrderAndCase(t *testing.T) {
	base := []string{"Дата продажи", "Артикул", "Товар", "Количество", "Цена"}

	permutations := [][]int{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
		{3, 4, 0, 2, 1},
	}

	for _, perm := range permutations {
		headers := make([]string, len(perm))
		for i, idx := range perm {
			headers[i] = base[idx]
		}
		upper := make([]string, len(headers))
		for i, h := range headers {
			upper[i] = strings.ToUpper(h)
		}

		for _, set := range [][]string{headers, upper} {
			m, err := ResolveColumns(set)
			require.NoError(t, err, "headers %v", set)
			for _, f := range CanonicalFields {
				assert.Contains(t, m.Index, f)
			}
			assert.Equal(t, strings.ToLower(base[1]), strings.ToLower(set[m.Index[FieldSKU]]))
		}
	}
}

func TestResolveColumnsEnglishHeaders(t *testing.T) {
	m, err := ResolveColumns([]string{"sale_date", "SKU", "Product", "Qty", "Unit Price"})
	require.NoError(t, err)

	assert.Equal(t, 0, m.Index[FieldDate])
	assert.Equal(t, 1, m.Index[FieldSKU])
	assert.Equal(t, 2, m.Index[FieldName])
	assert.Equal(t, 3, m.Index[FieldQuantity])
	assert.Equal(t, 4, m.Index[FieldPrice])
}

func TestResolveColumnsFirstHeaderWins(t *testing.T) {
	m, err := ResolveColumns([]string{"date", "sku", "product", "qty", "price", "price with vat"})
	require.NoError(t, err)

	assert.Equal(t, 4, m.Index[FieldPrice])
	assert.Equal(t, []string{"price with vat"}, m.Ignored)
}

func TestResolveColumnsMissingField(t *testing.T) {
	_, err := ResolveColumns([]string{"Дата", "Артикул", "Товар", "Кол-во"})
	require.Error(t, err)

	var schemaErr *domain.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"date", "sku", "name", "quantity"}, schemaErr.Found)
	assert.Contains(t, err.Error(), "date, sku, name, quantity")
}

func TestMatchFieldGroupOrder(t *testing.T) {
	// "Код товара" contains both a sku and a name keyword; sku is checked first.
	f, ok := MatchField("Код товара")
	require.True(t, ok)
	assert.Equal(t, FieldSKU, f)

	_, ok = MatchField("comment")
	assert.False(t, ok)

	_, ok = MatchField("   ")
	assert.False(t, ok)
}
