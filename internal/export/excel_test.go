package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

func TestWriteRecommendations(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRecommendations(&buf, []domain.ExportRow{
		{SKU: "A-1", Name: "Молоко", CurrentStock: 5, UnitPrice: 80, StockValue: 400, AvgDailySales: 2, DaysLeft: 2, SuggestedQty: 55, PurchaseAmount: 4400, Priority: domain.PriorityUrgent},
		{SKU: "B-2", Name: "Хлеб", CurrentStock: 90, UnitPrice: 40, StockValue: 3600, AvgDailySales: 1, DaysLeft: 90},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Артикул", rows[0][0])
	assert.Equal(t, "Сумма закупки (₽)", rows[0][8])
	assert.Equal(t, []string{"A-1", "Молоко", "5", "80", "400", "2", "2", "55", "4400", "СРОЧНО"}, rows[1])
	assert.Equal(t, "B-2", rows[2][0])
	assert.Equal(t, "0", rows[2][7])
}

func TestWriteRecommendationsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecommendations(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "forecast_report_20240501_120000.xlsx", Filename("20240501_120000"))
}
