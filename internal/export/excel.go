package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const (
	sheetName       = "Рекомендации"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []interface{}{
	"Артикул",
	"Товар",
	"Текущий остаток (шт)",
	"Цена за единицу (₽)",
	"Стоимость остатка (₽)",
	"Средние продажи в день (шт)",
	"Дней до исчерпания",
	"Рекомендуемая закупка (шт)",
	"Сумма закупки (₽)",
	"Приоритет",
}

// Filename names an export generated at the given moment.
func Filename(ts string) string {
	return fmt.Sprintf("forecast_report_%s.xlsx", ts)
}

// WriteRecommendations renders rows as a single-sheet workbook into w.
func WriteRecommendations(w io.Writer, rows []domain.ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := headers
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", lastCol, 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		priority := ""
		if r.Priority != "" {
			priority = domain.PriorityLabel(r.Priority)
		}
		values := []interface{}{
			r.SKU,
			r.Name,
			r.CurrentStock,
			r.UnitPrice,
			r.StockValue,
			r.AvgDailySales,
			r.DaysLeft,
			r.SuggestedQty,
			r.PurchaseAmount,
			priority,
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
