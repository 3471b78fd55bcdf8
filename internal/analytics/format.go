package analytics

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DisplayDateLayout is the day format used in dashboard and detail payloads.
const DisplayDateLayout = "02.01.2006"

// round rounds v half away from zero to the given number of decimal places.
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// FormatCurrency renders a whole-unit amount with space-grouped thousands and
// a trailing symbol. Example: 1234567.6 => "1 234 568 ₽".
func FormatCurrency(v float64, symbol string) string {
	amount := decimal.NewFromFloat(v).Round(0).IntPart()

	// English grouping is a plain comma, swapped for the space used on screen.
	grouped := message.NewPrinter(language.English).Sprintf("%d", amount)
	grouped = strings.ReplaceAll(grouped, ",", " ")

	if symbol == "" {
		return grouped
	}
	return grouped + " " + symbol
}
