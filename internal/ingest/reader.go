package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const (
	EncodingAuto    = "auto"
	EncodingUTF8    = "utf-8"
	EncodingWin1251 = "windows-1251"
)

var separatorCandidates = []rune{',', ';', '\t', '|'}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a decoded upload: a header row and the data rows beneath it.
type Table struct {
	Headers   []string
	Records   [][]string
	Encoding  string
	Separator rune
}

// ReadOptions carries caller-supplied hints. Zero values mean auto-detect.
type ReadOptions struct {
	Separator rune
	Encoding  string
}

// ParseSeparator turns a form value such as ";" or "\t" into a rune.
func ParseSeparator(value string) rune {
	switch value {
	case "":
		return 0
	case `\t`, "tab":
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(value)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// IsXLSX reports whether the payload looks like an OOXML workbook.
func IsXLSX(filename string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return true
	}
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

// ReadTable decodes raw upload bytes, dispatching on the file type.
func ReadTable(filename string, data []byte, opts ReadOptions) (*Table, error) {
	if IsXLSX(filename, data) {
		return ReadXLSX(bytes.NewReader(data))
	}
	return ReadCSV(data, opts)
}

// ReadCSV decodes text, detects the separator and splits it into records.
func ReadCSV(data []byte, opts ReadOptions) (*Table, error) {
	text, enc, err := decodeText(data, opts.Encoding)
	if err != nil {
		return nil, err
	}

	sep := opts.Separator
	if sep == 0 {
		sep = detectSeparator(text)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header row")
	}

	return &Table{
		Headers:   records[0],
		Records:   records[1:],
		Encoding:  enc,
		Separator: sep,
	}, nil
}

// ReadXLSX reads the first sheet of a workbook as a table. Cells are read
// unformatted; numeric cells carrying a date number format become YYYY-MM-DD.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	sheet := sheets[0]

	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %s has no header row", sheet)
	}

	dates := newSerialDates(f, sheet)
	for i := 1; i < len(records); i++ {
		for j, value := range records[i] {
			if day, ok := dates.convert(j, i, value); ok {
				records[i][j] = day
			}
		}
	}

	return &Table{
		Headers:  records[0],
		Records:  records[1:],
		Encoding: EncodingUTF8,
	}, nil
}

// builtinDateFormats are the predefined number format ids that render dates.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// serialDates recognises Excel date serials by the style of their cell.
type serialDates struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

func newSerialDates(f *excelize.File, sheet string) *serialDates {
	d := &serialDates{f: f, sheet: sheet, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// convert returns the calendar day for a date-formatted numeric cell at the
// zero-based column and row.
func (d *serialDates) convert(col, row int, value string) (string, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || serial <= 0 {
		return "", false
	}
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return "", false
	}
	styleID, err := d.f.GetCellStyle(d.sheet, name)
	if err != nil || !d.isDateStyle(styleID) {
		return "", false
	}
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return "", false
	}
	return t.Round(time.Second).Format(domain.DateLayout), true
}

func (d *serialDates) isDateStyle(styleID int) bool {
	if isDate, ok := d.styles[styleID]; ok {
		return isDate
	}
	isDate := false
	if style, err := d.f.GetStyle(styleID); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		} else {
			isDate = builtinDateFormats[style.NumFmt]
		}
	}
	d.styles[styleID] = isDate
	return isDate
}

// isDateFormatCode reports whether a custom format has day or year tokens
// outside quoted literals and bracketed sections.
func isDateFormatCode(code string) bool {
	inQuote, inBracket := false, false
	for _, c := range strings.ToLower(code) {
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '[':
			inBracket = true
		case c == ']':
			inBracket = false
		case inBracket:
		case c == 'd' || c == 'y':
			return true
		}
	}
	return false
}

// decodeText returns UTF-8 text. In auto mode invalid UTF-8 falls back to Windows-1251.
func decodeText(data []byte, encoding string) (string, string, error) {
	enc := strings.ToLower(strings.TrimSpace(encoding))
	switch enc {
	case "", EncodingAuto:
		if utf8.Valid(data) {
			return string(bytes.TrimPrefix(data, utf8BOM)), EncodingUTF8, nil
		}
		return decode1251(data)
	case EncodingUTF8, "utf8":
		if !utf8.Valid(data) {
			return "", "", fmt.Errorf("upload is not valid utf-8")
		}
		return string(bytes.TrimPrefix(data, utf8BOM)), EncodingUTF8, nil
	case EncodingWin1251, "cp1251":
		return decode1251(data)
	default:
		return "", "", fmt.Errorf("unsupported encoding %q", encoding)
	}
}

func decode1251(data []byte) (string, string, error) {
	out, err := charmap.Windows1251.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode windows-1251: %w", err)
	}
	return string(out), EncodingWin1251, nil
}

// detectSeparator picks the candidate occurring most often in the header line.
func detectSeparator(text string) rune {
	header := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		header = text[:i]
	}

	best, bestCount := ',', 0
	for _, c := range separatorCandidates {
		if n := strings.Count(header, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}
