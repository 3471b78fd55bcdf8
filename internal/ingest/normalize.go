package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const (
	DatePolicyDrop   = "drop"
	DatePolicyStrict = "strict"
)

// ParseDatePolicy normalises a configured date policy. Empty means drop.
func ParseDatePolicy(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", DatePolicyDrop:
		return DatePolicyDrop, nil
	case DatePolicyStrict:
		return DatePolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown date policy %q (want %q or %q)", value, DatePolicyDrop, DatePolicyStrict)
	}
}

var fixedHeaders = []string{"date", "product_id", "quantity_sold"}

// Options selects the schema and how unparseable dates are treated.
type Options struct {
	Schema     domain.Schema
	DatePolicy string
}

// Batch is a normalised upload ready for validation and persistence.
type Batch struct {
	Schema  domain.Schema
	Rows    []domain.SaleRow
	Skipped int
	Columns ColumnMap
}

// SKUs returns the distinct SKUs in first-appearance order.
func (b *Batch) SKUs() []string {
	seen := make(map[string]struct{}, len(b.Rows))
	var out []string
	for _, row := range b.Rows {
		if _, ok := seen[row.SKU]; ok {
			continue
		}
		seen[row.SKU] = struct{}{}
		out = append(out, row.SKU)
	}
	return out
}

// DetectSchema reports the fixed schema only when the header is exactly date, product_id, quantity_sold.
func DetectSchema(headers []string) domain.Schema {
	if len(headers) != len(fixedHeaders) {
		return domain.SchemaFlexible
	}
	for i, h := range headers {
		if normalizeHeader(h) != fixedHeaders[i] {
			return domain.SchemaFlexible
		}
	}
	return domain.SchemaFixed
}

// Normalize converts a decoded table into sale rows under the requested schema.
func Normalize(t *Table, opts Options) (*Batch, error) {
	policy, err := ParseDatePolicy(opts.DatePolicy)
	if err != nil {
		return nil, err
	}
	opts.DatePolicy = policy

	schema := opts.Schema
	if schema == "" || schema == domain.SchemaAuto {
		schema = DetectSchema(t.Headers)
	}

	switch schema {
	case domain.SchemaFixed:
		return normalizeFixed(t, opts)
	default:
		return normalizeFlexible(t, opts)
	}
}

func normalizeFlexible(t *Table, opts Options) (*Batch, error) {
	cols, err := ResolveColumns(t.Headers)
	if err != nil {
		return nil, err
	}

	batch := &Batch{Schema: domain.SchemaFlexible, Columns: cols}
	for i, record := range t.Records {
		line := i + 2
		if isBlank(record) {
			continue
		}

		rawDate := cols.Get(record, FieldDate)
		date, ok := ParseDate(rawDate)
		if !ok {
			if err := rejectDate(opts.DatePolicy, line, rawDate); err != nil {
				return nil, err
			}
			batch.Skipped++
			continue
		}

		sku := cols.Get(record, FieldSKU)
		if sku == "" {
			return nil, &domain.RowError{Line: line, Column: cols.Headers[FieldSKU], Reason: "empty sku"}
		}

		qtyRaw := cols.Get(record, FieldQuantity)
		qty, err := parseNumber(qtyRaw)
		if err != nil {
			return nil, &domain.RowError{Line: line, Column: cols.Headers[FieldQuantity], Value: qtyRaw, Reason: err.Error()}
		}

		row := domain.SaleRow{Line: line, Date: date, SKU: sku, Quantity: qty}
		if name := cols.Get(record, FieldName); name != "" {
			row.Name, row.HasName = name, true
		}
		if priceRaw := cols.Get(record, FieldPrice); priceRaw != "" {
			price, err := parseNumber(priceRaw)
			if err != nil {
				return nil, &domain.RowError{Line: line, Column: cols.Headers[FieldPrice], Value: priceRaw, Reason: err.Error()}
			}
			row.Price, row.HasPrice = price, true
		}

		batch.Rows = append(batch.Rows, row)
	}

	if len(batch.Rows) == 0 {
		return nil, domain.ErrNoRows
	}
	return batch, nil
}

func normalizeFixed(t *Table, opts Options) (*Batch, error) {
	if DetectSchema(t.Headers) != domain.SchemaFixed {
		return nil, &domain.SchemaError{Found: fixedFound(t.Headers)}
	}

	batch := &Batch{Schema: domain.SchemaFixed}
	for i, record := range t.Records {
		line := i + 2
		if isBlank(record) {
			continue
		}

		rawDate := cell(record, 0)
		date, ok := ParseISODate(rawDate)
		if !ok {
			if err := rejectDate(opts.DatePolicy, line, rawDate); err != nil {
				return nil, err
			}
			batch.Skipped++
			continue
		}

		sku := cell(record, 1)
		if sku == "" {
			return nil, &domain.RowError{Line: line, Column: "product_id", Reason: "empty product_id"}
		}

		qtyRaw := cell(record, 2)
		qty, err := parseNumber(qtyRaw)
		if err != nil {
			return nil, &domain.RowError{Line: line, Column: "quantity_sold", Value: qtyRaw, Reason: err.Error()}
		}

		batch.Rows = append(batch.Rows, domain.SaleRow{Line: line, Date: date, SKU: sku, Quantity: qty})
	}

	if len(batch.Rows) == 0 {
		return nil, domain.ErrNoRows
	}
	return batch, nil
}

func rejectDate(policy string, line int, value string) error {
	if policy == DatePolicyStrict {
		return &domain.DateParseError{Line: line, Value: value}
	}
	return nil
}

func fixedFound(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[normalizeHeader(h)] = true
	}
	var found []string
	for _, h := range fixedHeaders {
		if present[h] {
			found = append(found, h)
		}
	}
	return found
}

// parseNumber accepts "1 234,5" and "1234.5" style values.
func parseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	return v, nil
}

func cell(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
