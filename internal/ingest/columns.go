package ingest

import (
	"strings"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// Field is a canonical column the ingestion logic operates on.
type Field string

const (
	FieldDate     Field = "date"
	FieldSKU      Field = "sku"
	FieldName     Field = "name"
	FieldQuantity Field = "quantity"
	FieldPrice    Field = "price"
)

// CanonicalFields lists the fields in resolution order.
var CanonicalFields = []Field{FieldDate, FieldSKU, FieldName, FieldQuantity, FieldPrice}

type keywordGroup struct {
	field    Field
	keywords []string
}

// A header is tested against the groups in this order and maps to the first group it matches.
var keywordGroups = []keywordGroup{
	{field: FieldDate, keywords: []string{"дата", "date"}},
	{field: FieldSKU, keywords: []string{"артикул", "sku", "код"}},
	{field: FieldName, keywords: []string{"товар", "product", "название"}},
	{field: FieldQuantity, keywords: []string{"кол", "qty", "количество"}},
	{field: FieldPrice, keywords: []string{"цена", "price", "стоимость"}},
}

// ColumnMap maps canonical fields to header positions.
type ColumnMap struct {
	Index   map[Field]int
	Headers map[Field]string
	// Ignored holds headers that matched an already resolved field.
	Ignored []string
}

// Get returns the trimmed cell for field, or "" when the row is short.
func (m ColumnMap) Get(record []string, field Field) string {
	idx, ok := m.Index[field]
	if !ok || idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// MatchField returns the canonical field a single header maps to.
func MatchField(header string) (Field, bool) {
	normalized := normalizeHeader(header)
	if normalized == "" {
		return "", false
	}
	for _, group := range keywordGroups {
		for _, kw := range group.keywords {
			if strings.Contains(normalized, kw) {
				return group.field, true
			}
		}
	}
	return "", false
}

// ResolveColumns maps arbitrary headers onto the five canonical fields.
// When several headers match the same field the first one in file order wins.
func ResolveColumns(headers []string) (ColumnMap, error) {
	m := ColumnMap{
		Index:   make(map[Field]int, len(CanonicalFields)),
		Headers: make(map[Field]string, len(CanonicalFields)),
	}

	for i, header := range headers {
		field, ok := MatchField(header)
		if !ok {
			continue
		}
		if _, taken := m.Index[field]; taken {
			m.Ignored = append(m.Ignored, header)
			continue
		}
		m.Index[field] = i
		m.Headers[field] = header
	}

	if len(m.Index) < len(CanonicalFields) {
		found := make([]string, 0, len(m.Index))
		for _, f := range CanonicalFields {
			if _, ok := m.Index[f]; ok {
				found = append(found, string(f))
			}
		}
		return m, &domain.SchemaError{Found: found}
	}

	return m, nil
}

// normalizeHeader lowercases and trims a header, dropping a UTF-8 BOM.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}
