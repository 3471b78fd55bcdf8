package domain

import "strings"

// Priority labels a reorder recommendation.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
)

var priorityLabels = map[Priority]string{
	PriorityUrgent: "СРОЧНО",
	PriorityHigh:   "ВЫСОКИЙ",
}

// PriorityLabel returns the localized label used in exports.
func PriorityLabel(p Priority) string {
	if label, ok := priorityLabels[p]; ok {
		return label
	}

	return strings.ToUpper(string(p))
}

// ParseSchema maps a user-supplied schema name to a Schema, defaulting to auto.
func ParseSchema(value string) Schema {
	switch Schema(strings.ToLower(strings.TrimSpace(value))) {
	case SchemaFlexible:
		return SchemaFlexible
	case SchemaFixed:
		return SchemaFixed
	default:
		return SchemaAuto
	}
}
