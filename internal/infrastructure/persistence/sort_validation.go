package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// orderClause builds a whitelisted ORDER BY clause. id is always appended so
// pages are stable when the sort field has duplicates.
func orderClause(sortBy, sortOrder string, allowedFields map[string]bool, defaultField string) string {
	field := ValidateSortField(sortBy, allowedFields, defaultField)
	order := field + " " + ValidateSortOrder(sortOrder)
	if field != "id" {
		order += ", id ASC"
	}
	return order
}

// JobSortFields contains allowed sort fields for jobs
var JobSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"model":      true,
	"method":     true,
	"status":     true,
	"priority":   true,
	"attempts":   true,
	"eta":        true,
	"done_at":    true,
}

// BindingSortFields contains allowed sort fields for bindings
var BindingSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"model":       true,
	"external_id": true,
	"sync_date":   true,
}
