package restapi

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxIDLength = 255

// validateID checks a path id and returns field errors keyed by "id", or nil.
func validateID(id string) map[string][]string {
	switch {
	case strings.TrimSpace(id) == "":
		return map[string][]string{"id": {"id is required"}}
	case len(id) > maxIDLength:
		return map[string][]string{"id": {"id is too long"}}
	case !utf8.ValidString(id) || strings.IndexFunc(id, unicode.IsControl) >= 0:
		return map[string][]string{"id": {"id contains invalid characters"}}
	}
	return nil
}
