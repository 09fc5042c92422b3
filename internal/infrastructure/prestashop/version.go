package prestashop

import (
	"strings"

	"github.com/erp/prestashop-connector/internal/domain/connector"
)

// singularKeys lists the association keys whose singular form is irregular
var singularKeys = map[string]string{
	"categories": "category",
}

// VersionKey returns the key under which a PrestaShop version nests the
// entries of an association. 1.6.0.9 repeats the plural name
// (associations/groups/groups); other versions use the singular
// (associations/groups/group).
func VersionKey(version connector.Version, plural string) string {
	if version == connector.Version1609 {
		return plural
	}
	return singular(plural)
}

func singular(plural string) string {
	if s, ok := singularKeys[plural]; ok {
		return s
	}
	return strings.TrimSuffix(plural, "s")
}

// Associations returns the entries of an association of the record,
// normalized to a list. When the key for the version is absent, the other
// form is tried.
func Associations(r Record, version connector.Version, plural string) []Record {
	assoc := r.Child("associations").Child(plural)
	key := VersionKey(version, plural)
	if assoc.Has(key) {
		return assoc.List(key)
	}
	other := plural
	if key == plural {
		other = singular(plural)
	}
	return assoc.List(other)
}
