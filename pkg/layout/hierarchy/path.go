package hierarchy

import (
	"strings"

	"github.com/google/uuid"
)

// KiCad 5 timestamps are padded to a UUID with this prefix.
const legacyPrefix = "00000000-0000-0000-0000-0000"

// NormalizeID returns the canonical form of a sheet or symbol identifier:
// upper case, with the legacy timestamp padding removed.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if u, err := uuid.Parse(id); err == nil {
		id = u.String()
	}
	return strings.TrimPrefix(strings.ToUpper(id), legacyPrefix)
}

// ParsePath splits an instance path such as "/sheetA/sheetB/symbol" into
// its ancestor sheet chain (root first) and the leaf symbol id. An empty
// path yields no sheets and an empty leaf.
func ParsePath(path string) (sheets []string, leaf string) {
	var ids []string
	for _, seg := range strings.Split(path, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			ids = append(ids, NormalizeID(seg))
		}
	}
	if len(ids) == 0 {
		return nil, ""
	}
	return ids[:len(ids)-1], ids[len(ids)-1]
}

// HasPrefix reports whether chain starts with level.
func HasPrefix(chain, level []string) bool {
	if len(level) > len(chain) {
		return false
	}
	for i, id := range level {
		if chain[i] != id {
			return false
		}
	}
	return true
}
