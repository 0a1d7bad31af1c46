// Package idgen generates lexicographically sortable unique identifiers.
package idgen

import "github.com/oklog/ulid/v2"

// MustSortableID returns a new ULID string. IDs generated within the same
// millisecond still sort deterministically.
func MustSortableID() string {
	return ulid.Make().String()
}
