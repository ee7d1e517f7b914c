// Package enums holds the string-backed enumerations persisted in Postgres
// columns and carried in event payloads.
package enums

import (
	"fmt"
	"slices"
)

// parse returns the member of set equal to value.
func parse[T ~string](kind, value string, set []T) (T, error) {
	if i := slices.Index(set, T(value)); i >= 0 {
		return set[i], nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}
